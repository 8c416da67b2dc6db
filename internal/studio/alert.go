package studio

import (
	cerrors "signature-card-studio/internal/errors"
)

// Action names a user-triggered operation for alert wording.
type Action string

const (
	ActionQuotes  Action = "quotes"
	ActionContent Action = "content"
	ActionVisual  Action = "visual"
	ActionShare   Action = "share"
	ActionExport  Action = "export"
)

const (
	AlertSelectQuote   = "명언 추출 후 하나를 선택해주세요."
	AlertNeedContent   = "먼저 카드 문구를 생성해주세요."
	AlertQuotesFailed  = "명언 추출 중 오류가 발생했습니다."
	AlertContentFailed = "카드 생성 도중 오류가 발생했습니다."
	AlertVisualFailed  = "생성 도중 오류가 발생했습니다."
	AlertAuth          = "API 키 프로젝트 정보가 올바르지 않습니다. 다시 선택해주세요."
	AlertShareFallback = "이미지 다운로드 후 전달해주세요."
	AlertBusy          = "이전 요청을 처리하는 중입니다. 잠시 후 다시 시도해주세요."
	AlertExportFailed  = "이미지 저장 중 오류가 발생했습니다."
)

// Alert turns an error into the message shown to the user.
func Alert(action Action, err error) string {
	if err == nil {
		return ""
	}
	cErr, ok := cerrors.As(err)
	if ok {
		switch cErr.Code {
		case cerrors.ErrMissingPrerequisite:
			if cErr.Details["missing"] == "content" {
				return AlertNeedContent
			}
			return AlertSelectQuote
		case cerrors.ErrAuth:
			return AlertAuth
		case cerrors.ErrBusy:
			return AlertBusy
		case cerrors.ErrShareUnsupported:
			return AlertShareFallback
		case cerrors.ErrInvalidRequest, cerrors.ErrNotFound:
			return cErr.Message
		}
	}

	switch action {
	case ActionQuotes:
		return AlertQuotesFailed
	case ActionContent:
		return AlertContentFailed
	case ActionExport, ActionShare:
		return AlertExportFailed
	default:
		return AlertVisualFailed
	}
}
