package studio

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	cerrors "signature-card-studio/internal/errors"
)

func TestAlert(t *testing.T) {
	tests := []struct {
		action Action
		err    error
		want   string
	}{
		{ActionContent, cerrors.NewMissingPrerequisite("quote"), AlertSelectQuote},
		{ActionVisual, cerrors.NewMissingPrerequisite("content"), AlertNeedContent},
		{ActionVisual, cerrors.NewAuth(nil), AlertAuth},
		{ActionVisual, cerrors.NewBusy(GateVisual), AlertBusy},
		{ActionShare, cerrors.NewShareUnsupported(), AlertShareFallback},
		{ActionQuotes, errors.New("x"), AlertQuotesFailed},
		{ActionContent, cerrors.NewEmptyResponse("greeting"), AlertContentFailed},
		{ActionVisual, cerrors.NewVideoFailed("op"), AlertVisualFailed},
		{ActionExport, cerrors.NewInternal(nil), AlertExportFailed},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Alert(tt.action, tt.err), "%s %v", tt.action, tt.err)
	}
	assert.Empty(t, Alert(ActionVisual, nil))
}
