package gemini

import (
	"context"
	"time"

	"signature-card-studio/internal/prompt"
)

// ImageInput is an inline image sent alongside a prompt.
type ImageInput struct {
	DataBase64 string
	MimeType   string
}

// DataURL renders the input back as a data URL.
func (i ImageInput) DataURL() string {
	return "data:" + i.MimeType + ";base64," + i.DataBase64
}

// GreetingContent is the structured answer of a greeting request.
type GreetingContent struct {
	Sender             string         `json:"sender,omitempty"`
	MainMessage        string         `json:"mainMessage"`
	AlternativeMessage string         `json:"alternativeMessage"`
	WiseSayingOptions  []prompt.Quote `json:"wiseSayingOptions,omitempty"`
	BgTheme            string         `json:"bgTheme"`
	RecommendedSeason  string         `json:"recommendedSeason"`
}

type ImageParams struct {
	Prompt      string
	Reference   *ImageInput
	AspectRatio string
}

type VideoParams struct {
	Prompt      string
	Reference   *ImageInput
	AspectRatio string // 16:9 or 9:16
}

// VideoOperation is the state of a long-running video job.
type VideoOperation struct {
	Name string
	Done bool
	URI  string // set once Done, with the API key appended
}

// CallKind names a backend operation for the call log.
type CallKind string

const (
	CallGreeting    CallKind = "greeting"
	CallQuotes      CallKind = "quotes"
	CallImage       CallKind = "image"
	CallVideoSubmit CallKind = "video_submit"
	CallVideoPoll   CallKind = "video_poll"
)

// Call describes one finished backend request.
type Call struct {
	Kind     CallKind
	Model    string
	Duration time.Duration
	Err      error
}

// CallRecorder receives every backend call. Implementations must not block.
type CallRecorder interface {
	RecordCall(ctx context.Context, call Call)
}
