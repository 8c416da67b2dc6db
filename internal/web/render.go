package web

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"html/template"
	"io"
	"net/http"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	cerrors "signature-card-studio/internal/errors"
	"signature-card-studio/internal/studio"
)

const maxJSONBody = 1 << 20

// errorBody is the JSON shape of every failed request. Alert is the
// message to show the user.
type errorBody struct {
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Status  int            `json:"status"`
		Details map[string]any `json:"details,omitempty"`
	} `json:"error"`
	Alert string `json:"alert"`
}

// renderError writes err as JSON with the status its code carries.
func renderError(w http.ResponseWriter, action studio.Action, err error) {
	cErr, ok := cerrors.As(err)
	if !ok {
		switch {
		case stderrors.Is(err, context.DeadlineExceeded):
			cErr = cerrors.NewUpstream(err)
		default:
			cErr = cerrors.NewInternal(err)
		}
	}

	var body errorBody
	body.Error.Code = string(cErr.Code)
	body.Error.Message = cErr.Message
	body.Error.Status = cErr.Status
	body.Error.Details = cErr.Details
	body.Alert = studio.Alert(action, cErr)
	renderJSON(w, cErr.Status, body)
}

// renderJSON writes a JSON response.
func renderJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// decodeJSON reads a JSON body into dst. An empty body leaves dst untouched.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if stderrors.Is(err, io.EOF) {
			return nil
		}
		return cerrors.NewInvalidRequest(fmt.Sprintf("invalid JSON body: %v", err))
	}
	return nil
}

var markdown = goldmark.New(goldmark.WithExtensions(extension.Table))

// renderMarkdown converts markdown text to HTML using goldmark.
func renderMarkdown(md string) template.HTML {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(md), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(md))
	}
	return template.HTML(buf.String())
}
