package web

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"strconv"
	"strings"

	_ "golang.org/x/image/webp"

	"signature-card-studio/internal/card"
	cerrors "signature-card-studio/internal/errors"
	"signature-card-studio/internal/export"
	"signature-card-studio/internal/gemini"
	"signature-card-studio/internal/prompt"
	"signature-card-studio/internal/studio"
)

const maxUploadBytes = 25 << 20

func (s *Server) session(w http.ResponseWriter, r *http.Request, action studio.Action) (*studio.Session, bool) {
	sess, err := s.studio.Session(r.PathValue("id"))
	if err != nil {
		renderError(w, action, err)
		return nil, false
	}
	return sess, true
}

func (s *Server) generationContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), s.timeout)
}

func (s *Server) handleHelp(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := s.help.Execute(&buf, s.helpHTML); err != nil {
		s.logger.Error("help page failed", "err", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

type catalogOption struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

type catalogResponse struct {
	Situations   []prompt.NamedOption `json:"situations"`
	Targets      []prompt.NamedOption `json:"targets"`
	Styles       []prompt.NamedOption `json:"styles"`
	QuoteThemes  []prompt.NamedOption `json:"quote_themes"`
	ImageTypes   []prompt.NamedOption `json:"image_types"`
	StylePresets []prompt.NamedOption `json:"style_presets"`
	Fonts        []prompt.FontOption  `json:"fonts"`
	LayoutFrames []catalogOption      `json:"layout_frames"`
	TextFrames   []catalogOption      `json:"text_frames"`
	Ratios       []card.AspectRatio   `json:"ratios"`
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	resp := catalogResponse{
		Situations:   prompt.Situations(),
		Targets:      prompt.Targets(),
		Styles:       prompt.MessageStyles(),
		QuoteThemes:  prompt.QuoteThemes(),
		ImageTypes:   prompt.ImageTypes(),
		StylePresets: prompt.StylePresets(),
		Fonts:        prompt.Fonts(),
		Ratios:       card.AllAspectRatios(),
	}
	for _, f := range card.AllLayoutFrames() {
		resp.LayoutFrames = append(resp.LayoutFrames, catalogOption{Key: string(f), Label: f.Label()})
	}
	for _, f := range card.AllTextFrames() {
		resp.TextFrames = append(resp.TextFrames, catalogOption{Key: string(f), Label: f.Label()})
	}
	renderJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCalls(w http.ResponseWriter, r *http.Request) {
	if s.calls == nil {
		renderError(w, "", cerrors.NewNotFound("call log", "CALL_LOG_PATH"))
		return
	}
	limit := parseIntParam(r, "limit", 50)
	recent, err := s.calls.Recent(r.Context(), limit)
	if err != nil {
		renderError(w, "", err)
		return
	}
	summary, err := s.calls.Summarize(r.Context())
	if err != nil {
		renderError(w, "", err)
		return
	}
	renderJSON(w, http.StatusOK, map[string]any{"recent": recent, "summary": summary})
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	sess := s.studio.Create()
	renderJSON(w, http.StatusCreated, sess.Snapshot())
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r, "")
	if !ok {
		return
	}
	renderJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *Server) handlePatch(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r, "")
	if !ok {
		return
	}
	var edit studio.Edit
	if err := decodeJSON(r, &edit); err != nil {
		renderError(w, "", err)
		return
	}
	if err := sess.Apply(edit); err != nil {
		renderError(w, "", err)
		return
	}
	renderJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !s.studio.Delete(id) {
		renderError(w, "", cerrors.NewNotFound("session", id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r, "")
	if !ok {
		return
	}
	sess.Reset()
	renderJSON(w, http.StatusOK, sess.Snapshot())
}

type quotesRequest struct {
	Theme string `json:"theme"`
}

func (s *Server) handleQuotes(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r, studio.ActionQuotes)
	if !ok {
		return
	}
	var req quotesRequest
	if err := decodeJSON(r, &req); err != nil {
		renderError(w, studio.ActionQuotes, err)
		return
	}

	ctx, cancel := s.generationContext(r)
	defer cancel()
	quotes, err := s.studio.FetchQuotes(ctx, sess, strings.TrimSpace(req.Theme))
	if err != nil {
		renderError(w, studio.ActionQuotes, err)
		return
	}
	renderJSON(w, http.StatusOK, map[string]any{"quotes": quotes})
}

type selectRequest struct {
	Index *int `json:"index"`
}

func (s *Server) handleSelectQuote(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r, studio.ActionQuotes)
	if !ok {
		return
	}
	var req selectRequest
	if err := decodeJSON(r, &req); err != nil {
		renderError(w, studio.ActionQuotes, err)
		return
	}
	if req.Index == nil {
		renderError(w, studio.ActionQuotes, cerrors.NewInvalidRequest("index is required"))
		return
	}
	q, err := s.studio.SelectQuote(sess, *req.Index)
	if err != nil {
		renderError(w, studio.ActionQuotes, err)
		return
	}
	renderJSON(w, http.StatusOK, map[string]any{"quote": q, "formatted": q.Format()})
}

func (s *Server) handleContent(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r, studio.ActionContent)
	if !ok {
		return
	}
	ctx, cancel := s.generationContext(r)
	defer cancel()

	content, err := s.studio.GenerateContent(ctx, sess)
	if err != nil {
		renderError(w, studio.ActionContent, err)
		return
	}
	renderJSON(w, http.StatusOK, map[string]any{"content": content, "session": sess.Snapshot()})
}

func (s *Server) handleReference(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r, studio.ActionVisual)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		renderError(w, studio.ActionVisual, cerrors.NewInvalidRequest("invalid multipart form"))
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		renderError(w, studio.ActionVisual, cerrors.NewInvalidRequest("missing image"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		renderError(w, studio.ActionVisual, cerrors.NewInvalidRequest("failed to read image"))
		return
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		renderError(w, studio.ActionVisual, cerrors.NewInvalidRequest(fmt.Sprintf("unsupported image: %v", err)))
		return
	}

	ratio := sess.SetReference(gemini.ImageInput{
		DataBase64: base64.StdEncoding.EncodeToString(data),
		MimeType:   uploadMime(header.Header.Get("Content-Type"), data),
	}, cfg.Width, cfg.Height)

	renderJSON(w, http.StatusOK, map[string]any{"ratio": ratio, "width": cfg.Width, "height": cfg.Height})
}

func (s *Server) handleClearReference(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r, studio.ActionVisual)
	if !ok {
		return
	}
	sess.ClearReference()
	renderJSON(w, http.StatusOK, sess.Snapshot())
}

type imageRequest struct {
	Refine     bool   `json:"refine"`
	Refinement string `json:"refinement"`
}

func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r, studio.ActionVisual)
	if !ok {
		return
	}
	var req imageRequest
	if err := decodeJSON(r, &req); err != nil {
		renderError(w, studio.ActionVisual, err)
		return
	}
	if text := strings.TrimSpace(req.Refinement); text != "" {
		sess.SetRefinement(text)
		req.Refine = true
	}

	ctx, cancel := s.generationContext(r)
	defer cancel()
	url, err := s.studio.GenerateImage(ctx, sess, req.Refine)
	if err != nil {
		renderError(w, studio.ActionVisual, err)
		return
	}
	renderJSON(w, http.StatusOK, map[string]any{"url": url})
}

func (s *Server) handleStartVideo(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r, studio.ActionVisual)
	if !ok {
		return
	}
	ctx, cancel := s.generationContext(r)
	defer cancel()

	job, err := s.studio.StartVideo(ctx, sess)
	if err != nil {
		renderError(w, studio.ActionVisual, err)
		return
	}
	renderJSON(w, http.StatusAccepted, job)
}

// handleVideo reports the current job. With wait=true it blocks until the
// job finishes or the request ends.
func (s *Server) handleVideo(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r, studio.ActionVisual)
	if !ok {
		return
	}
	job := s.studio.Video(sess)
	if !parseBoolParam(r, "wait") || job.ID == "" || job.State.Terminal() {
		renderJSON(w, http.StatusOK, job)
		return
	}

	job, err := s.studio.WaitVideo(r.Context(), sess, job.ID)
	if err != nil {
		renderError(w, studio.ActionVisual, err)
		return
	}
	renderJSON(w, http.StatusOK, job)
}

func (s *Server) handleCard(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r, "")
	if !ok {
		return
	}
	comp := sess.Composition()

	var buf bytes.Buffer
	var err error
	if parseBoolParam(r, "fragment") {
		err = s.cards.RenderCard(&buf, comp)
	} else {
		err = s.cards.RenderPage(&buf, export.ShareTitle, comp)
	}
	if err != nil {
		renderError(w, "", cerrors.NewInternal(err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r, studio.ActionExport)
	if !ok {
		return
	}
	scale := float64(export.DownloadScale)
	if raw := r.URL.Query().Get("scale"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			renderError(w, studio.ActionExport, cerrors.NewInvalidRequest("scale must be a number"))
			return
		}
		scale = v
	}

	art, err := s.exporter.Download(r.Context(), sess.Composition(), scale)
	if err != nil {
		renderError(w, studio.ActionExport, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", art.Name))
	w.Header().Set("Content-Length", strconv.Itoa(len(art.PNG)))
	_, _ = w.Write(art.PNG)
}

func (s *Server) handleShare(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r, studio.ActionShare)
	if !ok {
		return
	}
	ctx, cancel := s.generationContext(r)
	defer cancel()

	art, err := s.exporter.Share(ctx, sess.Composition())
	if err != nil {
		renderError(w, studio.ActionShare, err)
		return
	}
	renderJSON(w, http.StatusOK, map[string]any{
		"shared": true,
		"name":   art.Name,
		"title":  export.ShareTitle,
		"text":   export.ShareText,
	})
}

func uploadMime(header string, data []byte) string {
	mimeType := strings.TrimSpace(header)
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(data)
		if i := strings.Index(mimeType, ";"); i >= 0 {
			mimeType = strings.TrimSpace(mimeType[:i])
		}
	}
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = "image/jpeg"
	}
	return mimeType
}

func parseIntParam(r *http.Request, name string, fallback int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func parseBoolParam(r *http.Request, name string) bool {
	switch strings.ToLower(strings.TrimSpace(r.URL.Query().Get(name))) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
