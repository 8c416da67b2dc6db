package web

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signature-card-studio/internal/calllog"
	"signature-card-studio/internal/card"
	cerrors "signature-card-studio/internal/errors"
	"signature-card-studio/internal/export"
	"signature-card-studio/internal/gemini"
	"signature-card-studio/internal/prompt"
	"signature-card-studio/internal/render"
	"signature-card-studio/internal/studio"
)

type stubGenerator struct{}

func (stubGenerator) GenerateGreeting(context.Context, prompt.TextRequest) (gemini.GreetingContent, error) {
	return gemini.GreetingContent{MainMessage: "함께라서 든든합니다", BgTheme: "sunrise", RecommendedSeason: "dawn"}, nil
}

func (stubGenerator) FetchQuotes(context.Context, prompt.TextRequest) ([]prompt.Quote, error) {
	return []prompt.Quote{{Text: "아는 것이 힘이다", Author: "베이컨"}, {Text: "천 리 길도 한 걸음부터", Author: "노자"}}, nil
}

func (stubGenerator) GenerateImage(context.Context, gemini.ImageParams) (string, error) {
	return "data:image/png;base64,AAAA", nil
}

func (stubGenerator) SubmitVideo(context.Context, gemini.VideoParams) (string, error) {
	return "operations/9", nil
}

func (stubGenerator) PollVideo(_ context.Context, name string) (gemini.VideoOperation, error) {
	return gemini.VideoOperation{Name: name, Done: true, URI: "https://example.com/v.mp4?key=k"}, nil
}

type recordingSharer struct {
	mu    sync.Mutex
	names []string
}

func (s *recordingSharer) ShareImage(_ context.Context, name string, _ []byte, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.names = append(s.names, name)
	return nil
}

type fakeCalls struct{}

func (fakeCalls) Recent(context.Context, int) ([]calllog.Entry, error) {
	return []calllog.Entry{{ID: 1, Kind: "greeting", Model: "m", DurationMS: 12}}, nil
}

func (fakeCalls) Summarize(context.Context) ([]calllog.Summary, error) {
	return []calllog.Summary{{Kind: "greeting", Calls: 1}}, nil
}

func newTestServer(t *testing.T, sharer export.Sharer, calls CallLog) http.Handler {
	t.Helper()
	raster, err := export.NewRasterizer(export.RasterOptions{})
	require.NoError(t, err)
	cards, err := render.New()
	require.NoError(t, err)

	srv, err := New(Options{
		Studio:   studio.NewService(studio.Options{Generator: stubGenerator{}, PollInterval: time.Millisecond, VideoTimeout: 5 * time.Second}),
		Exporter: export.NewExporter(raster, sharer),
		Cards:    cards,
		Calls:    calls,
	})
	require.NoError(t, err)
	return srv.Handler()
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func createSession(t *testing.T, h http.Handler) string {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/api/sessions", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	var snap studio.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	require.NotEmpty(t, snap.ID)
	return snap.ID
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestCreateAndGetSession(t *testing.T) {
	h := newTestServer(t, nil, nil)
	id := createSession(t, h)

	rec := do(t, h, http.MethodGet, "/api/sessions/"+id, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"layout_frame":"FullGold"`)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestUnknownSessionIsNotFound(t *testing.T) {
	h := newTestServer(t, nil, nil)

	rec := do(t, h, http.MethodGet, "/api/sessions/nope", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, string(cerrors.ErrNotFound), decodeError(t, rec).Error.Code)
}

func TestPatchSession(t *testing.T) {
	h := newTestServer(t, nil, nil)
	id := createSession(t, h)

	rec := do(t, h, http.MethodPatch, "/api/sessions/"+id, `{"layout_frame":"Rainbow"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(cerrors.ErrInvalidRequest), decodeError(t, rec).Error.Code)

	rec = do(t, h, http.MethodPatch, "/api/sessions/"+id, `{"bogus":1}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPatch, "/api/sessions/"+id, `{"message":"안녕하세요","align":"left","ratio":"3:4"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var snap studio.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, "안녕하세요", snap.Message)
	assert.Equal(t, card.AlignLeft, snap.Appearance.Align)
	assert.Equal(t, card.RatioPortrait, snap.Ratio)
}

func TestPatchRejectsMalformedColor(t *testing.T) {
	h := newTestServer(t, nil, nil)
	id := createSession(t, h)

	rec := do(t, h, http.MethodPatch, "/api/sessions/"+id, `{"text_color":"red;background-image:url(https://evil.example/beacon)"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(cerrors.ErrInvalidRequest), decodeError(t, rec).Error.Code)

	rec = do(t, h, http.MethodGet, "/api/sessions/"+id+"/card", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "evil.example")
}

func TestQuotesRejectUnknownTheme(t *testing.T) {
	h := newTestServer(t, nil, nil)
	id := createSession(t, h)

	rec := do(t, h, http.MethodPost, "/api/sessions/"+id+"/quotes", `{"theme":"totally-unknown-theme"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(cerrors.ErrInvalidRequest), decodeError(t, rec).Error.Code)
}

func TestImageNeedsContent(t *testing.T) {
	h := newTestServer(t, nil, nil)
	id := createSession(t, h)

	rec := do(t, h, http.MethodPost, "/api/sessions/"+id+"/image", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, string(cerrors.ErrMissingPrerequisite), body.Error.Code)
	assert.Equal(t, studio.AlertNeedContent, body.Alert)
}

func TestContentThenImage(t *testing.T) {
	h := newTestServer(t, nil, nil)
	id := createSession(t, h)

	rec := do(t, h, http.MethodPost, "/api/sessions/"+id+"/content", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "함께라서 든든합니다")

	rec = do(t, h, http.MethodPost, "/api/sessions/"+id+"/image", `{"refinement":"더 밝게"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "data:image/png;base64,AAAA")

	rec = do(t, h, http.MethodGet, "/api/sessions/"+id, "")
	var snap studio.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, "더 밝게", snap.Form.Refinement)
	assert.Equal(t, card.BackgroundImage, snap.Visual.Background.Kind())
}

func TestQuotesAndSelection(t *testing.T) {
	h := newTestServer(t, nil, nil)
	id := createSession(t, h)

	rec := do(t, h, http.MethodPost, "/api/sessions/"+id+"/quotes/select", `{"index":0}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, studio.AlertSelectQuote, decodeError(t, rec).Alert)

	rec = do(t, h, http.MethodPost, "/api/sessions/"+id+"/quotes", `{"theme":"wisdom"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "아는 것이 힘이다")

	rec = do(t, h, http.MethodPost, "/api/sessions/"+id+"/quotes/select", `{}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/sessions/"+id+"/quotes/select", `{"index":1}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `천 리 길도 한 걸음부터\n- 노자`)
}

func TestReferenceUploadDetectsRatio(t *testing.T) {
	h := newTestServer(t, nil, nil)
	id := createSession(t, h)

	var img bytes.Buffer
	require.NoError(t, png.Encode(&img, image.NewNRGBA(image.Rect(0, 0, 100, 200))))

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("image", "ref.png")
	require.NoError(t, err)
	_, err = fw.Write(img.Bytes())
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/sessions/"+id+"/reference", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"ratio":"3:4"`)

	rec = do(t, h, http.MethodGet, "/api/sessions/"+id, "")
	assert.Contains(t, rec.Body.String(), `"has_reference":true`)

	rec = do(t, h, http.MethodDelete, "/api/sessions/"+id+"/reference", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"has_reference":false`)
}

func TestReferenceRejectsNonImage(t *testing.T) {
	h := newTestServer(t, nil, nil)
	id := createSession(t, h)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("image", "notes.txt")
	require.NoError(t, err)
	_, _ = fw.Write([]byte("hello"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/sessions/"+id+"/reference", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExport(t *testing.T) {
	h := newTestServer(t, nil, nil)
	id := createSession(t, h)

	rec := do(t, h, http.MethodGet, "/api/sessions/"+id+"/export?scale=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "Signature_Card_")

	img, err := png.Decode(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 600, img.Bounds().Dx())

	rec = do(t, h, http.MethodGet, "/api/sessions/"+id+"/export?scale=9", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/sessions/"+id+"/export?scale=big", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestShareWithoutTarget(t *testing.T) {
	h := newTestServer(t, nil, nil)
	id := createSession(t, h)

	rec := do(t, h, http.MethodPost, "/api/sessions/"+id+"/share", "")
	require.Equal(t, http.StatusNotImplemented, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, string(cerrors.ErrShareUnsupported), body.Error.Code)
	assert.Equal(t, studio.AlertShareFallback, body.Alert)
}

func TestShareToTarget(t *testing.T) {
	sharer := &recordingSharer{}
	h := newTestServer(t, sharer, nil)
	id := createSession(t, h)

	rec := do(t, h, http.MethodPost, "/api/sessions/"+id+"/share", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"shared":true`)
	require.Len(t, sharer.names, 1)
	assert.True(t, strings.HasPrefix(sharer.names[0], "Signature_Card_"))
}

func TestVideoStartAndWait(t *testing.T) {
	h := newTestServer(t, nil, nil)
	id := createSession(t, h)

	rec := do(t, h, http.MethodPost, "/api/sessions/"+id+"/video", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/api/sessions/"+id+"/content", "").Code)

	rec = do(t, h, http.MethodPost, "/api/sessions/"+id+"/video", "")
	require.Equal(t, http.StatusAccepted, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/sessions/"+id+"/video?wait=true", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var job studio.VideoJob
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &job))
	assert.Equal(t, studio.VideoDone, job.State)
	assert.Equal(t, "16:9", job.Ratio)
}

func TestCardPage(t *testing.T) {
	h := newTestServer(t, nil, nil)
	id := createSession(t, h)

	rec := do(t, h, http.MethodGet, "/api/sessions/"+id+"/card", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<!doctype html>")
	assert.Contains(t, rec.Body.String(), render.ElementID)

	rec = do(t, h, http.MethodGet, "/api/sessions/"+id+"/card?fragment=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "<!doctype html>")
	assert.Contains(t, rec.Body.String(), render.ElementID)
}

func TestDeleteSession(t *testing.T) {
	h := newTestServer(t, nil, nil)
	id := createSession(t, h)

	assert.Equal(t, http.StatusNoContent, do(t, h, http.MethodDelete, "/api/sessions/"+id, "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodDelete, "/api/sessions/"+id, "").Code)
}

func TestCatalog(t *testing.T) {
	h := newTestServer(t, nil, nil)

	rec := do(t, h, http.MethodGet, "/api/catalog", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp catalogResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.LayoutFrames, len(card.AllLayoutFrames()))
	assert.Len(t, resp.TextFrames, len(card.AllTextFrames()))
	assert.Len(t, resp.Ratios, 5)
	assert.NotEmpty(t, resp.Fonts)
}

func TestCalls(t *testing.T) {
	rec := do(t, newTestServer(t, nil, nil), http.MethodGet, "/api/calls", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, newTestServer(t, nil, fakeCalls{}), http.MethodGet, "/api/calls?limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"kind":"greeting"`)
	assert.Contains(t, rec.Body.String(), `"summary"`)
}

func TestHelpPage(t *testing.T) {
	h := newTestServer(t, nil, nil)

	rec := do(t, h, http.MethodGet, "/help", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<h1>Signature Card Studio</h1>")
	assert.Contains(t, rec.Body.String(), "<table>")
	assert.Contains(t, rec.Header().Get("Content-Security-Policy"), "fonts.googleapis.com")

	rec = do(t, h, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusFound, rec.Code)
}
