package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	cerrors "signature-card-studio/internal/errors"
	"signature-card-studio/internal/prompt"
)

const (
	DefaultTextModel  = "gemini-3-flash-preview"
	DefaultImageModel = "gemini-3-pro-image-preview"
	DefaultVideoModel = "veo-3.1-fast-generate-preview"

	// FallbackImageURL is used when the image model answers without an image.
	FallbackImageURL = "https://images.unsplash.com/photo-1497215728101-856f4ea42174"

	imageSize       = "1K"
	videoResolution = "720p"

	entityNotFound = "Requested entity was not found"
)

type Options struct {
	APIKey     string
	BaseURL    string
	APIVersion string
	TextModel  string
	ImageModel string
	VideoModel string
	HTTPClient *http.Client
	Logger     *slog.Logger
	Recorder   CallRecorder
}

type Client struct {
	apiKey     string
	baseURL    string
	apiVersion string
	textModel  string
	imageModel string
	videoModel string
	httpClient *http.Client
	logger     *slog.Logger
	recorder   CallRecorder
}

func New(opts Options) *Client {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com"
	}

	apiVersion := strings.TrimSpace(opts.APIVersion)
	if apiVersion == "" {
		apiVersion = "v1beta"
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Client{
		apiKey:     opts.APIKey,
		baseURL:    baseURL,
		apiVersion: apiVersion,
		textModel:  orDefault(opts.TextModel, DefaultTextModel),
		imageModel: orDefault(opts.ImageModel, DefaultImageModel),
		videoModel: orDefault(opts.VideoModel, DefaultVideoModel),
		httpClient: opts.HTTPClient,
		logger:     logger,
		recorder:   opts.Recorder,
	}
}

// GenerateGreeting asks the text model for a structured greeting.
func (c *Client) GenerateGreeting(ctx context.Context, req prompt.TextRequest) (greeting GreetingContent, err error) {
	defer c.record(ctx, CallGreeting, c.textModel, time.Now(), &err)

	text, err := c.generateJSON(ctx, req, greetingSchema)
	if err != nil {
		return GreetingContent{}, err
	}

	if err := json.Unmarshal([]byte(extractJSON(text)), &greeting); err != nil {
		c.logger.Warn("greeting response is not JSON", "error", err)
		return GreetingContent{}, cerrors.NewEmptyResponse("greeting")
	}
	for field, value := range map[string]string{
		"mainMessage":        greeting.MainMessage,
		"alternativeMessage": greeting.AlternativeMessage,
		"bgTheme":            greeting.BgTheme,
		"recommendedSeason":  greeting.RecommendedSeason,
	} {
		if strings.TrimSpace(value) == "" {
			c.logger.Warn("greeting response is missing a field", "field", field)
			return GreetingContent{}, cerrors.NewEmptyResponse("greeting")
		}
	}
	return greeting, nil
}

// FetchQuotes asks the text model for exactly prompt.QuoteCount quotes. Blank
// entries are dropped and extras cut; fewer than prompt.QuoteCount usable
// quotes is an empty response.
func (c *Client) FetchQuotes(ctx context.Context, req prompt.TextRequest) (quotes []prompt.Quote, err error) {
	defer c.record(ctx, CallQuotes, c.textModel, time.Now(), &err)

	text, err := c.generateJSON(ctx, req, quotesSchema)
	if err != nil {
		return nil, err
	}

	var decoded []prompt.Quote
	if err := json.Unmarshal([]byte(extractJSON(text)), &decoded); err != nil {
		c.logger.Warn("quotes response is not JSON", "error", err)
		return nil, cerrors.NewEmptyResponse("quotes")
	}

	for _, q := range decoded {
		if strings.TrimSpace(q.Text) == "" {
			continue
		}
		quotes = append(quotes, q)
		if len(quotes) == prompt.QuoteCount {
			break
		}
	}
	if len(quotes) < prompt.QuoteCount {
		c.logger.Warn("quotes response is short", "got", len(quotes), "want", prompt.QuoteCount)
		return nil, cerrors.NewEmptyResponse("quotes")
	}
	return quotes, nil
}

// GenerateImage returns the generated background as a data URL, or
// FallbackImageURL when the model returned no image part.
func (c *Client) GenerateImage(ctx context.Context, params ImageParams) (imageURL string, err error) {
	defer c.record(ctx, CallImage, c.imageModel, time.Now(), &err)

	promptText := strings.TrimSpace(params.Prompt)
	if promptText == "" {
		return "", cerrors.NewInvalidRequest("image prompt is empty")
	}

	parts := []part{{Text: promptText}}
	if params.Reference != nil {
		parts = append(parts, part{InlineData: &blob{
			Data:     stripDataURLPrefix(params.Reference.DataBase64),
			MimeType: params.Reference.MimeType,
		}})
	}

	req := generateContentRequest{
		Contents: []content{{Role: "user", Parts: parts}},
		GenerationConfig: generationConfig{
			ImageConfig: &imageConfig{AspectRatio: params.AspectRatio, ImageSize: imageSize},
		},
	}

	resp, err := c.generateContent(ctx, c.imageModel, req)
	if err != nil && isUnknownFieldError(err, "imageSize") {
		req.GenerationConfig.ImageConfig = &imageConfig{AspectRatio: params.AspectRatio}
		resp, err = c.generateContent(ctx, c.imageModel, req)
	}
	if err != nil && isUnknownFieldError(err, "imageConfig") {
		req.GenerationConfig.ImageConfig = nil
		resp, err = c.generateContent(ctx, c.imageModel, req)
	}
	if err != nil {
		return "", err
	}

	_, images := extractParts(resp)
	if len(images) == 0 {
		c.logger.Info("image model returned no image, using fallback")
		return FallbackImageURL, nil
	}
	return images[0], nil
}

// SubmitVideo starts a video job and returns its operation name.
func (c *Client) SubmitVideo(ctx context.Context, params VideoParams) (name string, err error) {
	defer c.record(ctx, CallVideoSubmit, c.videoModel, time.Now(), &err)

	promptText := strings.TrimSpace(params.Prompt)
	if promptText == "" {
		return "", cerrors.NewInvalidRequest("video prompt is empty")
	}

	inst := videoInstance{Prompt: promptText}
	if params.Reference != nil {
		inst.Image = &videoImage{
			BytesBase64Encoded: stripDataURLPrefix(params.Reference.DataBase64),
			MimeType:           params.Reference.MimeType,
		}
	}
	req := predictRequest{
		Instances: []videoInstance{inst},
		Parameters: videoParameters{
			AspectRatio: params.AspectRatio,
			Resolution:  videoResolution,
			SampleCount: 1,
		},
	}

	endpoint := fmt.Sprintf("%s/%s/models/%s:predictLongRunning", c.baseURL, c.apiVersion, c.videoModel)
	raw, err := c.do(ctx, http.MethodPost, endpoint, req)
	if err != nil && (isUnknownFieldError(err, "resolution") || isUnknownFieldError(err, "sampleCount")) {
		req.Parameters = videoParameters{AspectRatio: params.AspectRatio}
		raw, err = c.do(ctx, http.MethodPost, endpoint, req)
	}
	if err != nil {
		return "", err
	}

	var op operationResponse
	if err := json.Unmarshal(raw, &op); err != nil {
		return "", cerrors.NewUpstream(fmt.Errorf("decode operation: %w", err))
	}
	if op.Name == "" {
		return "", cerrors.NewEmptyResponse("video operation")
	}
	return op.Name, nil
}

// PollVideo reads the operation once. A finished operation without an output
// URI is reported as a video failure.
func (c *Client) PollVideo(ctx context.Context, name string) (op VideoOperation, err error) {
	defer c.record(ctx, CallVideoPoll, c.videoModel, time.Now(), &err)

	name = strings.Trim(strings.TrimSpace(name), "/")
	if name == "" {
		return VideoOperation{}, cerrors.NewInvalidRequest("operation name is empty")
	}

	raw, err := c.do(ctx, http.MethodGet, fmt.Sprintf("%s/%s/%s", c.baseURL, c.apiVersion, name), nil)
	if err != nil {
		return VideoOperation{}, err
	}

	var decoded operationResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return VideoOperation{}, cerrors.NewUpstream(fmt.Errorf("decode operation: %w", err))
	}

	op = VideoOperation{Name: name, Done: decoded.Done}
	if !decoded.Done {
		return op, nil
	}
	if decoded.Error != nil {
		return op, classify(decoded.Error.Code, decoded.Error.Message)
	}

	uri := decoded.videoURI()
	if uri == "" {
		return op, cerrors.NewVideoFailed(name)
	}
	op.URI = c.withKey(uri)
	return op, nil
}

func (c *Client) generateJSON(ctx context.Context, req prompt.TextRequest, schema map[string]any) (string, error) {
	payload := generateContentRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: req.Content}}}},
		GenerationConfig: generationConfig{
			Temperature:      0.7,
			ResponseMimeType: "application/json",
			ResponseSchema:   schema,
		},
	}
	if strings.TrimSpace(req.SystemInstruction) != "" {
		payload.SystemInstruction = &content{Role: "user", Parts: []part{{Text: req.SystemInstruction}}}
	}

	resp, err := c.generateContent(ctx, c.textModel, payload)
	if err != nil && isUnknownFieldError(err, "responseSchema") {
		payload.GenerationConfig.ResponseSchema = nil
		resp, err = c.generateContent(ctx, c.textModel, payload)
	}
	if err != nil {
		return "", err
	}

	text, _ := extractParts(resp)
	if strings.TrimSpace(text) == "" {
		return "", cerrors.NewEmptyResponse("text")
	}
	return text, nil
}

func (c *Client) generateContent(ctx context.Context, model string, payload generateContentRequest) (generateContentResponse, error) {
	raw, err := c.do(ctx, http.MethodPost, fmt.Sprintf("%s/%s/models/%s:generateContent", c.baseURL, c.apiVersion, model), payload)
	if err != nil {
		return generateContentResponse{}, err
	}

	var decoded generateContentResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return generateContentResponse{}, cerrors.NewUpstream(fmt.Errorf("decode response: %w", err))
	}
	return decoded, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, payload any) ([]byte, error) {
	if c.httpClient == nil {
		return nil, cerrors.NewInternal(fmt.Errorf("http client is nil"))
	}

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, cerrors.NewInternal(fmt.Errorf("marshal request: %w", err))
		}
		body = bytes.NewReader(encoded)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, cerrors.NewInternal(fmt.Errorf("create request: %w", err))
	}
	if payload != nil {
		httpReq.Header.Set("content-type", "application/json")
	}
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, cerrors.NewUpstream(fmt.Errorf("request: %w", err))
	}
	defer httpResp.Body.Close()

	rawBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, cerrors.NewUpstream(fmt.Errorf("read response: %w", err))
	}

	if httpResp.StatusCode >= 400 {
		return nil, classify(httpResp.StatusCode, fmt.Sprintf("gemini API %s: %s", httpResp.Status, strings.TrimSpace(string(rawBody))))
	}
	return rawBody, nil
}

// classify turns a backend failure into a coded error. Credential problems
// and unknown projects surface as AUTH so the user is asked to reselect a key.
func classify(status int, message string) error {
	cause := fmt.Errorf("%s", message)
	switch {
	case status == http.StatusUnauthorized, status == http.StatusForbidden, status == http.StatusNotFound,
		strings.Contains(message, entityNotFound):
		return cerrors.NewAuth(cause)
	default:
		return cerrors.NewUpstream(cause)
	}
}

func (c *Client) withKey(uri string) string {
	sep := "?"
	if strings.Contains(uri, "?") {
		sep = "&"
	}
	return uri + sep + "key=" + url.QueryEscape(c.apiKey)
}

func (c *Client) record(ctx context.Context, kind CallKind, model string, started time.Time, errp *error) {
	call := Call{Kind: kind, Model: model, Duration: time.Since(started), Err: *errp}
	if call.Err != nil {
		c.logger.Warn("gemini call failed", "kind", kind, "model", model, "duration", call.Duration, "error", call.Err)
	} else {
		c.logger.Debug("gemini call", "kind", kind, "model", model, "duration", call.Duration)
	}
	if c.recorder != nil {
		c.recorder.RecordCall(ctx, call)
	}
}

func extractParts(resp generateContentResponse) (string, []string) {
	if len(resp.Candidates) == 0 {
		return "", nil
	}

	var textBuilder strings.Builder
	var images []string

	for _, p := range resp.Candidates[0].Content.Parts {
		if p.Text != "" {
			textBuilder.WriteString(p.Text)
		}
		if p.InlineData != nil && p.InlineData.Data != "" {
			mime := p.InlineData.MimeType
			if mime == "" {
				mime = "image/png"
			}
			images = append(images, fmt.Sprintf("data:%s;base64,%s", mime, p.InlineData.Data))
		}
	}

	return textBuilder.String(), images
}

// extractJSON strips a markdown code fence the model sometimes wraps JSON in.
func extractJSON(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		text = text[idx+1:]
	} else {
		text = strings.TrimPrefix(text, "```")
	}
	text = strings.TrimSpace(text)
	return strings.TrimSpace(strings.TrimSuffix(text, "```"))
}

var dataURLRegex = regexp.MustCompile(`^data:([^;]+);base64,`)

// ParseDataURL splits a base64 data URL into an ImageInput.
func ParseDataURL(dataURL string, fallbackMime string) (ImageInput, bool) {
	b, ok := dataURLToInlineData(dataURL, fallbackMime)
	if !ok {
		return ImageInput{}, false
	}
	return ImageInput{DataBase64: b.Data, MimeType: b.MimeType}, true
}

func dataURLToInlineData(dataURL string, fallbackMime string) (blob, bool) {
	dataURL = strings.TrimSpace(dataURL)
	if dataURL == "" {
		return blob{}, false
	}

	mime := fallbackMime
	if matches := dataURLRegex.FindStringSubmatch(dataURL); len(matches) == 2 {
		mime = matches[1]
	}

	data := stripDataURLPrefix(dataURL)
	if data == "" {
		return blob{}, false
	}

	return blob{
		Data:     data,
		MimeType: mime,
	}, true
}

func stripDataURLPrefix(value string) string {
	if idx := strings.IndexByte(value, ','); idx >= 0 {
		return value[idx+1:]
	}
	return value
}

func isUnknownFieldError(err error, field string) bool {
	message := err.Error()
	return strings.Contains(message, "Unknown name") && strings.Contains(message, field)
}

func orDefault(value, fallback string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return fallback
}
