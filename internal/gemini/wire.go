package gemini

type generateContentRequest struct {
	Contents          []content        `json:"contents"`
	SystemInstruction *content         `json:"systemInstruction,omitempty"`
	GenerationConfig  generationConfig `json:"generationConfig,omitempty"`
}

type generationConfig struct {
	Temperature        float64        `json:"temperature,omitempty"`
	ResponseModalities []string       `json:"responseModalities,omitempty"`
	ResponseMimeType   string         `json:"responseMimeType,omitempty"`
	ResponseSchema     map[string]any `json:"responseSchema,omitempty"`
	ImageConfig        *imageConfig   `json:"imageConfig,omitempty"`
}

type imageConfig struct {
	AspectRatio string `json:"aspectRatio,omitempty"`
	ImageSize   string `json:"imageSize,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text       string `json:"text,omitempty"`
	InlineData *blob  `json:"inlineData,omitempty"`
}

type blob struct {
	Data     string `json:"data"`
	MimeType string `json:"mimeType"`
}

type generateContentResponse struct {
	Candidates []candidate `json:"candidates"`
}

type candidate struct {
	Content content `json:"content"`
}

type predictRequest struct {
	Instances  []videoInstance `json:"instances"`
	Parameters videoParameters `json:"parameters"`
}

type videoInstance struct {
	Prompt string      `json:"prompt"`
	Image  *videoImage `json:"image,omitempty"`
}

type videoImage struct {
	BytesBase64Encoded string `json:"bytesBase64Encoded"`
	MimeType           string `json:"mimeType"`
}

type videoParameters struct {
	AspectRatio string `json:"aspectRatio,omitempty"`
	Resolution  string `json:"resolution,omitempty"`
	SampleCount int    `json:"sampleCount,omitempty"`
}

type operationResponse struct {
	Name     string          `json:"name"`
	Done     bool            `json:"done"`
	Error    *operationError `json:"error,omitempty"`
	Response *struct {
		GenerateVideoResponse struct {
			GeneratedSamples []struct {
				Video struct {
					URI string `json:"uri"`
				} `json:"video"`
			} `json:"generatedSamples"`
		} `json:"generateVideoResponse"`
	} `json:"response,omitempty"`
}

type operationError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (o operationResponse) videoURI() string {
	if o.Response == nil {
		return ""
	}
	samples := o.Response.GenerateVideoResponse.GeneratedSamples
	if len(samples) == 0 {
		return ""
	}
	return samples[0].Video.URI
}

var quoteItemSchema = map[string]any{
	"type": "OBJECT",
	"properties": map[string]any{
		"text":   map[string]any{"type": "STRING"},
		"author": map[string]any{"type": "STRING"},
	},
	"required": []string{"text", "author"},
}

var quotesSchema = map[string]any{
	"type":  "ARRAY",
	"items": quoteItemSchema,
}

var greetingSchema = map[string]any{
	"type": "OBJECT",
	"properties": map[string]any{
		"mainMessage":        map[string]any{"type": "STRING"},
		"alternativeMessage": map[string]any{"type": "STRING"},
		"wiseSayingOptions": map[string]any{
			"type": "ARRAY",
			"items": map[string]any{
				"type": "OBJECT",
				"properties": map[string]any{
					"text":   map[string]any{"type": "STRING"},
					"author": map[string]any{"type": "STRING"},
				},
			},
		},
		"bgTheme":           map[string]any{"type": "STRING"},
		"recommendedSeason": map[string]any{"type": "STRING"},
	},
	"required": []string{"mainMessage", "alternativeMessage", "bgTheme", "recommendedSeason"},
}
