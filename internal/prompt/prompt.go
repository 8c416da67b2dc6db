package prompt

import (
	"fmt"
	"strings"
	"time"
)

const (
	QuoteCount = 5

	// ImageStyle is the fixed rendering style sent with every image request.
	ImageStyle = "Realistic"

	wildernessPrefix = "Pure Majestic Wilderness: "
	dateLayout       = "2006. 1. 2."
)

// Quote is a famous saying and the person it is attributed to.
type Quote struct {
	Text   string `json:"text"`
	Author string `json:"author"`
}

// Format renders the quote the way it is placed on a card.
func (q Quote) Format() string {
	text := strings.TrimSpace(q.Text)
	author := strings.TrimSpace(q.Author)
	if author == "" {
		return text
	}
	return text + "\n- " + author
}

// TextRequest is a system instruction plus user content for a text model.
type TextRequest struct {
	SystemInstruction string
	Content           string
}

// BuildGreeting assembles the greeting request. In quote mode quoteText must be
// the formatted selected quote; it becomes the main message verbatim.
func BuildGreeting(form Form, quoteText string, now time.Time) TextRequest {
	form = form.Normalize()
	quoteMode := form.Mode == ModeQuote && strings.TrimSpace(quoteText) != ""

	var content string
	if quoteMode {
		content = fmt.Sprintf("선택된 명언: \"%s\". 이 명언에 어울리는 비주얼 테마와 대안 문구를 생성하세요.", quoteText)
	} else {
		content = fmt.Sprintf("작성자: %s, 대상: %s, 상황: %s, 스타일: %s. 추가요청: %s",
			form.Sender,
			nameOf(targets, form.Target),
			nameOf(situations, form.Situation),
			nameOf(messageStyles, form.Style),
			form.Requirement,
		)
	}

	mainRule := "3-5줄의 세련된 비즈니스 인사말."
	if quoteMode {
		mainRule = fmt.Sprintf("\"%s\"를 그대로 사용하세요.", quoteText)
	}

	var b strings.Builder
	b.WriteString("당신은 대한민국 최고의 리더십 메시지 전문가이자 20년차 베테랑 카피라이터입니다.\n\n")
	b.WriteString(fmt.Sprintf("- 현재 날짜(%s)와 절기를 반영한 시적이고 전문적인 문장을 작성하세요.\n", now.Format(dateLayout)))
	b.WriteString("- mainMessage: " + mainRule + "\n")
	b.WriteString("- alternativeMessage: 다른 느낌의 대안 문구.\n")
	b.WriteString("- bgTheme: 이 문구의 영혼을 시각화할 수 있는 구체적인 이미지 키워드 (영어 위주). 자연 테마일 경우 상황(일출, 일몰)과 계절감을 명시하세요.\n")
	b.WriteString("- recommendedSeason: 디자인 가이드.\n\n")
	b.WriteString("JSON으로 응답하세요.")

	return TextRequest{SystemInstruction: b.String(), Content: content}
}

// BuildQuotes asks for QuoteCount sayings on a theme.
func BuildQuotes(theme string) TextRequest {
	name := nameOf(quoteThemes, theme)
	return TextRequest{
		SystemInstruction: fmt.Sprintf("당신은 세계적인 인문학자이자 디자이너입니다. 요청한 주제에 대해 가장 강력한 울림을 주는 명언 %d개를 명언자와 함께 JSON 배열로 응답하세요. 명언자는 한국어로 적절히 번역하세요.", QuoteCount),
		Content:           fmt.Sprintf("주제: %s. 가장 유명하고 깊이 있는 명언 %d개와 그 명언자를 추출하세요.", name, QuoteCount),
	}
}

// ImageRequest carries everything the background image prompt needs.
type ImageRequest struct {
	Theme             string
	Style             string
	DesignRequirement string
	HasReference      bool
	ImageType         string // catalog key
	StylePreset       string // catalog key
	Refinement        string // only set for refinement requests
	MessageContext    string
}

func BuildImagePrompt(req ImageRequest) string {
	imageType := nameOf(imageTypes, req.ImageType)
	preset := nameOf(stylePresets, req.StylePreset)
	if strings.TrimSpace(preset) == "" {
		preset = "Cinematic Masterpiece"
	}
	style := req.Style
	if style == "" {
		style = ImageStyle
	}

	var b strings.Builder
	b.Grow(2048)

	b.WriteString("AS A MASTER DESIGNER WITH 20 YEARS OF EXPERIENCE:\n\n")

	// The nature rules go out for every image type, conditioned on the selection.
	b.WriteString("1. IMAGE TYPE ANALYSIS: The user has selected \"" + imageType + "\".\n")
	for _, line := range []string{
		"IF \"" + imageType + "\" IS \"Nature\": YOU MUST GENERATE A PURE WILDERNESS MASTERPIECE.",
		"ABSOLUTELY PROHIBITED: No buildings, no man-made roads, no street lamps, no fences, no modern structures.",
		"ELEMENTS TO USE: Epic mountains, vast oceans, ancient forests, mist, sun rays, and majestic skies.",
	} {
		b.WriteString("- " + line + "\n")
	}
	b.WriteString("\n")

	b.WriteString("2. REFERENCE SUBJECT SYNTHESIS:\n")
	if req.HasReference {
		for _, line := range []string{
			"ANALYZE the reference image's main subject (e.g., a horse, a bird, a figure).",
			"EXTRACT the silhouette and heroic essence of that subject.",
			"REIMAGINE the subject in a grand, cinematic nature setting.",
			"EXAMPLE: If a horse is present, show it rearing up heroically on a misty mountain ridge at sunrise.",
			"MATCH THE COMPOSITION: Use the same dynamic angle and focal points from the reference.",
		} {
			b.WriteString("- " + line + "\n")
		}
	} else {
		b.WriteString("- Create a grand, symbolic landscape that matches the message context.\n")
	}
	b.WriteString("\n")

	b.WriteString("3. STYLE & LIGHTING:\n")
	b.WriteString("- Rendering: " + style + ".\n")
	b.WriteString("- Style: " + preset + ".\n")
	b.WriteString("- Theme: " + strings.TrimSpace(req.Theme) + ".\n")
	b.WriteString("- Visual Direction: " + strings.TrimSpace(req.DesignRequirement) + ".\n")
	b.WriteString("- Context: " + strings.TrimSpace(req.MessageContext) + ".\n")
	b.WriteString("- Lighting: Use \"God Rays\", \"Golden Hour\", or \"Dramatic Backlighting\" to create a signature presence.\n\n")

	b.WriteString("4. FINAL QUALITY:\n")
	for _, line := range []string{
		"Pristine, text-free, professional high-end background.",
		"High contrast and deep emotional resonance.",
		"Balanced negative space for typography.",
	} {
		b.WriteString("- " + line + "\n")
	}

	if refinement := strings.TrimSpace(req.Refinement); refinement != "" {
		b.WriteString("\nArtist's refinement feedback: " + refinement + ".\n")
	}

	return strings.TrimSpace(b.String())
}

// VideoRequest carries everything the background video prompt needs.
type VideoRequest struct {
	Theme          string
	Context        string
	HasReference   bool
	DesignGuidance string
}

// VideoTheme prefixes the theme for nature backgrounds.
func VideoTheme(imageType, bgTheme string) string {
	if o, ok := lookup(imageTypes, imageType); ok && o.Key == "nature" {
		return wildernessPrefix + bgTheme
	}
	return bgTheme
}

func BuildVideoPrompt(req VideoRequest) string {
	var b strings.Builder
	b.Grow(1024)

	b.WriteString("20-YEAR VETERAN DESIGNER - CINEMATIC VIDEO DIRECTION:\n\n")
	b.WriteString("- THEME: " + strings.TrimSpace(req.Theme) + ".\n")
	b.WriteString("- CONTEXT: \"" + strings.TrimSpace(req.Context) + "\".\n")
	b.WriteString("- TYPE: Pure Nature (if Nature is selected, strictly avoid buildings and man-made structures).\n")
	if guidance := strings.TrimSpace(req.DesignGuidance); guidance != "" {
		b.WriteString("- VISUAL DIRECTION: " + guidance + ".\n")
	}
	b.WriteString("\n")

	if req.HasReference {
		writeSection(&b, "Reference", []string{
			"SUBJECT ANALYSIS: Identify the hero object/creature in the reference.",
			"DYNAMIC EVOLUTION: Bring the reference to life. If it's a horse, animate it rearing up against a sunrise.",
			"COMPOSITION: Keep the same powerful camera angle and framing.",
		})
	} else {
		b.WriteString("- Create an epic, moving nature landscape.\n")
	}
	b.WriteString("\n")

	b.WriteString("- MOTION: Slow, elegant, and majestic camera movements.\n")
	b.WriteString("- LIGHTING: Ethereal and transitioning with the season/time of day.\n")
	b.WriteString("- NO TEXT, NO PEOPLE, NO MODERN ARTIFACTS.\n")

	return strings.TrimSpace(b.String())
}

// ProgressMessage is the status line shown while a visual is generated.
func ProgressMessage(video, hasReference bool) string {
	switch {
	case !video && hasReference:
		return "20년 베테랑 디자이너가 레퍼런스의 피사체를 분석하여 웅장한 대자연을 생성 중입니다..."
	case !video:
		return "베테랑 디자이너가 최적의 배경을 생성 중입니다..."
	case hasReference:
		return "이미지의 영웅적 움직임을 감지하여 시네마틱 무브먼트를 부여하고 있습니다..."
	default:
		return "AI가 웅장한 시네마틱 영상을 렌더링 중입니다. 약 1분 정도 소요됩니다."
	}
}

func writeSection(b *strings.Builder, title string, lines []string) {
	if len(lines) == 0 {
		return
	}
	b.WriteString("- " + title + ":\n")
	for _, line := range lines {
		b.WriteString("  - " + line + "\n")
	}
}
