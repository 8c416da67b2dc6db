package prompt

import "strings"

// NamedOption is a catalog entry: a stable ASCII key plus the label shown to users.
type NamedOption struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

type FontOption struct {
	Category string `json:"category"`
	Name     string `json:"name"`
	Value    string `json:"value"` // CSS font-family
}

var situations = []NamedOption{
	{Key: "auto", Name: "자동 추천(절기 반영)"},
	{Key: "general", Name: "일반 인사"},
	{Key: "achievement", Name: "목표 달성"},
	{Key: "team", Name: "팀 격려"},
	{Key: "thanks", Name: "감사 인사"},
	{Key: "month_start", Name: "월초 인사"},
	{Key: "month_end", Name: "월말 결산"},
	{Key: "year_end", Name: "연말연시"},
	{Key: "holiday", Name: "명절"},
	{Key: "season", Name: "계절 인사"},
}

var targets = []NamedOption{
	{Key: "partner", Name: "비즈니스 파트너"},
	{Key: "sponsor", Name: "스폰서"},
	{Key: "line", Name: "형제라인"},
	{Key: "customer", Name: "고객"},
	{Key: "colleague", Name: "업무상 관련인"},
}

var messageStyles = []NamedOption{
	{Key: "energy", Name: "에너지"},
	{Key: "emotional", Name: "감성"},
	{Key: "powerful", Name: "강력"},
	{Key: "warm", Name: "따뜻함"},
	{Key: "simple", Name: "심플"},
}

var quoteThemes = []NamedOption{
	{Key: "leadership", Name: "리더십"},
	{Key: "courage", Name: "용기"},
	{Key: "action", Name: "행동"},
	{Key: "comfort", Name: "위로"},
	{Key: "gratitude", Name: "감사"},
	{Key: "resolve", Name: "결단"},
}

var imageTypes = []NamedOption{
	{Key: "nature", Name: "자연"},
	{Key: "space", Name: "우주"},
	{Key: "object", Name: "사물"},
	{Key: "person", Name: "인물"},
	{Key: "building", Name: "건물"},
}

var stylePresets = []NamedOption{
	{Key: "cinematic", Name: "시네마틱"},
	{Key: "realistic", Name: "리얼"},
	{Key: "animation", Name: "애니메이션"},
	{Key: "fantasy", Name: "판타지"},
	{Key: "korean_painting", Name: "한국화"},
	{Key: "western_painting", Name: "서양화"},
	{Key: "pop_art", Name: "팝업"},
	{Key: "poster", Name: "포스터"},
}

var koreanFonts = []FontOption{
	{Category: "현대적 고딕(Sans)", Name: "프리텐다드", Value: "'Noto Sans KR', sans-serif"},
	{Category: "현대적 고딕(Sans)", Name: "고운돋움", Value: "'Gowun Dodum', sans-serif"},
	{Category: "현대적 고딕(Sans)", Name: "도현체", Value: "'Do Hyeon', sans-serif"},
	{Category: "우아한 명조(Serif)", Name: "함렛", Value: "'Hahmlet', serif"},
	{Category: "우아한 명조(Serif)", Name: "나눔명조", Value: "'Nanum Myeongjo', serif"},
	{Category: "우아한 명조(Serif)", Name: "송명체", Value: "'Song Myung', serif"},
	{Category: "캘리그라피(Calli)", Name: "동해독도", Value: "'East Sea Dokdo', cursive"},
	{Category: "캘리그라피(Calli)", Name: "나눔붓글씨", Value: "'Nanum Brush Script', cursive"},
	{Category: "캘리그라피(Calli)", Name: "연성체", Value: "'Yeon Sung', cursive"},
	{Category: "디스플레이(Display)", Name: "블랙한산스", Value: "'Black Han Sans', sans-serif"},
	{Category: "디스플레이(Display)", Name: "해바라기", Value: "'Sunflower', sans-serif"},
	{Category: "디스플레이(Display)", Name: "주아체", Value: "'Jua', sans-serif"},
	{Category: "디스플레이(Display)", Name: "베이글팻", Value: "'Bagel Fat One', system-ui"},
	{Category: "손글씨(Hand)", Name: "나눔펜", Value: "'Nanum Pen Script', cursive"},
	{Category: "손글씨(Hand)", Name: "가구체", Value: "'Gaegu', cursive"},
}

var englishFonts = []FontOption{
	{Category: "Luxury", Name: "Cinzel", Value: "'Cinzel', serif"},
	{Category: "Luxury", Name: "Playfair Display", Value: "'Playfair Display', serif"},
	{Category: "Luxury", Name: "Vidaloka", Value: "'Vidaloka', serif"},
	{Category: "Cursive", Name: "Sacramento", Value: "'Sacramento', cursive"},
	{Category: "Cursive", Name: "Marck Script", Value: "'Marck Script', cursive"},
	{Category: "Modern", Name: "Montserrat", Value: "'Montserrat', sans-serif"},
	{Category: "Artistic", Name: "Abril Fatface", Value: "'Abril Fatface', serif"},
}

func Situations() []NamedOption    { return cloneOptions(situations) }
func Targets() []NamedOption       { return cloneOptions(targets) }
func MessageStyles() []NamedOption { return cloneOptions(messageStyles) }
func QuoteThemes() []NamedOption   { return cloneOptions(quoteThemes) }
func ImageTypes() []NamedOption    { return cloneOptions(imageTypes) }
func StylePresets() []NamedOption  { return cloneOptions(stylePresets) }

// Fonts returns the Korean fonts first, then the English ones.
func Fonts() []FontOption {
	out := make([]FontOption, 0, len(koreanFonts)+len(englishFonts))
	out = append(out, koreanFonts...)
	return append(out, englishFonts...)
}

// DefaultFont is the first Korean font.
func DefaultFont() string { return koreanFonts[0].Value }

// LookupFont accepts a display name or a CSS value.
func LookupFont(value string) (FontOption, bool) {
	value = strings.TrimSpace(value)
	for _, f := range Fonts() {
		if strings.EqualFold(f.Name, value) || f.Value == value {
			return f, true
		}
	}
	return FontOption{}, false
}

// lookup accepts either the key or the Korean name.
func lookup(list []NamedOption, value string) (NamedOption, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return NamedOption{}, false
	}
	for _, o := range list {
		if strings.EqualFold(o.Key, value) || o.Name == value {
			return o, true
		}
	}
	return NamedOption{}, false
}

func nameOf(list []NamedOption, key string) string {
	if o, ok := lookup(list, key); ok {
		return o.Name
	}
	return key
}

func cloneOptions(in []NamedOption) []NamedOption {
	return append([]NamedOption(nil), in...)
}
