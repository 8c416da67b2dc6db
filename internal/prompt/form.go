package prompt

import (
	"fmt"
	"strings"

	cerrors "signature-card-studio/internal/errors"
)

// Mode selects between a generated greeting and a card built around a quote.
type Mode string

const (
	ModeGreeting Mode = "greeting"
	ModeQuote    Mode = "quote"
)

// Form is everything the user picks before asking for content.
type Form struct {
	Mode              Mode   `json:"mode"`
	Situation         string `json:"situation"`
	Target            string `json:"target"`
	Style             string `json:"style"`
	QuoteTheme        string `json:"quote_theme"`
	ImageType         string `json:"image_type"`
	StylePreset       string `json:"style_preset"`
	Sender            string `json:"sender"`
	Requirement       string `json:"requirement"`
	DesignRequirement string `json:"design_requirement"`
	Refinement        string `json:"refinement"`
}

func DefaultForm() Form {
	return Form{
		Mode:        ModeGreeting,
		Situation:   situations[0].Key,
		Target:      targets[0].Key,
		Style:       "powerful",
		QuoteTheme:  quoteThemes[0].Key,
		ImageType:   imageTypes[0].Key,
		StylePreset: stylePresets[0].Key,
	}
}

// Validate rejects values outside the closed option sets. Empty fields are
// allowed; Normalize fills them with defaults.
func (f Form) Validate() error {
	switch f.Mode {
	case "", ModeGreeting, ModeQuote:
	default:
		return cerrors.NewInvalidRequest(fmt.Sprintf("unknown mode %q", f.Mode))
	}
	for _, field := range []struct {
		name  string
		list  []NamedOption
		value string
	}{
		{"situation", situations, f.Situation},
		{"target", targets, f.Target},
		{"style", messageStyles, f.Style},
		{"quote theme", quoteThemes, f.QuoteTheme},
		{"image type", imageTypes, f.ImageType},
		{"style preset", stylePresets, f.StylePreset},
	} {
		if strings.TrimSpace(field.value) == "" {
			continue
		}
		if _, ok := lookup(field.list, field.value); !ok {
			return cerrors.NewInvalidRequest(fmt.Sprintf("unknown %s %q", field.name, field.value))
		}
	}
	return nil
}

// Normalize maps names to keys and fills empty fields with defaults. Unknown
// values are left as they are; callers run Validate first.
func (f Form) Normalize() Form {
	def := DefaultForm()
	if f.Mode == "" {
		f.Mode = def.Mode
	}
	f.Situation = normalizeKey(situations, f.Situation, def.Situation)
	f.Target = normalizeKey(targets, f.Target, def.Target)
	f.Style = normalizeKey(messageStyles, f.Style, def.Style)
	f.QuoteTheme = normalizeKey(quoteThemes, f.QuoteTheme, def.QuoteTheme)
	f.ImageType = normalizeKey(imageTypes, f.ImageType, def.ImageType)
	f.StylePreset = normalizeKey(stylePresets, f.StylePreset, def.StylePreset)
	f.Sender = strings.TrimSpace(f.Sender)
	f.Requirement = strings.TrimSpace(f.Requirement)
	f.DesignRequirement = strings.TrimSpace(f.DesignRequirement)
	f.Refinement = strings.TrimSpace(f.Refinement)
	return f
}

func normalizeKey(list []NamedOption, value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	if o, ok := lookup(list, value); ok {
		return o.Key
	}
	return value
}

// ParseArgs reads free-form command arguments such as
// "quote theme=courage sender=홍길동 일출 배경". Catalog keys may be given bare;
// other bare words are appended to the requirement. A key=value pair with an
// unknown value is kept as given so Validate can reject it.
func ParseArgs(raw string, defaults Form) Form {
	form := defaults
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return form
	}

	var custom []string
	for _, orig := range strings.Fields(raw) {
		tok := strings.ToLower(strings.TrimSpace(orig))
		if tok == "" {
			continue
		}

		switch tok {
		case "quote", "명언":
			form.Mode = ModeQuote
			continue
		case "greeting", "인사말":
			form.Mode = ModeGreeting
			continue
		}

		if key, value, ok := strings.Cut(orig, "="); ok {
			value = strings.TrimSpace(value)
			if applyField(&form, strings.ToLower(strings.TrimSpace(key)), value) {
				continue
			}
		}

		if o, ok := lookup(situations, orig); ok {
			form.Situation = o.Key
			continue
		}
		if o, ok := lookup(targets, orig); ok {
			form.Target = o.Key
			continue
		}
		if o, ok := lookup(messageStyles, orig); ok {
			form.Style = o.Key
			continue
		}
		if o, ok := lookup(quoteThemes, orig); ok {
			form.QuoteTheme = o.Key
			continue
		}
		if o, ok := lookup(imageTypes, orig); ok {
			form.ImageType = o.Key
			continue
		}
		if o, ok := lookup(stylePresets, orig); ok {
			form.StylePreset = o.Key
			continue
		}

		custom = append(custom, orig)
	}

	if extra := strings.TrimSpace(strings.Join(custom, " ")); extra != "" {
		form.Requirement = extra
	}
	return form
}

func applyField(form *Form, key, value string) bool {
	var (
		list []NamedOption
		dst  *string
	)
	switch key {
	case "situation", "sit":
		list, dst = situations, &form.Situation
	case "target", "to":
		list, dst = targets, &form.Target
	case "style":
		list, dst = messageStyles, &form.Style
	case "theme", "quote":
		list, dst = quoteThemes, &form.QuoteTheme
	case "type", "image":
		list, dst = imageTypes, &form.ImageType
	case "preset", "art":
		list, dst = stylePresets, &form.StylePreset
	case "sender", "from":
		form.Sender = value
		return true
	case "design":
		form.DesignRequirement = value
		return true
	default:
		return false
	}
	if o, ok := lookup(list, value); ok {
		*dst = o.Key
	} else {
		*dst = value
	}
	return true
}
