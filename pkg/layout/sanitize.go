package layout

import (
	"html"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	textPolicyOnce sync.Once
	textPolicy     *bluemonday.Policy
)

// sanitizePasses bounds the fixpoint loop in SanitizeText.
const sanitizePasses = 4

// SanitizeText strips any markup from admin-entered text and returns plain
// text. Entities are decoded before stripping so escaped markup is removed
// too, and the result is stable: sanitising it again returns it unchanged.
// Whitespace is preserved so sanitising clean text is the identity.
func SanitizeText(raw string) string {
	out := raw
	for i := 0; i < sanitizePasses && out != ""; i++ {
		next := html.UnescapeString(textSanitizer().Sanitize(html.UnescapeString(out)))
		if next == out {
			break
		}
		out = next
	}
	return out
}

// Sanitize applies SanitizeText to every title, label and user property in
// the tree, in place.
func (f *Form) Sanitize() {
	if f == nil {
		return
	}
	f.Name = SanitizeText(f.Name)
	for _, step := range f.Steps {
		step.Title = SanitizeText(step.Title)
		for _, section := range step.Sections {
			section.Title = SanitizeText(section.Title)
			for _, field := range section.Fields {
				field.Label = SanitizeText(field.Label)
				field.UserProperty = SanitizeText(field.UserProperty)
			}
		}
	}
}

func textSanitizer() *bluemonday.Policy {
	textPolicyOnce.Do(func() {
		textPolicy = bluemonday.StrictPolicy()
	})
	return textPolicy
}
