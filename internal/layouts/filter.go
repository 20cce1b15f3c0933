package layouts

import (
	"net/url"
	"strings"

	"github.com/ayush/layout-library/backend/internal/models"
)

// Listing filter names with special meaning.
const (
	TypeAll     = "All"
	TypeArchive = "Archive"
)

// FilterFor maps the ?type= query value to a store filter: no value or
// "All" lists live layouts, "Archive" lists archived ones, anything else
// lists live layouts of that type.
func FilterFor(typ string) models.LayoutFilter {
	switch typ {
	case "", TypeAll:
		return models.LayoutFilter{Archived: false}
	case TypeArchive:
		return models.LayoutFilter{Archived: true}
	default:
		return models.LayoutFilter{Type: typ, Archived: false}
	}
}

// TechStack collects the techStack field, which may be sent once, repeated,
// or in bracket form.
func TechStack(form url.Values) []string {
	values := append(append([]string{}, form["techStack"]...), form["techStack[]"]...)
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// formFields reads the descriptive layout fields from a form.
func formFields(form url.Values) models.LayoutForm {
	return models.LayoutForm{
		Title:       form.Get("title"),
		Type:        form.Get("type"),
		Description: form.Get("description"),
		Category:    form.Get("category"),
		TechStack:   TechStack(form),
	}
}
