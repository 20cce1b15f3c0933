package layouts

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ayush/layout-library/backend/internal/models"
)

func TestFilterFor(t *testing.T) {
	tests := []struct {
		in   string
		want models.LayoutFilter
	}{
		{"", models.LayoutFilter{}},
		{"All", models.LayoutFilter{}},
		{"Archive", models.LayoutFilter{Archived: true}},
		{"Web", models.LayoutFilter{Type: "Web"}},
		{"all", models.LayoutFilter{Type: "all"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FilterFor(tt.in), "type=%q", tt.in)
	}
}

func TestTechStack(t *testing.T) {
	form := url.Values{
		"techStack":   {"React", " ", "Go "},
		"techStack[]": {"Tailwind"},
	}
	assert.Equal(t, []string{"React", "Go", "Tailwind"}, TechStack(form))
	assert.Empty(t, TechStack(url.Values{}))
}
