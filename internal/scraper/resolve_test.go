package scraper

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveQuery(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		template string
		niche    string
		want     string
	}{
		{name: "single placeholder", template: "best {{niche}}", niche: "fintech", want: "best fintech"},
		{name: "no placeholder", template: "crm software", niche: "fintech", want: "crm software"},
		{name: "multiple occurrences", template: "{{niche}} vs {{niche}}", niche: "saas", want: "saas vs saas"},
		{name: "embedded in word", template: "top{{niche}}startups", niche: "ai", want: "topaistartups"},
		{name: "query token untouched", template: "{{query}} {{niche}}", niche: "x", want: "{{query}} x"},
		{name: "malformed token untouched", template: "{{ niche }}", niche: "x", want: "{{ niche }}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, ResolveQuery(tt.template, tt.niche))
		})
	}
}

func TestResolveSubQuery(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		template string
		parent   string
		want     string
	}{
		{name: "suffix", template: "{{query}} tools 2024", parent: "best fintech", want: "best fintech tools 2024"},
		{name: "no placeholder", template: "standalone", parent: "best fintech", want: "standalone"},
		{name: "multiple occurrences", template: "{{query}} or {{query}}", parent: "a", want: "a or a"},
		{name: "niche token not re-resolved", template: "{{query}} {{niche}}", parent: "p", want: "p {{niche}}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, ResolveSubQuery(tt.template, tt.parent))
		})
	}
}
