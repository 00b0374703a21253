package scraper

import "strings"

// Placeholder tokens recognised in query and sub-query templates.
const (
	NichePlaceholder = "{{niche}}"
	QueryPlaceholder = "{{query}}"
)

// ResolveQuery replaces every {{niche}} in template with nicheName.
func ResolveQuery(template, nicheName string) string {
	return strings.ReplaceAll(template, NichePlaceholder, nicheName)
}

// ResolveSubQuery replaces every {{query}} in template with the already
// resolved parent query text.
func ResolveSubQuery(template, parentResolved string) string {
	return strings.ReplaceAll(template, QueryPlaceholder, parentResolved)
}
