// Package slug builds the project-name-slug object-path component shared
// by the dataset, training, and evaluation agents (spec.md §6's
// raw/<slug>.<ext>, models/<slug>_model.pth, bundles/<slug>.zip paths).
package slug

import "strings"

// Slugify lowercases name and collapses any run of non-alphanumeric
// characters into a single hyphen, trimming leading/trailing hyphens.
func Slugify(name string) string {
	lower := strings.ToLower(strings.TrimSpace(name))
	var b strings.Builder
	lastDash := false
	for _, r := range lower {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash && b.Len() > 0 {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	s := strings.TrimRight(b.String(), "-")
	if s == "" {
		return "project"
	}
	return s
}
