package leads

import (
	"regexp"
	"strings"

	"inquiry-sync-workers/internal/common/insightly"
)

var (
	invalidTagChars = regexp.MustCompile(`[^A-Za-z0-9_-]`)
	underscoreRuns  = regexp.MustCompile(`_+`)
)

// SanitizeTag makes s a valid tag name: characters outside [A-Za-z0-9_-]
// become underscores, runs of underscores collapse, and edge underscores are
// trimmed.
func SanitizeTag(s string) string {
	s = invalidTagChars.ReplaceAllString(s, "_")
	s = underscoreRuns.ReplaceAllString(s, "_")
	return strings.Trim(s, "_")
}

// tagList collects sanitized, de-duplicated tags in insertion order.
type tagList struct {
	tags []insightly.Tag
	seen map[string]bool
}

func newTagList(base ...string) *tagList {
	tl := &tagList{seen: map[string]bool{}}
	for _, b := range base {
		tl.add(b)
	}
	return tl
}

func (tl *tagList) add(name string) {
	name = SanitizeTag(name)
	if name == "" || tl.seen[name] {
		return
	}
	tl.seen[name] = true
	tl.tags = append(tl.tags, insightly.Tag{Name: name})
}

func (tl *tagList) list() []insightly.Tag {
	return tl.tags
}
