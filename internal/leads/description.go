package leads

import "strings"

const blockDivider = "----------"

// description assembles LEAD_DESCRIPTION: titled blocks, then one-line facts,
// then a provenance line. Blank entries are skipped.
type description struct {
	blocks []string
	facts  []string
}

func (d *description) block(title, body string) {
	body = strings.TrimSpace(body)
	if body == "" {
		return
	}
	d.blocks = append(d.blocks, title+"\n"+blockDivider+"\n"+body)
}

func (d *description) fact(label, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	d.facts = append(d.facts, label+": "+value)
}

func (d *description) build(provenance string) string {
	parts := make([]string, 0, len(d.blocks)+len(d.facts)+1)
	parts = append(parts, d.blocks...)
	parts = append(parts, d.facts...)
	parts = append(parts, provenance)
	return strings.Join(parts, "\n")
}
