package leads

import "strings"

// Name is a split person name. Empty fields are absent.
type Name struct {
	First string
	Last  string
}

// SplitName uses the first whitespace separated token as the first name and
// the remaining tokens, single-space joined, as the last name.
func SplitName(full string) Name {
	parts := strings.Fields(full)
	switch len(parts) {
	case 0:
		return Name{}
	case 1:
		return Name{First: parts[0]}
	default:
		return Name{First: parts[0], Last: strings.Join(parts[1:], " ")}
	}
}
