package vocabulary

import (
	"errors"
	"strings"
)

// Line parsing errors.
var (
	ErrEmptyLine     = errors.New("empty line")
	ErrNoSeparator   = errors.New("no separator found")
	ErrEmptyWordPart = errors.New("empty source or target")
)

var dashes = strings.NewReplacer("–", "-", "—", "-")

// ParseWordLine splits a line into source and target text. The separator is a
// dash (hyphen, en dash or em dash) or a colon. A dash with spaces around it
// wins over a bare one, so hyphenated phrases like "well-known - mashhur"
// keep their hyphen.
func ParseWordLine(line string) (source, target string, err error) {
	if strings.TrimSpace(line) == "" {
		return "", "", ErrEmptyLine
	}
	normalized := dashes.Replace(line)

	var ok bool
	switch {
	case strings.Contains(normalized, " - "):
		source, target, ok = strings.Cut(normalized, " - ")
	case strings.Contains(normalized, "-"):
		source, target, ok = strings.Cut(normalized, "-")
	default:
		source, target, ok = strings.Cut(normalized, ":")
	}
	if !ok {
		return "", "", ErrNoSeparator
	}

	source = strings.TrimSpace(source)
	target = strings.TrimSpace(target)
	if source == "" || target == "" {
		return "", "", ErrEmptyWordPart
	}
	return source, target, nil
}
