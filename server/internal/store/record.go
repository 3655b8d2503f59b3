package store

import (
	"fmt"
	"strings"
)

// Separator joins the three fields of a stored line.
const Separator = " / "

// Record is one generated QR code: the site name, its target URL and the
// file name of the rendered image.
type Record struct {
	Key      string `json:"key"`
	URL      string `json:"url"`
	Artifact string `json:"artifact"`
}

// String renders r as a store line without the trailing newline.
func (r Record) String() string {
	return r.Key + Separator + r.URL + Separator + r.Artifact
}

// Validate checks that every field can be written and parsed back unchanged.
func (r Record) Validate() error {
	if err := validateField("key", r.Key); err != nil {
		return err
	}
	if err := validateField("url", r.URL); err != nil {
		return err
	}
	return validateField("artifact", r.Artifact)
}

func validateField(name, v string) error {
	switch {
	case strings.TrimSpace(v) == "":
		return fmt.Errorf("%w: %s is empty", ErrValidation, name)
	case strings.ContainsAny(v, "\r\n"):
		return fmt.Errorf("%w: %s contains a line break", ErrValidation, name)
	case strings.TrimSpace(v) != v:
		return fmt.Errorf("%w: %s has leading or trailing whitespace", ErrValidation, name)
	case strings.Contains(v, Separator):
		return fmt.Errorf("%w: %s contains the separator %q", ErrValidation, name, Separator)
	case strings.HasPrefix(v, "/ "), strings.HasSuffix(v, " /"):
		// Either form fuses with the padding around an adjacent separator.
		return fmt.Errorf("%w: %s would be ambiguous next to the separator", ErrValidation, name)
	}
	return nil
}

// parseLine splits a non-blank line into a Record.
func parseLine(line string) (Record, bool) {
	parts := strings.Split(line, Separator)
	if len(parts) != 3 {
		return Record{}, false
	}
	return Record{Key: parts[0], URL: parts[1], Artifact: parts[2]}, true
}

// keyOf returns the key segment of a line: everything before the first separator.
func keyOf(line string) string {
	if i := strings.Index(line, Separator); i >= 0 {
		return line[:i]
	}
	return line
}

// splitLines breaks content into lines, dropping blank ones and any trailing
// carriage return left by editors on Windows.
func splitLines(content string) []line {
	raw := strings.Split(content, "\n")
	out := make([]line, 0, len(raw))
	for i, l := range raw {
		l = strings.TrimSuffix(l, "\r")
		if strings.TrimSpace(l) == "" {
			continue
		}
		out = append(out, line{no: i + 1, text: l})
	}
	return out
}

type line struct {
	no   int
	text string
}
