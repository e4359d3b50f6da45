package version

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	minComponents = 2
	maxComponents = 4
)

// InvalidVersionError reports a version string that is not a dotted numeric
// tag with 2 to 4 components.
type InvalidVersionError struct {
	Input  string
	Reason string
}

func (e *InvalidVersionError) Error() string {
	return fmt.Sprintf("invalid version %q: %s", e.Input, e.Reason)
}

// Tag is a game version such as 1.21.80. The zero value is not a valid tag.
type Tag struct {
	parts [maxComponents]int
	n     int
}

// Parse parses a dotted numeric version. Leading zeros are rejected except
// for a bare "0".
func Parse(s string) (Tag, error) {
	var t Tag
	fields := strings.Split(s, ".")
	if len(fields) < minComponents || len(fields) > maxComponents {
		return t, &InvalidVersionError{Input: s, Reason: fmt.Sprintf("expected %d to %d components, got %d", minComponents, maxComponents, len(fields))}
	}
	for i, f := range fields {
		if f == "" {
			return t, &InvalidVersionError{Input: s, Reason: fmt.Sprintf("component %d is empty", i)}
		}
		for _, r := range f {
			if r < '0' || r > '9' {
				return t, &InvalidVersionError{Input: s, Reason: fmt.Sprintf("component %q is not numeric", f)}
			}
		}
		if len(f) > 1 && f[0] == '0' {
			return t, &InvalidVersionError{Input: s, Reason: fmt.Sprintf("component %q has a leading zero", f)}
		}
		v, err := strconv.Atoi(f)
		if err != nil {
			return t, &InvalidVersionError{Input: s, Reason: fmt.Sprintf("component %q out of range", f)}
		}
		t.parts[i] = v
	}
	t.n = len(fields)
	return t, nil
}

// MustParse is like Parse but panics on error. Intended for constants and tests.
func MustParse(s string) Tag {
	t, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return t
}

// IsZero reports whether t was never parsed.
func (t Tag) IsZero() bool {
	return t.n == 0
}

// Compare returns -1, 0 or +1. Missing components count as zero, so 1.21
// and 1.21.0 are equal.
func (t Tag) Compare(o Tag) int {
	for i := 0; i < maxComponents; i++ {
		switch {
		case t.parts[i] < o.parts[i]:
			return -1
		case t.parts[i] > o.parts[i]:
			return 1
		}
	}
	return 0
}

func (t Tag) Less(o Tag) bool { return t.Compare(o) < 0 }

func (t Tag) Equal(o Tag) bool { return t.Compare(o) == 0 }

// String formats the tag with the number of components it was parsed with.
func (t Tag) String() string {
	if t.n == 0 {
		return ""
	}
	var b strings.Builder
	for i := 0; i < t.n; i++ {
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(strconv.Itoa(t.parts[i]))
	}
	return b.String()
}

func (t Tag) MarshalText() ([]byte, error) {
	if t.n == 0 {
		return nil, fmt.Errorf("cannot marshal zero version")
	}
	return []byte(t.String()), nil
}

func (t *Tag) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
