package schema

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/go-openapi/jsonpointer"
)

const refKey = "$ref"

// Ref is a local "$ref" found in a document.
type Ref struct {
	// At is the property path of the object holding the "$ref".
	At []string
	// Pointer is the raw reference value, e.g. "#/definitions/event".
	Pointer string
}

// RefError lists references that do not resolve inside their document.
type RefError struct {
	Dangling []Ref
}

func (e *RefError) Error() string {
	parts := make([]string, 0, len(e.Dangling))
	for _, r := range e.Dangling {
		parts = append(parts, fmt.Sprintf("%s at /%s", r.Pointer, strings.Join(r.At, "/")))
	}
	return fmt.Sprintf("%d unresolved $ref(s): %s", len(e.Dangling), strings.Join(parts, ", "))
}

// Refs collects every string-valued "$ref" in n in a stable order.
func Refs(n Node) []Ref {
	var out []Ref
	collectRefs(n, nil, &out)
	return out
}

func collectRefs(v any, at []string, out *[]Ref) {
	switch t := v.(type) {
	case map[string]any:
		if p, ok := t[refKey].(string); ok {
			*out = append(*out, Ref{At: append([]string(nil), at...), Pointer: p})
		}
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			collectRefs(t[k], append(at, k), out)
		}
	case []any:
		for i, c := range t {
			collectRefs(c, append(at, strconv.Itoa(i)), out)
		}
	}
}

// ParsePointer decodes a local reference ("#/a/b~1c") into unescaped tokens.
// The fragment may be URL-escaped ("#/a%20b"). Only fragment-local JSON
// Pointers are supported.
func ParsePointer(ref string) ([]string, error) {
	p, err := localPointer(ref)
	if err != nil {
		return nil, err
	}
	return p.DecodedTokens(), nil
}

func localPointer(ref string) (jsonpointer.Pointer, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return jsonpointer.Pointer{}, fmt.Errorf("reference %q is not a valid URI: %w", ref, err)
	}
	if !strings.HasPrefix(ref, "#") || u.Scheme != "" || u.Host != "" || u.Path != "" {
		return jsonpointer.Pointer{}, fmt.Errorf("reference %q is not document-local", ref)
	}
	p, err := jsonpointer.New(u.Fragment)
	if err != nil {
		return jsonpointer.Pointer{}, fmt.Errorf("reference %q is not a JSON Pointer: %w", ref, err)
	}
	return p, nil
}

// CheckRefs verifies that every "$ref" in n points at an existing path of n.
// Array indices in pointers are honoured.
func CheckRefs(n Node) error {
	var dangling []Ref
	for _, r := range Refs(n) {
		p, err := localPointer(r.Pointer)
		if err == nil {
			_, _, err = p.Get(n)
		}
		if err != nil {
			dangling = append(dangling, r)
		}
	}
	if len(dangling) > 0 {
		return &RefError{Dangling: dangling}
	}
	return nil
}
