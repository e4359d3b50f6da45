// Package resolver computes the effective schema for a game version by
// replaying versioned patches over a baseline document.
//
// Resolution is a pure fold: the baseline is deep-cloned, the patches whose
// version is at or below the target are stably sorted by version, and every
// change is applied in order to the clone. A failed resolution returns no tree.
package resolver

import (
	"fmt"
	"sort"

	"gihan9a/entityschema/internal/schema"
	"gihan9a/entityschema/pkg/schemapatch"
	"gihan9a/entityschema/pkg/version"
)

// PatchInconsistencyError reports a change whose target cannot be reached in
// the tree built so far.
type PatchInconsistencyError struct {
	Version version.Tag
	Source  string
	Index   int
	Action  schemapatch.Action
	Target  []string
	Reason  string
}

func (e *PatchInconsistencyError) Error() string {
	src := ""
	if e.Source != "" {
		src = " (" + e.Source + ")"
	}
	return fmt.Sprintf("patch %s%s change %d: %s %s: %s",
		e.Version, src, e.Index, e.Action, schemapatch.Pointer(e.Target), e.Reason)
}

// Select returns the patches whose version is <= target, stably sorted by
// version. The input slice is not reordered.
func Select(patches []schemapatch.Patch, target version.Tag) []schemapatch.Patch {
	out := make([]schemapatch.Patch, 0, len(patches))
	for _, p := range patches {
		if p.Version.Compare(target) <= 0 {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Version.Less(out[j].Version)
	})
	return out
}

// Resolve returns the effective schema at target. baseline and patches are
// only read.
func Resolve(baseline schema.Node, patches []schemapatch.Patch, target version.Tag) (schema.Node, error) {
	if baseline == nil {
		return nil, fmt.Errorf("baseline document is nil")
	}
	if target.IsZero() {
		return nil, &version.InvalidVersionError{Reason: "empty target version"}
	}
	return Apply(schema.Clone(baseline), Select(patches, target))
}

// ResolveString parses target before touching any tree.
func ResolveString(baseline schema.Node, patches []schemapatch.Patch, target string) (schema.Node, error) {
	tag, err := version.Parse(target)
	if err != nil {
		return nil, err
	}
	return Resolve(baseline, patches, tag)
}

// Apply applies patches to doc in the given order, mutating doc. On error doc
// is left partially patched and must be discarded.
func Apply(doc schema.Node, patches []schemapatch.Patch) (schema.Node, error) {
	for _, p := range patches {
		for i, c := range p.Changes {
			if err := applyChange(doc, c); err != nil {
				err.Version = p.Version
				err.Source = p.Source
				err.Index = i
				return nil, err
			}
		}
	}
	return doc, nil
}

func applyChange(doc schema.Node, c schemapatch.ChangeOp) *PatchInconsistencyError {
	fail := func(format string, args ...any) *PatchInconsistencyError {
		return &PatchInconsistencyError{
			Action: c.Action,
			Target: c.Target,
			Reason: fmt.Sprintf(format, args...),
		}
	}

	if len(c.Target) == 0 {
		return fail("empty target")
	}
	parentPath, key := c.Target[:len(c.Target)-1], c.Target[len(c.Target)-1]

	parent, reason := parentOf(doc, parentPath)
	if parent == nil {
		return fail("%s", reason)
	}

	switch c.Action {
	case schemapatch.Add:
		parent[key] = schema.CloneValue(c.Value)
	case schemapatch.Modify:
		if _, ok := parent[key]; !ok {
			return fail("property %q does not exist", key)
		}
		parent[key] = schema.CloneValue(c.Value)
	case schemapatch.Remove:
		delete(parent, key)
	default:
		return fail("unknown action")
	}
	return nil
}

// parentOf descends path and returns the object found there, or a reason why
// it could not be reached.
func parentOf(doc schema.Node, path []string) (map[string]any, string) {
	cur := doc
	for i, key := range path {
		next, ok := cur[key]
		if !ok {
			return nil, fmt.Sprintf("parent %s does not exist", schemapatch.Pointer(path[:i+1]))
		}
		m, ok := next.(map[string]any)
		if !ok {
			return nil, fmt.Sprintf("parent %s is %s, not an object", schemapatch.Pointer(path[:i+1]), schema.Kind(next))
		}
		cur = m
	}
	return cur, ""
}
