package schemapatch

import (
	"encoding/json"
	"fmt"
	"strings"

	jsonpatch "github.com/evanphx/json-patch"
	"github.com/go-openapi/jsonpointer"
)

// Operation is one RFC 6902 operation.
type Operation struct {
	Op    string `json:"op"`
	Path  string `json:"path"`
	Value any    `json:"value,omitempty"`
}

// MarshalJSON always writes the value of add and replace, even when null.
func (o Operation) MarshalJSON() ([]byte, error) {
	if o.Op == "remove" {
		return json.Marshal(struct {
			Op   string `json:"op"`
			Path string `json:"path"`
		}{o.Op, o.Path})
	}
	return json.Marshal(struct {
		Op    string `json:"op"`
		Path  string `json:"path"`
		Value any    `json:"value"`
	}{o.Op, o.Path, o.Value})
}

// Pointer renders a target as an RFC 6901 JSON Pointer.
func Pointer(target []string) string {
	var b strings.Builder
	for _, seg := range target {
		b.WriteByte('/')
		b.WriteString(jsonpointer.Escape(seg))
	}
	return b.String()
}

// Operations converts the changes of p to RFC 6902 form: add stays add,
// modify becomes replace and remove stays remove. RFC 6902 remove fails on a
// missing member, unlike ChangeOp remove, so consumers replaying the result
// must only do so against documents where the member exists.
func (p Patch) Operations() []Operation {
	ops := make([]Operation, 0, len(p.Changes))
	for _, c := range p.Changes {
		op := Operation{Path: Pointer(c.Target)}
		switch c.Action {
		case Add:
			op.Op = "add"
			op.Value = c.Value
		case Modify:
			op.Op = "replace"
			op.Value = c.Value
		case Remove:
			op.Op = "remove"
		}
		ops = append(ops, op)
	}
	return ops
}

// JSONPatch encodes the operations of the given patches, in order, as an
// RFC 6902 document and checks that it decodes as one.
func JSONPatch(patches ...Patch) ([]byte, jsonpatch.Patch, error) {
	var ops []Operation
	for _, p := range patches {
		ops = append(ops, p.Operations()...)
	}
	if ops == nil {
		ops = []Operation{}
	}
	data, err := json.Marshal(ops)
	if err != nil {
		return nil, nil, fmt.Errorf("error encoding json patch: %w", err)
	}
	decoded, err := jsonpatch.DecodePatch(data)
	if err != nil {
		return nil, nil, fmt.Errorf("generated json patch is invalid: %w", err)
	}
	return data, decoded, nil
}
