// Package schemapatch defines versioned structural patches over a schema
// document and their serialized forms.
package schemapatch

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"gihan9a/entityschema/pkg/version"
)

// Action is the kind of edit a ChangeOp performs.
type Action string

const (
	Add    Action = "add"
	Remove Action = "remove"
	Modify Action = "modify"
)

func (a Action) Valid() bool {
	switch a {
	case Add, Remove, Modify:
		return true
	}
	return false
}

// ChangeOp is one edit addressed by a path of property names from the root.
type ChangeOp struct {
	Action Action   `json:"action" yaml:"action"`
	Target []string `json:"target" yaml:"target"`
	// Value is required for add and modify and ignored for remove.
	Value any `json:"value,omitempty" yaml:"value,omitempty"`
	// HasValue is set by decoding when the value key is present, so that an
	// explicit null can be told apart from a missing value.
	HasValue bool `json:"-" yaml:"-"`
}

// UnmarshalJSON decodes a change, rejecting unknown fields.
func (c *ChangeOp) UnmarshalJSON(data []byte) error {
	var raw struct {
		Action Action          `json:"action"`
		Target []string        `json:"target"`
		Value  json.RawMessage `json:"value"`
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&raw); err != nil {
		return err
	}

	*c = ChangeOp{Action: raw.Action, Target: raw.Target}
	if raw.Value != nil {
		c.HasValue = true
		if err := json.Unmarshal(raw.Value, &c.Value); err != nil {
			return err
		}
	}
	return nil
}

// UnmarshalYAML decodes a change, rejecting unknown fields.
func (c *ChangeOp) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: change must be a mapping", node.Line)
	}
	hasValue := false
	for i := 0; i+1 < len(node.Content); i += 2 {
		switch key := node.Content[i]; key.Value {
		case "action", "target":
		case "value":
			hasValue = true
		default:
			return fmt.Errorf("line %d: unknown field %q in change", key.Line, key.Value)
		}
	}

	var raw struct {
		Action Action   `yaml:"action"`
		Target []string `yaml:"target"`
		Value  any      `yaml:"value"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	*c = ChangeOp{Action: raw.Action, Target: raw.Target, Value: raw.Value, HasValue: hasValue}
	return nil
}

// Patch groups the changes that first take effect at Version.
type Patch struct {
	Version version.Tag `json:"version" yaml:"version"`
	Changes []ChangeOp  `json:"changes" yaml:"changes"`
	// Source names where the patch was loaded from, if anywhere.
	Source string `json:"-" yaml:"-"`
}

// Validate checks the shape of each change. It does not look at any document.
func (p Patch) Validate() error {
	if p.Version.IsZero() {
		return fmt.Errorf("patch has no version")
	}
	if len(p.Changes) == 0 {
		return fmt.Errorf("patch %s has no changes", p.Version)
	}
	for i, c := range p.Changes {
		if !c.Action.Valid() {
			return fmt.Errorf("patch %s change %d: unknown action %q", p.Version, i, c.Action)
		}
		if len(c.Target) == 0 {
			return fmt.Errorf("patch %s change %d: empty target", p.Version, i)
		}
		if c.Action != Remove && c.Value == nil && !c.HasValue {
			return fmt.Errorf("patch %s change %d: %s requires a value", p.Version, i, c.Action)
		}
	}
	return nil
}
