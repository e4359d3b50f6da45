package schemapatch

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"gihan9a/entityschema/internal/schema"
)

// DecodeJSON parses a single patch object. Unknown fields are rejected.
func DecodeJSON(data []byte) (Patch, error) {
	var p Patch
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return Patch{}, fmt.Errorf("error parsing patch: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return Patch{}, fmt.Errorf("error parsing patch: trailing data after the patch object")
	}
	if err := p.Validate(); err != nil {
		return Patch{}, err
	}
	return p, nil
}

// DecodeYAML parses a single patch written as YAML. Values are normalised to
// the JSON value model so they compare equal to JSON-loaded trees.
func DecodeYAML(data []byte) (Patch, error) {
	var p Patch
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		return Patch{}, fmt.Errorf("error parsing patch: %w", err)
	}
	var extra yaml.Node
	if err := dec.Decode(&extra); err != io.EOF {
		return Patch{}, fmt.Errorf("error parsing patch: more than one YAML document")
	}
	for i := range p.Changes {
		if p.Changes[i].Value == nil {
			continue
		}
		v, err := schema.Normalize(p.Changes[i].Value)
		if err != nil {
			return Patch{}, fmt.Errorf("patch %s change %d: %w", p.Version, i, err)
		}
		p.Changes[i].Value = v
	}
	if err := p.Validate(); err != nil {
		return Patch{}, err
	}
	return p, nil
}

// IsPatchFile reports whether name has an extension Decode understands.
func IsPatchFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}

// Decode picks the decoder from the file extension of name and records name
// as the patch source.
func Decode(name string, data []byte) (Patch, error) {
	var (
		p   Patch
		err error
	)
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		p, err = DecodeJSON(data)
	case ".yaml", ".yml":
		p, err = DecodeYAML(data)
	default:
		return Patch{}, fmt.Errorf("unsupported patch file %s", name)
	}
	if err != nil {
		return Patch{}, fmt.Errorf("%s: %w", name, err)
	}
	p.Source = name
	return p, nil
}
