// Package store provides the baseline entity schema and its versioned
// patches. A Store is loaded once and never modified afterwards.
package store

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"gihan9a/entityschema/internal/schema"
	"gihan9a/entityschema/pkg/schemapatch"
	"gihan9a/entityschema/pkg/version"
)

//go:embed data
var embedded embed.FS

// LatestAlias names the newest known version wherever a version is accepted.
const LatestAlias = "latest"

const (
	manifestFile = "manifest.yaml"
	baselineFile = "baseline.json"
	patchesDir   = "patches"
)

// Manifest describes the schema family held by a store.
type Manifest struct {
	Name            string      `yaml:"name"`
	Description     string      `yaml:"description"`
	BaselineVersion version.Tag `yaml:"baseline_version"`
	FileMatch       []string    `yaml:"file_match"`
}

// Store is an immutable snapshot of a baseline document and its patches.
type Store struct {
	manifest Manifest
	baseline schema.Node
	patches  []schemapatch.Patch
}

// New builds a store from in-memory data. The store takes ownership of
// baseline and patches.
func New(m Manifest, baseline schema.Node, patches []schemapatch.Patch) (*Store, error) {
	if baseline == nil {
		return nil, fmt.Errorf("baseline document is nil")
	}
	for _, p := range patches {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		if !m.BaselineVersion.IsZero() && !m.BaselineVersion.Less(p.Version) {
			return nil, fmt.Errorf("patch %s does not come after baseline version %s", p.Version, m.BaselineVersion)
		}
	}
	return &Store{manifest: m, baseline: baseline, patches: patches}, nil
}

// LoadEmbedded loads the data compiled into the binary.
func LoadEmbedded() (*Store, error) {
	sub, err := fs.Sub(embedded, "data")
	if err != nil {
		return nil, err
	}
	return LoadFS(sub)
}

// LoadDir loads a data directory laid out like the embedded data.
func LoadDir(dir string) (*Store, error) {
	s, err := LoadFS(os.DirFS(dir))
	if err != nil {
		return nil, fmt.Errorf("error loading data directory %s: %w", dir, err)
	}
	return s, nil
}

// LoadFS reads manifest.yaml (optional), baseline.json and every patch file
// under patches/. Patch files are read in lexical name order, which is the
// order patches sharing a version are applied in.
func LoadFS(fsys fs.FS) (*Store, error) {
	var m Manifest
	data, err := fs.ReadFile(fsys, manifestFile)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("error parsing %s: %w", manifestFile, err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("error reading %s: %w", manifestFile, err)
	}

	data, err = fs.ReadFile(fsys, baselineFile)
	if err != nil {
		return nil, fmt.Errorf("error reading %s: %w", baselineFile, err)
	}
	baseline, err := schema.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", baselineFile, err)
	}

	entries, err := fs.ReadDir(fsys, patchesDir)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error reading %s: %w", patchesDir, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var patches []schemapatch.Patch
	for _, e := range entries {
		if e.IsDir() || !schemapatch.IsPatchFile(e.Name()) {
			continue
		}
		name := path.Join(patchesDir, e.Name())
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("error reading %s: %w", name, err)
		}
		p, err := schemapatch.Decode(name, data)
		if err != nil {
			return nil, err
		}
		patches = append(patches, p)
	}

	return New(m, baseline, patches)
}

// Manifest returns the store's manifest.
func (s *Store) Manifest() Manifest {
	m := s.manifest
	m.FileMatch = append([]string(nil), s.manifest.FileMatch...)
	return m
}

// Baseline returns the shared baseline document. Callers must not modify it.
func (s *Store) Baseline() schema.Node {
	return s.baseline
}

// Patches returns the patches in load order. The slice is a copy; the
// patch values it refers to are shared and must not be modified.
func (s *Store) Patches() []schemapatch.Patch {
	return append([]schemapatch.Patch(nil), s.patches...)
}

// PatchesAt returns the patches tagged with exactly v, in load order.
func (s *Store) PatchesAt(v version.Tag) []schemapatch.Patch {
	var out []schemapatch.Patch
	for _, p := range s.patches {
		if p.Version.Equal(v) {
			out = append(out, p)
		}
	}
	return out
}

// Versions returns the distinct patch versions in ascending order.
func (s *Store) Versions() []version.Tag {
	var out []version.Tag
	for _, p := range s.patches {
		out = append(out, p.Version)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Less(out[j]) })
	var uniq []version.Tag
	for _, v := range out {
		if len(uniq) == 0 || !v.Equal(uniq[len(uniq)-1]) {
			uniq = append(uniq, v)
		}
	}
	return uniq
}

// Latest returns the highest known version: the newest patch version, or
// the baseline version when there are no patches.
func (s *Store) Latest() version.Tag {
	vs := s.Versions()
	if len(vs) == 0 {
		return s.manifest.BaselineVersion
	}
	return vs[len(vs)-1]
}

// ParseVersion parses a version tag, or LatestAlias for Latest.
func (s *Store) ParseVersion(raw string) (version.Tag, error) {
	if raw != LatestAlias {
		return version.Parse(raw)
	}
	latest := s.Latest()
	if latest.IsZero() {
		return version.Tag{}, &version.InvalidVersionError{Input: raw, Reason: "store has no known version"}
	}
	return latest, nil
}

// IsDataFile reports whether rel, a path relative to a data directory, is
// one of the files LoadFS reads.
func IsDataFile(rel string) bool {
	rel = filepath.ToSlash(rel)
	switch rel {
	case manifestFile, baselineFile:
		return true
	}
	dir, name := path.Split(rel)
	return dir == patchesDir+"/" && schemapatch.IsPatchFile(name)
}
