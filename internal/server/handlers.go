package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/wI2L/jsondiff"

	"gihan9a/entityschema/internal/config"
	"gihan9a/entityschema/internal/schema"
	"gihan9a/entityschema/internal/store"
	"gihan9a/entityschema/internal/utils"
	"gihan9a/entityschema/pkg/schemapatch"
	"gihan9a/entityschema/pkg/version"
)

type versionsResponse struct {
	Baseline string   `json:"baseline,omitempty"`
	Latest   string   `json:"latest"`
	Versions []string `json:"versions"`
}

type catalogEntry struct {
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	FileMatch   []string          `json:"fileMatch"`
	URL         string            `json:"url"`
	Versions    map[string]string `json:"versions"`
}

type catalogResponse struct {
	Schemas []catalogEntry `json:"schemas"`
}

func writeJSON(w http.ResponseWriter, v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		http.Error(w, fmt.Sprintf("Error encoding response: %v", err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

// handleVersions lists the versions at which the schema changes
func (s *SchemaServer) handleVersions(w http.ResponseWriter, r *http.Request) {
	st := s.active().store

	resp := versionsResponse{
		Latest:   st.Latest().String(),
		Versions: []string{},
	}
	if b := st.Manifest().BaselineVersion; !b.IsZero() {
		resp.Baseline = b.String()
	}
	for _, v := range st.Versions() {
		resp.Versions = append(resp.Versions, v.String())
	}
	writeJSON(w, resp)
}

// handleCatalog describes the schema family in a SchemaStore-style catalog
func (s *SchemaServer) handleCatalog(w http.ResponseWriter, r *http.Request) {
	st := s.active().store
	m := st.Manifest()

	fileMatch := s.config.FileMatch
	if len(fileMatch) == 0 {
		fileMatch = m.FileMatch
	}
	if len(fileMatch) == 0 {
		fileMatch = []string{config.DefaultFileMatch}
	}

	base := baseURL(r)
	entry := catalogEntry{
		Name:        m.Name,
		Description: m.Description,
		FileMatch:   fileMatch,
		URL:         base + "/schema/" + store.LatestAlias,
		Versions:    make(map[string]string),
	}
	versions := st.Versions()
	if !m.BaselineVersion.IsZero() {
		versions = append([]version.Tag{m.BaselineVersion}, versions...)
	}
	for _, v := range versions {
		entry.Versions[v.String()] = base + "/schema/" + v.String()
	}

	writeJSON(w, catalogResponse{Schemas: []catalogEntry{entry}})
}

func baseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

// handleSchema serves the effective schema for a version, or opens a
// subscription on it when the client sends "Subscribe: true"
func (s *SchemaServer) handleSchema(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["version"]

	doc, v, err := s.resolve(s.active(), key)
	if err != nil {
		slog.Warn("resolution failed", "version", key, "error", err)
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	data, err := schema.Encode(doc)
	if err != nil {
		http.Error(w, fmt.Sprintf("Error encoding schema: %v", err), http.StatusInternalServerError)
		return
	}
	hash := utils.CalculateHash(data)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Schema-Version", v.String())

	if r.Header.Get("Subscribe") == "true" {
		s.serveSubscription(w, r, key, data, hash)
		return
	}

	w.Header().Set("ETag", hash)
	w.Header().Set("Version", hash)
	w.Header().Set("Parents", "")
	if match := r.Header.Get("If-None-Match"); match == hash {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Write(data)
}

// handleDiff returns the RFC 6902 operations turning one version's schema
// into another's
func (s *SchemaServer) handleDiff(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	snap := s.active()

	from, _, err := s.resolve(snap, vars["from"])
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	to, _, err := s.resolve(snap, vars["to"])
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	ops, err := jsondiff.Compare(from, to)
	if err != nil {
		http.Error(w, fmt.Sprintf("Error computing diff: %v", err), http.StatusInternalServerError)
		return
	}
	if ops == nil {
		ops = jsondiff.Patch{}
	}
	writeJSON(w, ops)
}

// handlePatches exports the patches tagged with exactly one version as an
// RFC 6902 document
func (s *SchemaServer) handlePatches(w http.ResponseWriter, r *http.Request) {
	snap := s.active()
	v, err := snap.store.ParseVersion(mux.Vars(r)["version"])
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	patches := snap.store.PatchesAt(v)
	if len(patches) == 0 {
		http.Error(w, fmt.Sprintf("No patch for version %s", v), http.StatusNotFound)
		return
	}

	data, _, err := schemapatch.JSONPatch(patches...)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json-patch+json")
	w.Write(data)
}
