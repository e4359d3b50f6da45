// Package braidproto writes Braid-HTTP subscription updates.
package braidproto

// Patch represents a range patch in the Braid protocol
type Patch struct {
	Unit    string `json:"unit"`    // Unit of the range, always "json" here
	Range   string `json:"range"`   // Range is a JSON Pointer into the document, e.g. "/definitions/event"
	Content string `json:"content"` // Content is the JSON value for the range; empty deletes it
}

// Update represents a Braid protocol update with version, parents, and either patches or a full body
type Update struct {
	Version []string `json:"version"`           // Version identifiers for this update
	Parents []string `json:"parents"`           // Parent versions this update is based on
	Patches []Patch  `json:"patches,omitempty"` // Optional list of patches
	Body    []byte   `json:"body,omitempty"`    // Optional full body content
}
