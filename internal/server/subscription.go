package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/wI2L/jsondiff"

	"gihan9a/entityschema/internal/metrics"
	"gihan9a/entityschema/internal/schema"
	"gihan9a/entityschema/internal/utils"
	"gihan9a/entityschema/pkg/braidproto"
)

// Subscription represents a client subscribed to the schema of one version
// key ("latest" or a version tag)
type Subscription struct {
	ID           string
	W            http.ResponseWriter
	F            http.Flusher
	LastResource []byte // Store the last schema sent to calculate patches
	LastHash     string // Store the hash of the last schema

	mu     sync.Mutex
	closed bool // set once the handler has returned; W must not be used
}

// serveSubscription streams the initial schema and keeps the connection open
// until the client goes away
func (s *SchemaServer) serveSubscription(w http.ResponseWriter, r *http.Request, key string, data []byte, hash string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Subscribe", "true")
	w.Header().Set("Cache-Control", "no-cache, no-transform")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(209) // 209 is the status code for a successful subscription

	// Hold the subscription until the initial body is out so a concurrent
	// reload cannot write a patch ahead of it.
	sub := newSubscription(w, flusher, data)
	sub.mu.Lock()
	s.addSubscription(key, sub)
	err := braidproto.Write(w, braidproto.Update{Version: []string{hash}, Body: data})
	flusher.Flush()
	sub.mu.Unlock()
	if err != nil {
		slog.Warn("error sending initial schema", "subscription", sub.ID, "error", err)
	}

	<-r.Context().Done()
	s.RemoveSubscription(key, sub.ID)

	sub.mu.Lock()
	sub.closed = true
	sub.mu.Unlock()
}

func newSubscription(w http.ResponseWriter, f http.Flusher, initialResource []byte) *Subscription {
	return &Subscription{
		ID:           utils.GenerateRandomID(),
		W:            w,
		F:            f,
		LastResource: initialResource,
		LastHash:     utils.CalculateHash(initialResource),
	}
}

// AddSubscription adds a new subscription for a version key
func (s *SchemaServer) AddSubscription(key string, w http.ResponseWriter, f http.Flusher, initialResource []byte) *Subscription {
	sub := newSubscription(w, f, initialResource)
	s.addSubscription(key, sub)
	return sub
}

func (s *SchemaServer) addSubscription(key string, sub *Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.subscriptions[key]; !exists {
		s.subscriptions[key] = make(map[string]*Subscription)
	}
	s.subscriptions[key][sub.ID] = sub
	metrics.Subscriptions.Inc()

	slog.Info("added subscription", "subscription", sub.ID, "version", key)
}

// RemoveSubscription removes a subscription
func (s *SchemaServer) RemoveSubscription(key, subID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if subs, exists := s.subscriptions[key]; exists {
		if _, ok := subs[subID]; ok {
			delete(subs, subID)
			metrics.Subscriptions.Dec()
			slog.Info("removed subscription", "subscription", subID, "version", key)
		}

		// Clean up empty subscription maps
		if len(subs) == 0 {
			delete(s.subscriptions, key)
		}
	}
}

// SubscriptionCount returns the number of open subscriptions for key
func (s *SchemaServer) SubscriptionCount(key string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subscriptions[key])
}

// notifyAll re-resolves every subscribed version key against the current
// store and pushes the result
func (s *SchemaServer) notifyAll() {
	s.mu.RLock()
	keys := make([]string, 0, len(s.subscriptions))
	for key := range s.subscriptions {
		keys = append(keys, key)
	}
	s.mu.RUnlock()

	snap := s.active()
	for _, key := range keys {
		doc, _, err := s.resolve(snap, key)
		if err != nil {
			slog.Error("cannot refresh subscribers", "version", key, "error", err)
			continue
		}
		data, err := schema.Encode(doc)
		if err != nil {
			slog.Error("cannot encode schema", "version", key, "error", err)
			continue
		}
		s.notifySubscribers(key, data)
	}
}

// notifySubscribers sends an update to all subscribers of a version key
func (s *SchemaServer) notifySubscribers(key string, newData []byte) {
	s.mu.RLock()
	subs := make([]*Subscription, 0, len(s.subscriptions[key]))
	for _, sub := range s.subscriptions[key] {
		subs = append(subs, sub)
	}
	s.mu.RUnlock()

	if len(subs) == 0 {
		return
	}

	newHash := utils.CalculateHash(newData)
	slog.Debug("notifying subscribers", "count", len(subs), "version", key)

	for _, sub := range subs {
		sub.mu.Lock()
		if sub.closed || sub.LastHash == newHash {
			sub.mu.Unlock()
			continue
		}

		if err := s.sendPatchUpdate(sub, newData, newHash); err != nil {
			slog.Warn("error sending patch update, falling back to full update", "subscription", sub.ID, "error", err)
			if err := s.sendFullUpdate(sub, newData, newHash); err != nil {
				slog.Warn("error sending full update", "subscription", sub.ID, "error", err)
			}
		}

		sub.LastResource = make([]byte, len(newData))
		copy(sub.LastResource, newData)
		sub.LastHash = newHash
		sub.mu.Unlock()
	}
}

// sendFullUpdate sends the whole schema to a subscriber
func (s *SchemaServer) sendFullUpdate(sub *Subscription, data []byte, hash string) error {
	err := braidproto.Write(sub.W, braidproto.Update{
		Version: []string{hash},
		Parents: []string{sub.LastHash},
		Body:    data,
	})
	sub.F.Flush()
	return err
}

// sendPatchUpdate sends the JSON diff between the subscriber's last schema
// and the new one
func (s *SchemaServer) sendPatchUpdate(sub *Subscription, newData []byte, newHash string) error {
	ops, err := jsondiff.CompareJSON(sub.LastResource, newData)
	if err != nil {
		return err
	}
	if len(ops) == 0 {
		return nil
	}

	update := braidproto.Update{
		Version: []string{newHash},
		Parents: []string{sub.LastHash},
	}
	for _, op := range ops {
		p := braidproto.Patch{Unit: "json", Range: op.Path}
		if op.Type != jsondiff.OperationRemove {
			valueJSON, err := json.Marshal(op.Value)
			if err != nil {
				return err
			}
			p.Content = string(valueJSON)
		}
		update.Patches = append(update.Patches, p)
	}

	err = braidproto.Write(sub.W, update)
	sub.F.Flush()
	return err
}
