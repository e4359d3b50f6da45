package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gihan9a/entityschema/internal/config"
	"gihan9a/entityschema/internal/resolver"
	"gihan9a/entityschema/internal/schema"
	"gihan9a/entityschema/internal/store"
	"gihan9a/entityschema/pkg/version"
)

// snapshot pairs a store with the cache built over it. It is replaced
// wholesale on reload and never modified.
type snapshot struct {
	store *store.Store
	cache *resolver.Cache
}

// SchemaServer serves effective entity schemas per game version
type SchemaServer struct {
	config        *config.Config
	current       *snapshot
	subscriptions map[string]map[string]*Subscription
	reverseProxy  *httputil.ReverseProxy
	mu            sync.RWMutex
	watcher       *fsnotify.Watcher
}

// NewSchemaServer creates a server over st. When the config enables watching
// and names a data directory, the directory is reloaded on change.
func NewSchemaServer(cfg *config.Config, st *store.Store) (*SchemaServer, error) {
	server := &SchemaServer{
		config:        cfg,
		subscriptions: make(map[string]map[string]*Subscription),
	}
	server.current = server.newSnapshot(st)

	if cfg.ProxyURL != nil {
		server.setupProxy()
	}

	if cfg.Watch && cfg.DataDir != "" {
		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return nil, fmt.Errorf("failed to create file watcher: %w", err)
		}
		server.watcher = watcher
		go server.watchFiles()
	}

	return server, nil
}

func (s *SchemaServer) newSnapshot(st *store.Store) *snapshot {
	snap := &snapshot{store: st}
	if s.config.CacheEnabled {
		snap.cache = resolver.NewCache(st.Baseline(), st.Patches())
	}
	return snap
}

// Close cleans up resources used by the server
func (s *SchemaServer) Close() {
	if s.watcher != nil {
		s.watcher.Close()
	}
}

func (s *SchemaServer) active() *snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Store returns the store currently being served.
func (s *SchemaServer) Store() *store.Store {
	return s.active().store
}

// Swap replaces the served store, drops cached resolutions and pushes the
// new schemas to subscribers.
func (s *SchemaServer) Swap(st *store.Store) {
	snap := s.newSnapshot(st)
	s.mu.Lock()
	s.current = snap
	s.mu.Unlock()

	slog.Info("schema store replaced", "latest", st.Latest().String(), "patches", len(st.Patches()))
	s.notifyAll()
}

// resolve computes the effective schema for raw against this snapshot.
func (s *SchemaServer) resolve(snap *snapshot, raw string) (schema.Node, version.Tag, error) {
	v, err := snap.store.ParseVersion(raw)
	if err != nil {
		return nil, version.Tag{}, err
	}

	var doc schema.Node
	if snap.cache != nil {
		doc, err = snap.cache.Resolve(v)
	} else {
		doc, err = resolver.Resolve(snap.store.Baseline(), snap.store.Patches(), v)
	}
	if err != nil {
		return nil, v, err
	}

	if s.config.CheckRefs {
		if err := schema.CheckRefs(doc); err != nil {
			return nil, v, fmt.Errorf("schema for %s is inconsistent: %w", v, err)
		}
	}
	return doc, v, nil
}

// statusFor maps resolution errors to HTTP status codes.
func statusFor(err error) int {
	var ive *version.InvalidVersionError
	if errors.As(err, &ive) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// SetupRoutes configures the HTTP routes for the server
func (s *SchemaServer) SetupRoutes() http.Handler {
	router := mux.NewRouter()
	router.Use(s.instrument)
	if s.config.CORS.Enabled {
		router.Use(s.cors)
	}

	router.HandleFunc("/versions", s.handleVersions).Methods(http.MethodGet, http.MethodOptions)
	router.HandleFunc("/catalog", s.handleCatalog).Methods(http.MethodGet, http.MethodOptions)
	router.HandleFunc("/schema/{version}", s.handleSchema).Methods(http.MethodGet, http.MethodOptions)
	router.HandleFunc("/diff/{from}/{to}", s.handleDiff).Methods(http.MethodGet, http.MethodOptions)
	router.HandleFunc("/patches/{version}", s.handlePatches).Methods(http.MethodGet, http.MethodOptions)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	router.NotFoundHandler = http.HandlerFunc(s.handleNotFound)
	return router
}

func (s *SchemaServer) handleNotFound(w http.ResponseWriter, r *http.Request) {
	if s.reverseProxy != nil {
		slog.Debug("route not found locally, proxying", "path", r.URL.Path, "upstream", s.config.ProxyURL.String())
		s.reverseProxy.ServeHTTP(w, r)
		return
	}
	http.Error(w, "Resource not found", http.StatusNotFound)
}
