package registry

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/gitsu-io/gitsu/pkg/errors"
)

// Server serves the registry protocol over HTTP.
type Server struct {
	store  *FileStore
	logger *log.Logger
}

// NewServer creates a registry server backed by store.
func NewServer(store *FileStore, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(nil)
		logger.SetLevel(log.FatalLevel)
	}
	return &Server{store: store, logger: logger}
}

// Handler builds the chi router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/packages", s.handleSearch)
	r.Get("/packages/{name}", s.handleLookup)
	r.Post("/packages", s.handleRegister)
	return r
}

func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	entry, ok := s.store.Get(name)
	if !ok {
		http.Error(w, "package not found", http.StatusNotFound)
		return
	}
	s.writeJSON(w, entry)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("search")
	entries := s.store.Search(query)
	if entries == nil {
		entries = []Entry{}
	}
	s.writeJSON(w, entries)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var entry Entry
	if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	entry.Name = strings.TrimSpace(entry.Name)
	entry.URL = strings.TrimSpace(entry.URL)
	if err := errors.ValidateComponentName(entry.Name); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := errors.ValidateSourceURL(entry.URL); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if existing, ok := s.store.Get(entry.Name); ok && existing.URL != entry.URL {
		http.Error(w, "name already registered", http.StatusConflict)
		return
	}
	if err := s.store.Put(entry); err != nil {
		s.logger.Error("storing registry entry", "name", entry.Name, "err", err)
		http.Error(w, "storage failure", http.StatusInternalServerError)
		return
	}
	s.logger.Info("registered", "name", entry.Name, "url", entry.URL)
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encoding response", "err", err)
	}
}
