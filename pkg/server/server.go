// Package server implements the Momentum backend functions: the AI proxy
// that holds the provider credential and the persistence function backed
// by SQLite. Both speak the same wire the hosted deployment did, so the
// client layers work identically against either.
package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"momentum/pkg/gateway/provider"
	"momentum/pkg/logx"
	"momentum/pkg/persistence"
)

// Server holds the backend function handlers.
type Server struct {
	ops       *persistence.Operations
	completer provider.TextCompleter
	logger    *logx.Logger
}

// NewServer creates a server over an initialized persistence layer. The
// completer carries the server-held provider credential; nil disables the
// AI function (persistence still works).
func NewServer(ops *persistence.Operations, completer provider.TextCompleter) *Server {
	return &Server{
		ops:       ops,
		completer: completer,
		logger:    logx.NewLogger("server"),
	}
}

// Router returns the HTTP mux with all function routes mounted.
func (s *Server) Router() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/functions/momentum-ai", s.handleAI)
	mux.HandleFunc("/functions/momentum-data", s.handleData)
	mux.HandleFunc("/health", handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
