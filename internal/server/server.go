// Package server exposes the HTTP endpoints for the product chat service.
package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/leojay-net/chatshop/internal/app"
	"github.com/leojay-net/chatshop/internal/util"
	"github.com/leojay-net/chatshop/pkg/ai"
	"github.com/leojay-net/chatshop/pkg/domain"
	"github.com/leojay-net/chatshop/pkg/search"
	"github.com/leojay-net/chatshop/pkg/store"
)

// Config wires required dependencies for the HTTP server.
type Config struct {
	App *app.App
}

// Server exposes HTTP endpoints for the chat service.
type Server struct {
	app *app.App
	mux *http.ServeMux
}

// New constructs the server with routes configured.
func New(cfg Config) *Server {
	s := &Server{
		app: cfg.App,
		mux: http.NewServeMux(),
	}
	s.routes()
	return s
}

// Router returns the configured handler.
func (s *Server) Router() http.Handler {
	return util.WithRequestID(util.WithRequestLog(util.WithSecurityHeaders(util.WithCORS(s.mux))))
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)
	s.mux.HandleFunc("/product-chat", s.handleProductChat)
	s.mux.HandleFunc("/chats", s.handleChats)
	s.mux.HandleFunc("/chats/", s.handleChats)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type chatRequest struct {
	Email      string `json:"email"`
	SessionKey string `json:"session_key"`
	Input      string `json:"input"`
}

type chatResponse struct {
	Message    string           `json:"message"`
	SessionKey string           `json:"session_key"`
	Products   []domain.Product `json:"products,omitempty"`
	Errors     []string         `json:"search_errors,omitempty"`
}

func (s *Server) handleProductChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req chatRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	result, err := s.app.Chat(r.Context(), req.Email, req.SessionKey, req.Input)
	if err != nil {
		writeChatError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chatResponse{
		Message:    result.Reply,
		SessionKey: result.SessionKey,
		Products:   result.Products,
		Errors:     failureStrings(result.Failures),
	})
}

// handleChats serves /chats, /chats/{email}, and /chats/{email}/{sessionKey}.
func (s *Server) handleChats(w http.ResponseWriter, r *http.Request) {
	filter := filterFromPath(r.URL.Path)
	switch r.Method {
	case http.MethodGet:
		sessions, err := s.app.ListChats(r.Context(), filter)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if sessions == nil {
			sessions = []domain.ChatSession{}
		}
		writeJSON(w, http.StatusOK, sessions)
	case http.MethodDelete:
		deleted, err := s.app.DeleteChats(r.Context(), filter)
		if err != nil {
			writeChatError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"message": "chat history deleted successfully",
			"deleted": deleted,
		})
	default:
		methodNotAllowed(w)
	}
}

func filterFromPath(path string) store.Filter {
	trimmed := strings.Trim(strings.TrimPrefix(path, "/chats"), "/")
	if trimmed == "" {
		return store.Filter{}
	}
	parts := strings.SplitN(trimmed, "/", 2)
	filter := store.Filter{Email: parts[0]}
	if len(parts) == 2 {
		filter.SessionKey = parts[1]
	}
	return filter
}

func writeChatError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ai.ErrContentBlocked):
		writeError(w, http.StatusBadRequest, "The input was blocked due to safety concerns")
	case errors.Is(err, app.ErrEmailRequired), errors.Is(err, app.ErrInputRequired),
		errors.Is(err, store.ErrFilterRequired):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "chat history not found")
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func failureStrings(failures []search.Failure) []string {
	if len(failures) == 0 {
		return nil
	}
	out := make([]string, 0, len(failures))
	for _, f := range failures {
		out = append(out, f.Error())
	}
	return out
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
