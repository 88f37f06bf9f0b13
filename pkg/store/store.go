// Package store persists chat sessions keyed by (email, session key).
package store

import (
	"context"
	"errors"

	"github.com/leojay-net/chatshop/pkg/domain"
)

var (
	// ErrSessionNotFound indicates no session matched a specific key.
	ErrSessionNotFound = errors.New("session not found")
	// ErrFilterRequired indicates a delete was attempted with no filter.
	ErrFilterRequired = errors.New("email or session key required")
)

// Filter narrows List and Delete operations. Zero-value fields match
// everything for List; Delete rejects an entirely empty filter.
type Filter struct {
	Email      string
	SessionKey string
}

// Empty reports whether the filter constrains nothing.
func (f Filter) Empty() bool {
	return f.Email == "" && f.SessionKey == ""
}

// Store defines persistence operations for chat sessions. History is
// append-only: implementations never rewrite or reorder messages.
type Store interface {
	// GetOrCreate returns the session for (email, sessionKey), creating it
	// when absent. An empty sessionKey generates a fresh key. The bool is
	// true when the session was just created.
	GetOrCreate(ctx context.Context, email, sessionKey string) (domain.ChatSession, bool, error)
	// AppendMessage appends one message to an existing session's history.
	AppendMessage(ctx context.Context, email, sessionKey string, msg domain.Message) error
	// List returns sessions matching the filter, oldest first.
	List(ctx context.Context, filter Filter) ([]domain.ChatSession, error)
	// Delete removes sessions matching the filter and reports how many.
	Delete(ctx context.Context, filter Filter) (int64, error)
}
