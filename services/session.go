package services

import (
	"context"
	"strings"
	"sync"
	"time"

	"assistant/models"
)

// DefaultMaxHistoryLength bounds a ChatSession when no length is configured
const DefaultMaxHistoryLength = 10

// ChatSession is a bounded conversation with the chat model.
// The model is called without holding the lock, so concurrent sends run in
// parallel; each user/model pair is appended as one unit.
type ChatSession struct {
	mu        sync.Mutex
	model     ChatModel
	history   []models.ChatMessage
	maxLength int
}

// NewChatSession creates an empty session keeping at most maxLength turns
func NewChatSession(model ChatModel, maxLength int) *ChatSession {
	if maxLength < 2 {
		maxLength = DefaultMaxHistoryLength
	}
	return &ChatSession{
		model:     model,
		maxLength: maxLength,
	}
}

// Send sends message with the retained history as context and records both turns.
// A failed send leaves the history unchanged.
func (s *ChatSession) Send(ctx context.Context, message string) (string, error) {
	prior := s.History()

	reply, err := s.model.SendChat(ctx, prior, message)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(reply) == "" {
		return "", ErrEmptyResponse
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.history = append(s.history,
		models.ChatMessage{Role: models.RoleUser, Content: message, Timestamp: now},
		models.ChatMessage{Role: models.RoleModel, Content: reply, Timestamp: now},
	)
	s.trim()

	return reply, nil
}

// trim evicts the oldest turns, whole exchanges at a time, so the history
// fits maxLength and still opens with a user turn.
func (s *ChatSession) trim() {
	excess := len(s.history) - s.maxLength
	if excess <= 0 {
		return
	}
	if excess%2 == 1 {
		excess++
	}
	if excess > len(s.history) {
		excess = len(s.history)
	}
	kept := make([]models.ChatMessage, len(s.history)-excess)
	copy(kept, s.history[excess:])
	s.history = kept
}

// History returns a copy of the retained turns, oldest first
func (s *ChatSession) History() []models.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.ChatMessage, len(s.history))
	copy(out, s.history)
	return out
}

// MaxLength returns the history bound
func (s *ChatSession) MaxLength() int {
	return s.maxLength
}
