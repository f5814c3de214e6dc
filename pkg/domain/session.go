package domain

import (
	"fmt"
	"maps"
	"time"
)

// Session is the per-conversation context carried between callbacks.
type Session struct {
	ID             string            `json:"id"`
	Phone          string            `json:"phone"`
	CurrentStateID string            `json:"current_state_id,omitempty"`
	UserID         string            `json:"user_id,omitempty"`
	Answers        map[string]string `json:"answers"`
	Metadata       map[string]any    `json:"metadata,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	LastActivity   time.Time         `json:"last_activity"`
	Retries        int               `json:"retries"`
	Authenticated  bool              `json:"authenticated"`
	Language       string            `json:"language,omitempty"`
}

// NewSession creates a clean context with the current state unset.
func NewSession(id, phone string, now time.Time) *Session {
	return &Session{
		ID:           id,
		Phone:        phone,
		Answers:      make(map[string]string),
		Metadata:     make(map[string]any),
		CreatedAt:    now,
		LastActivity: now,
		Language:     "en",
	}
}

// Clone returns a deep copy of the maps so callers cannot alias store data.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.Answers = make(map[string]string, len(s.Answers))
	maps.Copy(c.Answers, s.Answers)
	c.Metadata = make(map[string]any, len(s.Metadata))
	maps.Copy(c.Metadata, s.Metadata)
	return &c
}

// Expired reports whether the session has been idle for longer than timeout.
// A non-positive timeout never expires.
func (s *Session) Expired(now time.Time, timeout time.Duration) bool {
	return timeout > 0 && now.Sub(s.LastActivity) > timeout
}

// StoreAnswer records an answer and resets the retry counter.
func (s *Session) StoreAnswer(key, value string) {
	if s.Answers == nil {
		s.Answers = make(map[string]string)
	}
	s.Answers[key] = value
	s.Retries = 0
}

// MergeAnswers records every entry of values.
func (s *Session) MergeAnswers(values map[string]string) {
	if len(values) == 0 {
		return
	}
	if s.Answers == nil {
		s.Answers = make(map[string]string)
	}
	maps.Copy(s.Answers, values)
}

// Lookup finds a key in the answers first, then in the metadata.
func (s *Session) Lookup(key string) (string, bool) {
	if s == nil {
		return "", false
	}
	if v, ok := s.Answers[key]; ok {
		return v, true
	}
	if v, ok := s.Metadata[key]; ok && v != nil {
		return fmt.Sprint(v), true
	}
	return "", false
}

// Has reports whether a non-empty value exists for key.
func (s *Session) Has(key string) bool {
	v, ok := s.Lookup(key)
	return ok && v != ""
}
