package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/easeaico/context-agent/internal/memory"
)

// Exchange is one user message and the reply shown for it.
type Exchange struct {
	User string
	Bot  string
}

// Session is a chat transcript over an Agent. Turns within a session are
// processed one at a time; separate sessions may run concurrently.
type Session struct {
	agent *Agent

	mu      sync.Mutex
	history []Exchange
}

// NewSession starts an empty transcript.
func NewSession(agent *Agent) *Session {
	return &Session{agent: agent}
}

// Send runs a turn and appends it to the transcript. Model failures are
// shown as the reply ("Error: ...") rather than ending the session; blank
// messages are ignored.
func (s *Session) Send(ctx context.Context, message string) (Exchange, bool) {
	if strings.TrimSpace(message) == "" {
		return Exchange{}, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ex := Exchange{User: message}
	turn, err := s.agent.Respond(ctx, message)
	if err != nil {
		ex.Bot = fmt.Sprintf("Error: %v", err)
	} else {
		ex.Bot = turn.Response
	}
	s.history = append(s.history, ex)
	return ex, true
}

// History returns a copy of the transcript.
func (s *Session) History() []Exchange {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Exchange(nil), s.history...)
}

// Clear empties the transcript.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = nil
}

// SaveMemory stores text and returns the confirmation shown to the user.
// It is the only path by which memories are written.
func SaveMemory(ctx context.Context, m Memory, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "Please enter some text to save.", memory.ErrEmptyText
	}
	if _, err := m.Insert(ctx, text, nil); err != nil {
		return fmt.Sprintf("Error saving memory: %v", err), err
	}
	return fmt.Sprintf("✓ Memory saved: %s...", preview(text, 50)), nil
}

// SearchMemories renders up to k memories for display.
func SearchMemories(ctx context.Context, m Memory, query string, k int) (string, error) {
	if strings.TrimSpace(query) == "" {
		return "Please enter a search query.", memory.ErrEmptyText
	}
	found, err := m.Query(ctx, query, k)
	if err != nil {
		return fmt.Sprintf("Error searching memories: %v", err), err
	}
	if len(found) == 0 {
		return "No memories found.", nil
	}

	var sb strings.Builder
	sb.WriteString("Found memories:")
	for _, f := range found {
		sb.WriteString("\n• ")
		sb.WriteString(f)
	}
	return sb.String(), nil
}

// preview returns the first n runes of s.
func preview(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
