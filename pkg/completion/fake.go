package completion

import (
	"context"
	"fmt"
	"sync"
)

// Scripted replays canned replies in order and records every conversation it
// was sent. It backs dry runs and tests.
type Scripted struct {
	mu      sync.Mutex
	replies []string
	calls   [][]Message
	// Repeat keeps returning the last reply once the script is exhausted
	Repeat bool
}

// NewScripted creates a Scripted completer
func NewScripted(replies ...string) *Scripted {
	return &Scripted{replies: replies}
}

// Name implements Completer
func (s *Scripted) Name() string { return "fake" }

// Complete implements Completer
func (s *Scripted) Complete(ctx context.Context, messages []Message) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	conv := make([]Message, len(messages))
	copy(conv, messages)
	s.calls = append(s.calls, conv)

	i := len(s.calls) - 1
	if i >= len(s.replies) {
		if s.Repeat && len(s.replies) > 0 {
			return s.replies[len(s.replies)-1], nil
		}
		return "", fmt.Errorf("scripted completer exhausted after %d replies", len(s.replies))
	}
	return s.replies[i], nil
}

// Calls returns the conversations received so far
func (s *Scripted) Calls() [][]Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]Message, len(s.calls))
	copy(out, s.calls)
	return out
}
