// Package completion provides the text completion collaborator used to
// query models. Providers are selected by configuration and share one
// interface so the experiment loop never depends on a specific API.
package completion

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Message roles
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of a conversation
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Completer returns the model's reply to a conversation
type Completer interface {
	Complete(ctx context.Context, messages []Message) (string, error)
	Name() string
}

// Func adapts a function to Completer
type Func func(ctx context.Context, messages []Message) (string, error)

// Complete calls f
func (f Func) Complete(ctx context.Context, messages []Message) (string, error) {
	return f(ctx, messages)
}

// Name implements Completer
func (f Func) Name() string { return "func" }

// ErrEmptyResponse is returned when a provider answers without any text
var ErrEmptyResponse = errors.New("completion: empty response")

// PermanentError marks a failure that retrying will not fix
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// IsPermanent reports whether err should not be retried
func IsPermanent(err error) bool {
	var p *PermanentError
	return errors.As(err, &p)
}

// statusError classifies an HTTP status. Client errors other than 429 are
// permanent.
func statusError(provider string, status int, body string) error {
	err := fmt.Errorf("%s API returned status %d: %s", provider, status, truncate(body, 512))
	if status >= 400 && status < 500 && status != 429 {
		return &PermanentError{Err: err}
	}
	return err
}

// splitSystem separates system turns from the rest of the conversation
func splitSystem(messages []Message) (string, []Message) {
	var system []string
	rest := make([]Message, 0, len(messages))
	for _, m := range messages {
		if strings.EqualFold(m.Role, RoleSystem) {
			system = append(system, m.Content)
			continue
		}
		rest = append(rest, m)
	}
	return strings.Join(system, "\n\n"), rest
}

func validate(messages []Message) error {
	if len(messages) == 0 {
		return &PermanentError{Err: errors.New("completion: no messages")}
	}
	for i, m := range messages {
		switch strings.ToLower(m.Role) {
		case RoleSystem, RoleUser, RoleAssistant:
		default:
			return &PermanentError{Err: fmt.Errorf("completion: message %d has unknown role %q", i, m.Role)}
		}
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
