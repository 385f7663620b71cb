package message

import (
	"fmt"
	"sync"

	"github.com/voocel/miniagents/promising"
)

// reservedAuxFields are the keys TokenAppender.SetAux refuses to accept
// because the content itself is assembled from the streamed tokens, not from
// the auxiliary collector.
var reservedAuxFields = map[string]bool{
	"content":          true,
	"content_template": true,
}

// TokenAppender is a StreamAppender specialized to message tokens: besides
// the normal open/append/close lifecycle, it carries an auxiliary field
// collector that an agent body fills through SetAux as it discovers
// metadata (role, model, finish reason) mid-stream. Those fields are merged,
// last-write-wins per key, into the final Message once the stream completes.
type TokenAppender struct {
	inner *promising.StreamAppender[string]

	mu  sync.Mutex
	aux map[string]any
}

// NewTokenAppender builds a TokenAppender. captureErrors controls whether a
// CloseWithError'd error becomes the stream's terminal error (propagated to
// every token reader, including Safe's mid-stream recovery) or is instead
// swallowed into a clean end-of-stream and only recoverable via Err. Pass
// false when the message promise built on this appender should participate
// in Safe's partial-content recovery.
func NewTokenAppender(captureErrors bool) *TokenAppender {
	return &TokenAppender{
		inner: promising.NewStreamAppender[string](captureErrors),
		aux:   make(map[string]any),
	}
}

// Open marks the appender ready to accept tokens.
func (a *TokenAppender) Open() error { return a.inner.Open() }

// Append sends the next token.
func (a *TokenAppender) Append(token string) error { return a.inner.Append(token) }

// Close ends the token stream with no error.
func (a *TokenAppender) Close() error { return a.inner.Close() }

// CloseWithError ends the token stream with err.
func (a *TokenAppender) CloseWithError(err error) error { return a.inner.CloseWithError(err) }

// Err returns the error this appender was closed with, if any.
func (a *TokenAppender) Err() error { return a.inner.Err() }

// SetAux records a metadata field discovered during streaming. It rejects
// the reserved content/content_template keys, which are assembled from the
// streamed tokens themselves.
func (a *TokenAppender) SetAux(key string, value any) error {
	if reservedAuxFields[key] {
		return fmt.Errorf("message: %q is a reserved field and cannot be set via the auxiliary field collector", key)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.aux[key] = value
	return nil
}

// auxSnapshot returns a copy of the auxiliary fields collected so far.
func (a *TokenAppender) auxSnapshot() map[string]any {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(map[string]any, len(a.aux))
	for k, v := range a.aux {
		out[k] = v
	}
	return out
}

func (a *TokenAppender) producer() promising.PieceProducer[string] {
	return a.inner.Producer()
}
