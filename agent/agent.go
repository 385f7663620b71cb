// Package agent implements agent registration and invocation: independent,
// asynchronous producers of message streams, composed into dataflow graphs
// by triggering one agent's output into another's input.
package agent

import (
	"reflect"
	"runtime"
	"strings"

	"github.com/voocel/miniagents/message"
	"github.com/voocel/miniagents/promising"
)

// AgentFunc is the body of an agent: given an InteractionContext carrying its
// input message sequence and a reply handle, it streams zero or more reply
// messages and returns when done. It runs at most once per invocation.
type AgentFunc func(ictx *InteractionContext) error

// KWArg is a single named call-time argument, merged into an agent's
// kwargs for a particular Trigger/InitiateCall/Fork.
type KWArg struct {
	Name  string
	Value any
}

// KW builds a KWArg.
func KW(name string, value any) KWArg {
	return KWArg{Name: name, Value: value}
}

// RegisterOption configures an Agent at registration time.
type RegisterOption func(*Agent)

// WithAlias overrides the default (function-name-derived) alias.
func WithAlias(alias string) RegisterOption {
	return func(a *Agent) { a.alias = alias }
}

// WithDescription sets the agent's description template. "{AGENT_ALIAS}"
// inside it is expanded to the agent's alias when Description is read.
func WithDescription(template string) RegisterOption {
	return func(a *Agent) { a.descriptionTemplate = template }
}

// WithErrorsAsMessages enables error-to-message mode for this agent: an
// error returned by its AgentFunc is converted into a reply message
// (is_error=true) instead of propagating to the background-task error
// handler.
func WithErrorsAsMessages(enabled bool) RegisterOption {
	return func(a *Agent) { a.errorsAsMessages = enabled }
}

// Agent is a registered, invocable agent function together with its alias,
// description, and default call-time kwargs.
type Agent struct {
	fn                  AgentFunc
	alias               string
	descriptionTemplate string
	errorsAsMessages    bool
	kwargs              map[string]any
	mutableState        any
}

// Register wraps fn as an invocable Agent. The alias defaults to fn's
// function name, upper-cased, recovered via runtime name introspection —
// the Go analogue of the original's func.__name__.upper().
func Register(fn AgentFunc, opts ...RegisterOption) *Agent {
	a := &Agent{fn: fn, alias: defaultAlias(fn), kwargs: map[string]any{}}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func defaultAlias(fn AgentFunc) string {
	name := runtime.FuncForPC(reflect.ValueOf(fn).Pointer()).Name()
	if idx := strings.LastIndex(name, "."); idx >= 0 {
		name = name[idx+1:]
	}
	name = strings.TrimSuffix(name, "-fm")
	return strings.ToUpper(name)
}

// Alias returns the agent's alias.
func (a *Agent) Alias() string { return a.alias }

// Description returns the agent's description with "{AGENT_ALIAS}" expanded.
func (a *Agent) Description() string {
	return strings.ReplaceAll(a.descriptionTemplate, "{AGENT_ALIAS}", a.alias)
}

// MutableState returns the agent's mutable-state escape hatch value, or nil
// if none was set via WithMutableState.
func (a *Agent) MutableState() any { return a.mutableState }

// Fork returns a new Agent sharing this one's function, alias, and
// description, with overrides merged into (and taking priority over) the
// base kwargs. Forking is how a caller partially applies an agent ahead of
// triggering it, without mutating the original registration.
func (a *Agent) Fork(overrides ...KWArg) *Agent {
	forked := &Agent{
		fn:                  a.fn,
		alias:               a.alias,
		descriptionTemplate: a.descriptionTemplate,
		errorsAsMessages:    a.errorsAsMessages,
		mutableState:        a.mutableState,
		kwargs:              make(map[string]any, len(a.kwargs)+len(overrides)),
	}
	for k, v := range a.kwargs {
		forked.kwargs[k] = v
	}
	for _, kw := range overrides {
		forked.kwargs[kw.Name] = kw.Value
	}
	return forked
}

// WithMutableState returns a fork of a carrying state as its mutable-state
// escape hatch — for per-fork state that cannot itself be frozen (open
// file handles, client connections, counters mutated across calls).
func (a *Agent) WithMutableState(state any) *Agent {
	forked := a.Fork()
	forked.mutableState = state
	return forked
}

func mergeKWArgs(base map[string]any, extra []KWArg) map[string]any {
	merged := make(map[string]any, len(base)+len(extra))
	for k, v := range base {
		merged[k] = v
	}
	for _, kw := range extra {
		merged[kw.Name] = kw.Value
	}
	return merged
}

// Trigger runs the agent once against input (wrapped as a one-shot message
// sequence) and returns its reply sequence immediately — the reply messages
// stream in as the agent body produces them.
func (a *Agent) Trigger(ctx *promising.Context, input message.Input, kw ...KWArg) *message.MessageSequencePromise {
	inputSeq := message.NewSequencePromise(ctx, false)
	inputSeq.Append(input)
	inputSeq.Close()
	inputSeq.CloseUrgent()
	return a.trigger(ctx, inputSeq, kw...)
}

// trigger implements the execution contract: the agent body runs exactly
// once, scheduled on a Context-tracked background task so Trigger/InitiateCall
// never block on it; the reply sequence closes normally on a normal return,
// converts to an error message when errorsAsMessages is set, or otherwise
// ends the reply stream with the error and returns it to the background-task
// handler, which logs it.
func (a *Agent) trigger(ctx *promising.Context, inputSeq *message.MessageSequencePromise, kw ...KWArg) *message.MessageSequencePromise {
	replySeq := message.NewSequencePromise(ctx, ctx.StartSoonByDefault)
	kwargs := mergeKWArgs(a.kwargs, kw)

	ictx := &InteractionContext{
		ThisAgent:       a,
		MessagePromises: inputSeq,
		KWArgs:          kwargs,
		reply:           replySeq,
	}

	errorsAsMessages := a.errorsAsMessages || ctx.ErrorsAsMessages

	ctx.StartSoon(func() error {
		err := a.fn(ictx)
		if ictx.finishedEarly {
			return nil
		}
		if err == nil {
			replySeq.Close()
			replySeq.CloseUrgent()
			return nil
		}
		if errorsAsMessages {
			replySeq.Append(err)
			replySeq.Close()
			replySeq.CloseUrgent()
			return nil
		}
		replySeq.CloseWithError(err)
		replySeq.CloseUrgentWithError(err)
		// The error is the reply stream's terminal error and is also returned
		// so the background-task wrapper logs it.
		return err
	})

	scheduleAuditRecords(ctx, a, inputSeq, replySeq)

	return replySeq
}
