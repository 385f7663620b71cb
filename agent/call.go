package agent

import (
	"sync"

	"github.com/voocel/miniagents/message"
	"github.com/voocel/miniagents/promising"
)

// AgentCall is a fine-grained handle for initiating an agent invocation
// whose input is assembled incrementally, possibly across several calls,
// before the caller decides the input is complete. It mirrors the
// original's AgentCall/MiniAgent.initiate_inquiry pair: the reply sequence
// can be obtained (and start streaming) before the input is finished.
type AgentCall struct {
	agent *Agent
	ctx   *promising.Context
	kw    []KWArg
	input *message.MessageSequencePromise

	mu    sync.Mutex
	reply *message.MessageSequencePromise
}

// InitiateCall begins a call to a without running it yet: the agent body is
// only scheduled once ReplySequence or Finish is called.
func (a *Agent) InitiateCall(ctx *promising.Context, kw ...KWArg) *AgentCall {
	return &AgentCall{
		agent: a,
		ctx:   ctx,
		kw:    kw,
		input: message.NewSequencePromise(ctx, false),
	}
}

// Send appends input to the call's normal input stream and returns the call
// for chaining.
func (c *AgentCall) Send(input message.Input) *AgentCall {
	c.input.Append(input)
	return c
}

// SendOutOfOrder appends input to the call's high-priority input stream and
// returns the call for chaining.
func (c *AgentCall) SendOutOfOrder(input message.Input) *AgentCall {
	c.input.AppendUrgent(input)
	return c
}

// ReplySequence returns the agent's reply sequence, triggering the agent on
// first call. If finishCall is true, the input stream is closed first, so
// the agent body sees a complete, known-length input; if false, the input
// stream is left open for further Send/SendOutOfOrder calls, at the caller's
// own risk of deadlock if the agent body blocks waiting for input to close
// before replying.
func (c *AgentCall) ReplySequence(finishCall bool) *message.MessageSequencePromise {
	c.mu.Lock()
	defer c.mu.Unlock()
	if finishCall {
		c.input.Close()
		c.input.CloseUrgent()
	}
	if c.reply == nil {
		c.reply = c.agent.trigger(c.ctx, c.input, c.kw...)
	}
	return c.reply
}

// Finish closes the input stream and returns the reply sequence,
// equivalent to ReplySequence(true).
func (c *AgentCall) Finish() *message.MessageSequencePromise {
	return c.ReplySequence(true)
}
