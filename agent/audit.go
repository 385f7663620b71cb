package agent

import (
	"context"

	"github.com/google/uuid"
	"github.com/voocel/miniagents/frozen"
	"github.com/voocel/miniagents/message"
	"github.com/voocel/miniagents/promising"
)

// AgentCallRecord links an invocation's call id, the alias of the agent
// invoked, and the hash keys of every message it was called with, ported
// from the original's AgentCallNode.
type AgentCallRecord struct{ rec *frozen.Record }

// Record returns the underlying frozen record.
func (r *AgentCallRecord) Record() *frozen.Record { return r.rec }

// AgentReplyRecord links a call id back to the hash keys of every reply
// message the agent produced, ported from the original's AgentReplyNode.
type AgentReplyRecord struct{ rec *frozen.Record }

// Record returns the underlying frozen record.
func (r *AgentReplyRecord) Record() *frozen.Record { return r.rec }

// scheduleAuditRecords schedules two independent background promises — one
// resolving the call record once the input is fully known, one resolving
// the reply record once the reply is fully known — exactly mirroring the
// original's AgentReplyMessageSequence._producer, which schedules
// AgentCallNode and AgentReplyNode as two separate
// Promise(schedule_immediately=True, ...) tasks specifically to avoid a
// deadlock that would occur if either record's resolution were awaited
// inline on the critical reply-streaming path.
func scheduleAuditRecords(ctx *promising.Context, a *Agent, inputSeq, replySeq *message.MessageSequencePromise) {
	callID := uuid.New()

	long := ctx.LongerHashKeys

	callPromise := promising.NewPromise(ctx, true, func() (*AgentCallRecord, error) {
		msgs, err := inputSeq.ResolveAll()
		if err != nil {
			return nil, err
		}
		return buildCallRecord(callID, a.alias, msgs, long)
	})

	promising.NewPromise(ctx, true, func() (*AgentReplyRecord, error) {
		msgs, err := replySeq.ResolveAll()
		if err != nil {
			return nil, err
		}
		record, err := buildReplyRecord(callID, a.alias, msgs, long)
		if err != nil {
			return nil, err
		}
		if _, cerr := callPromise.Resolve(); cerr == nil {
			ctx.PersistMessage(context.Background(), record.rec)
		}
		return record, nil
	})
}

func buildCallRecord(callID uuid.UUID, alias string, inputs []*message.Message, longHashKeys bool) (*AgentCallRecord, error) {
	hashKeys := make([]any, len(inputs))
	for i, m := range inputs {
		hashKeys[i] = m.HashKey(longHashKeys)
	}
	rec, err := frozen.New("AgentCallRecord", map[string]any{
		"call_id":         callID,
		"alias":           alias,
		"input_hash_keys": hashKeys,
	})
	if err != nil {
		return nil, err
	}
	return &AgentCallRecord{rec: rec}, nil
}

func buildReplyRecord(callID uuid.UUID, alias string, replies []*message.Message, longHashKeys bool) (*AgentReplyRecord, error) {
	hashKeys := make([]any, len(replies))
	for i, m := range replies {
		hashKeys[i] = m.HashKey(longHashKeys)
	}
	rec, err := frozen.New("AgentReplyRecord", map[string]any{
		"call_id":         callID,
		"alias":           alias,
		"reply_hash_keys": hashKeys,
	})
	if err != nil {
		return nil, err
	}
	return &AgentReplyRecord{rec: rec}, nil
}
