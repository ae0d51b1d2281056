// Package relay implements the two-tier model selection policy: a
// primary responder that sees the full conversation history, and a
// stateless fallback responder that sees only the latest user text.
package relay

import (
	"context"
	"log"

	"github.com/saswatpal/handlewarrior/internal/history"
)

// FailureKind classifies a failed exchange with a model backend. Backend
// wrappers return plain errors; the relay layer collapses them into these
// kinds so callers branch on a value instead of on error text.
type FailureKind string

const (
	FailureNone         FailureKind = ""
	PrimaryUnavailable  FailureKind = "primary_unavailable"
	FallbackUnavailable FailureKind = "fallback_unavailable"
	TranscriptionFailed FailureKind = "transcription_failed"
	ImageAnalysisFailed FailureKind = "image_analysis_failed"
)

// Tier names the backend tier that produced a result.
type Tier string

const (
	TierPrimary  Tier = "primary"
	TierFallback Tier = "fallback"
)

// Result is the outcome of one responder exchange.
type Result struct {
	// Text is the reply to deliver. Empty unless Kind is FailureNone.
	Text string
	// Tier is the backend tier that produced Text or the terminal failure.
	Tier Tier
	// Kind is FailureNone on success.
	Kind FailureKind
	// Err is the error behind Kind, nil on success.
	Err error
	// PrimaryErr is set whenever the primary tier failed, even if the
	// fallback tier later succeeded.
	PrimaryErr error
}

// OK reports whether the exchange produced a deliverable reply.
func (r Result) OK() bool {
	return r.Kind == FailureNone
}

// Primary is the chat-completion backend used for normal conversation.
type Primary interface {
	ChatCompletion(ctx context.Context, turns []history.Turn) (string, error)
}

// Fallback is the memory-less secondary backend.
type Fallback interface {
	Complete(ctx context.Context, text string) (string, error)
}

// Coordinator binds the two responder strategies to the history store.
// WithMemory is the primary strategy; StatelessFallback deliberately
// bypasses history, so fallback replies never become conversational
// memory.
type Coordinator struct {
	History  *history.Store
	Primary  Primary
	Fallback Fallback
}

// WithMemory appends the user turn, runs the primary responder over the
// user's full history, and on success appends the reply and applies the
// retention window. When the primary fails the already-appended user turn
// stays in place.
func (c *Coordinator) WithMemory(ctx context.Context, userID int64, text string) Result {
	c.History.Append(userID, history.Turn{Role: history.RoleUser, Content: text})

	reply, err := c.Primary.ChatCompletion(ctx, c.History.GetOrCreate(userID))
	if err != nil {
		log.Printf("[relay] primary error: %v", err)
		return Result{Tier: TierPrimary, Kind: PrimaryUnavailable, Err: err, PrimaryErr: err}
	}

	c.History.Append(userID, history.Turn{Role: history.RoleAssistant, Content: reply})
	c.History.Trim(userID)
	return Result{Text: reply, Tier: TierPrimary}
}

// StatelessFallback sends only the given text to the fallback backend.
// It never reads or writes history.
func (c *Coordinator) StatelessFallback(ctx context.Context, text string) Result {
	reply, err := c.Fallback.Complete(ctx, text)
	if err != nil {
		log.Printf("[relay] fallback error: %v", err)
		return Result{Tier: TierFallback, Kind: FallbackUnavailable, Err: err}
	}
	return Result{Text: reply, Tier: TierFallback}
}

// Reply runs the text-message policy: primary with memory first, then the
// stateless fallback with exactly the latest user text. The returned
// result carries the primary error alongside the fallback outcome so the
// caller can record both.
func (c *Coordinator) Reply(ctx context.Context, userID int64, text string) Result {
	res := c.WithMemory(ctx, userID, text)
	if res.OK() {
		return res
	}

	fb := c.StatelessFallback(ctx, text)
	fb.PrimaryErr = res.Err
	return fb
}
