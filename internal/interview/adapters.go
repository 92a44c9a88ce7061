package interview

import (
	"context"
	"errors"
)

// Sentinel errors used to classify adapter failures. Benign listening errors
// (no speech heard, user-initiated stop) are swallowed; anything else during
// listening is surfaced and routes the interview to wrap_up.
var (
	// ErrInputUnsupported means speech input cannot run at all. Fatal: no
	// further listening is possible.
	ErrInputUnsupported = errors.New("speech input not supported")
	// ErrNoSpeech means the recognizer heard nothing. Benign.
	ErrNoSpeech = errors.New("no speech detected")
	// ErrAborted means recognition was stopped deliberately. Benign.
	ErrAborted = errors.New("recognition aborted")
)

// BenignInputError reports whether a speech input error can be ignored.
func BenignInputError(err error) bool {
	return errors.Is(err, ErrNoSpeech) || errors.Is(err, ErrAborted)
}

// SpeechOutput synthesizes one utterance at a time. Speak blocks until the
// utterance has been fully delivered, the context is done, or the
// implementation's own completion ceiling elapses; the orchestrator treats a
// ceiling hit as completion. Stop cancels any in-flight utterance.
type SpeechOutput interface {
	Speak(ctx context.Context, text string) error
	Stop()
}

// ListenHandle is one live recognition turn. Partials streams the running
// interim transcript; Finals streams finalized segments to be accumulated in
// order. Both channels close after Stop or when the underlying stream ends.
type ListenHandle interface {
	Partials() <-chan string
	Finals() <-chan string
	Stop() error
}

// SpeechInput starts a recognition turn. The orchestrator owns the single
// input channel: it always stops the previous handle before starting a new
// one.
type SpeechInput interface {
	Start(ctx context.Context) (ListenHandle, error)
}

// TurnEvaluator judges one captured answer. Implementations must absorb
// transport and parse failures into a safe default decision rather than
// returning an error for them; a returned error is treated the same as a
// default decision by the orchestrator, so the interview never stalls on
// judge failure.
type TurnEvaluator interface {
	Evaluate(ctx context.Context, transcript string, state TurnState) (TurnDecision, error)
}

// Scorer produces the terminal ScoringResult. It never fails: when the
// judgment service is unavailable it computes the deterministic fallback.
type Scorer interface {
	Score(ctx context.Context, transcript string, responses []ResponseRecord) ScoringResult
}

// SessionStore is the durability boundary. Appends are best-effort and must
// never block the interview; Finalize is awaited but its failure only
// downgrades to locally-held results.
type SessionStore interface {
	CreateSession(ctx context.Context, roomURL, transcript string) (string, error)
	AppendResponse(ctx context.Context, id string, rec ResponseRecord) error
	Finalize(ctx context.Context, id, transcript string) error
	SaveScoring(ctx context.Context, id string, result ScoringResult) error
}

// Callbacks let a host surface orchestrator progress. All fields are
// optional.
type Callbacks struct {
	OnPhase    func(phase Phase)
	OnQuestion func(q Question, index int)
	OnPartial  func(text string)
	OnResponse func(rec ResponseRecord)
	OnError    func(err error)
	OnComplete func(result ScoringResult)
}
