package interview

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

var (
	ErrAlreadyRunning = errors.New("interview already running")
	ErrNotRunning     = errors.New("interview not running")
)

const (
	followUpAck    = "Thanks for clarifying. Let's move on."
	wrapUpSpeech   = "Thank you for your time. Let me prepare your interview report."
	evaluatorGrace = 20 * time.Second
	persistGrace   = 10 * time.Second
	finalizeGrace  = 60 * time.Second

	minSpeakCeiling = 2 * time.Second
	maxSpeakCeiling = 12 * time.Second
	perCharSpeak    = 60 * time.Millisecond
)

// speakCeiling bounds how long an utterance may take to be confirmed spoken.
// Derived from text length so a stuck synthesizer cannot hang the turn.
func speakCeiling(text string) time.Duration {
	d := time.Duration(len(text)) * perCharSpeak
	if d < minSpeakCeiling {
		d = minSpeakCeiling
	}
	if d > maxSpeakCeiling {
		d = maxSpeakCeiling
	}
	return d
}

type outcome int

const (
	outcomeNext outcome = iota
	outcomeWrap
	outcomeStopped
	outcomeFatal
)

// resolveReason says what ended a listening turn.
type resolveReason int

const (
	resolvedSilence resolveReason = iota
	resolvedSubmit
	resolvedSkip
	resolvedDeadline
	resolvedStop
	resolvedEnded
)

// Orchestrator drives one interview end to end: it asks each configured
// question aloud, captures the spoken answer, has it judged, and finally
// scores the whole transcript. A single background goroutine owns the
// question loop; the exported control methods only flip guarded state or
// nudge channels the loop selects on.
type Orchestrator struct {
	cfg    Config
	out    SpeechOutput
	in     SpeechInput
	eval   TurnEvaluator
	scorer Scorer
	store  SessionStore
	cb     Callbacks

	mu         sync.Mutex
	phase      Phase
	index      int
	startTime  time.Time
	running    bool
	paused     bool
	sessionID  string
	roomURL    string
	records     []ResponseRecord
	transcript  strings.Builder
	result      *ScoringResult
	lastErr     string
	closingSaid bool

	questionGuard int32

	cancel   context.CancelFunc
	stopCh   chan struct{}
	stopOnce *sync.Once
	submitCh chan struct{}
	skipCh   chan struct{}
	pauseCh  chan struct{}
	resumeCh chan struct{}
	done     chan struct{}

	appendWG sync.WaitGroup
}

// New builds an orchestrator for one interview configuration. The store may
// be nil; everything else is required.
func New(cfg Config, out SpeechOutput, in SpeechInput, eval TurnEvaluator, scorer Scorer, store SessionStore, cb Callbacks) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if out == nil || in == nil || eval == nil || scorer == nil {
		return nil, fmt.Errorf("speech output, speech input, evaluator and scorer are required")
	}
	return &Orchestrator{
		cfg:    cfg,
		out:    out,
		in:     in,
		eval:   eval,
		scorer: scorer,
		store:  store,
		cb:     cb,
		phase:  PhaseIdle,
	}, nil
}

// SetRoom attaches the meeting room URL recorded with the session. Must be
// called before Start.
func (o *Orchestrator) SetRoom(url string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.roomURL = url
}

// Start launches the interview loop. Returns ErrAlreadyRunning if a run is
// already in flight.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return ErrAlreadyRunning
	}
	o.running = true
	o.paused = false
	o.index = 0
	o.records = nil
	o.result = nil
	o.lastErr = ""
	o.closingSaid = false
	o.sessionID = ""
	o.startTime = time.Now()
	o.phase = PhaseIdle
	o.stopCh = make(chan struct{})
	o.stopOnce = &sync.Once{}
	o.submitCh = make(chan struct{}, 1)
	o.skipCh = make(chan struct{}, 1)
	o.pauseCh = make(chan struct{}, 1)
	o.resumeCh = make(chan struct{}, 1)
	o.done = make(chan struct{})
	o.transcript.Reset()
	o.transcript.WriteString("AI INTERVIEW TRANSCRIPT\n")
	o.transcript.WriteString("Started at: " + o.startTime.UTC().Format(time.RFC3339) + "\n")
	o.transcript.WriteString(strings.Repeat("=", 50))
	runCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel
	o.mu.Unlock()

	go o.run(runCtx)
	return nil
}

// Stop ends the interview early. The partial transcript still gets finalized
// and scored. Safe to call from any goroutine, any number of times.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	if o.stopCh == nil {
		o.mu.Unlock()
		return
	}
	o.running = false
	o.paused = false
	once := o.stopOnce
	stop := o.stopCh
	cancel := o.cancel
	o.mu.Unlock()

	once.Do(func() { close(stop) })
	o.out.Stop()
	if cancel != nil {
		cancel()
	}
}

// Pause suspends the interview. An in-flight utterance is cancelled and the
// current listening turn is parked; captured answer text survives the pause.
func (o *Orchestrator) Pause() {
	o.mu.Lock()
	if !o.running || o.paused {
		o.mu.Unlock()
		return
	}
	o.paused = true
	pause := o.pauseCh
	o.mu.Unlock()

	o.out.Stop()
	select {
	case pause <- struct{}{}:
	default:
	}
}

// Resume continues a paused interview.
func (o *Orchestrator) Resume() {
	o.mu.Lock()
	if !o.running || !o.paused {
		o.mu.Unlock()
		return
	}
	o.paused = false
	resume := o.resumeCh
	o.mu.Unlock()

	select {
	case resume <- struct{}{}:
	default:
	}
}

// Submit resolves the current listening turn immediately with whatever has
// been captured so far. No-op outside listening.
func (o *Orchestrator) Submit() {
	o.mu.Lock()
	ch := o.submitCh
	o.mu.Unlock()
	if ch == nil {
		return
	}
	select {
	case ch <- struct{}{}:
	default:
	}
}

// Skip abandons the current question without evaluation and advances.
func (o *Orchestrator) Skip() {
	o.mu.Lock()
	ch := o.skipCh
	o.mu.Unlock()
	if ch == nil {
		return
	}
	select {
	case ch <- struct{}{}:
	default:
	}
}

// Repeat speaks the current question again.
func (o *Orchestrator) Repeat(ctx context.Context) error {
	o.mu.Lock()
	if !o.running {
		o.mu.Unlock()
		return ErrNotRunning
	}
	q := o.cfg.Questions[o.index]
	o.mu.Unlock()

	o.out.Stop()
	o.speak(ctx, q.Question)
	return nil
}

// State returns a copy of the observable orchestrator state.
func (o *Orchestrator) State() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return Snapshot{
		Phase:          o.phase,
		CurrentIndex:   o.index,
		TotalQuestions: len(o.cfg.Questions),
		StartTime:      o.startTime,
		Running:        o.running,
		Paused:         o.paused,
		SessionID:      o.sessionID,
		LastError:      o.lastErr,
	}
}

// Records returns a copy of the responses captured so far.
func (o *Orchestrator) Records() []ResponseRecord {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]ResponseRecord, len(o.records))
	copy(out, o.records)
	return out
}

// Result returns the terminal scoring result once the interview completed.
func (o *Orchestrator) Result() (ScoringResult, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.result == nil {
		return ScoringResult{}, false
	}
	return *o.result, true
}

// Transcript returns the full text transcript accumulated so far.
func (o *Orchestrator) Transcript() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.transcript.String()
}

// Done closes when the interview loop has fully exited. Nil before Start.
func (o *Orchestrator) Done() <-chan struct{} {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.done
}

func (o *Orchestrator) run(ctx context.Context) {
	o.mu.Lock()
	done := o.done
	o.mu.Unlock()
	defer close(done)

	o.createSession(ctx)

	final := outcomeWrap
	for o.isRunning() && ctx.Err() == nil {
		q, idx, ok := o.current()
		if !ok {
			break
		}
		out := o.runQuestion(ctx, q, idx)
		if out != outcomeNext {
			final = out
			break
		}
		if !o.advance() {
			break
		}
	}
	if !o.isRunning() || ctx.Err() != nil {
		final = outcomeStopped
	}

	if final == outcomeFatal {
		o.haltFatal()
		return
	}
	o.finish(final == outcomeStopped)
}

// runQuestion drives one question through speaking, listening and
// evaluating, including at most one follow-up. The guard rejects overlapping
// entry; the loop is the only caller in practice.
func (o *Orchestrator) runQuestion(ctx context.Context, q Question, idx int) outcome {
	if !atomic.CompareAndSwapInt32(&o.questionGuard, 0, 1) {
		return outcomeNext
	}
	defer atomic.StoreInt32(&o.questionGuard, 0)

	if !o.waitIfPaused(ctx) {
		return outcomeStopped
	}

	o.setPhase(PhaseSpeaking)
	if o.cb.OnQuestion != nil {
		o.cb.OnQuestion(q, idx)
	}
	o.appendTranscript(fmt.Sprintf("\n\nQ%d: %s\n", idx+1, q.Question))
	o.speak(ctx, q.Question)
	if !o.isRunning() || ctx.Err() != nil {
		return outcomeStopped
	}

	text, dur, reason, err := o.capture(ctx, q)
	if err != nil {
		if errors.Is(err, ErrInputUnsupported) {
			o.reportError(err)
			return outcomeFatal
		}
		if !BenignInputError(err) {
			o.reportError(fmt.Errorf("speech input: %w", err))
			o.record(q, orText(text, NoResponseSentinel), dur, false)
			return outcomeWrap
		}
	}
	if reason == resolvedStop {
		if strings.TrimSpace(text) != "" {
			o.record(q, text, dur, false)
		}
		return outcomeStopped
	}

	// Empty capture: record the sentinel and advance without evaluating.
	if strings.TrimSpace(text) == "" {
		o.record(q, NoResponseSentinel, dur, false)
		return outcomeNext
	}
	o.record(q, text, dur, false)

	if reason == resolvedSkip {
		return outcomeNext
	}

	o.setPhase(PhaseEvaluating)
	dec := o.decide(ctx, text)

	if dec.Action == ActionFollowUp {
		return o.runFollowUp(ctx, q, dec)
	}

	o.setPhase(PhaseSpeaking)
	o.speak(ctx, dec.Message)
	if !o.isRunning() || ctx.Err() != nil {
		return outcomeStopped
	}
	if dec.Action == ActionWrapUp {
		// the normalized wrap_up message already conveys closure
		o.mu.Lock()
		o.closingSaid = true
		o.mu.Unlock()
		return outcomeWrap
	}
	return outcomeNext
}

// runFollowUp asks the evaluator's follow-up question and captures the
// answer. The answer is acknowledged with a fixed line and never evaluated
// again, so each question triggers at most one follow-up.
func (o *Orchestrator) runFollowUp(ctx context.Context, q Question, dec TurnDecision) outcome {
	o.setPhase(PhaseSpeaking)
	o.appendTranscript("Follow-up: " + dec.Message + "\n")
	o.speak(ctx, dec.Message)
	if !o.isRunning() || ctx.Err() != nil {
		return outcomeStopped
	}

	text, dur, reason, err := o.capture(ctx, q)
	if err != nil {
		if errors.Is(err, ErrInputUnsupported) {
			o.reportError(err)
			return outcomeFatal
		}
		if !BenignInputError(err) {
			o.reportError(fmt.Errorf("speech input: %w", err))
			if strings.TrimSpace(text) != "" {
				o.record(q, text, dur, true)
			}
			return outcomeWrap
		}
	}
	if strings.TrimSpace(text) == "" {
		text = NoResponseSentinel
	}
	o.record(q, text, dur, true)
	if reason == resolvedStop {
		return outcomeStopped
	}

	o.setPhase(PhaseSpeaking)
	o.speak(ctx, followUpAck)
	if !o.isRunning() || ctx.Err() != nil {
		return outcomeStopped
	}
	return outcomeNext
}

// capture runs one listening turn. It resolves on the first of silence after
// speech, explicit submit, skip, the per-question deadline, stop, or the
// input stream ending. A pause parks the turn and restarts recognition on
// resume, keeping the finalized text captured so far.
func (o *Orchestrator) capture(ctx context.Context, q Question) (string, time.Duration, resolveReason, error) {
	o.setPhase(PhaseListening)
	begin := time.Now()

	o.mu.Lock()
	submit, skip, pause, stop := o.submitCh, o.skipCh, o.pauseCh, o.stopCh
	o.mu.Unlock()
	drain(submit)
	drain(skip)
	if !o.isPaused() {
		drain(pause)
	}

	if !o.waitIfPaused(ctx) {
		return "", time.Since(begin), resolvedStop, nil
	}

	handle, err := o.in.Start(ctx)
	if err != nil {
		return "", time.Since(begin), resolvedEnded, err
	}

	var finals strings.Builder
	partials := handle.Partials()
	finalsCh := handle.Finals()
	sil := newSilenceWatcher(o.cfg.SilenceWindow())
	defer func() { sil.Cancel() }()
	remaining := time.Duration(q.MaxResponseTime) * time.Second
	deadline := time.NewTimer(remaining)
	defer deadline.Stop()
	deadlineAt := time.Now().Add(remaining)

	captured := func() string { return strings.TrimSpace(finals.String()) }
	stopHandle := func() {
		if err := handle.Stop(); err != nil && !BenignInputError(err) {
			log.Printf("stopping recognition: %v", err)
		}
	}

	for {
		select {
		case <-ctx.Done():
			stopHandle()
			return captured(), time.Since(begin), resolvedStop, nil
		case <-stop:
			stopHandle()
			return captured(), time.Since(begin), resolvedStop, nil
		case <-pause:
			stopHandle()
			sil.Cancel()
			// freeze the deadline: paused time must not count against the
			// candidate's answer window
			remaining = time.Until(deadlineAt)
			if !deadline.Stop() {
				select {
				case <-deadline.C:
				default:
				}
			}
			if !o.waitIfPaused(ctx) {
				return captured(), time.Since(begin), resolvedStop, nil
			}
			if remaining < 0 {
				remaining = 0
			}
			deadline.Reset(remaining)
			deadlineAt = time.Now().Add(remaining)
			h, err := o.in.Start(ctx)
			if err != nil {
				return captured(), time.Since(begin), resolvedEnded, err
			}
			handle = h
			partials = h.Partials()
			finalsCh = h.Finals()
			sil = newSilenceWatcher(o.cfg.SilenceWindow())
		case p, ok := <-partials:
			if !ok {
				partials = nil
				continue
			}
			sil.Touch()
			o.emitPartial(strings.TrimSpace(finals.String() + p))
		case f, ok := <-finalsCh:
			if !ok {
				stopHandle()
				return captured(), time.Since(begin), resolvedEnded, nil
			}
			if s := strings.TrimSpace(f); s != "" {
				finals.WriteString(s)
				finals.WriteString(" ")
			}
			sil.Touch()
			o.emitPartial(captured())
		case <-sil.C():
			stopHandle()
			return captured(), time.Since(begin), resolvedSilence, nil
		case <-submit:
			stopHandle()
			return captured(), time.Since(begin), resolvedSubmit, nil
		case <-skip:
			stopHandle()
			return captured(), time.Since(begin), resolvedSkip, nil
		case <-deadline.C:
			stopHandle()
			return captured(), time.Since(begin), resolvedDeadline, nil
		}
	}
}

// decide asks the evaluator for a verdict and normalizes it. Evaluator
// failure of any kind degrades to the default decision; the ceiling and
// last-question overrides are applied locally regardless of what the
// evaluator said.
func (o *Orchestrator) decide(ctx context.Context, transcript string) TurnDecision {
	state := o.turnState()
	ectx, cancel := context.WithTimeout(ctx, evaluatorGrace)
	defer cancel()
	dec, err := o.eval.Evaluate(ectx, transcript, state)
	if err != nil {
		log.Printf("turn evaluation failed, using default: %v", err)
		dec = DefaultDecision()
	}
	return NormalizeDecision(dec, state, int(o.cfg.Ceiling().Seconds()))
}

// speak delivers one utterance with a bounded completion ceiling. A ceiling
// hit or cancellation counts as delivered; other synthesis errors are logged
// and surfaced but never end the interview.
func (o *Orchestrator) speak(ctx context.Context, text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	sctx, cancel := context.WithTimeout(ctx, speakCeiling(text))
	defer cancel()
	if err := o.out.Speak(sctx, text); err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return
		}
		o.reportError(fmt.Errorf("speech synthesis: %w", err))
	}
}

func (o *Orchestrator) createSession(ctx context.Context) {
	if o.store == nil {
		return
	}
	o.mu.Lock()
	roomURL := o.roomURL
	transcript := o.transcript.String()
	o.mu.Unlock()

	cctx, cancel := context.WithTimeout(ctx, persistGrace)
	defer cancel()
	id, err := o.store.CreateSession(cctx, roomURL, transcript)
	if err != nil {
		log.Printf("session create failed, continuing without persistence: %v", err)
		return
	}
	o.mu.Lock()
	o.sessionID = id
	o.mu.Unlock()
}

// record appends one response to the canonical list and transcript and
// fires a best-effort persistence append in the background.
func (o *Orchestrator) record(q Question, text string, dur time.Duration, followUp bool) {
	rec := ResponseRecord{
		QuestionID:      q.ID,
		QuestionText:    q.Question,
		ResponseText:    text,
		Timestamp:       time.Now(),
		DurationSeconds: dur.Seconds(),
		WordCount:       countWords(text),
		IsFollowUp:      followUp,
	}
	if text == NoResponseSentinel {
		rec.WordCount = 0
	}

	o.mu.Lock()
	o.records = append(o.records, rec)
	o.transcript.WriteString("A: " + text + "\n")
	sid := o.sessionID
	o.mu.Unlock()

	if o.cb.OnResponse != nil {
		o.cb.OnResponse(rec)
	}
	if o.store != nil && sid != "" {
		o.appendWG.Add(1)
		go func() {
			defer o.appendWG.Done()
			actx, cancel := context.WithTimeout(context.Background(), persistGrace)
			defer cancel()
			if err := o.store.AppendResponse(actx, sid, rec); err != nil {
				log.Printf("session append failed: %v", err)
			}
		}()
	}
}

// finish routes both natural wrap-up and early stop through the same
// terminal sequence: finalize the transcript, score it, persist the result,
// then report completion. Persistence failure only downgrades to
// locally-held results.
func (o *Orchestrator) finish(stopped bool) {
	o.setPhase(PhaseWrapUp)
	o.mu.Lock()
	closingSaid := o.closingSaid
	o.mu.Unlock()
	if !stopped && !closingSaid {
		o.speak(context.Background(), wrapUpSpeech)
	}
	o.out.Stop()
	o.appendWG.Wait()

	o.mu.Lock()
	o.transcript.WriteString("\n\nInterview completed at: " + time.Now().UTC().Format(time.RFC3339) + "\n")
	transcript := o.transcript.String()
	records := make([]ResponseRecord, len(o.records))
	copy(records, o.records)
	sid := o.sessionID
	o.mu.Unlock()

	fctx, cancel := context.WithTimeout(context.Background(), finalizeGrace)
	defer cancel()
	if o.store != nil && sid != "" {
		if err := o.store.Finalize(fctx, sid, transcript); err != nil {
			log.Printf("session finalize failed, results held locally: %v", err)
		}
	}

	result := o.scorer.Score(fctx, transcript, records)

	if o.store != nil && sid != "" {
		if err := o.store.SaveScoring(fctx, sid, result); err != nil {
			log.Printf("saving scoring failed, results held locally: %v", err)
		}
	}

	o.mu.Lock()
	o.result = &result
	o.running = false
	o.paused = false
	o.phase = PhaseCompleted
	o.mu.Unlock()
	if o.cb.OnPhase != nil {
		o.cb.OnPhase(PhaseCompleted)
	}
	if o.cb.OnComplete != nil {
		o.cb.OnComplete(result)
	}
}

// haltFatal ends the run without scoring: listening is impossible, so there
// is nothing meaningful to score.
func (o *Orchestrator) haltFatal() {
	o.out.Stop()
	o.appendWG.Wait()
	o.mu.Lock()
	o.running = false
	o.paused = false
	o.phase = PhaseIdle
	o.mu.Unlock()
	if o.cb.OnPhase != nil {
		o.cb.OnPhase(PhaseIdle)
	}
}

func (o *Orchestrator) waitIfPaused(ctx context.Context) bool {
	for {
		o.mu.Lock()
		paused := o.paused
		running := o.running
		resume := o.resumeCh
		stop := o.stopCh
		o.mu.Unlock()
		if !running || ctx.Err() != nil {
			return false
		}
		if !paused {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-stop:
			return false
		case <-resume:
		}
	}
}

func (o *Orchestrator) current() (Question, int, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.running || o.index >= len(o.cfg.Questions) {
		return Question{}, 0, false
	}
	return o.cfg.Questions[o.index], o.index, true
}

func (o *Orchestrator) advance() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.index+1 >= len(o.cfg.Questions) {
		return false
	}
	o.index++
	return true
}

func (o *Orchestrator) turnState() TurnState {
	o.mu.Lock()
	defer o.mu.Unlock()
	total := len(o.cfg.Questions)
	return TurnState{
		CurrentQuestion:    o.cfg.Questions[o.index].Question,
		TimeElapsedSec:     int(time.Since(o.startTime).Seconds()),
		QuestionsRemaining: total - o.index - 1,
		QuestionIndex:      o.index,
		TotalQuestions:     total,
	}
}

func (o *Orchestrator) setPhase(p Phase) {
	o.mu.Lock()
	changed := o.phase != p
	o.phase = p
	o.mu.Unlock()
	if changed && o.cb.OnPhase != nil {
		o.cb.OnPhase(p)
	}
}

func (o *Orchestrator) isRunning() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.running
}

func (o *Orchestrator) isPaused() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.paused
}

func (o *Orchestrator) appendTranscript(s string) {
	o.mu.Lock()
	o.transcript.WriteString(s)
	o.mu.Unlock()
}

func (o *Orchestrator) emitPartial(text string) {
	if o.cb.OnPartial != nil && text != "" {
		o.cb.OnPartial(text)
	}
}

func (o *Orchestrator) reportError(err error) {
	log.Printf("interview error: %v", err)
	o.mu.Lock()
	o.lastErr = err.Error()
	o.mu.Unlock()
	if o.cb.OnError != nil {
		o.cb.OnError(err)
	}
}

func countWords(s string) int {
	return len(strings.Fields(s))
}

func orText(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}

func drain(ch chan struct{}) {
	select {
	case <-ch:
	default:
	}
}
