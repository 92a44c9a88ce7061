package interview

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

func testConfig(n int, silenceMS, maxRespSec int) Config {
	cfg := Config{DurationMinutes: 10, SilenceWindowMS: silenceMS}
	base := DefaultConfig()
	for i := 0; i < n; i++ {
		q := base.Questions[i%len(base.Questions)]
		q.ID = q.ID + "_" + string(rune('a'+i))
		q.MaxResponseTime = maxRespSec
		cfg.Questions = append(cfg.Questions, q)
	}
	return cfg
}

type fakeOutput struct {
	mu     sync.Mutex
	spoken []string
}

func (f *fakeOutput) Speak(ctx context.Context, text string) error {
	f.mu.Lock()
	f.spoken = append(f.spoken, text)
	f.mu.Unlock()
	return nil
}

func (f *fakeOutput) Stop() {}

func (f *fakeOutput) utterances() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.spoken))
	copy(out, f.spoken)
	return out
}

type scriptedHandle struct {
	partials chan string
	finals   chan string
	stopped  chan struct{}
	once     sync.Once
}

func newScriptedHandle() *scriptedHandle {
	return &scriptedHandle{
		partials: make(chan string, 4),
		finals:   make(chan string, 4),
		stopped:  make(chan struct{}),
	}
}

func (h *scriptedHandle) Partials() <-chan string { return h.partials }
func (h *scriptedHandle) Finals() <-chan string   { return h.finals }
func (h *scriptedHandle) Stop() error {
	h.once.Do(func() { close(h.stopped) })
	return nil
}

// scriptedInput delivers one canned final transcript per listening turn. An
// empty string means the turn stays silent until the deadline.
type scriptedInput struct {
	mu      sync.Mutex
	answers []string
	calls   int
	err     error
}

func (s *scriptedInput) Start(ctx context.Context) (ListenHandle, error) {
	s.mu.Lock()
	idx := s.calls
	s.calls++
	err := s.err
	var answer string
	if idx < len(s.answers) {
		answer = s.answers[idx]
	}
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	h := newScriptedHandle()
	if answer != "" {
		h.finals <- answer
	}
	return h, nil
}

func (s *scriptedInput) startCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// manualInput hands each started listening turn to the test for direct
// control of its channels.
type manualInput struct {
	handles chan *scriptedHandle
}

func newManualInput() *manualInput {
	return &manualInput{handles: make(chan *scriptedHandle, 4)}
}

func (m *manualInput) Start(ctx context.Context) (ListenHandle, error) {
	h := newScriptedHandle()
	m.handles <- h
	return h, nil
}

type fakeEvaluator struct {
	mu          sync.Mutex
	calls       int
	transcripts []string
	fn          func(call int, transcript string, state TurnState) (TurnDecision, error)
}

func (f *fakeEvaluator) Evaluate(ctx context.Context, transcript string, state TurnState) (TurnDecision, error) {
	f.mu.Lock()
	call := f.calls
	f.calls++
	f.transcripts = append(f.transcripts, transcript)
	fn := f.fn
	f.mu.Unlock()
	if fn != nil {
		return fn(call, transcript, state)
	}
	return TurnDecision{ResponseQuality: QualityComplete, Action: ActionNext, Message: "Great, next question."}, nil
}

func (f *fakeEvaluator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeScorer struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeScorer) Score(ctx context.Context, transcript string, responses []ResponseRecord) ScoringResult {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return ScoringResult{OverallScore: 7, Decision: DecisionMaybe, Summary: "scored"}
}

func (f *fakeScorer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeStore struct {
	mu        sync.Mutex
	creates   int
	appends   []ResponseRecord
	finalizes int
	scorings  int
	failAll   bool
}

func (f *fakeStore) CreateSession(ctx context.Context, roomURL, transcript string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return "", errors.New("store down")
	}
	f.creates++
	return "session-1", nil
}

func (f *fakeStore) AppendResponse(ctx context.Context, id string, rec ResponseRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return errors.New("store down")
	}
	f.appends = append(f.appends, rec)
	return nil
}

func (f *fakeStore) Finalize(ctx context.Context, id, transcript string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return errors.New("store down")
	}
	f.finalizes++
	return nil
}

func (f *fakeStore) SaveScoring(ctx context.Context, id string, result ScoringResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return errors.New("store down")
	}
	f.scorings++
	return nil
}

func (f *fakeStore) counts() (int, int, int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.creates, len(f.appends), f.finalizes, f.scorings
}

func waitDone(t *testing.T, o *Orchestrator, timeout time.Duration) {
	t.Helper()
	select {
	case <-o.Done():
	case <-time.After(timeout):
		t.Fatalf("interview did not finish within %v, phase=%s", timeout, o.State().Phase)
	}
}

func waitPhase(t *testing.T, o *Orchestrator, p Phase, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if o.State().Phase == p {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("phase never reached %s, still %s", p, o.State().Phase)
}

func TestRunAllQuestionsToCompletion(t *testing.T) {
	cfg := testConfig(3, 40, 30)
	out := &fakeOutput{}
	in := &scriptedInput{answers: []string{
		"I have two years of SDR experience and love the craft.",
		"I research the prospect first and open with a clear value proposition.",
		"I acknowledge the objection and probe for the real concern.",
	}}
	eval := &fakeEvaluator{}
	scorer := &fakeScorer{}
	store := &fakeStore{}

	o, err := New(cfg, out, in, eval, scorer, store, Callbacks{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := o.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := o.Start(context.Background()); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("second Start = %v, want ErrAlreadyRunning", err)
	}
	waitDone(t, o, 15*time.Second)

	if got := o.State().Phase; got != PhaseCompleted {
		t.Fatalf("phase = %s, want completed", got)
	}
	recs := o.Records()
	if len(recs) != 3 {
		t.Fatalf("records = %d, want 3", len(recs))
	}
	for i, rec := range recs {
		if rec.QuestionID != cfg.Questions[i].ID {
			t.Errorf("record %d question = %s, want %s", i, rec.QuestionID, cfg.Questions[i].ID)
		}
		if rec.WordCount == 0 {
			t.Errorf("record %d word count = 0", i)
		}
	}
	if eval.callCount() != 3 {
		t.Errorf("evaluator calls = %d, want 3", eval.callCount())
	}
	if scorer.callCount() != 1 {
		t.Errorf("scorer calls = %d, want 1", scorer.callCount())
	}
	creates, appends, finalizes, scorings := store.counts()
	if creates != 1 || appends != 3 || finalizes != 1 || scorings != 1 {
		t.Errorf("store ops = %d/%d/%d/%d, want 1/3/1/1", creates, appends, finalizes, scorings)
	}
	if _, ok := o.Result(); !ok {
		t.Error("no scoring result after completion")
	}
	ts := o.Transcript()
	if !strings.Contains(ts, "Q1: "+cfg.Questions[0].Question) {
		t.Error("transcript missing first question line")
	}
	if !strings.Contains(ts, "A: "+in.answers[2]) {
		t.Error("transcript missing last answer line")
	}
	spoken := out.utterances()
	if len(spoken) == 0 || spoken[0] != cfg.Questions[0].Question {
		t.Fatalf("first utterance = %q, want the first question", spoken)
	}
}

func TestEmptyAnswerRecordsSentinelWithoutEvaluation(t *testing.T) {
	cfg := testConfig(2, 40, 1)
	out := &fakeOutput{}
	in := &scriptedInput{answers: []string{"", "A thoughtful answer about qualification."}}
	eval := &fakeEvaluator{}
	scorer := &fakeScorer{}

	o, err := New(cfg, out, in, eval, scorer, nil, Callbacks{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := o.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitDone(t, o, 15*time.Second)

	recs := o.Records()
	if len(recs) != 2 {
		t.Fatalf("records = %d, want 2", len(recs))
	}
	if recs[0].ResponseText != NoResponseSentinel {
		t.Fatalf("first record = %q, want sentinel", recs[0].ResponseText)
	}
	if recs[0].WordCount != 0 {
		t.Errorf("sentinel word count = %d, want 0", recs[0].WordCount)
	}
	if eval.callCount() != 1 {
		t.Fatalf("evaluator calls = %d, want 1 (sentinel must not be judged)", eval.callCount())
	}
	for _, tr := range eval.transcripts {
		if strings.Contains(tr, NoResponseSentinel) {
			t.Fatalf("sentinel leaked into evaluator transcript: %q", tr)
		}
	}
}

func TestFollowUpLimitedToOnePerQuestion(t *testing.T) {
	cfg := testConfig(2, 40, 30)
	out := &fakeOutput{}
	in := &scriptedInput{answers: []string{
		"A short answer.",
		"Some more detail on the same topic.",
		"Answer to the second question.",
	}}
	eval := &fakeEvaluator{fn: func(call int, transcript string, state TurnState) (TurnDecision, error) {
		// adversarial: always demands another follow-up
		return TurnDecision{
			ResponseQuality: QualityIncomplete,
			Action:          ActionFollowUp,
			Message:         "Could you expand on that?",
		}, nil
	}}
	scorer := &fakeScorer{}

	o, err := New(cfg, out, in, eval, scorer, nil, Callbacks{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := o.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitDone(t, o, 15*time.Second)

	// question 1: main + one follow-up. question 2 is the last question, so
	// the follow_up verdict is overridden to wrap_up: main answer only.
	recs := o.Records()
	if len(recs) != 3 {
		t.Fatalf("records = %d, want 3", len(recs))
	}
	if recs[0].IsFollowUp || !recs[1].IsFollowUp || recs[2].IsFollowUp {
		t.Fatalf("follow-up flags = %v/%v/%v, want false/true/false",
			recs[0].IsFollowUp, recs[1].IsFollowUp, recs[2].IsFollowUp)
	}
	if eval.callCount() != 2 {
		t.Fatalf("evaluator calls = %d, want 2 (follow-up answers are never re-judged)", eval.callCount())
	}
	if o.State().Phase != PhaseCompleted {
		t.Fatalf("phase = %s, want completed", o.State().Phase)
	}
}

func TestEvaluatorFailureFallsBackToDefault(t *testing.T) {
	cfg := testConfig(2, 40, 30)
	out := &fakeOutput{}
	in := &scriptedInput{answers: []string{"First answer.", "Second answer."}}
	eval := &fakeEvaluator{fn: func(call int, transcript string, state TurnState) (TurnDecision, error) {
		return TurnDecision{}, errors.New("judge unreachable")
	}}
	scorer := &fakeScorer{}

	o, err := New(cfg, out, in, eval, scorer, nil, Callbacks{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := o.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitDone(t, o, 15*time.Second)

	if got := o.State().Phase; got != PhaseCompleted {
		t.Fatalf("phase = %s, want completed despite evaluator failures", got)
	}
	if len(o.Records()) != 2 {
		t.Fatalf("records = %d, want 2", len(o.Records()))
	}
	if scorer.callCount() != 1 {
		t.Fatalf("scorer calls = %d, want 1", scorer.callCount())
	}
}

func TestStopMidListeningScoresPartialTranscript(t *testing.T) {
	cfg := testConfig(3, 40, 30)
	out := &fakeOutput{}
	in := &scriptedInput{answers: []string{"An answer to the first question."}}
	scorer := &fakeScorer{}
	store := &fakeStore{}

	o, err := New(cfg, out, in, &fakeEvaluator{}, scorer, store, Callbacks{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := o.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	// let question 1 complete, then stop during question 2's silence.
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if len(o.Records()) == 1 && o.State().Phase == PhaseListening {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	o.Stop()
	waitDone(t, o, 10*time.Second)

	if got := o.State().Phase; got != PhaseCompleted {
		t.Fatalf("phase = %s, want completed", got)
	}
	if scorer.callCount() != 1 {
		t.Fatalf("scorer calls = %d, want 1", scorer.callCount())
	}
	_, _, finalizes, scorings := store.counts()
	if finalizes != 1 || scorings != 1 {
		t.Fatalf("finalize/scoring = %d/%d, want 1/1", finalizes, scorings)
	}
	if len(o.Records()) != 1 {
		t.Fatalf("records = %d, want the one completed answer", len(o.Records()))
	}
}

func TestSubmitResolvesSilentTurn(t *testing.T) {
	cfg := testConfig(1, 40, 30)
	out := &fakeOutput{}
	in := &scriptedInput{answers: []string{""}}
	scorer := &fakeScorer{}

	o, err := New(cfg, out, in, &fakeEvaluator{}, scorer, nil, Callbacks{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := o.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitPhase(t, o, PhaseListening, 5*time.Second)
	o.Submit()
	waitDone(t, o, 10*time.Second)

	recs := o.Records()
	if len(recs) != 1 || recs[0].ResponseText != NoResponseSentinel {
		t.Fatalf("records = %+v, want one sentinel record", recs)
	}
}

func TestSkipAdvancesWithoutEvaluation(t *testing.T) {
	cfg := testConfig(2, 40, 30)
	out := &fakeOutput{}
	in := newManualInput()
	eval := &fakeEvaluator{}
	scorer := &fakeScorer{}

	o, err := New(cfg, out, in, eval, scorer, nil, Callbacks{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := o.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	h1 := <-in.handles
	h1.finals <- "An answer that should be kept but not judged."
	waitPhase(t, o, PhaseListening, 5*time.Second)
	time.Sleep(20 * time.Millisecond)
	o.Skip()

	h2 := <-in.handles
	h2.finals <- "Second answer."
	waitDone(t, o, 10*time.Second)

	recs := o.Records()
	if len(recs) != 2 {
		t.Fatalf("records = %d, want 2", len(recs))
	}
	if !strings.Contains(recs[0].ResponseText, "not judged") {
		t.Fatalf("skip dropped the captured text: %q", recs[0].ResponseText)
	}
	if eval.callCount() != 1 {
		t.Fatalf("evaluator calls = %d, want 1 (skipped answer must not be judged)", eval.callCount())
	}
}

func TestWrapUpDecisionSpeaksOneClosing(t *testing.T) {
	cfg := testConfig(3, 40, 30)
	out := &fakeOutput{}
	in := &scriptedInput{answers: []string{"That is everything I wanted to say."}}
	eval := &fakeEvaluator{fn: func(call int, transcript string, state TurnState) (TurnDecision, error) {
		return TurnDecision{
			ResponseQuality: QualityComplete,
			Action:          ActionWrapUp,
			Message:         "That covers it. Thank you for your time. Let's wrap up the interview.",
		}, nil
	}}
	scorer := &fakeScorer{}

	o, err := New(cfg, out, in, eval, scorer, nil, Callbacks{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := o.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitDone(t, o, 15*time.Second)

	if got := o.State().Phase; got != PhaseCompleted {
		t.Fatalf("phase = %s, want completed", got)
	}
	closings := 0
	for _, s := range out.utterances() {
		if s == wrapUpSpeech || strings.Contains(s, "wrap up") {
			closings++
		}
	}
	if closings != 1 {
		t.Fatalf("closing lines spoken = %d, want exactly 1: %q", closings, out.utterances())
	}
}

func TestPauseDoesNotConsumeAnswerDeadline(t *testing.T) {
	cfg := testConfig(1, 40, 1)
	out := &fakeOutput{}
	in := newManualInput()
	scorer := &fakeScorer{}

	o, err := New(cfg, out, in, &fakeEvaluator{}, scorer, nil, Callbacks{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := o.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	h1 := <-in.handles
	waitPhase(t, o, PhaseListening, 5*time.Second)
	o.Pause()
	select {
	case <-h1.stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("pause did not stop the active recognition turn")
	}
	// pause for longer than the whole 1s answer window
	time.Sleep(1200 * time.Millisecond)
	o.Resume()

	h2 := <-in.handles
	h2.finals <- "An answer delivered after a long pause."
	waitDone(t, o, 10*time.Second)

	recs := o.Records()
	if len(recs) != 1 {
		t.Fatalf("records = %d, want 1", len(recs))
	}
	if recs[0].ResponseText != "An answer delivered after a long pause." {
		t.Fatalf("response = %q, the deadline must not expire while paused", recs[0].ResponseText)
	}
}

func TestPauseResumeKeepsCapturedText(t *testing.T) {
	cfg := testConfig(1, 60, 30)
	out := &fakeOutput{}
	in := newManualInput()
	scorer := &fakeScorer{}

	o, err := New(cfg, out, in, &fakeEvaluator{}, scorer, nil, Callbacks{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := o.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	h1 := <-in.handles
	h1.finals <- "The first half of my answer"
	time.Sleep(20 * time.Millisecond)
	o.Pause()
	select {
	case <-h1.stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("pause did not stop the active recognition turn")
	}
	if got := o.State(); !got.Paused {
		t.Fatal("state not paused")
	}
	o.Resume()

	h2 := <-in.handles
	h2.finals <- "and the second half after the break."
	waitDone(t, o, 10*time.Second)

	recs := o.Records()
	if len(recs) != 1 {
		t.Fatalf("records = %d, want 1", len(recs))
	}
	want := "The first half of my answer and the second half after the break."
	if recs[0].ResponseText != want {
		t.Fatalf("response = %q, want %q", recs[0].ResponseText, want)
	}
}

func TestUnsupportedInputHaltsWithoutScoring(t *testing.T) {
	cfg := testConfig(2, 40, 30)
	out := &fakeOutput{}
	in := &scriptedInput{err: ErrInputUnsupported}
	scorer := &fakeScorer{}
	var gotErr error
	var mu sync.Mutex

	o, err := New(cfg, out, in, &fakeEvaluator{}, scorer, nil, Callbacks{
		OnError: func(e error) {
			mu.Lock()
			gotErr = e
			mu.Unlock()
		},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := o.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitDone(t, o, 10*time.Second)

	if got := o.State().Phase; got != PhaseIdle {
		t.Fatalf("phase = %s, want idle", got)
	}
	if scorer.callCount() != 0 {
		t.Fatalf("scorer calls = %d, want 0", scorer.callCount())
	}
	mu.Lock()
	defer mu.Unlock()
	if !errors.Is(gotErr, ErrInputUnsupported) {
		t.Fatalf("surfaced error = %v, want ErrInputUnsupported", gotErr)
	}
}

func TestStoreFailureDowngradesToLocalResults(t *testing.T) {
	cfg := testConfig(1, 40, 30)
	out := &fakeOutput{}
	in := &scriptedInput{answers: []string{"An answer."}}
	scorer := &fakeScorer{}
	store := &fakeStore{failAll: true}

	o, err := New(cfg, out, in, &fakeEvaluator{}, scorer, store, Callbacks{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := o.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitDone(t, o, 10*time.Second)

	if got := o.State().Phase; got != PhaseCompleted {
		t.Fatalf("phase = %s, want completed despite store failures", got)
	}
	if res, ok := o.Result(); !ok || res.Summary != "scored" {
		t.Fatalf("local result missing: %+v ok=%v", res, ok)
	}
}

func TestSpeakCeilingBounds(t *testing.T) {
	cases := []struct {
		text string
		want time.Duration
	}{
		{"", minSpeakCeiling},
		{"hi", minSpeakCeiling},
		{strings.Repeat("x", 100), 6 * time.Second},
		{strings.Repeat("x", 1000), maxSpeakCeiling},
	}
	for _, tc := range cases {
		if got := speakCeiling(tc.text); got != tc.want {
			t.Errorf("speakCeiling(%d chars) = %v, want %v", len(tc.text), got, tc.want)
		}
	}
}
