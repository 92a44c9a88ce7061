package speech

import (
	"bufio"
	"context"
	"io"
	"log"
	"sync"
	"time"

	"github.com/chadiek/interview-demo/internal/interview"
)

// LogOutput prints utterances instead of synthesizing them. Used for
// headless runs and demos.
type LogOutput struct {
	// PacePerChar simulates speaking time. Zero means instant.
	PacePerChar time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
}

func (l *LogOutput) Speak(ctx context.Context, text string) error {
	sctx, cancel := context.WithCancel(ctx)
	l.mu.Lock()
	l.cancel = cancel
	l.mu.Unlock()
	defer cancel()

	log.Printf("interviewer: %s", text)
	if l.PacePerChar <= 0 {
		return nil
	}
	select {
	case <-time.After(time.Duration(len(text)) * l.PacePerChar):
		return nil
	case <-sctx.Done():
		return sctx.Err()
	}
}

func (l *LogOutput) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		l.cancel()
	}
}

// TextInput turns lines from a reader into finalized transcript segments.
// A single pump goroutine owns the reader so a line typed between turns is
// never swallowed by a stopped handle. An interactive run points it at
// stdin; EOF ends the current listening turn.
type TextInput struct {
	lines chan string
}

func NewTextInput(r io.Reader) *TextInput {
	t := &TextInput{lines: make(chan string)}
	go func() {
		defer close(t.lines)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			t.lines <- sc.Text()
		}
	}()
	return t
}

func (t *TextInput) Start(ctx context.Context) (interview.ListenHandle, error) {
	h := newChanHandle()
	go func() {
		for {
			select {
			case line, ok := <-t.lines:
				if !ok {
					close(h.finals)
					return
				}
				select {
				case h.finals <- line:
				case <-h.stopCh:
					return
				case <-ctx.Done():
					return
				}
			case <-h.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
	return h, nil
}

// ScriptedInput replays canned answers, one per listening turn. An empty
// answer means the turn stays silent.
type ScriptedInput struct {
	Answers []string
	// Delay before each answer is delivered.
	Delay time.Duration

	mu   sync.Mutex
	next int
}

func (s *ScriptedInput) Start(ctx context.Context) (interview.ListenHandle, error) {
	s.mu.Lock()
	var answer string
	if s.next < len(s.Answers) {
		answer = s.Answers[s.next]
	}
	s.next++
	delay := s.Delay
	s.mu.Unlock()

	h := newChanHandle()
	go func() {
		if answer == "" {
			return
		}
		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-h.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
		select {
		case h.finals <- answer:
		case <-h.stopCh:
		case <-ctx.Done():
		}
	}()
	return h, nil
}

type chanHandle struct {
	partials chan string
	finals   chan string
	stopCh   chan struct{}
	once     sync.Once
}

func newChanHandle() *chanHandle {
	return &chanHandle{
		partials: make(chan string, 8),
		finals:   make(chan string, 8),
		stopCh:   make(chan struct{}),
	}
}

func (h *chanHandle) Partials() <-chan string { return h.partials }
func (h *chanHandle) Finals() <-chan string   { return h.finals }
func (h *chanHandle) Stop() error {
	h.closeOnce()
	return nil
}

func (h *chanHandle) closeOnce() {
	h.once.Do(func() { close(h.stopCh) })
}
