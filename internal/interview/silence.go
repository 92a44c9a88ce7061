package interview

import (
	"sync"
	"time"
)

// silenceWatcher raises a single end-of-turn signal after a quiet window with
// no new input. The countdown is armed by the first Touch, so a turn with no
// speech at all never resolves through silence; Touch resets it, Cancel
// disarms it so a late fire cannot double-resolve a turn that already ended
// via submit or deadline.
type silenceWatcher struct {
	mu     sync.Mutex
	window time.Duration
	timer  *time.Timer
	fired  chan struct{}
	done   bool
}

func newSilenceWatcher(window time.Duration) *silenceWatcher {
	return &silenceWatcher{window: window, fired: make(chan struct{})}
}

// C signals once when the quiet window elapses after the last Touch.
func (w *silenceWatcher) C() <-chan struct{} { return w.fired }

// Touch arms or resets the countdown. No-op after the watcher fired or was
// cancelled.
func (w *silenceWatcher) Touch() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.done {
		return
	}
	if w.timer == nil {
		w.timer = time.AfterFunc(w.window, w.fire)
		return
	}
	w.timer.Stop()
	w.timer.Reset(w.window)
}

// Cancel disarms the watcher.
func (w *silenceWatcher) Cancel() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.done {
		return
	}
	w.done = true
	if w.timer != nil {
		w.timer.Stop()
	}
}

func (w *silenceWatcher) fire() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.done {
		return
	}
	w.done = true
	close(w.fired)
}
