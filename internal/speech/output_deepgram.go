package speech

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	msginterfaces "github.com/deepgram/deepgram-go-sdk/pkg/api/speak/v1/websocket/interfaces"
	clientinterfaces "github.com/deepgram/deepgram-go-sdk/pkg/client/interfaces/v1"
	"github.com/deepgram/deepgram-go-sdk/pkg/client/speak"
)

// Sink receives synthesized 48kHz linear16 PCM for delivery to the room's
// audio track.
type Sink interface {
	Write(pcm []byte) error
}

// NopSink discards audio. Useful when no room transport is wired up.
type NopSink struct{}

func (NopSink) Write([]byte) error { return nil }

// DeepgramOutput synthesizes one utterance at a time over the Deepgram
// speak websocket. Speak blocks until the audio stream has drained; Stop
// cancels whatever is in flight.
type DeepgramOutput struct {
	apiKey     string
	model      string
	sampleRate int
	encoding   string
	sink       Sink

	mu     sync.Mutex
	cancel context.CancelFunc
}

func NewDeepgramOutput(apiKey, model string, sink Sink) *DeepgramOutput {
	if model == "" {
		model = "aura-2-thalia-en"
	}
	if sink == nil {
		sink = NopSink{}
	}
	return &DeepgramOutput{
		apiKey:     apiKey,
		model:      model,
		sampleRate: 48000,
		encoding:   "linear16",
		sink:       sink,
	}
}

func (d *DeepgramOutput) Speak(ctx context.Context, text string) error {
	if text == "" {
		return nil
	}
	if d.apiKey == "" {
		return fmt.Errorf("deepgram: API key missing")
	}

	sctx, cancel := context.WithCancel(ctx)
	d.mu.Lock()
	d.cancel = cancel
	d.mu.Unlock()
	defer cancel()

	options := &clientinterfaces.WSSpeakOptions{
		Model:      d.model,
		Encoding:   d.encoding,
		SampleRate: d.sampleRate,
	}

	var lastRecvUnix int64
	var seenAudio int32

	cb := &speakCallback{onBinary: func(data []byte) error {
		if len(data) == 0 {
			return nil
		}
		atomic.StoreInt64(&lastRecvUnix, time.Now().UnixNano())
		atomic.StoreInt32(&seenAudio, 1)
		b := make([]byte, len(data))
		copy(b, data)
		if err := d.sink.Write(b); err != nil {
			log.Printf("deepgram: sink write error: %v", err)
		}
		return nil
	}}

	dg, err := speak.NewWSUsingCallback(sctx, d.apiKey, &clientinterfaces.ClientOptions{}, options, cb)
	if err != nil {
		return fmt.Errorf("deepgram: create ws client: %w", err)
	}

	stopped := false
	stopClient := func() {
		if !stopped {
			stopped = true
			dg.Stop()
		}
	}
	defer stopClient()

	if ok := dg.Connect(); !ok {
		return fmt.Errorf("deepgram: connect failed")
	}
	if err := dg.SpeakWithText(text); err != nil {
		return fmt.Errorf("deepgram: speak text: %w", err)
	}
	if err := dg.Flush(); err != nil {
		log.Printf("deepgram: flush error: %v", err)
	}

	// Drain until the audio stream goes idle. The orchestrator holds its own
	// deadline on ctx, but keep a local one too so a wedged stream cannot
	// outlive it by much.
	idleWindow := 400 * time.Millisecond
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	deadline := time.Now().Add(12 * time.Second)
	for {
		select {
		case <-sctx.Done():
			return sctx.Err()
		case <-ticker.C:
			if atomic.LoadInt32(&seenAudio) == 1 {
				last := time.Unix(0, atomic.LoadInt64(&lastRecvUnix))
				if time.Since(last) > idleWindow {
					return nil
				}
			}
			if time.Now().After(deadline) {
				return nil
			}
		}
	}
}

// Stop cancels the in-flight utterance, if any.
func (d *DeepgramOutput) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cancel != nil {
		d.cancel()
	}
}

type speakCallback struct{ onBinary func([]byte) error }

func (s *speakCallback) Open(*msginterfaces.OpenResponse) error         { return nil }
func (s *speakCallback) Metadata(*msginterfaces.MetadataResponse) error { return nil }
func (s *speakCallback) Flush(*msginterfaces.FlushedResponse) error     { return nil }
func (s *speakCallback) Clear(*msginterfaces.ClearedResponse) error     { return nil }
func (s *speakCallback) Close(*msginterfaces.CloseResponse) error       { return nil }
func (s *speakCallback) Warning(*msginterfaces.WarningResponse) error   { return nil }
func (s *speakCallback) Error(*msginterfaces.ErrorResponse) error       { return nil }
func (s *speakCallback) UnhandledEvent([]byte) error                    { return nil }
func (s *speakCallback) Binary(byMsg []byte) error {
	if s.onBinary != nil {
		return s.onBinary(byMsg)
	}
	return nil
}
