package speech

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/chadiek/interview-demo/internal/interview"
)

// AudioSource supplies 16kHz linear16 mono PCM chunks from the candidate's
// audio track. NextChunk blocks until a chunk is available or the context is
// done.
type AudioSource interface {
	NextChunk(ctx context.Context) ([]byte, error)
}

// AssemblyAIInput opens one AssemblyAI streaming session per listening turn.
// format_turns is enabled so formatted turn messages arrive as finalized
// segments while unformatted ones stream as partials.
type AssemblyAIInput struct {
	apiKey string
	source AudioSource
}

func NewAssemblyAIInput(apiKey string, source AudioSource) *AssemblyAIInput {
	return &AssemblyAIInput{apiKey: apiKey, source: source}
}

func (a *AssemblyAIInput) Start(ctx context.Context) (interview.ListenHandle, error) {
	if a.apiKey == "" {
		return nil, fmt.Errorf("assemblyai api key missing: %w", interview.ErrInputUnsupported)
	}

	params := url.Values{}
	params.Set("sample_rate", "16000")
	params.Set("format_turns", "true")
	params.Set("encoding", "pcm_s16le")
	wsURL := fmt.Sprintf("wss://streaming.assemblyai.com/v3/ws?%s", params.Encode())

	headers := map[string][]string{"Authorization": {a.apiKey}}
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, resp, err := dialer.DialContext(ctx, wsURL, headers)
	if err != nil {
		if resp != nil {
			log.Printf("assemblyai connect failed with status %d", resp.StatusCode)
		}
		return nil, fmt.Errorf("connect to assemblyai: %w", err)
	}

	h := &assemblyHandle{
		conn:     conn,
		partials: make(chan string, 100),
		finals:   make(chan string, 10),
		stopCh:   make(chan struct{}),
	}
	go h.readMessages()
	if a.source != nil {
		go h.pumpAudio(ctx, a.source)
	}
	return h, nil
}

type beginMessage struct {
	Type      string `json:"type"`
	ID        string `json:"id"`
	ExpiresAt int64  `json:"expires_at"`
}

type turnMessage struct {
	Type          string `json:"type"`
	Transcript    string `json:"transcript"`
	TurnFormatted bool   `json:"turn_is_formatted"`
}

type errorMessage struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

type assemblyHandle struct {
	conn     *websocket.Conn
	partials chan string
	finals   chan string
	stopCh   chan struct{}
	stopOnce sync.Once
}

func (h *assemblyHandle) Partials() <-chan string { return h.partials }
func (h *assemblyHandle) Finals() <-chan string   { return h.finals }

func (h *assemblyHandle) Stop() error {
	h.stopOnce.Do(func() {
		close(h.stopCh)
		terminateMsg := map[string]string{"type": "Terminate"}
		_ = h.conn.WriteJSON(terminateMsg)
		_ = h.conn.Close()
	})
	return nil
}

func (h *assemblyHandle) readMessages() {
	defer close(h.partials)
	defer close(h.finals)
	for {
		select {
		case <-h.stopCh:
			return
		default:
		}
		_, message, err := h.conn.ReadMessage()
		if err != nil {
			select {
			case <-h.stopCh:
			default:
				log.Printf("assemblyai read error: %v", err)
			}
			return
		}
		if done := h.processMessage(message); done {
			return
		}
	}
}

// processMessage routes one AssemblyAI event. Formatted turns are finalized
// segments; unformatted ones are interim. Returns true when the session is
// over.
func (h *assemblyHandle) processMessage(message []byte) bool {
	var base map[string]any
	if err := json.Unmarshal(message, &base); err != nil {
		log.Printf("assemblyai: bad message: %v", err)
		return false
	}
	msgType, _ := base["type"].(string)
	switch msgType {
	case "Begin":
		var msg beginMessage
		if err := json.Unmarshal(message, &msg); err == nil {
			log.Printf("assemblyai session began: id=%s", msg.ID)
		}
	case "Turn":
		var msg turnMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			log.Printf("assemblyai: bad turn message: %v", err)
			return false
		}
		if msg.Transcript == "" {
			return false
		}
		if msg.TurnFormatted {
			select {
			case h.finals <- msg.Transcript:
			case <-h.stopCh:
			}
			return false
		}
		select {
		case h.partials <- msg.Transcript:
		default:
		}
	case "Termination":
		return true
	case "Error":
		var msg errorMessage
		if err := json.Unmarshal(message, &msg); err == nil {
			log.Printf("assemblyai error: %s", msg.Error)
		}
	}
	return false
}

func (h *assemblyHandle) pumpAudio(ctx context.Context, source AudioSource) {
	for {
		select {
		case <-h.stopCh:
			return
		case <-ctx.Done():
			return
		default:
		}
		chunk, err := source.NextChunk(ctx)
		if err != nil {
			return
		}
		if len(chunk) == 0 {
			continue
		}
		if err := h.conn.WriteMessage(websocket.BinaryMessage, chunk); err != nil {
			select {
			case <-h.stopCh:
			default:
				log.Printf("assemblyai: audio write error: %v", err)
			}
			return
		}
	}
}
