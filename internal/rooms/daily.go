package rooms

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultBaseURL = "https://api.daily.co/v1"

// ErrTimeout marks a room provisioning attempt that ran out of time.
var ErrTimeout = errors.New("room provisioning timed out")

// UpstreamError carries a non-2xx reply from the provider so the HTTP layer
// can translate it to a gateway error.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("room provider error: status=%d body=%s", e.Status, e.Body)
}

// Room is one provisioned meeting room.
type Room struct {
	URL  string `json:"url"`
	Name string `json:"name"`
}

// Client provisions ephemeral video rooms. BaseURL is overridable for tests.
type Client struct {
	HTTPClient *http.Client
	APIKey     string
	BaseURL    string
	// Domain rebuilds the room URL from the room name when the provider
	// response omits it. May be empty.
	Domain string
	// RoomTTL bounds how long a created room stays open.
	RoomTTL time.Duration
}

func NewClient(apiKey string) *Client {
	return &Client{
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
		APIKey:     apiKey,
		BaseURL:    defaultBaseURL,
		RoomTTL:    60 * time.Minute,
	}
}

type createRoomRequest struct {
	Properties roomProperties `json:"properties"`
}

type roomProperties struct {
	Exp               int64 `json:"exp"`
	EnableChat        bool  `json:"enable_chat"`
	EnableScreenshare bool  `json:"enable_screenshare"`
	StartVideoOff     bool  `json:"start_video_off"`
	StartAudioOff     bool  `json:"start_audio_off"`
}

// Create provisions one room that expires after RoomTTL.
func (c *Client) Create(ctx context.Context) (Room, error) {
	if c.APIKey == "" {
		return Room{}, fmt.Errorf("room provider api key missing")
	}
	reqBody, _ := json.Marshal(createRoomRequest{
		Properties: roomProperties{
			Exp:        time.Now().Add(c.RoomTTL).Unix(),
			EnableChat: false,
		},
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/rooms", bytes.NewReader(reqBody))
	if err != nil {
		return Room{}, err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return Room{}, ErrTimeout
		}
		return Room{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return Room{}, &UpstreamError{Status: resp.StatusCode, Body: string(b)}
	}
	var room Room
	if err := json.NewDecoder(resp.Body).Decode(&room); err != nil {
		return Room{}, fmt.Errorf("decode room: %w", err)
	}
	if room.URL == "" && room.Name != "" && c.Domain != "" {
		base := c.Domain
		if !strings.Contains(base, "http") {
			base = "https://" + base
		}
		room.URL = base + "/" + room.Name
	}
	if room.URL == "" {
		return Room{}, fmt.Errorf("room provider returned no url")
	}
	return room, nil
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}
