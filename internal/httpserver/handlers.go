package httpserver

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/chadiek/interview-demo/internal/interview"
	"github.com/chadiek/interview-demo/internal/rooms"
	"github.com/chadiek/interview-demo/internal/store"
)

type errorResponse struct {
	Error string `json:"error"`
}

type createRoomResponse struct {
	Room rooms.Room `json:"room"`
}

func (s *Server) handleCreateRoom(c echo.Context) error {
	if s.deps.Rooms == nil {
		return c.JSON(http.StatusServiceUnavailable, errorResponse{Error: "room provisioning not configured"})
	}
	room, err := s.deps.Rooms.Create(c.Request().Context())
	if err != nil {
		var ue *rooms.UpstreamError
		switch {
		case errors.As(err, &ue):
			return c.JSON(http.StatusBadGateway, errorResponse{Error: "room provider rejected the request"})
		case errors.Is(err, rooms.ErrTimeout):
			return c.JSON(http.StatusGatewayTimeout, errorResponse{Error: "room provider timed out"})
		default:
			return c.JSON(http.StatusInternalServerError, errorResponse{Error: "failed to create room"})
		}
	}
	return c.JSON(http.StatusOK, createRoomResponse{Room: room})
}

type evaluateTurnRequest struct {
	Transcript string              `json:"transcript"`
	State      interview.TurnState `json:"state"`
}

// handleEvaluateTurn judges one captured answer. The evaluator absorbs judge
// failures, so the only client-visible error is a missing transcript.
func (s *Server) handleEvaluateTurn(c echo.Context) error {
	var req evaluateTurnRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
	}
	if strings.TrimSpace(req.Transcript) == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "transcript is required"})
	}
	dec, err := s.deps.Evaluator.Evaluate(c.Request().Context(), req.Transcript, req.State)
	if err != nil {
		dec = interview.DefaultDecision()
	}
	dec = interview.NormalizeDecision(dec, req.State, int(s.deps.Questions.Ceiling().Seconds()))
	return c.JSON(http.StatusOK, dec)
}

type scoreRequest struct {
	Transcript string                     `json:"transcript"`
	Responses  []interview.ResponseRecord `json:"responses"`
}

// handleScore always returns a renderable result; the scorer falls back to a
// deterministic local computation when the judge is unavailable.
func (s *Server) handleScore(c echo.Context) error {
	var req scoreRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
	}
	result := s.deps.Scorer.Score(c.Request().Context(), req.Transcript, req.Responses)
	return c.JSON(http.StatusOK, result)
}

type createInterviewRequest struct {
	RoomURL string `json:"roomUrl"`
}

type createInterviewResponse struct {
	ID string `json:"id"`
}

func (s *Server) handleCreateInterview(c echo.Context) error {
	if s.deps.Store == nil {
		return c.JSON(http.StatusServiceUnavailable, errorResponse{Error: "persistence not configured"})
	}
	var req createInterviewRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
	}
	id, err := s.deps.Store.CreateSession(c.Request().Context(), req.RoomURL, "")
	if err != nil {
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "failed to create interview"})
	}
	return c.JSON(http.StatusCreated, createInterviewResponse{ID: id})
}

func (s *Server) handleGetInterview(c echo.Context) error {
	if s.deps.Store == nil {
		return c.JSON(http.StatusServiceUnavailable, errorResponse{Error: "persistence not configured"})
	}
	row, err := s.deps.Store.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.JSON(http.StatusNotFound, errorResponse{Error: "interview not found"})
		}
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "failed to load interview"})
	}
	return c.JSON(http.StatusOK, row)
}

type patchInterviewRequest struct {
	AppendResponse *interview.ResponseRecord `json:"appendResponse"`
	Finalize       bool                      `json:"finalize"`
	Transcript     *string                   `json:"transcript"`
	Status         *string                   `json:"status"`
	RoomURL        *string                   `json:"roomUrl"`
}

// handlePatchInterview covers the three session mutations: best-effort
// response appends, finalization with the full transcript, and plain field
// updates.
func (s *Server) handlePatchInterview(c echo.Context) error {
	if s.deps.Store == nil {
		return c.JSON(http.StatusServiceUnavailable, errorResponse{Error: "persistence not configured"})
	}
	var req patchInterviewRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
	}
	ctx := c.Request().Context()
	id := c.Param("id")

	var err error
	switch {
	case req.AppendResponse != nil:
		err = s.deps.Store.AppendResponse(ctx, id, *req.AppendResponse)
	case req.Finalize:
		transcript := ""
		if req.Transcript != nil {
			transcript = *req.Transcript
		}
		err = s.deps.Store.Finalize(ctx, id, transcript)
	default:
		patch := make(map[string]any, 3)
		if req.Status != nil {
			patch["status"] = *req.Status
		}
		if req.Transcript != nil {
			patch["transcript"] = *req.Transcript
		}
		if req.RoomURL != nil {
			patch["room_url"] = *req.RoomURL
		}
		if len(patch) == 0 {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "no updatable fields in request"})
		}
		err = s.deps.Store.Update(ctx, id, patch)
	}
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.JSON(http.StatusNotFound, errorResponse{Error: "interview not found"})
		}
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "failed to update interview"})
	}
	return c.NoContent(http.StatusNoContent)
}

// handleScoreInterview scores a stored session from its persisted transcript
// and responses, then saves the result.
func (s *Server) handleScoreInterview(c echo.Context) error {
	if s.deps.Store == nil {
		return c.JSON(http.StatusServiceUnavailable, errorResponse{Error: "persistence not configured"})
	}
	ctx := c.Request().Context()
	id := c.Param("id")
	row, err := s.deps.Store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.JSON(http.StatusNotFound, errorResponse{Error: "interview not found"})
		}
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "failed to load interview"})
	}
	result := s.deps.Scorer.Score(ctx, row.Transcript, row.Responses)
	if err := s.deps.Store.SaveScoring(ctx, id, result); err != nil {
		// the caller still gets the result; persistence is best-effort here
		c.Logger().Errorf("saving scoring for %s: %v", id, err)
	}
	return c.JSON(http.StatusOK, result)
}
