// handlers_session.go - Viewer session and ingestion handlers
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/log-inspector/backend/internal/ingest"
	"github.com/log-inspector/backend/internal/models"
	"github.com/log-inspector/backend/internal/storage"
)

// SessionHandlerImpl implements the SessionHandler interface
type SessionHandlerImpl struct {
	store      storage.Store
	sessionMgr SessionManager
}

// NewSessionHandler creates a new session handler instance
func NewSessionHandler(store storage.Store, sessionMgr SessionManager) SessionHandler {
	return &SessionHandlerImpl{
		store:      store,
		sessionMgr: sessionMgr,
	}
}

// HandleCreateSession registers a new empty viewer session
func (h *SessionHandlerImpl) HandleCreateSession(c echo.Context) error {
	sess, err := h.sessionMgr.CreateSession()
	if err != nil {
		return NewConflictError(err.Error())
	}
	return c.JSON(http.StatusCreated, sess)
}

// HandleStartIngest begins loading a registered input into a session
func (h *SessionHandlerImpl) HandleStartIngest(c echo.Context) error {
	id := c.Param("sessionId")
	if id == "" {
		return NewValidationError("sessionId")
	}

	var req startIngestRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}
	if req.InputID == "" {
		return NewValidationError("inputId")
	}

	info, err := h.store.Get(req.InputID)
	if err != nil {
		return NewNotFoundError("input", req.InputID)
	}
	data, err := h.store.GetData(req.InputID)
	if err != nil {
		return NewNotFoundError("input", req.InputID)
	}

	sess, err := h.sessionMgr.StartIngest(id, info.ID, info.Name, data)
	if err != nil {
		if errors.Is(err, ingest.ErrIngestInProgress) {
			return NewConflictError(err.Error())
		}
		return NewNotFoundError("session", id)
	}

	return c.JSON(http.StatusAccepted, sess)
}

// HandleCancelIngest abandons a running ingestion batch
func (h *SessionHandlerImpl) HandleCancelIngest(c echo.Context) error {
	id := c.Param("sessionId")
	if id == "" {
		return NewValidationError("sessionId")
	}

	if !h.sessionMgr.CancelIngest(id) {
		return NewConflictError("no ingestion batch is running for this session")
	}

	return c.NoContent(http.StatusAccepted)
}

// HandleSessionStatus returns the current state of a session
func (h *SessionHandlerImpl) HandleSessionStatus(c echo.Context) error {
	id := c.Param("sessionId")
	if id == "" {
		return NewValidationError("sessionId")
	}

	sess, ok := h.sessionMgr.GetSession(id)
	if !ok {
		return NewNotFoundError("session", id)
	}

	// Touch session to prevent cleanup while being viewed
	h.sessionMgr.TouchSession(id)

	return c.JSON(http.StatusOK, sess)
}

// HandleSessionKeepAlive extends session lifetime for active viewing
func (h *SessionHandlerImpl) HandleSessionKeepAlive(c echo.Context) error {
	id := c.Param("sessionId")
	if id == "" {
		return NewValidationError("sessionId")
	}

	if ok := h.sessionMgr.TouchSession(id); !ok {
		return NewNotFoundError("session", id)
	}

	return c.NoContent(http.StatusNoContent)
}

// HandleDeleteSession drops a session and its records
func (h *SessionHandlerImpl) HandleDeleteSession(c echo.Context) error {
	id := c.Param("sessionId")
	if id == "" {
		return NewValidationError("sessionId")
	}

	if !h.sessionMgr.DeleteSession(id) {
		return NewNotFoundError("session", id)
	}

	return c.NoContent(http.StatusNoContent)
}

// HandleIngestProgressStream streams ingestion progress via SSE
func (h *SessionHandlerImpl) HandleIngestProgressStream(c echo.Context) error {
	id := c.Param("sessionId")
	if id == "" {
		return NewValidationError("sessionId")
	}

	c.Response().Header().Set("Content-Type", "text/event-stream")
	c.Response().Header().Set("Cache-Control", "no-cache")
	c.Response().Header().Set("Connection", "keep-alive")
	c.Response().Header().Set("X-Accel-Buffering", "no")
	c.Response().WriteHeader(http.StatusOK)

	sess, ok := h.sessionMgr.GetSession(id)
	if !ok {
		h.sendSSEError(c, "session not found")
		return nil
	}
	h.sendSSEData(c, sess)

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	timeout := time.NewTimer(5 * time.Minute)
	defer timeout.Stop()

	for {
		select {
		case <-c.Request().Context().Done():
			return nil

		case <-ticker.C:
			sess, ok := h.sessionMgr.GetSession(id)
			if !ok {
				h.sendSSEError(c, "session not found")
				return nil
			}

			h.sendSSEData(c, sess)

			switch sess.Status {
			case models.IngestStatusComplete, models.IngestStatusError, models.IngestStatusCancelled:
				return nil
			}

		case <-timeout.C:
			h.sendSSEError(c, "stream timeout")
			return nil
		}
	}
}

// HandleSessionSummary returns aggregate statistics for a session's records
func (h *SessionHandlerImpl) HandleSessionSummary(c echo.Context) error {
	id := c.Param("sessionId")
	if id == "" {
		return NewValidationError("sessionId")
	}

	recordStore, ok := h.sessionMgr.Store(id)
	if !ok {
		return NewNotFoundError("session", id)
	}

	return c.JSON(http.StatusOK, recordStore.Summary())
}

func (h *SessionHandlerImpl) sendSSEData(c echo.Context, data interface{}) {
	jsonData, _ := json.Marshal(data)
	fmt.Fprintf(c.Response(), "data: %s\n\n", jsonData)
	c.Response().Flush()
}

func (h *SessionHandlerImpl) sendSSEError(c echo.Context, message string) {
	h.sendSSEData(c, map[string]string{"error": message})
}

// Request types

type startIngestRequest struct {
	InputID string `json:"inputId"`
}
