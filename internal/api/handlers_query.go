// handlers_query.go - Record query handlers
package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/log-inspector/backend/internal/models"
)

// Records per page when the client does not ask for a specific limit.
const defaultPageLimit = 500

// QueryHandlerImpl implements the QueryHandler interface
type QueryHandlerImpl struct {
	sessionMgr SessionManager
	pageLimit  int
}

// NewQueryHandler creates a new query handler instance
func NewQueryHandler(sessionMgr SessionManager, pageLimit int) QueryHandler {
	if pageLimit <= 0 {
		pageLimit = defaultPageLimit
	}
	return &QueryHandlerImpl{
		sessionMgr: sessionMgr,
		pageLimit:  pageLimit,
	}
}

// HandleQueryRecords returns one page of filtered records as JSON
func (h *QueryHandlerImpl) HandleQueryRecords(c echo.Context) error {
	resp, err := h.queryPage(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

// HandleQueryRecordsMsgpack returns one page of filtered records as MessagePack
func (h *QueryHandlerImpl) HandleQueryRecordsMsgpack(c echo.Context) error {
	resp, err := h.queryPage(c)
	if err != nil {
		return err
	}

	encoded, err := msgpack.Marshal(resp)
	if err != nil {
		return NewInternalError("failed to encode records", err)
	}
	return c.Blob(http.StatusOK, "application/x-msgpack", encoded)
}

// HandleGetRecord returns a single record by ID
func (h *QueryHandlerImpl) HandleGetRecord(c echo.Context) error {
	sessionID := c.Param("sessionId")
	if sessionID == "" {
		return NewValidationError("sessionId")
	}

	recordID, err := strconv.ParseUint(c.Param("recordId"), 10, 64)
	if err != nil {
		return NewBadRequestError("invalid record id", err)
	}

	recordStore, ok := h.sessionMgr.Store(sessionID)
	if !ok {
		return NewNotFoundError("session", sessionID)
	}

	record, ok := recordStore.Get(models.RecordID(recordID))
	if !ok {
		return NewNotFoundError("record", c.Param("recordId"))
	}

	return c.JSON(http.StatusOK, record)
}

// HandleListSources returns the source files ingested into a session
func (h *QueryHandlerImpl) HandleListSources(c echo.Context) error {
	sessionID := c.Param("sessionId")
	if sessionID == "" {
		return NewValidationError("sessionId")
	}

	recordStore, ok := h.sessionMgr.Store(sessionID)
	if !ok {
		return NewNotFoundError("session", sessionID)
	}

	return c.JSON(http.StatusOK, recordStore.Sources())
}

func (h *QueryHandlerImpl) queryPage(c echo.Context) (*recordsResponse, error) {
	sessionID := c.Param("sessionId")
	if sessionID == "" {
		return nil, NewValidationError("sessionId")
	}

	recordStore, ok := h.sessionMgr.Store(sessionID)
	if !ok {
		return nil, NewNotFoundError("session", sessionID)
	}

	criteria, err := buildFilterCriteria(c)
	if err != nil {
		return nil, err
	}

	limit := h.pageLimit
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			return nil, NewBadRequestError("invalid limit", err)
		}
		if parsed < limit {
			limit = parsed
		}
	}

	page, err := recordStore.Query(criteria, c.QueryParam("cursor"), limit)
	if err != nil {
		return nil, NewBadRequestError("invalid cursor", err)
	}

	return &recordsResponse{
		Records: recordStore.GetMany(page.IDs),
		Next:    page.Next,
		Total:   page.Total,
	}, nil
}

func buildFilterCriteria(c echo.Context) (models.FilterCriteria, error) {
	criteria := models.FilterCriteria{
		Contains: c.QueryParam("contains"),
		Sources:  c.QueryParams()["source"],
	}

	if raw := c.QueryParam("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return criteria, NewBadRequestError("invalid from time", err)
		}
		criteria.From = &t
	}
	if raw := c.QueryParam("until"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return criteria, NewBadRequestError("invalid until time", err)
		}
		criteria.Until = &t
	}

	if raw := c.QueryParam("minSeverity"); raw != "" {
		sev := models.ParseSeverity(raw)
		// ParseSeverity maps unrecognized tokens to UNKNOWN, which is
		// also a valid explicit threshold (matches everything).
		if sev == models.SeverityUnknown && !strings.EqualFold(strings.TrimSpace(raw), "UNKNOWN") {
			return criteria, NewBadRequestError("unrecognized severity: "+raw, nil)
		}
		criteria.MinSeverity = sev
	}

	switch sort := c.QueryParam("sort"); sort {
	case "", string(models.SortInsertion):
		criteria.Sort = models.SortInsertion
	case string(models.SortTimestamp):
		criteria.Sort = models.SortTimestamp
	default:
		return criteria, NewBadRequestError("unrecognized sort order: "+sort, nil)
	}

	return criteria, nil
}

// Response types

type recordsResponse struct {
	Records []models.LogRecord `json:"records" msgpack:"records"`
	Next    string             `json:"next,omitempty" msgpack:"next"`
	Total   int                `json:"total" msgpack:"total"`
}
