// interfaces.go - Handler interface definitions for clean separation of concerns
package api

import (
	"github.com/labstack/echo/v4"

	"github.com/log-inspector/backend/internal/models"
	"github.com/log-inspector/backend/internal/store"
)

// UploadHandler handles input upload operations
type UploadHandler interface {
	HandleUploadFile(c echo.Context) error
	HandleUploadChunk(c echo.Context) error
	HandleCompleteUpload(c echo.Context) error
	HandleUploadBinary(c echo.Context) error
	HandleGetRecentInputs(c echo.Context) error
	HandleGetInput(c echo.Context) error
	HandleDeleteInput(c echo.Context) error
	HandleUploadJobStatus(c echo.Context) error
}

// SessionHandler handles viewer session lifecycle and ingestion
type SessionHandler interface {
	HandleCreateSession(c echo.Context) error
	HandleStartIngest(c echo.Context) error
	HandleCancelIngest(c echo.Context) error
	HandleSessionStatus(c echo.Context) error
	HandleSessionKeepAlive(c echo.Context) error
	HandleDeleteSession(c echo.Context) error
	HandleIngestProgressStream(c echo.Context) error
	HandleSessionSummary(c echo.Context) error
}

// QueryHandler serves records out of a session's store
type QueryHandler interface {
	HandleQueryRecords(c echo.Context) error
	HandleQueryRecordsMsgpack(c echo.Context) error
	HandleGetRecord(c echo.Context) error
	HandleListSources(c echo.Context) error
}

// HealthHandler handles health check operations
type HealthHandler interface {
	HandleHealth(c echo.Context) error
}

// SessionManager defines the interface for session management
// This allows mocking in tests
type SessionManager interface {
	CreateSession() (*models.IngestSession, error)
	GetSession(id string) (*models.IngestSession, bool)
	Store(id string) (*store.RecordStore, bool)
	StartIngest(sessionID, inputID, inputName string, data []byte) (*models.IngestSession, error)
	CancelIngest(sessionID string) bool
	TouchSession(id string) bool
	DeleteSession(id string) bool
}
