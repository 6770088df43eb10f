// routes.go - Route registration helpers
package api

import (
	"github.com/labstack/echo/v4"

	"github.com/log-inspector/backend/internal/storage"
	"github.com/log-inspector/backend/internal/upload"
)

// Dependencies holds all handler dependencies
type Dependencies struct {
	Store      storage.Store
	SessionMgr SessionManager
	UploadMgr  *upload.Manager
	PageLimit  int
	Version    string
	BuildTime  string
}

// Handlers holds all handler instances
type Handlers struct {
	Health  HealthHandler
	Upload  UploadHandler
	Session SessionHandler
	Query   QueryHandler
	WS      *WebSocketHandler
}

// NewHandlers creates all handler instances
func NewHandlers(deps *Dependencies) *Handlers {
	return &Handlers{
		Health:  NewHealthHandler(deps.Version, deps.BuildTime),
		Upload:  NewUploadHandler(deps.Store, deps.UploadMgr),
		Session: NewSessionHandler(deps.Store, deps.SessionMgr),
		Query:   NewQueryHandler(deps.SessionMgr, deps.PageLimit),
		WS:      NewWebSocketHandler(deps.Store, deps.SessionMgr),
	}
}

// RegisterRoutes registers all API routes with the Echo instance
func RegisterRoutes(e *echo.Echo, handlers *Handlers) {
	// Health check
	e.GET("/health", handlers.Health.HandleHealth)

	// Input upload routes
	inputGroup := e.Group("/api/inputs")
	inputGroup.POST("/upload", handlers.Upload.HandleUploadFile)
	inputGroup.POST("/upload/binary", handlers.Upload.HandleUploadBinary)
	inputGroup.POST("/upload/chunk", handlers.Upload.HandleUploadChunk)
	inputGroup.POST("/upload/complete", handlers.Upload.HandleCompleteUpload)
	inputGroup.GET("/upload/jobs/:jobId", handlers.Upload.HandleUploadJobStatus)
	inputGroup.GET("/recent", handlers.Upload.HandleGetRecentInputs)
	inputGroup.GET("/:id", handlers.Upload.HandleGetInput)
	inputGroup.DELETE("/:id", handlers.Upload.HandleDeleteInput)

	// Session lifecycle and ingestion routes
	sessionGroup := e.Group("/api/sessions")
	sessionGroup.POST("", handlers.Session.HandleCreateSession)
	sessionGroup.POST("/:sessionId/ingest", handlers.Session.HandleStartIngest)
	sessionGroup.POST("/:sessionId/ingest/cancel", handlers.Session.HandleCancelIngest)
	sessionGroup.GET("/:sessionId/status", handlers.Session.HandleSessionStatus)
	sessionGroup.POST("/:sessionId/keepalive", handlers.Session.HandleSessionKeepAlive)
	sessionGroup.DELETE("/:sessionId", handlers.Session.HandleDeleteSession)
	sessionGroup.GET("/:sessionId/progress", handlers.Session.HandleIngestProgressStream)
	sessionGroup.GET("/:sessionId/summary", handlers.Session.HandleSessionSummary)

	// Record query routes
	sessionGroup.GET("/:sessionId/records", handlers.Query.HandleQueryRecords)
	sessionGroup.GET("/:sessionId/records/msgpack", handlers.Query.HandleQueryRecordsMsgpack)
	sessionGroup.GET("/:sessionId/records/:recordId", handlers.Query.HandleGetRecord)
	sessionGroup.GET("/:sessionId/sources", handlers.Query.HandleListSources)
}

// RegisterWebSocketRoutes registers WebSocket routes
func RegisterWebSocketRoutes(e *echo.Echo, handlers *Handlers) {
	e.GET("/api/ws", handlers.WS.HandleWebSocket)
}
