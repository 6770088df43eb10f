package api

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/klauspost/compress/gzip"
	"github.com/labstack/echo/v4"

	"github.com/log-inspector/backend/internal/models"
	"github.com/log-inspector/backend/internal/storage"
)

// WebSocket message types
const (
	// Client -> Server messages
	MsgTypeUploadInit     = "upload:init"
	MsgTypeUploadChunk    = "upload:chunk"
	MsgTypeUploadComplete = "upload:complete"
	MsgTypeWatchIngest    = "ingest:watch"
	MsgTypePing           = "ping"

	// Server -> Client messages
	MsgTypeAck      = "ack"
	MsgTypeProgress = "progress"
	MsgTypeComplete = "complete"
	MsgTypeError    = "error"
	MsgTypePong     = "pong"
)

// WSMessage is the envelope for all WebSocket traffic
type WSMessage struct {
	Type      string          `json:"type"`
	ID        string          `json:"id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// UploadInitPayload starts a chunked upload over the socket
type UploadInitPayload struct {
	FileName    string `json:"fileName"`
	TotalChunks int    `json:"totalChunks"`
	TotalSize   int64  `json:"totalSize"`
	Encoding    string `json:"encoding,omitempty"` // "gzip" or "none"
}

// UploadChunkPayload carries one base64 chunk
type UploadChunkPayload struct {
	UploadID   string `json:"uploadId"`
	ChunkIndex int    `json:"chunkIndex"`
	Data       string `json:"data"`
}

// UploadCompletePayload finalizes a chunked upload
type UploadCompletePayload struct {
	UploadID string `json:"uploadId"`
	Encoding string `json:"encoding,omitempty"`
}

// WatchIngestPayload subscribes to a session's ingest progress
type WatchIngestPayload struct {
	SessionID string `json:"sessionId"`
}

// WSProgressResponse reports upload or ingest progress
type WSProgressResponse struct {
	Type      string  `json:"type"`
	UploadID  string  `json:"uploadId,omitempty"`
	SessionID string  `json:"sessionId,omitempty"`
	Status    string  `json:"status,omitempty"`
	Progress  float64 `json:"progress"`
	Message   string  `json:"message,omitempty"`
}

// WSCompleteResponse finishes an upload or ingest watch
type WSCompleteResponse struct {
	Type     string           `json:"type"`
	UploadID string           `json:"uploadId,omitempty"`
	FileInfo *models.FileInfo `json:"fileInfo,omitempty"`
	Session  interface{}      `json:"session,omitempty"`
}

// WSErrorResponse reports a protocol or processing error
type WSErrorResponse struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// wsUpload tracks an in-progress upload over one connection
type wsUpload struct {
	ID          string
	FileName    string
	TotalChunks int
	Received    map[int]bool
	Chunks      [][]byte
	Encoding    string
	CreatedAt   time.Time
}

// WebSocketHandler manages WebSocket connections for uploads and
// ingest progress watching
type WebSocketHandler struct {
	store      storage.Store
	sessionMgr SessionManager
	upgrader   websocket.Upgrader

	uploadsMu sync.RWMutex
	uploads   map[string]*wsUpload
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(store storage.Store, sessionMgr SessionManager) *WebSocketHandler {
	return &WebSocketHandler{
		store:      store,
		sessionMgr: sessionMgr,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Allow connections from dev server
				return true
			},
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
		},
		uploads: make(map[string]*wsUpload),
	}
}

// HandleWebSocket upgrades the connection and runs the message loop
func (wsh *WebSocketHandler) HandleWebSocket(c echo.Context) error {
	ws, err := wsh.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer ws.Close()

	fmt.Println("[WebSocket] Client connected")

	wsh.sendMessage(ws, WSMessage{
		Type:      "connected",
		Timestamp: time.Now().UnixMilli(),
	})

	for {
		var msg WSMessage
		if err := ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				fmt.Printf("[WebSocket] Connection error: %v\n", err)
			}
			break
		}

		switch msg.Type {
		case MsgTypePing:
			wsh.sendMessage(ws, WSMessage{Type: MsgTypePong, Timestamp: time.Now().UnixMilli()})
		case MsgTypeUploadInit:
			wsh.handleUploadInit(ws, msg)
		case MsgTypeUploadChunk:
			wsh.handleUploadChunk(ws, msg)
		case MsgTypeUploadComplete:
			wsh.handleUploadComplete(ws, msg)
		case MsgTypeWatchIngest:
			wsh.handleWatchIngest(ws, msg)
		default:
			wsh.sendError(ws, "Unknown message type: "+msg.Type, "INVALID_TYPE")
		}
	}

	fmt.Println("[WebSocket] Client disconnected")
	return nil
}

func (wsh *WebSocketHandler) handleUploadInit(ws *websocket.Conn, msg WSMessage) {
	var payload UploadInitPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		wsh.sendError(ws, "Invalid init payload: "+err.Error(), "INVALID_PAYLOAD")
		return
	}
	if payload.TotalChunks <= 0 {
		wsh.sendError(ws, "totalChunks must be positive", "INVALID_PAYLOAD")
		return
	}

	uploadID := fmt.Sprintf("%d-%d", time.Now().UnixMilli(), time.Now().Nanosecond())
	up := &wsUpload{
		ID:          uploadID,
		FileName:    payload.FileName,
		TotalChunks: payload.TotalChunks,
		Received:    make(map[int]bool),
		Chunks:      make([][]byte, payload.TotalChunks),
		Encoding:    payload.Encoding,
		CreatedAt:   time.Now(),
	}

	wsh.uploadsMu.Lock()
	wsh.uploads[uploadID] = up
	wsh.uploadsMu.Unlock()

	wsh.sendMessage(ws, WSMessage{
		Type:      MsgTypeAck,
		ID:        uploadID,
		Timestamp: time.Now().UnixMilli(),
	})

	fmt.Printf("[WebSocket] Upload initialized: %s (%d chunks, %d bytes)\n",
		uploadID, payload.TotalChunks, payload.TotalSize)
}

func (wsh *WebSocketHandler) handleUploadChunk(ws *websocket.Conn, msg WSMessage) {
	var payload UploadChunkPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		wsh.sendError(ws, "Invalid chunk payload: "+err.Error(), "INVALID_PAYLOAD")
		return
	}

	wsh.uploadsMu.RLock()
	up, exists := wsh.uploads[payload.UploadID]
	wsh.uploadsMu.RUnlock()
	if !exists {
		wsh.sendError(ws, "Upload not found: "+payload.UploadID, "UPLOAD_NOT_FOUND")
		return
	}
	if payload.ChunkIndex < 0 || payload.ChunkIndex >= up.TotalChunks {
		wsh.sendError(ws, fmt.Sprintf("chunk index out of range: %d", payload.ChunkIndex), "INVALID_CHUNK")
		return
	}

	chunkData, err := base64.StdEncoding.DecodeString(payload.Data)
	if err != nil {
		wsh.sendError(ws, "Invalid base64 data: "+err.Error(), "INVALID_DATA")
		return
	}

	wsh.uploadsMu.Lock()
	up.Received[payload.ChunkIndex] = true
	up.Chunks[payload.ChunkIndex] = chunkData
	received := len(up.Received)
	wsh.uploadsMu.Unlock()

	wsh.sendMessage(ws, WSMessage{
		Type:      MsgTypeProgress,
		ID:        payload.UploadID,
		Timestamp: time.Now().UnixMilli(),
		Payload: mustJSON(WSProgressResponse{
			Type:     MsgTypeProgress,
			UploadID: payload.UploadID,
			Progress: float64(received) / float64(up.TotalChunks) * 100,
			Message:  fmt.Sprintf("Received chunk %d/%d", received, up.TotalChunks),
		}),
	})
}

func (wsh *WebSocketHandler) handleUploadComplete(ws *websocket.Conn, msg WSMessage) {
	var payload UploadCompletePayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		wsh.sendError(ws, "Invalid complete payload: "+err.Error(), "INVALID_PAYLOAD")
		return
	}

	wsh.uploadsMu.Lock()
	up, exists := wsh.uploads[payload.UploadID]
	if exists {
		delete(wsh.uploads, payload.UploadID)
	}
	wsh.uploadsMu.Unlock()

	if !exists {
		wsh.sendError(ws, "Upload not found: "+payload.UploadID, "UPLOAD_NOT_FOUND")
		return
	}
	if len(up.Received) != up.TotalChunks {
		wsh.sendError(ws, fmt.Sprintf("Missing chunks: got %d, expected %d",
			len(up.Received), up.TotalChunks), "INCOMPLETE_UPLOAD")
		return
	}

	assembled := bytes.Join(up.Chunks, nil)

	if payload.Encoding == "gzip" || up.Encoding == "gzip" {
		inflated, err := inflateGzip(assembled)
		if err != nil {
			fmt.Printf("[WebSocket] Decompression failed, keeping payload as-is: %v\n", err)
		} else {
			assembled = inflated
		}
	}

	info, err := wsh.store.Save(up.FileName, bytes.NewReader(assembled))
	if err != nil {
		wsh.sendError(ws, "Failed to register input: "+err.Error(), "SAVE_ERROR")
		return
	}

	wsh.sendMessage(ws, WSMessage{
		Type:      MsgTypeComplete,
		ID:        payload.UploadID,
		Timestamp: time.Now().UnixMilli(),
		Payload: mustJSON(WSCompleteResponse{
			Type:     MsgTypeComplete,
			UploadID: payload.UploadID,
			FileInfo: info,
		}),
	})

	fmt.Printf("[WebSocket] Upload complete: %s (%d bytes)\n", info.ID, info.Size)
}

// handleWatchIngest pushes ingest progress for one session until it
// reaches a terminal state
func (wsh *WebSocketHandler) handleWatchIngest(ws *websocket.Conn, msg WSMessage) {
	var payload WatchIngestPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		wsh.sendError(ws, "Invalid watch payload: "+err.Error(), "INVALID_PAYLOAD")
		return
	}

	sess, ok := wsh.sessionMgr.GetSession(payload.SessionID)
	if !ok {
		wsh.sendError(ws, "Session not found: "+payload.SessionID, "SESSION_NOT_FOUND")
		return
	}
	wsh.sendIngestProgress(ws, sess)

	deadline := time.Now().Add(5 * time.Minute)
	for time.Now().Before(deadline) {
		time.Sleep(100 * time.Millisecond)

		sess, ok := wsh.sessionMgr.GetSession(payload.SessionID)
		if !ok {
			wsh.sendError(ws, "Session not found: "+payload.SessionID, "SESSION_NOT_FOUND")
			return
		}
		wsh.sendIngestProgress(ws, sess)

		switch sess.Status {
		case models.IngestStatusComplete, models.IngestStatusError, models.IngestStatusCancelled:
			wsh.sendMessage(ws, WSMessage{
				Type:      MsgTypeComplete,
				Timestamp: time.Now().UnixMilli(),
				Payload: mustJSON(WSCompleteResponse{
					Type:    MsgTypeComplete,
					Session: sess,
				}),
			})
			return
		}
	}

	wsh.sendError(ws, "Ingest watch timed out", "WATCH_TIMEOUT")
}

func (wsh *WebSocketHandler) sendIngestProgress(ws *websocket.Conn, sess *models.IngestSession) {
	wsh.sendMessage(ws, WSMessage{
		Type:      MsgTypeProgress,
		ID:        sess.ID,
		Timestamp: time.Now().UnixMilli(),
		Payload: mustJSON(WSProgressResponse{
			Type:      MsgTypeProgress,
			SessionID: sess.ID,
			Status:    string(sess.Status),
			Progress:  sess.Progress,
		}),
	})
}

func (wsh *WebSocketHandler) sendMessage(ws *websocket.Conn, msg WSMessage) {
	if err := ws.WriteJSON(msg); err != nil {
		fmt.Printf("[WebSocket] Failed to send message: %v\n", err)
	}
}

func (wsh *WebSocketHandler) sendError(ws *websocket.Conn, message, code string) {
	wsh.sendMessage(ws, WSMessage{
		Type:      MsgTypeError,
		Timestamp: time.Now().UnixMilli(),
		Payload: mustJSON(WSErrorResponse{
			Type:    MsgTypeError,
			Message: message,
			Code:    code,
		}),
	})
}

func mustJSON(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return []byte("{}")
	}
	return data
}

func inflateGzip(data []byte) ([]byte, error) {
	reader, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer reader.Close()
	return io.ReadAll(reader)
}
