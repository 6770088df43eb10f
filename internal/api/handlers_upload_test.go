// handlers_upload_test.go - Tests for upload handlers
package api

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/log-inspector/backend/internal/models"
	"github.com/log-inspector/backend/internal/testutil"
	"github.com/log-inspector/backend/internal/upload"
)

func postJSON(e *echo.Echo, target string, payload interface{}) (echo.Context, *httptest.ResponseRecorder) {
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(http.MethodPost, target, bytes.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestUploadHandler_HandleUploadFile(t *testing.T) {
	tests := []struct {
		name       string
		request    uploadFileRequest
		wantStatus int
		wantErr    bool
		errCode    string
	}{
		{
			name: "valid file upload",
			request: uploadFileRequest{
				Name: "app.log",
				Data: base64.StdEncoding.EncodeToString([]byte("2023-05-01 10:00:00 INFO up\n")),
			},
			wantStatus: http.StatusCreated,
		},
		{
			name: "empty name",
			request: uploadFileRequest{
				Data: base64.StdEncoding.EncodeToString([]byte("content")),
			},
			wantStatus: http.StatusBadRequest,
			wantErr:    true,
			errCode:    "VALIDATION_ERROR",
		},
		{
			name:       "empty data",
			request:    uploadFileRequest{Name: "app.log"},
			wantStatus: http.StatusBadRequest,
			wantErr:    true,
			errCode:    "VALIDATION_ERROR",
		},
		{
			name:       "invalid base64",
			request:    uploadFileRequest{Name: "app.log", Data: "not-valid-base64!!!"},
			wantStatus: http.StatusBadRequest,
			wantErr:    true,
			errCode:    "BAD_REQUEST",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := testutil.NewMockStorage()
			handler := NewUploadHandler(store, nil)

			e := echo.New()
			c, rec := postJSON(e, "/api/inputs/upload", tt.request)

			err := handler.HandleUploadFile(c)

			if tt.wantErr {
				apiErr, ok := err.(*APIError)
				if !ok {
					t.Fatalf("expected APIError, got %T (%v)", err, err)
				}
				if apiErr.Status != tt.wantStatus || apiErr.Code != tt.errCode {
					t.Errorf("got %d/%s, want %d/%s", apiErr.Status, apiErr.Code, tt.wantStatus, tt.errCode)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			var info models.FileInfo
			if err := json.Unmarshal(rec.Body.Bytes(), &info); err != nil {
				t.Fatalf("unmarshal response: %v", err)
			}
			if info.ID == "" || info.Name != tt.request.Name {
				t.Errorf("response = %+v", info)
			}
		})
	}
}

func TestUploadHandler_ChunkedUploadFlow(t *testing.T) {
	store := testutil.NewMockStorage()
	uploadMgr := upload.NewManager(store)
	handler := NewUploadHandler(store, uploadMgr)
	e := echo.New()

	chunks := []string{"first half ", "second half"}
	for i, chunk := range chunks {
		c, rec := postJSON(e, "/api/inputs/upload/chunk", uploadChunkRequest{
			UploadID:    "upload-1",
			ChunkIndex:  i,
			Data:        base64.StdEncoding.EncodeToString([]byte(chunk)),
			TotalChunks: len(chunks),
		})
		if err := handler.HandleUploadChunk(c); err != nil {
			t.Fatalf("chunk %d: %v", i, err)
		}
		if rec.Code != http.StatusAccepted {
			t.Fatalf("chunk %d status = %d", i, rec.Code)
		}
	}

	c, rec := postJSON(e, "/api/inputs/upload/complete", completeUploadRequest{
		UploadID:    "upload-1",
		Name:        "assembled.log",
		TotalChunks: len(chunks),
	})
	if err := handler.HandleCompleteUpload(c); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if rec.Code != http.StatusAccepted {
		t.Fatalf("complete status = %d", rec.Code)
	}

	var resp struct {
		JobID string `json:"jobId"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.JobID == "" {
		t.Fatal("missing jobId")
	}

	// Poll the job status endpoint until processing finishes.
	deadline := time.Now().Add(5 * time.Second)
	for {
		req := httptest.NewRequest(http.MethodGet, "/api/inputs/upload/jobs/"+resp.JobID, nil)
		pollRec := httptest.NewRecorder()
		pollC := e.NewContext(req, pollRec)
		pollC.SetParamNames("jobId")
		pollC.SetParamValues(resp.JobID)

		if err := handler.HandleUploadJobStatus(pollC); err != nil {
			t.Fatalf("job status: %v", err)
		}
		var job upload.Job
		if err := json.Unmarshal(pollRec.Body.Bytes(), &job); err != nil {
			t.Fatal(err)
		}
		if job.Status == upload.StatusComplete {
			if job.FileInfo == nil || job.FileInfo.Size != int64(len("first half second half")) {
				t.Fatalf("fileInfo = %+v", job.FileInfo)
			}
			break
		}
		if job.Status == upload.StatusError {
			t.Fatalf("job failed: %s", job.Error)
		}
		if time.Now().After(deadline) {
			t.Fatalf("job stuck in status %s", job.Status)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestUploadHandler_ChunkValidation(t *testing.T) {
	tests := []struct {
		name    string
		request uploadChunkRequest
		errCode string
	}{
		{
			name:    "missing upload id",
			request: uploadChunkRequest{ChunkIndex: 0, Data: "aGk="},
			errCode: "VALIDATION_ERROR",
		},
		{
			name:    "negative chunk index",
			request: uploadChunkRequest{UploadID: "u", ChunkIndex: -1, Data: "aGk="},
			errCode: "BAD_REQUEST",
		},
		{
			name:    "missing data",
			request: uploadChunkRequest{UploadID: "u", ChunkIndex: 0},
			errCode: "VALIDATION_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewUploadHandler(testutil.NewMockStorage(), nil)
			e := echo.New()
			c, _ := postJSON(e, "/api/inputs/upload/chunk", tt.request)

			err := handler.HandleUploadChunk(c)
			apiErr, ok := err.(*APIError)
			if !ok {
				t.Fatalf("expected APIError, got %T (%v)", err, err)
			}
			if apiErr.Code != tt.errCode {
				t.Errorf("code = %s, want %s", apiErr.Code, tt.errCode)
			}
		})
	}
}

func TestUploadHandler_InputLifecycle(t *testing.T) {
	store := testutil.NewMockStorage()
	store.AddInput("input-1", "app.log", []byte("line\n"))
	handler := NewUploadHandler(store, nil)
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/api/inputs/input-1", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("input-1")
	if err := handler.HandleGetInput(c); err != nil {
		t.Fatalf("get: %v", err)
	}
	var info models.FileInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &info); err != nil {
		t.Fatal(err)
	}
	if info.Name != "app.log" {
		t.Errorf("info = %+v", info)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/inputs/recent", nil)
	rec = httptest.NewRecorder()
	if err := handler.HandleGetRecentInputs(e.NewContext(req, rec)); err != nil {
		t.Fatalf("recent: %v", err)
	}
	var list []models.FileInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 {
		t.Errorf("recent = %+v", list)
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/inputs/input-1", nil)
	rec = httptest.NewRecorder()
	c = e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("input-1")
	if err := handler.HandleDeleteInput(c); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("delete status = %d", rec.Code)
	}
	if store.InputCount() != 0 {
		t.Errorf("input count = %d", store.InputCount())
	}

	// Deleting again reports not found.
	req = httptest.NewRequest(http.MethodDelete, "/api/inputs/input-1", nil)
	c = e.NewContext(req, httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("input-1")
	err := handler.HandleDeleteInput(c)
	if apiErr, ok := err.(*APIError); !ok || apiErr.Status != http.StatusNotFound {
		t.Errorf("err = %v, want 404", err)
	}
}
