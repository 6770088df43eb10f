package api

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestErrorHandler(t *testing.T) {
	e := echo.New()

	t.Run("api error", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		ErrorHandler(NewNotFoundError("session", "abc"), c)

		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d", rec.Code)
		}
		if body := rec.Body.String(); !strings.Contains(body, `"code":"NOT_FOUND"`) {
			t.Errorf("body = %s", body)
		}
	})

	t.Run("echo http error", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		ErrorHandler(echo.NewHTTPError(http.StatusMethodNotAllowed, "nope"), c)

		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("status = %d", rec.Code)
		}
	})

	t.Run("unknown error", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		ErrorHandler(errors.New("boom"), c)

		if rec.Code != http.StatusInternalServerError {
			t.Errorf("status = %d", rec.Code)
		}
		if body := rec.Body.String(); !strings.Contains(body, `"code":"UNKNOWN_ERROR"`) {
			t.Errorf("body = %s", body)
		}
	})

	t.Run("committed response left alone", func(t *testing.T) {
		// An error raised after a streaming handler has started writing
		// (SSE progress, for example) must not trigger a second write.
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		c.String(http.StatusOK, "data: {}\n\n")
		ErrorHandler(NewInternalError("late failure", nil), c)

		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want the committed 200", rec.Code)
		}
		if body := rec.Body.String(); body != "data: {}\n\n" {
			t.Errorf("body rewritten: %q", body)
		}
	})
}
