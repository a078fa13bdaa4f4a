package core

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func decodeErrorBody(t *testing.T, w *httptest.ResponseRecorder) (code, message string) {
	t.Helper()
	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	return body.Error.Code, body.Error.Message
}

func TestRespondError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	respondError(c, http.StatusConflict, "CONFLICT", "id already exists")
	if w.Code != http.StatusConflict {
		t.Fatalf("want 409, got %d", w.Code)
	}
	code, message := decodeErrorBody(t, w)
	if code != "CONFLICT" || message != "id already exists" {
		t.Fatalf("unexpected body: %s / %s", code, message)
	}
}

func TestStoreAndInternalErrorsStayGeneric(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cause := errors.New("password must not be celery")

	cases := []struct {
		name    string
		respond func(c *gin.Context)
		message string
	}{
		{"store", func(c *gin.Context) { respondStoreError(c, "login", cause) }, "storage failure"},
		{"internal", func(c *gin.Context) { respondInternalError(c, "login: issue token", cause) }, "internal error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			tc.respond(c)

			if w.Code != http.StatusInternalServerError {
				t.Fatalf("want 500, got %d", w.Code)
			}
			code, message := decodeErrorBody(t, w)
			if code != "INTERNAL_SERVER_ERROR" || message != tc.message {
				t.Fatalf("unexpected body: %s / %s", code, message)
			}
			// The underlying error is for logs only.
			if strings.Contains(w.Body.String(), cause.Error()) {
				t.Fatalf("cause leaked into response: %s", w.Body.String())
			}
		})
	}
}
