package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"receptionist-server/internal/observability"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

func TestRequireAPIKey(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hash, err := bcrypt.GenerateFromPassword([]byte("operator-key"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}

	middleware := New(string(hash), observability.NewLogger())
	router := gin.New()
	router.GET("/ops/ping", middleware.RequireAPIKey, func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	for name, tc := range map[string]struct {
		key      string
		wantCode int
	}{
		"correct key": {key: "operator-key", wantCode: http.StatusOK},
		"wrong key":   {key: "guess", wantCode: http.StatusUnauthorized},
		"missing key": {key: "", wantCode: http.StatusUnauthorized},
	} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/ops/ping", nil)
			if tc.key != "" {
				req.Header.Set("X-API-Key", tc.key)
			}
			recorder := httptest.NewRecorder()
			router.ServeHTTP(recorder, req)
			if recorder.Code != tc.wantCode {
				t.Errorf("status = %d, want %d", recorder.Code, tc.wantCode)
			}
		})
	}
}
