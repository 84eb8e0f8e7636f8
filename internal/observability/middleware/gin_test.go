package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(Gin(GinConfig{
		SkipPaths:  []string{"/health"},
		Module:     "test",
		TracerName: "test",
	}))
	r.Use(PanicRecoveryGin())

	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/ok", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })
	r.GET("/boom", func(c *gin.Context) { panic("boom") })

	return r
}

func TestGin(t *testing.T) {
	tests := []struct {
		path       string
		wantStatus int
	}{
		{path: "/health", wantStatus: http.StatusOK},
		{path: "/ok", wantStatus: http.StatusOK},
		{path: "/boom", wantStatus: http.StatusInternalServerError},
		{path: "/missing", wantStatus: http.StatusNotFound},
	}

	r := newRouter()
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))

			if w.Code != tt.wantStatus {
				t.Errorf("status: got %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}
}
