package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cosmicwatch/internal/models"
	"cosmicwatch/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubAuthService struct {
	service.AuthService
	users map[string]*models.User
	err   map[string]error
}

func (s *stubAuthService) Authenticate(_ context.Context, token string) (*models.User, error) {
	if err, ok := s.err[token]; ok {
		return nil, err
	}
	if user, ok := s.users[token]; ok {
		return user, nil
	}
	return nil, &service.Error{Kind: service.ErrUnauthorized, Message: "Could not validate credentials"}
}

func newAuthRouter(authService service.AuthService) *gin.Engine {
	r := gin.New()
	r.GET("/private", AuthRequired(authService), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"email": CurrentUser(c).Email})
	})
	return r
}

func TestAuthRequired(t *testing.T) {
	authService := &stubAuthService{
		users: map[string]*models.User{"good": {ID: 1, Email: "a@example.com", IsActive: true}},
		err: map[string]error{
			"inactive": &service.Error{Kind: service.ErrForbidden, Message: "Inactive user"},
		},
	}
	router := newAuthRouter(authService)

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{"valid token", "Bearer good", http.StatusOK},
		{"lowercase scheme", "bearer good", http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic good", http.StatusUnauthorized},
		{"empty token", "Bearer ", http.StatusUnauthorized},
		{"unknown token", "Bearer bad", http.StatusUnauthorized},
		{"inactive user", "Bearer inactive", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/private", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusUnauthorized {
				assert.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))
			}
		})
	}
}

func TestIPRateLimitMiddleware(t *testing.T) {
	limiter := NewIPRateLimiter(rate.Every(time.Hour), 2)

	r := gin.New()
	r.Use(IPRateLimitMiddleware(limiter))
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/api/v1/asteroids/feed", func(c *gin.Context) { c.Status(http.StatusOK) })

	call := func(path, ip string) int {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.RemoteAddr = ip + ":1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, call("/api/v1/asteroids/feed", "10.0.0.1"))
	assert.Equal(t, http.StatusOK, call("/api/v1/asteroids/feed", "10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, call("/api/v1/asteroids/feed", "10.0.0.1"))

	// Другой IP и health-check не ограничены
	assert.Equal(t, http.StatusOK, call("/api/v1/asteroids/feed", "10.0.0.2"))
	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, call("/health", "10.0.0.1"))
	}
}

func TestIPRateLimiter_Cleanup(t *testing.T) {
	limiter := NewIPRateLimiter(rate.Limit(1), 1)
	limiter.GetLimiter("10.0.0.1")
	limiter.GetLimiter("10.0.0.2")

	assert.Zero(t, limiter.Cleanup(time.Hour))
	assert.Equal(t, 2, limiter.Cleanup(-time.Second))
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(), AccessLog())
	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(requestIDKey))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	generated := w.Header().Get(RequestIDHeader)
	require.Len(t, generated, 36)
	assert.Equal(t, generated, w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "client-id-1")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "client-id-1", w.Header().Get(RequestIDHeader))
}
