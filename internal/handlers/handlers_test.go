package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SURE-Trust/certificate-service/internal/cache"
	"github.com/SURE-Trust/certificate-service/internal/models"
	"github.com/SURE-Trust/certificate-service/internal/services"
	"github.com/SURE-Trust/certificate-service/internal/utils"
)

func testLogger() utils.Logger {
	return utils.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(utils.ContextLogger(testLogger()))
	return router
}

type stubVerificationService struct {
	result *services.VerificationResponse
	err    error
}

func (s *stubVerificationService) Verify(_ context.Context, _ string, _ services.ClientMeta) (*services.VerificationResponse, error) {
	return s.result, s.err
}

type stubAuthService struct {
	claims *services.AccessClaims
}

func (s *stubAuthService) Register(context.Context, *services.RegisterRequest) (*services.AuthResponse, error) {
	return nil, services.ErrEmailTaken
}

func (s *stubAuthService) Login(context.Context, *services.LoginRequest) (*services.AuthResponse, error) {
	return nil, services.ErrInvalidCredentials
}

func (s *stubAuthService) LoginWithGoogle(context.Context, *services.GoogleLoginRequest) (*services.AuthResponse, error) {
	return nil, services.ErrInvalidToken
}

func (s *stubAuthService) Refresh(context.Context, string) (*services.TokenPair, error) {
	return nil, services.ErrInvalidToken
}

func (s *stubAuthService) Logout(context.Context, string) error         { return nil }
func (s *stubAuthService) VerifyEmail(context.Context, string) error    { return nil }
func (s *stubAuthService) ForgotPassword(context.Context, string) error { return nil }
func (s *stubAuthService) ResetPassword(context.Context, *services.ResetPasswordRequest) error {
	return nil
}

func (s *stubAuthService) ParseAccessToken(token string) (*services.AccessClaims, error) {
	if s.claims != nil && token == "good-token" {
		return s.claims, nil
	}
	return nil, services.ErrInvalidToken
}

func TestVerifyEndpointUnknownCode(t *testing.T) {
	verification := &stubVerificationService{
		result: &services.VerificationResponse{
			Verified: false,
			RefNo:    "STUDENT_NOPE_G1_0000_0000",
			Message:  "certificate not found",
		},
	}
	handler := NewCertificateHandler(nil, verification, testLogger())

	router := newTestRouter()
	router.GET("/api/v1/certificates/verify/:code", handler.VerifyCertificate)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/certificates/verify/STUDENT_NOPE_G1_0000_0000", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for unknown code, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"verified":false`) {
		t.Errorf("expected verified=false in body, got %s", w.Body.String())
	}
}

func TestVerifyEndpointInternalError(t *testing.T) {
	verification := &stubVerificationService{err: errors.New("store down")}
	handler := NewCertificateHandler(nil, verification, testLogger())

	router := newTestRouter()
	router.GET("/verify/:code", handler.VerifyCertificate)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/verify/ABC", nil))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "store down") {
		t.Error("internal error detail leaked to client")
	}
}

func TestAuthMiddlewareRejectsMissingToken(t *testing.T) {
	am := NewJWTAuthMiddleware(&stubAuthService{})

	router := newTestRouter()
	router.GET("/protected", am.AuthMiddleware(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	tests := []struct {
		name   string
		header string
	}{
		{"no header", ""},
		{"malformed header", "good-token"},
		{"wrong scheme", "Basic good-token"},
		{"invalid token", "Bearer bad-token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			router.ServeHTTP(w, req)

			if w.Code != http.StatusUnauthorized {
				t.Errorf("expected 401, got %d", w.Code)
			}
		})
	}
}

func TestAuthMiddlewareSetsIdentity(t *testing.T) {
	am := NewJWTAuthMiddleware(&stubAuthService{
		claims: &services.AccessClaims{
			UserID: 7,
			Email:  "holder@example.com",
			Role:   models.RoleUser,
		},
	})

	router := newTestRouter()
	router.GET("/protected", am.AuthMiddleware(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.GetUint("user_id")})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"user_id":7`) {
		t.Errorf("expected user_id 7 in body, got %s", w.Body.String())
	}
}

func TestRequireRoleMiddlewareBlocksNonAdmin(t *testing.T) {
	am := NewJWTAuthMiddleware(&stubAuthService{
		claims: &services.AccessClaims{UserID: 7, Role: models.RoleUser},
	})

	router := newTestRouter()
	router.GET("/admin", am.AuthMiddleware(), am.RequireRoleMiddleware(models.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin, got %d", w.Code)
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	store := cache.NewMemoryRateLimitStore()

	router := newTestRouter()
	router.GET("/limited", RateLimitMiddleware(store, "test", 2, time.Minute, testLogger()), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/limited", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, w.Code)
		}
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/limited", nil))
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after limit, got %d", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header on 429")
	}
}

func TestHandleServiceErrorMapping(t *testing.T) {
	base := NewBaseHandler(testLogger())

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", services.ErrCertificateNotFound, http.StatusNotFound},
		{"conflict", services.ErrAlreadyClaimed, http.StatusConflict},
		{"bad credentials", services.ErrInvalidCredentials, http.StatusUnauthorized},
		{"disabled account", services.ErrAccountDisabled, http.StatusForbidden},
		{"claim mismatch", services.ErrClaimEmailMismatch, http.StatusForbidden},
		{"provider error", services.NewProviderError("google"), http.StatusBadRequest},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter()
			router.GET("/err", func(c *gin.Context) {
				base.handleServiceError(c, tt.err)
			})

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/err", nil))
			if w.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, w.Code)
			}
		})
	}
}
