package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"watch-reserve/backend/config"
	"watch-reserve/backend/internal/access"
	"watch-reserve/backend/pkg/jwt"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestJWT() *jwt.Manager {
	return jwt.NewManager(&config.AuthConfig{
		JWTSecret:               "test-secret-key-for-unit-testing-2026",
		AccessTokenTTL:          15 * time.Minute,
		RefreshTokenTTLDefault:  24 * time.Hour,
		RefreshTokenTTLRemember: 7 * 24 * time.Hour,
	})
}

func newAuthRouter(mgr *jwt.Manager) *gin.Engine {
	r := gin.New()
	r.GET("/me", JWTAuth(mgr, nil), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("user_id")+"|"+c.GetString("role"))
	})
	return r
}

func TestJWTAuth(t *testing.T) {
	mgr := newTestJWT()
	accessToken, _ := mgr.GenerateAccessToken("u-1", "manager")
	refresh, _ := mgr.GenerateRefreshToken("u-1", "manager", false)

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{"MissingHeader", "", http.StatusUnauthorized},
		{"WrongScheme", "Basic " + accessToken, http.StatusUnauthorized},
		{"Garbage", "Bearer not-a-token", http.StatusUnauthorized},
		{"RefreshTokenRejected", "Bearer " + refresh, http.StatusUnauthorized},
		{"Valid", "Bearer " + accessToken, http.StatusOK},
	}

	r := newAuthRouter(mgr)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest("GET", "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("expected %d, got %d", tt.wantStatus, w.Code)
			}
			if tt.wantStatus == http.StatusOK && w.Body.String() != "u-1|manager" {
				t.Errorf("unexpected context values: %q", w.Body.String())
			}
		})
	}
}

func TestFeatureAuth(t *testing.T) {
	tests := []struct {
		role       string
		feature    access.Feature
		wantStatus int
	}{
		{"member", access.TabCatalog, http.StatusOK},
		{"member", access.EditWatchStatus, http.StatusForbidden},
		{"sub_manager", access.EditWatchStatus, http.StatusOK},
		{"dealer", access.TabCalc, http.StatusOK},
		{"sub_manager", access.ManageUsers, http.StatusForbidden},
		{"manager", access.ViewOtherScope, http.StatusForbidden},
		{"owner", access.ViewOtherScope, http.StatusOK},
		{"admin", access.TabCatalog, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.role+"/"+tt.feature.String(), func(t *testing.T) {
			r := gin.New()
			r.GET("/x", func(c *gin.Context) {
				c.Set("role", tt.role)
				c.Next()
			}, FeatureAuth(tt.feature), func(c *gin.Context) {
				c.Status(http.StatusOK)
			})

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest("GET", "/x", nil))
			if w.Code != tt.wantStatus {
				t.Errorf("expected %d, got %d", tt.wantStatus, w.Code)
			}
		})
	}
}

func TestFeatureAuth_NoRole(t *testing.T) {
	r := gin.New()
	r.GET("/x", FeatureAuth(access.TabCatalog), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/x", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}
