package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/stuvents/events-api/internal/config"
)

func loadTestRateConfig(strategy string) config.RateLimitConfig {
	return config.RateLimitConfig{Prefix: "rl", KeyStrategy: strategy}
}

func rateCtx(userID interface{}) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/events", nil)
	c := e.NewContext(req, httptest.NewRecorder())
	if userID != nil {
		c.Set("user_id", userID)
	}
	return c
}

func TestCurrentUserIDShapes(t *testing.T) {
	// JWTAuth stores claims["sub"] verbatim, which arrives as a
	// float64; the limiter must key such callers by ID, not "anon".
	cases := []struct {
		name string
		val  interface{}
		want string
	}{
		{"jwt numeric claim", float64(7), "7"},
		{"uint64", uint64(42), "42"},
		{"int64", int64(9), "9"},
		{"int", 3, "3"},
		{"string", "15", "15"},
		{"unauthenticated", nil, "anon"},
		{"empty string", "", "anon"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, currentUserID(rateCtx(tc.val)))
		})
	}
}

func TestBuildRateKeyUsesUserID(t *testing.T) {
	cfg := loadTestRateConfig("user")
	c := rateCtx(float64(7))
	assert.Equal(t, "rl:user:7", buildRateKey(cfg, c))
}

func TestBuildRateKeyDefaultStrategy(t *testing.T) {
	cfg := loadTestRateConfig("ip_user_route")
	c := rateCtx(uint64(5))
	key := buildRateKey(cfg, c)
	assert.Contains(t, key, ":user:5:")
	assert.Contains(t, key, "GET /v1/events")
}
