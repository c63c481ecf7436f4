package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coordenador-app/booking-api/internal/config"
)

func testCacheConfig(strategy string) config.CacheConfig {
	return config.CacheConfig{
		Enabled:     true,
		Methods:     map[string]bool{"GET": true},
		KeyStrategy: strategy,
		Prefix:      "cache",
	}
}

func slotsContext(query string) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/slots?"+query, nil)
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/v1/slots")
	return c
}

// The write side recomputes keys from (method, route, query) to delete
// them; those keys must match what the read path stores under.
func TestCacheKeyMatchesWriteSideKey(t *testing.T) {
	cfg := testCacheConfig("route_query")

	c := slotsContext("date=2026-09-14")
	want := cacheKey(cfg, http.MethodGet, "/v1/slots", "date=2026-09-14")
	assert.Equal(t, want, cacheKeyFrom(cfg, c))

	other := cacheKey(cfg, http.MethodGet, "/v1/slots", "date=2026-09-15")
	assert.NotEqual(t, want, other, "each date caches separately")
}

func TestCacheKeyRouteStrategyIgnoresQuery(t *testing.T) {
	cfg := testCacheConfig("route")

	a := cacheKey(cfg, http.MethodGet, "/v1/slots", "date=2026-09-14")
	b := cacheKey(cfg, http.MethodGet, "/v1/slots", "")
	assert.Equal(t, a, b)
}

func TestEncodeDecodePayload(t *testing.T) {
	hdr := http.Header{"Content-Type": []string{"application/json"}}
	body := []byte(`{"items":[]}`)

	bs, err := encodePayload(http.StatusOK, hdr, body)
	require.NoError(t, err)

	status, gotHdr, gotBody, ok := decodePayload(bs)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "application/json", gotHdr.Get("Content-Type"))
	assert.Equal(t, body, gotBody)

	_, _, _, ok = decodePayload(bs[:5])
	assert.False(t, ok, "truncated payloads are rejected")
}

func TestSlotInvalidatorWithoutRedisIsNoop(t *testing.T) {
	inv := SlotInvalidator(testCacheConfig("route_query"), nil, "/v1/slots")
	require.NotNil(t, inv)
	inv(context.Background(), "2026-09-14")
}
