package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/openpass/event-checkin/internal/config"
)

func eventCtx(url string) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, url, nil)
	c := e.NewContext(req, httptest.NewRecorder())
	// Mirror routing on the parameterized event route.
	c.SetPath("/events/:id")
	return c
}

func TestCacheKeyDistinguishesEventIDs(t *testing.T) {
	k1 := cacheKey("cache", eventCtx("/events/1"))
	k2 := cacheKey("cache", eventCtx("/events/2"))

	// Both requests hit the same registered route, but each event id
	// must get its own cache entry.
	assert.NotEqual(t, k1, k2)
}

func TestCacheKeyStablePerURL(t *testing.T) {
	assert.Equal(t,
		cacheKey("cache", eventCtx("/events/7")),
		cacheKey("cache", eventCtx("/events/7")))
}

func TestCacheKeyDistinguishesQueries(t *testing.T) {
	assert.NotEqual(t,
		cacheKey("cache", eventCtx("/events?page=1")),
		cacheKey("cache", eventCtx("/events?page=2")))
}

func TestResponseCacheDisabledIsPassThrough(t *testing.T) {
	mw := ResponseCache(config.CacheConfig{Enabled: false}, nil)

	called := false
	handler := mw(func(c echo.Context) error {
		called = true
		return c.String(http.StatusOK, "ok")
	})

	c := eventCtx("/events/1")
	assert.NoError(t, handler(c))
	assert.True(t, called)
}
