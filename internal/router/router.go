package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/coordenador-app/booking-api/internal/config"
	"github.com/coordenador-app/booking-api/internal/handler"    // import the handlers that implement business logic
	"github.com/coordenador-app/booking-api/internal/middleware" // import middleware for JWT authentication and role enforcement
)

// RegisterRoutes registers routes that do not require authentication on the
// provided Echo instance: the health check used by load balancers and the
// Prometheus scrape endpoint.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// RegisterAPI registers the slot and meeting endpoints under /v1 and applies
// the necessary middleware.  Every route requires a valid access token; the
// write side of the slot board additionally requires the professor (or admin)
// role.  Slot listings are served through the Redis response cache, and
// meeting creation goes through the token-bucket rate limiter so a client
// cannot hammer the reservation path.  Pass nil for rdb to run without Redis
// (the cache and limiter are simply not installed).
func RegisterAPI(e *echo.Echo, a *handler.AvailabilityHandler, b *handler.BookingHandler, u *handler.UserHandler, jwtSecret string, rdb *redis.Client) {
	// All API routes live behind JWT authentication.  Identity (subject id
	// plus the professor/admin flags) is resolved once here and read by the
	// handlers via CallerIdentity.
	g := e.Group("/v1")
	g.Use(middleware.JWTAuth(jwtSecret))

	var cached, limited echo.MiddlewareFunc
	if rdb != nil {
		cacheCfg := config.LoadCacheConfig()
		cached = middleware.NewRedisCache(cacheCfg, rdb)
		limited = middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)

		// the write side drops the cached listing for a date the moment
		// a reservation, cancellation or publish changes it
		invalidate := middleware.SlotInvalidator(cacheCfg, rdb, "/v1/slots")
		a.InvalidateSlots = invalidate
		b.InvalidateSlots = invalidate
	}

	// Slot board.  Reads are open to any authenticated user; publishing and
	// wiping slots belong to professors and admins respectively.
	if cached != nil {
		g.GET("/slots", a.ListAvailable, cached)
	} else {
		g.GET("/slots", a.ListAvailable)
	}
	g.GET("/slots/check", a.CheckSlot)
	g.GET("/professors", u.ListProfessors)
	g.POST("/slots", a.PublishSlot, middleware.RequireProfessor())
	g.DELETE("/slots", a.ClearSlots, middleware.RequireAdmin())

	// Meetings.  Creation is rate-limited per caller; cancellation carries
	// its own ownership check inside the handler because students may only
	// cancel their own bookings while professors may cancel any.
	if limited != nil {
		g.POST("/meetings", b.Reserve, limited)
	} else {
		g.POST("/meetings", b.Reserve)
	}
	g.PATCH("/meetings/:id/cancel", b.Cancel)
	g.GET("/meetings/next", b.Next)
	g.GET("/meetings/next-for-professor", b.NextForProfessor, middleware.RequireProfessor())
	g.GET("/meetings/future", b.Future, middleware.RequireProfessor())
	g.GET("/meetings/daily", b.Daily, middleware.RequireProfessor())
	g.GET("/meetings/student/:id", b.ListForStudent)
	g.GET("/meetings/:id", b.Get)
	g.PATCH("/meetings/:id", b.Update)
	g.DELETE("/meetings/:id", b.Delete, middleware.RequireAdmin())
	g.DELETE("/meetings", b.DeleteAll, middleware.RequireAdmin())
}
