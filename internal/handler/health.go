package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Health answers liveness probes with a bare 200.  It deliberately
// touches neither the database nor the broker: a degraded dependency
// should surface as request errors, not as a restart loop.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}
