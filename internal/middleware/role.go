package middleware // middleware provides shared request processing for handlers

import (
	"net/http" // http package defines standard HTTP status codes

	"github.com/labstack/echo/v4" // echo provides middleware chaining and context
)

// RequireProfessor aborts the request with 403 Forbidden unless the
// caller is a professor or an admin.  It assumes JWTAuth already ran
// and stored the identity in the context; a missing identity is
// treated as forbidden.
func RequireProfessor() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ident, ok := CallerIdentity(c)
			if !ok || (!ident.IsProfessor && !ident.IsAdmin) {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			return next(c)
		}
	}
}

// RequireAdmin aborts the request with 403 Forbidden unless the caller
// carries the admin flag.
func RequireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ident, ok := CallerIdentity(c)
			if !ok || !ident.IsAdmin {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			return next(c)
		}
	}
}
