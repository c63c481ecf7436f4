package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
	"net/http" // HTTP status codes for responses
	"strconv"  // numeric claim conversion
	"strings"  // string utilities for prefix checking and trimming

	"github.com/golang-jwt/jwt/v5" // JWT library for parsing and validating tokens
	"github.com/labstack/echo/v4"  // Echo framework used for defining middleware and handlers

	"github.com/coordenador-app/booking-api/internal/model"
)

// identityKey is the context key under which the resolved caller is stored.
const identityKey = "identity"

// JWTAuth returns an Echo middleware that validates a Bearer access token
// issued by the external identity service and injects the resolved caller
// identity into the request context.  Token issuance, refresh and password
// handling all live outside this service; the core trusts the claims of a
// token that verifies against the shared secret.  Handlers read the caller
// via CallerIdentity(c).
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			// Read the Authorization header.  A valid header should start
			// with "Bearer " followed by the JWT.
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			raw := strings.TrimPrefix(auth, "Bearer ")

			// Parse the token using the HS256 signing method and our secret.
			// If the signing method differs, reject the token.
			tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, echo.ErrUnauthorized
				}
				return []byte(secret), nil
			})
			if err != nil || !tok.Valid {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}

			claims, ok := tok.Claims.(jwt.MapClaims)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid claims"})
			}

			id, ok := subjectID(claims["sub"])
			if !ok || id == 0 {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid subject"})
			}

			ident := model.Identity{
				ID:          id,
				IsProfessor: boolClaim(claims["professor"]),
				IsAdmin:     boolClaim(claims["admin"]),
			}
			c.Set(identityKey, ident)
			// keep a string form around for rate-limit key building
			c.Set("user_id", strconv.FormatUint(ident.ID, 10))
			return next(c)
		}
	}
}

// CallerIdentity returns the identity stored by JWTAuth.  The boolean is
// false when the middleware did not run (unprotected route).
func CallerIdentity(c echo.Context) (model.Identity, bool) {
	v := c.Get(identityKey)
	ident, ok := v.(model.Identity)
	return ident, ok
}

// subjectID converts the "sub" claim to a user id.  Identity services
// disagree on whether sub is a number or a decimal string, so both are
// accepted.
func subjectID(v interface{}) (uint64, bool) {
	switch t := v.(type) {
	case float64:
		if t < 0 {
			return 0, false
		}
		return uint64(t), true
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, true
		}
	}
	return 0, false
}

// boolClaim reads a bool claim, tolerating the "true"/"false" strings
// some issuers emit.
func boolClaim(v interface{}) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return t == "true" || t == "1"
	}
	return false
}
