package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/coordenador-app/booking-api/internal/model"
)

// ProfessorLister is the slice of the user repository the HTTP layer
// needs: the slot picker shows students who they can book with.
type ProfessorLister interface {
	ListProfessors(ctx context.Context) ([]model.User, error)
}

// UserHandler exposes user lookups.
type UserHandler struct {
	Users ProfessorLister
}

// NewUserHandler constructs the handler and panics if the store is nil.
func NewUserHandler(users ProfessorLister) *UserHandler {
	if users == nil {
		panic("nil user store passed to NewUserHandler")
	}
	return &UserHandler{Users: users}
}

// ListProfessors handles GET /v1/professors.  Any authenticated user
// may list; the response carries no credential data.
func (h *UserHandler) ListProfessors(c echo.Context) error {
	items, err := h.Users.ListProfessors(c.Request().Context())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}
