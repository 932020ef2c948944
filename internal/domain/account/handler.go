package account

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/healthhistory/healthhistory/internal/platform/apperr"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the unauthenticated /auth endpoints on g.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/register", h.Register)
	g.POST("/login", h.Login)
}

func (h *Handler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return apperr.BindError(err)
	}

	res, err := h.svc.Register(c.Request().Context(), req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, map[string]string{
		"msg": fmt.Sprintf("%s registered successfully!", res.Role),
		"id":  res.PublicID,
	})
}

func (h *Handler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return apperr.BindError(err)
	}

	res, err := h.svc.Login(c.Request().Context(), req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]string{
		"msg":           "Login Successful",
		"token":         res.Token,
		"role":          res.Role.String(),
		"user_identity": res.PublicID,
	})
}
