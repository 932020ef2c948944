package records

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/healthhistory/healthhistory/internal/platform/apperr"
	"github.com/healthhistory/healthhistory/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the /records endpoints. g must already carry
// auth.Middleware.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/upload", h.Upload)
	g.GET("/my-history", h.MyHistory)
	g.GET("/patient-history/:patient_id", h.PatientHistory)
}

func (h *Handler) Upload(c echo.Context) error {
	claims := auth.ClaimsFromContext(c.Request().Context())
	if err := auth.Authorize(claims, auth.RoleDoctor); err != nil {
		return err
	}

	var req UploadRequest
	if err := c.Bind(&req); err != nil {
		return apperr.BindError(err)
	}

	rec, err := h.svc.Upload(c.Request().Context(), claims, req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, map[string]string{
		"msg":     "Record uploaded successfully",
		"patient": rec.PatientIDRef,
	})
}

func (h *Handler) MyHistory(c echo.Context) error {
	claims := auth.ClaimsFromContext(c.Request().Context())
	items, err := h.svc.OwnHistory(c.Request().Context(), claims)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"history": items})
}

func (h *Handler) PatientHistory(c echo.Context) error {
	claims := auth.ClaimsFromContext(c.Request().Context())
	items, err := h.svc.PatientHistory(c.Request().Context(), claims, c.Param("patient_id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"history": items})
}
