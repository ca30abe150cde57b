package notification

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/carenav/navigator/pkg/pagination"
)

// Handler exposes the outbound contact log over HTTP via Echo.
type Handler struct {
	manager *Manager
}

func NewHandler(mgr *Manager) *Handler {
	return &Handler{manager: mgr}
}

// RegisterRoutes registers all contact-log routes on the given Echo group.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/notifications/stats", h.HandleStats)
	g.GET("/notifications/:id", h.HandleGet)
	g.GET("/notifications", h.HandleList)
}

// HandleGet handles GET /notifications/:id.
func (h *Handler) HandleGet(c echo.Context) error {
	contact, err := h.manager.GetContact(c.Request().Context(), c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	return c.JSON(http.StatusOK, contact)
}

// HandleList handles GET /notifications?patient_id=...
func (h *Handler) HandleList(c echo.Context) error {
	pg := pagination.FromContext(c)
	all := h.manager.ListContacts(c.Request().Context(), c.QueryParam("patient_id"), 0)
	return c.JSON(http.StatusOK, pagination.NewResponse(pagination.Page(all, pg), len(all), pg.Limit, pg.Offset))
}

// HandleStats handles GET /notifications/stats.
func (h *Handler) HandleStats(c echo.Context) error {
	return c.JSON(http.StatusOK, h.manager.ContactStats(c.Request().Context()))
}
