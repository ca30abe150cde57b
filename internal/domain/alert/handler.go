package alert

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/carenav/navigator/internal/platform/notification"
	"github.com/carenav/navigator/pkg/pagination"
)

type Handler struct {
	store      *Store
	dispatcher *Dispatcher
}

func NewHandler(store *Store, dispatcher *Dispatcher) *Handler {
	return &Handler{store: store, dispatcher: dispatcher}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/alerts", h.ListAlerts)
	api.GET("/alerts/summary", h.GetSummary)
	api.GET("/alerts/:id", h.GetAlert)
	api.POST("/alerts/read-all", h.MarkAllRead)
	api.POST("/alerts/:id/read", h.MarkRead)
	api.POST("/alerts/:id/actions", h.DispatchAction)
}

// ActionResponse is returned by POST /alerts/:id/actions. Outcome is set for
// call and message; Pending means the caller went away before it arrived.
type ActionResponse struct {
	Alert   *Alert                `json:"alert"`
	Outcome *notification.Outcome `json:"outcome,omitempty"`
	Pending bool                  `json:"pending,omitempty"`
}

// httpError maps the alert error taxonomy onto HTTP statuses.
func httpError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrValidation), errors.Is(err, ErrUnsupportedAction):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrDuplicate):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

func (h *Handler) ListAlerts(c echo.Context) error {
	req, err := ParseQuery(Query{
		Search:       c.QueryParam("search"),
		Types:        c.QueryParam("type"),
		Categories:   c.QueryParam("category"),
		ShowResolved: c.QueryParam("show_resolved"),
		ShowRead:     c.QueryParam("show_read"),
		From:         c.QueryParam("from"),
		To:           c.QueryParam("to"),
		View:         c.QueryParam("view"),
		SortBy:       c.QueryParam("sort_by"),
		SortOrder:    c.QueryParam("sort_order"),
	})
	if err != nil {
		return httpError(err)
	}
	items, err := h.store.Query(c.Request().Context(), req)
	if err != nil {
		return httpError(err)
	}
	pg := pagination.FromContext(c)
	return c.JSON(http.StatusOK, pagination.NewResponse(pagination.Page(items, pg), len(items), pg.Limit, pg.Offset))
}

func (h *Handler) GetSummary(c echo.Context) error {
	all, err := h.store.List(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, Summarize(all, h.store.Now()))
}

func (h *Handler) GetAlert(c echo.Context) error {
	a, err := h.store.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) MarkRead(c echo.Context) error {
	res, err := h.dispatcher.Dispatch(c.Request().Context(), c.Param("id"), MarkRead{})
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, res.Alert)
}

func (h *Handler) MarkAllRead(c echo.Context) error {
	n, err := h.store.MarkAllAsRead(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"updated": n})
}

// DispatchAction applies an action and, for call and message, waits for the
// collaborator's outcome.
func (h *Handler) DispatchAction(c echo.Context) error {
	var req ActionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	action, err := DecodeAction(req)
	if err != nil {
		return httpError(err)
	}

	ctx := c.Request().Context()
	res, err := h.dispatcher.Dispatch(ctx, c.Param("id"), action)
	if err != nil {
		return httpError(err)
	}

	resp := ActionResponse{Alert: res.Alert}
	if res.Delivery != nil {
		out, err := res.Delivery.Wait(ctx)
		if err != nil {
			resp.Pending = true
			return c.JSON(http.StatusAccepted, resp)
		}
		resp.Outcome = &out
	}
	return c.JSON(http.StatusOK, resp)
}
