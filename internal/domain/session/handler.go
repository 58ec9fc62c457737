package session

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/patients/:id/sessions", h.ListSessions)
	api.POST("/patients/:id/sessions", h.CreateSession)
	api.GET("/patients/:id/stats", h.GetStats)
	api.PUT("/sessions/:id", h.UpdateSession)
	api.DELETE("/sessions/:id", h.DeleteSession)
}

func domainError(err error) error {
	switch {
	case err == nil:
		return nil
	case IsValidation(err):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

func parseID(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return uint(id), nil
}

func (h *Handler) CreateSession(c echo.Context) error {
	patientID, err := parseID(c)
	if err != nil {
		return err
	}
	var s Session
	if err := c.Bind(&s); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	s.PatientID = patientID
	if err := h.svc.Create(c.Request().Context(), &s); err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusCreated, s)
}

func (h *Handler) ListSessions(c echo.Context) error {
	patientID, err := parseID(c)
	if err != nil {
		return err
	}
	rows, err := h.svc.ListByPatient(c.Request().Context(), patientID)
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusOK, rows)
}

func (h *Handler) GetStats(c echo.Context) error {
	patientID, err := parseID(c)
	if err != nil {
		return err
	}
	stats, err := h.svc.StatsByPatient(c.Request().Context(), patientID)
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusOK, stats)
}

func (h *Handler) UpdateSession(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	existing, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return domainError(err)
	}
	var s Session
	if err := c.Bind(&s); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	s.ID = id
	s.PatientID = existing.PatientID
	if err := h.svc.Update(c.Request().Context(), &s); err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusOK, s)
}

func (h *Handler) DeleteSession(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return domainError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
