package registry

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/patientdesk/patientdesk/internal/domain/patient"
	"github.com/patientdesk/patientdesk/internal/platform/csvio"
)

// Handler exposes the stateful registry view over HTTP: the filter and
// pagination pipeline, the edit form state machine, and CSV interchange.
type Handler struct {
	ctl *Controller
	svc *patient.Service

	mu         sync.Mutex
	lastImport *csvio.Result
}

func NewHandler(ctl *Controller, svc *patient.Service) *Handler {
	return &Handler{ctl: ctl, svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	v := api.Group("/view")
	v.GET("/rows", h.GetView)
	v.PUT("/search", h.SetSearch)
	v.PUT("/filters", h.SetFilters)
	v.GET("/filters/values", h.GetDistinctValues)
	v.PUT("/page", h.SetPage)
	v.POST("/select", h.SelectRow)
	v.POST("/new", h.NewRecord)
	v.POST("/cancel", h.CancelEdit)
	v.POST("/save", h.SaveRecord)
	v.DELETE("/selection", h.DeleteSelection)
	v.GET("/export", h.ExportCSV)
	v.GET("/template", h.Template)
	v.POST("/import", h.ImportCSV)
	v.GET("/import/report", h.ImportReport)
}

func domainError(err error) error {
	switch {
	case err == nil:
		return nil
	case patient.IsValidation(err):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case patient.IsConflict(err):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, patient.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

func (h *Handler) GetView(c echo.Context) error {
	if err := h.ctl.Refresh(c.Request().Context()); err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusOK, h.ctl.State())
}

func (h *Handler) SetSearch(c echo.Context) error {
	var body struct {
		Q string `json:"q"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	h.ctl.SetSearchText(c.Request().Context(), body.Q)
	return c.JSON(http.StatusOK, h.ctl.State())
}

// filtersRequest carries every predicate in one payload so a single call
// can replace the whole filter state.
type filtersRequest struct {
	Text       TextFilters         `json:"text"`
	BirthFrom  string              `json:"birth_from"`
	BirthTo    string              `json:"birth_to"`
	Inclusions map[string][]string `json:"inclusions"`
	Clear      bool                `json:"clear"`
}

var columnsByName = map[string]int{
	"id": ColID, "cin": ColCIN, "first_name": ColFirst, "last_name": ColLast,
	"birth_date": ColBirth, "phone": ColPhone, "email": ColEmail, "notes": ColNotes,
}

func (h *Handler) SetFilters(c echo.Context) error {
	var body filtersRequest
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if body.Clear {
		h.ctl.ClearFilters()
		return c.JSON(http.StatusOK, h.ctl.State())
	}

	from, err := patient.ParseBirthDate(body.BirthFrom)
	if err != nil {
		return domainError(err)
	}
	to, err := patient.ParseBirthDate(body.BirthTo)
	if err != nil {
		return domainError(err)
	}

	h.ctl.SetTextFilters(body.Text)
	h.ctl.SetDateRange(from, to)
	for name, values := range body.Inclusions {
		col, ok := columnsByName[name]
		if !ok {
			return echo.NewHTTPError(http.StatusBadRequest, "unknown column "+name)
		}
		h.ctl.SetInclusion(col, values)
	}
	return c.JSON(http.StatusOK, h.ctl.State())
}

// GetDistinctValues lists the checkable values of ?column= among the rows
// currently passing the filters, for the header checklist.
func (h *Handler) GetDistinctValues(c echo.Context) error {
	name := c.QueryParam("column")
	col, ok := columnsByName[name]
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "unknown column "+name)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"column": name,
		"values": h.ctl.DistinctValues(col),
	})
}

func (h *Handler) SetPage(c echo.Context) error {
	var body struct {
		Page     int `json:"page"`
		PageSize int `json:"page_size"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if body.PageSize > 0 {
		h.ctl.SetPageSize(body.PageSize)
	}
	if body.Page > 0 {
		h.ctl.SetPage(body.Page)
	}
	return c.JSON(http.StatusOK, h.ctl.State())
}

func (h *Handler) SelectRow(c echo.Context) error {
	var body struct {
		Row int `json:"row"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.ctl.Select(body.Row); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, h.ctl.State())
}

func (h *Handler) NewRecord(c echo.Context) error {
	h.ctl.New()
	return c.JSON(http.StatusOK, h.ctl.State())
}

func (h *Handler) CancelEdit(c echo.Context) error {
	h.ctl.Cancel()
	return c.JSON(http.StatusOK, h.ctl.State())
}

func (h *Handler) SaveRecord(c echo.Context) error {
	var f Form
	if err := c.Bind(&f); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	h.ctl.SetForm(f)
	if err := h.ctl.Save(c.Request().Context()); err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusOK, h.ctl.State())
}

// DeleteSelection removes the selected record. It refuses without
// ?confirm=true so the UI confirmation step cannot be bypassed by accident.
func (h *Handler) DeleteSelection(c echo.Context) error {
	confirmed, _ := strconv.ParseBool(c.QueryParam("confirm"))
	if err := h.ctl.Delete(c.Request().Context(), confirmed); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, h.ctl.State())
}

// ExportCSV streams the current view as CSV. ?scope=page exports only the
// visible window; the default exports every row passing the filters.
func (h *Handler) ExportCSV(c echo.Context) error {
	if err := h.ctl.Refresh(c.Request().Context()); err != nil {
		return domainError(err)
	}

	var rows []*patient.Patient
	switch c.QueryParam("scope") {
	case "page":
		rows = h.ctl.PatientsOnPage()
	case "", "filtered":
		rows = h.ctl.FilteredPatients()
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "scope must be page or filtered")
	}

	var buf bytes.Buffer
	if err := csvio.Export(&buf, rows); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="patients-`+time.Now().Format("2006-01-02")+`.csv"`)
	return c.Blob(http.StatusOK, "text/csv", buf.Bytes())
}

func (h *Handler) Template(c echo.Context) error {
	var buf bytes.Buffer
	if err := csvio.WriteTemplate(&buf); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="patients-template.csv"`)
	return c.Blob(http.StatusOK, "text/csv", buf.Bytes())
}

// ImportCSV takes a raw CSV request body, creates the valid rows, and
// returns the per-line results. The error list stays available for download
// via the import report until the next import.
func (h *Handler) ImportCSV(c echo.Context) error {
	ctx := c.Request().Context()
	res, err := csvio.Import(c.Request().Body, func(p *patient.Patient) error {
		return h.svc.Create(ctx, p)
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	h.mu.Lock()
	h.lastImport = res
	h.mu.Unlock()

	if err := h.ctl.Refresh(ctx); err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusOK, res)
}

// ImportReport downloads the rejected rows of the last import as CSV.
func (h *Handler) ImportReport(c echo.Context) error {
	h.mu.Lock()
	res := h.lastImport
	h.mu.Unlock()

	if res == nil {
		return echo.NewHTTPError(http.StatusNotFound, "no import has run")
	}

	var buf bytes.Buffer
	if err := csvio.WriteErrorReport(&buf, res.Errors); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="import-errors.csv"`)
	return c.Blob(http.StatusOK, "text/csv", buf.Bytes())
}
