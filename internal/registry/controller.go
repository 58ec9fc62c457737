package registry

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/patientdesk/patientdesk/internal/domain/patient"
)

// Mode is the editor state of the view.
type Mode int

const (
	// Browsing means no record is being edited.
	Browsing Mode = iota
	// EditingExisting means the form holds a stored record.
	EditingExisting
	// EditingNew means the form holds an unsaved record.
	EditingNew
)

func (m Mode) String() string {
	switch m {
	case EditingExisting:
		return "editing"
	case EditingNew:
		return "new"
	default:
		return "browsing"
	}
}

// Form holds the editable patient fields as entered, before normalization.
type Form struct {
	CIN       string `json:"cin"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	BirthDate string `json:"birth_date"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
	Notes     string `json:"notes"`
}

// ViewState is a snapshot of everything the list view renders.
type ViewState struct {
	Headers    []string   `json:"headers"`
	Rows       [][]string `json:"rows"`
	Page       int        `json:"page"`
	PageSize   int        `json:"page_size"`
	TotalPages int        `json:"total_pages"`
	TotalRows  int        `json:"total_rows"`
	PageLabel  string     `json:"page_label"`
	RangeLabel string     `json:"range_label"`
	Mode       string     `json:"mode"`
	SelectedID uint       `json:"selected_id,omitempty"`
	Form       Form       `json:"form"`
}

// Controller ties the store, the filter and pagination layers, and the edit
// form together behind a single mutex. Every mutation requeries or
// invalidates downstream layers so the view never renders stale indexes.
type Controller struct {
	mu  sync.Mutex
	svc *patient.Service
	log zerolog.Logger

	table  *Table
	filter *Filter
	pager  *Pager

	searchText string
	debouncer  *Debouncer

	mode      Mode
	currentID uint
	form      Form
}

func NewController(svc *patient.Service, pageSize int, searchDelay time.Duration, log zerolog.Logger) *Controller {
	table := NewTable(nil)
	filter := NewFilter(table)
	return &Controller{
		svc:       svc,
		log:       log,
		table:     table,
		filter:    filter,
		pager:     NewPager(filter, pageSize),
		debouncer: NewDebouncer(searchDelay),
		mode:      Browsing,
	}
}

// Refresh requeries the store and rebuilds the filtered and paged views.
func (c *Controller) Refresh(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refreshLocked(ctx)
}

func (c *Controller) refreshLocked(ctx context.Context) error {
	rows, err := c.svc.Search(ctx, c.searchText)
	if err != nil {
		return err
	}
	c.table.SetRows(rows)
	c.filter.Invalidate()
	c.pager.Clamp()
	return nil
}

// SetSearchText updates the quick-search text. The store requery is
// debounced so keystroke bursts issue a single query; the page resets to 1
// because the old position is meaningless against a new result set. The
// requery outlives the triggering request, so its cancellation is detached.
func (c *Controller) SetSearchText(ctx context.Context, q string) {
	c.mu.Lock()
	c.searchText = strings.TrimSpace(q)
	c.mu.Unlock()

	queryCtx := context.WithoutCancel(ctx)
	c.debouncer.Trigger(func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if err := c.refreshLocked(queryCtx); err != nil {
			c.log.Error().Err(err).Str("q", c.searchText).Msg("search requery failed")
			return
		}
		c.pager.SetPage(1)
	})
}

// SetTextFilters replaces the per-column text predicates.
func (c *Controller) SetTextFilters(t TextFilters) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.filter.SetText(t)
	c.pager.Clamp()
}

// SetDateRange replaces the inclusive birth-date range.
func (c *Controller) SetDateRange(from, to *time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.filter.SetDateRange(from, to)
	c.pager.Clamp()
}

// SetInclusion restricts a column to a set of checked values.
func (c *Controller) SetInclusion(col int, values []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.filter.SetInclusion(col, values)
	c.pager.Clamp()
}

// DistinctValues lists the checkable values of a column among visible rows.
func (c *Controller) DistinctValues(col int) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filter.DistinctValues(col)
}

// ClearFilters drops every predicate but keeps the quick-search text.
func (c *Controller) ClearFilters() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.filter.Clear()
	c.pager.Clamp()
}

func (c *Controller) SetPage(page int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pager.SetPage(page)
}

func (c *Controller) SetPageSize(size int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pager.SetPageSize(size)
}

// Select loads the record at a window row into the form.
func (c *Controller) Select(row int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	fi, ok := c.pager.FilteredIndex(row)
	if !ok {
		return errors.New("row out of range")
	}
	p := c.filter.At(fi)
	c.currentID = p.ID
	c.mode = EditingExisting
	c.form = formFromPatient(p)
	return nil
}

// New clears the form for a fresh record.
func (c *Controller) New() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.currentID = 0
	c.mode = EditingNew
	c.form = Form{}
}

// Cancel abandons the form and returns to browsing.
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.currentID = 0
	c.mode = Browsing
	c.form = Form{}
}

// SetForm replaces the form contents, keeping the current mode.
func (c *Controller) SetForm(f Form) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.form = f
}

// Save persists the form. Validation and CIN-conflict failures leave the
// mode and form untouched so the user can correct the entry. On success the
// view requeries, jumps to page 1, and reselects the saved record by CIN so
// the selection survives re-sorting.
func (c *Controller) Save(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.mode == Browsing {
		return errors.New("nothing to save")
	}

	p, err := c.patientFromForm()
	if err != nil {
		return err
	}

	if c.mode == EditingExisting {
		p.ID = c.currentID
		err = c.svc.Update(ctx, p)
	} else {
		err = c.svc.Create(ctx, p)
	}
	if err != nil {
		return err
	}

	if err := c.refreshLocked(ctx); err != nil {
		return err
	}
	c.pager.SetPage(1)
	c.reselectByCIN(p.CIN)
	return nil
}

// Delete removes the selected record and its sessions. It requires an
// explicit confirmation flag and only applies to stored records.
func (c *Controller) Delete(ctx context.Context, confirmed bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.mode != EditingExisting {
		return errors.New("no stored record selected")
	}
	if !confirmed {
		return errors.New("deletion requires confirmation")
	}

	if err := c.svc.Delete(ctx, c.currentID); err != nil {
		return err
	}
	c.currentID = 0
	c.mode = Browsing
	c.form = Form{}
	if err := c.refreshLocked(ctx); err != nil {
		return err
	}
	c.pager.SetPage(1)
	return nil
}

// reselectByCIN finds the saved record in the refreshed sequence and, when
// visible, moves the page to it and restores the selection.
func (c *Controller) reselectByCIN(cin string) {
	for i := 0; i < c.filter.RowCount(); i++ {
		p := c.filter.At(i)
		if !strings.EqualFold(p.CIN, cin) {
			continue
		}
		c.pager.SetPage(i/c.pager.PageSize() + 1)
		c.currentID = p.ID
		c.mode = EditingExisting
		c.form = formFromPatient(p)
		return
	}
	// Saved record filtered out of view: return to browsing.
	c.currentID = 0
	c.mode = Browsing
	c.form = Form{}
}

// State snapshots the view for rendering.
func (c *Controller) State() ViewState {
	c.mu.Lock()
	defer c.mu.Unlock()

	rows := make([][]string, c.pager.RowCount())
	for r := range rows {
		cells := make([]string, columnCount)
		for col := 0; col < columnCount; col++ {
			cells[col] = c.pager.Value(r, col)
		}
		rows[r] = cells
	}

	return ViewState{
		Headers:    Headers[:],
		Rows:       rows,
		Page:       c.pager.Page(),
		PageSize:   c.pager.PageSize(),
		TotalPages: c.pager.TotalPages(),
		TotalRows:  c.pager.TotalRows(),
		PageLabel:  c.pager.PageLabel(),
		RangeLabel: c.pager.RangeLabel(),
		Mode:       c.mode.String(),
		SelectedID: c.currentID,
		Form:       c.form,
	}
}

// PatientsOnPage returns the records of the current window, for export.
func (c *Controller) PatientsOnPage() []*patient.Patient {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*patient.Patient, 0, c.pager.RowCount())
	for r := 0; r < c.pager.RowCount(); r++ {
		out = append(out, c.pager.At(r))
	}
	return out
}

// FilteredPatients returns every record passing the filters, for export.
func (c *Controller) FilteredPatients() []*patient.Patient {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*patient.Patient, 0, c.filter.RowCount())
	for i := 0; i < c.filter.RowCount(); i++ {
		out = append(out, c.filter.At(i))
	}
	return out
}

// SelectedID returns the store identifier of the selected record, 0 when
// none.
func (c *Controller) SelectedID() uint {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentID
}

func formFromPatient(p *patient.Patient) Form {
	return Form{
		CIN:       p.CIN,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		BirthDate: p.BirthDateString(),
		Phone:     p.PhoneString(),
		Email:     p.EmailString(),
		Notes:     p.NotesString(),
	}
}

func (c *Controller) patientFromForm() (*patient.Patient, error) {
	bd, err := patient.ParseBirthDate(c.form.BirthDate)
	if err != nil {
		return nil, err
	}
	p := &patient.Patient{
		CIN:       c.form.CIN,
		FirstName: c.form.FirstName,
		LastName:  c.form.LastName,
		BirthDate: bd,
	}
	if v := strings.TrimSpace(c.form.Phone); v != "" {
		p.Phone = &v
	}
	if v := strings.TrimSpace(c.form.Email); v != "" {
		p.Email = &v
	}
	if v := strings.TrimSpace(c.form.Notes); v != "" {
		p.Notes = &v
	}
	return p, nil
}
