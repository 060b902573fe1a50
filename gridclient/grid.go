package gridclient

import (
	"context"
	"errors"
	"strings"

	"eventsapi/models"
	"eventsapi/utils"
)

// ErrBusy is returned while a previous submission is still outstanding.
var ErrBusy = errors.New("a request is already in flight")

// FieldError points the UI at the field that failed the begin-phase check.
type FieldError struct {
	Field string
	Msg   string
}

func (e *FieldError) Error() string { return e.Msg }

// Draft is the in-progress edit state for one row. It is replaced wholesale
// on every change; the last write wins. An empty ID means the row is new.
type Draft struct {
	ID          string
	Name        string
	Description string
	Date        string // ISO calendar date
	Time        string // HH:MM
	Location    string
	Status      string
	Cost        string

	// Image intent: bytes present = attach/replace, ImageClear = remove the
	// stored image, neither = leave it untouched.
	ImageData  []byte
	ImageType  string
	ImageClear bool
}

// Grid reconciles the in-memory row set with the server. Rows are only ever
// replaced by a full refresh; the grid never trusts its own optimistic
// projection of a mutated row.
type Grid struct {
	api     *APIClient
	rows    []models.Event
	draft   *Draft
	loading bool

	// ConfirmDelete gates the delete phase; deletes proceed only when it
	// returns true. Unset means nothing was confirmed.
	ConfirmDelete func(ids []string) bool
}

func NewGrid(api *APIClient) *Grid {
	return &Grid{api: api}
}

// Rows returns the current row set with display defaults applied for legacy
// records. The defaults are presentation only and never travel back to the
// server.
func (g *Grid) Rows() []models.Event {
	out := make([]models.Event, len(g.rows))
	for i, e := range g.rows {
		e.Normalize()
		if e.Cost == "" {
			e.Cost = "N/A"
		}
		out[i] = e
	}
	return out
}

func (g *Grid) Loading() bool { return g.loading }

// BeginAdd opens a draft for a new row.
func (g *Grid) BeginAdd() {
	g.draft = &Draft{Time: "00:00", Status: string(models.StatusScheduled)}
}

// BeginEdit opens a draft seeded from the stored row, not the display copy,
// so display defaults are never submitted as silent overrides.
func (g *Grid) BeginEdit(id string) error {
	for _, e := range g.rows {
		if e.ID == id {
			g.draft = &Draft{
				ID:          e.ID,
				Name:        e.Name,
				Description: e.Description,
				Date:        e.DateTime.UTC().Format("2006-01-02"),
				Time:        e.Time,
				Location:    e.Location,
				Status:      string(e.Status),
				Cost:        e.Cost,
			}
			return nil
		}
	}
	return errors.New("no such row: " + id)
}

// SetDraft replaces the draft snapshot wholesale.
func (g *Grid) SetDraft(d Draft) {
	g.draft = &d
}

func (g *Grid) Draft() *Draft { return g.draft }

// validate runs the begin-phase required-field checks against the draft.
// A failure aborts locally and keeps the draft for correction.
func (g *Grid) validate() error {
	d := g.draft
	if d == nil {
		return errors.New("no draft to submit")
	}
	if strings.TrimSpace(d.Name) == "" {
		return &FieldError{Field: "name", Msg: "Event name is required."}
	}
	if strings.TrimSpace(d.Location) == "" {
		return &FieldError{Field: "location", Msg: "Event location is required."}
	}
	if _, err := utils.ComposeDateTime(d.Date, "00:00"); err != nil {
		return &FieldError{Field: "date", Msg: "Event date is required and must be a valid date."}
	}
	return nil
}

// Complete submits the draft: exactly one create or update depending on
// whether the row is new, then an authoritative refresh. On failure the
// optimistic change is discarded and the draft stays open.
func (g *Grid) Complete(ctx context.Context) error {
	if g.loading {
		return ErrBusy
	}
	if err := g.validate(); err != nil {
		return err
	}

	g.loading = true
	defer func() { g.loading = false }()

	var err error
	if g.draft.ID == "" {
		_, err = g.api.CreateEvent(ctx, g.draft)
	} else {
		_, err = g.api.UpdateEvent(ctx, g.draft.ID, g.draft)
	}
	if err != nil {
		return err
	}

	g.draft = nil
	return g.refresh(ctx)
}

// Delete removes the selected rows after confirmation, one call per id,
// waiting for all of them. Partial outcomes are not tracked; the refresh
// afterwards is authoritative either way.
func (g *Grid) Delete(ctx context.Context, ids ...string) error {
	if g.loading {
		return ErrBusy
	}
	if len(ids) == 0 {
		return nil
	}
	if g.ConfirmDelete == nil || !g.ConfirmDelete(ids) {
		return nil
	}

	g.loading = true
	defer func() { g.loading = false }()

	var firstErr error
	for _, id := range ids {
		if err := g.api.DeleteEvent(ctx, id); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if err := g.refresh(ctx); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// Refresh re-fetches the full list and replaces local row state entirely.
func (g *Grid) Refresh(ctx context.Context) error {
	if g.loading {
		return ErrBusy
	}
	g.loading = true
	defer func() { g.loading = false }()
	return g.refresh(ctx)
}

func (g *Grid) refresh(ctx context.Context) error {
	events, err := g.api.ListEvents(ctx)
	if err != nil {
		return err
	}
	g.rows = events
	return nil
}
