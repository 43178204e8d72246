// Package tableview implements the searchable, sortable record table shared
// by every dashboard section. A View owns one domain's snapshot, filter, sort
// and selection; each domain is just a Config.
package tableview

import (
	"slices"
	"strings"

	"github.com/wesm/suitedash/internal/records"
)

// Column describes one table column.
type Column struct {
	Key   string // record field
	Label string // header text
	Width int    // fixed cell width; 0 shares the remaining space

	// Value overrides how the cell is displayed. Sorting and searching still
	// use the raw field.
	Value func(records.Record) string
}

// Config parameterizes a View for one domain.
type Config struct {
	Columns      []Column
	SearchFields []string
	IDField      string // defaults to "Id"
	Noun         string // plural, e.g. "builders"
	Selectable   bool
}

// Direction is a sort direction.
type Direction int

const (
	Asc Direction = iota
	Desc
)

// SortState is the active sort. An empty Column means unsorted.
type SortState struct {
	Column string
	Dir    Direction
}

// View is the state of one domain table. The zero value is not usable; call
// New.
type View struct {
	cfg Config

	all  []records.Record // authoritative snapshot
	rows []records.Record // filtered, then sorted

	filter   string
	sort     SortState
	selected string
	cursor   int
	offset   int

	loading bool
	loaded  bool
	err     error
}

// New creates an empty View.
func New(cfg Config) *View {
	if cfg.IDField == "" {
		cfg.IDField = "Id"
	}
	return &View{cfg: cfg, rows: []records.Record{}}
}

// Config returns the view's configuration.
func (v *View) Config() Config { return v.cfg }

// SetLoading marks a load in flight.
func (v *View) SetLoading() {
	v.loading = true
}

// Loading reports whether a load is in flight.
func (v *View) Loading() bool { return v.loading }

// Loaded reports whether any load has succeeded.
func (v *View) Loaded() bool { return v.loaded }

// SetRecords replaces the snapshot and recomputes the visible rows with the
// current filter and sort.
func (v *View) SetRecords(recs []records.Record) {
	v.all = slices.Clone(recs)
	v.loading = false
	v.loaded = true
	v.err = nil
	v.recompute()
}

// SetError records a failed load. The snapshot is left untouched.
func (v *View) SetError(err error) {
	v.loading = false
	v.err = err
}

// Err returns the last load error, cleared by the next successful load.
func (v *View) Err() error { return v.err }

// SetFilter stores term and recomputes the rows from the full snapshot.
func (v *View) SetFilter(term string) {
	v.filter = term
	v.recompute()
}

// Filter returns the raw filter term.
func (v *View) Filter() string { return v.filter }

// ToggleSort sorts the current rows by column. The same column flips the
// direction; a different column starts ascending.
func (v *View) ToggleSort(column string) {
	if v.sort.Column == column {
		if v.sort.Dir == Asc {
			v.sort.Dir = Desc
		} else {
			v.sort.Dir = Asc
		}
	} else {
		v.sort = SortState{Column: column, Dir: Asc}
	}
	v.applySort()
}

// ToggleSortIndex is ToggleSort by zero-based column position. It reports
// false when i is out of range.
func (v *View) ToggleSortIndex(i int) bool {
	if i < 0 || i >= len(v.cfg.Columns) {
		return false
	}
	v.ToggleSort(v.cfg.Columns[i].Key)
	return true
}

// Sort returns the active sort.
func (v *View) Sort() SortState { return v.sort }

// Rows returns the filtered, sorted rows. Callers must not modify it.
func (v *View) Rows() []records.Record { return v.rows }

// All returns the snapshot. Callers must not modify it.
func (v *View) All() []records.Record { return v.all }

// Total is the snapshot size.
func (v *View) Total() int { return len(v.all) }

// Select marks id as selected. The id need not be in the snapshot.
func (v *View) Select(id string) {
	v.selected = id
}

// Close clears the selection.
func (v *View) Close() {
	v.selected = ""
}

// Selected returns the selected id.
func (v *View) Selected() (string, bool) {
	return v.selected, v.selected != ""
}

// Lookup finds a record by id in the snapshot.
func (v *View) Lookup(id string) (records.Record, bool) {
	for _, r := range v.all {
		if r.String(v.cfg.IDField) == id {
			return r, true
		}
	}
	return nil, false
}

// ID returns the id of r.
func (v *View) ID(r records.Record) string {
	return r.String(v.cfg.IDField)
}

// Cursor returns the cursor position within Rows.
func (v *View) Cursor() int { return v.cursor }

// MoveCursor moves the cursor by delta, clamped to the rows.
func (v *View) MoveCursor(delta int) {
	v.SetCursor(v.cursor + delta)
}

// SetCursor places the cursor at i, clamped to the rows.
func (v *View) SetCursor(i int) {
	if i >= len(v.rows) {
		i = len(v.rows) - 1
	}
	if i < 0 {
		i = 0
	}
	v.cursor = i
}

// CursorRecord returns the record under the cursor.
func (v *View) CursorRecord() (records.Record, bool) {
	if v.cursor < 0 || v.cursor >= len(v.rows) {
		return nil, false
	}
	return v.rows[v.cursor], true
}

// recompute rebuilds rows from the snapshot: filter, then the active sort.
func (v *View) recompute() {
	term := strings.ToLower(strings.TrimSpace(v.filter))
	rows := make([]records.Record, 0, len(v.all))
	for _, r := range v.all {
		if v.matches(r, term) {
			rows = append(rows, r)
		}
	}
	v.rows = rows
	v.applySort()
	v.SetCursor(v.cursor)
}

func (v *View) matches(r records.Record, term string) bool {
	if term == "" {
		return true
	}
	for _, f := range v.cfg.SearchFields {
		if strings.Contains(r.Fold(f), term) {
			return true
		}
	}
	return false
}

func (v *View) applySort() {
	if v.sort.Column == "" {
		return
	}
	col := v.sort.Column
	desc := v.sort.Dir == Desc
	slices.SortStableFunc(v.rows, func(a, b records.Record) int {
		c := strings.Compare(a.Fold(col), b.Fold(col))
		if desc {
			return -c
		}
		return c
	})
}
