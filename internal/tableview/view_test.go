package tableview

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/wesm/suitedash/internal/records"
)

func buildersConfig() Config {
	return Config{
		Columns: []Column{
			{Key: "Name", Label: "Name"},
			{Key: "City", Label: "City", Width: 12},
			{Key: "State", Label: "State", Width: 5},
		},
		SearchFields: []string{"Name", "City", "State"},
		Noun:         "builders",
		Selectable:   true,
	}
}

func scenarioBuilders() []records.Record {
	return []records.Record{
		{"Id": "1", "Name": "Acme", "City": "Reno", "State": "NV"},
		{"Id": "2", "Name": "Zenith", "City": "Reno", "State": "NV"},
	}
}

// ids returns the Id of every visible row, in order.
func ids(v *View) []string {
	out := make([]string, 0, len(v.Rows()))
	for _, r := range v.Rows() {
		out = append(out, v.ID(r))
	}
	return out
}

func names(v *View) []string {
	out := make([]string, 0, len(v.Rows()))
	for _, r := range v.Rows() {
		out = append(out, r.String("Name"))
	}
	return out
}

func TestBuildersScenario(t *testing.T) {
	v := New(buildersConfig())
	v.SetRecords(scenarioBuilders())

	v.SetFilter("reno")
	if got := ids(v); !cmp.Equal(got, []string{"1", "2"}) {
		t.Fatalf("filter reno = %v, want both", got)
	}

	v.ToggleSort("Name")
	if diff := cmp.Diff([]string{"Acme", "Zenith"}, names(v)); diff != "" {
		t.Errorf("ascending (-want +got):\n%s", diff)
	}

	v.ToggleSort("Name")
	if diff := cmp.Diff([]string{"Zenith", "Acme"}, names(v)); diff != "" {
		t.Errorf("descending (-want +got):\n%s", diff)
	}
}

func TestFilterEmptyRestoresOriginalOrder(t *testing.T) {
	recs := []records.Record{
		{"Id": "1", "Name": "Zeta"},
		{"Id": "2", "Name": "alpha"},
		{"Id": "3", "Name": "Mid"},
	}
	v := New(buildersConfig())
	v.SetRecords(recs)

	for _, term := range []string{"a", "zzz", "MID", ""} {
		v.SetFilter(term)
	}
	v.SetFilter("   ")
	if diff := cmp.Diff([]string{"1", "2", "3"}, ids(v)); diff != "" {
		t.Errorf("rows after clearing filter (-want +got):\n%s", diff)
	}
}

func TestFilterIdempotent(t *testing.T) {
	v := New(buildersConfig())
	v.SetRecords([]records.Record{
		{"Id": "1", "Name": "Acme Homes", "City": "Boise"},
		{"Id": "2", "Name": "Pulte", "City": "Homestead"},
		{"Id": "3", "Name": "Lennar", "City": "Miami"},
	})

	v.SetFilter("home")
	once := ids(v)
	v.SetFilter("home")
	if diff := cmp.Diff(once, ids(v)); diff != "" {
		t.Errorf("second filter changed rows (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"1", "2"}, once); diff != "" {
		t.Errorf("filter home (-want +got):\n%s", diff)
	}
}

func TestFilterCaseAndWhitespace(t *testing.T) {
	tests := []struct {
		term string
		want []string
	}{
		{"", []string{"1", "2", "3"}},
		{"  ", []string{"1", "2", "3"}},
		{"  ACME ", []string{"1"}},
		{"nv", []string{"1", "2"}},
		{"true", []string{"3"}},
		{"nothing", []string{}},
	}
	cfg := buildersConfig()
	cfg.SearchFields = append(cfg.SearchFields, "Active")
	for _, tt := range tests {
		t.Run(tt.term, func(t *testing.T) {
			v := New(cfg)
			v.SetRecords([]records.Record{
				{"Id": "1", "Name": "Acme", "State": "NV"},
				{"Id": "2", "Name": "Zenith", "State": "nv", "City": nil},
				{"Id": "3", "Name": "Toll", "Active": true},
			})
			v.SetFilter(tt.term)
			if diff := cmp.Diff(tt.want, ids(v)); diff != "" {
				t.Errorf("SetFilter(%q) (-want +got):\n%s", tt.term, diff)
			}
		})
	}
}

func TestFilterIgnoresNonSearchFields(t *testing.T) {
	v := New(buildersConfig())
	v.SetRecords([]records.Record{{"Id": "reno-id", "Name": "Acme", "Phone": "reno"}})

	v.SetFilter("reno")
	if n := len(v.Rows()); n != 0 {
		t.Errorf("rows = %d, want 0 (Id and Phone are not searchable)", n)
	}
}

func TestSortToggleSequence(t *testing.T) {
	v := New(buildersConfig())
	v.SetRecords([]records.Record{
		{"Id": "1", "Name": "b"},
		{"Id": "2", "Name": "C"},
		{"Id": "3", "Name": "a"},
	})

	if v.Sort().Column != "" {
		t.Fatalf("initial sort = %+v, want none", v.Sort())
	}

	steps := []struct {
		dir  Direction
		want []string
	}{
		{Asc, []string{"3", "1", "2"}},
		{Desc, []string{"2", "1", "3"}},
		{Asc, []string{"3", "1", "2"}},
	}
	for i, s := range steps {
		v.ToggleSort("Name")
		if v.Sort() != (SortState{Column: "Name", Dir: s.dir}) {
			t.Errorf("step %d: sort = %+v", i+1, v.Sort())
		}
		if diff := cmp.Diff(s.want, ids(v)); diff != "" {
			t.Errorf("step %d (-want +got):\n%s", i+1, diff)
		}
	}
}

func TestSortDifferentColumnResetsToAscending(t *testing.T) {
	v := New(buildersConfig())
	v.SetRecords(scenarioBuilders())

	v.ToggleSort("Name")
	v.ToggleSort("Name")
	v.ToggleSort("City")
	if got := v.Sort(); got != (SortState{Column: "City", Dir: Asc}) {
		t.Errorf("sort = %+v, want City ascending", got)
	}
}

func TestSortStable(t *testing.T) {
	v := New(buildersConfig())
	v.SetRecords([]records.Record{
		{"Id": "1", "Name": "x", "State": "NV"},
		{"Id": "2", "Name": "y", "State": "AZ"},
		{"Id": "3", "Name": "z", "State": "nv"},
		{"Id": "4", "Name": "w", "State": "az"},
		{"Id": "5", "Name": "v"},
		{"Id": "6", "Name": "u", "State": nil},
	})

	v.ToggleSort("State")
	// Missing and null sort as "", equal keys keep snapshot order.
	if diff := cmp.Diff([]string{"5", "6", "2", "4", "1", "3"}, ids(v)); diff != "" {
		t.Errorf("ascending (-want +got):\n%s", diff)
	}

	v.ToggleSort("State")
	// Descending is stable relative to the ascending view it was sorted from.
	if diff := cmp.Diff([]string{"1", "3", "2", "4", "5", "6"}, ids(v)); diff != "" {
		t.Errorf("descending (-want +got):\n%s", diff)
	}
}

func TestFilterAndSortCompose(t *testing.T) {
	v := New(buildersConfig())
	v.SetRecords([]records.Record{
		{"Id": "1", "Name": "Delta", "City": "Reno"},
		{"Id": "2", "Name": "Bravo", "City": "Boise"},
		{"Id": "3", "Name": "Alpha", "City": "Reno"},
		{"Id": "4", "Name": "Charlie", "City": "Reno"},
	})

	v.SetFilter("reno")
	v.ToggleSort("Name")
	if diff := cmp.Diff([]string{"Alpha", "Charlie", "Delta"}, names(v)); diff != "" {
		t.Errorf("sort over filtered subset (-want +got):\n%s", diff)
	}

	// Re-filtering starts from the whole snapshot and keeps the sort.
	v.SetFilter("o")
	if diff := cmp.Diff([]string{"Alpha", "Bravo", "Charlie", "Delta"}, names(v)); diff != "" {
		t.Errorf("refilter (-want +got):\n%s", diff)
	}
	if v.Sort() != (SortState{Column: "Name", Dir: Asc}) {
		t.Errorf("sort reset by filter: %+v", v.Sort())
	}
	if v.Filter() != "o" {
		t.Errorf("filter = %q", v.Filter())
	}
}

func TestSetRecordsKeepsFilterAndSort(t *testing.T) {
	v := New(buildersConfig())
	v.SetRecords(scenarioBuilders())
	v.SetFilter("e")
	v.ToggleSort("Name")
	v.ToggleSort("Name")

	v.SetRecords([]records.Record{
		{"Id": "7", "Name": "Beta"},
		{"Id": "8", "Name": "Echo"},
		{"Id": "9", "Name": "Kilo"},
	})
	if diff := cmp.Diff([]string{"Echo", "Beta"}, names(v)); diff != "" {
		t.Errorf("reload (-want +got):\n%s", diff)
	}
	if v.Total() != 3 {
		t.Errorf("Total = %d, want 3", v.Total())
	}
}

func TestSetRecordsCopiesInput(t *testing.T) {
	recs := scenarioBuilders()
	v := New(buildersConfig())
	v.SetRecords(recs)
	v.ToggleSort("Name")
	v.ToggleSort("Name")

	if recs[0].String("Name") != "Acme" {
		t.Error("caller's slice was reordered")
	}
}

func TestSetErrorKeepsSnapshot(t *testing.T) {
	v := New(buildersConfig())
	v.SetLoading()
	v.SetError(errors.New("API error (500): internal error"))

	if v.Total() != 0 || v.Loading() || v.Loaded() {
		t.Errorf("first failed load: total=%d loading=%v loaded=%v", v.Total(), v.Loading(), v.Loaded())
	}

	v.SetRecords(scenarioBuilders())
	v.SetLoading()
	v.SetError(errors.New("boom"))
	if v.Total() != 2 {
		t.Errorf("Total = %d after failed reload, want previous 2", v.Total())
	}
	if v.Err() == nil {
		t.Error("Err() = nil")
	}

	v.SetRecords(scenarioBuilders()[:1])
	if v.Err() != nil {
		t.Errorf("Err() = %v after successful load", v.Err())
	}
}

func TestSelection(t *testing.T) {
	v := New(buildersConfig())
	v.SetRecords(scenarioBuilders())
	v.SetFilter("zen")
	v.ToggleSort("Name")

	if _, ok := v.Selected(); ok {
		t.Fatal("selection should start empty")
	}

	v.Select("2")
	if id, ok := v.Selected(); !ok || id != "2" {
		t.Errorf("Selected() = %q, %v", id, ok)
	}

	// Absent ids are still selectable.
	v.Select("999")
	if id, _ := v.Selected(); id != "999" {
		t.Errorf("Selected() = %q, want 999", id)
	}
	if _, ok := v.Lookup("999"); ok {
		t.Error("Lookup(999) found a record")
	}

	v.Close()
	if _, ok := v.Selected(); ok {
		t.Error("Close() kept the selection")
	}
	if v.Filter() != "zen" || v.Sort().Column != "Name" {
		t.Errorf("selection changed filter/sort: %q %+v", v.Filter(), v.Sort())
	}
}

func TestCursorClamps(t *testing.T) {
	v := New(buildersConfig())
	if _, ok := v.CursorRecord(); ok {
		t.Error("CursorRecord on empty view")
	}

	v.SetRecords(scenarioBuilders())
	v.MoveCursor(5)
	if v.Cursor() != 1 {
		t.Errorf("cursor = %d, want 1", v.Cursor())
	}
	v.MoveCursor(-9)
	if v.Cursor() != 0 {
		t.Errorf("cursor = %d, want 0", v.Cursor())
	}

	v.MoveCursor(1)
	v.SetFilter("acme")
	r, ok := v.CursorRecord()
	if !ok || r.String("Name") != "Acme" {
		t.Errorf("cursor record after narrowing = %v, %v", r, ok)
	}
}

func TestToggleSortIndex(t *testing.T) {
	v := New(buildersConfig())
	if !v.ToggleSortIndex(1) || v.Sort().Column != "City" {
		t.Errorf("ToggleSortIndex(1) sort = %+v", v.Sort())
	}
	if v.ToggleSortIndex(3) || v.ToggleSortIndex(-1) {
		t.Error("out-of-range index accepted")
	}
}

func TestCustomIDField(t *testing.T) {
	cfg := buildersConfig()
	cfg.IDField = "Key"
	v := New(cfg)
	v.SetRecords([]records.Record{{"Key": "k1", "Name": "Acme"}})

	r, ok := v.Lookup("k1")
	if !ok || v.ID(r) != "k1" {
		t.Errorf("Lookup(k1) = %v, %v", r, ok)
	}
}
