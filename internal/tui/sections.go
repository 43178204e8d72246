package tui

import (
	"github.com/wesm/suitedash/internal/records"
	"github.com/wesm/suitedash/internal/tableview"
)

// pane is one record domain: its table plus the detail panel state for
// domains that support selection.
type pane struct {
	domain    string
	view      *tableview.View
	requestID uint64 // latest list load; older responses are dropped
	detail    detailState
}

func newPane(domain string, cfg tableview.Config) *pane {
	return &pane{domain: domain, view: tableview.New(cfg)}
}

// section is one entry of the navigation bar. Sections without a pane host
// the query console.
type section struct {
	title string
	pane  *pane
}

// navShell tracks which section is active. Exactly one is active at a time.
type navShell struct {
	sections []section
	active   int
}

func newNavShell(sections []section, initial int) navShell {
	return navShell{sections: sections, active: initial}
}

// activate makes section i the active one and returns its pane, if any, so
// the caller can reload it. Every activation reloads; there is no cache.
func (n *navShell) activate(i int) *pane {
	if i < 0 || i >= len(n.sections) {
		return nil
	}
	n.active = i
	return n.sections[i].pane
}

func (n *navShell) current() section {
	return n.sections[n.active]
}

// offset returns the index delta steps away from the active section,
// wrapping at either end.
func (n *navShell) offset(delta int) int {
	k := len(n.sections)
	return ((n.active+delta)%k + k) % k
}

// Section titles in navigation order. Homes is active at startup.
const (
	sectionHomes       = "Homes"
	sectionBuilders    = "Builders"
	sectionCommunities = "Communities"
	sectionPlanTypes   = "Plan Types"
	sectionQuery       = "Query"
)

func yesNo(field string) func(records.Record) string {
	return func(r records.Record) string {
		v, ok := r.Get(field)
		if !ok {
			return ""
		}
		if b, isBool := v.(bool); isBool {
			if b {
				return "Yes"
			}
			return "No"
		}
		return records.Stringify(v)
	}
}

var builderTable = tableview.Config{
	Columns: []tableview.Column{
		{Key: "Name", Label: "Name"},
		{Key: "City", Label: "City", Width: 16},
		{Key: "State", Label: "State", Width: 5},
		{Key: "Phone", Label: "Phone", Width: 14},
		{Key: "Website", Label: "Website"},
	},
	SearchFields: []string{"Name", "City", "State", "Website"},
	Noun:         "builders",
	Selectable:   true,
}

var communityTable = tableview.Config{
	Columns: []tableview.Column{
		{Key: "Name", Label: "Name"},
		{Key: "Builder", Label: "Builder"},
		{Key: "City", Label: "City", Width: 16},
		{Key: "State", Label: "State", Width: 5},
		{Key: "Status", Label: "Status", Width: 12},
	},
	SearchFields: []string{"Name", "Builder", "City", "State"},
	Noun:         "communities",
}

var homeTable = tableview.Config{
	Columns: []tableview.Column{
		{Key: "Name", Label: "Home"},
		{Key: "Address", Label: "Address"},
		{Key: "Community", Label: "Community"},
		{Key: "Builder", Label: "Builder"},
		{Key: "Status", Label: "Status", Width: 12},
	},
	SearchFields: []string{"Name", "Address", "Community", "Builder", "Status"},
	Noun:         "homes",
	Selectable:   true,
}

var planTypeTable = tableview.Config{
	Columns: []tableview.Column{
		{Key: "Name", Label: "Plan"},
		{Key: "Builder", Label: "Builder"},
		{Key: "SquareFeet", Label: "Sq Ft", Width: 7},
		{Key: "Stories", Label: "Stories", Width: 7},
		{Key: "Bedrooms", Label: "Beds", Width: 5},
	},
	SearchFields: []string{"Name", "Builder"},
	Noun:         "plan types",
}

// homeDetailFields are read from the already-loaded home record.
var homeDetailFields = []detailField{
	{"Home", "Name", nil},
	{"Address", "Address", nil},
	{"Community", "Community", nil},
	{"Builder", "Builder", nil},
	{"Plan Type", "PlanType", nil},
	{"Lot", "Lot", nil},
	{"Status", "Status", nil},
	{"System Size (kW)", "SystemSize", nil},
	{"Panels", "Panels", nil},
	{"Battery", "Battery", yesNo("Battery")},
	{"Install Date", "InstallDate", nil},
}

var builderInfoFields = []detailField{
	{"Name", "Name", nil},
	{"Street", "Street", nil},
	{"City", "City", nil},
	{"State", "State", nil},
	{"Postal Code", "PostalCode", nil},
	{"Phone", "Phone", nil},
	{"Website", "Website", nil},
	{"Description", "Description", nil},
}

var divisionColumns = []tableview.Column{
	{Key: "Name", Label: "Division"},
	{Key: "City", Label: "City", Width: 12},
	{Key: "State", Label: "State", Width: 5},
	{Key: "Region", Label: "Region", Width: 8},
}

// defaultSections builds the navigation bar with one pane per domain.
func defaultSections() []section {
	return []section{
		{title: sectionHomes, pane: newPane(records.Homes, homeTable)},
		{title: sectionBuilders, pane: newPane(records.Builders, builderTable)},
		{title: sectionCommunities, pane: newPane(records.Communities, communityTable)},
		{title: sectionPlanTypes, pane: newPane(records.PlanTypes, planTypeTable)},
		{title: sectionQuery},
	}
}
