package salesforce

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/wesm/suitedash/internal/config"
	"github.com/wesm/suitedash/internal/records"
)

// Keys of the internal domains that back the builder detail endpoint.
const (
	BuilderInfo = "builder_info"
	Divisions   = "divisions"
)

// defaultLimit caps list queries when a domain does not set its own limit.
const defaultLimit = 2000

// Field maps an output record field to a Salesforce field path.
type Field struct {
	Name string
	Path string
}

// Domain describes the SOQL behind one record domain and how each returned
// row is flattened into a records.Record.
type Domain struct {
	Key         string
	SObject     string
	Where       string
	OrderBy     string
	Limit       int
	ParentField string
	Fields      []Field
}

// DefaultDomains returns the stock field mappings for the home builder org.
func DefaultDomains() map[string]Domain {
	return map[string]Domain{
		records.Builders: {
			Key:     records.Builders,
			SObject: "Account",
			Where:   "RecordType.DeveloperName = 'Builder'",
			OrderBy: "Name",
			Fields: []Field{
				{"Name", "Name"},
				{"City", "BillingCity"},
				{"State", "BillingState"},
				{"Website", "Website"},
				{"Phone", "Phone"},
			},
		},
		records.Communities: {
			Key:     records.Communities,
			SObject: "Community__c",
			OrderBy: "Name",
			Fields: []Field{
				{"Name", "Name"},
				{"Builder", "Builder__r.Name"},
				{"City", "City__c"},
				{"State", "State__c"},
				{"Status", "Status__c"},
			},
		},
		records.Homes: {
			Key:     records.Homes,
			SObject: "Home__c",
			OrderBy: "Name",
			Fields: []Field{
				{"Name", "Name"},
				{"Address", "Street_Address__c"},
				{"Community", "Community__r.Name"},
				{"Builder", "Builder__r.Name"},
				{"Status", "Status__c"},
				{"PlanType", "Plan_Type__r.Name"},
				{"Lot", "Lot_Number__c"},
				{"SystemSize", "System_Size_kW__c"},
				{"Panels", "Panel_Count__c"},
				{"Battery", "Battery_Included__c"},
				{"InstallDate", "Install_Date__c"},
			},
		},
		records.PlanTypes: {
			Key:     records.PlanTypes,
			SObject: "Plan_Type__c",
			OrderBy: "Name",
			Fields: []Field{
				{"Name", "Name"},
				{"Builder", "Builder__r.Name"},
				{"SquareFeet", "Square_Feet__c"},
				{"Stories", "Stories__c"},
				{"Bedrooms", "Bedrooms__c"},
			},
		},
		BuilderInfo: {
			Key:     BuilderInfo,
			SObject: "Account",
			Limit:   1,
			Fields: []Field{
				{"Name", "Name"},
				{"Street", "BillingStreet"},
				{"City", "BillingCity"},
				{"State", "BillingState"},
				{"PostalCode", "BillingPostalCode"},
				{"Website", "Website"},
				{"Phone", "Phone"},
				{"Description", "Description"},
			},
		},
		Divisions: {
			Key:         Divisions,
			SObject:     "Division__c",
			OrderBy:     "Name",
			Limit:       200,
			ParentField: "Builder__c",
			Fields: []Field{
				{"Name", "Name"},
				{"City", "City__c"},
				{"State", "State__c"},
				{"Region", "Region__c"},
			},
		},
	}
}

// MergeDomains overlays configured domains onto the defaults by key. Zero
// values in an override keep the default.
func MergeDomains(base map[string]Domain, overrides []config.DomainConfig) (map[string]Domain, error) {
	out := make(map[string]Domain, len(base))
	for k, d := range base {
		out[k] = d
	}
	for _, o := range overrides {
		d, ok := out[o.Key]
		if !ok {
			return nil, fmt.Errorf("unknown domain %q in config", o.Key)
		}
		if o.SObject != "" {
			d.SObject = o.SObject
		}
		if o.Where != "" {
			d.Where = o.Where
		}
		if o.OrderBy != "" {
			d.OrderBy = o.OrderBy
		}
		if o.Limit > 0 {
			d.Limit = o.Limit
		}
		if o.ParentField != "" {
			d.ParentField = o.ParentField
		}
		if len(o.Fields) > 0 {
			d.Fields = make([]Field, 0, len(o.Fields))
			for _, f := range o.Fields {
				if f.Name == "" || f.Path == "" {
					return nil, fmt.Errorf("domain %q: field needs name and path", o.Key)
				}
				d.Fields = append(d.Fields, Field{Name: f.Name, Path: f.Path})
			}
		}
		out[o.Key] = d
	}
	return out, nil
}

// SOQL builds the query for the domain. extraWhere is ANDed with the
// domain's own filter.
func (d Domain) SOQL(extraWhere string) string {
	paths := []string{"Id"}
	seen := map[string]bool{"Id": true}
	for _, f := range d.Fields {
		if seen[f.Path] {
			continue
		}
		seen[f.Path] = true
		paths = append(paths, f.Path)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT %s FROM %s", strings.Join(paths, ", "), d.SObject)

	var conds []string
	if d.Where != "" {
		conds = append(conds, "("+d.Where+")")
	}
	if extraWhere != "" {
		conds = append(conds, extraWhere)
	}
	if len(conds) > 0 {
		sb.WriteString(" WHERE " + strings.Join(conds, " AND "))
	}
	if d.OrderBy != "" {
		sb.WriteString(" ORDER BY " + d.OrderBy)
	}
	limit := d.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	fmt.Fprintf(&sb, " LIMIT %d", limit)
	return sb.String()
}

// Flatten converts raw Salesforce rows into records keyed by field name.
// Relationship paths that traverse a null lookup produce nil.
func (d Domain) Flatten(rows []records.Record) []records.Record {
	out := make([]records.Record, 0, len(rows))
	for _, row := range rows {
		rec := records.Record{"Id": row["Id"]}
		for _, f := range d.Fields {
			rec[f.Name] = resolvePath(row, f.Path)
		}
		out = append(out, rec)
	}
	return out
}

// resolvePath walks a dotted relationship path through nested objects.
func resolvePath(row map[string]any, path string) any {
	var cur any = row
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = m[part]
	}
	if _, nested := cur.(map[string]any); nested {
		return nil
	}
	return cur
}

var recordIDPattern = regexp.MustCompile(`^[a-zA-Z0-9]{15}([a-zA-Z0-9]{3})?$`)

// ValidID reports whether id looks like a 15 or 18 character record id.
// Ids are interpolated into SOQL, so nothing else is accepted.
func ValidID(id string) bool {
	return recordIDPattern.MatchString(id)
}
