package records

import "fmt"

// Domain keys. Each key is both the URL segment under /api/sf/ and the JSON
// property that carries the record list.
const (
	Builders    = "builders"
	Communities = "communities"
	Homes       = "homes"
	PlanTypes   = "plantypes"
)

// DomainKeys lists the record domains in navigation order.
var DomainKeys = []string{Homes, Builders, Communities, PlanTypes}

// IsDomain reports whether key names a known record domain.
func IsDomain(key string) bool {
	for _, k := range DomainKeys {
		if k == key {
			return true
		}
	}
	return false
}

// ValidateDomain returns an error for unknown domain keys.
func ValidateDomain(key string) error {
	if !IsDomain(key) {
		return fmt.Errorf("unknown domain %q", key)
	}
	return nil
}

// BuilderDetail is the payload of the builder detail endpoint. TotalSize is
// the upstream count of divisions and may exceed len(Divisions).
type BuilderDetail struct {
	BuilderInfo Record   `json:"builder_info,omitempty"`
	Divisions   []Record `json:"divisions"`
	TotalSize   int      `json:"totalSize"`
}

// QueryRequest is the body of the generic query endpoint.
type QueryRequest struct {
	SOQL    *string `json:"soql"`
	Tooling bool    `json:"tooling,omitempty"`
}

// ErrorReport is a client-side failure forwarded to the telemetry endpoint.
type ErrorReport struct {
	Message   string `json:"message"`
	Filename  string `json:"filename,omitempty"`
	Lineno    int    `json:"lineno,omitempty"`
	Colno     int    `json:"colno,omitempty"`
	Stack     string `json:"stack,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	UserAgent string `json:"userAgent,omitempty"`
	Type      string `json:"type,omitempty"`
}
