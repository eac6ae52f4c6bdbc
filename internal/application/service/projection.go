package service

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/garyjia/travel-reimbursement/internal/domain/entity"
)

// Projection selects top level report fields by their JSON name. Include
// wins over Exclude; both empty returns every field.
type Projection struct {
	Include []string
	Exclude []string
}

// ParseProjection reads a comma separated field list where a leading minus
// excludes, e.g. "name,state" or "-trip,-history".
func ParseProjection(fields string) Projection {
	var p Projection
	for _, f := range strings.Split(fields, ",") {
		f = strings.TrimSpace(f)
		switch {
		case f == "" || f == "-":
		case strings.HasPrefix(f, "-"):
			p.Exclude = append(p.Exclude, f[1:])
		default:
			p.Include = append(p.Include, f)
		}
	}
	return p
}

// IsZero reports whether the projection keeps every field
func (p Projection) IsZero() bool {
	return len(p.Include) == 0 && len(p.Exclude) == 0
}

// Apply renders report as a field map restricted by the projection. The id
// is always kept.
func (p Projection) Apply(report *entity.Report) (map[string]interface{}, error) {
	data, err := json.Marshal(report)
	if err != nil {
		return nil, fmt.Errorf("failed to encode report: %w", err)
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("failed to decode report: %w", err)
	}

	if len(p.Include) > 0 {
		kept := map[string]interface{}{"id": fields["id"]}
		for _, name := range p.Include {
			if v, ok := fields[name]; ok {
				kept[name] = v
			}
		}
		return kept, nil
	}
	for _, name := range p.Exclude {
		if name != "id" {
			delete(fields, name)
		}
	}
	return fields, nil
}
