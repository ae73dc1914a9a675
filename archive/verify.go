// archive/verify.go
package archive

import (
	"fmt"

	"github.com/cyterat/deepstate-map-data/geometry"
	"github.com/cyterat/deepstate-map-data/models"
)

// Rule names reported by Verify.
const (
	RuleIDSequence        = "id-sequence"
	RuleDateOrder         = "date-order"
	RuleAdjacentDuplicate = "adjacent-duplicate"
	RuleGeometry          = "geometry"
	RuleMirror            = "mirror"
)

// Violation is one broken archive invariant at record index Index.
type Violation struct {
	Index  int
	Rule   string
	Detail string
}

func (v Violation) String() string {
	return fmt.Sprintf("record %d: %s: %s", v.Index, v.Rule, v.Detail)
}

// Verify checks every archive invariant: ids count up from 0 in steps of 1,
// dates strictly increase, consecutive geometries differ, and each geometry
// is a valid EPSG:4326 multipolygon.
func (a *Archive) Verify() []Violation {
	var out []Violation
	for i, rec := range a.Records {
		if rec.ID != i {
			out = append(out, Violation{i, RuleIDSequence, fmt.Sprintf("id %d, expected %d", rec.ID, i)})
		}
		if err := geometry.Validate(rec.Geometry); err != nil {
			out = append(out, Violation{i, RuleGeometry, err.Error()})
		}
		if i == 0 {
			continue
		}
		prev := a.Records[i-1]
		if !rec.Date.After(prev.Date) {
			out = append(out, Violation{i, RuleDateOrder, fmt.Sprintf("%s does not follow %s",
				models.FormatDate(rec.Date), models.FormatDate(prev.Date))})
		}
		if geometry.Equal(prev.Geometry, rec.Geometry) {
			out = append(out, Violation{i, RuleAdjacentDuplicate, fmt.Sprintf("geometry identical to record %d", prev.ID)})
		}
	}
	return out
}
