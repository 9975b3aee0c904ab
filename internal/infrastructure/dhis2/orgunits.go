package dhis2

import (
	"strings"

	"github.com/mohamedsillahkanu/icf-collect/pkg/models"
)

// OrgUnitIndex resolves human-entered grouping values to org-unit ids.
// Rebuilt whenever org units are (re)fetched; every unit is indexed under its
// lower-cased name, displayName and code.
type OrgUnitIndex struct {
	units  []models.OrgUnit
	byName map[string]string
}

// NewOrgUnitIndex builds an index from a fetched unit list
func NewOrgUnitIndex(units []models.OrgUnit) *OrgUnitIndex {
	idx := &OrgUnitIndex{
		units:  units,
		byName: make(map[string]string),
	}
	for _, ou := range units {
		for _, name := range []string{ou.DisplayName, ou.Name, ou.Code} {
			key := normalize(name)
			if key != "" {
				idx.byName[key] = ou.ID
			}
		}
	}
	return idx
}

// Len reports the number of indexed units
func (idx *OrgUnitIndex) Len() int {
	return len(idx.units)
}

// Units returns the underlying unit list in fetch order
func (idx *OrgUnitIndex) Units() []models.OrgUnit {
	return idx.units
}

// Resolve looks up a value case-insensitively, falling back to substring
// containment in either direction when no exact key matches.
func (idx *OrgUnitIndex) Resolve(value string) (string, bool) {
	key := normalize(value)
	if key == "" {
		return "", false
	}
	if id, ok := idx.byName[key]; ok {
		return id, true
	}
	for name, id := range idx.byName {
		if strings.Contains(name, key) || strings.Contains(key, name) {
			return id, true
		}
	}
	return "", false
}

// First returns the first known unit's id, used only by the explicit
// opt-in fallback in tracker mode
func (idx *OrgUnitIndex) First() (string, bool) {
	if len(idx.units) == 0 {
		return "", false
	}
	return idx.units[0].ID, true
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
