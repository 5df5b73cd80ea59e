package history

import (
	"reflect"

	"github.com/google/uuid"

	"github.com/foliocms/folio/core/cms"
)

// DiffSummary is the data-level summary of what changed between two
// consecutive snapshots. It is not a rendered diff; consumers decide how
// to present it.
type DiffSummary struct {
	// Initial marks the first entry of a lineage, which has no
	// predecessor to diff against.
	Initial bool `json:"initial,omitempty"`

	// ChangedFields lists the top-level snapshot fields that differ.
	ChangedFields []string `json:"changed_fields,omitempty"`

	// ElementsAdded and ElementsRemoved count element ids present in only
	// one of the two snapshots.
	ElementsAdded   int `json:"elements_added,omitempty"`
	ElementsRemoved int `json:"elements_removed,omitempty"`
}

// IsEmpty reports whether the summary records no change.
func (d DiffSummary) IsEmpty() bool {
	return !d.Initial && len(d.ChangedFields) == 0 &&
		d.ElementsAdded == 0 && d.ElementsRemoved == 0
}

// Summarize compares two consecutive snapshots.
func Summarize(prev, current cms.Snapshot) DiffSummary {
	var summary DiffSummary

	if prev.Title != current.Title {
		summary.ChangedFields = append(summary.ChangedFields, "title")
	}
	if prev.Slug != current.Slug {
		summary.ChangedFields = append(summary.ChangedFields, "slug")
	}
	if prev.Status != current.Status {
		summary.ChangedFields = append(summary.ChangedFields, "status")
	}
	if !reflect.DeepEqual(prev.Metadata, current.Metadata) {
		summary.ChangedFields = append(summary.ChangedFields, "metadata")
	}

	added, removed, modified := diffElements(prev.Elements, current.Elements)
	summary.ElementsAdded = added
	summary.ElementsRemoved = removed
	if added > 0 || removed > 0 || modified {
		summary.ChangedFields = append(summary.ChangedFields, "elements")
	}

	return summary
}

func diffElements(prev, current []cms.Element) (added, removed int, modified bool) {
	prevByID := make(map[uuid.UUID]*cms.Element, len(prev))
	for i := range prev {
		prevByID[prev[i].ID] = &prev[i]
	}

	seen := make(map[uuid.UUID]bool, len(current))
	for i := range current {
		element := &current[i]
		seen[element.ID] = true
		before, ok := prevByID[element.ID]
		if !ok {
			added++
			continue
		}
		if !modified && !reflect.DeepEqual(*before, *element) {
			modified = true
		}
	}

	for id := range prevByID {
		if !seen[id] {
			removed++
		}
	}
	return added, removed, modified
}
