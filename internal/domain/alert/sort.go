package alert

import (
	"fmt"
	"slices"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// SortBy selects the sort key.
type SortBy string

const (
	SortByTimestamp SortBy = "timestamp"
	SortByPriority  SortBy = "priority"
	SortByPatient   SortBy = "patient"
)

// SortOrder selects the sort direction.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// ParseSortBy validates a sort key. An empty string selects timestamp.
func ParseSortBy(s string) (SortBy, error) {
	switch SortBy(s) {
	case "":
		return SortByTimestamp, nil
	case SortByTimestamp, SortByPriority, SortByPatient:
		return SortBy(s), nil
	}
	return "", fmt.Errorf("%w: invalid sort_by %q", ErrValidation, s)
}

// ParseSortOrder validates a sort direction. An empty string selects desc.
func ParseSortOrder(s string) (SortOrder, error) {
	switch SortOrder(s) {
	case "":
		return SortDesc, nil
	case SortAsc, SortDesc:
		return SortOrder(s), nil
	}
	return "", fmt.Errorf("%w: invalid sort_order %q", ErrValidation, s)
}

// patientLocale is the collation used for patient names.
var patientLocale = language.Romanian

// Sort returns a new slice ordered by the given key and direction. The sort is
// stable: alerts with equal keys keep their input order for both directions.
// An unknown key returns the alerts in input order.
func Sort(alerts []*Alert, by SortBy, order SortOrder) []*Alert {
	out := slices.Clone(alerts)
	cmp := comparator(by)
	if cmp == nil {
		return out
	}
	if order == SortDesc {
		asc := cmp
		cmp = func(a, b *Alert) int { return -asc(a, b) }
	}
	slices.SortStableFunc(out, cmp)
	return out
}

func comparator(by SortBy) func(a, b *Alert) int {
	switch by {
	case SortByTimestamp:
		return func(a, b *Alert) int { return a.Timestamp.Compare(b.Timestamp) }
	case SortByPriority:
		return func(a, b *Alert) int { return a.Type.Rank() - b.Type.Rank() }
	case SortByPatient:
		// Collators keep internal buffers, so each sort gets its own.
		c := collate.New(patientLocale)
		return func(a, b *Alert) int { return c.CompareString(a.PatientName, b.PatientName) }
	}
	return nil
}
