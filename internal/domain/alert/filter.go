package alert

import (
	"slices"
	"strings"
	"time"
)

// DateRange bounds alert timestamps. Both ends are inclusive and optional.
type DateRange struct {
	From *time.Time `json:"from,omitempty"`
	To   *time.Time `json:"to,omitempty"`
}

// Filters describes which alerts a navigator wants to see. An empty Types or
// Categories set places no restriction on that axis.
type Filters struct {
	SearchTerm   string     `json:"search_term"`
	Types        []Type     `json:"types"`
	Categories   []Category `json:"categories"`
	ShowResolved bool       `json:"show_resolved"`
	ShowRead     bool       `json:"show_read"`
	DateRange    *DateRange `json:"date_range,omitempty"`
}

// Matches reports whether a passes every condition of f.
func (f Filters) Matches(a *Alert) bool {
	if len(f.Types) > 0 && !slices.Contains(f.Types, a.Type) {
		return false
	}
	if len(f.Categories) > 0 && !slices.Contains(f.Categories, a.Category) {
		return false
	}
	if !f.ShowResolved && a.IsResolved {
		return false
	}
	if !f.ShowRead && a.IsRead {
		return false
	}
	if term := strings.ToLower(strings.TrimSpace(f.SearchTerm)); term != "" {
		if !containsFold(a.Title, term) && !containsFold(a.PatientName, term) && !containsFold(a.Description, term) {
			return false
		}
	}
	if r := f.DateRange; r != nil {
		if r.From != nil && a.Timestamp.Before(*r.From) {
			return false
		}
		if r.To != nil && a.Timestamp.After(*r.To) {
			return false
		}
	}
	return true
}

// containsFold expects term already lower-cased.
func containsFold(s, term string) bool {
	return strings.Contains(strings.ToLower(s), term)
}

// Filter returns the alerts that pass f, in input order. The input slice is
// not modified.
func Filter(alerts []*Alert, f Filters) []*Alert {
	return FilterAll(alerts, f)
}

// FilterAll returns the alerts that pass every filter set. Applying filters
// one after another gives the same result.
func FilterAll(alerts []*Alert, filters ...Filters) []*Alert {
	out := make([]*Alert, 0, len(alerts))
next:
	for _, a := range alerts {
		for _, f := range filters {
			if !f.Matches(a) {
				continue next
			}
		}
		out = append(out, a)
	}
	return out
}
