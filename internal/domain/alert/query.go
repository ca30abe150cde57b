package alert

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// View selects a predefined subset of the store before filtering.
type View string

const (
	ViewAll        View = ""
	ViewUnread     View = "unread"
	ViewUnresolved View = "unresolved"
	ViewCritical   View = "critical"
)

// Query is the textual form of a list request as it arrives from a URL or the
// command line. Comma-separated lists are accepted for Types and Categories.
type Query struct {
	Search       string
	Types        string
	Categories   string
	ShowResolved string
	ShowRead     string
	From         string
	To           string
	View         string
	SortBy       string
	SortOrder    string
}

// ListRequest is a validated Query.
type ListRequest struct {
	View      View
	Filters   Filters
	SortBy    SortBy
	SortOrder SortOrder
}

// ParseQuery validates q. Resolved alerts are hidden and read alerts shown
// unless the query says otherwise.
func ParseQuery(q Query) (ListRequest, error) {
	req := ListRequest{
		Filters: Filters{SearchTerm: q.Search, ShowRead: true},
	}

	switch v := View(strings.ToLower(strings.TrimSpace(q.View))); v {
	case ViewAll, ViewUnread, ViewUnresolved, ViewCritical:
		req.View = v
	default:
		return req, fmt.Errorf("%w: invalid view %q", ErrValidation, q.View)
	}

	for _, s := range splitList(q.Types) {
		t, err := ParseType(s)
		if err != nil {
			return req, err
		}
		req.Filters.Types = append(req.Filters.Types, t)
	}
	for _, s := range splitList(q.Categories) {
		c, err := ParseCategory(s)
		if err != nil {
			return req, err
		}
		req.Filters.Categories = append(req.Filters.Categories, c)
	}

	var err error
	if req.Filters.ShowResolved, err = parseBool("show_resolved", q.ShowResolved, false); err != nil {
		return req, err
	}
	if req.Filters.ShowRead, err = parseBool("show_read", q.ShowRead, true); err != nil {
		return req, err
	}

	from, err := parseTime("from", q.From, false)
	if err != nil {
		return req, err
	}
	to, err := parseTime("to", q.To, true)
	if err != nil {
		return req, err
	}
	if from != nil && to != nil && to.Before(*from) {
		return req, fmt.Errorf("%w: to is before from", ErrValidation)
	}
	if from != nil || to != nil {
		req.Filters.DateRange = &DateRange{From: from, To: to}
	}

	if req.SortBy, err = ParseSortBy(strings.ToLower(strings.TrimSpace(q.SortBy))); err != nil {
		return req, err
	}
	if req.SortOrder, err = ParseSortOrder(strings.ToLower(strings.TrimSpace(q.SortOrder))); err != nil {
		return req, err
	}
	return req, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.ToLower(strings.TrimSpace(part)); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseBool(name, s string, def bool) (bool, error) {
	if strings.TrimSpace(s) == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return def, fmt.Errorf("%w: %s must be true or false", ErrValidation, name)
	}
	return b, nil
}

// parseTime accepts RFC3339 or a bare date. A bare date used as the upper
// bound covers the whole day, so it becomes the day's last instant.
func parseTime(name, s string, upper bool) (*time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		if d, derr := time.Parse(time.DateOnly, s); derr == nil {
			if upper {
				d = d.AddDate(0, 0, 1).Add(-time.Nanosecond)
			}
			return &d, nil
		}
		return nil, fmt.Errorf("%w: %s must be RFC3339 or YYYY-MM-DD", ErrValidation, name)
	}
	return &t, nil
}

// Query returns the alerts selected by req, filtered and sorted.
func (s *Store) Query(ctx context.Context, req ListRequest) ([]*Alert, error) {
	var (
		alerts []*Alert
		err    error
	)
	switch req.View {
	case ViewUnread:
		alerts, err = s.Unread(ctx)
	case ViewUnresolved:
		alerts, err = s.Unresolved(ctx)
	case ViewCritical:
		alerts, err = s.Critical(ctx)
	default:
		alerts, err = s.List(ctx)
	}
	if err != nil {
		return nil, err
	}
	return Sort(Filter(alerts, req.Filters), req.SortBy, req.SortOrder), nil
}
