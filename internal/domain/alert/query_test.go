package alert

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestParseQuery_Defaults(t *testing.T) {
	req, err := ParseQuery(Query{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.View != ViewAll {
		t.Errorf("View = %q", req.View)
	}
	f := req.Filters
	if !f.ShowRead || f.ShowResolved || f.DateRange != nil || len(f.Types) != 0 || len(f.Categories) != 0 {
		t.Errorf("unexpected default filters: %+v", f)
	}
	if req.SortBy != SortByTimestamp || req.SortOrder != SortDesc {
		t.Errorf("sort = %q %q", req.SortBy, req.SortOrder)
	}
}

func TestParseQuery_Full(t *testing.T) {
	req, err := ParseQuery(Query{
		Search:       "leucocite",
		Types:        "Critical, high,",
		Categories:   "medical",
		ShowResolved: "true",
		ShowRead:     "false",
		From:         "2026-10-01",
		To:           "2026-10-17T10:00:00Z",
		View:         "UNREAD",
		SortBy:       "Patient",
		SortOrder:    "ASC",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f := req.Filters
	if f.SearchTerm != "leucocite" {
		t.Errorf("SearchTerm = %q", f.SearchTerm)
	}
	if len(f.Types) != 2 || f.Types[0] != TypeCritical || f.Types[1] != TypeHigh {
		t.Errorf("Types = %v", f.Types)
	}
	if len(f.Categories) != 1 || f.Categories[0] != CategoryMedical {
		t.Errorf("Categories = %v", f.Categories)
	}
	if !f.ShowResolved || f.ShowRead {
		t.Errorf("ShowResolved = %v, ShowRead = %v", f.ShowResolved, f.ShowRead)
	}
	if f.DateRange == nil || !f.DateRange.From.Equal(time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)) ||
		!f.DateRange.To.Equal(time.Date(2026, 10, 17, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("DateRange = %+v", f.DateRange)
	}
	if req.View != ViewUnread || req.SortBy != SortByPatient || req.SortOrder != SortAsc {
		t.Errorf("unexpected request: %+v", req)
	}
}

func TestParseQuery_Invalid(t *testing.T) {
	tests := []struct {
		name string
		q    Query
	}{
		{"type", Query{Types: "urgent"}},
		{"category", Query{Categories: "billing"}},
		{"view", Query{View: "archived"}},
		{"show_read", Query{ShowRead: "maybe"}},
		{"from", Query{From: "yesterday"}},
		{"range", Query{From: "2026-10-17", To: "2026-10-01"}},
		{"sort_by", Query{SortBy: "severity"}},
		{"sort_order", Query{SortOrder: "up"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseQuery(tt.q); !errors.Is(err, ErrValidation) {
				t.Errorf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestStore_Query(t *testing.T) {
	s := newTestStore(t, filterFixture()...)
	ctx := context.Background()

	tests := []struct {
		name string
		q    Query
		want []string
	}{
		{"default hides resolved, newest first", Query{}, []string{"a1", "a2", "a3"}},
		{"critical view", Query{View: "critical"}, []string{"a1"}},
		{"unread view", Query{View: "unread", SortBy: "patient", SortOrder: "asc"}, []string{"a2", "a1"}},
		{"resolved included", Query{Search: "valori", ShowResolved: "true", SortOrder: "asc"}, []string{"a4", "a1"}},
		{"priority", Query{ShowResolved: "true", SortBy: "priority"}, []string{"a1", "a4", "a2", "a3"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := ParseQuery(tt.q)
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			got, err := s.Query(ctx, req)
			if err != nil {
				t.Fatalf("query: %v", err)
			}
			if !equalIDs(got, tt.want...) {
				t.Errorf("got %v, want %v", ids(got), tt.want)
			}
		})
	}
}

func TestParseQuery_DateOnlyUpperBoundCoversDay(t *testing.T) {
	req, err := ParseQuery(Query{From: "2026-10-17", To: "2026-10-17"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r := req.Filters.DateRange
	if !r.From.Equal(time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("from = %v", r.From)
	}
	if !r.To.Equal(time.Date(2026, 10, 17, 23, 59, 59, 999999999, time.UTC)) {
		t.Errorf("to = %v, want last instant of the day", r.To)
	}
}

func TestStore_QuerySingleDay(t *testing.T) {
	morning := newAlert("m1", TypeHigh)
	morning.Timestamp = time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC)
	lastSecond := newAlert("m2", TypeLow)
	lastSecond.Timestamp = time.Date(2026, 10, 17, 23, 59, 59, 0, time.UTC)
	nextDay := newAlert("m3", TypeLow)
	nextDay.Timestamp = time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)
	s := newTestStore(t, morning, lastSecond, nextDay)

	req, err := ParseQuery(Query{From: "2026-10-17", To: "2026-10-17", SortOrder: "asc"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	got, err := s.Query(context.Background(), req)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if !equalIDs(got, "m1", "m2") {
		t.Errorf("got %v, want [m1 m2]", ids(got))
	}
}
