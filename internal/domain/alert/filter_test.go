package alert

import (
	"testing"
	"time"
)

func filterFixture() []*Alert {
	wbc := newAlert("a1", TypeCritical)
	wbc.PatientName = "Maria Popescu"
	wbc.Title = "Valori anormale leucocite"
	wbc.Description = "WBC 18.2 x10^9/L"
	wbc.Timestamp = testNow.Add(-2 * time.Hour)

	appt := newAlert("a2", TypeHigh)
	appt.PatientName = "Ana Ionescu"
	appt.Category = CategoryAppointment
	appt.Title = "Missed oncology appointment"
	appt.Timestamp = testNow.Add(-26 * time.Hour)

	med := newAlert("a3", TypeMedium)
	med.PatientName = "Ion Marin"
	med.Category = CategoryMedication
	med.Title = "Refill overdue"
	med.IsRead = true
	med.Timestamp = testNow.Add(-3 * 24 * time.Hour)

	resolved := newAlert("a4", TypeCritical)
	resolved.PatientName = "Ștefan Dumitru"
	resolved.Title = "Valori anormale hemoglobina"
	resolved.IsRead = true
	resolved.IsResolved = true
	note := "Repeated lab, values normal"
	resolved.ResolutionNote = &note
	resolved.Timestamp = testNow.Add(-5 * time.Hour)

	return []*Alert{wbc, appt, med, resolved}
}

func TestFilter_SearchCriticalLabAlert(t *testing.T) {
	alerts := filterFixture()
	got := Filter(alerts, Filters{
		SearchTerm: "leucocite",
		Types:      []Type{TypeCritical},
		ShowRead:   true,
	})
	if !equalIDs(got, "a1") {
		t.Errorf("got %v, want [a1]", ids(got))
	}
}

func TestFilter_EmptyFiltersHideResolvedOnly(t *testing.T) {
	got := Filter(filterFixture(), Filters{ShowRead: true})
	if !equalIDs(got, "a1", "a2", "a3") {
		t.Errorf("got %v, want [a1 a2 a3]", ids(got))
	}
	got = Filter(filterFixture(), Filters{ShowRead: true, ShowResolved: true})
	if len(got) != 4 {
		t.Errorf("expected all alerts, got %v", ids(got))
	}
}

func TestFilter_HideRead(t *testing.T) {
	got := Filter(filterFixture(), Filters{ShowResolved: true})
	if !equalIDs(got, "a1", "a2") {
		t.Errorf("got %v, want [a1 a2]", ids(got))
	}
}

func TestFilter_SearchFields(t *testing.T) {
	tests := []struct {
		name string
		term string
		want []string
	}{
		{"title", "REFILL", []string{"a3"}},
		{"patient name", "ionescu", []string{"a2"}},
		{"description", "wbc", []string{"a1"}},
		{"trimmed", "  valori  ", []string{"a1", "a4"}},
		{"whitespace only", "   ", []string{"a1", "a2", "a3", "a4"}},
		{"no match", "cardiology", nil},
		{"diacritics", "ștefan", []string{"a4"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Filter(filterFixture(), Filters{SearchTerm: tt.term, ShowRead: true, ShowResolved: true})
			if !equalIDs(got, tt.want...) {
				t.Errorf("got %v, want %v", ids(got), tt.want)
			}
		})
	}
}

func TestFilter_TypesAndCategories(t *testing.T) {
	got := Filter(filterFixture(), Filters{
		Types:        []Type{TypeCritical, TypeHigh},
		Categories:   []Category{CategoryAppointment, CategoryMedical},
		ShowRead:     true,
		ShowResolved: true,
	})
	if !equalIDs(got, "a1", "a2", "a4") {
		t.Errorf("got %v, want [a1 a2 a4]", ids(got))
	}

	got = Filter(filterFixture(), Filters{Categories: []Category{CategorySystem}, ShowRead: true, ShowResolved: true})
	if len(got) != 0 {
		t.Errorf("expected no system alerts, got %v", ids(got))
	}
}

func TestFilter_DateRangeInclusive(t *testing.T) {
	from := testNow.Add(-5 * time.Hour)
	to := testNow.Add(-2 * time.Hour)
	got := Filter(filterFixture(), Filters{
		ShowRead:     true,
		ShowResolved: true,
		DateRange:    &DateRange{From: &from, To: &to},
	})
	if !equalIDs(got, "a1", "a4") {
		t.Errorf("got %v, want [a1 a4]", ids(got))
	}

	got = Filter(filterFixture(), Filters{ShowRead: true, DateRange: &DateRange{To: &to}})
	if !equalIDs(got, "a1", "a2", "a3") {
		t.Errorf("open-ended range: got %v", ids(got))
	}
}

func TestFilter_Composable(t *testing.T) {
	alerts := filterFixture()
	f1 := Filters{Types: []Type{TypeCritical, TypeHigh}, ShowRead: true, ShowResolved: true}
	f2 := Filters{SearchTerm: "valori", ShowRead: true}

	sequential := Filter(Filter(alerts, f1), f2)
	combined := FilterAll(alerts, f1, f2)
	if !equalIDs(sequential, ids(combined)...) {
		t.Errorf("sequential %v != combined %v", ids(sequential), ids(combined))
	}
	if !equalIDs(combined, "a1") {
		t.Errorf("got %v, want [a1]", ids(combined))
	}
}

func TestFilter_DoesNotModifyInput(t *testing.T) {
	alerts := filterFixture()
	before := ids(alerts)
	_ = Filter(alerts, Filters{Types: []Type{TypeLow}})
	if !equalIDs(alerts, before...) {
		t.Errorf("input changed: %v", ids(alerts))
	}
	if got := Filter(nil, Filters{}); got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil result, got %v", got)
	}
}
