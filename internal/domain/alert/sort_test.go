package alert

import (
	"errors"
	"testing"
	"time"
)

func named(id, name string, typ Type, age time.Duration) *Alert {
	a := newAlert(id, typ)
	a.PatientName = name
	a.Timestamp = testNow.Add(-age)
	return a
}

func TestSort_PatientAscending(t *testing.T) {
	alerts := []*Alert{
		named("a1", "Maria Popescu", TypeLow, time.Hour),
		named("a2", "Ana Ionescu", TypeLow, 2*time.Hour),
		named("a3", "Ion Marin", TypeLow, 3*time.Hour),
	}
	got := Sort(alerts, SortByPatient, SortAsc)
	if !equalIDs(got, "a2", "a3", "a1") {
		t.Errorf("got %v, want [a2 a3 a1]", ids(got))
	}
}

func TestSort_PatientRomanianCollation(t *testing.T) {
	alerts := []*Alert{
		named("t", "Tudor Vasile", TypeLow, 0),
		named("s2", "Ștefan Dumitru", TypeLow, 0),
		named("s1", "Sorin Georgescu", TypeLow, 0),
	}
	got := Sort(alerts, SortByPatient, SortAsc)
	if !equalIDs(got, "s1", "s2", "t") {
		t.Errorf("got %v, want [s1 s2 t]", ids(got))
	}
}

func TestSort_PriorityStable(t *testing.T) {
	alerts := []*Alert{
		named("h1", "A", TypeHigh, time.Hour),
		named("c1", "B", TypeCritical, time.Hour),
		named("h2", "C", TypeHigh, time.Hour),
		named("l1", "D", TypeLow, time.Hour),
		named("c2", "E", TypeCritical, time.Hour),
	}

	desc := Sort(alerts, SortByPriority, SortDesc)
	if !equalIDs(desc, "c1", "c2", "h1", "h2", "l1") {
		t.Errorf("desc: got %v", ids(desc))
	}
	asc := Sort(alerts, SortByPriority, SortAsc)
	if !equalIDs(asc, "l1", "h1", "h2", "c1", "c2") {
		t.Errorf("asc: got %v", ids(asc))
	}
}

func TestSort_Timestamp(t *testing.T) {
	alerts := []*Alert{
		named("mid", "A", TypeLow, 2*time.Hour),
		named("new", "B", TypeLow, time.Hour),
		named("old", "C", TypeLow, 3*time.Hour),
		named("new2", "D", TypeLow, time.Hour),
	}
	desc := Sort(alerts, SortByTimestamp, SortDesc)
	if !equalIDs(desc, "new", "new2", "mid", "old") {
		t.Errorf("desc: got %v", ids(desc))
	}
	asc := Sort(alerts, SortByTimestamp, SortAsc)
	if !equalIDs(asc, "old", "mid", "new", "new2") {
		t.Errorf("asc: got %v", ids(asc))
	}
}

func TestSort_DoesNotModifyInput(t *testing.T) {
	alerts := []*Alert{
		named("b", "Beta", TypeLow, 0),
		named("a", "Alpha", TypeLow, 0),
	}
	got := Sort(alerts, SortByPatient, SortAsc)
	if !equalIDs(alerts, "b", "a") {
		t.Errorf("input changed: %v", ids(alerts))
	}
	if !equalIDs(got, "a", "b") {
		t.Errorf("got %v", ids(got))
	}
}

func TestSort_UnknownKeyKeepsOrder(t *testing.T) {
	alerts := []*Alert{named("b", "B", TypeLow, 0), named("a", "A", TypeHigh, 0)}
	got := Sort(alerts, SortBy("severity"), SortAsc)
	if !equalIDs(got, "b", "a") {
		t.Errorf("got %v", ids(got))
	}
}

func TestParseSort(t *testing.T) {
	by, err := ParseSortBy("")
	if err != nil || by != SortByTimestamp {
		t.Errorf("ParseSortBy(\"\") = %q, %v", by, err)
	}
	order, err := ParseSortOrder("")
	if err != nil || order != SortDesc {
		t.Errorf("ParseSortOrder(\"\") = %q, %v", order, err)
	}
	if _, err := ParseSortBy("severity"); !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
	if _, err := ParseSortOrder("up"); !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}
