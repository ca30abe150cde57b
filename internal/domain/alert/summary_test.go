package alert

import (
	"testing"
	"time"
)

func summaryFixture() []*Alert {
	c1 := named("c1", "Maria Popescu", TypeCritical, 3*time.Hour)
	c1.EscalationLevel = 1

	h1 := named("h1", "Ana Ionescu", TypeHigh, 26*time.Hour)
	h1.IsRead = true

	h2 := named("h2", "Ion Marin", TypeHigh, time.Hour)

	r1 := named("r1", "Ștefan Dumitru", TypeCritical, 30*time.Minute)
	r1.IsRead = true
	r1.IsResolved = true

	l1 := newAlert("l1", TypeLow)
	l1.Timestamp = time.Date(2026, 10, 16, 23, 59, 59, 0, time.UTC)

	m1 := newAlert("m1", TypeMedium)
	m1.Timestamp = time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC)

	return []*Alert{c1, h1, h2, r1, l1, m1}
}

func TestSummarize_Counts(t *testing.T) {
	s := Summarize(summaryFixture(), testNow)

	checks := []struct {
		name      string
		got, want int
	}{
		{"critical", s.Critical, 1},
		{"high", s.High, 2},
		{"today", s.Today, 3},
		{"resolved", s.Resolved, 1},
		{"unread", s.Unread, 4},
		{"escalated", s.Escalated, 1},
		{"total", s.Total, 6},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %d, want %d", c.name, c.got, c.want)
		}
	}
	if !s.AsOf.Equal(testNow) {
		t.Errorf("AsOf = %v", s.AsOf)
	}
}

func TestSummarize_Banners(t *testing.T) {
	s := Summarize(summaryFixture(), testNow)

	want := []Banner{
		{BannerCritical, "1 critical alert open, oldest raised 3 hours ago"},
		{BannerWarning, "2 high priority alerts pending, oldest raised 1 day ago"},
		{BannerWarning, "1 open alert escalated to the care team"},
		{BannerInfo, "3 new alerts raised today"},
	}
	if len(s.Banners) != len(want) {
		t.Fatalf("banners = %+v", s.Banners)
	}
	for i := range want {
		if s.Banners[i] != want[i] {
			t.Errorf("banner %d = %+v, want %+v", i, s.Banners[i], want[i])
		}
	}
}

func TestSummarize_TodayUsesNowLocation(t *testing.T) {
	zone := time.FixedZone("EEST", 3*60*60)
	late := newAlert("a1", TypeLow)
	late.Timestamp = time.Date(2026, 10, 16, 22, 30, 0, 0, time.UTC)

	if got := Summarize([]*Alert{late}, testNow).Today; got != 0 {
		t.Errorf("UTC today = %d, want 0", got)
	}
	if got := Summarize([]*Alert{late}, testNow.In(zone)).Today; got != 1 {
		t.Errorf("EEST today = %d, want 1", got)
	}
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil, testNow)
	if s.Total != 0 || s.Critical != 0 {
		t.Errorf("unexpected counts: %+v", s)
	}
	if s.Banners == nil || len(s.Banners) != 0 {
		t.Errorf("expected empty banner list, got %v", s.Banners)
	}
}
