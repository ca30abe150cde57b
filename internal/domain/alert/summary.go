package alert

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
)

// Banner severities.
const (
	BannerCritical = "critical"
	BannerWarning  = "warning"
	BannerInfo     = "info"
)

// Banner is a ready-to-render headline derived from the queue.
type Banner struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// Summary holds the counts shown in the console's badges and banners. It is
// derived from a snapshot and carries no state of its own.
type Summary struct {
	Critical  int       `json:"critical"`
	High      int       `json:"high"`
	Today     int       `json:"today"`
	Resolved  int       `json:"resolved"`
	Unread    int       `json:"unread"`
	Escalated int       `json:"escalated"`
	Total     int       `json:"total"`
	Banners   []Banner  `json:"banners"`
	AsOf      time.Time `json:"as_of"`
}

// Summarize counts alerts as of now. Critical, High, Today and Escalated
// only count unresolved alerts; Today compares calendar days in now's
// location.
func Summarize(alerts []*Alert, now time.Time) Summary {
	s := Summary{Total: len(alerts), AsOf: now, Banners: []Banner{}}

	var oldestCritical, oldestHigh *Alert
	for _, a := range alerts {
		if !a.IsRead {
			s.Unread++
		}
		if a.IsResolved {
			s.Resolved++
			continue
		}
		switch a.Type {
		case TypeCritical:
			s.Critical++
			if oldestCritical == nil || a.Timestamp.Before(oldestCritical.Timestamp) {
				oldestCritical = a
			}
		case TypeHigh:
			s.High++
			if oldestHigh == nil || a.Timestamp.Before(oldestHigh.Timestamp) {
				oldestHigh = a
			}
		}
		if sameDay(a.Timestamp, now) {
			s.Today++
		}
		if a.EscalationLevel > 0 {
			s.Escalated++
		}
	}

	if s.Critical > 0 {
		s.Banners = append(s.Banners, Banner{
			Level:   BannerCritical,
			Message: fmt.Sprintf("%s open, oldest raised %s", plural(s.Critical, "critical alert"), humanize.RelTime(oldestCritical.Timestamp, now, "ago", "from now")),
		})
	}
	if s.High > 0 {
		s.Banners = append(s.Banners, Banner{
			Level:   BannerWarning,
			Message: fmt.Sprintf("%s pending, oldest raised %s", plural(s.High, "high priority alert"), humanize.RelTime(oldestHigh.Timestamp, now, "ago", "from now")),
		})
	}
	if s.Escalated > 0 {
		s.Banners = append(s.Banners, Banner{
			Level:   BannerWarning,
			Message: fmt.Sprintf("%s escalated to the care team", plural(s.Escalated, "open alert")),
		})
	}
	if s.Today > 0 {
		s.Banners = append(s.Banners, Banner{
			Level:   BannerInfo,
			Message: fmt.Sprintf("%s raised today", plural(s.Today, "new alert")),
		})
	}
	return s
}

func sameDay(t, now time.Time) bool {
	t = t.In(now.Location())
	y1, m1, d1 := t.Date()
	y2, m2, d2 := now.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return humanize.Comma(int64(n)) + " " + noun + "s"
}
