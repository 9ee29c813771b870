package quest

import "time"

// DefaultOffsetHours is the civil offset quest windows are computed in.
const DefaultOffsetHours = -3

// ResetReport describes which windows a login check rolled over.
type ResetReport struct {
	SameDay bool
	Daily   bool
	Weekly  bool
	Monthly bool
}

// Scheduler rolls quest windows over on login checks.
type Scheduler struct {
	loc *time.Location
}

// NewScheduler creates a Scheduler working in loc. A nil loc uses the
// default fixed offset.
func NewScheduler(loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.FixedZone("UTC-3", DefaultOffsetHours*3600)
	}
	return &Scheduler{loc: loc}
}

// Location returns the zone windows are computed in.
func (s *Scheduler) Location() *time.Location {
	return s.loc
}

// SameDay reports whether a and b fall on the same offset-local date.
func (s *Scheduler) SameDay(a, b time.Time) bool {
	ay, am, ad := a.In(s.loc).Date()
	by, bm, bd := b.In(s.loc).Date()
	return ay == by && am == bm && ad == bd
}

// IsYesterday reports whether prev falls on the offset-local day before now.
func (s *Scheduler) IsYesterday(prev, now time.Time) bool {
	n := now.In(s.loc)
	y := time.Date(n.Year(), n.Month(), n.Day()-1, 12, 0, 0, 0, s.loc)
	return s.SameDay(prev, y)
}

// Apply runs the login check against l. At most one reset pass happens
// per offset-local date. When the date changed, daily quests are cleared,
// weekly quests reset on entering a Monday and monthly quests on entering
// the first of the month. Check-in is then auto-completed and the login
// stamped.
func (s *Scheduler) Apply(l *Ledger, now time.Time) ResetReport {
	if l.LastLogin != nil && s.SameDay(*l.LastLogin, now) {
		return ResetReport{SameDay: true}
	}

	var report ResetReport
	today := now.In(s.loc)

	if l.LastLogin != nil {
		l.ResetDaily()
		report.Daily = true
	}

	if today.Weekday() == time.Monday {
		if l.LastLogin == nil || l.LastLogin.In(s.loc).Weekday() != time.Monday {
			l.ResetWeekly()
			report.Weekly = true
		}
	}

	if today.Day() == 1 {
		if l.LastLogin == nil || l.LastLogin.In(s.loc).Day() != 1 {
			l.ResetMonthly()
			report.Monthly = true
		}
	}

	l.MarkCheckin(now)
	l.LastLogin = &now
	return report
}
