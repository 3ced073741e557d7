package calendar

import (
	"fmt"
	"time"

	"research-corev1/internal/model"
)

// CST is China Standard Time (UTC+8), the zone exchange sessions are quoted in.
var CST = time.FixedZone("CST", 8*3600)

// Session is an exchange's continuous trading hours with a midday break.
// Times are minutes after midnight in Loc.
type Session struct {
	Open       int
	Close      int
	LunchStart int
	LunchEnd   int
	Loc        *time.Location
}

// DefaultSession is 09:30 to 15:00 with a 11:30 to 13:00 lunch break, CST.
var DefaultSession = Session{
	Open:       9*60 + 30,
	Close:      15 * 60,
	LunchStart: 11*60 + 30,
	LunchEnd:   13 * 60,
	Loc:        CST,
}

// WithHours returns a copy of s with different open/close times.
func (s Session) WithHours(open, close int) Session {
	s.Open, s.Close = open, close
	return s
}

func (s Session) loc() *time.Location {
	if s.Loc == nil {
		return CST
	}
	return s.Loc
}

// InHours reports whether t is inside the session hours, ignoring the
// calendar. The lunch break excludes the instants strictly between its
// start and end.
func (s Session) InHours(t time.Time) bool {
	lt := t.In(s.loc())
	sec := lt.Hour()*3600 + lt.Minute()*60 + lt.Second()
	if sec < s.Open*60 || sec >= s.Close*60 {
		return false
	}
	return !(sec > s.LunchStart*60 && sec < s.LunchEnd*60)
}

// IsRunning reports whether the market is trading at t. With a nil window
// only the hours are checked; otherwise t's date must also be a trading
// day in the window.
func (s Session) IsRunning(t time.Time, w *Window) (bool, error) {
	if w == nil {
		return s.InHours(t), nil
	}
	open, err := w.IsTradingDay(t.In(s.loc()).Format(model.DateLayout))
	if err != nil {
		return false, err
	}
	return open && s.InHours(t), nil
}

// TimeUntilClose returns the duration until today's close, or 0 once closed.
func (s Session) TimeUntilClose(t time.Time) time.Duration {
	lt := t.In(s.loc())
	cl := time.Date(lt.Year(), lt.Month(), lt.Day(), s.Close/60, s.Close%60, 0, 0, s.loc())
	d := cl.Sub(lt)
	if d < 0 {
		return 0
	}
	return d
}

// StatusString returns a human-readable session status.
func (s Session) StatusString(t time.Time, w *Window) string {
	running, err := s.IsRunning(t, w)
	switch {
	case err != nil:
		return "Market status unknown: " + err.Error()
	case running:
		return fmt.Sprintf("Market Open, closes in %s", fmtDur(s.TimeUntilClose(t)))
	case s.InHours(t) && w != nil:
		return "Market Closed, not a trading day"
	default:
		return "Market Closed"
	}
}

func fmtDur(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh%dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}
