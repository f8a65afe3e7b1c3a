package monitoring

import "fmt"

// CycleReport summarizes one monitoring cycle. Interactive triggers surface
// it to the requesting user; scheduled triggers only log it.
type CycleReport struct {
	IndexRows            int
	IndexRefreshFailed   bool
	SubscriptionsCreated int

	EventsSeen     int
	EventsMatched  int
	ItemsProcessed int

	Dispatched   int
	Deduplicated int
	Filtered     int
	Failures     int

	CursorBefore string
	CursorAfter  string
	IndexOnly    bool
}

// Summary renders the short counts line shown after an interactive trigger.
func (r CycleReport) Summary() string {
	if r.IndexOnly {
		return fmt.Sprintf("Індексація: %d подій переглянуто, курсор %s -> %s",
			r.EventsSeen, orDash(r.CursorBefore), orDash(r.CursorAfter))
	}
	return fmt.Sprintf("Події: %d (наших: %d), надіслано: %d, дублікати: %d, відфільтровано: %d, помилки: %d",
		r.EventsSeen, r.EventsMatched, r.Dispatched, r.Deduplicated, r.Filtered, r.Failures)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
