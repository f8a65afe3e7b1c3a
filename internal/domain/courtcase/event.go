package courtcase

import (
	"github.com/shopspring/decimal"

	"github.com/pravoguard/court-monitor/internal/domain/values"
)

// EventTypeCourt marks registry feed entries describing a court-case change.
const EventTypeCourt = "court"

// RegistryEvent is one entry of the registry-monitoring incremental feed.
// IDs are assigned upstream and advance monotonically; the monitoring cursor
// tracks the highest id fully processed.
type RegistryEvent struct {
	ID         string
	Type       string
	EntityCode values.EDRPOU
	Date       string
	Text       string
	Items      []CaseItem
}

// IsCourtEvent reports whether the event describes a court-case change.
func (e RegistryEvent) IsCourtEvent() bool {
	return e.Type == EventTypeCourt
}

// CaseItem is a single court-case record attached to a registry event.
// UpstreamID is the registry's own stable id for the case record, when it
// assigns one.
type CaseItem struct {
	UpstreamID   string
	CaseNumber   string
	CourtName    string
	Category     string // free-text case form, e.g. "Цивільне"
	DocumentType string
	Date         string
	DocumentLink string
	Plaintiff    string
	Defendant    string
	ClaimAmount  decimal.Decimal
}

// CompareEventIDs orders two upstream event ids. Ids are numeric strings in
// the current upstream scheme; non-numeric ids fall back to lexicographic
// ordering. Returns -1, 0 or 1.
func CompareEventIDs(a, b string) int {
	if a == b {
		return 0
	}
	if a == "" {
		return -1
	}
	if b == "" {
		return 1
	}

	na, aOK := parseEventID(a)
	nb, bOK := parseEventID(b)
	if aOK && bOK {
		switch {
		case na < nb:
			return -1
		case na > nb:
			return 1
		default:
			return 0
		}
	}

	if a < b {
		return -1
	}
	return 1
}

func parseEventID(s string) (int64, bool) {
	var n int64
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
		n = n*10 + int64(r-'0')
	}
	return n, true
}
