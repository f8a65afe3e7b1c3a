package courtcase

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pravoguard/court-monitor/internal/domain/values"
)

// CaseStatus tracks a discovered case through its local lifecycle.
type CaseStatus string

const (
	StatusNew      CaseStatus = "new"
	StatusNotified CaseStatus = "notified"
)

// Case is a discovered court case persisted locally. UpstreamID is the
// registry's own case identifier when it assigns one.
type Case struct {
	ID           uuid.UUID
	UpstreamID   string
	CaseNumber   values.CaseNumber
	CourtName    string
	Category     string
	ThreatTier   ThreatTier
	Status       CaseStatus
	SourceLink   string
	ClaimAmount  decimal.Decimal
	MatchedCodes []string // EDRPOUs this case was matched against, padded form
	FetchedAt    time.Time
	NotifiedAt   *time.Time
}
