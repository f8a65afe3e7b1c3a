package courtcase

import (
	"time"

	"github.com/google/uuid"

	"github.com/pravoguard/court-monitor/internal/domain/values"
)

// TrackedCompany is an organization under monitoring. Companies are shared:
// many users may subscribe to the same code independently. Removal is a
// soft-deactivate so history and re-tracking stay cheap.
type TrackedCompany struct {
	ID        uuid.UUID
	Code      values.EDRPOU
	Name      string
	Active    bool
	AddedBy   int64 // chat id of the user who first added it
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RegistrySubscription records an upstream monitoring subscription created at
// the registry collaborator for a tracked company.
type RegistrySubscription struct {
	ID            uuid.UUID
	UpstreamID    string
	Code          values.EDRPOU
	Type          string
	Active        bool
	CreatedAt     time.Time
	LastCheckedAt *time.Time
}

// UserSubscription binds a user to a tracked company. Unique per
// (user, code); unsubscribing deactivates, re-subscribing reactivates.
type UserSubscription struct {
	ID        uuid.UUID
	UserID    int64
	Code      values.EDRPOU
	Active    bool
	CreatedAt time.Time
}

// CaseSubscription binds a user directly to one case number, independent of
// any tracked company. Case-subscribed users always receive updates for the
// case regardless of the known-cases index.
type CaseSubscription struct {
	ID         uuid.UUID
	UserID     int64
	CaseNumber values.CaseNumber
	Label      string
	Active     bool
	CreatedAt  time.Time
}

// UserSettings holds per-user notification preferences. The row is created
// lazily on first access; the default filters out cases already present in
// the known-cases index.
type UserSettings struct {
	ID         uuid.UUID
	UserID     int64
	ReceiveAll bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// KnownCase is one provenance row of the known-cases index: a canonical case
// number observed in a task-board task title. The index itself is the
// distinct set of case numbers across all rows.
type KnownCase struct {
	ID          uuid.UUID
	CaseNumber  values.CaseNumber
	TaskID      string
	TaskName    string
	ProjectID   string
	ProjectName string
	SyncedAt    time.Time
}

// LedgerEntry is one successfully dispatched notification. DedupKey is
// globally unique; writing a duplicate is an idempotent no-op.
type LedgerEntry struct {
	ID          uuid.UUID
	DedupKey    values.DedupKey
	CaseNumber  values.CaseNumber
	ThreatTier  ThreatTier
	ChatID      int64
	MessageID   string
	PayloadHash string
	SentAt      time.Time
}
