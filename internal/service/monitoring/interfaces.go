package monitoring

import (
	"context"

	"github.com/pravoguard/court-monitor/internal/domain/courtcase"
	"github.com/pravoguard/court-monitor/internal/domain/values"
)

// RegistryClient is the registry-monitoring collaborator.
type RegistryClient interface {
	// CreateSubscription registers an upstream monitoring subscription and
	// returns the upstream-assigned subscription id.
	CreateSubscription(ctx context.Context, subType string, code values.EDRPOU) (string, error)
	// Events fetches the incremental event feed, newest window, bounded page
	// size. The server applies no cursor filter; callers filter client-side.
	Events(ctx context.Context, limit int) ([]courtcase.RegistryEvent, error)
}

// Notifier is the messaging collaborator. Send returns the message id; the
// orchestrator only consumes success or failure.
type Notifier interface {
	Send(ctx context.Context, chatID int64, text string) (string, error)
}

// Index is the known-cases oracle, refreshed once per cycle before
// classification.
type Index interface {
	Refresh(ctx context.Context) (int, error)
	All(ctx context.Context) (map[string]struct{}, error)
}

// CompanyRepository lists the tracked companies.
type CompanyRepository interface {
	Active(ctx context.Context) ([]courtcase.TrackedCompany, error)
}

// RegistrySubscriptionRepository persists upstream subscription ids.
type RegistrySubscriptionRepository interface {
	Exists(ctx context.Context, code values.EDRPOU, subType string) (bool, error)
	Add(ctx context.Context, upstreamID string, code values.EDRPOU, subType string) error
}

// UserSubscriptionRepository resolves company subscribers.
type UserSubscriptionRepository interface {
	UsersForCode(ctx context.Context, code values.EDRPOU) ([]int64, error)
}

// CaseSubscriptionRepository resolves per-case subscribers.
type CaseSubscriptionRepository interface {
	UsersForCase(ctx context.Context, number values.CaseNumber) ([]int64, error)
}

// SettingsRepository resolves the notification preference, defaulting to the
// known-cases opt-out filter when no row exists.
type SettingsRepository interface {
	ReceiveAll(ctx context.Context, userID int64) (bool, error)
}

// Ledger is the idempotency store. Record treats a duplicate key as a no-op.
type Ledger interface {
	WasSent(ctx context.Context, key values.DedupKey) (bool, error)
	Record(ctx context.Context, entry courtcase.LedgerEntry) error
}

// StateStore persists the monitoring cursor.
type StateStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// CaseStore persists discovered cases.
type CaseStore interface {
	Upsert(ctx context.Context, c courtcase.Case) error
	MarkNotified(ctx context.Context, number values.CaseNumber) error
}
