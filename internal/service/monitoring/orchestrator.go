package monitoring

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pravoguard/court-monitor/internal/domain/courtcase"
	apperrors "github.com/pravoguard/court-monitor/internal/domain/errors"
	"github.com/pravoguard/court-monitor/internal/domain/values"
	"github.com/pravoguard/court-monitor/internal/metrics"
	"github.com/pravoguard/court-monitor/internal/service/threat"
)

// CursorKey is the sync_state row holding the last fully processed upstream
// event id. It advances monotonically and never regresses.
const CursorKey = "registry_last_event_id"

// InitialRunMode controls the very first cycle of a fresh deployment, when no
// cursor has ever been persisted.
type InitialRunMode string

const (
	// InitialRunIndexOnly advances the cursor over the current feed window
	// without dispatching, so a new deployment does not replay history.
	InitialRunIndexOnly InitialRunMode = "index_only"
	// InitialRunNotifyAll treats the first cycle like any other.
	InitialRunNotifyAll InitialRunMode = "notify_all"
)

// Config is the orchestrator's immutable configuration.
type Config struct {
	FeedLimit        int
	SubscriptionType string
	AdminChatIDs     []int64
	InitialRunMode   InitialRunMode
}

// Deps bundles the orchestrator's collaborators.
type Deps struct {
	Registry   RegistryClient
	Notifier   Notifier
	Index      Index
	Classifier *threat.Classifier

	Companies CompanyRepository
	RegSubs   RegistrySubscriptionRepository
	UserSubs  UserSubscriptionRepository
	CaseSubs  CaseSubscriptionRepository
	Settings  SettingsRepository
	Ledger    Ledger
	State     StateStore
	Cases     CaseStore

	Metrics *metrics.Registry
	Logger  *zap.Logger
}

// Orchestrator runs the monitoring cycle: refresh the known-cases index,
// ensure upstream subscriptions, poll the registry feed, classify and fan out
// notifications, then advance the cursor.
//
// Overlapping cycles are safe without a lock: the per-recipient ledger check
// plus idempotent insert is the sole concurrency-safety mechanism. Nothing is
// rolled back; a failed send simply stays out of the ledger and becomes
// eligible again next cycle while the event remains in the feed window.
type Orchestrator struct {
	cfg  Config
	deps Deps
}

// NewOrchestrator creates the monitoring cycle orchestrator.
func NewOrchestrator(cfg Config, deps Deps) *Orchestrator {
	if cfg.FeedLimit <= 0 {
		cfg.FeedLimit = 100
	}
	if cfg.SubscriptionType == "" {
		cfg.SubscriptionType = "company"
	}
	if cfg.InitialRunMode == "" {
		cfg.InitialRunMode = InitialRunIndexOnly
	}
	return &Orchestrator{cfg: cfg, deps: deps}
}

// RunCycle executes one full monitoring cycle. A non-nil error means the
// cycle aborted during setup or feed fetch and the cursor did not advance;
// per-event failures are isolated and reported in the CycleReport instead.
func (o *Orchestrator) RunCycle(ctx context.Context) (CycleReport, error) {
	report := CycleReport{}
	o.deps.Metrics.CyclesTotal.Inc()
	log := o.deps.Logger

	// Index refresh failure degrades to a staler "known" set; it never aborts
	// the cycle because dedup correctness does not depend on it.
	rows, err := o.deps.Index.Refresh(ctx)
	if err != nil {
		report.IndexRefreshFailed = true
		o.deps.Metrics.IndexRefreshErrors.Inc()
		log.Warn("known-cases refresh failed, continuing with stale index", zap.Error(err))
	} else {
		report.IndexRows = rows
		o.deps.Metrics.KnownCasesRows.Set(float64(rows))
	}

	known, err := o.deps.Index.All(ctx)
	if err != nil {
		log.Warn("failed to load known-cases set", zap.Error(err))
		known = map[string]struct{}{}
	}

	companies, err := o.deps.Companies.Active(ctx)
	if err != nil {
		o.deps.Metrics.CyclesAborted.Inc()
		return report, apperrors.NewInternalError("loading tracked companies").WithCause(err)
	}
	if len(companies) == 0 {
		log.Info("no active companies to monitor")
		return report, nil
	}

	byCode := make(map[string]courtcase.TrackedCompany, len(companies))
	for _, c := range companies {
		byCode[c.Code.Normalized()] = c
	}

	report.SubscriptionsCreated = o.ensureSubscriptions(ctx, companies)

	cursorBefore, err := o.deps.State.Get(ctx, CursorKey)
	if err != nil && !apperrors.IsNotFound(err) {
		o.deps.Metrics.CyclesAborted.Inc()
		return report, apperrors.NewInternalError("loading monitoring cursor").WithCause(err)
	}
	report.CursorBefore = cursorBefore
	report.CursorAfter = cursorBefore

	indexOnly := cursorBefore == "" && o.cfg.InitialRunMode == InitialRunIndexOnly
	report.IndexOnly = indexOnly

	events, err := o.deps.Registry.Events(ctx, o.cfg.FeedLimit)
	if err != nil {
		o.deps.Metrics.CyclesAborted.Inc()
		return report, apperrors.NewExternalError("FEED_UNAVAILABLE", "fetching registry feed").WithCause(err)
	}

	log.Info("processing registry feed",
		zap.Int("events", len(events)),
		zap.String("cursor", cursorBefore),
		zap.Bool("index_only", indexOnly))

	maxID := cursorBefore
	for _, event := range events {
		report.EventsSeen++
		o.deps.Metrics.EventsSeen.Inc()

		// The cursor advances over irrelevant events too.
		if event.ID != "" && courtcase.CompareEventIDs(event.ID, maxID) > 0 {
			maxID = event.ID
		}

		if !event.IsCourtEvent() {
			continue
		}
		company, tracked := byCode[event.EntityCode.Normalized()]
		if !tracked {
			continue
		}
		// Already-processed relative to the cursor captured at cycle start.
		if cursorBefore != "" && courtcase.CompareEventIDs(event.ID, cursorBefore) <= 0 {
			continue
		}

		report.EventsMatched++
		o.deps.Metrics.EventsMatched.Inc()

		o.processEvent(ctx, &report, event, company, known, indexOnly)
	}

	if maxID != "" && courtcase.CompareEventIDs(maxID, cursorBefore) > 0 {
		if err := o.deps.State.Set(ctx, CursorKey, maxID); err != nil {
			log.Error("failed to advance monitoring cursor",
				zap.String("cursor", maxID), zap.Error(err))
		} else {
			report.CursorAfter = maxID
		}
	}

	log.Info("monitoring cycle complete",
		zap.Int("events", report.EventsSeen),
		zap.Int("matched", report.EventsMatched),
		zap.Int("dispatched", report.Dispatched),
		zap.Int("deduplicated", report.Deduplicated),
		zap.Int("failures", report.Failures),
		zap.String("cursor", report.CursorAfter))

	return report, nil
}

// ensureSubscriptions creates the upstream subscription for every tracked
// company that lacks one. Best effort: one failure does not block others.
func (o *Orchestrator) ensureSubscriptions(ctx context.Context, companies []courtcase.TrackedCompany) int {
	created := 0
	for _, company := range companies {
		exists, err := o.deps.RegSubs.Exists(ctx, company.Code, o.cfg.SubscriptionType)
		if err != nil {
			o.deps.Logger.Error("subscription lookup failed",
				zap.String("edrpou", company.Code.String()), zap.Error(err))
			continue
		}
		if exists {
			continue
		}

		upstreamID, err := o.deps.Registry.CreateSubscription(ctx, o.cfg.SubscriptionType, company.Code)
		if err != nil {
			o.deps.Logger.Error("failed to create upstream subscription",
				zap.String("edrpou", company.Code.String()), zap.Error(err))
			continue
		}
		if err := o.deps.RegSubs.Add(ctx, upstreamID, company.Code, o.cfg.SubscriptionType); err != nil {
			o.deps.Logger.Error("failed to persist upstream subscription",
				zap.String("edrpou", company.Code.String()),
				zap.String("subscription_id", upstreamID),
				zap.Error(err))
			continue
		}

		created++
		o.deps.Logger.Info("created upstream subscription",
			zap.String("edrpou", company.Code.String()),
			zap.String("subscription_id", upstreamID))
	}
	return created
}

// processEvent handles one matched feed event. Every failure inside is
// isolated to the offending item or recipient.
func (o *Orchestrator) processEvent(
	ctx context.Context,
	report *CycleReport,
	event courtcase.RegistryEvent,
	company courtcase.TrackedCompany,
	known map[string]struct{},
	indexOnly bool,
) {
	log := o.deps.Logger

	for _, item := range event.Items {
		number, err := values.NewCaseNumber(item.CaseNumber)
		if err != nil {
			log.Debug("dropping unparseable case number",
				zap.String("raw", item.CaseNumber),
				zap.String("event_id", event.ID))
			continue
		}
		report.ItemsProcessed++

		_, isKnown := known[number.String()]

		assessment := o.deps.Classifier.Classify(threat.Input{
			Category:  item.Category,
			Plaintiff: item.Plaintiff,
			Defendant: item.Defendant,
			Company:   company.Code,
		})

		if err := o.deps.Cases.Upsert(ctx, courtcase.Case{
			ID:           uuid.New(),
			UpstreamID:   item.UpstreamID,
			CaseNumber:   number,
			CourtName:    item.CourtName,
			Category:     item.Category,
			ThreatTier:   assessment.Tier,
			Status:       courtcase.StatusNew,
			SourceLink:   item.DocumentLink,
			ClaimAmount:  item.ClaimAmount,
			MatchedCodes: []string{event.EntityCode.String()},
			FetchedAt:    time.Now().UTC(),
		}); err != nil {
			log.Error("failed to store discovered case",
				zap.String("case_number", number.String()), zap.Error(err))
		}

		if indexOnly {
			continue
		}

		baseKey, err := dedupBase(item, number, event.EntityCode)
		if err != nil {
			log.Error("failed to build dedup key",
				zap.String("case_number", number.String()), zap.Error(err))
			continue
		}

		recipients, viaCaseSub := o.resolveRecipients(ctx, company.Code, number, isKnown)

		notified := false
		for _, chatID := range recipients {
			if o.notifyRecipient(ctx, report, notifyRequest{
				event:      event,
				item:       item,
				number:     number,
				assessment: assessment,
				company:    company,
				baseKey:    baseKey,
				chatID:     chatID,
				isKnown:    isKnown,
				viaCaseSub: viaCaseSub[chatID],
			}) {
				notified = true
			}
		}

		if notified {
			if err := o.deps.Cases.MarkNotified(ctx, number); err != nil {
				log.Warn("failed to mark case notified",
					zap.String("case_number", number.String()), zap.Error(err))
			}
		}
	}
}

// resolveRecipients unions company subscribers with direct case subscribers,
// preserving order and deduplicating. When the union is empty and the case is
// not already tracked on the task board, the configured admin chats receive
// the notification instead.
func (o *Orchestrator) resolveRecipients(
	ctx context.Context,
	code values.EDRPOU,
	number values.CaseNumber,
	isKnown bool,
) ([]int64, map[int64]bool) {
	viaCaseSub := make(map[int64]bool)

	companyUsers, err := o.deps.UserSubs.UsersForCode(ctx, code)
	if err != nil {
		o.deps.Logger.Error("failed to resolve company subscribers",
			zap.String("edrpou", code.String()), zap.Error(err))
	}
	caseUsers, err := o.deps.CaseSubs.UsersForCase(ctx, number)
	if err != nil {
		o.deps.Logger.Error("failed to resolve case subscribers",
			zap.String("case_number", number.String()), zap.Error(err))
	}

	seen := make(map[int64]struct{}, len(companyUsers)+len(caseUsers))
	recipients := make([]int64, 0, len(companyUsers)+len(caseUsers))
	for _, id := range companyUsers {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		recipients = append(recipients, id)
	}
	for _, id := range caseUsers {
		viaCaseSub[id] = true
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		recipients = append(recipients, id)
	}

	if len(recipients) == 0 && !isKnown {
		recipients = append(recipients, o.cfg.AdminChatIDs...)
	}

	return recipients, viaCaseSub
}

type notifyRequest struct {
	event      courtcase.RegistryEvent
	item       courtcase.CaseItem
	number     values.CaseNumber
	assessment courtcase.Assessment
	company    courtcase.TrackedCompany
	baseKey    values.DedupKey
	chatID     int64
	isKnown    bool
	viaCaseSub bool
}

// notifyRecipient applies the opt-out filter and the per-recipient dedup
// check, dispatches, and writes the ledger entry only after a successful
// send. Returns true when a message was dispatched.
func (o *Orchestrator) notifyRecipient(ctx context.Context, report *CycleReport, req notifyRequest) bool {
	log := o.deps.Logger

	// Case-subscribed users always receive updates regardless of the index.
	if req.isKnown && !req.viaCaseSub {
		receiveAll, err := o.deps.Settings.ReceiveAll(ctx, req.chatID)
		if err != nil {
			log.Warn("failed to load notification preference",
				zap.Int64("chat_id", req.chatID), zap.Error(err))
		}
		if !receiveAll {
			report.Filtered++
			o.deps.Metrics.NotificationsFilter.Inc()
			return false
		}
	}

	key := req.baseKey.ForRecipient(req.chatID)

	sent, err := o.deps.Ledger.WasSent(ctx, key)
	if err != nil {
		report.Failures++
		log.Error("ledger lookup failed", zap.String("dedup_key", key.String()), zap.Error(err))
		return false
	}
	if sent {
		report.Deduplicated++
		o.deps.Metrics.NotificationsDedup.Inc()
		return false
	}

	text := formatNotification(req.event, req.item, req.number, req.assessment,
		req.company.Name, req.isKnown, req.viaCaseSub)

	messageID, err := o.deps.Notifier.Send(ctx, req.chatID, text)
	if err != nil {
		// No ledger entry was written, so the key stays eligible next cycle
		// while the event remains within the feed window.
		report.Failures++
		o.deps.Metrics.SendFailures.Inc()
		log.Error("dispatch failed",
			zap.Int64("chat_id", req.chatID),
			zap.String("dedup_key", key.String()),
			zap.Error(err))
		return false
	}

	entry := courtcase.LedgerEntry{
		ID:          uuid.New(),
		DedupKey:    key,
		CaseNumber:  req.number,
		ThreatTier:  req.assessment.Tier,
		ChatID:      req.chatID,
		MessageID:   messageID,
		PayloadHash: payloadHash(req.item, req.number),
		SentAt:      time.Now().UTC(),
	}
	if err := o.deps.Ledger.Record(ctx, entry); err != nil && !apperrors.IsConflict(err) {
		log.Error("ledger write failed after dispatch",
			zap.String("dedup_key", key.String()), zap.Error(err))
	}

	report.Dispatched++
	o.deps.Metrics.NotificationsSent.Inc()
	return true
}

// dedupBase prefers the registry's stable record id; without one it falls
// back to the canonical case number qualified by the entity code.
func dedupBase(item courtcase.CaseItem, number values.CaseNumber, code values.EDRPOU) (values.DedupKey, error) {
	if item.UpstreamID != "" {
		return values.NewUpstreamDedupKey(item.UpstreamID)
	}
	return values.NewCaseDedupKey(number, code.String())
}
