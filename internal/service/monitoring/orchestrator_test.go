package monitoring

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pravoguard/court-monitor/internal/domain/courtcase"
	apperrors "github.com/pravoguard/court-monitor/internal/domain/errors"
	"github.com/pravoguard/court-monitor/internal/domain/values"
	"github.com/pravoguard/court-monitor/internal/metrics"
	"github.com/pravoguard/court-monitor/internal/service/threat"
)

func notFoundErr() error {
	return apperrors.NewNotFoundError("state value")
}

func newTestClassifier() *threat.Classifier {
	return threat.NewClassifier(threat.Config{})
}

type fakeRegistry struct {
	events    []courtcase.RegistryEvent
	eventsErr error
	created   []string
}

func (f *fakeRegistry) CreateSubscription(ctx context.Context, subType string, code values.EDRPOU) (string, error) {
	id := "sub-" + code.String()
	f.created = append(f.created, id)
	return id, nil
}

func (f *fakeRegistry) Events(ctx context.Context, limit int) ([]courtcase.RegistryEvent, error) {
	return f.events, f.eventsErr
}

type sentMessage struct {
	chatID int64
	text   string
}

type fakeNotifier struct {
	sent    []sentMessage
	failFor map[int64]error
}

func (f *fakeNotifier) Send(ctx context.Context, chatID int64, text string) (string, error) {
	if err := f.failFor[chatID]; err != nil {
		return "", err
	}
	f.sent = append(f.sent, sentMessage{chatID: chatID, text: text})
	return "msg-1", nil
}

type fakeIndex struct {
	known      map[string]struct{}
	refreshErr error
}

func (f *fakeIndex) Refresh(ctx context.Context) (int, error) {
	if f.refreshErr != nil {
		return 0, f.refreshErr
	}
	return len(f.known), nil
}

func (f *fakeIndex) All(ctx context.Context) (map[string]struct{}, error) {
	if f.known == nil {
		return map[string]struct{}{}, nil
	}
	return f.known, nil
}

type fakeCompanies struct {
	companies []courtcase.TrackedCompany
	err       error
}

func (f *fakeCompanies) Active(ctx context.Context) ([]courtcase.TrackedCompany, error) {
	return f.companies, f.err
}

type fakeRegSubs struct {
	existing map[string]bool
	added    []string
}

func (f *fakeRegSubs) Exists(ctx context.Context, code values.EDRPOU, subType string) (bool, error) {
	return f.existing[code.Normalized()], nil
}

func (f *fakeRegSubs) Add(ctx context.Context, upstreamID string, code values.EDRPOU, subType string) error {
	f.added = append(f.added, upstreamID)
	return nil
}

type fakeUserSubs struct {
	byCode map[string][]int64 // normalized code -> chat ids
}

func (f *fakeUserSubs) UsersForCode(ctx context.Context, code values.EDRPOU) ([]int64, error) {
	return f.byCode[code.Normalized()], nil
}

type fakeCaseSubs struct {
	byCase map[string][]int64
}

func (f *fakeCaseSubs) UsersForCase(ctx context.Context, number values.CaseNumber) ([]int64, error) {
	return f.byCase[number.String()], nil
}

type fakeSettings struct {
	receiveAll map[int64]bool
}

func (f *fakeSettings) ReceiveAll(ctx context.Context, userID int64) (bool, error) {
	return f.receiveAll[userID], nil
}

type fakeLedger struct {
	entries map[string]courtcase.LedgerEntry
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{entries: map[string]courtcase.LedgerEntry{}}
}

func (f *fakeLedger) WasSent(ctx context.Context, key values.DedupKey) (bool, error) {
	_, ok := f.entries[key.String()]
	return ok, nil
}

func (f *fakeLedger) Record(ctx context.Context, entry courtcase.LedgerEntry) error {
	if _, ok := f.entries[entry.DedupKey.String()]; ok {
		return nil
	}
	f.entries[entry.DedupKey.String()] = entry
	return nil
}

type fakeState struct {
	values map[string]string
}

func newFakeState() *fakeState {
	return &fakeState{values: map[string]string{}}
}

func (f *fakeState) Get(ctx context.Context, key string) (string, error) {
	v, ok := f.values[key]
	if !ok {
		return "", notFoundErr()
	}
	return v, nil
}

func (f *fakeState) Set(ctx context.Context, key, value string) error {
	f.values[key] = value
	return nil
}

type fakeCases struct {
	upserted map[string]courtcase.Case
	notified map[string]bool
}

func newFakeCases() *fakeCases {
	return &fakeCases{upserted: map[string]courtcase.Case{}, notified: map[string]bool{}}
}

func (f *fakeCases) Upsert(ctx context.Context, c courtcase.Case) error {
	f.upserted[c.CaseNumber.String()] = c
	return nil
}

func (f *fakeCases) MarkNotified(ctx context.Context, number values.CaseNumber) error {
	f.notified[number.String()] = true
	return nil
}

type fixture struct {
	registry *fakeRegistry
	notifier *fakeNotifier
	index    *fakeIndex
	regSubs  *fakeRegSubs
	userSubs *fakeUserSubs
	caseSubs *fakeCaseSubs
	settings *fakeSettings
	ledger   *fakeLedger
	state    *fakeState
	cases    *fakeCases
}

func newFixture() *fixture {
	return &fixture{
		registry: &fakeRegistry{},
		notifier: &fakeNotifier{failFor: map[int64]error{}},
		index:    &fakeIndex{known: map[string]struct{}{}},
		regSubs:  &fakeRegSubs{existing: map[string]bool{}},
		userSubs: &fakeUserSubs{byCode: map[string][]int64{}},
		caseSubs: &fakeCaseSubs{byCase: map[string][]int64{}},
		settings: &fakeSettings{receiveAll: map[int64]bool{}},
		ledger:   newFakeLedger(),
		state:    newFakeState(),
		cases:    newFakeCases(),
	}
}

func (f *fixture) orchestrator(cfg Config, companies ...courtcase.TrackedCompany) *Orchestrator {
	return NewOrchestrator(cfg, Deps{
		Registry:   f.registry,
		Notifier:   f.notifier,
		Index:      f.index,
		Classifier: newTestClassifier(),
		Companies:  &fakeCompanies{companies: companies},
		RegSubs:    f.regSubs,
		UserSubs:   f.userSubs,
		CaseSubs:   f.caseSubs,
		Settings:   f.settings,
		Ledger:     f.ledger,
		State:      f.state,
		Cases:      f.cases,
		Metrics:    metrics.NewNopRegistry(),
		Logger:     zap.NewNop(),
	})
}

func trackedCompany(code string) courtcase.TrackedCompany {
	return courtcase.TrackedCompany{
		Code:   values.MustNewEDRPOU(code),
		Name:   "ТОВ Агро",
		Active: true,
	}
}

func courtEvent(id, code, caseNumber string) courtcase.RegistryEvent {
	return courtcase.RegistryEvent{
		ID:         id,
		Type:       courtcase.EventTypeCourt,
		EntityCode: values.MustNewEDRPOU(code),
		Items: []courtcase.CaseItem{{
			CaseNumber: caseNumber,
			CourtName:  "Господарський суд",
			Category:   "Цивільне провадження",
			Plaintiff:  "ТОВ Ромашка",
			Defendant:  "ТОВ Агро, 34328899",
		}},
	}
}

func TestOrchestrator_RunCycle_Dispatch(t *testing.T) {
	f := newFixture()
	f.state.values[CursorKey] = "400"
	f.userSubs.byCode["34328899"] = []int64{111}
	// The feed pads the code; tracking stores it unpadded.
	f.registry.events = []courtcase.RegistryEvent{courtEvent("501", "034328899", "370/4268/25")}
	f.regSubs.existing["34328899"] = true

	orc := f.orchestrator(Config{}, trackedCompany("34328899"))

	report, err := orc.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.EventsSeen)
	assert.Equal(t, 1, report.EventsMatched)
	assert.Equal(t, 1, report.Dispatched)
	assert.Zero(t, report.Deduplicated)
	assert.Zero(t, report.Failures)

	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, int64(111), f.notifier.sent[0].chatID)
	assert.Contains(t, f.notifier.sent[0].text, "370/4268/25")

	// The ledger key is scoped per recipient.
	assert.Contains(t, f.ledger.entries, "case:370/4268/25:034328899:111")

	assert.Equal(t, "501", f.state.values[CursorKey])
	assert.Equal(t, "501", report.CursorAfter)

	stored, ok := f.cases.upserted["370/4268/25"]
	require.True(t, ok)
	assert.Equal(t, courtcase.TierMedium, stored.ThreatTier)
	assert.True(t, f.cases.notified["370/4268/25"])
}

func TestOrchestrator_RunCycle_ReplayIsSilent(t *testing.T) {
	f := newFixture()
	f.state.values[CursorKey] = "400"
	f.userSubs.byCode["34328899"] = []int64{111}
	f.registry.events = []courtcase.RegistryEvent{courtEvent("501", "034328899", "370/4268/25")}
	f.regSubs.existing["34328899"] = true

	orc := f.orchestrator(Config{}, trackedCompany("34328899"))

	_, err := orc.RunCycle(context.Background())
	require.NoError(t, err)
	require.Len(t, f.notifier.sent, 1)

	// The identical feed window replays next cycle; the cursor absorbs it.
	report, err := orc.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Zero(t, report.Dispatched)
	assert.Zero(t, report.EventsMatched)
	assert.Len(t, f.notifier.sent, 1)
	assert.Equal(t, "501", f.state.values[CursorKey])
}

func TestOrchestrator_RunCycle_LedgerDeduplicates(t *testing.T) {
	f := newFixture()
	f.state.values[CursorKey] = "400"
	f.userSubs.byCode["34328899"] = []int64{111}
	f.registry.events = []courtcase.RegistryEvent{courtEvent("501", "034328899", "370/4268/25")}
	f.regSubs.existing["34328899"] = true
	// A previous cycle already delivered this key, the cursor write failed.
	f.ledger.entries["case:370/4268/25:034328899:111"] = courtcase.LedgerEntry{}

	orc := f.orchestrator(Config{}, trackedCompany("34328899"))

	report, err := orc.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Zero(t, report.Dispatched)
	assert.Equal(t, 1, report.Deduplicated)
	assert.Empty(t, f.notifier.sent)
}

func TestOrchestrator_RunCycle_CursorTakesMaxOfWindow(t *testing.T) {
	f := newFixture()
	f.state.values[CursorKey] = "100"
	// Irrelevant events still advance the cursor, served out of order.
	for _, id := range []string{"98", "101", "99", "105"} {
		f.registry.events = append(f.registry.events, courtcase.RegistryEvent{
			ID:         id,
			Type:       "registration",
			EntityCode: values.MustNewEDRPOU("99999999"),
		})
	}
	f.regSubs.existing["34328899"] = true

	orc := f.orchestrator(Config{}, trackedCompany("34328899"))

	report, err := orc.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, report.EventsSeen)
	assert.Zero(t, report.EventsMatched)
	assert.Equal(t, "105", f.state.values[CursorKey])
	assert.Equal(t, "105", report.CursorAfter)
}

func TestOrchestrator_RunCycle_InitialRunIndexOnly(t *testing.T) {
	f := newFixture()
	f.userSubs.byCode["34328899"] = []int64{111}
	f.registry.events = []courtcase.RegistryEvent{courtEvent("501", "034328899", "370/4268/25")}
	f.regSubs.existing["34328899"] = true

	orc := f.orchestrator(Config{InitialRunMode: InitialRunIndexOnly}, trackedCompany("34328899"))

	report, err := orc.RunCycle(context.Background())
	require.NoError(t, err)

	assert.True(t, report.IndexOnly)
	assert.Zero(t, report.Dispatched)
	assert.Empty(t, f.notifier.sent)
	assert.Empty(t, f.ledger.entries)

	// Cases are still persisted and the cursor advances over the window.
	assert.Contains(t, f.cases.upserted, "370/4268/25")
	assert.Equal(t, "501", f.state.values[CursorKey])

	// The next cycle behaves normally.
	f.registry.events = []courtcase.RegistryEvent{courtEvent("502", "034328899", "371/1111/25")}
	report, err = orc.RunCycle(context.Background())
	require.NoError(t, err)
	assert.False(t, report.IndexOnly)
	assert.Equal(t, 1, report.Dispatched)
}

func TestOrchestrator_RunCycle_InitialRunNotifyAll(t *testing.T) {
	f := newFixture()
	f.userSubs.byCode["34328899"] = []int64{111}
	f.registry.events = []courtcase.RegistryEvent{courtEvent("501", "034328899", "370/4268/25")}
	f.regSubs.existing["34328899"] = true

	orc := f.orchestrator(Config{InitialRunMode: InitialRunNotifyAll}, trackedCompany("34328899"))

	report, err := orc.RunCycle(context.Background())
	require.NoError(t, err)

	assert.False(t, report.IndexOnly)
	assert.Equal(t, 1, report.Dispatched)
}

func TestOrchestrator_RunCycle_AdminFallback(t *testing.T) {
	f := newFixture()
	f.state.values[CursorKey] = "400"
	f.registry.events = []courtcase.RegistryEvent{courtEvent("501", "034328899", "370/4268/25")}
	f.regSubs.existing["34328899"] = true

	orc := f.orchestrator(Config{AdminChatIDs: []int64{900, 901}}, trackedCompany("34328899"))

	report, err := orc.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, report.Dispatched)
	require.Len(t, f.notifier.sent, 2)
	assert.Equal(t, int64(900), f.notifier.sent[0].chatID)
	assert.Equal(t, int64(901), f.notifier.sent[1].chatID)
}

func TestOrchestrator_RunCycle_NoAdminFallbackForKnownCase(t *testing.T) {
	f := newFixture()
	f.state.values[CursorKey] = "400"
	f.index.known = map[string]struct{}{"370/4268/25": {}}
	f.registry.events = []courtcase.RegistryEvent{courtEvent("501", "034328899", "370/4268/25")}
	f.regSubs.existing["34328899"] = true

	orc := f.orchestrator(Config{AdminChatIDs: []int64{900}}, trackedCompany("34328899"))

	report, err := orc.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Zero(t, report.Dispatched)
	assert.Empty(t, f.notifier.sent)
}

func TestOrchestrator_RunCycle_KnownCaseOptOutFilter(t *testing.T) {
	f := newFixture()
	f.state.values[CursorKey] = "400"
	f.index.known = map[string]struct{}{"370/4268/25": {}}
	f.userSubs.byCode["34328899"] = []int64{111, 222}
	f.settings.receiveAll[222] = true
	f.registry.events = []courtcase.RegistryEvent{courtEvent("501", "034328899", "370/4268/25")}
	f.regSubs.existing["34328899"] = true

	orc := f.orchestrator(Config{}, trackedCompany("34328899"))

	report, err := orc.RunCycle(context.Background())
	require.NoError(t, err)

	// 111 keeps the default filter; 222 opted into everything.
	assert.Equal(t, 1, report.Filtered)
	assert.Equal(t, 1, report.Dispatched)
	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, int64(222), f.notifier.sent[0].chatID)
}

func TestOrchestrator_RunCycle_CaseSubscriberBypassesFilter(t *testing.T) {
	f := newFixture()
	f.state.values[CursorKey] = "400"
	f.index.known = map[string]struct{}{"370/4268/25": {}}
	f.caseSubs.byCase["370/4268/25"] = []int64{333}
	f.registry.events = []courtcase.RegistryEvent{courtEvent("501", "034328899", "370/4268/25")}
	f.regSubs.existing["34328899"] = true

	orc := f.orchestrator(Config{}, trackedCompany("34328899"))

	report, err := orc.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Dispatched)
	assert.Zero(t, report.Filtered)
	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, int64(333), f.notifier.sent[0].chatID)
	assert.Contains(t, f.notifier.sent[0].text, "Оновлення у справі")
}

func TestOrchestrator_RunCycle_FeedFailureAborts(t *testing.T) {
	f := newFixture()
	f.state.values[CursorKey] = "400"
	f.registry.eventsErr = errors.New("upstream down")
	f.regSubs.existing["34328899"] = true

	orc := f.orchestrator(Config{}, trackedCompany("34328899"))

	_, err := orc.RunCycle(context.Background())
	require.Error(t, err)

	// The cursor must not move when the feed was never read.
	assert.Equal(t, "400", f.state.values[CursorKey])
	assert.Empty(t, f.notifier.sent)
}

func TestOrchestrator_RunCycle_SendFailureLeavesNoLedgerEntry(t *testing.T) {
	f := newFixture()
	f.state.values[CursorKey] = "400"
	f.userSubs.byCode["34328899"] = []int64{111, 222}
	f.notifier.failFor[111] = errors.New("blocked by user")
	f.registry.events = []courtcase.RegistryEvent{courtEvent("501", "034328899", "370/4268/25")}
	f.regSubs.existing["34328899"] = true

	orc := f.orchestrator(Config{}, trackedCompany("34328899"))

	report, err := orc.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Failures)
	assert.Equal(t, 1, report.Dispatched)
	assert.NotContains(t, f.ledger.entries, "case:370/4268/25:034328899:111")
	assert.Contains(t, f.ledger.entries, "case:370/4268/25:034328899:222")
}

func TestOrchestrator_RunCycle_UpstreamRecordIDPreferred(t *testing.T) {
	f := newFixture()
	f.state.values[CursorKey] = "400"
	f.userSubs.byCode["34328899"] = []int64{111}
	event := courtEvent("501", "034328899", "370/4268/25")
	event.Items[0].UpstreamID = "777"
	f.registry.events = []courtcase.RegistryEvent{event}
	f.regSubs.existing["34328899"] = true

	orc := f.orchestrator(Config{}, trackedCompany("34328899"))

	_, err := orc.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Contains(t, f.ledger.entries, "reg:777:111")
}

func TestOrchestrator_RunCycle_IndexRefreshFailureDegrades(t *testing.T) {
	f := newFixture()
	f.state.values[CursorKey] = "400"
	f.index.refreshErr = errors.New("board unreachable")
	f.userSubs.byCode["34328899"] = []int64{111}
	f.registry.events = []courtcase.RegistryEvent{courtEvent("501", "034328899", "370/4268/25")}
	f.regSubs.existing["34328899"] = true

	orc := f.orchestrator(Config{}, trackedCompany("34328899"))

	report, err := orc.RunCycle(context.Background())
	require.NoError(t, err)

	assert.True(t, report.IndexRefreshFailed)
	assert.Equal(t, 1, report.Dispatched)
}

func TestOrchestrator_RunCycle_CreatesMissingSubscriptions(t *testing.T) {
	f := newFixture()
	f.state.values[CursorKey] = "400"

	orc := f.orchestrator(Config{}, trackedCompany("34328899"), trackedCompany("12345678"))

	report, err := orc.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, report.SubscriptionsCreated)
	assert.Len(t, f.regSubs.added, 2)
}

func TestOrchestrator_RunCycle_UnparseableItemIsDropped(t *testing.T) {
	f := newFixture()
	f.state.values[CursorKey] = "400"
	f.userSubs.byCode["34328899"] = []int64{111}
	event := courtEvent("501", "034328899", "не номер справи")
	f.registry.events = []courtcase.RegistryEvent{event}
	f.regSubs.existing["34328899"] = true

	orc := f.orchestrator(Config{}, trackedCompany("34328899"))

	report, err := orc.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.EventsMatched)
	assert.Zero(t, report.ItemsProcessed)
	assert.Zero(t, report.Dispatched)
	// The cursor still advances past the event.
	assert.Equal(t, "501", f.state.values[CursorKey])
}
