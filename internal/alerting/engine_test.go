package alerting_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/stockalert/internal/alerting"
	"github.com/andresuchdata/stockalert/internal/domain"
	"github.com/andresuchdata/stockalert/internal/ledger"
	"github.com/andresuchdata/stockalert/internal/notify"
)

type fakeInventory struct {
	mu         sync.Mutex
	units      map[string]domain.StockUnit
	archiveErr error
	getErr     error
	listErr    error
}

func newFakeInventory(units ...domain.StockUnit) *fakeInventory {
	inv := &fakeInventory{units: make(map[string]domain.StockUnit)}
	for _, u := range units {
		inv.units[u.ID] = u
	}
	return inv
}

func (f *fakeInventory) ListAllStockUnits(_ context.Context) ([]domain.StockUnit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.listErr != nil {
		return nil, f.listErr
	}
	units := make([]domain.StockUnit, 0, len(f.units))
	for _, u := range f.units {
		units = append(units, u)
	}
	sort.Slice(units, func(i, j int) bool { return units[i].ID < units[j].ID })
	return units, nil
}

func (f *fakeInventory) GetStockUnit(_ context.Context, id string) (domain.StockUnit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.getErr != nil {
		return domain.StockUnit{}, f.getErr
	}
	u, ok := f.units[id]
	if !ok {
		return domain.StockUnit{}, domain.ErrUnitNotFound
	}
	return u, nil
}

func (f *fakeInventory) SetArchived(_ context.Context, id string, archived bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.archiveErr != nil {
		return f.archiveErr
	}
	u, ok := f.units[id]
	if !ok {
		return domain.ErrUnitNotFound
	}
	u.Archived = archived
	f.units[id] = u
	return nil
}

func (f *fakeInventory) put(u domain.StockUnit) {
	f.mu.Lock()
	f.units[u.ID] = u
	f.mu.Unlock()
}

func (f *fakeInventory) get(id string) domain.StockUnit {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.units[id]
}

func (f *fakeInventory) setArchiveErr(err error) {
	f.mu.Lock()
	f.archiveErr = err
	f.mu.Unlock()
}

type recordingChannel struct {
	mu      sync.Mutex
	sent    []notify.Notification
	err     error
	panics  bool
	started chan struct{}
	release chan struct{}
}

func (c *recordingChannel) Name() string { return "recording" }

func (c *recordingChannel) Send(ctx context.Context, n notify.Notification) error {
	if c.started != nil {
		select {
		case c.started <- struct{}{}:
		default:
		}
	}
	if c.release != nil {
		select {
		case <-c.release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if c.panics {
		panic("channel exploded")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, n)
	return c.err
}

func (c *recordingChannel) kinds() []domain.AlertKind {
	c.mu.Lock()
	defer c.mu.Unlock()

	kinds := make([]domain.AlertKind, 0, len(c.sent))
	for _, n := range c.sent {
		kinds = append(kinds, n.Kind)
	}
	return kinds
}

func (c *recordingChannel) count(kind domain.AlertKind) int {
	n := 0
	for _, k := range c.kinds() {
		if k == kind {
			n++
		}
	}
	return n
}

type staticResolver []domain.StaffID

func (r staticResolver) Resolve(context.Context) []domain.StaffID { return r }

type harness struct {
	engine    *alerting.Engine
	inventory *fakeInventory
	channel   *recordingChannel
	ledger    *ledger.Memory
	now       time.Time
}

func newHarness(t *testing.T, opts alerting.Options, units ...domain.StockUnit) *harness {
	t.Helper()

	h := &harness{
		inventory: newFakeInventory(units...),
		channel:   &recordingChannel{},
		now:       today.Add(9 * time.Hour),
	}
	if opts.Clock == nil {
		opts.Clock = func() time.Time { return h.now }
	}
	h.ledger = ledger.NewMemory(func() time.Time { return h.now })

	dispatcher := notify.NewDispatcher(zerolog.Nop(), h.channel)
	h.engine = alerting.NewEngine(h.inventory, h.ledger, staticResolver{"nurse-1", "pharmacist-2"}, dispatcher, opts, zerolog.Nop())

	return h
}

func (h *harness) evaluate(t *testing.T, id string) alerting.Outcome {
	t.Helper()
	out, err := h.engine.EvaluateByID(context.Background(), id)
	require.NoError(t, err)
	return out
}

func TestEngine_ScenarioA_LowStockFiresOnce(t *testing.T) {
	h := newHarness(t, alerting.Options{}, domain.StockUnit{
		ID: "first_aid:1", DisplayName: "Bandage", AvailableQuantity: 15, Unit: domain.UnitPieces,
	})

	out := h.evaluate(t, "first_aid:1")
	require.NoError(t, out.Err)
	assert.Equal(t, domain.StockLow, out.Classification.Stock)
	assert.Equal(t, []domain.AlertKind{domain.AlertLowStock}, out.Fired)

	out = h.evaluate(t, "first_aid:1")
	require.NoError(t, out.Err)
	assert.Empty(t, out.Fired)
	assert.Equal(t, []domain.AlertKind{domain.AlertLowStock}, out.Suppressed)

	assert.Equal(t, []domain.AlertKind{domain.AlertLowStock}, h.channel.kinds())
	assert.Equal(t, []domain.StaffID{"nurse-1", "pharmacist-2"}, h.channel.sent[0].Recipients)
}

func TestEngine_RefiresAfterWindow(t *testing.T) {
	h := newHarness(t, alerting.Options{}, domain.StockUnit{
		ID: "first_aid:1", DisplayName: "Bandage", AvailableQuantity: 15, Unit: domain.UnitPieces,
	})

	h.evaluate(t, "first_aid:1")
	h.now = h.now.Add(44 * 24 * time.Hour)
	h.evaluate(t, "first_aid:1")
	assert.Equal(t, 1, h.channel.count(domain.AlertLowStock))

	h.now = h.now.Add(2 * 24 * time.Hour)
	h.evaluate(t, "first_aid:1")
	assert.Equal(t, 2, h.channel.count(domain.AlertLowStock))
}

func TestEngine_ScenarioB_AxesIndependent(t *testing.T) {
	h := newHarness(t, alerting.Options{},
		domain.StockUnit{
			ID: "immunization_supply:1", DisplayName: "Diluent", AvailableQuantity: 25,
			Unit: domain.UnitVials, ExpiryDate: daysFromToday(15),
		},
		domain.StockUnit{
			ID: "immunization_supply:2", DisplayName: "Diluent B", AvailableQuantity: 5,
			Unit: domain.UnitVials, ExpiryDate: daysFromToday(15),
		},
	)

	out := h.evaluate(t, "immunization_supply:1")
	assert.Equal(t, domain.ExpiryNearExpiry, out.Classification.Expiry)
	assert.Equal(t, 15, out.Classification.DaysLeft)
	assert.Equal(t, domain.StockNormal, out.Classification.Stock)
	assert.Equal(t, []domain.AlertKind{domain.AlertNearExpiry}, out.Fired)

	// vials share the 20 unit threshold, so five vials is also low stock
	out = h.evaluate(t, "immunization_supply:2")
	assert.Equal(t, []domain.AlertKind{domain.AlertNearExpiry, domain.AlertLowStock}, out.Fired)
}

func TestEngine_ScenarioC_ExpiredAndOutOfStock(t *testing.T) {
	h := newHarness(t, alerting.Options{}, domain.StockUnit{
		ID: "medicine:3", DisplayName: "Amoxicillin", AvailableQuantity: 0,
		Unit: domain.UnitBoxes, ExpiryDate: daysFromToday(-1),
	})

	out := h.evaluate(t, "medicine:3")
	require.NoError(t, out.Err)
	assert.False(t, out.Archived)
	assert.Equal(t, []domain.AlertKind{domain.AlertExpired, domain.AlertOutOfStock}, out.Fired)
	assert.Equal(t, []domain.AlertKind{domain.AlertExpired, domain.AlertOutOfStock}, h.channel.kinds())
}

func TestEngine_ScenarioD_ConcurrentEvaluationsDispatchOnce(t *testing.T) {
	unit := domain.StockUnit{
		ID: "commodity:8", DisplayName: "Gloves", AvailableQuantity: 4, Unit: domain.UnitContainers,
	}
	h := newHarness(t, alerting.Options{}, unit)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.engine.EvaluateUnit(context.Background(), unit)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, h.channel.count(domain.AlertLowStock))
}

func TestEngine_AutoArchival(t *testing.T) {
	h := newHarness(t, alerting.Options{}, domain.StockUnit{
		ID: "medicine:5", DisplayName: "Ibuprofen", AvailableQuantity: 3,
		Unit: domain.UnitPieces, ExpiryDate: daysFromToday(-11),
	})

	out := h.evaluate(t, "medicine:5")
	require.NoError(t, out.Err)
	assert.True(t, out.Archived)
	assert.True(t, h.inventory.get("medicine:5").Archived)
	assert.Equal(t, domain.ExpiryExpired, out.Classification.Expiry)
	assert.Equal(t, domain.StockNone, out.Classification.Stock, "archived units skip the stock axis")
	assert.Equal(t, []domain.AlertKind{domain.AlertAutoArchived, domain.AlertExpired}, h.channel.kinds())

	out = h.evaluate(t, "medicine:5")
	require.NoError(t, out.Err)
	assert.False(t, out.Archived)
	assert.Equal(t, 1, h.channel.count(domain.AlertAutoArchived))
	assert.Equal(t, 1, h.channel.count(domain.AlertExpired))
}

func TestEngine_ArchivalWriteFailure(t *testing.T) {
	h := newHarness(t, alerting.Options{}, domain.StockUnit{
		ID: "medicine:6", DisplayName: "Cough Syrup", AvailableQuantity: 2,
		Unit: domain.UnitPieces, ExpiryDate: daysFromToday(-20),
	})
	h.inventory.setArchiveErr(errors.New("disk full"))

	out := h.evaluate(t, "medicine:6")
	assert.ErrorIs(t, out.Err, domain.ErrArchivalWriteFailed)
	assert.False(t, out.Archived)
	assert.False(t, h.inventory.get("medicine:6").Archived)
	assert.Zero(t, h.channel.count(domain.AlertAutoArchived))
	assert.Equal(t, []domain.AlertKind{domain.AlertExpired, domain.AlertLowStock}, out.Fired)

	h.inventory.setArchiveErr(nil)
	out = h.evaluate(t, "medicine:6")
	require.NoError(t, out.Err)
	assert.True(t, out.Archived)
	assert.Equal(t, 1, h.channel.count(domain.AlertAutoArchived))
}

func TestEngine_DispatchFailureKeepsMark(t *testing.T) {
	h := newHarness(t, alerting.Options{}, domain.StockUnit{
		ID: "vaccine:1", DisplayName: "BCG", AvailableQuantity: 4, Unit: domain.UnitDosesWithVialCount,
	})
	h.channel.err = errors.New("gateway down")

	out := h.evaluate(t, "vaccine:1")
	assert.ErrorIs(t, out.Err, domain.ErrDispatchFailed)
	assert.Equal(t, []domain.AlertKind{domain.AlertLowStock}, out.Failed)

	_, marked, err := h.ledger.FiredAt(context.Background(), "vaccine:1", domain.AlertLowStock)
	require.NoError(t, err)
	assert.True(t, marked)

	h.channel.err = nil
	out = h.evaluate(t, "vaccine:1")
	assert.Equal(t, []domain.AlertKind{domain.AlertLowStock}, out.Suppressed)
}

func TestEngine_DispatchFailureReleasesMark(t *testing.T) {
	h := newHarness(t, alerting.Options{ReleaseOnDispatchError: true}, domain.StockUnit{
		ID: "vaccine:1", DisplayName: "BCG", AvailableQuantity: 4, Unit: domain.UnitDosesWithVialCount,
	})
	h.channel.err = errors.New("gateway down")

	out := h.evaluate(t, "vaccine:1")
	assert.ErrorIs(t, out.Err, domain.ErrDispatchFailed)

	_, marked, err := h.ledger.FiredAt(context.Background(), "vaccine:1", domain.AlertLowStock)
	require.NoError(t, err)
	assert.False(t, marked)

	h.channel.err = nil
	out = h.evaluate(t, "vaccine:1")
	require.NoError(t, out.Err)
	assert.Equal(t, []domain.AlertKind{domain.AlertLowStock}, out.Fired)
}

type failingLedger struct{}

func (failingLedger) TryFire(context.Context, string, domain.AlertKind, time.Duration) (bool, error) {
	return false, domain.ErrStoreUnavailable
}
func (failingLedger) Release(context.Context, string, domain.AlertKind) error { return nil }
func (failingLedger) Close() error                                             { return nil }

func TestEngine_LedgerUnavailable(t *testing.T) {
	unit := domain.StockUnit{ID: "medicine:9", DisplayName: "Saline", Unit: domain.UnitPieces}
	channel := &recordingChannel{}
	engine := alerting.NewEngine(newFakeInventory(unit), failingLedger{}, staticResolver{"a"},
		notify.NewDispatcher(zerolog.Nop(), channel), alerting.Options{}, zerolog.Nop())

	out := engine.EvaluateUnit(context.Background(), unit)
	assert.ErrorIs(t, out.Err, domain.ErrStoreUnavailable)
	assert.Empty(t, out.Fired)
	assert.Empty(t, channel.kinds())
}

func TestEngine_NoRecipientsStillMarks(t *testing.T) {
	unit := domain.StockUnit{ID: "medicine:9", DisplayName: "Saline", Unit: domain.UnitPieces}
	channel := &recordingChannel{}
	l := ledger.NewMemory(nil)
	engine := alerting.NewEngine(newFakeInventory(unit), l, staticResolver{},
		notify.NewDispatcher(zerolog.Nop(), channel), alerting.Options{}, zerolog.Nop())

	out := engine.EvaluateUnit(context.Background(), unit)
	require.NoError(t, out.Err)
	assert.Equal(t, []domain.AlertKind{domain.AlertOutOfStock}, out.Fired)
	assert.Empty(t, channel.kinds())
	assert.Equal(t, 1, l.Len())
}

func TestEngine_TodayUsesConfiguredTimezone(t *testing.T) {
	jakarta, err := time.LoadLocation("Asia/Jakarta")
	require.NoError(t, err)

	expiry := time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC)
	unit := domain.StockUnit{
		ID: "medicine:10", DisplayName: "ORS", AvailableQuantity: 50,
		Unit: domain.UnitPieces, ExpiryDate: &expiry,
	}

	// 20:00 UTC on March 1st is already March 2nd in Jakarta
	clock := func() time.Time { return time.Date(2025, 3, 1, 20, 0, 0, 0, time.UTC) }

	utc := newHarness(t, alerting.Options{Clock: clock}, unit)
	assert.Equal(t, domain.ExpiryNearExpiry, utc.evaluate(t, "medicine:10").Classification.Expiry)

	local := newHarness(t, alerting.Options{Clock: clock, Location: jakarta}, unit)
	assert.Equal(t, domain.ExpiryExpired, local.evaluate(t, "medicine:10").Classification.Expiry)
}

func TestEngine_EvaluateByIDNotFound(t *testing.T) {
	h := newHarness(t, alerting.Options{})

	_, err := h.engine.EvaluateByID(context.Background(), "medicine:404")
	assert.ErrorIs(t, err, domain.ErrUnitNotFound)
}
