// Package memory provides an in-memory implementation of the tank store used
// for tests, the CLI's ephemeral mode and as the working set of the durable
// backends.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"tankcore/pkg/domain"
)

// Compile-time contract assertion.
var _ domain.PersistentStore = (*Store)(nil)

type (
	// Tank aliases domain.Tank.
	Tank = domain.Tank
	// WaterTest aliases domain.WaterTest.
	WaterTest = domain.WaterTest
	// MaintenanceEvent aliases domain.MaintenanceEvent.
	MaintenanceEvent = domain.MaintenanceEvent
	// LivestockEntry aliases domain.LivestockEntry.
	LivestockEntry = domain.LivestockEntry
	// EquipmentEntry aliases domain.EquipmentEntry.
	EquipmentEntry = domain.EquipmentEntry
	// SetupSession aliases domain.SetupSession.
	SetupSession = domain.SetupSession
	// Change aliases domain.Change captured in transactions.
	Change = domain.Change
	// Result aliases domain.Result summarizing rule evaluation.
	Result = domain.Result
	// RulesEngine aliases domain.RulesEngine used to evaluate rules.
	RulesEngine = domain.RulesEngine
	// Transaction aliases domain.Transaction.
	Transaction = domain.Transaction
	// TransactionView aliases domain.TransactionView.
	TransactionView = domain.TransactionView
)

type memoryState struct {
	tanks       map[string]Tank
	waterTests  map[string]WaterTest
	maintenance map[string]MaintenanceEvent
	livestock   map[string]LivestockEntry
	equipment   map[string]EquipmentEntry
	sessions    map[string]SetupSession
}

// Snapshot captures a point-in-time clone of the store state. Durable
// backends serialise it bucket by bucket.
type Snapshot struct {
	Tanks       map[string]Tank             `json:"tanks"`
	WaterTests  map[string]WaterTest        `json:"water_tests"`
	Maintenance map[string]MaintenanceEvent `json:"maintenance"`
	Livestock   map[string]LivestockEntry   `json:"livestock"`
	Equipment   map[string]EquipmentEntry   `json:"equipment"`
	Sessions    map[string]SetupSession     `json:"setup_sessions"`
}

func newMemoryState() memoryState {
	return memoryState{
		tanks:       make(map[string]Tank),
		waterTests:  make(map[string]WaterTest),
		maintenance: make(map[string]MaintenanceEvent),
		livestock:   make(map[string]LivestockEntry),
		equipment:   make(map[string]EquipmentEntry),
		sessions:    make(map[string]SetupSession),
	}
}

func copyMap[V any](dst, src map[string]V, clone func(V) V) {
	for k, v := range src {
		dst[k] = clone(v)
	}
}

func (s memoryState) clone() memoryState {
	out := newMemoryState()
	copyMap(out.tanks, s.tanks, cloneTank)
	copyMap(out.waterTests, s.waterTests, cloneWaterTest)
	copyMap(out.maintenance, s.maintenance, cloneMaintenance)
	copyMap(out.livestock, s.livestock, cloneLivestock)
	copyMap(out.equipment, s.equipment, cloneEquipment)
	copyMap(out.sessions, s.sessions, cloneSession)
	return out
}

func snapshotFromMemoryState(state memoryState) Snapshot {
	cp := state.clone()
	return Snapshot{
		Tanks:       cp.tanks,
		WaterTests:  cp.waterTests,
		Maintenance: cp.maintenance,
		Livestock:   cp.livestock,
		Equipment:   cp.equipment,
		Sessions:    cp.sessions,
	}
}

func memoryStateFromSnapshot(s Snapshot) memoryState {
	state := newMemoryState()
	copyMap(state.tanks, s.Tanks, cloneTank)
	copyMap(state.waterTests, s.WaterTests, cloneWaterTest)
	copyMap(state.maintenance, s.Maintenance, cloneMaintenance)
	copyMap(state.livestock, s.Livestock, cloneLivestock)
	copyMap(state.equipment, s.Equipment, cloneEquipment)
	copyMap(state.sessions, s.Sessions, cloneSession)
	return state
}

func cloneString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneTime(p *time.Time) *time.Time {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneTank(t Tank) Tank {
	t.Notes = cloneString(t.Notes)
	t.SetupAt = cloneTime(t.SetupAt)
	return t
}

func cloneWaterTest(w WaterTest) WaterTest {
	if w.Values != nil {
		values := make(map[string]*float64, len(w.Values))
		for k, v := range w.Values {
			values[k] = cloneFloat(v)
		}
		w.Values = values
	}
	w.Notes = cloneString(w.Notes)
	return w
}

func cloneMaintenance(m MaintenanceEvent) MaintenanceEvent {
	m.VolumePercent = cloneFloat(m.VolumePercent)
	m.Notes = cloneString(m.Notes)
	return m
}

func cloneLivestock(l LivestockEntry) LivestockEntry {
	l.AdultSizeInches = cloneFloat(l.AdultSizeInches)
	return l
}

func cloneEquipment(e EquipmentEntry) EquipmentEntry {
	e.LastServicedAt = cloneTime(e.LastServicedAt)
	return e
}

func cloneSession(s SetupSession) SetupSession {
	s.Progress = s.Progress.Clone()
	s.TankID = cloneString(s.TankID)
	s.CompletedAt = cloneTime(s.CompletedAt)
	return s
}

// Store provides an in-memory transactional store for the tank domain.
type Store struct {
	mu     sync.RWMutex
	state  memoryState
	engine *RulesEngine
	nowFn  func() time.Time
}

// NewStore constructs an in-memory store backed by the provided rules engine.
func NewStore(engine *RulesEngine) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	return &Store{
		state:  newMemoryState(),
		engine: engine,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
}

// SetNowFunc overrides the clock used to stamp records.
func (s *Store) SetNowFunc(fn func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if fn != nil {
		s.nowFn = fn
	}
}

func newID() string { return uuid.NewString() }

// ExportState clones the current store state for external persistence.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotFromMemoryState(s.state)
}

// ImportState replaces the store state with the provided snapshot.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = memoryStateFromSnapshot(snapshot)
}

// RulesEngine exposes the configured engine.
func (s *Store) RulesEngine() *RulesEngine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// NowFunc returns the time provider used by the store.
func (s *Store) NowFunc() func() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nowFn
}

// RunInTransaction executes fn against a private copy of the state. The copy
// replaces the committed state only when fn succeeds and no rule blocks.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx Transaction) error) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{
		state: s.state.clone(),
		now:   s.nowFn(),
	}
	if err := fn(tx); err != nil {
		return Result{}, err
	}

	var result Result
	if s.engine != nil {
		res, err := s.engine.Evaluate(ctx, newTransactionView(&tx.state), tx.changes)
		if err != nil {
			return Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
	}
	s.state = tx.state
	return result, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(_ context.Context, fn func(TransactionView) error) error {
	s.mu.RLock()
	snapshot := s.state.clone()
	s.mu.RUnlock()
	return fn(newTransactionView(&snapshot))
}

type transactionView struct {
	state *memoryState
}

func newTransactionView(state *memoryState) TransactionView {
	return transactionView{state: state}
}

func (v transactionView) ListTanks() []Tank {
	out := make([]Tank, 0, len(v.state.tanks))
	for _, t := range v.state.tanks {
		out = append(out, cloneTank(t))
	}
	sort.Slice(out, func(i, j int) bool { return before(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID) })
	return out
}

func (v transactionView) FindTank(id string) (Tank, bool) {
	t, ok := v.state.tanks[id]
	if !ok {
		return Tank{}, false
	}
	return cloneTank(t), true
}

func (v transactionView) ListWaterTests(tankID string) []WaterTest {
	var out []WaterTest
	for _, w := range v.state.waterTests {
		if w.TankID == tankID {
			out = append(out, cloneWaterTest(w))
		}
	}
	sort.Slice(out, func(i, j int) bool { return before(out[i].RecordedAt, out[j].RecordedAt, out[i].ID, out[j].ID) })
	return out
}

func (v transactionView) ListMaintenanceEvents(tankID string) []MaintenanceEvent {
	var out []MaintenanceEvent
	for _, m := range v.state.maintenance {
		if m.TankID == tankID {
			out = append(out, cloneMaintenance(m))
		}
	}
	sort.Slice(out, func(i, j int) bool { return before(out[i].PerformedAt, out[j].PerformedAt, out[i].ID, out[j].ID) })
	return out
}

func (v transactionView) ListLivestock(tankID string) []LivestockEntry {
	var out []LivestockEntry
	for _, l := range v.state.livestock {
		if l.TankID == tankID {
			out = append(out, cloneLivestock(l))
		}
	}
	sort.Slice(out, func(i, j int) bool { return before(out[i].AddedAt, out[j].AddedAt, out[i].ID, out[j].ID) })
	return out
}

func (v transactionView) ListEquipment(tankID string) []EquipmentEntry {
	var out []EquipmentEntry
	for _, e := range v.state.equipment {
		if e.TankID == tankID {
			out = append(out, cloneEquipment(e))
		}
	}
	sort.Slice(out, func(i, j int) bool { return before(out[i].InstalledAt, out[j].InstalledAt, out[i].ID, out[j].ID) })
	return out
}

// before orders records chronologically with the ID as tie breaker.
func before(a, b time.Time, idA, idB string) bool {
	if !a.Equal(b) {
		return a.Before(b)
	}
	return idA < idB
}

// Read helpers ---------------------------------------------------------------

func (s *Store) read(fn func(v transactionView)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(transactionView{state: &s.state})
}

// GetTank retrieves a tank by ID from committed state.
func (s *Store) GetTank(id string) (Tank, bool) {
	var (
		t  Tank
		ok bool
	)
	s.read(func(v transactionView) { t, ok = v.FindTank(id) })
	return t, ok
}

// ListTanks returns all tanks ordered by creation time.
func (s *Store) ListTanks() []Tank {
	var out []Tank
	s.read(func(v transactionView) { out = v.ListTanks() })
	return out
}

// ListWaterTests returns a tank's water tests, oldest first.
func (s *Store) ListWaterTests(tankID string) []WaterTest {
	var out []WaterTest
	s.read(func(v transactionView) { out = v.ListWaterTests(tankID) })
	return out
}

// ListMaintenanceEvents returns a tank's maintenance log, oldest first.
func (s *Store) ListMaintenanceEvents(tankID string) []MaintenanceEvent {
	var out []MaintenanceEvent
	s.read(func(v transactionView) { out = v.ListMaintenanceEvents(tankID) })
	return out
}

// ListLivestock returns a tank's livestock roster.
func (s *Store) ListLivestock(tankID string) []LivestockEntry {
	var out []LivestockEntry
	s.read(func(v transactionView) { out = v.ListLivestock(tankID) })
	return out
}

// ListEquipment returns a tank's equipment roster.
func (s *Store) ListEquipment(tankID string) []EquipmentEntry {
	var out []EquipmentEntry
	s.read(func(v transactionView) { out = v.ListEquipment(tankID) })
	return out
}

// GetSetupSession retrieves a setup session by ID.
func (s *Store) GetSetupSession(id string) (SetupSession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.state.sessions[id]
	if !ok {
		return SetupSession{}, false
	}
	return cloneSession(sess), true
}
