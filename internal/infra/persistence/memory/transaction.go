package memory

import (
	"fmt"
	"time"

	"tankcore/pkg/domain"
)

type transaction struct {
	state   memoryState
	changes []Change
	now     time.Time
}

func (tx *transaction) recordChange(change Change) {
	tx.changes = append(tx.changes, change)
}

// Snapshot returns a read-only view over the transactional state.
func (tx *transaction) Snapshot() TransactionView {
	return newTransactionView(&tx.state)
}

// FindTank looks up a tank within the transaction scope.
func (tx *transaction) FindTank(id string) (Tank, bool) {
	t, ok := tx.state.tanks[id]
	if !ok {
		return Tank{}, false
	}
	return cloneTank(t), true
}

// FindSetupSession looks up a setup session within the transaction scope.
func (tx *transaction) FindSetupSession(id string) (SetupSession, bool) {
	s, ok := tx.state.sessions[id]
	if !ok {
		return SetupSession{}, false
	}
	return cloneSession(s), true
}

func (tx *transaction) stamp(b *domain.Base) {
	if b.ID == "" {
		b.ID = newID()
	}
	b.CreatedAt = tx.now
	b.UpdatedAt = tx.now
}

// CreateTank stores a new tank.
func (tx *transaction) CreateTank(t Tank) (Tank, error) {
	tx.stamp(&t.Base)
	if _, exists := tx.state.tanks[t.ID]; exists {
		return Tank{}, fmt.Errorf("tank %q already exists", t.ID)
	}
	tx.state.tanks[t.ID] = cloneTank(t)
	tx.recordChange(Change{Entity: domain.EntityTank, Action: domain.ActionCreate, After: cloneTank(t)})
	return cloneTank(t), nil
}

// UpdateTank mutates a tank using the provided mutator function.
func (tx *transaction) UpdateTank(id string, mutator func(*Tank) error) (Tank, error) {
	current, ok := tx.state.tanks[id]
	if !ok {
		return Tank{}, fmt.Errorf("tank %q not found", id)
	}
	before := cloneTank(current)
	if err := mutator(&current); err != nil {
		return Tank{}, err
	}
	current.ID = id
	current.CreatedAt = before.CreatedAt
	current.UpdatedAt = tx.now
	tx.state.tanks[id] = cloneTank(current)
	tx.recordChange(Change{Entity: domain.EntityTank, Action: domain.ActionUpdate, Before: before, After: cloneTank(current)})
	return cloneTank(current), nil
}

// DeleteTank removes a tank together with its log and rosters.
func (tx *transaction) DeleteTank(id string) error {
	current, ok := tx.state.tanks[id]
	if !ok {
		return fmt.Errorf("tank %q not found", id)
	}
	for wid, w := range tx.state.waterTests {
		if w.TankID == id {
			delete(tx.state.waterTests, wid)
			tx.recordChange(Change{Entity: domain.EntityWaterTest, Action: domain.ActionDelete, Before: w})
		}
	}
	for mid, m := range tx.state.maintenance {
		if m.TankID == id {
			delete(tx.state.maintenance, mid)
			tx.recordChange(Change{Entity: domain.EntityMaintenance, Action: domain.ActionDelete, Before: m})
		}
	}
	for lid, l := range tx.state.livestock {
		if l.TankID == id {
			delete(tx.state.livestock, lid)
			tx.recordChange(Change{Entity: domain.EntityLivestock, Action: domain.ActionDelete, Before: l})
		}
	}
	for eid, e := range tx.state.equipment {
		if e.TankID == id {
			delete(tx.state.equipment, eid)
			tx.recordChange(Change{Entity: domain.EntityEquipment, Action: domain.ActionDelete, Before: e})
		}
	}
	delete(tx.state.tanks, id)
	tx.recordChange(Change{Entity: domain.EntityTank, Action: domain.ActionDelete, Before: cloneTank(current)})
	return nil
}

// CreateWaterTest stores a new water test.
func (tx *transaction) CreateWaterTest(w WaterTest) (WaterTest, error) {
	tx.stamp(&w.Base)
	if _, exists := tx.state.waterTests[w.ID]; exists {
		return WaterTest{}, fmt.Errorf("water test %q already exists", w.ID)
	}
	if w.RecordedAt.IsZero() {
		w.RecordedAt = tx.now
	}
	if w.Values == nil {
		w.Values = map[string]*float64{}
	}
	tx.state.waterTests[w.ID] = cloneWaterTest(w)
	tx.recordChange(Change{Entity: domain.EntityWaterTest, Action: domain.ActionCreate, After: cloneWaterTest(w)})
	return cloneWaterTest(w), nil
}

// DeleteWaterTest removes a water test.
func (tx *transaction) DeleteWaterTest(id string) error {
	current, ok := tx.state.waterTests[id]
	if !ok {
		return fmt.Errorf("water test %q not found", id)
	}
	delete(tx.state.waterTests, id)
	tx.recordChange(Change{Entity: domain.EntityWaterTest, Action: domain.ActionDelete, Before: current})
	return nil
}

// CreateMaintenanceEvent stores a new maintenance event.
func (tx *transaction) CreateMaintenanceEvent(m MaintenanceEvent) (MaintenanceEvent, error) {
	tx.stamp(&m.Base)
	if _, exists := tx.state.maintenance[m.ID]; exists {
		return MaintenanceEvent{}, fmt.Errorf("maintenance event %q already exists", m.ID)
	}
	if m.PerformedAt.IsZero() {
		m.PerformedAt = tx.now
	}
	tx.state.maintenance[m.ID] = cloneMaintenance(m)
	tx.recordChange(Change{Entity: domain.EntityMaintenance, Action: domain.ActionCreate, After: cloneMaintenance(m)})
	return cloneMaintenance(m), nil
}

// DeleteMaintenanceEvent removes a maintenance event.
func (tx *transaction) DeleteMaintenanceEvent(id string) error {
	current, ok := tx.state.maintenance[id]
	if !ok {
		return fmt.Errorf("maintenance event %q not found", id)
	}
	delete(tx.state.maintenance, id)
	tx.recordChange(Change{Entity: domain.EntityMaintenance, Action: domain.ActionDelete, Before: current})
	return nil
}

// CreateLivestock stores a new livestock entry.
func (tx *transaction) CreateLivestock(l LivestockEntry) (LivestockEntry, error) {
	tx.stamp(&l.Base)
	if _, exists := tx.state.livestock[l.ID]; exists {
		return LivestockEntry{}, fmt.Errorf("livestock %q already exists", l.ID)
	}
	if l.AddedAt.IsZero() {
		l.AddedAt = tx.now
	}
	if l.Quantity == 0 {
		l.Quantity = 1
	}
	tx.state.livestock[l.ID] = cloneLivestock(l)
	tx.recordChange(Change{Entity: domain.EntityLivestock, Action: domain.ActionCreate, After: cloneLivestock(l)})
	return cloneLivestock(l), nil
}

// UpdateLivestock mutates a livestock entry.
func (tx *transaction) UpdateLivestock(id string, mutator func(*LivestockEntry) error) (LivestockEntry, error) {
	current, ok := tx.state.livestock[id]
	if !ok {
		return LivestockEntry{}, fmt.Errorf("livestock %q not found", id)
	}
	before := cloneLivestock(current)
	if err := mutator(&current); err != nil {
		return LivestockEntry{}, err
	}
	current.ID = id
	current.CreatedAt = before.CreatedAt
	current.UpdatedAt = tx.now
	tx.state.livestock[id] = cloneLivestock(current)
	tx.recordChange(Change{Entity: domain.EntityLivestock, Action: domain.ActionUpdate, Before: before, After: cloneLivestock(current)})
	return cloneLivestock(current), nil
}

// DeleteLivestock removes a livestock entry.
func (tx *transaction) DeleteLivestock(id string) error {
	current, ok := tx.state.livestock[id]
	if !ok {
		return fmt.Errorf("livestock %q not found", id)
	}
	delete(tx.state.livestock, id)
	tx.recordChange(Change{Entity: domain.EntityLivestock, Action: domain.ActionDelete, Before: current})
	return nil
}

// CreateEquipment stores a new equipment entry.
func (tx *transaction) CreateEquipment(e EquipmentEntry) (EquipmentEntry, error) {
	tx.stamp(&e.Base)
	if _, exists := tx.state.equipment[e.ID]; exists {
		return EquipmentEntry{}, fmt.Errorf("equipment %q already exists", e.ID)
	}
	if e.InstalledAt.IsZero() {
		e.InstalledAt = tx.now
	}
	tx.state.equipment[e.ID] = cloneEquipment(e)
	tx.recordChange(Change{Entity: domain.EntityEquipment, Action: domain.ActionCreate, After: cloneEquipment(e)})
	return cloneEquipment(e), nil
}

// UpdateEquipment mutates an equipment entry.
func (tx *transaction) UpdateEquipment(id string, mutator func(*EquipmentEntry) error) (EquipmentEntry, error) {
	current, ok := tx.state.equipment[id]
	if !ok {
		return EquipmentEntry{}, fmt.Errorf("equipment %q not found", id)
	}
	before := cloneEquipment(current)
	if err := mutator(&current); err != nil {
		return EquipmentEntry{}, err
	}
	current.ID = id
	current.CreatedAt = before.CreatedAt
	current.UpdatedAt = tx.now
	tx.state.equipment[id] = cloneEquipment(current)
	tx.recordChange(Change{Entity: domain.EntityEquipment, Action: domain.ActionUpdate, Before: before, After: cloneEquipment(current)})
	return cloneEquipment(current), nil
}

// DeleteEquipment removes an equipment entry.
func (tx *transaction) DeleteEquipment(id string) error {
	current, ok := tx.state.equipment[id]
	if !ok {
		return fmt.Errorf("equipment %q not found", id)
	}
	delete(tx.state.equipment, id)
	tx.recordChange(Change{Entity: domain.EntityEquipment, Action: domain.ActionDelete, Before: current})
	return nil
}

// SaveSetupSession inserts or replaces a setup session.
func (tx *transaction) SaveSetupSession(s SetupSession) (SetupSession, error) {
	action := domain.ActionCreate
	var before any
	if s.ID != "" {
		if existing, ok := tx.state.sessions[s.ID]; ok {
			action = domain.ActionUpdate
			before = cloneSession(existing)
			s.CreatedAt = existing.CreatedAt
			s.UpdatedAt = tx.now
		}
	}
	if action == domain.ActionCreate {
		tx.stamp(&s.Base)
	}
	tx.state.sessions[s.ID] = cloneSession(s)
	tx.recordChange(Change{Entity: domain.EntitySetupSession, Action: action, Before: before, After: cloneSession(s)})
	return cloneSession(s), nil
}

// DeleteSetupSession removes a setup session.
func (tx *transaction) DeleteSetupSession(id string) error {
	current, ok := tx.state.sessions[id]
	if !ok {
		return fmt.Errorf("setup session %q not found", id)
	}
	delete(tx.state.sessions, id)
	tx.recordChange(Change{Entity: domain.EntitySetupSession, Action: domain.ActionDelete, Before: current})
	return nil
}
