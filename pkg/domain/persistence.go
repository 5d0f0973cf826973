package domain

import "context"

// Transaction exposes the domain operations that a persistence implementation
// must support within an atomic scope.
type Transaction interface {
	Snapshot() TransactionView
	CreateTank(Tank) (Tank, error)
	UpdateTank(id string, mutator func(*Tank) error) (Tank, error)
	DeleteTank(id string) error
	CreateWaterTest(WaterTest) (WaterTest, error)
	DeleteWaterTest(id string) error
	CreateMaintenanceEvent(MaintenanceEvent) (MaintenanceEvent, error)
	DeleteMaintenanceEvent(id string) error
	CreateLivestock(LivestockEntry) (LivestockEntry, error)
	UpdateLivestock(id string, mutator func(*LivestockEntry) error) (LivestockEntry, error)
	DeleteLivestock(id string) error
	CreateEquipment(EquipmentEntry) (EquipmentEntry, error)
	UpdateEquipment(id string, mutator func(*EquipmentEntry) error) (EquipmentEntry, error)
	DeleteEquipment(id string) error
	SaveSetupSession(SetupSession) (SetupSession, error)
	DeleteSetupSession(id string) error
	FindTank(id string) (Tank, bool)
	FindSetupSession(id string) (SetupSession, bool)
}

// TransactionView provides read-only access to snapshot data for rules.
type TransactionView interface {
	ListTanks() []Tank
	FindTank(id string) (Tank, bool)
	ListWaterTests(tankID string) []WaterTest
	ListMaintenanceEvents(tankID string) []MaintenanceEvent
	ListLivestock(tankID string) []LivestockEntry
	ListEquipment(tankID string) []EquipmentEntry
}

// PersistentStore is a minimal abstraction over durable backends. It mirrors
// the subset of store capabilities used directly by higher layers.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
	GetTank(id string) (Tank, bool)
	ListTanks() []Tank
	ListWaterTests(tankID string) []WaterTest
	ListMaintenanceEvents(tankID string) []MaintenanceEvent
	ListLivestock(tankID string) []LivestockEntry
	ListEquipment(tankID string) []EquipmentEntry
	GetSetupSession(id string) (SetupSession, bool)
}
