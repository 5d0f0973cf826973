package memory

import (
	"encoding/json"
	"fmt"
)

// Bucket names used by the snapshotting backends, one per record kind.
const (
	BucketTanks       = "tanks"
	BucketWaterTests  = "water_tests"
	BucketMaintenance = "maintenance"
	BucketLivestock   = "livestock"
	BucketEquipment   = "equipment"
	BucketSessions    = "setup_sessions"
)

// Buckets lists the snapshot buckets in persistence order.
var Buckets = []string{BucketTanks, BucketWaterTests, BucketMaintenance, BucketLivestock, BucketEquipment, BucketSessions}

func (s *Snapshot) target(bucket string) (any, bool) {
	switch bucket {
	case BucketTanks:
		return &s.Tanks, true
	case BucketWaterTests:
		return &s.WaterTests, true
	case BucketMaintenance:
		return &s.Maintenance, true
	case BucketLivestock:
		return &s.Livestock, true
	case BucketEquipment:
		return &s.Equipment, true
	case BucketSessions:
		return &s.Sessions, true
	default:
		return nil, false
	}
}

// EncodeBucket marshals one bucket of the snapshot as JSON.
func (s Snapshot) EncodeBucket(bucket string) ([]byte, error) {
	target, ok := s.target(bucket)
	if !ok {
		return nil, fmt.Errorf("unknown bucket %q", bucket)
	}
	data, err := json.Marshal(target)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", bucket, err)
	}
	return data, nil
}

// DecodeBucket fills one bucket of the snapshot from its JSON payload.
// Unknown buckets and empty payloads are ignored so older databases load.
func (s *Snapshot) DecodeBucket(bucket string, payload []byte) error {
	target, ok := s.target(bucket)
	if !ok || len(payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, target); err != nil {
		return fmt.Errorf("decode %s: %w", bucket, err)
	}
	return nil
}
