package localstore

import "github.com/sharecycle-console/pkg/sharecycle/models"

const (
	// legacyTripKey is the old unscoped key. It is migrated to the
	// owner's scoped key and deleted on first read so a trip can never
	// leak across accounts.
	legacyTripKey = "sharecycle.activeTrip"
	tripKeyPrefix = "sharecycle.activeTrip."
)

// TripStore persists the rider's last-known active trip, scoped per
// rider id.
type TripStore struct {
	store *Store
}

func NewTripStore(store *Store) *TripStore {
	return &TripStore{store: store}
}

func tripKey(riderID string) string {
	return tripKeyPrefix + riderID
}

// Load returns the persisted active trip for riderID, or nil. A legacy
// unscoped record is migrated to the rider's scoped key when it belongs
// to them, and removed unconditionally. A scoped record owned by a
// different rider reads as nil and is dropped.
func (t *TripStore) Load(riderID string) *models.ActiveTrip {
	if riderID == "" {
		return nil
	}

	var trip models.ActiveTrip
	found := t.store.Get(tripKey(riderID), &trip)

	if !found && t.store.Has(legacyTripKey) {
		var legacy models.ActiveTrip
		if t.store.Get(legacyTripKey, &legacy) && legacy.RiderID == riderID {
			_ = t.store.Set(tripKey(riderID), legacy)
			trip, found = legacy, true
		}
		t.store.Delete(legacyTripKey)
	}

	if !found || trip.TripID == "" || trip.StationID == "" || trip.BikeID == "" {
		return nil
	}
	if trip.RiderID != "" && trip.RiderID != riderID {
		t.store.Delete(tripKey(riderID))
		return nil
	}
	return &trip
}

// Save persists trip under the rider's scoped key; a nil trip clears it.
func (t *TripStore) Save(riderID string, trip *models.ActiveTrip) error {
	if riderID == "" {
		return nil
	}
	if trip == nil {
		t.store.Delete(tripKey(riderID))
		return nil
	}
	return t.store.Set(tripKey(riderID), trip)
}

// Clear removes the rider's persisted trip.
func (t *TripStore) Clear(riderID string) {
	if riderID != "" {
		t.store.Delete(tripKey(riderID))
	}
}
