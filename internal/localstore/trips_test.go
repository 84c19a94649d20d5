package localstore

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sharecycle-console/pkg/sharecycle/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(t.TempDir())
	require.NoError(t, err)
	return store
}

func sampleTrip(riderID string) *models.ActiveTrip {
	return &models.ActiveTrip{
		TripID:    "t1",
		StationID: "s1",
		BikeID:    "b1",
		RiderID:   riderID,
		StartedAt: time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC),
	}
}

func TestTripStore_RoundTrip(t *testing.T) {
	trips := NewTripStore(newTestStore(t))

	require.NoError(t, trips.Save("rider-1", sampleTrip("rider-1")))

	got := trips.Load("rider-1")
	require.NotNil(t, got)
	assert.Equal(t, *sampleTrip("rider-1"), *got)
}

func TestTripStore_ScopedPerRider(t *testing.T) {
	trips := NewTripStore(newTestStore(t))

	require.NoError(t, trips.Save("rider-1", sampleTrip("rider-1")))

	assert.Nil(t, trips.Load("rider-2"), "one rider's trip must never read as another's")
	assert.NotNil(t, trips.Load("rider-1"))
}

func TestTripStore_NilSaveClears(t *testing.T) {
	trips := NewTripStore(newTestStore(t))

	require.NoError(t, trips.Save("rider-1", sampleTrip("rider-1")))
	require.NoError(t, trips.Save("rider-1", nil))

	assert.Nil(t, trips.Load("rider-1"))
}

func TestTripStore_LegacyKeyMigratesToOwner(t *testing.T) {
	store := newTestStore(t)
	trips := NewTripStore(store)
	require.NoError(t, store.Set("sharecycle.activeTrip", sampleTrip("rider-1")))

	got := trips.Load("rider-1")

	require.NotNil(t, got)
	assert.Equal(t, "t1", got.TripID)
	assert.False(t, store.Has("sharecycle.activeTrip"), "legacy key is removed after migration")

	// migrated copy survives under the scoped key
	assert.NotNil(t, trips.Load("rider-1"))
}

func TestTripStore_LegacyKeyForOtherRiderIsDropped(t *testing.T) {
	store := newTestStore(t)
	trips := NewTripStore(store)
	require.NoError(t, store.Set("sharecycle.activeTrip", sampleTrip("rider-1")))

	assert.Nil(t, trips.Load("rider-2"))
	assert.False(t, store.Has("sharecycle.activeTrip"), "legacy key is removed even when it belongs to someone else")
	assert.Nil(t, trips.Load("rider-1"), "the unmigrated record is gone for everyone")
}

func TestTripStore_IncompleteRecordReadsAsNil(t *testing.T) {
	store := newTestStore(t)
	trips := NewTripStore(store)
	require.NoError(t, store.Set("sharecycle.activeTrip.rider-1", models.ActiveTrip{TripID: "t1"}))

	assert.Nil(t, trips.Load("rider-1"))
}

func TestStore_CorruptJSONReadsAsAbsent(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sharecycle.activeTrip.rider-1.json"), []byte("{not json"), 0o644))

	trips := NewTripStore(store)
	assert.Nil(t, trips.Load("rider-1"))
}

func TestStore_PathSanitizesHostileKeys(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir)
	require.NoError(t, err)

	require.NoError(t, store.Set("../escape/attempt", "value"))

	var got string
	assert.True(t, store.Get("../escape/attempt", &got))
	assert.Equal(t, "value", got)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "the entry stays inside the state directory")
}
