package operator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sharecycle-console/internal/api"
	"github.com/sharecycle-console/internal/auth"
	"github.com/sharecycle-console/internal/common/logger"
	"github.com/sharecycle-console/pkg/sharecycle/models"
)

type mockFleetAPI struct {
	setStatus      func(ctx context.Context, stationID string, patch api.StationStatusPatch) (models.StationSummary, error)
	adjustCapacity func(ctx context.Context, stationID string, patch api.CapacityPatch) (models.StationSummary, error)
	moveBike       func(ctx context.Context, req api.MoveBikeRequest) ([]models.StationSummary, error)
	resetSystem    func(ctx context.Context) (models.ResetSummary, error)
}

func (m *mockFleetAPI) SetStationStatus(ctx context.Context, stationID string, patch api.StationStatusPatch) (models.StationSummary, error) {
	return m.setStatus(ctx, stationID, patch)
}
func (m *mockFleetAPI) AdjustCapacity(ctx context.Context, stationID string, patch api.CapacityPatch) (models.StationSummary, error) {
	return m.adjustCapacity(ctx, stationID, patch)
}
func (m *mockFleetAPI) MoveBike(ctx context.Context, req api.MoveBikeRequest) ([]models.StationSummary, error) {
	return m.moveBike(ctx, req)
}
func (m *mockFleetAPI) ResetSystem(ctx context.Context) (models.ResetSummary, error) {
	return m.resetSystem(ctx)
}

var _ API = (*mockFleetAPI)(nil)

type mockFleetReads struct {
	stations []models.StationSummary
	details  *models.StationDetails
	reloads  int
}

func (m *mockFleetReads) Stations() []models.StationSummary { return m.stations }
func (m *mockFleetReads) Details() *models.StationDetails { return m.details }
func (m *mockFleetReads) LoadStations(context.Context) error { m.reloads++; return nil }

var _ ReadModels = (*mockFleetReads)(nil)

type fleetSession struct {
	session auth.Session
}

func (s *fleetSession) Snapshot() auth.Session { return s.session }

func operatorSession() *fleetSession {
	return &fleetSession{session: auth.Session{
		Token: "tok", Role: models.RoleOperator, UserID: "op-1", CurrentMode: models.RoleOperator,
	}}
}

func fleetReads() *mockFleetReads {
	return &mockFleetReads{
		stations: []models.StationSummary{
			{StationID: "a1b2c3d4-0000-0000-0000-000000000001", Name: "Harbor", Status: models.StationOccupied},
			{StationID: "a1b2c3d4-0000-0000-0000-000000000002", Name: "Dockside", Status: models.StationOutOfService},
			{StationID: "f9e8d7c6-0000-0000-0000-000000000003", Name: "Museum", Status: models.StationOccupied},
		},
		details: &models.StationDetails{
			StationSummary: models.StationSummary{StationID: "a1b2c3d4-0000-0000-0000-000000000001"},
			Docks: []models.Dock{
				{DockID: "d1", Status: models.DockOccupied, BikeID: "bike-1111-aaaa"},
				{DockID: "d2", Status: models.DockOccupied, BikeID: "bike-2222-bbbb"},
				{DockID: "d3", Status: models.DockEmpty},
			},
		},
	}
}

func TestToggleStationStatus_FlipsBasedOnCurrentState(t *testing.T) {
	var got api.StationStatusPatch
	gw := &mockFleetAPI{
		setStatus: func(_ context.Context, stationID string, patch api.StationStatusPatch) (models.StationSummary, error) {
			got = patch
			return models.StationSummary{StationID: stationID}, nil
		},
	}
	reads := fleetReads()
	c := NewControls(gw, reads, operatorSession(), logger.Nop())

	require.NoError(t, c.ToggleStationStatus(context.Background(), "Harbor"))
	assert.True(t, got.OutOfService, "an in-service station is taken out of service")
	assert.Equal(t, "op-1", got.OperatorID)
	assert.Equal(t, 1, reads.reloads)

	require.NoError(t, c.ToggleStationStatus(context.Background(), "Dockside"))
	assert.False(t, got.OutOfService, "an out-of-service station is returned to service")
}

func TestToggleStationStatus_RequiresOperatorMode(t *testing.T) {
	calls := 0
	gw := &mockFleetAPI{
		setStatus: func(_ context.Context, _ string, _ api.StationStatusPatch) (models.StationSummary, error) {
			calls++
			return models.StationSummary{}, nil
		},
	}
	session := operatorSession()
	session.session.CurrentMode = models.RoleRider // acting as rider
	c := NewControls(gw, fleetReads(), session, logger.Nop())

	err := c.ToggleStationStatus(context.Background(), "Harbor")

	require.Error(t, err)
	assert.Equal(t, 0, calls)
	assert.Equal(t, "Operator access required.", c.Feedback())
}

func TestAdjustCapacity_RejectsZeroDelta(t *testing.T) {
	c := NewControls(&mockFleetAPI{}, fleetReads(), operatorSession(), logger.Nop())

	err := c.AdjustCapacity(context.Background(), "Harbor", 0)

	require.Error(t, err)
	assert.Equal(t, "Capacity delta must be non-zero.", c.Feedback())
}

func TestMoveBike_ResolvesPrefixesAgainstReadModels(t *testing.T) {
	var got api.MoveBikeRequest
	gw := &mockFleetAPI{
		moveBike: func(_ context.Context, req api.MoveBikeRequest) ([]models.StationSummary, error) {
			got = req
			return nil, nil
		},
	}
	c := NewControls(gw, fleetReads(), operatorSession(), logger.Nop())

	require.NoError(t, c.MoveBike(context.Background(), "bike-1111", "Museum"))

	assert.Equal(t, "bike-1111-aaaa", got.BikeID, "unique prefix resolves to the docked bike")
	assert.Equal(t, "f9e8d7c6-0000-0000-0000-000000000003", got.DestinationStationID)
	assert.Equal(t, "op-1", got.OperatorID)
}

func TestMoveBike_AmbiguousPrefixIsRejected(t *testing.T) {
	calls := 0
	gw := &mockFleetAPI{
		moveBike: func(_ context.Context, _ api.MoveBikeRequest) ([]models.StationSummary, error) {
			calls++
			return nil, nil
		},
	}
	c := NewControls(gw, fleetReads(), operatorSession(), logger.Nop())

	err := c.MoveBike(context.Background(), "bike-", "Museum")

	require.Error(t, err)
	assert.Equal(t, 0, calls)
}

func TestMoveBike_StationPrefixMustBeUnique(t *testing.T) {
	gw := &mockFleetAPI{
		moveBike: func(_ context.Context, req api.MoveBikeRequest) ([]models.StationSummary, error) {
			return nil, nil
		},
	}
	c := NewControls(gw, fleetReads(), operatorSession(), logger.Nop())

	// "a1b2c3d4" matches two stations
	err := c.MoveBike(context.Background(), "bike-1111", "a1b2c3d4")
	require.Error(t, err)

	// "f9e8" matches exactly one
	require.NoError(t, c.MoveBike(context.Background(), "bike-1111", "f9e8"))
}

func TestResetSystem_ReturnsSummaryAndReloads(t *testing.T) {
	gw := &mockFleetAPI{
		resetSystem: func(_ context.Context) (models.ResetSummary, error) {
			return models.ResetSummary{Bikes: 12, Stations: 4, Docks: 40}, nil
		},
	}
	reads := fleetReads()
	c := NewControls(gw, reads, operatorSession(), logger.Nop())

	summary, err := c.ResetSystem(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 12, summary.Bikes)
	assert.Equal(t, 1, reads.reloads)
	assert.Equal(t, "System reset complete.", c.Feedback())
}
