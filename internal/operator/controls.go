// Package operator holds the fleet-control side of the console: station
// servicing, capacity changes, bike relocation and the full system
// reset. Mutations are fire-to-server; the station read models are
// refreshed afterwards rather than patched.
package operator

import (
	"context"
	"strings"
	"sync"

	"github.com/sharecycle-console/internal/api"
	"github.com/sharecycle-console/internal/auth"
	"github.com/sharecycle-console/internal/common/logger"
	"github.com/sharecycle-console/internal/observability"
	"github.com/sharecycle-console/pkg/sharecycle/models"
)

// API is the slice of the platform gateway the fleet controls use.
type API interface {
	SetStationStatus(ctx context.Context, stationID string, patch api.StationStatusPatch) (models.StationSummary, error)
	AdjustCapacity(ctx context.Context, stationID string, patch api.CapacityPatch) (models.StationSummary, error)
	MoveBike(ctx context.Context, req api.MoveBikeRequest) ([]models.StationSummary, error)
	ResetSystem(ctx context.Context) (models.ResetSummary, error)
}

// ReadModels exposes the cached station state used to resolve operator
// input and to reload after a mutation.
type ReadModels interface {
	Stations() []models.StationSummary
	Details() *models.StationDetails
	LoadStations(ctx context.Context) error
}

// SessionSource supplies the acting operator's identity.
type SessionSource interface {
	Snapshot() auth.Session
}

var _ API = (*api.Gateway)(nil)

type Controls struct {
	api      API
	stations ReadModels
	sessions SessionSource
	logger   logger.Logger

	mu       sync.Mutex
	feedback string
}

func NewControls(gw API, stations ReadModels, sessions SessionSource, log logger.Logger) *Controls {
	return &Controls{api: gw, stations: stations, sessions: sessions, logger: log}
}

// Feedback returns the last operator action outcome message.
func (c *Controls) Feedback() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.feedback
}

// ToggleStationStatus flips a station between in-service and
// out-of-service based on its current cached status.
func (c *Controls) ToggleStationStatus(ctx context.Context, stationID string) error {
	session := c.sessions.Snapshot()
	if session.EffectiveRole() != models.RoleOperator {
		return c.fail("toggle_status", "Operator access required.")
	}
	station, ok := c.findStation(stationID)
	if !ok {
		return c.fail("toggle_status", "Station not found: "+stationID)
	}

	patch := api.StationStatusPatch{
		OperatorID:   session.UserID,
		OutOfService: station.Status != models.StationOutOfService,
	}
	if _, err := c.api.SetStationStatus(ctx, station.StationID, patch); err != nil {
		return c.failErr("toggle_status", err)
	}

	verb := "taken out of service"
	if !patch.OutOfService {
		verb = "returned to service"
	}
	c.succeed("toggle_status", "Station "+station.Name+" "+verb+".")
	return c.stations.LoadStations(ctx)
}

// AdjustCapacity grows or shrinks a station's dock count by delta.
func (c *Controls) AdjustCapacity(ctx context.Context, stationID string, delta int) error {
	session := c.sessions.Snapshot()
	if session.EffectiveRole() != models.RoleOperator {
		return c.fail("adjust_capacity", "Operator access required.")
	}
	if delta == 0 {
		return c.fail("adjust_capacity", "Capacity delta must be non-zero.")
	}
	station, ok := c.findStation(stationID)
	if !ok {
		return c.fail("adjust_capacity", "Station not found: "+stationID)
	}

	patch := api.CapacityPatch{OperatorID: session.UserID, Delta: delta}
	if _, err := c.api.AdjustCapacity(ctx, station.StationID, patch); err != nil {
		return c.failErr("adjust_capacity", err)
	}
	c.succeed("adjust_capacity", "Capacity updated for "+station.Name+".")
	return c.stations.LoadStations(ctx)
}

// MoveBike relocates a bike to another station. Both the bike and the
// destination may be given as full ids or unambiguous prefixes; the bike
// is resolved against the docks of the currently selected station.
func (c *Controls) MoveBike(ctx context.Context, bikeRef, destinationRef string) error {
	session := c.sessions.Snapshot()
	if session.EffectiveRole() != models.RoleOperator {
		return c.fail("move_bike", "Operator access required.")
	}
	bikeID, err := c.resolveBike(bikeRef)
	if err != nil {
		return c.fail("move_bike", err.Error())
	}
	destination, ok := c.findStation(destinationRef)
	if !ok {
		return c.fail("move_bike", "Destination station not found: "+destinationRef)
	}

	req := api.MoveBikeRequest{
		OperatorID:           session.UserID,
		BikeID:               bikeID,
		DestinationStationID: destination.StationID,
	}
	if _, err := c.api.MoveBike(ctx, req); err != nil {
		return c.failErr("move_bike", err)
	}
	c.succeed("move_bike", "Bike moved to "+destination.Name+".")
	return c.stations.LoadStations(ctx)
}

// ResetSystem wipes and reseeds the fleet server-side.
func (c *Controls) ResetSystem(ctx context.Context) (models.ResetSummary, error) {
	session := c.sessions.Snapshot()
	if session.EffectiveRole() != models.RoleOperator {
		return models.ResetSummary{}, c.fail("reset", "Operator access required.")
	}
	summary, err := c.api.ResetSystem(ctx)
	if err != nil {
		return models.ResetSummary{}, c.failErr("reset", err)
	}
	c.succeed("reset", "System reset complete.")
	if err := c.stations.LoadStations(ctx); err != nil {
		c.logger.Warn("Station reload after reset failed", "error", err)
	}
	return summary, nil
}

// findStation matches a station by exact id, unique id prefix, or
// case-insensitive name against the cached list.
func (c *Controls) findStation(ref string) (models.StationSummary, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return models.StationSummary{}, false
	}
	stations := c.stations.Stations()
	for _, s := range stations {
		if s.StationID == ref || strings.EqualFold(s.Name, ref) {
			return s, true
		}
	}
	var match models.StationSummary
	matches := 0
	lower := strings.ToLower(ref)
	for _, s := range stations {
		if strings.HasPrefix(strings.ToLower(s.StationID), lower) {
			match = s
			matches++
		}
	}
	if matches == 1 {
		return match, true
	}
	return models.StationSummary{}, false
}

// resolveBike matches a bike id or unique prefix against the docks of
// the selected station's detail view.
func (c *Controls) resolveBike(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", opError("Bike id is required.")
	}
	details := c.stations.Details()
	if details == nil {
		// nothing to resolve against; trust the operator's input
		return ref, nil
	}
	var match string
	matches := 0
	lower := strings.ToLower(ref)
	for _, dock := range details.Docks {
		if dock.BikeID == "" {
			continue
		}
		if dock.BikeID == ref {
			return ref, nil
		}
		if strings.HasPrefix(strings.ToLower(dock.BikeID), lower) {
			match = dock.BikeID
			matches++
		}
	}
	switch matches {
	case 1:
		return match, nil
	case 0:
		// not docked at the selected station; pass through
		return ref, nil
	default:
		return "", opError("Bike id prefix is ambiguous: " + ref)
	}
}

type opError string

func (e opError) Error() string { return string(e) }

func (c *Controls) succeed(action, message string) {
	observability.FleetActionsTotal.WithLabelValues(action, "ok").Inc()
	c.mu.Lock()
	c.feedback = message
	c.mu.Unlock()
}

func (c *Controls) fail(action, message string) error {
	observability.FleetActionsTotal.WithLabelValues(action, "error").Inc()
	c.mu.Lock()
	c.feedback = message
	c.mu.Unlock()
	return opError(message)
}

func (c *Controls) failErr(action string, err error) error {
	observability.FleetActionsTotal.WithLabelValues(action, "error").Inc()
	c.mu.Lock()
	c.feedback = err.Error()
	c.mu.Unlock()
	return err
}
