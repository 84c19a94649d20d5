// Package stations holds the station/dock read models. They are plain
// fetch-and-store views over the platform: never locally authoritative,
// last write wins, and every optimistic patch is overwritten by the next
// successful fetch.
package stations

import (
	"context"
	"sync"

	"github.com/sharecycle-console/internal/common/logger"
	"github.com/sharecycle-console/pkg/sharecycle/models"
)

// API is the slice of the platform gateway the read models consume.
type API interface {
	Stations(ctx context.Context) ([]models.StationSummary, error)
	StationDetails(ctx context.Context, stationID string) (models.StationDetails, error)
}

type Consumer struct {
	api    API
	logger logger.Logger

	mu           sync.Mutex
	stations     []models.StationSummary
	details      *models.StationDetails
	stationsErr  string
	detailsErr   string
	selectedID   string
	listeners    []func()
}

func NewConsumer(api API, log logger.Logger) *Consumer {
	return &Consumer{api: api, logger: log}
}

// LoadStations refreshes the summary list. Concurrent calls are not
// de-duplicated; they are read-only and the last response wins.
func (c *Consumer) LoadStations(ctx context.Context) error {
	data, err := c.api.Stations(ctx)
	c.mu.Lock()
	if err != nil {
		c.stationsErr = err.Error()
	} else {
		c.stations = data
		c.stationsErr = ""
	}
	c.mu.Unlock()
	c.notify()
	if err != nil {
		c.logger.Debug("Failed to load stations", "error", err)
	}
	return err
}

// Select marks a station for detail loading and fetches its details.
func (c *Consumer) Select(ctx context.Context, stationID string) error {
	c.mu.Lock()
	c.selectedID = stationID
	c.mu.Unlock()
	if stationID == "" {
		c.mu.Lock()
		c.details = nil
		c.mu.Unlock()
		c.notify()
		return nil
	}
	return c.LoadStationDetails(ctx, stationID)
}

// LoadStationDetails refreshes the per-station dock view.
func (c *Consumer) LoadStationDetails(ctx context.Context, stationID string) error {
	data, err := c.api.StationDetails(ctx, stationID)
	c.mu.Lock()
	if err != nil {
		c.detailsErr = err.Error()
	} else {
		c.details = &data
		c.detailsErr = ""
	}
	c.mu.Unlock()
	c.notify()
	if err != nil {
		c.logger.Debug("Failed to load station details", "station", stationID, "error", err)
	}
	return err
}

// Stations returns a copy of the current summaries.
func (c *Consumer) Stations() []models.StationSummary {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.StationSummary, len(c.stations))
	copy(out, c.stations)
	return out
}

// Details returns a copy of the loaded station details, if any.
func (c *Consumer) Details() *models.StationDetails {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.details == nil {
		return nil
	}
	copied := *c.details
	copied.Docks = make([]models.Dock, len(c.details.Docks))
	copy(copied.Docks, c.details.Docks)
	return &copied
}

// Errors returns the last fetch error messages for list and details.
func (c *Consumer) Errors() (stationsErr, detailsErr string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stationsErr, c.detailsErr
}

// Subscribe registers a listener invoked after every state change.
func (c *Consumer) Subscribe(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// MarkDockReserved optimistically shows a dock occupied by the reserved
// bike until the next reload reconciles against the server.
func (c *Consumer) MarkDockReserved(stationID, dockID, bikeID string) {
	c.mu.Lock()
	if c.details != nil && c.details.StationID == stationID {
		for i := range c.details.Docks {
			if c.details.Docks[i].DockID == dockID {
				c.details.Docks[i].Status = models.DockOccupied
				c.details.Docks[i].BikeID = bikeID
			}
		}
	}
	c.mu.Unlock()
	c.notify()
}

// MarkBikeTaken optimistically empties a dock and adjusts the station
// counters after a trip start.
func (c *Consumer) MarkBikeTaken(stationID, dockID string) {
	c.mu.Lock()
	if c.details != nil && c.details.StationID == stationID {
		for i := range c.details.Docks {
			if c.details.Docks[i].DockID == dockID {
				c.details.Docks[i].Status = models.DockEmpty
				c.details.Docks[i].BikeID = ""
			}
		}
		adjustCounters(&c.details.StationSummary)
	}
	for i := range c.stations {
		if c.stations[i].StationID == stationID {
			adjustCounters(&c.stations[i])
		}
	}
	c.mu.Unlock()
	c.notify()
}

func adjustCounters(s *models.StationSummary) {
	if s.BikesDocked > 0 {
		s.BikesDocked--
	}
	if s.BikesAvailable > 0 {
		s.BikesAvailable--
	}
	if s.FreeDocks < s.Capacity {
		s.FreeDocks++
	}
}

func (c *Consumer) notify() {
	c.mu.Lock()
	listeners := make([]func(), len(c.listeners))
	copy(listeners, c.listeners)
	c.mu.Unlock()
	for _, fn := range listeners {
		fn()
	}
}
