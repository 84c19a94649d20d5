// Package history is the paginated ride history / billing view model:
// time-window and bike-type filters, a debounced trip-id search, and a
// self-correcting page cursor that clamps when the server reports fewer
// pages than the requested one implies.
package history

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/sharecycle-console/internal/api"
	"github.com/sharecycle-console/internal/common/logger"
	"github.com/sharecycle-console/pkg/sharecycle/models"
)

// DefaultSearchDebounce delays search-triggered reloads while the user
// is still typing.
const DefaultSearchDebounce = 300 * time.Millisecond

// API is the slice of the platform gateway the view consumes.
type API interface {
	Trips(ctx context.Context, query api.TripQuery) (models.TripPage, error)
	TripDetails(ctx context.Context, tripID string) (models.TripDetails, error)
}

// Filters are the user-applied history filters. Zero values mean "any".
type Filters struct {
	StartTime string
	EndTime   string
	BikeType  models.BikeType
}

type View struct {
	api      API
	logger   logger.Logger
	pageSize int
	debounce time.Duration

	mu          sync.Mutex
	filters     Filters
	search      string
	searchTimer *time.Timer
	currentPage int
	totalPages  int
	entries     []models.TripHistoryEntry
	lastErr     string
	details     *models.TripDetails
	detailsErr  string
	listeners   []func()
}

func NewView(api API, pageSize int, log logger.Logger) *View {
	if pageSize <= 0 {
		pageSize = 20
	}
	return &View{api: api, pageSize: pageSize, debounce: DefaultSearchDebounce, logger: log}
}

// SetDebounce overrides the search debounce interval; tests use zero.
func (v *View) SetDebounce(d time.Duration) {
	v.mu.Lock()
	v.debounce = d
	v.mu.Unlock()
}

// ApplyFilters installs new filters, resets to the first page and
// reloads.
func (v *View) ApplyFilters(ctx context.Context, filters Filters) error {
	v.mu.Lock()
	v.filters = filters
	v.currentPage = 0
	v.mu.Unlock()
	return v.load(ctx)
}

// ResetFilters clears filters and search, resets to the first page and
// reloads.
func (v *View) ResetFilters(ctx context.Context) error {
	v.mu.Lock()
	v.filters = Filters{}
	v.search = ""
	if v.searchTimer != nil {
		v.searchTimer.Stop()
		v.searchTimer = nil
	}
	v.currentPage = 0
	v.mu.Unlock()
	return v.load(ctx)
}

// SetSearch updates the trip-id substring filter. The reload fires after
// the debounce window, resetting to the first page; retyping restarts
// the window.
func (v *View) SetSearch(ctx context.Context, term string) {
	term = strings.TrimSpace(term)
	v.mu.Lock()
	if term == v.search {
		v.mu.Unlock()
		return
	}
	v.search = term
	if v.searchTimer != nil {
		v.searchTimer.Stop()
	}
	debounce := v.debounce
	v.mu.Unlock()

	if debounce <= 0 {
		v.applySearch(ctx, term)
		return
	}
	v.mu.Lock()
	v.searchTimer = time.AfterFunc(debounce, func() {
		v.applySearch(ctx, term)
	})
	v.mu.Unlock()
}

func (v *View) applySearch(ctx context.Context, term string) {
	v.mu.Lock()
	if v.search != term {
		// superseded by further typing
		v.mu.Unlock()
		return
	}
	v.currentPage = 0
	v.mu.Unlock()
	if err := v.load(ctx); err != nil {
		v.logger.Debug("Search reload failed", "error", err)
	}
}

// LoadPage moves the cursor. Out-of-range requests clamp to the last
// page the server reports and re-fetch once.
func (v *View) LoadPage(ctx context.Context, page int) error {
	if page < 0 {
		page = 0
	}
	v.mu.Lock()
	v.currentPage = page
	v.mu.Unlock()
	return v.load(ctx)
}

// Reload re-fetches the current page with the current filters.
func (v *View) Reload(ctx context.Context) error {
	return v.load(ctx)
}

func (v *View) load(ctx context.Context) error {
	v.mu.Lock()
	query := api.TripQuery{
		StartTime: v.filters.StartTime,
		EndTime:   v.filters.EndTime,
		BikeType:  v.filters.BikeType,
		Search:    v.search,
		Page:      v.currentPage,
		PageSize:  v.pageSize,
	}
	v.mu.Unlock()

	page, err := v.api.Trips(ctx, query)
	if err != nil {
		v.mu.Lock()
		v.lastErr = err.Error()
		v.entries = nil
		v.mu.Unlock()
		v.notify()
		return err
	}

	// Self-correcting pagination: the server may report fewer pages
	// than the cursor implies (rows deleted, filters narrowed).
	if page.TotalPages > 0 && query.Page >= page.TotalPages {
		clamped := page.TotalPages - 1
		v.logger.Debug("Requested page out of range, clamping", "requested", query.Page, "total", page.TotalPages)
		v.mu.Lock()
		v.currentPage = clamped
		v.mu.Unlock()
		query.Page = clamped
		page, err = v.api.Trips(ctx, query)
		if err != nil {
			v.mu.Lock()
			v.lastErr = err.Error()
			v.entries = nil
			v.mu.Unlock()
			v.notify()
			return err
		}
	}

	v.mu.Lock()
	v.entries = page.Entries
	v.totalPages = page.TotalPages
	v.lastErr = ""
	v.mu.Unlock()
	v.notify()
	return nil
}

// LoadDetails fetches the billing breakdown for one trip.
func (v *View) LoadDetails(ctx context.Context, tripID string) error {
	details, err := v.api.TripDetails(ctx, tripID)
	v.mu.Lock()
	if err != nil {
		v.details = nil
		v.detailsErr = err.Error()
	} else {
		v.details = &details
		v.detailsErr = ""
	}
	v.mu.Unlock()
	v.notify()
	return err
}

// CloseDetails drops the selected trip details.
func (v *View) CloseDetails() {
	v.mu.Lock()
	v.details = nil
	v.detailsErr = ""
	v.mu.Unlock()
	v.notify()
}

// Page returns the current cursor and the last reported page count.
func (v *View) Page() (current, total int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.currentPage, v.totalPages
}

// Entries returns a copy of the current page rows.
func (v *View) Entries() []models.TripHistoryEntry {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]models.TripHistoryEntry, len(v.entries))
	copy(out, v.entries)
	return out
}

// Details returns the selected trip's billing breakdown, if loaded.
func (v *View) Details() *models.TripDetails {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.details == nil {
		return nil
	}
	copied := *v.details
	return &copied
}

// Errors returns the last list and details error messages.
func (v *View) Errors() (listErr, detailsErr string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.lastErr, v.detailsErr
}

// Subscribe registers a listener invoked after every change.
func (v *View) Subscribe(fn func()) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.listeners = append(v.listeners, fn)
}

func (v *View) notify() {
	v.mu.Lock()
	listeners := make([]func(), len(v.listeners))
	copy(listeners, v.listeners)
	v.mu.Unlock()
	for _, fn := range listeners {
		fn()
	}
}
