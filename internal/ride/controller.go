// Package ride is the trip/reservation orchestration core. It tracks the
// rider's reservation, active trip, last receipt and blocked-return
// state, serializes ride-mutating actions behind a single pending-action
// flag, applies optimistic read-model patches, and reconciles everything
// against authoritative server responses.
package ride

import (
	"context"
	"sync"
	"time"

	"github.com/sharecycle-console/internal/api"
	"github.com/sharecycle-console/internal/auth"
	"github.com/sharecycle-console/internal/common/logger"
	"github.com/sharecycle-console/internal/observability"
	"github.com/sharecycle-console/pkg/sharecycle/models"
)

// reservationHoldMinutes is the fixed hold the client requests; expiry
// enforcement is server-side.
const reservationHoldMinutes = 5

// Action is the mutual-exclusion flag for ride-mutating calls. Only one
// may be in flight per session; a second invocation is a silent no-op.
type Action string

const (
	ActionNone    Action = ""
	ActionReserve Action = "reserve"
	ActionStart   Action = "start"
	ActionEnd     Action = "end"
)

// CountdownExpired is the sentinel countdown display once the
// reservation hold has lapsed.
const CountdownExpired = "expired"

// Gateway is the slice of the platform API the controller drives.
// *api.Gateway satisfies it.
type Gateway interface {
	CreateReservation(ctx context.Context, req api.ReservationRequest) (models.Reservation, error)
	ActiveReservation(ctx context.Context, riderID string) (*models.Reservation, error)
	StartTrip(ctx context.Context, req api.TripRequest) (models.ActiveTrip, error)
	EndTrip(ctx context.Context, tripID, stationID string) (models.TripEndResult, error)
	PayLedger(ctx context.Context, ledgerID string) (models.PaymentResult, error)
	LoyaltyStatus(ctx context.Context, riderID string) (models.LoyaltyStatus, error)
}

// ReadModels is the reconciliation surface: optimistic patches bridge
// the gap until the reloads overwrite them with server truth.
// *stations.Consumer satisfies it.
type ReadModels interface {
	LoadStations(ctx context.Context) error
	LoadStationDetails(ctx context.Context, stationID string) error
	MarkDockReserved(stationID, dockID, bikeID string)
	MarkBikeTaken(stationID, dockID string)
}

// TripStore persists the last-known active trip per rider.
// *localstore.TripStore satisfies it.
type TripStore interface {
	Load(riderID string) *models.ActiveTrip
	Save(riderID string, trip *models.ActiveTrip) error
	Clear(riderID string)
}

// SessionSource supplies the acting rider's identity.
type SessionSource interface {
	Snapshot() auth.Session
}

// State is a point-in-time copy of the orchestration state. Countdown is
// a pure display derivation ("mm:ss" or the expired sentinel); it never
// mutates the reservation.
type State struct {
	Reservation *models.Reservation
	Countdown   string
	ActiveTrip  *models.ActiveTrip
	Completion  *models.TripCompletion
	ReturnBlock *models.ReturnBlocked
	Pending     Action
	Feedback    string
	FlexCredit  float64
}

type Controller struct {
	gw      Gateway
	reads   ReadModels
	trips   TripStore
	session SessionSource
	logger  logger.Logger
	now     func() time.Time

	mu            sync.Mutex
	reservation   *models.Reservation
	countdown     string
	activeTrip    *models.ActiveTrip
	completion    *models.TripCompletion
	returnBlock   *models.ReturnBlocked
	pending       Action
	feedback      string
	flexCredit    float64
	settling      map[string]bool
	countdownStop chan struct{}
	listeners     []func(State)
}

func NewController(gw Gateway, reads ReadModels, trips TripStore, session SessionSource, log logger.Logger) *Controller {
	c := &Controller{
		gw:       gw,
		reads:    reads,
		trips:    trips,
		session:  session,
		logger:   log,
		now:      time.Now,
		settling: make(map[string]bool),
	}
	c.restoreActiveTrip()
	return c
}

// restoreActiveTrip rehydrates the rider's persisted trip so a restart
// lands back in TRIP_ACTIVE rather than IDLE.
func (c *Controller) restoreActiveTrip() {
	if c.trips == nil {
		return
	}
	riderID := c.riderID()
	if riderID == "" {
		return
	}
	if trip := c.trips.Load(riderID); trip != nil {
		c.mu.Lock()
		c.activeTrip = trip
		c.mu.Unlock()
		c.logger.Info("Restored active trip", "trip", trip.TripID)
	}
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

// Subscribe registers a listener invoked after every state change.
func (c *Controller) Subscribe(fn func(State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// RefreshReservation loads the rider's active reservation from the
// server so the display reflects server state after a restart. Errors
// and empty responses both read as "no reservation".
func (c *Controller) RefreshReservation(ctx context.Context) {
	riderID := c.riderID()
	if riderID == "" {
		return
	}
	reservation, err := c.gw.ActiveReservation(ctx, riderID)
	if err != nil {
		reservation = nil
	}
	c.mu.Lock()
	c.setReservationLocked(reservation)
	c.mu.Unlock()
	c.notify()
}

// ReserveBike places a fixed-duration hold on a bike. Empty ids and an
// in-flight ride action are silent no-ops. dockID, when known, drives
// the optimistic dock patch.
func (c *Controller) ReserveBike(ctx context.Context, stationID, bikeID, dockID string) {
	if stationID == "" || bikeID == "" {
		return
	}
	if !c.begin(ActionReserve, func() {
		c.setReservationLocked(nil)
		c.feedback = ""
	}) {
		return
	}
	defer c.finish()

	reservation, err := c.gw.CreateReservation(ctx, api.ReservationRequest{
		RiderID:             c.riderID(),
		StationID:           stationID,
		BikeID:              bikeID,
		ExpiresAfterMinutes: reservationHoldMinutes,
	})
	if err != nil {
		c.fail(ActionReserve, err)
		return
	}

	c.mu.Lock()
	c.setReservationLocked(&reservation)
	// a new reservation supersedes any stale trip display
	c.activeTrip = nil
	c.feedback = "Reservation created successfully."
	c.mu.Unlock()
	c.persistTrip(nil)
	c.notify()
	observability.RideActionsTotal.WithLabelValues(string(ActionReserve), "ok").Inc()

	if dockID != "" {
		c.reads.MarkDockReserved(stationID, dockID, bikeID)
	}
	c.reconcile(ctx, stationID)
}

// StartTrip unlocks a bike and opens a trip. The reservation (if any) is
// consumed server-side; locally it is cleared along with its countdown.
func (c *Controller) StartTrip(ctx context.Context, stationID, bikeID, dockID string) {
	if stationID == "" || bikeID == "" {
		return
	}
	if !c.begin(ActionStart, func() {
		c.feedback = ""
	}) {
		return
	}
	defer c.finish()

	trip, err := c.gw.StartTrip(ctx, api.TripRequest{
		RiderID:   c.riderID(),
		BikeID:    bikeID,
		StationID: stationID,
	})
	if err != nil {
		c.fail(ActionStart, err)
		return
	}

	c.mu.Lock()
	c.activeTrip = &trip
	c.completion = nil
	c.returnBlock = nil
	c.setReservationLocked(nil)
	c.feedback = "Trip started."
	c.mu.Unlock()
	c.persistTrip(&trip)
	c.notify()
	observability.RideActionsTotal.WithLabelValues(string(ActionStart), "ok").Inc()

	if dockID != "" {
		c.reads.MarkBikeTaken(stationID, dockID)
	}
	c.reconcile(ctx, stationID)
}

// CompleteTrip attempts to return the bike at stationID. A COMPLETED
// response closes the trip and stores the receipt; a BLOCKED response
// surfaces the rejection and keeps the trip open for a retry elsewhere.
func (c *Controller) CompleteTrip(ctx context.Context, stationID string) {
	c.mu.Lock()
	if c.activeTrip == nil || c.activeTrip.TripID == "" {
		c.feedback = "No active trip to complete."
		c.mu.Unlock()
		c.notify()
		return
	}
	tripID := c.activeTrip.TripID
	c.mu.Unlock()

	if !c.begin(ActionEnd, func() {
		c.feedback = ""
	}) {
		return
	}
	defer c.finish()

	result, err := c.gw.EndTrip(ctx, tripID, stationID)
	if err != nil {
		// trip stays active and retryable
		c.fail(ActionEnd, err)
		return
	}

	switch result.Status {
	case models.TripEndBlocked:
		c.mu.Lock()
		c.returnBlock = result.Block
		c.feedback = result.Block.Message
		c.mu.Unlock()
		c.notify()
		observability.RideActionsTotal.WithLabelValues(string(ActionEnd), "blocked").Inc()
		c.logger.Info("Return blocked", "trip", tripID, "station", stationID, "suggestions", len(result.Block.Suggestions))

	default:
		c.mu.Lock()
		c.completion = result.Completion
		c.activeTrip = nil
		c.returnBlock = nil
		c.feedback = "Trip completed."
		c.mu.Unlock()
		c.persistTrip(nil)
		c.notify()
		observability.RideActionsTotal.WithLabelValues(string(ActionEnd), "ok").Inc()
		c.refreshFlexCredit(ctx)
	}

	c.reconcile(ctx, stationID)
}

// SettleLedger pays a billing ledger. It is independent of the ride
// action lock; only a second attempt for the same ledger is suppressed.
// Paying an already-settled ledger is a server-side concern, so retries
// are safe.
func (c *Controller) SettleLedger(ctx context.Context, ledgerID string) {
	if ledgerID == "" {
		return
	}
	c.mu.Lock()
	if c.settling[ledgerID] {
		c.mu.Unlock()
		return
	}
	c.settling[ledgerID] = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.settling, ledgerID)
		c.mu.Unlock()
	}()

	result, err := c.gw.PayLedger(ctx, ledgerID)
	c.mu.Lock()
	if err != nil {
		c.feedback = err.Error()
	} else {
		if c.completion != nil && c.completion.LedgerID == ledgerID {
			if result.LedgerStatus != "" {
				c.completion.LedgerStatus = result.LedgerStatus
			}
			if result.PaymentStatus != "" {
				c.completion.PaymentStatus = result.PaymentStatus
			}
		}
		c.feedback = "Payment processed successfully."
	}
	c.mu.Unlock()
	c.notify()
}

// SettlementInFlight reports whether a payment attempt for ledgerID is
// outstanding.
func (c *Controller) SettlementInFlight(ledgerID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.settling[ledgerID]
}

// ---- internals -------------------------------------------------------

// begin claims the pending-action flag. It returns false, without side
// effects, when another ride action is already in flight. prepare runs
// under the lock after the claim.
func (c *Controller) begin(action Action, prepare func()) bool {
	c.mu.Lock()
	if c.pending != ActionNone {
		c.mu.Unlock()
		c.logger.Debug("Ride action ignored, another is in flight", "action", action)
		return false
	}
	c.pending = action
	if prepare != nil {
		prepare()
	}
	c.mu.Unlock()
	c.notify()
	return true
}

// finish always releases the pending-action flag, success or not.
func (c *Controller) finish() {
	c.mu.Lock()
	c.pending = ActionNone
	c.mu.Unlock()
	c.notify()
}

func (c *Controller) fail(action Action, err error) {
	c.mu.Lock()
	c.feedback = err.Error()
	c.mu.Unlock()
	c.notify()
	observability.RideActionsTotal.WithLabelValues(string(action), "error").Inc()
	c.logger.Debug("Ride action failed", "action", action, "error", err)
}

// reconcile reloads the authoritative read models after a mutation.
// Reload failures are recorded by the read models themselves.
func (c *Controller) reconcile(ctx context.Context, stationID string) {
	_ = c.reads.LoadStations(ctx)
	if stationID != "" {
		_ = c.reads.LoadStationDetails(ctx, stationID)
	}
}

func (c *Controller) refreshFlexCredit(ctx context.Context) {
	riderID := c.riderID()
	if riderID == "" {
		return
	}
	status, err := c.gw.LoyaltyStatus(ctx, riderID)
	if err != nil {
		c.logger.Debug("Failed to refresh loyalty status", "error", err)
		return
	}
	c.mu.Lock()
	c.flexCredit = status.FlexCredit
	c.mu.Unlock()
	c.notify()
}

func (c *Controller) persistTrip(trip *models.ActiveTrip) {
	if c.trips == nil {
		return
	}
	riderID := c.riderID()
	if riderID == "" {
		return
	}
	if err := c.trips.Save(riderID, trip); err != nil {
		c.logger.Warn("Failed to persist active trip", "error", err)
	}
}

func (c *Controller) riderID() string {
	if c.session == nil {
		return ""
	}
	return c.session.Snapshot().UserID
}

// stateLocked copies the controller state so callers holding an old
// snapshot never observe later mutations, such as a settlement patching
// the completion's payment status.
func (c *Controller) stateLocked() State {
	st := State{
		Countdown:  c.countdown,
		Pending:    c.pending,
		Feedback:   c.feedback,
		FlexCredit: c.flexCredit,
	}
	if c.reservation != nil {
		reservation := *c.reservation
		st.Reservation = &reservation
	}
	if c.activeTrip != nil {
		trip := *c.activeTrip
		st.ActiveTrip = &trip
	}
	if c.completion != nil {
		completion := *c.completion
		st.Completion = &completion
	}
	if c.returnBlock != nil {
		block := *c.returnBlock
		block.Suggestions = append([]models.StationSuggestion(nil), c.returnBlock.Suggestions...)
		st.ReturnBlock = &block
	}
	return st
}

func (c *Controller) notify() {
	c.mu.Lock()
	state := c.stateLocked()
	listeners := make([]func(State), len(c.listeners))
	copy(listeners, c.listeners)
	c.mu.Unlock()
	for _, fn := range listeners {
		fn(state)
	}
}
