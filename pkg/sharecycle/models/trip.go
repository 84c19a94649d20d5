package models

import "time"

// BikeType distinguishes the billing class of a bike.
type BikeType string

const (
	BikeStandard BikeType = "STANDARD"
	BikeElectric BikeType = "E_BIKE"
)

// LedgerStatus is the billing-ledger state of a completed trip.
type LedgerStatus string

const (
	LedgerPending LedgerStatus = "PENDING"
	LedgerPaid    LedgerStatus = "PAID"
)

// PaymentStatus is the payment state reported alongside a ledger.
type PaymentStatus string

const (
	PaymentPaid        PaymentStatus = "PAID"
	PaymentPending     PaymentStatus = "PENDING"
	PaymentNotRequired PaymentStatus = "NOT_REQUIRED"
)

// Reservation is a time-boxed hold on a specific bike. At most one is
// active per rider; the server enforces that and the client stores a
// single optional value.
type Reservation struct {
	ReservationID string    `json:"reservationId"`
	StationID     string    `json:"stationId"`
	BikeID        string    `json:"bikeId"`
	ReservedAt    time.Time `json:"reservedAt"`
	ExpiresAt     time.Time `json:"expiresAt"`
	Active        bool      `json:"active"`
}

// ActiveTrip is an in-progress trip for the signed-in rider.
type ActiveTrip struct {
	TripID    string    `json:"tripId"`
	StationID string    `json:"stationId"`
	BikeID    string    `json:"bikeId"`
	RiderID   string    `json:"riderId"`
	StartedAt time.Time `json:"startedAt"`
}

// TripEndStatus discriminates the two success shapes of a trip-end call.
type TripEndStatus string

const (
	TripEndCompleted TripEndStatus = "COMPLETED"
	TripEndBlocked   TripEndStatus = "BLOCKED"
)

// TripCompletion is the receipt for a successfully ended trip.
type TripCompletion struct {
	TripID          string        `json:"tripId"`
	EndStationID    string        `json:"endStationId"`
	EndedAt         time.Time     `json:"endedAt"`
	DurationMinutes int           `json:"durationMinutes"`
	LedgerID        string        `json:"ledgerId"`
	BaseCost        float64       `json:"baseCost"`
	TimeCost        float64       `json:"timeCost"`
	EBikeSurcharge  float64       `json:"eBikeSurcharge"`
	TotalCost       float64       `json:"totalCost"`
	LedgerStatus    LedgerStatus  `json:"ledgerStatus"`
	PaymentStatus   PaymentStatus `json:"paymentStatus"`
}

// StationSuggestion is an alternate return station offered with a
// blocked return, ranked by the server.
type StationSuggestion struct {
	StationID      string  `json:"stationId"`
	Name           string  `json:"name,omitempty"`
	FreeDocks      int     `json:"freeDocks"`
	DistanceMeters float64 `json:"distanceMeters"`
}

// ReturnBlocked is the non-fatal rejection of a trip-end attempt because
// the destination has no free docks. The trip stays open and retryable.
type ReturnBlocked struct {
	TripID         string              `json:"tripId"`
	StationID      string              `json:"stationId"`
	Message        string              `json:"message"`
	CourtesyCredit float64             `json:"courtesyCredit,omitempty"`
	Suggestions    []StationSuggestion `json:"suggestions,omitempty"`
}

// TripEndResult is the tagged union returned by the trip-end endpoint,
// discriminated by Status. Exactly one of Completion or Block is
// meaningful.
type TripEndResult struct {
	Status     TripEndStatus
	Completion *TripCompletion
	Block      *ReturnBlocked
}

// PaymentResult is the response of a ledger settlement attempt.
type PaymentResult struct {
	LedgerID      string        `json:"ledgerId"`
	LedgerStatus  LedgerStatus  `json:"ledgerStatus"`
	TotalCost     float64       `json:"totalCost"`
	PaymentStatus PaymentStatus `json:"paymentStatus"`
}

// TripHistoryEntry is one row of the paginated ride history.
type TripHistoryEntry struct {
	TripID           string       `json:"tripId"`
	RiderID          string       `json:"riderId,omitempty"`
	RiderName        string       `json:"riderName,omitempty"`
	StartStationName string       `json:"startStationName,omitempty"`
	EndStationName   string       `json:"endStationName,omitempty"`
	StartTime        *time.Time   `json:"startTime,omitempty"`
	EndTime          *time.Time   `json:"endTime,omitempty"`
	DurationMinutes  int          `json:"durationMinutes"`
	BikeType         BikeType     `json:"bikeType,omitempty"`
	BikeID           string       `json:"bikeId,omitempty"`
	TotalCost        float64      `json:"totalCost"`
	LedgerID         string       `json:"ledgerId,omitempty"`
	LedgerStatus     LedgerStatus `json:"ledgerStatus,omitempty"`
}

// TripDetails is the full billing breakdown of a single trip.
type TripDetails struct {
	TripHistoryEntry
	BaseCost       float64 `json:"baseCost"`
	TimeCost       float64 `json:"timeCost"`
	EBikeSurcharge float64 `json:"eBikeSurcharge"`
}

// TripPage is one page of the trip history.
type TripPage struct {
	Entries    []TripHistoryEntry `json:"entries"`
	Page       int                `json:"page"`
	TotalPages int                `json:"totalPages"`
	TotalItems int                `json:"totalItems"`
}

// LoyaltyStatus is the rider's tier and prepaid/courtesy balance.
type LoyaltyStatus struct {
	RiderID    string  `json:"riderId"`
	Tier       string  `json:"tier"`
	FlexCredit float64 `json:"flexCredit"`
}
