package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/sharecycle-console/pkg/sharecycle/models"
)

// Gateway exposes the platform endpoints as typed calls on top of the
// request wrapper. It holds no state beyond the client.
type Gateway struct {
	client *Client
}

func NewGateway(client *Client) *Gateway {
	return &Gateway{client: client}
}

// Client returns the underlying request wrapper.
func (g *Gateway) Client() *Client { return g.client }

// ---- auth ------------------------------------------------------------

type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type Registration struct {
	Username string      `json:"username"`
	Password string      `json:"password"`
	Email    string      `json:"email,omitempty"`
	Role     models.Role `json:"role,omitempty"`
}

func (g *Gateway) Login(ctx context.Context, creds Credentials) (models.LoginResult, error) {
	var out models.LoginResult
	err := g.client.Request(ctx, http.MethodPost, "/auth/login", creds, &out, &RequestOptions{SkipAuth: true})
	return out, err
}

func (g *Gateway) Register(ctx context.Context, reg Registration) (models.LoginResult, error) {
	var out models.LoginResult
	err := g.client.Request(ctx, http.MethodPost, "/auth/register", reg, &out, &RequestOptions{SkipAuth: true})
	return out, err
}

func (g *Gateway) Logout(ctx context.Context, token string) error {
	return g.client.Request(ctx, http.MethodPost, "/auth/logout", nil, nil, &RequestOptions{Token: token})
}

func (g *Gateway) ToggleRole(ctx context.Context) (models.ToggleRoleResult, error) {
	var out models.ToggleRoleResult
	err := g.client.Request(ctx, http.MethodPost, "/auth/toggle-role", nil, &out, nil)
	return out, err
}

// ---- stations --------------------------------------------------------

func (g *Gateway) Stations(ctx context.Context) ([]models.StationSummary, error) {
	var out []models.StationSummary
	err := g.client.Request(ctx, http.MethodGet, "/stations", nil, &out, nil)
	return out, err
}

// PublicStations is the unauthenticated variant of the station list.
func (g *Gateway) PublicStations(ctx context.Context) ([]models.StationSummary, error) {
	var out []models.StationSummary
	err := g.client.Request(ctx, http.MethodGet, "/public/stations", nil, &out, &RequestOptions{SkipAuth: true})
	return out, err
}

func (g *Gateway) StationDetails(ctx context.Context, stationID string) (models.StationDetails, error) {
	var out models.StationDetails
	err := g.client.Request(ctx, http.MethodGet, "/stations/"+stationID+"/details", nil, &out, nil)
	return out, err
}

type StationStatusPatch struct {
	OperatorID   string `json:"operatorId"`
	OutOfService bool   `json:"outOfService"`
}

func (g *Gateway) SetStationStatus(ctx context.Context, stationID string, patch StationStatusPatch) (models.StationSummary, error) {
	var out models.StationSummary
	err := g.client.Request(ctx, http.MethodPatch, "/stations/"+stationID+"/status", patch, &out, nil)
	return out, err
}

type CapacityPatch struct {
	OperatorID string `json:"operatorId"`
	Delta      int    `json:"delta"`
}

func (g *Gateway) AdjustCapacity(ctx context.Context, stationID string, patch CapacityPatch) (models.StationSummary, error) {
	var out models.StationSummary
	err := g.client.Request(ctx, http.MethodPatch, "/stations/"+stationID+"/capacity", patch, &out, nil)
	return out, err
}

type MoveBikeRequest struct {
	OperatorID           string `json:"operatorId"`
	BikeID               string `json:"bikeId"`
	DestinationStationID string `json:"destinationStationId"`
}

func (g *Gateway) MoveBike(ctx context.Context, req MoveBikeRequest) ([]models.StationSummary, error) {
	var out []models.StationSummary
	err := g.client.Request(ctx, http.MethodPost, "/stations/move-bike", req, &out, nil)
	return out, err
}

// ---- reservations ----------------------------------------------------

type ReservationRequest struct {
	RiderID             string `json:"riderId"`
	StationID           string `json:"stationId"`
	BikeID              string `json:"bikeId"`
	ExpiresAfterMinutes int    `json:"expiresAfterMinutes"`
}

func (g *Gateway) CreateReservation(ctx context.Context, req ReservationRequest) (models.Reservation, error) {
	var out models.Reservation
	err := g.client.Request(ctx, http.MethodPost, "/reservations", req, &out, nil)
	return out, err
}

// ActiveReservation returns the rider's active reservation, or nil when
// the server reports none (204).
func (g *Gateway) ActiveReservation(ctx context.Context, riderID string) (*models.Reservation, error) {
	var out models.Reservation
	err := g.client.Request(ctx, http.MethodGet, "/reservations/active?riderId="+url.QueryEscape(riderID), nil, &out, nil)
	if err != nil {
		return nil, err
	}
	if out.ReservationID == "" {
		return nil, nil
	}
	return &out, nil
}

// ---- trips -----------------------------------------------------------

type TripRequest struct {
	RiderID   string `json:"riderId"`
	BikeID    string `json:"bikeId"`
	StationID string `json:"stationId"`
}

func (g *Gateway) StartTrip(ctx context.Context, req TripRequest) (models.ActiveTrip, error) {
	var out models.ActiveTrip
	err := g.client.Request(ctx, http.MethodPost, "/trips", req, &out, nil)
	return out, err
}

// tripEndPayload is the raw trip-end response before it is split into
// the tagged union. The two shapes are discriminated by status; a
// missing status means an older server answering only the completed
// shape.
type tripEndPayload struct {
	Status models.TripEndStatus `json:"status"`

	TripID          string               `json:"tripId"`
	EndStationID    string               `json:"endStationId"`
	EndedAt         jsonTime             `json:"endedAt"`
	DurationMinutes int                  `json:"durationMinutes"`
	LedgerID        string               `json:"ledgerId"`
	BaseCost        float64              `json:"baseCost"`
	TimeCost        float64              `json:"timeCost"`
	EBikeSurcharge  float64              `json:"eBikeSurcharge"`
	TotalCost       float64              `json:"totalCost"`
	LedgerStatus    models.LedgerStatus  `json:"ledgerStatus"`
	PaymentStatus   models.PaymentStatus `json:"paymentStatus"`

	StationID      string                     `json:"stationId"`
	Message        string                     `json:"message"`
	CourtesyCredit float64                    `json:"courtesyCredit"`
	Suggestions    []models.StationSuggestion `json:"suggestions"`
}

func (g *Gateway) EndTrip(ctx context.Context, tripID, stationID string) (models.TripEndResult, error) {
	var raw tripEndPayload
	body := map[string]string{"stationId": stationID}
	if err := g.client.Request(ctx, http.MethodPost, "/trips/"+tripID+"/end", body, &raw, nil); err != nil {
		return models.TripEndResult{}, err
	}

	if raw.Status == models.TripEndBlocked {
		return models.TripEndResult{
			Status: models.TripEndBlocked,
			Block: &models.ReturnBlocked{
				TripID:         firstNonEmpty(raw.TripID, tripID),
				StationID:      firstNonEmpty(raw.StationID, stationID),
				Message:        raw.Message,
				CourtesyCredit: raw.CourtesyCredit,
				Suggestions:    raw.Suggestions,
			},
		}, nil
	}

	return models.TripEndResult{
		Status: models.TripEndCompleted,
		Completion: &models.TripCompletion{
			TripID:          firstNonEmpty(raw.TripID, tripID),
			EndStationID:    raw.EndStationID,
			EndedAt:         raw.EndedAt.Time,
			DurationMinutes: raw.DurationMinutes,
			LedgerID:        raw.LedgerID,
			BaseCost:        raw.BaseCost,
			TimeCost:        raw.TimeCost,
			EBikeSurcharge:  raw.EBikeSurcharge,
			TotalCost:       raw.TotalCost,
			LedgerStatus:    raw.LedgerStatus,
			PaymentStatus:   raw.PaymentStatus,
		},
	}, nil
}

// TripQuery carries the history filters and page cursor.
type TripQuery struct {
	StartTime string
	EndTime   string
	BikeType  models.BikeType
	Search    string
	Page      int
	PageSize  int
}

func (q TripQuery) encode() string {
	params := url.Values{}
	if q.StartTime != "" {
		params.Set("startTime", q.StartTime)
	}
	if q.EndTime != "" {
		params.Set("endTime", q.EndTime)
	}
	if q.BikeType != "" {
		params.Set("bikeType", string(q.BikeType))
	}
	if q.Search != "" {
		params.Set("search", q.Search)
	}
	params.Set("page", strconv.Itoa(q.Page))
	if q.PageSize > 0 {
		params.Set("size", strconv.Itoa(q.PageSize))
	}
	return "?" + params.Encode()
}

func (g *Gateway) Trips(ctx context.Context, query TripQuery) (models.TripPage, error) {
	var out models.TripPage
	err := g.client.Request(ctx, http.MethodGet, "/trips"+query.encode(), nil, &out, nil)
	return out, err
}

func (g *Gateway) TripDetails(ctx context.Context, tripID string) (models.TripDetails, error) {
	var out models.TripDetails
	err := g.client.Request(ctx, http.MethodGet, "/trips/"+tripID, nil, &out, nil)
	return out, err
}

func (g *Gateway) LastCompletedTrip(ctx context.Context) (models.TripCompletion, error) {
	var out models.TripCompletion
	err := g.client.Request(ctx, http.MethodGet, "/trips/last-completed", nil, &out, nil)
	return out, err
}

func (g *Gateway) PayLedger(ctx context.Context, ledgerID string) (models.PaymentResult, error) {
	var out models.PaymentResult
	err := g.client.Request(ctx, http.MethodPost, "/trips/ledger/"+ledgerID+"/pay", nil, &out, nil)
	return out, err
}

// ---- loyalty / account / pricing ------------------------------------

func (g *Gateway) LoyaltyStatus(ctx context.Context, riderID string) (models.LoyaltyStatus, error) {
	var out models.LoyaltyStatus
	err := g.client.Request(ctx, http.MethodGet, "/loyalty/status?riderId="+url.QueryEscape(riderID), nil, &out, nil)
	return out, err
}

func (g *Gateway) Account(ctx context.Context) (models.Account, error) {
	var out models.Account
	err := g.client.Request(ctx, http.MethodGet, "/account", nil, &out, nil)
	return out, err
}

func (g *Gateway) PricingPlans(ctx context.Context) ([]models.PricingPlan, error) {
	var out []models.PricingPlan
	err := g.client.Request(ctx, http.MethodGet, "/pricing", nil, &out, nil)
	return out, err
}

func (g *Gateway) PublicPricingInfo(ctx context.Context) ([]models.PricingPlan, error) {
	var out []models.PricingPlan
	err := g.client.Request(ctx, http.MethodGet, "/public/pricing/info", nil, &out, &RequestOptions{SkipAuth: true})
	return out, err
}

// ---- events / system -------------------------------------------------

// Events returns the formatted event snapshot, newest first.
func (g *Gateway) Events(ctx context.Context) ([]string, error) {
	var out []string
	err := g.client.Request(ctx, http.MethodGet, "/events", nil, &out, nil)
	return out, err
}

func (g *Gateway) ResetSystem(ctx context.Context) (models.ResetSummary, error) {
	var out models.ResetSummary
	err := g.client.Request(ctx, http.MethodPost, "/system/reset", nil, &out, nil)
	return out, err
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
