package models

// StationStatus is the server-reported lifecycle state of a station.
type StationStatus string

const (
	StationEmpty        StationStatus = "EMPTY"
	StationOccupied     StationStatus = "OCCUPIED"
	StationFull         StationStatus = "FULL"
	StationOutOfService StationStatus = "OUT_OF_SERVICE"
)

// DockStatus is the state of a single dock slot.
type DockStatus string

const (
	DockEmpty        DockStatus = "EMPTY"
	DockOccupied     DockStatus = "OCCUPIED"
	DockReserved     DockStatus = "RESERVED"
	DockOutOfService DockStatus = "OUT_OF_SERVICE"
)

// FullnessCategory is a coarse display bucket derived server-side.
type FullnessCategory string

const (
	FullnessEmpty   FullnessCategory = "EMPTY"
	FullnessLow     FullnessCategory = "LOW"
	FullnessHealthy FullnessCategory = "HEALTHY"
	FullnessFull    FullnessCategory = "FULL"
	FullnessUnknown FullnessCategory = "UNKNOWN"
)

// StationSummary is the list-view projection of a station. It is never
// locally authoritative; any local mutation is optimistic and overwritten
// by the next successful fetch.
type StationSummary struct {
	StationID        string           `json:"stationId"`
	Name             string           `json:"name"`
	Status           StationStatus    `json:"status"`
	BikesAvailable   int              `json:"bikesAvailable"`
	BikesDocked      int              `json:"bikesDocked"`
	Capacity         int              `json:"capacity"`
	FreeDocks        int              `json:"freeDocks"`
	Latitude         float64          `json:"latitude"`
	Longitude        float64          `json:"longitude"`
	FullnessCategory FullnessCategory `json:"fullnessCategory"`
}

// Dock is a single slot within a station's detail view.
type Dock struct {
	DockID   string     `json:"dockId"`
	Status   DockStatus `json:"status"`
	BikeID   string     `json:"bikeId,omitempty"`
	BikeType BikeType   `json:"bikeType,omitempty"`
}

// StationDetails extends a summary with its ordered dock list. Dock
// statuses are expected to sum consistently with the summary counts, but
// that is a server concern and not enforced here.
type StationDetails struct {
	StationSummary
	Docks []Dock `json:"docks"`
}
