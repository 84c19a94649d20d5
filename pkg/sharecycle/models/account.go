package models

import "time"

// Role is a platform role. Operators may additionally act as riders via
// CurrentMode on their session.
type Role string

const (
	RoleRider    Role = "RIDER"
	RoleOperator Role = "OPERATOR"
)

// LoginResult is the payload returned by the auth endpoints.
type LoginResult struct {
	Token       string `json:"token"`
	Role        Role   `json:"role"`
	UserID      string `json:"userId"`
	Username    string `json:"username"`
	CurrentMode Role   `json:"currentMode,omitempty"`
}

// ToggleRoleResult reports the operator's mode switch.
type ToggleRoleResult struct {
	UserID      string `json:"userId"`
	Username    string `json:"username"`
	BaseRole    Role   `json:"baseRole"`
	CurrentMode Role   `json:"currentMode"`
	Token       string `json:"token"`
}

// Account is the signed-in user's profile view.
type Account struct {
	UserID      string    `json:"userId"`
	Username    string    `json:"username"`
	Role        Role      `json:"role"`
	Email       string    `json:"email,omitempty"`
	MemberSince time.Time `json:"memberSince,omitempty"`
}

// ResetSummary reports what the operator-only demo reset rebuilt.
type ResetSummary struct {
	Bikes    int `json:"bikes"`
	Stations int `json:"stations"`
	Docks    int `json:"docks"`
}
