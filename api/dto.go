/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  JSON structures for the workflow layer. These decouple the internal
  domain model from the external API contract.

NAMING CONVENTION:
  - *Request: Request body types from clients
  - *Response / *DTO: Types returned to clients

VALIDATION:
  Handlers validate; DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

// =============================================================================
// REQUEST TYPES
// =============================================================================

// VisitRequest records one workflow interaction.
type VisitRequest struct {
	Kind        string `json:"kind"` // sale | loss | reservation | inquiry | exam
	Store       string `json:"store"`
	Salesperson string `json:"salesperson"`
	Customer    string `json:"customer"`
}

// EyeRequest is one eye's worth of a lens request.
type EyeRequest struct {
	Sphere   string `json:"sphere"`
	Cylinder string `json:"cylinder"`
	Qty      int    `json:"qty"`
}

// AvailabilityRequest asks for current stock on a two-eye prescription.
type AvailabilityRequest struct {
	OD EyeRequest `json:"od"`
	OE EyeRequest `json:"oe"`
}

// ReserveRequest commits a two-eye lens reservation.
type ReserveRequest struct {
	Store       string     `json:"store"`
	Customer    string     `json:"customer"`
	Salesperson string     `json:"salesperson"`
	OD          EyeRequest `json:"od"`
	OE          EyeRequest `json:"oe"`
}

// SettleRequest converts or abandons an open reservation.
type SettleRequest struct {
	Store       string `json:"store"`
	Customer    string `json:"customer"`
	Salesperson string `json:"salesperson"`
}

// SweepRequest optionally overrides the expiry age.
type SweepRequest struct {
	MaxAgeMinutes int `json:"max_age_minutes,omitempty"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// VisitResponse echoes what landed on the ledger.
type VisitResponse struct {
	Store       string `json:"store"`
	Salesperson string `json:"salesperson,omitempty"`
	Customer    string `json:"customer"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	Kind        string `json:"kind"`
}

// AvailabilityResponse reports the just-read units per eye.
type AvailabilityResponse struct {
	ODAvailable int `json:"od_available"`
	OEAvailable int `json:"oe_available"`
}

// ReserveResponse carries the reservation reference.
type ReserveResponse struct {
	Reference string `json:"reference"`
}

// BalanceResponse is a customer's derived reserve balance.
type BalanceResponse struct {
	Customer string `json:"customer"`
	Store    string `json:"store"`
	Balance  int    `json:"balance"`
}

// SweepResponse reports a sweep outcome.
type SweepResponse struct {
	Expired   int  `json:"expired"`
	Throttled bool `json:"throttled"`
}

// InsufficientStockDTO carries per-eye figures for display.
type InsufficientStockDTO struct {
	ODRequested int `json:"od_requested"`
	ODAvailable int `json:"od_available"`
	OERequested int `json:"oe_requested"`
	OEAvailable int `json:"oe_available"`
}

// ErrorResponse is the uniform error envelope.
type ErrorResponse struct {
	Error   string                `json:"error"`
	Details string                `json:"details,omitempty"`
	Stock   *InsufficientStockDTO `json:"stock,omitempty"`
}
