package domain

import (
	"strings"
	"time"
)

type Vehicle struct {
	ID            int64     `json:"id"`
	CompanyID     int64     `json:"company_id"`
	VehicleNumber string    `json:"vehicle_number"`
	VehicleType   string    `json:"vehicle_type"`
	Tonnage       *string   `json:"tonnage,omitempty"`
	YearModel     *int      `json:"year_model,omitempty"`
	Region        string    `json:"region"`
	InsuranceRate float64   `json:"insurance_rate"`
	MonthlyFee    int64     `json:"monthly_fee"`
	Description   *string   `json:"description,omitempty"`
	IsAvailable   bool      `json:"is_available"`
	ViewCount     int64     `json:"view_count"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// VehicleSummary is the listing/detail projection. It deliberately has no
// company contact fields; contact is only reachable through the paid
// disclosure lookup. Company display name is not sensitive.
type VehicleSummary struct {
	ID            int64     `json:"id"`
	CompanyName   string    `json:"company_name"`
	VehicleNumber string    `json:"vehicle_number"`
	VehicleType   string    `json:"vehicle_type"`
	Tonnage       *string   `json:"tonnage,omitempty"`
	YearModel     *int      `json:"year_model,omitempty"`
	Region        string    `json:"region"`
	InsuranceRate float64   `json:"insurance_rate"`
	MonthlyFee    int64     `json:"monthly_fee"`
	Description   *string   `json:"description,omitempty"`
	IsAvailable   bool      `json:"is_available"`
	ViewCount     int64     `json:"view_count"`
	CreatedAt     time.Time `json:"created_at"`
}

type CreateVehicleRequest struct {
	VehicleNumber string  `json:"vehicle_number"`
	VehicleType   string  `json:"vehicle_type"`
	Tonnage       *string `json:"tonnage,omitempty"`
	YearModel     *int    `json:"year_model,omitempty"`
	Region        string  `json:"region"`
	InsuranceRate float64 `json:"insurance_rate"`
	MonthlyFee    int64   `json:"monthly_fee"`
	Description   *string `json:"description,omitempty"`
}

type UpdateVehicleRequest struct {
	VehicleType   *string  `json:"vehicle_type,omitempty"`
	Tonnage       *string  `json:"tonnage,omitempty"`
	YearModel     *int     `json:"year_model,omitempty"`
	Region        *string  `json:"region,omitempty"`
	InsuranceRate *float64 `json:"insurance_rate,omitempty"`
	MonthlyFee    *int64   `json:"monthly_fee,omitempty"`
	Description   *string  `json:"description,omitempty"`
	IsAvailable   *bool    `json:"is_available,omitempty"`
}

// VehicleFilter narrows the public listing. Search matches vehicle number
// and description, case-insensitive contains.
type VehicleFilter struct {
	Region      string
	VehicleType string
	Search      string
	MaxFee      *int64
}

func (r *CreateVehicleRequest) Normalize() {
	r.VehicleNumber = strings.TrimSpace(r.VehicleNumber)
	r.VehicleType = strings.TrimSpace(r.VehicleType)
	r.Region = strings.TrimSpace(r.Region)
}

func (r *CreateVehicleRequest) Validate() error {
	if r.VehicleNumber == "" {
		return ValidationError("vehicle number is required")
	}
	if r.VehicleType == "" {
		return ValidationError("vehicle type is required")
	}
	if r.Region == "" {
		return ValidationError("region is required")
	}
	if r.InsuranceRate < 0 || r.InsuranceRate > 100 {
		return ValidationError("insurance rate must be between 0 and 100")
	}
	if r.MonthlyFee <= 0 {
		return ValidationError("monthly fee must be positive")
	}
	return nil
}

func (r *UpdateVehicleRequest) Validate() error {
	if r.InsuranceRate != nil && (*r.InsuranceRate < 0 || *r.InsuranceRate > 100) {
		return ValidationError("insurance rate must be between 0 and 100")
	}
	if r.MonthlyFee != nil && *r.MonthlyFee <= 0 {
		return ValidationError("monthly fee must be positive")
	}
	return nil
}
