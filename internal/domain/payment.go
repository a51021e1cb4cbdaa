package domain

import "time"

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

// Payment is one contact-disclosure purchase attempt by an individual for a
// vehicle. A user may accumulate several rows per vehicle (failed attempts
// followed by a completed one); access is gated purely on the existence of
// at least one completed row, and a completed row is never revoked.
type Payment struct {
	ID            int64         `json:"id"`
	UserID        int64         `json:"user_id"`
	VehicleID     int64         `json:"vehicle_id"`
	Amount        int64         `json:"amount"`
	Status        PaymentStatus `json:"status"`
	PaymentMethod *string       `json:"payment_method,omitempty"`
	GatewayRef    *string       `json:"-"`
	PaidAt        *time.Time    `json:"paid_at,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
}

// PaymentWithVehicle joins display fields for the purchase history list.
type PaymentWithVehicle struct {
	Payment
	VehicleNumber string `json:"vehicle_number"`
	VehicleType   string `json:"vehicle_type"`
	Region        string `json:"region"`
	MonthlyFee    int64  `json:"monthly_fee"`
	CompanyName   string `json:"company_name"`
}

type PaymentStatusResponse struct {
	HasPaid bool     `json:"has_paid"`
	Latest  *Payment `json:"latest,omitempty"`
}

// ContactInfo is the one payload that carries a company's contact channel.
type ContactInfo struct {
	CompanyName  string `json:"company_name"`
	ContactPhone string `json:"contact_phone"`
}
