package masterdata

import "time"

// SalesPerson is a commissioned staff member referenced by execution entries.
type SalesPerson struct {
	ID             int64     `json:"id" db:"id"`
	Code           string    `json:"code" db:"code"`
	Name           string    `json:"name" db:"name"`
	CommissionRate *float64  `json:"commission_rate,omitempty" db:"commission_rate"`
	IsActive       bool      `json:"is_active" db:"is_active"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// Shareholder participates in the commission breakdown of a report.
type Shareholder struct {
	ID                   int64     `json:"id" db:"id"`
	Code                 string    `json:"code" db:"code"`
	Name                 string    `json:"name" db:"name"`
	CommissionPercentage *float64  `json:"commission_percentage,omitempty" db:"commission_percentage"`
	CreatedAt            time.Time `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time `json:"updated_at" db:"updated_at"`
}

type CreateSalesPersonRequest struct {
	Code           string   `json:"code" validate:"required,max=50"`
	Name           string   `json:"name" validate:"required,max=200"`
	CommissionRate *float64 `json:"commission_rate,omitempty" validate:"omitempty,gte=0,lte=100"`
}

type UpdateSalesPersonRequest struct {
	Name           *string  `json:"name,omitempty" validate:"omitempty,max=200"`
	CommissionRate *float64 `json:"commission_rate,omitempty" validate:"omitempty,gte=0,lte=100"`
	IsActive       *bool    `json:"is_active,omitempty"`
}

type CreateShareholderRequest struct {
	Code                 string   `json:"code" validate:"required,max=50"`
	Name                 string   `json:"name" validate:"required,max=200"`
	CommissionPercentage *float64 `json:"commission_percentage,omitempty" validate:"omitempty,gte=0,lte=100"`
}

type UpdateShareholderRequest struct {
	Name                 *string  `json:"name,omitempty" validate:"omitempty,max=200"`
	CommissionPercentage *float64 `json:"commission_percentage,omitempty" validate:"omitempty,gte=0,lte=100"`
}
