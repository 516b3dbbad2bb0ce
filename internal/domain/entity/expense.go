package entity

import "time"

// MissionExpense is the itemized cost breakdown of a mission, one row per mission
type MissionExpense struct {
	ID                       string    `json:"id"`
	MissionID                string    `json:"mission_id"`
	AccommodationDays        float64   `json:"accommodation_days"`
	AccommodationUnitPrice   float64   `json:"accommodation_unit_price"`
	AccommodationTotal       float64   `json:"accommodation_total"`
	PerDiemDays              float64   `json:"per_diem_days"`
	PerDiemRate              float64   `json:"per_diem_rate"`
	PerDiemTotal             float64   `json:"per_diem_total"`
	TransportType            string    `json:"transport_type,omitempty"`
	TransportDistance        float64   `json:"transport_distance"`
	TransportUnitPrice       float64   `json:"transport_unit_price"`
	TransportTotal           float64   `json:"transport_total"`
	FuelQuantity             float64   `json:"fuel_quantity"`
	FuelUnitPrice            float64   `json:"fuel_unit_price"`
	FuelTotal                float64   `json:"fuel_total"`
	OtherExpenses            float64   `json:"other_expenses"`
	OtherExpensesDescription string    `json:"other_expenses_description,omitempty"`
	CreatedAt                time.Time `json:"created_at"`
	UpdatedAt                time.Time `json:"updated_at"`
}

// Total sums the five category subtotals
func (e *MissionExpense) Total() float64 {
	return e.AccommodationTotal + e.PerDiemTotal + e.TransportTotal + e.FuelTotal + e.OtherExpenses
}

// ExpenseTotals aggregates category subtotals across many missions
type ExpenseTotals struct {
	Accommodation float64 `json:"accommodation"`
	PerDiem       float64 `json:"per_diem"`
	Transport     float64 `json:"transport"`
	Fuel          float64 `json:"fuel"`
	Other         float64 `json:"other"`
}
