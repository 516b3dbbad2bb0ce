// Package expense computes the estimated cost of a mission order from its itemized categories.
package expense

import (
	"math"

	"github.com/garyjia/mission-orders/internal/domain/entity"
	"github.com/garyjia/mission-orders/internal/domain/workflow"
)

// Input holds the itemized expense categories of one mission.
// Zero values mean the category does not apply.
type Input struct {
	AccommodationDays      float64 `json:"accommodation_days"`
	AccommodationUnitPrice float64 `json:"accommodation_unit_price"`

	PerDiemDays float64 `json:"per_diem_days"`
	PerDiemRate float64 `json:"per_diem_rate"`

	TransportType      string  `json:"transport_type"`
	TransportDistance  float64 `json:"transport_distance"`
	TransportUnitPrice float64 `json:"transport_unit_price"`

	FuelQuantity  float64 `json:"fuel_quantity"`
	FuelUnitPrice float64 `json:"fuel_unit_price"`

	OtherExpenses            float64 `json:"other_expenses"`
	OtherExpensesDescription string  `json:"other_expenses_description"`
}

// Breakdown is the normalized input together with the computed subtotals
type Breakdown struct {
	Input

	AccommodationTotal float64 `json:"accommodation_total"`
	PerDiemTotal       float64 `json:"per_diem_total"`
	TransportTotal     float64 `json:"transport_total"`
	FuelTotal          float64 `json:"fuel_total"`
	OtherTotal         float64 `json:"other_total"`
	Total              float64 `json:"total"`
}

// Compute clamps every quantity and rate to a non-negative finite value and
// sums the five category subtotals. It is deterministic for identical input.
// Subtotals that overflow stay infinite; Validate reports them.
func Compute(in Input) Breakdown {
	n := Input{
		AccommodationDays:        clamp(in.AccommodationDays),
		AccommodationUnitPrice:   clamp(in.AccommodationUnitPrice),
		PerDiemDays:              clamp(in.PerDiemDays),
		PerDiemRate:              clamp(in.PerDiemRate),
		TransportType:            in.TransportType,
		TransportDistance:        clamp(in.TransportDistance),
		TransportUnitPrice:       clamp(in.TransportUnitPrice),
		FuelQuantity:             clamp(in.FuelQuantity),
		FuelUnitPrice:            clamp(in.FuelUnitPrice),
		OtherExpenses:            clamp(in.OtherExpenses),
		OtherExpensesDescription: in.OtherExpensesDescription,
	}

	b := Breakdown{
		Input:              n,
		AccommodationTotal: n.AccommodationDays * n.AccommodationUnitPrice,
		PerDiemTotal:       n.PerDiemDays * n.PerDiemRate,
		TransportTotal:     n.TransportDistance * n.TransportUnitPrice,
		FuelTotal:          n.FuelQuantity * n.FuelUnitPrice,
		OtherTotal:         n.OtherExpenses,
	}
	b.Total = b.AccommodationTotal + b.PerDiemTotal + b.TransportTotal + b.FuelTotal + b.OtherTotal
	return b
}

// Validate rejects a breakdown whose subtotals or total are not finite
func (b Breakdown) Validate() error {
	subtotals := []struct {
		field string
		value float64
	}{
		{"expenses.accommodation_total", b.AccommodationTotal},
		{"expenses.per_diem_total", b.PerDiemTotal},
		{"expenses.transport_total", b.TransportTotal},
		{"expenses.fuel_total", b.FuelTotal},
		{"expenses.other_total", b.OtherTotal},
		{"expenses.total", b.Total},
	}
	for _, st := range subtotals {
		if !finite(st.value) {
			return workflow.NewValidationError(st.field, "amount is too large")
		}
	}
	return nil
}

// Expense converts the breakdown into the persisted row for missionID
func (b Breakdown) Expense(missionID string) *entity.MissionExpense {
	return &entity.MissionExpense{
		MissionID:                missionID,
		AccommodationDays:        b.AccommodationDays,
		AccommodationUnitPrice:   b.AccommodationUnitPrice,
		AccommodationTotal:       b.AccommodationTotal,
		PerDiemDays:              b.PerDiemDays,
		PerDiemRate:              b.PerDiemRate,
		PerDiemTotal:             b.PerDiemTotal,
		TransportType:            b.TransportType,
		TransportDistance:        b.TransportDistance,
		TransportUnitPrice:       b.TransportUnitPrice,
		TransportTotal:           b.TransportTotal,
		FuelQuantity:             b.FuelQuantity,
		FuelUnitPrice:            b.FuelUnitPrice,
		FuelTotal:                b.FuelTotal,
		OtherExpenses:            b.OtherTotal,
		OtherExpensesDescription: b.OtherExpensesDescription,
	}
}

// FromExpense rebuilds the input of a stored expense row
func FromExpense(e *entity.MissionExpense) Input {
	if e == nil {
		return Input{}
	}
	return Input{
		AccommodationDays:        e.AccommodationDays,
		AccommodationUnitPrice:   e.AccommodationUnitPrice,
		PerDiemDays:              e.PerDiemDays,
		PerDiemRate:              e.PerDiemRate,
		TransportType:            e.TransportType,
		TransportDistance:        e.TransportDistance,
		TransportUnitPrice:       e.TransportUnitPrice,
		FuelQuantity:             e.FuelQuantity,
		FuelUnitPrice:            e.FuelUnitPrice,
		OtherExpenses:            e.OtherExpenses,
		OtherExpensesDescription: e.OtherExpensesDescription,
	}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func clamp(v float64) float64 {
	if !finite(v) || v < 0 {
		return 0
	}
	return v
}
