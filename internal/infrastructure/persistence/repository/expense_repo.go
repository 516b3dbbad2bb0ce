package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/garyjia/mission-orders/internal/application/port"
	"github.com/garyjia/mission-orders/internal/domain/entity"
	"github.com/garyjia/mission-orders/internal/infrastructure/persistence/sqlite"
)

// ExpenseRepository implements port.ExpenseRepository
type ExpenseRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewExpenseRepository creates a new expense repository
func NewExpenseRepository(db *sql.DB, logger *zap.Logger) port.ExpenseRepository {
	return &ExpenseRepository{
		db:     db,
		logger: logger,
	}
}

// Upsert writes the expense row of a mission, replacing any previous one
func (r *ExpenseRepository) Upsert(ctx context.Context, e *entity.MissionExpense) error {
	query := `
		INSERT INTO mission_expenses (
			id, mission_id,
			accommodation_days, accommodation_unit_price, accommodation_total,
			per_diem_days, per_diem_rate, per_diem_total,
			transport_type, transport_distance, transport_unit_price, transport_total,
			fuel_quantity, fuel_unit_price, fuel_total,
			other_expenses, other_expenses_description,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(mission_id) DO UPDATE SET
			accommodation_days = excluded.accommodation_days,
			accommodation_unit_price = excluded.accommodation_unit_price,
			accommodation_total = excluded.accommodation_total,
			per_diem_days = excluded.per_diem_days,
			per_diem_rate = excluded.per_diem_rate,
			per_diem_total = excluded.per_diem_total,
			transport_type = excluded.transport_type,
			transport_distance = excluded.transport_distance,
			transport_unit_price = excluded.transport_unit_price,
			transport_total = excluded.transport_total,
			fuel_quantity = excluded.fuel_quantity,
			fuel_unit_price = excluded.fuel_unit_price,
			fuel_total = excluded.fuel_total,
			other_expenses = excluded.other_expenses,
			other_expenses_description = excluded.other_expenses_description,
			updated_at = excluded.updated_at
	`

	now := time.Now().UTC()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	e.UpdatedAt = now

	_, err := r.getExecutor(ctx).ExecContext(ctx, query,
		e.ID, e.MissionID,
		e.AccommodationDays, e.AccommodationUnitPrice, e.AccommodationTotal,
		e.PerDiemDays, e.PerDiemRate, e.PerDiemTotal,
		e.TransportType, e.TransportDistance, e.TransportUnitPrice, e.TransportTotal,
		e.FuelQuantity, e.FuelUnitPrice, e.FuelTotal,
		e.OtherExpenses, e.OtherExpensesDescription,
		e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to save mission expenses",
			zap.String("mission_id", e.MissionID),
			zap.Error(err))
		return fmt.Errorf("failed to save expenses: %w", err)
	}
	return nil
}

// GetByMissionID retrieves the expense row of a mission
func (r *ExpenseRepository) GetByMissionID(ctx context.Context, missionID string) (*entity.MissionExpense, error) {
	query := `
		SELECT id, mission_id,
			accommodation_days, accommodation_unit_price, accommodation_total,
			per_diem_days, per_diem_rate, per_diem_total,
			transport_type, transport_distance, transport_unit_price, transport_total,
			fuel_quantity, fuel_unit_price, fuel_total,
			other_expenses, other_expenses_description,
			created_at, updated_at
		FROM mission_expenses
		WHERE mission_id = ?
	`

	var e entity.MissionExpense
	err := r.getExecutor(ctx).QueryRowContext(ctx, query, missionID).Scan(
		&e.ID, &e.MissionID,
		&e.AccommodationDays, &e.AccommodationUnitPrice, &e.AccommodationTotal,
		&e.PerDiemDays, &e.PerDiemRate, &e.PerDiemTotal,
		&e.TransportType, &e.TransportDistance, &e.TransportUnitPrice, &e.TransportTotal,
		&e.FuelQuantity, &e.FuelUnitPrice, &e.FuelTotal,
		&e.OtherExpenses, &e.OtherExpensesDescription,
		&e.CreatedAt, &e.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, port.ErrNotFound
	}
	if err != nil {
		r.logger.Error("Failed to get mission expenses",
			zap.String("mission_id", missionID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get expenses: %w", err)
	}
	return &e, nil
}

// getExecutor returns appropriate executor based on context
func (r *ExpenseRepository) getExecutor(ctx context.Context) sqlite.Executor {
	return sqlite.ExecutorFor(ctx, r.db)
}

// Verify interface compliance
var _ port.ExpenseRepository = (*ExpenseRepository)(nil)
