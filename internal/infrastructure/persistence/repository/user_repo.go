package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/garyjia/mission-orders/internal/application/port"
	"github.com/garyjia/mission-orders/internal/domain/entity"
	"github.com/garyjia/mission-orders/internal/domain/workflow"
	"github.com/garyjia/mission-orders/internal/infrastructure/persistence/sqlite"
)

// UserRepository implements port.UserRepository and port.RoleRepository
type UserRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sql.DB, logger *zap.Logger) *UserRepository {
	return &UserRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a user profile
func (r *UserRepository) Create(ctx context.Context, u *entity.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))

	_, err := r.getExecutor(ctx).ExecContext(ctx, `
		INSERT INTO users (id, full_name, email, department, phone, lark_open_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, u.ID, u.FullName, u.Email, u.Department, u.Phone, u.LarkOpenID, u.CreatedAt.UTC())
	if err != nil {
		r.logger.Error("Failed to create user", zap.String("email", u.Email), zap.Error(err))
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by id
func (r *UserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	return r.getOne(ctx, "id", id)
}

// GetByEmail retrieves a user by email, case-insensitively
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.getOne(ctx, "email", strings.ToLower(strings.TrimSpace(email)))
}

// UpdateProfile rewrites the self-editable fields of a user
func (r *UserRepository) UpdateProfile(ctx context.Context, id string, p port.ProfileUpdate) error {
	result, err := r.getExecutor(ctx).ExecContext(ctx, `
		UPDATE users SET full_name = ?, phone = ?, department = ? WHERE id = ?
	`, p.FullName, p.Phone, p.Department, id)
	if err != nil {
		r.logger.Error("Failed to update user profile", zap.String("user_id", id), zap.Error(err))
		return fmt.Errorf("failed to update user profile: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if rows == 0 {
		return port.ErrNotFound
	}
	return nil
}

func (r *UserRepository) getOne(ctx context.Context, column, value string) (*entity.User, error) {
	var u entity.User
	err := r.getExecutor(ctx).QueryRowContext(ctx, `
		SELECT id, full_name, email, department, phone, lark_open_id, created_at
		FROM users WHERE `+column+` = ?
	`, value).Scan(&u.ID, &u.FullName, &u.Email, &u.Department, &u.Phone, &u.LarkOpenID, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, port.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

// RolesFor reads the roles of a user from the store on every call
func (r *UserRepository) RolesFor(ctx context.Context, userID string) (workflow.RoleSet, error) {
	rows, err := r.getExecutor(ctx).QueryContext(ctx, `SELECT role FROM user_roles WHERE user_id = ?`, userID)
	if err != nil {
		r.logger.Error("Failed to load roles", zap.String("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("failed to load roles: %w", err)
	}
	defer rows.Close()

	roles := workflow.NewRoleSet()
	for rows.Next() {
		var role string
		if err := rows.Scan(&role); err != nil {
			return nil, fmt.Errorf("failed to scan role: %w", err)
		}
		roles[workflow.Role(role)] = struct{}{}
	}
	return roles, rows.Err()
}

// Assign grants a role; granting an existing role is a no-op
func (r *UserRepository) Assign(ctx context.Context, userID string, role workflow.Role) error {
	if !role.IsValid() {
		return workflow.NewValidationError("role", "unknown role "+string(role))
	}
	_, err := r.getExecutor(ctx).ExecContext(ctx,
		`INSERT OR IGNORE INTO user_roles (user_id, role, created_at) VALUES (?, ?, ?)`,
		userID, string(role), time.Now().UTC())
	if err != nil {
		r.logger.Error("Failed to assign role",
			zap.String("user_id", userID),
			zap.String("role", role.String()),
			zap.Error(err))
		return fmt.Errorf("failed to assign role: %w", err)
	}
	return nil
}

// Revoke removes a role
func (r *UserRepository) Revoke(ctx context.Context, userID string, role workflow.Role) error {
	_, err := r.getExecutor(ctx).ExecContext(ctx,
		`DELETE FROM user_roles WHERE user_id = ? AND role = ?`, userID, string(role))
	if err != nil {
		return fmt.Errorf("failed to revoke role: %w", err)
	}
	return nil
}

// UsersWithRole returns the ids of every holder of role
func (r *UserRepository) UsersWithRole(ctx context.Context, role workflow.Role) ([]string, error) {
	rows, err := r.getExecutor(ctx).QueryContext(ctx,
		`SELECT user_id FROM user_roles WHERE role = ? ORDER BY user_id`, string(role))
	if err != nil {
		return nil, fmt.Errorf("failed to list role holders: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan role holder: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// getExecutor returns appropriate executor based on context
func (r *UserRepository) getExecutor(ctx context.Context) sqlite.Executor {
	return sqlite.ExecutorFor(ctx, r.db)
}

// Verify interface compliance
var (
	_ port.UserRepository = (*UserRepository)(nil)
	_ port.RoleRepository = (*UserRepository)(nil)
)
