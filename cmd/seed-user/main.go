package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/garyjia/mission-orders/internal/application/port"
	"github.com/garyjia/mission-orders/internal/config"
	"github.com/garyjia/mission-orders/internal/container"
	"github.com/garyjia/mission-orders/internal/domain/entity"
	"github.com/garyjia/mission-orders/internal/domain/workflow"
	httpserver "github.com/garyjia/mission-orders/internal/interfaces/http"
	"github.com/garyjia/mission-orders/pkg/utils"
)

// Creates or updates a user, grants roles and prints a bearer token for them.
//
//	seed-user -email awa@example.org -name "Awa Kone" -roles agent,chef_service
func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the YAML config file")
	email := flag.String("email", "", "user email (required)")
	name := flag.String("name", "", "full name, required for new users")
	department := flag.String("department", "", "department")
	larkOpenID := flag.String("lark-open-id", "", "Lark open_id for external notifications")
	roles := flag.String("roles", "agent", "comma separated roles: agent, chef_service, directeur, finance, admin")
	ttl := flag.Duration("ttl", 0, "token lifetime; defaults to auth.token_ttl")
	flag.Parse()

	if err := config.LoadDotEnv(".env"); err != nil {
		fail("load environment", err)
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		fail("load configuration", err)
	}

	parsed, err := parseRoles(*roles)
	if err != nil {
		fail("parse roles", err)
	}

	logger := zap.NewNop()
	db, err := container.ProvideDatabase(&cfg.ToContainerConfig().Database, logger)
	if err != nil {
		fail("open database", err)
	}
	defer func() { _ = db.DB.Close() }()

	repos, err := container.ProvideRepositories(db.DB, logger)
	if err != nil {
		fail("create repositories", err)
	}

	ctx := context.Background()
	user, err := ensureUser(ctx, repos.Users, entity.User{
		FullName:   utils.SanitizeString(*name),
		Email:      strings.ToLower(strings.TrimSpace(*email)),
		Department: utils.SanitizeString(*department),
		LarkOpenID: strings.TrimSpace(*larkOpenID),
	})
	if err != nil {
		fail("create user", err)
	}

	for _, role := range parsed {
		if err := repos.Roles.Assign(ctx, user.ID, role); err != nil {
			fail("assign role "+role.String(), err)
		}
	}

	lifetime := *ttl
	if lifetime == 0 {
		lifetime = cfg.Auth.TokenTTL
	}
	token, err := httpserver.IssueToken(httpserver.AuthConfig{
		JWTSecret: cfg.Auth.JWTSecret,
		Issuer:    cfg.Auth.Issuer,
	}, user.ID, lifetime, time.Now())
	if err != nil {
		fail("issue token", err)
	}

	current, err := repos.Roles.RolesFor(ctx, user.ID)
	if err != nil {
		fail("read roles", err)
	}

	fmt.Printf("user:  %s <%s>\n", user.FullName, user.Email)
	fmt.Printf("id:    %s\n", user.ID)
	fmt.Printf("roles: %s\n", joinRoles(current.Slice()))
	fmt.Printf("token: %s\n", token)
}

func ensureUser(ctx context.Context, users port.UserRepository, u entity.User) (*entity.User, error) {
	if err := utils.ValidateEmail(u.Email); err != nil {
		return nil, err
	}

	existing, err := users.GetByEmail(ctx, u.Email)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, port.ErrNotFound) {
		return nil, err
	}

	if u.FullName == "" {
		return nil, fmt.Errorf("-name is required for a new user")
	}
	u.ID = uuid.NewString()
	u.CreatedAt = time.Now().UTC()
	if err := users.Create(ctx, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func parseRoles(raw string) ([]workflow.Role, error) {
	var roles []workflow.Role
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		role, err := workflow.ParseRole(part)
		if err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	if len(roles) == 0 {
		return nil, fmt.Errorf("at least one role is required")
	}
	return roles, nil
}

func joinRoles(roles []workflow.Role) string {
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = r.String()
	}
	return strings.Join(names, ",")
}

func fail(step string, err error) {
	fmt.Fprintf(os.Stderr, "Failed to %s: %v\n", step, err)
	os.Exit(1)
}
