package reference

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/garyjia/mission-orders/internal/application/port"
)

// DefaultPrefix is used when no prefix is configured
const DefaultPrefix = "OM"

// Generator issues human-readable mission references such as OM-2025-3F9A1C07.
// Uniqueness is finally enforced by the unique index on mission_orders.reference.
type Generator struct {
	prefix string
	newID  func() (uuid.UUID, error)
}

// NewGenerator creates a reference generator
func NewGenerator(prefix string) *Generator {
	prefix = strings.ToUpper(strings.TrimSpace(prefix))
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Generator{prefix: prefix, newID: uuid.NewRandom}
}

// Generate returns a new reference for a mission created at createdAt
func (g *Generator) Generate(ctx context.Context, createdAt time.Time) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	id, err := g.newID()
	if err != nil {
		return "", fmt.Errorf("generate reference id: %w", err)
	}
	suffix := strings.ToUpper(strings.ReplaceAll(id.String(), "-", "")[:8])
	return fmt.Sprintf("%s-%d-%s", g.prefix, createdAt.Year(), suffix), nil
}

var _ port.ReferenceGenerator = (*Generator)(nil)
