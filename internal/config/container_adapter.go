package config

import (
	"github.com/garyjia/mission-orders/internal/container"
)

// ToContainerConfig converts the application Config to a container.Config.
// This bridges the file-based config loaded by viper and the container's
// configuration structure.
func (c *Config) ToContainerConfig() *container.Config {
	return &container.Config{
		Database: container.DatabaseConfig{
			Path:            c.Database.Path,
			MaxOpenConns:    c.Database.MaxOpenConns,
			MaxIdleConns:    c.Database.MaxIdleConns,
			ConnMaxLifetime: c.Database.ConnMaxLifetime,
		},
		Workflow: container.WorkflowConfig{
			InProcessLocks:  c.Workflow.InProcessLocks,
			ReferencePrefix: c.Workflow.ReferencePrefix,
		},
		Document: container.DocumentConfig{
			Organization: c.Document.Organization,
			Currency:     c.Document.Currency,
		},
		Lark: container.LarkConfig{
			Enabled:   c.Lark.Enabled,
			AppID:     c.Lark.AppID,
			AppSecret: c.Lark.AppSecret,
		},
	}
}
