package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"library-backend/pkg/container"
)

// startServices chạy health checks rồi bật pool monitor
func startServices(ctx context.Context, c *container.Container) error {
	log.Info().
		Str("app", c.Config.App.Name).
		Str("env", c.Config.App.Environment).
		Str("version", c.Config.App.Version).
		Msg("🚀 Library Worker Starting...")

	checks := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"PostgreSQL", c.DB.HealthCheck},
		{"Redis", func(ctx context.Context) error {
			if c.Redis == nil {
				return fmt.Errorf("redis is not connected")
			}
			return c.Redis.Ping(ctx)
		}},
	}

	for _, check := range checks {
		checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := check.fn(checkCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("%s failed: %w", check.name, err)
		}
		log.Info().Str("check", check.name).Msg("✓ OK")
	}

	go c.DB.MonitorPoolHealth(ctx, time.Minute)

	return nil
}
