package service

import (
	"fmt"
	"log/slog"

	"github.com/JonMunkholm/oeedash/internal/config"
	"github.com/JonMunkholm/oeedash/internal/core"
	"github.com/JonMunkholm/oeedash/internal/oee"
)

// NewPipeline builds the import pipeline from the import settings. A zero seed keeps
// corrections and synthetic rows random per invocation.
func NewPipeline(ic config.ImportConfig, logger *slog.Logger) (*core.Pipeline, error) {
	loc, err := ic.Location()
	if err != nil {
		return nil, fmt.Errorf("import timezone: %w", err)
	}

	opts := core.Options{
		Policy: core.Policy{
			MinAcceptedRatio: ic.MinAcceptedRatio,
			MinAcceptedRows:  ic.MinAcceptedRows,
			AugmentBelow:     ic.AugmentBelow,
			AugmentTarget:    ic.AugmentTarget,
			DisableAugment:   ic.DisableAugment,
		},
		Location: loc,
		Logger:   logger,
	}
	if ic.Seed != 0 {
		opts.NewSource = core.SeededSource(ic.Seed)
	}
	return core.NewPipeline(opts), nil
}

// ConfigFrom derives the service settings from the application config.
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		MaxFileSize:   cfg.Upload.MaxFileSize,
		MaxConcurrent: cfg.Upload.MaxConcurrent,
		MaxWait:       cfg.Upload.MaxWaitTime,
		Timeout:       cfg.Upload.Timeout,
		OEE: oee.Config{
			TheoreticalRate:    cfg.OEE.TheoreticalRate,
			PlannedHoursPerDay: cfg.OEE.PlannedHoursPerDay,
		},
		OEEWindowDays: cfg.OEE.WindowDays,
	}
}
