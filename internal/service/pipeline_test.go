package service

import (
	"log/slog"
	"testing"
	"time"

	"github.com/JonMunkholm/oeedash/internal/config"
	"github.com/JonMunkholm/oeedash/internal/core"
)

func TestNewPipeline(t *testing.T) {
	ic := config.ImportConfig{
		MinAcceptedRatio: 0.5,
		MinAcceptedRows:  4,
		AugmentBelow:     5,
		AugmentTarget:    8,
		DisableAugment:   true,
		Seed:             7,
		Timezone:         "Asia/Shanghai",
	}
	p, err := NewPipeline(ic, slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("NewPipeline failed: %v", err)
	}
	want := core.Policy{MinAcceptedRatio: 0.5, MinAcceptedRows: 4, AugmentBelow: 5, AugmentTarget: 8, DisableAugment: true}
	if p.Policy() != want {
		t.Errorf("Policy = %+v, want %+v", p.Policy(), want)
	}

	// Naive timestamps are read in the configured zone.
	res, err := p.Process(core.KindMaterial, []core.RawRow{
		{"日期": "2024-05-10 08:00:00", "物料编号": "CNC001", "产品数量": "10", "合格产品数量": "9"},
	})
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if got := res.Rows[0].Time("date").UTC(); !got.Equal(time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("date = %v, want 2024-05-10T00:00Z", got)
	}

	if _, err := NewPipeline(config.ImportConfig{Timezone: "Mars/Olympus"}, nil); err == nil {
		t.Error("expected error for unknown timezone")
	}
}

func TestConfigFrom(t *testing.T) {
	cfg := &config.Config{
		Upload: config.UploadConfig{MaxFileSize: 1024, MaxConcurrent: 2, MaxWaitTime: time.Second, Timeout: time.Minute},
		OEE:    config.OEEConfig{TheoreticalRate: 30, PlannedHoursPerDay: 16, WindowDays: 7},
	}
	got := ConfigFrom(cfg)
	if got.MaxFileSize != 1024 || got.MaxConcurrent != 2 || got.MaxWait != time.Second || got.Timeout != time.Minute {
		t.Errorf("upload settings = %+v", got)
	}
	if got.OEE.TheoreticalRate != 30 || got.OEE.PlannedHoursPerDay != 16 || got.OEEWindowDays != 7 {
		t.Errorf("oee settings = %+v", got)
	}
}
