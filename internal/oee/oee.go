// Package oee computes overall equipment effectiveness from canonical equipment and
// material datasets.
//
// For each device with equipment records inside the window:
//
//	availability = running hours / window hours
//	performance  = produced / (running hours x theoretical rate)
//	quality      = qualified / produced
//	OEE          = availability x performance x quality
//	TEEP         = OEE x planned utilisation
//
// Running hours are the runtime_hours of records whose status is running. Material
// rows are attributed to the device whose ID equals their material_id. Every ratio is
// clamped to [0, 1].
package oee

import (
	"math"
	"sort"
	"time"

	"github.com/JonMunkholm/oeedash/internal/core"
	"github.com/JonMunkholm/oeedash/internal/core/kinds"
)

// Defaults used when a Config field is zero.
const (
	DefaultTheoreticalRate    = 20.0 // units per running hour
	DefaultPlannedHoursPerDay = 24.0
)

// Config holds the plant constants used by Calculate.
type Config struct {
	TheoreticalRate    float64
	PlannedHoursPerDay float64
}

func (c Config) withDefaults() Config {
	if c.TheoreticalRate <= 0 {
		c.TheoreticalRate = DefaultTheoreticalRate
	}
	if c.PlannedHoursPerDay <= 0 || c.PlannedHoursPerDay > 24 {
		c.PlannedHoursPerDay = DefaultPlannedHoursPerDay
	}
	return c
}

// Window is an inclusive time range.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// LastDays returns the window of the given number of days ending at now.
func LastDays(now time.Time, days int) Window {
	if days <= 0 {
		days = 1
	}
	return Window{Start: now.AddDate(0, 0, -days), End: now}
}

// Hours returns the window length in hours.
func (w Window) Hours() float64 {
	return w.End.Sub(w.Start).Hours()
}

// Contains reports whether t lies inside the window, bounds included.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// DeviceMetrics holds the effectiveness figures of one device. Ratios are percentages
// rounded to two decimals.
type DeviceMetrics struct {
	DeviceID           string  `json:"deviceId"`
	Records            int     `json:"records"`
	RunningHours       float64 `json:"runningHours"`
	MaintenanceHours   float64 `json:"maintenanceHours"`
	Failures           float64 `json:"failures"`
	Produced           float64 `json:"produced"`
	Qualified          float64 `json:"qualified"`
	Availability       float64 `json:"availability"`
	Performance        float64 `json:"performance"`
	Quality            float64 `json:"quality"`
	OEE                float64 `json:"oee"`
	PlannedUtilization float64 `json:"plannedUtilization"`
	TEEP               float64 `json:"teep"`
}

// Summary is the result of Calculate.
type Summary struct {
	Window  Window          `json:"window"`
	Devices []DeviceMetrics `json:"devices"`
	// Fleet averages over Devices, in percent.
	AverageOEE  float64 `json:"averageOee"`
	AverageTEEP float64 `json:"averageTeep"`
}

type accumulator struct {
	records     int
	running     float64
	maintenance float64
	failures    float64
	produced    float64
	qualified   float64
}

// Calculate computes per-device metrics over w. Devices are sorted by ID; a device
// with no equipment records in the window is omitted.
func Calculate(equipment []core.EquipmentRecord, material []core.MaterialRecord, w Window, cfg Config) Summary {
	cfg = cfg.withDefaults()
	summary := Summary{Window: w, Devices: []DeviceMetrics{}}

	windowHours := w.Hours()
	if windowHours <= 0 {
		return summary
	}

	devices := make(map[string]*accumulator)
	for _, rec := range equipment {
		if rec.DeviceID == "" || !w.Contains(rec.Timestamp) {
			continue
		}
		acc := devices[rec.DeviceID]
		if acc == nil {
			acc = &accumulator{}
			devices[rec.DeviceID] = acc
		}
		acc.records++
		acc.failures += rec.FailureCount
		switch rec.Status {
		case kinds.StatusRunning:
			acc.running += rec.RuntimeHours
		case kinds.StatusMaintenance:
			acc.maintenance += rec.RuntimeHours
		}
	}

	for _, rec := range material {
		acc := devices[rec.MaterialID]
		if acc == nil || !w.Contains(rec.Date) {
			continue
		}
		acc.produced += rec.Quantity
		acc.qualified += rec.QualifiedQuantity
	}

	ids := make([]string, 0, len(devices))
	for id := range devices {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	plannedHours := windowHours * cfg.PlannedHoursPerDay / 24
	var oeeSum, teepSum float64
	for _, id := range ids {
		acc := devices[id]

		availability := ratio(acc.running, windowHours)
		performance := ratio(acc.produced, acc.running*cfg.TheoreticalRate)
		quality := ratio(acc.qualified, acc.produced)
		oee := availability * performance * quality
		utilization := ratio(plannedHours-acc.maintenance, windowHours)
		teep := oee * utilization

		summary.Devices = append(summary.Devices, DeviceMetrics{
			DeviceID:           id,
			Records:            acc.records,
			RunningHours:       round2(acc.running),
			MaintenanceHours:   round2(acc.maintenance),
			Failures:           acc.failures,
			Produced:           acc.produced,
			Qualified:          acc.qualified,
			Availability:       percent(availability),
			Performance:        percent(performance),
			Quality:            percent(quality),
			OEE:                percent(oee),
			PlannedUtilization: percent(utilization),
			TEEP:               percent(teep),
		})
		oeeSum += oee
		teepSum += teep
	}

	if n := float64(len(summary.Devices)); n > 0 {
		summary.AverageOEE = percent(oeeSum / n)
		summary.AverageTEEP = percent(teepSum / n)
	}
	return summary
}

// ratio returns num/den clamped to [0, 1], or 0 when den is not positive.
func ratio(num, den float64) float64 {
	if den <= 0 || num <= 0 {
		return 0
	}
	return math.Min(num/den, 1)
}

func percent(f float64) float64 {
	return round2(f * 100)
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
