package kinds

import (
	"regexp"
	"time"

	"github.com/JonMunkholm/oeedash/internal/core"
)

// Equipment status values.
const (
	StatusRunning     = "运行中"
	StatusStopped     = "停机"
	StatusMaintenance = "维护"
	StatusFault       = "故障"
	StatusIdle        = "待机"
)

// Warning levels shared by equipment and environment.
const (
	WarningNormal = "正常"
	WarningMinor  = "轻微"
	WarningSevere = "严重"
)

var warningValues = []string{WarningNormal, WarningMinor, WarningSevere}

func init() {
	registerEquipment()
}

func registerEquipment() {
	core.Register(core.KindDefinition{
		Kind:  core.KindEquipment,
		Label: "设备数据",
		Fields: []core.FieldSpec{
			{
				Name:     "device_id",
				Aliases:  []string{"device_id", "设备ID", "设备编号", "DeviceID", "equipment_id", "机器ID"},
				Type:     core.FieldIdentifier,
				IDKind:   core.IDEquipment,
				Required: true,
			},
			{
				Name:     "timestamp",
				Aliases:  []string{"timestamp", "时间戳", "时间", "日期时间", "date_time", "time"},
				Type:     core.FieldTimestamp,
				Required: true,
			},
			{
				Name:       "status",
				Aliases:    []string{"status", "设备状态", "状态", "state", "device_status", "机器状态"},
				Type:       core.FieldCategorical,
				Required:   true,
				Default:    StatusRunning,
				EnumValues: []string{StatusRunning, StatusStopped, StatusMaintenance, StatusFault, StatusIdle},
				Normalizer: NormalizeEquipmentStatus,
			},
			{
				Name:    "runtime_hours",
				Aliases: []string{"runtime_hours", "总运行时间", "运行时间", "runtime", "run_time", "operation_time", "工作时间"},
				Type:    core.FieldDuration,
				Default: 100.0,
				Range:   &core.Range{Min: 0, Max: 1000},
			},
			{
				Name:    "failure_count",
				Aliases: []string{"failure_count", "故障次数", "故障", "failures", "fault_count", "失败次数"},
				Type:    core.FieldNumeric,
				Default: 0.0,
				Range:   &core.Range{Min: 0, Max: 100},
			},
			{
				Name:       "warning_status",
				Aliases:    []string{"warning_status", "预警状态", "预警", "warning", "alert_status", "警告状态"},
				Type:       core.FieldCategorical,
				Default:    WarningNormal,
				EnumValues: warningValues,
				Normalizer: NormalizeWarningLevel,
			},
		},
		IDField:   "device_id",
		IDPattern: regexp.MustCompile(`^CNC\d{3}$`),
		IDExample: "CNC001",
		TimeField: "timestamp",
		Mock:      mockEquipment,
	})
}

var mockDevices = numberedIDs("CNC", 5)

// mockEquipment produces a mostly-running device whose runtime grows with its number.
func mockEquipment(src core.Source, now time.Time) core.Row {
	idx := src.IntN(len(mockDevices))
	device := mockDevices[idx]
	status := StatusRunning
	if chance(src, 0.3) {
		status = pick(src, []string{StatusRunning, StatusStopped, StatusMaintenance})
	}

	runtimeBase := 100 + float64(idx+1)*10
	failures, warning := 0.0, WarningNormal
	if status != StatusRunning {
		failures = float64(between(src, 0, max(0, 2-idx)+2))
		warning = pick(src, warningValues)
	}

	return core.Row{
		"device_id":      device,
		"timestamp":      recentTime(src, now),
		"status":         status,
		"runtime_hours":  uniform(src, runtimeBase*0.8, runtimeBase*1.2),
		"failure_count":  failures,
		"warning_status": warning,
	}
}
