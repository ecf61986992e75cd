package kinds

import (
	"math"
	"regexp"
	"time"

	"github.com/JonMunkholm/oeedash/internal/core"
)

var operationTypeValues = []string{"上料", "下料", "维护", "质检", "调试", "设备清洁", "生产计划"}

const (
	ResultNormal   = "正常"
	ResultAbnormal = "异常"
)

func init() {
	registerOperation()
}

func registerOperation() {
	core.Register(core.KindDefinition{
		Kind:  core.KindOperation,
		Label: "操作数据",
		Fields: []core.FieldSpec{
			{
				Name:     "worker_id",
				Aliases:  []string{"worker_id", "工号", "员工ID", "人员ID", "staff_id", "employee_id"},
				Type:     core.FieldIdentifier,
				IDKind:   core.IDWorker,
				Required: true,
			},
			{
				Name:     "timestamp",
				Aliases:  []string{"timestamp", "时间戳", "时间", "日期时间", "date_time", "time"},
				Type:     core.FieldTimestamp,
				Required: true,
			},
			{
				// Normalized like equipment IDs but not checked against a pattern.
				Name:     "device_id",
				Aliases:  []string{"device_id", "设备ID", "设备编号", "DeviceID", "equipment_id", "机器ID"},
				Type:     core.FieldIdentifier,
				IDKind:   core.IDEquipment,
				Required: true,
			},
			{
				Name:       "operation_type",
				Aliases:    []string{"operation_type", "操作类型", "操作", "工作类型", "work_type", "task_type"},
				Type:       core.FieldCategorical,
				Required:   true,
				Default:    "上料",
				EnumValues: operationTypeValues,
				Normalizer: NormalizeOperationType,
			},
			{
				Name:    "duration_hours",
				Aliases: []string{"duration_hours", "操作时长", "时长", "持续时间", "duration", "operation_time", "time_spent"},
				Type:    core.FieldDuration,
				Default: 1.0,
				Range:   &core.Range{Min: 0, Max: 24},
			},
			{
				Name:       "result",
				Aliases:    []string{"result", "操作结果", "结果", "状态", "operation_result", "status"},
				Type:       core.FieldCategorical,
				Default:    ResultNormal,
				EnumValues: []string{ResultNormal, ResultAbnormal},
				Normalizer: NormalizeOperationResult,
			},
			{
				Name:    "skill_level",
				Aliases: []string{"skill_level", "熟练度", "技能水平", "技能评分", "proficiency", "skill_score"},
				Type:    core.FieldNumeric,
				Default: 0.85,
				Range:   &core.Range{Min: 0, Max: 1},
			},
		},
		IDField:   "worker_id",
		IDPattern: regexp.MustCompile(`^W\d{3}$`),
		IDExample: "W001",
		TimeField: "timestamp",
		Mock:      mockOperation,
	})
}

var mockWorkers = numberedIDs("W", 5)

// mockOperation produces an operation whose skill grows with the worker number.
func mockOperation(src core.Source, now time.Time) core.Row {
	idx := src.IntN(len(mockWorkers))
	n := float64(idx + 1)
	skillBase := 0.9
	if n <= 3 {
		skillBase = 0.7 + n*0.05
	}

	result := ResultNormal
	if chance(src, 0.1) {
		result = pick(src, []string{ResultNormal, ResultAbnormal})
	}

	skill := uniform(src, math.Max(0.6, skillBase-0.1), math.Min(1.0, skillBase+0.1))
	return core.Row{
		"worker_id":      mockWorkers[idx],
		"timestamp":      recentTime(src, now),
		"device_id":      pick(src, mockDevices),
		"operation_type": pick(src, operationTypeValues[:4]),
		"duration_hours": uniform(src, 0.5, 2.5),
		"result":         result,
		"skill_level":    math.Round(skill*100) / 100,
	}
}
