package kinds

import "strings"

// equipmentStatuses maps spelling variants to canonical equipment states.
var equipmentStatuses = map[string]string{
	"running": "运行中", "run": "运行中", "on": "运行中", "运行": "运行中", "正常运行": "运行中",
	"stopped": "停机", "stop": "停机", "down": "停机", "off": "停机", "停止": "停机",
	"maintenance": "维护", "maint": "维护", "维修": "维护", "保养": "维护",
	"fault": "故障", "error": "故障", "failure": "故障", "报警": "故障",
	"idle": "待机", "standby": "待机", "空闲": "待机",
}

// warningLevels maps spelling variants to canonical warning levels.
var warningLevels = map[string]string{
	"normal": "正常", "ok": "正常", "无预警": "正常",
	"minor": "轻微", "low": "轻微", "warning": "轻微", "warn": "轻微", "一般": "轻微",
	"severe": "严重", "critical": "严重", "high": "严重", "alarm": "严重",
}

// operationTypes maps spelling variants to canonical operation types.
var operationTypes = map[string]string{
	"load": "上料", "loading": "上料", "装料": "上料",
	"unload": "下料", "unloading": "下料", "卸料": "下料",
	"maintenance": "维护", "maint": "维护", "维修": "维护",
	"inspection": "质检", "qc": "质检", "检验": "质检", "质量检查": "质检",
	"debug": "调试", "setup": "调试", "tuning": "调试",
	"cleaning": "设备清洁", "clean": "设备清洁", "清洁": "设备清洁",
	"planning": "生产计划", "plan": "生产计划", "计划": "生产计划",
}

// operationResults maps spelling variants to canonical operation results.
var operationResults = map[string]string{
	"normal": "正常", "ok": "正常", "pass": "正常", "success": "正常", "成功": "正常", "合格": "正常",
	"abnormal": "异常", "fail": "异常", "failed": "异常", "error": "异常", "失败": "异常", "不合格": "异常",
}

// lookup returns the canonical value for s, or s unchanged if it is not a known variant.
func lookup(table map[string]string, s string) string {
	if v, ok := table[strings.ToLower(strings.TrimSpace(s))]; ok {
		return v
	}
	return s
}

// NormalizeEquipmentStatus converts status variants such as "RUN" or "idle".
func NormalizeEquipmentStatus(s string) string { return lookup(equipmentStatuses, s) }

// NormalizeWarningLevel converts warning variants such as "ok" or "critical".
func NormalizeWarningLevel(s string) string { return lookup(warningLevels, s) }

// NormalizeOperationType converts operation variants such as "loading" or "QC".
func NormalizeOperationType(s string) string { return lookup(operationTypes, s) }

// NormalizeOperationResult converts result variants such as "pass" or "fail".
func NormalizeOperationResult(s string) string { return lookup(operationResults, s) }
