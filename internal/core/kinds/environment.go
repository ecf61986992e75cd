package kinds

import (
	"regexp"
	"time"

	"github.com/JonMunkholm/oeedash/internal/core"
)

func init() {
	registerEnvironment()
}

func registerEnvironment() {
	core.Register(core.KindDefinition{
		Kind:  core.KindEnvironment,
		Label: "环境数据",
		Fields: []core.FieldSpec{
			{
				Name:     "sensor_id",
				Aliases:  []string{"sensor_id", "温湿度传感器ID", "传感器ID", "设备ID", "device_id", "传感器编号"},
				Type:     core.FieldIdentifier,
				IDKind:   core.IDSensor,
				Required: true,
			},
			{
				Name:     "timestamp",
				Aliases:  []string{"timestamp", "时间戳", "时间", "日期时间", "date_time", "time"},
				Type:     core.FieldTimestamp,
				Required: true,
			},
			{
				Name:     "temperature",
				Aliases:  []string{"temperature", "温度", "temp", "环境温度", "ambient_temperature", "temp_value"},
				Type:     core.FieldNumeric,
				Required: true,
				Default:  25.0,
				Range:    &core.Range{Min: 0, Max: 50},
			},
			{
				Name:     "humidity",
				Aliases:  []string{"humidity", "湿度", "humid", "环境湿度", "ambient_humidity", "humid_value"},
				Type:     core.FieldNumeric,
				Required: true,
				Default:  50.0,
				Range:    &core.Range{Min: 0, Max: 100},
			},
			{
				Name:    "pm25",
				Aliases: []string{"pm25", "PM2.5", "pm2.5", "PM2_5", "pm_2_5", "细颗粒物", "particulate_matter"},
				Type:    core.FieldNumeric,
				Default: 35.0,
				Range:   &core.Range{Min: 0, Max: 500},
			},
			{
				Name:    "location",
				Aliases: []string{"location", "位置", "地点", "position", "place", "区域"},
				Type:    core.FieldCategorical,
				Default: "车间A区",
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
		IDField:   "sensor_id",
		IDPattern: regexp.MustCompile(`^TEMP\d{3}$`),
		IDExample: "TEMP001",
		TimeField: "timestamp",
		Mock:      mockEnvironment,
	})
}

var (
	mockSensors   = numberedIDs("TEMP", 3)
	mockLocations = []string{"车间A区", "车间B区", "车间C区"}
)

// mockEnvironment produces a reading from one of three workshop sensors.
func mockEnvironment(src core.Source, now time.Time) core.Row {
	idx := src.IntN(len(mockSensors))
	temperature := uniform(src, 18, 30)
	humidity := uniform(src, 40, 70)
	pm25 := uniform(src, 10, 100)

	warning := WarningNormal
	switch {
	case humidity > 68 || pm25 > 90:
		warning = WarningSevere
	case temperature > 28 || humidity > 65 || pm25 > 75:
		warning = WarningMinor
	}

	return core.Row{
		"sensor_id":      mockSensors[idx],
		"timestamp":      recentTime(src, now),
		"temperature":    temperature,
		"humidity":       humidity,
		"pm25":           pm25,
		"location":       mockLocations[idx],
		"warning_status": warning,
	}
}
