package kinds

import (
	"errors"
	"log/slog"
	"reflect"
	"testing"
	"time"

	"github.com/JonMunkholm/oeedash/internal/core"
)

type fixedSource struct{ f float64 }

func (s fixedSource) Float64() float64 { return s.f }
func (s fixedSource) IntN(int) int     { return 0 }

var testNow = time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

func noAugment() core.Policy {
	p := core.DefaultPolicy()
	p.DisableAugment = true
	return p
}

func pipeline(policy core.Policy, src func() core.Source) *core.Pipeline {
	return core.NewPipeline(core.Options{
		Policy:    policy,
		Logger:    slog.New(slog.DiscardHandler),
		NewSource: src,
		Now:       func() time.Time { return testNow },
	})
}

func TestAllKindsRegistered(t *testing.T) {
	for _, kind := range []core.RecordKind{core.KindEquipment, core.KindOperation, core.KindMaterial, core.KindEnvironment} {
		def, ok := core.Get(kind)
		if !ok {
			t.Errorf("kind %s not registered", kind)
			continue
		}
		for _, f := range def.Fields {
			if len(f.Aliases) == 0 || f.Aliases[0] != f.Name {
				t.Errorf("%s.%s: first alias must be the canonical name", kind, f.Name)
			}
		}
	}
}

func TestEquipment_MessyUpload(t *testing.T) {
	raw := []core.RawRow{
		{"设备ID": "cnc-7", "时间戳": "2024年5月3日 14时30分00秒", "设备状态": "RUN", "总运行时间": "2天", "故障次数": "3个", "预警状态": "ok"},
		{"设备ID": "CNC 007", "时间戳": "2024-05-03 14:30:00", "设备状态": "停机", "总运行时间": "90m", "故障次数": 0, "预警状态": "严重"},
		{"设备ID": "machine7", "时间戳": int64(1714746600), "设备状态": "idle", "总运行时间": 120, "故障次数": "2", "预警状态": "critical"},
	}

	res, err := pipeline(noAugment(), func() core.Source { return fixedSource{} }).Process(core.KindEquipment, raw)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	want := time.Date(2024, 5, 3, 14, 30, 0, 0, time.UTC)
	runtimes := []float64{48, 1.5, 120}
	statuses := []string{StatusRunning, StatusStopped, StatusIdle}
	for i, row := range res.Rows {
		if row["device_id"] != "CNC007" {
			t.Errorf("row %d device_id = %v, want CNC007", i, row["device_id"])
		}
		if ts := row.Time("timestamp"); !ts.Equal(want) {
			t.Errorf("row %d timestamp = %v, want %v", i, ts, want)
		}
		if row["runtime_hours"] != runtimes[i] {
			t.Errorf("row %d runtime_hours = %v, want %v", i, row["runtime_hours"], runtimes[i])
		}
		if row["status"] != statuses[i] {
			t.Errorf("row %d status = %v, want %v", i, row["status"], statuses[i])
		}
	}

	if len(res.Rows) != 3 || res.Report.RejectedRows != 0 {
		t.Fatalf("rows = %d, rejected = %d; want 3, 0", len(res.Rows), res.Report.RejectedRows)
	}
	if res.Rows[0]["failure_count"] != 3.0 {
		t.Errorf("failure_count = %v, want 3", res.Rows[0]["failure_count"])
	}
	if res.Rows[0]["warning_status"] != WarningNormal || res.Rows[2]["warning_status"] != WarningSevere {
		t.Errorf("warning levels = %v, %v", res.Rows[0]["warning_status"], res.Rows[2]["warning_status"])
	}
}

func TestEquipment_OverrideKeepsRowsAndBackfills(t *testing.T) {
	raw := []core.RawRow{
		{"设备ID": "CNC001", "时间戳": "2024-05-03 08:00", "设备状态": "运行中", "故障次数": "1次"},
		{"设备ID": "CNC002", "时间戳": "2024-05-03 09:00", "设备状态": "运行中", "故障次数": nil},
	}

	res, err := pipeline(noAugment(), func() core.Source { return fixedSource{} }).Process(core.KindEquipment, raw)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	r := res.Report
	if !r.OverrideApplied || r.PassedRows != 0 || len(res.Rows) != 2 {
		t.Fatalf("override = %v, passed = %d, rows = %d", r.OverrideApplied, r.PassedRows, len(res.Rows))
	}
	if r.ParseFailures["failure_count:unparsable_number"] != 1 {
		t.Errorf("ParseFailures = %v", r.ParseFailures)
	}
	for _, row := range res.Rows {
		if row["failure_count"] != 0.0 || row["runtime_hours"] != 100.0 || row["warning_status"] != WarningNormal {
			t.Errorf("defaults not applied: %v", row)
		}
	}
	if r.Backfilled["runtime_hours"] != 2 {
		t.Errorf("Backfilled = %v", r.Backfilled)
	}
}

func TestEquipment_MissingTimestampColumn(t *testing.T) {
	raw := []core.RawRow{
		{"设备ID": "CNC001", "设备状态": "运行中", "记录日": "2024-05-03"},
		{"设备ID": "CNC002", "设备状态": "停机", "记录日": "2024-05-04"},
	}

	_, err := pipeline(noAugment(), nil).Process(core.KindEquipment, raw)

	var absent *core.RequiredFieldAbsentError
	if !errors.As(err, &absent) {
		t.Fatalf("err = %v, want *RequiredFieldAbsentError", err)
	}
	if absent.Field != "timestamp" {
		t.Errorf("Field = %q, want timestamp", absent.Field)
	}
}

func TestMaterial_QualifiedCorrection(t *testing.T) {
	raw := []core.RawRow{
		{"日期": "2024-05-01", "物料编号": "MAT-1", "产品数量": "100", "合格产品数量": "120"},
		{"日期": "2024-05-02", "物料编号": "MAT-2", "产品数量": "200", "合格产品数量": "190"},
	}

	// 0.90 + 0.09 x 5/9 = 0.95
	src := func() core.Source { return fixedSource{f: 5.0 / 9.0} }
	res, err := pipeline(noAugment(), src).Process(core.KindMaterial, raw)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if got := res.Rows[0]["qualified_quantity"]; got != 95.0 {
		t.Errorf("corrected qualified_quantity = %v, want 95", got)
	}
	if got := res.Rows[1]["qualified_quantity"]; got != 190.0 {
		t.Errorf("valid qualified_quantity changed to %v", got)
	}
	if res.Rows[0]["material_id"] != "CNC001" {
		t.Errorf("material_id = %v, want CNC001", res.Rows[0]["material_id"])
	}
	if res.Report.Corrections != 1 {
		t.Errorf("Corrections = %d, want 1", res.Report.Corrections)
	}
}

func TestMaterial_InvariantHoldsForSyntheticRows(t *testing.T) {
	raw := []core.RawRow{{"date": "2024-05-01", "material_id": "CNC003", "quantity": 50, "qualified_quantity": 40}}

	res, err := pipeline(core.DefaultPolicy(), core.SeededSource(7)).Process(core.KindMaterial, raw)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if len(res.Rows) != core.DefaultAugmentTarget {
		t.Fatalf("len(Rows) = %d, want %d", len(res.Rows), core.DefaultAugmentTarget)
	}
	for i, rec := range core.MaterialRecords(res.Rows) {
		if rec.QualifiedQuantity > rec.Quantity {
			t.Errorf("row %d: qualified %v > total %v", i, rec.QualifiedQuantity, rec.Quantity)
		}
	}
}

func TestPipeline_Idempotent(t *testing.T) {
	inputs := map[core.RecordKind][]core.RawRow{
		core.KindEquipment: {
			{"设备ID": "cnc-1", "时间戳": "2024-05-03 08:00:00", "设备状态": "running", "总运行时间": "10h", "故障次数": 1, "预警状态": "minor"},
			{"设备ID": "cnc-2", "时间戳": "2024-05-03 09:00:00", "设备状态": "停机", "总运行时间": "30分钟", "故障次数": 0, "预警状态": "正常"},
		},
		core.KindOperation: {
			{"工号": "w-3", "时间戳": "2024-05-03 08:00", "设备ID": "cnc1", "操作类型": "loading", "操作时长": "45m", "操作结果": "pass", "熟练度": "0.9"},
		},
		core.KindMaterial: {
			{"日期": "2024/5/3", "物料编号": "3", "产品数量": "1,000件", "合格产品数量": "1200"},
		},
		core.KindEnvironment: {
			{"温湿度传感器ID": "sens-1", "时间戳": "2024-05-03 08:00:00", "温度": "23.5℃", "湿度": "55%", "PM2.5": 40, "位置": "车间B区", "预警状态": "normal"},
		},
	}

	for kind, raw := range inputs {
		t.Run(string(kind), func(t *testing.T) {
			p := pipeline(core.DefaultPolicy(), core.SeededSource(1))

			first, err := p.Process(kind, raw)
			if err != nil {
				t.Fatalf("first pass failed: %v", err)
			}

			again := make([]core.RawRow, len(first.Rows))
			for i, row := range first.Rows {
				again[i] = core.RawRow(row.Clone())
			}
			second, err := p.Process(kind, again)
			if err != nil {
				t.Fatalf("second pass failed: %v", err)
			}

			if second.Report.RejectedRows != 0 || second.Report.Corrections != 0 || second.Report.SyntheticRows != 0 {
				t.Errorf("second pass report = %+v", second.Report)
			}
			if !reflect.DeepEqual(first.Rows, second.Rows) {
				t.Error("canonical output should be a fixed point of the pipeline")
			}
		})
	}
}

func TestNormalizers(t *testing.T) {
	tests := []struct {
		fn   func(string) string
		in   string
		want string
	}{
		{NormalizeEquipmentStatus, "RUN", StatusRunning},
		{NormalizeEquipmentStatus, " Idle ", StatusIdle},
		{NormalizeEquipmentStatus, "维护", StatusMaintenance},
		{NormalizeWarningLevel, "Critical", WarningSevere},
		{NormalizeOperationType, "QC", "质检"},
		{NormalizeOperationResult, "fail", ResultAbnormal},
		{NormalizeOperationResult, "unknown", "unknown"},
	}
	for _, tt := range tests {
		if got := tt.fn(tt.in); got != tt.want {
			t.Errorf("normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
