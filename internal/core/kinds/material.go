package kinds

import (
	"math"
	"regexp"
	"time"

	"github.com/JonMunkholm/oeedash/internal/core"
)

// Qualified output is rewritten into this fraction of total output when it exceeds it.
const (
	minQualifiedFraction = 0.90
	maxQualifiedFraction = 0.99
)

func init() {
	registerMaterial()
}

func registerMaterial() {
	core.Register(core.KindDefinition{
		Kind:  core.KindMaterial,
		Label: "物料数据",
		Fields: []core.FieldSpec{
			{
				Name:     "date",
				Aliases:  []string{"date", "日期", "时间", "time", "timestamp", "生产日期"},
				Type:     core.FieldTimestamp,
				Required: true,
			},
			{
				Name:     "material_id",
				Aliases:  []string{"material_id", "物料编号", "物料ID", "产品编号", "product_id", "编号"},
				Type:     core.FieldIdentifier,
				IDKind:   core.IDMaterial,
				Required: true,
			},
			{
				Name:     "quantity",
				Aliases:  []string{"quantity", "产品数量", "数量", "总数量", "total_quantity", "product_count"},
				Type:     core.FieldNumeric,
				Required: true,
				Default:  100.0,
				Range:    &core.Range{Min: 0, Max: 10000},
			},
			{
				Name:     "qualified_quantity",
				Aliases:  []string{"qualified_quantity", "合格产品数量", "合格数量", "合格品数", "good_quantity", "qualified_count", "良品数量"},
				Type:     core.FieldNumeric,
				Required: true,
				Default:  95.0,
				Range:    &core.Range{Min: 0, Max: 10000},
			},
		},
		IDField:       "material_id",
		IDPattern:     regexp.MustCompile(`^CNC\d{3}$`),
		IDExample:     "CNC001",
		TimeField:     "date",
		Correct:       correctQualified,
		CorrectionDoc: "qualified_quantity greater than quantity is replaced by round(quantity x f), f uniform in [0.90, 0.99]",
		Mock:          mockMaterial,
	})
}

// correctQualified enforces qualified_quantity <= quantity.
func correctQualified(row core.Row, src core.Source) bool {
	total, ok := row.Float("quantity")
	if !ok {
		return false
	}
	qualified, ok := row.Float("qualified_quantity")
	if !ok || qualified <= total {
		return false
	}
	f := minQualifiedFraction + (maxQualifiedFraction-minQualifiedFraction)*src.Float64()
	row["qualified_quantity"] = math.Round(total * f)
	return true
}

var mockMaterials = numberedIDs("CNC", 5)

// mockMaterial produces daily output whose quality improves with the material number.
func mockMaterial(src core.Source, now time.Time) core.Row {
	idx := src.IntN(len(mockMaterials))
	n := float64(idx + 1)

	base := 100 + int(n)*5
	quality := 0.98
	if n <= 3 {
		quality = 0.95 + n*0.01
	}
	qty := float64(between(src, base-20, base+20))
	lo := math.Max(0.9, quality-0.05)
	hi := math.Min(0.99, quality+0.05)

	day := now.AddDate(0, 0, -between(src, 0, 30))
	return core.Row{
		"date":               time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location()),
		"material_id":        mockMaterials[idx],
		"quantity":           qty,
		"qualified_quantity": math.Round(qty * uniform(src, lo, hi)),
	}
}
