package core

// convert.go provides per-cell coercion functions for uploaded data.
//
// These functions handle the messy reality of hand-edited spreadsheets:
//   - Timestamps as epoch seconds, ISO strings, US dates or Chinese 年/月/日 markers
//   - Identifiers written as "cnc-7", "CNC 007", "machine7" or full-width "ＣＮＣ７"
//   - Numbers with trailing units, percent signs, thousands separators
//   - Durations in days, hours, minutes or seconds ("2天", "90m", "1h30m")
//
// Every Parse* function returns the coerced value plus a ParseReason. ReasonNone means
// success; ReasonBlank means the cell was empty or a null token. Callers treat every
// other reason as a per-cell failure and store null.

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/width"
)

// numericRegex validates that a string is a valid numeric format after cleanup.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// epochRegex matches strings interpreted as Unix epoch seconds.
var epochRegex = regexp.MustCompile(`^\d+(\.\d+)?$`)

// durationPartRegex splits "1h30m" into number/unit pairs.
var durationPartRegex = regexp.MustCompile(`([-+]?\d*\.?\d+)\s*([^\d\s.+-]*)`)

// clockDurationRegex matches "h:mm" and "h:mm:ss" durations.
var clockDurationRegex = regexp.MustCompile(`^(\d+):([0-5]?\d)(?::([0-5]?\d(?:\.\d+)?))?$`)

// nullTokens are cell values treated as missing (compared case-insensitively).
var nullTokens = map[string]bool{
	"": true, "-": true, "--": true, "null": true, "none": true, "nil": true,
	"na": true, "n/a": true, "nan": true, "无": true, "未记录": true,
}

// timestampLayouts are tried in order after Chinese markers have been rewritten.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-1-2 15:4:5",
	"2006-1-2 15:4",
	"2006-1-2T15:4:5",
	"2006-1-2 15:4:5 -0700",
	"2006/1/2 15:4:5",
	"2006/1/2 15:4",
	"2006.1.2 15:4:5",
	"2006-1-2",
	"2006/1/2",
	"2006.1.2",
	"1/2/2006 15:4:5",
	"1/2/2006 15:4",
	"1/2/2006",
	"1/2/06 15:4",
	"1/2/06",
	"01-02-06",
	"Jan 2, 2006 15:04:05",
	"Jan 2, 2006",
	"2 Jan 2006 15:04",
	"2 Jan 2006",
	"02-Jan-2006",
	"2006-1",
}

// chineseDateReplacer rewrites 年/月/日/时/分/秒 markers into delimiters.
var chineseDateReplacer = strings.NewReplacer(
	"年", "-", "月", "-", "日", " ", "号", " ",
	"时", ":", "点", ":", "分", ":", "秒", "",
)

// idRule extracts a canonical identifier for one IDKind.
type idRule struct {
	prefix  string
	pattern *regexp.Regexp
}

var idRules = map[IDKind]idRule{
	IDEquipment: {prefix: "CNC", pattern: regexp.MustCompile(`(?:CNC|MACHINE|MACH|EQP)?(\d+)`)},
	IDWorker:    {prefix: "W", pattern: regexp.MustCompile(`(?:WORKER|STAFF|EMP|W)?(\d+)`)},
	IDMaterial:  {prefix: "CNC", pattern: regexp.MustCompile(`(?:MATERIAL|MAT|ITEM|CNC|M)?(\d+)`)},
	IDSensor:    {prefix: "TEMP", pattern: regexp.MustCompile(`(?:SENS|TEMP|ENV|MON|HUM)?(\d+)`)},
}

// durationUnits maps unit tokens to an hour multiplier.
var durationUnits = map[string]float64{
	"d": 24, "day": 24, "days": 24, "天": 24, "日": 24,
	"h": 1, "hr": 1, "hrs": 1, "hour": 1, "hours": 1, "小时": 1, "时": 1, "个小时": 1,
	"m": 1.0 / 60, "min": 1.0 / 60, "mins": 1.0 / 60, "minute": 1.0 / 60, "minutes": 1.0 / 60,
	"分": 1.0 / 60, "分钟": 1.0 / 60,
	"s": 1.0 / 3600, "sec": 1.0 / 3600, "secs": 1.0 / 3600, "second": 1.0 / 3600,
	"seconds": 1.0 / 3600, "秒": 1.0 / 3600, "秒钟": 1.0 / 3600,
}

// numericSuffixes are unit markers stripped from numeric cells.
var numericSuffixes = []string{"%", "小时", "h", "℃", "°c", "件", "个", "pcs"}

// CleanText narrows full-width characters and trims whitespace.
func CleanText(s string) string {
	return strings.TrimSpace(width.Narrow.String(s))
}

// cellString converts a cell to a cleaned string.
// Returns false for nil cells and null tokens.
func cellString(v any) (string, bool) {
	var s string
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		s = t
	case []byte:
		s = string(t)
	case float64:
		if math.IsNaN(t) {
			return "", false
		}
		s = strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		s = strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		s = fmt.Sprintf("%d", t)
	case json.Number:
		s = t.String()
	case fmt.Stringer:
		s = t.String()
	default:
		s = fmt.Sprintf("%v", t)
	}

	s = CleanText(s)
	if nullTokens[strings.ToLower(s)] {
		return "", false
	}
	return s, true
}

// asFloat returns v as float64 when it is already a Go number.
func asFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, !math.IsNaN(t)
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int8:
		return float64(t), true
	case int16:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case uint:
		return float64(t), true
	case uint8:
		return float64(t), true
	case uint16:
		return float64(t), true
	case uint32:
		return float64(t), true
	case uint64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	}
	return 0, false
}

// ParseTimestamp coerces a cell to a time.
//
// Numbers and numeric strings are Unix epoch seconds. Strings with 年/月 markers are
// rewritten to a delimited form first. Other strings are parsed in loc against a list
// of common layouts.
func ParseTimestamp(v any, loc *time.Location) (time.Time, ParseReason) {
	if loc == nil {
		loc = time.UTC
	}
	if t, ok := v.(time.Time); ok {
		if t.IsZero() {
			return time.Time{}, ReasonBlank
		}
		return t, ReasonNone
	}
	if f, ok := asFloat(v); ok {
		return epochToTime(f), ReasonNone
	}

	s, ok := cellString(v)
	if !ok {
		return time.Time{}, ReasonBlank
	}

	if epochRegex.MatchString(s) {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return time.Time{}, ReasonUnparsableTimestamp
		}
		return epochToTime(f), ReasonNone
	}

	if strings.Contains(s, "年") && strings.Contains(s, "月") {
		s = rewriteChineseDate(s)
	}

	for _, layout := range timestampLayouts {
		t, err := time.ParseInLocation(layout, s, loc)
		if err == nil {
			return t, ReasonNone
		}
	}

	return time.Time{}, ReasonUnparsableTimestamp
}

func epochToTime(f float64) time.Time {
	sec, frac := math.Modf(f)
	return time.Unix(int64(sec), int64(math.Round(frac*1e9))).UTC()
}

// rewriteChineseDate turns "2024年5月3日 14时30分00秒" into "2024-5-3 14:30:00".
func rewriteChineseDate(s string) string {
	s = chineseDateReplacer.Replace(s)
	s = strings.Join(strings.Fields(s), " ")
	s = strings.TrimRight(s, ":- ")
	return s
}

// CanonicalID extracts the first digit run (optionally after a known prefix token) and
// renders it as prefix + 3-digit zero-padded number, e.g. "cnc-7" -> "CNC007".
func CanonicalID(v any, kind IDKind) (string, ParseReason) {
	s, ok := cellString(v)
	if !ok {
		return "", ReasonBlank
	}

	rule, ok := idRules[kind]
	if !ok {
		return "", ReasonUnsupportedType
	}

	s = strings.ToUpper(s)
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r', '-', '_':
			return -1
		}
		return r
	}, s)

	m := rule.pattern.FindStringSubmatch(s)
	if m == nil {
		return "", ReasonNoDigits
	}

	digits := m[1]
	if len(digits) < 3 {
		digits = strings.Repeat("0", 3-len(digits)) + digits
	}
	return rule.prefix + digits, ReasonNone
}

// ParseNumeric coerces a cell to float64.
// Strings may carry a trailing unit or percent marker and thousands separators.
func ParseNumeric(v any) (float64, ParseReason) {
	if f, ok := asFloat(v); ok {
		return f, ReasonNone
	}

	s, ok := cellString(v)
	if !ok {
		return 0, ReasonBlank
	}

	// Detect negative accounting format "(123.45)"
	isNegative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		isNegative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	lower := strings.ToLower(s)
	for _, suffix := range numericSuffixes {
		if strings.HasSuffix(lower, suffix) {
			lower = strings.TrimSpace(strings.TrimSuffix(lower, suffix))
			break
		}
	}
	s = strings.ReplaceAll(lower, ",", "")

	if isNegative {
		s = "-" + s
	}

	if !numericRegex.MatchString(s) {
		return 0, ReasonUnparsableNumber
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, ReasonUnparsableNumber
	}
	return f, ReasonNone
}

// ParseDuration coerces a cell to hours.
//
// Plain numbers are hours. "h:mm" and "h:mm:ss" are clock durations; any other text with
// a colon is unparsable. Remaining text is split into number/unit pairs and each part is
// scaled: days x24, hours x1, minutes /60, seconds /3600. A part with no unit counts as hours.
func ParseDuration(v any) (float64, ParseReason) {
	if f, ok := asFloat(v); ok {
		return f, ReasonNone
	}

	s, ok := cellString(v)
	if !ok {
		return 0, ReasonBlank
	}
	s = strings.ToLower(strings.ReplaceAll(s, ",", ""))

	if strings.Contains(s, ":") {
		return parseClockDuration(s)
	}

	parts := durationPartRegex.FindAllStringSubmatch(s, -1)
	if len(parts) == 0 {
		return 0, ReasonNoDigits
	}

	total := 0.0
	for _, p := range parts {
		n, err := strconv.ParseFloat(p[1], 64)
		if err != nil {
			return 0, ReasonUnparsableNumber
		}
		total += n * unitMultiplier(p[2])
	}
	return total, ReasonNone
}

func parseClockDuration(s string) (float64, ParseReason) {
	m := clockDurationRegex.FindStringSubmatch(s)
	if m == nil {
		return 0, ReasonUnparsableNumber
	}
	hours, _ := strconv.ParseFloat(m[1], 64)
	minutes, _ := strconv.ParseFloat(m[2], 64)
	seconds := 0.0
	if m[3] != "" {
		seconds, _ = strconv.ParseFloat(m[3], 64)
	}
	return hours + minutes/60 + seconds/3600, ReasonNone
}

// unitMultiplier resolves a unit token, falling back to marker containment
// in day, hour, minute, second order. No marker means hours.
// Tokens starting with "sec" are seconds whatever else they contain.
func unitMultiplier(unit string) float64 {
	unit = strings.TrimSpace(unit)
	if unit == "" {
		return 1
	}
	if m, ok := durationUnits[unit]; ok {
		return m
	}
	switch {
	case strings.HasPrefix(unit, "sec"):
		return 1.0 / 3600
	case strings.Contains(unit, "d") || strings.Contains(unit, "天"):
		return 24
	case strings.Contains(unit, "h") || strings.Contains(unit, "小时"):
		return 1
	case strings.Contains(unit, "m") || strings.Contains(unit, "分"):
		return 1.0 / 60
	case strings.Contains(unit, "s") || strings.Contains(unit, "秒"):
		return 1.0 / 3600
	}
	return 1
}

// NormalizeCategory cleans categorical text and applies the field's normalizer.
func NormalizeCategory(v any, spec FieldSpec) (string, ParseReason) {
	s, ok := cellString(v)
	if !ok {
		return "", ReasonBlank
	}
	if spec.Normalizer != nil {
		s = spec.Normalizer(s)
	}
	return s, ReasonNone
}
