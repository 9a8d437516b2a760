package datanorm

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	isoDateLayout = "2006-01-02"

	// Days between the spreadsheet epoch (1899-12-30) and the Unix epoch.
	serialEpochOffset = 25569
	msPerDay          = 86400 * 1000
	// 9999-12-31 is the last date a spreadsheet can hold.
	maxSerial = 2958465
)

var (
	numberCleaner = strings.NewReplacer("$", "", ",", "", "%", "")
	numberPrefix  = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)
	isoPrefix     = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})`)
	monthDayYear  = regexp.MustCompile(`^([A-Za-z]{3})[A-Za-z]*\.?\s+(\d{1,2}),?\s+(\d{4})`)
)

var monthAbbrev = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

// Layouts for the last-resort parse, tried in order.
var fallbackDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"1/2/2006",
	"01/02/2006",
	"1/2/2006 15:04",
	"1/2/2006 3:04:05 PM",
	"2006/01/02",
	"2006/1/2",
	"2 Jan 2006",
	"02-Jan-2006",
	"2-Jan-06",
	"Jan 2 2006",
	"January 2 2006",
	"20060102",
	time.RFC1123,
	time.RFC1123Z,
}

// ToNumber converts a cell to a float. Currency symbols, thousands
// separators and percent signs are stripped; blanks, dashes and anything
// unparseable become 0. It never fails.
func ToNumber(c Cell) float64 {
	switch v := c.(type) {
	case nil:
		return 0
	case float64:
		return finite(v)
	case float32:
		return finite(float64(v))
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case int32:
		return float64(v)
	case string:
		return parseNumber(v)
	case []byte:
		return parseNumber(string(v))
	}
	return 0
}

func parseNumber(s string) float64 {
	s = strings.TrimSpace(s)
	switch s {
	case "", "—", "null", "-":
		return 0
	}
	s = strings.TrimSpace(numberCleaner.Replace(s))
	// Leading numeric prefix only, so "12.5 USD" still reads as 12.5.
	m := numberPrefix.FindString(s)
	if m == "" {
		return 0
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0
	}
	return finite(f)
}

func finite(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// ToISODate converts a cell to a YYYY-MM-DD string. The second return value
// is false when the cell holds no recognizable date; callers skip such rows
// rather than substitute a default.
func ToISODate(c Cell) (string, bool) {
	switch v := c.(type) {
	case nil:
		return "", false
	case time.Time:
		if v.IsZero() {
			return "", false
		}
		return v.Format(isoDateLayout), true
	case float64:
		return fromSerial(v)
	case float32:
		return fromSerial(float64(v))
	case int:
		return fromSerial(float64(v))
	case int64:
		return fromSerial(float64(v))
	case string:
		return parseDateString(v)
	}
	return "", false
}

func fromSerial(serial float64) (string, bool) {
	if math.IsNaN(serial) || math.IsInf(serial, 0) || serial <= 0 || serial > maxSerial {
		return "", false
	}
	ms := math.Round((serial - serialEpochOffset) * msPerDay)
	return time.UnixMilli(int64(ms)).UTC().Format(isoDateLayout), true
}

func parseDateString(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}

	if m := isoPrefix.FindStringSubmatch(s); m != nil {
		y, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		d, _ := strconv.Atoi(m[3])
		return civilDate(y, time.Month(mo), d)
	}

	if m := monthDayYear.FindStringSubmatch(s); m != nil {
		if mo, ok := monthAbbrev[strings.ToLower(m[1])]; ok {
			d, _ := strconv.Atoi(m[2])
			y, _ := strconv.Atoi(m[3])
			return civilDate(y, mo, d)
		}
	}

	for _, layout := range fallbackDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(isoDateLayout), true
		}
	}
	return "", false
}

// civilDate rejects dates that time.Date would silently roll over,
// such as February 30th.
func civilDate(y int, m time.Month, d int) (string, bool) {
	if m < time.January || m > time.December || d < 1 || d > 31 {
		return "", false
	}
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	if t.Year() != y || t.Month() != m || t.Day() != d {
		return "", false
	}
	return t.Format(isoDateLayout), true
}

// CellString renders a cell the way it would appear in an export.
func CellString(c Cell) string {
	switch v := c.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		return strconv.FormatBool(v)
	case time.Time:
		if v.Hour() == 0 && v.Minute() == 0 && v.Second() == 0 {
			return v.Format(isoDateLayout)
		}
		return v.Format(time.RFC3339)
	}
	return fmt.Sprint(c)
}

// IsBlank reports whether a cell is nil or whitespace only.
func IsBlank(c Cell) bool {
	if c == nil {
		return true
	}
	if s, ok := c.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}
