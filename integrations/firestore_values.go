package integrations

import (
	"math"
	"math/big"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Kind is the value type the database console renders as a type-<kind>
// class on each .database-node.
type Kind int

const (
	KindUnknown Kind = iota
	KindString
	KindNumber
	KindBoolean
	KindTimestamp
	KindMap
	KindArray
)

var kindNames = map[string]Kind{
	"string":    KindString,
	"number":    KindNumber,
	"boolean":   KindBoolean,
	"timestamp": KindTimestamp,
	"map":       KindMap,
	"array":     KindArray,
}

// ParseKind maps a rendered kind name to a Kind. Names the console may add
// in the future (geopoint, reference, null, ...) map to KindUnknown.
func ParseKind(name string) Kind {
	if k, ok := kindNames[name]; ok {
		return k
	}
	return KindUnknown
}

func (k Kind) String() string {
	if k < KindUnknown || k > KindArray {
		return "invalid"
	}
	return [...]string{"unknown", "string", "number", "boolean", "timestamp", "map", "array"}[k]
}

// kindOf reads the kind from the first class starting with "type-". The
// kind is the second dash-separated segment, so "type-map-open" is a map.
func kindOf(classes []string) Kind {
	for _, c := range classes {
		if strings.HasPrefix(c, "type-") {
			return ParseKind(strings.Split(c, "-")[1])
		}
	}
	return KindUnknown
}

// decodeString drops the quote characters the console wraps strings in.
func decodeString(text string) string {
	runes := []rune(text)
	if len(runes) < 2 {
		return ""
	}
	return string(runes[1 : len(runes)-1])
}

func decodeBoolean(text string) bool {
	return text == "true"
}

var decimalRe = regexp.MustCompile(`^[+-]?([0-9]+\.?[0-9]*|\.[0-9]+)([eE][+-]?[0-9]+)?$`)

// decodeNumber converts rendered number text the way a browser's Number()
// would. Values without a finite JSON representation (NaN, ±Infinity)
// decode to nil.
func decodeNumber(text string) any {
	s := strings.TrimSpace(text)
	if s == "" {
		return float64(0)
	}

	var f float64
	switch {
	case s == "Infinity" || s == "+Infinity" || s == "-Infinity":
		return nil
	case len(s) > 2 && s[0] == '0' && strings.ContainsRune("xXoObB", rune(s[1])):
		base := map[byte]int{'x': 16, 'o': 8, 'b': 2}[s[1]|0x20]
		digits := s[2:]
		if digits[0] == '+' || digits[0] == '-' {
			return nil
		}
		i, ok := new(big.Int).SetString(digits, base)
		if !ok {
			return nil
		}
		f, _ = new(big.Float).SetInt(i).Float64()
	case decimalRe.MatchString(s):
		// Out-of-range input still yields ±Inf or 0, matching the browser.
		f, _ = strconv.ParseFloat(s, 64)
	default:
		return nil
	}

	if math.IsInf(f, 0) || math.IsNaN(f) {
		return nil
	}
	if f == 0 {
		// -0 serialises as 0.
		return float64(0)
	}
	return f
}

// May 19, 2022 at 5:09:39 PM UTC+1
var timestampRe = regexp.MustCompile(`^([A-Za-z]{3}) ([0-9]{1,2}), ([0-9]{4}) at ([0-9]{1,2}):([0-9]{1,2}):([0-9]{1,2}) ([APM]{2}) UTC(\+[0-9]{1,2})$`)

const isoMillis = "2006-01-02T15:04:05.000Z"

var monthNames = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

// decodeTimestamp converts the console's human-readable timestamp into an
// ISO-8601 UTC string with millisecond precision. Text that does not match,
// or names an impossible date, is returned unchanged.
func decodeTimestamp(text string) string {
	t, ok := parseConsoleTime(text)
	if !ok {
		return text
	}
	return t.UTC().Format(isoMillis)
}

func parseConsoleTime(text string) (time.Time, bool) {
	m := timestampRe.FindStringSubmatch(text)
	if m == nil {
		return time.Time{}, false
	}

	month, ok := monthNames[strings.ToLower(m[1])]
	if !ok {
		return time.Time{}, false
	}
	day, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])
	hour, _ := strconv.Atoi(m[4])
	minute, _ := strconv.Atoi(m[5])
	second, _ := strconv.Atoi(m[6])
	offset, _ := strconv.Atoi(m[8][1:])

	if day < 1 || hour > 12 || minute > 59 || second > 59 {
		return time.Time{}, false
	}
	switch m[7] {
	case "AM":
		if hour == 12 {
			hour = 0
		}
	case "PM":
		if hour < 12 {
			hour += 12
		}
	default:
		return time.Time{}, false
	}

	zone := time.FixedZone("", offset*3600)
	t := time.Date(year, month, day, hour, minute, second, 0, zone)
	if t.Day() != day {
		// time.Date normalises Feb 30 into March.
		return time.Time{}, false
	}
	return t, true
}
