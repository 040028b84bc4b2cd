package tagjson

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dlclark/regexp2"
	"github.com/golang-sql/civil"
)

const (
	localLayout = "2006-01-02T15:04:05.999999999"
	clockLayout = "15:04:05.999999999"
)

// ============================================================
// Dates and Times
// ============================================================

// checkYear rejects years that do not fit the four-digit date grammar.
func checkYear(year int) error {
	if year < 1 || year > 9999 {
		return fmt.Errorf("year %d out of range [1, 9999]", year)
	}
	return nil
}

func formatDateTime(dt civil.DateTime) string {
	return dt.In(time.UTC).Format(localLayout)
}

func formatClock(t civil.Time) string {
	return time.Date(2000, 1, 1, t.Hour, t.Minute, t.Second, t.Nanosecond, time.UTC).Format(clockLayout)
}

// formatOffset renders a UTC offset in seconds as ±hh:mm[:ss].
func formatOffset(offset int) string {
	sign := byte('+')
	if offset < 0 {
		sign = '-'
		offset = -offset
	}
	h, m, s := offset/3600, (offset/60)%60, offset%60
	if s != 0 {
		return fmt.Sprintf("%c%02d:%02d:%02d", sign, h, m, s)
	}
	return fmt.Sprintf("%c%02d:%02d", sign, h, m)
}

// formatZoned renders a zoned datetime. time.UTC gets the dt.UTC marker,
// loadable zones get their name in brackets, fixed zones only the offset.
func formatZoned(t time.Time) string {
	_, offset := t.Zone()
	s := t.Format(localLayout) + formatOffset(offset)
	loc := t.Location()
	if loc == time.UTC {
		return s + "[" + utcMarker + "]"
	}
	if name := loc.String(); zoneLoadable(name) {
		return s + "[" + name + "]"
	}
	return s
}

var zoneCache sync.Map // zone name → *time.Location, or nil when unknown

func loadZone(name string) (*time.Location, error) {
	if cached, ok := zoneCache.Load(name); ok {
		if loc, _ := cached.(*time.Location); loc != nil {
			return loc, nil
		}
		return nil, fmt.Errorf("unknown time zone %q", name)
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		zoneCache.Store(name, (*time.Location)(nil))
		return nil, err
	}
	zoneCache.Store(name, loc)
	return loc, nil
}

// zoneLoadable reports whether name is an IANA zone that a decoder can load.
// "Local" is excluded since it means a different zone on every machine.
func zoneLoadable(name string) bool {
	if name == "" || name == "Local" {
		return false
	}
	_, err := loadZone(name)
	return err == nil
}

// parseZoned parses "<local><offset>" and applies the zone, if any. With
// utc set the result is in time.UTC.
func parseZoned(payload, zone string, utc bool) (time.Time, error) {
	layout := "2006-01-02T15:04:05-07:00"
	if i := strings.LastIndexAny(payload, "+-"); i >= 0 && len(payload)-i == 9 {
		layout = "2006-01-02T15:04:05-07:00:00"
	}
	t, err := time.Parse(layout, payload)
	if err != nil {
		return time.Time{}, err
	}
	_, offset := t.Zone()
	if utc {
		return t.In(time.UTC), nil
	}
	if zone == "" {
		return t.In(time.FixedZone("", offset)), nil
	}
	loc, err := loadZone(zone)
	if err != nil {
		return time.Time{}, err
	}
	t = t.In(loc)
	if _, got := t.Zone(); got != offset {
		return time.Time{}, fmt.Errorf("offset %s does not match zone %s", formatOffset(offset), zone)
	}
	return t, nil
}

// ============================================================
// Durations (ISO 8601)
// ============================================================

// formatDuration renders d as an ISO 8601 duration: PT1H2M3.5S, -PT1S, PT0S.
func formatDuration(d time.Duration) string {
	if d == 0 {
		return "PT0S"
	}
	var sb strings.Builder
	u := uint64(d)
	if d < 0 {
		sb.WriteByte('-')
		u = uint64(-(d + 1)) + 1
	}
	sb.WriteString("PT")
	h := u / uint64(time.Hour)
	u -= h * uint64(time.Hour)
	m := u / uint64(time.Minute)
	u -= m * uint64(time.Minute)
	s := u / uint64(time.Second)
	ns := u % uint64(time.Second)
	if h > 0 {
		sb.WriteString(strconv.FormatUint(h, 10))
		sb.WriteByte('H')
	}
	if m > 0 {
		sb.WriteString(strconv.FormatUint(m, 10))
		sb.WriteByte('M')
	}
	if s > 0 || ns > 0 {
		sb.WriteString(strconv.FormatUint(s, 10))
		if ns > 0 {
			frac := fmt.Sprintf("%09d", ns)
			sb.WriteByte('.')
			sb.WriteString(strings.TrimRight(frac, "0"))
		}
		sb.WriteByte('S')
	}
	return sb.String()
}

var durationPattern = regexp2.MustCompile(
	`^([-+])?P(?:(\d+)W)?(?:(\d+)D)?(?:(T)(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)(?:[.,](\d{1,9}))?S)?)?$`,
	regexp2.None)

var errDurationOverflow = errors.New("duration out of range")

// parseDuration parses an ISO 8601 duration with weeks, days, hours,
// minutes and fractional seconds.
func parseDuration(s string) (time.Duration, error) {
	m, err := durationPattern.FindStringMatch(s)
	if err != nil {
		return 0, err
	}
	if m == nil {
		return 0, fmt.Errorf("invalid ISO 8601 duration %q", s)
	}
	group := func(n int) string {
		g := m.GroupByNumber(n)
		if g == nil || len(g.Captures) == 0 {
			return ""
		}
		return g.String()
	}
	weeks, days, hours, minutes, secs, frac := group(2), group(3), group(5), group(6), group(7), group(8)
	if weeks == "" && days == "" && hours == "" && minutes == "" && secs == "" {
		return 0, fmt.Errorf("invalid ISO 8601 duration %q", s)
	}
	if group(4) != "" && hours == "" && minutes == "" && secs == "" {
		return 0, fmt.Errorf("invalid ISO 8601 duration %q", s)
	}

	var total uint64
	add := func(digits string, unit time.Duration) error {
		if digits == "" {
			return nil
		}
		n, err := strconv.ParseUint(digits, 10, 64)
		if err != nil {
			return errDurationOverflow
		}
		if n > math.MaxInt64/uint64(unit) {
			return errDurationOverflow
		}
		total += n * uint64(unit)
		if total > 1<<63 {
			return errDurationOverflow
		}
		return nil
	}
	for _, part := range []struct {
		digits string
		unit   time.Duration
	}{
		{weeks, 7 * 24 * time.Hour},
		{days, 24 * time.Hour},
		{hours, time.Hour},
		{minutes, time.Minute},
		{secs, time.Second},
	} {
		if err := add(part.digits, part.unit); err != nil {
			return 0, err
		}
	}
	if frac != "" {
		ns, _ := strconv.ParseUint((frac + "00000000")[:9], 10, 64)
		total += ns
		if total > 1<<63 {
			return 0, errDurationOverflow
		}
	}

	if group(1) == "-" {
		if total == 1<<63 {
			return math.MinInt64, nil
		}
		return -time.Duration(total), nil
	}
	if total > math.MaxInt64 {
		return 0, errDurationOverflow
	}
	return time.Duration(total), nil
}
