package tagjson

import (
	"fmt"

	"github.com/dlclark/regexp2"
)

// Tag identifies an encoding category in the wire format.
type Tag string

const (
	TagDataclass      Tag = "dc"
	TagDate           Tag = "d"
	TagDateTime       Tag = "dt"
	TagEnum           Tag = "e"
	TagFloat          Tag = "fl"
	TagFrozenSet      Tag = "fr"
	TagList           Tag = "l"
	TagPath           Tag = "p"
	TagSet            Tag = "s"
	TagTimeDelta      Tag = "td"
	TagTime           Tag = "tm"
	TagTuple          Tag = "tu"
	TagUnserializable Tag = "un"
	TagUUID           Tag = "uu"
)

// Tags returns every tag in the registry.
func Tags() []Tag {
	return []Tag{
		TagDataclass, TagDate, TagDateTime, TagEnum, TagFloat, TagFrozenSet, TagList,
		TagPath, TagSet, TagTimeDelta, TagTime, TagTuple, TagUnserializable, TagUUID,
	}
}

// String returns the tag value.
func (t Tag) String() string {
	return string(t)
}

// Prefix returns the unit prefix "[tag]".
func (t Tag) Prefix() string {
	return "[" + string(t) + "]"
}

// Key returns the container key "[tag]" or "[tag|qualname]".
func (t Tag) Key(qualname string) string {
	if qualname == "" {
		return "[" + string(t) + "]"
	}
	return "[" + string(t) + "|" + qualname + "]"
}

// utcMarker replaces the bracketed zone name of datetimes in time.UTC.
const utcMarker = "dt.UTC"

// ============================================================
// Recognition Patterns
// ============================================================

const (
	datePart     = `\d{4}-\d{2}-\d{2}`
	dateTimePart = datePart + `T\d{2}:\d{2}:\d{2}(?:\.\d{1,9})?`
	offsetPart   = `[+-]\d{2}:\d{2}(?::\d{2})?`
)

type unitPattern struct {
	name string
	tag  Tag
	re   *regexp2.Regexp
}

func unitRegexp(t Tag) *regexp2.Regexp {
	return regexp2.MustCompile(`^\[`+string(t)+`\](.+)$`, regexp2.None)
}

// unitPatterns are tried in order against every decoded string.
var unitPatterns = []unitPattern{
	{"date", TagDate, unitRegexp(TagDate)},
	{"float", TagFloat, unitRegexp(TagFloat)},
	{"local_datetime", TagDateTime, regexp2.MustCompile(`^\[dt\](`+dateTimePart+`)$`, regexp2.None)},
	{"path", TagPath, unitRegexp(TagPath)},
	{"time", TagTime, unitRegexp(TagTime)},
	{"timedelta", TagTimeDelta, unitRegexp(TagTimeDelta)},
	{"uuid", TagUUID, unitRegexp(TagUUID)},
	{"zoned_datetime", TagDateTime, regexp2.MustCompile(
		`^\[dt\](`+dateTimePart+offsetPart+`)(?:\[(?!dt\.UTC\])([^\]]+)\])?$`, regexp2.None)},
	{"zoned_datetime_utc", TagDateTime, regexp2.MustCompile(
		`^\[dt\](`+dateTimePart+`\+00:00)\[dt\.UTC\]$`, regexp2.None)},
}

type containerPattern struct {
	tag Tag
	re  *regexp2.Regexp
}

func containerRegexp(t Tag) *regexp2.Regexp {
	return regexp2.MustCompile(`^\[`+string(t)+`(?:\|(.+))?\]$`, regexp2.None)
}

// containerPatterns are tried in order against the key of single-key objects.
var containerPatterns = []containerPattern{
	{TagFrozenSet, containerRegexp(TagFrozenSet)},
	{TagList, containerRegexp(TagList)},
	{TagSet, containerRegexp(TagSet)},
	{TagTuple, containerRegexp(TagTuple)},
	{TagDataclass, containerRegexp(TagDataclass)},
	{TagEnum, containerRegexp(TagEnum)},
}

// unitMatch is a recognized tagged string.
type unitMatch struct {
	pattern string
	tag     Tag
	payload string
	zone    string
}

// matchUnit tries the unit patterns in order. The first match wins.
func matchUnit(s string) (unitMatch, bool, error) {
	if len(s) < 3 || s[0] != '[' {
		return unitMatch{}, false, nil
	}
	for _, p := range unitPatterns {
		m, err := p.re.FindStringMatch(s)
		if err != nil {
			return unitMatch{}, false, fmt.Errorf("tagjson: match %s: %w", p.name, err)
		}
		if m == nil {
			continue
		}
		um := unitMatch{pattern: p.name, tag: p.tag, payload: m.GroupByNumber(1).String()}
		if g := m.GroupByNumber(2); g != nil && len(g.Captures) > 0 {
			um.zone = g.String()
		}
		return um, true, nil
	}
	return unitMatch{}, false, nil
}

// matchContainer tries the container patterns in order against an object key.
// The returned qualname is empty for the unqualified form.
func matchContainer(key string) (Tag, string, bool, error) {
	if len(key) < 3 || key[0] != '[' || key[len(key)-1] != ']' {
		return "", "", false, nil
	}
	for _, p := range containerPatterns {
		m, err := p.re.FindStringMatch(key)
		if err != nil {
			return "", "", false, fmt.Errorf("tagjson: match container %s: %w", p.tag, err)
		}
		if m == nil {
			continue
		}
		var qualname string
		if g := m.GroupByNumber(1); g != nil && len(g.Captures) > 0 {
			qualname = g.String()
		}
		return p.tag, qualname, true, nil
	}
	return "", "", false, nil
}
