package tagjson

import (
	"math"
	"strconv"
	"strings"
)

// FormatOptions configures the text renderer.
type FormatOptions struct {
	// Indent puts every item on its own line, indented by this string per
	// level. Empty renders on a single line.
	Indent string
}

// Format renders a Value tree on a single line:
//
//	Example(a=1, b=[1, 2], c=None)
//	Truth<1>
//	(date(2024-01-02), {1, 2}, frozenset({3}))
func Format(v *Value) string {
	return FormatWithOptions(v, FormatOptions{})
}

// FormatWithOptions renders a Value tree with custom options.
func FormatWithOptions(v *Value, opts FormatOptions) string {
	f := &formatter{opts: opts}
	f.format(v, 0)
	return f.sb.String()
}

type formatter struct {
	sb   strings.Builder
	opts FormatOptions
}

func (f *formatter) format(v *Value, depth int) {
	switch v.Kind() {
	case KindNull:
		f.sb.WriteString("None")

	case KindBool:
		if v.boolVal {
			f.sb.WriteString("True")
		} else {
			f.sb.WriteString("False")
		}

	case KindInt:
		f.sb.WriteString(strconv.FormatInt(v.intVal, 10))

	case KindFloat:
		switch {
		case math.IsNaN(v.floatVal):
			f.sb.WriteString("nan")
		case math.IsInf(v.floatVal, 1):
			f.sb.WriteString("inf")
		case math.IsInf(v.floatVal, -1):
			f.sb.WriteString("-inf")
		default:
			f.sb.WriteString(formatFloat(v.floatVal))
		}

	case KindStr:
		f.sb.WriteString(strconv.Quote(v.strVal))

	case KindDate:
		f.call("date", v.dateVal.String())
	case KindDateTime:
		f.call("datetime", formatDateTime(v.dateTimeVal))
	case KindZonedDateTime:
		f.call("datetime", formatZoned(v.zonedVal))
	case KindTime:
		f.call("time", formatClock(v.timeVal))
	case KindTimeDelta:
		f.call("timedelta", formatDuration(v.deltaVal))
	case KindUUID:
		f.call("uuid", v.uuidVal.String())
	case KindPath:
		f.call("path", v.strVal)

	case KindList:
		f.formatItems(v, "[", "]", depth)

	case KindTuple:
		f.formatItems(v, "(", ")", depth)

	case KindSet:
		if len(v.items) == 0 && v.class == "" {
			f.sb.WriteString("set()")
			return
		}
		f.formatItems(v, "{", "}", depth)

	case KindFrozenSet:
		if v.class != "" {
			f.formatItems(v, "{", "}", depth)
			return
		}
		f.sb.WriteString("frozenset(")
		if len(v.items) > 0 {
			f.formatItems(v, "{", "}", depth)
		}
		f.sb.WriteString(")")

	case KindMap:
		f.open("{")
		for i, e := range v.entries {
			f.separate(i, depth+1)
			f.sb.WriteString(strconv.Quote(e.Key))
			f.sb.WriteString(": ")
			f.format(e.Value, depth+1)
		}
		f.close("}", len(v.entries), depth)

	case KindDataclass:
		f.sb.WriteString(v.class)
		f.open("(")
		for i, e := range v.entries {
			f.separate(i, depth+1)
			f.sb.WriteString(e.Key)
			f.sb.WriteString("=")
			f.format(e.Value, depth+1)
		}
		f.close(")", len(v.entries), depth)

	case KindEnum:
		f.sb.WriteString(v.class)
		f.sb.WriteString("<")
		f.format(v.inner, depth)
		f.sb.WriteString(">")
	}
}

// formatItems writes a sequence. Named collections are prefixed with their
// class: Name[...], Name(...), Name{...}.
func (f *formatter) formatItems(v *Value, left, right string, depth int) {
	f.sb.WriteString(v.class)
	f.open(left)
	for i, item := range v.items {
		f.separate(i, depth+1)
		f.format(item, depth+1)
	}
	if v.kind == KindTuple && len(v.items) == 1 && f.opts.Indent == "" {
		f.sb.WriteString(",")
	}
	f.close(right, len(v.items), depth)
}

func (f *formatter) call(name, arg string) {
	f.sb.WriteString(name)
	f.sb.WriteString("(")
	f.sb.WriteString(arg)
	f.sb.WriteString(")")
}

func (f *formatter) open(s string) {
	f.sb.WriteString(s)
}

func (f *formatter) separate(i, depth int) {
	if f.opts.Indent != "" {
		if i > 0 {
			f.sb.WriteString(",")
		}
		f.sb.WriteString("\n")
		f.writeIndent(depth)
		return
	}
	if i > 0 {
		f.sb.WriteString(", ")
	}
}

func (f *formatter) close(s string, n, depth int) {
	if f.opts.Indent != "" && n > 0 {
		f.sb.WriteString(",\n")
		f.writeIndent(depth)
	}
	f.sb.WriteString(s)
}

func (f *formatter) writeIndent(depth int) {
	for i := 0; i < depth; i++ {
		f.sb.WriteString(f.opts.Indent)
	}
}
