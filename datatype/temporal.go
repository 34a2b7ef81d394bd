package datatype

import (
	"errors"
	"strings"
	"time"

	"github.com/oarkflow/date"
)

var (
	Date     = register(temporalAdapter{name: "date", zoned: dateZoned, plain: datePlain})
	DateTime = register(temporalAdapter{name: "date-time", zoned: dateTimeZoned, plain: dateTimePlain})
)

const (
	dateZoned     = "2006-01-02Z07:00"
	datePlain     = "2006-01-02"
	dateTimeZoned = time.RFC3339Nano
	dateTimePlain = "2006-01-02T15:04:05.999999999"
)

// TimeValue is a parsed date or date-time. Zoned records whether the lexical
// form carried a time zone, so that formatting reproduces it.
type TimeValue struct {
	time.Time
	Zoned bool
}

type temporalAdapter struct {
	name         string
	zoned, plain string
}

func (a temporalAdapter) Name() string                { return a.name }
func (a temporalAdapter) JSONKind() JSONKind          { return JSONString }
func (a temporalAdapter) DefaultJSONValueKey() string { return "STRVALUE" }

// Parse accepts the canonical XML Schema forms first and falls back to the
// lenient parser for other common notations. A lenient value is zoned when
// its text names a zone or offset. A date must not carry a time of day.
func (a temporalAdapter) Parse(text string) (any, error) {
	s := strings.TrimSpace(text)
	if t, err := time.Parse(a.zoned, s); err == nil {
		return TimeValue{Time: t, Zoned: true}, nil
	}
	if t, err := time.Parse(a.plain, s); err == nil {
		return TimeValue{Time: t}, nil
	}
	tv, err := lenient(s)
	if err != nil {
		return nil, formatErr(a, text, err)
	}
	if a.name == "date" && !midnight(tv.Time) {
		return nil, formatErr(a, text, errTimeOfDay)
	}
	return tv, nil
}

var (
	errTimeOfDay = errors.New("date carries a time of day")
	// altZone is any location other than UTC; text without a zone parses
	// to different instants in the two.
	altZone = time.FixedZone("", 5*3600+1800)
)

func lenient(s string) (TimeValue, error) {
	t, err := date.ParseIn(s, time.UTC)
	if err != nil {
		return TimeValue{}, err
	}
	alt, err := date.ParseIn(s, altZone)
	if err != nil {
		return TimeValue{}, err
	}
	return TimeValue{Time: t, Zoned: alt.Equal(t)}, nil
}

func midnight(t time.Time) bool {
	h, m, sec := t.Clock()
	return h == 0 && m == 0 && sec == 0 && t.Nanosecond() == 0
}

func (a temporalAdapter) Format(v any) (string, error) {
	switch t := v.(type) {
	case TimeValue:
		if t.Zoned {
			return t.Format(a.zoned), nil
		}
		return t.Format(a.plain), nil
	case time.Time:
		return t.Format(a.zoned), nil
	case string:
		if _, err := a.Parse(t); err != nil {
			return "", err
		}
		return t, nil
	}
	return "", typeErr(a, v)
}
