package field

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Date is a calendar date without time-of-day or zone. The zero Date stands
// for "no date" and transports as JSON null.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf truncates t to its calendar date in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

func (d Date) IsZero() bool { return d == Date{} }

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

type dateCodec struct{}

func (dateCodec) Encode(v any) (any, error) {
	d, ok := v.(Date)
	if !ok {
		return nil, fmt.Errorf("want field.Date, got %T", v)
	}
	if d.IsZero() {
		return nil, nil
	}
	return []any{d.Year, int(d.Month), d.Day}, nil
}

func (dateCodec) Decode(raw any) (any, error) {
	if raw == nil {
		return Date{}, nil
	}
	triple, ok := raw.([]any)
	if !ok || len(triple) != 3 {
		return nil, fmt.Errorf("want [year, month, day], got %v", raw)
	}
	y, err := asInt(triple[0])
	if err != nil {
		return nil, err
	}
	m, err := asInt(triple[1])
	if err != nil {
		return nil, err
	}
	d, err := asInt(triple[2])
	if err != nil {
		return nil, err
	}
	return Date{Year: int(y), Month: time.Month(m), Day: int(d)}, nil
}

// datetimeCodec transports an instant as a UTC unix timestamp: a bare
// integer for whole seconds, "<sec>.<6-digit-zero-padded-micros>" when the
// instant carries sub-second precision. The zero time transports as null.
type datetimeCodec struct{}

func (datetimeCodec) Encode(v any) (any, error) {
	t, ok := v.(time.Time)
	if !ok {
		return nil, fmt.Errorf("want time.Time, got %T", v)
	}
	if t.IsZero() {
		return nil, nil
	}
	sec := t.Unix()
	if micro := t.Nanosecond() / int(time.Microsecond); micro != 0 {
		return fmt.Sprintf("%d.%06d", sec, micro), nil
	}
	return sec, nil
}

func (datetimeCodec) Decode(raw any) (any, error) {
	if raw == nil {
		return time.Time{}, nil
	}
	if s, ok := raw.(string); ok {
		secs, micros, found := strings.Cut(s, ".")
		if !found {
			return nil, fmt.Errorf("want \"<sec>.<micros>\", got %q", s)
		}
		sec, err := strconv.ParseInt(secs, 10, 64)
		if err != nil {
			return nil, err
		}
		micro, err := strconv.ParseInt(micros, 10, 64)
		if err != nil {
			return nil, err
		}
		return time.Unix(sec, micro*int64(time.Microsecond)).UTC(), nil
	}
	sec, err := asInt(raw)
	if err != nil {
		return nil, err
	}
	return time.Unix(sec, 0).UTC(), nil
}

// asInt accepts the numeric shapes a value can take before and after a JSON
// round trip.
func asInt(v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int64:
		return n, nil
	case float64:
		return int64(n), nil
	case json.Number:
		return n.Int64()
	default:
		return 0, fmt.Errorf("want integer, got %T", v)
	}
}
