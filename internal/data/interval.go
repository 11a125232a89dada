package data

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

type IntervalUnit string

const (
	UnitMinute IntervalUnit = "m"
	UnitHour   IntervalUnit = "h"
	UnitDay    IntervalUnit = "d"
	UnitWeek   IntervalUnit = "wk"
	UnitMonth  IntervalUnit = "mo"
)

// Interval is a bar size such as 1h or 15m.
type Interval struct {
	N    int
	Unit IntervalUnit
}

func (i Interval) String() string { return strconv.Itoa(i.N) + string(i.Unit) }

var intervalRe = regexp.MustCompile(`^(\d+)(m|h|d|wk|mo)$`)

// ParseInterval accepts "<n><unit>" with unit one of m, h, d, wk, mo.
func ParseInterval(s string) (Interval, error) {
	m := intervalRe.FindStringSubmatch(strings.ToLower(strings.TrimSpace(s)))
	if m == nil {
		return Interval{}, fmt.Errorf("invalid interval %q, expected e.g. 1d, 1h, 15m", s)
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n < 1 {
		return Interval{}, fmt.Errorf("invalid interval %q", s)
	}
	iv := Interval{N: n, Unit: IntervalUnit(m[2])}
	switch iv.Unit {
	case UnitMinute:
		if n > 59 {
			return Interval{}, fmt.Errorf("invalid interval %q: minutes must be 1-59", s)
		}
	case UnitHour:
		if n > 23 {
			return Interval{}, fmt.Errorf("invalid interval %q: hours must be 1-23", s)
		}
	case UnitDay, UnitWeek:
		if n != 1 {
			return Interval{}, fmt.Errorf("invalid interval %q: only 1%s is supported", s, iv.Unit)
		}
	case UnitMonth:
		if n > 12 {
			return Interval{}, fmt.Errorf("invalid interval %q: months must be 1-12", s)
		}
	}
	return iv, nil
}
