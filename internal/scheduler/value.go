package scheduler

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"scrum/internal/models"
)

// Value is an analytic quantity that may have no finite value.
type Value struct {
	v  float64
	ok bool
}

// Defined wraps f; NaN and infinities become undefined.
func Defined(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{}
	}
	return Value{v: f, ok: true}
}

// Undefined is the value of a quantity that cannot be computed.
func Undefined() Value { return Value{} }

// ratio divides, returning undefined when den is zero.
func ratio(num, den float64) Value {
	if den == 0 {
		return Undefined()
	}
	return Defined(num / den)
}

// OK reports whether the value is defined.
func (v Value) OK() bool { return v.ok }

// Float returns the value or ErrUndefined.
func (v Value) Float() (float64, error) {
	if !v.ok {
		return 0, models.Undefinedf("no finite value")
	}
	return v.v, nil
}

func (v Value) String() string {
	if !v.ok {
		return "N/A"
	}
	return fmt.Sprintf("%.2f", v.v)
}

// MarshalJSON renders undefined values as null.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.ok {
		return []byte("null"), nil
	}
	return json.Marshal(v.v)
}

// Instant is a point in time that may be undefined.
type Instant struct {
	t  time.Time
	ok bool
}

// Time returns the instant or ErrUndefined.
func (i Instant) Time() (time.Time, error) {
	if !i.ok {
		return time.Time{}, models.Undefinedf("no projected instant")
	}
	return i.t, nil
}

// OK reports whether the instant is defined.
func (i Instant) OK() bool { return i.ok }

func (i Instant) String() string {
	if !i.ok {
		return "N/A"
	}
	return i.t.Format(time.DateTime)
}

// MarshalJSON renders undefined instants as null.
func (i Instant) MarshalJSON() ([]byte, error) {
	if !i.ok {
		return []byte("null"), nil
	}
	return json.Marshal(i.t)
}
