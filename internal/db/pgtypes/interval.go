// Package pgtypes provides Go types for PostgreSQL values that need conversion
// beyond what pgx does out of the box.
package pgtypes

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

const (
	microsPerDay   = int64(24 * time.Hour / time.Microsecond)
	microsPerMonth = 30 * microsPerDay
)

// Interval maps a PostgreSQL INTERVAL onto a time.Duration.
// Lease visibility timeouts and staleness windows are passed to queries as Interval.
type Interval struct {
	Duration time.Duration
	Valid    bool
}

// NewInterval returns a valid Interval holding d
func NewInterval(d time.Duration) Interval {
	return Interval{Duration: d, Valid: true}
}

// Scan implements sql.Scanner
func (i *Interval) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*i = Interval{}
		return nil
	case pgtype.Interval:
		*i = fromPG(v)
		return nil
	case string:
		var pg pgtype.Interval
		if err := pg.Scan(v); err != nil {
			return fmt.Errorf("failed to parse interval %q: %w", v, err)
		}
		*i = fromPG(pg)
		return nil
	case []byte:
		return i.Scan(string(v))
	default:
		return fmt.Errorf("cannot scan %T into Interval", src)
	}
}

// Value implements driver.Valuer. Durations are sent as microseconds only and
// PostgreSQL normalizes them.
func (i Interval) Value() (driver.Value, error) {
	if !i.Valid {
		return nil, nil
	}
	return pgtype.Interval{Microseconds: i.Duration.Microseconds(), Valid: true}, nil
}

// ScanInterval implements pgtype.IntervalScanner so pgx can decode binary values directly
func (i *Interval) ScanInterval(v pgtype.Interval) error {
	*i = fromPG(v)
	return nil
}

// IntervalValue implements pgtype.IntervalValuer
func (i Interval) IntervalValue() (pgtype.Interval, error) {
	if !i.Valid {
		return pgtype.Interval{}, nil
	}
	return pgtype.Interval{Microseconds: i.Duration.Microseconds(), Valid: true}, nil
}

// String returns the duration form of the interval, or NULL
func (i Interval) String() string {
	if !i.Valid {
		return "NULL"
	}
	return i.Duration.String()
}

// fromPG converts days and months with fixed lengths of 24h and 30 days.
func fromPG(v pgtype.Interval) Interval {
	if !v.Valid {
		return Interval{}
	}
	micros := v.Microseconds + int64(v.Days)*microsPerDay + int64(v.Months)*microsPerMonth
	return Interval{Duration: time.Duration(micros) * time.Microsecond, Valid: true}
}
