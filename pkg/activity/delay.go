package activity

import (
	"math"
	"regexp"
	"strconv"
	"time"

	"storyfeed-api/models"
)

var relativeDateRe = regexp.MustCompile(`^\s*([+-]?\d+)\s+(minute|hour|day)s?\s*$`)

type relativeOffset struct {
	n    int
	unit string
}

func parseRelative(expr string) (relativeOffset, bool) {
	m := relativeDateRe.FindStringSubmatch(expr)
	if m == nil {
		return relativeOffset{}, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return relativeOffset{}, false
	}
	return relativeOffset{n: n, unit: m[2]}, true
}

var unitDurations = map[string]time.Duration{
	"minute": time.Minute,
	"hour":   time.Hour,
	"day":    24 * time.Hour,
}

// apply returns base unchanged when the offset does not fit in a Duration.
func (o relativeOffset) apply(base time.Time) time.Time {
	unit, ok := unitDurations[o.unit]
	if !ok {
		return base
	}
	limit := int64(math.MaxInt64 / unit)
	if n := int64(o.n); n > limit || n < -limit {
		return base
	}
	if o.unit == "day" {
		return base.AddDate(0, 0, o.n)
	}
	return base.Add(time.Duration(o.n) * unit)
}

// ShiftDate moves base by an expression such as "1 hour", "-59 minutes" or
// "3 days". Expressions that do not parse leave base unchanged.
func ShiftDate(base time.Time, expr string) time.Time {
	o, ok := parseRelative(expr)
	if !ok {
		return base
	}
	return o.apply(base)
}

// IsRelativeExpr reports whether expr is a valid ShiftDate expression.
func IsRelativeExpr(expr string) bool {
	_, ok := parseRelative(expr)
	return ok
}

// DelayPolicy postpones noisy activity types. A record of a delayed type only
// counts as new once its update time is past the shifted cutoff.
type DelayPolicy struct {
	catalog *Catalog
}

func NewDelayPolicy(c *Catalog) DelayPolicy {
	return DelayPolicy{catalog: c}
}

// EffectiveCutoff returns cutoff advanced by the delay configured for the
// record's type. A nil record or an undelayed type returns cutoff as is.
func (p DelayPolicy) EffectiveCutoff(record *models.ActivityRecord, cutoff time.Time) time.Time {
	if record == nil {
		return cutoff
	}
	e, ok := p.catalog.Classify(record.Type)
	if !ok || e.Delay == "" {
		return cutoff
	}
	return ShiftDate(cutoff, e.Delay)
}

// Visible reports whether record is newer than the delayed cutoff.
func (p DelayPolicy) Visible(record *models.ActivityRecord, cutoff time.Time) bool {
	if record == nil {
		return false
	}
	return p.EffectiveCutoff(record, cutoff).Before(record.Updated)
}
