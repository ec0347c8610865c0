package pricing

import (
	"math"
	"time"

	"github.com/oapi-codegen/runtime/types"
)

const DefaultDailyRate = 50.0

const day = 24 * time.Hour

type Engine struct {
	dailyRate float64
}

func NewEngine(dailyRate float64) Engine {
	return Engine{dailyRate: dailyRate}
}

func (e Engine) DailyRate() float64 {
	return e.dailyRate
}

// Days is the rental length: whole days in |end - start|, any partial day rounded up.
// The order of the two dates does not matter.
func Days(start time.Time, end time.Time) int {
	diff := end.Sub(start)
	if diff < 0 {
		diff = -diff
	}

	return int(math.Ceil(float64(diff) / float64(day)))
}

func (e Engine) Price(start time.Time, end time.Time) float64 {
	return float64(Days(start, end)) * e.dailyRate
}

// Quote prices a pair of calendar dates. It reports false while either date is unset.
func (e Engine) Quote(start types.Date, end types.Date) (float64, bool) {
	if start.Time.IsZero() || end.Time.IsZero() {
		return 0, false
	}

	return e.Price(start.Time, end.Time), true
}
