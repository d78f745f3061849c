package indicators

import (
	"math"

	"github.com/kumbhanChoksi/Signals-Backend/internal/domain/models"
)

// ATR returns the mean true range over the last period bars, or fewer when
// the series is shorter. Candles must be in ascending time order.
func ATR(candles []models.Candle, period int) float64 {
	if len(candles) < 2 || period <= 0 {
		return 0
	}

	ranges := make([]float64, 0, len(candles)-1)
	for i := 1; i < len(candles); i++ {
		cur := candles[i]
		prevClose := candles[i-1].Close
		tr := math.Max(cur.High-cur.Low, math.Max(math.Abs(cur.High-prevClose), math.Abs(cur.Low-prevClose)))
		ranges = append(ranges, tr)
	}

	if len(ranges) > period {
		ranges = ranges[len(ranges)-period:]
	}
	var sum float64
	for _, r := range ranges {
		sum += r
	}
	return sum / float64(len(ranges))
}
