package indicators

import (
	"fmt"
	"math"
	"strings"

	"github.com/kumbhanChoksi/Signals-Backend/internal/domain/models"
)

const (
	// CandleWindow is how many recent candles a job reads.
	CandleWindow = 50
	MinCandles   = 20
	FastPeriod   = 9
	SlowPeriod   = 21
	ATRPeriod    = 14

	volatilitySpikeFactor = 2
)

// GenerateSignal derives a BUY/SELL/HOLD signal from candles in ascending
// time order. The result depends only on the input.
func GenerateSignal(candles []models.Candle) models.SignalResult {
	if len(candles) < MinCandles {
		return models.SignalResult{
			Output:     models.OutputHold,
			Confidence: 0,
			Features:   models.Features{Trend: models.TrendNeutral},
			Vetoes:     []string{models.VetoInsufficientCandles},
			Summary:    "Insufficient candles to compute indicators.",
		}
	}

	closes := make([]float64, len(candles))
	var rangeSum float64
	for i, c := range candles {
		closes[i] = c.Close
		rangeSum += c.High - c.Low
	}

	emaFast := EMA(closes, FastPeriod)
	emaSlow := EMA(closes, SlowPeriod)

	trend := models.TrendNeutral
	switch {
	case emaFast > emaSlow:
		trend = models.TrendBullish
	case emaFast < emaSlow:
		trend = models.TrendBearish
	}

	atr := ATR(candles, ATRPeriod)
	avgRange := rangeSum / float64(len(candles))

	vetoes := []string{}
	if atr > avgRange*volatilitySpikeFactor {
		vetoes = append(vetoes, models.VetoVolatilitySpike)
	}

	var confidence float64
	if avgRange > 0 {
		confidence = math.Min(1, math.Abs(emaFast-emaSlow)/avgRange)
	}

	output := models.OutputHold
	if len(vetoes) == 0 {
		switch trend {
		case models.TrendBullish:
			output = models.OutputBuy
		case models.TrendBearish:
			output = models.OutputSell
		}
	}

	var summary string
	if len(vetoes) > 0 {
		summary = fmt.Sprintf("Vetoed by %s.", strings.Join(vetoes, ", "))
	} else {
		summary = fmt.Sprintf("Trend is %s.", trend)
	}
	summary += fmt.Sprintf(" EMA9=%.4f, EMA21=%.4f, ATR=%.4f.", emaFast, emaSlow, atr)

	return models.SignalResult{
		Output:     output,
		Confidence: confidence,
		Features: models.Features{
			EMAFast: emaFast,
			EMASlow: emaSlow,
			ATR:     atr,
			Trend:   trend,
		},
		Vetoes:  vetoes,
		Summary: summary,
	}
}
