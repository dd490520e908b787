// Package indicators computes standard technical indicators over bar
// series. Warmup positions where an indicator is undefined hold NaN so
// every output series stays aligned with its input.
package indicators

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
)

// Tick is one bar of market data.
type Tick struct {
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

// Standard parameterizations used by the snapshot computation.
const (
	RSIPeriod       = 14
	MACDFast        = 12
	MACDSlow        = 26
	MACDSignal      = 9
	BollingerPeriod = 20
	BollingerMult   = 2.0
	ATRPeriod       = 14
)

// RSI computes Wilder's relative strength index. Positions before the
// first full period are NaN; a period with no losses reads 100.
func RSI(closes []float64, period int) []float64 {
	out := nanSlice(len(closes))
	if len(closes) <= period || period < 1 {
		return out
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	out[period] = rsiValue(avgGain, avgLoss)

	p := float64(period)
	for i := period + 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*(p-1) + gain) / p
		avgLoss = (avgLoss*(p-1) + loss) / p
		out[i] = rsiValue(avgGain, avgLoss)
	}
	return out
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// EMA computes an exponential moving average seeded with the simple
// average of the first period values.
func EMA(values []float64, period int) []float64 {
	out := nanSlice(len(values))
	if len(values) < period || period < 1 {
		return out
	}

	var sum float64
	for i := 0; i < period; i++ {
		sum += values[i]
	}
	prev := sum / float64(period)
	out[period-1] = prev

	k := 2 / (float64(period) + 1)
	for i := period; i < len(values); i++ {
		prev = values[i]*k + prev*(1-k)
		out[i] = prev
	}
	return out
}

// MACD computes the 12/26/9 moving average convergence divergence. The
// line is defined from index MACDSlow-1, the signal and histogram from
// index MACDSlow-2+MACDSignal.
func MACD(closes []float64) (line, signal, histogram []float64) {
	fast := EMA(closes, MACDFast)
	slow := EMA(closes, MACDSlow)

	line = nanSlice(len(closes))
	for i := MACDSlow - 1; i < len(closes); i++ {
		line[i] = fast[i] - slow[i]
	}

	signal = nanSlice(len(closes))
	histogram = nanSlice(len(closes))
	if len(closes) < MACDSlow {
		return line, signal, histogram
	}

	sigOver := EMA(line[MACDSlow-1:], MACDSignal)
	for i, v := range sigOver {
		idx := MACDSlow - 1 + i
		signal[idx] = v
		if !math.IsNaN(v) {
			histogram[idx] = line[idx] - v
		}
	}
	return line, signal, histogram
}

// Bollinger computes period-SMA bands at mult population standard
// deviations, plus %B. A zero-width band reads %B 0.5.
func Bollinger(closes []float64, period int, mult float64) (upper, middle, lower, percentB []float64) {
	n := len(closes)
	upper, middle, lower, percentB = nanSlice(n), nanSlice(n), nanSlice(n), nanSlice(n)
	if n < period || period < 1 {
		return upper, middle, lower, percentB
	}

	for i := period - 1; i < n; i++ {
		window := closes[i-period+1 : i+1]
		var sum float64
		for _, v := range window {
			sum += v
		}
		mean := sum / float64(period)

		var variance float64
		for _, v := range window {
			d := v - mean
			variance += d * d
		}
		std := math.Sqrt(variance / float64(period))

		middle[i] = mean
		upper[i] = mean + mult*std
		lower[i] = mean - mult*std

		width := upper[i] - lower[i]
		if width == 0 {
			percentB[i] = 0.5
		} else {
			percentB[i] = (closes[i] - lower[i]) / width
		}
	}
	return upper, middle, lower, percentB
}

// ATR computes Wilder's average true range. The first true range uses
// high minus low since there is no prior close.
func ATR(ticks []Tick, period int) []float64 {
	out := nanSlice(len(ticks))
	if len(ticks) <= period || period < 1 {
		return out
	}

	tr := make([]float64, len(ticks))
	tr[0] = ticks[0].High - ticks[0].Low
	for i := 1; i < len(ticks); i++ {
		hl := ticks[i].High - ticks[i].Low
		hc := math.Abs(ticks[i].High - ticks[i-1].Close)
		lc := math.Abs(ticks[i].Low - ticks[i-1].Close)
		tr[i] = math.Max(hl, math.Max(hc, lc))
	}

	var sum float64
	for i := 1; i <= period; i++ {
		sum += tr[i]
	}
	prev := sum / float64(period)
	out[period] = prev

	p := float64(period)
	for i := period + 1; i < len(ticks); i++ {
		prev = (prev*(p-1) + tr[i]) / p
		out[i] = prev
	}
	return out
}

// Series is a float series whose NaN warmup positions encode as JSON
// null.
type Series []float64

// MarshalJSON writes null for NaN so the series survives JSON, which
// has no NaN literal.
func (s Series) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, v := range s {
		if i > 0 {
			buf.WriteByte(',')
		}
		if math.IsNaN(v) {
			buf.WriteString("null")
			continue
		}
		b, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		buf.Write(b)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads null back as NaN.
func (s *Series) UnmarshalJSON(data []byte) error {
	var raw []*float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Series, len(raw))
	for i, v := range raw {
		if v == nil {
			out[i] = math.NaN()
		} else {
			out[i] = *v
		}
	}
	*s = out
	return nil
}

// Snapshot bundles every indicator series for one symbol, aligned by
// index with Timestamps.
type Snapshot struct {
	Symbol        string  `json:"symbol"`
	Timestamps    []int64 `json:"timestamps"`
	RSI           Series  `json:"rsi"`
	MACDLine      Series  `json:"macdLine"`
	MACDSignal    Series  `json:"macdSignal"`
	MACDHistogram Series  `json:"macdHistogram"`
	BBUpper       Series  `json:"bbUpper"`
	BBMiddle      Series  `json:"bbMiddle"`
	BBLower       Series  `json:"bbLower"`
	PercentB      Series  `json:"percentB"`
	ATR           Series  `json:"atr"`
}

// Compute evaluates the standard indicator set over ticks.
func Compute(symbol string, ticks []Tick) (*Snapshot, error) {
	if len(ticks) == 0 {
		return nil, fmt.Errorf("compute indicators for %s: no ticks", symbol)
	}

	closes := make([]float64, len(ticks))
	timestamps := make([]int64, len(ticks))
	for i, t := range ticks {
		closes[i] = t.Close
		timestamps[i] = t.Timestamp
	}

	line, signal, histogram := MACD(closes)
	upper, middle, lower, percentB := Bollinger(closes, BollingerPeriod, BollingerMult)

	return &Snapshot{
		Symbol:        symbol,
		Timestamps:    timestamps,
		RSI:           Series(RSI(closes, RSIPeriod)),
		MACDLine:      Series(line),
		MACDSignal:    Series(signal),
		MACDHistogram: Series(histogram),
		BBUpper:       Series(upper),
		BBMiddle:      Series(middle),
		BBLower:       Series(lower),
		PercentB:      Series(percentB),
		ATR:           Series(ATR(ticks, ATRPeriod)),
	}, nil
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
