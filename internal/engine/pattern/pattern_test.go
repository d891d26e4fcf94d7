package pattern

import (
	"testing"
	"time"

	"signalfuse/internal/domain"
)

func seriesFromCloses(closes []float64) domain.Series {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := domain.Series{Code: "TEST"}
	for i, c := range closes {
		s.Bars = append(s.Bars, domain.Bar{
			Date: start.AddDate(0, 0, i), Open: c, High: c + 1, Low: c - 1, Close: c, Volume: 1000,
		})
	}
	return s
}

// doubleBottomCloses falls to 100, rallies to 110, retests 100 and then
// breaks out well above the intervening high.
func doubleBottomCloses() []float64 {
	var closes []float64
	for i := 0; i <= 30; i++ {
		closes = append(closes, 130-float64(i))
	}
	for i := 1; i <= 10; i++ {
		closes = append(closes, 100+float64(i))
	}
	for i := 1; i <= 10; i++ {
		closes = append(closes, 110-float64(i))
	}
	for i := 1; i <= 19; i++ {
		closes = append(closes, 100+1.3*float64(i))
	}
	return closes
}

func TestDoubleBottomScenario(t *testing.T) {
	res := New().Analyze(seriesFromCloses(doubleBottomCloses()))
	if !res.OK() {
		t.Fatalf("unexpected status %s", res.Status)
	}
	var found *Detection
	for i := range res.Detected {
		if res.Detected[i].Pattern == "double_bottom" {
			found = &res.Detected[i]
		}
	}
	if found == nil {
		t.Fatalf("double_bottom not detected: %v", res.Names())
	}
	if found.Confidence != 85 || found.Signal != SignalBuy {
		t.Fatalf("unexpected detection %+v", *found)
	}
	if found.Target <= seriesFromCloses(doubleBottomCloses()).Last().Close {
		t.Fatalf("target %.2f should sit above the breakout close", found.Target)
	}
	if res.Signal != SignalBuy {
		t.Fatalf("expected aggregate BUY, got %s (%v)", res.Signal, res.Names())
	}
	if res.Has("double_top") {
		t.Fatal("double_top should not fire on a single swing high")
	}
}

func TestInsufficientData(t *testing.T) {
	res := New().Analyze(seriesFromCloses(make([]float64, 10)))
	if res.Status != domain.StatusInsufficientData {
		t.Fatalf("expected insufficient data, got %s", res.Status)
	}
}

func TestAggregate(t *testing.T) {
	tests := []struct {
		buy, sell int
		total     float64
		want      string
	}{
		{0, 0, 0, SignalHold},
		{1, 1, 200, SignalHold},
		{1, 0, 85, SignalBuy},
		{2, 0, 151, SignalStrongBuy},
		{2, 1, 150, SignalBuy},
		{0, 1, 70, SignalSell},
		{0, 2, 160, SignalStrongSell},
	}
	for _, tt := range tests {
		if got := aggregate(tt.buy, tt.sell, tt.total); got != tt.want {
			t.Errorf("aggregate(%d,%d,%.0f) = %s, want %s", tt.buy, tt.sell, tt.total, got, tt.want)
		}
	}
}

func TestDetectionSides(t *testing.T) {
	if !(Detection{Signal: "VOLUME_BUY"}).IsBuy() || !(Detection{Signal: "STRONG_SELL"}).IsSell() {
		t.Fatal("side tagging failed")
	}
	if (Detection{Signal: "MOMENTUM"}).IsBuy() || (Detection{Signal: "REVERSAL_WARNING"}).IsSell() {
		t.Fatal("neutral tags must not count toward a side")
	}
}

func TestCandleDetectors(t *testing.T) {
	tests := []struct {
		name   string
		cols   ohlcv
		detect detector
		want   string
	}{
		{
			name:   "hammer",
			cols:   ohlcv{open: []float64{10, 10}, close: []float64{10, 10.5}, high: []float64{11, 10.6}, low: []float64{9, 8}},
			detect: hammer,
			want:   "hammer",
		},
		{
			name:   "shooting star",
			cols:   ohlcv{open: []float64{10, 10.5}, close: []float64{10, 10}, high: []float64{11, 12}, low: []float64{9, 9.9}},
			detect: shootingStar,
			want:   "shooting_star",
		},
		{
			name:   "bullish engulfing",
			cols:   ohlcv{open: []float64{10, 11, 9.5}, close: []float64{10, 10, 11.5}, high: []float64{11, 11, 12}, low: []float64{9, 9.8, 9.4}},
			detect: bullishEngulfing,
			want:   "bullish_engulfing",
		},
		{
			name: "three white soldiers",
			cols: ohlcv{
				open:  []float64{9, 10, 11, 12},
				close: []float64{9, 11, 12, 13},
				high:  []float64{9, 11, 12, 13},
				low:   []float64{9, 10, 11, 12},
			},
			detect: threeWhiteSoldiers,
			want:   "three_white_soldiers",
		},
		{
			name:   "gap up",
			cols:   ohlcv{open: []float64{10, 12}, close: []float64{10, 12.5}, high: []float64{10.5, 13}, low: []float64{9.5, 11}},
			detect: gapUp,
			want:   "gap_up",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, ok := tt.detect(tt.cols)
			if !ok || d.Pattern != tt.want {
				t.Fatalf("expected %s, got %+v ok=%v", tt.want, d, ok)
			}
		})
	}
}

func TestVolumeSpike(t *testing.T) {
	vol := make([]float64, 21)
	closes := make([]float64, 21)
	for i := range vol {
		vol[i] = 100
		closes[i] = 50
	}
	vol[20] = 250
	closes[20] = 51
	d, ok := volumeSpike(ohlcv{volume: vol, close: closes})
	if !ok || d.Signal != "VOLUME_BUY" || d.VolRatio != 2.5 {
		t.Fatalf("unexpected spike %+v ok=%v", d, ok)
	}
	vol[20] = 200
	if _, ok := volumeSpike(ohlcv{volume: vol, close: closes}); ok {
		t.Fatal("exactly 2x average must not count as a spike")
	}
}
