package fibonacci

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

// swing builds three legs: 20 bars of first, 30 bars of second and 19 bars
// of third, starting at start.
func swing(start, first, second, third float64) []float64 {
	closes := []float64{start}
	for i := 1; i <= 20; i++ {
		closes = append(closes, start+first*float64(i))
	}
	pivot := closes[len(closes)-1]
	for i := 1; i <= 30; i++ {
		closes = append(closes, pivot+second*float64(i))
	}
	pivot = closes[len(closes)-1]
	for i := 1; i <= 19; i++ {
		closes = append(closes, pivot+third*float64(i))
	}
	return closes
}

func TestOrientationAndSignal(t *testing.T) {
	tests := []struct {
		name    string
		closes  []float64
		uptrend bool
		signal  string
	}{
		// 100 -> 80 -> 130 then a pullback onto the 0.236 retracement.
		{"uptrend pullback", swing(100, -1, 50.0/30, -0.55), true, SignalSupport},
		// 100 -> 120 -> 70 then a bounce into the 0.236 retracement.
		{"downtrend bounce", swing(100, 1, -50.0/30, 0.55), false, SignalResistance},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := New().Analyze(seriesFromCloses(tt.closes))
			if !res.OK() {
				t.Fatalf("unexpected status %s", res.Status)
			}
			if res.Uptrend != tt.uptrend {
				t.Fatalf("uptrend = %v, want %v (low@%d high@%d)", res.Uptrend, tt.uptrend, res.LowIndex, res.HighIndex)
			}
			if res.Signal != tt.signal {
				t.Fatalf("signal = %s, want %s (near %+v)", res.Signal, tt.signal, res.NearRet)
			}
		})
	}
}

func TestGridMonotonic(t *testing.T) {
	for _, up := range []bool{true, false} {
		ret, ext := Grid(200, 100, up)
		if len(ret) != len(Retracements) || len(ext) != len(Extensions) {
			t.Fatalf("unexpected grid sizes %d/%d", len(ret), len(ext))
		}
		for i := 1; i < len(ret); i++ {
			if up && ret[i].Price >= ret[i-1].Price {
				t.Fatalf("uptrend retracements must fall with ratio: %+v", ret)
			}
			if !up && ret[i].Price <= ret[i-1].Price {
				t.Fatalf("downtrend retracements must rise with ratio: %+v", ret)
			}
		}
		for i := 1; i < len(ext); i++ {
			if up && ext[i].Price <= ext[i-1].Price {
				t.Fatalf("uptrend extensions must rise with ratio: %+v", ext)
			}
			if !up && ext[i].Price >= ext[i-1].Price {
				t.Fatalf("downtrend extensions must fall with ratio: %+v", ext)
			}
		}
	}
	ret, _ := Grid(200, 100, true)
	if ret[2].Price != 150 {
		t.Fatalf("0.5 retracement should be the midpoint, got %.2f", ret[2].Price)
	}
}

func TestNoSwing(t *testing.T) {
	closes := make([]float64, 70)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	res := New().Analyze(seriesFromCloses(closes))
	if res.Signal != SignalHold || res.Reason == "" {
		t.Fatalf("expected HOLD with a reason, got %s %q", res.Signal, res.Reason)
	}
	if res.Trend != "uptrend" {
		t.Fatalf("expected uptrend label, got %s", res.Trend)
	}
}

func TestInsufficientData(t *testing.T) {
	res := New().Analyze(seriesFromCloses([]float64{1, 2, 3}))
	if res.Status != domain.StatusInsufficientData {
		t.Fatalf("expected insufficient data, got %s", res.Status)
	}
}
