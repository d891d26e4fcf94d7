package levels

import (
	"math"
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

func linear(start, step float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + step*float64(i)
	}
	return out
}

func TestValueAreaIsMinimalGreedySet(t *testing.T) {
	n := 60
	highs, lows, vols := make([]float64, n), make([]float64, n), make([]float64, n)
	for i := 0; i < n; i++ {
		center := 100 + 10*math.Sin(float64(i)/5)
		highs[i] = center + 2
		lows[i] = center - 2
		vols[i] = 1000 + float64(i*37%500)
	}
	p := BuildProfile(highs, lows, vols, DefaultBins, DefaultValueAreaShare)
	if p.Total <= 0 || len(p.ValueArea) == 0 {
		t.Fatalf("empty profile: %+v", p)
	}
	if p.Share() < DefaultValueAreaShare {
		t.Fatalf("value area share %.4f below target", p.Share())
	}

	in := map[int]bool{}
	var sum float64
	minIn := math.Inf(1)
	for _, idx := range p.ValueArea {
		in[idx] = true
		sum += p.Volumes[idx]
		minIn = math.Min(minIn, p.Volumes[idx])
	}
	lastAdded := p.Volumes[p.ValueArea[len(p.ValueArea)-1]]
	if sum-lastAdded >= p.Total*DefaultValueAreaShare {
		t.Fatal("value area is not minimal: dropping the last bucket still meets the target")
	}
	for i, v := range p.Volumes {
		if !in[i] && v > minIn {
			t.Fatalf("bucket %d (%.2f) outside value area exceeds smallest member %.2f", i, v, minIn)
		}
	}
	if p.VAL > p.POC || p.VAH < p.POC {
		t.Fatalf("poc %.2f outside value area [%.2f, %.2f]", p.POC, p.VAL, p.VAH)
	}
}

func TestProfileDegenerateRange(t *testing.T) {
	p := BuildProfile([]float64{10, 10}, []float64{10, 10}, []float64{5, 5}, DefaultBins, DefaultValueAreaShare)
	if p.POC != 0 || p.VAH != 0 || p.VAL != 0 {
		t.Fatalf("expected zero profile, got %+v", p)
	}
}

func TestRegimes(t *testing.T) {
	e := New(Options{})
	tests := []struct {
		name   string
		closes []float64
		want   string
	}{
		{"rising", linear(100, 1, 70), RegimeUptrend},
		{"falling", linear(130, -1, 70), RegimeDowntrend},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := e.Analyze(seriesFromCloses(tt.closes))
			if !res.OK() {
				t.Fatalf("unexpected status %s", res.Status)
			}
			if res.Signal != tt.want {
				t.Fatalf("expected %s, got %s (poc %.2f price %.2f)", tt.want, res.Signal, res.Profile.POC, res.Price)
			}
			if len(res.Supports) > keepPerSide || len(res.Resistances) > keepPerSide {
				t.Fatal("more than five levels retained per side")
			}
			for i, lv := range res.Supports {
				if lv.Price >= res.Price {
					t.Fatalf("support %.2f not below price %.2f", lv.Price, res.Price)
				}
				if i > 0 && lv.Price > res.Supports[i-1].Price {
					t.Fatal("supports not ordered nearest first")
				}
			}
			for i, lv := range res.Resistances {
				if lv.Price <= res.Price {
					t.Fatalf("resistance %.2f not above price %.2f", lv.Price, res.Price)
				}
				if i > 0 && lv.Price < res.Resistances[i-1].Price {
					t.Fatal("resistances not ordered nearest first")
				}
			}
		})
	}
}

func TestDistanceDefaultsWithoutLevels(t *testing.T) {
	res := New(Options{}).Analyze(seriesFromCloses(linear(100, 1, 70)))
	if len(res.Resistances) == 0 && res.ResistanceDistancePct != noLevelPct {
		t.Fatalf("expected %.0f with no resistance, got %.2f", noLevelPct, res.ResistanceDistancePct)
	}
	if len(res.Supports) == 0 {
		t.Fatal("a rising series should have the poc below price")
	}
}

func TestInsufficientData(t *testing.T) {
	res := New(Options{}).Analyze(seriesFromCloses(linear(100, 1, 10)))
	if res.Status != domain.StatusInsufficientData {
		t.Fatalf("expected insufficient data, got %s", res.Status)
	}
}

func TestFindGaps(t *testing.T) {
	highs := []float64{10, 13, 13, 9}
	lows := []float64{9, 11, 12, 8}
	gaps := findGaps(highs, lows)
	if len(gaps) != 2 {
		t.Fatalf("expected 2 gaps, got %+v", gaps)
	}
	if gaps[0].Kind != KindGapUp || gaps[0].Level != 10 {
		t.Fatalf("unexpected gap up %+v", gaps[0])
	}
	if gaps[1].Kind != KindGapDown || gaps[1].Level != 12 {
		t.Fatalf("unexpected gap down %+v", gaps[1])
	}
}

func TestATRConstantRange(t *testing.T) {
	n := 20
	closes := make([]float64, n)
	highs := make([]float64, n)
	lows := make([]float64, n)
	for i := range closes {
		closes[i], highs[i], lows[i] = 50, 51, 49
	}
	if got := atr(highs, lows, closes); got != 2 {
		t.Fatalf("expected atr 2, got %v", got)
	}
	if got := atr(highs[:14], lows[:14], closes[:14]); got != 0 {
		t.Fatalf("expected 0 with too few bars, got %v", got)
	}
}
