package levels

import (
	"sort"

	"signalfuse/internal/ta"
)

// Profile is a volume-by-price histogram over evenly spaced bucket prices.
type Profile struct {
	Prices    []float64 `json:"-"`
	Volumes   []float64 `json:"-"`
	Total     float64   `json:"total"`
	POCIndex  int       `json:"poc_index"`
	ValueArea []int     `json:"value_area"`
	POC       float64   `json:"poc"`
	VAH       float64   `json:"vah"`
	VAL       float64   `json:"val"`
}

// BuildProfile spreads each bar's volume evenly over the buckets between the
// bucket holding its low and the bucket holding its high.
func BuildProfile(highs, lows, volumes []float64, bins int, share float64) Profile {
	if len(highs) == 0 || bins < 2 {
		return Profile{}
	}
	lo, hi := ta.Min(lows), ta.Max(highs)
	if lo >= hi {
		return Profile{}
	}

	prices := make([]float64, bins)
	step := (hi - lo) / float64(bins-1)
	for i := range prices {
		prices[i] = lo + step*float64(i)
	}
	prices[bins-1] = hi

	vol := make([]float64, bins)
	for i := range highs {
		from := bucketOf(prices, lows[i])
		to := bucketOf(prices, highs[i])
		if to > bins-1 {
			to = bins - 1
		}
		if from < 0 {
			from = 0
		}
		portion := volumes[i] / float64(to-from+1)
		for b := from; b <= to; b++ {
			vol[b] += portion
		}
	}

	p := Profile{Prices: prices, Volumes: vol}
	for i, v := range vol {
		p.Total += v
		if v > vol[p.POCIndex] {
			p.POCIndex = i
		}
	}
	p.POC = prices[p.POCIndex]
	if p.Total == 0 {
		p.VAH, p.VAL = hi, lo
		return p
	}

	p.ValueArea = valueArea(vol, p.Total*share)
	minIdx, maxIdx := p.ValueArea[0], p.ValueArea[0]
	for _, idx := range p.ValueArea {
		if idx < minIdx {
			minIdx = idx
		}
		if idx > maxIdx {
			maxIdx = idx
		}
	}
	p.VAL, p.VAH = prices[minIdx], prices[maxIdx]
	return p
}

// Share is the fraction of total volume inside the value area.
func (p Profile) Share() float64 {
	if p.Total == 0 {
		return 0
	}
	var sum float64
	for _, idx := range p.ValueArea {
		sum += p.Volumes[idx]
	}
	return sum / p.Total
}

// valueArea adds buckets in descending volume order until target is reached.
func valueArea(vol []float64, target float64) []int {
	order := make([]int, len(vol))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return vol[order[a]] > vol[order[b]] })

	var cum float64
	out := make([]int, 0, len(order))
	for _, idx := range order {
		cum += vol[idx]
		out = append(out, idx)
		if cum >= target {
			break
		}
	}
	return out
}

// bucketOf returns the index of the last bucket price not above v.
func bucketOf(prices []float64, v float64) int {
	return sort.Search(len(prices), func(i int) bool { return prices[i] > v }) - 1
}
