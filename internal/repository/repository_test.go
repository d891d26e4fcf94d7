package repository

import (
	"testing"

	"signalfuse/internal/store"
)

var (
	_ store.PositionStore = (*PositionRepository)(nil)
	_ store.TradeStore    = (*TradeRepository)(nil)
	_ store.StatsStore    = (*StatsRepository)(nil)
)

func TestReverse(t *testing.T) {
	tests := []struct {
		in, want []int
	}{
		{nil, nil},
		{[]int{1}, []int{1}},
		{[]int{1, 2, 3, 4}, []int{4, 3, 2, 1}},
		{[]int{1, 2, 3}, []int{3, 2, 1}},
	}
	for _, tt := range tests {
		reverse(tt.in)
		for i := range tt.want {
			if tt.in[i] != tt.want[i] {
				t.Fatalf("expected %v, got %v", tt.want, tt.in)
			}
		}
	}
}

func TestNonNil(t *testing.T) {
	if got := nonNil(nil); got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", got)
	}
}
