package commission

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestRateForTiers(t *testing.T) {
	s := Default()
	cases := []struct {
		earned int64
		want   string
	}{
		{0, "0.2"},
		{2_000_000, "0.2"},
		{2_000_001, "0.1"},
		{40_000_000, "0.1"},
		{40_000_001, "0.05"},
	}
	for _, c := range cases {
		got := s.RateFor(c.earned)
		require.True(t, got.Equal(decimal.RequireFromString(c.want)),
			"earned=%d: got %s want %s", c.earned, got, c.want)
	}
}

func TestSplitNetPlusCommissionEqualsAmount(t *testing.T) {
	s := Default()
	for _, amount := range []int64{1, 99, 100, 12345, 1_000_000} {
		for _, earned := range []int64{0, 3_000_000, 50_000_000} {
			commission, net, _ := s.Split(amount, earned)
			require.Equal(t, amount, commission+net,
				"amount=%d earned=%d", amount, earned)
			require.GreaterOrEqual(t, commission, int64(0))
		}
	}
}

func TestSplitRounding(t *testing.T) {
	s := Default()
	// 20% of 99 kopiykas is 19.8, rounds to 20.
	commission, net, rate := s.Split(99, 0)
	require.Equal(t, int64(20), commission)
	require.Equal(t, int64(79), net)
	require.True(t, rate.Equal(decimal.RequireFromString("0.2")))
}
