// Package rank derives summary views from normalized crypto records.
package rank

import (
	"math"
	"sort"

	"postcardfetch/internal/coingecko"
)

// Movers holds the top gainers and losers by 24h change. Losers are ordered
// worst-first.
type Movers struct {
	Gainers []coingecko.Coin
	Losers  []coingecko.Coin
}

// TopMovers ranks coins by 24h percentage change. Coins with no change value
// are excluded from ranking (they stay in any full listing, which this
// function does not touch).
func TopMovers(coins map[string]coingecko.Coin, n int) Movers {
	ranked := make([]coingecko.Coin, 0, len(coins))
	for _, coin := range coins {
		if coin.Change24h == nil {
			continue
		}
		ranked = append(ranked, coin)
	}

	sort.Slice(ranked, func(i, j int) bool {
		if *ranked[i].Change24h != *ranked[j].Change24h {
			return *ranked[i].Change24h > *ranked[j].Change24h
		}
		return ranked[i].ID < ranked[j].ID
	})

	if n > len(ranked) {
		n = len(ranked)
	}
	if n < 0 {
		n = 0
	}

	gainers := make([]coingecko.Coin, n)
	copy(gainers, ranked[:n])

	losers := make([]coingecko.Coin, n)
	for i := 0; i < n; i++ {
		losers[i] = ranked[len(ranked)-1-i]
	}

	return Movers{Gainers: gainers, Losers: losers}
}

// BestMover picks the coin with the largest absolute 24h change, for the
// personalized user view. Ties go to the better (lower) market-cap rank,
// then to the lexically smaller id for determinism. The second return is
// false when no coin has a change value.
func BestMover(coins map[string]coingecko.Coin) (coingecko.Coin, bool) {
	var best coingecko.Coin
	found := false

	for _, coin := range coins {
		if coin.Change24h == nil {
			continue
		}
		if !found || better(coin, best) {
			best = coin
			found = true
		}
	}

	return best, found
}

func better(a, b coingecko.Coin) bool {
	am, bm := math.Abs(*a.Change24h), math.Abs(*b.Change24h)
	if am != bm {
		return am > bm
	}
	ar, br := rankOrMax(a), rankOrMax(b)
	if ar != br {
		return ar < br
	}
	return a.ID < b.ID
}

func rankOrMax(c coingecko.Coin) int {
	if c.Rank == nil {
		return math.MaxInt
	}
	return *c.Rank
}
