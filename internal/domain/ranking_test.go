package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeTrustScore(t *testing.T) {
	assert.Equal(t, 21, ComputeTrustScore(5, 2))
	assert.Equal(t, 98, ComputeTrustScore(20, 1))
	assert.Equal(t, 0, ComputeTrustScore(0, 0))
	assert.Equal(t, -6, ComputeTrustScore(0, 3))
}

func TestGetRank_Scenarios(t *testing.T) {
	assert.Equal(t, RankInitiate, GetRank(ComputeTrustScore(5, 2)))
	assert.Equal(t, RankSigma, GetRank(ComputeTrustScore(20, 1)))
}

func TestGetRank_Thresholds(t *testing.T) {
	assert.Equal(t, RankInitiate, GetRank(-100))
	assert.Equal(t, RankInitiate, GetRank(0))
	assert.Equal(t, RankInitiate, GetRank(29))
	assert.Equal(t, RankAnalyst, GetRank(30))
	assert.Equal(t, RankAnalyst, GetRank(74))
	assert.Equal(t, RankSigma, GetRank(75))
	assert.Equal(t, RankSigma, GetRank(149))
	assert.Equal(t, RankApex, GetRank(150))
	assert.Equal(t, RankApex, GetRank(10_000))
}

func TestGetRank_Monotonic(t *testing.T) {
	prev := GetRank(-50)
	for score := -49; score <= 300; score++ {
		cur := GetRank(score)
		assert.LessOrEqual(t, prev.Score, cur.Score, "score=%d", score)
		prev = cur
	}
}

func TestRank_Next(t *testing.T) {
	next, ok := RankInitiate.Next()
	require.True(t, ok)
	assert.Equal(t, RankAnalyst, next)

	_, ok = RankApex.Next()
	assert.False(t, ok)
}

func TestNewUserStats_NoBets(t *testing.T) {
	s := NewUserStats("0xabc", 0, 0)
	assert.Equal(t, 0, s.TotalBets)
	assert.Equal(t, 0.0, s.Accuracy)
	assert.Equal(t, 0, s.TrustScore)
}

func TestNewUserStats_Accuracy(t *testing.T) {
	s := NewUserStats("0xabc", 3, 1)
	assert.Equal(t, 4, s.TotalBets)
	assert.InDelta(t, 75.0, s.Accuracy, 1e-9)
	assert.Equal(t, 13, s.TrustScore)
}

func TestRankLeaderboard_Empty(t *testing.T) {
	entries := RankLeaderboard(nil)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}

func TestRankLeaderboard_Ordering(t *testing.T) {
	users := []UserStats{
		NewUserStats("0xlow", 1, 0),  // 5, 1 bet
		NewUserStats("0xtop", 20, 1), // 98
		NewUserStats("0xzero", 0, 0), // 0
		NewUserStats("0xbusy", 3, 5), // 5, 8 bets
		NewUserStats("0xneg", 0, 4),  // -8
	}
	entries := RankLeaderboard(users)
	require.Len(t, entries, 5)

	var order []string
	for _, e := range entries {
		order = append(order, e.Stats.Address)
	}
	assert.Equal(t, []string{"0xtop", "0xbusy", "0xlow", "0xzero", "0xneg"}, order)
	assert.Equal(t, 1, entries[0].Position)
	assert.Equal(t, 5, entries[4].Position)
	assert.Equal(t, RankSigma, entries[0].Rank)
	assert.Equal(t, RankInitiate, entries[3].Rank, "usuarios sin apuestas aparecen igual")
}

func TestRankLeaderboard_StableOnTies(t *testing.T) {
	users := []UserStats{
		NewUserStats("0xa", 2, 1),
		NewUserStats("0xb", 2, 1),
		NewUserStats("0xc", 2, 1),
	}
	entries := RankLeaderboard(users)
	assert.Equal(t, "0xa", entries[0].Stats.Address)
	assert.Equal(t, "0xb", entries[1].Stats.Address)
	assert.Equal(t, "0xc", entries[2].Stats.Address)

	// la entrada no se modifica
	assert.Equal(t, "0xa", users[0].Address)
}

func TestUserStatsFromPortfolio(t *testing.T) {
	s := UserStatsFromPortfolio("0xabc", PortfolioStats{Wins: 20, Losses: 1, Pending: 4})
	assert.Equal(t, 98, s.TrustScore)
	assert.Equal(t, 21, s.TotalBets)
}
