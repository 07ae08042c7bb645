package mockchain_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alejandrodnm/intuibets/internal/adapters/mockchain"
	"github.com/alejandrodnm/intuibets/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixtureYAML = `
fee_bps: 250
events:
  - id: "1"
    question: "Will ETH close above 4k?"
    status: finished
    yes_pool: "6000"
    no_pool: "4000"
    winning_outcome: yes
    end_date: 2025-06-01T00:00:00Z
  - id: "2"
    question: "Will the vote pass?"
    status: open
    yes_pool: "0"
    no_pool: "0"
    min_stake: "1"
    max_stake: "100"
bets:
  "0xAbC":
    - event_id: "1"
      yes: "1000"
  "0xdef":
    - event_id: "1"
      no: "4000"
      claimed: false
`

func writeFixture(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixture.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func load(t *testing.T) *mockchain.Reader {
	t.Helper()
	r, err := mockchain.Load(writeFixture(t, fixtureYAML))
	require.NoError(t, err)
	return r
}

func TestLoad_Events(t *testing.T) {
	r := load(t)
	events, err := r.GetAllEvents(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 2)

	ev := events[0]
	assert.Equal(t, "1", ev.ID)
	assert.Equal(t, domain.StatusFinished, ev.Status)
	assert.Equal(t, domain.SideYes, ev.WinningOutcome)
	assert.True(t, ev.TotalPool.Equal(decimal.NewFromInt(10000)), "total_pool vacío = yes + no")
	assert.Equal(t, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), ev.EndDate.UTC())
}

func TestGetMultipleUserBets_IndexAligned(t *testing.T) {
	r := load(t)
	bets, err := r.GetMultipleUserBets(context.Background(), []string{"2", "1", "missing"}, "0xABC")
	require.NoError(t, err)
	require.Len(t, bets, 3)

	assert.False(t, bets[0].HasStake())
	assert.Equal(t, "2", bets[0].EventID)
	assert.True(t, bets[1].YesAmount.Equal(decimal.NewFromInt(1000)))
	assert.False(t, bets[2].HasStake())
}

func TestGetPlatformFee(t *testing.T) {
	fee, err := load(t).GetPlatformFee(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(250), fee)

	r, err := mockchain.New(mockchain.Fixture{})
	require.NoError(t, err)
	_, err = r.GetPlatformFee(context.Background())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListBettors(t *testing.T) {
	bettors, err := load(t).ListBettors(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"0xabc", "0xdef"}, bettors)
}

func TestLoad_RejectsNegativeAmounts(t *testing.T) {
	_, err := mockchain.Load(writeFixture(t, `
events:
  - id: "1"
    yes_pool: "-5"
`))
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestLoad_RejectsImpossibleFee(t *testing.T) {
	for _, fee := range []string{"-1", "10001"} {
		_, err := mockchain.Load(writeFixture(t, "fee_bps: "+fee+"\n"))
		assert.ErrorIs(t, err, domain.ErrValidation, fee)
	}

	fee := int64(domain.MaxFeeBps)
	r, err := mockchain.New(mockchain.Fixture{FeeBps: &fee})
	require.NoError(t, err)
	got, err := r.GetPlatformFee(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(domain.MaxFeeBps), got)
}

func TestLoad_RejectsUnknownEventInBets(t *testing.T) {
	_, err := mockchain.Load(writeFixture(t, `
events:
  - id: "1"
bets:
  "0x1":
    - event_id: "9"
      yes: "1"
`))
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := mockchain.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestPlaceBet_UpdatesPools(t *testing.T) {
	r := load(t)
	ctx := context.Background()

	require.NoError(t, r.PlaceBet("0x9", "2", domain.SideYes, decimal.NewFromInt(30)))
	require.NoError(t, r.PlaceBet("0x9", "2", domain.SideYes, decimal.NewFromInt(20)))
	require.NoError(t, r.PlaceBet("0x8", "2", domain.SideNo, decimal.NewFromInt(50)))

	events, err := r.GetAllEvents(ctx)
	require.NoError(t, err)
	ev := events[1]
	assert.True(t, ev.Outcomes.Yes.Equal(decimal.NewFromInt(50)))
	assert.True(t, ev.Outcomes.No.Equal(decimal.NewFromInt(50)))
	assert.True(t, ev.TotalPool.Equal(decimal.NewFromInt(100)))
	assert.NoError(t, ev.CheckConsistency())

	bets, err := r.GetMultipleUserBets(ctx, []string{"2"}, "0x9")
	require.NoError(t, err)
	assert.True(t, bets[0].YesAmount.Equal(decimal.NewFromInt(50)))
}

func TestPlaceBet_Rules(t *testing.T) {
	r := load(t)

	assert.ErrorIs(t, r.PlaceBet("0x9", "1", domain.SideYes, decimal.NewFromInt(5)), domain.ErrValidation, "evento terminado")
	assert.ErrorIs(t, r.PlaceBet("0x9", "2", domain.SideYes, decimal.RequireFromString("0.5")), domain.ErrValidation, "bajo el mínimo")
	assert.ErrorIs(t, r.PlaceBet("0x9", "2", domain.SideYes, decimal.NewFromInt(101)), domain.ErrValidation, "sobre el máximo")
	assert.ErrorIs(t, r.PlaceBet("0x9", "404", domain.SideYes, decimal.NewFromInt(5)), domain.ErrNotFound)

	require.NoError(t, r.PlaceBet("0x9", "2", domain.SideNo, decimal.NewFromInt(5)))
	assert.ErrorIs(t, r.PlaceBet("0x9", "2", domain.SideYes, decimal.NewFromInt(5)), domain.ErrValidation, "no puede cambiar de lado")
}

func TestLifecycle_TerminalIsImmutable(t *testing.T) {
	r := load(t)
	at := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, r.CloseEvent("2"))
	assert.ErrorIs(t, r.CloseEvent("2"), domain.ErrValidation)
	require.NoError(t, r.CancelEvent("2", at))

	assert.ErrorIs(t, r.ResolveEvent("2", domain.SideYes, at), domain.ErrValidation)
	assert.ErrorIs(t, r.CancelEvent("1", at), domain.ErrValidation)
}

func TestClaim(t *testing.T) {
	r := load(t)
	ctx := context.Background()

	require.NoError(t, r.Claim("0xabc", "1"))
	assert.ErrorIs(t, r.Claim("0xabc", "1"), domain.ErrValidation, "doble claim")
	assert.ErrorIs(t, r.Claim("0xdef", "1"), domain.ErrValidation, "perdedor")
	assert.ErrorIs(t, r.Claim("0x404", "1"), domain.ErrNotFound)

	bets, err := r.GetMultipleUserBets(ctx, []string{"1"}, "0xabc")
	require.NoError(t, err)
	assert.True(t, bets[0].Claimed)
}
