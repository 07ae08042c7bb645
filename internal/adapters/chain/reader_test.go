package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"testing"
	"time"

	"github.com/alejandrodnm/intuibets/internal/domain"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testContract = "0x00000000000000000000000000000000000000aa"

var (
	alice = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	bob   = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
)

func eth(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
}

type fakeEvent struct {
	question string
	status   uint8
	yes, no  *big.Int
	winner   uint8
	endTime  uint64
}

type fakeBet struct {
	yes, no *big.Int
	claimed bool
}

// fakeContract responde eth_calls empaquetando con el mismo ABI.
type fakeContract struct {
	events   []fakeEvent
	bets     map[string]fakeBet // "eventID/address"
	feeBps   int64
	bettors  []common.Address
	failures int // errores a devolver antes de responder
	calls    int
}

func (f *fakeContract) CallContract(_ context.Context, call ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	f.calls++
	if f.failures > 0 {
		f.failures--
		return nil, errors.New("connection reset")
	}

	method, err := bettingABI.MethodById(call.Data[:4])
	if err != nil {
		return nil, err
	}
	args, err := method.Inputs.Unpack(call.Data[4:])
	if err != nil {
		return nil, err
	}

	switch method.Name {
	case "eventCount":
		return method.Outputs.Pack(big.NewInt(int64(len(f.events))))
	case "getEvent":
		ev := f.events[args[0].(*big.Int).Int64()]
		total := new(big.Int).Add(ev.yes, ev.no)
		return method.Outputs.Pack(ev.question, ev.status, ev.yes, ev.no, total, ev.winner, big.NewInt(0), big.NewInt(0), ev.endTime)
	case "getUserBet":
		key := fmt.Sprintf("%s/%s", args[0].(*big.Int), args[1].(common.Address).Hex())
		b, ok := f.bets[key]
		if !ok {
			return method.Outputs.Pack(big.NewInt(0), big.NewInt(0), false)
		}
		return method.Outputs.Pack(b.yes, b.no, b.claimed)
	case "platformFeeBps":
		return method.Outputs.Pack(big.NewInt(f.feeBps))
	case "getBettors":
		return method.Outputs.Pack(f.bettors)
	}
	return nil, fmt.Errorf("unexpected method %s", method.Name)
}

func newFake() *fakeContract {
	return &fakeContract{
		events: []fakeEvent{
			{question: "Will ETH close above 4k?", status: statusFinished, yes: eth(6000), no: eth(4000), winner: outcomeYes, endTime: 1748736000},
			{question: "Will the vote pass?", status: statusOpen, yes: eth(0), no: eth(0)},
		},
		bets: map[string]fakeBet{
			"0/" + alice.Hex(): {yes: eth(1000), no: big.NewInt(0)},
			"0/" + bob.Hex():   {yes: big.NewInt(0), no: eth(4000), claimed: true},
		},
		feeBps:  250,
		bettors: []common.Address{alice, bob},
	}
}

func newTestReader(t *testing.T, f *fakeContract) *Reader {
	t.Helper()
	r, err := NewReader(f, Config{Contract: testContract, RatePerSec: 1000})
	require.NoError(t, err)
	r.retryWait = time.Millisecond
	return r
}

func TestNewReader_InvalidContract(t *testing.T) {
	_, err := NewReader(newFake(), Config{Contract: "not-an-address"})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestGetAllEvents(t *testing.T) {
	r := newTestReader(t, newFake())
	events, err := r.GetAllEvents(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 2)

	ev := events[0]
	assert.Equal(t, "0", ev.ID)
	assert.Equal(t, domain.StatusFinished, ev.Status)
	assert.Equal(t, domain.SideYes, ev.WinningOutcome)
	assert.True(t, ev.Outcomes.Yes.Equal(decimal.NewFromInt(6000)))
	assert.True(t, ev.TotalPool.Equal(decimal.NewFromInt(10000)))
	assert.Equal(t, time.Unix(1748736000, 0).UTC(), ev.EndDate)

	assert.Equal(t, domain.StatusOpen, events[1].Status)
	assert.Equal(t, domain.Side(""), events[1].WinningOutcome)
	assert.True(t, events[1].EndDate.IsZero())
}

func TestGetAllEvents_SkipsUndecodableEvents(t *testing.T) {
	f := newFake()
	f.events[1].status = 9
	f.events = append(f.events, fakeEvent{question: "bad winner", status: statusFinished, yes: eth(1), no: eth(1), winner: 7})
	f.events = append(f.events, fakeEvent{question: "still fine", status: statusOpen, yes: eth(2), no: eth(0)})

	events, err := newTestReader(t, f).GetAllEvents(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "0", events[0].ID)
	assert.Equal(t, "3", events[1].ID, "los ids siguen siendo los índices on-chain")
}

func TestGetAllEvents_RPCFailureIsFatal(t *testing.T) {
	f := newFake()
	f.failures = 100
	_, err := newTestReader(t, f).GetAllEvents(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrValidation)
}

func TestGetMultipleUserBets(t *testing.T) {
	r := newTestReader(t, newFake())
	bets, err := r.GetMultipleUserBets(context.Background(), []string{"1", "0"}, alice.Hex())
	require.NoError(t, err)
	require.Len(t, bets, 2)

	assert.Equal(t, "1", bets[0].EventID)
	assert.False(t, bets[0].HasStake())
	assert.True(t, bets[1].YesAmount.Equal(decimal.NewFromInt(1000)))
	assert.False(t, bets[1].Claimed)
}

func TestGetMultipleUserBets_InvalidInput(t *testing.T) {
	r := newTestReader(t, newFake())
	_, err := r.GetMultipleUserBets(context.Background(), []string{"0"}, "bob")
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = r.GetMultipleUserBets(context.Background(), []string{"abc"}, alice.Hex())
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestGetPlatformFee(t *testing.T) {
	fee, err := newTestReader(t, newFake()).GetPlatformFee(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(250), fee)

	f := newFake()
	f.feeBps = 20_000
	_, err = newTestReader(t, f).GetPlatformFee(context.Background())
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestListBettors(t *testing.T) {
	bettors, err := newTestReader(t, newFake()).ListBettors(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{alice.Hex(), bob.Hex()}, bettors)
}

func TestCall_RetriesTransientErrors(t *testing.T) {
	f := newFake()
	f.failures = 2
	fee, err := newTestReader(t, f).GetPlatformFee(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(250), fee)
	assert.Equal(t, 3, f.calls)
}

func TestCall_GivesUpAfterRetries(t *testing.T) {
	f := newFake()
	f.failures = 100
	_, err := newTestReader(t, f).GetPlatformFee(context.Background())
	require.Error(t, err)
	assert.Equal(t, defaultMaxRetries+1, f.calls)
}

func TestCall_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTestReader(t, newFake()).GetPlatformFee(ctx)
	assert.Error(t, err)
}
