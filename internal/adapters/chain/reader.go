package chain

// reader.go — ChainReader backed by the betting contract over JSON-RPC.
//
// Read-only: no keys, no transactions. Every eth_call goes through a rate
// limiter and is retried with exponential backoff. Pool and stake amounts
// arrive as uint256 base units and are converted to decimal token units with
// the configured token decimals.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/big"
	"strings"
	"time"

	"github.com/alejandrodnm/intuibets/internal/domain"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

const (
	defaultRatePerSec = 20
	defaultMaxRetries = 3
	baseRetryWait     = 250 * time.Millisecond
)

// On-chain status codes of the betting contract.
const (
	statusOpen uint8 = iota
	statusClosed
	statusFinished
	statusCanceled
)

// On-chain outcome codes (0 = not set).
const (
	_ uint8 = iota
	outcomeYes
	outcomeNo
)

// bettingABI describes the read-only surface of the betting contract.
// Events are indexed 0..eventCount()-1.
const bettingABIJSON = `[
	{
		"name": "eventCount",
		"type": "function",
		"stateMutability": "view",
		"inputs": [],
		"outputs": [{"name": "", "type": "uint256"}]
	},
	{
		"name": "getEvent",
		"type": "function",
		"stateMutability": "view",
		"inputs": [{"name": "eventId", "type": "uint256"}],
		"outputs": [
			{"name": "question", "type": "string"},
			{"name": "status", "type": "uint8"},
			{"name": "yesPool", "type": "uint256"},
			{"name": "noPool", "type": "uint256"},
			{"name": "totalPool", "type": "uint256"},
			{"name": "winningOutcome", "type": "uint8"},
			{"name": "minStake", "type": "uint256"},
			{"name": "maxStake", "type": "uint256"},
			{"name": "endTime", "type": "uint64"}
		]
	},
	{
		"name": "getUserBet",
		"type": "function",
		"stateMutability": "view",
		"inputs": [
			{"name": "eventId", "type": "uint256"},
			{"name": "user", "type": "address"}
		],
		"outputs": [
			{"name": "yesAmount", "type": "uint256"},
			{"name": "noAmount", "type": "uint256"},
			{"name": "claimed", "type": "bool"}
		]
	},
	{
		"name": "platformFeeBps",
		"type": "function",
		"stateMutability": "view",
		"inputs": [],
		"outputs": [{"name": "", "type": "uint256"}]
	},
	{
		"name": "getBettors",
		"type": "function",
		"stateMutability": "view",
		"inputs": [],
		"outputs": [{"name": "", "type": "address[]"}]
	}
]`

var bettingABI abi.ABI

func init() {
	var err error
	bettingABI, err = abi.JSON(strings.NewReader(bettingABIJSON))
	if err != nil {
		panic("betting abi parse: " + err.Error())
	}
}

// BettingABI returns the parsed contract ABI.
func BettingABI() abi.ABI {
	return bettingABI
}

// Caller is the subset of ethclient.Client the reader needs.
type Caller interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Config holds the reader settings.
type Config struct {
	Contract   string
	Decimals   int32   // token decimals (0 = 18)
	RatePerSec float64 // eth_call budget (0 = default)
	MaxRetries int     // retries per call (0 = default)
}

// Reader implements ports.ChainReader.
type Reader struct {
	caller     Caller
	contract   common.Address
	decimals   int32
	limiter    *rate.Limiter
	maxRetries int
	retryWait  time.Duration
}

// Dial connects to the RPC endpoint and returns a Reader plus a close func.
func Dial(ctx context.Context, rpcURL string, cfg Config) (*Reader, func(), error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, nil, fmt.Errorf("chain.Dial: dial rpc %s: %w", rpcURL, err)
	}
	r, err := NewReader(client, cfg)
	if err != nil {
		client.Close()
		return nil, nil, err
	}
	return r, client.Close, nil
}

// NewReader builds a Reader on top of any Caller.
func NewReader(caller Caller, cfg Config) (*Reader, error) {
	if !common.IsHexAddress(cfg.Contract) {
		return nil, fmt.Errorf("chain.NewReader: contract %q: %w", cfg.Contract, domain.ErrValidation)
	}
	if cfg.Decimals <= 0 {
		cfg.Decimals = domain.DefaultTokenDecimals
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = defaultRatePerSec
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	return &Reader{
		caller:     caller,
		contract:   common.HexToAddress(cfg.Contract),
		decimals:   cfg.Decimals,
		limiter:    rate.NewLimiter(rate.Limit(cfg.RatePerSec), int(math.Max(1, cfg.RatePerSec/4))),
		maxRetries: cfg.MaxRetries,
		retryWait:  baseRetryWait,
	}, nil
}

// GetAllEvents reads eventCount() and then every event. Events with status or
// outcome codes the reader does not know are skipped with a warning; RPC
// failures still fail the whole read.
func (r *Reader) GetAllEvents(ctx context.Context) ([]domain.Event, error) {
	vals, err := r.call(ctx, "eventCount")
	if err != nil {
		return nil, fmt.Errorf("chain.GetAllEvents: %w", err)
	}
	count := vals[0].(*big.Int)
	if !count.IsInt64() {
		return nil, fmt.Errorf("chain.GetAllEvents: event count %s out of range", count)
	}

	events := make([]domain.Event, 0, count.Int64())
	for i := int64(0); i < count.Int64(); i++ {
		ev, err := r.getEvent(ctx, big.NewInt(i))
		if errors.Is(err, domain.ErrValidation) {
			slog.Warn("chain: skipping undecodable event", "event_id", i, "err", err)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("chain.GetAllEvents: event %d: %w", i, err)
		}
		events = append(events, ev)
	}

	slog.Debug("chain: events loaded", "count", len(events))
	return events, nil
}

// GetMultipleUserBets reads the user's bet on each event, index-aligned.
func (r *Reader) GetMultipleUserBets(ctx context.Context, eventIDs []string, user string) ([]domain.UserBet, error) {
	if !common.IsHexAddress(user) {
		return nil, fmt.Errorf("chain.GetMultipleUserBets: user %q: %w", user, domain.ErrValidation)
	}
	addr := common.HexToAddress(user)

	bets := make([]domain.UserBet, len(eventIDs))
	for i, id := range eventIDs {
		eventID, ok := new(big.Int).SetString(id, 10)
		if !ok || eventID.Sign() < 0 {
			return nil, fmt.Errorf("chain.GetMultipleUserBets: event id %q: %w", id, domain.ErrValidation)
		}

		vals, err := r.call(ctx, "getUserBet", eventID, addr)
		if err != nil {
			return nil, fmt.Errorf("chain.GetMultipleUserBets: event %s: %w", id, err)
		}
		bets[i] = domain.UserBet{
			EventID:   id,
			YesAmount: r.toAmount(vals[0].(*big.Int)),
			NoAmount:  r.toAmount(vals[1].(*big.Int)),
			Claimed:   vals[2].(bool),
		}
	}
	return bets, nil
}

// GetPlatformFee reads platformFeeBps().
func (r *Reader) GetPlatformFee(ctx context.Context) (int64, error) {
	vals, err := r.call(ctx, "platformFeeBps")
	if err != nil {
		return 0, fmt.Errorf("chain.GetPlatformFee: %w", err)
	}
	fee := vals[0].(*big.Int)
	if !fee.IsInt64() {
		return 0, fmt.Errorf("chain.GetPlatformFee: fee %s bps: %w", fee, domain.ErrValidation)
	}
	if err := domain.ValidateFeeBps(fee.Int64()); err != nil {
		return 0, fmt.Errorf("chain.GetPlatformFee: fee %s bps: %w", fee, err)
	}
	return fee.Int64(), nil
}

// ListBettors reads getBettors() as checksummed hex addresses.
func (r *Reader) ListBettors(ctx context.Context) ([]string, error) {
	vals, err := r.call(ctx, "getBettors")
	if err != nil {
		return nil, fmt.Errorf("chain.ListBettors: %w", err)
	}
	addrs := vals[0].([]common.Address)
	out := make([]string, len(addrs))
	for i, a := range addrs {
		out[i] = a.Hex()
	}
	return out, nil
}

func (r *Reader) getEvent(ctx context.Context, id *big.Int) (domain.Event, error) {
	vals, err := r.call(ctx, "getEvent", id)
	if err != nil {
		return domain.Event{}, err
	}

	status, err := decodeStatus(vals[1].(uint8))
	if err != nil {
		return domain.Event{}, err
	}
	ev := domain.Event{
		ID:       id.String(),
		Question: vals[0].(string),
		Status:   status,
		Outcomes: domain.Pools{
			Yes: r.toAmount(vals[2].(*big.Int)),
			No:  r.toAmount(vals[3].(*big.Int)),
		},
		TotalPool: r.toAmount(vals[4].(*big.Int)),
		MinStake:  r.toAmount(vals[6].(*big.Int)),
		MaxStake:  r.toAmount(vals[7].(*big.Int)),
	}
	if status == domain.StatusFinished {
		ev.WinningOutcome, err = decodeOutcome(vals[5].(uint8))
		if err != nil {
			return domain.Event{}, err
		}
	}
	if end := vals[8].(uint64); end > 0 && end <= math.MaxInt64 {
		ev.EndDate = time.Unix(int64(end), 0).UTC()
	}
	return ev, nil
}

// call packs, executes with retries, and unpacks a view method.
func (r *Reader) call(ctx context.Context, method string, args ...any) ([]any, error) {
	data, err := bettingABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	msg := ethereum.CallMsg{To: &r.contract, Data: data}

	var lastErr error
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		if err := r.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}

		out, err := r.caller.CallContract(ctx, msg, nil)
		if err == nil {
			vals, err := bettingABI.Unpack(method, out)
			if err != nil {
				return nil, fmt.Errorf("unpack %s: %w", method, err)
			}
			return vals, nil
		}

		lastErr = err
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		slog.Warn("chain: eth_call failed", "method", method, "attempt", attempt+1, "err", err)
		if attempt < r.maxRetries {
			r.sleep(ctx, attempt)
		}
	}
	return nil, fmt.Errorf("%s failed after %d retries: %w", method, r.maxRetries, lastErr)
}

// sleep waits with exponential backoff, honouring the context.
func (r *Reader) sleep(ctx context.Context, attempt int) {
	wait := time.Duration(math.Pow(2, float64(attempt))) * r.retryWait
	select {
	case <-time.After(wait):
	case <-ctx.Done():
	}
}

func (r *Reader) toAmount(units *big.Int) decimal.Decimal {
	return domain.FromBaseUnits(units, r.decimals)
}

func decodeStatus(code uint8) (domain.EventStatus, error) {
	switch code {
	case statusOpen:
		return domain.StatusOpen, nil
	case statusClosed:
		return domain.StatusClosed, nil
	case statusFinished:
		return domain.StatusFinished, nil
	case statusCanceled:
		return domain.StatusCanceled, nil
	}
	return "", fmt.Errorf("status code %d: %w", code, domain.ErrValidation)
}

func decodeOutcome(code uint8) (domain.Side, error) {
	switch code {
	case outcomeYes:
		return domain.SideYes, nil
	case outcomeNo:
		return domain.SideNo, nil
	}
	return "", fmt.Errorf("winning outcome code %d: %w", code, domain.ErrValidation)
}
