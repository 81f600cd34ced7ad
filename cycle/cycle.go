// Package cycle projects PoX reward cycle timing from a snapshot of chain parameters.
package cycle

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/chainpoint/stacking-api/types"
)

// ErrInvalidInput is returned when chain parameters cannot produce a projection.
var ErrInvalidInput = errors.New("invalid cycle input")

// Params : inputs to the cycle calculator, all counts of blocks or seconds
type Params struct {
	RewardCycleLength          int64
	TargetBlockTime            int64
	BurnBlockHeight            int64
	FirstBurnchainBlockHeight  int64
	RejectionVotesLeftRequired int64
	NumberOfCycles             int64
	MinimumUSTX                int64
}

// Validate checks that params are usable by Project
func (p Params) Validate() error {
	if p.RewardCycleLength <= 0 {
		return fmt.Errorf("%w: reward cycle length must be positive, got %d", ErrInvalidInput, p.RewardCycleLength)
	}
	if p.TargetBlockTime < 0 {
		return fmt.Errorf("%w: negative target block time %d", ErrInvalidInput, p.TargetBlockTime)
	}
	if p.BurnBlockHeight < 0 || p.FirstBurnchainBlockHeight < 0 {
		return fmt.Errorf("%w: negative burn block height", ErrInvalidInput)
	}
	if p.NumberOfCycles < 0 {
		return fmt.Errorf("%w: negative number of cycles %d", ErrInvalidInput, p.NumberOfCycles)
	}
	if p.MinimumUSTX < 0 {
		return fmt.Errorf("%w: negative minimum amount %d", ErrInvalidInput, p.MinimumUSTX)
	}
	return nil
}

// ElapsedBlocks returns how many burn blocks of the current reward cycle have passed.
// Always in [0, RewardCycleLength).
func (p Params) ElapsedBlocks() int64 {
	elapsed := (p.BurnBlockHeight - p.FirstBurnchainBlockHeight) % p.RewardCycleLength
	if elapsed < 0 {
		elapsed += p.RewardCycleLength
	}
	return elapsed
}

// RewardCycleAt returns the index of the reward cycle containing the burn height.
func (p Params) RewardCycleAt(burnHeight int64) (int64, error) {
	if p.RewardCycleLength <= 0 {
		return 0, fmt.Errorf("%w: reward cycle length must be positive", ErrInvalidInput)
	}
	if burnHeight < p.FirstBurnchainBlockHeight {
		return 0, nil
	}
	return (burnHeight - p.FirstBurnchainBlockHeight) / p.RewardCycleLength, nil
}

// latest instant time.Time still marshals to JSON, 9999-12-31T23:59:59Z
const maxUnix = 253402300799

// mulSeconds multiplies non-negative counts, failing instead of wrapping past int64
func mulSeconds(a, b int64) (int64, error) {
	if a != 0 && b > math.MaxInt64/a {
		return 0, fmt.Errorf("%w: %d * %d overflows", ErrInvalidInput, a, b)
	}
	return a * b, nil
}

// addSeconds moves t forward in whole seconds, failing when the result cannot be encoded
func addSeconds(t time.Time, secs int64) (time.Time, error) {
	base := t.Unix()
	if secs > maxUnix-base {
		return time.Time{}, fmt.Errorf("%w: %d seconds after %s is past year 9999", ErrInvalidInput, secs, t.Format(time.RFC3339))
	}
	return time.Unix(base+secs, 0).UTC(), nil
}

// Project computes the cycle projection relative to now. It has no side effects.
func Project(p Params, now time.Time) (types.CycleProjection, error) {
	if err := p.Validate(); err != nil {
		return types.CycleProjection{}, err
	}
	elapsed := p.ElapsedBlocks()
	cycleDuration, err := mulSeconds(p.RewardCycleLength, p.TargetBlockTime)
	if err != nil {
		return types.CycleProjection{}, err
	}
	secondsToNextCycle, err := mulSeconds(p.RewardCycleLength-elapsed, p.TargetBlockTime)
	if err != nil {
		return types.CycleProjection{}, err
	}
	lockSeconds, err := mulSeconds(cycleDuration, p.NumberOfCycles)
	if err != nil {
		return types.CycleProjection{}, err
	}
	nextCycle, err := addSeconds(now, secondsToNextCycle)
	if err != nil {
		return types.CycleProjection{}, err
	}
	unlocking, err := addSeconds(nextCycle, lockSeconds)
	if err != nil {
		return types.CycleProjection{}, err
	}
	return types.CycleProjection{
		// votes are still required to reject stacking, so it will execute
		StackingExecution:      p.RejectionVotesLeftRequired > 0,
		CycleDuration:          cycleDuration,
		SecondsToNextCycle:     secondsToNextCycle,
		NextCycleStartingAt:    nextCycle,
		NumberOfCycles:         p.NumberOfCycles,
		UnlockingAt:            unlocking,
		MinimumUSTX:            p.MinimumUSTX,
		ElapsedBlocksIntoCycle: elapsed,
	}, nil
}

// ParamsFromChain : assemble calculator inputs from upstream snapshots, failing on missing fields
func ParamsFromChain(pox types.PoxInfo, core types.CoreInfo, blockTimes types.NetworkBlockTimes, network string, cycles int64) (Params, error) {
	var blockTime *types.TargetBlockTime
	switch network {
	case types.NetworkMainnet:
		blockTime = blockTimes.Mainnet
	case types.NetworkTestnet:
		blockTime = blockTimes.Testnet
	default:
		return Params{}, fmt.Errorf("%w: unknown network %q", ErrInvalidInput, network)
	}
	if blockTime == nil || blockTime.TargetBlockTime == nil {
		return Params{}, fmt.Errorf("%w: no target block time for %s", ErrInvalidInput, network)
	}
	missing := map[string]*int64{
		"reward_cycle_length":           pox.RewardCycleLength,
		"first_burnchain_block_height":  pox.FirstBurnchainBlockHeight,
		"rejection_votes_left_required": pox.RejectionVotesLeftRequired,
		"min_amount_ustx":               pox.MinAmountUSTX,
		"burn_block_height":             core.BurnBlockHeight,
	}
	for name, v := range missing {
		if v == nil {
			return Params{}, fmt.Errorf("%w: upstream field %s missing", ErrInvalidInput, name)
		}
	}
	p := Params{
		RewardCycleLength:          *pox.RewardCycleLength,
		TargetBlockTime:            *blockTime.TargetBlockTime,
		BurnBlockHeight:            *core.BurnBlockHeight,
		FirstBurnchainBlockHeight:  *pox.FirstBurnchainBlockHeight,
		RejectionVotesLeftRequired: *pox.RejectionVotesLeftRequired,
		NumberOfCycles:             cycles,
		MinimumUSTX:                *pox.MinAmountUSTX,
	}
	return p, p.Validate()
}
