package cycle

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/chainpoint/stacking-api/types"
)

func i64(v int64) *int64 {
	return &v
}

var testNow = time.Date(2020, 10, 1, 12, 0, 0, 0, time.UTC)

func TestProjectMidCycle(t *testing.T) {
	assert := assert.New(t)
	p := Params{
		RewardCycleLength:          2100,
		TargetBlockTime:            600,
		FirstBurnchainBlockHeight:  100,
		BurnBlockHeight:            2150,
		RejectionVotesLeftRequired: 5,
		NumberOfCycles:             3,
		MinimumUSTX:                1000000,
	}
	proj, err := Project(p, testNow)
	assert.Nil(err)
	assert.Equal(int64(2050), proj.ElapsedBlocksIntoCycle)
	assert.Equal(int64(30000), proj.SecondsToNextCycle)
	assert.Equal(int64(1260000), proj.CycleDuration)
	assert.True(testNow.Add(30000*time.Second).Equal(proj.NextCycleStartingAt))
	assert.Equal(int64(3780000), int64(proj.UnlockingAt.Sub(proj.NextCycleStartingAt)/time.Second))
	assert.Equal(int64(3), proj.NumberOfCycles)
	assert.Equal(int64(1000000), proj.MinimumUSTX)
	assert.True(proj.StackingExecution)
}

func TestProjectStackingExecution(t *testing.T) {
	p := Params{RewardCycleLength: 10, TargetBlockTime: 1, NumberOfCycles: 1}
	proj, err := Project(p, testNow)
	assert.Nil(t, err)
	assert.False(t, proj.StackingExecution, "no votes left required should not execute")
}

func TestProjectBoundary(t *testing.T) {
	assert := assert.New(t)
	p := Params{RewardCycleLength: 2100, TargetBlockTime: 600, FirstBurnchainBlockHeight: 500, BurnBlockHeight: 500, NumberOfCycles: 3}
	proj, err := Project(p, testNow)
	assert.Nil(err)
	assert.Equal(int64(0), proj.ElapsedBlocksIntoCycle)
	assert.Equal(proj.CycleDuration, proj.SecondsToNextCycle)
}

func TestProjectZeroCycleLength(t *testing.T) {
	_, err := Project(Params{RewardCycleLength: 0, TargetBlockTime: 600}, testNow)
	assert.True(t, errors.Is(err, ErrInvalidInput), "zero reward cycle length must be rejected")
}

func TestProjectNegativeInputs(t *testing.T) {
	assert := assert.New(t)
	bad := []Params{
		{RewardCycleLength: 10, TargetBlockTime: -1},
		{RewardCycleLength: 10, BurnBlockHeight: -1},
		{RewardCycleLength: 10, NumberOfCycles: -2},
		{RewardCycleLength: -10},
	}
	for _, p := range bad {
		_, err := Project(p, testNow)
		assert.True(errors.Is(err, ErrInvalidInput), "params %+v should be rejected", p)
	}
}

func TestElapsedBlocksNonNegative(t *testing.T) {
	assert := assert.New(t)
	p := Params{RewardCycleLength: 7, FirstBurnchainBlockHeight: 20, BurnBlockHeight: 3}
	assert.Equal(int64(4), p.ElapsedBlocks(), "(3-20) mod 7 should be 4")
}

func TestProjectProperties(t *testing.T) {
	assert := assert.New(t)
	for length := int64(1); length <= 30; length += 7 {
		for height := int64(0); height < 100; height += 3 {
			p := Params{RewardCycleLength: length, TargetBlockTime: 120, FirstBurnchainBlockHeight: 11, BurnBlockHeight: height, NumberOfCycles: 2}
			proj, err := Project(p, testNow)
			assert.Nil(err)
			assert.Equal(length*120, proj.CycleDuration)
			assert.True(proj.ElapsedBlocksIntoCycle >= 0 && proj.ElapsedBlocksIntoCycle < length)
			assert.True(proj.SecondsToNextCycle >= 0 && proj.SecondsToNextCycle <= proj.CycleDuration)
			assert.Equal(time.Duration(length*2*120)*time.Second, proj.UnlockingAt.Sub(proj.NextCycleStartingAt))
			again, _ := Project(p, testNow)
			assert.Equal(proj, again, "projection should be deterministic")
		}
	}
}

func TestProjectLongLockPeriods(t *testing.T) {
	assert := assert.New(t)
	for _, length := range []int64{2000000, 20000000} {
		p := Params{RewardCycleLength: length, TargetBlockTime: 600, NumberOfCycles: 12}
		proj, err := Project(p, testNow)
		assert.Nil(err)
		assert.Equal(length*600, proj.SecondsToNextCycle)
		assert.Equal(testNow.Unix()+length*600, proj.NextCycleStartingAt.Unix())
		assert.True(proj.NextCycleStartingAt.After(testNow))
		assert.Equal(length*600*12, proj.UnlockingAt.Unix()-proj.NextCycleStartingAt.Unix())
		_, err = json.Marshal(proj)
		assert.Nil(err)
	}
}

func TestProjectOutOfRange(t *testing.T) {
	assert := assert.New(t)
	const max53 = 1<<53 - 1
	bad := []Params{
		{RewardCycleLength: max53, TargetBlockTime: max53, NumberOfCycles: 1},
		{RewardCycleLength: math.MaxInt64 / 2, TargetBlockTime: 3},
		{RewardCycleLength: 1 << 40, TargetBlockTime: 1 << 20, NumberOfCycles: 1 << 10},
		{RewardCycleLength: 1000000000, TargetBlockTime: 600, NumberOfCycles: 1},
		{RewardCycleLength: 1000, TargetBlockTime: 600, NumberOfCycles: max53},
	}
	for _, p := range bad {
		_, err := Project(p, testNow)
		assert.True(errors.Is(err, ErrInvalidInput), "params %+v should be rejected", p)
	}
}

func TestRewardCycleAt(t *testing.T) {
	assert := assert.New(t)
	p := Params{RewardCycleLength: 2100, FirstBurnchainBlockHeight: 100}
	c, err := p.RewardCycleAt(2150)
	assert.Nil(err)
	assert.Equal(int64(0), c)
	c, _ = p.RewardCycleAt(2200)
	assert.Equal(int64(1), c)
	c, _ = p.RewardCycleAt(50)
	assert.Equal(int64(0), c)
	_, err = Params{}.RewardCycleAt(10)
	assert.True(errors.Is(err, ErrInvalidInput))
}

func TestParamsFromChain(t *testing.T) {
	assert := assert.New(t)
	pox := types.PoxInfo{
		RewardCycleLength:          i64(2100),
		FirstBurnchainBlockHeight:  i64(100),
		RejectionVotesLeftRequired: i64(12),
		MinAmountUSTX:              i64(90000000),
	}
	core := types.CoreInfo{BurnBlockHeight: i64(2150)}
	blockTimes := types.NetworkBlockTimes{
		Mainnet: &types.TargetBlockTime{TargetBlockTime: i64(600)},
		Testnet: &types.TargetBlockTime{TargetBlockTime: i64(120)},
	}
	p, err := ParamsFromChain(pox, core, blockTimes, types.NetworkTestnet, 3)
	assert.Nil(err)
	assert.Equal(int64(120), p.TargetBlockTime)
	assert.Equal(int64(2150), p.BurnBlockHeight)
	assert.Equal(int64(3), p.NumberOfCycles)

	p, err = ParamsFromChain(pox, core, blockTimes, types.NetworkMainnet, 3)
	assert.Nil(err)
	assert.Equal(int64(600), p.TargetBlockTime)

	_, err = ParamsFromChain(pox, core, types.NetworkBlockTimes{}, types.NetworkTestnet, 3)
	assert.True(errors.Is(err, ErrInvalidInput), "missing block time should be invalid input")

	_, err = ParamsFromChain(pox, types.CoreInfo{}, blockTimes, types.NetworkTestnet, 3)
	assert.True(errors.Is(err, ErrInvalidInput), "missing burn height should be invalid input")

	_, err = ParamsFromChain(pox, core, blockTimes, "regtest", 3)
	assert.True(errors.Is(err, ErrInvalidInput))

	pox.RewardCycleLength = i64(0)
	_, err = ParamsFromChain(pox, core, blockTimes, types.NetworkTestnet, 3)
	assert.True(errors.Is(err, ErrInvalidInput))
}
