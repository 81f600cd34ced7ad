package stacking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tendermint/tendermint/libs/log"
	cron "github.com/robfig/cron/v3"

	"github.com/chainpoint/stacking-api/cycle"
	"github.com/chainpoint/stacking-api/database"
	"github.com/chainpoint/stacking-api/level"
	"github.com/chainpoint/stacking-api/stacks"
	"github.com/chainpoint/stacking-api/threadsafe_ulid"
	"github.com/chainpoint/stacking-api/types"
	"github.com/chainpoint/stacking-api/util"
)

const blockTimeTTL = 30 * time.Minute

// StackingApplication : serves the stacking endpoints on top of a Stacks API node
type StackingApplication struct {
	config        types.StackingConfig
	logger        log.Logger
	Stacks        stacks.ChainAPI
	Store         database.StackingDatabase
	ULIDGenerator *threadsafe_ulid.ThreadSafeUlid
	now           func() time.Time
	scheduler     *cron.Cron
}

// NewStackingApplication : wires the upstream client and the local store into the api
func NewStackingApplication(config types.StackingConfig, chain stacks.ChainAPI, store database.StackingDatabase) *StackingApplication {
	return newStackingApplication(config, chain, store, time.Now)
}

func newStackingApplication(config types.StackingConfig, chain stacks.ChainAPI, store database.StackingDatabase, now func() time.Time) *StackingApplication {
	return &StackingApplication{
		config:        config,
		logger:        (*config.Logger).With("module", "stacking"),
		Stacks:        chain,
		Store:         store,
		ULIDGenerator: threadsafe_ulid.NewThreadSafeUlidWithClock(now),
		now:           now,
	}
}

// LogError : log error with the calling function name
func (app *StackingApplication) LogError(err error) error {
	if err != nil {
		app.logger.Error(fmt.Sprintf("Error in %s: %s", util.GetCurrentFuncName(2), err.Error()))
	}
	return err
}

// Stop : halt scheduled jobs and close the local store
func (app *StackingApplication) Stop() {
	if app.scheduler != nil {
		<-app.scheduler.Stop().Done()
	}
	app.LogError(app.Store.Close())
}

// blockTimes serves network block times from cache, fetching and caching them on a miss
func (app *StackingApplication) blockTimes(ctx context.Context) (types.NetworkBlockTimes, error) {
	times, err := app.Store.GetBlockTimes()
	if err == nil {
		return times, nil
	}
	if !errors.Is(err, level.ErrNotFound) {
		app.LogError(err)
	}
	times, err = app.Stacks.GetNetworkBlockTimes(ctx)
	if err != nil {
		return times, err
	}
	app.LogError(app.Store.SetBlockTimes(times, blockTimeTTL))
	return times, nil
}

// chainParams fetches one snapshot of upstream state and turns it into calculator inputs
func (app *StackingApplication) chainParams(ctx context.Context, cycles int64) (cycle.Params, error) {
	pox, err := app.Stacks.GetPoxInfo(ctx)
	if err != nil {
		return cycle.Params{}, err
	}
	core, err := app.Stacks.GetCoreInfo(ctx)
	if err != nil {
		return cycle.Params{}, err
	}
	times, err := app.blockTimes(ctx)
	if err != nil {
		return cycle.Params{}, err
	}
	return cycle.ParamsFromChain(pox, core, times, app.config.Network, cycles)
}

// currentRewardCycle uses the node's reward_cycle_id, deriving it from the burn height when absent
func (app *StackingApplication) currentRewardCycle(ctx context.Context, pox types.PoxInfo) (int64, error) {
	if pox.RewardCycleID != nil {
		return requireField("reward_cycle_id", pox.RewardCycleID)
	}
	length, err := requireField("reward_cycle_length", pox.RewardCycleLength)
	if err != nil {
		return 0, err
	}
	first, err := requireField("first_burnchain_block_height", pox.FirstBurnchainBlockHeight)
	if err != nil {
		return 0, err
	}
	core, err := app.Stacks.GetCoreInfo(ctx)
	if err != nil {
		return 0, err
	}
	height, err := requireField("burn_block_height", core.BurnBlockHeight)
	if err != nil {
		return 0, err
	}
	return cycle.Params{RewardCycleLength: length, FirstBurnchainBlockHeight: first}.RewardCycleAt(height)
}

// requireField : upstream numeric fields must be present and non-negative
func requireField(name string, v *int64) (int64, error) {
	if v == nil {
		return 0, fmt.Errorf("%w: upstream field %s missing", cycle.ErrInvalidInput, name)
	}
	if *v < 0 {
		return 0, fmt.Errorf("%w: upstream field %s is negative", cycle.ErrInvalidInput, name)
	}
	return *v, nil
}
