package stacking

import (
	"context"
	"time"

	cron "github.com/robfig/cron/v3"
)

// StartScheduler : keep the cached network block times fresh on the configured schedule
func (app *StackingApplication) StartScheduler() error {
	scheduler := cron.New(cron.WithLocation(time.UTC))
	if _, err := scheduler.AddFunc(app.config.BlockTimeRefresh, app.RefreshBlockTimes); err != nil {
		return err
	}
	app.scheduler = scheduler
	scheduler.Start()
	return nil
}

// RefreshBlockTimes : fetch network block times from the node and replace the cached copy
func (app *StackingApplication) RefreshBlockTimes() {
	ctx, cancel := context.WithTimeout(context.Background(), app.config.HTTPTimeout)
	defer cancel()
	times, err := app.Stacks.GetNetworkBlockTimes(ctx)
	if app.LogError(err) != nil {
		return
	}
	if app.LogError(app.Store.SetBlockTimes(times, blockTimeTTL)) == nil {
		app.logger.Debug("Refreshed network block times")
	}
}
