package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/manifoldco/promptui"
	tmos "github.com/tendermint/tendermint/libs/os"

	"github.com/chainpoint/stacking-api/level"
	"github.com/chainpoint/stacking-api/stacking"
	"github.com/chainpoint/stacking-api/stacks"
	"github.com/chainpoint/stacking-api/types"
	"github.com/chainpoint/stacking-api/util"
)

var home string

func setup() {

	if _, err := os.Stat(home); os.IsNotExist(err) {
		os.MkdirAll(home, os.ModePerm)
	}

	if _, err := os.Stat(home + "/stacking.conf"); os.IsNotExist(err) {
		configs := []string{}

		promptNetwork := promptui.Select{
			Label: "Select Stacks Network Type",
			Items: []string{types.NetworkMainnet, types.NetworkTestnet},
		}
		_, networkResult, err := promptNetwork.Run()
		if err != nil {
			panic(err)
		}
		configs = append(configs, "network="+networkResult)

		promptURL := promptui.Prompt{
			Label:    "Which Stacks Blockchain API node should be used?",
			Default:  stacks.DefaultURL(networkResult),
			Validate: util.ValidateURL,
		}
		urlResult, err := promptURL.Run()
		if err != nil {
			panic(err)
		}
		configs = append(configs, "stacks_api_url="+urlResult)

		promptPort := promptui.Prompt{
			Label:    "Which port should the Stacking API listen on?",
			Default:  "3000",
			Validate: util.ValidatePort,
		}
		portResult, err := promptPort.Run()
		if err != nil {
			panic(err)
		}
		configs = append(configs, "api_port="+portResult)

		file, err := os.OpenFile(home+"/stacking.conf", os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			log.Fatalf("failed creating file: %s", err)
		}
		datawriter := bufio.NewWriter(file)
		for _, data := range configs {
			_, _ = datawriter.WriteString(data + "\n")
		}
		datawriter.Flush()
		file.Close()

		fmt.Printf("Stacking API Setup Complete. Run with ./stacking-api -config %s\n", home+"/stacking.conf")
		os.Exit(0)
	}
}

func main() {
	figure.NewColorFigure("Stacking API", "colossal", "red", false).Print()
	homedirname, err := os.UserHomeDir()
	if err != nil {
		panic(err)
	}
	home = util.GetEnv("STACKING_HOME", fmt.Sprintf("%s/.stacking/api", homedirname))

	setup()

	config := stacking.InitConfig(home)
	logger := *config.Logger

	db := level.OpenDB(config.DBType, home+"/data")
	redisClient, err := level.NewRedisClient(config.RedisURI)
	if err != nil {
		panic(err)
	}
	cache := level.NewCache(db, redisClient, logger)
	client := stacks.NewClient(config.StacksAPIURL, config.HTTPTimeout, logger)

	app := stacking.NewStackingApplication(config, client, cache)
	if err := app.StartScheduler(); err != nil {
		panic(err)
	}
	go app.RefreshBlockTimes() // warm the block time cache

	r, err := stacking.NewRouter(app)
	if err != nil {
		panic(err)
	}
	server := &http.Server{
		Handler:      r,
		Addr:         ":" + config.APIPort,
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
	}

	stopped := make(chan struct{})
	tmos.TrapSignal(logger, func() {
		logger.Info("Shutting down Stacking API...")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		util.LogError(server.Shutdown(ctx))
		app.Stop()
		close(stopped)
	})

	logger.Info("Stacking API listening", "port", config.APIPort, "network", config.Network, "stacks_api_url", config.StacksAPIURL)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		util.LogError(err)
		os.Exit(1)
	}
	<-stopped
}
