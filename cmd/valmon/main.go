// Package main launches valmon, a validator monitoring daemon that
// watches a beacon node on behalf of a set of validator public keys
// and raises Telegram alerts on missed duties, slashings, exits, and
// reward shortfalls.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	runtimeDebug "runtime/debug"
	"strings"
	"syscall"

	joonix "github.com/joonix/log"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
	_ "go.uber.org/automaxprocs"

	"github.com/ethzen/valmon/internal/beaconapi"
	"github.com/ethzen/valmon/internal/cmdutil"
	"github.com/ethzen/valmon/internal/config"
	"github.com/ethzen/valmon/internal/engine"
	"github.com/ethzen/valmon/internal/executionnode"
	"github.com/ethzen/valmon/internal/keys"
	"github.com/ethzen/valmon/internal/logutil"
	"github.com/ethzen/valmon/internal/messenger"
	"github.com/ethzen/valmon/internal/metrics"
	"github.com/ethzen/valmon/internal/monitor/blocks"
	"github.com/ethzen/valmon/internal/price"
	"github.com/ethzen/valmon/internal/relay"
)

var log = logrus.WithField("prefix", "main")

func main() {
	wrappedFlags := cmdutil.WrapFlags(cmdutil.AppFlags)

	app := &cli.App{
		Name:  "valmon",
		Usage: "monitors a set of beacon chain validators and alerts on missed duties, slashings, exits and reward shortfalls",
		Flags: wrappedFlags,
		Before: func(ctx *cli.Context) error {
			if err := cmdutil.Before(wrappedFlags)(ctx); err != nil {
				return err
			}
			return configureLogging(ctx)
		},
		Action: run,
	}

	defer func() {
		if x := recover(); x != nil {
			log.Errorf("runtime panic: %v\n%v", x, string(runtimeDebug.Stack()))
			panic(x)
		}
	}()

	if err := app.Run(os.Args); err != nil {
		log.Error(err.Error())
		os.Exit(1)
	}
}

func configureLogging(ctx *cli.Context) error {
	level, err := logrus.ParseLevel(ctx.String(cmdutil.VerbosityFlag.Name))
	if err != nil {
		return err
	}
	logrus.SetLevel(level)

	switch format := ctx.String(cmdutil.LogFormatFlag.Name); format {
	case "text":
		formatter := new(prefixed.TextFormatter)
		formatter.TimestampFormat = "2006-01-02 15:04:05"
		formatter.FullTimestamp = true
		formatter.DisableColors = ctx.String(cmdutil.LogFileFlag.Name) != ""
		logrus.SetFormatter(formatter)
	case "fluentd":
		f := joonix.NewFormatter()
		if err := joonix.DisableTimestampFormat(f); err != nil {
			return err
		}
		logrus.SetFormatter(f)
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	default:
		return fmt.Errorf("unknown log format %s", format)
	}

	if logFileName := ctx.String(cmdutil.LogFileFlag.Name); logFileName != "" {
		if err := logutil.ConfigurePersistentLogging(logFileName); err != nil {
			log.WithError(err).Error("failed to configure persistent logging")
		}
	}
	return nil
}

func run(cliCtx *cli.Context) error {
	cfg, err := buildConfig(cliCtx)
	if err != nil {
		return err
	}
	if _, err := keys.Load(cfg.PubkeysFile); err != nil {
		return fmt.Errorf("valmon: load pubkeys file: %w", err)
	}

	ctx, cancel := context.WithCancel(cliCtx.Context)
	defer cancel()
	go func() {
		sigc := make(chan os.Signal, 1)
		signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigc)
		<-sigc
		log.Info("got interrupt, shutting down")
		cancel()
	}()

	node := beaconapi.New(cfg.ConsensusNodeURL, cfg.ConsensusClient)

	var execNode engine.ExecutionNode
	if cfg.ExecutionNodeURL != "" {
		execClient, err := executionnode.Dial(ctx, cfg.ExecutionNodeURL)
		if err != nil {
			log.WithError(err).Error("unable to dial execution node; continuing without it")
		} else {
			defer execClient.Close()
			execNode = execClient
		}
	}

	var relayClient blocks.RelayClient
	if len(cfg.RelayURLs) > 0 {
		relayClient = relay.New(cfg.RelayURLs, cfg.RelayPayloadURL)
	}

	var msgr engine.Messenger
	if cfg.TelegramToken != "" {
		msgr = messenger.New(cfg.TelegramToken, cfg.TelegramChatID)
	}

	priceOracle := price.New(cfg.CoingeckoAPIKey)
	mx := metrics.New()
	metricsServer := metrics.NewServer(cfg.MetricsAddr, mx)

	genesisTime, err := node.GetGenesis(ctx)
	if err != nil {
		return fmt.Errorf("valmon: fetch genesis time: %w", err)
	}
	logutil.CountdownToGenesis(genesisTime, int(cfg.Chain.SecondsPerSlot))

	eng := engine.New(cfg, node, msgr, priceOracle, execNode, mx, relayClient, metricsServer)
	return eng.Run(ctx, genesisTime)
}

func buildConfig(ctx *cli.Context) (config.Config, error) {
	client, ok := config.ParseConsensusClient(ctx.String(cmdutil.ConsensusClientFlag.Name))
	if !ok {
		return config.Config{}, fmt.Errorf("valmon: unknown consensus client %q", ctx.String(cmdutil.ConsensusClientFlag.Name))
	}

	relayURLs := make(map[string]string)
	for _, pair := range ctx.StringSlice(cmdutil.RelayFlag.Name) {
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 {
			return config.Config{}, fmt.Errorf("valmon: malformed --relay value %q, want name=url", pair)
		}
		relayURLs[parts[0]] = parts[1]
	}

	return config.Config{
		Chain: config.MainnetChain,

		ConsensusNodeURL: ctx.String(cmdutil.ConsensusNodeFlag.Name),
		ExecutionNodeURL: ctx.String(cmdutil.ExecutionNodeFlag.Name),
		PubkeysFile:      ctx.String(cmdutil.PubkeysFileFlag.Name),
		ConsensusClient:  client,

		RelayURLs:       relayURLs,
		RelayPayloadURL: ctx.String(cmdutil.RelayPayloadPathFlag.Name),

		TelegramToken:  ctx.String(cmdutil.TelegramTokenFlag.Name),
		TelegramChatID: ctx.Int64(cmdutil.TelegramChatIDFlag.Name),

		CoingeckoAPIKey: ctx.String(cmdutil.CoingeckoAPIKeyFlag.Name),

		MetricsAddr: fmt.Sprintf("%s:%d", ctx.String(cmdutil.MonitoringHostFlag.Name), ctx.Int64(cmdutil.MonitoringPortFlag.Name)),
	}, nil
}
