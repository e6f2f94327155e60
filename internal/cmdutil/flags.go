// Package cmdutil defines the monitoring daemon's command-line flags
// and the altsrc wiring that lets every flag be supplied from a config
// file instead of the command line.
package cmdutil

import "github.com/urfave/cli/v2"

var (
	// ConsensusNodeFlag is the beacon node's base REST API URL.
	ConsensusNodeFlag = &cli.StringFlag{
		Name:     "cl-node",
		Usage:    "Base URL of the beacon node's REST API",
		Required: true,
	}
	// ExecutionNodeFlag is the optional execution node JSON-RPC endpoint.
	ExecutionNodeFlag = &cli.StringFlag{
		Name:    "el-node",
		Usage:   "JSON-RPC endpoint of an execution node, for fee-recipient cross-checks. Omit to disable.",
		EnvVars: []string{"EL_NODE_URL"},
	}
	// PubkeysFileFlag is the path to the flat file of watched validator pubkeys.
	PubkeysFileFlag = &cli.StringFlag{
		Name:  "pubkeys-file",
		Usage: "Path to a file of validator public keys to monitor, one per line. Omit to watch none.",
	}
	// ConsensusClientFlag names the beacon node implementation behind cl-node.
	ConsensusClientFlag = &cli.StringFlag{
		Name:  "cl-client",
		Usage: "Consensus client behind cl-node: lighthouse, prysm, teku, nimbus, or other",
		Value: "other",
	}
	// RelayFlag repeats as name=url pairs naming an MEV relay to query for block rewards.
	RelayFlag = &cli.StringSliceFlag{
		Name:  "relay",
		Usage: "MEV relay to query, as name=base-url. May be repeated.",
	}
	// RelayPayloadPathFlag is the path appended to each relay base URL, with a single %s slot placeholder.
	RelayPayloadPathFlag = &cli.StringFlag{
		Name:  "relay-payload-path",
		Usage: "Path template (with a %s slot placeholder) appended to each relay's base URL",
		Value: "/relay/v1/data/bidtraces/proposer_payload_delivered?slot=%s",
	}
	// TelegramTokenFlag is the bot token used to broadcast alerts.
	TelegramTokenFlag = &cli.StringFlag{
		Name:    "telegram-token",
		Usage:   "Telegram bot token used to broadcast alerts. Omit to disable alerting.",
		EnvVars: []string{"TGBOT_TOKEN"},
	}
	// TelegramChatIDFlag is the chat the bot broadcasts to.
	TelegramChatIDFlag = &cli.Int64Flag{
		Name:    "telegram-chat-id",
		Usage:   "Telegram chat ID to broadcast alerts to",
		EnvVars: []string{"BASED_CHAT_ID"},
	}
	// CoingeckoAPIKeyFlag is an optional Coingecko API key for the exchange-rate oracle.
	CoingeckoAPIKeyFlag = &cli.StringFlag{
		Name:    "coingecko-api-key",
		Usage:   "Coingecko API key for the exchange-rate oracle. Omit to use the public tier.",
		EnvVars: []string{"COINGECKO_APIKEY"},
	}
	// MonitoringHostFlag is the interface the metrics HTTP server binds.
	MonitoringHostFlag = &cli.StringFlag{
		Name:  "monitoring-host",
		Usage: "Host the metrics server listens on",
		Value: "127.0.0.1",
	}
	// MonitoringPortFlag is the metrics HTTP server's port.
	MonitoringPortFlag = &cli.Int64Flag{
		Name:  "monitoring-port",
		Usage: "Port used to serve Prometheus metrics",
		Value: 8000,
	}
	// ConfigFileFlag is the path to a YAML file supplying any of the above flags.
	ConfigFileFlag = &cli.StringFlag{
		Name:  "config-file",
		Usage: "Path to a YAML config file providing default flag values",
	}
	// VerbosityFlag sets the logrus level.
	VerbosityFlag = &cli.StringFlag{
		Name:  "log-level",
		Usage: "Logging verbosity (debug, info, warn, error, fatal, panic)",
		Value: "info",
	}
	// LogFormatFlag selects the logrus formatter.
	LogFormatFlag = &cli.StringFlag{
		Name:  "log-format",
		Usage: "Log format: text, fluentd, or json",
		Value: "text",
	}
	// LogFileFlag, if set, additionally persists logs to this path.
	LogFileFlag = &cli.StringFlag{
		Name:  "log-file",
		Usage: "If set, logs are additionally written to this file",
	}
)

// AppFlags is every flag the valmon command registers.
var AppFlags = []cli.Flag{
	ConsensusNodeFlag,
	ExecutionNodeFlag,
	PubkeysFileFlag,
	ConsensusClientFlag,
	RelayFlag,
	RelayPayloadPathFlag,
	TelegramTokenFlag,
	TelegramChatIDFlag,
	CoingeckoAPIKeyFlag,
	MonitoringHostFlag,
	MonitoringPortFlag,
	ConfigFileFlag,
	VerbosityFlag,
	LogFormatFlag,
	LogFileFlag,
}
