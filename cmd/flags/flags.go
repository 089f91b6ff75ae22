package flags

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/ruteri/wallet-background/api"
	"github.com/ruteri/wallet-background/common"
	"github.com/urfave/cli/v2"
)

func SetupLogger(cCtx *cli.Context) (log *slog.Logger) {
	logJSON := cCtx.Bool(LogJsonFlag.Name)
	logDebug := cCtx.Bool(LogDebugFlag.Name)
	logUID := cCtx.Bool(LogUidFlag.Name)
	logService := cCtx.String("log-service")

	logger := common.SetupLogger(&common.LoggingOpts{
		Debug:   logDebug,
		JSON:    logJSON,
		Service: logService,
		Version: common.Version,
	})

	if logUID {
		id := uuid.Must(uuid.NewRandom())
		logger = logger.With("uid", id.String())
	}
	return logger
}

func ConfigureServer(cCtx *cli.Context, logger *slog.Logger) *api.HTTPServerConfig {
	drainDuration := time.Duration(cCtx.Int64(DrainSecondsFlag.Name)) * time.Second

	// signing requests hold the connection while the user decides
	writeTimeout := cCtx.Duration(InteractionTimeoutFlag.Name) + 30*time.Second

	return &api.HTTPServerConfig{
		ListenAddr:               cCtx.String(ListenAddrFlag.Name),
		MetricsAddr:              cCtx.String(MetricsAddrFlag.Name),
		Log:                      logger,
		EnablePprof:              cCtx.Bool(PprofFlag.Name),
		InternalOrigin:           cCtx.String(InternalOriginFlag.Name),
		InternalToken:            cCtx.String(InternalTokenFlag.Name),
		DrainDuration:            drainDuration,
		GracefulShutdownDuration: 30 * time.Second,
		ReadTimeout:              60 * time.Second,
		WriteTimeout:             writeTimeout,
	}
}

var ListenAddrFlag = &cli.StringFlag{
	Name:  "listen-addr",
	Value: "127.0.0.1:8080",
	Usage: "address to listen on for API",
}

var ServerAddrFlag = &cli.StringFlag{
	Name:    "server-addr",
	Value:   "http://127.0.0.1:8080",
	Usage:   "wallet daemon address",
	EnvVars: []string{"WALLET_SERVER_ADDR"},
}

var OriginFlag = &cli.StringFlag{
	Name:    "origin",
	Value:   api.DefaultInternalOrigin,
	Usage:   "origin to dispatch as",
	EnvVars: []string{"WALLET_ORIGIN"},
}

var InternalOriginFlag = &cli.StringFlag{
	Name:  "internal-origin",
	Value: api.DefaultInternalOrigin,
	Usage: "origin reserved for the wallet UI, granted every capability",
}

var InternalTokenFlag = &cli.StringFlag{
	Name:    "internal-token",
	Usage:   "token required from callers using the internal origin. Empty disables the internal origin over HTTP",
	EnvVars: []string{"WALLET_INTERNAL_TOKEN"},
}

var StorageFlag = &cli.StringSliceFlag{
	Name:  "storage",
	Value: cli.NewStringSlice("badger://./wallet-data"),
	Usage: "storage backend URI, repeat for redundant storage (memory://, file://, badger://, vault://, redis://, s3://)",
}

var ChainsFileFlag = &cli.StringFlag{
	Name:  "chains-file",
	Usage: "YAML chain list replacing the embedded one",
}

var InteractionTimeoutFlag = &cli.DurationFlag{
	Name:  "interaction-timeout",
	Value: 5 * time.Minute,
	Usage: "how long a request waits for the user's decision",
}

var AutoApproveFlag = &cli.BoolFlag{
	Name:  "auto-approve",
	Value: false,
	Usage: "approve every signature and chain suggestion without asking. Development only",
}

var ContextCacheSizeFlag = &cli.IntFlag{
	Name:  "context-cache-size",
	Value: 64,
	Usage: "number of secret-wasm encryption contexts kept in memory",
}

var ConsensusKeyRetriesFlag = &cli.IntFlag{
	Name:  "consensus-key-retries",
	Value: 3,
	Usage: "retries when fetching a chain's consensus io key",
}

var LogJsonFlag = &cli.BoolFlag{
	Name:  "log-json",
	Value: false,
	Usage: "log in JSON format",
}
var LogDebugFlag = &cli.BoolFlag{
	Name:  "log-debug",
	Value: false,
	Usage: "log debug messages",
}
var LogUidFlag = &cli.BoolFlag{
	Name:  "log-uid",
	Value: false,
	Usage: "generate a uuid and add to all log messages",
}

var LogServiceFlagFn = func(service string) *cli.StringFlag {
	return &cli.StringFlag{
		Name:  "log-service",
		Value: service,
		Usage: "add 'service' tag to logs",
	}
}

var PprofFlag = &cli.BoolFlag{
	Name:  "pprof",
	Value: false,
	Usage: "enable pprof debug endpoint",
}
var DrainSecondsFlag = &cli.Int64Flag{
	Name:  "drain-seconds",
	Value: 45,
	Usage: "seconds to wait in drain HTTP request",
}
var MetricsAddrFlag = &cli.StringFlag{
	Name:  "metrics-addr",
	Value: "127.0.0.1:8090",
	Usage: "address to listen on for Prometheus metrics",
}

var CommonFlags = []cli.Flag{
	LogJsonFlag,
	LogDebugFlag,
	LogUidFlag,
	PprofFlag,
	DrainSecondsFlag,
	MetricsAddrFlag,
}
