package main

import (
	"errors"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	evbus "github.com/asaskevich/EventBus"
	"github.com/ruteri/wallet-background/chains"
	"github.com/ruteri/wallet-background/cmd/flags"
	"github.com/ruteri/wallet-background/common"
	"github.com/ruteri/wallet-background/httpserver"
	"github.com/ruteri/wallet-background/interaction"
	"github.com/ruteri/wallet-background/interfaces"
	"github.com/ruteri/wallet-background/keyring"
	"github.com/ruteri/wallet-background/metrics"
	"github.com/ruteri/wallet-background/permission"
	"github.com/ruteri/wallet-background/router"
	"github.com/ruteri/wallet-background/secretwasm"
	"github.com/ruteri/wallet-background/storage"
	"github.com/urfave/cli/v2"
)

var walletFlags = []cli.Flag{
	flags.ListenAddrFlag,
	flags.InternalOriginFlag,
	flags.InternalTokenFlag,
	flags.StorageFlag,
	flags.ChainsFileFlag,
	flags.InteractionTimeoutFlag,
	flags.AutoApproveFlag,
	flags.ContextCacheSizeFlag,
	flags.ConsensusKeyRetriesFlag,
	flags.LogServiceFlagFn("walletd"),
}

func main() {
	app := &cli.App{
		Name:   "walletd",
		Usage:  "Serve the wallet background: key ring, chains and secret-wasm encryption",
		Flags:  append(walletFlags, flags.CommonFlags...),
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(cCtx *cli.Context) error {
	ctx := cCtx.Context
	logger := flags.SetupLogger(cCtx)
	cfg := flags.ConfigureServer(cCtx, logger)
	m := metrics.New(common.PackageName)

	store, err := openStore(cCtx.StringSlice(flags.StorageFlag.Name), logger)
	if err != nil {
		logger.Error("Failed to open storage", "err", err)
		return err
	}
	if closer, ok := store.(io.Closer); ok {
		defer closer.Close()
	}
	logger.Info("Storage ready", slog.String("location", store.LocationURI()))

	bus := evbus.New()

	embedded, err := loadEmbeddedChains(cCtx.String(flags.ChainsFileFlag.Name))
	if err != nil {
		logger.Error("Failed to load chains", "err", err)
		return err
	}

	approvals := interaction.NewService(cCtx.Duration(flags.InteractionTimeoutFlag.Name), logger, m)
	var approver interaction.Approver = approvals
	if cCtx.Bool(flags.AutoApproveFlag.Name) {
		logger.Warn("Auto-approve enabled, every signature is approved without asking")
		approver = interaction.AutoApprover{Log: logger}
	}

	chainService := chains.NewService(embedded, storage.NewPrefixStore(store, "chains/"), bus, approver, logger)
	if err := chainService.Load(ctx); err != nil {
		logger.Error("Failed to load suggested chains", "err", err)
		return err
	}

	ring := keyring.NewService(storage.NewPrefixStore(store, "keyring/"), chainService, approver, bus, logger)
	if err := ring.Load(ctx); err != nil {
		logger.Error("Failed to load key ring", "err", err)
		return err
	}
	logger.Info("Key ring loaded", slog.String("status", string(ring.Status())))

	gate := permission.NewGate(storage.NewPrefixStore(store, "permission/"), logger)
	if err := gate.Load(ctx); err != nil {
		logger.Error("Failed to load permissions", "err", err)
		return err
	}
	if err := gate.Bootstrap(ctx, cfg.InternalOrigin); err != nil {
		logger.Error("Failed to grant internal origin", "err", err)
		return err
	}
	if err := chainService.OnChainRemoved(gate.OnChainRemoved); err != nil {
		return err
	}

	consensus := secretwasm.NewRESTConsensusKeySource(cCtx.Int(flags.ConsensusKeyRetriesFlag.Name), 30*time.Second, logger)
	secretWasm, err := secretwasm.NewService(
		secretwasm.Config{CacheSize: cCtx.Int(flags.ContextCacheSizeFlag.Name)},
		chainService, ring, storage.NewPrefixStore(store, "secret-wasm/"), consensus, logger, m)
	if err != nil {
		logger.Error("Failed to create secret-wasm service", "err", err)
		return err
	}

	r := router.New(logger, m)
	inits := []func() error{
		func() error { return chains.Init(r, chainService, gate) },
		func() error { return secretwasm.Init(r, secretWasm, gate) },
		func() error { return keyring.Init(r, ring, gate) },
		func() error { return interaction.Init(r, approvals, gate) },
		func() error { return permission.Init(r, gate, logger) },
	}
	for _, register := range inits {
		if err := register(); err != nil {
			logger.Error("Failed to register route", "err", err)
			return err
		}
	}

	handler := httpserver.NewHandler(r, cfg.InternalOrigin, cfg.InternalToken, logger)
	server, err := httpserver.New(cfg, handler, m)
	if err != nil {
		logger.Error("Failed to create server", "err", err)
		return err
	}

	if cfg.InternalToken == "" {
		logger.Warn("No internal token configured, the internal origin is unreachable over HTTP")
	}

	logger.Info("Starting server")
	server.RunInBackground()

	// Wait for termination signal
	exit := make(chan os.Signal, 1)
	signal.Notify(exit, os.Interrupt, syscall.SIGTERM)

	logger.Info("Server is running, press Ctrl+C to stop")
	<-exit
	logger.Info("Shutdown signal received")

	server.Shutdown()
	logger.Info("Server shutdown complete")
	return nil
}

func openStore(uris []string, logger *slog.Logger) (interfaces.KVStore, error) {
	locations := make([]interfaces.StorageBackendLocation, 0, len(uris))
	for _, uri := range uris {
		location, err := interfaces.NewStorageBackendLocation(uri)
		if err != nil {
			return nil, err
		}
		locations = append(locations, location)
	}

	if len(locations) == 0 {
		return nil, errors.New("no storage configured")
	}

	return storage.NewStorageBackendFactory(logger).CreateMultiStore(locations)
}

func loadEmbeddedChains(path string) ([]interfaces.ChainInfo, error) {
	if path == "" {
		return chains.DefaultChains()
	}
	return chains.LoadChainsFile(path)
}

