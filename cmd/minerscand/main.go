package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/rs/zerolog/log"

	"miner-scanner/config"
	"miner-scanner/internal/api"
	"miner-scanner/internal/db"
	"miner-scanner/internal/messaging"
	"miner-scanner/internal/miner"
	"miner-scanner/internal/notification"
	"miner-scanner/internal/scanner"
	"miner-scanner/internal/state"
	"miner-scanner/internal/store"
	"miner-scanner/internal/tui"
)

func main() {
	defaultConfig := os.Getenv("CONFIG_PATH")
	if defaultConfig == "" {
		defaultConfig = "./config/config.yaml"
	}
	configPath := flag.String("config", defaultConfig, "path to the configuration file")
	showTUI := flag.Bool("tui", false, "show the terminal display (overrides display.enabled)")
	once := flag.Bool("once", false, "run a single scan, print the records as JSON and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", *configPath).Msg("failed to load configuration")
	}

	tuiActive := (*showTUI || cfg.Display.Enabled) && !*once
	logFile, err := setupLogging(cfg.Log, tuiActive)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up logging")
	}
	defer logFile.Close()
	log.Info().Str("path", *configPath).Str("subnet", cfg.Scanner.Subnet).Msg("configuration loaded")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	scanState := state.New()
	discoverer := miner.NewDiscoverer(miner.Options{
		Port:         cfg.Scanner.Port,
		Timeout:      cfg.Scanner.Timeout,
		Concurrency:  cfg.Scanner.Concurrency,
		WebPort:      cfg.Antminer.WebPort,
		WebUser:      cfg.Antminer.WebUser,
		WebPassword:  cfg.Antminer.WebPassword,
		MinPrefixLen: cfg.Scanner.MinPrefixLen,
	})
	scanSvc := scanner.NewService(cfg.Scanner, scanState, scanner.New(discoverer))

	if *once {
		code := runOnce(ctx, scanSvc, scanState)
		stop()
		logFile.Close()
		os.Exit(code)
	}

	webpushOptions := webpush.Options{
		VAPIDPublicKey:  cfg.Push.PublicKey,
		VAPIDPrivateKey: cfg.Push.PrivateKey,
		Subscriber:      cfg.Push.Subject,
		TTL:             cfg.Push.TTL,
	}

	var appStore store.Store
	if gormDB, err := db.Init(&cfg.Database); err != nil {
		log.Error().Err(err).Msg("database unavailable, inventory and alerts disabled")
	} else {
		appStore = store.NewGormStore(gormDB)
		dispatch := func(a store.Alert) {
			log.Info().Str("ip", a.Address).Str("reason", string(a.Reason)).Msg("miner alert")
		}
		if cfg.Push.PublicKey != "" && cfg.Push.PrivateKey != "" {
			workerPool := notification.NewWorkerPool(cfg.WorkerPool.Size, cfg.WorkerPool.QueueSize, gormDB, &webpushOptions)
			workerPool.Start(ctx)
			dispatch = func(a store.Alert) {
				log.Info().Str("ip", a.Address).Str("reason", string(a.Reason)).Msg("miner alert")
				workerPool.Dispatch(a)
			}
		} else {
			log.Warn().Msg("VAPID keys not configured, push alerts disabled")
		}
		scanState.Subscribe(store.SyncOnCommit(ctx, appStore, dispatch))
	}

	if cfg.Messaging.Backend != "" {
		client := messaging.NewClient(&cfg.Messaging)
		defer client.Close()
		go func() {
			if err := client.Connect(); err != nil {
				log.Error().Err(err).Str("backend", cfg.Messaging.Backend).Msg("messaging unavailable, scan summaries will not be published")
				return
			}
			scanState.Subscribe(messaging.NewPublisher(client, cfg.Messaging.Topic).OnCommit)
		}()
	}

	go scanSvc.Run(ctx)

	var server *http.Server
	if cfg.Server.IsEnabled() {
		server = &http.Server{
			Addr:              cfg.Server.Addr(),
			Handler:           api.NewRouter(cfg.Server, scanState, appStore, &webpushOptions),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			log.Info().Str("addr", server.Addr).Msg("HTTP server starting")
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("HTTP server stopped")
				stop()
			}
		}()
	}

	if tuiActive {
		if err := tui.Run(ctx, scanState); err != nil {
			log.Error().Err(err).Msg("terminal display failed")
		}
		stop()
	}

	<-ctx.Done()
	log.Info().Msg("shutdown signal received, stopping services")

	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("HTTP server shutdown")
		}
	}
	log.Info().Msg("stopped")
}

// runOnce scans synchronously and writes the records to stdout.
func runOnce(ctx context.Context, svc *scanner.Service, st *state.State) int {
	svc.ScanOnce(ctx)
	snap := st.Snapshot()
	if snap.LastError != "" {
		log.Error().Str("error", snap.LastError).Msg("scan failed")
		return 1
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap.Records); err != nil {
		log.Error().Err(err).Msg("encode records")
		return 1
	}
	return 0
}
