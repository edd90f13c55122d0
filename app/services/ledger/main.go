package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ardanlabs/iotledger/app/services/ledger/handlers"
	"github.com/ardanlabs/iotledger/business/web/metrics"
	"github.com/ardanlabs/iotledger/foundation/blockchain/state"
	"github.com/ardanlabs/iotledger/foundation/blockchain/storage"
	"github.com/ardanlabs/iotledger/foundation/events"
	"github.com/ardanlabs/iotledger/foundation/logger"
	"github.com/ardanlabs/iotledger/foundation/nameservice"
	"github.com/ardanlabs/conf/v3"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

func main() {

	// Construct the application logger.
	log, err := logger.New("LEDGER", logOutputs()...)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	// Perform the startup and shutdown sequence.
	if err := run(log); err != nil {
		log.Errorw("startup", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

// logOutputs returns the rotating log file when one is configured. The
// logger is needed before the configuration is parsed, so the variable is
// read directly.
func logOutputs() []string {
	file := os.Getenv("LEDGER_LOG_FILE")
	if file == "" {
		return nil
	}
	return []string{logger.RotateScheme + "://" + file}
}

func run(log *zap.SugaredLogger) error {

	// =========================================================================
	// Configuration

	// This is all the configuration for the application and the default values.
	// Configuration values will be passed through the application as individual
	// values.
	cfg := struct {
		conf.Version
		Web struct {
			ReadTimeout     time.Duration `conf:"default:5s"`
			WriteTimeout    time.Duration `conf:"default:60s"`
			IdleTimeout     time.Duration `conf:"default:120s"`
			ShutdownTimeout time.Duration `conf:"default:20s"`
			DebugHost       string        `conf:"default:0.0.0.0:7080"`
			PublicHost      string        `conf:"default:0.0.0.0:8080"`
		}
		Log struct {
			File string `conf:"help:rotating log file read at startup"`
		}
		Ledger struct {
			Difficulty        uint          `conf:"default:2"`
			NonceLimit        uint64        `conf:"default:1000000"`
			TransPerBlock     int           `conf:"default:2"`
			MineTimeout       time.Duration `conf:"default:30s"`
			RequireSignatures bool          `conf:"default:false"`
		}
		Store struct {
			Kind string `conf:"default:disk,help:postgres|sqlite|leveldb|disk|memory"`
			DSN  string `conf:"mask"`
			Path string `conf:"default:zblock/blocks"`
		}
		NameService struct {
			Folder string `conf:"default:zblock/devices/"`
		}
		Events struct {
			Buffer int `conf:"default:100"`
		}
	}{
		Version: conf.Version{
			Build: build,
			Desc:  "IoT telemetry ledger",
		},
	}

	// Parse will set the defaults and then look for any overriding values
	// in environment variables and command line flags.
	const prefix = "LEDGER"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	// =========================================================================
	// App Starting

	log.Infow("starting service", "version", build)
	defer log.Infow("shutdown complete")

	// Display the current configuration to the logs.
	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Infow("startup", "config", out)

	// =========================================================================
	// Name Service Support

	// The nameservice package provides name resolution for device addresses.
	// The names come from the file names in the devices folder.
	if err := os.MkdirAll(cfg.NameService.Folder, 0755); err != nil {
		return fmt.Errorf("creating devices folder: %w", err)
	}

	ns, err := nameservice.New(cfg.NameService.Folder)
	if err != nil {
		return fmt.Errorf("unable to load device name service: %w", err)
	}

	// Logging the devices for documentation in the logs.
	for address, name := range ns.Copy() {
		log.Infow("startup", "status", "nameservice", "name", name, "address", address)
	}

	// =========================================================================
	// Ledger Support

	strg, err := storage.Open(storage.Config{
		Kind: cfg.Store.Kind,
		DSN:  cfg.Store.DSN,
		Path: cfg.Store.Path,
	})
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}

	// The ledger packages accept a function of this signature to allow the
	// application to log. These raw messages are also sent to any websocket
	// client that is connected into the system through the events package.
	evts := events.New(cfg.Events.Buffer)
	ev := func(v string, args ...any) {
		s := fmt.Sprintf(v, args...)
		log.Infow(s, "traceid", "00000000-0000-0000-0000-000000000000")
		evts.Send(s)
	}

	// The state value represents the ledger and manages the chain and the
	// pending readings.
	st, err := state.New(state.Config{
		Difficulty:    cfg.Ledger.Difficulty,
		NonceLimit:    cfg.Ledger.NonceLimit,
		TransPerBlock: cfg.Ledger.TransPerBlock,
		Storage:       strg,
		EvHandler:     ev,
	})
	if err != nil {
		strg.Close()
		return err
	}
	defer st.Shutdown()

	mtrs := metrics.New()
	mtrs.ChainHeight.Set(float64(st.LatestBlock().Header.Index))

	// =========================================================================
	// Start Debug Service

	log.Infow("startup", "status", "debug v1 router started", "host", cfg.Web.DebugHost)

	// The Debug function returns a mux to listen and serve on for all the debug
	// related endpoints. This includes the standard library endpoints.

	// Construct the mux for the debug calls.
	debugMux := handlers.DebugMux(build, log, st, mtrs)

	// Start the service listening for debug requests.
	// Not concerned with shutting this down with load shedding.
	go func() {
		if err := http.ListenAndServe(cfg.Web.DebugHost, debugMux); err != nil {
			log.Errorw("shutdown", "status", "debug v1 router closed", "host", cfg.Web.DebugHost, "ERROR", err)
		}
	}()

	// =========================================================================
	// Service Start/Stop Support

	// Make a channel to listen for an interrupt or terminate signal from the OS.
	// Use a buffered channel because the signal package requires it.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	// Make a channel to listen for errors coming from the listener. Use a
	// buffered channel so the goroutine can exit if we don't collect this error.
	serverErrors := make(chan error, 1)

	// =========================================================================
	// Start Public Service

	log.Infow("startup", "status", "initializing V1 public API support")

	// Construct the mux for the public API calls.
	publicMux := handlers.PublicMux(handlers.MuxConfig{
		Shutdown:          shutdown,
		Log:               log,
		State:             st,
		NS:                ns,
		Evts:              evts,
		Metrics:           mtrs,
		RequireSignatures: cfg.Ledger.RequireSignatures,
		MineTimeout:       cfg.Ledger.MineTimeout,
	})

	// Construct a server to service the requests against the mux.
	public := http.Server{
		Addr:         cfg.Web.PublicHost,
		Handler:      publicMux,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     zap.NewStdLog(log.Desugar()),
	}

	// Start the service listening for api requests.
	go func() {
		log.Infow("startup", "status", "public api router started", "host", public.Addr)
		serverErrors <- public.ListenAndServe()
	}()

	// =========================================================================
	// Shutdown

	// Blocking main and waiting for shutdown.
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		log.Infow("shutdown", "status", "shutdown started", "signal", sig)
		defer log.Infow("shutdown", "status", "shutdown complete", "signal", sig)

		// Release any web sockets that are currently active.
		log.Infow("shutdown", "status", "shutdown web socket channels")
		evts.Shutdown()

		// Give outstanding requests a deadline for completion.
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancel()

		// Asking listener to shut down and shed load.
		log.Infow("shutdown", "status", "shutdown public API started")
		if err := public.Shutdown(ctx); err != nil {
			public.Close()
			return fmt.Errorf("could not stop public service gracefully: %w", err)
		}
	}

	return nil
}
