package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/sapslaj/dynip/config"
	"github.com/sapslaj/dynip/config/configtypes"
	"github.com/sapslaj/dynip/engine"
	"github.com/sapslaj/dynip/pkg/log"
	"github.com/sapslaj/dynip/pkg/metrics"
	"github.com/sapslaj/dynip/record"
)

var (
	configFileName = flag.String("config-file", "config.yaml", "Path to configuration file, .lua or .yaml (default: config.yaml)")
	envFileName    = flag.String("env-file", ".env", "Path to an optional dotenv file loaded before the configuration (default: .env)")
	interval       = flag.Duration("interval", 0, "Overrides the configured interval between two consecutive address checks in duration format (default: from configuration)")
	once           = flag.Bool("once", false, "When enabled, exits after the initial reconciliation (default: disabled)")
	dryRun         = flag.Bool("dry-run", false, "When enabled, prints DNS record changes rather than actually performing them (default: disabled)")
	listenAddress  = flag.String("listen-address", "", "Address to serve /metrics and /records on, empty to disable (default: disabled)")
)

func main() {
	logger := log.MustNewLogger().Named("main")
	defer func() {
		err := logger.Sync()
		var perr *fs.PathError
		if err != nil && !errors.As(err, &perr) {
			panic(err)
		}
	}()
	logger.Info("Starting dynip v" + VERSION)

	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleSigterm(cancel, logger)

	if *dryRun {
		ctx = context.WithValue(ctx, configtypes.DryRunContextKey, true)
	}

	if err := godotenv.Load(*envFileName); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logger.Sugar().Panicf("could not load env file %s: %v", *envFileName, err)
		}
		logger.Sugar().Debugw("no env file loaded", "file", *envFileName)
	}

	c, err := config.NewConfig(*configFileName)
	if err != nil {
		logger.Sugar().Panicf("could not create new configuration: %v", err)
	}
	defer c.Close()
	err = c.Parse()
	if err != nil {
		logger.Sugar().Panicf("could not parse configuration: %v", err)
	}
	settings := c.Settings()
	log.SetVerbosity(logger, settings.Verbosity)

	source, err := c.AddressSource()
	if err != nil {
		logger.Sugar().Panicf("could not get address source from configuration: %v", err)
	}
	zones, err := c.Zones(ctx)
	if err != nil {
		logger.Sugar().Panicf("could not get zones from configuration: %v", err)
	}

	e := engine.New(source, settings.Interval())
	if *interval > 0 {
		e.Interval = *interval
	}
	metrics.Registry.MustRegister(engine.NewRecordCollector(e))

	if *listenAddress != "" {
		go serveHTTP(ctx, logger.Named("http"), *listenAddress, e)
	}

	inventory, err := e.InitializeInventory(ctx, zones)
	reportInventory(logger, len(zones), inventory, err, e.LastAddress())

	if *once {
		return
	}

	e.RunForever(ctx)
}

// reportInventory logs the outcome of the initial reconciliation. Records
// that could not be created for lack of an address are left out of the
// inventory; the rest is still kept up to date by the poll loop.
func reportInventory(logger *zap.Logger, zones int, inventory map[string][]record.DesiredRecord, err error, addr string) int {
	for _, perr := range multierr.Errors(err) {
		logger.Sugar().Errorw(
			"record left untracked",
			"err", perr,
		)
	}
	tracked := 0
	for _, records := range inventory {
		tracked += len(records)
	}
	logger.Sugar().Infow(
		"record inventory initialized",
		"zones", zones,
		"tracked_records", tracked,
		"untracked_records", len(multierr.Errors(err)),
		"address", addr,
	)
	return tracked
}

func serveHTTP(ctx context.Context, logger *zap.Logger, addr string, e *engine.Engine) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	mux.Handle("/records", e.RecordsHandler())
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Sugar().Errorw("could not shut down HTTP server", "err", err)
		}
	}()

	logger.Sugar().Infow("serving HTTP", "address", addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Sugar().Errorw("HTTP server failed", "err", err)
	}
}

func handleSigterm(cancel func(), logger *zap.Logger) {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGTERM, syscall.SIGINT)
	sig := <-signals
	logger.Info("Received " + sig.String() + ". Terminating...")
	cancel()
}
