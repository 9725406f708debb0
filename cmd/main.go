package main

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"solar_collector/internal/clock"
	"solar_collector/internal/config"
	"solar_collector/internal/handlers"
	"solar_collector/internal/hardware"
	"solar_collector/internal/localstore"
	"solar_collector/internal/logger"
	"solar_collector/internal/remote"
	"solar_collector/internal/repository"
	"solar_collector/internal/repository/db"
	"solar_collector/internal/retry"
	"solar_collector/internal/sampler"
	"solar_collector/internal/server"
	"solar_collector/internal/service"
	"solar_collector/internal/telemetry"

	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

const (
	remoteNone   = "none"
	remoteHTTP   = "http"
	hardwareSim  = "sim"
	hardwareTTY  = "serial"
	syncPoll     = time.Second
	shutdownWait = 10 * time.Second
)

// @title        Solar collector controller API
// @version      1.0
// @description  Differential controller for a solar thermal collector loop.
// @securityDefinitions.apikey  BearerAuth
// @in           header
// @name         Authorization
func main() {
	// load config.yml
	if err := loadConfig(); err != nil {
		logger.Get(logger.InfoLevel).Fatalw("error reading config", "err", err)
	}

	// init logger
	log := logger.Get(viper.GetString("log.level"))

	// open DB
	localDB, err := openDB(log)
	if err != nil {
		log.Fatalw("failed to init sqlite", "err", err)
	}
	defer func() {
		if cerr := localDB.Close(); cerr != nil {
			log.Errorw("failed to close sqlite", "err", cerr)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// hardware: relay open, LED on, mux on channel 0
	device, err := openDevice()
	if err != nil {
		log.Fatalw("failed to open hardware", "driver", viper.GetString("hardware.driver"), "err", err)
	}
	defer func() { _ = device.Close() }()
	if err := hardware.Init(device); err != nil {
		log.Fatalw("failed to init hardware", "err", err)
	}
	led := hardware.NewIndicator(device)

	// local credentials, with the reset window
	local := localstore.New(afero.NewOsFs(), viper.GetString("localstore.dir"), log.Named("localstore"))
	creds, cleared, err := local.Init(ctx, viper.GetDuration("localstore.reset_window"), led)
	switch {
	case errors.Is(err, localstore.ErrNotConfigured):
		log.Warnw("no local credentials saved", "cleared", cleared)
	case err != nil:
		log.Errorw("failed to read local credentials", "err", err)
	}

	// wait for wall-clock time
	led.Blink(hardware.BlinkWaiting)
	if err := clock.WaitForSync(ctx, clock.System{}, syncPoll); err != nil {
		log.Fatalw("clock never synced", "err", err)
	}
	led.Steady(true)

	// remote configuration and telemetry backend
	policy := retry.Policy{
		MaxAttempts: viper.GetInt("retry.attempts"),
		Delay:       viper.GetDuration("retry.delay"),
	}
	rb, err := openRemote(localDB, creds)
	if err != nil {
		log.Fatalw("failed to open remote backend", "driver", viper.GetString("remote.driver"), "err", err)
	}
	defer rb.close(log)

	store := config.NewStore(rb.source, viper.GetString("remote.namespace"), policy, log.Named("config"))
	led.Blink(hardware.BlinkConfigLoad)
	res, loadErr := store.Load(ctx)
	led.Steady(true)
	if loadErr != nil {
		log.Warnw("config_partially_loaded", "failed", res.Failed(), "err", loadErr)
	}

	sink := telemetry.NewSink(rb.backend, store.MaxEntries.Get(), policy, log.Named("telemetry"))

	// wire dependencies
	repos := repository.NewRepository(localDB)
	controller := service.NewControllerService(service.ControllerDeps{
		Device:    device,
		LED:       led,
		Store:     store,
		Sink:      sink,
		Clock:     clock.System{},
		StateRepo: repos.StateRepo,
		EventRepo: repos.EventRepo,
		Channels: service.Channels{
			Storage:   viper.GetInt("hardware.channels.storage"),
			Collector: viper.GetInt("hardware.channels.collector"),
		},
		Settle: viper.GetDuration("hardware.settle"),
		Log:    log.Named("controller"),
	})
	controller.ReportConfigLoad(ctx, res, loadErr)

	opts := service.Options{
		Store:      store,
		Controller: controller,
		Auth: service.AuthConfig{
			SigningKey: viper.GetString("auth.signing_key"),
			TokenTTL:   viper.GetDuration("auth.token_ttl"),
		},
	}
	if rb.telemetry != nil {
		opts.Telemetry = rb.telemetry
	}
	services := service.NewService(repos, opts)
	apiHandler := handlers.NewHandler(services, log)

	// start the polling loop
	controllerDone := make(chan struct{})
	go func() {
		defer close(controllerDone)
		if err := services.Run(ctx); err != nil {
			log.Errorw("controller stopped", "err", err)
		}
	}()

	// start HTTP server
	srv := server.New(viper.GetString("port"), apiHandler.InitRoutes())
	runHTTPServer(srv, log)

	// graceful shutdown
	waitForShutdown(cancel, controllerDone, srv, log)
}

func loadConfig() error {
	viper.AddConfigPath("configs") // configs/config.yml
	viper.SetConfigName("config")
	viper.SetEnvPrefix("SOLAR")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("port", server.DefaultPort)
	viper.SetDefault("log.level", logger.InfoLevel)
	viper.SetDefault("db.path", "app.db")
	viper.SetDefault("auth.token_ttl", service.DefaultTokenTTL)
	viper.SetDefault("hardware.driver", hardwareSim)
	viper.SetDefault("hardware.serial.baud", hardware.DefaultBaudRate)
	viper.SetDefault("hardware.settle", sampler.DefaultSettle)
	viper.SetDefault("hardware.channels.storage", hardware.ChannelStorage)
	viper.SetDefault("hardware.channels.collector", hardware.ChannelCollector)
	viper.SetDefault("hardware.sim.speed", 1.0)
	viper.SetDefault("remote.driver", db.DriverSQLite)
	viper.SetDefault("remote.namespace", config.DefaultNamespace)
	viper.SetDefault("retry.attempts", retry.DefaultAttempts)
	viper.SetDefault("retry.delay", retry.DefaultDelay)
	viper.SetDefault("localstore.dir", ".")
	viper.SetDefault("localstore.reset_window", localstore.DefaultResetWindow)

	return viper.ReadInConfig()
}

// openDB initializes the SQLite database using configuration.
func openDB(log *logger.Logger) (*sql.DB, error) {
	dbPath := viper.GetString("db.path")
	if dbPath == "" {
		log.Infow("db.path not set in config; using default file", "default", "app.db")
		dbPath = "app.db"
	}
	return db.InitDB(dbPath)
}

func openDevice() (hardware.Device, error) {
	switch driver := viper.GetString("hardware.driver"); driver {
	case hardwareTTY:
		return hardware.OpenSerial(
			viper.GetString("hardware.serial.port"),
			viper.GetInt("hardware.serial.baud"),
			2,
		)
	case hardwareSim:
		opts := hardware.DefaultSimOptions(config.DefaultCalibration())
		opts.Speed = viper.GetFloat64("hardware.sim.speed")
		return hardware.NewSimulator(opts), nil
	default:
		return nil, errors.New("unknown hardware driver " + driver)
	}
}

// remoteBackend is where configuration is read from and telemetry written to.
type remoteBackend struct {
	source    config.Source
	backend   telemetry.Backend
	telemetry repository.TelemetryRepo
	db        *sql.DB
}

func (r remoteBackend) close(log *logger.Logger) {
	if r.db == nil {
		return
	}
	if err := r.db.Close(); err != nil {
		log.Errorw("failed to close remote db", "err", err)
	}
}

// openRemote selects the backend named by remote.driver. The sqlite driver
// without a DSN reuses the local database.
func openRemote(local *sql.DB, creds localstore.Credentials) (remoteBackend, error) {
	dsn := viper.GetString("remote.dsn")

	switch driver := viper.GetString("remote.driver"); driver {
	case remoteNone:
		return remoteBackend{}, nil
	case remoteHTTP:
		host, auth := dsn, viper.GetString("remote.auth")
		if host == "" {
			host, auth = creds.RemoteHost, creds.RemoteAuth
		}
		if host == "" {
			return remoteBackend{}, errors.New("remote.dsn is empty and no remote host is saved locally")
		}
		c := remote.New(host, auth)
		return remoteBackend{source: c, backend: c}, nil
	case db.DriverSQLite, db.DriverMySQL:
		conn, owned := local, false
		if driver == db.DriverMySQL || dsn != "" {
			var err error
			if conn, err = db.Open(driver, dsn); err != nil {
				return remoteBackend{}, err
			}
			owned = true
		}
		tel := repository.NewTelemetrySQL(conn)
		rb := remoteBackend{source: repository.NewRemoteConfigSQL(conn), backend: tel, telemetry: tel}
		if owned {
			rb.db = conn
		}
		return rb, nil
	default:
		return remoteBackend{}, errors.New("unknown remote driver " + driver)
	}
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, log *logger.Logger) {
	go func() {
		log.Infow("http_listening", "addr", srv.Addr())
		if err := srv.Run(); err != nil {
			log.Fatalw("error starting server", "err", err)
		}
	}()
}

// waitForShutdown listens for termination signals, stops the polling loop so
// the relay is released, and then drains the HTTP server.
func waitForShutdown(cancel context.CancelFunc, controllerDone <-chan struct{}, srv *server.Server, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server...")

	// stop background goroutines
	cancel()
	<-controllerDone

	// allow in-flight requests to complete
	ctx, shutdownCancel := context.WithTimeout(context.Background(), shutdownWait)
	defer shutdownCancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorw("server forced to shutdown", "err", err)
	}
}
