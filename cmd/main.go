package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "drc_online/docs"
	"drc_online/internal/device"
	"drc_online/internal/handlers"
	"drc_online/internal/logger"
	"drc_online/internal/models"
	"drc_online/internal/repository"
	"drc_online/internal/repository/db"
	"drc_online/internal/server"
	"drc_online/internal/service"

	"github.com/spf13/viper"
)

// @title        DRC Online Dashboard API
// @version      1.0
// @description  Real-time VNA sweep pipeline with DRC calibration and trained-model evaluation.
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// load config.yml first so the log level comes from it
	if err := loadConfig(); err != nil {
		logger.Get(logger.InfoLevel).Fatalw("error reading config", "err", err)
	}
	log := logger.Get(viper.GetString("log.level"))

	// open DB
	sqlDB, err := openDB(log)
	if err != nil {
		log.Fatalw("failed to init sqlite", "err", err)
	}
	defer func() {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Fatalw("failed to close sqlite", "err", cerr)
		}
	}()

	// wire dependencies
	repos := repository.NewRepository(sqlDB)
	bus := service.NewBus()
	defer bus.Close()

	services := service.NewService(repos, device.NewSynthetic(), bus, log, serviceOptions())
	apiHandler := handlers.NewHandler(services, log)

	// start HTTP server
	srv := &server.Server{}
	runHTTPServer(srv, viper.GetString("port"), apiHandler, log)

	// graceful shutdown
	waitForShutdown(services, srv, log)
}

func loadConfig() error {
	viper.AddConfigPath("configs") // configs/config.yml
	viper.SetConfigName("config")
	return viper.ReadInConfig()
}

// serviceOptions maps config keys onto service tunables with safe defaults.
func serviceOptions() service.Options {
	viper.SetDefault("sweep.start_freq", 2.0)
	viper.SetDefault("sweep.stop_freq", 3.0)
	viper.SetDefault("sweep.points", 101)
	viper.SetDefault("sweep.interval_ms", 1000)
	viper.SetDefault("sweep.max_failures", service.DefaultMaxFailures)
	viper.SetDefault("jwt.ttl", "1h")

	return service.Options{
		SweepConfig: models.SweepConfig{
			Port:       viper.GetString("sweep.port"),
			StartFreq:  viper.GetFloat64("sweep.start_freq"),
			StopFreq:   viper.GetFloat64("sweep.stop_freq"),
			Points:     viper.GetInt("sweep.points"),
			IntervalMS: viper.GetInt("sweep.interval_ms"),
		},
		MaxFailures:   viper.GetInt("sweep.max_failures"),
		JWTSigningKey: viper.GetString("jwt.signing_key"),
		JWTTokenTTL:   viper.GetDuration("jwt.ttl"),
		HistoryPoints: viper.GetInt("sweep.history_points"),
	}
}

// openDB initializes the SQLite database using configuration.
func openDB(log *logger.Logger) (*sql.DB, error) {
	dbPath := viper.GetString("db.path")
	if dbPath == "" {
		log.Infow("db.path not set in config; using default file", "default", "drc.db")
		dbPath = "drc.db"
	}
	return db.InitDB(dbPath)
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, port string, handler *handlers.Handler, log *logger.Logger) {
	go func() {
		if port == "" {
			port = "8080"
		}
		if err := srv.Run(port, handler.InitRoutes()); err != nil {
			log.Fatalw("error starting server", "err", err)
		}
	}()
}

// waitForShutdown listens for termination signals and performs graceful shutdown.
func waitForShutdown(services *service.Service, srv *server.Server, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server...")

	// stop the sweep loop before the listener so the device link closes cleanly
	if services.Sweep.Running() {
		if err := services.Sweep.Stop(); err != nil {
			log.Errorw("failed to stop sweep", "err", err)
		}
	}

	// allow in-flight requests to complete
	ctx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalw("server forced to shutdown", "err", err)
	}
}
