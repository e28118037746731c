package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"weather-lookup/internal/config"
	"weather-lookup/internal/geocoder"
	"weather-lookup/internal/handler"
	"weather-lookup/internal/logging"
	"weather-lookup/internal/metrics"
	"weather-lookup/internal/repository"
	"weather-lookup/internal/service"
	"weather-lookup/internal/weather"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

const shutdownTimeout = 10 * time.Second

//	@title			Weather Lookup API
//	@version		1.0
//	@description	Resolves US street addresses to coordinates and shows their weather forecast.
//	@BasePath		/
func main() {
	config, err := config.LoadConfig("./configs")
	if err != nil {
		log.Fatal().Err(err).Msg("cannot load config")
	}
	if err := logging.Setup(config.LogLevel, config.LogFormat); err != nil {
		log.Fatal().Err(err).Msg("cannot set up logging")
	}
	gin.SetMode(gin.ReleaseMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Database connection
	conn, err := pgxpool.New(ctx, config.DBSource)
	if err != nil {
		log.Fatal().Err(err).Msg("cannot connect to db")
	}
	defer conn.Close()

	repo := repository.NewRepository(conn)
	if err := repo.EnsureSchema(ctx); err != nil {
		log.Fatal().Err(err).Msg("cannot create schema")
	}

	m := metrics.New(prometheus.DefaultRegisterer)

	// Upstream clients
	census := geocoder.NewClient(config.GeocoderBaseURL, config.GeocoderBenchmark, config.UpstreamTimeout, m)
	nws := weather.NewClient(config.WeatherBaseURL, config.WeatherUserAgent, config.UpstreamTimeout, m)
	cache := weather.NewForecastCache(config.ForecastCacheTTL, m)

	// Initialize layers
	locationService := service.NewLocationService(repo, census, clockwork.NewRealClock(), m)
	forecastService := service.NewForecastService(nws, cache)

	locationHandler := handler.NewLocationHandler(locationService, forecastService, config.RecentLimit)
	r := handler.NewRouter(locationHandler, repo, promhttp.Handler())

	srv := &http.Server{
		Addr:              config.ServerAddress,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().Str("addr", config.ServerAddress).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown error")
	}
	log.Info().Msg("shutdown complete")
}
