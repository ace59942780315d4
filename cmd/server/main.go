package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"
	"visit-route-engine/internal/adapters/cache"
	"visit-route-engine/internal/adapters/distance"
	"visit-route-engine/internal/adapters/httpclient"
	"visit-route-engine/internal/adapters/places"
	"visit-route-engine/internal/adapters/repositories"
	"visit-route-engine/internal/api"
	"visit-route-engine/internal/api/handlers"
	"visit-route-engine/internal/platform/config"
	"visit-route-engine/internal/platform/db"
	"visit-route-engine/internal/platform/obs"
	"visit-route-engine/internal/ports"
	"visit-route-engine/internal/services"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

// main is the application composition root.
// It wires concrete adapters (Postgres, Redis, Maps HTTP APIs) behind ports
// and starts the HTTP server.
func main() {
	envErr := godotenv.Load()

	cfg, err := config.Load(os.Getenv("ROUTE_CONFIG"))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	obs.InitLogger(cfg.Log)
	log := obs.Logger()
	if envErr != nil {
		log.Info().Msg("no .env file found (using environment variables)")
	}

	if err := run(cfg); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func run(cfg *config.Config) error {
	log := obs.Logger()

	engineOpts, err := cfg.EngineOptions()
	if err != nil {
		return err
	}

	checks := map[string]handlers.Pinger{}

	var (
		conn *sql.DB
		repo ports.PointRepository
	)
	if cfg.Database.URL != "" {
		conn, err = db.Open(cfg.Database.URL, db.PoolOptions{
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		})
		if err != nil {
			return err
		}
		defer conn.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err = repositories.InitSchema(ctx, conn)
		cancel()
		if err != nil {
			return err
		}

		repo = repositories.NewPostgresPointRepository(conn)
		checks["postgres"] = conn
	} else {
		log.Warn().Msg("DATABASE_URL not set: points must be supplied inline")
	}

	travelOpts := []services.TravelOption{
		services.WithCache(cache.NewMemoryDistanceCache(cfg.Cache.MaxEntries)),
	}

	switch {
	case cfg.Cache.RedisAddr != "":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		})
		defer rdb.Close()
		travelOpts = append(travelOpts, services.WithStore(cache.NewRedisDistanceCache(rdb, cfg.Cache.RedisTTL)))
		checks["redis"] = handlers.PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
	case cfg.Cache.Postgres && conn != nil:
		travelOpts = append(travelOpts, services.WithStore(cache.NewSQLDistanceCache(conn)))
	}

	if cfg.Provider.Enabled {
		client := httpclient.New(cfg.Provider.BaseURL, cfg.Provider.APIKey,
			httpclient.WithHTTPClient(&http.Client{Timeout: cfg.Provider.Timeout}),
			httpclient.WithRetry(cfg.Provider.Retries, 200*time.Millisecond),
		)
		remote, err := distance.NewTrafficMatrixProvider(client,
			distance.WithMatrixLimits(ports.MatrixLimits{
				MaxOrigins:      cfg.Provider.MaxOrigins,
				MaxDestinations: cfg.Provider.MaxDestinations,
			}),
			distance.WithTrafficModel(cfg.Provider.TrafficModel),
		)
		if err != nil {
			return err
		}
		travelOpts = append(travelOpts, services.WithRemote(remote))
	} else {
		log.Warn().Msg("traffic provider disabled: travel times are local estimates")
	}

	matrix := services.NewTravelMatrixService(
		distance.NewLocalEstimator(cfg.Engine.AverageSpeedKmh),
		cfg.TravelOptions(),
		travelOpts...,
	)

	var lookup ports.PlacesLookup
	if cfg.Places.Enabled {
		client := httpclient.New(cfg.Places.BaseURL, cfg.Places.APIKey,
			httpclient.WithHTTPClient(&http.Client{Timeout: cfg.Places.Timeout}),
		)
		pc, err := places.NewClient(client)
		if err != nil {
			return err
		}
		lookup = pc
		if conn != nil {
			lookup = places.NewCachedLookup(pc, cache.NewSQLHoursCache(conn))
		}
	}
	hours := services.NewHoursResolver(lookup, cfg.Places.Timeout, cfg.Places.Concurrency)

	planner, err := services.NewPlanner(engineOpts, matrix, hours, repo)
	if err != nil {
		return err
	}

	router := api.NewRouter(api.Deps{
		Planner:        planner,
		Health:         checks,
		RequestTimeout: cfg.Server.RequestTimeout(),
	})

	// Timeouts are tuned for cold-cache route planning (external API latency).
	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
