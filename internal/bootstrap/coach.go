package bootstrap

import (
	"context"
	"log/slog"

	"github.com/eleven-am/presence-coach/internal/camera"
	"github.com/eleven-am/presence-coach/internal/coach"
	"github.com/eleven-am/presence-coach/internal/vision"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

func ProvideStatsStore(redisClient *redis.Client, client *vision.Client, cfg *Config) *coach.RedisStatsStore {
	return coach.NewRedisStatsStore(redisClient, client, cfg.StatsTTL, nil)
}

type CoachManagerParams struct {
	fx.In

	Config      *Config
	Source      camera.Source
	Constraints camera.Constraints
	Encoder     *vision.Encoder
	Client      *vision.Client
	Stats       *coach.RedisStatsStore
	Logger      *slog.Logger
}

func ProvideCoachManager(lc fx.Lifecycle, params CoachManagerParams) *coach.Manager {
	mgr := coach.NewManager(coach.ManagerConfig{
		Source:      params.Source,
		Constraints: params.Constraints,
		Encoder:     params.Encoder,
		Analyzer:    params.Client,
		Stats:       params.Stats,
		Interval:    params.Config.CaptureInterval,
		IdleTimeout: params.Config.SessionIdleTimeout,
		Logger:      params.Logger,
	})

	reapCtx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go mgr.RunReaper(reapCtx, params.Config.ReapInterval)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			cancel()
			return mgr.Close()
		},
	})
	return mgr
}

func ProvideCoachHandler(mgr *coach.Manager, stats *coach.RedisStatsStore, logger *slog.Logger) *coach.Handler {
	return coach.NewHandler(mgr, stats, logger)
}

var CoachModule = fx.Options(
	fx.Provide(
		ProvideStatsStore,
		ProvideCoachManager,
		ProvideCoachHandler,
	),
)
