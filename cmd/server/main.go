package main

import (
	"context"
	"log"
	"log/slog"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	redisv9 "github.com/redis/go-redis/v9"

	"labeling_backend/internal/app/di"
	"labeling_backend/internal/app/router"
	"labeling_backend/internal/config"
	labelinghandler "labeling_backend/internal/feature/labeling/transport/handler"
	"labeling_backend/internal/feature/labeling/usecase"
	infraredis "labeling_backend/internal/platform/redis"
	"labeling_backend/internal/shared/ratelimiter"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config:", err)
	}
	slog.SetLogLoggerLevel(logLevel(cfg.LogLevel))

	ctx := context.Background()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		log.Fatal("failed to load AWS config:", err)
	}

	detector, closeDetector, err := di.NewLabelDetector(ctx, cfg, awsCfg)
	if err != nil {
		log.Fatal("failed to create detector:", err)
	}
	defer func() {
		if err := closeDetector(); err != nil {
			slog.Warn("failed to close detector", "error", err)
		}
	}()

	records, err := di.NewRecordRepository(cfg, awsCfg)
	if err != nil {
		log.Fatal("failed to create record store:", err)
	}

	// Redisキャッシュでラップ（任意）
	if cfg.RedisAddr != "" {
		var rdb *redisv9.Client
		if tmp, err := infraredis.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword); err != nil {
			slog.Warn("Redis unavailable, running without cache")
		} else {
			rdb = tmp
			defer func() {
				if err := rdb.Close(); err != nil {
					slog.Error("failed to close Redis client", "error", err)
				}
			}()
			ttl := time.Duration(cfg.CacheTTLSeconds) * time.Second
			records = di.WithReadCache(records, rdb, ttl)
		}
	}

	var rl ratelimiter.RateLimiterInterface
	if cfg.AnalysisRPM > 0 {
		rl = ratelimiter.NewRateLimiter(cfg.AnalysisRPM, time.Minute)
	}

	uc := usecase.NewLabelingUsecase(detector, records, rl)
	h := labelinghandler.NewLabelingHandler(uc)

	r := router.NewRouter(h)
	if err := r.Run(cfg.Addr); err != nil {
		log.Fatal(err)
	}
}

// logLevel は設定値をslogのレベルに変換します。不正な値はinfoにフォールバックします。
func logLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
