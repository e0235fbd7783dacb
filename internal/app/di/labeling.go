// Package di provides dependency injection factories for creating application components.
package di

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"labeling_backend/internal/config"
	"labeling_backend/internal/feature/labeling/adapters"
	rekadapter "labeling_backend/internal/feature/labeling/adapters/rekognition"
	s3adapter "labeling_backend/internal/feature/labeling/adapters/s3"
	visionadapter "labeling_backend/internal/feature/labeling/adapters/vision"
	"labeling_backend/internal/feature/labeling/usecase"
	"labeling_backend/internal/platform/cache"
)

// NewLabelDetector creates the configured analysis backend. The returned
// cleanup function releases backend resources and must be called on shutdown.
func NewLabelDetector(ctx context.Context, cfg *config.Config, awsCfg aws.Config) (usecase.LabelDetector, func() error, error) {
	switch cfg.Detector {
	case "vision":
		fetcher := s3adapter.NewObjectFetcher(awss3.NewFromConfig(awsCfg))
		v, err := visionadapter.NewVisionLabelDetector(ctx, fetcher,
			int32(cfg.MaxLabels), float32(cfg.MinConfidence))
		if err != nil {
			return nil, nil, fmt.Errorf("create vision detector: %w", err)
		}
		return v, v.Close, nil
	default:
		d := rekadapter.NewRekognitionDetector(
			rekognition.NewFromConfig(awsCfg),
			int32(cfg.MaxLabels),
			float32(cfg.MinConfidence),
		)
		return d, func() error { return nil }, nil
	}
}

// NewRecordRepository creates the configured labeling record store.
// DynamoDB is the production store; SQLite serves local development.
func NewRecordRepository(cfg *config.Config, awsCfg aws.Config) (usecase.LabelingRecordRepository, error) {
	if cfg.Store == "sqlite" {
		db, err := gorm.Open(sqlite.Open(cfg.SQLitePath), &gorm.Config{})
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		if err := db.AutoMigrate(&adapters.LabelingRecordModel{}); err != nil {
			return nil, fmt.Errorf("migrate labeling records: %w", err)
		}
		return adapters.NewRecordGorm(db), nil
	}
	return adapters.NewRecordDynamo(dynamodb.NewFromConfig(awsCfg), cfg.TableName), nil
}

// WithReadCache decorates the repository with a Redis read cache.
// If rdb is nil, the repository is returned unchanged.
func WithReadCache(records usecase.LabelingRecordRepository, rdb *redis.Client, ttl time.Duration) usecase.LabelingRecordRepository {
	if rdb == nil {
		return records
	}
	return cache.NewCachingRecordRepository(rdb, ttl, records, "labels")
}
