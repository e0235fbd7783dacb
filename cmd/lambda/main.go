package main

import (
	"context"
	"log"
	"log/slog"
	"time"

	awslambda "github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"

	"labeling_backend/internal/config"
	"labeling_backend/internal/feature/labeling/adapters"
	rekadapter "labeling_backend/internal/feature/labeling/adapters/rekognition"
	lambdatransport "labeling_backend/internal/feature/labeling/transport/lambda"
	"labeling_backend/internal/feature/labeling/usecase"
	"labeling_backend/internal/shared/ratelimiter"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config:", err)
	}
	slog.SetLogLoggerLevel(logLevel(cfg.LogLevel))

	// クライアントはコールドスタート時に一度だけ生成し、同一プロセス内の
	// 呼び出し間で接続を再利用する
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		log.Fatal("failed to load AWS config:", err)
	}

	detector := rekadapter.NewRekognitionDetector(
		rekognition.NewFromConfig(awsCfg),
		int32(cfg.MaxLabels),
		float32(cfg.MinConfidence),
	)
	records := adapters.NewRecordDynamo(dynamodb.NewFromConfig(awsCfg), cfg.TableName)

	var rl ratelimiter.RateLimiterInterface
	if cfg.AnalysisRPM > 0 {
		rl = ratelimiter.NewRateLimiter(cfg.AnalysisRPM, time.Minute)
	}

	uc := usecase.NewLabelingUsecase(detector, records, rl)
	h := lambdatransport.NewHandler(uc)

	awslambda.Start(h.Handle)
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
