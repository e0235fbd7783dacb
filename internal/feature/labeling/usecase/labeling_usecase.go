// Package usecase はlabelingフィーチャーのビジネスロジックを実装します。
package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"labeling_backend/internal/feature/labeling/domain"
	"labeling_backend/internal/feature/labeling/domain/entity"
	"labeling_backend/internal/platform/metrics"
	"labeling_backend/internal/shared/ratelimiter"
	"labeling_backend/internal/shared/retry"
)

const (
	// retryAttempts は一時的な外部エラーに対するローカルリトライの上限回数です。
	retryAttempts = 3
	// retryBaseDelay はリトライバックオフの初期待機時間です。
	retryBaseDelay = 200 * time.Millisecond
)

// LabelDetector は画像オブジェクトからラベルを検出するインターフェースです。
// Goの慣例に従い、インターフェースは利用者（usecase）側で定義します。
type LabelDetector interface {
	// DetectLabels はバケット内のオブジェクトを解析し、信頼度の下限を満たす
	// ラベルを検出順で返します。
	DetectLabels(ctx context.Context, bucket, key string) ([]entity.RawLabel, error)
}

// LabelingRecordRepository はラベリング結果を永続化するリポジトリインターフェースです。
// Upsertは同一ImageNameに対して冪等（全レコード置換のlast-write-wins）です。
type LabelingRecordRepository interface {
	Upsert(ctx context.Context, record entity.LabelingRecord) error
	Find(ctx context.Context, imageName string) (*entity.LabelingRecord, error)
}

// BatchOutcome は1バッチの処理結果のサマリーです。呼び出し元インフラは
// StatusCodeとエラーの有無から再配送の要否を判断します。
type BatchOutcome struct {
	StatusCode   int            // HTTP相当のステータス（200 / 400 / 500）
	Message      string         // 人間可読なサマリー
	Processed    int            // 正常に保存されたレコード数
	Skipped      int            // ストレージ由来でないためスキップされたレコード数
	LabelsStored map[string]int // オブジェクトキーごとの保存ラベル数（観測用）
}

// LabelingUsecase はオブジェクト作成イベントのバッチを駆動するディスパッチャーです。
// レコードごとに 解析 → 正規化 → 永続化 を順に実行し、結果を集約します。
type LabelingUsecase struct {
	detector    LabelDetector
	records     LabelingRecordRepository
	rateLimiter ratelimiter.RateLimiterInterface
	now         func() time.Time
}

// NewLabelingUsecase は新しいLabelingUsecaseを生成します。rateLimiterはnil可です。
func NewLabelingUsecase(detector LabelDetector, records LabelingRecordRepository, rl ratelimiter.RateLimiterInterface) *LabelingUsecase {
	return &LabelingUsecase{
		detector:    detector,
		records:     records,
		rateLimiter: rl,
		now:         time.Now,
	}
}

// HandleEvent は通知イベントのバッチを処理します。
//
// エンベロープにレコードが1件も無い場合は呼び出し側の入力形状の問題として
// 400相当のBatchOutcomeを返します（エラーにはしません）。レコード単位の
// 未回復エラーはバッチ全体を中断し、非nilエラーとして呼び出し元に伝播します。
// 上流の配送システムはこれを受けてバッチ全体を再配送します。このとき先行
// レコードのUpsertはロールバックされませんが、再配送時の上書きは冪等なため
// 無害です（明示的な設計方針）。
func (u *LabelingUsecase) HandleEvent(ctx context.Context, event entity.AnalysisEvent) (BatchOutcome, error) {
	batchID := uuid.NewString()

	if len(event.Records) == 0 {
		slog.Warn("event carries no records", "batch_id", batchID)
		return BatchOutcome{
			StatusCode: http.StatusBadRequest,
			Message:    "event carries no records",
		}, nil
	}

	out := BatchOutcome{
		StatusCode:   http.StatusOK,
		LabelsStored: make(map[string]int, len(event.Records)),
	}

	for i, rec := range event.Records {
		if !rec.FromStorage() {
			// バケット名とオブジェクトキーを特定できないレコードはバッチを
			// 失敗させずに読み飛ばす
			slog.Warn("skipping record without storage-origin fields",
				"batch_id", batchID, "index", i, "source", rec.Source)
			metrics.RecordSkipped()
			out.Skipped++
			continue
		}

		stored, err := u.processRecord(ctx, rec)
		if err != nil {
			metrics.BatchFailure()
			slog.Error("record processing failed, aborting batch",
				"batch_id", batchID, "bucket", rec.Bucket, "key", rec.Key, "error", err)
			return BatchOutcome{
				StatusCode: http.StatusInternalServerError,
				Message:    fmt.Sprintf("failed to process %s/%s", rec.Bucket, rec.Key),
				Processed:  out.Processed,
				Skipped:    out.Skipped,
			}, fmt.Errorf("process %s/%s: %w", rec.Bucket, rec.Key, err)
		}

		out.Processed++
		out.LabelsStored[rec.Key] = stored
		slog.Info("record processed", "batch_id", batchID,
			"bucket", rec.Bucket, "key", rec.Key, "labels", stored)
	}

	out.Message = fmt.Sprintf("processed %d record(s), skipped %d", out.Processed, out.Skipped)
	return out, nil
}

// processRecord は1レコード分の 解析 → 正規化 → 永続化 を実行し、
// 保存したラベル数を返します。
func (u *LabelingUsecase) processRecord(ctx context.Context, rec entity.ObjectRecord) (int, error) {
	if u.rateLimiter != nil {
		u.rateLimiter.WaitIfNeeded()
	}

	var raw []entity.RawLabel
	err := retry.Do(ctx, retryAttempts, retryBaseDelay,
		func(err error) bool { return errors.Is(err, domain.ErrAnalysisUnavailable) },
		func() error {
			var derr error
			raw, derr = u.detector.DetectLabels(ctx, rec.Bucket, rec.Key)
			return derr
		})
	if err != nil {
		return 0, fmt.Errorf("detect labels: %w", err)
	}

	labels, err := NormalizeLabels(raw)
	if err != nil {
		return 0, fmt.Errorf("normalize labels: %w", err)
	}

	record := entity.LabelingRecord{
		ImageName: rec.Key,
		Bucket:    rec.Bucket,
		Labels:    labels,
		Status:    entity.StatusProcessed,
		Timestamp: u.now().UTC().Format(time.RFC3339),
	}

	err = retry.Do(ctx, retryAttempts, retryBaseDelay,
		func(err error) bool { return errors.Is(err, domain.ErrStoreUnavailable) },
		func() error { return u.records.Upsert(ctx, record) })
	if err != nil {
		return 0, fmt.Errorf("upsert record: %w", err)
	}

	metrics.RecordProcessed()
	metrics.LabelsStored(len(labels))
	return len(labels), nil
}

// GetRecord は画像名でラベリング結果を取得します。ポーリングする表示クライアント
// 向けの読み取り系で、結果が無い場合はdomain.ErrRecordNotFoundを返します。
func (u *LabelingUsecase) GetRecord(ctx context.Context, imageName string) (*entity.LabelingRecord, error) {
	if imageName == "" {
		return nil, fmt.Errorf("image name is required: %w", domain.ErrRecordNotFound)
	}
	return u.records.Find(ctx, imageName)
}
