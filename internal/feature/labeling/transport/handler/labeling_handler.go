// Package handler はlabelingフィーチャーのHTTPハンドラーを提供します。
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"labeling_backend/internal/api"
	"labeling_backend/internal/feature/labeling/domain"
	"labeling_backend/internal/feature/labeling/domain/entity"
	"labeling_backend/internal/feature/labeling/transport/dto"
	"labeling_backend/internal/feature/labeling/usecase"
)

// LabelingUsecase はラベリングパイプラインのユースケースインターフェースを定義します。
// Goの慣例に従い、インターフェースは利用者（handler）側で定義します。
type LabelingUsecase interface {
	HandleEvent(ctx context.Context, event entity.AnalysisEvent) (usecase.BatchOutcome, error)
	GetRecord(ctx context.Context, imageName string) (*entity.LabelingRecord, error)
}

// LabelingHandler はイベント受付と結果照会のHTTPリクエストを処理します。
type LabelingHandler struct {
	uc LabelingUsecase
}

// NewLabelingHandler はLabelingHandlerの新しいインスタンスを生成します。
func NewLabelingHandler(uc LabelingUsecase) *LabelingHandler {
	return &LabelingHandler{uc: uc}
}

// HandleEvent はオブジェクト作成通知のバッチを受け付けて処理します。
//
// エンドポイント: POST /v1/events
// Content-Type: application/json（S3通知エンベロープ）
func (h *LabelingHandler) HandleEvent(c *gin.Context) {
	var event dto.S3Event
	if err := c.ShouldBindJSON(&event); err != nil {
		slog.Warn("イベントのデコードに失敗", "error", err, "remote_addr", c.ClientIP())
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "invalid event payload"})
		return
	}

	outcome, err := h.uc.HandleEvent(c.Request.Context(), event.ToEntity())
	if err != nil {
		// バッチ中断: 500を返して呼び出し側に再配送を促す
		slog.Error("イベントバッチの処理に失敗", "error", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: outcome.Message})
		return
	}

	c.JSON(outcome.StatusCode, api.BatchOutcomeResponse{
		Message:      outcome.Message,
		Processed:    outcome.Processed,
		Skipped:      outcome.Skipped,
		LabelsStored: outcome.LabelsStored,
	})
}

// GetRecord は画像名でラベリング結果を取得します。
// アップロード後にポーリングする表示クライアント向けです。
//
// エンドポイント: GET /v1/labels/:imageName
func (h *LabelingHandler) GetRecord(c *gin.Context) {
	imageName := c.Param("imageName")

	record, err := h.uc.GetRecord(c.Request.Context(), imageName)
	if errors.Is(err, domain.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "labeling record not found"})
		return
	}
	if err != nil {
		slog.Error("ラベリング結果の取得に失敗", "error", err, "image_name", imageName)
		c.JSON(http.StatusBadGateway, api.ErrorResponse{Error: "failed to load labeling record"})
		return
	}

	labels := make([]api.StoredLabelResponse, 0, len(record.Labels))
	for _, l := range record.Labels {
		labels = append(labels, api.StoredLabelResponse{
			Name:       l.Name,
			Confidence: l.Confidence.String(),
		})
	}
	c.JSON(http.StatusOK, api.LabelingRecordResponse{
		ImageName: record.ImageName,
		Bucket:    record.Bucket,
		Labels:    labels,
		Status:    string(record.Status),
		Timestamp: record.Timestamp,
	})
}
