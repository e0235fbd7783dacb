// Package lambda はAWS Lambdaランタイム向けのイベントハンドラーアダプターを提供します。
package lambda

import (
	"context"
	"fmt"
	"net/http"

	"labeling_backend/internal/feature/labeling/domain/entity"
	"labeling_backend/internal/feature/labeling/transport/dto"
	"labeling_backend/internal/feature/labeling/usecase"
)

// EventUsecase はイベントバッチを処理するユースケースインターフェースです。
// Goの慣例に従い、インターフェースは利用者（lambda）側で定義します。
type EventUsecase interface {
	HandleEvent(ctx context.Context, event entity.AnalysisEvent) (usecase.BatchOutcome, error)
}

// Response はLambda呼び出し元に返すHTTP風のレスポンスです。
type Response struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
}

// Handler はS3通知イベントをユースケースに橋渡しします。
type Handler struct {
	uc EventUsecase
}

// NewHandler はHandlerの新しいインスタンスを生成します。
func NewHandler(uc EventUsecase) *Handler {
	return &Handler{uc: uc}
}

// Handle は1回のLambda呼び出し（=1バッチ）を処理します。
//
// バッチ中の未回復エラーはエラーとしてランタイムに返します。呼び出し元
// インフラのat-least-once保証により、バッチ全体が再配送されます。
// レコードが無いエンベロープは入力形状の問題であり、エラーにはせず
// 400相当のレスポンスのみを返します。
func (h *Handler) Handle(ctx context.Context, event dto.S3Event) (Response, error) {
	outcome, err := h.uc.HandleEvent(ctx, event.ToEntity())
	if err != nil {
		return Response{
			StatusCode: http.StatusInternalServerError,
			Body:       outcome.Message,
		}, fmt.Errorf("handle event batch: %w", err)
	}
	return Response{StatusCode: outcome.StatusCode, Body: outcome.Message}, nil
}
