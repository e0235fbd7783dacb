package lambda_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labeling_backend/internal/feature/labeling/domain/entity"
	"labeling_backend/internal/feature/labeling/transport/dto"
	"labeling_backend/internal/feature/labeling/transport/lambda"
	"labeling_backend/internal/feature/labeling/usecase"
)

// mockEventUsecase はEventUsecaseインターフェースのモック実装です。
type mockEventUsecase struct {
	HandleEventFunc func(ctx context.Context, event entity.AnalysisEvent) (usecase.BatchOutcome, error)
}

func (m *mockEventUsecase) HandleEvent(ctx context.Context, event entity.AnalysisEvent) (usecase.BatchOutcome, error) {
	return m.HandleEventFunc(ctx, event)
}

func TestHandler_Handle_Success(t *testing.T) {
	t.Parallel()

	uc := &mockEventUsecase{
		HandleEventFunc: func(ctx context.Context, event entity.AnalysisEvent) (usecase.BatchOutcome, error) {
			require.Len(t, event.Records, 1)
			assert.Equal(t, "up", event.Records[0].Bucket)
			assert.Equal(t, "my photo.jpg", event.Records[0].Key)
			return usecase.BatchOutcome{StatusCode: http.StatusOK, Message: "processed 1 records"}, nil
		},
	}
	h := lambda.NewHandler(uc)

	resp, err := h.Handle(context.Background(), dto.S3Event{
		Records: []dto.S3EventRecord{
			{
				EventSource: "aws:s3",
				S3: dto.S3Entity{
					Bucket: dto.S3Bucket{Name: "up"},
					Object: dto.S3Object{Key: "my+photo.jpg"},
				},
			},
		},
	})

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "processed 1 records", resp.Body)
}

// TestHandler_Handle_EmptyEnvelopeIsNotAnError は空のエンベロープが再配送を
// 引き起こさない（=エラーを返さない）ことを検証します。
func TestHandler_Handle_EmptyEnvelopeIsNotAnError(t *testing.T) {
	t.Parallel()

	uc := &mockEventUsecase{
		HandleEventFunc: func(ctx context.Context, event entity.AnalysisEvent) (usecase.BatchOutcome, error) {
			return usecase.BatchOutcome{StatusCode: http.StatusBadRequest, Message: "no records in event"}, nil
		},
	}
	h := lambda.NewHandler(uc)

	resp, err := h.Handle(context.Background(), dto.S3Event{})

	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// TestHandler_Handle_BatchFailureReturnsError は未回復のバッチ失敗がエラーとして
// ランタイムに伝播し、呼び出し元の再配送を引き起こすことを検証します。
func TestHandler_Handle_BatchFailureReturnsError(t *testing.T) {
	t.Parallel()

	batchErr := errors.New("detect labels for up/cat.jpg: unavailable")
	uc := &mockEventUsecase{
		HandleEventFunc: func(ctx context.Context, event entity.AnalysisEvent) (usecase.BatchOutcome, error) {
			return usecase.BatchOutcome{
				StatusCode: http.StatusInternalServerError,
				Message:    "batch aborted",
			}, batchErr
		},
	}
	h := lambda.NewHandler(uc)

	resp, err := h.Handle(context.Background(), dto.S3Event{
		Records: []dto.S3EventRecord{{EventSource: "aws:s3"}},
	})

	require.ErrorIs(t, err, batchErr)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "batch aborted", resp.Body)
}
