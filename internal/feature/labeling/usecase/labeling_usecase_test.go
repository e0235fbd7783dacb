package usecase_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labeling_backend/internal/feature/labeling/domain"
	"labeling_backend/internal/feature/labeling/domain/entity"
	"labeling_backend/internal/feature/labeling/usecase"
)

// mockLabelDetector はLabelDetectorインターフェースのモック実装です。
type mockLabelDetector struct {
	DetectLabelsFunc  func(ctx context.Context, bucket, key string) ([]entity.RawLabel, error)
	DetectLabelsCalls int
}

func (m *mockLabelDetector) DetectLabels(ctx context.Context, bucket, key string) ([]entity.RawLabel, error) {
	m.DetectLabelsCalls++
	if m.DetectLabelsFunc != nil {
		return m.DetectLabelsFunc(ctx, bucket, key)
	}
	return nil, errors.New("DetectLabelsFunc is not implemented")
}

// mockRecordRepository はLabelingRecordRepositoryインターフェースのモック実装です。
// Upsertされたレコードを保持し、非ロールバック挙動の検証に使用します。
type mockRecordRepository struct {
	UpsertFunc func(ctx context.Context, record entity.LabelingRecord) error
	Upserted   []entity.LabelingRecord
}

func (m *mockRecordRepository) Upsert(ctx context.Context, record entity.LabelingRecord) error {
	if m.UpsertFunc != nil {
		if err := m.UpsertFunc(ctx, record); err != nil {
			return err
		}
	}
	m.Upserted = append(m.Upserted, record)
	return nil
}

func (m *mockRecordRepository) Find(ctx context.Context, imageName string) (*entity.LabelingRecord, error) {
	for i := range m.Upserted {
		if m.Upserted[i].ImageName == imageName {
			return &m.Upserted[i], nil
		}
	}
	return nil, domain.ErrRecordNotFound
}

func validRecord(bucket, key string) entity.ObjectRecord {
	return entity.ObjectRecord{Bucket: bucket, Key: key, Source: "aws:s3"}
}

func TestLabelingUsecase_HandleEvent_EmptyEnvelope(t *testing.T) {
	t.Parallel()

	uc := usecase.NewLabelingUsecase(&mockLabelDetector{}, &mockRecordRepository{}, nil)

	for _, event := range []entity.AnalysisEvent{
		{},
		{Records: []entity.ObjectRecord{}},
	} {
		outcome, err := uc.HandleEvent(context.Background(), event)

		// 入力形状の問題は処理失敗ではないためエラーにはならない
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, outcome.StatusCode)
	}
}

func TestLabelingUsecase_HandleEvent_Success(t *testing.T) {
	t.Parallel()

	detector := &mockLabelDetector{
		DetectLabelsFunc: func(ctx context.Context, bucket, key string) ([]entity.RawLabel, error) {
			return []entity.RawLabel{
				{Name: "Cat", Confidence: 98.734},
				{Name: "Pet", Confidence: 91.2},
			}, nil
		},
	}
	repo := &mockRecordRepository{}
	uc := usecase.NewLabelingUsecase(detector, repo, nil)

	outcome, err := uc.HandleEvent(context.Background(), entity.AnalysisEvent{
		Records: []entity.ObjectRecord{validRecord("up", "cat.jpg")},
	})

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, outcome.StatusCode)
	assert.Equal(t, 1, outcome.Processed)
	assert.Equal(t, 0, outcome.Skipped)
	assert.Equal(t, map[string]int{"cat.jpg": 2}, outcome.LabelsStored)

	require.Len(t, repo.Upserted, 1)
	record := repo.Upserted[0]
	assert.Equal(t, "cat.jpg", record.ImageName)
	assert.Equal(t, "up", record.Bucket)
	assert.Equal(t, entity.StatusProcessed, record.Status)

	require.Len(t, record.Labels, 2)
	assert.Equal(t, "Cat", record.Labels[0].Name)
	assert.True(t, record.Labels[0].Confidence.Equal(decimal.RequireFromString("98.734")),
		"expected 98.734, got %s", record.Labels[0].Confidence)
	assert.Equal(t, "Pet", record.Labels[1].Name)
	assert.True(t, record.Labels[1].Confidence.Equal(decimal.RequireFromString("91.2")),
		"expected 91.2, got %s", record.Labels[1].Confidence)

	// タイムスタンプはウォールクロックのRFC3339
	_, perr := time.Parse(time.RFC3339, record.Timestamp)
	assert.NoError(t, perr)
}

func TestLabelingUsecase_HandleEvent_SkipsNonStorageRecords(t *testing.T) {
	t.Parallel()

	detector := &mockLabelDetector{
		DetectLabelsFunc: func(ctx context.Context, bucket, key string) ([]entity.RawLabel, error) {
			return []entity.RawLabel{{Name: "Tree", Confidence: 88.5}}, nil
		},
	}
	repo := &mockRecordRepository{}
	uc := usecase.NewLabelingUsecase(detector, repo, nil)

	outcome, err := uc.HandleEvent(context.Background(), entity.AnalysisEvent{
		Records: []entity.ObjectRecord{
			validRecord("up", "a.jpg"),
			{Source: "aws:s3"}, // バケットもキーも無い
			validRecord("up", "b.jpg"),
		},
	})

	// スキップはバッチを失敗させない
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, outcome.StatusCode)
	assert.Equal(t, 2, outcome.Processed)
	assert.Equal(t, 1, outcome.Skipped)
	require.Len(t, repo.Upserted, 2)
	assert.Equal(t, "a.jpg", repo.Upserted[0].ImageName)
	assert.Equal(t, "b.jpg", repo.Upserted[1].ImageName)
}

// TestLabelingUsecase_HandleEvent_AbortsBatchWithoutRollback は2件目の解析失敗が
// バッチ全体を失敗させる一方で、1件目の書き込みが残ることを検証します。
// 再配送時の上書きは冪等なため、ロールバックは行わない設計です。
func TestLabelingUsecase_HandleEvent_AbortsBatchWithoutRollback(t *testing.T) {
	t.Parallel()

	detector := &mockLabelDetector{
		DetectLabelsFunc: func(ctx context.Context, bucket, key string) ([]entity.RawLabel, error) {
			if key == "broken.jpg" {
				return nil, domain.ErrObjectNotFound
			}
			return []entity.RawLabel{{Name: "Cat", Confidence: 98.7}}, nil
		},
	}
	repo := &mockRecordRepository{}
	uc := usecase.NewLabelingUsecase(detector, repo, nil)

	outcome, err := uc.HandleEvent(context.Background(), entity.AnalysisEvent{
		Records: []entity.ObjectRecord{
			validRecord("up", "ok.jpg"),
			validRecord("up", "broken.jpg"),
			validRecord("up", "never-reached.jpg"),
		},
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrObjectNotFound)
	assert.Equal(t, http.StatusInternalServerError, outcome.StatusCode)

	// 1件目の書き込みはコミット済みのまま、3件目は処理されない
	require.Len(t, repo.Upserted, 1)
	assert.Equal(t, "ok.jpg", repo.Upserted[0].ImageName)
	found, ferr := repo.Find(context.Background(), "ok.jpg")
	require.NoError(t, ferr)
	assert.Equal(t, entity.StatusProcessed, found.Status)
}

func TestLabelingUsecase_HandleEvent_RetriesUnavailableAnalysis(t *testing.T) {
	t.Parallel()

	detector := &mockLabelDetector{}
	detector.DetectLabelsFunc = func(ctx context.Context, bucket, key string) ([]entity.RawLabel, error) {
		if detector.DetectLabelsCalls == 1 {
			return nil, domain.ErrAnalysisUnavailable
		}
		return []entity.RawLabel{{Name: "Cat", Confidence: 98.7}}, nil
	}
	repo := &mockRecordRepository{}
	uc := usecase.NewLabelingUsecase(detector, repo, nil)

	outcome, err := uc.HandleEvent(context.Background(), entity.AnalysisEvent{
		Records: []entity.ObjectRecord{validRecord("up", "cat.jpg")},
	})

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, outcome.StatusCode)
	assert.Equal(t, 2, detector.DetectLabelsCalls)
	assert.Len(t, repo.Upserted, 1)
}

func TestLabelingUsecase_HandleEvent_TerminalAnalysisErrorIsNotRetried(t *testing.T) {
	t.Parallel()

	detector := &mockLabelDetector{
		DetectLabelsFunc: func(ctx context.Context, bucket, key string) ([]entity.RawLabel, error) {
			return nil, domain.ErrAnalysisInternal
		},
	}
	uc := usecase.NewLabelingUsecase(detector, &mockRecordRepository{}, nil)

	_, err := uc.HandleEvent(context.Background(), entity.AnalysisEvent{
		Records: []entity.ObjectRecord{validRecord("up", "cat.jpg")},
	})

	require.ErrorIs(t, err, domain.ErrAnalysisInternal)
	assert.Equal(t, 1, detector.DetectLabelsCalls)
}

func TestLabelingUsecase_HandleEvent_StoreFailureAbortsBatch(t *testing.T) {
	t.Parallel()

	detector := &mockLabelDetector{
		DetectLabelsFunc: func(ctx context.Context, bucket, key string) ([]entity.RawLabel, error) {
			return []entity.RawLabel{{Name: "Cat", Confidence: 98.7}}, nil
		},
	}
	repo := &mockRecordRepository{
		UpsertFunc: func(ctx context.Context, record entity.LabelingRecord) error {
			return domain.ErrStoreRejected
		},
	}
	uc := usecase.NewLabelingUsecase(detector, repo, nil)

	outcome, err := uc.HandleEvent(context.Background(), entity.AnalysisEvent{
		Records: []entity.ObjectRecord{validRecord("up", "cat.jpg")},
	})

	require.ErrorIs(t, err, domain.ErrStoreRejected)
	assert.Equal(t, http.StatusInternalServerError, outcome.StatusCode)
	assert.Empty(t, repo.Upserted)
}

func TestLabelingUsecase_GetRecord(t *testing.T) {
	t.Parallel()

	repo := &mockRecordRepository{
		Upserted: []entity.LabelingRecord{
			{ImageName: "cat.jpg", Bucket: "up", Status: entity.StatusProcessed},
		},
	}
	uc := usecase.NewLabelingUsecase(&mockLabelDetector{}, repo, nil)

	record, err := uc.GetRecord(context.Background(), "cat.jpg")
	require.NoError(t, err)
	assert.Equal(t, "cat.jpg", record.ImageName)

	_, err = uc.GetRecord(context.Background(), "missing.jpg")
	assert.ErrorIs(t, err, domain.ErrRecordNotFound)

	_, err = uc.GetRecord(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrRecordNotFound)
}
