package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"labeling_backend/internal/feature/labeling/domain"
	"labeling_backend/internal/feature/labeling/domain/entity"
	"labeling_backend/internal/feature/labeling/usecase"
)

type recordGorm struct {
	db *gorm.DB
}

var _ usecase.LabelingRecordRepository = (*recordGorm)(nil)

// NewRecordGorm はGORM（ローカル開発・テスト用のSQLite等）を使用する
// LabelingRecordRepositoryを生成します。
func NewRecordGorm(db *gorm.DB) *recordGorm {
	return &recordGorm{db: db}
}

// LabelingRecordModel はlabeling_recordsテーブルのGORMモデルです。
// ラベル列は正確な10進文字列を含むJSONとして保存します。
type LabelingRecordModel struct {
	ImageName string `gorm:"primaryKey;size:255"`
	Bucket    string `gorm:"size:255;not null"`
	Labels    string `gorm:"type:text;not null"`
	Status    string `gorm:"size:32;not null"`
	Timestamp string `gorm:"size:64;not null"`
}

func (LabelingRecordModel) TableName() string {
	return "labeling_records"
}

func toModel(record entity.LabelingRecord) (LabelingRecordModel, error) {
	labels, err := json.Marshal(record.Labels)
	if err != nil {
		return LabelingRecordModel{}, fmt.Errorf("%w: marshal labels: %s", domain.ErrStoreRejected, err)
	}
	return LabelingRecordModel{
		ImageName: record.ImageName,
		Bucket:    record.Bucket,
		Labels:    string(labels),
		Status:    string(record.Status),
		Timestamp: record.Timestamp,
	}, nil
}

func (m LabelingRecordModel) toEntity() (*entity.LabelingRecord, error) {
	record := &entity.LabelingRecord{
		ImageName: m.ImageName,
		Bucket:    m.Bucket,
		Status:    entity.Status(m.Status),
		Timestamp: m.Timestamp,
	}
	if err := json.Unmarshal([]byte(m.Labels), &record.Labels); err != nil {
		return nil, fmt.Errorf("%w: unmarshal labels: %s", domain.ErrStoreRejected, err)
	}
	return record, nil
}

// Upsert はimage_nameをキーにレコード全体を挿入または置換します。
func (r *recordGorm) Upsert(ctx context.Context, record entity.LabelingRecord) error {
	m, err := toModel(record)
	if err != nil {
		return err
	}
	err = r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "image_name"}},
		DoUpdates: clause.AssignmentColumns([]string{"bucket", "labels", "status", "timestamp"}),
	}).Create(&m).Error
	if err != nil {
		return fmt.Errorf("%w: %s", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// Find はimage_nameでレコードを1件取得します。
func (r *recordGorm) Find(ctx context.Context, imageName string) (*entity.LabelingRecord, error) {
	var m LabelingRecordModel
	err := r.db.WithContext(ctx).Where("image_name = ?", imageName).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", domain.ErrRecordNotFound, imageName)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrStoreUnavailable, err)
	}
	return m.toEntity()
}
