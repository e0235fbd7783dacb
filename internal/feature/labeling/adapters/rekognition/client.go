// Package rekognition はAmazon Rekognitionを使用したラベル検出クライアントを提供します。
package rekognition

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	rektypes "github.com/aws/aws-sdk-go-v2/service/rekognition/types"
	"github.com/aws/smithy-go"

	"labeling_backend/internal/feature/labeling/domain"
	"labeling_backend/internal/feature/labeling/domain/entity"
	"labeling_backend/internal/feature/labeling/usecase"
)

const (
	// DefaultMaxLabels は1オブジェクトあたりに要求するラベル数の既定上限です。
	DefaultMaxLabels = 10
	// DefaultMinConfidence は検出結果に要求する信頼度の既定下限（%）です。
	DefaultMinConfidence = 70
)

// DetectLabelsAPI はテストで差し替え可能なRekognition APIの最小サブセットです。
type DetectLabelsAPI interface {
	DetectLabels(ctx context.Context, params *rekognition.DetectLabelsInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectLabelsOutput, error)
}

// RekognitionDetector はRekognitionのDetectLabelsでラベルを検出します。
// S3オブジェクト参照を直接渡すため、画像バイト列のダウンロードは不要です。
type RekognitionDetector struct {
	api           DetectLabelsAPI
	maxLabels     int32
	minConfidence float32
}

// RekognitionDetectorがLabelDetectorを実装していることをコンパイル時に検証します。
var _ usecase.LabelDetector = (*RekognitionDetector)(nil)

// NewRekognitionDetector は新しいRekognitionDetectorを生成します。
// maxLabels・minConfidenceが0以下の場合は既定値を使用します。
func NewRekognitionDetector(api DetectLabelsAPI, maxLabels int32, minConfidence float32) *RekognitionDetector {
	if maxLabels <= 0 {
		maxLabels = DefaultMaxLabels
	}
	if minConfidence <= 0 {
		minConfidence = DefaultMinConfidence
	}
	return &RekognitionDetector{api: api, maxLabels: maxLabels, minConfidence: minConfidence}
}

// DetectLabels はS3オブジェクトを解析し、信頼度の下限を満たすラベルを
// サービスの返却順で返します。下限未満の除外と件数上限はRekognition側で
// 適用されますが、外部サービスをブラックボックスとして扱うため契約違反が
// ないか防御的に再検証します。
func (d *RekognitionDetector) DetectLabels(ctx context.Context, bucket, key string) ([]entity.RawLabel, error) {
	out, err := d.api.DetectLabels(ctx, &rekognition.DetectLabelsInput{
		Image: &rektypes.Image{
			S3Object: &rektypes.S3Object{
				Bucket: aws.String(bucket),
				Name:   aws.String(key),
			},
		},
		MaxLabels:     aws.Int32(d.maxLabels),
		MinConfidence: aws.Float32(d.minConfidence),
	})
	if err != nil {
		return nil, mapAPIError(err)
	}

	if n := len(out.Labels); n > int(d.maxLabels) {
		return nil, fmt.Errorf("%d labels exceed requested cap %d: %w", n, d.maxLabels, domain.ErrAnalysisContract)
	}

	labels := make([]entity.RawLabel, 0, len(out.Labels))
	for _, l := range out.Labels {
		raw := entity.RawLabel{
			Name:       aws.ToString(l.Name),
			Confidence: aws.ToFloat32(l.Confidence),
		}
		if raw.Confidence < 0 || raw.Confidence > 100 {
			return nil, fmt.Errorf("label %q confidence %v outside [0,100]: %w",
				raw.Name, raw.Confidence, domain.ErrAnalysisContract)
		}
		labels = append(labels, raw)
	}
	return labels, nil
}

// mapAPIError はRekognitionのエラーをドメインエラーの分類に対応付けます。
func mapAPIError(err error) error {
	var (
		invalidObject *rektypes.InvalidS3ObjectException
		throttling    *rektypes.ThrottlingException
		throughput    *rektypes.ProvisionedThroughputExceededException
		limit         *rektypes.LimitExceededException
		internal      *rektypes.InternalServerError
	)
	switch {
	case errors.As(err, &invalidObject):
		return fmt.Errorf("%w: %s", domain.ErrObjectNotFound, err)
	case errors.As(err, &throttling), errors.As(err, &throughput), errors.As(err, &limit), errors.As(err, &internal):
		return fmt.Errorf("%w: %s", domain.ErrAnalysisUnavailable, err)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		// 想定外のレスポンス形状はリトライしない
		return fmt.Errorf("%w: %s", domain.ErrAnalysisInternal, err)
	}
	// トランスポート層の失敗（到達不能など）はリトライ対象
	return fmt.Errorf("%w: %s", domain.ErrAnalysisUnavailable, err)
}
