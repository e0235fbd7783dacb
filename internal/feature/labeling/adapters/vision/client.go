// Package vision はGoogle Cloud Vision APIを使用したラベル検出クライアントを提供します。
// Rekognitionの代替バックエンドです。
package vision

import (
	"context"
	"fmt"

	gvision "cloud.google.com/go/vision/v2/apiv1"
	visionpb "cloud.google.com/go/vision/v2/apiv1/visionpb"

	"labeling_backend/internal/feature/labeling/domain"
	"labeling_backend/internal/feature/labeling/domain/entity"
	"labeling_backend/internal/feature/labeling/usecase"
)

// ObjectFetcher はストレージからオブジェクトのバイト列を取得するインターフェースです。
// Vision APIはS3参照を直接受け取れないため、解析前にダウンロードが必要です。
// Goの慣例に従い、インターフェースは利用者（vision）側で定義します。
type ObjectFetcher interface {
	Fetch(ctx context.Context, bucket, key string) ([]byte, error)
}

// VisionLabelDetector はGoogle Cloud Vision APIを使用してラベルを検出します。
type VisionLabelDetector struct {
	client        *gvision.ImageAnnotatorClient
	fetcher       ObjectFetcher
	maxLabels     int32
	minConfidence float32
}

// VisionLabelDetectorがLabelDetectorを実装していることをコンパイル時に検証します。
var _ usecase.LabelDetector = (*VisionLabelDetector)(nil)

// NewVisionLabelDetector はADCを使用してVisionLabelDetectorの新しいインスタンスを生成します。
func NewVisionLabelDetector(ctx context.Context, fetcher ObjectFetcher, maxLabels int32, minConfidence float32) (*VisionLabelDetector, error) {
	client, err := gvision.NewImageAnnotatorClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create vision client: %w", err)
	}
	return &VisionLabelDetector{
		client:        client,
		fetcher:       fetcher,
		maxLabels:     maxLabels,
		minConfidence: minConfidence,
	}, nil
}

// Close はVision APIクライアントを解放します。
func (v *VisionLabelDetector) Close() error {
	return v.client.Close()
}

// DetectLabels はオブジェクトをダウンロードしてラベルを検出します。
// Vision APIにはサーバー側の信頼度下限が無いため、スコアをパーセンテージに
// 変換した上でクライアント側で下限を適用します。
func (v *VisionLabelDetector) DetectLabels(ctx context.Context, bucket, key string) ([]entity.RawLabel, error) {
	imageData, err := v.fetcher.Fetch(ctx, bucket, key)
	if err != nil {
		return nil, err
	}

	req := &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{
			{
				Image: &visionpb.Image{Content: imageData},
				Features: []*visionpb.Feature{
					{Type: visionpb.Feature_LABEL_DETECTION, MaxResults: v.maxLabels},
				},
			},
		},
	}

	resp, err := v.client.BatchAnnotateImages(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: vision API request failed: %s", domain.ErrAnalysisUnavailable, err)
	}

	if len(resp.Responses) == 0 {
		return nil, nil
	}

	if resp.Responses[0].Error != nil {
		return nil, fmt.Errorf("%w: vision API error: %s", domain.ErrAnalysisInternal, resp.Responses[0].Error.Message)
	}

	annotations := resp.Responses[0].LabelAnnotations
	if n := len(annotations); n > int(v.maxLabels) {
		return nil, fmt.Errorf("%d labels exceed requested cap %d: %w", n, v.maxLabels, domain.ErrAnalysisContract)
	}

	labels := make([]entity.RawLabel, 0, len(annotations))
	for _, a := range annotations {
		// Visionのスコアは0.0〜1.0のためパーセンテージに揃える
		confidence := a.Score * 100
		if confidence < 0 || confidence > 100 {
			return nil, fmt.Errorf("label %q confidence %v outside [0,100]: %w",
				a.Description, confidence, domain.ErrAnalysisContract)
		}
		if confidence < v.minConfidence {
			continue
		}
		labels = append(labels, entity.RawLabel{
			Name:       a.Description,
			Confidence: confidence,
		})
	}

	return labels, nil
}
