package usecase

import (
	"fmt"
	"math"
	"strconv"

	"github.com/shopspring/decimal"

	"labeling_backend/internal/feature/labeling/domain"
	"labeling_backend/internal/feature/labeling/domain/entity"
)

// NormalizeLabels は生のラベル列をストア保存可能な正規化済みラベル列に変換します。
// 入力の順序を保持し、フィルタリングは行いません（信頼度の下限は解析クライアント側で
// 適用済みです）。副作用のない純粋関数です。
//
// 信頼度の変換は必ず最短往復表現の文字列を経由します。float→decimalの直接変換では
// 2進浮動小数点の表現ノイズ（例: 98.734 → 98.73400115966797）がそのまま
// 永続化されてしまうためです。
func NormalizeLabels(raw []entity.RawLabel) ([]entity.StoredLabel, error) {
	out := make([]entity.StoredLabel, 0, len(raw))
	for i, l := range raw {
		if l.Name == "" {
			return nil, fmt.Errorf("label %d is missing a name: %w", i, domain.ErrMalformedLabel)
		}
		c := float64(l.Confidence)
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return nil, fmt.Errorf("label %q has non-finite confidence: %w", l.Name, domain.ErrMalformedLabel)
		}

		// float32の最短往復表現を文字列化してからdecimalにパースする
		s := strconv.FormatFloat(c, 'f', -1, 32)
		d, err := decimal.NewFromString(s)
		if err != nil {
			return nil, fmt.Errorf("label %q: parse confidence %q: %w", l.Name, s, domain.ErrMalformedLabel)
		}
		out = append(out, entity.StoredLabel{Name: l.Name, Confidence: d})
	}
	return out, nil
}
