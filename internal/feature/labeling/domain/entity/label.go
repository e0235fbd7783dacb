// Package entity はlabelingフィーチャーのドメインモデルを定義します。
package entity

import "github.com/shopspring/decimal"

// Status はLabelingRecordの処理状態を表します。
type Status string

const (
	// StatusProcessed は解析と保存が正常に完了したことを示します。
	// 失敗した処理はレコード自体を書き込まないため、現状これが唯一の値です。
	StatusProcessed Status = "Processed"
)

// RawLabel は解析サービスが返す生のラベルを表します。
// Confidence は0〜100のパーセンテージで、永続化前に必ず正規化されます。
type RawLabel struct {
	Name       string  // 検出された物体・概念の名称
	Confidence float32 // 信頼度スコア（0.0 ~ 100.0）
}

// StoredLabel は永続化可能な正規化済みラベルです。
// Confidence は浮動小数点の最短往復表現文字列を経由した正確な10進数であり、
// 2進浮動小数点のノイズを含みません。
type StoredLabel struct {
	Name       string          `json:"name"`
	Confidence decimal.Decimal `json:"confidence"`
}

// LabelingRecord は1オブジェクト分の解析結果の永続化単位です。
// ImageName が一意キーであり、同じキーへの再処理は前回のレコードを上書きします。
type LabelingRecord struct {
	ImageName string        `json:"imageName"` // 画像のオブジェクトキー（一意キー）
	Bucket    string        `json:"bucket"`    // 取得元バケット名
	Labels    []StoredLabel `json:"labels"`    // 検出順を保持したラベル列
	Status    Status        `json:"status"`
	Timestamp string        `json:"timestamp"` // RFC3339のウォールクロック時刻
}
