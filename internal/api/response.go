// Package api はHTTPトランスポートで共有するレスポンスDTOを定義します。
package api

// ErrorResponse はエラー時の共通レスポンスです。
type ErrorResponse struct {
	Error string `json:"error"`
}

// BatchOutcomeResponse はイベントバッチ処理結果のサマリーです。
type BatchOutcomeResponse struct {
	Message      string         `json:"message"`
	Processed    int            `json:"processed"`
	Skipped      int            `json:"skipped"`
	LabelsStored map[string]int `json:"labelsStored,omitempty"`
}

// StoredLabelResponse は保存済みラベル1件のレスポンス表現です。
// 信頼度は正確な10進文字列で返します。
type StoredLabelResponse struct {
	Name       string `json:"name"`
	Confidence string `json:"confidence"`
}

// LabelingRecordResponse はラベリング結果1件のレスポンス表現です。
type LabelingRecordResponse struct {
	ImageName string                `json:"imageName"`
	Bucket    string                `json:"bucket"`
	Labels    []StoredLabelResponse `json:"labels"`
	Status    string                `json:"status"`
	Timestamp string                `json:"timestamp"`
}
