package entity

// ObjectRecord はオブジェクト作成通知の1レコードを表します。
// 外部通知システムのイベント形状は不均質なため、必須フィールドを欠く
// レコードも値としては保持し、FromStorage で処理対象かどうかを判定します。
type ObjectRecord struct {
	Bucket string // 取得元バケット名
	Key    string // オブジェクトキー（URLデコード済み）
	Source string // 通知元の識別子（例: "aws:s3"）
}

// FromStorage はストレージ由来の処理可能なレコードかどうかを返します。
// バケット名とオブジェクトキーの両方を持たないレコードはスキップ対象です。
func (r ObjectRecord) FromStorage() bool {
	return r.Bucket != "" && r.Key != ""
}

// AnalysisEvent は1回の呼び出しで配送される通知レコードの集合（バッチ）です。
type AnalysisEvent struct {
	Records []ObjectRecord
}
