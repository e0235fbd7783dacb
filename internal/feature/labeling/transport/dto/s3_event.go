// Package dto はオブジェクトストレージ通知イベントのワイヤ表現を定義します。
package dto

import (
	"log/slog"
	"net/url"
	"strings"

	"labeling_backend/internal/feature/labeling/domain/entity"
)

// S3Event はS3通知のイベントエンベロープです。外部通知システムのイベント形状は
// 不均質なため、必須フィールドの欠落はデコード段階ではエラーにせず、
// ToEntity後のレコード分類に委ねます。
type S3Event struct {
	Records []S3EventRecord `json:"Records"`
}

// S3EventRecord は通知エンベロープ内の1レコードです。
type S3EventRecord struct {
	EventSource  string   `json:"eventSource"`
	EventName    string   `json:"eventName"`
	EventTime    string   `json:"eventTime"`
	EventVersion string   `json:"eventVersion"`
	AWSRegion    string   `json:"awsRegion"`
	S3           S3Entity `json:"s3"`
}

// S3Entity はレコード内のストレージ参照部分です。
type S3Entity struct {
	SchemaVersion   string   `json:"s3SchemaVersion"`
	ConfigurationID string   `json:"configurationId"`
	Bucket          S3Bucket `json:"bucket"`
	Object          S3Object `json:"object"`
}

// S3Bucket は通知に含まれるバケット情報です。
type S3Bucket struct {
	Name string `json:"name"`
	Arn  string `json:"arn"`
}

// S3Object は通知に含まれるオブジェクト情報です。
type S3Object struct {
	Key       string `json:"key"`
	Size      int64  `json:"size"`
	Sequencer string `json:"sequencer"`
}

// ToEntity はワイヤ表現をドメインのAnalysisEventに変換します。
// S3通知のオブジェクトキーはURLエンコードされている（スペースは+になる）ため、
// 保存されるimageNameが実際のキーと一致するようデコードします。
func (e S3Event) ToEntity() entity.AnalysisEvent {
	records := make([]entity.ObjectRecord, 0, len(e.Records))
	for _, r := range e.Records {
		records = append(records, entity.ObjectRecord{
			Bucket: r.S3.Bucket.Name,
			Key:    decodeKey(r.S3.Object.Key),
			Source: r.EventSource,
		})
	}
	return entity.AnalysisEvent{Records: records}
}

// decodeKey はURLエンコードされたオブジェクトキーをデコードします。
// デコードできないキーはそのまま返します（後段でスキップ判定されます）。
func decodeKey(key string) string {
	decoded, err := url.QueryUnescape(strings.ReplaceAll(key, "+", "%20"))
	if err != nil {
		slog.Warn("failed to decode object key, using raw value", "key", key, "error", err)
		return key
	}
	return decoded
}
