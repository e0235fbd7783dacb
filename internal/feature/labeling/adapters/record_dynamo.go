// Package adapters はlabelingフィーチャーの永続化アダプターを提供します。
package adapters

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/shopspring/decimal"

	"labeling_backend/internal/feature/labeling/domain"
	"labeling_backend/internal/feature/labeling/domain/entity"
	"labeling_backend/internal/feature/labeling/usecase"
)

// DynamoDBAPI はテストで差し替え可能なDynamoDB APIの最小サブセットです。
type DynamoDBAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
}

type recordDynamo struct {
	api   DynamoDBAPI
	table string
}

var _ usecase.LabelingRecordRepository = (*recordDynamo)(nil)

// NewRecordDynamo はDynamoDBを使用するLabelingRecordRepositoryを生成します。
func NewRecordDynamo(api DynamoDBAPI, table string) *recordDynamo {
	return &recordDynamo{api: api, table: table}
}

// Upsert はレコード全体をimageNameキーでPutItemします。同一キーへの
// 再書き込みは全レコード置換（last-write-wins）のため冪等です。
func (r *recordDynamo) Upsert(ctx context.Context, record entity.LabelingRecord) error {
	_, err := r.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.table),
		Item:      toItem(record),
	})
	if err != nil {
		return mapStoreError(err)
	}
	return nil
}

// Find はimageNameでレコードを1件取得します。存在しない場合は
// domain.ErrRecordNotFoundを返します。
func (r *recordDynamo) Find(ctx context.Context, imageName string) (*entity.LabelingRecord, error) {
	out, err := r.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.table),
		Key: map[string]ddbtypes.AttributeValue{
			"imageName": &ddbtypes.AttributeValueMemberS{Value: imageName},
		},
	})
	if err != nil {
		return nil, mapStoreError(err)
	}
	if len(out.Item) == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrRecordNotFound, imageName)
	}
	return fromItem(out.Item)
}

// toItem はLabelingRecordをDynamoDBの属性値マップに変換します。
// 信頼度はdecimalの正確な文字列表現をNumber属性として書き込みます。
// 2進浮動小数点をそのまま数値化するとストアに表現ノイズが残るためです。
func toItem(record entity.LabelingRecord) map[string]ddbtypes.AttributeValue {
	labels := make([]ddbtypes.AttributeValue, 0, len(record.Labels))
	for _, l := range record.Labels {
		labels = append(labels, &ddbtypes.AttributeValueMemberM{
			Value: map[string]ddbtypes.AttributeValue{
				"name":       &ddbtypes.AttributeValueMemberS{Value: l.Name},
				"confidence": &ddbtypes.AttributeValueMemberN{Value: l.Confidence.String()},
			},
		})
	}

	return map[string]ddbtypes.AttributeValue{
		"imageName": &ddbtypes.AttributeValueMemberS{Value: record.ImageName},
		"bucket":    &ddbtypes.AttributeValueMemberS{Value: record.Bucket},
		"labels":    &ddbtypes.AttributeValueMemberL{Value: labels},
		"status":    &ddbtypes.AttributeValueMemberS{Value: string(record.Status)},
		"timestamp": &ddbtypes.AttributeValueMemberS{Value: record.Timestamp},
	}
}

// fromItem はDynamoDBの属性値マップをLabelingRecordに復元します。
func fromItem(item map[string]ddbtypes.AttributeValue) (*entity.LabelingRecord, error) {
	record := &entity.LabelingRecord{
		ImageName: stringAttr(item, "imageName"),
		Bucket:    stringAttr(item, "bucket"),
		Status:    entity.Status(stringAttr(item, "status")),
		Timestamp: stringAttr(item, "timestamp"),
	}

	list, ok := item["labels"].(*ddbtypes.AttributeValueMemberL)
	if !ok {
		return record, nil
	}
	record.Labels = make([]entity.StoredLabel, 0, len(list.Value))
	for _, av := range list.Value {
		m, ok := av.(*ddbtypes.AttributeValueMemberM)
		if !ok {
			return nil, fmt.Errorf("%w: unexpected label attribute shape", domain.ErrStoreRejected)
		}
		n, ok := m.Value["confidence"].(*ddbtypes.AttributeValueMemberN)
		if !ok {
			return nil, fmt.Errorf("%w: label confidence is not a number attribute", domain.ErrStoreRejected)
		}
		d, err := decimal.NewFromString(n.Value)
		if err != nil {
			return nil, fmt.Errorf("%w: parse confidence %q: %s", domain.ErrStoreRejected, n.Value, err)
		}
		record.Labels = append(record.Labels, entity.StoredLabel{
			Name:       stringAttr(m.Value, "name"),
			Confidence: d,
		})
	}
	return record, nil
}

func stringAttr(item map[string]ddbtypes.AttributeValue, key string) string {
	if s, ok := item[key].(*ddbtypes.AttributeValueMemberS); ok {
		return s.Value
	}
	return ""
}

// mapStoreError はDynamoDBのエラーをドメインエラーの分類に対応付けます。
func mapStoreError(err error) error {
	var (
		throughput *ddbtypes.ProvisionedThroughputExceededException
		reqLimit   *ddbtypes.RequestLimitExceeded
		internal   *ddbtypes.InternalServerError
		noTable    *ddbtypes.ResourceNotFoundException
	)
	switch {
	case errors.As(err, &throughput), errors.As(err, &reqLimit), errors.As(err, &internal):
		return fmt.Errorf("%w: %s", domain.ErrStoreUnavailable, err)
	case errors.As(err, &noTable):
		return fmt.Errorf("%w: %s", domain.ErrStoreRejected, err)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		// スキーマ・サイズ・型の違反はリトライしても成功しない
		case "ValidationException", "SerializationException", "ItemCollectionSizeLimitExceededException":
			return fmt.Errorf("%w: %s", domain.ErrStoreRejected, err)
		}
		return fmt.Errorf("%w: %s", domain.ErrStoreUnavailable, err)
	}
	return fmt.Errorf("%w: %s", domain.ErrStoreUnavailable, err)
}
