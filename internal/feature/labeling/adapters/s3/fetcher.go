// Package s3 はストレージオブジェクトのバイト列取得アダプターを提供します。
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"labeling_backend/internal/feature/labeling/domain"
)

// GetObjectAPI はテストで差し替え可能なS3 APIの最小サブセットです。
type GetObjectAPI interface {
	GetObject(ctx context.Context, params *awss3.GetObjectInput, optFns ...func(*awss3.Options)) (*awss3.GetObjectOutput, error)
}

// ObjectFetcher はS3からオブジェクトの内容をダウンロードします。
// S3参照を直接受け取れない解析バックエンド（Vision等）向けです。
type ObjectFetcher struct {
	api GetObjectAPI
}

// NewObjectFetcher は新しいObjectFetcherを生成します。
func NewObjectFetcher(api GetObjectAPI) *ObjectFetcher {
	return &ObjectFetcher{api: api}
}

// Fetch は指定オブジェクトの内容を読み出して返します。オブジェクトまたは
// バケットが存在しない場合はdomain.ErrObjectNotFoundを返します。
func (f *ObjectFetcher) Fetch(ctx context.Context, bucket, key string) ([]byte, error) {
	out, err := f.api.GetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *s3types.NoSuchKey
		var noBucket *s3types.NoSuchBucket
		if errors.As(err, &noKey) || errors.As(err, &noBucket) {
			return nil, fmt.Errorf("%w: s3://%s/%s", domain.ErrObjectNotFound, bucket, key)
		}
		return nil, fmt.Errorf("get object s3://%s/%s: %w", bucket, key, err)
	}
	defer func() {
		if cerr := out.Body.Close(); cerr != nil {
			err = cerr
		}
	}()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read object s3://%s/%s: %w", bucket, key, err)
	}
	return data, nil
}
