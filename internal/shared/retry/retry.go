// Package retry は一時的な外部エラーに対する有界リトライを提供します。
package retry

import (
	"context"
	"log/slog"
	"time"
)

// Do はopを最大attempts回実行します。retryableがtrueを返すエラーに対してのみ
// baseDelayから倍々に増えるバックオフを挟んで再試行し、それ以外のエラーは
// 即座に返します。上流の配送システムがバッチ全体を再配送するため、ここでの
// リトライは最適化であって正しさの要件ではありません。
func Do(ctx context.Context, attempts int, baseDelay time.Duration, retryable func(error) bool, op func() error) error {
	if attempts < 1 {
		attempts = 1
	}

	var err error
	delay := baseDelay
	for i := 0; i < attempts; i++ {
		if err = op(); err == nil {
			return nil
		}
		if !retryable(err) || i == attempts-1 {
			return err
		}

		slog.Warn("retryable error, backing off", "attempt", i+1, "delay", delay, "error", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return err
}
