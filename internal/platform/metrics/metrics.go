// Package metrics はラベリングパイプラインのPrometheusメトリクスを提供します。
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	recordsProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "labeling",
		Name:      "records_processed_total",
		Help:      "Number of object records analyzed and stored successfully.",
	})

	recordsSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "labeling",
		Name:      "records_skipped_total",
		Help:      "Number of records skipped for missing storage-origin fields.",
	})

	batchFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "labeling",
		Name:      "batch_failures_total",
		Help:      "Number of event batches aborted by an unrecovered error.",
	})

	labelsStored = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "labeling",
		Name:      "labels_stored_total",
		Help:      "Total number of labels written to the record store.",
	})
)

// RecordProcessed は正常に処理されたレコードを1件カウントします。
func RecordProcessed() { recordsProcessed.Inc() }

// RecordSkipped はスキップされたレコードを1件カウントします。
func RecordSkipped() { recordsSkipped.Inc() }

// BatchFailure は致命的エラーで中断されたバッチを1件カウントします。
func BatchFailure() { batchFailures.Inc() }

// LabelsStored はストアに書き込まれたラベル数を加算します。
func LabelsStored(n int) { labelsStored.Add(float64(n)) }
