package router

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	labelinghandler "labeling_backend/internal/feature/labeling/transport/handler"
	platformhandler "labeling_backend/internal/platform/http/handler"
)

// NewRouter はHTTPルータを組み立てます。
func NewRouter(labeling *labelinghandler.LabelingHandler) *gin.Engine {
	r := gin.Default()

	// ブラウザの表示クライアントが別オリジンからポーリングするためCORSを許可
	r.Use(cors.Default())

	// 導通確認用
	r.GET("/healthz", platformhandler.Health)
	// Prometheusメトリクス
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/v1")
	{
		// オブジェクト作成通知の受け付け
		v1.POST("/events", labeling.HandleEvent)
		// ラベリング結果の照会（ポーリング用）
		v1.GET("/labels/:imageName", labeling.GetRecord)
	}

	return r
}
