// Package config はサービス設定の定義と読み込みを提供します。
package config

import (
	"errors"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config はプロセス全体の設定です。
type Config struct {
	// Addr はHTTPサーバーの待ち受けアドレスです（例: ":8080"）。
	Addr string `koanf:"addr"`

	// LogLevel はログの詳細度です: debug, info, warn, error。
	LogLevel string `koanf:"log_level"`

	// AWSRegion は解析サービスとストアのリージョンです。
	AWSRegion string `koanf:"aws_region"`

	// TableName はラベリング結果を保存するDynamoDBテーブル名です。
	TableName string `koanf:"table_name"`

	// Detector は解析バックエンドの選択です: rekognition | vision。
	Detector string `koanf:"detector"`

	// Store は結果ストアの選択です: dynamodb | sqlite。
	Store string `koanf:"store"`

	// SQLitePath はStoreがsqliteの場合のデータベースファイルパスです。
	SQLitePath string `koanf:"sqlite_path"`

	// MaxLabels は1オブジェクトあたりに要求するラベル数の上限です。
	MaxLabels int `koanf:"max_labels"`

	// MinConfidence は検出結果に要求する信頼度の下限（%）です。
	MinConfidence float64 `koanf:"min_confidence"`

	// AnalysisRPM は解析サービスへの1分あたりの呼び出し上限です。0で無制限。
	AnalysisRPM int `koanf:"analysis_rpm"`

	// RedisAddr は結果読み取りキャッシュ用のRedisアドレスです。空でキャッシュ無効。
	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`

	// CacheTTLSeconds は結果キャッシュの有効期間（秒）です。
	CacheTTLSeconds int `koanf:"cache_ttl_seconds"`
}

// Default は既定値のConfigを返します。
func Default() *Config {
	return &Config{
		Addr:            ":8080",
		LogLevel:        "info",
		AWSRegion:       "us-east-1",
		TableName:       "ImageLabels",
		Detector:        "rekognition",
		Store:           "dynamodb",
		SQLitePath:      "labeling.db",
		MaxLabels:       10,
		MinConfidence:   70,
		AnalysisRPM:     0,
		CacheTTLSeconds: 60,
	}
}

// Load は 既定値 → YAMLファイル（LABELING_CONFIG指定時） → 環境変数（LABELING_*）
// の順に設定を重ねて読み込みます。
func Load() (*Config, error) {
	k := koanf.New(".")

	if path := os.Getenv("LABELING_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, err
		}
	}

	// LABELING_TABLE_NAME -> table_name のようにフラットなキーへ変換する
	envProvider := env.Provider("LABELING_", ".", func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, "labeling_")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, err
	}

	cfg := *Default()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Addr == "" {
		return errors.New("addr must not be empty")
	}
	if c.TableName == "" && c.Store == "dynamodb" {
		return errors.New("table_name must not be empty")
	}
	if c.Detector != "rekognition" && c.Detector != "vision" {
		return errors.New("detector must be rekognition or vision")
	}
	if c.Store != "dynamodb" && c.Store != "sqlite" {
		return errors.New("store must be dynamodb or sqlite")
	}
	if c.MaxLabels < 1 {
		return errors.New("max_labels must be at least 1")
	}
	if c.MinConfidence < 0 || c.MinConfidence > 100 {
		return errors.New("min_confidence must be within [0,100]")
	}
	return nil
}
