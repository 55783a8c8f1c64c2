// Package config はアプリケーション設定を読み込みます。
//
// 優先順位 (後のものが勝つ):
//
//  1. Default() の既定値
//  2. YAML 設定ファイル (任意)
//  3. .env ファイル (ENV_FILE、.env.local、.env の順)
//  4. JAUNDICE_* 環境変数
//
// CLI フラグによる上書きは cmd パッケージが Load の後に行います。
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ----------------------------------------------------------------------
// 定数定義
// ----------------------------------------------------------------------

const (
	defaultPort            = 8080
	defaultShutdownTimeout = 10 * time.Second
	defaultMaxURLs         = 10
	defaultFetchTimeout    = 5 * time.Second
	defaultAnalysisTimeout = 5 * time.Second
	defaultMaxRetries      = 2
	defaultUserAgent       = "Mozilla/5.0 (compatible; jaundice-rate/1.0)"
	defaultLogLevel        = "info"
)

// ----------------------------------------------------------------------
// 設定構造体
// ----------------------------------------------------------------------

// Config はアプリケーション全体の設定です。
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Scoring ScoringConfig `yaml:"scoring"`
	HTTP    HTTPConfig    `yaml:"http"`
	Lexicon LexiconConfig `yaml:"lexicon"`
	Sources SourcesConfig `yaml:"sources"`
	Log     LogConfig     `yaml:"log"`
}

// ServerConfig は HTTP API サーバーの設定です。
type ServerConfig struct {
	Port            int           `yaml:"port" env:"JAUNDICE_SERVER_PORT"`
	Debug           bool          `yaml:"debug" env:"JAUNDICE_SERVER_DEBUG"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"JAUNDICE_SERVER_SHUTDOWN_TIMEOUT"`
}

// ScoringConfig はバッチ処理と記事処理の設定です。
type ScoringConfig struct {
	MaxURLs         int           `yaml:"max_urls" env:"JAUNDICE_SCORING_MAX_URLS"`
	FetchTimeout    time.Duration `yaml:"fetch_timeout" env:"JAUNDICE_SCORING_FETCH_TIMEOUT"`
	AnalysisTimeout time.Duration `yaml:"analysis_timeout" env:"JAUNDICE_SCORING_ANALYSIS_TIMEOUT"`
	// MaxConcurrency が 0 の場合は MaxURLs と同じ値を使います。
	MaxConcurrency int `yaml:"max_concurrency" env:"JAUNDICE_SCORING_MAX_CONCURRENCY"`
	// RequestsPerSecond が 0 の場合はレート制限を行いません。
	RequestsPerSecond float64 `yaml:"requests_per_second" env:"JAUNDICE_SCORING_REQUESTS_PER_SECOND"`
}

// HTTPConfig は記事取得用 HTTP クライアントの設定です。
type HTTPConfig struct {
	MaxRetries uint64 `yaml:"max_retries" env:"JAUNDICE_HTTP_MAX_RETRIES"`
	UserAgent  string `yaml:"user_agent" env:"JAUNDICE_HTTP_USER_AGENT"`
}

// LexiconConfig は辞書ファイルの設定です。
type LexiconConfig struct {
	Paths []string `yaml:"paths" env:"JAUNDICE_LEXICON_PATHS"`
}

// SourcesConfig は取得を許可する配信元の設定です。
type SourcesConfig struct {
	AllowedHosts []string `yaml:"allowed_hosts" env:"JAUNDICE_SOURCES_ALLOWED_HOSTS"`
}

// LogConfig はロガーの設定です。
type LogConfig struct {
	Level       string `yaml:"level" env:"JAUNDICE_LOG_LEVEL"`
	Development bool   `yaml:"development" env:"JAUNDICE_LOG_DEVELOPMENT"`
}

// Default は既定値で埋めた Config を返します。
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            defaultPort,
			ShutdownTimeout: defaultShutdownTimeout,
		},
		Scoring: ScoringConfig{
			MaxURLs:         defaultMaxURLs,
			FetchTimeout:    defaultFetchTimeout,
			AnalysisTimeout: defaultAnalysisTimeout,
		},
		HTTP: HTTPConfig{
			MaxRetries: defaultMaxRetries,
			UserAgent:  defaultUserAgent,
		},
		Lexicon: LexiconConfig{
			Paths: []string{
				"charged_dicts/negative_words.txt",
				"charged_dicts/positive_words.txt",
			},
		},
		Sources: SourcesConfig{
			AllowedHosts: []string{"inosmi.ru"},
		},
		Log: LogConfig{
			Level: defaultLogLevel,
		},
	}
}

// ----------------------------------------------------------------------
// 読み込み
// ----------------------------------------------------------------------

// Load は設定を読み込み、検証済みの Config を返します。path が空の場合はファイルを読みません。
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("設定ファイル %s の読み込みに失敗しました: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("設定ファイル %s の解析に失敗しました: %w", path, err)
		}
	}

	if err := loadEnvFiles(); err != nil {
		return nil, err
	}
	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("設定が不正です: %w", err)
	}
	return cfg, nil
}

// Validate は設定値の整合性を検証します。
func (c *Config) Validate() error {
	switch {
	case c.Server.Port <= 0 || c.Server.Port > 65535:
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	case c.Server.ShutdownTimeout <= 0:
		return errors.New("server.shutdown_timeout must be positive")
	case c.Scoring.MaxURLs <= 0:
		return errors.New("scoring.max_urls must be positive")
	case c.Scoring.FetchTimeout <= 0:
		return errors.New("scoring.fetch_timeout must be positive")
	case c.Scoring.AnalysisTimeout <= 0:
		return errors.New("scoring.analysis_timeout must be positive")
	case c.Scoring.MaxConcurrency < 0:
		return errors.New("scoring.max_concurrency must not be negative")
	case c.Scoring.RequestsPerSecond < 0:
		return errors.New("scoring.requests_per_second must not be negative")
	case len(c.Lexicon.Paths) == 0:
		return errors.New("lexicon.paths must not be empty")
	case len(c.Sources.AllowedHosts) == 0:
		return errors.New("sources.allowed_hosts must not be empty")
	}
	return nil
}

// Concurrency は実際に使う最大同時実行数を返します。
func (c *Config) Concurrency() int {
	if c.Scoring.MaxConcurrency > 0 {
		return c.Scoring.MaxConcurrency
	}
	return c.Scoring.MaxURLs
}

// loadEnvFiles は .env ファイルを読み込みます。既に設定済みの環境変数は上書きしません。
func loadEnvFiles() error {
	if envFile := os.Getenv("ENV_FILE"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load env file %s: %w", envFile, err)
		}
		return nil
	}
	for _, name := range []string{".env.local", ".env"} {
		if err := godotenv.Load(name); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load %s: %w", name, err)
		}
	}
	return nil
}

// ----------------------------------------------------------------------
// 環境変数による上書き (`env` タグ)
// ----------------------------------------------------------------------

func applyEnvOverrides(cfg any) {
	v := reflect.ValueOf(cfg)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	applyEnvToStruct(v)
}

func applyEnvToStruct(v reflect.Value) {
	if v.Kind() != reflect.Struct {
		return
	}

	t := v.Type()
	for i := range v.NumField() {
		field := v.Field(i)
		if !field.CanSet() {
			continue
		}
		if field.Kind() == reflect.Struct {
			applyEnvToStruct(field)
			continue
		}

		envTag := t.Field(i).Tag.Get("env")
		if envTag == "" {
			continue
		}
		if envVal := os.Getenv(envTag); envVal != "" {
			setFieldFromString(field, envVal)
		}
	}
}

func setFieldFromString(field reflect.Value, val string) {
	switch field.Kind() {
	case reflect.String:
		field.SetString(val)

	case reflect.Int, reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			if d, err := time.ParseDuration(val); err == nil {
				field.SetInt(int64(d))
			}
			return
		}
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			field.SetInt(i)
		}

	case reflect.Uint64:
		if u, err := strconv.ParseUint(val, 10, 64); err == nil {
			field.SetUint(u)
		}

	case reflect.Float64:
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			field.SetFloat(f)
		}

	case reflect.Bool:
		s := strings.ToLower(strings.TrimSpace(val))
		field.SetBool(s == "true" || s == "1" || s == "yes")

	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return
		}
		var parts []string
		for _, p := range strings.Split(val, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		field.Set(reflect.ValueOf(parts))
	}
}
