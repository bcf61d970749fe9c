package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/martinsmeder/AI-agent-test/pkg/aggregate"
	"github.com/martinsmeder/AI-agent-test/pkg/client"
	"github.com/martinsmeder/AI-agent-test/pkg/scraper"
	"github.com/martinsmeder/AI-agent-test/pkg/source"
)

// 設定の検証エラー
var (
	ErrInvalidTimeout           = errors.New("timeout_sec は 1 以上である必要があります")
	ErrInvalidItemConcurrency   = errors.New("item_concurrency は 1 以上である必要があります")
	ErrInvalidSourceConcurrency = errors.New("source_concurrency は 1 以上である必要があります")
	ErrMissingOutputDir         = errors.New("output_dir は必須です")
	ErrUnknownSource            = errors.New("未知の取得元です")
	ErrInvalidWindow            = errors.New("window_days は 0 以上である必要があります")
	ErrInvalidListingURL        = errors.New("listing_url は http または https の絶対URLである必要があります")
	ErrNoEnabledSources         = errors.New("有効な取得元が1つもありません")
	ErrInvalidCron              = errors.New("cron の書式が不正です")
)

const (
	// DefaultOutputDir は出力先ディレクトリのデフォルトです。
	DefaultOutputDir = "output"
	// DefaultCron は schedule コマンドのデフォルトの実行間隔 (毎朝6時) です。
	DefaultCron = "0 6 * * *"
)

// Config は、アプリケーション全体の設定です。
type Config struct {
	OutputDir         string                    `yaml:"output_dir"`
	TimeoutSec        int                       `yaml:"timeout_sec"`
	MaxRetries        uint64                    `yaml:"max_retries"`
	ItemConcurrency   int                       `yaml:"item_concurrency"`
	SourceConcurrency int                       `yaml:"source_concurrency"`
	StrictItemFetch   bool                      `yaml:"strict_item_fetch"`
	Cron              string                    `yaml:"cron"`
	Sources           map[string]SourceOverride `yaml:"sources"`
}

// SourceOverride は、組み込みの取得元に対する上書き設定です。省略した項目は組み込みの値を使います。
type SourceOverride struct {
	Enabled    *bool  `yaml:"enabled"`
	WindowDays *int   `yaml:"window_days"`
	ListingURL string `yaml:"listing_url"`
}

// Default は組み込みのデフォルト設定を返します。
func Default() *Config {
	return &Config{
		OutputDir:         DefaultOutputDir,
		TimeoutSec:        int(client.DefaultHTTPTimeout / time.Second),
		MaxRetries:        0,
		ItemConcurrency:   scraper.DefaultMaxConcurrency,
		SourceConcurrency: aggregate.DefaultSourceConcurrency,
		Cron:              DefaultCron,
		Sources:           map[string]SourceOverride{},
	}
}

// Load は、デフォルト設定に YAML ファイルの内容を重ねて読み込み、検証します。
// path が空の場合はデフォルト設定を返します。
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("設定ファイルの読み込みに失敗しました: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("設定ファイルのYAMLパースに失敗しました: %w", err)
	}
	if cfg.Sources == nil {
		cfg.Sources = map[string]SourceOverride{}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("設定の検証に失敗しました: %w", err)
	}
	return cfg, nil
}

// Validate は設定値を検証します。
func (c *Config) Validate() error {
	if c.OutputDir == "" {
		return ErrMissingOutputDir
	}
	if c.TimeoutSec < 1 {
		return ErrInvalidTimeout
	}
	if c.ItemConcurrency < 1 {
		return ErrInvalidItemConcurrency
	}
	if c.SourceConcurrency < 1 {
		return ErrInvalidSourceConcurrency
	}
	if c.Cron != "" {
		if _, err := cron.ParseStandard(c.Cron); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidCron, c.Cron, err)
		}
	}

	for name, o := range c.Sources {
		if _, ok := source.Lookup(name); !ok {
			return fmt.Errorf("%w: %s", ErrUnknownSource, name)
		}
		if o.WindowDays != nil && *o.WindowDays < 0 {
			return fmt.Errorf("%w: sources.%s", ErrInvalidWindow, name)
		}
		if o.ListingURL != "" && !isHTTPURL(o.ListingURL) {
			return fmt.Errorf("%w: sources.%s", ErrInvalidListingURL, name)
		}
	}

	if len(c.EnabledSpecs()) == 0 {
		return ErrNoEnabledSources
	}
	return nil
}

// Timeout は1リクエストあたりのタイムアウトを返します。
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

// Specs は、上書き設定を反映した全取得元の定義を組み込みの順序で返します。
func (c *Config) Specs() []source.Spec {
	specs := source.Builtins()
	for i := range specs {
		o, ok := c.Sources[specs[i].Name]
		if !ok {
			continue
		}
		if o.WindowDays != nil {
			specs[i].WindowDays = *o.WindowDays
		}
		if o.ListingURL != "" {
			specs[i].ListingURL = o.ListingURL
		}
	}
	return specs
}

// EnabledSpecs は、有効な取得元の定義だけを返します。
func (c *Config) EnabledSpecs() []source.Spec {
	var enabled []source.Spec
	for _, spec := range c.Specs() {
		if c.IsEnabled(spec.Name) {
			enabled = append(enabled, spec)
		}
	}
	return enabled
}

// IsEnabled は取得元が有効かどうかを返します。明示的に無効にしない限り有効です。
func (c *Config) IsEnabled(name string) bool {
	o, ok := c.Sources[name]
	if !ok || o.Enabled == nil {
		return true
	}
	return *o.Enabled
}

// Spec は、上書き設定を反映した取得元の定義を1つ返します。無効な取得元も返します。
func (c *Config) Spec(name string) (source.Spec, error) {
	for _, spec := range c.Specs() {
		if spec.Name == name {
			return spec, nil
		}
	}
	return source.Spec{}, fmt.Errorf("%w: %s", ErrUnknownSource, name)
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
