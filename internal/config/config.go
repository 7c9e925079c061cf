// Package config 提供配置加载和管理功能
package config

import (
	"time"
)

// Config 应用配置根结构
type Config struct {
	App           AppConfig           `yaml:"app" mapstructure:"app"`
	Server        ServerConfig        `yaml:"server" mapstructure:"server"`
	Cache         CacheConfig         `yaml:"cache" mapstructure:"cache"`
	TTS           TTSConfig           `yaml:"tts" mapstructure:"tts"`
	Ledger        LedgerConfig        `yaml:"ledger" mapstructure:"ledger"`
	Admission     AdmissionConfig     `yaml:"admission" mapstructure:"admission"`
	Observability ObservabilityConfig `yaml:"observability" mapstructure:"observability"`
	Security      SecurityConfig      `yaml:"security" mapstructure:"security"`
}

// AppConfig 应用基础配置
type AppConfig struct {
	Name    string `yaml:"name" mapstructure:"name"`
	Version string `yaml:"version" mapstructure:"version"`
	Env     string `yaml:"env" mapstructure:"env"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	HTTP HTTPServerConfig `yaml:"http" mapstructure:"http"`
}

// HTTPServerConfig HTTP 服务器配置
type HTTPServerConfig struct {
	Host         string        `yaml:"host" mapstructure:"host"`
	Port         int           `yaml:"port" mapstructure:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`
}

// CacheConfig 缓存配置
type CacheConfig struct {
	// Backend 缓存后端：redis 或 memory。后端不可用时服务退化为全量合成
	Backend    string        `yaml:"backend" mapstructure:"backend"`
	Redis      RedisConfig   `yaml:"redis" mapstructure:"redis"`
	DefaultTTL time.Duration `yaml:"default_ttl" mapstructure:"default_ttl"`
	// LongTextTTL 长文本 TTL 上限，命中 LongTextChars 阈值的文本取两者较小值
	LongTextTTL   time.Duration `yaml:"long_text_ttl" mapstructure:"long_text_ttl"`
	LongTextChars int           `yaml:"long_text_chars" mapstructure:"long_text_chars"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Host         string        `yaml:"host" mapstructure:"host"`
	Port         int           `yaml:"port" mapstructure:"port"`
	Password     string        `yaml:"password" mapstructure:"password"`
	DB           int           `yaml:"db" mapstructure:"db"`
	PoolSize     int           `yaml:"pool_size" mapstructure:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns" mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout" mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
}

// TTSConfig 合成配置
type TTSConfig struct {
	// ModelID 推理模型标识，进程内惰性加载一次
	ModelID       string `yaml:"model_id" mapstructure:"model_id"`
	ModelRevision string `yaml:"model_revision" mapstructure:"model_revision"`

	// MaxChars 单次请求文本字符上限
	MaxChars int `yaml:"max_chars" mapstructure:"max_chars"`

	// 统一输出编码，所有引擎输出归一化到该参数
	SampleRate  int    `yaml:"sample_rate" mapstructure:"sample_rate"`
	BitrateKbps int    `yaml:"bitrate_kbps" mapstructure:"bitrate_kbps"`
	Quality     string `yaml:"quality" mapstructure:"quality"`
	Sampler     string `yaml:"sampler" mapstructure:"sampler"`

	// ChunkMs 流式切片目标时长
	ChunkMs int `yaml:"chunk_ms" mapstructure:"chunk_ms"`

	Engines EnginesConfig `yaml:"engines" mapstructure:"engines"`
}

// EnginesConfig 推理引擎回退链配置
type EnginesConfig struct {
	Primary   EngineConfig `yaml:"primary" mapstructure:"primary"`
	Secondary EngineConfig `yaml:"secondary" mapstructure:"secondary"`
}

// EngineConfig 单个推理引擎配置
type EngineConfig struct {
	Enabled bool          `yaml:"enabled" mapstructure:"enabled"`
	BaseURL string        `yaml:"base_url" mapstructure:"base_url"`
	Token   string        `yaml:"token" mapstructure:"token"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// LedgerConfig 外部身份与计量后端配置
type LedgerConfig struct {
	BaseURL    string        `yaml:"base_url" mapstructure:"base_url"`
	ServiceKey string        `yaml:"service_key" mapstructure:"service_key"`
	Timeout    time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// AdmissionConfig 准入策略配置
type AdmissionConfig struct {
	// Lane 部署级策略档位，priority 或 free
	Lane  string                `yaml:"lane" mapstructure:"lane"`
	Lanes map[string]LaneConfig `yaml:"lanes" mapstructure:"lanes"`

	Breaker    BreakerConfig    `yaml:"breaker" mapstructure:"breaker"`
	LoadSignal LoadSignalConfig `yaml:"load_signal" mapstructure:"load_signal"`
}

// LaneConfig 单个档位的限额配置
type LaneConfig struct {
	SynthesisPerMinute int  `yaml:"synthesis_per_minute" mapstructure:"synthesis_per_minute"`
	ClonesPerDay       int  `yaml:"clones_per_day" mapstructure:"clones_per_day"`
	Watermark          bool `yaml:"watermark" mapstructure:"watermark"`
}

// BreakerConfig 过载熔断配置
type BreakerConfig struct {
	WindowSize     int           `yaml:"window_size" mapstructure:"window_size"`
	OpenThreshold  float64       `yaml:"open_threshold" mapstructure:"open_threshold"`
	CloseThreshold float64       `yaml:"close_threshold" mapstructure:"close_threshold"`
	RetryAfter     time.Duration `yaml:"retry_after" mapstructure:"retry_after"`
}

// LoadSignalConfig 过载信号源配置
type LoadSignalConfig struct {
	// Source 信号来源：static / simulated / file
	Source string  `yaml:"source" mapstructure:"source"`
	Static float64 `yaml:"static" mapstructure:"static"`
	Path   string  `yaml:"path" mapstructure:"path"`
}

// ObservabilityConfig 可观测性配置
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`
	Tracing TracingConfig `yaml:"tracing" mapstructure:"tracing"`
	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics"`
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// TracingConfig 追踪配置
type TracingConfig struct {
	Enabled    bool    `yaml:"enabled" mapstructure:"enabled"`
	Endpoint   string  `yaml:"endpoint" mapstructure:"endpoint"`
	SampleRate float64 `yaml:"sample_rate" mapstructure:"sample_rate"`
}

// MetricsConfig Prometheus 指标配置
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Path    string `yaml:"path" mapstructure:"path"`
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	// APIKeyHeader 租户凭证请求头
	APIKeyHeader string           `yaml:"api_key_header" mapstructure:"api_key_header"`
	Upload       UploadConfig     `yaml:"upload" mapstructure:"upload"`
	CORS         CORSConfig       `yaml:"cors" mapstructure:"cors"`
}

// UploadConfig 克隆上传限制
type UploadConfig struct {
	MaxBytes     int64    `yaml:"max_bytes" mapstructure:"max_bytes"`
	AllowedTypes []string `yaml:"allowed_types" mapstructure:"allowed_types"`
}

// CORSConfig CORS 配置
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods" mapstructure:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers" mapstructure:"allowed_headers"`
}

// LaneLimits 返回当前档位的限额，未知档位回落到 free
func (c *AdmissionConfig) LaneLimits() LaneConfig {
	if lane, ok := c.Lanes[c.Lane]; ok {
		return lane
	}
	if lane, ok := c.Lanes["free"]; ok {
		return lane
	}
	return LaneConfig{SynthesisPerMinute: 30, ClonesPerDay: 1, Watermark: true}
}
