// Package config 提供配置加载功能
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/spf13/viper"
)

// Load 加载配置文件
// 按优先级加载：默认配置 -> 环境配置 -> 环境变量
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	// 1. 加载默认配置
	if err := loadConfigFile(v, "configs/config.yaml", true); err != nil {
		return nil, err
	}

	// 2. 加载环境特定配置
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}
	envFile := fmt.Sprintf("configs/config.%s.yaml", env)
	if err := loadConfigFile(v, envFile, true); err != nil {
		return nil, err
	}

	// 3. 绑定环境变量 (直接覆盖)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// 设置默认值 (兜底)
	setDefaults(v)

	// 解析配置
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// loadConfigFile 读取文件，执行环境变量替换，并加载到 viper
func loadConfigFile(v *viper.Viper, path string, optional bool) error {
	content, err := os.ReadFile(path)
	if err != nil {
		if optional && os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	// 执行环境变量替换
	expanded := expandEnv(string(content))

	// 加载到 viper
	reader := strings.NewReader(expanded)
	if v.ConfigFileUsed() == "" {
		if err := v.ReadConfig(reader); err != nil {
			return fmt.Errorf("failed to read processed config %s: %w", path, err)
		}
		// 手动标记已加载文件，防止后续 ReadInConfig 报错
		v.SetConfigFile(path)
	} else {
		if err := v.MergeConfig(reader); err != nil {
			return fmt.Errorf("failed to merge processed config %s: %w", path, err)
		}
	}

	return nil
}

// expandEnv 替换字符串中的 ${VAR:default} 占位符
func expandEnv(s string) string {
	// 匹配 ${VAR} 或 ${VAR:default}
	re := regexp.MustCompile(`\${(\w+)(:([^}]*))?}`)
	return re.ReplaceAllStringFunc(s, func(match string) string {
		submatch := re.FindStringSubmatch(match)
		key := submatch[1]
		hasDefault := submatch[2] != ""
		defVal := submatch[3]

		val, ok := os.LookupEnv(key)
		if ok {
			return val
		}
		if hasDefault {
			return defVal
		}
		return match
	})
}

// MustLoad 加载配置，失败时 panic
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// setDefaults 设置配置默认值
func setDefaults(v *viper.Viper) {
	// 应用默认值
	v.SetDefault("app.name", "tts-gateway")
	v.SetDefault("app.version", "v0.0.0")
	v.SetDefault("app.env", "development")

	// HTTP 服务器默认值
	v.SetDefault("server.http.host", "0.0.0.0")
	v.SetDefault("server.http.port", 8000)
	v.SetDefault("server.http.read_timeout", "30s")
	v.SetDefault("server.http.write_timeout", "120s")
	v.SetDefault("server.http.idle_timeout", "120s")

	// 缓存默认值
	v.SetDefault("cache.backend", "redis")
	v.SetDefault("cache.redis.host", "localhost")
	v.SetDefault("cache.redis.port", 6379)
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("cache.redis.pool_size", 100)
	v.SetDefault("cache.redis.min_idle_conns", 10)
	v.SetDefault("cache.redis.dial_timeout", "5s")
	v.SetDefault("cache.redis.read_timeout", "3s")
	v.SetDefault("cache.redis.write_timeout", "3s")
	v.SetDefault("cache.default_ttl", "24h")
	v.SetDefault("cache.long_text_ttl", "2h")
	v.SetDefault("cache.long_text_chars", 200)

	// 合成默认值
	v.SetDefault("tts.model_id", "nari-labs/Dia-1.6B")
	v.SetDefault("tts.model_revision", "main")
	v.SetDefault("tts.max_chars", 800)
	v.SetDefault("tts.sample_rate", 16000)
	v.SetDefault("tts.bitrate_kbps", 64)
	v.SetDefault("tts.quality", "standard")
	v.SetDefault("tts.sampler", "default")
	v.SetDefault("tts.chunk_ms", 240)
	v.SetDefault("tts.engines.primary.enabled", true)
	v.SetDefault("tts.engines.primary.timeout", "30s")
	v.SetDefault("tts.engines.secondary.enabled", true)
	v.SetDefault("tts.engines.secondary.timeout", "30s")

	// 外部后端默认值
	v.SetDefault("ledger.timeout", "5s")

	// 准入默认值
	v.SetDefault("admission.lane", "priority")
	v.SetDefault("admission.lanes.priority.synthesis_per_minute", 120)
	v.SetDefault("admission.lanes.priority.clones_per_day", 5)
	v.SetDefault("admission.lanes.priority.watermark", false)
	v.SetDefault("admission.lanes.free.synthesis_per_minute", 30)
	v.SetDefault("admission.lanes.free.clones_per_day", 1)
	v.SetDefault("admission.lanes.free.watermark", true)
	v.SetDefault("admission.breaker.window_size", 10)
	v.SetDefault("admission.breaker.open_threshold", 90)
	v.SetDefault("admission.breaker.close_threshold", 70)
	v.SetDefault("admission.breaker.retry_after", "30s")
	v.SetDefault("admission.load_signal.source", "simulated")
	v.SetDefault("admission.load_signal.static", 0)

	// 可观测性默认值
	v.SetDefault("observability.logging.level", "info")
	v.SetDefault("observability.logging.format", "json")
	v.SetDefault("observability.tracing.enabled", false)
	v.SetDefault("observability.tracing.endpoint", "localhost:4317")
	v.SetDefault("observability.tracing.sample_rate", 1.0)
	v.SetDefault("observability.metrics.enabled", true)
	v.SetDefault("observability.metrics.path", "/metrics/prometheus")

	// 安全默认值
	v.SetDefault("security.api_key_header", "X-API-Key")
	v.SetDefault("security.upload.max_bytes", 6*1024*1024)
	v.SetDefault("security.upload.allowed_types", []string{
		"audio/wav", "audio/x-wav", "audio/mp3", "audio/mpeg",
	})
	v.SetDefault("security.cors.allowed_origins", []string{"http://localhost:3000"})
}
