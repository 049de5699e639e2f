// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	sdkerrors "memu-sdk/pkg/errors"
)

// Config 配置文件结构体（CLI 与嵌入方可选使用；库本身只依赖 Profile）
type Config struct {
	Memu       MemuConfig       `mapstructure:"memu"`
	Log        LogConfig        `mapstructure:"log"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Secrets    SecretsConfig    `mapstructure:"secrets"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
}

// MemuConfig 远端记忆服务连接配置
type MemuConfig struct {
	BaseURL           string  `mapstructure:"base_url"`
	APIKey            string  `mapstructure:"api_key"`           // 支持 ${ENV} 形式
	Timeout           string  `mapstructure:"timeout"`           // 如 "60s"
	MaxRetries        *int    `mapstructure:"max_retries"`       // 不含首次；未配置时用默认 3
	RetryBackoff      string  `mapstructure:"retry_backoff"`     // 首次重试前等待，如 "500ms"；"0s" 关闭退避
	MaxRetryBackoff   string  `mapstructure:"max_retry_backoff"` // 退避上限
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// CacheConfig 终态任务缓存配置
type CacheConfig struct {
	Type     string `mapstructure:"type"` // none | memory | redis
	Addr     string `mapstructure:"addr"`
	DB       int    `mapstructure:"db"`
	Password string `mapstructure:"password"`
	TTL      string `mapstructure:"ttl"` // 如 "1h"，空表示不过期
}

// SecretsConfig 凭证来源配置
type SecretsConfig struct {
	Provider   string            `mapstructure:"provider"` // env | memory | file | vault
	Address    string            `mapstructure:"address"`
	Token      string            `mapstructure:"token"`
	PathPrefix string            `mapstructure:"path_prefix"`
	Values     map[string]string `mapstructure:"values"` // memory 的初始内容，键即环境变量名
}

// MonitoringConfig 监控配置
type MonitoringConfig struct {
	Tracing TracingConfig `mapstructure:"tracing"`
}

// TracingConfig 链路追踪配置（OpenTelemetry）
type TracingConfig struct {
	Enable         bool   `mapstructure:"enable"`
	ServiceName    string `mapstructure:"service_name"`
	ExportEndpoint string `mapstructure:"export_endpoint"`
	Insecure       bool   `mapstructure:"insecure"`
}

// LoadConfig 加载配置文件；memu.api_key 等键可被 MEMU_API_KEY 等环境变量覆盖
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fileError(configPath, "无法读取配置文件", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fileError(configPath, "无法解析配置文件", err)
	}

	replaceEnvVars(&config)
	return &config, nil
}

func fileError(path, msg string, err error) error {
	e := sdkerrors.Configuration("config_file", "%s %s", msg, path)
	e.Err = err
	return e
}

// replaceEnvVars 替换 ${VAR} 形式的占位符；变量未设置时置空，交给 Resolve 回退
func replaceEnvVars(config *Config) {
	config.Memu.APIKey = expandEnv(config.Memu.APIKey)
	config.Memu.BaseURL = expandEnv(config.Memu.BaseURL)
	config.Secrets.Token = expandEnv(config.Secrets.Token)
	config.Cache.Password = expandEnv(config.Cache.Password)
}

func expandEnv(s string) string {
	if !strings.HasPrefix(s, "$") {
		return s
	}
	envVar := strings.TrimPrefix(strings.TrimSuffix(s, "}"), "${")
	envVar = strings.TrimPrefix(envVar, "$")
	return os.Getenv(envVar)
}

// Options 把文件中的 memu 段转换为 Resolve 的输入
func (c *Config) Options() (Options, error) {
	m := c.Memu
	opts := Options{
		BaseURL:           m.BaseURL,
		APIKey:            m.APIKey,
		MaxRetries:        m.MaxRetries,
		RequestsPerSecond: m.RequestsPerSecond,
		Burst:             m.Burst,
	}
	var err error
	if m.Timeout != "" {
		if opts.Timeout, err = parseDuration(m.Timeout); err != nil {
			return Options{}, invalid("memu.timeout", m.Timeout, err)
		}
	}
	if m.RetryBackoff != "" {
		d, err := parseDuration(m.RetryBackoff)
		if err != nil {
			return Options{}, invalid("memu.retry_backoff", m.RetryBackoff, err)
		}
		opts.RetryBackoff = &d
	}
	if m.MaxRetryBackoff != "" {
		if opts.MaxRetryBackoff, err = parseDuration(m.MaxRetryBackoff); err != nil {
			return Options{}, invalid("memu.max_retry_backoff", m.MaxRetryBackoff, err)
		}
	}
	return opts, nil
}

// CacheTTL 解析 cache.ttl，空为 0（不过期）
func (c *Config) CacheTTL() (time.Duration, error) {
	if c.Cache.TTL == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Cache.TTL)
	if err != nil {
		return 0, invalid("cache.ttl", c.Cache.TTL, err)
	}
	return d, nil
}
