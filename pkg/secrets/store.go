// Copyright 2026 fanjia1024
// Credential sources for the connection profile

package secrets

import (
	"context"
	"fmt"
	"strings"

	"memu-sdk/pkg/config"
	sdkerrors "memu-sdk/pkg/errors"
)

// ErrNotFound secret 不存在
var ErrNotFound = fmt.Errorf("secret: %w", sdkerrors.ErrNotFound)

// Store 只读 Secret 来源；SDK 只需要读取 API Key 等凭证
type Store interface {
	// Get 获取 secret 值，不存在时返回包装了 ErrNotFound 的错误
	Get(ctx context.Context, key string) (string, error)
}

// Config Secret Store 配置
type Config struct {
	Provider string            `yaml:"provider"` // env | memory | file | vault
	Config   map[string]string `yaml:"config"`   // Provider-specific config
}

// NewStore 创建 Secret Store
func NewStore(config Config) (Store, error) {
	switch config.Provider {
	case "", "env":
		return NewEnvStore(), nil
	case "memory":
		return NewMemoryStore(config.Config), nil
	case "file":
		return NewFileStore(config.Config["dir"])
	case "vault":
		return NewVaultStore(VaultConfig{
			Address:    config.Config["address"],
			Token:      config.Config["token"],
			PathPrefix: config.Config["path_prefix"],
		})
	default:
		return nil, fmt.Errorf("unsupported secret provider: %s", config.Provider)
	}
}

// FromConfig 由配置文件的 secrets 段创建 Store
func FromConfig(c config.SecretsConfig) (Store, error) {
	cfg := Config{Provider: c.Provider, Config: map[string]string{}}
	switch c.Provider {
	case "vault":
		cfg.Config["address"] = c.Address
		cfg.Config["token"] = c.Token
		cfg.Config["path_prefix"] = c.PathPrefix
	case "file":
		cfg.Config["dir"] = c.PathPrefix
	case "memory":
		// viper 会把 map 键转为小写，这里还原为环境变量名
		for k, v := range c.Values {
			cfg.Config[strings.ToUpper(k)] = v
		}
	}
	return NewStore(cfg)
}

// Lookup 把 Store 适配为 config.LookupFunc，供 config.Resolve 回退使用。
// 读取失败一律视为未设置，由 Resolve 报出缺失字段。
func Lookup(ctx context.Context, s Store) config.LookupFunc {
	return func(key string) (string, bool) {
		v, err := s.Get(ctx, key)
		if err != nil {
			return "", false
		}
		v = strings.TrimSpace(v)
		return v, v != ""
	}
}
