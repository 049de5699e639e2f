// Copyright 2026 fanjia1024
// Mounted secret files (Kubernetes / Docker secrets)

package secrets

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	sdkerrors "memu-sdk/pkg/errors"
)

// DefaultSecretsDir 未指定目录时使用的挂载路径
const DefaultSecretsDir = "/etc/secrets"

type fileStore struct {
	dir   string
	mu    sync.RWMutex
	cache map[string]string
}

// NewFileStore 从目录中按文件名读取 secret（每个 key 一个文件）
func NewFileStore(dir string) (Store, error) {
	if dir == "" {
		dir = DefaultSecretsDir
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("secrets dir %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("secrets dir %s is not a directory", dir)
	}
	return &fileStore{dir: dir, cache: make(map[string]string)}, nil
}

func (f *fileStore) Get(ctx context.Context, key string) (string, error) {
	f.mu.RLock()
	if val, ok := f.cache[key]; ok {
		f.mu.RUnlock()
		return val, nil
	}
	f.mu.RUnlock()

	// key 不允许跳出目录
	if key == "" || strings.ContainsAny(key, `/\`) || key == ".." {
		return "", sdkerrors.Wrapf(sdkerrors.ErrInvalidArg, "invalid secret key %q", key)
	}
	data, err := os.ReadFile(filepath.Join(f.dir, key))
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%s: %w", key, ErrNotFound)
		}
		return "", fmt.Errorf("read secret %s: %w", key, err)
	}
	val := strings.TrimRight(string(data), "\r\n")

	f.mu.Lock()
	f.cache[key] = val
	f.mu.Unlock()
	return val, nil
}
