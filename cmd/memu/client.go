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

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"memu-sdk/pkg/config"
	sdkerrors "memu-sdk/pkg/errors"
	"memu-sdk/pkg/log"
	"memu-sdk/pkg/memu"
	"memu-sdk/pkg/metrics"
	"memu-sdk/pkg/secrets"
	"memu-sdk/pkg/statuscache"
	"memu-sdk/pkg/tracing"
	"memu-sdk/pkg/utils"
)

// globalFlags 每个子命令都接受的公共参数
type globalFlags struct {
	configPath string
	logLevel   string
	metrics    bool
}

func newFlagSet(name string, stderr io.Writer) (*flag.FlagSet, *globalFlags) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	g := &globalFlags{}
	fs.StringVar(&g.configPath, "config", os.Getenv("MEMU_CONFIG"), "配置文件路径（默认读取 MEMU_CONFIG）")
	fs.StringVar(&g.logLevel, "log-level", "", "日志级别 debug|info|warn|error")
	fs.BoolVar(&g.metrics, "metrics", false, "命令结束后把 Prometheus 指标写到 stderr")
	return fs, g
}

// loadConfig 未指定配置文件时返回空配置，全部走环境变量与默认值
func loadConfig(g *globalFlags) (*config.Config, error) {
	if g.configPath == "" {
		return &config.Config{}, nil
	}
	return config.LoadConfig(g.configPath)
}

// session 一次命令执行期间持有的客户端及其附属资源
type session struct {
	client   *memu.Client
	logger   *log.Logger
	metrics  bool
	stderr   io.Writer
	shutdown []func(context.Context) error
}

// resolveProfile 显式配置 > 环境变量 > secrets 来源 > 默认值
func resolveProfile(ctx context.Context, cfg *config.Config) (*config.Profile, error) {
	opts, err := cfg.Options()
	if err != nil {
		return nil, err
	}
	store, err := secrets.FromConfig(cfg.Secrets)
	if err != nil {
		return nil, sdkerrors.Wrap(err, "初始化 secrets 失败")
	}
	return config.Resolve(opts, config.ChainLookup(config.EnvLookup, secrets.Lookup(ctx, store)))
}

func openSession(ctx context.Context, g *globalFlags, stderr io.Writer) (*session, error) {
	cfg, err := loadConfig(g)
	if err != nil {
		return nil, err
	}

	logger := log.NewLogger(&log.Config{
		Level:  utils.Coalesce(g.logLevel, cfg.Log.Level, "warn"),
		Format: cfg.Log.Format,
		Output: stderr,
	})

	profile, err := resolveProfile(ctx, cfg)
	if err != nil {
		return nil, err
	}

	s := &session{logger: logger, metrics: g.metrics, stderr: stderr}
	if t := cfg.Monitoring.Tracing; t.Enable {
		tp, err := tracing.InitTracer(tracing.OTelConfig{
			ServiceName:    t.ServiceName,
			ExportEndpoint: t.ExportEndpoint,
			Insecure:       t.Insecure,
		})
		if err != nil {
			logger.Warn("初始化 tracing 失败，继续运行", "error", err)
		} else {
			s.shutdown = append(s.shutdown, tp.Shutdown)
		}
	}

	cache, err := statuscache.New(cfg.Cache)
	if err != nil {
		s.close(ctx)
		return nil, err
	}
	opts := []memu.Option{memu.WithLogger(logger)}
	if cache != nil {
		opts = append(opts, memu.WithStatusCache(cache))
	}
	client, err := memu.New(profile, opts...)
	if err != nil {
		if cache != nil {
			_ = cache.Close()
		}
		s.close(ctx)
		return nil, err
	}
	s.client = client
	return s, nil
}

func (s *session) close(ctx context.Context) {
	if s.client != nil {
		if err := s.client.Close(); err != nil {
			s.logger.Warn("关闭客户端失败", "error", err)
		}
	}
	for _, fn := range s.shutdown {
		if err := fn(ctx); err != nil {
			s.logger.Warn("关闭 tracing 失败", "error", err)
		}
	}
	if s.metrics {
		if err := metrics.WritePrometheus(s.stderr); err != nil {
			s.logger.Warn("输出指标失败", "error", err)
		}
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

// maskSecret 仅保留末 4 位
func maskSecret(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return "****" + s[len(s)-4:]
}
