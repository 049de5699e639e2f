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

package metrics

import (
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// 全局 Registry，嵌入方可 Gather 后合并到自己的 /metrics
var DefaultRegistry = prometheus.NewRegistry()

func init() {
	DefaultRegistry.MustRegister(
		RequestTotal, AttemptTotal, RequestDuration, CacheHitTotal,
	)
}

// RequestTotal 调用总数（按操作与结果）
var RequestTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "memu_client_requests_total",
		Help: "调用总数（按操作与结果）",
	},
	[]string{"operation", "outcome"}, // outcome: ok | validation | authentication | api | connection
)

// AttemptTotal 实际发出的 HTTP 请求数（含重试）
var AttemptTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "memu_client_attempts_total",
		Help: "实际发出的 HTTP 请求数（含重试）",
	},
	[]string{"operation"},
)

// RequestDuration 单次调用耗时（秒，含重试与退避）
var RequestDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "memu_client_request_duration_seconds",
		Help:    "单次调用耗时（秒）",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"operation"},
)

// CacheHitTotal 终态任务缓存命中次数
var CacheHitTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "memu_client_status_cache_hits_total",
		Help: "终态任务缓存命中次数",
	},
)

// WritePrometheus 将 Prometheus 文本格式写入 w
func WritePrometheus(w io.Writer) error {
	metrics, err := DefaultRegistry.Gather()
	if err != nil {
		return err
	}
	enc := expfmt.NewEncoder(w, expfmt.FmtText)
	for _, mf := range metrics {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}
