// Copyright 2025 Blink Labs Software
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

package ledger

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type stateMetrics struct {
	transactions *prometheus.CounterVec
	applyLatency prometheus.Histogram
	accounts     *prometheus.GaugeVec
	airdrops     prometheus.Counter
}

func (m *stateMetrics) init(promRegistry prometheus.Registerer) {
	promautoFactory := promauto.With(promRegistry)
	m.transactions = promautoFactory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "journal_ledger_transactions_total",
			Help: "transactions submitted to the ledger by result",
		},
		[]string{"status"},
	)
	m.applyLatency = promautoFactory.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "journal_ledger_apply_seconds",
			Help:    "time spent applying a transaction, including commit",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14), // 0.5ms to ~4s
		},
	)
	m.accounts = promautoFactory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "journal_ledger_accounts",
			Help: "live accounts by owner",
		},
		[]string{"owner"},
	)
	m.airdrops = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "journal_ledger_airdrop_lamports_total",
		Help: "lamports credited by the faucet",
	})
}
