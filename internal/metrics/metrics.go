// Package metrics содержит метрики Prometheus для синхронизации клиента с сервером.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

const (
	syncTotalName   = "foodmarket_remote_sync_total"
	revertTotalName = "foodmarket_optimistic_reverts_total"
	onlineName      = "foodmarket_online"
)

// Исходы удалённой синхронизации.
const (
	OutcomeOK      = "ok"
	OutcomeFailed  = "failed"
	OutcomeSkipped = "skipped"
)

// SyncMetrics считает исходы синхронизации, откаты оптимистичных изменений и состояние сети.
type SyncMetrics struct {
	syncs   *prometheus.CounterVec
	reverts *prometheus.CounterVec
	online  prometheus.Gauge
}

// NewSyncMetrics регистрирует метрики в переданном реестре. С nil-реестром метрики не пишутся.
func NewSyncMetrics(reg prometheus.Registerer) *SyncMetrics {
	if reg == nil {
		return &SyncMetrics{}
	}
	syncs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: syncTotalName,
		Help: "Remote synchronization attempts by operation and outcome.",
	}, []string{"op", "outcome"})
	reverts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: revertTotalName,
		Help: "Optimistic local changes reverted after a remote failure.",
	}, []string{"op"})
	online := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: onlineName,
		Help: "1 when the last catalog fetch reached the remote API.",
	})
	reg.MustRegister(syncs, reverts, online)
	return &SyncMetrics{syncs: syncs, reverts: reverts, online: online}
}

// ObserveSync фиксирует исход удалённого вызова операции.
func (m *SyncMetrics) ObserveSync(op string, err error) {
	if err != nil {
		m.inc(op, OutcomeFailed)
		return
	}
	m.inc(op, OutcomeOK)
}

// IncSkipped фиксирует операцию, выполненную только локально.
func (m *SyncMetrics) IncSkipped(op string) {
	m.inc(op, OutcomeSkipped)
}

// IncRevert фиксирует откат оптимистичного изменения.
func (m *SyncMetrics) IncRevert(op string) {
	if m == nil || m.reverts == nil {
		return
	}
	m.reverts.WithLabelValues(normalizeLabel(op)).Inc()
}

// SetOnline выставляет признак доступности сервера.
func (m *SyncMetrics) SetOnline(online bool) {
	if m == nil || m.online == nil {
		return
	}
	if online {
		m.online.Set(1)
		return
	}
	m.online.Set(0)
}

func (m *SyncMetrics) inc(op, outcome string) {
	if m == nil || m.syncs == nil {
		return
	}
	m.syncs.WithLabelValues(normalizeLabel(op), outcome).Inc()
}

func normalizeLabel(op string) string {
	if op == "" {
		return "unknown"
	}
	return op
}

// SyncSummary итоги синхронизации по всем операциям.
type SyncSummary struct {
	OK      int
	Failed  int
	Skipped int
	Reverts int
	Online  bool
}

// Summarize собирает итоги из реестра, в котором зарегистрированы SyncMetrics.
func Summarize(g prometheus.Gatherer) (SyncSummary, error) {
	var sum SyncSummary
	mfs, err := g.Gather()
	if err != nil {
		return sum, fmt.Errorf("gather metrics: %w", err)
	}

	for _, mf := range mfs {
		switch mf.GetName() {
		case syncTotalName:
			for _, m := range mf.GetMetric() {
				n := int(m.GetCounter().GetValue())
				switch labelValue(m, "outcome") {
				case OutcomeOK:
					sum.OK += n
				case OutcomeFailed:
					sum.Failed += n
				case OutcomeSkipped:
					sum.Skipped += n
				}
			}
		case revertTotalName:
			for _, m := range mf.GetMetric() {
				sum.Reverts += int(m.GetCounter().GetValue())
			}
		case onlineName:
			for _, m := range mf.GetMetric() {
				sum.Online = m.GetGauge().GetValue() == 1
			}
		}
	}
	return sum, nil
}

func labelValue(m *dto.Metric, name string) string {
	for _, l := range m.GetLabel() {
		if l.GetName() == name {
			return l.GetValue()
		}
	}
	return ""
}
