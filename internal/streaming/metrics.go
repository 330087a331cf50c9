package streaming

import "github.com/prometheus/client_golang/prometheus"

// Metrics содержит Prometheus-метрики менеджера стриминга
type Metrics struct {
	activeChunks      prometheus.Gauge
	chunksLoaded      prometheus.Counter
	chunksUnloaded    prometheus.Counter
	remeshes          prometheus.Counter
	reconciles        prometheus.Counter
	reconcileDuration prometheus.Histogram
	pending           prometheus.Gauge
}

// NewMetrics создаёт метрики и регистрирует их в reg (nil: без регистрации)
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		activeChunks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "voxel",
			Subsystem: "streaming",
			Name:      "active_chunks",
			Help:      "Количество загруженных чанков.",
		}),
		chunksLoaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "voxel",
			Subsystem: "streaming",
			Name:      "chunks_loaded_total",
			Help:      "Общее число созданных и заполненных чанков.",
		}),
		chunksUnloaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "voxel",
			Subsystem: "streaming",
			Name:      "chunks_unloaded_total",
			Help:      "Общее число выгруженных чанков.",
		}),
		remeshes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "voxel",
			Subsystem: "streaming",
			Name:      "remesh_total",
			Help:      "Перестроения мешей грязных чанков.",
		}),
		reconciles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "voxel",
			Subsystem: "streaming",
			Name:      "reconciles_total",
			Help:      "Завершённые проходы реконсиляции окна.",
		}),
		reconcileDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "voxel",
			Subsystem: "streaming",
			Name:      "reconcile_duration_seconds",
			Help:      "Длительность прохода реконсиляции от старта до удаления лишних чанков.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "voxel",
			Subsystem: "streaming",
			Name:      "pending_reconcile",
			Help:      "1, если новый центр ждёт завершения текущей реконсиляции.",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.activeChunks,
			m.chunksLoaded,
			m.chunksUnloaded,
			m.remeshes,
			m.reconciles,
			m.reconcileDuration,
			m.pending,
		)
	}
	return m
}

func (m *Metrics) setPending(pending bool) {
	if pending {
		m.pending.Set(1)
		return
	}
	m.pending.Set(0)
}
