package mesh

import (
	"github.com/annel0/voxel-world/internal/world/block"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics содержит Prometheus-метрики мешера
type Metrics struct {
	meshes     prometheus.Counter
	faces      prometheus.Histogram
	facesByDir *prometheus.CounterVec
}

// NewMetrics создаёт метрики и регистрирует их в reg (nil: без регистрации)
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		meshes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "voxel",
			Subsystem: "mesher",
			Name:      "meshes_generated_total",
			Help:      "Общее число построенных мешей чанков.",
		}),
		faces: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "voxel",
			Subsystem: "mesher",
			Name:      "faces_per_mesh",
			Help:      "Количество граней в одном меше чанка.",
			Buckets:   prometheus.ExponentialBuckets(64, 2, 10),
		}),
		facesByDir: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "voxel",
			Subsystem: "mesher",
			Name:      "faces_total",
			Help:      "Общее число сгенерированных граней по направлениям.",
		}, []string{"face"}),
	}

	if reg != nil {
		reg.MustRegister(m.meshes, m.faces, m.facesByDir)
	}
	return m
}

func (m *Metrics) observe(mesh *VoxelMesh) {
	m.meshes.Inc()
	m.faces.Observe(float64(mesh.FaceCount()))
	for face, n := range mesh.FacesByDirection() {
		if n > 0 {
			m.facesByDir.WithLabelValues(block.Face(face).String()).Add(float64(n))
		}
	}
}
