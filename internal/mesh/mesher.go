package mesh

import (
	"github.com/annel0/voxel-world/internal/vec"
	"github.com/annel0/voxel-world/internal/world"
	"github.com/annel0/voxel-world/internal/world/block"
	"github.com/go-gl/mathgl/mgl32"
)

// NeighborLookup даёт мешеру доступ к блокам соседних чанков
type NeighborLookup interface {
	BlockAt(pos vec.Vec3) block.BlockID
}

// Mesher превращает блоки чанка в геометрию с отсечением скрытых граней.
// Генерация детерминирована и зависит только от содержимого чанка,
// если не включено отсечение по соседям (CullChunkBorders).
type Mesher struct {
	atlas       *block.Atlas
	neighbors   NeighborLookup
	cullBorders bool
	metrics     *Metrics
}

// Option настраивает Mesher
type Option func(*Mesher)

// WithNeighborLookup включает проверку соседних чанков для граничных граней
func WithNeighborLookup(lookup NeighborLookup) Option {
	return func(m *Mesher) {
		m.neighbors = lookup
		m.cullBorders = lookup != nil
	}
}

// WithMetrics подключает Prometheus-метрики
func WithMetrics(metrics *Metrics) Option {
	return func(m *Mesher) {
		m.metrics = metrics
	}
}

// NewMesher создаёт мешер с указанным атласом (nil: атлас по умолчанию)
func NewMesher(atlas *block.Atlas, opts ...Option) *Mesher {
	if atlas == nil {
		atlas = block.DefaultAtlas()
	}
	m := &Mesher{atlas: atlas}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SetNeighborLookup подключает (или отключает при nil) проверку соседей.
// Нужен, когда источник соседей создаётся после мешера.
func (m *Mesher) SetNeighborLookup(lookup NeighborLookup) {
	m.neighbors = lookup
	m.cullBorders = lookup != nil
}

// CullsChunkBorders сообщает, учитываются ли соседние чанки
func (m *Mesher) CullsChunkBorders() bool {
	return m.cullBorders
}

// Atlas возвращает атлас текстур мешера
func (m *Mesher) Atlas() *block.Atlas {
	return m.atlas
}

// Generate строит меш чанка. Обход: x снаружи, y посередине, z внутри.
func (m *Mesher) Generate(c *world.Chunk) *VoxelMesh {
	blocks := c.Snapshot()
	out := &VoxelMesh{}

	for x := 0; x < world.ChunkWidth; x++ {
		for y := 0; y < world.ChunkHeight; y++ {
			for z := 0; z < world.ChunkLength; z++ {
				id := blocks[world.Index(x, y, z)]
				if id.IsAir() {
					continue
				}

				base := mgl32.Vec3{float32(x), float32(y), float32(z)}
				for _, face := range block.AllFaces {
					if m.faceVisible(c, blocks, x, y, z, face) {
						out.addFace(face, base, m.atlas.UV(id, face))
					}
				}
			}
		}
	}

	if m.metrics != nil {
		m.metrics.observe(out)
	}
	return out
}

// faceVisible проверяет, открыта ли грань: сосед — воздух или лежит за границей чанка.
// За горизонтальной границей при включённом отсечении спрашиваем соседа;
// за верхом и низом мира всегда воздух.
func (m *Mesher) faceVisible(c *world.Chunk, blocks []block.BlockID, x, y, z int, face block.Face) bool {
	o := face.Offset()
	nx, ny, nz := x+o.X, y+o.Y, z+o.Z

	if world.InBounds(nx, ny, nz) {
		return blocks[world.Index(nx, ny, nz)].IsAir()
	}

	if m.cullBorders && m.neighbors != nil && ny >= 0 && ny < world.ChunkHeight {
		return m.neighbors.BlockAt(c.LocalToWorld(nx, ny, nz)).IsAir()
	}
	return true
}
