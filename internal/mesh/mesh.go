package mesh

import (
	"github.com/annel0/voxel-world/internal/world/block"
	"github.com/go-gl/mathgl/mgl32"
)

// VoxelMesh: геометрия одного чанка в локальных координатах.
// Каждая грань — 4 независимые вершины и 2 треугольника; вершины
// между гранями не объединяются. Нормали считает потребитель.
type VoxelMesh struct {
	Vertices  []mgl32.Vec3
	Triangles []int32
	UVs       []mgl32.Vec2

	faces [block.FaceCount]int
}

// FaceCount возвращает общее количество граней
func (m *VoxelMesh) FaceCount() int {
	return len(m.Vertices) / 4
}

// FacesByDirection возвращает количество граней по направлениям
func (m *VoxelMesh) FacesByDirection() [block.FaceCount]int {
	return m.faces
}

// IsEmpty возвращает true, если в меше нет ни одной грани
func (m *VoxelMesh) IsEmpty() bool {
	return len(m.Vertices) == 0
}

// addFace добавляет квад: 4 вершины, 4 UV и индексы n, n+1, n+2, n, n+2, n+3
func (m *VoxelMesh) addFace(face block.Face, base mgl32.Vec3, uv block.UVRect) {
	n := int32(len(m.Vertices))

	for _, corner := range faceCorners[face] {
		m.Vertices = append(m.Vertices, base.Add(corner))
	}

	m.UVs = append(m.UVs,
		mgl32.Vec2{uv.U0, uv.V0},
		mgl32.Vec2{uv.U1, uv.V0},
		mgl32.Vec2{uv.U1, uv.V1},
		mgl32.Vec2{uv.U0, uv.V1},
	)

	m.Triangles = append(m.Triangles, n, n+1, n+2, n, n+2, n+3)
	m.faces[face]++
}

// faceCorners: углы единичного квада для каждой грани. Обход против
// часовой стрелки при взгляде снаружи: cross(v1-v0, v2-v0) совпадает с нормалью грани.
// На боковых гранях v0->v1 идёт по горизонтали (U), v0->v3 вверх (V).
var faceCorners = [block.FaceCount][4]mgl32.Vec3{
	block.FaceUp: {
		{0, 1, 0}, {0, 1, 1}, {1, 1, 1}, {1, 1, 0},
	},
	block.FaceDown: {
		{0, 0, 0}, {1, 0, 0}, {1, 0, 1}, {0, 0, 1},
	},
	block.FaceNorth: {
		{0, 0, 1}, {1, 0, 1}, {1, 1, 1}, {0, 1, 1},
	},
	block.FaceSouth: {
		{1, 0, 0}, {0, 0, 0}, {0, 1, 0}, {1, 1, 0},
	},
	block.FaceEast: {
		{1, 0, 1}, {1, 0, 0}, {1, 1, 0}, {1, 1, 1},
	},
	block.FaceWest: {
		{0, 0, 0}, {0, 0, 1}, {0, 1, 1}, {0, 1, 0},
	},
}
