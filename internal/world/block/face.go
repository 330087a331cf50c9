package block

import "github.com/annel0/voxel-world/internal/vec"

// Face: одна из шести осевых граней блока
type Face uint8

const (
	FaceUp    Face = iota // +Y
	FaceDown              // -Y
	FaceNorth             // +Z
	FaceSouth             // -Z
	FaceEast              // +X
	FaceWest              // -X

	FaceCount // всегда последний: количество граней
)

// AllFaces перечисляет грани в порядке обхода мешера
var AllFaces = [FaceCount]Face{FaceUp, FaceDown, FaceNorth, FaceSouth, FaceEast, FaceWest}

var faceOffsets = [FaceCount]vec.Vec3{
	FaceUp:    {X: 0, Y: 1, Z: 0},
	FaceDown:  {X: 0, Y: -1, Z: 0},
	FaceNorth: {X: 0, Y: 0, Z: 1},
	FaceSouth: {X: 0, Y: 0, Z: -1},
	FaceEast:  {X: 1, Y: 0, Z: 0},
	FaceWest:  {X: -1, Y: 0, Z: 0},
}

var faceNames = [FaceCount]string{"up", "down", "north", "south", "east", "west"}

// Offset возвращает смещение к соседней клетке через эту грань
func (f Face) Offset() vec.Vec3 {
	if f >= FaceCount {
		return vec.Vec3{}
	}
	return faceOffsets[f]
}

func (f Face) String() string {
	if f >= FaceCount {
		return "unknown"
	}
	return faceNames[f]
}

// ParseFace разбирает имя грани из конфигурации.
// "side" не является гранью и обрабатывается вызывающим кодом.
func ParseFace(name string) (Face, bool) {
	for i, n := range faceNames {
		if n == name {
			return Face(i), true
		}
	}
	return FaceCount, false
}
