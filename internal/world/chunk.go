package world

import (
	"errors"
	"fmt"
	"sync"

	"github.com/annel0/voxel-world/internal/vec"
	"github.com/annel0/voxel-world/internal/world/block"
)

// Размеры чанка: колонна 16x256x16 на всю высоту мира
const (
	ChunkWidth  = 16
	ChunkHeight = 256
	ChunkLength = 16

	ChunkVolume = ChunkWidth * ChunkHeight * ChunkLength
)

// ErrOutOfRange возвращается при обращении к локальной координате вне чанка
var ErrOutOfRange = errors.New("координаты вне границ чанка")

// Bounds: мировой AABB чанка, [Min, Max)
type Bounds struct {
	Min vec.Vec3 `json:"min"`
	Max vec.Vec3 `json:"max"`
}

// Chunk представляет колонну блоков размером ChunkWidth x ChunkHeight x ChunkLength
type Chunk struct {
	Coords vec.Vec3 // Координаты чанка (Y всегда 0)

	blocks     []block.BlockID // плоский буфер, индекс x + z*W + y*W*L
	solidCount int
	dirty      bool

	mu sync.RWMutex
}

// NewChunk создаёт пустой чанк. Новый чанк помечен грязным:
// ему нужен первый меш.
func NewChunk(coords vec.Vec3) *Chunk {
	coords.Y = 0
	return &Chunk{
		Coords: coords,
		blocks: make([]block.BlockID, ChunkVolume),
		dirty:  true,
	}
}

// InBounds проверяет, лежит ли локальная координата внутри чанка
func InBounds(x, y, z int) bool {
	return x >= 0 && x < ChunkWidth &&
		y >= 0 && y < ChunkHeight &&
		z >= 0 && z < ChunkLength
}

// Index линеаризует локальную координату. Вызывающий обязан проверить InBounds.
func Index(x, y, z int) int {
	return x + z*ChunkWidth + y*ChunkWidth*ChunkLength
}

func outOfRange(x, y, z int) error {
	return fmt.Errorf("%w: (%d,%d,%d)", ErrOutOfRange, x, y, z)
}

// Get возвращает ID блока по локальным координатам
func (c *Chunk) Get(x, y, z int) (block.BlockID, error) {
	if !InBounds(x, y, z) {
		return block.AirBlockID, outOfRange(x, y, z)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.blocks[Index(x, y, z)], nil
}

// Set устанавливает блок по локальным координатам.
// Запись того же значения ничего не меняет и не пачкает чанк.
func (c *Chunk) Set(x, y, z int, id block.BlockID) error {
	if !InBounds(x, y, z) {
		return outOfRange(x, y, z)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	idx := Index(x, y, z)
	old := c.blocks[idx]
	if old == id {
		return nil
	}

	switch {
	case old.IsAir():
		c.solidCount++
	case id.IsAir():
		c.solidCount--
	}
	c.blocks[idx] = id
	c.dirty = true
	return nil
}

// LocalToWorld переводит локальную координату в мировую.
// Y уже абсолютный: чанк занимает всю высоту.
func (c *Chunk) LocalToWorld(x, y, z int) vec.Vec3 {
	return vec.Vec3{
		X: c.Coords.X*ChunkWidth + x,
		Y: y,
		Z: c.Coords.Z*ChunkLength + z,
	}
}

// Origin: мировая координата локального (0,0,0)
func (c *Chunk) Origin() vec.Vec3 {
	return c.LocalToWorld(0, 0, 0)
}

// Bounds возвращает мировые границы чанка
func (c *Chunk) Bounds() Bounds {
	origin := c.Origin()
	return Bounds{
		Min: origin,
		Max: origin.Add(vec.Vec3{X: ChunkWidth, Y: ChunkHeight, Z: ChunkLength}),
	}
}

// IsDirty возвращает true, если чанк нуждается в перестроении меша
func (c *Chunk) IsDirty() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.dirty
}

// ClearDirty сбрасывает флаг после успешного перестроения меша
func (c *Chunk) ClearDirty() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dirty = false
}

// MarkDirty принудительно помечает чанк для перестроения (например,
// когда рядом появился сосед и граничные грани стали скрыты)
func (c *Chunk) MarkDirty() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dirty = true
}

// SolidCount возвращает количество непустых блоков
func (c *Chunk) SolidCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.solidCount
}

// Snapshot возвращает согласованную копию буфера блоков
func (c *Chunk) Snapshot() []block.BlockID {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]block.BlockID, len(c.blocks))
	copy(out, c.blocks)
	return out
}

// ChunkCoordOf возвращает координату чанка, содержащего мировую позицию
func ChunkCoordOf(pos vec.Vec3) vec.Vec3 {
	return vec.Vec3{
		X: vec.FloorDiv(pos.X, ChunkWidth),
		Y: 0,
		Z: vec.FloorDiv(pos.Z, ChunkLength),
	}
}

// ChunkCoordOfFloat: то же для позиции наблюдателя с плавающей точкой
func ChunkCoordOfFloat(pos vec.Vec3Float) vec.Vec3 {
	return ChunkCoordOf(pos.Floor())
}

// WorldToLocal возвращает локальную координату мировой позиции внутри её чанка
func WorldToLocal(pos vec.Vec3) vec.Vec3 {
	return vec.Vec3{
		X: vec.FloorMod(pos.X, ChunkWidth),
		Y: pos.Y,
		Z: vec.FloorMod(pos.Z, ChunkLength),
	}
}
