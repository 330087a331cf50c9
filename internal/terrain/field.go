package terrain

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/annel0/voxel-world/internal/logging"
	"github.com/annel0/voxel-world/internal/util"
	"github.com/annel0/voxel-world/internal/world"
	"github.com/annel0/voxel-world/internal/world/block"
	"github.com/dgraph-io/ristretto"
)

// Params: свободные параметры генерации ландшафта
type Params struct {
	Seed             int64   // 0: случайный сид, выбирается один раз при создании
	Scale            float64 // Масштаб шума
	Octaves          int     // Количество октав
	Persistence      float64 // Затухание амплитуды на октаву
	Lacunarity       float64 // Рост частоты на октаву
	HeightMultiplier float64 // Максимальная высота поверхности
	GroundDepth      int     // Толщина слоя земли под травой
	StoneDepth       int     // Толщина слоя камня под землёй
	Sampler          string  // "value" или "perlin"
	HeightCacheSize  int64   // Размер кэша высот колонн, 0 — без кэша
}

// DefaultParams возвращает параметры по умолчанию
func DefaultParams() Params {
	return Params{
		Scale:            50,
		Octaves:          4,
		Persistence:      0.5,
		Lacunarity:       2,
		HeightMultiplier: 64,
		GroundDepth:      4,
		StoneDepth:       8,
		Sampler:          util.SamplerValue,
	}
}

// NoiseField: детерминированная функция высоты и типа блока от мировых координат.
// Вырожденные параметры (нулевой масштаб и т.п.) остаются на совести вызывающего.
type NoiseField struct {
	params  Params
	seed    int64
	sampler util.Sampler
	heights *ristretto.Cache
	log     *logging.Logger
}

// NewNoiseField создаёт поле шума. Ошибка возможна только при создании кэша высот.
func NewNoiseField(params Params) (*NoiseField, error) {
	log := logging.GetTerrainLogger()

	seed := params.Seed
	if seed == 0 {
		seed = randomSeed()
		log.Info("Сид не задан, выбран случайный: %d", seed)
	}

	f := &NoiseField{
		params:  params,
		seed:    seed,
		sampler: util.NewSampler(params.Sampler, seed),
		log:     log,
	}

	if params.HeightCacheSize > 0 {
		cache, err := ristretto.NewCache(&ristretto.Config{
			NumCounters: params.HeightCacheSize * 10,
			MaxCost:     params.HeightCacheSize,
			BufferItems: 64,
		})
		if err != nil {
			return nil, fmt.Errorf("не удалось создать кэш высот: %w", err)
		}
		f.heights = cache
	}

	return f, nil
}

// randomSeed выбирает ненулевой сид в диапазоне int32
func randomSeed() int64 {
	for {
		if s := int64(rand.Int32()); s != 0 {
			return s
		}
	}
}

// Seed возвращает действующий сид (после подстановки случайного)
func (f *NoiseField) Seed() int64 {
	return f.seed
}

// Params возвращает параметры поля
func (f *NoiseField) Params() Params {
	return f.params
}

// Close освобождает кэш высот
func (f *NoiseField) Close() {
	if f.heights != nil {
		f.heights.Close()
	}
}

func columnKey(x, z int) uint64 {
	return uint64(uint32(int32(x)))<<32 | uint64(uint32(int32(z)))
}

// HeightAt возвращает высоту поверхности в колонне (x, z), от 0 до HeightMultiplier
func (f *NoiseField) HeightAt(worldX, worldZ int) int {
	if f.heights == nil {
		return f.computeHeight(worldX, worldZ)
	}

	key := columnKey(worldX, worldZ)
	if v, ok := f.heights.Get(key); ok {
		return v.(int)
	}
	h := f.computeHeight(worldX, worldZ)
	f.heights.Set(key, h, 1)
	return h
}

func (f *NoiseField) computeHeight(worldX, worldZ int) int {
	amplitude := 1.0
	frequency := 1.0
	noiseHeight := 0.0
	maxHeight := 0.0

	ox := float64(worldX) + float64(f.seed)
	oz := float64(worldZ) + float64(f.seed)

	for i := 0; i < f.params.Octaves; i++ {
		sampleX := ox / f.params.Scale * frequency
		sampleZ := oz / f.params.Scale * frequency

		v := f.sampler.Sample(sampleX, sampleZ)*2 - 1
		noiseHeight += v * amplitude

		maxHeight += amplitude
		amplitude *= f.params.Persistence
		frequency *= f.params.Lacunarity
	}

	if maxHeight == 0 {
		return 0
	}

	fraction := util.Clamp01(noiseHeight / maxHeight)
	return int(math.Floor(fraction * f.params.HeightMultiplier))
}

// BlockTypeAt возвращает тип блока в мировой позиции
func (f *NoiseField) BlockTypeAt(worldX, worldY, worldZ int) block.BlockID {
	return Classify(worldY, f.HeightAt(worldX, worldZ), f.params.GroundDepth, f.params.StoneDepth)
}

// Classify определяет блок по высоте y относительно поверхности:
// выше — воздух, на поверхности — трава, затем земля, камень и бедрок.
func Classify(y, surface, groundDepth, stoneDepth int) block.BlockID {
	switch {
	case y > surface:
		return block.AirBlockID
	case y == surface:
		return block.GrassBlockID
	case y > surface-groundDepth:
		return block.DirtBlockID
	case y > surface-groundDepth-stoneDepth:
		return block.StoneBlockID
	default:
		return block.BedrockBlockID
	}
}

// PopulateChunk заполняет каждую клетку чанка. Высота считается один раз на колонну.
func (f *NoiseField) PopulateChunk(c *world.Chunk) error {
	for x := 0; x < world.ChunkWidth; x++ {
		for z := 0; z < world.ChunkLength; z++ {
			column := c.LocalToWorld(x, 0, z)
			surface := f.HeightAt(column.X, column.Z)

			for y := 0; y < world.ChunkHeight; y++ {
				id := Classify(y, surface, f.params.GroundDepth, f.params.StoneDepth)
				if err := c.Set(x, y, z, id); err != nil {
					return fmt.Errorf("заполнение чанка %v: %w", c.Coords, err)
				}
			}
		}
	}
	return nil
}
