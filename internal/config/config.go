package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/annel0/voxel-world/internal/logging"
	"github.com/annel0/voxel-world/internal/streaming"
	"github.com/annel0/voxel-world/internal/terrain"
	"github.com/annel0/voxel-world/internal/util"
	"github.com/annel0/voxel-world/internal/vec"
	"github.com/annel0/voxel-world/internal/world/block"
	"gopkg.in/yaml.v3"
)

// Config корневая структура конфигурации.
// Отсутствующие в YAML поля сохраняют значения из Default().
type Config struct {
	World     WorldConfig     `yaml:"world"`
	Noise     NoiseConfig     `yaml:"noise"`
	Terrain   TerrainConfig   `yaml:"terrain"`
	Mesher    MesherConfig    `yaml:"mesher"`
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Observer  ObserverConfig  `yaml:"observer"`
}

type WorldConfig struct {
	RenderDistance int `yaml:"render_distance"` // 0: взять из env или 8
	ChunksPerTick  int `yaml:"chunks_per_tick"`
	TickIntervalMS int `yaml:"tick_interval_ms"`
}

type NoiseConfig struct {
	Seed             int64   `yaml:"seed"` // 0: из env VOXEL_SEED, иначе случайный
	Scale            float64 `yaml:"scale"`
	Octaves          int     `yaml:"octaves"`
	Persistence      float64 `yaml:"persistence"`
	Lacunarity       float64 `yaml:"lacunarity"`
	HeightMultiplier float64 `yaml:"height_multiplier"`
	Sampler          string  `yaml:"sampler"`
	HeightCacheSize  int64   `yaml:"height_cache_size"`
}

type TerrainConfig struct {
	GroundDepth int `yaml:"ground_depth"`
	StoneDepth  int `yaml:"stone_depth"`
}

// MesherConfig описывает атлас и политику граней на краях чанка.
// Tiles: имя блока -> грань (up/down/north/south/east/west/side) -> [px, py].
type MesherConfig struct {
	TileSize         []int                       `yaml:"tile_size"`
	AtlasSize        []int                       `yaml:"atlas_size"`
	CullChunkBorders bool                        `yaml:"cull_chunk_borders"`
	Tiles            map[string]map[string][]int `yaml:"tiles"`
}

type ServerConfig struct {
	DebugAddr      string `yaml:"debug_addr"`
	EnableDebugAPI bool   `yaml:"enable_debug_api"`
}

type LoggingConfig struct {
	Dir   string `yaml:"dir"`
	Level string `yaml:"level"`
}

type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name"`
}

// ObserverConfig задаёт круговой маршрут наблюдателя для сервера
type ObserverConfig struct {
	CenterX float64 `yaml:"center_x"`
	CenterZ float64 `yaml:"center_z"`
	Height  float64 `yaml:"height"`
	Radius  float64 `yaml:"radius"`
	Speed   float64 `yaml:"speed"`
}

// Default возвращает конфигурацию по умолчанию
func Default() *Config {
	params := terrain.DefaultParams()
	return &Config{
		World: WorldConfig{
			ChunksPerTick:  1,
			TickIntervalMS: 50,
		},
		Noise: NoiseConfig{
			Scale:            params.Scale,
			Octaves:          params.Octaves,
			Persistence:      params.Persistence,
			Lacunarity:       params.Lacunarity,
			HeightMultiplier: params.HeightMultiplier,
			Sampler:          params.Sampler,
		},
		Terrain: TerrainConfig{
			GroundDepth: params.GroundDepth,
			StoneDepth:  params.StoneDepth,
		},
		Mesher: MesherConfig{
			TileSize:  []int{16, 16},
			AtlasSize: []int{256, 256},
		},
		Server: ServerConfig{
			EnableDebugAPI: true,
		},
		Logging: LoggingConfig{
			Level: "INFO",
		},
		Telemetry: TelemetryConfig{
			ServiceName: "voxel-world",
		},
		Observer: ObserverConfig{
			Height: 80,
			Radius: 96,
			Speed:  8,
		},
	}
}

// Load читает YAML файл конфигурации поверх Default().
// Если path == "", используется ENV VOXEL_CONFIG; если и он пуст — только дефолты.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("VOXEL_CONFIG")
		if path == "" {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("чтение конфигурации %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("разбор конфигурации %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("конфигурация %s: %w", path, err)
	}
	return cfg, nil
}

// Validate проверяет значения, без которых мир не построить.
// Вырожденные параметры шума (нулевой масштаб) не проверяются.
func (c *Config) Validate() error {
	if c.World.RenderDistance < 0 {
		return fmt.Errorf("world.render_distance не может быть отрицательным: %d", c.World.RenderDistance)
	}
	if c.World.ChunksPerTick < 1 {
		return fmt.Errorf("world.chunks_per_tick должен быть >= 1: %d", c.World.ChunksPerTick)
	}
	if c.Noise.Octaves < 1 {
		return fmt.Errorf("noise.octaves должен быть >= 1: %d", c.Noise.Octaves)
	}
	if c.Noise.Sampler != util.SamplerValue && c.Noise.Sampler != util.SamplerPerlin {
		return fmt.Errorf("неизвестный noise.sampler: %q", c.Noise.Sampler)
	}
	if err := checkPair("mesher.tile_size", c.Mesher.TileSize); err != nil {
		return err
	}
	if err := checkPair("mesher.atlas_size", c.Mesher.AtlasSize); err != nil {
		return err
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	return nil
}

func checkPair(name string, v []int) error {
	if len(v) != 2 || v[0] <= 0 || v[1] <= 0 {
		return fmt.Errorf("%s должен быть парой положительных чисел: %v", name, v)
	}
	return nil
}

// GetRenderDistance возвращает радиус окна с приоритетом: config -> env -> default
func (w *WorldConfig) GetRenderDistance() int {
	return getIntWithEnvFallback(w.RenderDistance, "VOXEL_RENDER_DISTANCE", 8)
}

// TickInterval возвращает период тика драйвера
func (w *WorldConfig) TickInterval() time.Duration {
	if w.TickIntervalMS <= 0 {
		return 50 * time.Millisecond
	}
	return time.Duration(w.TickIntervalMS) * time.Millisecond
}

// GetSeed возвращает сид с приоритетом: config -> env -> 0 (случайный)
func (n *NoiseConfig) GetSeed() int64 {
	if n.Seed != 0 {
		return n.Seed
	}
	if envVal := os.Getenv("VOXEL_SEED"); envVal != "" {
		if seed, err := strconv.ParseInt(envVal, 10, 64); err == nil {
			return seed
		}
	}
	return 0
}

// GetDebugAddr возвращает адрес отладочного API с приоритетом: config -> env -> default
func (s *ServerConfig) GetDebugAddr() string {
	if s.DebugAddr != "" {
		return s.DebugAddr
	}
	if envVal := os.Getenv("VOXEL_DEBUG_ADDR"); envVal != "" {
		return envVal
	}
	return ":8090"
}

// getIntWithEnvFallback возвращает значение с приоритетом: config -> env -> default
func getIntWithEnvFallback(configValue int, envVar string, defaultValue int) int {
	// Если значение задано в конфиге и больше 0, используем его
	if configValue > 0 {
		return configValue
	}

	if envVal := os.Getenv(envVar); envVal != "" {
		if v, err := strconv.Atoi(envVal); err == nil && v >= 0 {
			return v
		}
	}

	return defaultValue
}

// TerrainParams собирает параметры поля шума
func (c *Config) TerrainParams() terrain.Params {
	return terrain.Params{
		Seed:             c.Noise.GetSeed(),
		Scale:            c.Noise.Scale,
		Octaves:          c.Noise.Octaves,
		Persistence:      c.Noise.Persistence,
		Lacunarity:       c.Noise.Lacunarity,
		HeightMultiplier: c.Noise.HeightMultiplier,
		GroundDepth:      c.Terrain.GroundDepth,
		StoneDepth:       c.Terrain.StoneDepth,
		Sampler:          c.Noise.Sampler,
		HeightCacheSize:  c.Noise.HeightCacheSize,
	}
}

// StreamingConfig собирает параметры окна загрузки
func (c *Config) StreamingConfig() streaming.Config {
	return streaming.Config{
		RenderDistance:   c.World.GetRenderDistance(),
		ChunksPerTick:    c.World.ChunksPerTick,
		CullChunkBorders: c.Mesher.CullChunkBorders,
	}
}

// LogLevel возвращает уровень логирования
func (c *Config) LogLevel() logging.LogLevel {
	level, err := logging.ParseLevel(c.Logging.Level)
	if err != nil {
		return logging.INFO
	}
	return level
}

// ObserverCenter возвращает центр кругового маршрута
func (c *Config) ObserverCenter() vec.Vec3Float {
	return vec.Vec3Float{X: c.Observer.CenterX, Y: c.Observer.Height, Z: c.Observer.CenterZ}
}

// BuildAtlas создаёт атлас с переопределениями плиток из mesher.tiles.
// Грань "side" задаёт все четыре боковые грани; конкретная грань
// имеет приоритет над "side".
func (c *Config) BuildAtlas() (*block.Atlas, error) {
	if err := checkPair("mesher.tile_size", c.Mesher.TileSize); err != nil {
		return nil, err
	}
	if err := checkPair("mesher.atlas_size", c.Mesher.AtlasSize); err != nil {
		return nil, err
	}

	atlas := block.NewAtlas(c.Mesher.TileSize[0], c.Mesher.TileSize[1], c.Mesher.AtlasSize[0], c.Mesher.AtlasSize[1])

	for name, faces := range c.Mesher.Tiles {
		id, ok := block.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("mesher.tiles: неизвестный блок %q", name)
		}

		if px, ok := faces["side"]; ok {
			tile, err := parseTile(name, "side", px)
			if err != nil {
				return nil, err
			}
			for _, f := range []block.Face{block.FaceNorth, block.FaceSouth, block.FaceEast, block.FaceWest} {
				atlas.SetTile(id, f, tile)
			}
		}

		for faceName, px := range faces {
			if faceName == "side" {
				continue
			}
			face, ok := block.ParseFace(faceName)
			if !ok {
				return nil, fmt.Errorf("mesher.tiles.%s: неизвестная грань %q", name, faceName)
			}
			tile, err := parseTile(name, faceName, px)
			if err != nil {
				return nil, err
			}
			atlas.SetTile(id, face, tile)
		}
	}
	return atlas, nil
}

func parseTile(blockName, face string, px []int) (block.Tile, error) {
	if len(px) != 2 || px[0] < 0 || px[1] < 0 {
		return block.Tile{}, fmt.Errorf("mesher.tiles.%s.%s: ожидается [px, py], получено %v", blockName, face, px)
	}
	return block.Tile{X: px[0], Y: px[1]}, nil
}
