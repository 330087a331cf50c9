package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/annel0/voxel-world/internal/config"
	"github.com/annel0/voxel-world/internal/logging"
	"github.com/annel0/voxel-world/internal/mesh"
	"github.com/annel0/voxel-world/internal/streaming"
	"github.com/annel0/voxel-world/internal/terrain"
	"github.com/annel0/voxel-world/internal/vec"
	"github.com/annel0/voxel-world/internal/world"
)

func main() {
	var (
		configPath = flag.String("config", "", "Путь к YAML конфигурации (по умолчанию $VOXEL_CONFIG)")
		x          = flag.Float64("x", 0, "Мировая координата X наблюдателя")
		z          = flag.Float64("z", 0, "Мировая координата Z наблюдателя")
		radius     = flag.Int("radius", -1, "Радиус окна в чанках (-1: из конфигурации)")
		seed       = flag.Int64("seed", 0, "Сид шума (0: из конфигурации)")
		out        = flag.String("out", "world.obj", "Выходной файл; *.zst сжимается zstd")
		timeout    = flag.Duration("timeout", time.Minute, "Таймаут генерации")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Ошибка загрузки конфигурации: %v", err)
	}
	logging.Configure("", cfg.LogLevel())

	if *seed != 0 {
		cfg.Noise.Seed = *seed
	}
	sc := cfg.StreamingConfig()
	if *radius >= 0 {
		sc.RenderDistance = *radius
	}
	// Окно генерируется целиком за один тик
	sc.ChunksPerTick = (2*sc.RenderDistance + 1) * (2*sc.RenderDistance + 1)

	field, err := terrain.NewNoiseField(cfg.TerrainParams())
	if err != nil {
		log.Fatalf("❌ Ошибка создания поля шума: %v", err)
	}
	defer field.Close()

	atlas, err := cfg.BuildAtlas()
	if err != nil {
		log.Fatalf("❌ Некорректная конфигурация атласа: %v", err)
	}

	store := mesh.NewStore()
	manager := streaming.NewManager(sc, field, mesh.NewMesher(atlas), store)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	start := time.Now()
	if err := manager.Settle(ctx, vec.Vec3Float{X: *x, Y: 0, Z: *z}); err != nil {
		log.Fatalf("❌ Генерация не завершилась: %v", err)
	}

	faces, err := dump(*out, store)
	if err != nil {
		log.Fatalf("❌ Ошибка записи %s: %v", *out, err)
	}

	fmt.Printf("✅ %s: чанков %d, граней %d, сид %d, за %v\n",
		*out, store.Len(), faces, field.Seed(), time.Since(start).Round(time.Millisecond))
}

// dump пишет все меши хранилища в один OBJ; возвращает число граней
func dump(path string, store *mesh.Store) (int, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	var w *mesh.OBJWriter
	if strings.HasSuffix(path, ".zst") {
		if w, err = mesh.NewCompressedOBJWriter(f); err != nil {
			return 0, err
		}
	} else {
		w = mesh.NewOBJWriter(f)
	}

	faces := 0
	for _, coord := range store.Coords() {
		m, ok := store.Get(coord)
		if !ok {
			continue
		}
		origin := vec.Vec3{X: coord.X * world.ChunkWidth, Y: 0, Z: coord.Z * world.ChunkLength}
		if err := w.WriteMesh(fmt.Sprintf("chunk_%d_%d", coord.X, coord.Z), origin, m); err != nil {
			return 0, err
		}
		faces += m.FaceCount()
	}

	if err := w.Close(); err != nil {
		return 0, err
	}
	return faces, f.Close()
}
