package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/annel0/voxel-world/internal/api"
	"github.com/annel0/voxel-world/internal/config"
	"github.com/annel0/voxel-world/internal/logging"
	"github.com/annel0/voxel-world/internal/mesh"
	"github.com/annel0/voxel-world/internal/observability"
	"github.com/annel0/voxel-world/internal/streaming"
	"github.com/annel0/voxel-world/internal/terrain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"
)

func main() {
	configPath := flag.String("config", "", "Путь к YAML конфигурации (по умолчанию $VOXEL_CONFIG)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Ошибка загрузки конфигурации: %v", err)
	}

	logging.Configure(cfg.Logging.Dir, cfg.LogLevel())
	if err := logging.InitDefaultLogger("server"); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.CloseDefaultLogger()
	defer logging.GetLoggerManager().CloseAll()

	if err := run(cfg); err != nil {
		logging.Error("❌ Сервер завершился с ошибкой: %v", err)
		os.Exit(1)
	}
	logging.Info("👋 Сервер успешно остановлен")
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logging.Info("🌍 Запуск voxel-world: радиус %d, %d чанк(ов) за тик, сэмплер %s",
		cfg.World.GetRenderDistance(), cfg.World.ChunksPerTick, cfg.Noise.Sampler)

	shutdownTelemetry, err := observability.InitTelemetry(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.Enabled)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			logging.Warn("Ошибка остановки OpenTelemetry: %v", err)
		}
	}()

	// === ИНИЦИАЛИЗАЦИЯ КОМПОНЕНТОВ ===
	field, err := terrain.NewNoiseField(cfg.TerrainParams())
	if err != nil {
		return err
	}
	defer field.Close()
	logging.Info("🌱 Сид мира: %d", field.Seed())

	atlas, err := cfg.BuildAtlas()
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	mesher := mesh.NewMesher(atlas, mesh.WithMetrics(mesh.NewMetrics(registry)))
	store := mesh.NewStore()
	manager := streaming.NewManager(cfg.StreamingConfig(), field, mesher, store,
		streaming.WithMetrics(streaming.NewMetrics(registry)))
	defer manager.Close()

	observer := streaming.NewCirclePath(cfg.ObserverCenter(), cfg.Observer.Radius, cfg.Observer.Speed)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return manager.Run(gctx, observer, cfg.World.TickInterval())
	})

	if cfg.Server.EnableDebugAPI {
		server := api.NewDebugServer(api.Config{
			Addr:     cfg.Server.GetDebugAddr(),
			Manager:  manager,
			Meshes:   store,
			Field:    field,
			Registry: registry,
		})

		g.Go(server.Start)
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		})

		logging.Info("   ❤️  Health check: http://%s/health", cfg.Server.GetDebugAddr())
	}

	logging.Info("✅ Все сервисы запущены")

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logging.Info("📡 Получен сигнал завершения, остановка...")
	return nil
}
