package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/annel0/voxel-world/internal/logging"
	"github.com/annel0/voxel-world/internal/mesh"
	"github.com/annel0/voxel-world/internal/middleware"
	"github.com/annel0/voxel-world/internal/streaming"
	"github.com/annel0/voxel-world/internal/terrain"
	"github.com/annel0/voxel-world/internal/vec"
	"github.com/annel0/voxel-world/internal/world"
	"github.com/annel0/voxel-world/internal/world/block"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// DebugServer: read-only HTTP API для наблюдения за миром
type DebugServer struct {
	router     *gin.Engine
	httpServer *http.Server
	manager    *streaming.Manager
	meshes     *mesh.Store
	field      *terrain.NoiseField
	metrics    *ServerMetrics
	log        *logging.Logger
}

// Config содержит зависимости отладочного сервера
type Config struct {
	Addr     string              // адрес, например ":8090"
	Manager  *streaming.Manager  // источник состояния мира
	Meshes   *mesh.Store         // последние меши чанков
	Field    *terrain.NoiseField // для сида и параметров генерации
	Registry *prometheus.Registry
}

// GenericResponse: общий формат ответа API
type GenericResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ChunkSummary: элемент списка /api/chunks
type ChunkSummary struct {
	Coords vec.Vec3     `json:"coords"`
	Bounds world.Bounds `json:"bounds"`
}

// ChunkDetails: ответ /api/chunks/:x/:z
type ChunkDetails struct {
	streaming.ChunkInfo
	Meshed           bool           `json:"meshed"`
	Faces            int            `json:"faces"`
	FacesByDirection map[string]int `json:"faces_by_direction,omitempty"`
}

// BlockResponse: ответ /api/block
type BlockResponse struct {
	Position vec.Vec3      `json:"position"`
	Block    block.BlockID `json:"block"`
	Name     string        `json:"name"`
	Loaded   bool          `json:"loaded"`
}

// NewDebugServer создаёт отладочный сервер
func NewDebugServer(cfg Config) *DebugServer {
	if cfg.Addr == "" {
		cfg.Addr = ":8090"
	}

	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())

	router.Use(otelgin.Middleware("debug_api"))
	router.Use(middleware.NewRequestLogger(logging.GetAPILogger()).Handler())

	var reg prometheus.Registerer
	var gatherer prometheus.Gatherer
	if cfg.Registry != nil {
		reg, gatherer = cfg.Registry, cfg.Registry
	}
	promMw := middleware.NewPrometheusMiddleware("debug_api", reg)
	router.Use(promMw.Handler())
	middleware.RegisterMetricsEndpoint(router, gatherer)

	s := &DebugServer{
		router:  router,
		manager: cfg.Manager,
		meshes:  cfg.Meshes,
		field:   cfg.Field,
		metrics: NewServerMetrics(),
		log:     logging.GetAPILogger(),
	}
	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	s.setupRoutes()
	return s
}

func (s *DebugServer) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	api := s.router.Group("/api")
	{
		api.GET("/stats", s.handleStats)
		api.GET("/chunks", s.handleChunks)
		api.GET("/chunks/:x/:z", s.handleChunk)
		api.GET("/chunks/:x/:z/mesh.obj", s.handleChunkMesh)
		api.GET("/block", s.handleBlock)
	}
}

// Handler возвращает http.Handler сервера
func (s *DebugServer) Handler() http.Handler {
	return s.router
}

// Start запускает сервер и блокируется до Shutdown
func (s *DebugServer) Start() error {
	s.log.Info("🌐 Отладочный API слушает %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("отладочный API: %w", err)
	}
	return nil
}

// Shutdown корректно останавливает сервер
func (s *DebugServer) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *DebugServer) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().Unix(),
	})
}

func (s *DebugServer) handleStats(c *gin.Context) {
	stats := make(map[string]interface{})

	stats["world"] = s.manager.Stats()
	if s.meshes != nil {
		stats["meshes"] = s.meshes.Len()
	}
	if s.field != nil {
		p := s.field.Params()
		stats["terrain"] = gin.H{
			"seed":              s.field.Seed(),
			"sampler":           p.Sampler,
			"scale":             p.Scale,
			"octaves":           p.Octaves,
			"height_multiplier": p.HeightMultiplier,
		}
	}

	cpuPercent, _ := s.metrics.GetCPUUsage()
	rss, _ := s.metrics.GetRSS()
	stats["server"] = gin.H{
		"uptime":      s.metrics.GetUptime(),
		"rss_mb":      fmt.Sprintf("%.2f", rss),
		"cpu_percent": fmt.Sprintf("%.2f", cpuPercent),
		"server_time": time.Now().Unix(),
	}
	stats["memory_details"] = s.metrics.GetDetailedMemoryStats()

	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Статистика получена",
		Data:    stats,
	})
}

func (s *DebugServer) handleChunks(c *gin.Context) {
	coords := s.manager.ActiveCoords()
	chunks := make([]ChunkSummary, 0, len(coords))
	for _, coord := range coords {
		// Чанк мог выгрузиться между запросами
		if bounds, ok := s.manager.ChunkBounds(coord); ok {
			chunks = append(chunks, ChunkSummary{Coords: coord, Bounds: bounds})
		}
	}

	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Список чанков получен",
		Data: gin.H{
			"chunks": chunks,
			"total":  len(chunks),
		},
	})
}

// chunkCoordParam разбирает :x и :z; при ошибке отвечает 400
func chunkCoordParam(c *gin.Context) (vec.Vec3, bool) {
	x, errX := strconv.Atoi(c.Param("x"))
	z, errZ := strconv.Atoi(c.Param("z"))
	if errX != nil || errZ != nil {
		c.JSON(http.StatusBadRequest, GenericResponse{
			Success: false,
			Message: "Координаты чанка должны быть целыми числами",
		})
		return vec.Vec3{}, false
	}
	return vec.Vec3{X: x, Y: 0, Z: z}, true
}

func notLoaded(c *gin.Context, coord vec.Vec3) {
	c.JSON(http.StatusNotFound, GenericResponse{
		Success: false,
		Message: fmt.Sprintf("Чанк %s не загружен", coord),
	})
}

func (s *DebugServer) handleChunk(c *gin.Context) {
	coord, ok := chunkCoordParam(c)
	if !ok {
		return
	}

	info, ok := s.manager.ChunkInfo(coord)
	if !ok {
		notLoaded(c, coord)
		return
	}

	details := ChunkDetails{ChunkInfo: info}
	if s.meshes != nil {
		if m, ok := s.meshes.Get(coord); ok {
			details.Meshed = true
			details.Faces = m.FaceCount()
			details.FacesByDirection = make(map[string]int, block.FaceCount)
			for face, n := range m.FacesByDirection() {
				details.FacesByDirection[block.Face(face).String()] = n
			}
		}
	}

	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Чанк найден",
		Data:    details,
	})
}

func (s *DebugServer) handleChunkMesh(c *gin.Context) {
	coord, ok := chunkCoordParam(c)
	if !ok {
		return
	}

	info, loaded := s.manager.ChunkInfo(coord)
	var m *mesh.VoxelMesh
	if loaded && s.meshes != nil {
		m, loaded = s.meshes.Get(coord)
	}

	// Без хранилища мешей отдавать нечего
	if !loaded || m == nil {
		notLoaded(c, coord)
		return
	}

	name := fmt.Sprintf("chunk_%d_%d", coord.X, coord.Z)
	compress := c.Query("compress")

	var w *mesh.OBJWriter
	switch compress {
	case "":
		c.Header("Content-Type", "text/plain; charset=utf-8")
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.obj", name))
		w = mesh.NewOBJWriter(c.Writer)
	case "zstd":
		c.Header("Content-Type", "application/zstd")
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.obj.zst", name))
		var err error
		if w, err = mesh.NewCompressedOBJWriter(c.Writer); err != nil {
			c.JSON(http.StatusInternalServerError, GenericResponse{Success: false, Message: err.Error()})
			return
		}
	default:
		c.JSON(http.StatusBadRequest, GenericResponse{
			Success: false,
			Message: fmt.Sprintf("Неизвестное сжатие %q, поддерживается только zstd", compress),
		})
		return
	}

	c.Status(http.StatusOK)
	if err := w.WriteMesh(name, info.Bounds.Min, m); err != nil {
		s.log.Warn("Ошибка записи OBJ %s: %v", name, err)
		return
	}
	if err := w.Close(); err != nil {
		s.log.Warn("Ошибка завершения OBJ %s: %v", name, err)
	}
}

func (s *DebugServer) handleBlock(c *gin.Context) {
	var pos vec.Vec3
	for _, p := range []struct {
		name string
		dst  *int
	}{{"x", &pos.X}, {"y", &pos.Y}, {"z", &pos.Z}} {
		v, err := strconv.Atoi(c.Query(p.name))
		if err != nil {
			c.JSON(http.StatusBadRequest, GenericResponse{
				Success: false,
				Message: fmt.Sprintf("Параметр %s обязателен и должен быть целым числом", p.name),
			})
			return
		}
		*p.dst = v
	}

	id := s.manager.BlockAt(pos)
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Блок получен",
		Data: BlockResponse{
			Position: pos,
			Block:    id,
			Name:     id.String(),
			Loaded:   s.manager.IsLoaded(world.ChunkCoordOf(pos)),
		},
	})
}
