package streaming

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/annel0/voxel-world/internal/logging"
	"github.com/annel0/voxel-world/internal/mesh"
	"github.com/annel0/voxel-world/internal/terrain"
	"github.com/annel0/voxel-world/internal/vec"
	"github.com/annel0/voxel-world/internal/world"
	"github.com/annel0/voxel-world/internal/world/block"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/annel0/voxel-world/internal/streaming"

// ErrChunkNotLoaded возвращается при записи блока в незагруженный чанк
var ErrChunkNotLoaded = errors.New("чанк не загружен")

// MeshSink принимает готовые меши (рендер, коллизии, экспорт)
type MeshSink interface {
	Apply(coord vec.Vec3, m *mesh.VoxelMesh)
	Release(coord vec.Vec3)
}

type discardSink struct{}

func (discardSink) Apply(vec.Vec3, *mesh.VoxelMesh) {}
func (discardSink) Release(vec.Vec3)                {}

// Config: параметры окна загрузки
type Config struct {
	RenderDistance   int  // Радиус окна в чанках (Чебышёв, включительно)
	ChunksPerTick    int  // Сколько чанков создаётся за один Tick
	CullChunkBorders bool // Учитывать соседние чанки при отсечении граней
}

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig() Config {
	return Config{
		RenderDistance: 8,
		ChunksPerTick:  1,
	}
}

// Option настраивает Manager
type Option func(*Manager)

// WithMetrics подключает Prometheus-метрики
func WithMetrics(metrics *Metrics) Option {
	return func(m *Manager) {
		m.metrics = metrics
	}
}

// WithTracer заменяет глобальный трейсер OpenTelemetry
func WithTracer(tracer trace.Tracer) Option {
	return func(m *Manager) {
		m.tracer = tracer
	}
}

// Stats: снимок состояния менеджера для отладочных запросов
type Stats struct {
	Center           vec.Vec3 `json:"center"`
	HasCenter        bool     `json:"has_center"`
	RenderDistance   int      `json:"render_distance"`
	ActiveChunks     int      `json:"active_chunks"`
	Reconciling      bool     `json:"reconciling"`
	PendingReconcile bool     `json:"pending_reconcile"`
	PassID           string   `json:"pass_id,omitempty"`
	PassProgress     int      `json:"pass_progress"`
	PassDesired      int      `json:"pass_desired"`
	Ticks            uint64   `json:"ticks"`
	Passes           uint64   `json:"passes"`
	ChunksLoaded     uint64   `json:"chunks_loaded"`
	ChunksUnloaded   uint64   `json:"chunks_unloaded"`
	Remeshes         uint64   `json:"remeshes"`
}

// ChunkInfo: сведения об одном загруженном чанке
type ChunkInfo struct {
	Coords     vec.Vec3     `json:"coords"`
	Bounds     world.Bounds `json:"bounds"`
	SolidCount int          `json:"solid_count"`
	Dirty      bool         `json:"dirty"`
}

// reconcile: один проход приведения активного набора к окну вокруг center
type reconcile struct {
	id      string
	center  vec.Vec3
	desired []vec.Vec3
	wanted  map[vec.Vec3]struct{}
	next    int
	created int
	started time.Time
	span    trace.Span
}

// Manager держит скользящее окно чанков вокруг наблюдателя.
//
// Все изменения происходят внутри Tick в потоке драйвера. Чтение
// (BlockAt, ActiveCoords, Stats и т.д.) безопасно из других горутин.
type Manager struct {
	cfg     Config
	field   *terrain.NoiseField
	mesher  *mesh.Mesher
	sink    MeshSink
	metrics *Metrics
	tracer  trace.Tracer
	log     *logging.Logger

	mu     sync.RWMutex
	active map[vec.Vec3]*world.Chunk
	stats  Stats

	// Состояние драйвера, трогается только из Tick
	center    vec.Vec3
	hasCenter bool
	job       *reconcile
	pending   *vec.Vec3
	totals    Stats
}

// NewManager создаёт менеджер. sink может быть nil, тогда меши отбрасываются.
// При cfg.CullChunkBorders менеджер сам становится источником соседей для мешера.
func NewManager(cfg Config, field *terrain.NoiseField, mesher *mesh.Mesher, sink MeshSink, opts ...Option) *Manager {
	if cfg.RenderDistance < 0 {
		cfg.RenderDistance = 0
	}
	if cfg.ChunksPerTick <= 0 {
		cfg.ChunksPerTick = 1
	}
	if sink == nil {
		sink = discardSink{}
	}

	m := &Manager{
		cfg:    cfg,
		field:  field,
		mesher: mesher,
		sink:   sink,
		tracer: otel.Tracer(tracerName),
		log:    logging.GetStreamingLogger(),
		active: make(map[vec.Vec3]*world.Chunk),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.metrics == nil {
		m.metrics = NewMetrics(nil)
	}
	if cfg.CullChunkBorders {
		mesher.SetNeighborLookup(m)
	}

	m.stats.RenderDistance = cfg.RenderDistance
	return m
}

// Config возвращает действующую конфигурацию
func (m *Manager) Config() Config {
	return m.cfg
}

// DesiredWindow возвращает координаты квадратного окна радиуса r вокруг
// center: x снаружи, z внутри.
func DesiredWindow(center vec.Vec3, r int) []vec.Vec3 {
	if r < 0 {
		return nil
	}
	side := 2*r + 1
	out := make([]vec.Vec3, 0, side*side)
	for x := center.X - r; x <= center.X+r; x++ {
		for z := center.Z - r; z <= center.Z+r; z++ {
			out = append(out, vec.Vec3{X: x, Y: 0, Z: z})
		}
	}
	return out
}

// Tick продвигает менеджер на один шаг: фиксирует чанк наблюдателя,
// создаёт не более ChunksPerTick недостающих чанков и перестраивает
// меши грязных чанков.
func (m *Manager) Tick(observer vec.Vec3Float) {
	coord := world.ChunkCoordOfFloat(observer)
	if !m.hasCenter || coord != m.center {
		m.center = coord
		m.hasCenter = true
		m.schedule(coord)
	}

	created := make(map[vec.Vec3]struct{})
	if m.job != nil {
		m.advance(created)
	}
	m.remeshDirty(created)

	m.totals.Ticks++
	m.publishStats()
}

// schedule запускает реконсиляцию или откладывает её, если проход уже идёт.
// Из отложенных центров сохраняется только последний.
func (m *Manager) schedule(center vec.Vec3) {
	if m.job == nil {
		m.startReconcile(center)
		return
	}

	if center == m.job.center {
		m.pending = nil
	} else {
		next := center
		m.pending = &next
		m.log.Debug("⏸️ Центр %s отложен до завершения прохода %s", center, shortID(m.job.id))
	}
	m.metrics.setPending(m.pending != nil)
}

func (m *Manager) startReconcile(center vec.Vec3) {
	desired := DesiredWindow(center, m.cfg.RenderDistance)
	wanted := make(map[vec.Vec3]struct{}, len(desired))
	for _, c := range desired {
		wanted[c] = struct{}{}
	}

	id := uuid.NewString()
	_, span := m.tracer.Start(context.Background(), "streaming.reconcile", trace.WithAttributes(
		attribute.String("pass.id", id),
		attribute.String("center", center.String()),
		attribute.Int("desired", len(desired)),
	))

	m.job = &reconcile{
		id:      id,
		center:  center,
		desired: desired,
		wanted:  wanted,
		started: time.Now(),
		span:    span,
	}
	m.log.Debug("🔄 Проход %s: центр %s, окно %d чанков", shortID(id), center, len(desired))
}

// advance создаёт недостающие чанки текущего прохода в пределах бюджета тика.
// Уже загруженные координаты бюджет не расходуют.
func (m *Manager) advance(created map[vec.Vec3]struct{}) {
	job := m.job
	budget := m.cfg.ChunksPerTick

	for budget > 0 && job.next < len(job.desired) {
		coord := job.desired[job.next]
		job.next++

		if m.IsLoaded(coord) {
			continue
		}
		if err := m.loadChunk(coord); err != nil {
			m.log.Error("❌ Не удалось загрузить чанк %s: %v", coord, err)
			job.span.RecordError(err)
			continue
		}
		created[coord] = struct{}{}
		job.created++
		budget--
	}

	if job.next >= len(job.desired) {
		m.finishReconcile()
	}
}

// loadChunk создаёт, заполняет, вставляет и мешит один чанк
func (m *Manager) loadChunk(coord vec.Vec3) error {
	c := world.NewChunk(coord)
	if err := m.field.PopulateChunk(c); err != nil {
		return err
	}

	m.mu.Lock()
	m.active[coord] = c
	m.mu.Unlock()

	if m.mesher.CullsChunkBorders() {
		m.markNeighborsDirty(coord)
	}

	vm := m.mesher.Generate(c)
	c.ClearDirty()
	m.sink.Apply(coord, vm)

	m.metrics.chunksLoaded.Inc()
	m.metrics.activeChunks.Inc()
	m.totals.ChunksLoaded++
	logging.LogChunkLoaded(m.log, coord.X, coord.Z, c.SolidCount(), vm.FaceCount())
	return nil
}

// finishReconcile удаляет всё, что не попало в снимок окна, и запускает
// отложенный проход, если он есть
func (m *Manager) finishReconcile() {
	job := m.job

	var removed []vec.Vec3
	m.mu.Lock()
	for coord := range m.active {
		if _, ok := job.wanted[coord]; !ok {
			removed = append(removed, coord)
		}
	}
	for _, coord := range removed {
		delete(m.active, coord)
	}
	m.mu.Unlock()

	sortCoords(removed)
	for _, coord := range removed {
		m.sink.Release(coord)
		m.metrics.chunksUnloaded.Inc()
		m.metrics.activeChunks.Dec()
		m.totals.ChunksUnloaded++
		logging.LogChunkUnloaded(m.log, coord.X, coord.Z)

		if m.mesher.CullsChunkBorders() {
			m.markNeighborsDirty(coord)
		}
	}

	elapsed := time.Since(job.started)
	m.metrics.reconciles.Inc()
	m.metrics.reconcileDuration.Observe(elapsed.Seconds())
	job.span.SetAttributes(
		attribute.Int("created", job.created),
		attribute.Int("removed", len(removed)),
	)
	job.span.End()

	m.log.Info("✅ Проход %s завершён: центр %s, создано %d, выгружено %d за %v",
		shortID(job.id), job.center, job.created, len(removed), elapsed)

	m.job = nil
	m.totals.Passes++

	if m.pending != nil {
		next := *m.pending
		m.pending = nil
		m.metrics.setPending(false)
		m.startReconcile(next)
	}
}

// remeshDirty перестраивает меши грязных чанков, кроме созданных в этом тике
func (m *Manager) remeshDirty(created map[vec.Vec3]struct{}) {
	m.mu.RLock()
	var dirty []*world.Chunk
	for coord, c := range m.active {
		if _, fresh := created[coord]; fresh {
			continue
		}
		if c.IsDirty() {
			dirty = append(dirty, c)
		}
	}
	m.mu.RUnlock()

	sort.Slice(dirty, func(i, j int) bool {
		return coordLess(dirty[i].Coords, dirty[j].Coords)
	})

	for _, c := range dirty {
		vm := m.mesher.Generate(c)
		c.ClearDirty()
		m.sink.Apply(c.Coords, vm)
		m.metrics.remeshes.Inc()
		m.totals.Remeshes++
	}
}

var horizontalFaces = []block.Face{block.FaceNorth, block.FaceSouth, block.FaceEast, block.FaceWest}

func (m *Manager) markNeighborsDirty(coord vec.Vec3) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, face := range horizontalFaces {
		if c, ok := m.active[coord.Add(face.Offset())]; ok {
			c.MarkDirty()
		}
	}
}

func (m *Manager) publishStats() {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.totals
	s.Center = m.center
	s.HasCenter = m.hasCenter
	s.RenderDistance = m.cfg.RenderDistance
	s.ActiveChunks = len(m.active)
	s.PendingReconcile = m.pending != nil
	if m.job != nil {
		s.Reconciling = true
		s.PassID = m.job.id
		s.PassProgress = m.job.next
		s.PassDesired = len(m.job.desired)
	}
	m.stats = s
}

// BlockAt возвращает блок по мировой координате. Для незагруженных чанков
// и координат вне мира — воздух.
func (m *Manager) BlockAt(pos vec.Vec3) block.BlockID {
	if pos.Y < 0 || pos.Y >= world.ChunkHeight {
		return block.AirBlockID
	}

	m.mu.RLock()
	c, ok := m.active[world.ChunkCoordOf(pos)]
	m.mu.RUnlock()
	if !ok {
		return block.AirBlockID
	}

	local := world.WorldToLocal(pos)
	id, err := c.Get(local.X, local.Y, local.Z)
	if err != nil {
		return block.AirBlockID
	}
	return id
}

// SetBlockAt меняет блок в загруженном чанке. Меш перестроится на следующем Tick.
// Вызывается из потока драйвера.
func (m *Manager) SetBlockAt(pos vec.Vec3, id block.BlockID) error {
	coord := world.ChunkCoordOf(pos)

	m.mu.RLock()
	c, ok := m.active[coord]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrChunkNotLoaded, coord)
	}

	local := world.WorldToLocal(pos)
	before, err := c.Get(local.X, local.Y, local.Z)
	if err != nil {
		return err
	}
	if err := c.Set(local.X, local.Y, local.Z, id); err != nil {
		return err
	}

	// Блок на краю чанка виден соседу
	if before != id && m.mesher.CullsChunkBorders() {
		m.mu.RLock()
		for _, n := range borderNeighbors(coord, local) {
			if nc, ok := m.active[n]; ok {
				nc.MarkDirty()
			}
		}
		m.mu.RUnlock()
	}
	return nil
}

func borderNeighbors(coord, local vec.Vec3) []vec.Vec3 {
	var out []vec.Vec3
	if local.X == 0 {
		out = append(out, coord.Add(block.FaceWest.Offset()))
	}
	if local.X == world.ChunkWidth-1 {
		out = append(out, coord.Add(block.FaceEast.Offset()))
	}
	if local.Z == 0 {
		out = append(out, coord.Add(block.FaceSouth.Offset()))
	}
	if local.Z == world.ChunkLength-1 {
		out = append(out, coord.Add(block.FaceNorth.Offset()))
	}
	return out
}

// Busy возвращает true, пока идёт или ожидает реконсиляция.
// Вызывается из потока драйвера; снаружи используйте Stats.
func (m *Manager) Busy() bool {
	return m.job != nil || m.pending != nil
}

func (m *Manager) hasDirty() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.active {
		if c.IsDirty() {
			return true
		}
	}
	return false
}

// Settle крутит Tick с неподвижным наблюдателем, пока окно не будет
// полностью загружено и все меши не перестроены
func (m *Manager) Settle(ctx context.Context, observer vec.Vec3Float) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		m.Tick(observer)
		if !m.Busy() && !m.hasDirty() {
			return nil
		}
	}
}

// Run вызывает Tick с позицией src каждые interval до отмены ctx
func (m *Manager) Run(ctx context.Context, src ObserverSource, interval time.Duration) error {
	if interval <= 0 {
		interval = 50 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.log.Info("▶️ Стриминг запущен: радиус %d, %d чанк(ов) за тик, интервал %v",
		m.cfg.RenderDistance, m.cfg.ChunksPerTick, interval)

	m.Tick(src.Position())
	for {
		select {
		case <-ctx.Done():
			m.log.Info("⏹️ Стриминг остановлен")
			return nil
		case <-ticker.C:
			m.Tick(src.Position())
		}
	}
}

// Close выгружает все чанки и завершает незаконченный проход
func (m *Manager) Close() {
	if m.job != nil {
		m.job.span.End()
		m.job = nil
	}
	m.pending = nil
	m.metrics.setPending(false)

	m.mu.Lock()
	coords := make([]vec.Vec3, 0, len(m.active))
	for coord := range m.active {
		coords = append(coords, coord)
	}
	m.active = make(map[vec.Vec3]*world.Chunk)
	m.mu.Unlock()

	sortCoords(coords)
	for _, coord := range coords {
		m.sink.Release(coord)
	}
	m.metrics.activeChunks.Set(0)
	m.publishStats()
}

// IsLoaded возвращает true, если чанк в активном наборе
func (m *Manager) IsLoaded(coord vec.Vec3) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.active[coord]
	return ok
}

// ActiveCoords возвращает координаты загруженных чанков, отсортированные по (x, z)
func (m *Manager) ActiveCoords() []vec.Vec3 {
	m.mu.RLock()
	coords := make([]vec.Vec3, 0, len(m.active))
	for coord := range m.active {
		coords = append(coords, coord)
	}
	m.mu.RUnlock()

	sortCoords(coords)
	return coords
}

// ChunkBounds возвращает мировые границы загруженного чанка
func (m *Manager) ChunkBounds(coord vec.Vec3) (world.Bounds, bool) {
	m.mu.RLock()
	c, ok := m.active[coord]
	m.mu.RUnlock()
	if !ok {
		return world.Bounds{}, false
	}
	return c.Bounds(), true
}

// ChunkInfo возвращает сведения о загруженном чанке
func (m *Manager) ChunkInfo(coord vec.Vec3) (ChunkInfo, bool) {
	m.mu.RLock()
	c, ok := m.active[coord]
	m.mu.RUnlock()
	if !ok {
		return ChunkInfo{}, false
	}
	return ChunkInfo{
		Coords:     coord,
		Bounds:     c.Bounds(),
		SolidCount: c.SolidCount(),
		Dirty:      c.IsDirty(),
	}, true
}

// Stats возвращает снимок состояния на конец последнего Tick
func (m *Manager) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stats
}

func coordLess(a, b vec.Vec3) bool {
	if a.X != b.X {
		return a.X < b.X
	}
	return a.Z < b.Z
}

func sortCoords(coords []vec.Vec3) {
	sort.Slice(coords, func(i, j int) bool {
		return coordLess(coords[i], coords[j])
	})
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
