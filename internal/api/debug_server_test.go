package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/annel0/voxel-world/internal/mesh"
	"github.com/annel0/voxel-world/internal/middleware"
	"github.com/annel0/voxel-world/internal/streaming"
	"github.com/annel0/voxel-world/internal/terrain"
	"github.com/annel0/voxel-world/internal/vec"
	"github.com/klauspost/compress/zstd"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	server  *DebugServer
	manager *streaming.Manager
	field   *terrain.NoiseField
	store   *mesh.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	params := terrain.DefaultParams()
	params.Seed = 42
	field, err := terrain.NewNoiseField(params)
	require.NoError(t, err)
	t.Cleanup(field.Close)

	store := mesh.NewStore()
	manager := streaming.NewManager(streaming.Config{RenderDistance: 1, ChunksPerTick: 9}, field, mesh.NewMesher(nil), store)
	require.NoError(t, manager.Settle(context.Background(), vec.Vec3Float{X: 8, Y: 80, Z: 8}))

	server := NewDebugServer(Config{
		Manager:  manager,
		Meshes:   store,
		Field:    field,
		Registry: prometheus.NewRegistry(),
	})
	return &fixture{server: server, manager: manager, field: field, store: store}
}

func (f *fixture) get(t *testing.T, url string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, url, nil)
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, data interface{}) GenericResponse {
	t.Helper()
	resp := GenericResponse{Data: data}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	rec := f.get(t, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
	assert.NotEmpty(t, rec.Header().Get(middleware.TraceIDHeader))
}

func TestStats(t *testing.T) {
	f := newFixture(t)
	rec := f.get(t, "/api/stats")
	require.Equal(t, http.StatusOK, rec.Code)

	var data struct {
		World   streaming.Stats `json:"world"`
		Meshes  int             `json:"meshes"`
		Terrain struct {
			Seed int64 `json:"seed"`
		} `json:"terrain"`
	}
	resp := decode(t, rec, &data)
	assert.True(t, resp.Success)
	assert.Equal(t, 9, data.World.ActiveChunks)
	assert.Equal(t, 9, data.Meshes)
	assert.Equal(t, int64(42), data.Terrain.Seed)
}

func TestChunksList(t *testing.T) {
	f := newFixture(t)
	rec := f.get(t, "/api/chunks")
	require.Equal(t, http.StatusOK, rec.Code)

	var data struct {
		Chunks []ChunkSummary `json:"chunks"`
		Total  int            `json:"total"`
	}
	decode(t, rec, &data)
	assert.Equal(t, 9, data.Total)
	require.Len(t, data.Chunks, 9)
	assert.Equal(t, vec.Vec3{X: -1, Z: -1}, data.Chunks[0].Coords)
	assert.Equal(t, vec.Vec3{X: -16, Y: 0, Z: -16}, data.Chunks[0].Bounds.Min)
}

func TestChunkDetails(t *testing.T) {
	f := newFixture(t)

	rec := f.get(t, "/api/chunks/1/-1")
	require.Equal(t, http.StatusOK, rec.Code)

	var details ChunkDetails
	decode(t, rec, &details)
	m, ok := f.store.Get(vec.Vec3{X: 1, Z: -1})
	require.True(t, ok)
	assert.True(t, details.Meshed)
	assert.Equal(t, m.FaceCount(), details.Faces)
	assert.Equal(t, m.FacesByDirection()[0], details.FacesByDirection["up"])
	assert.False(t, details.Dirty)
	assert.Greater(t, details.SolidCount, 0)

	assert.Equal(t, http.StatusNotFound, f.get(t, "/api/chunks/50/50").Code)
	assert.Equal(t, http.StatusBadRequest, f.get(t, "/api/chunks/a/0").Code)
}

func TestChunkMeshOBJ(t *testing.T) {
	f := newFixture(t)

	rec := f.get(t, "/api/chunks/0/0/mesh.obj")
	require.Equal(t, http.StatusOK, rec.Code)
	plain := rec.Body.String()
	assert.True(t, strings.HasPrefix(plain, "o chunk_0_0\n"))

	m, _ := f.store.Get(vec.Vec3{})
	assert.Equal(t, m.FaceCount()*2, strings.Count(plain, "\nf "))

	rec = f.get(t, "/api/chunks/0/0/mesh.obj?compress=zstd")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/zstd", rec.Header().Get("Content-Type"))

	dec, err := zstd.NewReader(rec.Body)
	require.NoError(t, err)
	defer dec.Close()
	unpacked, err := io.ReadAll(dec)
	require.NoError(t, err)
	assert.Equal(t, plain, string(unpacked))

	assert.Equal(t, http.StatusBadRequest, f.get(t, "/api/chunks/0/0/mesh.obj?compress=gzip").Code)
	assert.Equal(t, http.StatusNotFound, f.get(t, "/api/chunks/9/9/mesh.obj").Code)
}

func TestChunkMeshWithoutStore(t *testing.T) {
	f := newFixture(t)
	server := NewDebugServer(Config{
		Manager:  f.manager,
		Field:    f.field,
		Registry: prometheus.NewRegistry(),
	})

	req := httptest.NewRequest(http.MethodGet, "/api/chunks/0/0/mesh.obj", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code, "без хранилища мешей OBJ недоступен")

	req = httptest.NewRequest(http.MethodGet, "/api/chunks/0/0", nil)
	rec = httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var details ChunkDetails
	decode(t, rec, &details)
	assert.False(t, details.Meshed)
}

func TestBlockQuery(t *testing.T) {
	f := newFixture(t)

	rec := f.get(t, "/api/block?x=3&y=0&z=-4")
	require.Equal(t, http.StatusOK, rec.Code)
	var block BlockResponse
	decode(t, rec, &block)
	assert.True(t, block.Loaded)
	assert.Equal(t, f.field.BlockTypeAt(3, 0, -4), block.Block)
	assert.Equal(t, block.Block.String(), block.Name)

	rec = f.get(t, "/api/block?x=1000&y=10&z=0")
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &block)
	assert.False(t, block.Loaded)
	assert.Equal(t, "air", block.Name, "незагруженный чанк отвечает воздухом")

	assert.Equal(t, http.StatusBadRequest, f.get(t, "/api/block?x=1&y=2").Code)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)
	f.get(t, "/health")

	rec := f.get(t, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "debug_api_http_request_duration_seconds")
}
