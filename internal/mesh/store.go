package mesh

import (
	"sort"
	"sync"

	"github.com/annel0/voxel-world/internal/vec"
)

// Store: потокобезопасное хранилище последних мешей по координатам чанков.
// Играет роль потребителя мешей, когда настоящего рендера нет
// (сервер, отладочный API, экспорт).
type Store struct {
	mu     sync.RWMutex
	meshes map[vec.Vec3]*VoxelMesh
}

// NewStore создаёт пустое хранилище
func NewStore() *Store {
	return &Store{meshes: make(map[vec.Vec3]*VoxelMesh)}
}

// Apply сохраняет новый меш чанка, заменяя предыдущий
func (s *Store) Apply(coord vec.Vec3, m *VoxelMesh) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.meshes[coord] = m
}

// Release удаляет меш выгруженного чанка
func (s *Store) Release(coord vec.Vec3) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.meshes, coord)
}

// Get возвращает меш чанка
func (s *Store) Get(coord vec.Vec3) (*VoxelMesh, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.meshes[coord]
	return m, ok
}

// Len возвращает количество хранимых мешей
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.meshes)
}

// Coords возвращает координаты всех мешей в порядке (x, z)
func (s *Store) Coords() []vec.Vec3 {
	s.mu.RLock()
	coords := make([]vec.Vec3, 0, len(s.meshes))
	for c := range s.meshes {
		coords = append(coords, c)
	}
	s.mu.RUnlock()

	sort.Slice(coords, func(i, j int) bool {
		if coords[i].X != coords[j].X {
			return coords[i].X < coords[j].X
		}
		return coords[i].Z < coords[j].Z
	})
	return coords
}
