package block

// Tile: смещение плитки в атласе текстур, в пикселях
type Tile struct {
	X int `yaml:"x"`
	Y int `yaml:"y"`
}

// UVRect: нормализованный прямоугольник плитки в атласе
type UVRect struct {
	U0, V0 float32
	U1, V1 float32
}

// Atlas сопоставляет паре (блок, грань) плитку атласа.
// По умолчанию плитки берутся из регистра блоков; переопределения
// задаются через SetTile (например, из конфигурации).
type Atlas struct {
	tileWidth, tileHeight   float32
	atlasWidth, atlasHeight float32
	overrides               map[BlockID][FaceCount]*Tile
}

// NewAtlas создаёт атлас с заданным размером плитки и всего изображения в пикселях
func NewAtlas(tileWidth, tileHeight, atlasWidth, atlasHeight int) *Atlas {
	return &Atlas{
		tileWidth:   float32(tileWidth),
		tileHeight:  float32(tileHeight),
		atlasWidth:  float32(atlasWidth),
		atlasHeight: float32(atlasHeight),
		overrides:   make(map[BlockID][FaceCount]*Tile),
	}
}

// DefaultAtlas: атлас 256x256 с плитками 16x16
func DefaultAtlas() *Atlas {
	return NewAtlas(16, 16, 256, 256)
}

// SetTile переопределяет плитку для грани блока
func (a *Atlas) SetTile(id BlockID, face Face, tile Tile) {
	if face >= FaceCount {
		return
	}
	tiles := a.overrides[id]
	t := tile
	tiles[face] = &t
	a.overrides[id] = tiles
}

// TileFor возвращает плитку для грани блока.
// Неизвестные блоки получают плитку (0,0).
func (a *Atlas) TileFor(id BlockID, face Face) Tile {
	if face >= FaceCount {
		return Tile{}
	}
	if tiles, ok := a.overrides[id]; ok && tiles[face] != nil {
		return *tiles[face]
	}
	if def, ok := registry[id]; ok {
		return def.Tiles[face]
	}
	return Tile{}
}

// UV возвращает нормализованные координаты плитки
func (a *Atlas) UV(id BlockID, face Face) UVRect {
	tile := a.TileFor(id, face)
	u := float32(tile.X) / a.atlasWidth
	v := float32(tile.Y) / a.atlasHeight
	return UVRect{
		U0: u,
		V0: v,
		U1: u + a.tileWidth/a.atlasWidth,
		V1: v + a.tileHeight/a.atlasHeight,
	}
}
