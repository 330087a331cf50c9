package block

import "fmt"

// BlockID представляет идентификатор типа блока.
// Код 8-битный, 0 зарезервирован под воздух (пустую клетку).
type BlockID uint8

// Константы ID блоков
const (
	AirBlockID     BlockID = iota // 0
	StoneBlockID                  // 1
	GrassBlockID                  // 2
	DirtBlockID                   // 3
	BedrockBlockID                // 4
)

// Definition описывает тип блока: имя и плитки атласа для каждой грани
type Definition struct {
	ID    BlockID
	Name  string
	Tiles [FaceCount]Tile
}

var (
	registry = make(map[BlockID]Definition)
	byName   = make(map[string]BlockID)
)

// Register добавляет определение блока в регистр
func Register(def Definition) {
	registry[def.ID] = def
	byName[def.Name] = def.ID
}

// Get возвращает определение для указанного ID
func Get(id BlockID) (Definition, bool) {
	def, exists := registry[id]
	return def, exists
}

// Lookup ищет ID блока по имени ("stone", "grass", ...)
func Lookup(name string) (BlockID, bool) {
	id, exists := byName[name]
	return id, exists
}

// IsValidBlockID проверяет, является ли ID допустимым идентификатором блока
func IsValidBlockID(id BlockID) bool {
	_, exists := registry[id]
	return exists
}

// IsAir возвращает true для пустой клетки
func (id BlockID) IsAir() bool {
	return id == AirBlockID
}

func (id BlockID) String() string {
	if def, ok := registry[id]; ok {
		return def.Name
	}
	return fmt.Sprintf("block#%d", uint8(id))
}

// uniform возвращает одинаковую плитку для всех граней
func uniform(t Tile) [FaceCount]Tile {
	var tiles [FaceCount]Tile
	for i := range tiles {
		tiles[i] = t
	}
	return tiles
}

func init() {
	Register(Definition{ID: AirBlockID, Name: "air"})
	Register(Definition{ID: StoneBlockID, Name: "stone", Tiles: uniform(Tile{X: 0, Y: 0})})
	Register(Definition{ID: DirtBlockID, Name: "dirt", Tiles: uniform(Tile{X: 0, Y: 16})})
	Register(Definition{ID: BedrockBlockID, Name: "bedrock", Tiles: uniform(Tile{X: 16, Y: 16})})

	// Разные плитки для граней травы задаются через mesher.tiles
	Register(Definition{ID: GrassBlockID, Name: "grass", Tiles: uniform(Tile{X: 16, Y: 0})})
}
