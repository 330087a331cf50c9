package streaming

import (
	"math"
	"testing"
	"time"

	"github.com/annel0/voxel-world/internal/vec"
	"github.com/stretchr/testify/assert"
)

func TestCirclePath(t *testing.T) {
	center := vec.Vec3Float{X: 10, Y: 70, Z: -10}
	p := NewCirclePath(center, 32, 16)

	start := p.At(0)
	assert.InDelta(t, 42, start.X, 1e-9)
	assert.InDelta(t, -10, start.Z, 1e-9)
	assert.Equal(t, 70.0, start.Y)

	// Четверть окружности: длина дуги pi*r/2 при скорости 16 блоков/с
	secs := math.Pi * 32 / 2 / 16
	quarter := time.Duration(secs * float64(time.Second))
	q := p.At(quarter)
	assert.InDelta(t, 10, q.X, 1e-6)
	assert.InDelta(t, 22, q.Z, 1e-6)
}

func TestCirclePathUsesClock(t *testing.T) {
	p := NewCirclePath(vec.Vec3Float{}, 8, 8)
	now := p.start
	p.now = func() time.Time { return now }

	assert.InDelta(t, 8, p.Position().X, 1e-9)
	half := math.Pi
	now = now.Add(time.Duration(half * float64(time.Second)))
	assert.InDelta(t, -8, p.Position().X, 1e-6, "за pi секунд пройдена половина окружности")
}

func TestZeroRadiusStaysAtCenter(t *testing.T) {
	center := vec.Vec3Float{X: 1, Y: 2, Z: 3}
	assert.Equal(t, center, NewCirclePath(center, 0, 5).At(time.Hour))
}

func TestObserverAdapters(t *testing.T) {
	pos := vec.Vec3Float{X: 5, Z: -5}
	assert.Equal(t, pos, StaticObserver{Pos: pos}.Position())
	assert.Equal(t, pos, ObserverFunc(func() vec.Vec3Float { return pos }).Position())
}
