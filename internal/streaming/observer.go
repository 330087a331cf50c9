package streaming

import (
	"math"
	"time"

	"github.com/annel0/voxel-world/internal/vec"
)

// ObserverSource отдаёт текущую позицию наблюдателя (камеры, игрока)
type ObserverSource interface {
	Position() vec.Vec3Float
}

// ObserverFunc позволяет использовать обычную функцию как ObserverSource
type ObserverFunc func() vec.Vec3Float

// Position вызывает f
func (f ObserverFunc) Position() vec.Vec3Float {
	return f()
}

// StaticObserver: неподвижный наблюдатель
type StaticObserver struct {
	Pos vec.Vec3Float
}

// Position возвращает фиксированную позицию
func (s StaticObserver) Position() vec.Vec3Float {
	return s.Pos
}

// CirclePath: наблюдатель, идущий по окружности в плоскости XZ с
// постоянной линейной скоростью. Используется сервером вместо ввода игрока.
type CirclePath struct {
	Center vec.Vec3Float
	Radius float64 // в блоках
	Speed  float64 // блоков в секунду

	start time.Time
	now   func() time.Time
}

// NewCirclePath создаёт путь, стартующий в точке (Center.X+Radius, Center.Y, Center.Z)
func NewCirclePath(center vec.Vec3Float, radius, speed float64) *CirclePath {
	return &CirclePath{
		Center: center,
		Radius: radius,
		Speed:  speed,
		start:  time.Now(),
		now:    time.Now,
	}
}

// At возвращает позицию через elapsed после старта
func (p *CirclePath) At(elapsed time.Duration) vec.Vec3Float {
	if p.Radius <= 0 {
		return p.Center
	}
	angle := p.Speed * elapsed.Seconds() / p.Radius
	return vec.Vec3Float{
		X: p.Center.X + p.Radius*math.Cos(angle),
		Y: p.Center.Y,
		Z: p.Center.Z + p.Radius*math.Sin(angle),
	}
}

// Position возвращает позицию в текущий момент
func (p *CirclePath) Position() vec.Vec3Float {
	return p.At(p.now().Sub(p.start))
}
