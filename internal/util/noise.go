package util

import (
	"math"

	"github.com/aquilax/go-perlin"
)

// Sampler: базовый 2D шум с результатом в диапазоне [0,1].
// Реализации детерминированы для фиксированного сида.
type Sampler interface {
	Sample(x, z float64) float64
}

// Имена поддерживаемых сэмплеров (значение noise.sampler в конфиге)
const (
	SamplerValue  = "value"
	SamplerPerlin = "perlin"
)

// NewSampler создаёт сэмплер по имени. Пустое или неизвестное имя даёт value-шум.
func NewSampler(kind string, seed int64) Sampler {
	switch kind {
	case SamplerPerlin:
		return NewPerlinSampler(seed)
	default:
		return NewValueSampler(seed)
	}
}

// PerlinSampler оборачивает генератор шума Перлина
type PerlinSampler struct {
	p *perlin.Perlin
}

// NewPerlinSampler инициализирует генератор шума Перлина с указанным сидом.
// Одна октава: фрактальное сложение выполняет NoiseField.
func NewPerlinSampler(seed int64) *PerlinSampler {
	alpha := 2.0  // Сглаживание шума
	beta := 2.0   // Частота шума
	n := int32(1) // Количество октав
	return &PerlinSampler{p: perlin.NewPerlin(alpha, beta, n, seed)}
}

// Sample возвращает значение шума Перлина для указанных координат (от 0 до 1)
func (s *PerlinSampler) Sample(x, z float64) float64 {
	// Получаем значение шума (от -1 до 1)
	noise := s.p.Noise2D(x, z)

	// Преобразуем в диапазон от 0 до 1
	return Clamp01((noise + 1.0) / 2.0)
}

// ValueSampler: value-шум на целочисленной решётке со сглаженной интерполяцией
type ValueSampler struct {
	seed int64
}

// NewValueSampler создаёт value-шум с указанным сидом
func NewValueSampler(seed int64) *ValueSampler {
	return &ValueSampler{seed: seed}
}

// Sample возвращает значение value-шума (от 0 до 1)
func (s *ValueSampler) Sample(x, z float64) float64 {
	x0 := math.Floor(x)
	z0 := math.Floor(z)

	fx := fade(x - x0)
	fz := fade(z - z0)

	ix, iz := int64(x0), int64(z0)
	v00 := latticeValue(ix, iz, s.seed)
	v10 := latticeValue(ix+1, iz, s.seed)
	v01 := latticeValue(ix, iz+1, s.seed)
	v11 := latticeValue(ix+1, iz+1, s.seed)

	i0 := lerp(v00, v10, fx)
	i1 := lerp(v01, v11, fx)
	return lerp(i0, i1, fz)
}

// fade: сглаживающая кривая 6t^5 - 15t^4 + 10t^3
func fade(t float64) float64 {
	return t * t * t * (t*(t*6-15) + 10)
}

func lerp(a, b, t float64) float64 {
	return a + t*(b-a)
}

// hash2: целочисленный хеш в стиле SplitMix64, стабилен между запусками
func hash2(x, z, seed int64) uint64 {
	v := uint64(x)*0x9E3779B97F4A7C15 + uint64(z)*0x517CC1B727220A95 + uint64(seed)
	v += 0x9E3779B97F4A7C15
	v = (v ^ (v >> 30)) * 0xBF58476D1CE4E5B9
	v = (v ^ (v >> 27)) * 0x94D049BB133111EB
	return v ^ (v >> 31)
}

func latticeValue(x, z, seed int64) float64 {
	h := hash2(x, z, seed)
	return float64(h&0xFFFFFFFF) / float64(0xFFFFFFFF)
}

// Clamp01 ограничивает значение отрезком [0,1]
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
