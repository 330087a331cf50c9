package vec

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFloorDiv(t *testing.T) {
	cases := []struct {
		a, b, want int
	}{
		{0, 16, 0},
		{15, 16, 0},
		{16, 16, 1},
		{-1, 16, -1},
		{-16, 16, -1},
		{-17, 16, -2},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, FloorDiv(c.a, c.b), "FloorDiv(%d,%d)", c.a, c.b)
		assert.Equal(t, c.a, FloorDiv(c.a, c.b)*c.b+FloorMod(c.a, c.b), "FloorMod(%d,%d)", c.a, c.b)
	}
}

func TestChebyshevXZ(t *testing.T) {
	a := Vec3{X: 0, Y: 0, Z: 0}
	assert.Equal(t, 3, a.ChebyshevXZ(Vec3{X: -3, Y: 100, Z: 2}))
	assert.Equal(t, 0, a.ChebyshevXZ(a))
}

func TestVec3FloatFloor(t *testing.T) {
	v := Vec3Float{X: -0.5, Y: 1.9, Z: 16.0}
	assert.Equal(t, Vec3{X: -1, Y: 1, Z: 16}, v.Floor())
}
