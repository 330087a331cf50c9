package mesh

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/annel0/voxel-world/internal/vec"
	"github.com/annel0/voxel-world/internal/world/block"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countPrefix(text, prefix string) int {
	n := 0
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(line, prefix) {
			n++
		}
	}
	return n
}

func TestOBJWriterOffsetsIndices(t *testing.T) {
	c := chunkWith(t, map[vec.Vec3]block.BlockID{{X: 0, Y: 0, Z: 0}: block.StoneBlockID})
	m := NewMesher(nil).Generate(c)

	var buf bytes.Buffer
	w := NewOBJWriter(&buf)
	require.NoError(t, w.WriteMesh("chunk_0_0", vec.Vec3{}, m))
	require.NoError(t, w.WriteMesh("chunk_1_0", vec.Vec3{X: 16}, m))
	require.NoError(t, w.Close())

	out := buf.String()
	assert.Equal(t, 2, countPrefix(out, "o "))
	assert.Equal(t, 48, countPrefix(out, "v "))
	assert.Equal(t, 48, countPrefix(out, "vt "))
	assert.Equal(t, 24, countPrefix(out, "f "))

	// Первый треугольник второго объекта ссылается на вершины 25..27
	assert.Contains(t, out, "f 25/25 26/26 27/27")
	// Вершины второго объекта сдвинуты на origin
	assert.Contains(t, out, "v 16 1 0")
}

func TestCompressedOBJWriterRoundTrip(t *testing.T) {
	c := chunkWith(t, map[vec.Vec3]block.BlockID{
		{X: 2, Y: 2, Z: 2}: block.DirtBlockID,
		{X: 2, Y: 3, Z: 2}: block.GrassBlockID,
	})
	m := NewMesher(nil).Generate(c)

	var plain bytes.Buffer
	pw := NewOBJWriter(&plain)
	require.NoError(t, pw.WriteMesh("c", vec.Vec3{}, m))
	require.NoError(t, pw.Close())

	var packed bytes.Buffer
	cw, err := NewCompressedOBJWriter(&packed)
	require.NoError(t, err)
	require.NoError(t, cw.WriteMesh("c", vec.Vec3{}, m))
	require.NoError(t, cw.Close())

	dec, err := zstd.NewReader(&packed)
	require.NoError(t, err)
	defer dec.Close()

	unpacked, err := io.ReadAll(dec)
	require.NoError(t, err)
	assert.Equal(t, plain.String(), string(unpacked))
}
