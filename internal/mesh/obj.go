package mesh

import (
	"bufio"
	"fmt"
	"io"

	"github.com/annel0/voxel-world/internal/vec"
	"github.com/klauspost/compress/zstd"
)

// OBJWriter пишет меши в формате Wavefront OBJ (v / vt / f).
// Несколько мешей можно записать в один файл: индексы сдвигаются на
// количество уже записанных вершин.
type OBJWriter struct {
	out        *bufio.Writer
	enc        *zstd.Encoder
	vertexBase int
}

// NewOBJWriter создаёт писатель поверх w
func NewOBJWriter(w io.Writer) *OBJWriter {
	return &OBJWriter{out: bufio.NewWriterSize(w, 256*1024)}
}

// NewCompressedOBJWriter создаёт писатель, сжимающий вывод zstd
func NewCompressedOBJWriter(w io.Writer) (*OBJWriter, error) {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("не удалось создать zstd encoder: %w", err)
	}
	return &OBJWriter{
		out: bufio.NewWriterSize(enc, 256*1024),
		enc: enc,
	}, nil
}

// WriteMesh записывает меш как отдельный объект; origin сдвигает вершины в мировые координаты
func (o *OBJWriter) WriteMesh(name string, origin vec.Vec3, m *VoxelMesh) error {
	if _, err := fmt.Fprintf(o.out, "o %s\n", name); err != nil {
		return err
	}

	ox, oy, oz := float32(origin.X), float32(origin.Y), float32(origin.Z)
	for _, v := range m.Vertices {
		if _, err := fmt.Fprintf(o.out, "v %g %g %g\n", v[0]+ox, v[1]+oy, v[2]+oz); err != nil {
			return err
		}
	}
	for _, uv := range m.UVs {
		if _, err := fmt.Fprintf(o.out, "vt %g %g\n", uv[0], uv[1]); err != nil {
			return err
		}
	}

	// В OBJ индексы начинаются с 1; UV индексируются так же, как вершины
	for i := 0; i+2 < len(m.Triangles); i += 3 {
		a := int(m.Triangles[i]) + o.vertexBase + 1
		b := int(m.Triangles[i+1]) + o.vertexBase + 1
		c := int(m.Triangles[i+2]) + o.vertexBase + 1
		if _, err := fmt.Fprintf(o.out, "f %d/%d %d/%d %d/%d\n", a, a, b, b, c, c); err != nil {
			return err
		}
	}

	o.vertexBase += len(m.Vertices)
	return nil
}

// Close сбрасывает буфер и завершает zstd-поток. Нижележащий writer не закрывается.
func (o *OBJWriter) Close() error {
	if err := o.out.Flush(); err != nil {
		return err
	}
	if o.enc != nil {
		return o.enc.Close()
	}
	return nil
}

// WriteOBJ записывает один меш в w
func WriteOBJ(w io.Writer, origin vec.Vec3, m *VoxelMesh) error {
	ow := NewOBJWriter(w)
	if err := ow.WriteMesh(fmt.Sprintf("chunk_%d_%d", origin.X, origin.Z), origin, m); err != nil {
		return err
	}
	return ow.Close()
}
