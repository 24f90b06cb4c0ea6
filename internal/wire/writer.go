package wire

import (
	"encoding/binary"
	"math"
	"slices"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/roach88/replica/internal/variant"
)

// Writer is an append-only snapshot buffer. The zero value is ready to use.
type Writer struct {
	buf []byte
}

// NewWriter returns a Writer with the given initial capacity.
func NewWriter(capacity int) *Writer {
	return &Writer{buf: make([]byte, 0, capacity)}
}

// Bytes returns the written bytes. The slice aliases the writer's storage
// until the next write or Reset.
func (w *Writer) Bytes() []byte { return w.buf }

// Len returns the number of bytes written.
func (w *Writer) Len() int { return len(w.buf) }

// Reset discards the contents, keeping the allocation.
func (w *Writer) Reset() { w.buf = w.buf[:0] }

func (w *Writer) WriteUint8(v uint8) {
	w.buf = append(w.buf, v)
}

func (w *Writer) WriteBool(v bool) {
	if v {
		w.buf = append(w.buf, 1)
	} else {
		w.buf = append(w.buf, 0)
	}
}

func (w *Writer) WriteUint32(v uint32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

func (w *Writer) WriteInt32(v int32) {
	w.WriteUint32(uint32(v))
}

func (w *Writer) WriteInt64(v int64) {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, uint64(v))
}

func (w *Writer) WriteFloat32(v float32) {
	w.WriteUint32(math.Float32bits(v))
}

func (w *Writer) WriteFloat64(v float64) {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, math.Float64bits(v))
}

// WriteVLE appends v as an unsigned LEB128 varint.
func (w *Writer) WriteVLE(v uint32) {
	w.buf = protowire.AppendVarint(w.buf, uint64(v))
}

// WriteStringHash appends h as a fixed U32.
func (w *Writer) WriteStringHash(h variant.StringHash) {
	w.WriteUint32(uint32(h))
}

// WriteString appends VLE(len) followed by the UTF-8 bytes.
func (w *Writer) WriteString(s string) {
	w.WriteVLE(uint32(len(s)))
	w.buf = append(w.buf, s...)
}

// WriteBytes appends VLE(len) followed by b.
func (w *Writer) WriteBytes(b []byte) {
	w.WriteVLE(uint32(len(b)))
	w.buf = append(w.buf, b...)
}

// WriteVariant appends a tagged value: U8(type) then the value data.
// A nil value is written as None.
func (w *Writer) WriteVariant(v variant.Value) {
	if v == nil {
		v = variant.None{}
	}
	w.WriteUint8(uint8(v.Type()))
	w.WriteVariantData(v)
}

// WriteVariantData appends the untagged value data of v.
func (w *Writer) WriteVariantData(v variant.Value) {
	switch val := v.(type) {
	case nil, variant.None:
	case variant.Int:
		w.WriteInt32(int32(val))
	case variant.Int64:
		w.WriteInt64(int64(val))
	case variant.Bool:
		w.WriteBool(bool(val))
	case variant.Float:
		w.WriteFloat32(float32(val))
	case variant.Double:
		w.WriteFloat64(float64(val))
	case variant.String:
		w.WriteString(string(val))
	case variant.Buffer:
		w.WriteBytes(val)
	case variant.Vector2:
		w.writeFloats(val.X, val.Y)
	case variant.Vector3:
		w.writeFloats(val.X, val.Y, val.Z)
	case variant.Vector4:
		w.writeFloats(val.X, val.Y, val.Z, val.W)
	case variant.Quaternion:
		w.writeFloats(val.W, val.X, val.Y, val.Z)
	case variant.Color:
		w.writeFloats(val.R, val.G, val.B, val.A)
	case variant.IntVector2:
		w.WriteInt32(val.X)
		w.WriteInt32(val.Y)
	case variant.VariantVector:
		w.WriteVLE(uint32(len(val)))
		for _, elem := range val {
			w.WriteVariant(elem)
		}
	case variant.VariantMap:
		w.WriteVLE(uint32(len(val)))
		for _, k := range val.SortedKeys() {
			w.WriteStringHash(k)
			w.WriteVariant(val[k])
		}
	case variant.StringVector:
		w.WriteVLE(uint32(len(val)))
		for _, s := range val {
			w.WriteString(s)
		}
	}
}

func (w *Writer) writeFloats(fs ...float32) {
	for _, f := range fs {
		w.WriteFloat32(f)
	}
}

// WriteFrame runs fn and prefixes whatever it wrote with VLE(byteLen).
func (w *Writer) WriteFrame(fn func(w *Writer)) {
	start := len(w.buf)
	fn(w)
	n := len(w.buf) - start
	w.buf = slices.Insert(w.buf, start, protowire.AppendVarint(nil, uint64(n))...)
}
