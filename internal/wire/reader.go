package wire

import (
	"encoding/binary"
	"math"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/roach88/replica/internal/variant"
)

// Reader is a bounded cursor over a snapshot buffer.
type Reader struct {
	buf  []byte
	off  int
	base int // absolute offset of buf[0], for error reporting
	err  error
}

// NewReader returns a Reader positioned at the start of b.
func NewReader(b []byte) *Reader {
	return &Reader{buf: b}
}

// EOF reports whether no bytes remain.
func (r *Reader) EOF() bool { return r.off >= len(r.buf) }

// Err returns the first error encountered, if any.
func (r *Reader) Err() error { return r.err }

// Offset returns the absolute position of the cursor.
func (r *Reader) Offset() int { return r.base + r.off }

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int { return len(r.buf) - r.off }

func (r *Reader) fail(op string, err error) error {
	if r.err == nil {
		r.err = &Error{Offset: r.Offset(), Op: op, Err: err}
	}
	return r.err
}

func (r *Reader) take(op string, n int) ([]byte, error) {
	if r.err != nil {
		return nil, r.err
	}
	if n < 0 || n > r.Remaining() {
		return nil, r.fail(op, ErrTruncated)
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b, nil
}

// Skip advances past n bytes.
func (r *Reader) Skip(n int) error {
	_, err := r.take("skip", n)
	return err
}

func (r *Reader) ReadUint8() (uint8, error) {
	b, err := r.take("read u8", 1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *Reader) ReadBool() (bool, error) {
	b, err := r.ReadUint8()
	return b != 0, err
}

func (r *Reader) ReadUint32() (uint32, error) {
	b, err := r.take("read u32", 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *Reader) ReadInt32() (int32, error) {
	v, err := r.ReadUint32()
	return int32(v), err
}

func (r *Reader) ReadInt64() (int64, error) {
	b, err := r.take("read i64", 8)
	if err != nil {
		return 0, err
	}
	return int64(binary.LittleEndian.Uint64(b)), nil
}

func (r *Reader) ReadFloat32() (float32, error) {
	v, err := r.ReadUint32()
	return math.Float32frombits(v), err
}

func (r *Reader) ReadFloat64() (float64, error) {
	b, err := r.take("read f64", 8)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(b)), nil
}

// ReadVLE reads an unsigned LEB128 varint limited to 32 bits.
func (r *Reader) ReadVLE() (uint32, error) {
	if r.err != nil {
		return 0, r.err
	}
	v, n := protowire.ConsumeVarint(r.buf[r.off:])
	if n < 0 {
		// Fewer than 10 bytes can only fail by running out.
		if r.Remaining() < binary.MaxVarintLen64 {
			return 0, r.fail("read vle", ErrTruncated)
		}
		return 0, r.fail("read vle", ErrOverflow)
	}
	if v > math.MaxUint32 {
		return 0, r.fail("read vle", ErrOverflow)
	}
	r.off += n
	return uint32(v), nil
}

// ReadCount reads a VLE element count and rejects counts that cannot fit in
// the remaining bytes, given each element takes at least minSize bytes.
func (r *Reader) ReadCount(minSize int) (int, error) {
	n, err := r.ReadVLE()
	if err != nil {
		return 0, err
	}
	if minSize > 0 && int(n) > r.Remaining()/minSize {
		return 0, r.fail("read count", ErrTruncated)
	}
	return int(n), nil
}

func (r *Reader) ReadStringHash() (variant.StringHash, error) {
	v, err := r.ReadUint32()
	return variant.StringHash(v), err
}

// ReadBytes reads VLE(len) followed by len bytes. The result is a copy.
func (r *Reader) ReadBytes() ([]byte, error) {
	n, err := r.ReadVLE()
	if err != nil {
		return nil, err
	}
	b, err := r.take("read bytes", int(n))
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), b...), nil
}

func (r *Reader) ReadString() (string, error) {
	n, err := r.ReadVLE()
	if err != nil {
		return "", err
	}
	b, err := r.take("read string", int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ReadVariant reads a tagged value.
func (r *Reader) ReadVariant() (variant.Value, error) {
	return r.readVariant(0)
}

// ReadVariantData reads untagged value data of kind t.
func (r *Reader) ReadVariantData(t variant.Type) (variant.Value, error) {
	return r.readVariantData(t, 0)
}

func (r *Reader) readVariant(depth int) (variant.Value, error) {
	tag, err := r.ReadUint8()
	if err != nil {
		return nil, err
	}
	t := variant.Type(tag)
	if !t.Valid() {
		r.off--
		return nil, r.fail("read variant", ErrUnknownType)
	}
	return r.readVariantData(t, depth)
}

func (r *Reader) readVariantData(t variant.Type, depth int) (variant.Value, error) {
	if depth > MaxDepth {
		return nil, r.fail("read variant", ErrTooDeep)
	}
	switch t {
	case variant.TypeNone:
		return variant.None{}, r.err
	case variant.TypeInt:
		v, err := r.ReadInt32()
		return variant.Int(v), err
	case variant.TypeInt64:
		v, err := r.ReadInt64()
		return variant.Int64(v), err
	case variant.TypeBool:
		v, err := r.ReadBool()
		return variant.Bool(v), err
	case variant.TypeFloat:
		v, err := r.ReadFloat32()
		return variant.Float(v), err
	case variant.TypeDouble:
		v, err := r.ReadFloat64()
		return variant.Double(v), err
	case variant.TypeString:
		v, err := r.ReadString()
		return variant.String(v), err
	case variant.TypeBuffer:
		v, err := r.ReadBytes()
		return variant.Buffer(v), err
	case variant.TypeVector2:
		f, err := r.readFloats(2)
		if err != nil {
			return nil, err
		}
		return variant.Vector2{X: f[0], Y: f[1]}, nil
	case variant.TypeVector3:
		f, err := r.readFloats(3)
		if err != nil {
			return nil, err
		}
		return variant.Vector3{X: f[0], Y: f[1], Z: f[2]}, nil
	case variant.TypeVector4:
		f, err := r.readFloats(4)
		if err != nil {
			return nil, err
		}
		return variant.Vector4{X: f[0], Y: f[1], Z: f[2], W: f[3]}, nil
	case variant.TypeQuaternion:
		f, err := r.readFloats(4)
		if err != nil {
			return nil, err
		}
		return variant.Quaternion{W: f[0], X: f[1], Y: f[2], Z: f[3]}, nil
	case variant.TypeColor:
		f, err := r.readFloats(4)
		if err != nil {
			return nil, err
		}
		return variant.Color{R: f[0], G: f[1], B: f[2], A: f[3]}, nil
	case variant.TypeIntVector2:
		x, err := r.ReadInt32()
		if err != nil {
			return nil, err
		}
		y, err := r.ReadInt32()
		if err != nil {
			return nil, err
		}
		return variant.IntVector2{X: x, Y: y}, nil
	case variant.TypeVariantVector:
		n, err := r.ReadCount(1)
		if err != nil {
			return nil, err
		}
		out := make(variant.VariantVector, 0, n)
		for range n {
			elem, err := r.readVariant(depth + 1)
			if err != nil {
				return nil, err
			}
			out = append(out, elem)
		}
		return out, nil
	case variant.TypeVariantMap:
		n, err := r.ReadCount(5)
		if err != nil {
			return nil, err
		}
		out := make(variant.VariantMap, n)
		for range n {
			k, err := r.ReadStringHash()
			if err != nil {
				return nil, err
			}
			elem, err := r.readVariant(depth + 1)
			if err != nil {
				return nil, err
			}
			out[k] = elem
		}
		return out, nil
	case variant.TypeStringVector:
		n, err := r.ReadCount(1)
		if err != nil {
			return nil, err
		}
		out := make(variant.StringVector, 0, n)
		for range n {
			s, err := r.ReadString()
			if err != nil {
				return nil, err
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, r.fail("read variant", ErrUnknownType)
	}
}

func (r *Reader) readFloats(n int) ([]float32, error) {
	b, err := r.take("read floats", 4*n)
	if err != nil {
		return nil, err
	}
	out := make([]float32, n)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return out, nil
}

// ReadFrame reads VLE(byteLen) and returns a Reader bounded to the next
// byteLen bytes. The parent is advanced past the frame whether or not the
// sub-reader consumes it.
func (r *Reader) ReadFrame() (*Reader, error) {
	n, err := r.ReadVLE()
	if err != nil {
		return nil, err
	}
	start := r.off
	if _, err := r.take("read frame", int(n)); err != nil {
		return nil, err
	}
	return &Reader{buf: r.buf[start : start+int(n)], base: r.base + start}, nil
}
