package cloud

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"path/filepath"

	"github.com/banshee-data/lidarclass/internal/fsutil"
)

// TileReader yields a Store from a tile file. LAS/LAZ readers plug in behind
// this interface; the pipeline does not care about the container format.
type TileReader interface {
	ReadTile(path string) (*Store, error)
}

// TileWriter consumes a Store. Implementations must preserve the source
// version and spatial reference, and forward every dimension present in the
// store.
type TileWriter interface {
	WriteTile(path string, s *Store) error
}

// Codec is the default column-binary tile format. It round-trips every
// dimension bit-exact, which the prepared-tile cache relies on.
type Codec struct {
	FS fsutil.FileSystem
}

// NewCodec returns a Codec over the OS filesystem.
func NewCodec() Codec { return Codec{FS: fsutil.OSFileSystem{}} }

func (c Codec) fs() fsutil.FileSystem {
	if c.FS == nil {
		return fsutil.OSFileSystem{}
	}
	return c.FS
}

const (
	codecMagic   = "LCT1"
	codecVersion = uint16(1)
)

// WriteTile serialises the store.
func (c Codec) WriteTile(path string, s *Store) error {
	var buf bytes.Buffer
	buf.WriteString(codecMagic)
	le := binary.LittleEndian

	var hdr [14]byte
	le.PutUint16(hdr[0:2], codecVersion)
	le.PutUint32(hdr[2:6], uint32(int32(s.CRS)))
	le.PutUint32(hdr[6:10], uint32(s.Len()))
	le.PutUint32(hdr[10:14], uint32(len(s.names)))
	buf.Write(hdr[:])

	writeString := func(v string) {
		var n [2]byte
		le.PutUint16(n[:], uint16(len(v)))
		buf.Write(n[:])
		buf.WriteString(v)
	}
	writeString(s.SourceVersion)

	for _, name := range s.names {
		col := s.cols[name]
		writeString(name)
		buf.WriteByte(byte(col.typ))
		switch col.typ {
		case Float64:
			var b [8]byte
			for _, v := range col.f64 {
				le.PutUint64(b[:], math.Float64bits(v))
				buf.Write(b[:])
			}
		case Float32:
			var b [4]byte
			for _, v := range col.f32 {
				le.PutUint32(b[:], math.Float32bits(v))
				buf.Write(b[:])
			}
		case Uint32:
			var b [4]byte
			for _, v := range col.u32 {
				le.PutUint32(b[:], v)
				buf.Write(b[:])
			}
		case Uint8:
			buf.Write(col.u8)
		}
	}
	return fsutil.WriteFileAtomic(c.fs(), path, buf.Bytes(), 0o644)
}

// ReadTile deserialises a store written by WriteTile.
func (c Codec) ReadTile(path string) (*Store, error) {
	data, err := c.fs().ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tile %s: %w", path, err)
	}
	le := binary.LittleEndian
	if len(data) < 18 || string(data[:4]) != codecMagic {
		return nil, fmt.Errorf("tile %s: not a %s file", path, codecMagic)
	}
	off := 4
	version := le.Uint16(data[off : off+2])
	if version != codecVersion {
		return nil, fmt.Errorf("tile %s: unsupported codec version %d", path, version)
	}
	off += 2
	crs := int(int32(le.Uint32(data[off : off+4])))
	off += 4
	n := int(le.Uint32(data[off : off+4]))
	off += 4
	ndims := int(le.Uint32(data[off : off+4]))
	off += 4

	readString := func() (string, error) {
		if off+2 > len(data) {
			return "", fmt.Errorf("tile %s: truncated", path)
		}
		l := int(le.Uint16(data[off : off+2]))
		off += 2
		if off+l > len(data) {
			return "", fmt.Errorf("tile %s: truncated", path)
		}
		v := string(data[off : off+l])
		off += l
		return v, nil
	}

	s := NewStore(n, crs)
	if s.SourceVersion, err = readString(); err != nil {
		return nil, err
	}

	for d := 0; d < ndims; d++ {
		name, err := readString()
		if err != nil {
			return nil, err
		}
		if off >= len(data) {
			return nil, fmt.Errorf("tile %s: truncated", path)
		}
		typ := DimType(data[off])
		off++
		s.AddDimension(name, typ)
		col := s.cols[name]
		switch typ {
		case Float64:
			need := n * 8
			if off+need > len(data) {
				return nil, fmt.Errorf("tile %s: truncated column %s", path, name)
			}
			for i := 0; i < n; i++ {
				col.f64[i] = math.Float64frombits(le.Uint64(data[off : off+8]))
				off += 8
			}
		case Float32:
			need := n * 4
			if off+need > len(data) {
				return nil, fmt.Errorf("tile %s: truncated column %s", path, name)
			}
			for i := 0; i < n; i++ {
				col.f32[i] = math.Float32frombits(le.Uint32(data[off : off+4]))
				off += 4
			}
		case Uint32:
			need := n * 4
			if off+need > len(data) {
				return nil, fmt.Errorf("tile %s: truncated column %s", path, name)
			}
			for i := 0; i < n; i++ {
				col.u32[i] = le.Uint32(data[off : off+4])
				off += 4
			}
		case Uint8:
			if off+n > len(data) {
				return nil, fmt.Errorf("tile %s: truncated column %s", path, name)
			}
			copy(col.u8, data[off:off+n])
			off += n
		default:
			return nil, fmt.Errorf("tile %s: unknown column type %d for %s", path, typ, name)
		}
	}
	return s, nil
}

// TileExt is the extension handled by the default codec.
const TileExt = ".btl"

// ReaderFor selects a TileReader by file extension.
func ReaderFor(path string) (TileReader, error) {
	if filepath.Ext(path) == TileExt {
		return NewCodec(), nil
	}
	return nil, fmt.Errorf("no tile reader registered for %s", filepath.Ext(path))
}

// WriterFor selects a TileWriter by file extension.
func WriterFor(path string) (TileWriter, error) {
	if filepath.Ext(path) == TileExt {
		return NewCodec(), nil
	}
	return nil, fmt.Errorf("no tile writer registered for %s", filepath.Ext(path))
}
