package index

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
)

// On-disk layout, little endian:
//
//	magic   [6]byte  "DSFL2\x00"
//	version uint16
//	build   [16]byte uuid shared with the chunk list of the same build
//	dim     uint32
//	count   uint64
//	data    count*dim float32
var magic = [6]byte{'D', 'S', 'F', 'L', '2', 0}

const (
	fileVersion  uint16 = 1
	maxDimension        = 1 << 16
)

type fileHeader struct {
	Magic   [6]byte
	Version uint16
	BuildID [16]byte
	Dim     uint32
	Count   uint64
}

// WriteTo serializes the index stamped with buildID.
func (f *FlatL2) WriteTo(w io.Writer, buildID uuid.UUID) error {
	bw := bufio.NewWriter(w)
	hdr := fileHeader{
		Magic:   magic,
		Version: fileVersion,
		BuildID: buildID,
		Dim:     uint32(f.dim),
		Count:   uint64(f.Len()),
	}
	if err := binary.Write(bw, binary.LittleEndian, &hdr); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := binary.Write(bw, binary.LittleEndian, f.data); err != nil {
		return fmt.Errorf("write vectors: %w", err)
	}
	return bw.Flush()
}

// ReadFrom deserializes an index written by WriteTo and returns its build ID.
func ReadFrom(r io.Reader) (*FlatL2, uuid.UUID, error) {
	br := bufio.NewReader(r)

	var hdr fileHeader
	if err := binary.Read(br, binary.LittleEndian, &hdr); err != nil {
		return nil, uuid.Nil, fmt.Errorf("%w: header: %v", ErrBadIndexFile, err)
	}
	if hdr.Magic != magic {
		return nil, uuid.Nil, fmt.Errorf("%w: bad magic", ErrBadIndexFile)
	}
	if hdr.Version != fileVersion {
		return nil, uuid.Nil, fmt.Errorf("%w: unsupported version %d", ErrBadIndexFile, hdr.Version)
	}
	if hdr.Dim == 0 || hdr.Dim > maxDimension {
		return nil, uuid.Nil, fmt.Errorf("%w: dimension %d", ErrBadIndexFile, hdr.Dim)
	}

	f := NewFlatL2(int(hdr.Dim))
	row := make([]float32, hdr.Dim)
	for i := uint64(0); i < hdr.Count; i++ {
		if err := binary.Read(br, binary.LittleEndian, row); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil, uuid.Nil, fmt.Errorf("%w: truncated at vector %d of %d", ErrBadIndexFile, i, hdr.Count)
			}
			return nil, uuid.Nil, fmt.Errorf("read vector %d: %w", i, err)
		}
		f.data = append(f.data, row...)
	}

	return f, uuid.UUID(hdr.BuildID), nil
}

// Load reads an index file from path.
func Load(path string) (*FlatL2, uuid.UUID, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, uuid.Nil, fmt.Errorf("open index: %w", err)
	}
	defer file.Close()

	f, id, err := ReadFrom(file)
	if err != nil {
		return nil, uuid.Nil, fmt.Errorf("load %s: %w", path, err)
	}
	return f, id, nil
}
