// Package pack enumerates the object hashes listed in pack index (.idx) files.
package pack

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"github.com/go-git/go-git/v5/plumbing/format/idxfile"
)

var ErrMalformedPackIndex = errors.New("malformed pack index")

// Signature opens every pack index.
var Signature = [4]byte{0xff, 't', 'O', 'c'}

const (
	hashSize   = 20
	entrySize  = hashSize + 4 + 4
	headerSize = 4 + 4 + 4

	fanoutSize    = 256 * 4
	v2HeaderSize  = 4 + 4 + fanoutSize
	v2TrailerSize = 2 * hashSize
)

// Entry is one record of a flat pack index.
type Entry struct {
	Hash   [hashSize]byte
	Offset uint32
	CRC32  uint32
}

func (e Entry) String() string {
	return hex.EncodeToString(e.Hash[:])
}

// Parse decodes a flat pack index: signature, version, big-endian entry count,
// then count records of hash, offset and crc with no padding between them.
func Parse(r io.Reader) ([]string, error) {
	var header [headerSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, fmt.Errorf("%w: reading header: %v", ErrMalformedPackIndex, err)
	}
	if !bytes.Equal(header[:4], Signature[:]) {
		return nil, fmt.Errorf("%w: bad signature %x", ErrMalformedPackIndex, header[:4])
	}
	count := binary.BigEndian.Uint32(header[8:12])

	hashes := make([]string, 0, min(count, 1<<16))
	var buf [entrySize]byte
	for i := uint32(0); i < count; i++ {
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return nil, fmt.Errorf("%w: entry %d of %d: %v", ErrMalformedPackIndex, i, count, err)
		}
		var e Entry
		copy(e.Hash[:], buf[:hashSize])
		e.Offset = binary.BigEndian.Uint32(buf[hashSize:])
		e.CRC32 = binary.BigEndian.Uint32(buf[hashSize+4:])
		hashes = append(hashes, e.String())
	}
	return hashes, nil
}

// Hashes decodes a whole index file. Files laid out like a real version 2 index
// (fanout table, separate hash, crc and offset tables) are read with go-git's
// decoder; anything else goes through Parse.
func Hashes(data []byte) ([]string, error) {
	if isV2(data) {
		if hashes, err := decodeV2(data); err == nil {
			return hashes, nil
		}
	}
	return Parse(bytes.NewReader(data))
}

func isV2(data []byte) bool {
	if len(data) < v2HeaderSize+v2TrailerSize || !bytes.Equal(data[:4], Signature[:]) {
		return false
	}
	if binary.BigEndian.Uint32(data[4:8]) != 2 {
		return false
	}
	var prev uint32
	for i := 0; i < 256; i++ {
		n := binary.BigEndian.Uint32(data[8+i*4:])
		if n < prev {
			return false
		}
		prev = n
	}
	objects := int64(prev)
	rest := int64(len(data)) - v2HeaderSize - v2TrailerSize - objects*entrySize
	return rest >= 0 && rest%8 == 0
}

func decodeV2(data []byte) ([]string, error) {
	idx := idxfile.NewMemoryIndex()
	if err := idxfile.NewDecoder(bytes.NewReader(data)).Decode(idx); err != nil {
		return nil, err
	}
	iter, err := idx.Entries()
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var hashes []string
	for {
		e, err := iter.Next()
		if err == io.EOF {
			return hashes, nil
		}
		if err != nil {
			return nil, err
		}
		hashes = append(hashes, e.Hash.String())
	}
}
