// Package bank loads the pattern-bank archive: two 4-D int32 arrays of
// shape (9,7,16,3) giving the per-(ipt,ieta,layer) pattern-x window and the
// expected inter-layer phi offsets used by road slimming. The bank is a
// process-lifetime, read-only input artifact; a missing or
// shape-mismatched file is configuration-fatal.
package bank

import (
	"encoding/binary"
	"os"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/golang/snappy"
	"github.com/pkg/errors"
	"github.com/rawblock/emtf-trigger/internal/geometry"
)

const (
	nPt     = geometry.NPt
	nEta    = geometry.NEta
	nLayers = geometry.NLayers
	nVars   = 3

	entriesPerArray = nPt * nEta * nLayers * nVars
	bytesPerArray   = entriesPerArray * 4
)

// Bank holds the two pattern arrays as flat, row-major buffers with
// explicit stride arithmetic.
type Bank struct {
	X []int32 // patterns_phi: (x_lo, x_mid, x_hi) windows
	Z []int32 // patterns_match: prim_match_lut lives at Z[...,1]

	// ContentHash is a SHA-256d digest of the raw (pre-decompression) bank
	// bytes, stored alongside run metadata so a query can confirm which
	// bank version produced a given run's tracks.
	ContentHash [32]byte
}

func idx(ipt, ieta, layer, v int) int {
	return ((ipt*nEta+ieta)*nLayers+layer)*nVars + v
}

// XAt returns (x_lo, x_mid, x_hi) for a (ipt, ieta, layer) pattern cell.
func (b *Bank) XAt(ipt, ieta, layer int) (lo, mid, hi int32) {
	i := idx(ipt, ieta, layer, 0)
	return b.X[i], b.X[i+1], b.X[i+2]
}

// PrimMatch returns prim_match_lut[layer] for a given (ipt, ieta): the
// expected signed phi offset of that layer from the anchor layer.
func (b *Bank) PrimMatch(ipt, ieta, layer int) int32 {
	return b.Z[idx(ipt, ieta, layer, 1)]
}

// Load reads a snappy-compressed bank archive from disk. The archive is the
// raw concatenation of the X array then the Z array, both little-endian
// int32, each of length 9*7*16*3. A missing file, a decompression failure,
// or a length mismatch is configuration-fatal.
func Load(path string) (*Bank, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read pattern bank %q", path)
	}
	hash := chainhash.HashB(raw)

	data, err := snappy.Decode(nil, raw)
	if err != nil {
		return nil, errors.Wrapf(err, "snappy-decode pattern bank %q", path)
	}
	if len(data) != 2*bytesPerArray {
		return nil, errors.Errorf("pattern bank %q: want %d bytes, got %d", path, 2*bytesPerArray, len(data))
	}

	b := &Bank{
		X: make([]int32, entriesPerArray),
		Z: make([]int32, entriesPerArray),
	}
	copy(b.ContentHash[:], hash)
	decodeInt32LE(data[:bytesPerArray], b.X)
	decodeInt32LE(data[bytesPerArray:], b.Z)
	return b, nil
}

// FromArrays builds a Bank directly from in-memory flat arrays, bypassing
// the file format — used by tests and by offline bank-building tools.
func FromArrays(x, z []int32) (*Bank, error) {
	if len(x) != entriesPerArray || len(z) != entriesPerArray {
		return nil, errors.Errorf("pattern bank arrays: want length %d, got x=%d z=%d", entriesPerArray, len(x), len(z))
	}
	b := &Bank{X: append([]int32(nil), x...), Z: append([]int32(nil), z...)}
	return b, nil
}

func decodeInt32LE(src []byte, dst []int32) {
	for i := range dst {
		dst[i] = int32(binary.LittleEndian.Uint32(src[i*4:]))
	}
}
