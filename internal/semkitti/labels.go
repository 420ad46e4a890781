package semkitti

import (
	"encoding/binary"
	"fmt"

	"github.com/bbejczy/polarseg-kitti/internal/fsutil"
)

// Label file format constants. A .label file is a flat array of little-endian
// uint32 values, one per scan point, in scan order. The lower 16 bits carry
// the semantic class, the upper 16 bits an instance ID.
const (
	LABEL_RECORD_SIZE = 4 // bytes per label value
	SEMANTIC_MASK     = 0x0000FFFF
)

// Semantic extracts the semantic class from a raw label value.
func Semantic(v uint32) uint32 {
	return v & SEMANTIC_MASK
}

// Instance extracts the instance ID from a raw label value.
func Instance(v uint32) uint32 {
	return v >> 16
}

// ParseLabels decodes a raw .label payload into per-point label values.
// Values keep their instance bits; use Semantic to strip them.
func ParseLabels(data []byte) (PointLabels, error) {
	if len(data)%LABEL_RECORD_SIZE != 0 {
		return nil, fmt.Errorf("invalid label size: %d bytes is not a multiple of %d-byte records", len(data), LABEL_RECORD_SIZE)
	}

	n := len(data) / LABEL_RECORD_SIZE
	labels := make(PointLabels, n)
	for i := 0; i < n; i++ {
		labels[i] = binary.LittleEndian.Uint32(data[i*LABEL_RECORD_SIZE:])
	}
	return labels, nil
}

// EncodeLabels serializes labels in the .label wire layout.
func EncodeLabels(labels PointLabels) []byte {
	out := make([]byte, len(labels)*LABEL_RECORD_SIZE)
	for i, v := range labels {
		binary.LittleEndian.PutUint32(out[i*LABEL_RECORD_SIZE:], v)
	}
	return out
}

// ReadLabels loads one label file and strips instance bits, returning the
// per-point semantic classes in scan order.
func ReadLabels(fsys fsutil.FileSystem, path string) (PointLabels, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read labels %s: %w", path, err)
	}
	raw, err := ParseLabels(data)
	if err != nil {
		return nil, fmt.Errorf("parse labels %s: %w", path, err)
	}
	for i, v := range raw {
		raw[i] = Semantic(v)
	}
	return raw, nil
}
