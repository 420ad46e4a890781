package semkitti

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/bbejczy/polarseg-kitti/internal/fsutil"
)

// Velodyne scan file format constants. A .bin scan is a flat array of
// little-endian float32 records with no header or padding.
const (
	SCAN_RECORD_SIZE   = 16 // bytes per point: 4 float32 fields
	SCAN_FIELDS        = 4  // x, y, z, reflectance
	SCAN_FLOAT32_BYTES = 4
)

// ParseScan decodes a raw velodyne .bin payload into a PointCloud. The byte
// length must be an exact multiple of the record size; a trailing partial
// record means the file is truncated or not a scan at all.
func ParseScan(data []byte) (PointCloud, error) {
	if len(data)%SCAN_RECORD_SIZE != 0 {
		return nil, fmt.Errorf("invalid scan size: %d bytes is not a multiple of %d-byte records", len(data), SCAN_RECORD_SIZE)
	}

	n := len(data) / SCAN_RECORD_SIZE
	cloud := make(PointCloud, n)
	for i := 0; i < n; i++ {
		off := i * SCAN_RECORD_SIZE
		cloud[i] = Point{
			X:           float32FromLE(data[off:]),
			Y:           float32FromLE(data[off+4:]),
			Z:           float32FromLE(data[off+8:]),
			Reflectance: float32FromLE(data[off+12:]),
		}
	}
	return cloud, nil
}

// ReadScan loads and decodes one scan file.
func ReadScan(fsys fsutil.FileSystem, path string) (PointCloud, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scan %s: %w", path, err)
	}
	cloud, err := ParseScan(data)
	if err != nil {
		return nil, fmt.Errorf("parse scan %s: %w", path, err)
	}
	return cloud, nil
}

// PointCapacity reports how many points a scan file of size bytes holds, or
// an error for sizes that cannot be a whole number of records. The validator
// uses this to derive expected label counts without decoding whole scans.
func PointCapacity(size int64) (int, error) {
	if size%SCAN_RECORD_SIZE != 0 {
		return 0, fmt.Errorf("invalid scan size: %d bytes is not a multiple of %d-byte records", size, SCAN_RECORD_SIZE)
	}
	return int(size / SCAN_RECORD_SIZE), nil
}

func float32FromLE(b []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}
