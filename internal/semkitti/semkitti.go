// Package semkitti implements the SemanticKITTI dataset conventions: raw
// velodyne scan records, label file encoding, the learning-class dictionary,
// and the sequences/frames directory layout used by the external scorer.
package semkitti

// Point is one velodyne return. Coordinates are sensor-frame metres,
// reflectance is the raw remission value in [0, 1].
type Point struct {
	X           float32
	Y           float32
	Z           float32
	Reflectance float32
}

// PointCloud is the ordered point sequence of one scan. Order matters: label
// files are index-aligned with it and the scorer compares them positionally.
type PointCloud []Point

// PointLabels carries one class ID per point, index-aligned with the
// PointCloud it was derived from.
type PointLabels []uint32

// ShiftUp moves every label up by one class slot. The network predicts over
// the dense training classes with the ignore class removed, so slot 0 of the
// prediction axis is training class 1. Returns a new slice.
func (l PointLabels) ShiftUp() PointLabels {
	out := make(PointLabels, len(l))
	for i, v := range l {
		out[i] = v + 1
	}
	return out
}

// ShiftDown is the inverse of ShiftUp. Class 0 stays 0: it is the ignore
// class in both numberings and has no slot below it.
func (l PointLabels) ShiftDown() PointLabels {
	out := make(PointLabels, len(l))
	for i, v := range l {
		if v > 0 {
			out[i] = v - 1
		}
	}
	return out
}
