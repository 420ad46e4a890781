package semkitti

import (
	_ "embed"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/bbejczy/polarseg-kitti/internal/fsutil"
)

//go:embed semantic-kitti.yaml
var defaultLabelMapYAML []byte

// MappingError reports a class ID with no dictionary entry. This never
// happens on well-formed data; an occurrence means the label stream or the
// prediction path is corrupt, so callers treat it as fatal for the scan.
type MappingError struct {
	Label uint32
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("no label map entry for class %d", e.Label)
}

// LabelMap is the bidirectional dictionary between raw SemanticKITTI class
// IDs (sparse, what label files and the scorer use) and dense training class
// IDs (what the network predicts over). Loaded once, read-only afterwards,
// safe for concurrent use.
type LabelMap struct {
	toInternal  map[uint32]uint32 // raw -> training
	toExternal  map[uint32]uint32 // training -> raw
	externalSet map[uint32]bool   // raw IDs reachable through toExternal
	names       map[uint32]string // raw -> name
	ignored     map[uint32]bool   // training IDs excluded from scoring
}

// labelMapFile mirrors the dictionary YAML structure.
type labelMapFile struct {
	Labels         map[uint32]string `yaml:"labels"`
	LearningMap    map[uint32]uint32 `yaml:"learning_map"`
	LearningMapInv map[uint32]uint32 `yaml:"learning_map_inv"`
	LearningIgnore map[uint32]bool   `yaml:"learning_ignore"`
}

// LoadLabelMap reads a semantic-kitti dictionary YAML from path.
func LoadLabelMap(fsys fsutil.FileSystem, path string) (*LabelMap, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read label map %s: %w", path, err)
	}
	lm, err := parseLabelMap(data)
	if err != nil {
		return nil, fmt.Errorf("parse label map %s: %w", path, err)
	}
	return lm, nil
}

// DefaultLabelMap returns the embedded SemanticKITTI dictionary. The embedded
// copy is validated by tests, so decode failures cannot happen at runtime.
func DefaultLabelMap() *LabelMap {
	lm, err := parseLabelMap(defaultLabelMapYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded label map is invalid: %v", err))
	}
	return lm
}

func parseLabelMap(data []byte) (*LabelMap, error) {
	var f labelMapFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	if len(f.LearningMap) == 0 {
		return nil, fmt.Errorf("dictionary has no learning_map entries")
	}
	if len(f.LearningMapInv) == 0 {
		return nil, fmt.Errorf("dictionary has no learning_map_inv entries")
	}

	// Every training ID that learning_map produces must be invertible,
	// otherwise the submission path would hit a dead end.
	for raw, train := range f.LearningMap {
		if _, ok := f.LearningMapInv[train]; !ok {
			return nil, fmt.Errorf("training class %d (from raw %d) has no learning_map_inv entry", train, raw)
		}
	}

	externalSet := make(map[uint32]bool, len(f.LearningMapInv))
	for _, raw := range f.LearningMapInv {
		externalSet[raw] = true
	}

	return &LabelMap{
		toInternal:  f.LearningMap,
		toExternal:  f.LearningMapInv,
		externalSet: externalSet,
		names:       f.Labels,
		ignored:     f.LearningIgnore,
	}, nil
}

// ToInternal maps a raw class ID to its dense training class.
func (m *LabelMap) ToInternal(raw uint32) (uint32, error) {
	v, ok := m.toInternal[raw]
	if !ok {
		return 0, &MappingError{Label: raw}
	}
	return v, nil
}

// ToExternal maps a dense training class back to its representative raw ID.
func (m *LabelMap) ToExternal(internal uint32) (uint32, error) {
	v, ok := m.toExternal[internal]
	if !ok {
		return 0, &MappingError{Label: internal}
	}
	return v, nil
}

// MapToInternal converts a raw label slice to training classes. Fails on the
// first unmapped value.
func (m *LabelMap) MapToInternal(raw PointLabels) (PointLabels, error) {
	out := make(PointLabels, len(raw))
	for i, v := range raw {
		mapped, err := m.ToInternal(v)
		if err != nil {
			return nil, fmt.Errorf("point %d: %w", i, err)
		}
		out[i] = mapped
	}
	return out, nil
}

// MapToExternal converts training classes to raw IDs for submission. Fails on
// the first unmapped value.
func (m *LabelMap) MapToExternal(internal PointLabels) (PointLabels, error) {
	out := make(PointLabels, len(internal))
	for i, v := range internal {
		mapped, err := m.ToExternal(v)
		if err != nil {
			return nil, fmt.Errorf("point %d: %w", i, err)
		}
		out[i] = mapped
	}
	return out, nil
}

// InternalClasses returns all training class IDs in ascending order,
// including the ignore class.
func (m *LabelMap) InternalClasses() []uint32 {
	out := make([]uint32, 0, len(m.toExternal))
	for v := range m.toExternal {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// NumClasses is the training class count including the ignore class.
func (m *LabelMap) NumClasses() int {
	return len(m.toExternal)
}

// IsValidExternal reports whether v is a raw ID the dictionary can produce.
// The submission validator uses this as the permitted value set.
func (m *LabelMap) IsValidExternal(v uint32) bool {
	return m.externalSet[v]
}

// IsIgnored reports whether a training class is excluded from scoring.
func (m *LabelMap) IsIgnored(internal uint32) bool {
	return m.ignored[internal]
}

// Name returns the human-readable name of a raw class ID, or "" when unknown.
func (m *LabelMap) Name(raw uint32) string {
	return m.names[raw]
}

// NameOfInternal resolves a training class to its representative raw name.
func (m *LabelMap) NameOfInternal(internal uint32) string {
	raw, ok := m.toExternal[internal]
	if !ok {
		return ""
	}
	return m.names[raw]
}
