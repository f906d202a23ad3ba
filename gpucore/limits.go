package gpucore

import (
	"fmt"
	"strings"
)

// FeatureLevel is the capability tier of a device.
type FeatureLevel uint16

// Feature levels, ordered from least to most capable.
const (
	FeatureLevel9_1  FeatureLevel = 0x9100
	FeatureLevel9_2  FeatureLevel = 0x9200
	FeatureLevel9_3  FeatureLevel = 0x9300
	FeatureLevel10_0 FeatureLevel = 0xa000
	FeatureLevel10_1 FeatureLevel = 0xa100
	FeatureLevel11_0 FeatureLevel = 0xb000
	FeatureLevel11_1 FeatureLevel = 0xb100
)

// Slot counts at feature level 10_0 and above.
const (
	MaxConstantBufferSlots = 14
	MaxSamplerSlots        = 16
	MaxResourceViewSlots   = 128
)

// String returns the string representation of FeatureLevel, e.g. "11_0".
func (f FeatureLevel) String() string {
	return fmt.Sprintf("%d_%d", f>>12, (f>>8)&0xf)
}

// ParseFeatureLevel parses "11_0", "11.0" or "10_1" style names.
func ParseFeatureLevel(s string) (FeatureLevel, error) {
	name := strings.ReplaceAll(strings.TrimSpace(s), ".", "_")
	for _, f := range []FeatureLevel{
		FeatureLevel9_1, FeatureLevel9_2, FeatureLevel9_3,
		FeatureLevel10_0, FeatureLevel10_1,
		FeatureLevel11_0, FeatureLevel11_1,
	} {
		if f.String() == name {
			return f, nil
		}
	}
	return 0, fmt.Errorf("gpucore: unknown feature level %q", s)
}

// StageLimits holds the slot counts of one shader stage.
type StageLimits struct {
	ConstantBuffers int
	Samplers        int
	ResourceViews   int
}

// Limits returns the slot counts of stage at this feature level.
//
// Below 10_0 the vertex stage has constant buffers only and the geometry,
// hull, domain and compute stages do not exist. Hull and domain appear at
// 11_0.
func (f FeatureLevel) Limits(stage ShaderStage) StageLimits {
	full := StageLimits{
		ConstantBuffers: MaxConstantBufferSlots,
		Samplers:        MaxSamplerSlots,
		ResourceViews:   MaxResourceViewSlots,
	}
	switch stage {
	case StagePixel:
		return full
	case StageVertex:
		if f < FeatureLevel10_0 {
			return StageLimits{ConstantBuffers: MaxConstantBufferSlots}
		}
		return full
	case StageGeometry, StageCompute:
		if f < FeatureLevel10_0 {
			return StageLimits{}
		}
		return full
	case StageHull, StageDomain:
		if f < FeatureLevel11_0 {
			return StageLimits{}
		}
		return full
	default:
		return StageLimits{}
	}
}
