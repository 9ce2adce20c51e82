package timeline

import (
	"sort"

	"splicer/internal/timecode"
)

// InstructionKind classifies a render instruction.
type InstructionKind int

const (
	KindPassthrough InstructionKind = iota
	KindTransition
	KindOverlay
	KindVolume
	KindGrade
)

func (k InstructionKind) String() string {
	switch k {
	case KindPassthrough:
		return "passthrough"
	case KindTransition:
		return "transition"
	case KindOverlay:
		return "overlay"
	case KindVolume:
		return "volume"
	case KindGrade:
		return "grade"
	default:
		return "unknown"
	}
}

// NoLane marks a layer that is not a video lane.
const NoLane = -1

// LayerInstruction parameterizes one layer for the span of its Instruction.
type LayerInstruction struct {
	Lane    int
	Overlay int
	Opacity *Ramp
	Volume  *Ramp
	Grade   *Grade
}

// Instruction is a time-scoped set of layer parameters.
type Instruction struct {
	Range  timecode.Range
	Kind   InstructionKind
	Layers []LayerInstruction
}

// Instructions returns every render instruction sorted by start time. Video
// instructions (passthrough and transition) tile [0, Duration) without gaps
// or overlaps; overlay, volume and grade instructions are layered above them.
func (c *Composition) Instructions() []Instruction {
	var out []Instruction
	for _, tr := range c.Transitions {
		out = append(out, Instruction{
			Range: tr.Range,
			Kind:  KindTransition,
			Layers: []LayerInstruction{
				{Lane: c.Clips[tr.Outgoing].Lane, Overlay: -1, Opacity: &Ramp{From: 1, To: 0, Range: tr.Range}},
				{Lane: c.Clips[tr.Incoming].Lane, Overlay: -1, Opacity: &Ramp{From: 0, To: 1, Range: tr.Range}},
			},
		})
	}
	out = append(out, c.passthroughs()...)
	for i, ov := range c.Overlays {
		out = append(out, Instruction{
			Range: ov.Range,
			Kind:  KindOverlay,
			Layers: []LayerInstruction{
				{Lane: NoLane, Overlay: i, Opacity: &Ramp{From: ov.Opacity, To: ov.Opacity, Range: ov.Range}},
			},
		})
	}
	for _, ramp := range c.AudioMix.Ramps {
		r := ramp
		out = append(out, Instruction{
			Range:  r.Range,
			Kind:   KindVolume,
			Layers: []LayerInstruction{{Lane: NoLane, Overlay: -1, Volume: &r}},
		})
	}
	if c.Grade != nil && c.Duration().Sign() > 0 {
		g := *c.Grade
		out = append(out, Instruction{
			Range:  c.Range(),
			Kind:   KindGrade,
			Layers: []LayerInstruction{{Lane: NoLane, Overlay: -1, Grade: &g}},
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if cmp := out[i].Range.Start.Cmp(out[j].Range.Start); cmp != 0 {
			return cmp < 0
		}
		return out[i].Kind < out[j].Kind
	})
	return out
}

// passthroughs fills the parts of each clip not covered by a transition with
// a full-opacity instruction on the clip's lane.
func (c *Composition) passthroughs() []Instruction {
	var out []Instruction
	for i, clip := range c.Clips {
		start := clip.Start
		end := clip.Range().End()
		for _, tr := range c.Transitions {
			if tr.Incoming == i {
				start = tr.Range.End()
			}
		}
		if !start.Less(end) {
			continue
		}
		rng := timecode.Range{Start: start, Duration: end.Sub(start)}
		out = append(out, Instruction{
			Range: rng,
			Kind:  KindPassthrough,
			Layers: []LayerInstruction{
				{Lane: clip.Lane, Overlay: -1, Opacity: &Ramp{From: 1, To: 1, Range: rng}},
			},
		})
	}
	return out
}

// TransitionInstructions returns only the cross-fade instructions.
func (c *Composition) TransitionInstructions() []Instruction {
	return c.filter(KindTransition)
}

func (c *Composition) filter(kind InstructionKind) []Instruction {
	var out []Instruction
	for _, in := range c.Instructions() {
		if in.Kind == kind {
			out = append(out, in)
		}
	}
	return out
}
