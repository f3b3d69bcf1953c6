package testutil

import "fmt"

// ScriptedSource replays a fixed sequence of draws. It panics when a script
// runs out, so a test fails loudly if the engine draws more than expected.
type ScriptedSource struct {
	Floats []float64
	Ints   []int
}

// Float64 returns the next scripted real.
func (s *ScriptedSource) Float64() float64 {
	if len(s.Floats) == 0 {
		panic("ScriptedSource: Float64 script exhausted")
	}
	v := s.Floats[0]
	s.Floats = s.Floats[1:]
	return v
}

// Intn returns the next scripted integer, which must lie in [0,n).
func (s *ScriptedSource) Intn(n int) int {
	if len(s.Ints) == 0 {
		panic("ScriptedSource: Intn script exhausted")
	}
	v := s.Ints[0]
	s.Ints = s.Ints[1:]
	if v < 0 || v >= n {
		panic(fmt.Sprintf("ScriptedSource: scripted Intn value %d outside [0,%d)", v, n))
	}
	return v
}

// Remaining returns how many scripted draws are left.
func (s *ScriptedSource) Remaining() (floats, ints int) {
	return len(s.Floats), len(s.Ints)
}

// ConstantSource returns the same real for every Float64 draw and 0 for Intn.
type ConstantSource float64

func (c ConstantSource) Float64() float64 { return float64(c) }

func (c ConstantSource) Intn(int) int { return 0 }
