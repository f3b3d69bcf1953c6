package sim

import (
	"fmt"
	"hash/fnv"
	"math/rand"
)

// RandomSource supplies every random draw the engine makes.
// *rand.Rand satisfies it; tests substitute scripted sources.
type RandomSource interface {
	// Float64 returns a uniform real in [0,1).
	Float64() float64
	// Intn returns a uniform integer in [0,n). Panics if n <= 0.
	Intn(n int) int
}

// === SimulationKey ===

// SimulationKey uniquely identifies a reproducible sweep.
// Two sweeps with the same SimulationKey and identical configuration
// MUST produce bit-for-bit identical results.
type SimulationKey int64

// NewSimulationKey creates a SimulationKey from a seed value.
func NewSimulationKey(seed int64) SimulationKey {
	return SimulationKey(seed)
}

// === Subsystem Constants ===

const (
	// SubsystemFailure is the RNG subsystem for failure injection draws.
	SubsystemFailure = "failure"

	// SubsystemAdmission is the RNG subsystem for admission-delay draws.
	SubsystemAdmission = "admission"
)

// SubsystemTrial returns the subsystem name for one stream of the trial at
// the given queue capacity. Each trial owns its streams, so trials can run
// in any order or in parallel without changing their results.
func SubsystemTrial(capacity int, subsystem string) string {
	return fmt.Sprintf("trial_%d/%s", capacity, subsystem)
}

// TrialStreams groups the independent random streams owned by one trial.
type TrialStreams struct {
	Failure   RandomSource
	Admission RandomSource
}

// === PartitionedRNG ===

// PartitionedRNG provides deterministic, isolated RNG instances per subsystem.
//
// Derivation formula: masterSeed XOR fnv1a64(subsystemName).
//
// Thread-safety: NOT thread-safe. Derive every trial's streams from a single
// goroutine before handing them to workers.
type PartitionedRNG struct {
	key        SimulationKey
	subsystems map[string]*rand.Rand
}

// NewPartitionedRNG creates a PartitionedRNG from a SimulationKey.
func NewPartitionedRNG(key SimulationKey) *PartitionedRNG {
	return &PartitionedRNG{
		key:        key,
		subsystems: make(map[string]*rand.Rand),
	}
}

// ForSubsystem returns a deterministically-seeded RNG for the named subsystem.
// The same subsystem name always returns the same *rand.Rand instance (cached).
// Never returns nil.
func (p *PartitionedRNG) ForSubsystem(name string) *rand.Rand {
	if rng, ok := p.subsystems[name]; ok {
		return rng
	}
	rng := rand.New(rand.NewSource(int64(p.key) ^ fnv1a64(name)))
	p.subsystems[name] = rng
	return rng
}

// ForTrial returns the failure and admission streams for the trial at capacity.
func (p *PartitionedRNG) ForTrial(capacity int) TrialStreams {
	return TrialStreams{
		Failure:   p.ForSubsystem(SubsystemTrial(capacity, SubsystemFailure)),
		Admission: p.ForSubsystem(SubsystemTrial(capacity, SubsystemAdmission)),
	}
}

// Key returns the SimulationKey used to create this PartitionedRNG.
func (p *PartitionedRNG) Key() SimulationKey {
	return p.key
}

// fnv1a64 computes a 64-bit FNV-1a hash of the input string.
func fnv1a64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64())
}
