// Package sim provides the round-based merge queue simulation engine.
//
// # Reading Guide
//
// Start with these files to understand the simulation kernel:
//   - job.go: Job lifecycle (admitted → restarted* → merged | lost)
//   - queue.go: QueueState, the ordered resident jobs and their speculative dependencies
//   - simulator.go: Trial, the round scheduler that drives one capacity trial
//
// # Model
//
// Every resident job builds concurrently for one job duration per round. Each
// job's build includes the commits of all jobs ahead of it, so when the
// FailureInjector fails the job at position p, that job is lost and every job
// after it restarts with a dependency set rebuilt from the surviving prefix.
// Jobs ahead of the failure merge according to the GraduationPolicy. The
// AdmissionController then refills freed slots, optionally withholding some
// to model entry backpressure. The StatsAggregator integrates occupancy over
// time and cross-checks the direct wait measurements against Little's Law.
//
// # Key Interfaces
//
//   - RandomSource: the only source of nondeterminism
//   - AdmissionPolicy: how many freed slots may be filled this round
//
// The capacity sweep across trials lives in sim/sweep, and optional
// per-round records in sim/trace.
package sim
