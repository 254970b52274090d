// Package constants holds the externally-visible constants fixed at build
// time per the coordinator's external interface contract.
package constants

import "encoding/binary"

const (
	// MapSize is the size in bytes of the fuzzer's coverage bitmap and the
	// basic-block counter map.
	MapSize = 65536

	// ShowmapTimeoutSec bounds a single afl-showmap invocation.
	ShowmapTimeoutSec = 10

	// ConcolicTimeoutSec bounds a single concolic-binary invocation, on top
	// of the `timeout -k 5` wrapper.
	ConcolicTimeoutSec = 90

	// SolverTimeoutMS bounds a single SMT solver query, in milliseconds.
	SolverTimeoutMS = 5000

	// BitVecWidth is the bitvector width used when box-optimizing solver
	// variables.
	BitVecWidth = 8

	// CandidateNum is the maximum number of addresses contributed to one
	// round's candidate mapping.
	CandidateNum = 8

	// CrackSeedMax is the maximum number of seeds picked per address per
	// round.
	CrackSeedMax = 3

	// CrackUpperLimit bounds how many times a single address may be cracked
	// across the whole run.
	CrackUpperLimit = 5

	// RandSolveNum bounds how many seeds the random-solve fallback
	// concolic-solves per round.
	RandSolveNum = 3

	// DefaultSamplerNum is the number of points drawn per polytope per
	// constraint.
	DefaultSamplerNum = 8

	// CurInput is the fixed path the concolic binary's solve mode reads its
	// input from.
	CurInput = "cur_input"
)

// ByteOrder is the fixed (implementation-defined) endianness used to decode
// 4-byte basic-block counters into integers.
var ByteOrder = binary.LittleEndian
