package sqlgen

import "github.com/dchest/siphash"

// fingerprintK0/fingerprintK1 are fixed siphash keys: the determinism
// property (§5, §8.3) requires compile(x) = compile(x) byte-for-byte,
// which in turn requires Fingerprint to be a pure function of its input
// with no per-process randomness, so the keys are baked in rather than
// generated at runtime.
const (
	fingerprintK0 = 0x9f5a2c1bd4e67f80
	fingerprintK1 = 0x1e3c5a7b9d0f2468
)

// Fingerprint returns a stable 64-bit digest of a generated SQL
// statement, following the same siphash.Hash(k0, k1, data) call the
// reference corpus's literal-redaction code uses for stable hashing.
// Two compilations of the same (FHIRPath/ViewDefinition,
// dialect, choice-type map) input must fingerprint identically; this is
// exercised directly by the determinism property test.
func Fingerprint(sql string) uint64 {
	return siphash.Hash(fingerprintK0, fingerprintK1, []byte(sql))
}
