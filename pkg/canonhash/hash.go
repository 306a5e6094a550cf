package canonhash

import (
	"crypto/sha256"
	"encoding/hex"
)

// SelfHashField is the conventional field name artifacts use to carry
// their own canonical hash, nulled out before the hash is computed over
// them.
const SelfHashField = "canonical_json_hash"

// SHA256Hex returns the lowercase hex-encoded SHA-256 digest of b.
func SHA256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// CanonicalHash returns the SHA-256 hex digest of v's canonical byte
// encoding.
func CanonicalHash(v Value) string {
	return SHA256Hex(CanonicalBytes(v))
}

// HashExcludingFields computes the canonical hash of obj after setting
// each name in fields to null, without mutating the caller's map. This is
// the general form of the self-hash-null pattern: hash the artifact as it
// will be stored, but with its own hash field(s) blanked so the hash does
// not depend on itself.
func HashExcludingFields(obj map[string]Value, fields ...string) string {
	cp := make(map[string]Value, len(obj))
	for k, v := range obj {
		cp[k] = v
	}
	for _, f := range fields {
		cp[f] = Null()
	}
	return CanonicalHash(Value{kind: KindObject, obj: cp})
}

// HashForArtifact computes an artifact's canonical hash the way every
// stage builder does: null out canonical_json_hash, hash the rest.
func HashForArtifact(obj map[string]Value) string {
	return HashExcludingFields(obj, SelfHashField)
}

// InjectSelfHash returns a new object equal to obj but with field set to
// the canonical hash of obj-with-field-nulled. The caller's map is never
// mutated. This mirrors the canonicalize-then-inject pattern used
// throughout the pipeline: every artifact is hashed as if its own hash
// field were absent, then the computed digest is attached.
func InjectSelfHash(obj map[string]Value, field string) (map[string]Value, string) {
	digest := HashExcludingFields(obj, field)
	out := make(map[string]Value, len(obj)+1)
	for k, v := range obj {
		out[k] = v
	}
	out[field] = Str(digest)
	return out, digest
}

// HashConcat hashes the concatenation of one or more hex digest strings,
// used to compose lineage hashes from several upstream artifact hashes
// (e.g. binding_hash over plan_hash + ledger_hash).
func HashConcat(hexDigests ...string) string {
	var buf []byte
	for _, h := range hexDigests {
		buf = append(buf, []byte(h)...)
	}
	return SHA256Hex(buf)
}
