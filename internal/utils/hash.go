package utils

import "hash/fnv"

// HashStringToUint64 is the shared fnv-1a hash behind embedding content
// hashes and the mock provider's per-text seeds. Not cryptographic.
func HashStringToUint64(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return h.Sum64()
}
