package indexcache

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"strings"
)

// ContentHash returns the lowercase hex SHA-256 of data.
func ContentHash(data []byte) string {
	return fmt.Sprintf("%x", sha256.Sum256(data))
}

// CombinedHash digests hashes in the order given. Callers fix the order (label
// order for the all-documents aggregate) so the digest is reproducible.
func CombinedHash(hashes []string) string {
	return ContentHash([]byte(strings.Join(hashes, "\n")))
}

// PairKey returns the cache key for a two-document aggregate. The key does not
// depend on argument order.
func PairKey(hashA, hashB string) string {
	pair := []string{hashA, hashB}
	sort.Strings(pair)
	return PairKeyPrefix + CombinedHash(pair)
}

// SelectionKey returns the cache key for an aggregate over exactly the given
// member hashes, independent of their order.
func SelectionKey(hashes []string) string {
	sorted := append([]string(nil), hashes...)
	sort.Strings(sorted)
	return SelectionKeyPrefix + CombinedHash(sorted)
}
