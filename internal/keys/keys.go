// Package keys derives backing-store keys for cached materializations.
package keys

// For returns the storage key for one (version, subject type, pk) triple.
// The namespace prefix keeps the library's keyspace disjoint from unrelated
// application keys; the fixed ":" delimiter makes the mapping injective for
// identifier-shaped inputs (subject types and pks must not contain ":").
func For(namespace, version, subjectType, pk string) string {
	return namespace + ":" + version + ":" + subjectType + ":" + pk
}
