// Package matcache is a read/write-through cache for derived representations
// ("materializations") of authoritative records, sitting between an
// application and a slower backing store.
//
// Components:
//   - Provider: batched byte store (e.g. Redis, Ristretto, BigCache, sturdyc).
//   - Materializer: per (subject type, version) Load/Serialize/Invalidate triple.
//   - field.Registry: type-tagged codecs making dates, timestamps and
//     references round-trip through the JSON-only persisted form.
//
// A cache declares a fixed set of versions: independently cached
// materialization styles of the same subject. Entries are keyed
//
//	<ns>:<version>:<type>:<pk>
//
// FetchMany resolves a batch of subject references with one batched read and
// one batched write; Update re-serializes a subject, diffs against the
// cached entry, and hands non-immediate invalidation instructions back to
// the caller so cascades stay caller-driven and bounded.
//
// The core is stateless: registries are populated at startup and read-only
// afterwards, so FetchMany and Update are safe for concurrent use whenever
// the Provider is.
package matcache
