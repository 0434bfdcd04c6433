// Package filecache serves the content of named resources while keeping
// redundant reads to a minimum.
//
// Each resource name has a fingerprint record (the last known fingerprint and
// when it was checked) and each (name, transform) pair has a content entry.
// A [Cache.Get] inside the recheck window returns the cached entry without
// touching the resource. Past the window it asks the [Accessor] for a fresh
// fingerprint and re-reads only when that fingerprint changed. A detected
// change drops the entries of every transform of that name.
//
// Entries are never evicted on their own; only [Cache.Clear] empties the
// cache, after which registered clear listeners run so that derived caches
// can invalidate in lockstep.
//
// A Cache owns no goroutines. One mutex serializes Get, Clear and Stats, and
// Get holds it across accessor calls: a slow fingerprint or read (an S3
// GetObject, say) blocks every other caller of the same cache until it
// returns. Bound accessor latency through the ctx passed to Get.
//
// Clear listeners run while that mutex is held: they may add or remove
// listeners, but must not call Get, Clear or Stats on the same cache.
package filecache
