// Package ephemeral implements the engine.KVEngine interface with plain
// in-memory B-trees. Nothing is ever written to disk: the engine exists
// for tests, for stores whose content is rebuilt on every start, and as a
// drop-in stand-in wherever the persistent engine would be overkill.
//
// Each partition owns one btree guarded by a read-write mutex. Batch
// commits apply all operations under a single lock acquisition, so readers
// observe either none or all of a batch. Iterators snapshot the partition
// at creation time and are therefore unaffected by concurrent writes.
//
// Durability options are accepted and ignored, and read-only opens are
// rejected: an engine that forgets everything on Close has no meaningful
// read-only mode.
package ephemeral
