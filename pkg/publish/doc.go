// Package publish implements the idempotent summary publish pipeline.
//
// A PublishRequest is validated, mapped to a compact CanonicalBlob and written
// once to {recordId}/summary.json in an ObjectStore. If an object already
// exists under that key it is trusted as authoritative and the write is
// skipped; its contents are never compared with the new blob.
//
// Storage backends (S3, GCS, filesystem, memory) live under storage/, the
// operator alert channel under notify/, and the HTTP surface under api/.
package publish
