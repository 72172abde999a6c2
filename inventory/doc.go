// Package inventory defines the storage contract for the circulation core:
// the StorableRecord DTO, the fluent RecordFilter builder, commit guards for
// conditional writes, read-consistency context plumbing, and the
// dependency-free observability interfaces shared by all store engines.
//
// The package is engine-agnostic. Concrete engines live in the postgresengine
// and memoryengine sub-packages; managers depend only on the small interfaces
// they declare themselves plus the types defined here.
package inventory
