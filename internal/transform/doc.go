// Package transform rewrites references to virtual module imports into
// constants and no-op stubs, then prunes the imports left without
// consumers. Engine is the in-process entry point; Client lets hosts call
// either an in-process engine or a remote one served over gRPC through the
// same interface.
package transform
