// Package service implements business logic for heredity.
//
// InferenceService sits between the HTTP handlers and the repository. It
// parses and validates uploaded pedigrees, runs the inference engine over a
// stored pedigree, persists the latest run and archives its JSON report in the
// configured blob store.
//
// # Event System
//
// The service publishes events via EventBus so connected clients can follow
// along over Server-Sent Events: pedigree_imported, pedigree_deleted,
// inference_completed and inference_failed.
package service
