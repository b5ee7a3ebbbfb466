// Package handler implements HTTP request handlers for the heredity API.
//
// # Handlers
//
// PedigreeHandler uploads, lists, exports and deletes pedigrees, runs
// inference over them and serves the latest posteriors as JSON or as the
// plain text report.
//
// Middleware provides panic recovery, request logging and CORS support.
//
// # Response Format
//
// Success responses return JSON data with appropriate status codes (200, 201).
// Error responses return JSON with {error, details} structure:
//   - 400 for unparseable uploads and malformed family graphs
//   - 404 for unknown pedigrees or pedigrees without a run
//   - 422 when a pedigree is too large or its evidence is impossible
package handler
