// Package core provides the bulk toll calculation pipeline.
//
// This package holds all domain logic independent of any transport. It is
// used by the HTTP server and by the command-line tool without modification.
//
// # Pipeline
//
// A bulk file flows through these stages:
//
//  1. [csvcodec.ReadTable] decodes the upload into a table
//  2. [Validate] checks the header and every row
//  3. Invalid files become an annotated report via [BuildErrorReport]
//  4. Valid files are priced row by row by a [Processor], which calls a
//     [LookupFunc] with a bounded retry between attempts
//  5. [ExportResults] encodes the output table for a [DownloadSink]
//
// Rows are processed strictly in order with at most one lookup in flight,
// so the output keeps the input row order. A row that keeps failing is
// recorded as ERROR; it never stops the rest of the file.
//
// # Runs
//
// [Service] hosts asynchronous runs. [Service.Prepare] validates a file,
// [Service.StartRun] takes a slot from the [RunLimiter] and processes in
// the background, and progress is broadcast to subscribers via
// [Service.SubscribeProgress]. Finished runs stay downloadable for the
// configured retention and, when a [HistoryStore] is configured, are
// summarised in the bulk_runs table.
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each error category has a unique code for support reference:
//
//   - VAL001-VAL005: Validation errors (columns, journey types, coordinates)
//   - FILE001-FILE005: File errors (size, type, encoding)
//   - RUN001-RUN006: Run errors (busy, not found, cancelled, timeout)
//   - API001-API005: Lookup service errors
package core
