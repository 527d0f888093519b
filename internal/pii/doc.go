// Package pii provides the domain model for the PII extraction preview client.
//
// This package holds everything that is independent of the transport and
// the UI: the extraction result rows, the fixed column set used by every
// renderer and exporter, the selected-file collection and the upload
// coordinator that guards submission. It can be driven by the web handlers,
// the CLI, or tests without modification.
//
// # Flow
//
// The flow is strictly linear:
//
//  1. Files are added to a [Selection] (and may be removed by index)
//  2. [Coordinator.Submit] hands the selection to an [Extractor]
//  3. The [Response] is passed on to the results view
//  4. The rows are rendered or exported using [Columns]
//
// # Error Handling
//
// Only one failure is modeled: [ErrExtractionFailed], covering both network
// errors and non-success responses from the extraction service. The guard
// errors [ErrNothingSelected] and [ErrBusy] mean "nothing happened" and are
// treated silently by callers. Technical errors are mapped to user-facing
// messages with [MapError].
package pii
