// Package tasks runs long transcription jobs with real-time progress reporting.
//
// # Batch Transcription
//
// [BatchEngine.Transcribe] uploads a set of local audio files through a small worker pool:
//   - Each file is read and validated locally before it is queued
//   - Uploads are paced with a rate limiter and fanned out to workers
//   - Successful results are saved to the history store and optionally exported
//   - A quota failure cancels the remaining uploads, which are reported as skipped
//
// # Progress Reporting
//
// Operations report through a non-blocking channel of [ProgressUpdate] values.
// Updates use select with default, so a slow or absent reader never stalls the batch.
package tasks
