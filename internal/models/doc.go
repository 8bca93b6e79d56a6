// Package models defines the entities exchanged with the transcription backend and kept in the local history.
//
// The package contains two categories of types:
//
// 1. Data Transfer Objects (DTOs): payloads decoded from the backend
//   - [TranscriptionResult] : MusicXML notation and base64 MIDI note events
//
// 2. Persistent Entities: rows in the local sqlite database
//   - [Transcription] : a successful transcription with its source and title
//
// Persistent entities implement the [Model] interface; the [Repository] interface defines standard data access.
package models
