// Package ui implements the interactive terminal shell using bubbletea's Elm architecture.
//
// The shell composes the pages of the client:
//  1. [HomePage] : Upload an audio file or a YouTube link, view the score, play and export it
//  2. [AboutPage] and [TermsPage] : Static copy
//  3. [SubscriptionsPage] : Plan comparison and checkout
//  4. [HistoryPage] : Past transcriptions, reloaded into the viewer
//  5. [NotFoundPage] : Any unknown route
//
// What the user may touch is decided by [Controls], a pure truth table over the session, the resolved entitlement
// and whether an upload is pending. The (view) [Model] only consults it; it keeps no entitlement state of its own.
//
// Upload outcomes flow from the orchestrator's non-blocking update channel back into the model as messages.
// Keyboard navigation uses single-letter bindings while no input is focused, with contextual help displayed via charmbracelet/bubbles/help.
package ui
