package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/scribe/internal/models"
	"github.com/desertthunder/scribe/internal/session"
	"github.com/desertthunder/scribe/internal/upload"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgSessionLoaded MsgKind = iota
	MsgAuthDone
	MsgOutcome
	MsgSubmitDone
	MsgExportDone
	MsgCheckoutDone
	MsgHistoryLoaded
	MsgPlaybackTick
)

type sessionLoaded struct {
	session session.Session
	err     error
}

type submitDone struct {
	request upload.Request
	result  *models.TranscriptionResult
	err     error
}

type exportDone struct {
	path string
	err  error
}

type checkoutDone struct {
	url string
	err error
}

type historyLoaded struct {
	items []*models.Transcription
	err   error
}

// sessionLoadedMsg is the constructor for [MsgSessionLoaded]
func sessionLoadedMsg(s session.Session, err error) Msg {
	return Msg{kind: MsgSessionLoaded, data: sessionLoaded{s, err}}
}

// authDoneMsg is the constructor for [MsgAuthDone]
func authDoneMsg(err error) Msg {
	return Msg{kind: MsgAuthDone, data: err}
}

// outcomeMsg is the constructor for [MsgOutcome]
func outcomeMsg(o upload.Outcome) Msg {
	return Msg{kind: MsgOutcome, data: o}
}

// submitDoneMsg is the constructor for [MsgSubmitDone]
func submitDoneMsg(req upload.Request, result *models.TranscriptionResult, err error) Msg {
	return Msg{kind: MsgSubmitDone, data: submitDone{req, result, err}}
}

// exportDoneMsg is the constructor for [MsgExportDone]
func exportDoneMsg(path string, err error) Msg {
	return Msg{kind: MsgExportDone, data: exportDone{path, err}}
}

// checkoutDoneMsg is the constructor for [MsgCheckoutDone]
func checkoutDoneMsg(url string, err error) Msg {
	return Msg{kind: MsgCheckoutDone, data: checkoutDone{url, err}}
}

// historyLoadedMsg is the constructor for [MsgHistoryLoaded]
func historyLoadedMsg(items []*models.Transcription, err error) Msg {
	return Msg{kind: MsgHistoryLoaded, data: historyLoaded{items, err}}
}

// playbackTickMsg is the constructor for [MsgPlaybackTick]
func playbackTickMsg() Msg {
	return Msg{kind: MsgPlaybackTick}
}
