package ui

import (
	"github.com/desertthunder/scribe/internal/entitlement"
	"github.com/desertthunder/scribe/internal/session"
)

// Control names a session-gated element of the shell.
type Control int

const (
	Login Control = iota
	Logout
	AccountPanel
	FileUpload
	TermsCheckbox
	YouTubeInput
	YouTubeSubmit
	Subscribe
	ManageSubscription
	Play
	Export
)

var controlNames = [...]string{
	Login:              "login",
	Logout:             "logout",
	AccountPanel:       "account_panel",
	FileUpload:         "file_upload",
	TermsCheckbox:      "terms_checkbox",
	YouTubeInput:       "youtube_input",
	YouTubeSubmit:      "youtube_submit",
	Subscribe:          "subscribe",
	ManageSubscription: "manage_subscription",
	Play:               "play",
	Export:             "export",
}

func (c Control) String() string {
	if c < 0 || int(c) >= len(controlNames) {
		return ""
	}
	return controlNames[c]
}

// ControlState says whether a control is drawn and whether it accepts input.
type ControlState struct {
	Visible bool
	Enabled bool
}

// ControlSet holds the state of every [Control].
type ControlSet [len(controlNames)]ControlState

// Visible reports whether c is drawn.
func (cs ControlSet) Visible(c Control) bool { return cs[c].Visible }

// Enabled reports whether c is drawn and accepts input.
func (cs ControlSet) Enabled(c Control) bool { return cs[c].Visible && cs[c].Enabled }

func both(b bool) ControlState { return ControlState{Visible: b, Enabled: b} }

// Controls gates the shell's controls on the session, the resolved entitlement and whether an upload is pending.
//
// Play and Export depend on the loaded result; see [ControlSet.WithResult].
func Controls(sess session.Session, access entitlement.Access, pending bool) ControlSet {
	var cs ControlSet

	loading := sess.IsLoading
	signedIn := access.Authenticated && !loading

	cs[Login] = both(!loading && !signedIn)
	cs[Logout] = both(signedIn)
	cs[AccountPanel] = ControlState{Visible: true, Enabled: !loading}

	cs[FileUpload] = ControlState{Visible: true, Enabled: !pending}
	cs[TermsCheckbox] = ControlState{Visible: true, Enabled: !pending}
	cs[YouTubeInput] = ControlState{Visible: true, Enabled: access.Pro && !pending}
	cs[YouTubeSubmit] = ControlState{Visible: true, Enabled: access.Pro && !pending}

	cs[Subscribe] = ControlState{Visible: signedIn, Enabled: signedIn && !access.Pro}
	cs[ManageSubscription] = both(signedIn && access.Pro)

	return cs
}

// WithTerms disables file submission until the terms are accepted.
func (cs ControlSet) WithTerms(accepted bool) ControlSet {
	cs[FileUpload].Enabled = cs[FileUpload].Enabled && accepted
	return cs
}

// WithResult gates playback and export on what the current result carries.
func (cs ControlSet) WithResult(hasScore, playable, exporting bool) ControlSet {
	cs[Play] = both(playable)
	cs[Export] = ControlState{Visible: hasScore, Enabled: hasScore && !exporting}
	return cs
}
