// Package views decides which screen a session may open.
package views

import (
	"errors"

	"gramaalert-be/session"
)

type View string

const (
	Dashboard View = "dashboard"
	Report    View = "report"
	Admin     View = "admin"
)

const (
	MsgLoginRequired  = "Please login to access this feature"
	MsgVerifyRequired = "Please verify your email address to access this feature"
	MsgAdminRequired  = "Admin access required with verified email"
)

var ErrUnknownView = errors.New("unknown view")

func Parse(s string) (View, error) {
	switch View(s) {
	case Dashboard, Report, Admin:
		return View(s), nil
	}
	return "", ErrUnknownView
}

// Decision is the outcome of a navigation attempt. A rejected attempt lands
// on the dashboard with Notice set; RequireLogin asks the client to show the
// sign-in form.
type Decision struct {
	View         View   `json:"view"`
	Allowed      bool   `json:"allowed"`
	Notice       string `json:"notice,omitempty"`
	RequireLogin bool   `json:"requireLogin,omitempty"`
}

func Navigate(s session.Session, target View) Decision {
	if target == Dashboard {
		return Decision{View: Dashboard, Allowed: true}
	}
	if !s.SignedIn() {
		return Decision{View: Dashboard, Notice: MsgLoginRequired, RequireLogin: true}
	}
	if !s.Verified() {
		return Decision{View: Dashboard, Notice: MsgVerifyRequired}
	}
	if target == Admin && !s.IsAdmin() {
		return Decision{View: Dashboard, Notice: MsgAdminRequired}
	}
	return Decision{View: target, Allowed: true}
}
