// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package manager

// State is the lifecycle position of a Manager.
type State int

const (
	Uninstalled State = iota
	Installing
	Installed
	Activating
	Active
)

func (s State) String() string {
	switch s {
	case Uninstalled:
		return "uninstalled"
	case Installing:
		return "installing"
	case Installed:
		return "installed"
	case Activating:
		return "activating"
	case Active:
		return "active"
	default:
		return "unknown"
	}
}

// transitional reports whether a lifecycle task is in flight.
func (s State) transitional() bool {
	return s == Installing || s == Activating
}
