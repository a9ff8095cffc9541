// Package guard decides whether a page may be shown for a session state.
package guard

import (
	"cardami/internal/session"
)

// Routes of the page surface.
const (
	RouteLanding  = "/"
	RouteLogin    = "/login"
	RouteSignup   = "/signup"
	RouteHome     = "/home"
	RouteMemories = "/memories"
)

// Outcome of a guard check.
type Outcome int

const (
	// Pending renders nothing: the identity provider has not answered yet.
	Pending Outcome = iota
	Render
	Redirect
)

func (o Outcome) String() string {
	switch o {
	case Render:
		return "render"
	case Redirect:
		return "redirect"
	default:
		return "pending"
	}
}

// Decision is what to do with a page request. Content is set only for
// Render, Location only for Redirect.
type Decision[T any] struct {
	Outcome  Outcome
	Content  T
	Location string
}

// PublicOnly shows content to signed-out visitors and sends signed-in users
// to the home page.
func PublicOnly[T any](st session.State, content T) Decision[T] {
	switch {
	case !st.Resolved:
		return Decision[T]{Outcome: Pending}
	case st.Identity != nil:
		return Decision[T]{Outcome: Redirect, Location: RouteHome}
	default:
		return Decision[T]{Outcome: Render, Content: content}
	}
}

// AuthRequired shows content to signed-in users and sends everyone else to
// the login page.
func AuthRequired[T any](st session.State, content T) Decision[T] {
	switch {
	case !st.Resolved:
		return Decision[T]{Outcome: Pending}
	case st.Identity == nil:
		return Decision[T]{Outcome: Redirect, Location: RouteLogin}
	default:
		return Decision[T]{Outcome: Render, Content: content}
	}
}
