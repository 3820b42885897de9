// Package recipes holds the recipe-sharing rules: who may do what, the name
// search, and the request handlers that turn an actor plus form data into a
// rendered view or a redirect.
package recipes

// Actor is the identity behind a request. The zero value is anonymous.
type Actor struct {
	ID       uint
	Username string
}

var Anonymous = Actor{}

func (a Actor) Authenticated() bool {
	return a.ID != 0
}
