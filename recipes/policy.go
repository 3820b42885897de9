package recipes

import (
	"errors"

	"recipebox/models"
)

// ErrDenied is returned when the actor may not perform a mutation or scoped listing.
var ErrDenied = errors.New("permission denied")

func requireAuth(a Actor) error {
	if !a.Authenticated() {
		return ErrDenied
	}
	return nil
}

// CanSeeSaved reports whether the detail view carries the is_saved flag.
func CanSeeSaved(a Actor) bool {
	return a.Authenticated()
}

func CanLike(a Actor) error {
	return requireAuth(a)
}

// CanListOwn guards both "my recipes" and "saved recipes".
func CanListOwn(a Actor) error {
	return requireAuth(a)
}

func CanCreate(a Actor) error {
	return requireAuth(a)
}

// CanEdit allows only the recipe's author. Recipes without an author are not editable.
func CanEdit(a Actor, r *models.Recipe) error {
	if err := requireAuth(a); err != nil {
		return err
	}
	if !r.AuthoredBy(a.ID) {
		return ErrDenied
	}
	return nil
}
