package recipes

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"recipebox/models"
)

func TestPolicy(t *testing.T) {
	alice := Actor{ID: 1, Username: "alice"}
	bob := Actor{ID: 2, Username: "bob"}
	authorID := alice.ID
	owned := &models.Recipe{ID: 10, UserID: &authorID}
	orphan := &models.Recipe{ID: 11}

	assert.False(t, CanSeeSaved(Anonymous))
	assert.True(t, CanSeeSaved(alice))

	assert.ErrorIs(t, CanLike(Anonymous), ErrDenied)
	assert.NoError(t, CanLike(bob))

	assert.ErrorIs(t, CanListOwn(Anonymous), ErrDenied)
	assert.NoError(t, CanListOwn(alice))

	assert.ErrorIs(t, CanCreate(Anonymous), ErrDenied)
	assert.NoError(t, CanCreate(alice))

	assert.NoError(t, CanEdit(alice, owned))
	assert.ErrorIs(t, CanEdit(bob, owned), ErrDenied)
	assert.ErrorIs(t, CanEdit(Anonymous, owned), ErrDenied)
	assert.ErrorIs(t, CanEdit(alice, orphan), ErrDenied)
}
