package recipes_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"recipebox/models"
	"recipebox/recipes"
	"recipebox/store"
	"recipebox/store/storetest"
)

type memImages struct {
	objects map[string]string
	types   map[string]string
	removed []string
	n       int
}

func newMemImages() *memImages {
	return &memImages{objects: map[string]string{}, types: map[string]string{}}
}

func (m *memImages) Put(ctx context.Context, img recipes.Upload) (string, error) {
	b, err := io.ReadAll(img.Body)
	if err != nil {
		return "", err
	}
	m.n++
	ref := fmt.Sprintf("img-%d%s", m.n, path.Ext(img.Filename))
	m.objects[ref] = string(b)
	m.types[ref] = img.ContentType
	return ref, nil
}

func (m *memImages) Remove(ctx context.Context, ref string) error {
	delete(m.objects, ref)
	m.removed = append(m.removed, ref)
	return nil
}

func (m *memImages) URL(ref string) string {
	return "http://images.test/" + ref
}

type likeCall struct {
	recipeID, userID uint
	liked            bool
}

type recordingLikes struct {
	calls []likeCall
	err   error
}

func (r *recordingLikes) Record(ctx context.Context, recipeID, userID uint, liked bool) error {
	r.calls = append(r.calls, likeCall{recipeID, userID, liked})
	return r.err
}

// Count replays the recorded calls.
func (r *recordingLikes) Count(ctx context.Context, recipeID uint) (int64, error) {
	if r.err != nil {
		return 0, r.err
	}
	users := map[uint]bool{}
	for _, c := range r.calls {
		if c.recipeID == recipeID {
			users[c.userID] = c.liked
		}
	}
	var n int64
	for _, liked := range users {
		if liked {
			n++
		}
	}
	return n, nil
}

type env struct {
	db      *gorm.DB
	svc     *recipes.Service
	store   *store.RecipeStore
	images  *memImages
	likes   *recordingLikes
	alice   recipes.Actor
	bob     recipes.Actor
	aliceID uint
}

func setup(t *testing.T) *env {
	t.Helper()
	db := storetest.Open(t)
	alice := storetest.User(t, db, "alice")
	bob := storetest.User(t, db, "bob")

	e := &env{
		db:      db,
		store:   store.NewRecipeStore(db),
		images:  newMemImages(),
		likes:   &recordingLikes{},
		alice:   recipes.Actor{ID: alice.ID, Username: alice.Username},
		bob:     recipes.Actor{ID: bob.ID, Username: bob.Username},
		aliceID: alice.ID,
	}
	e.svc = recipes.NewService(e.store, e.images, e.likes)
	return e
}

func soupForm() recipes.RecipeForm {
	return recipes.RecipeForm{RecipeFields: store.RecipeFields{
		Name:         "Soup",
		Ingredients:  "water,salt",
		Instructions: "boil",
	}}
}

const (
	pngData  = "\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"
	jpegData = "\xff\xd8\xff\xe0\x00\x10JFIF\x00"
)

func upload(name, body string) *recipes.Upload {
	return &recipes.Upload{
		Filename:    name,
		ContentType: "application/octet-stream",
		Size:        int64(len(body)),
		Body:        strings.NewReader(body),
	}
}

func idFromRedirect(t *testing.T, res recipes.Result) uint {
	t.Helper()
	require.True(t, res.IsRedirect(), "expected redirect, got %+v", res)
	var id uint
	_, err := fmt.Sscanf(res.Redirect, "/recipes/%d/", &id)
	require.NoError(t, err, res.Redirect)
	return id
}

func (e *env) create(t *testing.T, actor recipes.Actor, form recipes.RecipeForm) uint {
	t.Helper()
	res, err := e.svc.Create(context.Background(), actor, form)
	require.NoError(t, err)
	return idFromRedirect(t, res)
}

func count(t *testing.T, s *store.RecipeStore) int {
	t.Helper()
	all, err := s.ListAll(context.Background())
	require.NoError(t, err)
	return len(all)
}

func TestAnonymousCannotCreate(t *testing.T) {
	ctx := context.Background()
	e := setup(t)

	res, err := e.svc.NewForm(ctx, recipes.Anonymous)
	require.NoError(t, err)
	assert.Equal(t, recipes.PathList, res.Redirect)

	res, err = e.svc.Create(ctx, recipes.Anonymous, soupForm())
	require.NoError(t, err)
	assert.Equal(t, recipes.PathList, res.Redirect)
	assert.Zero(t, count(t, e.store))
}

func TestNewFormForAuthenticated(t *testing.T) {
	res, err := setup(t).svc.NewForm(context.Background(), recipes.Actor{ID: 1})
	require.NoError(t, err)
	assert.False(t, res.IsRedirect())
	assert.Equal(t, recipes.TemplateNew, res.Template)
	assert.Equal(t, recipes.FormState{}, res.View["form"])
}

func TestCreateThenDetail(t *testing.T) {
	ctx := context.Background()
	e := setup(t)

	id := e.create(t, e.alice, soupForm())

	res, err := e.svc.Detail(ctx, e.alice, id)
	require.NoError(t, err)
	assert.Equal(t, recipes.TemplateRecipe, res.Template)
	r := res.View["recipe"].(*models.Recipe)
	assert.Equal(t, "Soup", r.Name)
	assert.Equal(t, "water,salt", r.Ingredients)
	assert.Equal(t, "boil", r.Instructions)
	assert.True(t, r.AuthoredBy(e.aliceID))
	assert.Equal(t, false, res.View["is_saved"])
	assert.Equal(t, true, res.View["can_edit"])
	assert.Equal(t, "", res.View["image_url"])
}

func TestCreateWithImage(t *testing.T) {
	ctx := context.Background()
	e := setup(t)

	form := soupForm()
	form.Image = upload("soup.png", pngData)
	id := e.create(t, e.alice, form)

	res, err := e.svc.Detail(ctx, recipes.Anonymous, id)
	require.NoError(t, err)
	r := res.View["recipe"].(*models.Recipe)
	assert.Equal(t, "img-1.png", r.Image)
	assert.Equal(t, pngData, e.images.objects["img-1.png"])
	assert.Equal(t, "image/png", e.images.types["img-1.png"])
	assert.Equal(t, "http://images.test/img-1.png", res.View["image_url"])
}

func TestCreateInvalidRedirectsToBlankForm(t *testing.T) {
	ctx := context.Background()
	e := setup(t)

	form := soupForm()
	form.Instructions = "  "
	form.Image = upload("soup.png", pngData)

	res, err := e.svc.Create(ctx, e.alice, form)
	require.NoError(t, err)
	assert.Equal(t, recipes.PathNew, res.Redirect)
	assert.Zero(t, count(t, e.store))
	assert.Empty(t, e.images.objects, "nothing should be uploaded for an invalid form")
}

func TestDetailAnonymousHasNoSavedFlag(t *testing.T) {
	ctx := context.Background()
	e := setup(t)
	id := e.create(t, e.alice, soupForm())

	res, err := e.svc.Detail(ctx, recipes.Anonymous, id)
	require.NoError(t, err)
	assert.Equal(t, recipes.TemplateRecipe, res.Template)
	_, ok := res.View["is_saved"]
	assert.False(t, ok)
	assert.Equal(t, false, res.View["can_edit"])
}

func TestDetailMissingDegrades(t *testing.T) {
	res, err := setup(t).svc.Detail(context.Background(), recipes.Anonymous, 404)
	require.NoError(t, err)
	assert.False(t, res.IsRedirect())
	assert.Equal(t, recipes.TemplateDisplay, res.Template)
	assert.Empty(t, res.View)
}

func TestToggleLike(t *testing.T) {
	ctx := context.Background()
	e := setup(t)
	id := e.create(t, e.alice, soupForm())

	res, err := e.svc.ToggleLike(ctx, e.alice, id, true)
	require.NoError(t, err)
	assert.Equal(t, true, res.View["is_saved"])

	res, err = e.svc.ToggleLike(ctx, e.alice, id, true)
	require.NoError(t, err)
	assert.Equal(t, true, res.View["is_saved"])

	assert.EqualValues(t, 1, res.View["saves"])

	res, err = e.svc.ToggleLike(ctx, e.alice, id, false)
	require.NoError(t, err)
	assert.Equal(t, false, res.View["is_saved"])
	assert.EqualValues(t, 0, res.View["saves"])

	assert.Equal(t, []likeCall{
		{id, e.aliceID, true},
		{id, e.aliceID, true},
		{id, e.aliceID, false},
	}, e.likes.calls)
}

func TestToggleLikeRecorderFailureIsNotFatal(t *testing.T) {
	ctx := context.Background()
	e := setup(t)
	e.likes.err = errors.New("redis down")
	id := e.create(t, e.alice, soupForm())

	require.NoError(t, e.store.SetLikeCount(ctx, id, 4))

	res, err := e.svc.ToggleLike(ctx, e.bob, id, true)
	require.NoError(t, err)
	assert.Equal(t, true, res.View["is_saved"])
	assert.EqualValues(t, 4, res.View["saves"], "falls back to the synced count")
}

func TestToggleLikeEdgeCases(t *testing.T) {
	ctx := context.Background()
	e := setup(t)
	id := e.create(t, e.alice, soupForm())

	_, err := e.svc.ToggleLike(ctx, recipes.Anonymous, id, true)
	require.ErrorIs(t, err, recipes.ErrDenied)
	require.NotErrorIs(t, err, store.ErrNotFound)

	res, err := e.svc.ToggleLike(ctx, e.alice, id+100, true)
	require.NoError(t, err)
	assert.Equal(t, recipes.TemplateDisplay, res.Template)
	assert.Empty(t, res.View)
	assert.Empty(t, e.likes.calls)
}

func TestEditByOtherUserIsRefused(t *testing.T) {
	ctx := context.Background()
	e := setup(t)
	id := e.create(t, e.alice, soupForm())

	res, err := e.svc.EditForm(ctx, e.bob, id)
	require.NoError(t, err)
	assert.Equal(t, recipes.DetailPath(id), res.Redirect)

	res, err = e.svc.EditForm(ctx, recipes.Anonymous, id)
	require.NoError(t, err)
	assert.Equal(t, recipes.DetailPath(id), res.Redirect)

	hijack := recipes.RecipeForm{RecipeFields: store.RecipeFields{Name: "Mine now", Ingredients: "x", Instructions: "y"}}
	res, err = e.svc.Update(ctx, e.bob, id, hijack)
	require.NoError(t, err)
	assert.Equal(t, recipes.DetailPath(id), res.Redirect)

	r, err := e.store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Soup", r.Name)
	assert.True(t, r.AuthoredBy(e.aliceID))
}

func TestEditMissingRecipe(t *testing.T) {
	ctx := context.Background()
	e := setup(t)

	res, err := e.svc.EditForm(ctx, e.alice, 77)
	require.NoError(t, err)
	assert.Equal(t, "/recipes/77/", res.Redirect)

	res, err = e.svc.Update(ctx, e.alice, 77, soupForm())
	require.NoError(t, err)
	assert.Equal(t, "/recipes/77/", res.Redirect)
}

func TestEditFormPrefilled(t *testing.T) {
	ctx := context.Background()
	e := setup(t)
	form := soupForm()
	form.Image = upload("a.jpg", jpegData)
	id := e.create(t, e.alice, form)

	res, err := e.svc.EditForm(ctx, e.alice, id)
	require.NoError(t, err)
	assert.Equal(t, recipes.TemplateEdit, res.Template)
	assert.Equal(t, id, res.View["recipe_id"])
	assert.Equal(t, recipes.FormState{
		Name:         "Soup",
		Ingredients:  "water,salt",
		Instructions: "boil",
		Image:        "img-1.jpg",
	}, res.View["form"])
}

func TestUpdateByAuthor(t *testing.T) {
	ctx := context.Background()
	e := setup(t)
	form := soupForm()
	form.Image = upload("a.jpg", jpegData)
	id := e.create(t, e.alice, form)

	edit := recipes.RecipeForm{RecipeFields: store.RecipeFields{Name: "Stew", Ingredients: "beef", Instructions: "simmer"}}
	res, err := e.svc.Update(ctx, e.alice, id, edit)
	require.NoError(t, err)
	assert.Equal(t, recipes.DetailPath(id), res.Redirect)

	r, err := e.store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Stew", r.Name)
	assert.Equal(t, "img-1.jpg", r.Image, "omitted image keeps the previous one")

	edit.Image = upload("b.png", pngData)
	_, err = e.svc.Update(ctx, e.alice, id, edit)
	require.NoError(t, err)

	r, err = e.store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "img-2.png", r.Image)
	assert.Equal(t, []string{"img-1.jpg"}, e.images.removed)
}

func TestUpdateInvalidRedirectsToEditForm(t *testing.T) {
	ctx := context.Background()
	e := setup(t)
	id := e.create(t, e.alice, soupForm())

	res, err := e.svc.Update(ctx, e.alice, id, recipes.RecipeForm{})
	require.NoError(t, err)
	assert.Equal(t, recipes.EditPath(id), res.Redirect)

	r, err := e.store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Soup", r.Name)
}

func TestListings(t *testing.T) {
	ctx := context.Background()
	e := setup(t)
	soup := e.create(t, e.alice, soupForm())
	pie := e.create(t, e.alice, recipes.RecipeForm{RecipeFields: store.RecipeFields{Name: "Apple Pie", Ingredients: "apples", Instructions: "bake"}})
	bobSoup := e.create(t, e.bob, recipes.RecipeForm{RecipeFields: store.RecipeFields{Name: "Miso soup", Ingredients: "miso", Instructions: "stir"}})

	names := func(res recipes.Result) []uint {
		t.Helper()
		require.Equal(t, recipes.TemplateDisplay, res.Template)
		var ids []uint
		for _, r := range res.View["recipes"].([]models.Recipe) {
			ids = append(ids, r.ID)
		}
		return ids
	}

	res, err := e.svc.List(ctx, recipes.Anonymous, "")
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{soup, pie, bobSoup}, names(res))

	res, err = e.svc.List(ctx, recipes.Anonymous, "SOUP")
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{soup, bobSoup}, names(res))
	assert.Equal(t, "SOUP", res.View["search"])

	res, err = e.svc.ListMine(ctx, e.alice, "")
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{soup, pie}, names(res))

	res, err = e.svc.ListMine(ctx, e.alice, "pie")
	require.NoError(t, err)
	assert.Equal(t, []uint{pie}, names(res))

	_, err = e.svc.ToggleLike(ctx, e.bob, soup, true)
	require.NoError(t, err)
	_, err = e.svc.ToggleLike(ctx, e.bob, pie, true)
	require.NoError(t, err)

	res, err = e.svc.ListSaved(ctx, e.bob, "")
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{soup, pie}, names(res))

	res, err = e.svc.ListSaved(ctx, e.bob, "soup")
	require.NoError(t, err)
	assert.Equal(t, []uint{soup}, names(res))

	res, err = e.svc.ListSaved(ctx, e.alice, "")
	require.NoError(t, err)
	assert.Empty(t, names(res))
}

func TestScopedListingsRequireLogin(t *testing.T) {
	ctx := context.Background()
	e := setup(t)

	res, err := e.svc.ListMine(ctx, recipes.Anonymous, "")
	require.NoError(t, err)
	assert.Equal(t, recipes.PathLogin, res.Redirect)

	res, err = e.svc.ListSaved(ctx, recipes.Anonymous, "")
	require.NoError(t, err)
	assert.Equal(t, recipes.PathLogin, res.Redirect)
}

func TestNonImageUploadIsRejected(t *testing.T) {
	ctx := context.Background()
	e := setup(t)

	form := soupForm()
	form.Image = upload("photo.png", "<html><script>alert(1)</script></html>")
	res, err := e.svc.Create(ctx, e.alice, form)
	require.NoError(t, err)
	assert.Equal(t, recipes.PathNew, res.Redirect)
	assert.Zero(t, count(t, e.store))
	assert.Empty(t, e.images.objects)

	id := e.create(t, e.alice, soupForm())
	edit := soupForm()
	edit.Name = "Renamed"
	edit.Image = upload("vector.svg", `<svg xmlns="http://www.w3.org/2000/svg"></svg>`)
	res, err = e.svc.Update(ctx, e.alice, id, edit)
	require.NoError(t, err)
	assert.Equal(t, recipes.EditPath(id), res.Redirect)
	assert.Empty(t, e.images.objects)

	r, err := e.store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Soup", r.Name)
}

func TestUploadTypeComesFromContent(t *testing.T) {
	e := setup(t)

	form := soupForm()
	form.Image = upload("photo.gif", jpegData)
	id := e.create(t, e.alice, form)

	r, err := e.store.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", e.images.types[r.Image])
	assert.Equal(t, jpegData, e.images.objects[r.Image])
}

func TestDeletedUserIsDenied(t *testing.T) {
	ctx := context.Background()
	e := setup(t)
	id := e.create(t, e.alice, soupForm())
	require.NoError(t, store.NewUserStore(e.db).DeleteUser(ctx, e.bob.ID))

	_, err := e.svc.ToggleLike(ctx, e.bob, id, true)
	require.ErrorIs(t, err, recipes.ErrDenied)
	assert.Empty(t, e.likes.calls)

	form := soupForm()
	form.Image = upload("soup.png", pngData)
	_, err = e.svc.Create(ctx, e.bob, form)
	require.ErrorIs(t, err, recipes.ErrDenied)
	assert.Equal(t, 1, count(t, e.store))
	assert.Empty(t, e.images.objects, "the uploaded image is discarded")
}
