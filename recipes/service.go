package recipes

import (
	"context"
	"errors"
	"log/slog"

	"recipebox/models"
	"recipebox/store"
)

// Store is the persistence the handlers need. *store.RecipeStore implements it.
type Store interface {
	Create(ctx context.Context, authorID *uint, fields store.RecipeFields, image string) (*models.Recipe, error)
	Get(ctx context.Context, id uint) (*models.Recipe, error)
	Update(ctx context.Context, id uint, fields store.RecipeFields, image *string) (*models.Recipe, error)
	ListAll(ctx context.Context) ([]models.Recipe, error)
	ListByAuthor(ctx context.Context, authorID uint) ([]models.Recipe, error)
	SetLike(ctx context.Context, userID, recipeID uint, liked bool) error
	IsLiked(ctx context.Context, userID, recipeID uint) (bool, error)
	ListLiked(ctx context.Context, userID uint) ([]models.Recipe, error)
}

// ImageStore keeps uploaded recipe images and returns references to them.
type ImageStore interface {
	Put(ctx context.Context, img Upload) (string, error)
	Remove(ctx context.Context, ref string) error
	URL(ref string) string
}

// LikeRecorder mirrors like toggles into a counter and reads the live count back.
type LikeRecorder interface {
	Record(ctx context.Context, recipeID, userID uint, liked bool) error
	Count(ctx context.Context, recipeID uint) (int64, error)
}

type Service struct {
	store  Store
	images ImageStore
	likes  LikeRecorder
}

// NewService wires the handlers. likes may be nil.
func NewService(s Store, images ImageStore, likes LikeRecorder) *Service {
	return &Service{store: s, images: images, likes: likes}
}

func listing(list []models.Recipe, query string) Result {
	return render(TemplateDisplay, ViewModel{
		"recipes": list,
		"search":  query,
	})
}

// List shows every recipe, narrowed by the search query.
func (s *Service) List(ctx context.Context, actor Actor, query string) (Result, error) {
	list, err := s.store.ListAll(ctx)
	if err != nil {
		return Result{}, err
	}
	return listing(FilterByName(list, query), query), nil
}

// ListMine shows the actor's own recipes.
func (s *Service) ListMine(ctx context.Context, actor Actor, query string) (Result, error) {
	if err := CanListOwn(actor); err != nil {
		return redirect(PathLogin), nil
	}
	list, err := s.store.ListByAuthor(ctx, actor.ID)
	if err != nil {
		return Result{}, err
	}
	return listing(FilterByName(list, query), query), nil
}

// ListSaved shows the recipes the actor liked. The search runs over the fetched list.
func (s *Service) ListSaved(ctx context.Context, actor Actor, query string) (Result, error) {
	if err := CanListOwn(actor); err != nil {
		return redirect(PathLogin), nil
	}
	list, err := s.store.ListLiked(ctx, actor.ID)
	if err != nil {
		return Result{}, err
	}
	return listing(FilterByName(list, query), query), nil
}

// Detail renders one recipe. A missing recipe yields an empty listing view.
func (s *Service) Detail(ctx context.Context, actor Actor, id uint) (Result, error) {
	r, err := s.store.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return render(TemplateDisplay, ViewModel{}), nil
	}
	if err != nil {
		return Result{}, err
	}

	view := ViewModel{
		"recipe":    r,
		"image_url": s.imageURL(r.Image),
		"can_edit":  CanEdit(actor, r) == nil,
		"saves":     s.saves(ctx, r),
	}
	if CanSeeSaved(actor) {
		saved, err := s.store.IsLiked(ctx, actor.ID, r.ID)
		if err != nil {
			return Result{}, err
		}
		view["is_saved"] = saved
	}
	return render(TemplateRecipe, view), nil
}

// ToggleLike saves or unsaves the recipe for the actor and renders the detail again.
// Anonymous actors and accounts deleted since the token was issued get ErrDenied.
func (s *Service) ToggleLike(ctx context.Context, actor Actor, id uint, saved bool) (Result, error) {
	if err := CanLike(actor); err != nil {
		return Result{}, err
	}

	err := s.store.SetLike(ctx, actor.ID, id, saved)
	if errors.Is(err, store.ErrNotFound) {
		return render(TemplateDisplay, ViewModel{}), nil
	}
	if errors.Is(err, store.ErrUnknownUser) {
		return Result{}, ErrDenied
	}
	if err != nil {
		return Result{}, err
	}

	if s.likes != nil {
		if err := s.likes.Record(ctx, id, actor.ID, saved); err != nil {
			slog.Warn("Failed to record like",
				"error", err,
				"recipe_id", id,
				"user_id", actor.ID,
			)
		}
	}
	return s.Detail(ctx, actor, id)
}

// NewForm renders a blank recipe form, or sends anonymous actors back to the listing.
func (s *Service) NewForm(ctx context.Context, actor Actor) (Result, error) {
	if err := CanCreate(actor); err != nil {
		return redirect(PathList), nil
	}
	return render(TemplateNew, ViewModel{"form": FormState{}}), nil
}

// Create stores a submitted recipe authored by the actor. Invalid input goes back to a blank form.
func (s *Service) Create(ctx context.Context, actor Actor, form RecipeForm) (Result, error) {
	if err := CanCreate(actor); err != nil {
		return redirect(PathList), nil
	}
	fields, err := form.Clean()
	if err != nil {
		return invalid(err, PathNew)
	}
	img, err := checkImage(form.Image)
	if err != nil {
		return invalid(err, PathNew)
	}

	image, err := s.upload(ctx, img)
	if err != nil {
		return Result{}, err
	}

	authorID := actor.ID
	r, err := s.store.Create(ctx, &authorID, fields, image)
	if err != nil {
		s.discard(ctx, image)
		if errors.Is(err, store.ErrUnknownUser) {
			return Result{}, ErrDenied
		}
		return invalid(err, PathNew)
	}

	slog.Info("Recipe created", "recipe_id", r.ID, "user_id", actor.ID)
	return redirect(DetailPath(r.ID)), nil
}

// EditForm renders the pre-filled form for the recipe's author. Anyone else is sent to the detail page.
func (s *Service) EditForm(ctx context.Context, actor Actor, id uint) (Result, error) {
	r, err := s.store.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return redirect(DetailPath(id)), nil
	}
	if err != nil {
		return Result{}, err
	}
	if err := CanEdit(actor, r); err != nil {
		return redirect(DetailPath(id)), nil
	}

	return render(TemplateEdit, ViewModel{
		"form": FormState{
			Name:         r.Name,
			Ingredients:  r.Ingredients,
			Instructions: r.Instructions,
			Image:        r.Image,
		},
		"recipe_id": id,
	}), nil
}

// Update applies a submitted edit. Authorship is checked again on submit.
func (s *Service) Update(ctx context.Context, actor Actor, id uint, form RecipeForm) (Result, error) {
	r, err := s.store.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return redirect(DetailPath(id)), nil
	}
	if err != nil {
		return Result{}, err
	}
	if err := CanEdit(actor, r); err != nil {
		slog.Warn("Rejected recipe edit", "recipe_id", id, "user_id", actor.ID)
		return redirect(DetailPath(id)), nil
	}

	fields, err := form.Clean()
	if err != nil {
		return invalid(err, EditPath(id))
	}
	img, err := checkImage(form.Image)
	if err != nil {
		return invalid(err, EditPath(id))
	}

	var image *string
	if img != nil {
		ref, err := s.upload(ctx, img)
		if err != nil {
			return Result{}, err
		}
		image = &ref
	}

	if _, err := s.store.Update(ctx, id, fields, image); err != nil {
		if image != nil {
			s.discard(ctx, *image)
		}
		if errors.Is(err, store.ErrNotFound) {
			return redirect(DetailPath(id)), nil
		}
		return invalid(err, EditPath(id))
	}

	if image != nil && r.Image != *image {
		s.discard(ctx, r.Image)
	}
	return redirect(DetailPath(id)), nil
}

// invalid turns a validation failure into a redirect back to the form and passes other errors through.
func invalid(err error, formPath string) (Result, error) {
	var verr *store.ValidationError
	if errors.As(err, &verr) {
		return redirect(formPath), nil
	}
	return Result{}, err
}

func (s *Service) upload(ctx context.Context, img *Upload) (string, error) {
	if img == nil {
		return "", nil
	}
	return s.images.Put(ctx, *img)
}

func (s *Service) discard(ctx context.Context, ref string) {
	if ref == "" {
		return
	}
	if err := s.images.Remove(ctx, ref); err != nil {
		slog.Warn("Failed to remove image", "error", err, "image", ref)
	}
}

// saves prefers the live counter and falls back to the last synced count.
func (s *Service) saves(ctx context.Context, r *models.Recipe) int64 {
	if s.likes == nil {
		return int64(r.LikeCount)
	}
	n, err := s.likes.Count(ctx, r.ID)
	if err != nil {
		slog.Warn("Failed to read like count", "error", err, "recipe_id", r.ID)
		return int64(r.LikeCount)
	}
	return n
}

func (s *Service) imageURL(ref string) string {
	if ref == "" {
		return ""
	}
	return s.images.URL(ref)
}
