package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"recipebox/models"
)

type RecipeStore struct {
	db *gorm.DB
}

func NewRecipeStore(db *gorm.DB) *RecipeStore {
	return &RecipeStore{db: db}
}

// Create stores a new recipe. authorID may be nil.
func (s *RecipeStore) Create(ctx context.Context, authorID *uint, fields RecipeFields, image string) (*models.Recipe, error) {
	fields, err := fields.Clean()
	if err != nil {
		return nil, err
	}

	r := &models.Recipe{
		UserID:       authorID,
		Name:         fields.Name,
		Ingredients:  fields.Ingredients,
		Instructions: fields.Instructions,
		Image:        image,
		PublishedAt:  time.Now(),
	}
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(r).Error; err != nil {
		return nil, fmt.Errorf("create recipe: %w", unknownUser(err))
	}
	return r, nil
}

func (s *RecipeStore) Get(ctx context.Context, id uint) (*models.Recipe, error) {
	var r models.Recipe
	if err := s.db.WithContext(ctx).Preload("Author").First(&r, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &r, nil
}

// Update replaces the text fields of a recipe. A nil image keeps the stored one.
func (s *RecipeStore) Update(ctx context.Context, id uint, fields RecipeFields, image *string) (*models.Recipe, error) {
	fields, err := fields.Clean()
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Recipe
		if err := tx.Select("id").First(&existing, id).Error; err != nil {
			return notFound(err)
		}
		updates := map[string]any{
			"name":         fields.Name,
			"ingredients":  fields.Ingredients,
			"instructions": fields.Instructions,
		}
		if image != nil {
			updates["image"] = *image
		}
		return tx.Model(&models.Recipe{}).Where("id = ?", id).Updates(updates).Error
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update recipe %d: %w", id, err)
	}
	return s.Get(ctx, id)
}

func (s *RecipeStore) ListAll(ctx context.Context) ([]models.Recipe, error) {
	var list []models.Recipe
	if err := s.db.WithContext(ctx).
		Preload("Author").
		Order("id DESC").
		Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list recipes: %w", err)
	}
	return list, nil
}

// ListByAuthor never returns recipes without an author.
func (s *RecipeStore) ListByAuthor(ctx context.Context, authorID uint) ([]models.Recipe, error) {
	var list []models.Recipe
	if err := s.db.WithContext(ctx).
		Preload("Author").
		Where("user_id = ?", authorID).
		Order("id DESC").
		Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list recipes of user %d: %w", authorID, err)
	}
	return list, nil
}

// SetLike saves or unsaves a recipe for a user. Both directions are idempotent.
// It returns ErrNotFound for a missing recipe and ErrUnknownUser for a missing user.
func (s *RecipeStore) SetLike(ctx context.Context, userID, recipeID uint, liked bool) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.Recipe{}).Where("id = ?", recipeID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}

		if !liked {
			return tx.Where("user_id = ? AND recipe_id = ?", userID, recipeID).Delete(&models.Like{}).Error
		}
		like := models.Like{UserID: userID, RecipeID: recipeID}
		return tx.Omit(clause.Associations).
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(&like).Error
	})
	return unknownUser(err)
}

func (s *RecipeStore) IsLiked(ctx context.Context, userID, recipeID uint) (bool, error) {
	var n int64
	if err := s.db.WithContext(ctx).
		Model(&models.Like{}).
		Where("user_id = ? AND recipe_id = ?", userID, recipeID).
		Count(&n).Error; err != nil {
		return false, fmt.Errorf("check like: %w", err)
	}
	return n > 0, nil
}

// ListLiked returns the recipes a user saved, oldest save first.
func (s *RecipeStore) ListLiked(ctx context.Context, userID uint) ([]models.Recipe, error) {
	var list []models.Recipe
	if err := s.db.WithContext(ctx).
		Preload("Author").
		Joins("JOIN likes ON likes.recipe_id = recipes.id").
		Where("likes.user_id = ?", userID).
		Order("likes.created_at, recipes.id").
		Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list liked recipes of user %d: %w", userID, err)
	}
	return list, nil
}

// SetLikeCount overwrites the denormalized like counter without touching updated_at.
func (s *RecipeStore) SetLikeCount(ctx context.Context, recipeID uint, count int64) error {
	return s.db.WithContext(ctx).
		Model(&models.Recipe{}).
		Where("id = ?", recipeID).
		UpdateColumn("like_count", count).Error
}

// ClearLikeCounts zeroes the like counter of every recipe not listed in keep.
func (s *RecipeStore) ClearLikeCounts(ctx context.Context, keep []uint) error {
	q := s.db.WithContext(ctx).Model(&models.Recipe{}).Where("like_count <> 0")
	if len(keep) > 0 {
		q = q.Where("id NOT IN ?", keep)
	}
	return q.UpdateColumn("like_count", 0).Error
}
