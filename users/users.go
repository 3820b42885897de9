// Package users registers and authenticates accounts.
package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"recipebox/models"
	"recipebox/store"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUsernameTaken      = errors.New("username already taken")
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Credentials is the register and login form.
type Credentials struct {
	Username string `form:"username" json:"username" validate:"required,max=150"`
	Password string `form:"password" json:"password" validate:"required,min=8,max=72"`
}

type TokenIssuer interface {
	Issue(userID uint, username string) (string, error)
}

// Likes is the like mirror that outlives database cascades.
type Likes interface {
	Record(ctx context.Context, recipeID, userID uint, liked bool) error
	Drop(ctx context.Context, recipeID uint) error
}

type Images interface {
	Remove(ctx context.Context, ref string) error
}

type Directory struct {
	users   *store.UserStore
	recipes *store.RecipeStore
	tokens  TokenIssuer
	likes   Likes
	images  Images
}

// NewDirectory wires account handling. likes and images may be nil.
func NewDirectory(users *store.UserStore, recipes *store.RecipeStore, tokens TokenIssuer, likes Likes, images Images) *Directory {
	return &Directory{users: users, recipes: recipes, tokens: tokens, likes: likes, images: images}
}

// Register creates an account and returns it with a login token.
func (d *Directory) Register(ctx context.Context, in Credentials) (*models.User, string, error) {
	in.Username = strings.TrimSpace(in.Username)
	if err := validate.Struct(in); err != nil {
		return nil, "", fmt.Errorf("invalid registration: %w", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}
	u := &models.User{
		Username: in.Username,
		Password: string(hashedPassword),
		Nickname: in.Username,
	}
	if err := d.users.CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, "", ErrUsernameTaken
		}
		return nil, "", err
	}

	token, err := d.tokens.Issue(u.ID, u.Username)
	if err != nil {
		return nil, "", fmt.Errorf("issue token: %w", err)
	}
	return u, token, nil
}

// Login checks the password and returns a token.
func (d *Directory) Login(ctx context.Context, in Credentials) (*models.User, string, error) {
	u, err := d.users.GetUserByUsername(ctx, strings.TrimSpace(in.Username))
	if errors.Is(err, store.ErrNotFound) {
		return nil, "", ErrInvalidCredentials
	}
	if err != nil {
		return nil, "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(in.Password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	token, err := d.tokens.Issue(u.ID, u.Username)
	if err != nil {
		return nil, "", fmt.Errorf("issue token: %w", err)
	}
	return u, token, nil
}

func (d *Directory) Get(ctx context.Context, id uint) (*models.User, error) {
	return d.users.GetUser(ctx, id)
}

// Delete removes the account together with its recipes and likes. The database
// cascades the rows; the like sets and images of those rows are cleaned up
// afterwards, best effort.
func (d *Directory) Delete(ctx context.Context, id uint) error {
	saved, err := d.recipes.ListLiked(ctx, id)
	if err != nil {
		return err
	}
	own, err := d.recipes.ListByAuthor(ctx, id)
	if err != nil {
		return err
	}

	if err := d.users.DeleteUser(ctx, id); err != nil {
		return err
	}

	for _, r := range saved {
		if d.likes == nil {
			break
		}
		if err := d.likes.Record(ctx, r.ID, id, false); err != nil {
			slog.Warn("Failed to remove like", "error", err, "recipe_id", r.ID, "user_id", id)
		}
	}
	for _, r := range own {
		if d.likes != nil {
			if err := d.likes.Drop(ctx, r.ID); err != nil {
				slog.Warn("Failed to drop like set", "error", err, "recipe_id", r.ID)
			}
		}
		if d.images != nil && r.Image != "" {
			if err := d.images.Remove(ctx, r.Image); err != nil {
				slog.Warn("Failed to remove image", "error", err, "image", r.Image)
			}
		}
	}
	return nil
}
