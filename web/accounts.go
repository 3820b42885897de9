package web

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"recipebox/middleware"
	"recipebox/models"
	"recipebox/store"
	"recipebox/users"
)

func (s *Server) setTokenCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.TokenCookie, token, int(s.tokens.TTL().Seconds()), "/", "", false, true)
}

func (s *Server) loggedIn(c *gin.Context, u *models.User, token string) {
	if wantsJSON(c) {
		c.JSON(http.StatusOK, gin.H{"id": u.ID, "username": u.Username, "token": token})
		return
	}
	s.setTokenCookie(c, token)
	c.Redirect(http.StatusFound, "/")
}

func (s *Server) registerPage(c *gin.Context) {
	if middleware.CurrentActor(c).Authenticated() {
		c.Redirect(http.StatusFound, "/")
		return
	}
	c.HTML(http.StatusOK, "register.html", gin.H{})
}

func (s *Server) register(c *gin.Context) {
	var in users.Credentials
	if err := c.ShouldBind(&in); err != nil {
		s.accountError(c, "register.html", http.StatusBadRequest, "invalid form")
		return
	}

	u, token, err := s.users.Register(c.Request.Context(), in)
	var verrs validator.ValidationErrors
	switch {
	case errors.Is(err, users.ErrUsernameTaken):
		s.accountError(c, "register.html", http.StatusConflict, err.Error())
		return
	case errors.As(err, &verrs):
		s.accountError(c, "register.html", http.StatusBadRequest, "username is required and passwords need at least 8 characters")
		return
	case err != nil:
		slog.Error("Failed to register user", "error", err, "username", in.Username)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	slog.Info("User registered", "user_id", u.ID, "username", u.Username)
	s.loggedIn(c, u, token)
}

func (s *Server) loginPage(c *gin.Context) {
	if middleware.CurrentActor(c).Authenticated() {
		c.Redirect(http.StatusFound, "/")
		return
	}
	c.HTML(http.StatusOK, "login.html", gin.H{})
}

func (s *Server) login(c *gin.Context) {
	var in users.Credentials
	if err := c.ShouldBind(&in); err != nil {
		s.accountError(c, "login.html", http.StatusBadRequest, "invalid form")
		return
	}

	u, token, err := s.users.Login(c.Request.Context(), in)
	if errors.Is(err, users.ErrInvalidCredentials) {
		s.accountError(c, "login.html", http.StatusUnauthorized, err.Error())
		return
	}
	if err != nil {
		slog.Error("Failed to log in", "error", err, "username", in.Username)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	s.loggedIn(c, u, token)
}

func (s *Server) logout(c *gin.Context) {
	c.SetCookie(middleware.TokenCookie, "", -1, "/", "", false, true)
	c.Redirect(http.StatusFound, "/")
}

func (s *Server) accountError(c *gin.Context, page string, code int, msg string) {
	c.Negotiate(code, gin.Negotiate{
		Offered:  offered,
		HTMLName: page,
		Data:     gin.H{"error": msg},
	})
}

func (s *Server) getMe(c *gin.Context) {
	actor := middleware.CurrentActor(c)
	u, err := s.users.Get(c.Request.Context(), actor.ID)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, u)
}

func (s *Server) deleteMe(c *gin.Context) {
	actor := middleware.CurrentActor(c)
	err := s.users.Delete(c.Request.Context(), actor.ID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		slog.Error("Failed to delete user", "error", err, "user_id", actor.ID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	slog.Info("User deleted", "user_id", actor.ID)
	c.SetCookie(middleware.TokenCookie, "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"message": "account deleted"})
}
