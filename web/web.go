// Package web exposes the recipe handlers and the account pages over gin.
package web

import (
	"embed"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"recipebox/middleware"
	"recipebox/recipes"
	"recipebox/users"
)

//go:embed templates/*.html
var templateFS embed.FS

var offered = []string{binding.MIMEHTML, binding.MIMEJSON}

type Server struct {
	recipes *recipes.Service
	users   *users.Directory
	tokens  *middleware.Tokens
	images  recipes.ImageStore
}

func NewServer(svc *recipes.Service, dir *users.Directory, tokens *middleware.Tokens, images recipes.ImageStore) *Server {
	return &Server{recipes: svc, users: dir, tokens: tokens, images: images}
}

func (s *Server) templates() *template.Template {
	funcs := template.FuncMap{
		"imageURL": func(ref string) string {
			if ref == "" {
				return ""
			}
			return s.images.URL(ref)
		},
		"has": func(m map[string]any, key string) bool {
			_, ok := m[key]
			return ok
		},
	}
	return template.Must(template.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.html"))
}

// Router builds the gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.SetHTMLTemplate(s.templates())
	r.Use(middleware.Actor(s.tokens))

	r.GET("/", s.home)
	r.GET("/register/", s.registerPage)
	r.POST("/register/", s.register)
	r.GET("/login/", s.loginPage)
	r.POST("/login/", s.login)
	r.POST("/logout/", s.logout)

	me := r.Group("/me")
	me.Use(middleware.AuthMiddleware())
	{
		me.GET("", s.getMe)
		me.DELETE("", s.deleteMe)
	}

	rec := r.Group("/recipes")
	{
		rec.GET("/", s.list)
		rec.GET("/search", s.list)
		rec.GET("/created-recipes/", s.listMine)
		rec.GET("/saved-recipes/", s.listSaved)
		rec.GET("/new/", s.newForm)
		rec.POST("/new/", s.create)
		rec.GET("/edit/:id/", s.editForm)
		rec.POST("/edit/:id/", s.update)
		rec.GET("/:id/", s.detail)
		rec.POST("/:id/", s.toggleLike)
	}
	return r
}

// respond renders a handler result. ErrDenied sends the client to the login page.
func respond(c *gin.Context, res recipes.Result, err error) {
	if err != nil {
		if errors.Is(err, recipes.ErrDenied) {
			c.Redirect(http.StatusFound, recipes.PathLogin)
			return
		}
		slog.Error("Request failed",
			"error", err,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if res.IsRedirect() {
		c.Redirect(http.StatusFound, res.Redirect)
		return
	}
	c.Negotiate(http.StatusOK, gin.Negotiate{
		Offered:  offered,
		HTMLName: res.Template,
		Data:     res.View,
	})
}

func recipeID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.AbortWithStatus(http.StatusNotFound)
		return 0, false
	}
	return uint(id), true
}

func searchQuery(c *gin.Context) string {
	return c.Query("search-area")
}

func wantsJSON(c *gin.Context) bool {
	return c.NegotiateFormat(offered...) == binding.MIMEJSON
}

func (s *Server) home(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", gin.H{"actor": middleware.CurrentActor(c)})
}
