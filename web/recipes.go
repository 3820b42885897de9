package web

import (
	"github.com/gin-gonic/gin"

	"recipebox/middleware"
	"recipebox/recipes"
)

func (s *Server) list(c *gin.Context) {
	res, err := s.recipes.List(c.Request.Context(), middleware.CurrentActor(c), searchQuery(c))
	respond(c, res, err)
}

func (s *Server) listMine(c *gin.Context) {
	res, err := s.recipes.ListMine(c.Request.Context(), middleware.CurrentActor(c), searchQuery(c))
	respond(c, res, err)
}

func (s *Server) listSaved(c *gin.Context) {
	res, err := s.recipes.ListSaved(c.Request.Context(), middleware.CurrentActor(c), searchQuery(c))
	respond(c, res, err)
}

func (s *Server) detail(c *gin.Context) {
	id, ok := recipeID(c)
	if !ok {
		return
	}
	res, err := s.recipes.Detail(c.Request.Context(), middleware.CurrentActor(c), id)
	respond(c, res, err)
}

func (s *Server) toggleLike(c *gin.Context) {
	id, ok := recipeID(c)
	if !ok {
		return
	}
	saved := c.PostForm("saved") == "true"
	res, err := s.recipes.ToggleLike(c.Request.Context(), middleware.CurrentActor(c), id, saved)
	respond(c, res, err)
}

func (s *Server) newForm(c *gin.Context) {
	res, err := s.recipes.NewForm(c.Request.Context(), middleware.CurrentActor(c))
	respond(c, res, err)
}

func (s *Server) create(c *gin.Context) {
	form, closeImage := readRecipeForm(c)
	defer closeImage()
	res, err := s.recipes.Create(c.Request.Context(), middleware.CurrentActor(c), form)
	respond(c, res, err)
}

func (s *Server) editForm(c *gin.Context) {
	id, ok := recipeID(c)
	if !ok {
		return
	}
	res, err := s.recipes.EditForm(c.Request.Context(), middleware.CurrentActor(c), id)
	respond(c, res, err)
}

func (s *Server) update(c *gin.Context) {
	id, ok := recipeID(c)
	if !ok {
		return
	}
	form, closeImage := readRecipeForm(c)
	defer closeImage()
	res, err := s.recipes.Update(c.Request.Context(), middleware.CurrentActor(c), id, form)
	respond(c, res, err)
}

// readRecipeForm binds the text fields and opens the optional image file.
// Binding problems leave fields empty so validation rejects the form.
func readRecipeForm(c *gin.Context) (recipes.RecipeForm, func()) {
	var form recipes.RecipeForm
	_ = c.ShouldBind(&form.RecipeFields)

	file, err := c.FormFile("image")
	if err != nil || file.Size == 0 {
		return form, func() {}
	}
	src, err := file.Open()
	if err != nil {
		return form, func() {}
	}
	form.Image = &recipes.Upload{
		Filename:    file.Filename,
		ContentType: file.Header.Get("Content-Type"),
		Size:        file.Size,
		Body:        src,
	}
	return form, func() { _ = src.Close() }
}
