package recipes

import (
	"fmt"
	"io"

	"recipebox/store"
)

const (
	TemplateDisplay = "display.html"
	TemplateRecipe  = "recipe.html"
	TemplateNew     = "new.html"
	TemplateEdit    = "edit.html"
)

const (
	PathList  = "/recipes/"
	PathNew   = "/recipes/new/"
	PathLogin = "/login/"
)

func DetailPath(id uint) string {
	return fmt.Sprintf("/recipes/%d/", id)
}

func EditPath(id uint) string {
	return fmt.Sprintf("/recipes/edit/%d/", id)
}

// ViewModel is the data handed to a template.
type ViewModel map[string]any

// Result is what a handler produces: a template to render, or a redirect when Redirect is set.
type Result struct {
	Template string
	View     ViewModel
	Redirect string
}

func (r Result) IsRedirect() bool {
	return r.Redirect != ""
}

func render(tmpl string, view ViewModel) Result {
	return Result{Template: tmpl, View: view}
}

func redirect(path string) Result {
	return Result{Redirect: path}
}

// Upload is an image file submitted with a recipe form.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// RecipeForm is a submitted new or edit form. Image is nil when no file was sent.
type RecipeForm struct {
	store.RecipeFields
	Image *Upload
}

// FormState pre-fills the recipe form templates.
type FormState struct {
	Name         string `json:"name"`
	Ingredients  string `json:"ingredients"`
	Instructions string `json:"instructions"`
	Image        string `json:"image"`
}
