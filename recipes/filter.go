package recipes

import (
	"strings"

	"recipebox/models"
)

// FilterByName keeps the recipes whose name contains query, ignoring case.
// An empty query returns list as is.
func FilterByName(list []models.Recipe, query string) []models.Recipe {
	if query == "" {
		return list
	}
	q := strings.ToLower(query)
	filtered := make([]models.Recipe, 0, len(list))
	for _, r := range list {
		if strings.Contains(strings.ToLower(r.Name), q) {
			filtered = append(filtered, r)
		}
	}
	return filtered
}
