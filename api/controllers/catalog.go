package controllers

import (
	"net/http"
	"strings"

	"github.com/fixhubapp/fixhub-backend/api/responses"
	"github.com/fixhubapp/fixhub-backend/pkg/catalog"
)

// CatalogCategories lists the static repair categories for pickers.
func CatalogCategories() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]any{"categories": catalog.Categories()})
	}
}

// CatalogResolveIssue maps an issue id to its category, falling back to
// "other" for anything unknown.
func CatalogResolveIssue() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		issueID := strings.TrimSpace(r.URL.Query().Get("issue"))
		responses.WriteSuccess(w, map[string]any{"category": catalog.CategoryForIssue(issueID)})
	}
}
