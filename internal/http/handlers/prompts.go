package handlers

import (
	"net/http"

	"studio/internal/middleware"
)

type suggestionsResponse struct {
	Locale      string   `json:"locale"`
	Suggestions []string `json:"suggestions"`
}

// PromptSuggestions lists the quick-action instructions for the negotiated
// locale.
func (a *App) PromptSuggestions(w http.ResponseWriter, r *http.Request) {
	locale, items := a.Prompts.Suggestions(middleware.LocaleFromContext(r.Context()))
	a.json(w, http.StatusOK, suggestionsResponse{Locale: locale, Suggestions: items})
}
