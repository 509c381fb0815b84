package controllers

import (
	"net/http"

	"github.com/virtualmandi/mandi-backend/api/responses"
	"github.com/virtualmandi/mandi-backend/api/validators"
	"github.com/virtualmandi/mandi-backend/internal/prefs"
	"github.com/virtualmandi/mandi-backend/pkg/logger"
)

type setLanguageRequest struct {
	Language string `json:"language" validate:"required,min=2,max=5"`
}

// PrefsGet returns the caller's language preference and first-visit flag.
func PrefsGet(svc prefs.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		visited, err := svc.HasVisited(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		language, err := svc.GetLanguage(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"language": language,
			"visited":  visited,
		})
	}
}

// PrefsSetLanguage stores the caller's language choice and marks the
// first-run picker as seen.
func PrefsSetLanguage(svc prefs.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body setLanguageRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.SetLanguage(r.Context(), userID, body.Language); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.MarkVisited(r.Context(), userID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"language": body.Language})
	}
}
