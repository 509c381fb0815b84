package controllers

import (
	"net/http"

	"github.com/virtualmandi/mandi-backend/api/responses"
	"github.com/virtualmandi/mandi-backend/internal/marketplace"
	"github.com/virtualmandi/mandi-backend/pkg/logger"
)

// MarketplaceRefresh resynchronizes the caller's entire session cache from
// the backing tables in one call.
func MarketplaceRefresh(registry *marketplace.Registry, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		store, err := registry.GetOrCreate(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := store.Refresh(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		productRows, requestRows := store.Snapshot()
		responses.WriteSuccess(w, map[string]any{
			"products": productRows,
			"requests": requestRows,
		})
	}
}
