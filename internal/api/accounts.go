package api

import (
	"net/http"

	"github.com/lmorrell/coldreach/internal/mailer"
)

type AccountHandler struct {
	pool *mailer.AccountPool
}

func NewAccountHandler(pool *mailer.AccountPool) *AccountHandler {
	return &AccountHandler{pool: pool}
}

// Usage returns the current quota position of every sending identity.
func (h *AccountHandler) Usage(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"accounts": h.pool.Usage(),
	})
}
