package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/atinyakov/dogify/internal/app/service"
	"github.com/atinyakov/dogify/internal/middleware"
)

type DeleteHandler struct {
	ledger service.LedgerIface
	logger *zap.Logger
}

func NewDelete(l service.LedgerIface, logger *zap.Logger) *DeleteHandler {
	return &DeleteHandler{
		ledger: l,
		logger: logger,
	}
}

// Image deletes one of the current user's records. Records of other users
// are reported as not found.
func (h *DeleteHandler) Image(res http.ResponseWriter, req *http.Request) {
	userID := middleware.UserID(req.Context())
	if userID == "" {
		writeError(res, h.logger, http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
		return
	}

	id := chi.URLParam(req, "id")
	if id == "" {
		writeError(res, h.logger, http.StatusBadRequest, "Image id is required")
		return
	}

	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	if err := h.ledger.DeleteForOwner(ctx, userID, id); err != nil {
		writeLedgerError(res, h.logger, err)
		return
	}

	res.WriteHeader(http.StatusNoContent)
}
