package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/atinyakov/dogify/internal/app/service"
	"github.com/atinyakov/dogify/internal/middleware"
	"github.com/atinyakov/dogify/internal/models"
)

type GetHandler struct {
	ledger service.LedgerIface
	logger *zap.Logger
}

func NewGet(l service.LedgerIface, logger *zap.Logger) *GetHandler {
	return &GetHandler{
		ledger: l,
		logger: logger,
	}
}

// Images lists the current user's records; 204 when there are none.
func (h *GetHandler) Images(res http.ResponseWriter, req *http.Request) {
	userID := middleware.UserID(req.Context())
	if userID == "" {
		writeError(res, h.logger, http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
		return
	}

	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	records, err := h.ledger.ListForOwner(ctx, userID)
	if err != nil {
		writeLedgerError(res, h.logger, err)
		return
	}

	if len(records) == 0 {
		res.WriteHeader(http.StatusNoContent)
		return
	}

	writeJSON(res, h.logger, http.StatusOK, models.ImagesResponse(records))
}

// Breeds lists the breed labels the classifier knows.
func (h *GetHandler) Breeds(res http.ResponseWriter, _ *http.Request) {
	writeJSON(res, h.logger, http.StatusOK, h.ledger.Breeds())
}

// Blob serves an uploaded image by reference.
func (h *GetHandler) Blob(res http.ResponseWriter, req *http.Request) {
	ref := chi.URLParam(req, "ref")

	blob, ok := h.ledger.Blob(ref)
	if !ok {
		http.Error(res, "Image not found", http.StatusNotFound)
		return
	}

	contentType := blob.ContentType
	if service.CheckImageType(contentType) != nil {
		contentType = "application/octet-stream"
	}

	res.Header().Set("Content-Type", contentType)
	res.Header().Set("X-Content-Type-Options", "nosniff")
	res.Header().Set("Content-Security-Policy", "default-src 'none'")
	res.Header().Set("Content-Length", strconv.Itoa(len(blob.Data)))
	res.Header().Set("Cache-Control", "private, max-age=3600")
	res.WriteHeader(http.StatusOK)

	if _, err := res.Write(blob.Data); err != nil {
		h.logger.Error("failed to write image", zap.Error(err))
	}
}

func (h *GetHandler) Ping(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), 3*time.Second)
	defer cancel()

	if err := h.ledger.PingContext(ctx); err != nil {
		if errors.Is(err, errors.ErrUnsupported) {
			// memory storage has nothing to check
			res.WriteHeader(http.StatusOK)
			return
		}
		http.Error(res, err.Error(), http.StatusInternalServerError)
		return
	}

	res.WriteHeader(http.StatusOK)
}

// Stats reports totals over the durable set. Mounted behind WithSubnet.
func (h *GetHandler) Stats(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	stats, err := h.ledger.Stats(ctx)
	if err != nil {
		writeLedgerError(res, h.logger, err)
		return
	}

	writeJSON(res, h.logger, http.StatusOK, stats)
}
