package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/atinyakov/dogify/internal/app/service"
	"github.com/atinyakov/dogify/internal/middleware"
	"github.com/atinyakov/dogify/internal/models"
	"github.com/atinyakov/dogify/internal/storage"
)

// requestTimeout bounds a ledger call made on behalf of an HTTP request. It
// has to cover the simulated latency plus queueing behind other requests.
const requestTimeout = 10 * time.Second

// DefaultMaxUploadBytes is the largest image accepted by Upload.
const DefaultMaxUploadBytes = service.MaxImageBytes

// UploadField is the multipart form field holding the image.
const UploadField = "file"

type PostHandler struct {
	ledger    service.LedgerIface
	maxUpload int64
	logger    *zap.Logger
}

// NewPost creates the upload and classify handlers. maxUpload <= 0 means
// DefaultMaxUploadBytes.
func NewPost(l service.LedgerIface, maxUpload int64, logger *zap.Logger) *PostHandler {
	if maxUpload <= 0 {
		maxUpload = DefaultMaxUploadBytes
	}

	return &PostHandler{
		ledger:    l,
		maxUpload: maxUpload,
		logger:    logger,
	}
}

// Upload accepts a multipart image, classifies it and stores the record for
// the current user.
func (h *PostHandler) Upload(res http.ResponseWriter, req *http.Request) {
	userID := middleware.UserID(req.Context())
	if userID == "" {
		writeError(res, h.logger, http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
		return
	}

	// room for the multipart envelope around the file
	req.Body = http.MaxBytesReader(res, req.Body, h.maxUpload+1<<20)

	file, header, err := req.FormFile(UploadField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(res, h.logger, http.StatusRequestEntityTooLarge, "Image must not be larger than 5MB")
			return
		}
		writeError(res, h.logger, http.StatusBadRequest, "Request must be multipart with a \"file\" field")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if err := service.CheckImageType(contentType); err != nil {
		writeError(res, h.logger, http.StatusUnsupportedMediaType, "Please upload a JPEG, PNG or WebP image")
		return
	}

	if header.Size > h.maxUpload {
		writeError(res, h.logger, http.StatusRequestEntityTooLarge, "Image must not be larger than 5MB")
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, h.maxUpload+1))
	if err != nil {
		h.logger.Error("failed to read upload", zap.Error(err))
		writeError(res, h.logger, http.StatusBadRequest, "Failed to read the uploaded file")
		return
	}
	if int64(len(data)) > h.maxUpload {
		writeError(res, h.logger, http.StatusRequestEntityTooLarge, "Image must not be larger than 5MB")
		return
	}

	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	record, err := h.ledger.Upload(ctx, models.ImageFile{
		Name:        header.Filename,
		ContentType: contentType,
		Size:        int64(len(data)),
		Data:        data,
	}, userID)
	if err != nil {
		writeLedgerError(res, h.logger, err)
		return
	}

	writeJSON(res, h.logger, http.StatusCreated, record)
}

// Classify previews the breed for a file name. Nothing is stored.
func (h *PostHandler) Classify(res http.ResponseWriter, req *http.Request) {
	var request models.ClassifyRequest

	if err := decodeJSONBody(res, req, &request); err != nil {
		var mr *requestError
		if errors.As(err, &mr) {
			writeError(res, h.logger, mr.status, mr.msg)
			return
		}
		h.logger.Error(err.Error())
		writeError(res, h.logger, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}

	result := h.ledger.Classify(request.FileName)

	writeJSON(res, h.logger, http.StatusOK, models.ClassifyResponse{
		Identified: result.OK,
		Breed:      result.BreedLabel,
		Confidence: result.Confidence,
	})
}

// writeLedgerError maps ledger errors to status codes.
func writeLedgerError(res http.ResponseWriter, logger *zap.Logger, err error) {
	switch {
	case errors.Is(err, service.ErrUnrecognizedSubject):
		writeError(res, logger, http.StatusUnprocessableEntity, service.UnrecognizedMessage)
	case errors.Is(err, service.ErrRecordNotFound):
		writeError(res, logger, http.StatusNotFound, "Image not found")
	case errors.Is(err, service.ErrUnsupportedImage):
		writeError(res, logger, http.StatusUnsupportedMediaType, "Please upload a JPEG, PNG or WebP image")
	case errors.Is(err, service.ErrImageTooLarge):
		writeError(res, logger, http.StatusRequestEntityTooLarge, "Image must not be larger than 5MB")
	case errors.Is(err, service.ErrMissingOwner):
		writeError(res, logger, http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
	case errors.Is(err, storage.ErrQuotaExceeded):
		writeError(res, logger, http.StatusInsufficientStorage, "Storage is full. Delete some images and try again.")
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		writeError(res, logger, http.StatusServiceUnavailable, "Request timed out")
	default:
		logger.Error("ledger operation failed", zap.Error(err))
		writeError(res, logger, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
	}
}
