package service

import (
	"context"

	"github.com/atinyakov/dogify/internal/classifier"
	"github.com/atinyakov/dogify/internal/models"
	"github.com/atinyakov/dogify/internal/storage"
)

//go:generate mockgen -source=interface.go -destination=../../mocks/ledger_mock.go -package=mocks

// LedgerIface is what the HTTP and gRPC surfaces need from the ledger.
type LedgerIface interface {
	Upload(ctx context.Context, file models.ImageFile, ownerID string) (*storage.ClassificationRecord, error)
	ListForOwner(ctx context.Context, ownerID string) ([]storage.ClassificationRecord, error)
	DeleteForOwner(ctx context.Context, ownerID, id string) error
	Stats(ctx context.Context) (*models.Stats, error)
	Classify(fileName string) classifier.Result
	Breeds() []string
	Blob(ref string) (Blob, bool)
	PingContext(ctx context.Context) error
}

var _ LedgerIface = (*Ledger)(nil)
