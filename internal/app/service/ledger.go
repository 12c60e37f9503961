// Package service implements the image ledger: it classifies uploads,
// keeps the durable set of classification records for all users and the
// working set of the user currently being served. It also provides the JWT
// helpers used to identify that user.
package service

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/atinyakov/dogify/internal/classifier"
	"github.com/atinyakov/dogify/internal/models"
	"github.com/atinyakov/dogify/internal/storage"
	"github.com/atinyakov/dogify/internal/worker"
)

// Latency is the simulated delay of each ledger operation.
type Latency struct {
	Upload time.Duration
	List   time.Duration
	Delete time.Duration
}

// DefaultLatency matches the delays users of the web dashboard are used to.
var DefaultLatency = Latency{
	Upload: 1500 * time.Millisecond,
	List:   500 * time.Millisecond,
	Delete: 500 * time.Millisecond,
}

// Observer receives ledger events. Implemented by metrics.Metrics.
type Observer interface {
	Observe(op, outcome string, d time.Duration)
	RecordsStored(n int)
	BreedIdentified(breed string)
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// LedgerOption configures a Ledger.
type LedgerOption func(*Ledger)

// WithClassifier replaces the file name pattern classifier.
func WithClassifier(c classifier.Classifier) LedgerOption {
	return func(l *Ledger) { l.classifier = c }
}

// WithLatency sets the simulated delay of each operation.
func WithLatency(lat Latency) LedgerOption {
	return func(l *Ledger) { l.latency = lat }
}

// WithSleeper replaces the wait used to simulate latency.
func WithSleeper(s Sleeper) LedgerOption {
	return func(l *Ledger) { l.sleep = s }
}

// WithClock sets the source of record timestamps.
func WithClock(now func() time.Time) LedgerOption {
	return func(l *Ledger) { l.now = now }
}

// WithIDGenerator sets how record ids are minted.
func WithIDGenerator(gen func() string) LedgerOption {
	return func(l *Ledger) { l.newID = gen }
}

// WithObserver reports operation outcomes to o.
func WithObserver(o Observer) LedgerOption {
	return func(l *Ledger) { l.observer = o }
}

// WithBlobStore shares an image store with the caller.
func WithBlobStore(b *BlobStore) LedgerOption {
	return func(l *Ledger) { l.blobs = b }
}

// WithSlot changes the storage slot holding the durable set.
func WithSlot(name string) LedgerOption {
	return func(l *Ledger) { l.slot = name }
}

// Ledger owns the classification records. All operations run on a single
// task worker, so they never interleave; durable writes always start from
// the full durable set re-read from storage, never from the working set.
type Ledger struct {
	slots      storage.Slots
	slot       string
	classifier classifier.Classifier
	blobs      *BlobStore
	worker     *worker.TaskWorker
	latency    Latency
	sleep      Sleeper
	now        func() time.Time
	newID      func() string
	observer   Observer
	logger     *zap.Logger

	mu      sync.RWMutex
	owner   string
	working []storage.ClassificationRecord
}

// NewLedger creates a ledger over slots. Latency defaults to zero; pass
// WithLatency(DefaultLatency) to simulate the dashboard delays.
func NewLedger(slots storage.Slots, logger *zap.Logger, opts ...LedgerOption) *Ledger {
	l := &Ledger{
		slots:      slots,
		slot:       storage.ImagesSlot,
		classifier: classifier.NewPatternClassifier(),
		blobs:      NewBlobStore(),
		sleep:      wait,
		now:        time.Now,
		newID:      newRecordID,
		logger:     logger,
		working:    []storage.ClassificationRecord{},
	}

	for _, opt := range opts {
		opt(l)
	}

	l.worker = worker.NewTaskWorker(logger)

	return l
}

func newRecordID() string {
	return "img_" + uuid.New().String()
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the task worker. Operations submitted afterwards fail.
func (l *Ledger) Close() {
	l.worker.Stop()
}

// Classify previews the classification of a file name without storing anything.
func (l *Ledger) Classify(fileName string) classifier.Result {
	return l.classifier.Classify(fileName)
}

// Breeds lists the labels the classifier can report.
func (l *Ledger) Breeds() []string {
	if b, ok := l.classifier.(interface{ Breeds() []string }); ok {
		return b.Breeds()
	}
	return nil
}

// Blob returns an uploaded image by reference.
func (l *Ledger) Blob(ref string) (Blob, bool) {
	return l.blobs.Get(ref)
}

func (l *Ledger) PingContext(ctx context.Context) error {
	return l.slots.PingContext(ctx)
}

// Upload classifies the file by name and, when a breed is identified, stores
// a new record for ownerID. Unrecognized files return ErrUnrecognizedSubject
// and leave storage untouched.
func (l *Ledger) Upload(ctx context.Context, file models.ImageFile, ownerID string) (*storage.ClassificationRecord, error) {
	if ownerID == "" {
		return nil, ErrMissingOwner
	}

	start := l.now()
	var created *storage.ClassificationRecord

	err := l.worker.Submit(ctx, "upload", func(ctx context.Context) error {
		res := l.classifier.Classify(file.Name)
		if !res.OK {
			return ErrUnrecognizedSubject
		}

		if err := l.sleep(ctx, l.latency.Upload); err != nil {
			return err
		}
		ctx = context.WithoutCancel(ctx)

		record := storage.ClassificationRecord{
			ID:         l.newID(),
			UserID:     ownerID,
			ImageURL:   l.blobs.Put(file.ContentType, file.Data),
			Breed:      res.BreedLabel,
			Confidence: res.Confidence,
			CreatedAt:  l.now().UTC(),
		}

		durable, err := storage.ReadRecords(ctx, l.slots, l.slot)
		if err != nil {
			l.blobs.Delete(record.ImageURL)
			return storageFailure("read", err)
		}

		durable = append(durable, record)
		if err := storage.WriteRecords(ctx, l.slots, l.slot, durable); err != nil {
			l.blobs.Delete(record.ImageURL)
			return storageFailure("write", err)
		}

		l.appendWorking(record)
		l.stored(len(durable))
		if l.observer != nil {
			l.observer.BreedIdentified(record.Breed)
		}

		created = &record
		return nil
	})

	l.observe("upload", err, start)
	if err != nil {
		l.logger.Info("upload rejected",
			zap.String("owner", ownerID),
			zap.String("file", file.Name),
			zap.Error(err),
		)
		return nil, err
	}

	l.logger.Info("image classified",
		zap.String("owner", ownerID),
		zap.String("id", created.ID),
		zap.String("breed", created.Breed),
	)

	return created, nil
}

// ListForOwner returns ownerID's records in insertion order and makes them
// the working set.
func (l *Ledger) ListForOwner(ctx context.Context, ownerID string) ([]storage.ClassificationRecord, error) {
	start := l.now()
	var owned []storage.ClassificationRecord

	err := l.worker.Submit(ctx, "list", func(ctx context.Context) error {
		if err := l.sleep(ctx, l.latency.List); err != nil {
			return err
		}
		ctx = context.WithoutCancel(ctx)

		durable, err := storage.ReadRecords(ctx, l.slots, l.slot)
		if err != nil {
			return storageFailure("read", err)
		}

		owned = make([]storage.ClassificationRecord, 0, len(durable))
		for _, r := range durable {
			if r.UserID == ownerID {
				owned = append(owned, r)
			}
		}

		l.mu.Lock()
		l.owner = ownerID
		l.working = slices.Clone(owned)
		l.mu.Unlock()

		return nil
	})

	l.observe("list", err, start)
	if err != nil {
		return nil, err
	}

	return owned, nil
}

// Delete removes the record with the given id, whoever owns it.
func (l *Ledger) Delete(ctx context.Context, id string) error {
	return l.remove(ctx, "", id)
}

// DeleteForOwner removes the record only if it belongs to ownerID; records
// of other users are reported as ErrRecordNotFound.
func (l *Ledger) DeleteForOwner(ctx context.Context, ownerID, id string) error {
	if ownerID == "" {
		return ErrMissingOwner
	}
	return l.remove(ctx, ownerID, id)
}

func (l *Ledger) remove(ctx context.Context, ownerID, id string) error {
	start := l.now()

	err := l.worker.Submit(ctx, "delete", func(ctx context.Context) error {
		if err := l.sleep(ctx, l.latency.Delete); err != nil {
			return err
		}
		ctx = context.WithoutCancel(ctx)

		durable, err := storage.ReadRecords(ctx, l.slots, l.slot)
		if err != nil {
			return storageFailure("read", err)
		}

		idx := slices.IndexFunc(durable, func(r storage.ClassificationRecord) bool {
			return r.ID == id
		})
		if idx < 0 || (ownerID != "" && durable[idx].UserID != ownerID) {
			return ErrRecordNotFound
		}

		removed := durable[idx]
		durable = slices.Delete(durable, idx, idx+1)
		if err := storage.WriteRecords(ctx, l.slots, l.slot, durable); err != nil {
			return storageFailure("write", err)
		}

		l.mu.Lock()
		l.working = slices.DeleteFunc(l.working, func(r storage.ClassificationRecord) bool {
			return r.ID == id
		})
		l.mu.Unlock()

		l.blobs.Delete(removed.ImageURL)
		l.stored(len(durable))

		return nil
	})

	l.observe("delete", err, start)
	if err != nil {
		return err
	}

	l.logger.Info("image deleted", zap.String("id", id))
	return nil
}

// Stats summarises the durable set.
func (l *Ledger) Stats(ctx context.Context) (*models.Stats, error) {
	var stats *models.Stats

	err := l.worker.Submit(ctx, "stats", func(ctx context.Context) error {
		durable, err := storage.ReadRecords(ctx, l.slots, l.slot)
		if err != nil {
			return storageFailure("read", err)
		}

		owners := make(map[string]struct{})
		breeds := make(map[string]int)
		for _, r := range durable {
			owners[r.UserID] = struct{}{}
			breeds[r.Breed]++
		}

		stats = &models.Stats{
			Records: len(durable),
			Owners:  len(owners),
			Breeds:  breeds,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return stats, nil
}

// WorkingSet returns the active owner and a copy of the working set.
func (l *Ledger) WorkingSet() (string, []storage.ClassificationRecord) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.owner, slices.Clone(l.working)
}

// appendWorking adds a new record to the working set when it belongs to the
// active owner. With no active owner yet, the record's owner becomes active.
func (l *Ledger) appendWorking(r storage.ClassificationRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.owner == "" {
		l.owner = r.UserID
	}
	if l.owner == r.UserID {
		l.working = append(l.working, r)
	}
}

func (l *Ledger) stored(n int) {
	if l.observer != nil {
		l.observer.RecordsStored(n)
	}
}

func (l *Ledger) observe(op string, err error, start time.Time) {
	if l.observer == nil {
		return
	}
	l.observer.Observe(op, outcome(err), l.now().Sub(start))
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrUnrecognizedSubject):
		return "unrecognized"
	case errors.Is(err, ErrRecordNotFound):
		return "not_found"
	case errors.Is(err, storage.ErrQuotaExceeded):
		return "quota_exceeded"
	case errors.Is(err, ErrStorageFailure):
		return "storage_failure"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "error"
	}
}
