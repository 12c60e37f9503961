package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/atinyakov/dogify/internal/app/service"
	"github.com/atinyakov/dogify/internal/classifier"
	"github.com/atinyakov/dogify/internal/models"
	"github.com/atinyakov/dogify/internal/storage"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func image(name string) models.ImageFile {
	return models.ImageFile{Name: name, ContentType: "image/jpeg", Size: 3, Data: []byte("jpg")}
}

func newLedger(t *testing.T, slots storage.Slots, opts ...service.LedgerOption) *service.Ledger {
	t.Helper()

	l := service.NewLedger(slots, zap.NewNop(), opts...)
	t.Cleanup(l.Close)
	return l
}

func durableSize(t *testing.T, slots storage.Slots) int {
	t.Helper()

	records, err := storage.ReadRecords(context.Background(), slots, storage.ImagesSlot)
	require.NoError(t, err)
	return len(records)
}

// flakySlots fails Get or Set on demand.
type flakySlots struct {
	storage.Slots
	getErr error
	setErr error
}

func (f *flakySlots) Get(ctx context.Context, name string) ([]byte, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.Slots.Get(ctx, name)
}

func (f *flakySlots) Set(ctx context.Context, name string, value []byte) error {
	if f.setErr != nil {
		return f.setErr
	}
	return f.Slots.Set(ctx, name, value)
}

type recordingObserver struct {
	mu       sync.Mutex
	ops      []string
	stored   int
	breeds   []string
	duration []time.Duration
}

func (o *recordingObserver) Observe(op, outcome string, d time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.ops = append(o.ops, op+":"+outcome)
	o.duration = append(o.duration, d)
}

func (o *recordingObserver) RecordsStored(n int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stored = n
}

func (o *recordingObserver) BreedIdentified(breed string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.breeds = append(o.breeds, breed)
}

func TestLedger_Scenario(t *testing.T) {
	mem, _ := storage.CreateMemoryStorage()
	ledger := newLedger(t, mem)
	ctx := context.Background()

	record, err := ledger.Upload(ctx, image("my_labrador_playing.jpg"), "u1")
	require.NoError(t, err)
	assert.Equal(t, "Labrador Retriever", record.Breed)
	assert.Equal(t, 0.95, record.Confidence)
	assert.Equal(t, "u1", record.UserID)
	assert.NotEmpty(t, record.ID)
	assert.NotEmpty(t, record.ImageURL)
	assert.False(t, record.CreatedAt.IsZero())

	_, err = ledger.Upload(ctx, image("random_cat.jpg"), "u1")
	require.ErrorIs(t, err, service.ErrUnrecognizedSubject)
	assert.Equal(t, 1, durableSize(t, mem))

	records, err := ledger.ListForOwner(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	if diff := cmp.Diff(*record, records[0]); diff != "" {
		t.Errorf("listed record mismatch (-want +got):\n%s", diff)
	}

	require.NoError(t, ledger.Delete(ctx, record.ID))

	records, err = ledger.ListForOwner(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestLedger_UnrecognizedNeverWrites(t *testing.T) {
	mem, _ := storage.CreateMemoryStorage()
	ledger := newLedger(t, mem)

	for _, name := range []string{"cat.png", "", "german_shepherd.jpg", "😀.gif"} {
		_, err := ledger.Upload(context.Background(), image(name), "u1")
		require.ErrorIs(t, err, service.ErrUnrecognizedSubject, name)
	}

	_, err := mem.Get(context.Background(), storage.ImagesSlot)
	assert.ErrorIs(t, err, storage.ErrSlotNotFound)

	owner, working := ledger.WorkingSet()
	assert.Empty(t, owner)
	assert.Empty(t, working)
}

func TestLedger_UploadGrowsDurableSetByOne(t *testing.T) {
	mem, _ := storage.CreateMemoryStorage()
	ledger := newLedger(t, mem)
	ctx := context.Background()

	names := []string{"poodle.jpg", "beagle.png", "boxer.webp", "husky.jpeg"}
	for i, name := range names {
		record, err := ledger.Upload(ctx, image(name), "u1")
		require.NoError(t, err)
		assert.GreaterOrEqual(t, record.Confidence, 0.0)
		assert.LessOrEqual(t, record.Confidence, 1.0)
		assert.Equal(t, i+1, durableSize(t, mem))
	}
}

func TestLedger_MissingOwner(t *testing.T) {
	mem, _ := storage.CreateMemoryStorage()
	ledger := newLedger(t, mem)

	_, err := ledger.Upload(context.Background(), image("beagle.jpg"), "")
	assert.ErrorIs(t, err, service.ErrMissingOwner)

	err = ledger.DeleteForOwner(context.Background(), "", "img_1")
	assert.ErrorIs(t, err, service.ErrMissingOwner)
}

func TestLedger_ListFiltersByOwnerInInsertionOrder(t *testing.T) {
	mem, _ := storage.CreateMemoryStorage()
	seq := 0
	ledger := newLedger(t, mem, service.WithIDGenerator(func() string {
		seq++
		return fmt.Sprintf("img_%d", seq)
	}))
	ctx := context.Background()

	uploads := []struct{ name, owner string }{
		{"poodle.jpg", "u1"},
		{"beagle.jpg", "u2"},
		{"boxer.jpg", "u1"},
		{"husky.jpg", "u2"},
		{"dachshund.jpg", "u1"},
	}
	for _, u := range uploads {
		_, err := ledger.Upload(ctx, image(u.name), u.owner)
		require.NoError(t, err)
	}

	records, err := ledger.ListForOwner(ctx, "u1")
	require.NoError(t, err)

	var ids []string
	for _, r := range records {
		assert.Equal(t, "u1", r.UserID)
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"img_1", "img_3", "img_5"}, ids)

	owner, working := ledger.WorkingSet()
	assert.Equal(t, "u1", owner)
	assert.Equal(t, records, working)

	records, err = ledger.ListForOwner(ctx, "nobody")
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestLedger_DeleteAfterListKeepsOtherOwners(t *testing.T) {
	mem, _ := storage.CreateMemoryStorage()
	ledger := newLedger(t, mem)
	ctx := context.Background()

	mine, err := ledger.Upload(ctx, image("poodle.jpg"), "u1")
	require.NoError(t, err)
	_, err = ledger.Upload(ctx, image("beagle.jpg"), "u2")
	require.NoError(t, err)
	_, err = ledger.Upload(ctx, image("rottweiler.jpg"), "u3")
	require.NoError(t, err)

	_, err = ledger.ListForOwner(ctx, "u1")
	require.NoError(t, err)

	require.NoError(t, ledger.Delete(ctx, mine.ID))

	assert.Equal(t, 2, durableSize(t, mem))

	others, err := ledger.ListForOwner(ctx, "u2")
	require.NoError(t, err)
	assert.Len(t, others, 1)
}

func TestLedger_UploadAfterListKeepsOtherOwners(t *testing.T) {
	mem, _ := storage.CreateMemoryStorage()
	ledger := newLedger(t, mem)
	ctx := context.Background()

	_, err := ledger.Upload(ctx, image("beagle.jpg"), "u2")
	require.NoError(t, err)

	_, err = ledger.ListForOwner(ctx, "u1")
	require.NoError(t, err)

	_, err = ledger.Upload(ctx, image("poodle.jpg"), "u1")
	require.NoError(t, err)

	assert.Equal(t, 2, durableSize(t, mem))

	owner, working := ledger.WorkingSet()
	assert.Equal(t, "u1", owner)
	require.Len(t, working, 1)
	assert.Equal(t, "Poodle", working[0].Breed)
}

func TestLedger_WorkingSetOnlyTracksActiveOwner(t *testing.T) {
	mem, _ := storage.CreateMemoryStorage()
	ledger := newLedger(t, mem)
	ctx := context.Background()

	_, err := ledger.ListForOwner(ctx, "u1")
	require.NoError(t, err)

	_, err = ledger.Upload(ctx, image("boxer.jpg"), "u2")
	require.NoError(t, err)

	owner, working := ledger.WorkingSet()
	assert.Equal(t, "u1", owner)
	assert.Empty(t, working)
}

func TestLedger_DeleteRemovesFromWorkingSet(t *testing.T) {
	mem, _ := storage.CreateMemoryStorage()
	ledger := newLedger(t, mem)
	ctx := context.Background()

	a, err := ledger.Upload(ctx, image("boxer.jpg"), "u1")
	require.NoError(t, err)
	b, err := ledger.Upload(ctx, image("beagle.jpg"), "u1")
	require.NoError(t, err)

	require.NoError(t, ledger.Delete(ctx, a.ID))

	_, working := ledger.WorkingSet()
	require.Len(t, working, 1)
	assert.Equal(t, b.ID, working[0].ID)
}

func TestLedger_DeleteUnknown(t *testing.T) {
	mem, _ := storage.CreateMemoryStorage()
	ledger := newLedger(t, mem)
	ctx := context.Background()

	err := ledger.Delete(ctx, "img_missing")
	assert.ErrorIs(t, err, service.ErrRecordNotFound)

	_, err = mem.Get(ctx, storage.ImagesSlot)
	assert.ErrorIs(t, err, storage.ErrSlotNotFound)
}

func TestLedger_DeleteForOwner(t *testing.T) {
	mem, _ := storage.CreateMemoryStorage()
	ledger := newLedger(t, mem)
	ctx := context.Background()

	record, err := ledger.Upload(ctx, image("bulldog.jpg"), "u1")
	require.NoError(t, err)

	err = ledger.DeleteForOwner(ctx, "u2", record.ID)
	assert.ErrorIs(t, err, service.ErrRecordNotFound)
	assert.Equal(t, 1, durableSize(t, mem))

	require.NoError(t, ledger.DeleteForOwner(ctx, "u1", record.ID))
	assert.Equal(t, 0, durableSize(t, mem))
}

func TestLedger_PersistAndReload(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	fs, err := storage.NewFileStorage(dir, zap.NewNop())
	require.NoError(t, err)

	first := service.NewLedger(fs, zap.NewNop())
	_, err = first.Upload(ctx, image("poodle.jpg"), "u1")
	require.NoError(t, err)
	_, err = first.Upload(ctx, image("yorkshire.jpg"), "u2")
	require.NoError(t, err)
	want, err := storage.ReadRecords(ctx, fs, storage.ImagesSlot)
	require.NoError(t, err)
	first.Close()

	reopened, err := storage.NewFileStorage(dir, zap.NewNop())
	require.NoError(t, err)
	second := newLedger(t, reopened)

	u1, err := second.ListForOwner(ctx, "u1")
	require.NoError(t, err)
	u2, err := second.ListForOwner(ctx, "u2")
	require.NoError(t, err)

	if diff := cmp.Diff(want, append(u1, u2...)); diff != "" {
		t.Errorf("reloaded records mismatch (-want +got):\n%s", diff)
	}
}

func TestLedger_QuotaFailureLeavesWorkingSet(t *testing.T) {
	mem, _ := storage.CreateMemoryStorage(storage.WithQuota(300))
	blobs := service.NewBlobStore()
	ledger := newLedger(t, mem, service.WithBlobStore(blobs))
	ctx := context.Background()

	first, err := ledger.Upload(ctx, image("poodle.jpg"), "u1")
	require.NoError(t, err)

	_, err = ledger.Upload(ctx, image("beagle.jpg"), "u1")
	require.ErrorIs(t, err, service.ErrStorageFailure)
	require.ErrorIs(t, err, storage.ErrQuotaExceeded)

	_, working := ledger.WorkingSet()
	require.Len(t, working, 1)
	assert.Equal(t, first.ID, working[0].ID)
	assert.Equal(t, 1, durableSize(t, mem))
	assert.Equal(t, 1, blobs.Len())
}

func TestLedger_StorageReadFailure(t *testing.T) {
	mem, _ := storage.CreateMemoryStorage()
	boom := errors.New("disk on fire")
	slots := &flakySlots{Slots: mem, getErr: boom}
	ledger := newLedger(t, slots)
	ctx := context.Background()

	_, err := ledger.Upload(ctx, image("boxer.jpg"), "u1")
	require.ErrorIs(t, err, service.ErrStorageFailure)
	require.ErrorIs(t, err, boom)

	_, err = ledger.ListForOwner(ctx, "u1")
	require.ErrorIs(t, err, service.ErrStorageFailure)

	err = ledger.Delete(ctx, "img_1")
	require.ErrorIs(t, err, service.ErrStorageFailure)

	_, err = ledger.Stats(ctx)
	require.ErrorIs(t, err, service.ErrStorageFailure)
}

func TestLedger_DeleteWriteFailureKeepsRecord(t *testing.T) {
	mem, _ := storage.CreateMemoryStorage()
	slots := &flakySlots{Slots: mem}
	ledger := newLedger(t, slots)
	ctx := context.Background()

	record, err := ledger.Upload(ctx, image("boxer.jpg"), "u1")
	require.NoError(t, err)

	slots.setErr = errors.New("read-only")
	err = ledger.Delete(ctx, record.ID)
	require.ErrorIs(t, err, service.ErrStorageFailure)

	_, working := ledger.WorkingSet()
	assert.Len(t, working, 1)
	_, ok := ledger.Blob(record.ImageURL)
	assert.True(t, ok)
}

func TestLedger_ConcurrentUploadsAllLand(t *testing.T) {
	mem, _ := storage.CreateMemoryStorage()
	ledger := newLedger(t, mem)
	ctx := context.Background()

	const n = 40
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := ledger.Upload(ctx, image(fmt.Sprintf("beagle_%d.jpg", i)), fmt.Sprintf("u%d", i%4))
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, n, durableSize(t, mem))

	stats, err := ledger.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, n, stats.Records)
	assert.Equal(t, 4, stats.Owners)
	assert.Equal(t, n, stats.Breeds["Beagle"])
}

func TestLedger_UniqueIDs(t *testing.T) {
	mem, _ := storage.CreateMemoryStorage()
	ledger := newLedger(t, mem)
	ctx := context.Background()

	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		r, err := ledger.Upload(ctx, image("labrador.jpg"), "u1")
		require.NoError(t, err)
		require.False(t, seen[r.ID], r.ID)
		seen[r.ID] = true
	}
}

func TestLedger_LatencyIsInjected(t *testing.T) {
	mem, _ := storage.CreateMemoryStorage()

	var mu sync.Mutex
	var waits []time.Duration
	sleeper := func(_ context.Context, d time.Duration) error {
		mu.Lock()
		waits = append(waits, d)
		mu.Unlock()
		return nil
	}

	ledger := newLedger(t, mem,
		service.WithLatency(service.DefaultLatency),
		service.WithSleeper(sleeper),
	)
	ctx := context.Background()

	r, err := ledger.Upload(ctx, image("boxer.jpg"), "u1")
	require.NoError(t, err)
	_, err = ledger.Upload(ctx, image("cat.jpg"), "u1")
	require.Error(t, err)
	_, err = ledger.ListForOwner(ctx, "u1")
	require.NoError(t, err)
	require.NoError(t, ledger.Delete(ctx, r.ID))

	// rejected uploads do not wait
	assert.Equal(t, []time.Duration{1500 * time.Millisecond, 500 * time.Millisecond, 500 * time.Millisecond}, waits)
}

func TestLedger_CancelledDuringLatencyChangesNothing(t *testing.T) {
	mem, _ := storage.CreateMemoryStorage()
	ledger := newLedger(t, mem, service.WithLatency(service.Latency{Upload: time.Hour}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := ledger.Upload(ctx, image("beagle.jpg"), "u1")
	require.ErrorIs(t, err, context.DeadlineExceeded)

	_, err = mem.Get(context.Background(), storage.ImagesSlot)
	assert.ErrorIs(t, err, storage.ErrSlotNotFound)
}

func TestLedger_ClockAndObserver(t *testing.T) {
	mem, _ := storage.CreateMemoryStorage()
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.FixedZone("X", 3600))
	obs := &recordingObserver{}

	ledger := newLedger(t, mem,
		service.WithClock(func() time.Time { return fixed }),
		service.WithObserver(obs),
	)
	ctx := context.Background()

	r, err := ledger.Upload(ctx, image("husky.jpg"), "u1")
	require.NoError(t, err)
	assert.Equal(t, fixed.UTC(), r.CreatedAt)

	_, _ = ledger.Upload(ctx, image("cat.jpg"), "u1")
	_ = ledger.Delete(ctx, "missing")
	require.NoError(t, ledger.Delete(ctx, r.ID))

	obs.mu.Lock()
	defer obs.mu.Unlock()
	assert.Equal(t, []string{"upload:ok", "upload:unrecognized", "delete:not_found", "delete:ok"}, obs.ops)
	assert.Equal(t, []string{"Siberian Husky"}, obs.breeds)
	assert.Equal(t, 0, obs.stored)
}

func TestLedger_CustomClassifierAndSlot(t *testing.T) {
	mem, _ := storage.CreateMemoryStorage()
	ledger := newLedger(t, mem,
		service.WithClassifier(classifier.NewPatternClassifier(classifier.Pattern{Substring: "corgi", Breed: "Corgi"})),
		service.WithSlot("other_slot"),
	)
	ctx := context.Background()

	r, err := ledger.Upload(ctx, image("corgi.png"), "u1")
	require.NoError(t, err)
	assert.Equal(t, "Corgi", r.Breed)

	records, err := storage.ReadRecords(ctx, mem, "other_slot")
	require.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Equal(t, []string{"Corgi"}, ledger.Breeds())
	assert.Equal(t, "Corgi", ledger.Classify("CORGI").BreedLabel)
}

func TestLedger_BlobLifecycle(t *testing.T) {
	mem, _ := storage.CreateMemoryStorage()
	ledger := newLedger(t, mem)
	ctx := context.Background()

	r, err := ledger.Upload(ctx, image("beagle.jpg"), "u1")
	require.NoError(t, err)

	blob, ok := ledger.Blob(r.ImageURL)
	require.True(t, ok)
	assert.Equal(t, "image/jpeg", blob.ContentType)
	assert.Equal(t, []byte("jpg"), blob.Data)

	require.NoError(t, ledger.Delete(ctx, r.ID))
	_, ok = ledger.Blob(r.ImageURL)
	assert.False(t, ok)
}

func TestLedger_ClosedRejectsOperations(t *testing.T) {
	mem, _ := storage.CreateMemoryStorage()
	ledger := service.NewLedger(mem, zap.NewNop())
	ledger.Close()

	_, err := ledger.Upload(context.Background(), image("beagle.jpg"), "u1")
	assert.Error(t, err)
}

func TestLedger_Ping(t *testing.T) {
	fs, err := storage.NewFileStorage(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	ledger := newLedger(t, fs)

	assert.NoError(t, ledger.PingContext(context.Background()))
}
