package main

import (
	"context"

	"go.uber.org/zap"
	ggrpc "google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/atinyakov/dogify/internal/app/server/grpc"
	"github.com/atinyakov/dogify/internal/app/service"
	"github.com/atinyakov/dogify/internal/classifier"
	"github.com/atinyakov/dogify/internal/models"
	"github.com/atinyakov/dogify/internal/storage"
)

// backend is what the commands run against: a local ledger directory or a
// remote server.
type backend interface {
	Classify(ctx context.Context, fileName string) (classifier.Result, error)
	Upload(ctx context.Context, file models.ImageFile, owner string) (*storage.ClassificationRecord, error)
	List(ctx context.Context, owner string) ([]storage.ClassificationRecord, error)
	Delete(ctx context.Context, owner, id string) error
	Stats(ctx context.Context) (*models.Stats, error)
	Close() error
}

type localBackend struct {
	ledger *service.Ledger
	fs     *storage.FileStorage
}

func openLocal(dir string, latency bool, logger *zap.Logger) (*localBackend, error) {
	fs, err := storage.NewFileStorage(dir, logger)
	if err != nil {
		return nil, err
	}

	var opts []service.LedgerOption
	if latency {
		opts = append(opts, service.WithLatency(service.DefaultLatency))
	}

	return &localBackend{
		ledger: service.NewLedger(fs, logger, opts...),
		fs:     fs,
	}, nil
}

func (b *localBackend) Classify(_ context.Context, fileName string) (classifier.Result, error) {
	return b.ledger.Classify(fileName), nil
}

func (b *localBackend) Upload(ctx context.Context, file models.ImageFile, owner string) (*storage.ClassificationRecord, error) {
	if err := service.CheckImage(file, 0); err != nil {
		return nil, err
	}
	return b.ledger.Upload(ctx, file, owner)
}

func (b *localBackend) List(ctx context.Context, owner string) ([]storage.ClassificationRecord, error) {
	return b.ledger.ListForOwner(ctx, owner)
}

// Delete removes any owner's record when owner is empty.
func (b *localBackend) Delete(ctx context.Context, owner, id string) error {
	if owner == "" {
		return b.ledger.Delete(ctx, id)
	}
	return b.ledger.DeleteForOwner(ctx, owner, id)
}

func (b *localBackend) Stats(ctx context.Context) (*models.Stats, error) {
	return b.ledger.Stats(ctx)
}

func (b *localBackend) Close() error {
	b.ledger.Close()
	return b.fs.Close()
}

// remoteBackend talks to a dogify gRPC server. The owner is whoever the
// token identifies, so owner arguments are ignored.
type remoteBackend struct {
	conn       *ggrpc.ClientConn
	client     *grpc.Client
	onNewToken func(string)
	token      string
}

func dialRemote(addr, token string, onNewToken func(string)) (*remoteBackend, error) {
	conn, err := ggrpc.NewClient(addr,
		ggrpc.WithTransportCredentials(insecure.NewCredentials()),
		ggrpc.WithDefaultCallOptions(ggrpc.MaxCallSendMsgSize(grpc.MaxMessageBytes)),
	)
	if err != nil {
		return nil, err
	}
	return newRemote(conn, token, onNewToken), nil
}

func newRemote(conn *ggrpc.ClientConn, token string, onNewToken func(string)) *remoteBackend {
	return &remoteBackend{
		conn:       conn,
		client:     grpc.NewClient(conn, token),
		onNewToken: onNewToken,
		token:      token,
	}
}

// tokenCheck reports a token issued by the server so the user can reuse it.
func (b *remoteBackend) tokenCheck() {
	if t := b.client.Token(); t != b.token {
		b.token = t
		if b.onNewToken != nil {
			b.onNewToken(t)
		}
	}
}

func (b *remoteBackend) Classify(ctx context.Context, fileName string) (classifier.Result, error) {
	defer b.tokenCheck()
	return b.client.Classify(ctx, fileName)
}

func (b *remoteBackend) Upload(ctx context.Context, file models.ImageFile, _ string) (*storage.ClassificationRecord, error) {
	defer b.tokenCheck()
	return b.client.Upload(ctx, file)
}

func (b *remoteBackend) List(ctx context.Context, _ string) ([]storage.ClassificationRecord, error) {
	defer b.tokenCheck()
	return b.client.ListImages(ctx)
}

func (b *remoteBackend) Delete(ctx context.Context, _, id string) error {
	defer b.tokenCheck()
	return b.client.DeleteImage(ctx, id)
}

func (b *remoteBackend) Stats(ctx context.Context) (*models.Stats, error) {
	defer b.tokenCheck()
	return b.client.GetStats(ctx)
}

func (b *remoteBackend) Close() error {
	return b.conn.Close()
}
