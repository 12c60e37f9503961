package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	ggrpc "google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	"github.com/atinyakov/dogify/internal/app/server/grpc"
	"github.com/atinyakov/dogify/internal/app/service"
	"github.com/atinyakov/dogify/internal/logger"
	"github.com/atinyakov/dogify/internal/storage"
)

func runCLI(t *testing.T, open func(*cli) (backend, error), args ...string) (string, error) {
	t.Helper()

	c := &cli{log: logger.New(), open: defaultOpen}
	if open != nil {
		c.open = open
	}

	cmd := c.rootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)

	err := c.execute(context.Background(), cmd)
	return out.String(), err
}

func writeImage(t *testing.T, dir, name string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte("\xff\xd8\xff\xe0 not really a jpeg"), 0o600))
	return p
}

func TestLocalLedgerFlow(t *testing.T) {
	dir := t.TempDir()
	images := t.TempDir()

	out, err := runCLI(t, nil, "--dir", dir, "upload", writeImage(t, images, "my_labrador.jpg"), "--owner", "alice")
	require.NoError(t, err)

	var rec storage.ClassificationRecord
	require.NoError(t, json.Unmarshal([]byte(out), &rec))
	assert.Equal(t, "alice", rec.UserID)
	assert.Equal(t, "Labrador Retriever", rec.Breed)
	assert.Contains(t, rec.ID, "img_")

	_, err = runCLI(t, nil, "--dir", dir, "upload", writeImage(t, images, "random_cat.png"), "--owner", "alice")
	require.EqualError(t, err, service.UnrecognizedMessage)

	_, err = runCLI(t, nil, "--dir", dir, "upload", writeImage(t, images, "beagle.png"))
	require.ErrorContains(t, err, "--owner")

	_, err = runCLI(t, nil, "--dir", dir, "upload", writeImage(t, images, "labrador.html"), "--owner", "alice")
	require.ErrorIs(t, err, service.ErrUnsupportedImage)

	out, err = runCLI(t, nil, "--dir", dir, "list", "--owner", "alice")
	require.NoError(t, err)
	var list []storage.ClassificationRecord
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	require.Len(t, list, 1)
	assert.Equal(t, rec.ID, list[0].ID)

	out, err = runCLI(t, nil, "--dir", dir, "list", "--owner", "bob")
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, out)

	_, err = runCLI(t, nil, "--dir", dir, "delete", rec.ID, "--owner", "bob")
	require.EqualError(t, err, "no such image")

	out, err = runCLI(t, nil, "--dir", dir, "-o", "yaml", "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "records: 1")

	out, err = runCLI(t, nil, "--dir", dir, "delete", rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "deleted "+rec.ID+"\n", out)

	out, err = runCLI(t, nil, "--dir", dir, "stats")
	require.NoError(t, err)
	assert.Contains(t, out, `"records": 0`)
}

func TestClassify(t *testing.T) {
	dir := t.TempDir()

	out, err := runCLI(t, nil, "--dir", dir, "classify", "happy-beagle.webp")
	require.NoError(t, err)
	assert.JSONEq(t, `{"identified":true,"breed":"Beagle","confidence":0.95}`, out)

	_, err = runCLI(t, nil, "--dir", dir, "classify", "sunset.jpg")
	require.EqualError(t, err, service.UnrecognizedMessage)
}

func TestBreedsDoesNotOpenBackend(t *testing.T) {
	out, err := runCLI(t, func(*cli) (backend, error) {
		t.Fatal("breeds must not open a backend")
		return nil, nil
	}, "-o", "yaml", "breeds")
	require.NoError(t, err)
	assert.Contains(t, out, "- Labrador Retriever")
}

func TestUnknownOutputFormat(t *testing.T) {
	_, err := runCLI(t, nil, "--dir", t.TempDir(), "-o", "xml", "breeds")
	require.ErrorContains(t, err, "unknown output format")
}

func TestRemoteBackend(t *testing.T) {
	mem, err := storage.CreateMemoryStorage()
	require.NoError(t, err)
	ledger := service.NewLedger(mem, zap.NewNop())
	t.Cleanup(ledger.Close)

	srv := grpc.New(ledger, service.NewAuth("secret"), "", zap.NewNop(), 0)
	lis := bufconn.Listen(1 << 20)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.GracefulStop)

	var issued string
	open := func(c *cli) (backend, error) {
		conn, err := ggrpc.NewClient("passthrough:///bufnet",
			ggrpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
				return lis.DialContext(ctx)
			}),
			ggrpc.WithTransportCredentials(insecure.NewCredentials()),
		)
		if err != nil {
			return nil, err
		}
		return newRemote(conn, c.token, func(tok string) { issued = tok }), nil
	}

	images := t.TempDir()
	out, err := runCLI(t, open, "--server", "bufnet", "upload", writeImage(t, images, "snowy_husky.jpg"))
	require.NoError(t, err)
	require.NotEmpty(t, issued)

	var rec storage.ClassificationRecord
	require.NoError(t, json.Unmarshal([]byte(out), &rec))
	assert.Equal(t, "Siberian Husky", rec.Breed)

	out, err = runCLI(t, open, "--server", "bufnet", "--token", issued, "list")
	require.NoError(t, err)
	var list []storage.ClassificationRecord
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	require.Len(t, list, 1)
	assert.Equal(t, rec.ID, list[0].ID)

	_, err = runCLI(t, open, "--server", "bufnet", "--token", issued, "delete", rec.ID)
	require.NoError(t, err)

	out, err = runCLI(t, open, "--server", "bufnet", "--token", issued, "list")
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, out)
}

func TestUploadHelp_LocalImageURL(t *testing.T) {
	out, err := runCLI(t, nil, "upload", "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "JPEG, PNG or WebP")
	assert.Contains(t, out, "image_url")
	assert.Contains(t, out, "gone once the command exits")
}
