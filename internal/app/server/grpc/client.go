package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/atinyakov/dogify/internal/classifier"
	"github.com/atinyakov/dogify/internal/intercepters"
	"github.com/atinyakov/dogify/internal/models"
	"github.com/atinyakov/dogify/internal/storage"
)

// Client is a typed client of dogify.Ledger. It remembers the token issued
// on the first call and sends it on later ones.
type Client struct {
	conn  grpc.ClientConnInterface
	token string
}

// NewClient creates a client. token may be empty; the server then issues one.
func NewClient(conn grpc.ClientConnInterface, token string) *Client {
	return &Client{conn: conn, token: token}
}

// Token returns the token in use, if any.
func (c *Client) Token() string {
	return c.token
}

func (c *Client) invoke(ctx context.Context, method string, in, out interface{}) error {
	if c.token != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, intercepters.AuthorizationMetadata, "Bearer "+c.token)
	}

	var trailer metadata.MD
	err := c.conn.Invoke(ctx, method, in, out, grpc.Trailer(&trailer), grpc.MaxCallSendMsgSize(MaxMessageBytes))
	if t := trailer.Get(intercepters.NewTokenTrailer); len(t) > 0 && c.token == "" {
		c.token = t[0]
	}
	return err
}

func (c *Client) Classify(ctx context.Context, fileName string) (classifier.Result, error) {
	in, err := structpb.NewStruct(map[string]interface{}{FieldFileName: fileName})
	if err != nil {
		return classifier.Result{}, err
	}

	out := new(structpb.Struct)
	if err := c.invoke(ctx, MethodClassify, in, out); err != nil {
		return classifier.Result{}, err
	}

	f := out.GetFields()
	return classifier.Result{
		BreedLabel: f["breed"].GetStringValue(),
		Confidence: f["confidence"].GetNumberValue(),
		OK:         f["identified"].GetBoolValue(),
	}, nil
}

func (c *Client) Upload(ctx context.Context, file models.ImageFile) (*storage.ClassificationRecord, error) {
	in, err := ImageToStruct(file)
	if err != nil {
		return nil, err
	}

	out := new(structpb.Struct)
	if err := c.invoke(ctx, MethodUpload, in, out); err != nil {
		return nil, err
	}

	record, err := RecordFromStruct(out)
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (c *Client) ListImages(ctx context.Context) ([]storage.ClassificationRecord, error) {
	out := new(structpb.Struct)
	if err := c.invoke(ctx, MethodListImages, &emptypb.Empty{}, out); err != nil {
		return nil, err
	}
	return RecordsFromStruct(out)
}

func (c *Client) DeleteImage(ctx context.Context, id string) error {
	in, err := structpb.NewStruct(map[string]interface{}{FieldID: id})
	if err != nil {
		return err
	}
	return c.invoke(ctx, MethodDeleteImage, in, new(emptypb.Empty))
}

func (c *Client) GetStats(ctx context.Context) (*models.Stats, error) {
	out := new(structpb.Struct)
	if err := c.invoke(ctx, MethodGetStats, &emptypb.Empty{}, out); err != nil {
		return nil, err
	}
	return StatsFromStruct(out), nil
}
