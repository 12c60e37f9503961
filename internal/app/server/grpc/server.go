// Package grpc exposes the image ledger as the dogify.Ledger gRPC service.
package grpc

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/logging"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/atinyakov/dogify/internal/app/service"
	"github.com/atinyakov/dogify/internal/intercepters"
	"github.com/atinyakov/dogify/internal/middleware"
	"github.com/atinyakov/dogify/internal/storage"
)

// Server wraps the gRPC server and dependencies.
type Server struct {
	grpcServer *grpc.Server
	port       int
	logger     *zap.Logger
}

// New creates a new gRPC server instance.
func New(ledger service.LedgerIface, auth service.AuthIface, trustedSubnet string, logger *zap.Logger, port int) *Server {
	s := grpc.NewServer(
		grpc.MaxRecvMsgSize(MaxMessageBytes),
		grpc.ChainUnaryInterceptor(
			logging.UnaryServerInterceptor(intercepters.InterceptorLogger(logger), intercepters.LogOptions()...),
			intercepters.SubnetIPInterceptor,
			intercepters.WithTrustedSubnet(trustedSubnet, MethodGetStats),
			intercepters.WithJWT(auth),
		),
	)

	RegisterLedgerService(s, &LedgerServer{Service: ledger})

	return &Server{
		grpcServer: s,
		port:       port,
		logger:     logger,
	}
}

// Start listens on the configured port and serves until stopped.
func (s *Server) Start() error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", s.port))
	if err != nil {
		s.logger.Error("gRPC server failed to listen:", zap.Error(err))
		return err
	}

	s.logger.Info("gRPC server listening on port", zap.Int("port", s.port))
	return s.Serve(lis)
}

// Serve serves on lis.
func (s *Server) Serve(lis net.Listener) error {
	if err := s.grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}

// GracefulStop shuts down the server gracefully.
func (s *Server) GracefulStop() {
	s.grpcServer.GracefulStop()
}

// LedgerServer implements LedgerService over the ledger.
type LedgerServer struct {
	Service service.LedgerIface
}

var _ LedgerService = (*LedgerServer)(nil)

func ownerFrom(ctx context.Context) (string, error) {
	userID := middleware.UserID(ctx)
	if userID == "" {
		return "", status.Error(codes.Internal, "user ID missing in context")
	}
	return userID, nil
}

// toStatus maps ledger errors to gRPC codes.
func toStatus(err error) error {
	switch {
	case errors.Is(err, service.ErrUnrecognizedSubject):
		return status.Error(codes.InvalidArgument, service.UnrecognizedMessage)
	case errors.Is(err, service.ErrRecordNotFound):
		return status.Error(codes.NotFound, "image not found")
	case errors.Is(err, service.ErrUnsupportedImage), errors.Is(err, service.ErrImageTooLarge):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, service.ErrMissingOwner):
		return status.Error(codes.Unauthenticated, err.Error())
	case errors.Is(err, storage.ErrQuotaExceeded):
		return status.Error(codes.ResourceExhausted, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// Classify takes {"file_name"} and returns {"identified", "breed", "confidence"}.
func (s *LedgerServer) Classify(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	res := s.Service.Classify(req.GetFields()[FieldFileName].GetStringValue())

	out, err := structpb.NewStruct(map[string]interface{}{
		"identified": res.OK,
		"breed":      res.BreedLabel,
		"confidence": res.Confidence,
	})
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

// Upload takes {"file_name", "content_type", "data" (base64)} and returns the record.
func (s *LedgerServer) Upload(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := ownerFrom(ctx)
	if err != nil {
		return nil, err
	}

	file, err := ImageFromStruct(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if err := service.CheckImage(file, 0); err != nil {
		return nil, toStatus(err)
	}

	record, err := s.Service.Upload(ctx, file, userID)
	if err != nil {
		return nil, toStatus(err)
	}

	out, err := RecordToStruct(*record)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

// ListImages returns {"images": [...]} for the caller.
func (s *LedgerServer) ListImages(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	userID, err := ownerFrom(ctx)
	if err != nil {
		return nil, err
	}

	records, err := s.Service.ListForOwner(ctx, userID)
	if err != nil {
		return nil, toStatus(err)
	}

	out, err := RecordsToStruct(records)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

// DeleteImage takes {"id"} and deletes the caller's record.
func (s *LedgerServer) DeleteImage(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	userID, err := ownerFrom(ctx)
	if err != nil {
		return nil, err
	}

	id := req.GetFields()[FieldID].GetStringValue()
	if id == "" {
		return nil, status.Error(codes.InvalidArgument, "id is required")
	}

	if err := s.Service.DeleteForOwner(ctx, userID, id); err != nil {
		return nil, toStatus(err)
	}

	return &emptypb.Empty{}, nil
}

// GetStats returns {"records", "owners", "breeds"}.
func (s *LedgerServer) GetStats(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	stats, err := s.Service.Stats(ctx)
	if err != nil {
		return nil, toStatus(err)
	}

	out, err := StatsToStruct(stats)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}
