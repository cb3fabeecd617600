package grpc

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/lcalzada-xor/floodctl/internal/core/domain"
	"github.com/lcalzada-xor/floodctl/internal/core/ports"
)

// Fully qualified method names of the controller service.
const (
	ServiceName        = "floodctl.Controller"
	ReportMethod       = "/" + ServiceName + "/Report"
	ReportStreamMethod = "/" + ServiceName + "/ReportStream"
)

// ControllerServer is the server API of the controller service.
type ControllerServer interface {
	Report(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error)
	ReportStream(stream grpc.ServerStream) error
}

// GrpcServer feeds monitor reports received over gRPC into the controller.
type GrpcServer struct {
	service ports.ControllerService
	logger  *slog.Logger
	now     func() time.Time
}

// NewGrpcServer builds a grpc.Server with the controller service registered.
func NewGrpcServer(svc ports.ControllerService, logger *slog.Logger, opts ...grpc.ServerOption) *grpc.Server {
	s := grpc.NewServer(opts...)
	RegisterControllerServer(s, NewControllerServer(svc, logger))
	return s
}

// NewControllerServer returns the service implementation without a server.
func NewControllerServer(svc ports.ControllerService, logger *slog.Logger) *GrpcServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &GrpcServer{service: svc, logger: logger, now: time.Now}
}

// Report ingests a single report.
func (s *GrpcServer) Report(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	if err := s.ingest(ctx, req); err != nil {
		return nil, err
	}
	return &emptypb.Empty{}, nil
}

// ReportStream ingests reports until the client closes its side and then
// answers with the number of accepted reports.
func (s *GrpcServer) ReportStream(stream grpc.ServerStream) error {
	accepted := 0
	for {
		req := new(structpb.Struct)
		err := stream.RecvMsg(req)
		if err == io.EOF {
			summary, err := structpb.NewStruct(map[string]any{fieldReports: accepted})
			if err != nil {
				return status.Error(codes.Internal, err.Error())
			}
			return stream.SendMsg(summary)
		}
		if err != nil {
			return err
		}
		if err := s.ingest(stream.Context(), req); err != nil {
			if status.Code(err) == codes.InvalidArgument {
				continue
			}
			return err
		}
		accepted++
	}
}

func (s *GrpcServer) ingest(ctx context.Context, req *structpb.Struct) error {
	id, report, err := DecodeReport(req, s.now())
	if err != nil {
		s.logger.Warn("Malformed report dropped", "error", err)
		return status.Error(codes.InvalidArgument, err.Error())
	}
	if err := s.service.Report(ctx, id, report); err != nil {
		if errors.Is(err, domain.ErrControllerClosed) {
			return status.Error(codes.Unavailable, err.Error())
		}
		return status.Error(codes.Internal, err.Error())
	}
	return nil
}

// RegisterControllerServer attaches srv to s.
func RegisterControllerServer(s grpc.ServiceRegistrar, srv ControllerServer) {
	s.RegisterService(&controllerServiceDesc, srv)
}

func reportHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ControllerServer).Report(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ReportMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ControllerServer).Report(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func reportStreamHandler(srv interface{}, stream grpc.ServerStream) error {
	return srv.(ControllerServer).ReportStream(stream)
}

var controllerServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ControllerServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Report", Handler: reportHandler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "ReportStream", Handler: reportStreamHandler, ClientStreams: true},
	},
	Metadata: "floodctl/controller",
}
