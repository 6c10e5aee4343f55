package server

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/medreports/internal/common"
)

const reportServiceName = "medreports.v1.ReportService"

// ReportServiceServer is the gRPC surface. Messages are google.protobuf.Struct
// carrying the same JSON shapes as the HTTP API.
type ReportServiceServer interface {
	AnalyzeText(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetReport(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListHistory(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

func unaryHandler(method string, call func(ReportServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(ReportServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + reportServiceName + "/" + method}
			return interceptor(ctx, in, info, func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(ReportServiceServer), ctx, req.(*structpb.Struct))
			})
		},
	}
}

// ReportServiceDesc is registered by hand; there is no generated code for it.
var ReportServiceDesc = grpc.ServiceDesc{
	ServiceName: reportServiceName,
	HandlerType: (*ReportServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryHandler("AnalyzeText", ReportServiceServer.AnalyzeText),
		unaryHandler("GetReport", ReportServiceServer.GetReport),
		unaryHandler("ListHistory", ReportServiceServer.ListHistory),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "medreports/v1/reports.proto",
}

// ReportService implements ReportServiceServer over Deps.
type ReportService struct {
	deps Deps
}

func NewReportService(d Deps) *ReportService {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	return &ReportService{deps: d}
}

func (s *ReportService) AnalyzeText(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	text := in.GetFields()["text"].GetStringValue()
	return toStruct(s.deps.Analyzer.Analyze(text))
}

func (s *ReportService) GetReport(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	raw := strings.TrimSpace(in.GetFields()["id"].GetStringValue())
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, common.InvalidArgumentError("id must be a UUID")
	}
	rep, err := s.deps.Reports.Get(ctx, common.OwnerIDFromContext(ctx), id)
	if err != nil {
		s.deps.Logger.Debug("grpc.get_report.failed", zap.String("report_id", raw), zap.Error(err))
		return nil, common.ToGRPCError(err)
	}
	return toStruct(rep)
}

func (s *ReportService) ListHistory(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	items, err := s.deps.Reports.History(ctx, common.OwnerIDFromContext(ctx))
	if err != nil {
		return nil, common.ToGRPCError(err)
	}
	return toStruct(map[string]any{"reports": items})
}

func toStruct(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, common.InternalError("encode response")
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(b, out); err != nil {
		return nil, common.InternalError("encode response")
	}
	return out, nil
}

// NewGRPC builds a server with the report service, health and reflection registered.
func NewGRPC(d Deps) (*grpc.Server, *health.Server) {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(d.Auth.UnaryInterceptor()))
	srv.RegisterService(&ReportServiceDesc, NewReportService(d))

	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(reportServiceName, healthpb.HealthCheckResponse_SERVING)
	reflection.Register(srv)
	return srv, hs
}

// ReportServiceClient calls ReportServiceDesc methods over a connection.
type ReportServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewReportServiceClient(cc grpc.ClientConnInterface) *ReportServiceClient {
	return &ReportServiceClient{cc: cc}
}

func (c *ReportServiceClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+reportServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ReportServiceClient) AnalyzeText(ctx context.Context, text string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(map[string]any{"text": text})
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	return c.invoke(ctx, "AnalyzeText", in, opts...)
}

func (c *ReportServiceClient) GetReport(ctx context.Context, id string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	return c.invoke(ctx, "GetReport", in, opts...)
}

func (c *ReportServiceClient) ListHistory(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "ListHistory", &structpb.Struct{}, opts...)
}
