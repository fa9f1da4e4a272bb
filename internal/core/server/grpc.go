// Package server provides HTTP and gRPC server lifecycle management.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/recipeatlas/recipeatlas/internal/core/api"
	"github.com/recipeatlas/recipeatlas/internal/core/config"
	"github.com/recipeatlas/recipeatlas/internal/logging"
	"github.com/recipeatlas/recipeatlas/internal/metrics"
	"github.com/recipeatlas/recipeatlas/internal/qualification"
	"github.com/recipeatlas/recipeatlas/internal/rules"
	"github.com/recipeatlas/recipeatlas/internal/types"
)

// RuleServiceName is the fully qualified gRPC service name.
const RuleServiceName = "recipeatlas.rules.v1.RuleService"

// RuleServiceServer is the server API of RuleService. Payloads are
// google.protobuf.Struct documents shaped like the HTTP API bodies.
type RuleServiceServer interface {
	CompilePredicate(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ValidateRuleConfig(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CalculateQualification(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// RuleServiceDesc describes RuleService for grpc.Server.RegisterService.
var RuleServiceDesc = grpc.ServiceDesc{
	ServiceName: RuleServiceName,
	HandlerType: (*RuleServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CompilePredicate", Handler: unaryHandler("CompilePredicate", RuleServiceServer.CompilePredicate)},
		{MethodName: "ValidateRuleConfig", Handler: unaryHandler("ValidateRuleConfig", RuleServiceServer.ValidateRuleConfig)},
		{MethodName: "CalculateQualification", Handler: unaryHandler("CalculateQualification", RuleServiceServer.CalculateQualification)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "recipeatlas/rules/v1/rules.proto",
}

type structMethod func(RuleServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(method string, call structMethod) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	fullMethod := "/" + RuleServiceName + "/" + method
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(RuleServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(RuleServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// ruleServer implements RuleServiceServer over api.RuleService.
type ruleServer struct {
	rules *api.RuleService
}

type ruleRequest struct {
	Rules   *types.RuleConfig `json:"rules"`
	Context types.RuleContext `json:"context"`
}

// decodeRuleRequest re-reads a Struct as the JSON rule request. Struct
// numbers are doubles, which is what the compiler expects.
func decodeRuleRequest(in *structpb.Struct) (*ruleRequest, error) {
	raw, err := protojson.Marshal(in)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "encode request: %v", err)
	}
	var req ruleRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "decode request: %v", err)
	}
	if req.Rules == nil {
		return nil, status.Error(codes.InvalidArgument, "rules is required")
	}
	return &req, nil
}

func (s *ruleServer) CompilePredicate(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := decodeRuleRequest(in)
	if err != nil {
		return nil, err
	}
	p, err := s.rules.Compile(*req.Rules, req.Context)
	if err != nil {
		var verr *rules.ValidationError
		if errors.As(err, &verr) {
			return nil, status.Error(codes.InvalidArgument, verr.Error())
		}
		return nil, status.Errorf(codes.Internal, "compile: %v", err)
	}
	out, err := structpb.NewStruct(map[string]any{"predicate": p.Tree()})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode predicate: %v", err)
	}
	return out, nil
}

func (s *ruleServer) ValidateRuleConfig(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := decodeRuleRequest(in)
	if err != nil {
		return nil, err
	}
	res := s.rules.Validate(*req.Rules)
	problems := make([]any, len(res.Errors))
	for i, e := range res.Errors {
		problems[i] = e
	}
	out, err := structpb.NewStruct(map[string]any{"valid": res.Valid, "errors": problems})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode result: %v", err)
	}
	return out, nil
}

func (s *ruleServer) CalculateQualification(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	counts := make(map[string]int, 3)
	for _, name := range []string{"publishedCount", "targetCount", "minRequired"} {
		v, ok := in.GetFields()[name]
		if !ok {
			return nil, status.Errorf(codes.InvalidArgument, "%s is required", name)
		}
		if _, isNumber := v.GetKind().(*structpb.Value_NumberValue); !isNumber {
			return nil, status.Errorf(codes.InvalidArgument, "%s must be a number", name)
		}
		counts[name] = qualification.CountFromFloat(v.GetNumberValue())
	}

	res := s.rules.Qualify(counts["publishedCount"], counts["targetCount"], counts["minRequired"])
	out, err := structpb.NewStruct(map[string]any{
		"publishedCount": res.PublishedCount,
		"targetCount":    res.TargetCount,
		"minRequired":    res.MinRequired,
		"progress":       res.Progress,
		"status":         string(res.Status),
	})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode result: %v", err)
	}
	return out, nil
}

// LoggingInterceptor attaches a request id, logs each call and records
// its outcome.
func LoggingInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		requestID := ""
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if ids := md.Get("x-request-id"); len(ids) > 0 {
				requestID = ids[0]
			}
		}
		if requestID == "" {
			requestID = logging.NewRequestID()
		}
		ctx = logging.ContextWithRequestID(ctx, requestID)

		start := time.Now()
		resp, err := handler(ctx, req)
		code := status.Code(err)
		metrics.RecordGRPCRequest(info.FullMethod, code.String())

		event := logging.Ctx(ctx).Debug()
		if code != codes.OK {
			event = logging.Ctx(ctx).Warn().Err(err)
		}
		event.Str("method", info.FullMethod).
			Str("code", code.String()).
			Dur("duration", time.Since(start)).
			Msg("gRPC request")
		return resp, err
	}
}

// GRPCServer manages gRPC server lifecycle.
type GRPCServer struct {
	server   *grpc.Server
	listener net.Listener
	config   *config.ServerConfig
	health   *health.Server
}

// NewGRPCServer creates gRPC server with logging interceptor, RuleService
// and the standard health service.
func NewGRPCServer(cfg *config.ServerConfig, ruleService *api.RuleService) (*GRPCServer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("cfg cannot be nil")
	}
	if ruleService == nil {
		return nil, fmt.Errorf("ruleService cannot be nil")
	}

	opts := []grpc.ServerOption{
		grpc.ChainUnaryInterceptor(
			LoggingInterceptor(),
		),
	}

	server := grpc.NewServer(opts...)
	server.RegisterService(&RuleServiceDesc, &ruleServer{rules: ruleService})

	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(server, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(RuleServiceName, grpc_health_v1.HealthCheckResponse_SERVING)

	return &GRPCServer{
		server: server,
		config: cfg,
		health: healthServer,
	}, nil
}

// Start binds listener and serves gRPC requests.
// Context is provided for API consistency but Serve blocks until Shutdown is called.
func (s *GRPCServer) Start(ctx context.Context) error {
	addr := net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.GRPCPort))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind %s: %w", addr, err)
	}
	return s.Serve(listener)
}

// Serve serves on an existing listener.
func (s *GRPCServer) Serve(listener net.Listener) error {
	s.listener = listener
	return s.server.Serve(listener)
}

// Shutdown marks the server NOT_SERVING and gracefully stops it with a
// 30-second timeout.
func (s *GRPCServer) Shutdown(ctx context.Context) error {
	s.health.Shutdown()

	stopped := make(chan struct{})
	go func() {
		s.server.GracefulStop()
		close(stopped)
	}()

	select {
	case <-stopped:
		return nil
	case <-ctx.Done():
		s.server.Stop()
		return fmt.Errorf("shutdown cancelled by context: %w", ctx.Err())
	case <-time.After(30 * time.Second):
		s.server.Stop()
		return fmt.Errorf("graceful shutdown timeout, forced stop")
	}
}
