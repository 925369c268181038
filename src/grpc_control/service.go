package grpc_control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"indicator-observer/src/analysis"
	"indicator-observer/src/helpers"
	"indicator-observer/src/interfaces"
	"indicator-observer/src/logger"
	"indicator-observer/src/projection"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// ControlService implements ObserverControlServer on top of the aggregator
type ControlService struct {
	Aggregator interfaces.ICountryAggregator
	Projector  *projection.SummaryProjector
	Analysis   *analysis.AnalysisFacade
	Logger     *logger.Logger
}

// NewControlService creates a new instance of ControlService
func NewControlService(
	agg interfaces.ICountryAggregator,
	projector *projection.SummaryProjector,
	facade *analysis.AnalysisFacade,
	log *logger.Logger,
) *ControlService {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &ControlService{
		Aggregator: agg,
		Projector:  projector,
		Analysis:   facade,
		Logger:     log,
	}
}

// -----------------------------------------------------------------------------

// NewServer builds a gRPC server with the control service and the standard
// health service registered.
func NewServer(svc *ControlService) (*grpc.Server, *health.Server) {
	grpcServer := grpc.NewServer(grpc.UnaryInterceptor(svc.logCalls))
	RegisterObserverControlServer(grpcServer, svc)

	healthServer := health.NewServer()
	healthServer.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	return grpcServer, healthServer
}

// -----------------------------------------------------------------------------

func (s *ControlService) ListIndicators(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	indicators := s.Aggregator.Indicators()
	values := make([]any, 0, len(indicators))
	for _, name := range indicators {
		values = append(values, name)
	}
	cached := s.Aggregator.CachedCountries()
	countries := make([]any, 0, len(cached))
	for _, name := range cached {
		countries = append(countries, name)
	}
	return structpb.NewStruct(map[string]any{
		"indicators":       values,
		"cached_countries": countries,
	})
}

// -----------------------------------------------------------------------------

func (s *ControlService) GetLatest(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	country := field(req, "country")
	if country == "" {
		return nil, status.Error(codes.InvalidArgument, "country is required")
	}

	if err := s.knownCountries(country); err != nil {
		return nil, err
	}

	summary, err := s.Projector.GetLatest(ctx, country)
	if err != nil {
		return nil, toStatus(err)
	}
	return toStruct(summary)
}

// -----------------------------------------------------------------------------

func (s *ControlService) Compare(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	country1, country2, indicator := field(req, "country1"), field(req, "country2"), field(req, "indicator")
	if country1 == "" || country2 == "" || indicator == "" {
		return nil, status.Error(codes.InvalidArgument, "country1, country2 and indicator are required")
	}

	if err := s.knownCountries(country1, country2); err != nil {
		return nil, err
	}

	comparison, err := s.Analysis.Compare(ctx, country1, country2, indicator)
	if err != nil {
		return nil, toStatus(err)
	}
	return toStruct(comparison)
}

// -----------------------------------------------------------------------------

func (s *ControlService) CompareLatest(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	country1, country2 := field(req, "country1"), field(req, "country2")
	if country1 == "" || country2 == "" {
		return nil, status.Error(codes.InvalidArgument, "country1 and country2 are required")
	}
	if err := s.knownCountries(country1, country2); err != nil {
		return nil, err
	}

	comparison, err := s.Projector.CompareLatest(ctx, country1, country2)
	if err != nil {
		return nil, toStatus(err)
	}
	return toStruct(comparison)
}

// -----------------------------------------------------------------------------

func (s *ControlService) Invalidate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	country := field(req, "country")
	if country == "" {
		return nil, status.Error(codes.InvalidArgument, "country is required")
	}

	s.Aggregator.Invalidate(country)
	s.Logger.Info("Invalidated cached history for %s via control plane", country)
	return structpb.NewStruct(map[string]any{"invalidated": country})
}

// -----------------------------------------------------------------------------

func (s *ControlService) logCalls(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	resp, err := handler(ctx, req)
	if err != nil {
		s.Logger.Warning("%s failed: %v", info.FullMethod, err)
	} else {
		s.Logger.Debug("%s ok", info.FullMethod)
	}
	return resp, err
}

// -----------------------------------------------------------------------------

// knownCountries rejects countries outside the configured allowlist.
func (s *ControlService) knownCountries(countries ...string) error {
	for _, country := range countries {
		if !s.Aggregator.IsKnownCountry(country) {
			return toStatus(fmt.Errorf("%w: %s", helpers.ErrUnknownCountry, country))
		}
	}
	return nil
}

func field(req *structpb.Struct, name string) string {
	return strings.TrimSpace(req.GetFields()[name].GetStringValue())
}

// toStruct converts a model through its JSON form so both APIs share one shape.
func toStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	out, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return out, nil
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, helpers.ErrUnknownIndicator):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, helpers.ErrUnknownCountry):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err).Err()
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
