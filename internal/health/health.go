// Package health exposes the tracker's liveness over the standard gRPC
// health checking protocol, driven by the track board.
package health

import (
	"context"
	"net"
	"sync"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"

	"github.com/signalsfoundry/orbit-tracker/internal/logging"
	"github.com/signalsfoundry/orbit-tracker/kb"
)

// ServiceName is the health service name reported for the tracker.
const ServiceName = "orbit.tracker"

const requestIDMetadataKey = "x-request-id"

// Server serves grpc.health.v1.Health. The tracker is NOT_SERVING until the
// first result, SERVING afterwards, and NOT_SERVING again once
// failureThreshold consecutive ticks fail. A threshold of zero never
// flips on failures.
type Server struct {
	grpc   *grpc.Server
	health *grpchealth.Server
	log    logging.Logger

	failureThreshold int

	mu          sync.Mutex
	status      healthpb.HealthCheckResponse_ServingStatus
	unsubscribe func()
}

// NewServer builds a health server subscribed to board. Extra server
// options are appended after the defaults.
func NewServer(board *kb.KnowledgeBase, failureThreshold int, log logging.Logger, opts ...grpc.ServerOption) *Server {
	if log == nil {
		log = logging.Noop()
	}
	hs := grpchealth.NewServer()
	s := &Server{
		health:           hs,
		log:              log,
		failureThreshold: failureThreshold,
		status:           healthpb.HealthCheckResponse_NOT_SERVING,
	}
	hs.SetServingStatus("", s.status)
	hs.SetServingStatus(ServiceName, s.status)

	serverOpts := append([]grpc.ServerOption{
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(requestLoggerInterceptor(log)),
	}, opts...)
	s.grpc = grpc.NewServer(serverOpts...)
	healthpb.RegisterHealthServer(s.grpc, hs)

	if board != nil {
		if _, ok := board.Latest(); ok && (failureThreshold <= 0 || board.Stats().ConsecutiveFailures < failureThreshold) {
			s.setStatus(healthpb.HealthCheckResponse_SERVING, "result already available")
		}
		s.unsubscribe = board.Subscribe(s.onEvent)
	}
	return s
}

// Serve accepts connections on lis until Stop is called.
func (s *Server) Serve(lis net.Listener) error {
	return s.grpc.Serve(lis)
}

// Status returns the status currently reported for ServiceName.
func (s *Server) Status() healthpb.HealthCheckResponse_ServingStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Stop unsubscribes from the board, marks every service NOT_SERVING so
// watchers are told, and drains the gRPC server.
func (s *Server) Stop() {
	s.mu.Lock()
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
	s.mu.Unlock()
	s.health.Shutdown()
	s.grpc.GracefulStop()
}

func (s *Server) onEvent(e kb.Event) {
	switch e.Type {
	case kb.EventResultPublished:
		s.setStatus(healthpb.HealthCheckResponse_SERVING, "result published")
	case kb.EventTickFailed:
		if s.failureThreshold > 0 && e.ConsecutiveFailures >= s.failureThreshold {
			s.setStatus(healthpb.HealthCheckResponse_NOT_SERVING, "consecutive fetch failures")
		}
	}
}

func (s *Server) setStatus(status healthpb.HealthCheckResponse_ServingStatus, reason string) {
	s.mu.Lock()
	if s.status == status {
		s.mu.Unlock()
		return
	}
	s.status = status
	s.mu.Unlock()

	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
	s.log.Info(context.Background(), "health status changed",
		logging.String("service", ServiceName),
		logging.String("status", status.String()),
		logging.String("reason", reason),
	)
}

// requestLoggerInterceptor attaches a logger annotated with the method and
// any inbound request ID to the handler context.
func requestLoggerInterceptor(base logging.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		l := base.With(logging.String("method", info.FullMethod))
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if vals := md.Get(requestIDMetadataKey); len(vals) > 0 && vals[0] != "" {
				l = l.With(logging.String("request_id", vals[0]))
			}
		}
		ctx = logging.ContextWithLogger(ctx, l)

		resp, err := handler(ctx, req)
		if err != nil {
			l.Debug(ctx, "rpc failed", logging.Err(err))
		}
		return resp, err
	}
}
