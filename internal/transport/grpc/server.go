// grpc — gRPC-сервер со стандартным grpc.health.v1.
//
// Статус health отражает работу планировщика: SERVING после bootstrap,
// NOT_SERVING на время остановки.
package grpc

import (
	"log/slog"
	"net"
	"time"

	grpc_prometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/pribylovaa/go-stork-validator/pkg/interceptors"
)

// ServiceName — имя сервиса в health-ответах помимо пустого "общего".
const ServiceName = "stork.validator"

// Options — параметры сборки сервера.
type Options struct {
	Logger *slog.Logger
	// Registerer — куда регистрировать серверные метрики gRPC; nil — не регистрировать.
	Registerer prometheus.Registerer
	// Timeout — дедлайн обработки вызова без клиентского дедлайна.
	Timeout time.Duration
	// Reflection включает gRPC reflection (local/dev).
	Reflection bool
}

// Server — gRPC-сервер с health-сервисом.
type Server struct {
	srv    *grpc.Server
	health *health.Server
}

// New собирает сервер. Изначально статус NOT_SERVING.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	sm := grpc_prometheus.NewServerMetrics()
	sm.EnableHandlingTimeHistogram()

	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			interceptors.Recover(logger),
			interceptors.UnaryLoggingInterceptor(logger),
			interceptors.WithTimeout(opts.Timeout),
			sm.UnaryServerInterceptor(),
		),
		grpc.ChainStreamInterceptor(
			sm.StreamServerInterceptor(),
		),
	)

	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)

	if opts.Reflection {
		reflection.Register(srv)
	}

	sm.InitializeMetrics(srv)
	if opts.Registerer != nil {
		opts.Registerer.MustRegister(sm)
	}

	s := &Server{srv: srv, health: hs}
	s.SetServing(false)

	return s
}

// SetServing переключает статус health для "" и ServiceName.
func (s *Server) SetServing(serving bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		st = healthpb.HealthCheckResponse_SERVING
	}

	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(ServiceName, st)
}

// Serve блокируется до остановки сервера.
func (s *Server) Serve(lis net.Listener) error {
	return s.srv.Serve(lis)
}

// GracefulStop дожидается активных вызовов.
func (s *Server) GracefulStop() { s.srv.GracefulStop() }

// Stop рвёт соединения немедленно.
func (s *Server) Stop() { s.srv.Stop() }
