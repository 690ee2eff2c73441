package observability

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"

	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// DiagnosticsPath serves the rendered diagnostics report.
const DiagnosticsPath = "/debug/diagnostics"

// DiagnosticsOptions wires application state into a DiagnosticsServer.
type DiagnosticsOptions struct {
	// Checks gate /readyz.
	Checks []ReadyCheck

	// Report renders the diagnostics text served at DiagnosticsPath.
	// Nil leaves the path unregistered.
	Report func(w io.Writer) error

	// Register creates application instruments on the meter backing /metrics.
	Register func(mt metric.Meter) error

	// Logger receives serve errors. Nil uses slog.Default.
	Logger *slog.Logger
}

// DiagnosticsServer exposes health, readiness, Prometheus metrics and the
// diagnostics report over HTTP.
type DiagnosticsServer struct {
	server   *http.Server
	listener net.Listener
	meters   *sdkmetric.MeterProvider
}

// NewDiagnosticsServer starts an HTTP server at addr with /healthz, /readyz,
// /metrics and, when opts.Report is set, the diagnostics endpoint.
func NewDiagnosticsServer(ctx context.Context, addr string, opts DiagnosticsOptions) (*DiagnosticsServer, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()

	mux.Handle("/healthz", HealthHandler())
	mux.Handle("/readyz", ReadyHandler(opts.Checks...))

	metricsHandler, mp, err := PrometheusHandler()
	if err != nil {
		return nil, fmt.Errorf("create prometheus handler: %w", err)
	}

	mux.Handle("/metrics", metricsHandler)

	meter := mp.Meter(meterName)

	_, err = NewSchedulerMetrics(meter)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("register scheduler metrics: %w", err), mp.Shutdown(ctx))
	}

	if opts.Register != nil {
		err = opts.Register(meter)
		if err != nil {
			return nil, errors.Join(fmt.Errorf("register application metrics: %w", err), mp.Shutdown(ctx))
		}
	}

	if opts.Report != nil {
		mux.Handle(DiagnosticsPath, ReportHandler(opts.Report))
	}

	var lc net.ListenConfig

	listener, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("listen on %s: %w", addr, err), mp.Shutdown(ctx))
	}

	srv := &http.Server{Handler: mux}

	go func() {
		serveErr := srv.Serve(listener)
		if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			logger.Warn("diagnostics server stopped", "error", serveErr)
		}
	}()

	return &DiagnosticsServer{server: srv, listener: listener, meters: mp}, nil
}

// Addr returns the address the server is listening on.
func (d *DiagnosticsServer) Addr() string {
	return d.listener.Addr().String()
}

// Close gracefully shuts down the server and its meter provider.
func (d *DiagnosticsServer) Close(ctx context.Context) error {
	err := d.server.Shutdown(ctx)
	if err != nil {
		err = fmt.Errorf("shutdown diagnostics server: %w", err)
	}

	mpErr := d.meters.Shutdown(ctx)
	if mpErr != nil {
		mpErr = fmt.Errorf("shutdown diagnostics meters: %w", mpErr)
	}

	return errors.Join(err, mpErr)
}

// ReportHandler serves the text produced by render. Rendering happens into a
// buffer first so a failed render yields a clean 500.
func ReportHandler(render func(w io.Writer) error) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, _ *http.Request) {
		var buf bytes.Buffer

		err := render(&buf)
		if err != nil {
			http.Error(rw, err.Error(), http.StatusInternalServerError)

			return
		}

		rw.Header().Set("Content-Type", "text/plain; charset=utf-8")
		rw.WriteHeader(http.StatusOK)
		writeOrDiscard(rw, buf.Bytes())
	})
}
