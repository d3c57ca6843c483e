package cli

import (
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/aretw0/mosaic/internal/config"
	"github.com/aretw0/mosaic/internal/logging"
	"github.com/aretw0/mosaic/pkg/adapters/file"
	mhttp "github.com/aretw0/mosaic/pkg/adapters/http"
	"github.com/aretw0/mosaic/pkg/adapters/redis"
	"github.com/aretw0/mosaic/pkg/observability"
	"github.com/aretw0/mosaic/pkg/persistence/middleware"
	"github.com/aretw0/mosaic/pkg/ports"
	"github.com/aretw0/mosaic/pkg/session"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsNamespace prefixes every metric exposed by mosaic serve.
const MetricsNamespace = "mosaic"

// Backend is the session persistence chosen by the config.
type Backend struct {
	Store   ports.SnapshotStore
	Manager *session.Manager
	closer  io.Closer
}

// Close releases the backend's connections.
func (b *Backend) Close() error {
	if b.closer == nil {
		return nil
	}
	return b.closer.Close()
}

// OpenBackend uses Redis with distributed locks when configured and a
// directory of snapshot files under sessionsDir otherwise. The store is wrapped
// with the masking and encryption the sessions section asks for.
func OpenBackend(cfg *config.Config, sessionsDir string, logger *slog.Logger) (*Backend, error) {
	if logger == nil {
		logger = logging.NewNop()
	}

	var (
		store   ports.SnapshotStore
		closer  io.Closer
		mgrOpts = []session.Option{session.WithLogger(logger)}
	)
	if cfg.Redis == nil {
		store = file.NewStore(sessionsDir)
	} else {
		var opts []redis.Option
		if cfg.Redis.Prefix != "" {
			opts = append(opts, redis.WithPrefix(cfg.Redis.Prefix))
		}
		if cfg.Redis.TTL > 0 {
			opts = append(opts, redis.WithTTL(cfg.Redis.TTL))
		}
		rs := redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, opts...)
		store, closer = rs, rs
		mgrOpts = append(mgrOpts, session.WithLocker(redis.NewLocker(rs.Client(), rs.Prefix()+"lock:")))
	}

	mws, err := storeMiddleware(cfg.Sessions)
	if err != nil {
		if closer != nil {
			_ = closer.Close()
		}
		return nil, err
	}
	store = middleware.Chain(store, mws...)

	return &Backend{
		Store:   store,
		Manager: session.NewManager(store, mgrOpts...),
		closer:  closer,
	}, nil
}

// storeMiddleware masks before it seals, so masked values never reach the ciphertext.
func storeMiddleware(s *config.Sessions) ([]middleware.Middleware, error) {
	if s == nil {
		return nil, nil
	}
	var mws []middleware.Middleware
	if len(s.MaskQuery) > 0 {
		mw, err := middleware.NewQueryMaskMiddleware(s.MaskQuery)
		if err != nil {
			return nil, err
		}
		mws = append(mws, mw)
	}
	key, err := s.EncryptionKey()
	if err != nil {
		return nil, err
	}
	if key != nil {
		mw, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key})
		if err != nil {
			return nil, err
		}
		mws = append(mws, mw)
	}
	return mws, nil
}

// NewMetrics registers the lifecycle collectors on reg.
func NewMetrics(reg prometheus.Registerer) (*observability.Metrics, error) {
	m := observability.NewMetrics(MetricsNamespace)
	if err := m.Register(reg); err != nil {
		return nil, err
	}
	return m, nil
}

// NewServeHandler mounts the shell API under /api, metrics under /metrics and
// the assets directory at the root.
func NewServeHandler(cfg *config.Config, api http.Handler, gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)

	r.Mount("/api", api)
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, "ok\n")
	})
	r.Handle("/*", http.FileServer(http.Dir(cfg.AssetsDir)))
	return r
}

// NewShellAPI builds the session API on top of a backend.
func NewShellAPI(cfg *config.Config, backend *Backend, opts ShellOptions) http.Handler {
	opts.Store = backend.Store
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	return mhttp.NewHandler(backend.Manager, HostFactory(cfg, opts), mhttp.WithLogger(opts.Logger))
}

// exists reports whether a path is present on disk.
func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// CheckDirs returns the configured directories that do not exist.
func CheckDirs(cfg *config.Config) []string {
	var missing []string
	for _, dir := range []string{cfg.ModulesDir, cfg.AssetsDir} {
		if !exists(dir) {
			missing = append(missing, dir)
		}
	}
	return missing
}
