package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gopkg.in/yaml.v3"

	"freshvault/internal/auditlog"
	"freshvault/internal/catalogs"
	"freshvault/internal/index"
	"freshvault/internal/market"
	"freshvault/internal/transport/ws"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		configDir  = flag.String("configs", "./configs", "config directory (market.yaml + catalogs)")
		schemaDir  = flag.String("schemas", "./schemas", "json schema directory (empty to disable envelope validation)")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		indexPath  = flag.String("index", "", "sqlite index path (default: <data>/index.db)")
		disableIdx = flag.Bool("disable_index", false, "disable the sqlite read-model index")
		disableLog = flag.Bool("disable_audit", false, "disable the audit trail")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	cfg, err := loadMarketConfig(filepath.Join(*configDir, "market.yaml"))
	if err != nil {
		logger.Fatalf("load market config: %v", err)
	}

	cats, err := catalogs.Load(*configDir)
	if err != nil {
		logger.Fatalf("load catalogs: %v", err)
	}

	m := market.New(cfg, cats)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	market.RegisterPrometheus(reg)

	_ = os.MkdirAll(*dataDir, 0o755)

	// Read-model index (does not affect engine determinism).
	var idx *index.SQLiteIndex
	if !*disableIdx {
		p := strings.TrimSpace(*indexPath)
		if p == "" {
			p = filepath.Join(*dataDir, "index.db")
		}
		idx, err = index.Open(p)
		if err != nil {
			logger.Fatalf("open index: %v", err)
		}
		defer idx.Close()
		m.SetIndexSink(idx.Sink())
	}

	if !*disableLog {
		audit := auditlog.NewWriter(filepath.Join(*dataDir, "audit"), "audit")
		defer audit.Close()
		m.SetAuditLogger(auditSink{audit})
	}

	ctx, cancel := signalContext()
	defer cancel()

	go func() {
		if err := m.Run(ctx); err != nil && err != context.Canceled {
			logger.Printf("market stopped: %v", err)
		}
	}()

	wsServer, err := ws.NewServer(m, logger, strings.TrimSpace(*schemaDir))
	if err != nil {
		logger.Fatalf("ws server: %v", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/ws", wsServer.Handler())
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/debug/engine", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "application/json")
		resp := struct {
			MarketID string         `json:"market_id"`
			Metrics  market.Metrics `json:"metrics"`
		}{
			MarketID: m.ID(),
			Metrics:  m.Metrics(),
		}
		_ = json.NewEncoder(rw).Encode(resp)
	})
	mux.HandleFunc("/index/entities", func(rw http.ResponseWriter, r *http.Request) {
		if idx == nil {
			http.Error(rw, "index disabled", http.StatusServiceUnavailable)
			return
		}
		rows, err := idx.Entities(r.Context(), r.URL.Query().Get("kind"))
		if err != nil {
			http.Error(rw, err.Error(), http.StatusInternalServerError)
			return
		}
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(rows)
	})
	mux.HandleFunc("/index/notifications", func(rw http.ResponseWriter, r *http.Request) {
		if idx == nil {
			http.Error(rw, "index disabled", http.StatusServiceUnavailable)
			return
		}
		rows, err := idx.Notifications(r.Context(), r.URL.Query().Get("role"))
		if err != nil {
			http.Error(rw, err.Error(), http.StatusInternalServerError)
			return
		}
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(rows)
	})

	if envBool("FV_ENABLE_PPROF_HTTP", false) {
		mux.HandleFunc("/debug/pprof/", func(rw http.ResponseWriter, r *http.Request) {
			if !isLoopbackRemote(r.RemoteAddr) {
				http.Error(rw, "forbidden", http.StatusForbidden)
				return
			}
			pprof.Index(rw, r)
		})
		logger.Printf("pprof endpoints enabled (loopback only)")
	}

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("market=%s tick_rate=%dhz listening on %s", m.ID(), m.TickRateHz(), *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
}

// auditSink adapts the zstd JSONL writer to the engine's audit hook.
type auditSink struct {
	w *auditlog.Writer
}

func (s auditSink) WriteAudit(e market.AuditEntry) error { return s.w.Write(e) }

// loadMarketConfig reads market.yaml; a missing file yields the
// defaults.
func loadMarketConfig(path string) (market.Config, error) {
	var doc struct {
		Market market.Config `yaml:"market"`
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return market.Config{}, nil
		}
		return market.Config{}, err
	}
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return market.Config{}, err
	}
	return doc.Market, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return def
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
