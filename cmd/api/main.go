package main

import (
	"context"
	"database/sql"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"authgrid.org/internal/apikey"
	"authgrid.org/internal/config"
	"authgrid.org/internal/directory"
	"authgrid.org/internal/httpapi"
	"authgrid.org/internal/keyring"
	"authgrid.org/internal/obs"
	"authgrid.org/internal/ticket"
	"authgrid.org/internal/token"
)

var version = "0.3.0"

func main() {
	// Инициализация observability (регистрация метрик, JSON-логгер и т.п.)
	obs.Init()
	obs.InitBuildInfo(version, os.Getenv("GIT_COMMIT"))

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// Подключение к БД (если задан DSN), чтобы /readyz мог пинговать БД
	var db *sql.DB
	var dirStore directory.Store
	var keyStore apikey.Store
	if cfg.PGDSN != "" {
		db, err = sql.Open("pgx", cfg.PGDSN)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(30 * time.Minute)
		dirStore = directory.NewPGStore(db)
		keyStore = apikey.NewPGStore(db)
	} else {
		log.Println("AUTHGRID_PG_DSN is empty, using in-memory stores")
		dirStore = directory.NewMemoryStore()
		keyStore = apikey.NewMemoryStore()
	}

	tickets, err := ticket.NewAuthority(cfg.MasterKey(),
		ticket.WithTGTTTL(cfg.TGTTTL),
		ticket.WithServiceTicketTTL(cfg.ServiceTicketTTL),
	)
	if err != nil {
		log.Fatalf("ticket authority: %v", err)
	}
	tokens, err := token.NewAuthority(cfg.AccessSecret, cfg.RefreshSecret,
		token.WithAccessTTL(cfg.AccessTTL),
		token.WithRefreshTTL(cfg.RefreshTTL),
	)
	if err != nil {
		log.Fatalf("token authority: %v", err)
	}
	keys, err := keyring.New(cfg.KeysDir)
	if err != nil {
		log.Fatalf("keyring: %v", err)
	}

	// HTTP API
	api := httpapi.New(httpapi.Config{
		Directory:  directory.New(dirStore),
		Tickets:    tickets,
		Tokens:     tokens,
		Keys:       keys,
		APIKeys:    apikey.NewService(keyStore, apikey.WithTTL(cfg.APIKeyTTL)),
		ReadyProbe: httpapi.ReadyProbe{DB: db},
		Version:    version,
	})

	handler := httpapi.RequestID(api.Handler())
	handler = httpapi.SecurityHeaders(handler)
	handler = httpapi.CORS(handler)
	handler = httpapi.MaxBodyBytes(handler, 1<<20)
	handler = httpapi.RateLimit(handler, cfg.RateBurst, cfg.RatePerSec)
	handler = httpapi.Logging(handler)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting authgrid-api %s on %s", version, srv.Addr)

	// gRPC health endpoint for infra probes (опционально)
	var grpcSrv *grpc.Server
	if cfg.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			log.Fatalf("grpc listen: %v", err)
		}
		grpcSrv = grpc.NewServer()
		healthSrv := health.NewServer()
		healthSrv.SetServingStatus("authgrid-api", healthpb.HealthCheckResponse_SERVING)
		healthpb.RegisterHealthServer(grpcSrv, healthSrv)
		go func() {
			if err := grpcSrv.Serve(lis); err != nil {
				log.Fatalf("grpc serve: %v", err)
			}
		}()
		log.Printf("gRPC health on %s", cfg.GRPCAddr)
	}

	// graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	if grpcSrv != nil {
		grpcSrv.GracefulStop()
	}
	if db != nil {
		_ = db.Close()
	}
	log.Println("Stopped")
}
