package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Ardhiffamada1/PointOfSale/internal/auth"
	"github.com/Ardhiffamada1/PointOfSale/internal/catalog"
	"github.com/Ardhiffamada1/PointOfSale/internal/checkout"
	"github.com/Ardhiffamada1/PointOfSale/internal/notify"
	"github.com/Ardhiffamada1/PointOfSale/internal/payment"
	"github.com/Ardhiffamada1/PointOfSale/internal/sales"
	"github.com/Ardhiffamada1/PointOfSale/internal/server"
	"github.com/Ardhiffamada1/PointOfSale/pkg/kafka"
	"github.com/Ardhiffamada1/PointOfSale/pkg/metrics"
	"github.com/Ardhiffamada1/PointOfSale/pkg/outbox"
)

type cfg struct {
	Port              string
	DatabaseURL       string
	KafkaBrokers      string
	MidtransBaseURL   string
	MidtransServerKey string
	RequestTimeout    time.Duration
	SessionTTL        time.Duration
	OutboxInterval    time.Duration
}

func readCfg() (cfg, error) {
	db := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if db == "" {
		return cfg{}, errors.New("DATABASE_URL is required")
	}
	toutMS, _ := strconv.Atoi(getenv("REQUEST_TIMEOUT_MS", "2500"))
	ttlMin, _ := strconv.Atoi(getenv("SESSION_TTL_MINUTES", "720"))
	relayMS, _ := strconv.Atoi(getenv("OUTBOX_INTERVAL_MS", "500"))

	return cfg{
		Port:              getenv("PORT", "8080"),
		DatabaseURL:       db,
		KafkaBrokers:      getenv("KAFKA_BROKERS", ""),
		MidtransBaseURL:   getenv("MIDTRANS_BASE_URL", "https://api.sandbox.midtrans.com/v2"),
		MidtransServerKey: strings.TrimSpace(os.Getenv("MIDTRANS_SERVER_KEY")),
		RequestTimeout:    time.Duration(toutMS) * time.Millisecond,
		SessionTTL:        time.Duration(ttlMin) * time.Minute,
		OutboxInterval:    time.Duration(relayMS) * time.Millisecond,
	}, nil
}

func main() {
	cfg, err := readCfg()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect error: %v", err)
	}
	defer pool.Close()

	if err := pingDB(ctx, pool); err != nil {
		log.Fatalf("db ping error: %v", err)
	}

	catalogStore := catalog.NewStore(pool)
	salesStore := sales.NewStore(pool)
	userStore := auth.NewStore(pool, cfg.SessionTTL)
	reporter := sales.NewReporter(salesStore, catalogStore)
	orchestrator := checkout.NewOrchestrator(salesStore, catalogStore)
	gateway := payment.NewGateway(cfg.MidtransBaseURL, cfg.MidtransServerKey, cfg.RequestTimeout)
	hub := notify.NewHub()
	srvMetrics := metrics.NewServerMetrics("pos_server")

	kafkaClient := kafka.NewClient(cfg.KafkaBrokers)
	var pub notify.Publisher
	if publisher := kafkaClient.NewPublisher(); publisher != nil {
		pub = publisher
		defer publisher.Close()
	}

	relayCtx, stopRelay := context.WithCancel(context.Background())
	defer stopRelay()
	go outbox.Relay(relayCtx, pool, cfg.OutboxInterval, 100, notify.NewRelayFunc(hub, pub))

	srv := server.New(catalogStore, salesStore, userStore, reporter, orchestrator, gateway, hub, srvMetrics, outbox.Sink{DB: pool})
	mux := http.NewServeMux()
	srv.Routes(mux)

	httpSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.Printf("pos-server listening on :%s (kafka=%v, gateway=%v)", cfg.Port, kafkaClient.Enabled(), gateway.Enabled())
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("http server error: %v", err)
	}
}

func pingDB(ctx context.Context, pool *pgxpool.Pool) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return pool.Ping(ctx)
}

func getenv(k, def string) string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	return v
}
