package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/go-shop-checkout.git/internal/checkout"
	"github.com/ariefcatur/go-shop-checkout.git/internal/config"
	"github.com/ariefcatur/go-shop-checkout.git/internal/httpx"
	kafkax "github.com/ariefcatur/go-shop-checkout.git/internal/kafka"
	"github.com/ariefcatur/go-shop-checkout.git/internal/metrics"
	"github.com/ariefcatur/go-shop-checkout.git/internal/payments"
	"github.com/ariefcatur/go-shop-checkout.git/internal/postgres"
	"github.com/ariefcatur/go-shop-checkout.git/internal/redisx"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producer
	prod := kafkax.NewProducer(cfg.KafkaBrokers, 1024)
	prod.Start(ctx)

	// Payment gateway
	gateway := payments.NewClient(payments.ClientConfig{
		BaseURL:       cfg.GatewayBaseURL,
		SecretKey:     cfg.GatewaySecret,
		PublicKey:     cfg.GatewayPublic,
		WebhookSecret: cfg.WebhookSecret,
		Timeout:       cfg.GatewayTimeout,
	})

	// Core
	repo := checkout.NewRepo(db)
	svc := &checkout.Service{
		Orders:    repo,
		Carts:     &checkout.CartRepo{DB: db},
		Addresses: &checkout.AddressRepo{DB: db},
		Gateway:   gateway,
		Producer:  prod,
		Currency:  cfg.Currency,
		Name:      cfg.ServiceName,
	}
	hooks := &checkout.WebhookProcessor{
		Orders:   repo,
		Gateway:  gateway,
		Redis:    rdb,
		Producer: prod,
		Name:     cfg.ServiceName,
	}

	router := httpx.NewRouter()
	ch := &httpx.CheckoutHandler{
		Service:  svc,
		Webhooks: hooks,
		Gateway:  gateway,
		Redis:    rdb,
		Metrics:  metrics.NewCheckoutMetrics("api"),
	}
	ch.Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	// graceful shutdown
	go func() {
		log.Printf("HTTP listening at %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	prod.Close()
	cancel()
	prod.WaitClosed()
}
