package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	consul "github.com/hashicorp/consul/api"
	"github.com/nats-io/nats.go"

	"gesturejokenpo/internal/api"
	"gesturejokenpo/internal/clock"
	"gesturejokenpo/internal/config"
	"gesturejokenpo/internal/game"
	"gesturejokenpo/internal/network"
	"gesturejokenpo/internal/services/classifier"
	"gesturejokenpo/internal/services/cluster"
	"gesturejokenpo/internal/services/events"
	"gesturejokenpo/internal/session"
)

func main() {
	// 1. CARREGA A CONFIGURAÇÃO
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[Main] Fatal: Failed to load configuration: %v", err)
	}
	log.Printf("[Main] Configuration loaded: ServiceName=%s, Port=%d, HealthPort=%d, Consul=%q, NATS=%q, Classifier=%s",
		cfg.ServiceName, cfg.ServicePort, cfg.HealthCheckPort, cfg.ConsulAddrs, cfg.NATSURL, cfg.ClassifierBackend)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	health := cluster.NewHealthAggregator()

	// 2. CONSUL (opcional)
	var consulManager *cluster.ConsulManager
	if cfg.ConsulAddrs != "" {
		consulManager, err = cluster.NewConsulManager(ctx, cfg.ConsulAddrs)
		if err != nil {
			log.Fatalf("[Main] Fatal: Failed to connect to Consul: %v", err)
		}
		health.AddCheck("consul", consulManager.Check)
	}

	// 3. NATS (opcional): eventos e, se configurado, o classificador.
	var natsConn *nats.Conn
	var publisher events.Publisher = events.Noop{}
	if cfg.NATSURL != "" {
		natsConn, err = events.Connect(cfg.NATSURL, cfg.ServiceName)
		if err != nil {
			log.Fatalf("[Main] Fatal: Failed to connect to NATS: %v", err)
		}
		defer natsConn.Drain()
		publisher = events.NewNATSPublisher(natsConn)
		health.AddCheck("nats", func() error {
			if !natsConn.IsConnected() {
				return errors.New("not connected")
			}
			return nil
		})
	}

	// 4. CLASSIFICADOR
	gestureClassifier := buildClassifier(ctx, cfg, natsConn, consulManager)

	// 5. LÓGICA DO JOGO E REDE
	gameHandler := session.NewGameHandler(session.Config{
		Classifier:   gestureClassifier,
		Publisher:    publisher,
		Clock:        clock.UTC{},
		MaxScore:     cfg.MaxScore,
		CaptureDelay: cfg.CaptureDelay,
		RoundTimeout: cfg.RoundTimeout,
	})

	server := network.NewServer(gameHandler, network.Options{
		RateLimit: cfg.ClientRateLimit,
		RateBurst: cfg.ClientRateBurst,
	})

	mm := gameHandler.Matchmaker()
	health.AddCheck("matchmaker", func() error { return nil })
	health.AddInfo("sessions", func() any { return gameHandler.Sessions() })
	health.AddInfo("queue", func() any { return len(mm.Queue()) })
	health.AddInfo("active_games", func() any { return mm.ActiveGames() })

	router := server.Router()
	router.HandleFunc("/health", health.Handler())
	api.RegisterTimeRoutes(router, clock.UTC{}, cfg.TimestampDelay)

	// 6. REGISTRA O SERVIÇO NO CONSUL
	registration := cluster.Registration{
		ServiceName: cfg.ServiceName,
		ServicePort: cfg.ServicePort,
		HealthPort:  cfg.HealthCheckPort,
		Hostname:    cfg.AdvertisedHost,
	}
	if consulManager != nil {
		if err := cluster.Register(consulManager.Client(), registration); err != nil {
			log.Fatalf("[Main] Fatal: %v", err)
		}
		consulManager.OnReconnect(func(c *consul.Client) {
			if err := cluster.Register(c, registration); err != nil {
				log.Printf("[Main] ERROR: Re-registration after reconnect failed: %v", err)
			}
		})
	}

	// 7. INICIA O SERVIDOR PRINCIPAL
	errCh := make(chan error, 2)
	go func() {
		errCh <- server.Listen(cfg.Addr())
	}()

	// O check do Consul aponta para HEALTH_CHECK_PORT; se ela for outra, /health
	// ganha um listener próprio.
	var healthServer *http.Server
	if cfg.SeparateHealthListener() {
		healthServer = cluster.NewHealthServer(cfg.HealthAddr(), health)
		go func() {
			log.Printf("[Main] Health check server listening on %s", cfg.HealthAddr())
			if err := healthServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("health server: %w", err)
			}
		}()
	}

	select {
	case err := <-errCh:
		if err != nil {
			log.Fatalf("[Main] Fatal: Server stopped: %v", err)
		}
	case <-ctx.Done():
		log.Println("[Main] Shutdown signal received.")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if consulManager != nil {
		if err := cluster.Deregister(consulManager.Client(), registration); err != nil {
			log.Printf("[Main] WARN: %v", err)
		}
	}
	if healthServer != nil {
		if err := healthServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("[Main] WARN: Health server shutdown: %v", err)
		}
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("[Main] WARN: Shutdown: %v", err)
	}
	log.Println("[Main] Bye.")
}

// buildClassifier escolhe o backend configurado. Com HTTP, uma URL fixa tem
// prioridade; sem ela o endereço é descoberto no Consul e guardado em cache.
func buildClassifier(ctx context.Context, cfg config.Config, natsConn *nats.Conn, consulManager *cluster.ConsulManager) game.Classifier {
	switch cfg.ClassifierBackend {
	case config.BackendNATS:
		log.Printf("[Main] Classifier via NATS subject %s", cfg.ClassifierSubject)
		return classifier.NewNATS(natsConn, cfg.ClassifierSubject, cfg.ClassifierTimeout)
	default:
		if cfg.ClassifierURL != "" {
			log.Printf("[Main] Classifier via HTTP at %s", cfg.ClassifierURL)
			return classifier.NewHTTP(cfg.ClassifierURL, cfg.ClassifierTimeout)
		}
		log.Printf("[Main] Classifier via HTTP, discovering '%s' in Consul", cfg.ClassifierService)
		cache := cluster.NewServiceCacheActor(ctx, 30*time.Second, consulManager)
		return classifier.NewDiscoveredHTTP(cfg.ClassifierService, cache, cfg.ClassifierTimeout)
	}
}
