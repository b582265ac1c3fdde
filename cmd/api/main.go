package main

import (
	"log"

	"github.com/avkuzmin/logistics-backend/internal/config"
	"github.com/avkuzmin/logistics-backend/internal/db"
	"github.com/avkuzmin/logistics-backend/internal/model"
	"github.com/avkuzmin/logistics-backend/internal/notify"
	"github.com/avkuzmin/logistics-backend/internal/repository"
	"github.com/avkuzmin/logistics-backend/internal/server"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	var repos server.Repositories
	if cfg.DBHost != "" {
		conn, err := db.Connect(cfg)
		if err != nil {
			log.Fatalf("db connect error: %v", err)
		}
		if err := conn.AutoMigrate(
			&model.User{},
			&model.Order{},
			&model.TrackingEvent{},
			&model.Ticket{},
			&model.ChatMessage{},
			&model.Notification{},
		); err != nil {
			log.Fatalf("auto migrate error: %v", err)
		}
		repos = server.GormRepositories(conn)
	} else {
		log.Printf("DB_HOST not set; using in-memory store")
		repos = server.MemoryRepositories(repository.NewMemory())
	}

	var sink notify.Notifier = notify.Noop{}
	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaBrokers[0] != "" {
		kafka, err := notify.NewKafkaNotifier(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			log.Printf("kafka connect error: %v; notifications disabled", err)
		} else {
			sink = kafka
			defer kafka.Close()
		}
	}

	srv := server.New(cfg, repos, sink)
	addr := ":" + cfg.Port
	log.Printf("starting server on %s", addr)
	if err := srv.Start(addr); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}
