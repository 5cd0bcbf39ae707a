package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/LifeLink-Blood-Care/blood-service/internal/db"
	"github.com/LifeLink-Blood-Care/blood-service/internal/messaging"
	"github.com/LifeLink-Blood-Care/blood-service/internal/request"
)

func main() {
	log.Println("Blood Request Expiry Sweep - Starting")

	// Connect to database
	database, err := db.Connect()
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
		os.Exit(1)
	}
	defer database.Close()

	// Connect to RabbitMQ so expiry events and notifications go out
	publisher, err := messaging.NewPublisher()
	if err != nil {
		log.Fatalf("Failed to connect to RabbitMQ: %v", err)
		os.Exit(1)
	}
	defer publisher.Close()

	// The sweep path never performs donor matching, so no locator is wired.
	repo := request.NewRepository(database)
	service := request.NewService(repo, nil, publisher)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	expired, err := service.SweepExpired(ctx)
	if err != nil {
		log.Fatalf("Sweep failed: %v", err)
		os.Exit(1)
	}

	if expired == 0 {
		log.Println("No overdue pending requests. Exiting.")
		os.Exit(0)
	}

	log.Printf("✓ Sweep completed successfully: %d requests expired", expired)
	log.Println("Expiry Sweep - Finished")
}
