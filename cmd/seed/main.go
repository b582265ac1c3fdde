// Seeds development fixtures: one user per role and a couple of client orders.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/avkuzmin/logistics-backend/internal/config"
	"github.com/avkuzmin/logistics-backend/internal/db"
	"github.com/avkuzmin/logistics-backend/internal/model"
	"github.com/joho/godotenv"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("seed failed: %v", err)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	conn, err := db.Connect(cfg)
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	if err := conn.AutoMigrate(
		&model.User{},
		&model.Order{},
		&model.TrackingEvent{},
		&model.Ticket{},
		&model.ChatMessage{},
		&model.Notification{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	var orderCount int64
	if err := conn.Model(&model.Order{}).Count(&orderCount).Error; err != nil {
		return err
	}
	if orderCount > 0 && os.Getenv("FORCE_SEED") != "true" {
		log.Printf("orders already exist; skipping seed (set FORCE_SEED=true to override)")
		return nil
	}

	users := []model.User{
		{ID: 1001, Username: "demo_client", FirstName: "Demo", LastName: "Client", Role: model.RoleClient},
		{ID: 2001, Username: "demo_manager", FirstName: "Demo", LastName: "Manager", Role: model.RoleManager},
		{ID: 9001, Username: "demo_admin", FirstName: "Demo", LastName: "Admin", Role: model.RoleAdmin},
	}
	orders := []model.Order{
		{
			ClientID:    1001,
			Status:      model.OrderStatusPending,
			OfferStatus: model.OfferStatusDraft,
			Description: "Two boxes of spare parts",
			FromAddress: "Warehouse 4, Industrial St 12",
			ToAddress:   "Main St 7, office 310",
			FromContact: "+7 900 000-00-01",
			ToContact:   "+7 900 000-00-02",
			Weight:      18.5,
			Price:       1200,
		},
		{
			ClientID:    1001,
			Status:      model.OrderStatusPending,
			OfferStatus: model.OfferStatusDraft,
			Description: "Pallet of bottled water",
			FromAddress: "Dock 2, River Port",
			ToAddress:   "Retail point 15, Market Sq 3",
			FromContact: "+7 900 000-00-01",
			ToContact:   "+7 900 000-00-03",
			Weight:      320,
			Price:       5400,
		},
	}

	return conn.Transaction(func(tx *gorm.DB) error {
		for i := range users {
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&users[i]).Error; err != nil {
				return err
			}
		}
		for i := range orders {
			if err := tx.Create(&orders[i]).Error; err != nil {
				return err
			}
		}
		log.Printf("seeded %d users and %d orders", len(users), len(orders))
		return nil
	})
}
