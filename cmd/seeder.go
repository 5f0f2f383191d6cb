package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
)

var clearData bool

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed a user and a pending payment so the webhook endpoint can be exercised locally.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(".")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		db, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		defer db.Close()

		if clearData {
			for _, table := range []string{"user_template_purchases", "payment_webhooks", "payments"} {
				if _, err := db.Exec(fmt.Sprintf("DELETE FROM %s", table)); err != nil {
					log.Fatalf("failed to clear %s: %v", table, err)
				}
			}
			fmt.Println("Cleared payment tables")
		}

		email := "organizer@planora.dev"
		var userID int64
		err = db.Get(&userID, "SELECT id FROM users WHERE email = $1", email)
		if err != nil {
			err = db.Get(&userID,
				"INSERT INTO users (email, name, created_at, updated_at) VALUES ($1, $2, now(), now()) RETURNING id",
				email, "Seed Organizer")
			if err != nil {
				log.Fatalf("failed to seed user: %v", err)
			}
			fmt.Println("Seeded user:", email)
		} else {
			fmt.Println("user already exists:", email)
		}

		paymentServiceID := "ps_seed_1"
		var exists int
		err = db.Get(&exists, "SELECT 1 FROM payments WHERE payment_service_id = $1", paymentServiceID)
		if err == nil {
			fmt.Println("pending payment already exists:", paymentServiceID)
			return
		}

		_, err = db.Exec(
			`INSERT INTO payments (payment_service_id, user_id, amount, currency, gateway, status, created_at, updated_at)
			 VALUES ($1, $2, 5000, 'XOF', 'stripe', 'pending', now(), now())`,
			paymentServiceID, userID)
		if err != nil {
			log.Fatalf("failed to seed payment: %v", err)
		}
		fmt.Println("Seeded pending payment:", paymentServiceID)
	},
}

func init() {
	seedCmd.Flags().BoolVar(&clearData, "clear", false, "Clear existing data before seeding")
}
