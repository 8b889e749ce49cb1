// seed-demo is a one-shot tool that loads a demo farm with crops, a product
// catalog, and a pending order. Run it against a freshly migrated database.
//
// Usage: go run ./cmd/seed-demo
package main

import (
	"context"
	"log"

	"agrishare/internal/db"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	ctx := context.Background()
	pool, err := db.NewPool(ctx)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer pool.Close()

	tx, err := pool.Begin(ctx)
	if err != nil {
		log.Fatalf("Failed to begin transaction: %v", err)
	}
	defer tx.Rollback(ctx)

	log.Println("Restoring demo farm...")
	var farmID int
	err = tx.QueryRow(ctx, `
		INSERT INTO farms (farm_code, name, region)
		VALUES ('NIAYES', 'GAEC des Niayes', 'Niayes, Sénégal')
		ON CONFLICT (farm_code) DO UPDATE SET name = EXCLUDED.name, region = EXCLUDED.region
		RETURNING id
	`).Scan(&farmID)
	if err != nil {
		log.Fatalf("Failed to restore farm: %v", err)
	}

	log.Println("Seeding crops...")
	_, err = tx.Exec(ctx, `
		INSERT INTO crops (farm_id, name, stage, planted_on, harvest_on, progress, health, estimated_yield)
		VALUES
			($1, 'Parcelle A - Oignons', 'Maturation', NOW() - INTERVAL '90 days', NOW() + INTERVAL '20 days', 80, 'Bon', 450),
			($1, 'Serre 2 - Tomates', 'Croissance', NOW() - INTERVAL '40 days', NOW() + INTERVAL '50 days', 45, 'Excellent', 280)
	`, farmID)
	if err != nil {
		log.Fatalf("Failed to seed crops: %v", err)
	}

	log.Println("Seeding product catalog...")
	var productID int
	err = tx.QueryRow(ctx, `
		INSERT INTO products (farm_id, name, category, unit, description, status, channels,
			variety, production_mode, certifications, origin, quality,
			b2c_price, b2c_min_qty, b2b_price, b2b_min_qty, b2b_payment_terms,
			min_stock_threshold, sync_b2c, sync_b2b)
		VALUES ($1, 'Oignons de Potou', 'Légumes', 'kg', 'Oignons violets cultivés sans intrants chimiques', 'active', 'BOTH',
			'Violet de Galmi', 'Raisonné', ARRAY['Agriculture Raisonnée'], 'Potou, Louga', 'Premium',
			600, 1, 450, 25, '30 jours',
			50, 'synced', 'synced')
		RETURNING id
	`, farmID).Scan(&productID)
	if err != nil {
		log.Fatalf("Failed to seed product: %v", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO product_images (product_id, url, image_type, is_primary)
		VALUES ($1, 'https://cdn.example.com/demo/oignons-potou.jpg', 'main', true)
	`, productID)
	if err != nil {
		log.Fatalf("Failed to seed image: %v", err)
	}

	log.Println("Seeding batches and movements...")
	_, err = tx.Exec(ctx, `
		INSERT INTO batch_sequences (farm_id, year, last_number)
		VALUES ($1, EXTRACT(YEAR FROM NOW())::int, 2)
		ON CONFLICT (farm_id, year) DO UPDATE SET last_number = GREATEST(batch_sequences.last_number, 2)
	`, farmID)
	if err != nil {
		log.Fatalf("Failed to seed batch sequence: %v", err)
	}
	_, err = tx.Exec(ctx, `
		WITH b AS (
			INSERT INTO product_batches (product_id, batch_number, harvest_date, initial_qty, current_qty, location)
			VALUES
				($1, 'LOT-' || EXTRACT(YEAR FROM NOW())::int || '-00001', NOW() - INTERVAL '14 days', 300, 220, 'Hangar A'),
				($1, 'LOT-' || EXTRACT(YEAR FROM NOW())::int || '-00002', NOW() - INTERVAL '3 days', 200, 200, 'Hangar A')
			RETURNING id, batch_number, initial_qty
		)
		INSERT INTO stock_movements (product_id, batch_id, movement_type, quantity, reference)
		SELECT $1, id, 'production', initial_qty, batch_number FROM b
	`, productID)
	if err != nil {
		log.Fatalf("Failed to seed batches: %v", err)
	}
	_, err = tx.Exec(ctx, `
		UPDATE products SET stock_qty = (SELECT SUM(current_qty) FROM product_batches WHERE product_id = $1), sold_qty = 80
		WHERE id = $1
	`, productID)
	if err != nil {
		log.Fatalf("Failed to reconcile seeded stock: %v", err)
	}

	log.Println("Seeding pending order...")
	var orderID int
	err = tx.QueryRow(ctx, `
		INSERT INTO orders (farm_id, order_number, customer_name, status, total, delivery_address)
		VALUES ($1, 'CMD-8492', 'Fatou Ndiaye', 'pending', 2250, 'Sacré-Cœur 3, Dakar')
		ON CONFLICT (order_number) DO UPDATE SET customer_name = EXCLUDED.customer_name
		RETURNING id
	`, farmID).Scan(&orderID)
	if err != nil {
		log.Fatalf("Failed to seed order: %v", err)
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO order_items (order_id, product_id, quantity, unit_price, line_total)
		SELECT $1, $2, 3.75, 600, 2250
		WHERE NOT EXISTS (SELECT 1 FROM order_items WHERE order_id = $1)
	`, orderID, productID)
	if err != nil {
		log.Fatalf("Failed to seed order items: %v", err)
	}

	if err := tx.Commit(ctx); err != nil {
		log.Fatalf("Failed to commit: %v", err)
	}
	log.Println("Demo data restored successfully.")
}
