package store

import (
	"context"
	"fmt"
)

// Table DDL per backend. Column names are lower case so both backends report
// the same names to the row scanner.
var schemas = map[string][]string{
	DriverSQLite: {
		`CREATE TABLE orders (
			order_id     INTEGER PRIMARY KEY AUTOINCREMENT,
			customer_id  INTEGER NOT NULL,
			order_date   TIMESTAMP NOT NULL,
			order_status TEXT NOT NULL
		)`,
		`CREATE TABLE order_items (
			order_item_id      INTEGER PRIMARY KEY AUTOINCREMENT,
			order_id           INTEGER NOT NULL REFERENCES orders(order_id),
			item_id            INTEGER NOT NULL,
			supplier_id        INTEGER NOT NULL,
			quantity           INTEGER NOT NULL CHECK (quantity > 0),
			fulfilled_quantity INTEGER NOT NULL DEFAULT 0 CHECK (fulfilled_quantity >= 0 AND fulfilled_quantity <= quantity),
			fulfilled_date     TIMESTAMP
		)`,
		`CREATE TABLE inventory (
			item_id          INTEGER NOT NULL,
			supplier_id      INTEGER NOT NULL,
			quantity_on_hand INTEGER NOT NULL CHECK (quantity_on_hand >= 0),
			reorder_point    INTEGER NOT NULL,
			last_updated     TIMESTAMP NOT NULL,
			PRIMARY KEY (item_id, supplier_id)
		)`,
		`CREATE INDEX idx_order_items_order ON order_items(order_id)`,
		`CREATE INDEX idx_orders_status_date ON orders(order_status, order_date)`,
	},
	DriverPostgres: {
		`CREATE TABLE orders (
			order_id     BIGSERIAL PRIMARY KEY,
			customer_id  BIGINT NOT NULL,
			order_date   TIMESTAMP NOT NULL,
			order_status TEXT NOT NULL
		)`,
		`CREATE TABLE order_items (
			order_item_id      BIGSERIAL PRIMARY KEY,
			order_id           BIGINT NOT NULL REFERENCES orders(order_id),
			item_id            BIGINT NOT NULL,
			supplier_id        BIGINT NOT NULL,
			quantity           BIGINT NOT NULL CHECK (quantity > 0),
			fulfilled_quantity BIGINT NOT NULL DEFAULT 0 CHECK (fulfilled_quantity >= 0 AND fulfilled_quantity <= quantity),
			fulfilled_date     TIMESTAMP
		)`,
		`CREATE TABLE inventory (
			item_id          BIGINT NOT NULL,
			supplier_id      BIGINT NOT NULL,
			quantity_on_hand BIGINT NOT NULL CHECK (quantity_on_hand >= 0),
			reorder_point    BIGINT NOT NULL,
			last_updated     TIMESTAMP NOT NULL,
			PRIMARY KEY (item_id, supplier_id)
		)`,
		`CREATE INDEX idx_order_items_order ON order_items(order_id)`,
		`CREATE INDEX idx_orders_status_date ON orders(order_status, order_date)`,
	},
}

var dropStatements = []string{
	`DROP TABLE IF EXISTS order_items`,
	`DROP TABLE IF EXISTS orders`,
	`DROP TABLE IF EXISTS inventory`,
}

// ResetSchema drops and recreates the simulation tables, then commits.
// Only the loader calls this; the simulator never changes the schema.
func (s *SQLStore) ResetSchema(ctx context.Context) error {
	ddl, ok := schemas[s.driver]
	if !ok {
		return fmt.Errorf("store: no schema for driver %q", s.driver)
	}
	for _, stmt := range dropStatements {
		if err := s.Execute(ctx, stmt); err != nil {
			return fmt.Errorf("drop tables: %w", err)
		}
	}
	for _, stmt := range ddl {
		if err := s.Execute(ctx, stmt); err != nil {
			return fmt.Errorf("execute ddl: %w", err)
		}
	}
	return s.Commit(ctx)
}
