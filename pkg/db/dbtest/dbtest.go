// Package dbtest opens isolated in-memory sqlite databases carrying the
// application schema, for repository and service tests.
package dbtest

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Schema mirrors the goose migrations using sqlite types. Money is TEXT so
// decimals round-trip exactly.
var Schema = []string{
	`CREATE TABLE vendors (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  store_name TEXT NOT NULL,
  city TEXT,
  latitude REAL,
  longitude REAL,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE products (
  id TEXT PRIMARY KEY,
  vendor_id TEXT NOT NULL,
  name TEXT NOT NULL,
  price TEXT NOT NULL,
  stock_quantity INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE addresses (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  address_line1 TEXT NOT NULL,
  address_line2 TEXT,
  city TEXT NOT NULL,
  state TEXT,
  postal_code TEXT,
  country TEXT,
  latitude REAL,
  longitude REAL,
  created_at DATETIME
);`,
	`CREATE TABLE carts (
  id TEXT PRIMARY KEY,
  user_id TEXT,
  guest_token TEXT,
  status TEXT NOT NULL DEFAULT 'active',
  converted_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE cart_items (
  id TEXT PRIMARY KEY,
  cart_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  variant TEXT,
  quantity INTEGER NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE orders (
  id TEXT PRIMARY KEY,
  customer_id TEXT NOT NULL,
  address_id TEXT NOT NULL,
  delivery_company_id TEXT,
  total_amount TEXT NOT NULL,
  coupon_discount TEXT NOT NULL,
  loyalty_discount TEXT NOT NULL,
  discount_amount TEXT NOT NULL,
  final_amount TEXT NOT NULL,
  delivery_fee TEXT NOT NULL,
  total_with_shipping TEXT NOT NULL,
  distance_km REAL NOT NULL,
  duration_min REAL,
  coupon_id TEXT,
  coupon_code TEXT,
  loyalty_points_requested INTEGER NOT NULL DEFAULT 0,
  loyalty_points_used INTEGER NOT NULL DEFAULT 0,
  payment_method TEXT NOT NULL,
  payment_status TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'requested',
  customer_action_required BOOLEAN NOT NULL DEFAULT 0,
  customer_decision TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE order_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  vendor_id TEXT NOT NULL,
  variant TEXT,
  quantity INTEGER NOT NULL,
  unit_price TEXT NOT NULL,
  line_total TEXT NOT NULL,
  vendor_status TEXT NOT NULL DEFAULT 'pending',
  rejection_reason TEXT,
  accepted_at DATETIME,
  rejected_at DATETIME,
  dropped BOOLEAN NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE payments (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  amount TEXT NOT NULL,
  method TEXT NOT NULL,
  status TEXT NOT NULL,
  created_at DATETIME
);`,
	`CREATE TABLE delivery_companies (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  name TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  coverage_areas TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE delivery_coverage_locations (
  id TEXT PRIMARY KEY,
  company_id TEXT NOT NULL,
  city TEXT NOT NULL,
  latitude REAL NOT NULL,
  longitude REAL NOT NULL
);`,
	`CREATE TABLE delivery_requests (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  company_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  accepted_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (order_id, company_id)
);`,
	`CREATE TABLE coupons (
  id TEXT PRIMARY KEY,
  vendor_id TEXT,
  code TEXT NOT NULL UNIQUE,
  discount_type TEXT NOT NULL,
  discount_value TEXT NOT NULL,
  min_purchase_amount TEXT NOT NULL DEFAULT '0',
  valid_from DATETIME NOT NULL,
  valid_to DATETIME NOT NULL,
  usage_limit INTEGER,
  is_active BOOLEAN NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE coupon_usages (
  id TEXT PRIMARY KEY,
  coupon_id TEXT NOT NULL,
  user_id TEXT NOT NULL,
  order_id TEXT NOT NULL,
  discount_amount TEXT NOT NULL,
  used_at DATETIME NOT NULL
);`,
	`CREATE TABLE loyalty_points (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL UNIQUE,
  points_balance INTEGER NOT NULL DEFAULT 0,
  points_history TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE loyalty_applications (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL UNIQUE,
  user_id TEXT NOT NULL,
  points_redeemed INTEGER NOT NULL,
  points_earned INTEGER NOT NULL,
  applied_at DATETIME NOT NULL
);`,
	`CREATE TABLE outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload BLOB NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
);`,
	`CREATE TABLE outbox_dlq (
  id TEXT PRIMARY KEY,
  event_id TEXT NOT NULL,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload_json BLOB NOT NULL,
  error_reason TEXT NOT NULL,
  error_message TEXT,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  failed_at DATETIME NOT NULL,
  created_at DATETIME
);`,
	`CREATE UNIQUE INDEX ux_outbox_dlq_event_id ON outbox_dlq (event_id);`,
}

// Open returns a fresh database private to the calling test. A single
// connection keeps the in-memory database alive for the test's lifetime.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Discard,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sqlite handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range Schema {
		if err := conn.Exec(stmt).Error; err != nil {
			t.Fatalf("apply schema: %v", err)
		}
	}
	return conn
}
