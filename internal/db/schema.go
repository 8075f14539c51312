//-------------------------------------------------------------------------
//
// pgEdge Retail ETL
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema SQL for the three pipeline layers. Staging mirrors the raw CSV
// shapes, production carries the cleansed operational records, and
// warehouse holds the star schema.
const createSchemaSQL = `
CREATE SCHEMA IF NOT EXISTS staging;
CREATE SCHEMA IF NOT EXISTS production;
CREATE SCHEMA IF NOT EXISTS warehouse;

-- Staging: verbatim copy of the latest CSV snapshot
CREATE TABLE IF NOT EXISTS staging.customers (
    customer_id       VARCHAR(10),
    first_name        TEXT,
    last_name         TEXT,
    email             TEXT,
    phone             TEXT,
    registration_date DATE,
    city              TEXT,
    state             TEXT,
    country           TEXT,
    age_group         VARCHAR(10),
    loaded_at         TIMESTAMPTZ DEFAULT now()
);

CREATE TABLE IF NOT EXISTS staging.products (
    product_id     VARCHAR(10),
    product_name   TEXT,
    category       TEXT,
    sub_category   TEXT,
    price          NUMERIC(10,2),
    cost           NUMERIC(10,2),
    brand          TEXT,
    stock_quantity INTEGER,
    supplier_id    VARCHAR(10),
    loaded_at      TIMESTAMPTZ DEFAULT now()
);

CREATE TABLE IF NOT EXISTS staging.transactions (
    transaction_id   VARCHAR(10),
    customer_id      VARCHAR(10),
    transaction_date DATE,
    transaction_time TIME,
    payment_method   TEXT,
    shipping_address TEXT,
    total_amount     NUMERIC(12,2),
    loaded_at        TIMESTAMPTZ DEFAULT now()
);

CREATE TABLE IF NOT EXISTS staging.transaction_items (
    item_id             VARCHAR(10),
    transaction_id      VARCHAR(10),
    product_id          VARCHAR(10),
    quantity            INTEGER,
    unit_price          NUMERIC(10,2),
    discount_percentage NUMERIC(5,2),
    line_total          NUMERIC(12,2),
    loaded_at           TIMESTAMPTZ DEFAULT now()
);

-- Production: cleansed, deduplicated operational store
CREATE TABLE IF NOT EXISTS production.customers (
    customer_id       VARCHAR(10) PRIMARY KEY,
    first_name        TEXT,
    last_name         TEXT,
    email             TEXT,
    phone             TEXT,
    registration_date DATE,
    city              TEXT,
    state             TEXT,
    country           TEXT,
    age_group         VARCHAR(10)
);

CREATE TABLE IF NOT EXISTS production.products (
    product_id     VARCHAR(10) PRIMARY KEY,
    product_name   TEXT,
    category       TEXT,
    sub_category   TEXT,
    price          NUMERIC(10,2),
    cost           NUMERIC(10,2),
    brand          TEXT,
    stock_quantity INTEGER,
    supplier_id    VARCHAR(10)
);

CREATE TABLE IF NOT EXISTS production.transactions (
    transaction_id   VARCHAR(10) PRIMARY KEY,
    customer_id      VARCHAR(10),
    transaction_date DATE,
    transaction_time TIME,
    payment_method   TEXT,
    shipping_address TEXT,
    total_amount     NUMERIC(12,2)
);

CREATE TABLE IF NOT EXISTS production.transaction_items (
    item_id             VARCHAR(10) PRIMARY KEY,
    transaction_id      VARCHAR(10),
    product_id          VARCHAR(10),
    quantity            INTEGER,
    unit_price          NUMERIC(10,2),
    discount_percentage NUMERIC(5,2),
    line_total          NUMERIC(12,2)
);

-- Warehouse: star schema
CREATE TABLE IF NOT EXISTS warehouse.dim_date (
    date_key     INTEGER PRIMARY KEY,
    full_date    DATE NOT NULL,
    year         INTEGER NOT NULL,
    quarter      INTEGER NOT NULL,
    month        INTEGER NOT NULL,
    day          INTEGER NOT NULL,
    month_name   VARCHAR(9) NOT NULL,
    day_name     VARCHAR(9) NOT NULL,
    week_of_year INTEGER NOT NULL,
    is_weekend   BOOLEAN NOT NULL
);

CREATE TABLE IF NOT EXISTS warehouse.dim_payment_method (
    payment_method_key  SERIAL PRIMARY KEY,
    payment_method_name TEXT NOT NULL,
    payment_type        VARCHAR(10) NOT NULL
);

CREATE TABLE IF NOT EXISTS warehouse.dim_customers (
    customer_key      SERIAL PRIMARY KEY,
    customer_id       VARCHAR(10) NOT NULL,
    full_name         TEXT,
    email             TEXT,
    city              TEXT,
    state             TEXT,
    country           TEXT,
    age_group         VARCHAR(10),
    registration_date DATE,
    effective_date    DATE NOT NULL,
    end_date          DATE,
    is_current        BOOLEAN NOT NULL DEFAULT TRUE
);

CREATE TABLE IF NOT EXISTS warehouse.dim_products (
    product_key    SERIAL PRIMARY KEY,
    product_id     VARCHAR(10) NOT NULL,
    product_name   TEXT,
    category       TEXT,
    sub_category   TEXT,
    brand          TEXT,
    price_range    VARCHAR(10),
    effective_date DATE NOT NULL,
    end_date       DATE,
    is_current     BOOLEAN NOT NULL DEFAULT TRUE
);

CREATE TABLE IF NOT EXISTS warehouse.fact_sales (
    sales_key          BIGSERIAL PRIMARY KEY,
    date_key           INTEGER NOT NULL,
    customer_key       INTEGER NOT NULL,
    product_key        INTEGER NOT NULL,
    payment_method_key INTEGER NOT NULL,
    transaction_id     VARCHAR(10) NOT NULL,
    quantity           INTEGER NOT NULL,
    unit_price         NUMERIC(10,2) NOT NULL,
    discount_amount    NUMERIC(12,2) NOT NULL,
    line_total         NUMERIC(12,2) NOT NULL,
    profit             NUMERIC(12,2) NOT NULL
);

CREATE TABLE IF NOT EXISTS warehouse.agg_daily_sales (
    date_key           INTEGER PRIMARY KEY,
    total_transactions INTEGER NOT NULL,
    total_revenue      NUMERIC(14,2) NOT NULL,
    total_profit       NUMERIC(14,2) NOT NULL,
    unique_customers   INTEGER NOT NULL
);

-- Indexes for the joins the pipeline performs every run
CREATE INDEX IF NOT EXISTS idx_prod_transactions_customer ON production.transactions(customer_id);
CREATE INDEX IF NOT EXISTS idx_prod_items_transaction ON production.transaction_items(transaction_id);
CREATE INDEX IF NOT EXISTS idx_prod_items_product ON production.transaction_items(product_id);
CREATE INDEX IF NOT EXISTS idx_dim_customers_current ON warehouse.dim_customers(customer_id) WHERE is_current;
CREATE INDEX IF NOT EXISTS idx_dim_products_current ON warehouse.dim_products(product_id) WHERE is_current;
CREATE INDEX IF NOT EXISTS idx_fact_sales_date ON warehouse.fact_sales(date_key);
CREATE INDEX IF NOT EXISTS idx_fact_sales_customer ON warehouse.fact_sales(customer_key);
`

// Drop schema SQL
const dropSchemaSQL = `
DROP SCHEMA IF EXISTS warehouse CASCADE;
DROP SCHEMA IF EXISTS production CASCADE;
DROP SCHEMA IF EXISTS staging CASCADE;
`

// CreateSchema creates the staging, production and warehouse schemas.
func CreateSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, createSchemaSQL)
	return err
}

// DropSchema drops all three pipeline schemas.
func DropSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, dropSchemaSQL)
	return err
}
