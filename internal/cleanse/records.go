//-------------------------------------------------------------------------
//
// pgEdge Retail ETL
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package cleanse implements the staging to production stage: text
// normalization, business-rule validation and policy-driven merge.
package cleanse

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// Customer is a staging or production customer row. Nullable columns are
// pointers; NULL passes through the stage unchanged.
type Customer struct {
	CustomerID       string
	FirstName        *string
	LastName         *string
	Email            *string
	Phone            *string
	RegistrationDate *time.Time
	City             *string
	State            *string
	Country          *string
	AgeGroup         *string
}

// Product is a staging or production product row.
type Product struct {
	ProductID     string
	ProductName   *string
	Category      *string
	SubCategory   *string
	Price         float64
	Cost          float64
	Brand         *string
	StockQuantity *int32
	SupplierID    *string
}

// Transaction is a staging or production transaction row. The time of day
// is a pgtype.Time (Valid false for NULL) so COPY can binary-encode the
// TIME column. Numeric columns are nullable in staging, so they are
// pointers; NULLs are rejected by validation before production.
type Transaction struct {
	TransactionID   string
	CustomerID      *string
	TransactionDate *time.Time
	TransactionTime pgtype.Time
	PaymentMethod   *string
	ShippingAddress *string
	TotalAmount     *float64
}

// TransactionItem is a staging or production transaction line item.
type TransactionItem struct {
	ItemID             string
	TransactionID      string
	ProductID          string
	Quantity           *int32
	UnitPrice          *float64
	DiscountPercentage *float64
	LineTotal          *float64
}
