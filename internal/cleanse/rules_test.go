package cleanse

import (
	"testing"
	"time"
)

func f64(v float64) *float64 { return &v }
func i32(v int32) *int32     { return &v }

func datePtr(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestValidateProducts(t *testing.T) {
	products := []Product{
		{ProductID: "PROD0001", Price: 100, Cost: 60},
		{ProductID: "PROD0002", Price: 0, Cost: 0},       // invalid price
		{ProductID: "PROD0003", Price: -5, Cost: -10},    // invalid price
		{ProductID: "PROD0004", Price: 50, Cost: 50},     // cost == price
		{ProductID: "PROD0005", Price: 50, Cost: 80},     // cost > price
		{ProductID: "PROD0006", Price: 19.99, Cost: 9.5}, // valid
	}

	kept, rejected := ValidateProducts(products)

	if len(kept) != 2 {
		t.Fatalf("Expected 2 kept, got %d", len(kept))
	}
	if kept[0].ProductID != "PROD0001" || kept[1].ProductID != "PROD0006" {
		t.Errorf("Unexpected kept products: %v", kept)
	}
	if len(rejected) != 4 {
		t.Fatalf("Expected 4 rejected, got %d", len(rejected))
	}

	reasons := map[string]string{}
	for _, r := range rejected {
		reasons[r.Key] = r.Reason
	}
	if reasons["PROD0002"] != ReasonInvalidPrice {
		t.Errorf("PROD0002 reason = %s", reasons["PROD0002"])
	}
	if reasons["PROD0003"] != ReasonInvalidPrice {
		t.Errorf("PROD0003 reason = %s", reasons["PROD0003"])
	}
	if reasons["PROD0004"] != ReasonCostNotBelowPrice {
		t.Errorf("PROD0004 reason = %s", reasons["PROD0004"])
	}
	if reasons["PROD0005"] != ReasonCostNotBelowPrice {
		t.Errorf("PROD0005 reason = %s", reasons["PROD0005"])
	}
}

func TestValidateTransactions(t *testing.T) {
	txnDate := datePtr(2024, time.March, 15)
	txns := []Transaction{
		{TransactionID: "TXN00001", TransactionDate: txnDate, TotalAmount: f64(150.00)},
		{TransactionID: "TXN00002", TransactionDate: txnDate, TotalAmount: f64(0)},
		{TransactionID: "TXN00003", TransactionDate: txnDate, TotalAmount: f64(99.99)},
		{TransactionID: "TXN00004", TransactionDate: txnDate, TotalAmount: f64(-4)},
		{TransactionID: "TXN00005", TransactionDate: txnDate, TotalAmount: nil},
		{TransactionID: "TXN00006", TransactionDate: nil, TotalAmount: f64(25)},
	}
	existing := map[string]bool{"TXN00003": true}

	kept, rejected := ValidateTransactions(txns, existing)

	if len(kept) != 1 || kept[0].TransactionID != "TXN00001" {
		t.Fatalf("Expected only TXN00001 kept, got %v", kept)
	}
	if len(rejected) != 5 {
		t.Fatalf("Expected 5 rejected, got %d", len(rejected))
	}

	byReason := map[string]int{}
	for _, r := range rejected {
		byReason[r.Reason]++
	}
	if byReason[ReasonInvalidTotal] != 2 {
		t.Errorf("Expected 2 invalid totals, got %d", byReason[ReasonInvalidTotal])
	}
	if byReason[ReasonMissingValue] != 2 {
		t.Errorf("Expected 2 missing values, got %d", byReason[ReasonMissingValue])
	}
	if byReason[ReasonDuplicateKey] != 1 {
		t.Errorf("Expected 1 duplicate, got %d", byReason[ReasonDuplicateKey])
	}
}

func TestValidateTransactionsIdempotent(t *testing.T) {
	txnDate := datePtr(2024, time.June, 1)
	txns := []Transaction{
		{TransactionID: "TXN00001", TransactionDate: txnDate, TotalAmount: f64(10)},
		{TransactionID: "TXN00002", TransactionDate: txnDate, TotalAmount: f64(20)},
	}

	// First run: nothing exists
	kept, _ := ValidateTransactions(txns, map[string]bool{})
	if len(kept) != 2 {
		t.Fatalf("First run: expected 2 kept, got %d", len(kept))
	}

	// Second run: same staging input, all keys now in production
	existing := map[string]bool{}
	for _, tr := range kept {
		existing[tr.TransactionID] = true
	}
	kept, rejected := ValidateTransactions(txns, existing)
	if len(kept) != 0 {
		t.Errorf("Second run: expected 0 kept, got %d", len(kept))
	}
	if len(rejected) != 2 {
		t.Errorf("Second run: expected 2 duplicates, got %d", len(rejected))
	}
}

func TestValidateItems(t *testing.T) {
	item := func(id string, qty *int32) TransactionItem {
		return TransactionItem{
			ItemID:             id,
			TransactionID:      "TXN00001",
			ProductID:          "PROD0001",
			Quantity:           qty,
			UnitPrice:          f64(249.50),
			DiscountPercentage: f64(0),
			LineTotal:          f64(499.00),
		}
	}
	items := []TransactionItem{
		item("ITEM00001", i32(3)),
		item("ITEM00002", i32(0)),
		item("ITEM00003", i32(-1)),
		item("ITEM00004", i32(1)),
	}
	existing := map[string]bool{"ITEM00004": true}

	kept, rejected := ValidateItems(items, existing)

	if len(kept) != 1 || kept[0].ItemID != "ITEM00001" {
		t.Fatalf("Expected only ITEM00001 kept, got %v", kept)
	}

	byReason := map[string]int{}
	for _, r := range rejected {
		byReason[r.Reason]++
	}
	if byReason[ReasonInvalidQuantity] != 2 {
		t.Errorf("Expected 2 invalid quantities, got %d", byReason[ReasonInvalidQuantity])
	}
	if byReason[ReasonDuplicateKey] != 1 {
		t.Errorf("Expected 1 duplicate, got %d", byReason[ReasonDuplicateKey])
	}
}

func TestValidateItemsMissingValues(t *testing.T) {
	items := []TransactionItem{
		{ItemID: "ITEM00001", TransactionID: "TXN00001", ProductID: "PROD0001",
			Quantity: nil, UnitPrice: f64(10), DiscountPercentage: f64(0), LineTotal: f64(10)},
		{ItemID: "ITEM00002", TransactionID: "TXN00001", ProductID: "PROD0001",
			Quantity: i32(1), UnitPrice: nil, DiscountPercentage: f64(0), LineTotal: f64(10)},
		{ItemID: "ITEM00003", TransactionID: "TXN00001", ProductID: "PROD0001",
			Quantity: i32(1), UnitPrice: f64(10), DiscountPercentage: f64(0), LineTotal: nil},
	}

	kept, rejected := ValidateItems(items, map[string]bool{})

	if len(kept) != 0 {
		t.Fatalf("Expected 0 kept, got %d", len(kept))
	}
	for _, r := range rejected {
		if r.Reason != ReasonMissingValue {
			t.Errorf("%s reason = %s, want %s", r.Key, r.Reason, ReasonMissingValue)
		}
	}
	if len(rejected) != 3 {
		t.Errorf("Expected 3 rejected, got %d", len(rejected))
	}
}
