//-------------------------------------------------------------------------
//
// pgEdge Retail ETL
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package datagen

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pgEdge/retail-etl/internal/logging"
	"github.com/pgEdge/retail-etl/internal/pipeline"
)

// Reference data
var ageGroups = []string{"18-25", "26-35", "36-45", "46-60", "60+"}
var categories = []string{"Electronics", "Clothing", "Home & Kitchen", "Books", "Sports", "Beauty"}
var paymentMethods = []string{"Credit Card", "Debit Card", "UPI", "Cash on Delivery", "Net Banking"}
var discountChoices = []int{0, 5, 10, 15}

// CSV file names written under the raw data directory.
const (
	CustomersFile    = "customers.csv"
	ProductsFile     = "products.csv"
	TransactionsFile = "transactions.csv"
	ItemsFile        = "transaction_items.csv"
	MetadataFile     = "generation_metadata.json"
)

// Customer is one generated customers.csv row.
type Customer struct {
	CustomerID       string
	FirstName        string
	LastName         string
	Email            string
	Phone            string
	RegistrationDate time.Time
	City             string
	State            string
	Country          string
	AgeGroup         string
}

// Product is one generated products.csv row.
type Product struct {
	ProductID     string
	ProductName   string
	Category      string
	SubCategory   string
	Price         float64
	Cost          float64
	Brand         string
	StockQuantity int
	SupplierID    string
}

// Transaction is one generated transactions.csv row.
type Transaction struct {
	TransactionID   string
	CustomerID      string
	TransactionDate time.Time
	TransactionTime string
	PaymentMethod   string
	ShippingAddress string
	TotalAmount     float64
}

// TransactionItem is one generated transaction_items.csv row.
type TransactionItem struct {
	ItemID             string
	TransactionID      string
	ProductID          string
	Quantity           int
	UnitPrice          float64
	DiscountPercentage int
	LineTotal          float64
}

// Dataset is a complete generated snapshot.
type Dataset struct {
	Customers    []Customer
	Products     []Product
	Transactions []Transaction
	Items        []TransactionItem
}

// Options control the size and date range of a generated dataset.
type Options struct {
	Customers    int
	Products     int
	Transactions int
	StartDate    time.Time
	EndDate      time.Time
}

// Metadata describes a generated snapshot, written alongside the CSVs.
type Metadata struct {
	GeneratedAt  time.Time      `json:"generated_at"`
	RecordCounts map[string]int `json:"record_counts"`
	DateRange    DateRange      `json:"date_range"`
	Validation   Validation     `json:"validation"`
}

// DateRange is the observed transaction date bounds of a snapshot.
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Validation is the referential self-check over a generated snapshot.
type Validation struct {
	Issues           Issues `json:"issues"`
	DataQualityScore int    `json:"data_quality_score"`
}

// Issues counts dangling references between the generated files.
type Issues struct {
	OrphanCustomers    int `json:"orphan_customers"`
	OrphanProducts     int `json:"orphan_products"`
	OrphanTransactions int `json:"orphan_transactions"`
}

// Generator generates the synthetic retail dataset.
type Generator struct {
	faker *Faker
	opts  Options
}

// NewGenerator creates a generator with a random seed.
func NewGenerator(opts Options) *Generator {
	return &Generator{faker: NewFaker(), opts: opts}
}

// NewGeneratorWithSeed creates a reproducible generator.
func NewGeneratorWithSeed(opts Options, seed uint64) *Generator {
	return &Generator{faker: NewFakerWithSeed(seed), opts: opts}
}

// Generate produces a complete in-memory dataset.
func (g *Generator) Generate() *Dataset {
	customers := g.generateCustomers()
	products := g.generateProducts()
	transactions, items := g.generateTransactions(customers, products)

	return &Dataset{
		Customers:    customers,
		Products:     products,
		Transactions: transactions,
		Items:        items,
	}
}

func (g *Generator) generateCustomers() []Customer {
	logging.Info().Int("count", g.opts.Customers).Msg("Generating customers")

	// Registration dates anchor to the configured end date so seeded
	// runs are reproducible.
	regEnd := g.opts.EndDate
	regStart := regEnd.AddDate(-3, 0, 0)
	usedEmails := make(map[string]bool, g.opts.Customers)
	customers := make([]Customer, 0, g.opts.Customers)

	for i := 1; i <= g.opts.Customers; i++ {
		email := g.faker.Email()
		for usedEmails[email] {
			email = g.faker.Email()
		}
		usedEmails[email] = true

		customers = append(customers, Customer{
			CustomerID:       fmt.Sprintf("CUST%04d", i),
			FirstName:        g.faker.FirstName(),
			LastName:         g.faker.LastName(),
			Email:            email,
			Phone:            g.faker.Phone(),
			RegistrationDate: g.faker.DateRange(regStart, regEnd),
			City:             g.faker.City(),
			State:            g.faker.State(),
			Country:          g.faker.Country(),
			AgeGroup:         Choose(g.faker, ageGroups),
		})
	}
	return customers
}

func (g *Generator) generateProducts() []Product {
	logging.Info().Int("count", g.opts.Products).Msg("Generating products")

	products := make([]Product, 0, g.opts.Products)
	for i := 1; i <= g.opts.Products; i++ {
		price := round2(g.faker.Float64(100, 5000))
		cost := round2(price * g.faker.Float64(0.5, 0.8))

		products = append(products, Product{
			ProductID:     fmt.Sprintf("PROD%04d", i),
			ProductName:   g.faker.ProductName(),
			Category:      Choose(g.faker, categories),
			SubCategory:   g.faker.ProductCategory(),
			Price:         price,
			Cost:          cost,
			Brand:         g.faker.Company(),
			StockQuantity: g.faker.Int(10, 500),
			SupplierID:    fmt.Sprintf("SUP%03d", g.faker.Int(1, 50)),
		})
	}
	return products
}

func (g *Generator) generateTransactions(customers []Customer, products []Product) ([]Transaction, []TransactionItem) {
	logging.Info().Int("count", g.opts.Transactions).Msg("Generating transactions")

	transactions := make([]Transaction, 0, g.opts.Transactions)
	var items []TransactionItem

	for i := 1; i <= g.opts.Transactions; i++ {
		transactionID := fmt.Sprintf("TXN%05d", i)
		customer := Choose(g.faker, customers)

		totalAmount := 0.0
		numItems := g.faker.Int(1, 5)

		for j := 0; j < numItems; j++ {
			product := Choose(g.faker, products)
			quantity := g.faker.Int(1, 5)
			discount := Choose(g.faker, discountChoices)
			lineTotal := round2(float64(quantity) * product.Price * (1 - float64(discount)/100))
			totalAmount += lineTotal

			items = append(items, TransactionItem{
				ItemID:             fmt.Sprintf("ITEM%05d", len(items)+1),
				TransactionID:      transactionID,
				ProductID:          product.ProductID,
				Quantity:           quantity,
				UnitPrice:          product.Price,
				DiscountPercentage: discount,
				LineTotal:          lineTotal,
			})
		}

		transactions = append(transactions, Transaction{
			TransactionID:   transactionID,
			CustomerID:      customer.CustomerID,
			TransactionDate: g.faker.DateRange(g.opts.StartDate, g.opts.EndDate),
			TransactionTime: fmt.Sprintf("%02d:%02d:%02d", g.faker.Int(0, 23), g.faker.Int(0, 59), g.faker.Int(0, 59)),
			PaymentMethod:   Choose(g.faker, paymentMethods),
			ShippingAddress: fmt.Sprintf("%s, %s, %s %s", g.faker.Street(), g.faker.City(), g.faker.State(), g.faker.Zip()),
			TotalAmount:     round2(totalAmount),
		})
	}
	return transactions, items
}

// CheckReferentialIntegrity counts dangling references within a dataset.
// A clean snapshot scores 100; any orphan drops the score to 90.
func CheckReferentialIntegrity(d *Dataset) Validation {
	customerIDs := make(map[string]bool, len(d.Customers))
	for _, c := range d.Customers {
		customerIDs[c.CustomerID] = true
	}
	productIDs := make(map[string]bool, len(d.Products))
	for _, p := range d.Products {
		productIDs[p.ProductID] = true
	}
	transactionIDs := make(map[string]bool, len(d.Transactions))
	for _, t := range d.Transactions {
		transactionIDs[t.TransactionID] = true
	}

	var issues Issues
	for _, t := range d.Transactions {
		if !customerIDs[t.CustomerID] {
			issues.OrphanCustomers++
		}
	}
	for _, it := range d.Items {
		if !productIDs[it.ProductID] {
			issues.OrphanProducts++
		}
		if !transactionIDs[it.TransactionID] {
			issues.OrphanTransactions++
		}
	}

	score := 100
	if issues.OrphanCustomers+issues.OrphanProducts+issues.OrphanTransactions > 0 {
		score = 90
	}
	return Validation{Issues: issues, DataQualityScore: score}
}

// WriteCSV writes the four CSV files and the generation metadata to dir.
func (d *Dataset) WriteCSV(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create raw data directory: %w", err)
	}

	if err := writeCSVFile(filepath.Join(dir, CustomersFile),
		[]string{"customer_id", "first_name", "last_name", "email", "phone",
			"registration_date", "city", "state", "country", "age_group"},
		len(d.Customers), func(i int) []string {
			c := d.Customers[i]
			return []string{c.CustomerID, c.FirstName, c.LastName, c.Email, c.Phone,
				c.RegistrationDate.Format("2006-01-02"), c.City, c.State, c.Country, c.AgeGroup}
		}); err != nil {
		return err
	}

	if err := writeCSVFile(filepath.Join(dir, ProductsFile),
		[]string{"product_id", "product_name", "category", "sub_category", "price",
			"cost", "brand", "stock_quantity", "supplier_id"},
		len(d.Products), func(i int) []string {
			p := d.Products[i]
			return []string{p.ProductID, p.ProductName, p.Category, p.SubCategory,
				formatAmount(p.Price), formatAmount(p.Cost), p.Brand,
				strconv.Itoa(p.StockQuantity), p.SupplierID}
		}); err != nil {
		return err
	}

	if err := writeCSVFile(filepath.Join(dir, TransactionsFile),
		[]string{"transaction_id", "customer_id", "transaction_date", "transaction_time",
			"payment_method", "shipping_address", "total_amount"},
		len(d.Transactions), func(i int) []string {
			t := d.Transactions[i]
			return []string{t.TransactionID, t.CustomerID,
				t.TransactionDate.Format("2006-01-02"), t.TransactionTime,
				t.PaymentMethod, t.ShippingAddress, formatAmount(t.TotalAmount)}
		}); err != nil {
		return err
	}

	if err := writeCSVFile(filepath.Join(dir, ItemsFile),
		[]string{"item_id", "transaction_id", "product_id", "quantity", "unit_price",
			"discount_percentage", "line_total"},
		len(d.Items), func(i int) []string {
			it := d.Items[i]
			return []string{it.ItemID, it.TransactionID, it.ProductID,
				strconv.Itoa(it.Quantity), formatAmount(it.UnitPrice),
				strconv.Itoa(it.DiscountPercentage), formatAmount(it.LineTotal)}
		}); err != nil {
		return err
	}

	return pipeline.WriteJSON(dir, MetadataFile, d.metadata())
}

func (d *Dataset) metadata() Metadata {
	var minDate, maxDate time.Time
	for _, t := range d.Transactions {
		if minDate.IsZero() || t.TransactionDate.Before(minDate) {
			minDate = t.TransactionDate
		}
		if t.TransactionDate.After(maxDate) {
			maxDate = t.TransactionDate
		}
	}

	dateRange := DateRange{}
	if !minDate.IsZero() {
		dateRange.Start = minDate.Format("2006-01-02")
		dateRange.End = maxDate.Format("2006-01-02")
	}

	return Metadata{
		GeneratedAt: time.Now().UTC(),
		RecordCounts: map[string]int{
			"customers":         len(d.Customers),
			"products":          len(d.Products),
			"transactions":      len(d.Transactions),
			"transaction_items": len(d.Items),
		},
		DateRange:  dateRange,
		Validation: CheckReferentialIntegrity(d),
	}
}

func writeCSVFile(path string, header []string, n int, row func(int) []string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		if err := w.Write(row(i)); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
