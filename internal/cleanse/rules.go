package cleanse

// Rejection reason codes for the run summary.
const (
	ReasonInvalidPrice      = "invalid_price"
	ReasonCostNotBelowPrice = "cost_not_below_price"
	ReasonInvalidTotal      = "invalid_total_amount"
	ReasonInvalidQuantity   = "invalid_quantity"
	ReasonMissingValue      = "missing_value"
	ReasonDuplicateKey      = "duplicate_key"
)

// Rejection identifies one excluded row and the rule it violated.
type Rejection struct {
	Key    string `json:"key"`
	Reason string `json:"reason"`
}

// validProductRules returns the first violated rule for a product, or "".
func validProductRules(p Product) string {
	if p.Price <= 0 {
		return ReasonInvalidPrice
	}
	if p.Cost >= p.Price {
		return ReasonCostNotBelowPrice
	}
	return ""
}

// ValidateProducts splits products into rows passing the business rules
// and rejections naming the violated rule.
func ValidateProducts(products []Product) ([]Product, []Rejection) {
	kept := make([]Product, 0, len(products))
	var rejected []Rejection
	for _, p := range products {
		if reason := validProductRules(p); reason != "" {
			rejected = append(rejected, Rejection{Key: p.ProductID, Reason: reason})
			continue
		}
		kept = append(kept, p)
	}
	return kept, rejected
}

// ValidateTransactions splits transactions on the required-column and
// total_amount rules and drops keys already present in production
// (append-only policy). A NULL date or total rejects the row instead of
// failing the stage.
func ValidateTransactions(txns []Transaction, existing map[string]bool) ([]Transaction, []Rejection) {
	kept := make([]Transaction, 0, len(txns))
	var rejected []Rejection
	for _, t := range txns {
		if t.TransactionDate == nil || t.TotalAmount == nil {
			rejected = append(rejected, Rejection{Key: t.TransactionID, Reason: ReasonMissingValue})
			continue
		}
		if *t.TotalAmount <= 0 {
			rejected = append(rejected, Rejection{Key: t.TransactionID, Reason: ReasonInvalidTotal})
			continue
		}
		if existing[t.TransactionID] {
			rejected = append(rejected, Rejection{Key: t.TransactionID, Reason: ReasonDuplicateKey})
			continue
		}
		kept = append(kept, t)
	}
	return kept, rejected
}

// ValidateItems splits line items on the required-column and quantity
// rules and drops keys already present in production (append-only
// policy).
func ValidateItems(items []TransactionItem, existing map[string]bool) ([]TransactionItem, []Rejection) {
	kept := make([]TransactionItem, 0, len(items))
	var rejected []Rejection
	for _, it := range items {
		if it.Quantity == nil || it.UnitPrice == nil || it.DiscountPercentage == nil || it.LineTotal == nil {
			rejected = append(rejected, Rejection{Key: it.ItemID, Reason: ReasonMissingValue})
			continue
		}
		if *it.Quantity <= 0 {
			rejected = append(rejected, Rejection{Key: it.ItemID, Reason: ReasonInvalidQuantity})
			continue
		}
		if existing[it.ItemID] {
			rejected = append(rejected, Rejection{Key: it.ItemID, Reason: ReasonDuplicateKey})
			continue
		}
		kept = append(kept, it)
	}
	return kept, rejected
}
