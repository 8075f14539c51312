package cleanse

import "testing"

func strPtr(s string) *string { return &s }

func TestCleanText(t *testing.T) {
	tests := []struct {
		name string
		in   *string
		want *string
	}{
		{name: "nil passes through", in: nil, want: nil},
		{name: "trims leading and trailing", in: strPtr("  Alice  "), want: strPtr("Alice")},
		{name: "unchanged value", in: strPtr("Bob"), want: strPtr("Bob")},
		{name: "whitespace only becomes null", in: strPtr("   "), want: nil},
		{name: "inner whitespace preserved", in: strPtr(" New  York "), want: strPtr("New  York")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CleanText(tt.in)
			if (got == nil) != (tt.want == nil) {
				t.Fatalf("CleanText(%v) nil mismatch: got %v, want %v", tt.in, got, tt.want)
			}
			if got != nil && *got != *tt.want {
				t.Errorf("CleanText = %q, want %q", *got, *tt.want)
			}
		})
	}
}

func TestCleanEmail(t *testing.T) {
	tests := []struct {
		name string
		in   *string
		want *string
	}{
		{name: "nil passes through", in: nil, want: nil},
		{name: "lowercased", in: strPtr("Alice@Example.COM"), want: strPtr("alice@example.com")},
		{name: "trimmed and lowercased", in: strPtr("  BOB@TEST.ORG "), want: strPtr("bob@test.org")},
		{name: "already clean", in: strPtr("c@d.io"), want: strPtr("c@d.io")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CleanEmail(tt.in)
			if (got == nil) != (tt.want == nil) {
				t.Fatalf("CleanEmail(%v) nil mismatch", tt.in)
			}
			if got != nil && *got != *tt.want {
				t.Errorf("CleanEmail = %q, want %q", *got, *tt.want)
			}
		})
	}
}

func TestNormalizeCustomer(t *testing.T) {
	c := Customer{
		CustomerID: "CUST0001",
		FirstName:  strPtr(" Alice "),
		LastName:   strPtr("Smith\t"),
		Email:      strPtr(" Alice.Smith@Example.com "),
		Phone:      strPtr(" 555-0100 "),
		City:       strPtr(" Springfield"),
	}
	normalizeCustomer(&c)

	if *c.FirstName != "Alice" {
		t.Errorf("FirstName = %q", *c.FirstName)
	}
	if *c.LastName != "Smith" {
		t.Errorf("LastName = %q", *c.LastName)
	}
	if *c.Email != "alice.smith@example.com" {
		t.Errorf("Email = %q", *c.Email)
	}
	if *c.City != "Springfield" {
		t.Errorf("City = %q", *c.City)
	}
	// Phone is not normalized
	if *c.Phone != " 555-0100 " {
		t.Errorf("Phone should be untouched, got %q", *c.Phone)
	}
	if c.State != nil || c.Country != nil {
		t.Error("nil fields must stay nil")
	}
}
