package cleanse

import "strings"

// CleanText trims surrounding whitespace from a nullable text value.
// NULL stays NULL; a value that trims to empty becomes NULL.
func CleanText(val *string) *string {
	if val == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*val)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// CleanEmail trims and lowercases a nullable email address.
func CleanEmail(email *string) *string {
	cleaned := CleanText(email)
	if cleaned == nil {
		return nil
	}
	lowered := strings.ToLower(*cleaned)
	return &lowered
}

// normalizeCustomer applies text normalization in place.
func normalizeCustomer(c *Customer) {
	c.FirstName = CleanText(c.FirstName)
	c.LastName = CleanText(c.LastName)
	c.Email = CleanEmail(c.Email)
	c.City = CleanText(c.City)
	c.State = CleanText(c.State)
	c.Country = CleanText(c.Country)
}
