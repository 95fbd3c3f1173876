package model

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// GenerateUUIDWithSuffix generates a UUID with a given module name as a suffix.
// This is useful for creating unique identifiers with context-specific prefixes.
func GenerateUUIDWithSuffix(module string) string {
	id := uuid.New() // Generate a new UUID.
	uuidStr := id.String()
	idWithSuffix := fmt.Sprintf("%s_%s", module, uuidStr) // Append the module as a suffix to the UUID.
	return idWithSuffix
}

// NormalizeSKU trims and lower-cases a sku. Every write path goes through it
// so the unique index on products.sku is effectively case-insensitive.
func NormalizeSKU(sku string) string {
	return strings.ToLower(strings.TrimSpace(sku))
}
