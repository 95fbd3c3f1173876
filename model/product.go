/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package model

import (
	"github.com/shopspring/decimal"
)

// Product is a catalog record keyed by its lower-cased sku.
type Product struct {
	ID          int64           `json:"id"`
	SKU         string          `json:"sku"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Active      bool            `json:"active"`
}

// ProductUpdate lists the fields an update may touch. Nil fields are left as they are.
type ProductUpdate struct {
	SKU         *string          `json:"sku,omitempty"`
	Name        *string          `json:"name,omitempty"`
	Description *string          `json:"description,omitempty"`
	Price       *decimal.Decimal `json:"price,omitempty"`
	Active      *bool            `json:"active,omitempty"`
}

// Apply returns a copy of p with the non-nil fields of u written over it.
func (u ProductUpdate) Apply(p Product) Product {
	if u.SKU != nil {
		p.SKU = NormalizeSKU(*u.SKU)
	}
	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.Description != nil {
		p.Description = *u.Description
	}
	if u.Price != nil {
		p.Price = *u.Price
	}
	if u.Active != nil {
		p.Active = *u.Active
	}
	return p
}

// EventPayload is the body sent to product.* webhook subscribers.
func (p Product) EventPayload() map[string]interface{} {
	return map[string]interface{}{
		"id":          p.ID,
		"sku":         p.SKU,
		"name":        p.Name,
		"description": p.Description,
		"price":       p.Price.StringFixed(2),
		"active":      p.Active,
	}
}

// DedupeProductsBySKU collapses rows sharing a sku into the last occurrence.
// The output keeps the relative order of those last occurrences.
func DedupeProductsBySKU(rows []Product) []Product {
	if len(rows) < 2 {
		return rows
	}

	last := make(map[string]int, len(rows))
	for i, row := range rows {
		last[row.SKU] = i
	}
	if len(last) == len(rows) {
		return rows
	}

	deduped := make([]Product, 0, len(last))
	for i, row := range rows {
		if last[row.SKU] == i {
			deduped = append(deduped, row)
		}
	}
	return deduped
}
