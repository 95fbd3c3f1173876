package model

import (
	"github.com/shopspring/decimal"

	"github.com/acmeproducts/skuflow/model"
)

type CreateProduct struct {
	SKU         string           `json:"sku"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Active      *bool            `json:"active"`
}

type UpdateProduct struct {
	SKU         *string          `json:"sku"`
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Active      *bool            `json:"active"`
}

// ToProduct builds the record to store. Products are active unless told otherwise.
func (p *CreateProduct) ToProduct() model.Product {
	active := true
	if p.Active != nil {
		active = *p.Active
	}
	price := decimal.Zero
	if p.Price != nil {
		price = *p.Price
	}
	return model.Product{
		SKU:         model.NormalizeSKU(p.SKU),
		Name:        p.Name,
		Description: p.Description,
		Price:       price,
		Active:      active,
	}
}

func (p *UpdateProduct) ToProductUpdate() model.ProductUpdate {
	return model.ProductUpdate{
		SKU:         p.SKU,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Active:      p.Active,
	}
}
