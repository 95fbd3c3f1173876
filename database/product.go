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

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"go.opentelemetry.io/otel"

	"github.com/acmeproducts/skuflow/internal/apierror"
	"github.com/acmeproducts/skuflow/model"
)

const (
	productColumns = 5
	// Postgres accepts at most 65535 bind parameters per statement.
	maxUpsertRows = 65535 / productColumns
)

// UpsertProducts writes a batch of products keyed by sku inside a single transaction.
// Rows sharing a sku are collapsed to their last occurrence first, so a statement never
// touches the same row twice. On any failure nothing from the batch is kept.
func (d Datasource) UpsertProducts(ctx context.Context, rows []model.Product) error {
	ctx, span := otel.Tracer("Products").Start(ctx, "Upserting product batch")
	defer span.End()

	rows = model.DedupeProductsBySKU(rows)
	if len(rows) == 0 {
		return nil
	}

	tx, err := d.Conn.BeginTx(ctx, nil)
	if err != nil {
		span.RecordError(err)
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to begin transaction", err)
	}

	for start := 0; start < len(rows); start += maxUpsertRows {
		end := start + maxUpsertRows
		if end > len(rows) {
			end = len(rows)
		}

		query, args := buildUpsertQuery(rows[start:end])
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			_ = tx.Rollback()
			span.RecordError(err)
			return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to upsert products", err)
		}
	}

	if err := tx.Commit(); err != nil {
		span.RecordError(err)
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to commit transaction", err)
	}

	return nil
}

func buildUpsertQuery(rows []model.Product) (string, []interface{}) {
	var sb strings.Builder
	sb.WriteString("INSERT INTO skuflow.products (sku, name, description, price, active) VALUES ")

	args := make([]interface{}, 0, len(rows)*productColumns)
	for i, row := range rows {
		if i > 0 {
			sb.WriteString(", ")
		}
		n := i * productColumns
		fmt.Fprintf(&sb, "($%d, $%d, $%d, $%d, $%d)", n+1, n+2, n+3, n+4, n+5)
		args = append(args, row.SKU, row.Name, row.Description, row.Price.StringFixed(2), row.Active)
	}

	sb.WriteString(` ON CONFLICT (sku) DO UPDATE SET
		name = EXCLUDED.name,
		description = EXCLUDED.description,
		price = EXCLUDED.price,
		active = EXCLUDED.active`)

	return sb.String(), args
}

func (d Datasource) CreateProduct(ctx context.Context, p model.Product) (model.Product, error) {
	ctx, span := otel.Tracer("Products").Start(ctx, "Saving product to db")
	defer span.End()

	p.SKU = model.NormalizeSKU(p.SKU)
	err := d.Conn.QueryRowContext(ctx, `
		INSERT INTO skuflow.products (sku, name, description, price, active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, p.SKU, p.Name, p.Description, p.Price.StringFixed(2), p.Active).Scan(&p.ID)
	if err != nil {
		return model.Product{}, mapWriteError(err, "Product with this sku already exists", "Failed to create product")
	}

	return p, nil
}

func (d Datasource) GetProductByID(ctx context.Context, id int64) (*model.Product, error) {
	ctx, span := otel.Tracer("Products").Start(ctx, "Fetching product from db")
	defer span.End()

	p := model.Product{}
	err := d.Conn.QueryRowContext(ctx, `
		SELECT id, sku, name, description, price, active
		FROM skuflow.products
		WHERE id = $1
	`, id).Scan(&p.ID, &p.SKU, &p.Name, &p.Description, &p.Price, &p.Active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Product with ID '%d' not found", id), err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve product", err)
	}

	return &p, nil
}

func (d Datasource) GetAllProducts(ctx context.Context, limit, offset int) ([]model.Product, error) {
	ctx, span := otel.Tracer("Products").Start(ctx, "Listing products from db")
	defer span.End()

	rows, err := d.Conn.QueryContext(ctx, `
		SELECT id, sku, name, description, price, active
		FROM skuflow.products
		ORDER BY id
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve products", err)
	}
	defer rows.Close()

	products := []model.Product{}
	for rows.Next() {
		p := model.Product{}
		if err := rows.Scan(&p.ID, &p.SKU, &p.Name, &p.Description, &p.Price, &p.Active); err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan product data", err)
		}
		products = append(products, p)
	}

	if err = rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error occurred while iterating over products", err)
	}

	return products, nil
}

func (d Datasource) UpdateProduct(ctx context.Context, p *model.Product) error {
	ctx, span := otel.Tracer("Products").Start(ctx, "Updating product in db")
	defer span.End()

	p.SKU = model.NormalizeSKU(p.SKU)
	result, err := d.Conn.ExecContext(ctx, `
		UPDATE skuflow.products
		SET sku = $2, name = $3, description = $4, price = $5, active = $6
		WHERE id = $1
	`, p.ID, p.SKU, p.Name, p.Description, p.Price.StringFixed(2), p.Active)
	if err != nil {
		return mapWriteError(err, "Product with this sku already exists", "Failed to update product")
	}

	return expectOneRow(result, fmt.Sprintf("Product with ID '%d' not found", p.ID))
}

func (d Datasource) DeleteProduct(ctx context.Context, id int64) error {
	ctx, span := otel.Tracer("Products").Start(ctx, "Deleting product from db")
	defer span.End()

	result, err := d.Conn.ExecContext(ctx, `DELETE FROM skuflow.products WHERE id = $1`, id)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to delete product", err)
	}

	return expectOneRow(result, fmt.Sprintf("Product with ID '%d' not found", id))
}

func mapWriteError(err error, conflictMessage, fallbackMessage string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Name() {
		case "unique_violation":
			return apierror.NewAPIError(apierror.ErrConflict, conflictMessage, err)
		default:
			return apierror.NewAPIError(apierror.ErrInternalServer, "Database error occurred", err)
		}
	}
	return apierror.NewAPIError(apierror.ErrInternalServer, fallbackMessage, err)
}

func expectOneRow(result sql.Result, notFoundMessage string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apierror.NewAPIError(apierror.ErrNotFound, notFoundMessage, nil)
	}
	return nil
}
