package repository

import (
	"context"
	"fmt"

	"telegram-storefront/internal/model"
)

const productColumns = `id, title, description, price, category, stock, image_url, region, auto_delivery_data, created_at, updated_at`

// ProductRepository handles product persistence in PostgreSQL.
type ProductRepository struct {
	db DBTX
}

// NewProductRepository creates a new ProductRepository instance.
func NewProductRepository(db DBTX) *ProductRepository {
	return &ProductRepository{db: db}
}

func scanProduct(row rowScanner) (*model.Product, error) {
	var p model.Product
	err := row.Scan(
		&p.ID,
		&p.Title,
		&p.Description,
		&p.Price,
		&p.Category,
		&p.Stock,
		&p.ImageURL,
		&p.Region,
		&p.AutoDeliveryData,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// List returns products newest first, optionally narrowed to one category.
func (r *ProductRepository) List(ctx context.Context, filter ProductFilter) ([]*model.Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM products
		WHERE ($1::text = '' OR category = $1)
		ORDER BY seq DESC
	`

	rows, err := r.db.Query(ctx, query, string(filter.Category))
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	products := []*model.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	return products, nil
}

// GetByID retrieves a product by id.
// Returns ErrNotFound if the product does not exist.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*model.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	p, err := scanProduct(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapError(err, "get product")
	}
	return p, nil
}

// GetForUpdate retrieves a product and locks its row for the rest of the transaction.
func (r *ProductRepository) GetForUpdate(ctx context.Context, id string) (*model.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1 FOR UPDATE`

	p, err := scanProduct(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapError(err, "lock product")
	}
	return p, nil
}

// Create inserts a product, generating its id when empty.
func (r *ProductRepository) Create(ctx context.Context, product *model.Product) (*model.Product, error) {
	if err := validateProduct(product); err != nil {
		return nil, err
	}

	id := product.ID
	if id == "" {
		id = newID()
	}

	query := `
		INSERT INTO products (id, title, description, price, category, stock, image_url, region, auto_delivery_data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
		RETURNING ` + productColumns

	p, err := scanProduct(r.db.QueryRow(ctx, query,
		id,
		product.Title,
		product.Description,
		product.Price,
		string(product.Category),
		product.Stock,
		product.ImageURL,
		product.Region,
		product.AutoDeliveryData,
	))
	if err != nil {
		return nil, mapError(err, "create product")
	}
	return p, nil
}

// Update merges the non-nil patch fields into the product in a single statement.
// Constraint violations (negative stock, unknown category) surface as ErrValidation.
func (r *ProductRepository) Update(ctx context.Context, id string, patch model.ProductPatch) error {
	const query = `
		UPDATE products SET
			title              = COALESCE($2::text, title),
			description        = COALESCE($3::text, description),
			price              = COALESCE($4::numeric, price),
			category           = COALESCE($5::text, category),
			stock              = COALESCE($6::int, stock),
			image_url          = COALESCE($7::text, image_url),
			region             = COALESCE($8::text, region),
			auto_delivery_data = COALESCE($9::text, auto_delivery_data),
			updated_at         = NOW()
		WHERE id = $1
	`

	var category *string
	if patch.Category != nil {
		c := string(*patch.Category)
		category = &c
	}

	result, err := r.db.Exec(ctx, query,
		id,
		patch.Title,
		patch.Description,
		patch.Price,
		category,
		patch.Stock,
		patch.ImageURL,
		patch.Region,
		patch.AutoDeliveryData,
	)
	if err != nil {
		return mapError(err, "update product")
	}

	if result.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// Delete removes a product. Past orders keep their snapshot.
func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return mapError(err, "delete product")
	}

	if result.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}
