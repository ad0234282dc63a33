package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/safar/wareq/internal/database"
	"github.com/safar/wareq/internal/models"
)

// partyTable describes one of the two tables sharing the Party shape.
type partyTable struct {
	name     string
	singular string
	notFound error
}

var (
	customersTable = partyTable{name: "customers", singular: "customer", notFound: database.ErrCustomerNotFound}
	suppliersTable = partyTable{name: "suppliers", singular: "supplier", notFound: database.ErrSupplierNotFound}
)

const partyColumns = `id, name, email, COALESCE(phone, ''), COALESCE(address, ''), is_active, created_at, updated_at`

func scanParty(row interface{ Scan(...any) error }, p *models.Party) error {
	return row.Scan(
		&p.ID,
		&p.Name,
		&p.Email,
		&p.Phone,
		&p.Address,
		&p.IsActive,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func (t partyTable) create(ctx context.Context, db *sql.DB, p models.Party) (*models.Party, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	query := `
		INSERT INTO ` + t.name + ` (name, email, phone, address, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, TRUE, NOW(), NOW())
		RETURNING ` + partyColumns

	created := &models.Party{}
	err := scanParty(db.QueryRowContext(ctx, query, p.Name, p.Email, nullString(p.Phone), nullString(p.Address)), created)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, fmt.Errorf("create %s %s: %w", t.singular, p.Email, database.ErrDuplicate)
		}
		return nil, fmt.Errorf("create %s: %w", t.singular, err)
	}

	return created, nil
}

func (t partyTable) get(ctx context.Context, q database.Querier, id int64) (*models.Party, error) {
	p := &models.Party{}

	query := `SELECT ` + partyColumns + ` FROM ` + t.name + ` WHERE id = $1`

	err := scanParty(q.QueryRowContext(ctx, query, id), p)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, t.notFound
		}
		return nil, fmt.Errorf("get %s: %w", t.singular, err)
	}

	return p, nil
}

func (t partyTable) list(ctx context.Context, db *sql.DB, params ListParams, activeOnly bool) ([]models.Party, int64, ListParams, error) {
	params = params.normalize()

	where := ` WHERE ($1 = '' OR name ILIKE '%' || $1 || '%' OR email ILIKE '%' || $1 || '%')
		  AND (NOT $2 OR is_active)`

	var total int64
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+t.name+where, params.Search, activeOnly).Scan(&total)
	if err != nil {
		return nil, 0, params, fmt.Errorf("count %s: %w", t.name, err)
	}

	query := `SELECT ` + partyColumns + ` FROM ` + t.name + where + `
		ORDER BY created_at DESC, id DESC
		LIMIT $3 OFFSET $4`

	rows, err := db.QueryContext(ctx, query, params.Search, activeOnly, params.PageSize, params.offset())
	if err != nil {
		return nil, 0, params, fmt.Errorf("list %s: %w", t.name, err)
	}
	defer rows.Close()

	parties := []models.Party{}
	for rows.Next() {
		var p models.Party
		if err := scanParty(rows, &p); err != nil {
			return nil, 0, params, fmt.Errorf("scan %s: %w", t.singular, err)
		}
		parties = append(parties, p)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, params, fmt.Errorf("rows error: %w", err)
	}

	return parties, total, params, nil
}

func (t partyTable) update(ctx context.Context, db *sql.DB, p models.Party) (*models.Party, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	query := `
		UPDATE ` + t.name + `
		SET name = $2, email = $3, phone = $4, address = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + partyColumns

	updated := &models.Party{}
	err := scanParty(db.QueryRowContext(ctx, query, p.ID, p.Name, p.Email, nullString(p.Phone), nullString(p.Address)), updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, t.notFound
		}
		if database.IsUniqueViolation(err) {
			return nil, fmt.Errorf("update %s %s: %w", t.singular, p.Email, database.ErrDuplicate)
		}
		return nil, fmt.Errorf("update %s: %w", t.singular, err)
	}

	return updated, nil
}

func (t partyTable) setActive(ctx context.Context, db *sql.DB, id int64, active bool) error {
	result, err := db.ExecContext(ctx,
		`UPDATE `+t.name+` SET is_active = $2, updated_at = NOW() WHERE id = $1`,
		id, active)
	if err != nil {
		return fmt.Errorf("set %s active: %w", t.singular, err)
	}
	return expectOneRow(result, t.notFound)
}

func (t partyTable) delete(ctx context.Context, db *sql.DB, id int64) error {
	result, err := db.ExecContext(ctx, `DELETE FROM `+t.name+` WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete %s: %w", t.singular, err)
	}
	return expectOneRow(result, t.notFound)
}

func expectOneRow(result sql.Result, notFound error) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return notFound
	}
	return nil
}

func CreateCustomer(ctx context.Context, db *sql.DB, c models.Customer) (*models.Customer, error) {
	p, err := customersTable.create(ctx, db, c.Party)
	if err != nil {
		return nil, err
	}
	return &models.Customer{Party: *p}, nil
}

func GetCustomer(ctx context.Context, db *sql.DB, id int64) (*models.Customer, error) {
	p, err := customersTable.get(ctx, db, id)
	if err != nil {
		return nil, err
	}
	return &models.Customer{Party: *p}, nil
}

func ListCustomers(ctx context.Context, db *sql.DB, params ListParams, activeOnly bool) (*OffsetPage, error) {
	parties, total, params, err := customersTable.list(ctx, db, params, activeOnly)
	if err != nil {
		return nil, err
	}
	customers := make([]models.Customer, 0, len(parties))
	for _, p := range parties {
		customers = append(customers, models.Customer{Party: p})
	}
	return newOffsetPage(customers, total, params), nil
}

func UpdateCustomer(ctx context.Context, db *sql.DB, c models.Customer) (*models.Customer, error) {
	p, err := customersTable.update(ctx, db, c.Party)
	if err != nil {
		return nil, err
	}
	return &models.Customer{Party: *p}, nil
}

// SetCustomerActive is the soft delete: inactive customers keep their
// orders but cannot be used on new ones.
func SetCustomerActive(ctx context.Context, db *sql.DB, id int64, active bool) error {
	return customersTable.setActive(ctx, db, id, active)
}

func DeleteCustomer(ctx context.Context, db *sql.DB, id int64) error {
	return customersTable.delete(ctx, db, id)
}

func CreateSupplier(ctx context.Context, db *sql.DB, s models.Supplier) (*models.Supplier, error) {
	p, err := suppliersTable.create(ctx, db, s.Party)
	if err != nil {
		return nil, err
	}
	return &models.Supplier{Party: *p}, nil
}

func GetSupplier(ctx context.Context, db *sql.DB, id int64) (*models.Supplier, error) {
	p, err := suppliersTable.get(ctx, db, id)
	if err != nil {
		return nil, err
	}
	return &models.Supplier{Party: *p}, nil
}

func ListSuppliers(ctx context.Context, db *sql.DB, params ListParams, activeOnly bool) (*OffsetPage, error) {
	parties, total, params, err := suppliersTable.list(ctx, db, params, activeOnly)
	if err != nil {
		return nil, err
	}
	suppliers := make([]models.Supplier, 0, len(parties))
	for _, p := range parties {
		suppliers = append(suppliers, models.Supplier{Party: p})
	}
	return newOffsetPage(suppliers, total, params), nil
}

func UpdateSupplier(ctx context.Context, db *sql.DB, s models.Supplier) (*models.Supplier, error) {
	p, err := suppliersTable.update(ctx, db, s.Party)
	if err != nil {
		return nil, err
	}
	return &models.Supplier{Party: *p}, nil
}

func SetSupplierActive(ctx context.Context, db *sql.DB, id int64, active bool) error {
	return suppliersTable.setActive(ctx, db, id, active)
}

func DeleteSupplier(ctx context.Context, db *sql.DB, id int64) error {
	return suppliersTable.delete(ctx, db, id)
}
