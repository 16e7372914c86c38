package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/MrEthical07/goContacts/contacts"
)

const contactColumns = `id, owner_id, first_name, last_name, email, phone,
		 to_char(birthday, 'YYYY-MM-DD'), created_at, updated_at`

// ContactRepository implements contacts.Repository on the contacts table.
type ContactRepository struct {
	db DBTX
}

func NewContactRepository(db DBTX) *ContactRepository {
	return &ContactRepository{db: db}
}

func (r *ContactRepository) List(ctx context.Context, ownerID string, f contacts.Filter, window *contacts.BirthdayWindow) ([]contacts.Contact, error) {
	var (
		b    strings.Builder
		args = []any{ownerID}
	)
	b.WriteString(`SELECT ` + contactColumns + ` FROM contacts
		 WHERE owner_id = $1`)

	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if f.Search != "" {
		p := arg(containsPattern(f.Search))
		fmt.Fprintf(&b, ` AND (first_name ILIKE %[1]s OR last_name ILIKE %[1]s OR email ILIKE %[1]s)`, p)
	}
	if window != nil {
		from, to := arg(window.From), arg(window.To)
		if window.Wraps {
			fmt.Fprintf(&b, ` AND (to_char(birthday, 'MM-DD') >= %s OR to_char(birthday, 'MM-DD') <= %s)`, from, to)
		} else {
			fmt.Fprintf(&b, ` AND to_char(birthday, 'MM-DD') BETWEEN %s AND %s`, from, to)
		}
	}
	b.WriteString(` ORDER BY last_name, first_name, id`)
	if f.Skip > 0 {
		b.WriteString(` OFFSET ` + arg(f.Skip))
	}
	if f.Limit > 0 {
		b.WriteString(` LIMIT ` + arg(f.Limit))
	}

	rows, err := r.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		if invalidText(err) {
			return []contacts.Contact{}, nil
		}
		return nil, unavailable(err)
	}
	defer rows.Close()

	out := make([]contacts.Contact, 0)
	for rows.Next() {
		var c contacts.Contact
		if err := rows.Scan(&c.ID, &c.OwnerID, &c.FirstName, &c.LastName, &c.Email, &c.Phone,
			&c.Birthday, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, unavailable(err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable(err)
	}
	return out, nil
}

func (r *ContactRepository) Get(ctx context.Context, ownerID, id string) (contacts.Contact, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts
		 WHERE id = $1 AND owner_id = $2
		 `
	var c contacts.Contact
	err := r.db.QueryRowContext(ctx, query, id, ownerID).Scan(&c.ID, &c.OwnerID, &c.FirstName,
		&c.LastName, &c.Email, &c.Phone, &c.Birthday, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || invalidText(err) {
			return contacts.Contact{}, contacts.ErrNotFound
		}
		return contacts.Contact{}, unavailable(err)
	}
	return c, nil
}

func (r *ContactRepository) Create(ctx context.Context, c contacts.Contact) (contacts.Contact, error) {
	query :=
		`INSERT INTO contacts (id, owner_id, first_name, last_name, email, phone, birthday, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7::date, $8, $9)
		 `
	_, err := r.db.ExecContext(ctx, query, c.ID, c.OwnerID, c.FirstName, c.LastName, c.Email,
		c.Phone, c.Birthday, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		if _, ok := uniqueViolation(err); ok {
			return contacts.Contact{}, contacts.ErrDuplicateEmail
		}
		return contacts.Contact{}, unavailable(err)
	}
	return c, nil
}

func (r *ContactRepository) Update(ctx context.Context, c contacts.Contact) (contacts.Contact, error) {
	query :=
		`UPDATE contacts
		 SET first_name = $3, last_name = $4, email = $5, phone = $6, birthday = $7::date, updated_at = $8
		 WHERE id = $1 AND owner_id = $2
		 RETURNING created_at
		 `
	err := r.db.QueryRowContext(ctx, query, c.ID, c.OwnerID, c.FirstName, c.LastName, c.Email,
		c.Phone, c.Birthday, c.UpdatedAt).Scan(&c.CreatedAt)
	if err != nil {
		if _, ok := uniqueViolation(err); ok {
			return contacts.Contact{}, contacts.ErrDuplicateEmail
		}
		if errors.Is(err, sql.ErrNoRows) || invalidText(err) {
			return contacts.Contact{}, contacts.ErrNotFound
		}
		return contacts.Contact{}, unavailable(err)
	}
	return c, nil
}

func (r *ContactRepository) Delete(ctx context.Context, ownerID, id string) error {
	query :=
		`DELETE FROM contacts
		 WHERE id = $1 AND owner_id = $2
		 `
	res, err := r.db.ExecContext(ctx, query, id, ownerID)
	if err != nil {
		if invalidText(err) {
			return contacts.ErrNotFound
		}
		return unavailable(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return unavailable(err)
	}
	if n == 0 {
		return contacts.ErrNotFound
	}
	return nil
}

func unavailable(err error) error {
	return fmt.Errorf("%w: db error: %w", contacts.ErrUnavailable, err)
}
