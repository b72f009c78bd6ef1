package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"loantracker/internal/core"
	"loantracker/internal/store"

	_ "modernc.org/sqlite"
)

var _ store.Repository = (*SQLiteRepository)(nil)

const timeLayout = time.RFC3339Nano

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// one writer at a time; sqlite locks the whole file anyway
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	// Run migrations
	if _, err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

type rowScanner interface {
	Scan(dest ...any) error
}

const personColumns = `id, name, total_loaned, total_paid, balance, status, has_info, email, phone, address, notes, created_at`

func scanPerson(s rowScanner) (core.Person, error) {
	var (
		p                         core.Person
		hasInfo                   bool
		email, phone, addr, notes string
		created                   string
		status                    string
	)
	err := s.Scan(&p.ID, &p.Name, &p.TotalLoaned.Cents, &p.TotalPaid.Cents, &p.Balance.Cents,
		&status, &hasInfo, &email, &phone, &addr, &notes, &created)
	if err != nil {
		return core.Person{}, err
	}
	p.Status = core.Status(status)
	if hasInfo {
		p.PersonalInfo = &core.PersonalInfo{Email: email, Phone: phone, Address: addr, Notes: notes}
	}
	if p.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
		return core.Person{}, fmt.Errorf("parse created_at for %s: %w", p.ID, core.ErrStoreUnreadable)
	}
	return p, nil
}

// ListPeople implements store.PersonReader
func (r *SQLiteRepository) ListPeople(ctx context.Context) ([]core.Person, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+personColumns+` FROM people ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("list people: %w", err)
	}
	defer rows.Close()

	var people []core.Person
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, fmt.Errorf("scan person: %w", err)
		}
		people = append(people, p)
	}
	return people, rows.Err()
}

// GetPerson implements store.PersonReader
func (r *SQLiteRepository) GetPerson(ctx context.Context, id string) (core.Person, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+personColumns+` FROM people WHERE id = ?`, id)
	p, err := scanPerson(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Person{}, core.ErrNotFound
	}
	if err != nil {
		return core.Person{}, fmt.Errorf("get person %s: %w", id, err)
	}
	return p, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func upsertPerson(ctx context.Context, db execer, p core.Person) error {
	var info core.PersonalInfo
	if p.PersonalInfo != nil {
		info = *p.PersonalInfo
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO people (`+personColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			total_loaned = excluded.total_loaned,
			total_paid = excluded.total_paid,
			balance = excluded.balance,
			status = excluded.status,
			has_info = excluded.has_info,
			email = excluded.email,
			phone = excluded.phone,
			address = excluded.address,
			notes = excluded.notes`,
		p.ID, p.Name, p.TotalLoaned.Cents, p.TotalPaid.Cents, p.Balance.Cents, string(p.Status),
		p.PersonalInfo != nil, info.Email, info.Phone, info.Address, info.Notes,
		p.CreatedAt.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("upsert person %s: %w", p.ID, err)
	}
	return nil
}

// SavePerson implements store.PersonWriter
func (r *SQLiteRepository) SavePerson(ctx context.Context, p core.Person) error {
	return upsertPerson(ctx, r.db, p)
}

// DeletePerson implements store.PersonWriter
func (r *SQLiteRepository) DeletePerson(ctx context.Context, id string) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM transactions WHERE person_id = ?`, id); err != nil {
			return fmt.Errorf("delete transactions of %s: %w", id, err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM people WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete person %s: %w", id, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return core.ErrNotFound
		}
		slog.InfoContext(ctx, "Person deleted from SQLite", "id", id)
		return nil
	})
}

// ListTransactions implements store.TransactionStore
func (r *SQLiteRepository) ListTransactions(ctx context.Context, personID string) ([]core.Transaction, error) {
	if _, err := r.GetPerson(ctx, personID); err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, person_id, kind, amount_cents, occurred_at, description
		FROM transactions WHERE person_id = ? ORDER BY position`, personID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txs []core.Transaction
	for rows.Next() {
		var (
			t    core.Transaction
			kind string
			at   string
		)
		if err := rows.Scan(&t.ID, &t.PersonID, &kind, &t.Amount.Cents, &at, &t.Description); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		t.Kind = core.Kind(kind)
		if t.Date, err = time.Parse(timeLayout, at); err != nil {
			return nil, fmt.Errorf("parse occurred_at for %s: %w", t.ID, core.ErrStoreUnreadable)
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

// SaveLedger implements store.TransactionStore. The transaction list is
// replaced as a whole, keeping the caller's order.
func (r *SQLiteRepository) SaveLedger(ctx context.Context, p core.Person, txs []core.Transaction) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if err := upsertPerson(ctx, tx, p); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM transactions WHERE person_id = ?`, p.ID); err != nil {
			return fmt.Errorf("clear transactions of %s: %w", p.ID, err)
		}
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO transactions (id, person_id, position, kind, amount_cents, occurred_at, description)
			VALUES (?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare insert transaction: %w", err)
		}
		defer stmt.Close()
		for i, t := range txs {
			_, err := stmt.ExecContext(ctx, t.ID, p.ID, i, string(t.Kind), t.Amount.Cents,
				t.Date.UTC().Format(timeLayout), t.Description)
			if err != nil {
				return fmt.Errorf("insert transaction %s: %w", t.ID, err)
			}
		}
		slog.InfoContext(ctx, "Ledger saved to SQLite",
			"person_id", p.ID,
			"transactions", len(txs),
			"balance_cents", p.Balance.Cents,
			"status", p.Status)
		return nil
	})
}

const linkColumns = `id, person_id, person_name, url, created_at, expires_at,
	include_transactions, include_personal_info, password_protected, password_hash, views`

func scanLink(s rowScanner) (core.SharedLink, error) {
	var (
		l                core.SharedLink
		created, expires string
	)
	err := s.Scan(&l.ID, &l.PersonID, &l.PersonName, &l.URL, &created, &expires,
		&l.IncludeTransactions, &l.IncludePersonalInfo, &l.PasswordProtected, &l.PasswordHash, &l.Views)
	if err != nil {
		return core.SharedLink{}, err
	}
	if l.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
		return core.SharedLink{}, fmt.Errorf("parse created_at for link %s: %w", l.ID, core.ErrStoreUnreadable)
	}
	if l.ExpiresAt, err = time.Parse(timeLayout, expires); err != nil {
		return core.SharedLink{}, fmt.Errorf("parse expires_at for link %s: %w", l.ID, core.ErrStoreUnreadable)
	}
	return l, nil
}

// ListLinks implements store.LinkStore
func (r *SQLiteRepository) ListLinks(ctx context.Context) ([]core.SharedLink, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+linkColumns+` FROM shared_links ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("list shared links: %w", err)
	}
	defer rows.Close()

	var links []core.SharedLink
	for rows.Next() {
		l, err := scanLink(rows)
		if err != nil {
			return nil, fmt.Errorf("scan shared link: %w", err)
		}
		links = append(links, l)
	}
	return links, rows.Err()
}

// GetLink implements store.LinkStore
func (r *SQLiteRepository) GetLink(ctx context.Context, id string) (core.SharedLink, error) {
	l, err := scanLink(r.db.QueryRowContext(ctx, `SELECT `+linkColumns+` FROM shared_links WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.SharedLink{}, core.ErrNotFound
	}
	if err != nil {
		return core.SharedLink{}, fmt.Errorf("get shared link %s: %w", id, err)
	}
	return l, nil
}

// SaveLink implements store.LinkStore
func (r *SQLiteRepository) SaveLink(ctx context.Context, l core.SharedLink) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO shared_links (`+linkColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			person_name = excluded.person_name,
			url = excluded.url,
			expires_at = excluded.expires_at,
			include_transactions = excluded.include_transactions,
			include_personal_info = excluded.include_personal_info,
			password_protected = excluded.password_protected,
			password_hash = excluded.password_hash,
			views = excluded.views`,
		l.ID, l.PersonID, l.PersonName, l.URL,
		l.CreatedAt.UTC().Format(timeLayout), l.ExpiresAt.UTC().Format(timeLayout),
		l.IncludeTransactions, l.IncludePersonalInfo, l.PasswordProtected, l.PasswordHash, l.Views)
	if err != nil {
		return fmt.Errorf("save shared link %s: %w", l.ID, err)
	}
	return nil
}

// DeleteLink implements store.LinkStore
func (r *SQLiteRepository) DeleteLink(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM shared_links WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete shared link %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// IncrementViews implements store.LinkStore
func (r *SQLiteRepository) IncrementViews(ctx context.Context, id string) (int64, error) {
	var views int64
	err := r.db.QueryRowContext(ctx,
		`UPDATE shared_links SET views = views + 1 WHERE id = ? RETURNING views`, id).Scan(&views)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, core.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("increment views of %s: %w", id, err)
	}
	return views, nil
}

func (r *SQLiteRepository) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
