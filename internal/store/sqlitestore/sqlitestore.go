// Package sqlitestore persists layouts and users in an embedded SQLite file
// through database/sql and the pure-Go modernc driver.
package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/goliatone/go-formwizard/internal/store"
	"github.com/goliatone/go-formwizard/pkg/account"
	"github.com/goliatone/go-formwizard/pkg/layout"
)

const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Store wraps a single-connection *sql.DB. SQLite serialises writers, so one
// connection keeps transactions from tripping over SQLITE_BUSY.
type Store struct {
	db  *sql.DB
	now func() time.Time
	conn
}

var _ store.Store = (*Store)(nil)

// Open opens (creating if needed) the database at path and applies the
// schema. Use ":memory:" for a throwaway database.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlitestore: path is required")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: open: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	s := &Store{db: db, now: time.Now}
	s.conn = conn{q: db, now: s.clock}
	return s, nil
}

func (s *Store) clock() time.Time { return s.now() }

// SetClock overrides the clock used for user creation timestamps.
func (s *Store) SetClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

func migrate(db *sql.DB) error {
	statements := []string{
		`PRAGMA journal_mode=WAL;`,
		`CREATE TABLE IF NOT EXISTS forms (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL DEFAULT ''
		);`,
		`CREATE TABLE IF NOT EXISTS steps (
			id INTEGER PRIMARY KEY,
			form_id INTEGER NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			sort_order INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS sections (
			id INTEGER PRIMARY KEY,
			step_id INTEGER NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			sort_order INTEGER NOT NULL DEFAULT 0,
			is_admin_moveable INTEGER NOT NULL DEFAULT 1,
			is_frontend_visible INTEGER NOT NULL DEFAULT 1
		);`,
		`CREATE TABLE IF NOT EXISTS fields (
			id INTEGER PRIMARY KEY,
			section_id INTEGER NOT NULL,
			label TEXT NOT NULL DEFAULT '',
			field_type TEXT NOT NULL,
			user_property TEXT NOT NULL,
			flex_box_width INTEGER NOT NULL DEFAULT 0,
			is_required INTEGER NOT NULL DEFAULT 0,
			sort_order INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			email TEXT NOT NULL UNIQUE COLLATE NOCASE,
			password_hash TEXT NOT NULL DEFAULT '',
			about_me TEXT NOT NULL DEFAULT '',
			street TEXT NOT NULL DEFAULT '',
			city TEXT NOT NULL DEFAULT '',
			state TEXT NOT NULL DEFAULT '',
			postal_code TEXT NOT NULL DEFAULT '',
			country TEXT NOT NULL DEFAULT '',
			birthdate TEXT NULL,
			created_at TEXT NOT NULL
		);`,
	}
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("sqlitestore: migration failed: %w", err)
		}
	}
	return nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// InTx runs fn inside a database transaction, committing when fn returns nil.
func (s *Store) InTx(ctx context.Context, fn func(tx store.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlitestore: begin: %w", err)
	}
	if err := fn(conn{q: tx, now: s.clock}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlitestore: commit: %w", err)
	}
	return nil
}

func (s *Store) Seed(ctx context.Context, form *layout.Form) error {
	if form == nil {
		return fmt.Errorf("sqlitestore: seed: %w", store.ErrInvalid)
	}
	return s.InTx(ctx, func(tx store.Tx) error {
		c := tx.(conn)
		for _, stmt := range []string{`DELETE FROM fields`, `DELETE FROM sections`, `DELETE FROM steps`, `DELETE FROM forms`} {
			if _, err := c.q.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("sqlitestore: seed: %w", err)
			}
		}
		if _, err := c.q.ExecContext(ctx, `INSERT INTO forms (id, name) VALUES (?, ?)`, form.ID, form.Name); err != nil {
			return fmt.Errorf("sqlitestore: seed form: %w", err)
		}
		steps, sections, fields := store.Records(form)
		for _, rec := range steps {
			if err := c.UpsertStep(ctx, rec); err != nil {
				return err
			}
		}
		for _, rec := range sections {
			if err := c.UpsertSection(ctx, rec); err != nil {
				return err
			}
		}
		for _, rec := range fields {
			if err := c.UpsertField(ctx, rec); err != nil {
				return err
			}
		}
		if _, err := c.UserByID(ctx, account.DemoUserID); errors.Is(err, store.ErrNotFound) {
			_, err = c.CreateUser(ctx, store.DemoUser())
			return err
		} else if err != nil {
			return err
		}
		return nil
	})
}

type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// conn implements store.Tx over either the pool or an open transaction.
type conn struct {
	q   queryer
	now func() time.Time
}

func (c conn) ActiveForm(ctx context.Context) (*layout.Form, error) {
	var id int64
	err := c.q.QueryRowContext(ctx, `SELECT id FROM forms ORDER BY id ASC LIMIT 1`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrFormNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: active form: %w", err)
	}
	return c.Form(ctx, id)
}

func (c conn) Form(ctx context.Context, id int64) (*layout.Form, error) {
	var name string
	err := c.q.QueryRowContext(ctx, `SELECT name FROM forms WHERE id = ?`, id).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", store.ErrFormNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: form: %w", err)
	}

	steps, err := c.steps(ctx, id)
	if err != nil {
		return nil, err
	}
	sections, err := c.sections(ctx, id)
	if err != nil {
		return nil, err
	}
	fields, err := c.fields(ctx, id)
	if err != nil {
		return nil, err
	}
	return layout.Assemble(layout.Form{ID: id, Name: name}, steps, sections, fields), nil
}

func (c conn) steps(ctx context.Context, formID int64) ([]layout.StepRecord, error) {
	rows, err := c.q.QueryContext(ctx, `SELECT id, form_id, title, sort_order FROM steps WHERE form_id = ?`, formID)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: steps: %w", err)
	}
	defer rows.Close()
	var out []layout.StepRecord
	for rows.Next() {
		var rec layout.StepRecord
		if err := rows.Scan(&rec.ID, &rec.FormID, &rec.Title, &rec.Order); err != nil {
			return nil, fmt.Errorf("sqlitestore: scan step: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (c conn) sections(ctx context.Context, formID int64) ([]layout.SectionRecord, error) {
	rows, err := c.q.QueryContext(ctx, `SELECT s.id, s.step_id, s.title, s.sort_order, s.is_admin_moveable, s.is_frontend_visible
		FROM sections s JOIN steps p ON p.id = s.step_id WHERE p.form_id = ?`, formID)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: sections: %w", err)
	}
	defer rows.Close()
	var out []layout.SectionRecord
	for rows.Next() {
		var rec layout.SectionRecord
		if err := rows.Scan(&rec.ID, &rec.StepID, &rec.Title, &rec.Order, &rec.IsAdminMoveable, &rec.IsFrontendVisible); err != nil {
			return nil, fmt.Errorf("sqlitestore: scan section: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (c conn) fields(ctx context.Context, formID int64) ([]layout.FieldRecord, error) {
	rows, err := c.q.QueryContext(ctx, `SELECT f.id, f.section_id, f.label, f.field_type, f.user_property, f.flex_box_width, f.is_required, f.sort_order
		FROM fields f JOIN sections s ON s.id = f.section_id JOIN steps p ON p.id = s.step_id WHERE p.form_id = ?`, formID)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: fields: %w", err)
	}
	defer rows.Close()
	var out []layout.FieldRecord
	for rows.Next() {
		var (
			rec layout.FieldRecord
			typ string
		)
		if err := rows.Scan(&rec.ID, &rec.SectionID, &rec.Label, &typ, &rec.UserProperty, &rec.FlexBoxWidth, &rec.IsRequired, &rec.Order); err != nil {
			return nil, fmt.Errorf("sqlitestore: scan field: %w", err)
		}
		rec.FieldType = layout.FieldType(typ)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (c conn) exists(ctx context.Context, table string, id int64) (bool, error) {
	var found int
	err := c.q.QueryRowContext(ctx, `SELECT 1 FROM `+table+` WHERE id = ?`, id).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("sqlitestore: lookup %s: %w", table, err)
	}
	return true, nil
}

func (c conn) requireParent(ctx context.Context, table string, id int64, child string, childID int64) error {
	ok, err := c.exists(ctx, table, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s %d for %s %d", store.ErrNotFound, strings.TrimSuffix(table, "s"), id, child, childID)
	}
	return nil
}

func (c conn) UpsertStep(ctx context.Context, rec layout.StepRecord) error {
	if rec.ID <= 0 {
		return fmt.Errorf("%w: step id %d", store.ErrInvalid, rec.ID)
	}
	if err := c.requireParent(ctx, "forms", rec.FormID, "step", rec.ID); err != nil {
		return err
	}
	_, err := c.q.ExecContext(ctx, `INSERT INTO steps (id, form_id, title, sort_order) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET form_id = excluded.form_id, title = excluded.title, sort_order = excluded.sort_order`,
		rec.ID, rec.FormID, rec.Title, rec.Order)
	if err != nil {
		return fmt.Errorf("sqlitestore: upsert step %d: %w", rec.ID, err)
	}
	return nil
}

func (c conn) UpsertSection(ctx context.Context, rec layout.SectionRecord) error {
	if rec.ID <= 0 {
		return fmt.Errorf("%w: section id %d", store.ErrInvalid, rec.ID)
	}
	if err := c.requireParent(ctx, "steps", rec.StepID, "section", rec.ID); err != nil {
		return err
	}
	_, err := c.q.ExecContext(ctx, `INSERT INTO sections (id, step_id, title, sort_order, is_admin_moveable, is_frontend_visible) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET step_id = excluded.step_id, title = excluded.title, sort_order = excluded.sort_order,
			is_admin_moveable = excluded.is_admin_moveable, is_frontend_visible = excluded.is_frontend_visible`,
		rec.ID, rec.StepID, rec.Title, rec.Order, rec.IsAdminMoveable, rec.IsFrontendVisible)
	if err != nil {
		return fmt.Errorf("sqlitestore: upsert section %d: %w", rec.ID, err)
	}
	return nil
}

func (c conn) UpsertField(ctx context.Context, rec layout.FieldRecord) error {
	if rec.ID <= 0 || !rec.FieldType.Valid() {
		return fmt.Errorf("%w: field %d", store.ErrInvalid, rec.ID)
	}
	if err := c.requireParent(ctx, "sections", rec.SectionID, "field", rec.ID); err != nil {
		return err
	}
	_, err := c.q.ExecContext(ctx, `INSERT INTO fields (id, section_id, label, field_type, user_property, flex_box_width, is_required, sort_order) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET section_id = excluded.section_id, label = excluded.label, field_type = excluded.field_type,
			user_property = excluded.user_property, flex_box_width = excluded.flex_box_width, is_required = excluded.is_required, sort_order = excluded.sort_order`,
		rec.ID, rec.SectionID, rec.Label, string(rec.FieldType), rec.UserProperty, rec.FlexBoxWidth, rec.IsRequired, rec.Order)
	if err != nil {
		return fmt.Errorf("sqlitestore: upsert field %d: %w", rec.ID, err)
	}
	return nil
}

const userColumns = `id, email, password_hash, about_me, street, city, state, postal_code, country, birthdate, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (account.User, error) {
	var (
		u         account.User
		birthdate sql.NullString
		createdAt string
	)
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.AboutMe, &u.Street, &u.City, &u.State, &u.PostalCode, &u.Country, &birthdate, &createdAt); err != nil {
		return account.User{}, err
	}
	if birthdate.Valid && birthdate.String != "" {
		t, err := time.Parse(timeLayout, birthdate.String)
		if err != nil {
			return account.User{}, fmt.Errorf("sqlitestore: parse birthdate: %w", err)
		}
		u.Birthdate = &t
	}
	t, err := time.Parse(timeLayout, createdAt)
	if err != nil {
		return account.User{}, fmt.Errorf("sqlitestore: parse created_at: %w", err)
	}
	u.CreatedAt = t
	return u, nil
}

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func (c conn) ListUsers(ctx context.Context) ([]account.User, error) {
	rows, err := c.q.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: list users: %w", err)
	}
	defer rows.Close()
	out := []account.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlitestore: scan user: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (c conn) UserByID(ctx context.Context, id int64) (account.User, error) {
	u, err := scanUser(c.q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return account.User{}, fmt.Errorf("%w: user %d", store.ErrNotFound, id)
	}
	if err != nil {
		return account.User{}, fmt.Errorf("sqlitestore: user %d: %w", id, err)
	}
	return u, nil
}

func (c conn) UserByEmail(ctx context.Context, email string) (account.User, error) {
	u, err := scanUser(c.q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ? COLLATE NOCASE`, email))
	if errors.Is(err, sql.ErrNoRows) {
		return account.User{}, fmt.Errorf("%w: user %q", store.ErrNotFound, email)
	}
	if err != nil {
		return account.User{}, fmt.Errorf("sqlitestore: user %q: %w", email, err)
	}
	return u, nil
}

func (c conn) CreateUser(ctx context.Context, u account.User) (account.User, error) {
	if strings.TrimSpace(u.Email) == "" {
		return account.User{}, fmt.Errorf("%w: user email required", store.ErrInvalid)
	}
	if _, err := c.UserByEmail(ctx, u.Email); err == nil {
		return account.User{}, fmt.Errorf("%w: user %q", store.ErrDuplicate, u.Email)
	} else if !errors.Is(err, store.ErrNotFound) {
		return account.User{}, err
	}
	if u.ID != 0 {
		ok, err := c.exists(ctx, "users", u.ID)
		if err != nil {
			return account.User{}, err
		}
		if ok {
			return account.User{}, fmt.Errorf("%w: user %d", store.ErrDuplicate, u.ID)
		}
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = c.now()
	}
	var birthdate any
	if u.Birthdate != nil {
		birthdate = formatTime(*u.Birthdate)
	}
	var id any
	if u.ID != 0 {
		id = u.ID
	}
	res, err := c.q.ExecContext(ctx, `INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, u.Email, u.PasswordHash, u.AboutMe, u.Street, u.City, u.State, u.PostalCode, u.Country, birthdate, formatTime(u.CreatedAt))
	if err != nil {
		return account.User{}, fmt.Errorf("sqlitestore: create user: %w", err)
	}
	if u.ID == 0 {
		if u.ID, err = res.LastInsertId(); err != nil {
			return account.User{}, fmt.Errorf("sqlitestore: create user id: %w", err)
		}
	}
	return c.UserByID(ctx, u.ID)
}

func (c conn) SetUserProperty(ctx context.Context, id int64, prop account.Property, value any) error {
	var scratch account.User
	if err := scratch.Apply(prop, value); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalid, err)
	}
	column := prop.Column()
	var arg any
	switch v := scratch.Get(prop).(type) {
	case *time.Time:
		if v != nil {
			arg = formatTime(*v)
		}
	default:
		arg = v
	}
	if prop == account.PropertyEmail {
		if other, err := c.UserByEmail(ctx, scratch.Email); err == nil && other.ID != id {
			return fmt.Errorf("%w: user %q", store.ErrDuplicate, scratch.Email)
		}
	}
	res, err := c.q.ExecContext(ctx, `UPDATE users SET `+column+` = ? WHERE id = ?`, arg, id)
	if err != nil {
		return fmt.Errorf("sqlitestore: set %s: %w", prop, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlitestore: set %s: %w", prop, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: user %d", store.ErrNotFound, id)
	}
	return nil
}
