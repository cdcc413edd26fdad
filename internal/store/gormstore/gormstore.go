// Package gormstore is the Postgres backend, mapped through GORM. Tables are
// created by AutoMigrate on Open.
package gormstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/goliatone/go-formwizard/internal/store"
	"github.com/goliatone/go-formwizard/pkg/account"
	"github.com/goliatone/go-formwizard/pkg/layout"
)

type formRow struct {
	ID   int64  `gorm:"primaryKey;autoIncrement:false"`
	Name string `gorm:"not null"`
}

func (formRow) TableName() string { return "forms" }

type stepRow struct {
	ID        int64  `gorm:"primaryKey;autoIncrement:false"`
	FormID    int64  `gorm:"not null;index"`
	Title     string `gorm:"not null"`
	SortOrder int    `gorm:"not null"`
}

func (stepRow) TableName() string { return "steps" }

type sectionRow struct {
	ID                int64  `gorm:"primaryKey;autoIncrement:false"`
	StepID            int64  `gorm:"not null;index"`
	Title             string `gorm:"not null"`
	SortOrder         int    `gorm:"not null"`
	IsAdminMoveable   bool   `gorm:"not null"`
	IsFrontendVisible bool   `gorm:"not null"`
}

func (sectionRow) TableName() string { return "sections" }

type fieldRow struct {
	ID           int64  `gorm:"primaryKey;autoIncrement:false"`
	SectionID    int64  `gorm:"not null;index"`
	Label        string `gorm:"not null"`
	FieldType    string `gorm:"not null"`
	UserProperty string `gorm:"not null"`
	FlexBoxWidth int    `gorm:"not null"`
	IsRequired   bool   `gorm:"not null"`
	SortOrder    int    `gorm:"not null"`
}

func (fieldRow) TableName() string { return "fields" }

type userRow struct {
	ID           int64  `gorm:"primaryKey;autoIncrement:false"`
	Email        string `gorm:"not null;uniqueIndex"`
	PasswordHash string `gorm:"not null"`
	AboutMe      string `gorm:"not null"`
	Street       string `gorm:"not null"`
	City         string `gorm:"not null"`
	State        string `gorm:"not null"`
	PostalCode   string `gorm:"not null"`
	Country      string `gorm:"not null"`
	Birthdate    *time.Time
	CreatedAt    time.Time `gorm:"not null;autoCreateTime:false"`
}

func (userRow) TableName() string { return "users" }

func (r userRow) user() account.User {
	u := account.User{
		ID:           r.ID,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		AboutMe:      r.AboutMe,
		Street:       r.Street,
		City:         r.City,
		State:        r.State,
		PostalCode:   r.PostalCode,
		Country:      r.Country,
		CreatedAt:    r.CreatedAt.UTC(),
	}
	if r.Birthdate != nil {
		b := r.Birthdate.UTC()
		u.Birthdate = &b
	}
	return u
}

func rowFromUser(u account.User) userRow {
	return userRow{
		ID:           u.ID,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		AboutMe:      u.AboutMe,
		Street:       u.Street,
		City:         u.City,
		State:        u.State,
		PostalCode:   u.PostalCode,
		Country:      u.Country,
		Birthdate:    u.Birthdate,
		CreatedAt:    u.CreatedAt,
	}
}

// Models lists the tables AutoMigrate manages.
func Models() []any {
	return []any{&formRow{}, &stepRow{}, &sectionRow{}, &fieldRow{}, &userRow{}}
}

// Store implements store.Store over a *gorm.DB.
type Store struct {
	db  *gorm.DB
	now func() time.Time
	conn
}

var _ store.Store = (*Store)(nil)

// Open connects to dsn and migrates the schema.
func Open(ctx context.Context, dsn string) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("gormstore: dsn is required")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("gormstore: connect: %w", err)
	}
	return New(ctx, db)
}

// New wraps an existing connection and migrates the schema.
func New(ctx context.Context, db *gorm.DB) (*Store, error) {
	if err := db.WithContext(ctx).AutoMigrate(Models()...); err != nil {
		return nil, fmt.Errorf("gormstore: migrate: %w", err)
	}
	s := &Store{db: db, now: time.Now}
	s.conn = conn{db: db, now: s.clock}
	return s, nil
}

func (s *Store) clock() time.Time { return s.now() }

// SetClock overrides the clock used for user creation timestamps.
func (s *Store) SetClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// InTx wraps fn in a GORM transaction; a non-nil return rolls back.
func (s *Store) InTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(conn{db: tx, now: s.clock})
	})
}

func (s *Store) Seed(ctx context.Context, form *layout.Form) error {
	if form == nil {
		return fmt.Errorf("gormstore: seed: %w", store.ErrInvalid)
	}
	return s.InTx(ctx, func(tx store.Tx) error {
		c := tx.(conn)
		db := c.db.WithContext(ctx)
		for _, model := range []any{&fieldRow{}, &sectionRow{}, &stepRow{}, &formRow{}} {
			if err := db.Where("1 = 1").Delete(model).Error; err != nil {
				return fmt.Errorf("gormstore: seed: %w", err)
			}
		}
		if err := db.Create(&formRow{ID: form.ID, Name: form.Name}).Error; err != nil {
			return fmt.Errorf("gormstore: seed form: %w", err)
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

// conn implements store.Tx over either the root handle or a transaction.
type conn struct {
	db  *gorm.DB
	now func() time.Time
}

func (c conn) ActiveForm(ctx context.Context) (*layout.Form, error) {
	var row formRow
	err := c.db.WithContext(ctx).Order("id ASC").First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, store.ErrFormNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("gormstore: active form: %w", err)
	}
	return c.Form(ctx, row.ID)
}

func (c conn) Form(ctx context.Context, id int64) (*layout.Form, error) {
	db := c.db.WithContext(ctx)
	var row formRow
	err := db.First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %d", store.ErrFormNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("gormstore: form: %w", err)
	}

	var stepRows []stepRow
	if err := db.Where("form_id = ?", id).Find(&stepRows).Error; err != nil {
		return nil, fmt.Errorf("gormstore: steps: %w", err)
	}
	stepIDs := make([]int64, 0, len(stepRows))
	steps := make([]layout.StepRecord, 0, len(stepRows))
	for _, r := range stepRows {
		stepIDs = append(stepIDs, r.ID)
		steps = append(steps, layout.StepRecord{ID: r.ID, FormID: r.FormID, Title: r.Title, Order: r.SortOrder})
	}

	var sectionRows []sectionRow
	if len(stepIDs) > 0 {
		if err := db.Where("step_id IN ?", stepIDs).Find(&sectionRows).Error; err != nil {
			return nil, fmt.Errorf("gormstore: sections: %w", err)
		}
	}
	sectionIDs := make([]int64, 0, len(sectionRows))
	sections := make([]layout.SectionRecord, 0, len(sectionRows))
	for _, r := range sectionRows {
		sectionIDs = append(sectionIDs, r.ID)
		sections = append(sections, layout.SectionRecord{
			ID:                r.ID,
			StepID:            r.StepID,
			Title:             r.Title,
			Order:             r.SortOrder,
			IsAdminMoveable:   r.IsAdminMoveable,
			IsFrontendVisible: r.IsFrontendVisible,
		})
	}

	var fieldRows []fieldRow
	if len(sectionIDs) > 0 {
		if err := db.Where("section_id IN ?", sectionIDs).Find(&fieldRows).Error; err != nil {
			return nil, fmt.Errorf("gormstore: fields: %w", err)
		}
	}
	fields := make([]layout.FieldRecord, 0, len(fieldRows))
	for _, r := range fieldRows {
		fields = append(fields, layout.FieldRecord{
			ID:           r.ID,
			SectionID:    r.SectionID,
			Label:        r.Label,
			FieldType:    layout.FieldType(r.FieldType),
			UserProperty: r.UserProperty,
			FlexBoxWidth: r.FlexBoxWidth,
			IsRequired:   r.IsRequired,
			Order:        r.SortOrder,
		})
	}
	return layout.Assemble(layout.Form{ID: row.ID, Name: row.Name}, steps, sections, fields), nil
}

func (c conn) requireParent(ctx context.Context, model any, id int64, what string) error {
	var count int64
	if err := c.db.WithContext(ctx).Model(model).Where("id = ?", id).Count(&count).Error; err != nil {
		return fmt.Errorf("gormstore: lookup %s: %w", what, err)
	}
	if count == 0 {
		return fmt.Errorf("%w: %s", store.ErrNotFound, what)
	}
	return nil
}

func (c conn) upsert(ctx context.Context, row any) error {
	return c.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(row).Error
}

func (c conn) UpsertStep(ctx context.Context, rec layout.StepRecord) error {
	if rec.ID <= 0 {
		return fmt.Errorf("%w: step id %d", store.ErrInvalid, rec.ID)
	}
	if err := c.requireParent(ctx, &formRow{}, rec.FormID, fmt.Sprintf("form %d for step %d", rec.FormID, rec.ID)); err != nil {
		return err
	}
	row := stepRow{ID: rec.ID, FormID: rec.FormID, Title: rec.Title, SortOrder: rec.Order}
	if err := c.upsert(ctx, &row); err != nil {
		return fmt.Errorf("gormstore: upsert step %d: %w", rec.ID, err)
	}
	return nil
}

func (c conn) UpsertSection(ctx context.Context, rec layout.SectionRecord) error {
	if rec.ID <= 0 {
		return fmt.Errorf("%w: section id %d", store.ErrInvalid, rec.ID)
	}
	if err := c.requireParent(ctx, &stepRow{}, rec.StepID, fmt.Sprintf("step %d for section %d", rec.StepID, rec.ID)); err != nil {
		return err
	}
	row := sectionRow{
		ID:                rec.ID,
		StepID:            rec.StepID,
		Title:             rec.Title,
		SortOrder:         rec.Order,
		IsAdminMoveable:   rec.IsAdminMoveable,
		IsFrontendVisible: rec.IsFrontendVisible,
	}
	if err := c.upsert(ctx, &row); err != nil {
		return fmt.Errorf("gormstore: upsert section %d: %w", rec.ID, err)
	}
	return nil
}

func (c conn) UpsertField(ctx context.Context, rec layout.FieldRecord) error {
	if rec.ID <= 0 || !rec.FieldType.Valid() {
		return fmt.Errorf("%w: field %d", store.ErrInvalid, rec.ID)
	}
	if err := c.requireParent(ctx, &sectionRow{}, rec.SectionID, fmt.Sprintf("section %d for field %d", rec.SectionID, rec.ID)); err != nil {
		return err
	}
	row := fieldRow{
		ID:           rec.ID,
		SectionID:    rec.SectionID,
		Label:        rec.Label,
		FieldType:    string(rec.FieldType),
		UserProperty: rec.UserProperty,
		FlexBoxWidth: rec.FlexBoxWidth,
		IsRequired:   rec.IsRequired,
		SortOrder:    rec.Order,
	}
	if err := c.upsert(ctx, &row); err != nil {
		return fmt.Errorf("gormstore: upsert field %d: %w", rec.ID, err)
	}
	return nil
}

func (c conn) ListUsers(ctx context.Context) ([]account.User, error) {
	var rows []userRow
	if err := c.db.WithContext(ctx).Order("created_at ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("gormstore: list users: %w", err)
	}
	out := make([]account.User, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.user())
	}
	return out, nil
}

func (c conn) UserByID(ctx context.Context, id int64) (account.User, error) {
	var row userRow
	err := c.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return account.User{}, fmt.Errorf("%w: user %d", store.ErrNotFound, id)
	}
	if err != nil {
		return account.User{}, fmt.Errorf("gormstore: user %d: %w", id, err)
	}
	return row.user(), nil
}

func (c conn) UserByEmail(ctx context.Context, email string) (account.User, error) {
	var row userRow
	err := c.db.WithContext(ctx).Where("lower(email) = lower(?)", email).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return account.User{}, fmt.Errorf("%w: user %q", store.ErrNotFound, email)
	}
	if err != nil {
		return account.User{}, fmt.Errorf("gormstore: user %q: %w", email, err)
	}
	return row.user(), nil
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
	db := c.db.WithContext(ctx)
	if u.ID == 0 {
		var maxID int64
		if err := db.Model(&userRow{}).Select("COALESCE(MAX(id), 0)").Scan(&maxID).Error; err != nil {
			return account.User{}, fmt.Errorf("gormstore: next user id: %w", err)
		}
		u.ID = maxID + 1
	} else if _, err := c.UserByID(ctx, u.ID); err == nil {
		return account.User{}, fmt.Errorf("%w: user %d", store.ErrDuplicate, u.ID)
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = c.now()
	}
	row := rowFromUser(u)
	if err := db.Create(&row).Error; err != nil {
		return account.User{}, fmt.Errorf("gormstore: create user: %w", err)
	}
	return row.user(), nil
}

func (c conn) SetUserProperty(ctx context.Context, id int64, prop account.Property, value any) error {
	var scratch account.User
	if err := scratch.Apply(prop, value); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalid, err)
	}
	if prop == account.PropertyEmail {
		if other, err := c.UserByEmail(ctx, scratch.Email); err == nil && other.ID != id {
			return fmt.Errorf("%w: user %q", store.ErrDuplicate, scratch.Email)
		}
	}
	res := c.db.WithContext(ctx).Model(&userRow{}).Where("id = ?", id).Update(prop.Column(), scratch.Get(prop))
	if res.Error != nil {
		return fmt.Errorf("gormstore: set %s: %w", prop, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: user %d", store.ErrNotFound, id)
	}
	return nil
}
