package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ignatzorin/citesignal-backend/internal/pkg/apperror"
)

// dbtx общий набор методов *sqlx.DB и *sqlx.Tx.
type dbtx interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

type txKey struct{}

// conn возвращает транзакцию из контекста или само подключение.
func conn(ctx context.Context, db *sqlx.DB) dbtx {
	if tx, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return tx
	}
	return db
}

// Transactor реализует repository.Transactor поверх sqlx.
type Transactor struct {
	db *sqlx.DB
}

func NewTransactor(db *sqlx.DB) *Transactor {
	return &Transactor{db: db}
}

// WithinTx выполняет функцию внутри транзакции с правильной обработкой ошибок.
// Вложенный вызов переиспользует уже открытую транзакцию.
func (t *Transactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return fn(ctx)
	}

	tx, err := t.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			// При панике откатываем транзакцию
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("tx error: %w, rollback error: %v", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

const pqUniqueViolation = "23505"
const pqForeignKeyViolation = "23503"

// mapError переводит ошибки драйвера в ошибки приложения.
func mapError(err error, repo, op string) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqUniqueViolation:
			return apperror.Wrap(err, apperror.ErrCodeConflict, "record already exists")
		case pqForeignKeyViolation:
			return apperror.Wrap(err, apperror.ErrCodeValidation, "referenced record does not exist")
		}
	}
	return fmt.Errorf("%s repository: %s %w", repo, op, err)
}

// isNoRows sql.ErrNoRows превращается репозиториями в (nil, nil).
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
