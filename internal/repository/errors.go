// Package repository holds the MySQL data access layer.  The sentinel
// values below let higher layers distinguish failure scenarios without
// inspecting driver errors: ErrNotFound maps to 404, ErrDuplicate to 409
// and ErrReferenceNotFound and ErrValueTooLong to 400 (a foreign key pointed
// nowhere, or a value overflowed its column).
package repository

import (
	"database/sql"

	"github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrDuplicate         = errors.New("duplicate entry")
	ErrReferenceNotFound = errors.New("referenced row not found")
	ErrValueTooLong      = errors.New("value too long for column")
)

// MySQL server error numbers we translate.
const (
	mysqlDuplicateEntry  = 1062
	mysqlNoReferencedRow = 1452
	mysqlDataTooLong     = 1406
)

// translate maps driver errors onto the package sentinels.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		switch me.Number {
		case mysqlDuplicateEntry:
			return errors.Wrap(ErrDuplicate, me.Message)
		case mysqlNoReferencedRow:
			return errors.Wrap(ErrReferenceNotFound, me.Message)
		case mysqlDataTooLong:
			return errors.Wrap(ErrValueTooLong, me.Message)
		}
	}
	return err
}
