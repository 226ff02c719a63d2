package store

import (
	"context"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// ErrorClass tells the pipeline whether a failure is confined to one
// record, may go away on its own, or means the run cannot continue.
type ErrorClass int

const (
	ClassNone ErrorClass = iota
	// ClassRecord covers bad values and single-row constraint violations.
	ClassRecord
	// ClassTransient covers deadlocks, serialization failures and timeouts.
	ClassTransient
	// ClassSystemic means the database is unreachable.
	ClassSystemic
)

func (c ErrorClass) String() string {
	switch c {
	case ClassNone:
		return "none"
	case ClassRecord:
		return "record"
	case ClassTransient:
		return "transient"
	case ClassSystemic:
		return "systemic"
	default:
		return "unknown"
	}
}

// Classify maps driver and context errors to an ErrorClass.
func Classify(err error) ErrorClass {
	if err == nil {
		return ClassNone
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound),
		errors.Is(err, gorm.ErrInvalidData),
		errors.Is(err, gorm.ErrInvalidValue),
		errors.Is(err, gorm.ErrDuplicatedKey),
		errors.Is(err, gorm.ErrForeignKeyViolated):
		return ClassRecord
	case errors.Is(err, context.DeadlineExceeded):
		return ClassTransient
	case errors.Is(err, context.Canceled):
		return ClassSystemic
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		code := strings.TrimSpace(pgErr.Code)
		switch {
		case code == "40001", code == "40P01", code == "55P03", code == "57014":
			return ClassTransient // serialization, deadlock, lock not available, query canceled
		case strings.HasPrefix(code, "08"), strings.HasPrefix(code, "57P"), strings.HasPrefix(code, "53"):
			return ClassSystemic // connection, shutdown, insufficient resources
		default:
			return ClassRecord // 22xxx data, 23xxx integrity and the rest
		}
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return ClassSystemic
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case 1205, 1213:
			return ClassTransient // lock wait timeout, deadlock
		case 1040, 1045, 1049, 2002, 2003, 2006, 2013:
			return ClassSystemic // too many connections, access denied, unknown db, gone away
		default:
			return ClassRecord
		}
	}
	if errors.Is(err, mysql.ErrInvalidConn) {
		return ClassSystemic
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "no such host"),
		strings.Contains(msg, "broken pipe"),
		strings.Contains(msg, "database is closed"),
		strings.Contains(msg, "bad connection"):
		return ClassSystemic
	case strings.Contains(msg, "deadlock"),
		strings.Contains(msg, "timeout"),
		strings.Contains(msg, "database is locked"):
		return ClassTransient
	}
	return ClassRecord
}

// IsSystemic reports whether err should end the whole run.
func IsSystemic(err error) bool {
	return Classify(err) == ClassSystemic
}
