package database

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// Postgres SQLSTATE codes the repositories react to.
const (
	CodeInvalidText         = "22P02"
	CodeForeignKeyViolation = "23503"
	CodeUniqueViolation     = "23505"
)

func hasCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}

// IsInvalidText reports a value Postgres could not parse, such as a
// malformed uuid in a WHERE clause.
func IsInvalidText(err error) bool {
	return hasCode(err, CodeInvalidText)
}

// IsForeignKeyViolation reports an insert or update naming a row that does
// not exist.
func IsForeignKeyViolation(err error) bool {
	return hasCode(err, CodeForeignKeyViolation)
}

func IsUniqueViolation(err error) bool {
	return hasCode(err, CodeUniqueViolation)
}
