package errors

import (
	"context"
	stderrs "errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE codes the audit sink can run into
const (
	pgUniqueViolation      = "23505"
	pgNotNullViolation     = "23502"
	pgCheckViolation       = "23514"
	pgUndefinedTable       = "42P01"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgLockNotAvailable     = "55P03"
	pgReadOnlyTx           = "25006"
	pgCannotConnectNow     = "57P03"
)

func sqlState(err error) string {
	var pe *pgconn.PgError
	if stderrs.As(err, &pe) {
		return pe.Code
	}
	return ""
}

// IsDuplicateKey reports a unique violation anywhere in the chain
func IsDuplicateKey(err error) bool { return sqlState(err) == pgUniqueViolation }

// DBErrorCode classifies a *pgconn.PgError; ok is false for anything else
func DBErrorCode(err error) (code ErrorCode, ok bool) {
	switch sqlState(err) {
	case "":
		return ErrorCodeUnknown, false
	case pgUniqueViolation:
		return ErrorCodeDuplicateKey, true
	case pgNotNullViolation, pgCheckViolation:
		return ErrorCodeValidation, true
	case pgUndefinedTable:
		return ErrorCodeNotFound, true
	case pgReadOnlyTx, pgCannotConnectNow:
		return ErrorCodeUnavailable, true
	default:
		return ErrorCodeDB, true
	}
}

// FromPostgres wraps err under msg with its mapped code, ErrorCodeDB when unmapped
// nil stays nil
func FromPostgres(err error, msg string) error {
	if err == nil {
		return nil
	}
	code, ok := DBErrorCode(err)
	if !ok {
		code = ErrorCodeDB
	}
	return Wrap(err, code, msg)
}

// FromPostgresf is FromPostgres with a formatted message
func FromPostgresf(err error, format string, a ...any) error {
	if err == nil {
		return nil
	}
	return FromPostgres(err, fmt.Sprintf(format, a...))
}

// transient server messages pgx sometimes surfaces without a PgError
var retryText = []string{
	"commit unexpectedly resulted in rollback",
	"deadlock detected",
	"could not serialize access",
	"terminating connection due to administrator command",
}

// IsRetryable reports contention or a server restart, where running the tx again may succeed
// context cancellation never is
func IsRetryable(err error) bool {
	if err == nil || stderrs.Is(err, context.Canceled) || stderrs.Is(err, context.DeadlineExceeded) {
		return false
	}
	switch sqlState(err) {
	case pgSerializationFailure, pgDeadlockDetected, pgLockNotAvailable, pgCannotConnectNow:
		return true
	case "":
	default:
		return false
	}
	s := strings.ToLower(Root(err).Error())
	for _, t := range retryText {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}
