package db

import (
	"errors"

	"github.com/lib/pq"
)

const (
	DuplicateEntry   pq.ErrorCode = "23505"
	EntryTooLong     pq.ErrorCode = "22001"
	CheckViolation   pq.ErrorCode = "23514"
	LockNotAvailable pq.ErrorCode = "55P03"
	DeadlockDetected pq.ErrorCode = "40P01"
)

func hasCode(err error, code pq.ErrorCode) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == code
	}
	return false
}

func IsUniqueViolation(err error) bool { return hasCode(err, DuplicateEntry) }

// IsCheckViolation reports a rejected row, e.g. a balance constraint.
func IsCheckViolation(err error) bool { return hasCode(err, CheckViolation) }

func IsLockTimeout(err error) bool { return hasCode(err, LockNotAvailable) }

func IsDeadlock(err error) bool { return hasCode(err, DeadlockDetected) }
