package database

import (
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, IsUniqueViolation(&pq.Error{Code: "23505"}))
	assert.True(t, IsUniqueViolation(fmt.Errorf("insert: %w", &mysql.MySQLError{Number: 1062})))
	assert.False(t, IsUniqueViolation(&pq.Error{Code: "23503"}))
	assert.False(t, IsUniqueViolation(&mysql.MySQLError{Number: 1213}))
	assert.False(t, IsUniqueViolation(assert.AnError))
	assert.False(t, IsUniqueViolation(nil))
}

func TestIsLockConflict(t *testing.T) {
	assert.True(t, IsLockConflict(&pq.Error{Code: "40001"}))
	assert.True(t, IsLockConflict(&pq.Error{Code: "40P01"}))
	assert.True(t, IsLockConflict(&mysql.MySQLError{Number: 1213}))
	assert.True(t, IsLockConflict(&mysql.MySQLError{Number: 1205}))
	assert.False(t, IsLockConflict(&pq.Error{Code: "23505"}))
	assert.False(t, IsLockConflict(assert.AnError))
}
