package database

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgconn"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/models"
	"github.com/stretchr/testify/assert"
)

func TestDSN(t *testing.T) {
	dsn := DSN(models.DatabaseConfig{
		Host:     "db",
		Port:     5432,
		Username: "dispatch",
		Password: "secret",
		Database: "rides",
		SSLMode:  "disable",
	})

	assert.Equal(t, "postgres://dispatch:secret@db:5432/rides?sslmode=disable", dsn)
}

func TestIsUniqueViolation(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "rides_one_active_per_passenger"}
	wrapped := fmt.Errorf("insert ride: %w", pgErr)

	assert.True(t, IsUniqueViolation(wrapped, ""))
	assert.True(t, IsUniqueViolation(wrapped, "rides_one_active_per_passenger"))
	assert.False(t, IsUniqueViolation(wrapped, "other_constraint"))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}, ""))
	assert.False(t, IsUniqueViolation(errors.New("boom"), ""))
}
