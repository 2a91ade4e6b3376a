package db

import (
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

func TestIsUniqueViolation(t *testing.T) {
	err := fmt.Errorf("insert order: %w", &pgconn.PgError{Code: "23505", ConstraintName: "orders_order_number_key"})

	require.True(t, IsUniqueViolation(err, ""))
	require.True(t, IsUniqueViolation(err, "orders_order_number_key"))
	require.False(t, IsUniqueViolation(err, "orders_pkey"))
	require.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}, ""))
	require.False(t, IsUniqueViolation(fmt.Errorf("plain"), ""))
}
