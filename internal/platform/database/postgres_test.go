package database_test

import (
	"testing"

	"github.com/srgjo27/puja_booking/internal/platform/database"
	"github.com/stretchr/testify/assert"
)

func TestConfig_DSN(t *testing.T) {
	cfg := database.Config{Host: "db", Port: "5432", User: "puja", Password: "p@ss/word", DBName: "bookings"}

	assert.Equal(t, "postgres://puja:p%40ss%2Fword@db:5432/bookings?sslmode=disable", cfg.DSN())

	cfg.SSLMode = "require"
	assert.Contains(t, cfg.DSN(), "sslmode=require")
}
