package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestErrorClassification(t *testing.T) {
	unique := fmt.Errorf("insert brand: %w", &pgconn.PgError{Code: "23505"})
	fk := &pgconn.PgError{Code: "23503"}
	check := &pgconn.PgError{Code: "23514"}

	if !IsUniqueViolation(unique) {
		t.Error("expected wrapped unique violation to be detected")
	}
	if IsUniqueViolation(fk) {
		t.Error("fk violation is not a unique violation")
	}
	if !IsForeignKeyViolation(fk) {
		t.Error("expected fk violation")
	}
	if !IsCheckViolation(check) {
		t.Error("expected check violation")
	}
	if IsCheckViolation(errors.New("plain")) {
		t.Error("plain error must not match")
	}
	if !IsNoRows(fmt.Errorf("scan: %w", pgx.ErrNoRows)) {
		t.Error("expected no rows")
	}
}
