package store

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"github.com/archestra/guard/pkg/models"
)

func setupMockStore(t *testing.T, dialect Dialect) (sqlmock.Sqlmock, *sqlStore) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return mock, newSQLStore(db, dialect)
}

func TestAgentStoreCreateRebindsForPostgres(t *testing.T) {
	mock, base := setupMockStore(t, DialectPostgres)
	store := &agentStore{base}

	now := time.Now().UTC()
	mock.ExpectExec(`INSERT INTO agents \(id, name, created_at, updated_at\) VALUES \(\$1, \$2, \$3, \$4\)`).
		WithArgs("agent-1", "support-bot", now, now).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := store.Create(context.Background(), &models.Agent{ID: "agent-1", Name: "support-bot", CreatedAt: now})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAgentStoreCreateKeepsPlaceholdersForSQLite(t *testing.T) {
	mock, base := setupMockStore(t, DialectSQLite)
	store := &agentStore{base}

	mock.ExpectExec(`INSERT INTO agents \(id, name, created_at, updated_at\) VALUES \(\?, \?, \?, \?\)`).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := store.Create(context.Background(), &models.Agent{ID: "agent-2", Name: "billing-bot"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAgentStoreGetNotFound(t *testing.T) {
	mock, base := setupMockStore(t, DialectSQLite)
	store := &agentStore{base}

	mock.ExpectQuery(`SELECT id, name, created_at, updated_at FROM agents WHERE id = \?`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "created_at", "updated_at"}))

	_, err := store.Get(context.Background(), "missing")
	if err != ErrNotFound {
		t.Fatalf("Get: got %v, want ErrNotFound", err)
	}
}

func TestAgentStoreUpdateNotFoundWhenNoRowsAffected(t *testing.T) {
	mock, base := setupMockStore(t, DialectSQLite)
	store := &agentStore{base}

	mock.ExpectExec(`UPDATE agents SET name = \?, updated_at = \? WHERE id = \?`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.Update(context.Background(), &models.Agent{ID: "ghost", Name: "ghost"})
	if err != ErrNotFound {
		t.Fatalf("Update: got %v, want ErrNotFound", err)
	}
}
