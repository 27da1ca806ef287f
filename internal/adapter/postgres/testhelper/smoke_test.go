package testhelper

import (
	"context"
	"testing"
)

func TestSetupTestDB_Smoke(t *testing.T) {
	pool := SetupTestDB(t)
	coll := Collection(t, "smoke")

	SeedDocument(t, pool, coll, "doc-1", `{"name": "Cypress Library"}`)

	var name string
	err := pool.QueryRow(
		context.Background(),
		`SELECT data->>'name' FROM documents WHERE collection = $1 AND id = $2`,
		coll, "doc-1",
	).Scan(&name)
	if err != nil {
		t.Fatalf("expected document in DB, got error: %v", err)
	}

	if name != "Cypress Library" {
		t.Fatalf("expected name %q, got %q", "Cypress Library", name)
	}
}
