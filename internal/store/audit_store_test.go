package store

import (
	"context"
	"database/sql"
	"strings"
	"testing"
)

func TestAuditStoreLog(t *testing.T) {
	ctx := context.Background()
	execer := stubExecer{
		execFn: func(_ context.Context, query string, args ...any) (sql.Result, error) {
			if !strings.Contains(query, "INSERT INTO audit_logs") {
				t.Fatalf("unexpected query: %s", query)
			}
			if len(args) != 5 || args[0] != "acc-1" || args[1] != "register" {
				t.Fatalf("unexpected args: %#v", args)
			}
			return stubResult{rows: 1}, nil
		},
	}
	store := NewAuditStore(stubDB{})
	if err := store.Log(ctx, execer, "acc-1", "register", "account", "acc-1", `{"email":"a@x.com"}`); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
