package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/terra-clan/studio-engine/internal/storage"
)

func run(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	if err := root.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("%v: %v\n%s", args, err, out.String())
	}
	return out.String()
}

func TestVersion(t *testing.T) {
	if out := run(t, "version"); !strings.Contains(out, "studio-engine "+Version) {
		t.Errorf("version output = %q", out)
	}
}

func TestCatalogValidate(t *testing.T) {
	out := run(t, "catalog", "validate")
	for _, want := range []string{"services", "testimonials", "time_slots"} {
		if !strings.Contains(out, want) {
			t.Errorf("output lacks %q:\n%s", want, out)
		}
	}
}

func TestClientsCreate(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "studio.db")
	t.Setenv("STUDIO_STORAGE__SQLITE_PATH", dbPath)
	t.Setenv("STUDIO_LOG__LEVEL", "error")

	out := run(t, "clients", "create", "--name", "front-desk", "--perm", "bookings:read")

	var key string
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "API key: ") {
			key = strings.TrimPrefix(line, "API key: ")
		}
	}
	if !strings.HasPrefix(key, "sk_") {
		t.Fatalf("no api key in output:\n%s", out)
	}

	repo, err := storage.OpenSQLite(dbPath)
	if err != nil {
		t.Fatalf("OpenSQLite() error: %v", err)
	}
	defer repo.Close()

	client, err := repo.GetClientByApiKey(context.Background(), key)
	if err != nil || client == nil {
		t.Fatalf("GetClientByApiKey() = %v, %v", client, err)
	}
	if client.Name != "front-desk" || !client.HasPermission("bookings:read") || client.HasPermission("feed:read") {
		t.Errorf("client = %+v", client)
	}
}
