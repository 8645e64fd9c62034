package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseCategorySeed(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    int
		wantErr string
	}{
		{
			name: "valid with defaults",
			raw: `categories:
  - name: Housing
    icon: home
    color: bg-red-100
  - name: "  Pets  "
`,
			want: 2,
		},
		{
			name: "empty list",
			raw:  "categories: []\n",
			want: 0,
		},
		{
			name:    "duplicate",
			raw:     "categories:\n  - name: A\n  - name: A\n",
			wantErr: "duplicate",
		},
		{
			name:    "missing name",
			raw:     "categories:\n  - icon: home\n",
			wantErr: "empty name",
		},
		{
			name:    "malformed",
			raw:     "categories: [",
			wantErr: "parse category seed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseCategorySeed([]byte(tt.raw))
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("error = %v, want containing %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("got %d categories, want %d", len(got), tt.want)
			}
		})
	}
}

func TestParseCategorySeed_Normalizes(t *testing.T) {
	got, err := parseCategorySeed([]byte("categories:\n  - name: \"  Pets \"\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got[0].Name != "Pets" {
		t.Errorf("name = %q, want trimmed", got[0].Name)
	}
	if got[0].Icon == "" || got[0].Color == "" {
		t.Errorf("expected default icon and color, got %+v", got[0])
	}
}

func TestLoadCategorySeed(t *testing.T) {
	t.Run("empty path uses defaults", func(t *testing.T) {
		got, err := LoadCategorySeed("")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != len(DefaultCategories()) {
			t.Errorf("got %d categories, want defaults", len(got))
		}
	})

	t.Run("file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "seed.yaml")
		if err := os.WriteFile(path, []byte("categories:\n  - name: Only\n"), 0o600); err != nil {
			t.Fatal(err)
		}
		got, err := LoadCategorySeed(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 1 || got[0].Name != "Only" {
			t.Errorf("unexpected seed %+v", got)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := LoadCategorySeed(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
			t.Error("expected error for missing file")
		}
	})
}

func TestDialectRebind(t *testing.T) {
	q := "SELECT * FROM t WHERE a = ? AND b = ?"
	if got := DialectSQLite.rebind(q); got != q {
		t.Errorf("sqlite rebind changed query: %q", got)
	}
	want := "SELECT * FROM t WHERE a = $1 AND b = $2"
	if got := DialectPostgres.rebind(q); got != want {
		t.Errorf("postgres rebind = %q, want %q", got, want)
	}
}

func TestDialectDriverName(t *testing.T) {
	if DialectSQLite.DriverName() != "sqlite" {
		t.Errorf("sqlite driver = %q", DialectSQLite.DriverName())
	}
	if DialectPostgres.DriverName() != "pgx" {
		t.Errorf("postgres driver = %q", DialectPostgres.DriverName())
	}
}
