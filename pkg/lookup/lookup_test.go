package lookup

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/adamtc007/data-designer-sub001/pkg/adl/eval"
)

func TestStaticProviderLookup(t *testing.T) {
	p := NewStaticProvider()
	p.AddTable("countries", map[string]eval.Value{
		"US": eval.String("United States"),
		"GB": eval.String("United Kingdom"),
	})

	got, err := p.Lookup(context.Background(), "countries", "US")
	if err != nil {
		t.Fatalf("Lookup() error: %v", err)
	}
	if s, _ := got.AsString(); s != "United States" {
		t.Errorf("Lookup(countries, US) = %s, want United States", got.Display())
	}
}

func TestStaticProviderMisses(t *testing.T) {
	p := NewStaticProvider()
	p.AddTable("countries", map[string]eval.Value{"US": eval.String("United States")})

	tests := []struct {
		name  string
		table string
		key   string
	}{
		{"unknown table", "planets", "US"},
		{"unknown key", "countries", "FR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Lookup(context.Background(), tt.table, tt.key)
			if err == nil {
				t.Fatal("Lookup() = nil error, want miss")
			}
			if !errors.Is(err, eval.ErrNotFound) {
				t.Errorf("Lookup() error %v does not wrap ErrNotFound", err)
			}
		})
	}
}

func TestStaticProviderAddTableCopies(t *testing.T) {
	entries := map[string]eval.Value{"a": eval.Number(1)}
	p := NewStaticProvider()
	p.AddTable("t", entries)

	entries["b"] = eval.Number(2)
	if got := p.Size("t"); got != 1 {
		t.Errorf("Size(t) = %d after caller mutation, want 1", got)
	}
}

func TestStaticProviderTables(t *testing.T) {
	p := NewStaticProvider()
	p.AddTable("zeta", nil)
	p.AddTable("alpha", nil)

	if got, want := p.Tables(), []string{"alpha", "zeta"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Tables() = %v, want %v", got, want)
	}
}

func TestLoadFile(t *testing.T) {
	doc := `
tables:
  countries:
    US: United States
    GB: United Kingdom
  multipliers:
    standard: 1.0
    retries: 3
    premium: [2.5, 3.0]
  flags:
    enabled: true
    missing: null
`
	path := filepath.Join(t.TempDir(), "tables.yaml")
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	p, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error: %v", err)
	}

	if got, want := p.Tables(), []string{"countries", "flags", "multipliers"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("Tables() = %v, want %v", got, want)
	}

	ctx := context.Background()
	tests := []struct {
		table, key string
		want       string
	}{
		{"countries", "US", "United States"},
		{"multipliers", "standard", "1"},
		{"multipliers", "retries", "3"},
		{"multipliers", "premium", "[2.5, 3]"},
		{"flags", "enabled", "true"},
		{"flags", "missing", "null"},
	}
	for _, tt := range tests {
		v, err := p.Lookup(ctx, tt.table, tt.key)
		if err != nil {
			t.Errorf("Lookup(%s, %s) error: %v", tt.table, tt.key, err)
			continue
		}
		if v.Display() != tt.want {
			t.Errorf("Lookup(%s, %s) = %s, want %s", tt.table, tt.key, v.Display(), tt.want)
		}
	}

	v, err := p.Lookup(ctx, "multipliers", "retries")
	if err != nil {
		t.Fatalf("Lookup() error: %v", err)
	}
	if n, ok := v.AsNumber(); !ok || n != 3 {
		t.Errorf("integer entry decoded as %s, want Number 3", v.Display())
	}
}

func TestLoadFileErrors(t *testing.T) {
	dir := t.TempDir()

	if _, err := LoadFile(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("LoadFile(missing) = nil error, want error")
	}

	write := func(name, content string) string {
		t.Helper()
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		return path
	}

	if _, err := LoadFile(write("bad.yaml", "tables: [not, a, map")); err == nil {
		t.Error("LoadFile(malformed) = nil error, want error")
	}
	if _, err := LoadFile(write("empty.yaml", "other: {}")); err == nil {
		t.Error("LoadFile(no tables) = nil error, want error")
	}
	if _, err := LoadFile(write("nested.yaml", "tables:\n  t:\n    k:\n      nested: map\n")); err == nil {
		t.Error("LoadFile(nested map value) = nil error, want error")
	}
}

func TestMergeFileReplacesTables(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "first.yaml")
	second := filepath.Join(dir, "second.yaml")
	if err := os.WriteFile(first, []byte("tables:\n  t:\n    a: 1\n    b: 2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(second, []byte("tables:\n  t:\n    a: 9\n  u:\n    c: 3\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	p, err := LoadFile(first)
	if err != nil {
		t.Fatalf("LoadFile() error: %v", err)
	}
	if err := p.MergeFile(second); err != nil {
		t.Fatalf("MergeFile() error: %v", err)
	}

	v, err := p.Lookup(context.Background(), "t", "a")
	if err != nil {
		t.Fatalf("Lookup() error: %v", err)
	}
	if n, _ := v.AsNumber(); n != 9 {
		t.Errorf("t/a = %s after merge, want 9", v.Display())
	}
	if _, err := p.Lookup(context.Background(), "t", "b"); err == nil {
		t.Error("t/b survived a whole-table replacement")
	}
	if got := p.Size("u"); got != 1 {
		t.Errorf("Size(u) = %d, want 1", got)
	}
}
