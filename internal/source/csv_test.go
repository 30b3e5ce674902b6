package source

import (
	"errors"
	"strings"
	"testing"
)

func TestReadCSV(t *testing.T) {
	input := "Date,Distance,Titre\n2026-03-14,10.2,Sortie longue\n2026-03-15,5,\n"
	table, err := ReadCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if len(table.Headers) != 3 || table.Headers[2] != "Titre" {
		t.Fatalf("unexpected headers %v", table.Headers)
	}
	if len(table.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(table.Rows))
	}
	if table.Cell(0, 1) != "10.2" {
		t.Fatalf("unexpected cell %q", table.Cell(0, 1))
	}
}

func TestReadCSVStripsBOM(t *testing.T) {
	input := "\xEF\xBB\xBFDate,Distance\n2026-03-14,10\n"
	table, err := ReadCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if table.Headers[0] != "Date" {
		t.Fatalf("BOM leaked into header: %q", table.Headers[0])
	}
}

func TestReadCSVLatin1Fallback(t *testing.T) {
	// "Dénivelé" encoded as Latin-1: é is a single 0xE9 byte.
	input := "Date,D\xE9nivel\xE9\n2026-03-14,120\n"
	table, err := ReadCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if table.Headers[1] != "Dénivelé" {
		t.Fatalf("latin-1 header not decoded: %q", table.Headers[1])
	}
}

func TestReadCSVSkipsBlankRows(t *testing.T) {
	input := "Date,Distance\n2026-03-14,10\n,\n2026-03-15,5\n"
	table, err := ReadCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if len(table.Rows) != 2 {
		t.Fatalf("blank row kept: %v", table.Rows)
	}
}

func TestReadCSVToleratesRaggedRows(t *testing.T) {
	input := "Date,Distance,Titre\n2026-03-14,10\n"
	table, err := ReadCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ragged row should parse: %v", err)
	}
	if table.Cell(0, 2) != "" {
		t.Fatalf("missing trailing cell should read empty, got %q", table.Cell(0, 2))
	}
}

func TestReadCSVEmpty(t *testing.T) {
	for _, input := range []string{"", "Date,Distance\n", "Date,Distance\n,\n"} {
		if _, err := ReadCSV(strings.NewReader(input)); !errors.Is(err, ErrEmptySource) {
			t.Errorf("input %q: expected ErrEmptySource, got %v", input, err)
		}
	}
}
