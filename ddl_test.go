package binlog

import "testing"

func TestExtractDDLSummaryCreateTable(t *testing.T) {
	sql := "CREATE TABLE `orders` (id INT PRIMARY KEY, amount DECIMAL(10,2), name VARCHAR(255))"
	s := ExtractDDLSummary(sql)
	if s == nil {
		t.Fatal("expected non-nil summary")
	}
	if s.Kind != DDLCreateTable {
		t.Fatalf("got kind %v, want DDLCreateTable", s.Kind)
	}
	if s.Table != "orders" {
		t.Fatalf("got table %q", s.Table)
	}
	if len(s.AddedColumns) != 3 {
		t.Fatalf("got %d columns, want 3: %+v", len(s.AddedColumns), s.AddedColumns)
	}
	if s.AddedColumns[0].Name != "id" || s.AddedColumns[0].Type != "int" {
		t.Fatalf("got %+v", s.AddedColumns[0])
	}
	if s.AddedColumns[1].Name != "amount" || s.AddedColumns[1].Type != "decimal(10,2)" {
		t.Fatalf("got %+v", s.AddedColumns[1])
	}
	if s.AddedColumns[2].Name != "name" || s.AddedColumns[2].Type != "varchar(255)" {
		t.Fatalf("got %+v", s.AddedColumns[2])
	}
}

func TestExtractDDLSummaryAlterAddColumn(t *testing.T) {
	sql := "ALTER TABLE orders ADD COLUMN shipped_at DATETIME"
	s := ExtractDDLSummary(sql)
	if s == nil {
		t.Fatal("expected non-nil summary")
	}
	if s.Kind != DDLAlterTable || s.Table != "orders" {
		t.Fatalf("got %+v", s)
	}
	if len(s.AddedColumns) != 1 || s.AddedColumns[0].Name != "shipped_at" {
		t.Fatalf("got %+v", s.AddedColumns)
	}
}

func TestExtractDDLSummaryAlterDropColumn(t *testing.T) {
	sql := "ALTER TABLE orders DROP COLUMN legacy_flag"
	s := ExtractDDLSummary(sql)
	if s == nil {
		t.Fatal("expected non-nil summary")
	}
	if len(s.DroppedColumn) != 1 || s.DroppedColumn[0] != "legacy_flag" {
		t.Fatalf("got %+v", s.DroppedColumn)
	}
}

func TestExtractDDLSummaryNonDDLReturnsNil(t *testing.T) {
	if s := ExtractDDLSummary("INSERT INTO orders (id) VALUES (1)"); s != nil {
		t.Fatalf("expected nil, got %+v", s)
	}
	if s := ExtractDDLSummary("BEGIN"); s != nil {
		t.Fatalf("expected nil, got %+v", s)
	}
}
