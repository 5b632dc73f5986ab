package core

import (
	"testing"
	"time"
)

// ============================================================================
// WhereBuilder Tests
// ============================================================================

func TestNewWhereBuilder(t *testing.T) {
	wb := NewWhereBuilder()

	if wb == nil {
		t.Fatal("NewWhereBuilder returned nil")
	}

	if wb.argIndex != 1 {
		t.Errorf("expected argIndex to be 1, got %d", wb.argIndex)
	}

	if len(wb.conditions) != 0 {
		t.Errorf("expected empty conditions, got %d", len(wb.conditions))
	}

	if len(wb.args) != 0 {
		t.Errorf("expected empty args, got %d", len(wb.args))
	}
}

func TestWhereBuilder_Build_Empty(t *testing.T) {
	wb := NewWhereBuilder()
	whereClause, args := wb.Build()

	if whereClause != "" {
		t.Errorf("expected empty string for no conditions, got %q", whereClause)
	}

	if args != nil {
		t.Errorf("expected nil args for no conditions, got %v", args)
	}
}

func TestWhereBuilder_Add_MultipleConditions(t *testing.T) {
	wb := NewWhereBuilder()
	wb.Add("collection", "vendors")
	wb.Add("action", "delete")

	whereClause, args := wb.Build()

	expectedClause := " WHERE collection = $1 AND action = $2"
	if whereClause != expectedClause {
		t.Errorf("expected %q, got %q", expectedClause, whereClause)
	}

	if len(args) != 2 {
		t.Fatalf("expected 2 args, got %d", len(args))
	}

	if args[0] != "vendors" || args[1] != "delete" {
		t.Errorf("expected args ['vendors', 'delete'], got %v", args)
	}
}

func TestWhereBuilder_Add_EmptyValue_Skipped(t *testing.T) {
	wb := NewWhereBuilder()
	wb.Add("collection", "")
	wb.Add("severity", "high")

	whereClause, args := wb.Build()

	// Empty value should be skipped, so only "severity" condition should exist
	expectedClause := " WHERE severity = $1"
	if whereClause != expectedClause {
		t.Errorf("expected %q, got %q", expectedClause, whereClause)
	}

	if len(args) != 1 {
		t.Fatalf("expected 1 arg, got %d", len(args))
	}
}

func TestWhereBuilder_AddBool(t *testing.T) {
	wb := NewWhereBuilder()
	wb.AddBool("ok", nil)
	failed := false
	wb.AddBool("ok", &failed)

	whereClause, args := wb.Build()
	if whereClause != " WHERE ok = $1" {
		t.Errorf("unexpected clause %q", whereClause)
	}
	if len(args) != 1 || args[0] != false {
		t.Errorf("unexpected args %v", args)
	}
}

func TestWhereBuilder_AddTimestampRange(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)

	wb := NewWhereBuilder()
	wb.AddTimestampRange("created_at", start, end)

	whereClause, args := wb.Build()

	expectedClause := " WHERE created_at >= $1 AND created_at <= $2"
	if whereClause != expectedClause {
		t.Errorf("expected %q, got %q", expectedClause, whereClause)
	}

	if len(args) != 2 {
		t.Fatalf("expected 2 args, got %d", len(args))
	}

	if args[0] != start || args[1] != end {
		t.Errorf("unexpected args %v", args)
	}
}

func TestWhereBuilder_AddTimestampRange_OpenEnded(t *testing.T) {
	wb := NewWhereBuilder()
	wb.AddTimestampRange("created_at", time.Now(), nil)

	whereClause, _ := wb.Build()
	if whereClause != " WHERE created_at >= $1" {
		t.Errorf("unexpected clause %q", whereClause)
	}
}

func TestWhereBuilder_NextArgIndex(t *testing.T) {
	wb := NewWhereBuilder()

	if wb.NextArgIndex() != 1 {
		t.Errorf("expected initial NextArgIndex to be 1, got %d", wb.NextArgIndex())
	}

	wb.Add("col1", "val1")
	if wb.NextArgIndex() != 2 {
		t.Errorf("expected NextArgIndex after 1 add to be 2, got %d", wb.NextArgIndex())
	}

	wb.Add("col2", "val2")
	if wb.NextArgIndex() != 3 {
		t.Errorf("expected NextArgIndex after 2 adds to be 3, got %d", wb.NextArgIndex())
	}

	wb.AddTimestampRange("created_at", "start", "end")
	if wb.NextArgIndex() != 5 {
		t.Errorf("expected NextArgIndex after timestamp range to be 5, got %d", wb.NextArgIndex())
	}
}
