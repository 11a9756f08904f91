package diag_test

import (
	"errors"
	"fmt"
	"testing"

	"branchlab/internal/diag"
)

func TestBagAddErrorUnpacksJoined(t *testing.T) {
	a := diag.Errorf(diag.IRMissingTerminator, "f", 1, "bb1: unterminated block")
	b := diag.Errorf(diag.IRBadTarget, "f", 0, "bb0: target bb9 does not exist")
	err := fmt.Errorf("function f: %w", errors.Join(a, b))

	bag := diag.NewBag(10)
	bag.AddError("f", err)

	if bag.Len() != 2 {
		t.Fatalf("expected 2 diagnostics, got %d", bag.Len())
	}
	if !bag.HasErrors() {
		t.Fatalf("expected HasErrors")
	}
	bag.Sort()
	if got := bag.Items()[0].Code; got != diag.IRBadTarget {
		t.Errorf("expected bb0 diagnostic first, got %s", got.ID())
	}
}

func TestBagAddErrorPlainError(t *testing.T) {
	bag := diag.NewBag(1)
	bag.AddError("g", errors.New("boom"))
	bag.AddError("g", errors.New("dropped"))

	if bag.Len() != 1 {
		t.Fatalf("expected bag limit to hold, got %d", bag.Len())
	}
	d := bag.Items()[0]
	if d.Code != diag.UnknownCode || d.Func != "g" || d.Message != "boom" {
		t.Errorf("unexpected diagnostic %+v", d)
	}
}

func TestDiagnosticError(t *testing.T) {
	d := diag.Errorf(diag.IRBadCondition, "main", 3, "condition has type i64")
	want := "IR1006 main bb3: condition has type i64"
	if d.Error() != want {
		t.Errorf("got %q, want %q", d.Error(), want)
	}
	w := diag.Warnf(diag.LogDirMissing, "", "branch_history_logs may not exist")
	if w.Error() != "LOG2001: branch_history_logs may not exist" {
		t.Errorf("got %q", w.Error())
	}
}
