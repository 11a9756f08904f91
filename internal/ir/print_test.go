package ir_test

import (
	"strings"
	"testing"

	"branchlab/internal/ir"
	"branchlab/internal/testkit"
)

func instrText(f *ir.Func, block string) []string {
	var out []string
	for i := range f.Blocks {
		bb := &f.Blocks[i]
		if ir.BlockRef(f, bb.ID) != block {
			continue
		}
		for _, id := range bb.Instrs {
			out = append(out, ir.FormatInstr(nil, f, f.Instr(id)))
		}
	}
	return out
}

func TestFormatInstr(t *testing.T) {
	tests := []struct {
		name  string
		f     *ir.Func
		block string
		want  []string
	}{
		{
			name:  "compare_and_branch",
			f:     testkit.SingleBranch(t),
			block: "entry",
			want: []string{
				"%pos = icmp sgt i64 %x, 0",
				"br i1 %pos, label %then, label %else",
			},
		},
		{
			name:  "unnamed_block_and_load",
			f:     testkit.Diamond(t),
			block: "0",
			want: []string{
				"%v = load i64, ptr %p",
				"%z = icmp eq i64 %v, 0",
				"br i1 %z, label %left, label %right",
			},
		},
		{
			name:  "void_call",
			f:     testkit.Diamond(t),
			block: "right",
			want: []string{
				"call void @sink(i64 %v)",
				"br label %join",
			},
		},
		{
			name:  "phi",
			f:     testkit.NestedLoops(t),
			block: "inner",
			want: []string{
				"%j = phi i64 [ 0, %outer ], [ %j1, %inner ]",
				"%j1 = add i64 %j, 1",
				"%c1 = icmp slt i64 %j1, %n",
				"br i1 %c1, label %inner, label %latch",
			},
		},
		{
			name:  "return_void",
			f:     testkit.Sequential(t),
			block: "exit",
			want:  []string{"ret void"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := instrText(tt.f, tt.block)
			if strings.Join(got, "\n") != strings.Join(tt.want, "\n") {
				t.Fatalf("got:\n%s\nwant:\n%s", strings.Join(got, "\n"), strings.Join(tt.want, "\n"))
			}
		})
	}
}

func TestFormatInstr_Switch(t *testing.T) {
	b := ir.NewBuilder("sw", []ir.Param{{Name: "k", Type: ir.I32}}, ir.Void)
	entry := b.NewBlock("entry")
	one := b.NewBlock("one")
	two := b.NewBlock("two")
	def := b.NewBlock("def")
	b.SetBlock(entry)
	b.Switch(b.Param(0), def, []int64{1, 2}, []ir.BlockID{one, two})
	for _, bb := range []ir.BlockID{one, two, def} {
		b.SetBlock(bb)
		b.Return()
	}
	f, err := b.Finish()
	if err != nil {
		t.Fatalf("finish: %v", err)
	}
	got := ir.FormatInstr(nil, f, f.Blocks[entry].Term(f))
	want := "switch i32 %k, label %def [ i32 1, label %one i32 2, label %two ]"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestDumpModule(t *testing.T) {
	m := testkit.Module(t, "m", testkit.SingleBranch(t))
	if _, err := m.DeclareFunc("logBranchOutcome", []ir.Type{ir.I64, ir.Bool}, ir.Void); err != nil {
		t.Fatalf("declare: %v", err)
	}
	var sb strings.Builder
	if err := ir.DumpModule(&sb, m); err != nil {
		t.Fatalf("dump: %v", err)
	}
	want := `declare void @logBranchOutcome(i64, i1)

define i64 @pick(i64 %x) {
entry:
  %pos = icmp sgt i64 %x, 0
  br i1 %pos, label %then, label %else
then:
  ret i64 1
else:
  ret i64 0
}
`
	if sb.String() != want {
		t.Fatalf("got:\n%s\nwant:\n%s", sb.String(), want)
	}
}
