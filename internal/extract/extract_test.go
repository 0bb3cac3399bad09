package extract

import (
	"fmt"
	"reflect"
	"strings"
	"testing"
)

func newTestExtractor() *Extractor {
	return New(Options{
		Rules: DefaultRules(RuleOptions{
			AuxiliaryPrefixes: []string{"interpreter", "program"},
			RegistrationCalls: []string{"interpreterRegisterOpcode"},
		}),
		CommentLookback: 5,
		ExtentFallback:  50,
	})
}

func lines(src string) []string {
	return SplitLines([]byte(strings.TrimPrefix(src, "\n")))
}

func TestExtent(t *testing.T) {
	src := lines(`
static void opA(Program* program)
{
    if (x) {
        y();
    }
}
int after;`)

	if got := Extent(src, 0, 50); got != 6 {
		t.Errorf("Extent = %d, want 6", got)
	}
}

func TestExtent_BalancesNBraces(t *testing.T) {
	for n := 1; n <= 6; n++ {
		var b strings.Builder
		b.WriteString("void opNested(Program* p)\n")
		for i := 0; i < n; i++ {
			b.WriteString(strings.Repeat(" ", i) + "{\n")
		}
		for i := n - 1; i >= 0; i-- {
			b.WriteString(strings.Repeat(" ", i) + "}\n")
		}
		b.WriteString("trailing();\n")

		src := SplitLines([]byte(b.String()))
		want := 1 + 2*n
		if got := Extent(src, 0, 50); got != want {
			t.Errorf("n=%d: Extent = %d, want %d", n, got, want)
		}
	}
}

func TestExtent_FallbackWindow(t *testing.T) {
	src := make([]string, 100)
	src[10] = "void opBroken(Program* p) {"

	if got := Extent(src, 10, 50); got != 61 {
		t.Errorf("Extent = %d, want 61", got)
	}
	if got := Extent(src[:30], 10, 50); got != 30 {
		t.Errorf("Extent clamped = %d, want 30", got)
	}
}

func TestExtent_SingleLine(t *testing.T) {
	src := []string{"void opTiny(Program* p) { programStackPushInteger(p, 0); }"}
	if got := Extent(src, 0, 50); got != 1 {
		t.Errorf("Extent = %d, want 1", got)
	}
}

func TestCommentAlias(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "immediately above",
			src:  "// self_obj\nstatic void opGetSelf(Program* program)",
			want: "self_obj",
		},
		{
			name: "address hint between",
			src:  "// self_obj\n// 0x4541D0\nstatic void opGetSelf(Program* program)",
			want: "self_obj",
		},
		{
			name: "nearest wins",
			src:  "// outer_name\n// inner_name\nstatic void opGetSelf(Program* program)",
			want: "inner_name",
		},
		{
			name: "blank line skipped",
			src:  "// self_obj\n\nstatic void opGetSelf(Program* program)",
			want: "self_obj",
		},
		{
			name: "code line blocks",
			src:  "// self_obj\nint x = 0;\nstatic void opGetSelf(Program* program)",
			want: "",
		},
		{
			name: "prose comment ignored",
			src:  "// returns the calling object\nstatic void opGetSelf(Program* program)",
			want: "",
		},
		{
			name: "block comment",
			src:  "/* self_obj */\nstatic void opGetSelf(Program* program)",
			want: "self_obj",
		},
		{
			name: "outside window",
			src:  "// self_obj\n\n\n\n\n\nstatic void opGetSelf(Program* program)",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := lines(tt.src)
			if got := CommentAlias(src, len(src)-1, 5); got != tt.want {
				t.Errorf("CommentAlias = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRules_Families(t *testing.T) {
	tests := []struct {
		line   string
		family Family
		prefix string
		name   string
	}{
		{"static void opGetSelf(Program* program)", FamilyOpCamel, "op", "opGetSelf"},
		{"void op_sqrt(Program* program) {", FamilyOpSnake, "op_", "op_sqrt"},
		{"static void _op_abs(Program* program)", FamilyOpUnderscore, "_op_", "_op_abs"},
		{"static void _opGetTile(Program* program)", FamilyOpUnderscore, "_op", "_opGetTile"},
		{"static void mf_car_gas_amount(Program* program, int args)", FamilyOpArgCount, "mf_", "mf_car_gas_amount"},
		{"int programStackPopInteger(Program* program)", FamilyAuxiliary, "program", "programStackPopInteger"},
		{"void interpreterRegisterOpcode(int opcode, OpcodeHandler* handler)", FamilyAuxiliary, "interpreter", "interpreterRegisterOpcode"},
		{"const char* interpreterGetName(Program* program)", FamilyAuxiliary, "interpreter", "interpreterGetName"},
		{"unsigned int programGetFlags(Program* program)", FamilyAuxiliary, "program", "programGetFlags"},
		{"static unsigned long long programGetTime(Program* program) {", FamilyAuxiliary, "program", "programGetTime"},
		{"struct Program* programCreate(const char* path)", FamilyAuxiliary, "program", "programCreate"},
		{"char const* interpreterGetString(Program* program)", FamilyAuxiliary, "interpreter", "interpreterGetString"},
		{"static const char* opGetName(Program* program)", FamilyOpCamel, "op", "opGetName"},
	}

	rules := DefaultRules(RuleOptions{
		AuxiliaryPrefixes: []string{"interpreter", "program"},
		RegistrationCalls: []string{"interpreterRegisterOpcode"},
	})

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, r := range rules {
				m, ok := r.Match(tt.line)
				if !ok {
					continue
				}
				if r.Family != tt.family || m.Prefix != tt.prefix || m.Name != tt.name {
					t.Errorf("matched %s/%q/%q, want %s/%q/%q", r.Family, m.Prefix, m.Name, tt.family, tt.prefix, tt.name)
				}
				return
			}
			t.Errorf("no rule matched %q", tt.line)
		})
	}
}

func TestRules_Rejects(t *testing.T) {
	rejects := []string{
		"static void opGetSelf(Program* program);",
		"void opGetSelf(Program* program) ;",
		"    opGetSelf(program);",
		"// static void opGetSelf(Program* program)",
		"static void opcodeTable(Program* program)",
		"static void opGetSelf(Program* program, int a, int b)",
		"} else if (opFoo(x)) {",
		"static void helper(Program* program)",
		"static const char* opGetName(Program* program);",
		"unsigned int opFlags = opGetFlags(program)",
		"const int count = opCount(program)",
	}

	rules := DefaultRules(RuleOptions{RegistrationCalls: []string{"interpreterRegisterOpcode"}})
	for _, line := range rejects {
		for _, r := range rules {
			if m, ok := r.Match(line); ok {
				t.Errorf("%q matched rule %s as %q", line, r.Name, m.Name)
			}
		}
	}
}

func TestRules_Registration(t *testing.T) {
	rules := DefaultRules(RuleOptions{RegistrationCalls: []string{"interpreterRegisterOpcode"}})
	reg := rules[len(rules)-1]

	m, ok := reg.Match("    interpreterRegisterOpcode(0x80A6, opGetSelf); // self_obj")
	if !ok {
		t.Fatal("registration not matched")
	}
	if m.Handler != "opGetSelf" || m.Opcode != "0x80A6" || m.Annotation != "self_obj" {
		t.Errorf("got %+v", m)
	}

	m, ok = reg.Match("    interpreterRegisterOpcode(0x80A7, opGetTile); // TODO: check")
	if !ok || m.Annotation != "" {
		t.Errorf("non-identifier comment should not annotate, got %+v ok=%v", m, ok)
	}
}

const interpreterSource = `
// 0x4541D0
// self_obj
static void opGetSelf(Program* program)
{
    programStackPushPointer(program, program->self);
}

static void op_sqrt(Program* program)
{
    float value = programStackPopFloat(program);
    programStackPushFloat(program, sqrtf(value));
}

void interpreterRegisterOpcodes()
{
    interpreterRegisterOpcode(0x80A6, opGetSelf); // self_obj
    interpreterRegisterOpcode(0x8200, op_sqrt);
}
`

func TestExtractor_File(t *testing.T) {
	ex := newTestExtractor()
	syms := ex.File("src/interpreter_extra.cc", []byte(strings.TrimPrefix(interpreterSource, "\n")))

	type row struct {
		Name   string
		Kind   Kind
		Start  int
		End    int
		Extra  string
		Family Family
	}
	var got []row
	for _, s := range syms {
		extra := s.Comment
		if s.Kind == RegistrationSite {
			extra = s.Handler + "/" + s.Annotation
		}
		got = append(got, row{s.Name, s.Kind, s.StartLine, s.EndLine, extra, s.Family})
	}

	want := []row{
		{"opGetSelf", DefinitionSite, 3, 6, "self_obj", FamilyOpCamel},
		{"op_sqrt", DefinitionSite, 8, 12, "", FamilyOpSnake},
		{"interpreterRegisterOpcodes", DefinitionSite, 14, 18, "", FamilyAuxiliary},
		{"opGetSelf", RegistrationSite, 16, 16, "opGetSelf/self_obj", FamilyRegistration},
		{"op_sqrt", RegistrationSite, 17, 17, "op_sqrt/", FamilyRegistration},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("symbols:\n got %+v\nwant %+v", got, want)
	}

	for i, s := range syms {
		if s.Seq != i+1 {
			t.Errorf("Seq[%d] = %d, want %d", i, s.Seq, i+1)
		}
	}
}

func TestExtractor_SeqAcrossFiles(t *testing.T) {
	ex := newTestExtractor()
	a := ex.File("a.cc", []byte("void opA(Program* p) {}\n"))
	b := ex.File("b.cc", []byte("void opB(Program* p) {}\n"))
	if len(a) != 1 || len(b) != 1 {
		t.Fatalf("got %d and %d symbols", len(a), len(b))
	}
	if a[0].Seq >= b[0].Seq {
		t.Errorf("sequence should increase across files: %d then %d", a[0].Seq, b[0].Seq)
	}
}

const metaruleSource = `
static void opMetarule(Program* program)
{
    int param = programStackPopInteger(program);
    int rule = programStackPopInteger(program);
    int result = 0;

    switch (rule) {
    case METARULE_SIGNAL_END_GAME:
        result = 0;
        _game_user_wants_to_quit = 2;
        break;
    case METARULE_PARTY_COUNT:
        result = _getPartyMemberCount();
        break;
    case METARULE_IS_LOADGAME:
        result = _isLoadingGame();
        break;
    case METARULE_INVEN_UNWIELD_WHO: {
        Object* object = static_cast<Object*>(param);
        if (object != nullptr) {
            result = 1;
            break;
        }
        result = 0;
    }
    case METARULE_CURRENT_TOWN:
        result = wmGetCurrentTown();
        break;
    default:
        programFatalError("op_metarule: unimplemented rule %d", rule);
    }

    programStackPushInteger(program, result);
}
`

func TestDispatch(t *testing.T) {
	src := lines(metaruleSource)
	ex := newTestExtractor()
	syms := ex.Lines("src/interpreter_extra.cc", src)

	routine, ok := FindRoutine(syms, "opMetarule")
	if !ok {
		t.Fatal("opMetarule not found")
	}

	keys := []string{"METARULE_PARTY_COUNT", "METARULE_INVEN_UNWIELD_WHO", "METARULE_CURRENT_TOWN", "METARULE_NOT_THERE"}
	cases, missing := Dispatch(src, routine, keys)

	got := map[string][2]int{}
	for _, c := range cases {
		if c.Kind != DispatchCase || c.DispatchKey != c.Name {
			t.Errorf("bad dispatch symbol %+v", c)
		}
		got[c.DispatchKey] = [2]int{c.StartLine, c.EndLine}
	}

	want := map[string][2]int{
		"METARULE_PARTY_COUNT":       {12, 14},
		"METARULE_INVEN_UNWIELD_WHO": {18, 26},
		"METARULE_CURRENT_TOWN":      {26, 28},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ranges = %v, want %v", got, want)
	}
	if !reflect.DeepEqual(missing, []string{"METARULE_NOT_THERE"}) {
		t.Errorf("missing = %v", missing)
	}
}

func TestDispatch_LastBranchEndsAtClose(t *testing.T) {
	src := lines(`
void opMetarule(Program* program)
{
    switch (rule) {
    case METARULE_PARTY_COUNT:
        result = 1;
    }
}`)
	routine := Symbol{Name: "opMetarule", Location: Location{File: "x.cc", StartLine: 1, EndLine: 7}}
	cases, _ := Dispatch(src, routine, []string{"METARULE_PARTY_COUNT"})
	if len(cases) != 1 || cases[0].EndLine != 6 {
		t.Fatalf("cases = %+v, want one ending at 6", cases)
	}
}

func TestDispatch_ReturnDoesNotEndBranch(t *testing.T) {
	src := lines(`
void opMetarule(Program* program)
{
    switch (rule) {
    case METARULE_IS_LOADGAME:
        if (loading) return;
        result = 1;
        break;
    }
}`)
	routine := Symbol{Name: "opMetarule", Location: Location{File: "x.cc", StartLine: 1, EndLine: 9}}
	cases, _ := Dispatch(src, routine, []string{"METARULE_IS_LOADGAME"})
	if len(cases) != 1 || cases[0].StartLine != 4 || cases[0].EndLine != 7 {
		t.Fatalf("cases = %+v, want one spanning 4-7", cases)
	}
}

func TestDefines(t *testing.T) {
	src := lines(`
#ifndef FALLOUT_GAME_OBJECT_TYPES_H_
#define FALLOUT_GAME_OBJECT_TYPES_H_

#define OBJ_TYPE_ITEM 0 // items
#define  MAX_PARTY_SIZE   (20)
#define PID_TYPE(value) ((value) >> 24)
#define BUILD_FID(type, id) \
    (((type) << 24) | \
     (id))
#define FEATURE_FLAG

#endif`)

	got := Defines("src/obj_types.h", src)

	want := []Define{
		{Name: "OBJ_TYPE_ITEM", Location: Location{"src/obj_types.h", 4, 4}, Kind: KindDefine, Value: "0"},
		{Name: "MAX_PARTY_SIZE", Location: Location{"src/obj_types.h", 5, 5}, Kind: KindDefine, Value: "(20)"},
		{Name: "PID_TYPE", Location: Location{"src/obj_types.h", 6, 6}, Kind: KindMacro, Value: "((value) >> 24)"},
		{Name: "BUILD_FID", Location: Location{"src/obj_types.h", 7, 9}, Kind: KindMacro, Value: "(((type) << 24) | (id))"},
		{Name: "FEATURE_FLAG", Location: Location{"src/obj_types.h", 10, 10}, Kind: KindDefine, Value: ""},
	}

	if len(got) != len(want) {
		t.Fatalf("got %d defines, want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		if !reflect.DeepEqual(got[i], want[i]) {
			t.Errorf("define %d = %s, want %s", i, fmt.Sprintf("%+v", got[i]), fmt.Sprintf("%+v", want[i]))
		}
	}
}

func TestSplitLines(t *testing.T) {
	got := SplitLines([]byte("a\r\nb\n\nc\n"))
	want := []string{"a", "b", "", "c"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SplitLines = %q, want %q", got, want)
	}
	if SplitLines(nil) != nil {
		t.Error("SplitLines(nil) should be nil")
	}
}
