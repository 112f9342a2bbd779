package decl

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func parseOne(t *testing.T, src string) Node {
	t.Helper()
	node, end, err := ParseFragment(src, 0)
	if err != nil {
		t.Fatalf("ParseFragment(%q): %v", src, err)
	}
	if rest := strings.TrimSpace(src[end:]); rest != "" {
		t.Fatalf("fragment left %q unconsumed", rest)
	}
	return node
}

func TestParseAttributeForms(t *testing.T) {
	cases := []struct {
		src         string
		modifier    Modifier
		name        string
		hintText    string
		defaultExpr string
		hasDefault  bool
	}{
		{"public count;", ModPublic, "count", "", "", false},
		{"attribute tag;", ModAttribute, "tag", "", "", false},
		{"private secret : str;", ModPrivate, "secret", "str", "", false},
		{"readonly limit : int = 10;", ModReadOnly, "limit", "int", "10", true},
		{"lazy table = build_table();", ModLazy, "table", "", "build_table()", true},
		{"initvar seed : int;", ModInitVar, "seed", "int", "", false},
		{"protected items : array[int|str] = [];", ModProtected, "items", "array[int|str]", "[]", true},
	}
	for _, tc := range cases {
		got := parseOne(t, tc.src).(*AttributeDecl)
		if got.Modifier != tc.modifier || got.Name != tc.name || got.HintText != tc.hintText ||
			got.DefaultExpr != tc.defaultExpr || got.HasDefault != tc.hasDefault {
			t.Errorf("parse %q yielded %+v", tc.src, got)
		}
	}
}

func TestParseAttributeHintKeepsBracketCommas(t *testing.T) {
	node := parseOne(t, "public pairs : hash[int] = make();")
	attr := node.(*AttributeDecl)
	if attr.HintText != "hash[int]" || attr.DefaultExpr != "make()" {
		t.Fatalf("unexpected attribute %+v", attr)
	}
}

func TestParseFunction(t *testing.T) {
	node := parseOne(t, "function dist(a : num, b) : num { return a - b; }")
	fn := node.(*FunctionDecl)
	if fn.Name != "dist" || fn.ReturnHint != "num" {
		t.Fatalf("unexpected function %+v", fn)
	}
	if len(fn.Params) != 2 || fn.Params[0].HintText != "num" || fn.Params[1].HintText != "" {
		t.Fatalf("unexpected params %+v", fn.Params)
	}
	if fn.Body != "{ return a - b; }" {
		t.Fatalf("unexpected body %q", fn.Body)
	}
}

func TestParseFunctionNoParams(t *testing.T) {
	node := parseOne(t, "function tick() { now(); }")
	fn := node.(*FunctionDecl)
	if len(fn.Params) != 0 {
		t.Fatalf("expected no params, got %+v", fn.Params)
	}
}

func TestParseBind(t *testing.T) {
	node := parseOne(t, "bind origin : Point|undef = Point(0, 0);")
	b := node.(*BindDecl)
	if b.Name != "origin" || b.HintText != "Point|undef" || b.Expr != "Point(0, 0)" {
		t.Fatalf("unexpected bind %+v", b)
	}
}

func TestParseClass(t *testing.T) {
	src := `class Circle extends Shape, Drawable {
	public radius : num = 1;
	private cached_area : num|undef;

	function area(self) : num {
		return 3.14159 * self.radius * self.radius;
	}
}`
	node := parseOne(t, src)
	c := node.(*ClassDecl)
	if c.Name != "Circle" {
		t.Fatalf("class name %q", c.Name)
	}
	if diff := cmp.Diff([]string{"Shape", "Drawable"}, c.Parents); diff != "" {
		t.Fatalf("parents mismatch:\n%s", diff)
	}
	if len(c.Attributes) != 2 || len(c.Functions) != 1 {
		t.Fatalf("members: %d attributes, %d functions", len(c.Attributes), len(c.Functions))
	}
	if c.Attributes[0].Name != "radius" || c.Attributes[1].Modifier != ModPrivate {
		t.Fatalf("unexpected attributes %+v", c.Attributes)
	}
}

func TestParseClassBodyComments(t *testing.T) {
	src := "class Tagged {\n\t# tracked for audit\n\tpublic tag;\n}"
	node := parseOne(t, src)
	c := node.(*ClassDecl)
	if len(c.Attributes) != 1 || c.Attributes[0].Name != "tag" {
		t.Fatalf("unexpected attributes %+v", c.Attributes)
	}
}

func TestParseErrors(t *testing.T) {
	cases := []string{
		"public ;",
		"public x",
		"public x : ;",
		"public x = ;",
		"class { }",
		"class Foo extends { }",
		"class Foo { oops; }",
		"class Foo { public x; ",
		"function f { }",
		"function f(a { }",
		"bind x;",
		"bind x = ;",
	}
	for _, src := range cases {
		if _, _, err := ParseFragment(src, 0); err == nil {
			t.Errorf("ParseFragment(%q) did not fail", src)
		} else if _, ok := err.(*SyntaxError); !ok {
			t.Errorf("ParseFragment(%q) returned %T, want *SyntaxError", src, err)
		}
	}
}

func TestScanUnit(t *testing.T) {
	src := `# prologue
count = 0;

class Foo {
	public bar;
}

helper();

bind limit : int = 10;

function ping() { pong(); }
`
	frags, err := ScanUnit(src)
	if err != nil {
		t.Fatalf("ScanUnit: %v", err)
	}
	if len(frags) != 3 {
		t.Fatalf("expected 3 fragments, got %d", len(frags))
	}
	if _, ok := frags[0].Node.(*ClassDecl); !ok {
		t.Fatalf("fragment 0 is %T", frags[0].Node)
	}
	if _, ok := frags[1].Node.(*BindDecl); !ok {
		t.Fatalf("fragment 1 is %T", frags[1].Node)
	}
	if _, ok := frags[2].Node.(*FunctionDecl); !ok {
		t.Fatalf("fragment 2 is %T", frags[2].Node)
	}
	for _, f := range frags {
		if f.Start >= f.End || f.End > len(src) {
			t.Fatalf("bad span %d..%d", f.Start, f.End)
		}
	}
}

func TestScanUnitSkipsHostBlocksAndStrings(t *testing.T) {
	src := `msg = "a class walks into a bar";
if (x) { class_count = 1; }
public flag;
`
	frags, err := ScanUnit(src)
	if err != nil {
		t.Fatalf("ScanUnit: %v", err)
	}
	if len(frags) != 1 {
		t.Fatalf("expected 1 fragment, got %d", len(frags))
	}
	attr := frags[0].Node.(*AttributeDecl)
	if attr.Name != "flag" {
		t.Fatalf("unexpected attribute %+v", attr)
	}
}

func TestParseClassQualifiedParent(t *testing.T) {
	node := parseOne(t, "class Adapter extends Host::Widget, Base { public label; }")
	c := node.(*ClassDecl)
	if len(c.Parents) != 2 || c.Parents[0] != "Host::Widget" || c.Parents[1] != "Base" {
		t.Fatalf("parents: %v", c.Parents)
	}
}
