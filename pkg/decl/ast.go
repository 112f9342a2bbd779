package decl

// Declaration-surface AST. Nodes carry raw host text for the parts the
// compiler treats as opaque (default expressions, function bodies).

type NodeType string

const (
	NodeClassDecl     NodeType = "ClassDecl"
	NodeAttributeDecl NodeType = "AttributeDecl"
	NodeFunctionDecl  NodeType = "FunctionDecl"
	NodeParamDecl     NodeType = "ParamDecl"
	NodeBindDecl      NodeType = "BindDecl"
)

type Node interface {
	NodeType() NodeType
	isNode()
}

type nodeImpl struct {
	Type NodeType
}

func newNodeImpl(kind NodeType) nodeImpl {
	return nodeImpl{Type: kind}
}

func (n nodeImpl) NodeType() NodeType { return n.Type }
func (nodeImpl) isNode()              {}

// Modifier is the leading keyword of an attribute declaration. `attribute`
// is a synonym for `public`.
type Modifier string

const (
	ModAttribute Modifier = "attribute"
	ModPublic    Modifier = "public"
	ModPrivate   Modifier = "private"
	ModProtected Modifier = "protected"
	ModReadOnly  Modifier = "readonly"
	ModLazy      Modifier = "lazy"
	ModInitVar   Modifier = "initvar"
)

// IsModifier reports whether word introduces an attribute declaration.
func IsModifier(word string) bool {
	switch Modifier(word) {
	case ModAttribute, ModPublic, ModPrivate, ModProtected, ModReadOnly, ModLazy, ModInitVar:
		return true
	default:
		return false
	}
}

type AttributeDecl struct {
	nodeImpl

	Modifier    Modifier
	Name        string
	HintText    string // empty when unhinted
	DefaultExpr string // raw host expression, empty when HasDefault is false
	HasDefault  bool
	Line        int
}

func NewAttributeDecl(mod Modifier, name, hintText, defaultExpr string, hasDefault bool, line int) *AttributeDecl {
	return &AttributeDecl{nodeImpl: newNodeImpl(NodeAttributeDecl), Modifier: mod, Name: name, HintText: hintText, DefaultExpr: defaultExpr, HasDefault: hasDefault, Line: line}
}

type ParamDecl struct {
	nodeImpl

	Name     string
	HintText string
}

func NewParamDecl(name, hintText string) *ParamDecl {
	return &ParamDecl{nodeImpl: newNodeImpl(NodeParamDecl), Name: name, HintText: hintText}
}

type FunctionDecl struct {
	nodeImpl

	Name       string
	Params     []*ParamDecl
	ReturnHint string
	Body       string // raw host text including the outer braces
	Line       int
}

func NewFunctionDecl(name string, params []*ParamDecl, returnHint, body string, line int) *FunctionDecl {
	return &FunctionDecl{nodeImpl: newNodeImpl(NodeFunctionDecl), Name: name, Params: params, ReturnHint: returnHint, Body: body, Line: line}
}

type BindDecl struct {
	nodeImpl

	Name     string
	HintText string
	Expr     string // raw host expression
	Line     int
}

func NewBindDecl(name, hintText, expr string, line int) *BindDecl {
	return &BindDecl{nodeImpl: newNodeImpl(NodeBindDecl), Name: name, HintText: hintText, Expr: expr, Line: line}
}

type ClassDecl struct {
	nodeImpl

	Name       string
	Parents    []string // `extends` list in declared order
	Attributes []*AttributeDecl
	Functions  []*FunctionDecl
	Line       int
}

func NewClassDecl(name string, parents []string, attrs []*AttributeDecl, fns []*FunctionDecl, line int) *ClassDecl {
	return &ClassDecl{nodeImpl: newNodeImpl(NodeClassDecl), Name: name, Parents: parents, Attributes: attrs, Functions: fns, Line: line}
}
