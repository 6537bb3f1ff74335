package pyparse

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// DefaultMaxSourceBytes bounds the size of a single source accepted for
// parsing. Oversized inputs are rejected before tree-sitter sees them.
const DefaultMaxSourceBytes = 1 << 20

// ParseError reports that the input is not valid Python. It is fatal for
// the whole request; no functions are extracted from a broken tree.
type ParseError struct {
	Line   int
	Column int
	Msg    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at line %d, column %d: %s", e.Line, e.Column, e.Msg)
}

// FunctionUnit is one extracted function definition. Units are immutable
// after extraction; downstream components only read them.
type FunctionUnit struct {
	// Name is qualified by the enclosing scope, e.g. "outer.inner" for a
	// nested def or "Stack.push" for a method.
	Name string
	// BaseName is the unqualified identifier, used for self-call matching.
	BaseName string
	// Node is the function_definition node.
	Node *sitter.Node
	// Source is the raw span of the definition, decorators included.
	Source []byte
	// IsMethod marks defs declared directly inside a class body.
	IsMethod  bool
	StartLine int
	EndLine   int
}

// File holds one parsed source and its functions in document order:
// outer definitions before their nested definitions, siblings in source
// order. Close releases the underlying tree.
type File struct {
	Functions []FunctionUnit
	Src       []byte
	tree      *sitter.Tree
}

func (f *File) Close() {
	if f.tree != nil {
		f.tree.Close()
		f.tree = nil
	}
}

// Extractor parses Python sources and enumerates function definitions.
// An Extractor is not safe for concurrent use; the engine parses files
// sequentially and only fans out per-function work.
type Extractor struct {
	parser   *sitter.Parser
	maxBytes int
}

func NewExtractor() *Extractor {
	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())
	return &Extractor{parser: parser, maxBytes: DefaultMaxSourceBytes}
}

// SetMaxSourceBytes overrides the input size guard. Non-positive values
// are ignored.
func (e *Extractor) SetMaxSourceBytes(n int) {
	if n > 0 {
		e.maxBytes = n
	}
}

// Extract parses src and returns its functions in document order. The
// caller owns the returned File and must Close it.
func (e *Extractor) Extract(ctx context.Context, src []byte) (*File, error) {
	if len(src) > e.maxBytes {
		return nil, &ParseError{Line: 1, Column: 1, Msg: fmt.Sprintf("source exceeds %d byte limit", e.maxBytes)}
	}

	tree, err := e.parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, &ParseError{Line: 1, Column: 1, Msg: err.Error()}
	}

	root := tree.RootNode()
	if root == nil {
		tree.Close()
		return nil, &ParseError{Line: 1, Column: 1, Msg: "no syntax tree produced"}
	}
	if root.HasError() {
		bad := firstErrorNode(root)
		tree.Close()
		return nil, &ParseError{
			Line:   int(bad.StartPoint().Row) + 1,
			Column: int(bad.StartPoint().Column) + 1,
			Msg:    "invalid syntax",
		}
	}

	file := &File{Src: src, tree: tree}
	collect(root, "", false, src, &file.Functions)
	return file, nil
}

// collect walks named children appending function units as they appear.
// scope is the dotted qualifier of the enclosing definitions.
func collect(node *sitter.Node, scope string, inClass bool, src []byte, out *[]FunctionUnit) {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "function_definition":
			collectFunc(child, child, scope, inClass, src, out)
		case "class_definition":
			collectClass(child, scope, src, out)
		case "decorated_definition":
			for j := 0; j < int(child.NamedChildCount()); j++ {
				inner := child.NamedChild(j)
				switch inner.Type() {
				case "function_definition":
					// Span starts at the decorators.
					collectFunc(inner, child, scope, inClass, src, out)
				case "class_definition":
					collectClass(inner, scope, src, out)
				}
			}
		default:
			collect(child, scope, inClass, src, out)
		}
	}
}

func collectFunc(def, span *sitter.Node, scope string, inClass bool, src []byte, out *[]FunctionUnit) {
	nameNode := def.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	base := nameNode.Content(src)
	unit := FunctionUnit{
		Name:      qualify(scope, base),
		BaseName:  base,
		Node:      def,
		Source:    src[span.StartByte():span.EndByte()],
		IsMethod:  inClass,
		StartLine: int(span.StartPoint().Row) + 1,
		EndLine:   int(def.EndPoint().Row) + 1,
	}
	*out = append(*out, unit)

	if body := def.ChildByFieldName("body"); body != nil {
		collect(body, unit.Name, false, src, out)
	}
}

func collectClass(def *sitter.Node, scope string, src []byte, out *[]FunctionUnit) {
	nameNode := def.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	className := qualify(scope, nameNode.Content(src))
	if body := def.ChildByFieldName("body"); body != nil {
		collect(body, className, true, src, out)
	}
}

func qualify(scope, name string) string {
	if scope == "" {
		return name
	}
	return scope + "." + name
}

// firstErrorNode descends into the subtree carrying the error flag and
// returns the deepest ERROR or missing node it finds.
func firstErrorNode(node *sitter.Node) *sitter.Node {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		if child.Type() == "ERROR" || child.IsMissing() {
			return child
		}
		if child.HasError() {
			return firstErrorNode(child)
		}
	}
	return node
}
