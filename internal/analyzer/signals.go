package analyzer

import (
	sitter "github.com/smacker/go-tree-sitter"

	"bigocheck/internal/pyparse"
)

// SignalProfile is the structural evidence collected from one function
// body in a single traversal. Profiles are immutable once returned and a
// given function always yields the same profile.
type SignalProfile struct {
	// MaxLoopDepth is the deepest loop nesting observed anywhere in the
	// body. Sibling loops do not stack.
	MaxLoopDepth int
	// RecursiveCalls counts call expressions whose callee is the
	// function's own name (self.<name> for methods).
	RecursiveCalls int
	// RecursionLoopDepth is the deepest loop nesting enclosing any
	// self-call. Zero when no self-call sits inside a loop.
	RecursionLoopDepth int
	// AllocLoopDepth is the deepest loop nesting at which the body grows
	// a container incrementally. Zero when no such allocation exists.
	AllocLoopDepth int
	// HasEarlyTermination marks a conditional break/return inside a loop,
	// the shape of a search that can stop early. Informational only.
	HasEarlyTermination bool

	// Bound refinements. These sharpen what a loop level costs; they
	// never change the observed nesting depth.
	LogLoops  bool // a while loop halves its control variable or binary-searches
	SqrtLoops bool // a loop bounded by i*i <= n
	// LinearithmicCalls counts .sort() / sorted() call sites.
	LinearithmicCalls int
	// HalvingRecursion marks a self-call whose argument divides the
	// problem (n//2, bit shift, slice splitting).
	HalvingRecursion bool
	// Backtracking marks the permutation shape: a self-call inside a
	// loop combined with mutate-then-undo container operations.
	Backtracking bool
}

// AllocatesGrowingContainer reports whether the body builds a container
// whose size tracks an input-sized iteration.
func (p SignalProfile) AllocatesGrowingContainer() bool {
	return p.AllocLoopDepth >= 1
}

// CollectSignals computes the SignalProfile for one function unit. The
// traversal threads its loop depth explicitly so collection stays safe
// to run concurrently across functions.
func CollectSignals(fn pyparse.FunctionUnit, src []byte) SignalProfile {
	w := &signalWalker{src: src, baseName: fn.BaseName, isMethod: fn.IsMethod}
	if body := fn.Node.ChildByFieldName("body"); body != nil {
		w.walk(body, 0, false)
	}
	p := w.profile
	if p.RecursiveCalls >= 1 && p.RecursionLoopDepth >= 1 && w.mutations > 0 && w.undos > 0 {
		p.Backtracking = true
	}
	return p
}

type signalWalker struct {
	src      []byte
	baseName string
	isMethod bool
	profile  SignalProfile

	// mutate/undo call counts feeding the backtracking signal
	mutations int
	undos     int
}

func (w *signalWalker) walk(node *sitter.Node, depth int, inCond bool) {
	switch node.Type() {
	case "for_statement", "while_statement":
		d := depth + 1
		if d > w.profile.MaxLoopDepth {
			w.profile.MaxLoopDepth = d
		}
		if node.Type() == "while_statement" {
			w.classifyWhileBound(node)
		}
		// Early termination means a conditional exit within the loop
		// itself; conditionals enclosing the whole loop do not count.
		w.walkChildren(node, d, false)
		return

	case "if_statement", "elif_clause", "else_clause", "conditional_expression", "match_statement":
		w.walkChildren(node, depth, true)
		return

	case "break_statement", "return_statement":
		if depth >= 1 && inCond {
			w.profile.HasEarlyTermination = true
		}

	case "function_definition":
		// A nested def re-binding the enclosing name shadows it: calls in
		// that subtree target the inner function, not us.
		if name := node.ChildByFieldName("name"); name != nil && name.Content(w.src) == w.baseName {
			return
		}

	case "call":
		w.visitCall(node, depth)

	case "augmented_assignment":
		w.visitAugmented(node, depth)

	case "assignment":
		w.visitAssignment(node, depth)
	}

	w.walkChildren(node, depth, inCond)
}

func (w *signalWalker) walkChildren(node *sitter.Node, depth int, inCond bool) {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		w.walk(node.NamedChild(i), depth, inCond)
	}
}

func (w *signalWalker) visitCall(node *sitter.Node, depth int) {
	callee := node.ChildByFieldName("function")
	if callee == nil {
		return
	}

	switch callee.Type() {
	case "identifier":
		name := callee.Content(w.src)
		if name == w.baseName {
			w.recordSelfCall(node, depth)
		}
		if name == "sorted" {
			w.profile.LinearithmicCalls++
		}

	case "attribute":
		attr := callee.ChildByFieldName("attribute")
		obj := callee.ChildByFieldName("object")
		if attr == nil {
			return
		}
		method := attr.Content(w.src)
		if w.isMethod && obj != nil && obj.Type() == "identifier" &&
			obj.Content(w.src) == "self" && method == w.baseName {
			w.recordSelfCall(node, depth)
			return
		}
		switch method {
		case "sort":
			w.profile.LinearithmicCalls++
		case "append", "add", "insert", "extend":
			w.mutations++
			w.recordAlloc(depth)
		case "pop", "remove", "discard":
			w.undos++
		}
	}
}

func (w *signalWalker) recordSelfCall(call *sitter.Node, depth int) {
	w.profile.RecursiveCalls++
	if depth > w.profile.RecursionLoopDepth {
		w.profile.RecursionLoopDepth = depth
	}
	if args := call.ChildByFieldName("arguments"); args != nil {
		for i := 0; i < int(args.NamedChildCount()); i++ {
			if reducesByHalf(args.NamedChild(i), w.src) {
				w.profile.HalvingRecursion = true
			}
		}
	}
}

func (w *signalWalker) recordAlloc(depth int) {
	if depth >= 1 && depth > w.profile.AllocLoopDepth {
		w.profile.AllocLoopDepth = depth
	}
}

// visitAugmented catches xs += [...] style growth inside loops.
func (w *signalWalker) visitAugmented(node *sitter.Node, depth int) {
	op := node.ChildByFieldName("operator")
	right := node.ChildByFieldName("right")
	if op == nil || right == nil {
		return
	}
	if op.Content(w.src) == "+=" && isContainerExpr(right) {
		w.mutations++
		w.recordAlloc(depth)
	}
}

// visitAssignment catches xs = xs + [...] and comprehension builds
// inside loops.
func (w *signalWalker) visitAssignment(node *sitter.Node, depth int) {
	right := node.ChildByFieldName("right")
	if right == nil {
		return
	}
	switch right.Type() {
	case "list_comprehension", "set_comprehension", "dictionary_comprehension":
		w.recordAlloc(depth)
	case "binary_operator":
		op := right.ChildByFieldName("operator")
		if op != nil && op.Content(w.src) == "+" {
			left := right.ChildByFieldName("left")
			rr := right.ChildByFieldName("right")
			if isContainerExpr(left) || isContainerExpr(rr) {
				w.mutations++
				w.recordAlloc(depth)
			}
		}
	}
}

// classifyWhileBound marks a while loop as logarithmically or
// square-root bounded when its shape gives that away: a halving
// augmented assignment, the binary-search mid/lo/hi pattern, or an
// i*i <= n condition.
func (w *signalWalker) classifyWhileBound(loop *sitter.Node) {
	if cond := loop.ChildByFieldName("condition"); cond != nil && isSquareBound(cond, w.src) {
		w.profile.SqrtLoops = true
	}

	body := loop.ChildByFieldName("body")
	if body == nil {
		return
	}

	var midTarget string
	var boundUpdate bool
	var scan func(n *sitter.Node)
	scan = func(n *sitter.Node) {
		switch n.Type() {
		case "augmented_assignment":
			if op := n.ChildByFieldName("operator"); op != nil {
				switch op.Content(w.src) {
				case "//=", "/=", ">>=":
					w.profile.LogLoops = true
				}
			}
		case "assignment":
			left := n.ChildByFieldName("left")
			right := n.ChildByFieldName("right")
			if left == nil || right == nil || left.Type() != "identifier" {
				break
			}
			if right.Type() == "binary_operator" {
				op := right.ChildByFieldName("operator")
				if op == nil {
					break
				}
				switch op.Content(w.src) {
				case "//", ">>":
					midTarget = left.Content(w.src)
				case "+", "-":
					// lo = mid + 1 / hi = mid - 1 closing in on the target
					if bl := right.ChildByFieldName("left"); bl != nil &&
						midTarget != "" && bl.Content(w.src) == midTarget {
						boundUpdate = true
					}
				}
			}
		case "for_statement", "while_statement":
			return // inner loops classify themselves
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			scan(n.NamedChild(i))
		}
	}
	scan(body)

	if midTarget != "" && boundUpdate {
		w.profile.LogLoops = true
	}
}

// reducesByHalf reports whether a self-call argument shrinks the problem
// by a constant division: n // 2, n >> 1, or a slice of the input.
func reducesByHalf(arg *sitter.Node, src []byte) bool {
	switch arg.Type() {
	case "binary_operator":
		if op := arg.ChildByFieldName("operator"); op != nil {
			switch op.Content(src) {
			case "//", "/", ">>":
				return true
			}
		}
	case "subscript":
		for i := 0; i < int(arg.NamedChildCount()); i++ {
			if arg.NamedChild(i).Type() == "slice" {
				return true
			}
		}
	}
	return false
}

// isSquareBound matches conditions of the form i*i <= n or i**2 <= n.
func isSquareBound(cond *sitter.Node, src []byte) bool {
	if cond.Type() != "comparison_operator" {
		return false
	}
	for i := 0; i < int(cond.NamedChildCount()); i++ {
		operand := cond.NamedChild(i)
		if operand.Type() != "binary_operator" {
			continue
		}
		op := operand.ChildByFieldName("operator")
		left := operand.ChildByFieldName("left")
		right := operand.ChildByFieldName("right")
		if op == nil || left == nil || right == nil {
			continue
		}
		switch op.Content(src) {
		case "*":
			if left.Content(src) == right.Content(src) {
				return true
			}
		case "**":
			if right.Content(src) == "2" {
				return true
			}
		}
	}
	return false
}

func isContainerExpr(node *sitter.Node) bool {
	if node == nil {
		return false
	}
	switch node.Type() {
	case "list", "set", "dictionary", "list_comprehension", "set_comprehension", "dictionary_comprehension":
		return true
	}
	return false
}
