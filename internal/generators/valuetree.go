package generators

import (
	"fmt"
	"math/rand"

	"github.com/mmrzaf/mockagen/internal/domain"
)

// ValueTree backs every identifier of one nested definition. Level i of the
// tree branches on, or assigns, Identifiers()[i]. The tree is never mutated
// after construction and is shared by all Nested generators reading it.
type ValueTree struct {
	root TreeNode
	ids  []string
}

// TreeNode is either a *MatchNode or an *AssignNode.
type TreeNode interface {
	isTreeNode()
}

// MatchNode selects a child by comparing an earlier identifier's value with
// each arm's matchers, falling back to Wildcard.
type MatchNode struct {
	ID       string
	Arms     []Arm
	Wildcard TreeNode
}

// AssignNode produces the value of ID through Gen. Arms restate the assigned
// literals as matchers so the next identifier can branch on the outcome.
type AssignNode struct {
	ID   string
	Arms []Arm
	Gen  *Alternation
}

func (*MatchNode) isTreeNode()  {}
func (*AssignNode) isTreeNode() {}

type Arm struct {
	Matchers []MatchExpr
	Child    TreeNode
}

func (a Arm) matches(v domain.Value) bool {
	for _, m := range a.Matchers {
		if m.Matches(v) {
			return true
		}
	}
	return false
}

// MatchExpr is either a literal or Any. A literal is compared with the
// display form of the value, so `when: [5]` matches the integer 5 and
// `when: [2024-01-31]` matches that date.
type MatchExpr struct {
	Literal string
	Any     bool
}

func (m MatchExpr) Matches(v domain.Value) bool {
	return m.Any || v.String() == m.Literal
}

func (m MatchExpr) String() string {
	if m.Any {
		return "*"
	}
	return fmt.Sprintf("%q", m.Literal)
}

// RestateMatchExprs turns assigned values into matchers. Only literal values
// can be restated.
func RestateMatchExprs(values []domain.WeightedValue) ([]MatchExpr, error) {
	out := make([]MatchExpr, 0, len(values))
	for _, v := range values {
		kind, err := v.Kind()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidMatchExprCast, err)
		}
		if kind != domain.SpecLiteral {
			return nil, fmt.Errorf("%w: %s value", ErrInvalidMatchExprCast, kind)
		}
		out = append(out, MatchExpr{Literal: string(*v.Literal)})
	}
	return out, nil
}

// Nested reads a ValueTree at a fixed depth: it descends Depth levels,
// choosing children from values already bound in the row, then generates
// from the assign level it lands on.
type Nested struct {
	Tree  *ValueTree
	Depth int
}

// Identifiers lists the identifier of each level, from the root down.
func (t *ValueTree) Identifiers() []string {
	return append([]string(nil), t.ids...)
}

func (t *ValueTree) Root() TreeNode { return t.root }

func (t *ValueTree) valueAtDepth(rng *rand.Rand, ctx Context, depth int) (domain.Value, error) {
	node := t.root
	for i := 0; i < depth; i++ {
		child, err := findChild(node, ctx)
		if err != nil {
			return domain.Value{}, err
		}
		node = child
	}

	switch n := node.(type) {
	case *AssignNode:
		return Generate(n.Gen, rng, ctx)
	case *MatchNode:
		return domain.Value{}, fmt.Errorf("%w: level %d branches on %q", ErrExpectedValueFoundMatcher, depth, n.ID)
	default:
		return domain.Value{}, fmt.Errorf("%w: level %d is empty", ErrNoChildrenForTree, depth)
	}
}

func findChild(node TreeNode, ctx Context) (TreeNode, error) {
	switch n := node.(type) {
	case *MatchNode:
		v, err := ctx.Value(n.ID)
		if err != nil {
			return nil, err
		}
		for _, arm := range n.Arms {
			if arm.matches(v) {
				return arm.Child, nil
			}
		}
		if n.Wildcard != nil {
			return n.Wildcard, nil
		}
		return nil, fmt.Errorf("%w: %s = %q (%s)", ErrNoMatchForValue, n.ID, v.String(), v.Kind())

	case *AssignNode:
		v, err := ctx.Value(n.ID)
		if err != nil {
			return nil, err
		}
		for _, arm := range n.Arms {
			if arm.matches(v) && arm.Child != nil {
				return arm.Child, nil
			}
		}
		return nil, fmt.Errorf("%w: nothing is nested under %s = %q", ErrNoChildrenForTree, n.ID, v.String())

	default:
		return nil, ErrNoChildrenForTree
	}
}

// assignNodesAt returns every assign node found exactly depth levels below
// the root.
func (t *ValueTree) assignNodesAt(depth int) []*AssignNode {
	var out []*AssignNode
	var walk func(n TreeNode, d int)
	walk = func(n TreeNode, d int) {
		if n == nil {
			return
		}
		if d == depth {
			if a, ok := n.(*AssignNode); ok {
				out = append(out, a)
			}
			return
		}
		switch n := n.(type) {
		case *MatchNode:
			for _, arm := range n.Arms {
				walk(arm.Child, d+1)
			}
			walk(n.Wildcard, d+1)
		case *AssignNode:
			for _, arm := range n.Arms {
				walk(arm.Child, d+1)
			}
		}
	}
	walk(t.root, 0)
	return out
}
