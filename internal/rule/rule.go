package rule

import (
	"fmt"

	"geosem/internal/ontology"
)

// TagRule binds a word position, or None for a lifted insertion, to a
// signature.
type TagRule struct {
	Context   *Context
	Index     Index
	Signature ontology.Signature
}

func NewTagRule(ctx *Context, index Index, sig ontology.Signature) TagRule {
	return TagRule{Context: ctx, Index: index, Signature: sig}
}

func (t TagRule) Anchored() bool { return t.Index.Anchored() }

func (t TagRule) String() string {
	return fmt.Sprintf("%s@%s", t.Signature.Name, t.Index)
}

// SemanticRule is a parent signature applied to one or two tag-level
// children. The only implementations are UnaryRule and BinaryRule.
type SemanticRule interface {
	Context() *Context
	Words() []string
	SyntaxTree() SyntaxTree
	Tags() map[int]ontology.Signature
	ParentIndex() Index
	ParentSignature() ontology.Signature
	// Arity is 1 for UnaryRule and 2 for BinaryRule.
	Arity() int
	Children() []TagRule
	String() string

	semanticRule()
}

type parent struct {
	ctx   *Context
	index Index
	sig   ontology.Signature
}

func (p parent) Context() *Context                   { return p.ctx }
func (p parent) Words() []string                     { return p.ctx.Words }
func (p parent) SyntaxTree() SyntaxTree              { return p.ctx.Tree }
func (p parent) Tags() map[int]ontology.Signature    { return p.ctx.Tags }
func (p parent) ParentIndex() Index                  { return p.index }
func (p parent) ParentSignature() ontology.Signature { return p.sig }

// UnaryRule attaches a single child to a unary parent signature.
type UnaryRule struct {
	parent
	child TagRule
}

func NewUnaryRule(ctx *Context, parentIndex Index, parentSig ontology.Signature, child TagRule) UnaryRule {
	child.Context = ctx
	return UnaryRule{parent: parent{ctx: ctx, index: parentIndex, sig: parentSig}, child: child}
}

func (r UnaryRule) Child() TagRule      { return r.child }
func (r UnaryRule) Arity() int          { return 1 }
func (r UnaryRule) Children() []TagRule { return []TagRule{r.child} }
func (r UnaryRule) semanticRule()       {}

func (r UnaryRule) String() string {
	return fmt.Sprintf("%s@%s(%s)", r.sig.Name, r.index, r.child)
}

// BinaryRule attaches an ordered pair of children to a binary parent
// signature. A and B may be the same tag rule.
type BinaryRule struct {
	parent
	a TagRule
	b TagRule
}

func NewBinaryRule(ctx *Context, parentIndex Index, parentSig ontology.Signature, a, b TagRule) BinaryRule {
	a.Context = ctx
	b.Context = ctx
	return BinaryRule{parent: parent{ctx: ctx, index: parentIndex, sig: parentSig}, a: a, b: b}
}

func (r BinaryRule) A() TagRule          { return r.a }
func (r BinaryRule) B() TagRule          { return r.b }
func (r BinaryRule) Arity() int          { return 2 }
func (r BinaryRule) Children() []TagRule { return []TagRule{r.a, r.b} }
func (r BinaryRule) semanticRule()       {}

func (r BinaryRule) String() string {
	return fmt.Sprintf("%s@%s(%s, %s)", r.sig.Name, r.index, r.a, r.b)
}

// TagRules flattens a rule into the tag rules it is built from, parent first.
// Model uses these as lifted hints so that an observed rule can always be
// regenerated from its own slots.
func TagRules(r SemanticRule) []TagRule {
	out := make([]TagRule, 0, 1+r.Arity())
	out = append(out, NewTagRule(r.Context(), r.ParentIndex(), r.ParentSignature()))
	return append(out, r.Children()...)
}
