package rule

import "geosem/internal/ontology"

// SyntaxTree is built by an external parser. Rules only carry it through to
// feature functions.
type SyntaxTree any

// Context is the annotated word sequence a rule is built over. Rules compare
// their contexts by pointer, so one Context must be shared by every rule
// built over the same sentence.
type Context struct {
	ID    string
	Words []string
	Tree  SyntaxTree
	// Tags maps a word position to the signature it was tagged with.
	// Untagged positions are absent.
	Tags map[int]ontology.Signature
}

func NewContext(id string, words []string, tree SyntaxTree, tags map[int]ontology.Signature) *Context {
	if tags == nil {
		tags = make(map[int]ontology.Signature)
	}
	return &Context{ID: id, Words: words, Tree: tree, Tags: tags}
}

func (c *Context) Len() int { return len(c.Words) }

func (c *Context) Contains(i Index) bool {
	return i.Anchored() && int(i) < len(c.Words)
}

func (c *Context) Word(i Index) (string, bool) {
	if !c.Contains(i) {
		return "", false
	}
	return c.Words[i], true
}

func (c *Context) Tag(i Index) (ontology.Signature, bool) {
	if !c.Contains(i) {
		return ontology.Signature{}, false
	}
	sig, ok := c.Tags[int(i)]
	return sig, ok
}
