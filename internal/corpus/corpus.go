// Package corpus reads annotated training sentences and their observed
// derivations.
package corpus

import (
	"io"
	"os"
	"sort"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"geosem/internal/ontology"
	"geosem/internal/rule"
)

var ErrInvalidCorpus = errors.New("invalid corpus")

type Sentence struct {
	Context *rule.Context
	Rules   []rule.SemanticRule
}

type Corpus struct {
	Sentences []Sentence
}

// Rules returns every observed rule in sentence order.
func (c Corpus) Rules() []rule.SemanticRule {
	var out []rule.SemanticRule
	for _, s := range c.Sentences {
		out = append(out, s.Rules...)
	}
	return out
}

type document struct {
	Sentences []sentenceEntry `yaml:"sentences"`
}

type sentenceEntry struct {
	ID    string         `yaml:"id"`
	Words []string       `yaml:"words"`
	Tree  any            `yaml:"tree"`
	Tags  map[int]string `yaml:"tags"`
	Rules []ruleEntry    `yaml:"rules"`
}

type ruleEntry struct {
	Parent   nodeEntry   `yaml:"parent"`
	Children []nodeEntry `yaml:"children"`
}

// nodeEntry is a tag rule. A missing index means the node is implied rather
// than anchored to a word.
type nodeEntry struct {
	Index     *int   `yaml:"index"`
	Signature string `yaml:"signature"`
}

// Load reads a YAML corpus of the form
//
//	sentences:
//	  - id: s1
//	    words: [square, region]
//	    tags: {0: Square, 1: RegionOf}
//	    rules:
//	      - parent: {index: 1, signature: RegionOf}
//	        children:
//	          - {index: 0, signature: Square}
//
// resolving every signature name against ont.
func Load(r io.Reader, ont ontology.Ontology) (Corpus, error) {
	var doc document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return Corpus{}, nil
		}
		return Corpus{}, errors.Wrap(err, "decode corpus")
	}

	out := Corpus{Sentences: make([]Sentence, 0, len(doc.Sentences))}
	seen := make(map[string]bool, len(doc.Sentences))
	for i, entry := range doc.Sentences {
		if entry.ID == "" {
			return Corpus{}, errors.Wrapf(ErrInvalidCorpus, "sentence %d has no id", i)
		}
		if seen[entry.ID] {
			return Corpus{}, errors.Wrapf(ErrInvalidCorpus, "duplicate sentence id %s", entry.ID)
		}
		seen[entry.ID] = true

		sentence, err := buildSentence(entry, ont)
		if err != nil {
			return Corpus{}, errors.Wrapf(err, "sentence %s", entry.ID)
		}
		out.Sentences = append(out.Sentences, sentence)
	}
	return out, nil
}

func LoadFile(path string, ont ontology.Ontology) (Corpus, error) {
	f, err := os.Open(path)
	if err != nil {
		return Corpus{}, errors.Wrapf(err, "open corpus %s", path)
	}
	defer f.Close()

	c, err := Load(f, ont)
	if err != nil {
		return Corpus{}, errors.Wrapf(err, "load corpus %s", path)
	}
	return c, nil
}

func buildSentence(entry sentenceEntry, ont ontology.Ontology) (Sentence, error) {
	positions := make([]int, 0, len(entry.Tags))
	for pos := range entry.Tags {
		positions = append(positions, pos)
	}
	sort.Ints(positions)

	tags := make(map[int]ontology.Signature, len(entry.Tags))
	for _, pos := range positions {
		if pos < 0 || pos >= len(entry.Words) {
			return Sentence{}, errors.Wrapf(ErrInvalidCorpus, "tag position %d outside %d words", pos, len(entry.Words))
		}
		sig, err := resolve(ont, entry.Tags[pos])
		if err != nil {
			return Sentence{}, errors.Wrapf(err, "tag %d", pos)
		}
		tags[pos] = sig
	}

	ctx := rule.NewContext(entry.ID, entry.Words, entry.Tree, tags)
	rules := make([]rule.SemanticRule, 0, len(entry.Rules))
	for i, re := range entry.Rules {
		r, err := buildRule(ctx, re, ont)
		if err != nil {
			return Sentence{}, errors.Wrapf(err, "rule %d", i)
		}
		rules = append(rules, r)
	}
	return Sentence{Context: ctx, Rules: rules}, nil
}

func buildRule(ctx *rule.Context, entry ruleEntry, ont ontology.Ontology) (rule.SemanticRule, error) {
	parent, err := buildNode(ctx, entry.Parent, ont)
	if err != nil {
		return nil, errors.Wrap(err, "parent")
	}
	if len(entry.Children) != parent.Signature.Arity {
		return nil, errors.Wrapf(ErrInvalidCorpus, "%s takes %d arguments, got %d", parent.Signature, parent.Signature.Arity, len(entry.Children))
	}

	children := make([]rule.TagRule, 0, len(entry.Children))
	for i, c := range entry.Children {
		child, err := buildNode(ctx, c, ont)
		if err != nil {
			return nil, errors.Wrapf(err, "child %d", i)
		}
		children = append(children, child)
	}

	switch parent.Signature.Arity {
	case 1:
		return rule.NewUnaryRule(ctx, parent.Index, parent.Signature, children[0]), nil
	case 2:
		return rule.NewBinaryRule(ctx, parent.Index, parent.Signature, children[0], children[1]), nil
	default:
		return nil, errors.Wrapf(ErrInvalidCorpus, "%s cannot head a rule", parent.Signature)
	}
}

func buildNode(ctx *rule.Context, entry nodeEntry, ont ontology.Ontology) (rule.TagRule, error) {
	sig, err := resolve(ont, entry.Signature)
	if err != nil {
		return rule.TagRule{}, err
	}
	idx := rule.None
	if entry.Index != nil {
		idx = rule.At(*entry.Index)
		if !ctx.Contains(idx) {
			return rule.TagRule{}, errors.Wrapf(ErrInvalidCorpus, "index %d outside %d words", *entry.Index, ctx.Len())
		}
	}
	return rule.NewTagRule(ctx, idx, sig), nil
}

func resolve(ont ontology.Ontology, name string) (ontology.Signature, error) {
	sig, ok := ont.Lookup(name)
	if !ok {
		return ontology.Signature{}, errors.WithHint(
			errors.Wrapf(ontology.ErrSignatureNotFound, "%q", name),
			"declare the signature in the ontology file",
		)
	}
	return sig, nil
}
