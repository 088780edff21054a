package semantic

import (
	"github.com/cockroachdb/errors"

	"geosem/internal/ontology"
	"geosem/internal/rule"
)

// Candidates returns every rule admissible at the slot. The expansion is
// chosen by the parent signature's arity.
func (m *Model) Candidates(slot Slot) ([]rule.SemanticRule, error) {
	if err := m.validateSlot(slot); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	return expand(m.ontology, state{impliable: m.impliable, localities: m.localities}, slot), nil
}

func (m *Model) UnaryCandidates(slot Slot) ([]rule.UnaryRule, error) {
	if err := m.validateSlot(slot); err != nil {
		return nil, err
	}
	if !slot.ParentSignature.IsUnary() {
		return nil, errors.Wrapf(ErrContractViolation, "unary expansion of %s", slot.ParentSignature)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	return expandUnary(m.ontology, state{impliable: m.impliable, localities: m.localities}, slot), nil
}

func (m *Model) BinaryCandidates(slot Slot) ([]rule.BinaryRule, error) {
	if err := m.validateSlot(slot); err != nil {
		return nil, err
	}
	if !slot.ParentSignature.IsBinary() {
		return nil, errors.Wrapf(ErrContractViolation, "binary expansion of %s", slot.ParentSignature)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	return expandBinary(m.ontology, state{impliable: m.impliable, localities: m.localities}, slot), nil
}

// expand assumes a validated slot.
func expand(ont ontology.Ontology, st state, slot Slot) []rule.SemanticRule {
	var out []rule.SemanticRule
	switch slot.ParentSignature.Arity {
	case 1:
		unary := expandUnary(ont, st, slot)
		out = make([]rule.SemanticRule, 0, len(unary))
		for _, r := range unary {
			out = append(out, r)
		}
	case 2:
		binary := expandBinary(ont, st, slot)
		out = make([]rule.SemanticRule, 0, len(binary))
		for _, r := range binary {
			out = append(out, r)
		}
	}
	return out
}

func expandUnary(ont ontology.Ontology, st state, slot Slot) []rule.UnaryRule {
	parent := slot.ParentSignature
	var out []rule.UnaryRule
	for _, child := range tagCandidates(ont, st, slot) {
		if ont.IsSubtype(child.Signature.ReturnType, parent.Args[0]) {
			out = append(out, rule.NewUnaryRule(slot.Context, slot.ParentIndex, parent, child))
		}
	}
	return out
}

// expandBinary pairs the slot's single candidate set with itself. The same
// tag rule may fill both arguments.
func expandBinary(ont ontology.Ontology, st state, slot Slot) []rule.BinaryRule {
	parent := slot.ParentSignature
	candidates := tagCandidates(ont, st, slot)

	var first, second []rule.TagRule
	for _, c := range candidates {
		if ont.IsSubtype(c.Signature.ReturnType, parent.Args[0]) {
			first = append(first, c)
		}
		if ont.IsSubtype(c.Signature.ReturnType, parent.Args[1]) {
			second = append(second, c)
		}
	}

	out := make([]rule.BinaryRule, 0, len(first)*len(second))
	for _, a := range first {
		for _, b := range second {
			out = append(out, rule.NewBinaryRule(slot.Context, slot.ParentIndex, parent, a, b))
		}
	}
	return out
}
