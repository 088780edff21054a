package semantic

import (
	"github.com/cockroachdb/errors"

	"geosem/internal/ontology"
	"geosem/internal/rule"
)

// Slot is a parent node awaiting its arguments.
type Slot struct {
	Context         *rule.Context
	ParentIndex     rule.Index
	ParentSignature ontology.Signature
	// Exclude lists word positions that may not fill the slot. The parent's
	// own position is always excluded.
	Exclude []rule.Index
	// Lifted are extra tag-rule hints, typically the tag rules of the rule
	// being scored.
	Lifted []rule.TagRule
}

// SlotOf returns the slot an observed rule fills, using the rule's own tag
// rules as lifted hints.
func SlotOf(r rule.SemanticRule) Slot {
	return Slot{
		Context:         r.Context(),
		ParentIndex:     r.ParentIndex(),
		ParentSignature: r.ParentSignature(),
		Lifted:          rule.TagRules(r),
	}
}

func (m *Model) validateSlot(slot Slot) error {
	if slot.Context == nil {
		return errors.Wrap(ErrContractViolation, "slot has no context")
	}
	sig := slot.ParentSignature
	if err := sig.Validate(); err != nil {
		return errors.Wrapf(ErrContractViolation, "parent signature: %v", err)
	}
	if sig.Arity != 1 && sig.Arity != 2 {
		return errors.Wrapf(ErrContractViolation, "parent signature %s has arity %d", sig, sig.Arity)
	}
	registered, ok := m.ontology.Lookup(sig.Name)
	if !ok || registered != sig {
		return errors.WithHint(
			errors.Wrapf(ErrContractViolation, "parent signature %s is not registered", sig),
			"parent signatures must come from the model's ontology",
		)
	}
	if slot.ParentIndex.Anchored() && !slot.Context.Contains(slot.ParentIndex) {
		return errors.Wrapf(ErrContractViolation, "parent index %s outside %d words", slot.ParentIndex, slot.Context.Len())
	}
	return nil
}
