package semantic

import (
	"geosem/internal/ontology"
	"geosem/internal/rule"
)

// TagCandidates enumerates the tag rules that may fill one argument of the
// slot: tagged words, lifted hints, and unanchored insertions of impliable
// signatures. Anchored candidates are restricted to the parent tag's
// locality window and never include an excluded position. Unanchored
// candidates are kept only when their signature is impliable.
func (m *Model) TagCandidates(slot Slot) ([]rule.TagRule, error) {
	if err := m.validateSlot(slot); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	return tagCandidates(m.ontology, state{impliable: m.impliable, localities: m.localities}, slot), nil
}

func tagCandidates(ont ontology.Ontology, st state, slot Slot) []rule.TagRule {
	ctx := slot.Context

	excluded := make(map[rule.Index]bool, len(slot.Exclude)+1)
	for _, idx := range slot.Exclude {
		excluded[idx] = true
	}
	if slot.ParentIndex.Anchored() {
		excluded[slot.ParentIndex] = true
	}

	lo, hi, windowed := localityWindow(st, slot)

	var out []rule.TagRule
	seen := make(map[rule.TagRule]bool)
	admit := func(t rule.TagRule) {
		t.Context = ctx
		if excluded[t.Index] || seen[t] {
			return
		}
		if t.Anchored() {
			if !ctx.Contains(t.Index) {
				return
			}
			if windowed && (int(t.Index) < lo || int(t.Index) > hi) {
				return
			}
		} else if _, ok := st.impliable[t.Signature]; !ok {
			return
		}
		seen[t] = true
		out = append(out, t)
	}

	for i := 0; i < ctx.Len(); i++ {
		if sig, ok := ctx.Tags[i]; ok {
			admit(rule.NewTagRule(ctx, rule.At(i), sig))
		}
	}
	for _, hint := range slot.Lifted {
		admit(hint)
	}
	for _, sig := range ont.Signatures() {
		if _, ok := st.impliable[sig]; ok {
			admit(rule.NewTagRule(ctx, rule.None, sig))
		}
	}
	return out
}

func localityWindow(st state, slot Slot) (lo, hi int, ok bool) {
	tag, tagged := slot.Context.Tag(slot.ParentIndex)
	if !tagged {
		return 0, 0, false
	}
	radius, ok := st.localities[tag.Name]
	if !ok {
		return 0, 0, false
	}
	p := int(slot.ParentIndex)
	return p - radius, p + radius, true
}
