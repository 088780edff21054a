package ontology

import (
	"sort"
	"sync"

	"github.com/cockroachdb/errors"
)

var (
	ErrTypeExists        = errors.New("type already registered")
	ErrUnknownType       = errors.New("type not registered")
	ErrSignatureExists   = errors.New("signature already registered")
	ErrSignatureNotFound = errors.New("signature not found")
)

// Ontology is the read-only view of the type lattice and the function
// signatures defined over it.
type Ontology interface {
	// Signatures returns every registered signature in registration order.
	Signatures() []Signature
	Lookup(name string) (Signature, bool)
	// IsSubtype is reflexive and transitive over declared supertypes.
	IsSubtype(sub, sup Type) bool
}

// Registry is an in-memory Ontology. Types must be registered before they are
// used as supertypes or in signatures, which keeps the lattice acyclic.
type Registry struct {
	mu         sync.RWMutex
	supertypes map[Type][]Type
	order      []string
	signatures map[string]Signature
}

func NewRegistry() *Registry {
	return &Registry{
		supertypes: make(map[Type][]Type),
		signatures: make(map[string]Signature),
	}
}

func (r *Registry) AddType(t Type, supertypes ...Type) error {
	if t == "" {
		return errors.New("type name is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.supertypes[t]; exists {
		return errors.Wrapf(ErrTypeExists, "%s", t)
	}
	for _, sup := range supertypes {
		if _, ok := r.supertypes[sup]; !ok {
			return errors.WithHint(
				errors.Wrapf(ErrUnknownType, "supertype %s of %s", sup, t),
				"declare supertypes before their subtypes",
			)
		}
	}
	r.supertypes[t] = append([]Type(nil), supertypes...)
	return nil
}

func (r *Registry) AddSignature(sig Signature) error {
	if err := sig.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.signatures[sig.Name]; exists {
		return errors.Wrapf(ErrSignatureExists, "%s", sig.Name)
	}
	if _, ok := r.supertypes[sig.ReturnType]; !ok {
		return errors.Wrapf(ErrUnknownType, "return type %s of %s", sig.ReturnType, sig.Name)
	}
	for _, arg := range sig.ArgTypes() {
		if _, ok := r.supertypes[arg]; !ok {
			return errors.Wrapf(ErrUnknownType, "argument type %s of %s", arg, sig.Name)
		}
	}
	r.signatures[sig.Name] = sig
	r.order = append(r.order, sig.Name)
	return nil
}

func (r *Registry) MustAddSignature(sig Signature) {
	if err := r.AddSignature(sig); err != nil {
		panic(err)
	}
}

func (r *Registry) Signatures() []Signature {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Signature, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.signatures[name])
	}
	return out
}

func (r *Registry) Lookup(name string) (Signature, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sig, ok := r.signatures[name]
	return sig, ok
}

// Require returns the named signature or an error wrapping
// ErrSignatureNotFound.
func (r *Registry) Require(name string) (Signature, error) {
	sig, ok := r.Lookup(name)
	if !ok {
		return Signature{}, errors.Wrapf(ErrSignatureNotFound, "%s", name)
	}
	return sig, nil
}

func (r *Registry) IsSubtype(sub, sup Type) bool {
	if sub == sup {
		return true
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := map[Type]bool{sub: true}
	frontier := []Type{sub}
	for len(frontier) > 0 {
		current := frontier[len(frontier)-1]
		frontier = frontier[:len(frontier)-1]
		for _, parent := range r.supertypes[current] {
			if parent == sup {
				return true
			}
			if !seen[parent] {
				seen[parent] = true
				frontier = append(frontier, parent)
			}
		}
	}
	return false
}

func (r *Registry) Types() []Type {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Type, 0, len(r.supertypes))
	for t := range r.supertypes {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
