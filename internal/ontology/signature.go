package ontology

import (
	"strings"

	"github.com/cockroachdb/errors"
)

// MaxArity is the largest argument count a signature may declare.
const MaxArity = 2

// Type names a node of the type lattice.
type Type string

// Signature describes a function symbol: its name, ordered argument types and
// return type. Arguments live in a fixed array so that Signature stays
// comparable and can key maps.
type Signature struct {
	Name       string
	ReturnType Type
	Arity      int
	Args       [MaxArity]Type
}

var ErrInvalidSignature = errors.New("invalid signature")

func NewSignature(name string, returnType Type, args ...Type) (Signature, error) {
	sig := Signature{Name: name, ReturnType: returnType, Arity: len(args)}
	if len(args) > MaxArity {
		return Signature{}, errors.Wrapf(ErrInvalidSignature, "%s: arity %d exceeds %d", name, len(args), MaxArity)
	}
	copy(sig.Args[:], args)
	if err := sig.Validate(); err != nil {
		return Signature{}, err
	}
	return sig, nil
}

func MustSignature(name string, returnType Type, args ...Type) Signature {
	sig, err := NewSignature(name, returnType, args...)
	if err != nil {
		panic(err)
	}
	return sig
}

// Validate checks the structural well-formedness of the signature. It does
// not consult any registry.
func (s Signature) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return errors.Wrap(ErrInvalidSignature, "name is required")
	}
	if s.ReturnType == "" {
		return errors.Wrapf(ErrInvalidSignature, "%s: return type is required", s.Name)
	}
	if s.Arity < 0 || s.Arity > MaxArity {
		return errors.Wrapf(ErrInvalidSignature, "%s: arity %d out of range", s.Name, s.Arity)
	}
	for i := 0; i < MaxArity; i++ {
		switch {
		case i < s.Arity && s.Args[i] == "":
			return errors.Wrapf(ErrInvalidSignature, "%s: argument %d has no type", s.Name, i)
		case i >= s.Arity && s.Args[i] != "":
			return errors.Wrapf(ErrInvalidSignature, "%s: argument %d set beyond arity %d", s.Name, i, s.Arity)
		}
	}
	return nil
}

func (s Signature) ArgTypes() []Type {
	out := make([]Type, s.Arity)
	copy(out, s.Args[:s.Arity])
	return out
}

func (s Signature) IsUnary() bool  { return s.Arity == 1 }
func (s Signature) IsBinary() bool { return s.Arity == 2 }

func (s Signature) String() string {
	args := make([]string, 0, s.Arity)
	for _, arg := range s.ArgTypes() {
		args = append(args, string(arg))
	}
	return s.Name + "(" + strings.Join(args, ",") + ")->" + string(s.ReturnType)
}
