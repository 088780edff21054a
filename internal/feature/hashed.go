package feature

import (
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/cockroachdb/errors"

	"geosem/internal/rule"
)

const HashedName = "hashed"

// Hashed is an indicator feature function that hashes symbolic features of a
// rule into a fixed number of buckets. The top hash bit picks the sign so
// that collisions cancel in expectation.
type Hashed struct {
	dim int
}

func NewHashed(dim int) (*Hashed, error) {
	if dim <= 0 {
		return nil, errors.Newf("hashed feature dimension must be positive, got %d", dim)
	}
	return &Hashed{dim: dim}, nil
}

func (h *Hashed) Dim() int { return h.dim }

func (h *Hashed) Evaluate(r rule.SemanticRule) []float64 {
	vec := make([]float64, h.dim)
	for _, name := range Names(r) {
		bucket, sign := h.bucket(name)
		vec[bucket] += sign
	}
	return vec
}

func (h *Hashed) bucket(name string) (int, float64) {
	sum := xxhash.Sum64String(name)
	sign := 1.0
	if sum>>63 == 1 {
		sign = -1
	}
	return int(sum % uint64(h.dim)), sign
}

// Names lists the symbolic features of a rule before hashing.
func Names(r rule.SemanticRule) []string {
	parent := r.ParentSignature().Name
	names := []string{"bias", "parent=" + parent}

	for slot, child := range r.Children() {
		prefix := "arg" + strconv.Itoa(slot)
		names = append(names,
			prefix+"="+child.Signature.Name,
			prefix+"|"+parent+"="+child.Signature.Name,
		)
		if !child.Anchored() {
			names = append(names, prefix+".lifted="+child.Signature.Name)
			continue
		}
		if word, ok := r.Context().Word(child.Index); ok {
			names = append(names, prefix+".word="+word+"|"+child.Signature.Name)
		}
		if r.ParentIndex().Anchored() {
			names = append(names, prefix+".dist="+distanceBucket(int(child.Index)-int(r.ParentIndex())))
		}
	}

	if r.Arity() == 2 {
		children := r.Children()
		a, b := children[0], children[1]
		switch {
		case a == b:
			names = append(names, "pair=self")
		case a.Anchored() && b.Anchored() && a.Index < b.Index:
			names = append(names, "pair=ordered")
		case a.Anchored() && b.Anchored():
			names = append(names, "pair=reversed")
		}
	}
	return names
}

func distanceBucket(d int) string {
	sign := "+"
	if d < 0 {
		sign = "-"
		d = -d
	}
	switch {
	case d <= 1:
		return sign + strconv.Itoa(d)
	case d <= 3:
		return sign + "near"
	case d <= 7:
		return sign + "mid"
	default:
		return sign + "far"
	}
}
