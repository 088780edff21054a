package rule

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/cockroachdb/errors"
)

// Index is an optional word position. None marks an unanchored slot, i.e. a
// signature inserted without a supporting word.
type Index int

const None Index = -1

func At(i int) Index {
	if i < 0 {
		return None
	}
	return Index(i)
}

func (i Index) Anchored() bool { return i >= 0 }

func (i Index) String() string {
	if !i.Anchored() {
		return "none"
	}
	return strconv.Itoa(int(i))
}

func (i Index) MarshalJSON() ([]byte, error) {
	if !i.Anchored() {
		return []byte("null"), nil
	}
	return []byte(strconv.Itoa(int(i))), nil
}

func (i *Index) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*i = None
		return nil
	}
	var v int
	if err := json.Unmarshal(data, &v); err != nil {
		return errors.Wrap(err, "decode index")
	}
	if v < 0 {
		return errors.Newf("index %d is negative; use null for unanchored", v)
	}
	*i = Index(v)
	return nil
}
