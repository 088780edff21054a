package ontology

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const geometryYAML = `
types:
  - name: entity
  - name: shape
    supertypes: [entity]
  - name: region
    supertypes: [entity]
signatures:
  - name: Square
    return: shape
  - name: RegionOf
    return: region
    args: [shape]
`

func TestLoadBuildsRegistry(t *testing.T) {
	reg, err := Load(strings.NewReader(geometryYAML))
	require.NoError(t, err)

	sig, ok := reg.Lookup("RegionOf")
	require.True(t, ok)
	assert.Equal(t, MustSignature("RegionOf", "region", "shape"), sig)
	assert.True(t, reg.IsSubtype("shape", "entity"))
	assert.Equal(t, []Type{"entity", "region", "shape"}, reg.Types())
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	_, err := Load(strings.NewReader("types:\n  - name: a\n    parent: b\n"))
	require.Error(t, err)
}

func TestLoadRejectsOutOfOrderTypes(t *testing.T) {
	_, err := Load(strings.NewReader("types:\n  - name: shape\n    supertypes: [entity]\n  - name: entity\n"))
	require.ErrorIs(t, err, ErrUnknownType)
}

func TestLoadEmptyDocument(t *testing.T) {
	reg, err := Load(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, reg.Signatures())
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
