package ontology

import (
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

type document struct {
	Types      []typeEntry      `yaml:"types"`
	Signatures []signatureEntry `yaml:"signatures"`
}

type typeEntry struct {
	Name       string   `yaml:"name"`
	Supertypes []string `yaml:"supertypes"`
}

type signatureEntry struct {
	Name   string   `yaml:"name"`
	Return string   `yaml:"return"`
	Args   []string `yaml:"args"`
}

// Load reads a YAML ontology of the form
//
//	types:
//	  - name: entity
//	  - name: shape
//	    supertypes: [entity]
//	signatures:
//	  - name: Square
//	    return: shape
//	  - name: AreaOf
//	    return: number
//	    args: [shape]
func Load(r io.Reader) (*Registry, error) {
	var doc document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return NewRegistry(), nil
		}
		return nil, errors.Wrap(err, "decode ontology")
	}

	reg := NewRegistry()
	for _, entry := range doc.Types {
		supers := make([]Type, 0, len(entry.Supertypes))
		for _, s := range entry.Supertypes {
			supers = append(supers, Type(s))
		}
		if err := reg.AddType(Type(entry.Name), supers...); err != nil {
			return nil, err
		}
	}
	for _, entry := range doc.Signatures {
		args := make([]Type, 0, len(entry.Args))
		for _, a := range entry.Args {
			args = append(args, Type(a))
		}
		sig, err := NewSignature(entry.Name, Type(entry.Return), args...)
		if err != nil {
			return nil, err
		}
		if err := reg.AddSignature(sig); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

func LoadFile(path string) (*Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open ontology %s", path)
	}
	defer f.Close()

	reg, err := Load(f)
	if err != nil {
		return nil, errors.Wrapf(err, "load ontology %s", path)
	}
	return reg, nil
}
