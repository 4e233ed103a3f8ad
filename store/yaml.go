package store

import (
	"encoding/json"
	"io"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"
)

// Library is the YAML form of a whole store, for moving definitions between
// machines or editing them by hand.
type Library struct {
	Constants []ConstRecord `yaml:"constants,omitempty"`
	Functions []FuncEntry   `yaml:"functions,omitempty"`
}

// FuncEntry is the YAML form of a FuncRecord. The template stays JSON text,
// which reads better than the nested node structure.
type FuncEntry struct {
	Name       string         `yaml:"name"`
	Mapping    map[string]int `yaml:"mapping"`
	Args       []string       `yaml:"args,flow"`
	Expression string         `yaml:"expression"`
}

// ExportYAML writes every definition in definition order.
func (s *Store) ExportYAML(w io.Writer) error {
	var lib Library
	var err error
	if lib.Constants, err = s.Constants(); err != nil {
		return err
	}
	funcs, err := s.Functions()
	if err != nil {
		return err
	}
	for _, f := range funcs {
		lib.Functions = append(lib.Functions, FuncEntry{
			Name:       f.Name,
			Mapping:    f.Mapping,
			Args:       f.Args,
			Expression: string(f.Expression),
		})
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&lib); err != nil {
		return errors.Wrap(err, "writing library")
	}
	return enc.Close()
}

// ImportYAML saves every definition from a library written by ExportYAML, in
// the order given. Definitions that fail do not stop the others; the error
// collects every failure.
func (s *Store) ImportYAML(r io.Reader) error {
	var lib Library
	if err := yaml.NewDecoder(r).Decode(&lib); err != nil && err != io.EOF {
		return errors.Wrap(err, "reading library")
	}
	var errs error
	for _, c := range lib.Constants {
		if c.Name == "" {
			errs = multierror.Append(errs, errors.New("constant without a name"))
			continue
		}
		if err := s.PutConstant(c.Name, c.Value); err != nil {
			errs = multierror.Append(errs, errors.Wrapf(err, "saving constant %q", c.Name))
		}
	}
	for _, f := range lib.Functions {
		if f.Name == "" {
			errs = multierror.Append(errs, errors.New("function without a name"))
			continue
		}
		if !gjson.Valid(f.Expression) {
			errs = multierror.Append(errs, errors.Errorf("function %q: expression is not valid JSON", f.Name))
			continue
		}
		rec := FuncRecord{
			Name:       f.Name,
			Mapping:    f.Mapping,
			Args:       f.Args,
			Expression: json.RawMessage(f.Expression),
		}
		if err := s.PutFunction(rec); err != nil {
			errs = multierror.Append(errs, errors.Wrapf(err, "saving function %q", f.Name))
		}
	}
	return errs
}
