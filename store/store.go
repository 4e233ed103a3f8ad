// Package store keeps a persistent library of named constants and
// user-defined functions for keycalc registries.
package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"

	"github.com/zephyrtronium/keycalc"
)

var (
	constBucket = []byte("constants")
	funcBucket  = []byte("functions")
)

// ConstRecord is a saved named constant.
type ConstRecord struct {
	Name  string  `json:"name" yaml:"name"`
	Value float64 `json:"value" yaml:"value"`
	// Seq orders records by definition.
	Seq uint64 `json:"seq" yaml:"-"`
}

// FuncRecord is a saved user-defined function.
type FuncRecord struct {
	Name string `json:"name"`
	// Mapping maps argument names to argument indices.
	Mapping map[string]int `json:"mapping"`
	// Args lists the argument names in index order.
	Args []string `json:"args"`
	// Expression is the encoded template.
	Expression json.RawMessage `json:"expression"`
	Seq        uint64          `json:"seq"`
}

// FuncRecordOf creates a record for a user-defined operator.
func FuncRecordOf(v keycalc.Value) (FuncRecord, error) {
	u := v.UserFunc()
	if u == nil {
		return FuncRecord{}, errors.Errorf("%q is not a user-defined function", v.Name())
	}
	b, err := keycalc.Encode(u.Template())
	if err != nil {
		return FuncRecord{}, errors.Wrapf(err, "encoding %q", v.Name())
	}
	return FuncRecord{
		Name:       v.Name(),
		Mapping:    u.Args(),
		Args:       u.ArgNames(),
		Expression: b,
	}, nil
}

// Define decodes the record's template with reg and registers the function.
func (r FuncRecord) Define(reg *keycalc.Registry) (keycalc.Value, error) {
	tree, err := reg.Decode(r.Expression)
	if err != nil {
		return keycalc.Value{}, errors.Wrapf(err, "decoding %q", r.Name)
	}
	v, err := reg.Define(r.Name, r.Mapping, tree)
	if err != nil {
		return keycalc.Value{}, errors.Wrapf(err, "defining %q", r.Name)
	}
	return v, nil
}

// Store is a library backed by a bbolt database. A Store is safe for
// concurrent use.
type Store struct {
	db *bolt.DB
}

// Open opens or creates the library at path, creating its directory if
// needed.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.Wrap(err, "creating library directory")
	}
	db, err := bolt.Open(path, 0644, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "opening library %s", path)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{constBucket, funcBucket} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "initializing library")
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the location of the database.
func (s *Store) Path() string {
	return s.db.Path()
}

// PutConstant saves a constant, replacing any constant or function with the
// same name.
func (s *Store) PutConstant(name string, x float64) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return put(tx, constBucket, name, func(seq uint64) any {
			return ConstRecord{Name: name, Value: x, Seq: seq}
		})
	})
}

// PutFunction saves a function, replacing any constant or function with the
// same name. The function becomes the most recent definition.
func (s *Store) PutFunction(r FuncRecord) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return put(tx, funcBucket, r.Name, func(seq uint64) any {
			r.Seq = seq
			return r
		})
	})
}

// put writes a record under name in bucket and removes name from the other
// buckets. The sequence number comes from the function bucket so that
// constants and functions share one definition order.
func put(tx *bolt.Tx, bucket []byte, name string, rec func(seq uint64) any) error {
	seq, err := tx.Bucket(funcBucket).NextSequence()
	if err != nil {
		return err
	}
	b, err := json.Marshal(rec(seq))
	if err != nil {
		return errors.Wrapf(err, "encoding %q", name)
	}
	for _, other := range [][]byte{constBucket, funcBucket} {
		if err := tx.Bucket(other).Delete([]byte(name)); err != nil {
			return err
		}
	}
	return tx.Bucket(bucket).Put([]byte(name), b)
}

// Delete removes a name. It reports whether the name was present.
func (s *Store) Delete(name string) (bool, error) {
	var found bool
	err := s.db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{constBucket, funcBucket} {
			b := tx.Bucket(bucket)
			if b.Get([]byte(name)) == nil {
				continue
			}
			found = true
			if err := b.Delete([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	})
	return found, err
}

// Constants returns the saved constants in definition order.
func (s *Store) Constants() ([]ConstRecord, error) {
	var recs []ConstRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(constBucket).ForEach(func(k, v []byte) error {
			var r ConstRecord
			if err := json.Unmarshal(v, &r); err != nil {
				return errors.Wrapf(err, "reading constant %q", k)
			}
			recs = append(recs, r)
			return nil
		})
	})
	slices.SortFunc(recs, func(a, b ConstRecord) int { return cmpSeq(a.Seq, b.Seq) })
	return recs, err
}

// Functions returns the saved functions in definition order.
func (s *Store) Functions() ([]FuncRecord, error) {
	var recs []FuncRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(funcBucket).ForEach(func(k, v []byte) error {
			var r FuncRecord
			if err := json.Unmarshal(v, &r); err != nil {
				return errors.Wrapf(err, "reading function %q", k)
			}
			recs = append(recs, r)
			return nil
		})
	})
	slices.SortFunc(recs, func(a, b FuncRecord) int { return cmpSeq(a.Seq, b.Seq) })
	return recs, err
}

func cmpSeq(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// LoadInto registers every saved constant, then every saved function in
// definition order, so that functions can use earlier definitions. Records
// that fail do not stop the others; the error collects every failure.
func (s *Store) LoadInto(reg *keycalc.Registry) error {
	consts, err := s.Constants()
	if err != nil {
		return err
	}
	funcs, err := s.Functions()
	if err != nil {
		return err
	}
	for _, c := range consts {
		reg.RegisterConstant(c.Name, c.Value)
	}
	var errs error
	for _, f := range funcs {
		if _, err := f.Define(reg); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	return errs
}
