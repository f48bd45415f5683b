package model

import (
	"encoding/gob"
	"io"
	"os"

	"github.com/regressio/regressio/pkg/errors"
)

// Dump saves a value to a file in gob format. The saved object round-trips
// exactly through Load.
func Dump(value interface{}, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return errors.Wrapf(err, "failed to create %s", filename)
	}
	defer file.Close()

	if err := gob.NewEncoder(file).Encode(value); err != nil {
		return errors.Wrap(err, "failed to encode value")
	}
	return nil
}

// Load reads a gob-encoded value from a file into the pointer value.
func Load(value interface{}, filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return errors.Wrapf(err, "failed to open %s", filename)
	}
	defer file.Close()

	if err := gob.NewDecoder(file).Decode(value); err != nil {
		return errors.Wrap(err, "failed to decode value")
	}
	return nil
}

// DumpTo writes a gob-encoded value to w.
func DumpTo(value interface{}, w io.Writer) error {
	if err := gob.NewEncoder(w).Encode(value); err != nil {
		return errors.Wrap(err, "failed to encode value")
	}
	return nil
}

// LoadFrom reads a gob-encoded value from r into the pointer value.
func LoadFrom(value interface{}, r io.Reader) error {
	if err := gob.NewDecoder(r).Decode(value); err != nil {
		return errors.Wrap(err, "failed to decode value")
	}
	return nil
}
