package util

import (
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// ReadYAMLInto reads all of r and unmarshals it into data. The reader is
// closed when done.
func ReadYAMLInto(r io.ReadCloser, data interface{}) error {
	defer r.Close()
	contents, err := io.ReadAll(r)
	if err != nil {
		return errors.Wrap(err, "reading yaml")
	}
	return UnmarshalYAMLStrictWithFallback(contents, data)
}

// ReadFromYAMLFile unmarshals the YAML file fn into data.
func ReadFromYAMLFile(fn string, data interface{}) error {
	if _, err := os.Stat(fn); os.IsNotExist(err) {
		return errors.Errorf("file '%s' does not exist", fn)
	}

	file, err := os.Open(fn)
	if err != nil {
		return errors.Wrapf(err, "opening file '%s'", fn)
	}

	return errors.Wrapf(ReadYAMLInto(file, data), "reading yaml from '%s'", fn)
}

// UnmarshalYAMLStrictWithFallback rejects documents that define a key more
// than once. Other strict-mode failures, such as fields that do not exist in
// data, fall back to a lenient unmarshal.
func UnmarshalYAMLStrictWithFallback(in []byte, data interface{}) error {
	err := yaml.UnmarshalStrict(in, data)
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "already set") {
		return errors.Wrap(err, "duplicate key")
	}
	return errors.WithStack(yaml.Unmarshal(in, data))
}
