package pipeline

import (
	"os"

	"github.com/BurntSushi/toml"

	"github.com/urbanweave/streetscope/pkg/errors"
)

// LoadConfig reads pipeline options from a TOML run configuration file.
// Relative input paths inside the file are interpreted relative to the
// working directory, not the config file.
func LoadConfig(path string) (Options, error) {
	var opts Options
	meta, err := toml.DecodeFile(path, &opts)
	if err != nil {
		return Options{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse config %s", path)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Options{}, errors.New(errors.ErrCodeInvalidInput,
			"unknown config key %q in %s", undecoded[0].String(), path)
	}
	return opts, nil
}

// readFile loads an input file, mapping failures to pipeline errors.
func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read %s", path)
	}
	return data, nil
}
