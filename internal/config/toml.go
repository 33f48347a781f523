package config

import (
	"github.com/pelletier/go-toml"
)

// TOML is a koanf parser backed by go-toml.
type TOML struct{}

func TOMLParser() *TOML { return &TOML{} }

func (*TOML) Unmarshal(b []byte) (map[string]any, error) {
	tree, err := toml.LoadBytes(b)
	if err != nil {
		return nil, err
	}
	return tree.ToMap(), nil
}

func (*TOML) Marshal(m map[string]any) ([]byte, error) {
	tree, err := toml.TreeFromMap(m)
	if err != nil {
		return nil, err
	}
	return tree.Marshal()
}
