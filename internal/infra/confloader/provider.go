package confloader

import "errors"

// mapProvider adapts a plain map to koanf's provider interface.
// Only Read is meaningful; koanf probes ReadBytes first.
type mapProvider map[string]any

func (m mapProvider) ReadBytes() ([]byte, error) {
	return nil, errors.New("confloader: map provider has no byte form")
}

func (m mapProvider) Read() (map[string]any, error) {
	return m, nil
}
