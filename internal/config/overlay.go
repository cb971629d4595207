package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/inferly/gatewaycore/internal/model"
)

// OverlayPreset is a named, statically-configured extra_body/extra_headers
// bundle (§3's ModelProvider.extra_body/extra_headers overlay) that a
// deployment can hand a ModelProvider at wiring time instead of
// constructing []model.ExtraBodyEntry literals in Go for every provider.
// This is deliberately just data: it carries no provider/model/function
// topology, so it does not reintroduce the dynamic per-deployment registry
// spec.md places out of scope (cmd/gateway still wires routing.Model/
// function.Function by hand).
type OverlayPreset struct {
	Headers map[string]string `yaml:"headers"`
	Body    []OverlayEntry    `yaml:"body"`
}

// OverlayEntry mirrors model.ExtraBodyEntry in YAML-friendly form.
type OverlayEntry struct {
	Pointer string `yaml:"pointer"`
	Value   any    `yaml:"value"`
}

// ToExtraBody converts the YAML-decoded entries into the
// []model.ExtraBodyEntry shape providers consume.
func (p OverlayPreset) ToExtraBody() []model.ExtraBodyEntry {
	out := make([]model.ExtraBodyEntry, len(p.Body))
	for i, e := range p.Body {
		out[i] = model.ExtraBodyEntry{Pointer: e.Pointer, Value: e.Value}
	}
	return out
}

// LoadOverlayPresets reads a YAML document mapping preset name to
// OverlayPreset, following the same "small static YAML fixture" pattern
// the pack's repos use for fixture and example data rather than for
// runtime service discovery.
func LoadOverlayPresets(path string) (map[string]OverlayPreset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading overlay presets %q: %w", path, err)
	}
	var presets map[string]OverlayPreset
	if err := yaml.Unmarshal(data, &presets); err != nil {
		return nil, fmt.Errorf("config: parsing overlay presets %q: %w", path, err)
	}
	return presets, nil
}
