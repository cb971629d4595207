package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadOverlayPresets(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "overlays.yaml")
	writeFile(t, path, `
together-metadata:
  headers:
    X-Deployment: canary
  body:
    - pointer: /metadata/tag
      value: gateway-canary
    - pointer: /safety_mode
      value: strict
`)

	presets, err := LoadOverlayPresets(path)
	require.NoError(t, err)
	require.Contains(t, presets, "together-metadata")

	p := presets["together-metadata"]
	require.Equal(t, "canary", p.Headers["X-Deployment"])
	require.Equal(t, []OverlayEntry{
		{Pointer: "/metadata/tag", Value: "gateway-canary"},
		{Pointer: "/safety_mode", Value: "strict"},
	}, p.Body)

	body := p.ToExtraBody()
	require.Len(t, body, 2)
	require.Equal(t, "/metadata/tag", body[0].Pointer)
	require.Equal(t, "gateway-canary", body[0].Value)
}

func TestLoadOverlayPresetsMissingFile(t *testing.T) {
	_, err := LoadOverlayPresets(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
}
