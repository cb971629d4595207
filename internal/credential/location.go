// Package credential resolves configuration-level credential locations
// (environment variables, files, dynamic lookup keys, SDK passthrough) into
// the model.Credential sum type, and provides a race-tolerant single-init
// cache for default-location credentials shared across provider instances.
package credential

import (
	"fmt"
	"strings"
)

// LocationKind discriminates the credential-location grammar described in
// the gateway's configuration contract: env::NAME, path_from_env::NAME,
// path::FILE, dynamic::KEY, sdk, none.
type LocationKind string

const (
	KindEnv          LocationKind = "env"
	KindPathFromEnv  LocationKind = "path_from_env"
	KindPath         LocationKind = "path"
	KindDynamic      LocationKind = "dynamic"
	KindSDK          LocationKind = "sdk"
	KindNone         LocationKind = "none"
)

// Location is a parsed credential-location string.
type Location struct {
	Kind LocationKind
	Arg  string
}

// ParseLocation parses the "kind::arg" grammar ("sdk" and "none" take no
// argument).
func ParseLocation(s string) (Location, error) {
	switch {
	case s == "sdk":
		return Location{Kind: KindSDK}, nil
	case s == "none":
		return Location{Kind: KindNone}, nil
	}
	kind, arg, ok := strings.Cut(s, "::")
	if !ok {
		return Location{}, fmt.Errorf("credential: malformed location %q", s)
	}
	switch LocationKind(kind) {
	case KindEnv, KindPathFromEnv, KindPath, KindDynamic:
		if arg == "" {
			return Location{}, fmt.Errorf("credential: location %q requires a non-empty argument", s)
		}
		return Location{Kind: LocationKind(kind), Arg: arg}, nil
	default:
		return Location{}, fmt.Errorf("credential: unknown location kind %q", kind)
	}
}
