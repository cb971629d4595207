package credential

import (
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"github.com/inferly/gatewaycore/internal/model"
)

// SkipValidation is the process-wide toggle from §6: when true, a missing
// Env/PathFromEnv credential demotes to model.MissingCredential instead of
// failing closed. It is one of the small set of globals this package
// permits (see DESIGN.md).
var SkipValidation atomic.Bool

// MissingCredentialError signals that a required credential could not be
// located and validation-skip is not active.
type MissingCredentialError struct {
	ProviderType string
	Detail       string
}

func (e *MissingCredentialError) Error() string {
	return fmt.Sprintf("credential: missing credential for provider %q: %s", e.ProviderType, e.Detail)
}

// Resolve resolves a parsed Location into a model.Credential for the named
// provider type, applying the fail-closed/validation-skip rule from §4.1.
func Resolve(loc Location, providerType string) (model.Credential, error) {
	switch loc.Kind {
	case KindEnv:
		v, ok := os.LookupEnv(loc.Arg)
		if !ok {
			if SkipValidation.Load() {
				return model.MissingCredential{}, nil
			}
			return nil, &MissingCredentialError{ProviderType: providerType, Detail: fmt.Sprintf("environment variable %q is not set", loc.Arg)}
		}
		return model.StaticCredential{Secret: v}, nil

	case KindPathFromEnv:
		pathVar, ok := os.LookupEnv(loc.Arg)
		if !ok {
			if SkipValidation.Load() {
				return model.MissingCredential{}, nil
			}
			return nil, &MissingCredentialError{ProviderType: providerType, Detail: fmt.Sprintf("environment variable %q is not set", loc.Arg)}
		}
		contents, err := os.ReadFile(pathVar)
		if err != nil {
			if SkipValidation.Load() {
				return model.MissingCredential{}, nil
			}
			return nil, &MissingCredentialError{ProviderType: providerType, Detail: fmt.Sprintf("reading %q: %v", pathVar, err)}
		}
		return model.FileContentsCredential{Secret: strings.TrimSpace(string(contents))}, nil

	case KindPath:
		contents, err := os.ReadFile(loc.Arg)
		if err != nil {
			return nil, &MissingCredentialError{ProviderType: providerType, Detail: fmt.Sprintf("reading %q: %v", loc.Arg, err)}
		}
		return model.FileContentsCredential{Secret: strings.TrimSpace(string(contents))}, nil

	case KindDynamic:
		return model.DynamicCredential{LookupKey: loc.Arg}, nil

	case KindSDK:
		return model.SDKCredential{}, nil

	case KindNone:
		return model.NoneCredential{}, nil

	default:
		return nil, fmt.Errorf("credential: unhandled location kind %q", loc.Kind)
	}
}

// ResolveDynamic looks up a DynamicCredential's secret in a per-request
// credential map supplied by the caller. Non-dynamic credentials pass
// through unchanged.
func ResolveDynamic(cred model.Credential, dynamic map[string]string) (model.Credential, error) {
	d, ok := cred.(model.DynamicCredential)
	if !ok {
		return cred, nil
	}
	v, ok := dynamic[d.LookupKey]
	if !ok {
		return nil, fmt.Errorf("credential: dynamic credential key %q was not supplied for this request", d.LookupKey)
	}
	return model.StaticCredential{Secret: v}, nil
}
