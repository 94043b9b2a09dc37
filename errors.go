package kalibr

import (
	"errors"
	"fmt"
)

// CredentialsURL is where API keys and tenant ids are issued.
const CredentialsURL = "https://dashboard.kalibr.systems/settings"

// Sentinel errors for adapter construction and outcome reporting.
// All use prefix "kalibr:" for identification. Callers should use errors.Is/errors.As.
var (
	ErrMissingGoal            = errors.New("kalibr: goal must not be empty")
	ErrInvalidExplorationRate = errors.New("kalibr: exploration rate must be in [0.0, 1.0]")
	ErrRouterNotInitialized   = errors.New("kalibr: Router not initialized, check your Kalibr credentials")
	ErrInvalidManifest        = errors.New("kalibr: manifest file is malformed")
)

// ConfigError reports that the Router rejected the adapter configuration,
// typically because credentials are missing or invalid. The message embeds
// the underlying cause and remediation. Use errors.Is/errors.As to inspect.
type ConfigError struct {
	Err error
}

// Error implements error.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("kalibr: failed to initialize Kalibr Router: %v\n"+
		"Make sure %s and %s are set.\n"+
		"Get credentials at: %s", e.Err, EnvAPIKey, EnvTenantID, CredentialsURL)
}

// Unwrap returns the wrapped error for errors.Is/errors.As.
func (e *ConfigError) Unwrap() error { return e.Err }

// Compile-time check that ConfigError implements error.
var _ error = (*ConfigError)(nil)
