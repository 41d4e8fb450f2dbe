package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"launchseq/host"
)

// Names of the launch steps, in run order.
const (
	StepConfigureMappingProvider = "configure-mapping-provider"
	StepRegisterExtensions       = "register-extensions"
	StepBaseStartup              = "base-startup"
)

// CredentialSource supplies the mapping service credential.
type CredentialSource interface {
	Credential(ctx context.Context) (string, error)
}

// MappingProvider is the mapping service's global configuration entry point.
type MappingProvider interface {
	ProvideAPIKey(ctx context.Context, key string) error
}

// ExtensionRegistry attaches the build's extensions to the application.
type ExtensionRegistry interface {
	RegisterAll(ctx context.Context, app *host.Application) error
}

// BaseStartup is the embedding framework's own startup procedure.
type BaseStartup interface {
	DidFinishLaunching(ctx context.Context, lc *host.LaunchContext) bool
}

// Collaborators are the external components the launch steps drive.
type Collaborators struct {
	Credentials CredentialSource
	Mapping     MappingProvider
	Extensions  ExtensionRegistry
	App         *host.Application
	Base        BaseStartup

	// MappingBestEffort makes the mapping provider step non-mandatory.
	MappingBestEffort bool
}

func (c Collaborators) validate() error {
	var missing []string
	if c.Credentials == nil {
		missing = append(missing, "credentials")
	}
	if c.Mapping == nil {
		missing = append(missing, "mapping provider")
	}
	if c.Extensions == nil {
		missing = append(missing, "extension registry")
	}
	if c.App == nil {
		missing = append(missing, "application")
	}
	if c.Base == nil {
		missing = append(missing, "base startup")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing collaborators %v", ErrInvalidStep, missing)
	}
	return nil
}

// StepPlan describes a launch step without its action.
type StepPlan struct {
	Name        string `json:"name" yaml:"name"`
	Mandatory   bool   `json:"mandatory" yaml:"mandatory"`
	Description string `json:"description" yaml:"description"`
}

// Plan lists the launch steps in run order.
func Plan(mappingBestEffort bool) []StepPlan {
	return []StepPlan{
		{
			Name:        StepConfigureMappingProvider,
			Mandatory:   !mappingBestEffort,
			Description: "Provide the mapping credential to the mapping service",
		},
		{
			Name:        StepRegisterExtensions,
			Mandatory:   true,
			Description: "Register the build's extensions with the application",
		},
		{
			Name:        StepBaseStartup,
			Mandatory:   true,
			Description: "Hand the launch context to the application's base startup",
		},
	}
}

// LaunchSteps returns the launch sequence: configure the mapping provider,
// register extensions, then hand over to the base startup logic.
func LaunchSteps(c Collaborators) ([]Step, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}

	actions := map[string]Action{
		StepConfigureMappingProvider: ConfigureMappingProvider(c.Credentials, c.Mapping),
		StepRegisterExtensions:       RegisterExtensions(c.Extensions, c.App),
		StepBaseStartup:              DelegateBaseStartup(c.Base),
	}

	plan := Plan(c.MappingBestEffort)
	steps := make([]Step, 0, len(plan))
	for _, p := range plan {
		steps = append(steps, Step{Name: p.Name, Mandatory: p.Mandatory, Action: actions[p.Name]})
	}
	return steps, nil
}

// ConfigureMappingProvider fetches the credential and hands it to the
// mapping service.
func ConfigureMappingProvider(creds CredentialSource, provider MappingProvider) Action {
	return func(ctx context.Context, lc *host.LaunchContext) error {
		key, err := creds.Credential(ctx)
		if err != nil {
			return fmt.Errorf("failed to obtain mapping credential: %w", err)
		}
		if key == "" {
			return errors.New("mapping credential is empty")
		}
		if err := provider.ProvideAPIKey(ctx, key); err != nil {
			return fmt.Errorf("mapping provider rejected credential: %w", err)
		}
		return nil
	}
}

// RegisterExtensions attaches every extension to app.
func RegisterExtensions(registry ExtensionRegistry, app *host.Application) Action {
	return func(ctx context.Context, lc *host.LaunchContext) error {
		return registry.RegisterAll(ctx, app)
	}
}

// DelegateBaseStartup forwards the untouched launch context to the base
// startup logic and converts its boolean outcome.
func DelegateBaseStartup(base BaseStartup) Action {
	return func(ctx context.Context, lc *host.LaunchContext) error {
		if !base.DidFinishLaunching(ctx, lc) {
			return ErrBaseStartupFailed
		}
		return nil
	}
}
