package bootstrap

import (
	"errors"
	"fmt"

	"launchseq/config"
	"launchseq/mapping"
	"launchseq/util/goroutine"
)

// ClassifyStepError turns a bootstrap failure into an operator-facing message
// with remediation hints.
func ClassifyStepError(err error) string {
	if err == nil {
		return ""
	}

	step := "bootstrap"
	var stepErr *StepError
	if errors.As(err, &stepErr) {
		step = stepErr.Step
	}

	switch {
	case errors.Is(err, ErrInvalidContext):
		return fmt.Sprintf("The host supplied an invalid launch context: %v\n"+
			"  No launch step was run.\n"+
			"  Remediation:\n"+
			"  - Create the context with host.NewLaunchContext\n"+
			"  - Check that launch option keys are not empty", err)

	case errors.Is(err, config.ErrCredentialNotFound):
		return fmt.Sprintf("Step %s could not obtain the mapping credential: %v\n"+
			"  Remediation:\n"+
			"  - env provider: export the variable named by credentials.key (default LAUNCHSEQ_MAPS_API_KEY)\n"+
			"  - vault provider: check credentials.vault.path and that the secret holds credentials.key\n"+
			"  - aws provider: check credentials.aws.secret_id and the JSON field named by credentials.key", step, err)

	case errors.Is(err, mapping.ErrInvalidAPIKey):
		return fmt.Sprintf("Step %s: the mapping service rejected the credential as malformed.\n"+
			"  Remediation:\n"+
			"  - Verify the key was copied completely (no surrounding quotes)\n"+
			"  - Adjust mapping.key_pattern if the provider issues keys in a different format", step)

	case errors.Is(err, mapping.ErrAlreadyConfigured):
		return fmt.Sprintf("Step %s: the mapping service already holds a different key.\n"+
			"  The key can be provided only once per process.", step)

	case errors.Is(err, mapping.ErrNotConfigured):
		return fmt.Sprintf("Step %s: an extension needs the mapping service, which is not configured.\n"+
			"  Remediation:\n"+
			"  - Fix the mapping credential (see earlier warnings)\n"+
			"  - Or disable the extension via extensions.disabled", step)

	case errors.Is(err, ErrStepTimeout):
		return fmt.Sprintf("Step %s did not finish within its time budget: %v\n"+
			"  Remediation:\n"+
			"  - Check connectivity to the credential provider\n"+
			"  - Raise step_timeout if the provider is slow to respond", step, err)

	case errors.Is(err, ErrBaseStartupFailed):
		return fmt.Sprintf("Step %s: the application's base startup failed.\n"+
			"  Remediation:\n"+
			"  - Check that status.addr is not already in use\n"+
			"  - Review the log for the listener error", step)

	case errors.Is(err, goroutine.ErrPanicked):
		return fmt.Sprintf("Step %s panicked: %v\n"+
			"  The stack trace was logged at error level.", step, err)
	}

	return fmt.Sprintf("Step %s failed: %v", step, err)
}
