package bootstrap

import (
	"errors"
	"fmt"
	"testing"

	"launchseq/config"
	"launchseq/mapping"
	"launchseq/util/goroutine"

	"github.com/stretchr/testify/assert"
)

func TestClassifyStepError(t *testing.T) {
	wrap := func(step string, err error) error {
		return &StepError{Step: step, Mandatory: true, Err: err}
	}

	tests := []struct {
		name     string
		err      error
		contains []string
	}{
		{"nil error returns empty string", nil, nil},
		{"invalid context", fmt.Errorf("%w: nil", ErrInvalidContext), []string{"invalid launch context", "No launch step was run"}},
		{"missing credential", wrap(StepConfigureMappingProvider, config.ErrCredentialNotFound), []string{StepConfigureMappingProvider, "LAUNCHSEQ_MAPS_API_KEY"}},
		{"malformed key", wrap(StepConfigureMappingProvider, mapping.ErrInvalidAPIKey), []string{"malformed", "mapping.key_pattern"}},
		{"already configured", wrap(StepConfigureMappingProvider, mapping.ErrAlreadyConfigured), []string{"different key"}},
		{"maps extension", wrap(StepRegisterExtensions, mapping.ErrNotConfigured), []string{StepRegisterExtensions, "extensions.disabled"}},
		{"timeout", wrap(StepConfigureMappingProvider, ErrStepTimeout), []string{"time budget", "step_timeout"}},
		{"base startup", wrap(StepBaseStartup, ErrBaseStartupFailed), []string{StepBaseStartup, "status.addr"}},
		{"panic", wrap(StepRegisterExtensions, fmt.Errorf("%w: boom", goroutine.ErrPanicked)), []string{"panicked"}},
		{"generic", wrap("custom", errors.New("weird")), []string{"Step custom failed", "weird"}},
		{"bare error", errors.New("plain"), []string{"Step bootstrap failed"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyStepError(tt.err)
			if tt.err == nil {
				assert.Empty(t, got)
				return
			}
			for _, want := range tt.contains {
				assert.Contains(t, got, want)
			}
		})
	}
}

func TestInitLogger(t *testing.T) {
	logger, sugar, err := InitLogger("debug")
	assert.NoError(t, err)
	assert.NotNil(t, logger)
	assert.NotNil(t, sugar)

	_, _, err = InitLogger("loud")
	assert.Error(t, err)
}
