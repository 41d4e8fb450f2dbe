package host

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var validate = validator.New()

// LaunchContext holds the parameters describing how the process was started.
// It is owned by the host and must be treated as read-only by everything it is
// passed to.
type LaunchContext struct {
	LaunchID      string            `json:"launch_id" validate:"required,uuid4"`
	StartedAt     time.Time         `json:"started_at" validate:"required"`
	Options       map[string]string `json:"options,omitempty" validate:"dive,keys,required,endkeys"`
	RestoredState []byte            `json:"-"`
}

// NewLaunchContext creates a launch context with a fresh launch ID.
// The options map and restored state are copied.
func NewLaunchContext(options map[string]string, restoredState []byte) *LaunchContext {
	lc := &LaunchContext{
		LaunchID:  uuid.New().String(),
		StartedAt: time.Now().UTC(),
	}
	if len(options) > 0 {
		lc.Options = make(map[string]string, len(options))
		for k, v := range options {
			lc.Options[k] = v
		}
	}
	if len(restoredState) > 0 {
		lc.RestoredState = append([]byte(nil), restoredState...)
	}
	return lc
}

// Option returns the launch option stored under key.
func (lc *LaunchContext) Option(key string) (string, bool) {
	if lc == nil {
		return "", false
	}
	v, ok := lc.Options[key]
	return v, ok
}

// Validate checks the launch context against the host contract.
func (lc *LaunchContext) Validate() error {
	if lc == nil {
		return fmt.Errorf("launch context is nil")
	}
	if err := validate.Struct(lc); err != nil {
		return fmt.Errorf("launch context validation failed: %w", err)
	}
	return nil
}
