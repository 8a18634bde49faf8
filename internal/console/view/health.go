package view

import (
	"time"

	v1 "github.com/kart-io/pm-copilot/pkg/api/copilot/v1"
	"github.com/kart-io/pm-copilot/pkg/client/copilot"
)

// HealthStatus is the connection indicator state.
type HealthStatus string

const (
	HealthUnknown HealthStatus = "unknown"
	HealthHealthy HealthStatus = "healthy"
	HealthError   HealthStatus = "error"
)

// Label returns the indicator text.
func (s HealthStatus) Label() string {
	switch s {
	case HealthHealthy:
		return "Connected"
	case HealthError:
		return "Disconnected"
	default:
		return "Checking..."
	}
}

// HealthView is the connection indicator.
type HealthView struct {
	Status           HealthStatus `json:"status" yaml:"status"`
	Label            string       `json:"label" yaml:"label"`
	AgentInitialized bool         `json:"agent_initialized" yaml:"agent_initialized"`
	Error            string       `json:"error,omitempty" yaml:"error,omitempty"`
	CheckedAt        time.Time    `json:"checked_at" yaml:"checked_at"`
}

// PendingHealth is shown before the first check completes.
func PendingHealth() HealthView {
	return HealthView{Status: HealthUnknown, Label: HealthUnknown.Label()}
}

// NewHealthView maps a health check outcome to the indicator. Any successful
// response counts as connected, whatever its status text.
func NewHealthView(r copilot.Result[*v1.HealthResponse], at time.Time) HealthView {
	if !r.IsOk() {
		return HealthView{
			Status:    HealthError,
			Label:     HealthError.Label(),
			Error:     r.Err().Error(),
			CheckedAt: at,
		}
	}

	hv := HealthView{
		Status:    HealthHealthy,
		Label:     HealthHealthy.Label(),
		CheckedAt: at,
	}
	if h := r.Value(); h != nil {
		hv.AgentInitialized = h.AgentInitialized
	}
	return hv
}
