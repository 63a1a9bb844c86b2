package outreach

import (
	"time"

	"github.com/kindtohomeless/outreach/models"
)

// Observer is notified as an agent run progresses. Implementations must be
// safe to call from the goroutine running the agent and should not block.
type Observer interface {
	RoundStarted(runID string, round int)
	ToolCompleted(runID string, round int, call models.ToolInvocation, result interface{}, err error, elapsed time.Duration)
	RunFinished(runID, status string, rounds int)
}

type nopObserver struct{}

func (nopObserver) RoundStarted(string, int) {}
func (nopObserver) ToolCompleted(string, int, models.ToolInvocation, interface{}, error, time.Duration) {
}
func (nopObserver) RunFinished(string, string, int) {}

// Observers fans notifications out to every non-nil observer in order.
func Observers(observers ...Observer) Observer {
	list := make(multiObserver, 0, len(observers))
	for _, o := range observers {
		if o != nil {
			list = append(list, o)
		}
	}
	return list
}

type multiObserver []Observer

func (m multiObserver) RoundStarted(runID string, round int) {
	for _, o := range m {
		o.RoundStarted(runID, round)
	}
}

func (m multiObserver) ToolCompleted(runID string, round int, call models.ToolInvocation, result interface{}, err error, elapsed time.Duration) {
	for _, o := range m {
		o.ToolCompleted(runID, round, call, result, err, elapsed)
	}
}

func (m multiObserver) RunFinished(runID, status string, rounds int) {
	for _, o := range m {
		o.RunFinished(runID, status, rounds)
	}
}
