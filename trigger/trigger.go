// Package trigger produces run demands: a cron schedule evaluated in UTC and
// a push webhook filtered to one branch. Both emit Requests on a channel
// consumed by the serve loop; run serialization happens downstream, so a
// request arriving mid-run queues instead of cancelling anything.
package trigger

import (
	"time"

	"github.com/bggsnap/bggsnap/types"
)

// Request is one demand for a run.
type Request struct {
	Kind types.TriggerKind
	// Ref is the pushed git ref. Set only for push requests.
	Ref string
	At  time.Time
}
