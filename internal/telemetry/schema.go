// Package telemetry validates per-episode telemetry CSV payloads against
// the fixed schema the game client's CSVWriter emits.
//
// Validation is a pure function over the raw text: it performs no I/O and
// always returns a Verdict, never an error. The handler layer maps verdicts
// to HTTP responses.
package telemetry

// ExpectedHeader is the exact, ordered header the game client writes.
// A payload's header must match element for element; no reordering,
// renaming, or subset/superset tolerance.
var ExpectedHeader = []string{
	"Episode", "Step", "Health", "Reward",
	"XVelocity", "YVelocity", "ZVelocity",
	"XPosition", "YPosition", "ZPosition",
	"ActionForwardWithDescription", "ActionRotateWithDescription",
	"WasAgentFrozen?", "WasNotificationShown?",
	"WasRewardDispensed?", "DispensedRewardType", "CollectedRewardType",
	"WasSpawnerButtonTriggered?", "CombinedSpawnerInfo",
	"DataZoneMessage", "ActiveCamera", "CombinedRaycastData",
}

// MaxRows caps the number of data rows accepted in a single upload.
// The cap trips once the running count exceeds it, so a file with exactly
// MaxRows rows is valid and a file with MaxRows+1 is rejected.
const MaxRows = 100000

// SummaryRowPrefix marks the end-of-episode summary row the client appends
// after the regular telemetry rows. A row whose first field starts with
// this prefix is exempt from the column-count and numeric checks but still
// counts toward the row total.
const SummaryRowPrefix = "Positive Goals Collected"

// The leading columns carry typed values: Episode and Step are integers,
// Health through ZPosition are floats. Columns past floatColsEnd are
// free-form and never type-checked.
const (
	intColsEnd   = 2
	floatColsEnd = 10
)
