package record

// Run statuses as journaled. A run is running until its terminal
// test_finished event is written, then passed or failed by its tally.
const (
	RunStatusRunning = "running"
	RunStatusPassed  = "passed"
	RunStatusFailed  = "failed"
)

// Run is the journal header row for one engine run.
//
// NOTE: Run is store-layer metadata, not part of the canonical trace.
// The token comes from the engine's token generator, not from hashing,
// because two byte-identical runs are still distinct runs. Wall-clock
// timestamps are allowed here (RFC 3339); they never enter any digest.
type Run struct {
	Token      string `json:"token"`
	Scenario   string `json:"scenario,omitempty"`
	Status     string `json:"status"`
	Executed   int    `json:"executed"`
	Ignored    int    `json:"ignored"`
	Failed     int    `json:"failed"`
	StartedAt  string `json:"started_at,omitempty"`
	FinishedAt string `json:"finished_at,omitempty"`
}
