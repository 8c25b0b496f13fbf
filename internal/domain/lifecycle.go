package domain

// Stage is a position in the environment lifecycle
type Stage int

const (
	StageIdle Stage = iota
	StageNodeStarting
	StageNodeReady
	StageDeploying
	StageDeployed
	StageBuilding
	StageIndexerStarting
	StageIndexerReady
	StageScriptsRunning
	StageRunning
	StageCleaningUp
	StageTerminated
)

var stageNames = map[Stage]string{
	StageIdle:            "idle",
	StageNodeStarting:    "node-starting",
	StageNodeReady:       "node-ready",
	StageDeploying:       "deploying",
	StageDeployed:        "deployed",
	StageBuilding:        "building",
	StageIndexerStarting: "indexer-starting",
	StageIndexerReady:    "indexer-ready",
	StageScriptsRunning:  "scripts-running",
	StageRunning:         "running",
	StageCleaningUp:      "cleaning-up",
	StageTerminated:      "terminated",
}

func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return "unknown"
}

// CleanupRequest asks the orchestrator to tear the environment down.
//
// Forced selects the kill+rm path even when graceful shutdown was requested and,
// like Interrupt, escalates a teardown that is already in flight.
type CleanupRequest struct {
	Code      int
	Forced    bool
	Interrupt bool
}

// ExitStatus is the process exit code for this request. Forced and
// interrupted teardowns exit non-zero.
func (r CleanupRequest) ExitStatus() int {
	if r.Code != 0 || r.Forced || r.Interrupt {
		return 1
	}
	return 0
}

// Escalates reports whether the request overrides an in-flight teardown
func (r CleanupRequest) Escalates() bool {
	return r.Forced || r.Interrupt
}

// ScriptExit reports the termination of one auxiliary script
type ScriptExit struct {
	Index    int
	Name     string
	ExitCode int
}
