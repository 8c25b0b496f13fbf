package domain

// ComposeOptions scopes every container runtime call to one project
type ComposeOptions struct {
	ProjectName string
	ComposeFile string
	Cwd         string
	Env         map[string]string
}

// LogSource identifies the stream a log chunk came from
type LogSource int

const (
	LogStdout LogSource = iota
	LogStderr
)

func (s LogSource) String() string {
	if s == LogStderr {
		return "stderr"
	}
	return "stdout"
}

// LogChunk is one read from a followed log stream
type LogChunk struct {
	Data   []byte
	Source LogSource
}

// ExecResult is the output of a command executed inside a container
type ExecResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}
