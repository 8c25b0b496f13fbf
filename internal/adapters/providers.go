package adapters

import (
	"github.com/google/wire"
	"github.com/spf13/afero"
	"github.com/trebuchet-org/ens-test-env/internal/adapters/anvil"
	"github.com/trebuchet-org/ens-test-env/internal/adapters/archive"
	"github.com/trebuchet-org/ens-test-env/internal/adapters/command"
	"github.com/trebuchet-org/ens-test-env/internal/adapters/compose"
	"github.com/trebuchet-org/ens-test-env/internal/adapters/deployments"
	"github.com/trebuchet-org/ens-test-env/internal/adapters/environment"
	"github.com/trebuchet-org/ens-test-env/internal/adapters/logs"
	"github.com/trebuchet-org/ens-test-env/internal/adapters/progress"
	"github.com/trebuchet-org/ens-test-env/internal/adapters/readiness"
	"github.com/trebuchet-org/ens-test-env/internal/adapters/rpc"
	"github.com/trebuchet-org/ens-test-env/internal/adapters/scripts"
	"github.com/trebuchet-org/ens-test-env/internal/usecase"
)

// ProvideFs provides the filesystem deployment artifacts are read from
func ProvideFs() afero.Fs {
	return afero.NewOsFs()
}

// RuntimeSet provides the compose-backed container runtime
var RuntimeSet = wire.NewSet(
	compose.NewRuntime,
	wire.Bind(new(usecase.ContainerRuntime), new(*compose.Runtime)),
	wire.Bind(new(readiness.Execer), new(*compose.Runtime)),
	wire.Bind(new(deployments.Execer), new(*compose.Runtime)),
	wire.Bind(new(logs.Streamer), new(*compose.Runtime)),
)

// NodeSet provides the JSON-RPC node client
var NodeSet = wire.NewSet(
	rpc.NewNodeClient,
	anvil.NewNodeFromClient,
	wire.Bind(new(usecase.ChainNode), new(*anvil.Node)),
)

// ReadinessSet provides the readiness poller and its waiters
var ReadinessSet = wire.NewSet(
	readiness.NewWaiter,
	readiness.NewDirWaiter,
	readiness.NewIndexerClient,
	wire.Bind(new(readiness.HeightSource), new(*readiness.IndexerClient)),
	readiness.NewIndexerWaiter,
	readiness.NewPoller,
	wire.Bind(new(usecase.Readiness), new(*readiness.Poller)),
)

// LogsSet provides the container log multiplexer
var LogsSet = wire.NewSet(
	logs.NewFilterFromConfig,
	logs.NewMultiplexer,
	wire.Bind(new(usecase.LogMultiplexer), new(*logs.Multiplexer)),
)

// ProcessSet provides the host process adapters
var ProcessSet = wire.NewSet(
	command.NewRunner,
	wire.Bind(new(usecase.CommandRunner), new(*command.Runner)),

	scripts.NewRunner,
	wire.Bind(new(usecase.ScriptRunner), new(*scripts.Runner)),

	environment.NewProcess,
	wire.Bind(new(usecase.Environment), new(*environment.Process)),
)

// DataSet provides deployment artifact loading and the data archive
var DataSet = wire.NewSet(
	ProvideFs,
	deployments.NewConfiguredLoader,

	archive.NewArchive,
	wire.Bind(new(usecase.DataArchive), new(*archive.Archive)),
)

// ProgressSet provides the console progress sink
var ProgressSet = wire.NewSet(
	progress.NewConsole,
	wire.Bind(new(usecase.ProgressSink), new(*progress.Console)),
)

// AllAdapters includes all adapter sets
var AllAdapters = wire.NewSet(
	RuntimeSet,
	NodeSet,
	ReadinessSet,
	LogsSet,
	ProcessSet,
	DataSet,
	ProgressSet,
)
