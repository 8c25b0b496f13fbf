package render

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/samber/lo"
	"github.com/trebuchet-org/ens-test-env/internal/domain"
)

var (
	sectionHeaderStyle = color.New(color.Bold, color.FgHiWhite)
	keyStyle           = color.New(color.FgCyan)
	disabledStyle      = color.New(color.Faint)
)

// ConfigRenderer renders the resolved run configuration
type ConfigRenderer struct {
	out io.Writer
}

// NewConfigRenderer creates a new config renderer
func NewConfigRenderer(out io.Writer) *ConfigRenderer {
	return &ConfigRenderer{
		out: out,
	}
}

// getRelativePath returns the relative path from current directory
func getRelativePath(path string) string {
	if path == "" {
		return path
	}
	cwd, err := os.Getwd()
	if err != nil {
		return path
	}

	relPath, err := filepath.Rel(cwd, path)
	if err != nil {
		return path
	}

	return relPath
}

// RenderConfig prints the environment and option sections
func (r *ConfigRenderer) RenderConfig(cfg *domain.Config) error {
	env := cfg.Env
	opts := cfg.Options

	fmt.Fprintln(r.out, sectionHeaderStyle.Sprint("Environment"))
	fmt.Fprintln(r.out, renderRows([][2]string{
		{"project", env.ProjectName},
		{"compose file", getRelativePath(env.Paths.ComposeFile)},
		{"node", fmt.Sprintf("%s (%s)", env.Node.Service, env.Node.RPCURL)},
		{"indexer", r.indexer(cfg)},
		{"deploy", env.DeployCommand},
		{"build", orNone(env.BuildCommand)},
		{"deployments", r.deployments(env.Deployments)},
		{"data", orNone(getRelativePath(env.Paths.Data))},
		{"archive", orNone(getRelativePath(env.Paths.Archive))},
	}))

	if len(env.Scripts) > 0 {
		fmt.Fprintln(r.out, sectionHeaderStyle.Sprint("Scripts"))
		rows := lo.Map(env.Scripts, func(s domain.Script, i int) [2]string {
			name := s.Name
			if name == "" {
				name = strconv.Itoa(i)
			}
			if s.FinishOnExit {
				name += " *"
			}
			return [2]string{name, s.Command}
		})
		fmt.Fprintln(r.out, renderRows(rows))
	}

	fmt.Fprintln(r.out, sectionHeaderStyle.Sprint("Options"))
	fmt.Fprintln(r.out, renderRows([][2]string{
		{"verbosity", strconv.Itoa(opts.Verbosity)},
		{"extra time", strconv.FormatInt(opts.ExtraTime, 10)},
		{"kill gracefully", strconv.FormatBool(opts.KillGracefully)},
		{"build", strconv.FormatBool(opts.Build)},
		{"scripts", strconv.FormatBool(opts.Scripts)},
		{"indexer", strconv.FormatBool(opts.Indexer)},
		{"exit after deploy", strconv.FormatBool(opts.ExitAfterDeploy)},
		{"save", strconv.FormatBool(opts.SaveArchive)},
	}))
	return nil
}

func (r *ConfigRenderer) indexer(cfg *domain.Config) string {
	if !cfg.Options.Indexer {
		return disabledStyle.Sprint("disabled")
	}
	indexer := cfg.Env.Indexer
	services := append([]string{indexer.Service}, indexer.Dependencies...)
	return fmt.Sprintf("%s (%s, chain %s)", strings.Join(services, ", "), indexer.URL, indexer.ChainID)
}

func (r *ConfigRenderer) deployments(d domain.DeploymentsConfig) string {
	switch {
	case d.Dir == "":
		return orNone("")
	case d.Container != "":
		return fmt.Sprintf("%s:%s", d.Container, d.Dir)
	default:
		return getRelativePath(d.Dir)
	}
}

func orNone(s string) string {
	if s == "" {
		return disabledStyle.Sprint("(none)")
	}
	return s
}

// renderRows renders key/value pairs as a borderless two column table
func renderRows(rows [][2]string) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.Style().Options.SeparateRows = false
	t.Style().Options.DrawBorder = false
	t.Style().Options.SeparateHeader = false
	t.Style().Options.SeparateColumns = false
	t.Style().Box = table.BoxStyle{
		PaddingLeft:  "  ",
		PaddingRight: "  ",
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignLeft},
		{Number: 2, Align: text.AlignLeft},
	})

	for _, row := range rows {
		t.AppendRow(table.Row{keyStyle.Sprint(row[0]), row[1]})
	}
	return t.Render()
}
