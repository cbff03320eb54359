package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"github.com/lox/search-relevance/internal/commands"
	"github.com/lox/search-relevance/internal/containers"
	"github.com/lox/search-relevance/internal/db"
	"github.com/lox/search-relevance/internal/request"
	"github.com/lox/search-relevance/internal/settings"
)

type CLI struct {
	commands.CommonConfig

	Import ImportCmd `cmd:"" help:"Import container settings from a YAML file into the database"`
	Export ExportCmd `cmd:"" help:"Print stored container settings as YAML"`
	List   ListCmd   `cmd:"" help:"List configured containers"`
	Show   ShowCmd   `cmd:"" help:"Show the relevance configuration of a container"`
	Set    SetCmd    `cmd:"" help:"Store the relevance configuration of a container"`
	Delete DeleteCmd `cmd:"" help:"Delete the stored configuration of a container"`
	Plan   PlanCmd   `cmd:"" help:"Show the query clauses a text search in a container is built from"`
}

// setup initializes the logger and database
func (c *CLI) setup() (*log.Logger, *db.DB, error) {
	logger, err := commands.SetupLogger(c.CommonConfig)
	if err != nil {
		return nil, nil, err
	}

	database, err := commands.SetupDatabase(c.CommonConfig, logger)
	if err != nil {
		return nil, nil, err
	}

	return logger, database, nil
}

type ImportCmd struct {
	File      string `help:"YAML settings file" required:"" type:"existingfile"`
	Container string `help:"Import only this container from the file" default:""`
	DryRun    bool   `help:"Validate the file without storing anything" default:"false"`
}

// selected returns the containers of f to import
func (cmd *ImportCmd) selected(f *settings.File) ([]settings.ContainerSettings, error) {
	if cmd.Container == "" {
		return f.Containers, nil
	}
	c, ok := f.Get(cmd.Container)
	if !ok {
		return nil, fmt.Errorf("container %q not found in %s", cmd.Container, cmd.File)
	}
	return []settings.ContainerSettings{c}, nil
}

func (cmd *ImportCmd) Run(cli *CLI) error {
	ctx := context.Background()

	f, err := settings.LoadFile(cmd.File)
	if err != nil {
		return err
	}

	selected, err := cmd.selected(f)
	if err != nil {
		return err
	}

	if cmd.DryRun {
		fmt.Printf("%s is valid (%d containers)\n", cmd.File, len(selected))
		return nil
	}

	logger, database, err := cli.setup()
	if err != nil {
		return err
	}
	defer database.Close()

	var replaced int
	for _, c := range selected {
		exists, err := database.Has(ctx, c.Name)
		if err != nil {
			return err
		}
		if exists {
			replaced++
		}
	}

	if err := database.StoreAll(ctx, selected); err != nil {
		return fmt.Errorf("failed to import %s: %w", cmd.File, err)
	}
	for _, c := range selected {
		logger.Info("Imported container", "name", c.Name)
	}

	total, err := database.Count()
	if err != nil {
		return err
	}

	fmt.Printf("Imported %d containers from %s (%d new, %d replaced, %d stored)\n",
		len(selected), cmd.File, len(selected)-replaced, replaced, total)
	return nil
}

type ExportCmd struct{}

func (cmd *ExportCmd) Run(cli *CLI) error {
	ctx := context.Background()
	_, database, err := cli.setup()
	if err != nil {
		return err
	}
	defer database.Close()

	names, err := database.List(ctx)
	if err != nil {
		return err
	}

	var f settings.File
	for _, name := range names {
		s, err := database.Get(ctx, name)
		if err != nil {
			return err
		}
		f.Containers = append(f.Containers, *s)
	}

	out, err := f.Marshal()
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	_, err = os.Stdout.Write(out)
	return err
}

type ListCmd struct {
	commands.RegistryConfig
}

func (cmd *ListCmd) Run(cli *CLI) error {
	ctx := context.Background()
	logger, database, err := cli.setup()
	if err != nil {
		return err
	}
	defer database.Close()

	registry, err := commands.SetupRegistry(ctx, cmd.RegistryConfig, database, logger)
	if err != nil {
		return err
	}

	names := registry.List()
	if len(names) == 0 {
		fmt.Println("No containers configured")
		return nil
	}

	for _, name := range names {
		cfg, _ := registry.Get(name)
		fmt.Printf("%-40s fuzziness=%t phonetic=%t\n", name, cfg.FuzzinessEnabled(), cfg.PhoneticSearchEnabled())
	}
	return nil
}

type ShowCmd struct {
	commands.RegistryConfig

	Name string `arg:"" help:"Container name"`
}

func (cmd *ShowCmd) Run(cli *CLI) error {
	ctx := context.Background()
	logger, database, err := cli.setup()
	if err != nil {
		return err
	}
	defer database.Close()

	registry, err := commands.SetupRegistry(ctx, cmd.RegistryConfig, database, logger)
	if err != nil {
		return err
	}

	_, ok := registry.Get(cmd.Name)
	if !ok {
		fmt.Printf("%s has no stored configuration, showing defaults\n\n", cmd.Name)
	}
	fmt.Print(containers.Describe(cmd.Name, registry.GetOrDefault(cmd.Name)))

	if ok {
		updatedAt, err := database.UpdatedAt(ctx, cmd.Name)
		switch {
		case errors.Is(err, db.ErrNotFound):
			// only defined in the settings file
		case err != nil:
			return err
		case !updatedAt.IsZero():
			fmt.Printf("  Last Updated: %s\n", updatedAt.Format(time.RFC3339))
		}
	}
	return nil
}

type SetCmd struct {
	Name string `arg:"" help:"Container name"`

	MinimumShouldMatch string  `help:"Minimum should match clause, e.g. 75% or 2<75%" default:"100%"`
	TieBreaker         float64 `help:"Tie breaker for multi-field matches (0.0-1.0)" default:"1.0"`
	PhraseMatchBoost   string  `help:"Phrase match boost; empty disables phrase boosting" default:""`
	CutOffFrequency    float64 `help:"Cutoff frequency above which terms count as common" default:"0.15"`

	Fuzziness              string `help:"Fuzziness (AUTO, 0, 1, 2); empty disables fuzzy matching" default:""`
	FuzzinessPrefixLength  int    `help:"Number of leading characters that must match exactly" default:"1"`
	FuzzinessMaxExpansions int    `help:"Maximum number of terms a fuzzy term expands to" default:"10"`

	Phonetic          bool   `help:"Enable phonetic matching" default:"false"`
	PhoneticFuzziness string `help:"Fuzziness applied to phonetic terms; empty disables it" default:""`
}

func (cmd *SetCmd) settings() (settings.ContainerSettings, error) {
	s := settings.ContainerSettings{
		Name:               cmd.Name,
		MinimumShouldMatch: cmd.MinimumShouldMatch,
		TieBreaker:         cmd.TieBreaker,
		CutOffFrequency:    cmd.CutOffFrequency,
	}

	if strings.TrimSpace(cmd.PhraseMatchBoost) != "" {
		boost, err := strconv.Atoi(strings.TrimSpace(cmd.PhraseMatchBoost))
		if err != nil {
			return s, fmt.Errorf("phrase match boost must be an integer: %w", err)
		}
		s.PhraseMatchBoost = &boost
	}

	if cmd.Fuzziness != "" {
		s.Fuzziness = &settings.FuzzinessSettings{
			Value:         strings.ToUpper(cmd.Fuzziness),
			PrefixLength:  cmd.FuzzinessPrefixLength,
			MaxExpansions: cmd.FuzzinessMaxExpansions,
		}
	}

	if cmd.Phonetic || cmd.PhoneticFuzziness != "" {
		s.Phonetic = &settings.PhoneticSettings{}
		if cmd.PhoneticFuzziness != "" {
			s.Phonetic.Fuzziness = &settings.FuzzinessSettings{
				Value:         strings.ToUpper(cmd.PhoneticFuzziness),
				PrefixLength:  cmd.FuzzinessPrefixLength,
				MaxExpansions: cmd.FuzzinessMaxExpansions,
			}
		}
	}

	return s, s.Validate()
}

func (cmd *SetCmd) Run(cli *CLI) error {
	s, err := cmd.settings()
	if err != nil {
		return err
	}

	logger, database, err := cli.setup()
	if err != nil {
		return err
	}
	defer database.Close()

	if err := database.Store(context.Background(), s); err != nil {
		return err
	}
	logger.Info("Stored container", "name", s.Name)

	fmt.Print(containers.Describe(s.Name, s.RelevanceConfig()))
	return nil
}

type DeleteCmd struct {
	Name string `arg:"" help:"Container name"`
}

func (cmd *DeleteCmd) Run(cli *CLI) error {
	_, database, err := cli.setup()
	if err != nil {
		return err
	}
	defer database.Close()

	err = database.Delete(context.Background(), cmd.Name)
	if errors.Is(err, db.ErrNotFound) {
		fmt.Printf("%s has no stored configuration\n", cmd.Name)
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Printf("Deleted %s\n", cmd.Name)
	return nil
}

type PlanCmd struct {
	commands.RegistryConfig

	Name     string   `arg:"" help:"Container name"`
	Query    string   `arg:"" help:"Text query"`
	Fields   []string `help:"Fields to search" default:"search"`
	NoPhrase bool     `help:"Leave out the phrase clause" default:"false"`
}

func (cmd *PlanCmd) Run(cli *CLI) error {
	ctx := context.Background()
	logger, database, err := cli.setup()
	if err != nil {
		return err
	}
	defer database.Close()

	registry, err := commands.SetupRegistry(ctx, cmd.RegistryConfig, database, logger)
	if err != nil {
		return err
	}

	opts := []request.PlanOption{request.WithFields(cmd.Fields...)}
	if cmd.NoPhrase {
		opts = append(opts, request.WithoutPhrase())
	}

	fmt.Print(request.Build(registry.GetOrDefault(cmd.Name), cmd.Query, opts...).String())
	return nil
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("relevance-config"),
		kong.Description("Manage the relevance configuration of search request containers"),
		kong.UsageOnError(),
	)

	err := ctx.Run(&cli)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
