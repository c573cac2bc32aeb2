package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"semqa/internal/config"
	"semqa/internal/logging"
	"semqa/internal/projector"
	"semqa/internal/scene"
	"semqa/internal/transport"
	"semqa/internal/tui"
)

// Version is set at build time.
var Version = "dev"

type rootOptions struct {
	cfgFile  string
	logLevel string
	baseURL  string
}

// app holds what every subcommand needs once flags are parsed.
type app struct {
	cfg     *config.AppConfig
	cfgPath string
	logger  *zap.Logger
}

// NewRootCommand builds the semqa command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}
	a := &app{logger: zap.NewNop()}

	root := &cobra.Command{
		Use:   "semqa",
		Short: "semqa - streaming research question explorer",
		Long: `semqa sends a research question to a dataset search backend and shows
the streamed results: generated sub-questions, their embeddings as a 3D
point cloud, matching datasets and an interpretation of each.

Run without arguments to start the interactive terminal UI.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(opts)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = a.logger.Sync()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runTUI()
		},
	}

	root.PersistentFlags().StringVar(&opts.cfgFile, "config", "", "config file (default: ./config.yaml or ~/.config/semqa/config.yaml)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override the configured log level")
	root.PersistentFlags().StringVar(&opts.baseURL, "base-url", "", "override the research API base URL")

	root.AddCommand(newAskCommand(a), newConfigCommand(a), newVersionCommand())
	return root
}

// Execute runs the root command.
func Execute() error {
	return NewRootCommand().Execute()
}

func (a *app) init(opts *rootOptions) error {
	_ = godotenv.Load()

	var err error
	if opts.cfgFile == "" {
		a.cfg, a.cfgPath, err = config.LoadDefault()
	} else {
		a.cfg, err = config.Load(opts.cfgFile)
		a.cfgPath = opts.cfgFile
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if opts.logLevel != "" {
		a.cfg.Log.Level = opts.logLevel
	}
	if opts.baseURL != "" {
		a.cfg.Server.BaseURL = opts.baseURL
	}

	a.logger, err = logging.New(logging.Options{
		File:       a.cfg.Log.File,
		Level:      a.cfg.Log.Level,
		MaxSizeMB:  a.cfg.Log.MaxSizeMB,
		MaxBackups: a.cfg.Log.MaxBackups,
		MaxAgeDays: a.cfg.Log.MaxAgeDays,
	})
	if err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}
	a.logger.Info("semqa starting",
		zap.String("version", Version),
		zap.String("config", a.cfgPath),
		zap.String("base_url", a.cfg.Server.BaseURL),
	)
	return nil
}

func (a *app) client() *transport.Client {
	return transport.NewClient(a.cfg.Transport(), a.logger.Named("transport"))
}

func (a *app) runTUI() error {
	cfg := a.cfg
	m := tui.New(tui.Options{
		Open:      tui.ClientOpener(a.client()),
		Logger:    a.logger.Named("tui"),
		Projector: projector.New(cfg.Projector()),
		Allocator: scene.NewCountingAllocator(),
		Form: tui.FormDefaults{
			Filters:              cfg.Search.Filters,
			UseMultiQuery:        cfg.Search.UseMultiQuery,
			UseLLMInterpretation: cfg.Search.UseLLMInterpretation,
		},
		Scene:                cfg.Scene.Params,
		FPS:                  cfg.Scene.FPS,
		PickThreshold:        cfg.Scene.PickThreshold,
		PreviewDims:          cfg.Scene.PreviewDims,
		DescriptionSentences: cfg.Search.MaxDescriptionSentences,
	})
	if _, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseAllMotion()).Run(); err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "semqa %s\n", Version)
		},
	}
}
