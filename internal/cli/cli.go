// Package cli provides the command line interface.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/marginal/internal/config"
	"github.com/temirov/marginal/internal/document"
	"github.com/temirov/marginal/internal/menu"
	"github.com/temirov/marginal/internal/output"
	"github.com/temirov/marginal/internal/services/clipboard"
	"github.com/temirov/marginal/internal/types"
	"github.com/temirov/marginal/internal/utils"
	"github.com/temirov/marginal/internal/workspace"
)

const (
	configFlagName       = "config"
	verboseFlagName      = "verbose"
	versionFlagName      = "version"
	formatFlagName       = "format"
	copyFlagName         = "copy"
	contentFlagName      = "content"
	viewModeFlagName     = "view-mode"
	hardWrapsFlagName    = "hard-wraps"
	unsafeHTMLFlagName   = "unsafe-html"
	addressFlagName      = "address"
	globalFlagName       = "global"
	forceFlagName        = "force"
	versionTemplate      = "marginal version: %s\n"
	defaultPath          = "."
	rootUse              = "marginal"
	rootShortDescription = "marginal markdown workspace tools"
	rootLongDescription  = `marginal lists, reads, writes and renders the markdown files of a workspace.
It also serves the same commands over a local HTTP bridge for the editor front end.
Use --config to select a configuration file and --verbose for debug logging.`
	treeUse                = "tree [path]"
	readUse                = "read <path>"
	writeUse               = "write <path>"
	renderUse              = "render <path>"
	menuUse                = "menu"
	serveUse               = "serve"
	initUse                = "init"
	treeAlias              = "t"
	readAlias              = "r"
	renderAlias            = "md"
	treeShortDescription   = "list a directory tree (" + treeAlias + ")"
	readShortDescription   = "print a file (" + readAlias + ")"
	writeShortDescription  = "replace a file with new content"
	renderShortDescription = "render a markdown file to HTML (" + renderAlias + ")"
	menuShortDescription   = "show application menu items and their enabled state"
	serveShortDescription  = "serve workspace commands over HTTP"
	initShortDescription   = "write the default configuration file"

	// treeLongDescription provides detailed help for the tree command.
	treeLongDescription = `List the visible directories and files below a path.
Hidden entries are skipped, directories come before files and names are compared case-insensitively.
Use --format to select raw or json output.`
	// treeUsageExample demonstrates tree command usage.
	treeUsageExample = `  # Render the notes directory as a box drawing tree
  marginal tree --format raw ./notes`

	// writeLongDescription provides detailed help for the write command.
	writeLongDescription = `Replace the content of a file, creating it when missing.
Content comes from --content or, when the flag is absent, from standard input.
Parent directories are not created.`
	// writeUsageExample demonstrates write command usage.
	writeUsageExample = `  # Write a file from standard input
  echo "# Title" | marginal write notes/today.md`

	// serveLongDescription provides detailed help for the serve command.
	serveLongDescription = `Start the command bridge used by the editor front end.
GET /capabilities lists the commands and POST /commands/<name> runs one.
The server stops on interrupt.`

	configFlagDescription     = "configuration file overriding ./" + utils.ConfigFileName
	verboseFlagDescription    = "enable debug logging"
	versionFlagDescription    = "display application version"
	formatFlagDescription     = "output format (raw or json)"
	copyFlagDescription       = "copy the output to the system clipboard"
	contentFlagDescription    = "content to write instead of standard input"
	viewModeFlagDescription   = "editor view mode (rendered or code)"
	hardWrapsFlagDescription  = "render soft line breaks as <br>"
	unsafeHTMLFlagDescription = "pass raw HTML in markdown through to the output"
	addressFlagDescription    = "listen address for the bridge"
	globalFlagDescription     = "write the global configuration under the home directory"
	forceFlagDescription      = "overwrite an existing configuration file"

	bridgeListeningTemplate    = "bridge listening on %s\n"
	configurationWrittenFormat = "configuration written to %s\n"
	invalidFormatMessage       = "Invalid format value '%s'"
	errorAbsolutePathFormat    = "abs failed for '%s': %w"
	errorReadStandardInput     = "read standard input: %w"
	errorLoadConfigurationFmt  = "load configuration: %w"
	errorReconfigureLoggerFmt  = "configure verbose logging: %w"
	infoCopiedToClipboard      = "copied to clipboard"
	logFieldBytes              = "bytes"
)

// isSupportedFormat reports whether the provided format is recognized.
func isSupportedFormat(format string) bool {
	switch format {
	case types.FormatRaw, types.FormatJSON:
		return true
	default:
		return false
	}
}

// dependencies are the collaborators every command shares.
type dependencies struct {
	logger     *zap.Logger
	filesystem afero.Fs
	copier     clipboard.Copier
}

// application holds state resolved once flags are parsed.
type application struct {
	dependencies
	configuration config.ApplicationConfiguration
}

func (app *application) workspaceService() *workspace.Service {
	return workspace.NewService(app.filesystem, app.logger)
}

func (app *application) renderOptions() document.RenderOptions {
	return document.RenderOptions{
		HardWraps:  config.BoolOrDefault(app.configuration.Editor.Render.HardWraps, false),
		UnsafeHTML: config.BoolOrDefault(app.configuration.Editor.Render.UnsafeHTML, false),
	}
}

// Execute runs the marginal application.
func Execute(logger *zap.Logger) error {
	rootCommand := createRootCommand(dependencies{
		logger:     logger,
		filesystem: afero.NewOsFs(),
		copier:     clipboard.NewService(),
	})
	return rootCommand.Execute()
}

// createRootCommand builds the root Cobra command.
func createRootCommand(shared dependencies) *cobra.Command {
	if shared.logger == nil {
		shared.logger = zap.NewNop()
	}
	app := &application{dependencies: shared}

	var showVersion bool
	var configurationPath string
	var verbose bool

	rootCommand := &cobra.Command{
		Use:           rootUse,
		Short:         rootShortDescription,
		Long:          rootLongDescription,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(command *cobra.Command, arguments []string) error {
			if showVersion {
				fmt.Fprintf(command.OutOrStdout(), versionTemplate, utils.GetApplicationVersion())
				return nil
			}
			return command.Help()
		},
		PersistentPreRunE: func(command *cobra.Command, arguments []string) error {
			if verbose {
				verboseLogger, loggerError := utils.NewApplicationLogger(true)
				if loggerError != nil {
					return fmt.Errorf(errorReconfigureLoggerFmt, loggerError)
				}
				app.logger = verboseLogger
			}
			if command.Name() == initUse {
				return nil
			}
			loadedConfiguration, loadError := config.LoadApplicationConfiguration(config.LoadOptions{ExplicitFilePath: configurationPath, Filesystem: app.filesystem})
			if loadError != nil {
				return fmt.Errorf(errorLoadConfigurationFmt, loadError)
			}
			app.configuration = loadedConfiguration
			return nil
		},
	}
	rootCommand.Flags().BoolVar(&showVersion, versionFlagName, false, versionFlagDescription)
	rootCommand.PersistentFlags().StringVar(&configurationPath, configFlagName, "", configFlagDescription)
	rootCommand.PersistentFlags().BoolVar(&verbose, verboseFlagName, false, verboseFlagDescription)
	rootCommand.AddCommand(
		createTreeCommand(app),
		createReadCommand(app),
		createWriteCommand(app),
		createRenderCommand(app),
		createMenuCommand(app),
		createServeCommand(app),
		createInitCommand(app),
	)
	rootCommand.InitDefaultHelpCmd()
	rootCommand.InitDefaultCompletionCmd()
	return rootCommand
}

// createTreeCommand returns the tree subcommand.
func createTreeCommand(app *application) *cobra.Command {
	var outputFormat string

	treeCommand := &cobra.Command{
		Use:     treeUse,
		Aliases: []string{treeAlias},
		Short:   treeShortDescription,
		Long:    treeLongDescription,
		Example: treeUsageExample,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			rootPath := defaultPath
			if len(arguments) == 1 {
				rootPath = arguments[0]
			}
			format, formatError := resolveFormat(outputFormat, app.configuration.Tree.Format)
			if formatError != nil {
				return formatError
			}
			absolutePath, absolutePathError := filepath.Abs(rootPath)
			if absolutePathError != nil {
				return fmt.Errorf(errorAbsolutePathFormat, rootPath, absolutePathError)
			}
			entries, buildError := app.workspaceService().BuildTree(absolutePath)
			if buildError != nil {
				return buildError
			}
			if format == types.FormatRaw {
				output.WriteTreeRaw(command.OutOrStdout(), absolutePath, entries)
				return nil
			}
			return printJSON(command.OutOrStdout(), entries)
		},
	}
	treeCommand.Flags().StringVar(&outputFormat, formatFlagName, "", formatFlagDescription)
	return treeCommand
}

// createReadCommand returns the read subcommand.
func createReadCommand(app *application) *cobra.Command {
	var copyEnabled bool

	readCommand := &cobra.Command{
		Use:     readUse,
		Aliases: []string{readAlias},
		Short:   readShortDescription,
		Args:    cobra.ExactArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			content, readError := app.workspaceService().ReadFileContent(arguments[0])
			if readError != nil {
				return readError
			}
			fmt.Fprint(command.OutOrStdout(), content)
			if copyEnabled {
				return app.copyToClipboard(content)
			}
			return nil
		},
	}
	readCommand.Flags().BoolVar(&copyEnabled, copyFlagName, false, copyFlagDescription)
	return readCommand
}

// createWriteCommand returns the write subcommand.
func createWriteCommand(app *application) *cobra.Command {
	var content string

	writeCommand := &cobra.Command{
		Use:     writeUse,
		Short:   writeShortDescription,
		Long:    writeLongDescription,
		Example: writeUsageExample,
		Args:    cobra.ExactArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			if !command.Flags().Changed(contentFlagName) {
				standardInput, readError := io.ReadAll(command.InOrStdin())
				if readError != nil {
					return fmt.Errorf(errorReadStandardInput, readError)
				}
				content = string(standardInput)
			}
			return app.workspaceService().WriteFileContent(arguments[0], content)
		},
	}
	writeCommand.Flags().StringVar(&content, contentFlagName, "", contentFlagDescription)
	return writeCommand
}

// createRenderCommand returns the render subcommand.
func createRenderCommand(app *application) *cobra.Command {
	var copyEnabled bool
	var hardWraps bool
	var unsafeHTML bool

	renderCommand := &cobra.Command{
		Use:     renderUse,
		Aliases: []string{renderAlias},
		Short:   renderShortDescription,
		Args:    cobra.ExactArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			content, readError := app.workspaceService().ReadFileContent(arguments[0])
			if readError != nil {
				return readError
			}
			options := app.renderOptions()
			if command.Flags().Changed(hardWrapsFlagName) {
				options.HardWraps = hardWraps
			}
			if command.Flags().Changed(unsafeHTMLFlagName) {
				options.UnsafeHTML = unsafeHTML
			}
			rendered, renderError := document.NewRenderer(options).Render(content)
			if renderError != nil {
				return renderError
			}
			fmt.Fprint(command.OutOrStdout(), rendered)
			if copyEnabled {
				return app.copyToClipboard(rendered)
			}
			return nil
		},
	}
	renderCommand.Flags().BoolVar(&copyEnabled, copyFlagName, false, copyFlagDescription)
	renderCommand.Flags().BoolVar(&hardWraps, hardWrapsFlagName, false, hardWrapsFlagDescription)
	renderCommand.Flags().BoolVar(&unsafeHTML, unsafeHTMLFlagName, false, unsafeHTMLFlagDescription)
	return renderCommand
}

// menuListing is the JSON form of the menu command.
type menuListing struct {
	ViewMode menu.ViewMode   `json:"viewMode"`
	Menus    []menu.Submenu  `json:"menus"`
	States   map[string]bool `json:"states"`
}

// createMenuCommand returns the menu subcommand.
func createMenuCommand(app *application) *cobra.Command {
	var viewModeName string
	var outputFormat string

	menuCommand := &cobra.Command{
		Use:   menuUse,
		Short: menuShortDescription,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			viewMode, viewModeError := resolveViewMode(viewModeName, app.configuration.Editor.ViewMode)
			if viewModeError != nil {
				return viewModeError
			}
			format, formatError := resolveFormat(outputFormat, types.FormatRaw)
			if formatError != nil {
				return formatError
			}
			states := menu.ItemStates(viewMode)
			if format == types.FormatRaw {
				output.WriteMenuRaw(command.OutOrStdout(), menu.Definitions(), states)
				return nil
			}
			return printJSON(command.OutOrStdout(), menuListing{ViewMode: viewMode, Menus: menu.Definitions(), States: states})
		},
	}
	menuCommand.Flags().StringVar(&viewModeName, viewModeFlagName, "", viewModeFlagDescription)
	menuCommand.Flags().StringVar(&outputFormat, formatFlagName, "", formatFlagDescription)
	return menuCommand
}

// createServeCommand returns the serve subcommand.
func createServeCommand(app *application) *cobra.Command {
	var address string

	serveCommand := &cobra.Command{
		Use:   serveUse,
		Short: serveShortDescription,
		Long:  serveLongDescription,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			listenAddress := address
			if listenAddress == "" {
				listenAddress = app.configuration.Serve.Address
			}
			signalContext, stop := signal.NotifyContext(commandContext(command), os.Interrupt, syscall.SIGTERM)
			defer stop()
			writer := command.OutOrStdout()
			return startBridge(signalContext, app, listenAddress, func(boundAddress string) {
				fmt.Fprintf(writer, bridgeListeningTemplate, boundAddress)
			})
		},
	}
	serveCommand.Flags().StringVar(&address, addressFlagName, "", addressFlagDescription)
	return serveCommand
}

// createInitCommand returns the init subcommand.
func createInitCommand(app *application) *cobra.Command {
	var global bool
	var force bool

	initCommand := &cobra.Command{
		Use:   initUse,
		Short: initShortDescription,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			target := config.InitTargetLocal
			if global {
				target = config.InitTargetGlobal
			}
			destinationPath, initError := config.InitializeConfiguration(config.InitOptions{Target: target, Force: force, Filesystem: app.filesystem})
			if initError != nil {
				return initError
			}
			fmt.Fprintf(command.OutOrStdout(), configurationWrittenFormat, destinationPath)
			return nil
		},
	}
	initCommand.Flags().BoolVar(&global, globalFlagName, false, globalFlagDescription)
	initCommand.Flags().BoolVar(&force, forceFlagName, false, forceFlagDescription)
	return initCommand
}

func (app *application) copyToClipboard(text string) error {
	if copyError := app.copier.Copy(text); copyError != nil {
		return copyError
	}
	app.logger.Info(infoCopiedToClipboard, zap.Int(logFieldBytes, len(text)))
	return nil
}

// resolveFormat picks the flag value, then the configured value, then JSON.
func resolveFormat(flagValue string, configuredValue string) (string, error) {
	format := strings.ToLower(strings.TrimSpace(flagValue))
	if format == "" {
		format = strings.ToLower(strings.TrimSpace(configuredValue))
	}
	if format == "" {
		format = types.FormatJSON
	}
	if !isSupportedFormat(format) {
		return "", fmt.Errorf(invalidFormatMessage, format)
	}
	return format, nil
}

// resolveViewMode picks the flag value, then the configured value, then the rendered view.
func resolveViewMode(flagValue string, configuredValue string) (menu.ViewMode, error) {
	candidate := flagValue
	if strings.TrimSpace(candidate) == "" {
		candidate = configuredValue
	}
	if strings.TrimSpace(candidate) == "" {
		return menu.ViewModeRendered, nil
	}
	return menu.ParseViewMode(candidate)
}

func printJSON(writer io.Writer, value any) error {
	rendered, renderError := output.RenderJSON(value)
	if renderError != nil {
		return renderError
	}
	fmt.Fprintln(writer, rendered)
	return nil
}

func commandContext(command *cobra.Command) context.Context {
	if ctx := command.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
