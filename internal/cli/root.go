package cli

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/nordlicht-dev/ocsync/internal/credentials"
	"github.com/nordlicht-dev/ocsync/internal/engine"
	"github.com/nordlicht-dev/ocsync/internal/journal"
	"github.com/nordlicht-dev/ocsync/internal/logging"
	"github.com/nordlicht-dev/ocsync/internal/ocs"
	"github.com/nordlicht-dev/ocsync/internal/options"
	"github.com/nordlicht-dev/ocsync/internal/sync"
	"github.com/nordlicht-dev/ocsync/internal/utils"
	"github.com/nordlicht-dev/ocsync/pkg/version"
)

// Flag parsing is intentionally left to options.Parse: the command takes
// positional arguments after the options, and the option grammar predates
// this tool. Cobra provides the entry point and help plumbing only.
var rootCmd = &cobra.Command{
	Use:                "ocsync [OPTION] <source_dir> <server_url>",
	Short:              "Sync a local directory with a server folder once and exit",
	DisableFlagParsing: true,
	SilenceUsage:       true,
	SilenceErrors:      true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSync(cmd.Context(), args)
	},
}

// Execute runs the command and maps the outcome to a process exit code.
func Execute() int {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		var appErr *utils.AppError
		if errors.As(err, &appErr) {
			if appErr.CLIError.Code == utils.ErrCodeUsage {
				fmt.Fprintln(os.Stderr, appErr.CLIError.Message)
				fmt.Fprintln(os.Stderr)
				fmt.Fprint(os.Stderr, options.Usage())
			} else {
				fmt.Fprintln(os.Stderr, appErr.Error())
			}
			return appErr.ExitCode()
		}
		fmt.Fprintln(os.Stderr, err)
		return utils.ExitUnknown
	}
	return utils.ExitSuccess
}

func runSync(ctx context.Context, args []string) error {
	opts, err := options.Parse(args)
	if errors.Is(err, options.ErrVersionRequested) {
		fmt.Println(version.Get().String())
		return nil
	}
	if err != nil {
		return err
	}

	logger, err := buildLogger(opts)
	if err != nil {
		return err
	}
	defer logger.Close()
	logger = logger.WithTraceID(uuid.New().String())

	davPath := opts.DavPath
	if davPath == "" {
		davPath = ocs.DefaultDavPath
	}

	resolved, err := ocs.ResolveTarget(opts.TargetURL, davPath)
	if err != nil {
		return utils.NewAppError(utils.NewCLIError(utils.ErrCodeUsage, err.Error()).Build())
	}

	cred, err := resolveCredentials(resolved, opts, logger)
	if err != nil {
		return err
	}

	account := ocs.NewAccount()
	account.URL = resolved.ServerURL
	account.DavPath = davPath
	account.Credentials = cred

	transport, err := ocs.NewTransport(cred.TrustSSL, opts.Proxy)
	if err != nil {
		return err
	}

	client := ocs.NewClient(account, transport, logger)
	if err := client.Bootstrap(ctx); err != nil {
		return err
	}
	logger.Info("connected to server",
		logging.F("url", account.URL.String()),
		logging.F("version", account.ServerVersion),
		logging.F("user", account.DavUser))

	jnlPath := filepath.Join(opts.SourceDir,
		journal.MakeName(account.URL.String(), resolved.Folder, cred.User))
	jnl, err := journal.Open(jnlPath)
	if err != nil {
		return utils.NewAppError(utils.NewCLIError(utils.ErrCodeJournalError,
			fmt.Sprintf("cannot open sync journal: %v", err)).Build())
	}
	defer jnl.Close()

	eng := engine.New(account, opts.SourceDir, resolved.Folder, jnl, transport, logger)
	runCtx := &sync.RunContext{
		Options: opts,
		Account: account,
		Folder:  resolved.Folder,
		User:    cred.User,
	}
	driver := sync.NewDriver(runCtx, eng, jnl, logger)

	res, err := driver.Run(ctx)
	if err != nil {
		return err
	}

	if !opts.Silent {
		printSummary(os.Stdout, res.Summary)
	}
	return nil
}

func buildLogger(opts *options.Options) (logging.Logger, error) {
	cfg := logging.DefaultLogConfig()
	cfg.EnableConsole = !opts.Silent
	if opts.LogDebug {
		cfg.Level = logging.DEBUG
	}
	return logging.NewLogger(cfg)
}

// resolveCredentials rebuilds the userinfo-bearing URL the chain expects,
// since target resolution already split credentials from the server URL.
func resolveCredentials(resolved *ocs.ResolvedTarget, opts *options.Options, logger logging.Logger) (credentials.Credentials, error) {
	chainURL := *resolved.ServerURL
	if resolved.User != "" {
		if resolved.Password != "" {
			chainURL.User = url.UserPassword(resolved.User, resolved.Password)
		} else {
			chainURL.User = url.User(resolved.User)
		}
	}

	chain := &credentials.Chain{Logger: logger}
	if opts.UseNetrc {
		chain.Netrc = credentials.DefaultNetrc()
	}
	if opts.Interactive {
		chain.Prompter = credentials.TerminalPrompter{}
	}
	return chain.Resolve(&chainURL, opts)
}
