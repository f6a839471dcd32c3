// Package cmd provides the command-line interface. Without a subcommand the
// binary runs as an AWS Lambda function.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/xiaocaoooo/screenshot-lambda/internal/config"
	"github.com/xiaocaoooo/screenshot-lambda/internal/logging"
	"github.com/xiaocaoooo/screenshot-lambda/internal/scrape"
	"github.com/xiaocaoooo/screenshot-lambda/internal/storage"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

// SetVersionInfo sets version information for the CLI
func SetVersionInfo(v, bt string) {
	version = v
	buildTime = bt
}

// app carries what the commands share; tests replace the hooks.
type app struct {
	v       *viper.Viper
	cfgFile string
	envFile string
	fs      afero.Fs
	logOut  io.Writer

	startLambda func(handler interface{})
	newService  func(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*scrape.Service, error)
}

func newApp() *app {
	return &app{
		v:           config.NewViper(),
		fs:          afero.NewOsFs(),
		logOut:      os.Stdout,
		startLambda: lambda.Start,
		newService:  buildService,
	}
}

// Execute runs the root command.
func Execute() error {
	return newRootCmd(newApp()).Execute()
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "screenshot-lambda",
		Short: "Headless Chrome page fetcher and screenshot service",
		Long: `screenshot-lambda loads a page in headless Chrome, waits until enough
content has rendered, normalizes Traditional Chinese fonts and returns the
page text, HTML and/or a PNG screenshot.

Without a subcommand it runs as an AWS Lambda handler.`,
		Version:       fmt.Sprintf("%s (built %s)", version, buildTime),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := a.loadEnvFile(); err != nil {
				return err
			}
			return a.readConfigFile()
		},
		RunE: a.runLambda,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (YAML)")
	flags.StringVar(&a.envFile, "env-file", "", "dotenv file loaded into the environment before configuration")
	flags.String("log-level", "info", "log level: debug, info, warn, error")
	flags.String("log-format", "json", "log format: json or console")
	flags.String("chrome-path", config.DefaultChromePath, "local Chrome binary")
	flags.String("chrome-ws-endpoint", "", "remote DevTools websocket endpoint")
	flags.String("browserless-http-url", "", "remote browserless HTTP base URL")
	flags.String("screenshot-bucket", "", "S3 bucket for screenshot uploads (empty disables)")

	bindFlags := []struct {
		viperKey string
		flagName string
	}{
		{"log_level", "log-level"},
		{"log_format", "log-format"},
		{"chrome_path", "chrome-path"},
		{"chrome_ws_endpoint", "chrome-ws-endpoint"},
		{"browserless_http_url", "browserless-http-url"},
		{"screenshot_bucket", "screenshot-bucket"},
	}
	for _, bind := range bindFlags {
		if err := a.v.BindPFlag(bind.viperKey, flags.Lookup(bind.flagName)); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to bind flag %s: %v\n", bind.flagName, err)
		}
	}

	root.AddCommand(newServeCmd(a), newFetchCmd(a))
	return root
}

// loadEnvFile 不覆盖已存在的环境变量；文件不存在时忽略。
func (a *app) loadEnvFile() error {
	if a.envFile == "" {
		return nil
	}
	if err := godotenv.Load(a.envFile); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file %s: %w", a.envFile, err)
	}
	return nil
}

func (a *app) readConfigFile() error {
	if a.cfgFile == "" {
		return nil
	}
	a.v.SetFs(a.fs)
	a.v.SetConfigFile(a.cfgFile)
	if err := a.v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file %s: %w", a.cfgFile, err)
	}
	return nil
}

func (a *app) load() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(a.v)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	log := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Output: a.logOut})
	return cfg, log, nil
}

func (a *app) runLambda(cmd *cobra.Command, _ []string) error {
	cfg, log, err := a.load()
	if err != nil {
		return err
	}
	svc, err := a.newService(cmd.Context(), cfg, log)
	if err != nil {
		return err
	}
	log.Info().
		Str("version", version).
		Bool("remote_browser", cfg.RemoteBrowser()).
		Bool("upload", cfg.UploadEnabled()).
		Msg("starting lambda handler")
	a.startLambda(svc.Invoke)
	return nil
}

func buildService(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*scrape.Service, error) {
	opts := []scrape.Option{scrape.WithLogger(log)}
	if cfg.UploadEnabled() {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("unable to load AWS SDK config: %w", err)
		}
		opts = append(opts, scrape.WithUploader(storage.NewS3Uploader(awsCfg, cfg.ScreenshotBucket)))
	}
	return scrape.NewService(cfg, opts...), nil
}
