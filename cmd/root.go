package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/lukman83/mhe-storefront/config"
	"github.com/lukman83/mhe-storefront/internal/notify"
	"github.com/lukman83/mhe-storefront/internal/storefront"
	"github.com/lukman83/mhe-storefront/internal/ui"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

var (
	cfg     *config.Config
	cfgErr  error
	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:           "mhestore",
	Short:         "MHE Storefront - cart, wishlist, comparison and address CLI & MCP server",
	Long:          "A Go CLI and MCP server for the material-handling equipment marketplace: keep cart, wishlist, product comparison and delivery addresses in sync with the store.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// reportedError marks a failure the user already saw as a notification.
type reportedError struct{ error }

func (e reportedError) Unwrap() error { return e.error }

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		var reported reportedError
		if !errors.As(err, &reported) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default ./"+config.DefaultFile+")")
	rootCmd.PersistentFlags().String("api-url", "", "Marketplace REST API base URL")
	rootCmd.PersistentFlags().String("site-url", "", "Storefront base URL used for product and cart links")
	rootCmd.PersistentFlags().String("token", "", "API access token")
	rootCmd.PersistentFlags().String("store", "", "Local state driver: file, memory, redis")
	rootCmd.PersistentFlags().String("proxy", "", "HTTP or SOCKS5 proxy URL")
	rootCmd.PersistentFlags().String("browser", "", "Browser for --open: system, chrome")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
}

func initConfig() {
	cfg = config.DefaultConfig()

	path, required := cfgFile, true
	if path == "" {
		path, required = config.DefaultFile, false
	}
	cfgErr = cfg.LoadFile(path, required)
	cfg.LoadFromEnv()

	// Override from flags
	if v, _ := rootCmd.PersistentFlags().GetString("api-url"); v != "" {
		cfg.APIBaseURL = v
	}
	if v, _ := rootCmd.PersistentFlags().GetString("site-url"); v != "" {
		cfg.SiteURL = v
	}
	if v, _ := rootCmd.PersistentFlags().GetString("token"); v != "" {
		cfg.AccessToken = v
	}
	if v, _ := rootCmd.PersistentFlags().GetString("store"); v != "" {
		cfg.StoreDriver = v
	}
	if v, _ := rootCmd.PersistentFlags().GetString("proxy"); v != "" {
		cfg.ProxyURL = v
	}
	if v, _ := rootCmd.PersistentFlags().GetString("browser"); v != "" {
		cfg.Browser = v
	}
	if v, _ := rootCmd.PersistentFlags().GetString("log-level"); v != "" {
		cfg.LogLevel = v
	}

	slog.SetDefault(newLogger(os.Stderr, cfg.LogLevel))
}

func newLogger(w io.Writer, level string) *slog.Logger {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		l = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: l}))
}

// buildService creates the storefront service from config. Metrics are
// registered with reg when it is non-nil.
func buildService(reg prometheus.Registerer, interactive bool) (*storefront.Service, error) {
	if cfgErr != nil {
		return nil, cfgErr
	}
	opts := storefront.Options{
		Registerer: reg,
		Logger:     slog.Default(),
	}
	if interactive {
		nav, err := ui.NewNavigator(cfg.Browser)
		if err != nil {
			return nil, err
		}
		opts.Navigator = nav
		if ui.ClipboardAvailable() {
			opts.Clipboard = ui.SystemClipboard{}
		}
	}
	return storefront.New(cfg, opts)
}

// session is what every product-level command needs: the service, a
// terminal for notifications and a spinner for loading.
type session struct {
	svc  *storefront.Service
	term *ui.Terminal
	spin *ui.Spinner
}

func newSession(cmd *cobra.Command) (*session, error) {
	svc, err := buildService(nil, true)
	if err != nil {
		return nil, err
	}
	return &session{
		svc:  svc,
		term: ui.NewTerminal(cmd.OutOrStdout()),
		spin: ui.NewSpinner(cmd.ErrOrStderr()),
	}, nil
}

func (s *session) Close() { s.svc.Close() }

// loading runs fn with the spinner showing progress.
func (s *session) loading(ctx context.Context, msg string, fn func(ctx context.Context) error) error {
	s.spin.Start(msg)
	defer s.spin.Stop()
	return fn(notify.WithProgress(ctx, s.spin.Update))
}

// done turns an operation error the user already saw as a toast into a
// silent non-zero exit.
func done(err error) error {
	if err == nil {
		return nil
	}
	return reportedError{err}
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid product id %q", arg)
	}
	return id, nil
}
