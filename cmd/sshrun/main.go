// Command sshrun connects to an SSH server, authenticates with an Ed25519
// identity, execs a single command (typically `git-upload-pack <repo>`),
// writes the relayed stdout/stderr to its own, and exits with the remote
// command's exit status when that status is non-zero. It is the reference
// driver for the sshcore library, grounded on the cmd/ layout in the
// kgiusti-go-fdo-server example (cobra root command, viper-bound flags).
package main

import (
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"sshcore"
)

var cfg sshcore.CLIConfig

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgFile string

	root := &cobra.Command{
		Use:   "sshrun",
		Short: "Run one command over a minimal SSH 2.0 client connection",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfgFile != "" {
				viper.SetConfigFile(cfgFile)
				if err := viper.ReadInConfig(); err != nil {
					return fmt.Errorf("reading config file: %w", err)
				}
			}
			if err := viper.Unmarshal(&cfg); err != nil {
				return fmt.Errorf("binding configuration: %w", err)
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(&cfg)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "path to a YAML/TOML config file")
	flags.String("host", "", "SSH server host")
	flags.Int("port", 22, "SSH server port")
	flags.String("user", "git", "username to authenticate as")
	flags.String("identity", "", "path to a raw 32-byte Ed25519 seed file")
	flags.String("command", "", "command to exec, e.g. 'git-upload-pack repo.git'")
	flags.String("metrics-addr", "", "if set, serve Prometheus metrics on this address")

	for _, name := range []string{"host", "port", "user", "identity", "command", "metrics-addr"} {
		if err := viper.BindPFlag(name, flags.Lookup(name)); err != nil {
			panic(err)
		}
	}

	return root
}

func run(cfg *sshcore.CLIConfig) error {
	log := logrus.New()

	signer, err := sshcore.LoadIdentity(cfg.IdentityFile)
	if err != nil {
		return err
	}

	var metrics *sshcore.Metrics
	if cfg.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		metrics = sshcore.NewMetrics(reg)
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		server := &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.WithError(err).Error("metrics server stopped")
			}
		}()
	}

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	conn, err := net.DialTimeout("tcp", addr, 10*time.Second)
	if err != nil {
		return fmt.Errorf("dialing %s: %w", addr, err)
	}
	defer conn.Close()

	creds := sshcore.Credentials{Username: cfg.User, Signer: signer}
	opts := []sshcore.Option{
		sshcore.WithLogger(log),
		sshcore.WithReadTimeout(30 * time.Second),
	}
	if metrics != nil {
		opts = append(opts, sshcore.WithMetrics(metrics))
	}

	client, err := sshcore.New(conn, creds, opts...)
	if err != nil {
		return fmt.Errorf("connecting: %w", err)
	}

	result, err := client.Run(cfg.Command)
	if result != nil {
		os.Stdout.Write(result.Stdout)
		os.Stderr.Write(result.Stderr)
	}
	if err != nil {
		return fmt.Errorf("running %q: %w", cfg.Command, err)
	}
	if result.ExitStatus != nil && *result.ExitStatus != 0 {
		os.Exit(int(*result.ExitStatus))
	}
	return nil
}
