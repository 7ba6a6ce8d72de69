package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cuemby/zocker/pkg/log"
	"github.com/cuemby/zocker/pkg/plugin"
	"github.com/cuemby/zocker/pkg/volume"
	"github.com/cuemby/zocker/pkg/zfs"
	"github.com/spf13/cobra"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "zockerd",
	Short: "ZFS-backed local volume driver plugin",
	Long: `zockerd answers the container engine's volume-plugin RPCs over a Unix
socket, backing every volume with a ZFS dataset under a configured root.`,
	Version: Version,
	RunE:    run,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"zockerd version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	rootCmd.Flags().String("zfs-root", "tank/zocker", "Root ZFS dataset volumes are created beneath")
	rootCmd.Flags().String("socket", "/run/docker/plugins/zocker.sock", "Unix socket to serve the plugin protocol on")

	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(versionCmd)
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")

	log.Init(log.Config{
		Level:      log.Level(logLevel),
		JSONOutput: logJSON,
	})
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build metadata",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("zockerd %s (%s, built %s)\n", Version, Commit, BuildTime)
		return nil
	},
}

func run(cmd *cobra.Command, args []string) error {
	zfsRoot, _ := cmd.Flags().GetString("zfs-root")
	socketPath, _ := cmd.Flags().GetString("socket")

	logger := log.WithComponent("zockerd")

	pool := zfs.NewPool(zfsRoot)
	if _, err := pool.RootMountpoint(context.Background()); err != nil {
		return fmt.Errorf("zfs root %s is not accessible: %w", zfsRoot, err)
	}
	mgr := volume.NewManager(pool)
	server := plugin.NewServer(mgr)

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("socket", socketPath).Str("zfs_root", zfsRoot).Msg("serving volume plugin")
		errCh <- server.Serve(socketPath)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		logger.Info().Msg("received shutdown signal")
		return nil
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("plugin server exited")
		}
		return err
	}
}
