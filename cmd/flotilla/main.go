package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/flotilla-sh/flotilla/pkg/activity"
	"github.com/flotilla-sh/flotilla/pkg/config"
	"github.com/flotilla-sh/flotilla/pkg/fleet"
	"github.com/flotilla-sh/flotilla/pkg/log"
	"github.com/flotilla-sh/flotilla/pkg/notify"
	"github.com/flotilla-sh/flotilla/pkg/security"
	"github.com/flotilla-sh/flotilla/pkg/sshexec"
	"github.com/flotilla-sh/flotilla/pkg/storage"
	"github.com/flotilla-sh/flotilla/pkg/swarm"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

var (
	flagConfig   string
	flagDataDir  string
	flagLogLevel string

	cfg *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "flotilla",
	Short: "Flotilla - worker node fleet manager for Docker Swarm",
	Long: `Flotilla manages a fleet of worker nodes in a Docker Swarm cluster:
bootstrap the cluster, enroll and provision workers over SSH, watch
their health and resource usage, and alert administrators when a node
goes dark or runs hot.`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(flagConfig)
		if err != nil {
			return err
		}
		if flagDataDir != "" {
			cfg.DataDir = flagDataDir
		}
		if flagLogLevel != "" {
			cfg.Logging.Level = flagLogLevel
		}

		log.Init(log.Config{
			Level:      log.Level(cfg.Logging.Level),
			JSONOutput: cfg.Logging.Format == "json",
		})
		return nil
	},
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"Flotilla version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "Path to config file")
	rootCmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "Override the data directory")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Override the log level")

	rootCmd.AddCommand(clusterCmd)
	rootCmd.AddCommand(nodeCmd)
	rootCmd.AddCommand(adminCmd)
	rootCmd.AddCommand(sweepCmd)
	rootCmd.AddCommand(monitorCmd)
	rootCmd.AddCommand(activityCmd)
}

// app bundles the wired components behind every command
type app struct {
	store    *storage.BoltStore
	docker   *swarm.DockerClient
	recorder *activity.Recorder
	manager  *fleet.Manager
}

func newApp() (*app, error) {
	if cfg.Secrets.Passphrase == "" {
		return nil, fmt.Errorf("no secrets passphrase configured (set secrets.passphrase or FLOTILLA_SECRETS_PASSPHRASE)")
	}
	secrets, err := security.NewSecretsManagerFromPassword(cfg.Secrets.Passphrase)
	if err != nil {
		return nil, err
	}

	store, err := storage.NewBoltStore(cfg.DataDir, secrets)
	if err != nil {
		return nil, err
	}

	docker, err := swarm.NewDockerClient(cfg.Swarm.Host)
	if err != nil {
		store.Close()
		return nil, err
	}

	recorder := activity.NewRecorder(store, cfg.Activity.Buffer)
	recorder.Start()

	manager, err := fleet.NewManager(fleet.Deps{
		Store:    store,
		Swarm:    docker,
		Runner:   sshexec.NewExecutor(cfg.Provision.SSH.ConnectTimeout),
		Secrets:  secrets,
		Notifier: notify.NewWebhookNotifier(cfg.Alerts.NotifyTimeout),
		Recorder: recorder,
	}, fleet.Options{
		AdvertiseAddr:     cfg.Swarm.AdvertiseAddr,
		ListenAddr:        cfg.Swarm.ListenAddr,
		OverlayNetwork:    cfg.Swarm.OverlayNetwork,
		ScriptPath:        cfg.Provision.ScriptPath,
		MatchAttempts:     cfg.Provision.MatchAttempts,
		MatchDelay:        cfg.Provision.MatchDelay,
		DrainGrace:        cfg.Sweep.DrainGrace,
		AlertCooldown:     cfg.Alerts.Cooldown,
		RecipientCacheTTL: cfg.Alerts.RecipientCacheTTL,
		NotifyTimeout:     cfg.Alerts.NotifyTimeout,
		CPUThreshold:      cfg.Alerts.CPUThreshold,
		MemoryThreshold:   cfg.Alerts.MemoryThreshold,
	})
	if err != nil {
		recorder.Close()
		docker.Close()
		store.Close()
		return nil, err
	}

	return &app{
		store:    store,
		docker:   docker,
		recorder: recorder,
		manager:  manager,
	}, nil
}

func (a *app) close() {
	a.recorder.Close()
	_ = a.docker.Close()
	_ = a.store.Close()
}

func formatAge(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	d := time.Since(t).Round(time.Second)
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds ago", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	default:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	}
}
