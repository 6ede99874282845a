package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ayusman/posehold/internal/app"
	"github.com/ayusman/posehold/internal/capture"
	"github.com/ayusman/posehold/internal/challenge"
	"github.com/ayusman/posehold/internal/config"
	"github.com/ayusman/posehold/internal/detector"
	"github.com/ayusman/posehold/internal/log"
	"github.com/ayusman/posehold/internal/plugin"
	"github.com/ayusman/posehold/internal/pose"
	"github.com/ayusman/posehold/internal/server"
	"github.com/ayusman/posehold/internal/store"
	"github.com/ayusman/posehold/internal/tray"
)

// trayCommandTimeout bounds a command issued from a tray click.
const trayCommandTimeout = 2 * time.Second

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the camera session with the tray and the web UI",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSession(true)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the camera session with the web UI only",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSession(false)
	},
}

func runSession(withTray bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	seq, fromFile, err := loadSequence(cfg, st)
	if err != nil {
		return err
	}

	live, err := detector.NewMediaPipeDetector(detector.DefaultConfig())
	if err != nil {
		return fmt.Errorf("start detector: %w", err)
	}
	stillConfig := detector.DefaultConfig()
	stillConfig.StaticImageMode = true
	still, err := detector.NewMediaPipeDetector(stillConfig)
	if err != nil {
		live.Close()
		return fmt.Errorf("start reference detector: %w", err)
	}
	defer still.Close()

	plugins := plugin.NewManager(cfg.PluginDir)
	if err := plugins.Discover(); err != nil {
		log.Warn("plugin discovery failed", "dir", cfg.PluginDir, "err", err)
	}
	hooks := plugin.NewDispatcher(plugins, plugin.NewExecutor(plugin.DefaultTimeout), st.Hooks())
	defer hooks.Close()

	preview := capture.NewPreview()
	session, err := app.New(app.Config{
		Camera:       capture.NewCamera(cfg.CameraID, capture.WithFPS(cfg.FPS)),
		Detector:     live,
		Resolver:     app.NewCachedResolver(st.References(), still),
		Matcher:      pose.NewMatcher(cfg.Threshold, cfg.Tolerance),
		Preview:      preview,
		Hooks:        hooks,
		Settings:     st.Settings(),
		Sequence:     seq,
		HoldDuration: initialHold(cfg, st.Settings()),
		AutoAdvance:  cfg.AutoAdvance,
		FPS:          cfg.FPS,
	})
	if err != nil {
		live.Close()
		return err
	}
	if err := session.Start(ctx); err != nil {
		return err
	}
	defer session.Stop()

	if enabled, err := st.Settings().GetBool(store.SettingEnabled); err == nil && !enabled {
		if err := session.SetEnabled(ctx, false); err != nil {
			log.Warn("failed to restore paused state", "err", err)
		}
	}

	if fromFile {
		go func() {
			if err := session.WatchSequence(ctx, cfg.SequencePath); err != nil && !errors.Is(err, context.Canceled) {
				log.Warn("sequence watch stopped", "path", cfg.SequencePath, "err", err)
			}
		}()
	}

	srv := server.New(server.Config{
		StaticDir: findWebDir(cfg.DataDir),
		Store:     st,
		Session:   session,
		Preview:   preview,
		Plugins:   plugins,
		OnCatalogChange: func() {
			if !fromFile {
				reloadCatalog(ctx, st, session)
			}
		},
		OnReferenceChange: func(poseID string) {
			cmdCtx, cancel := context.WithTimeout(ctx, trayCommandTimeout)
			defer cancel()
			if err := session.RefreshReference(cmdCtx, poseID); err != nil {
				log.Warn("failed to refresh reference", "pose", poseID, "err", err)
			}
		},
	})

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.ListenAndServe(ctx, cfg.Addr)
	}()

	if withTray {
		tr := newTray(ctx, session, stop, uiURL(cfg.Addr))
		go tr.Follow(ctx, session)
		go func() {
			select {
			case <-ctx.Done():
			case err := <-serveErr:
				serveErr <- err
			}
			tr.Quit()
		}()
		tr.Run()
		stop()
	}

	if err := <-serveErr; err != nil {
		return fmt.Errorf("server: %w", err)
	}
	log.Info("posehold stopped")
	return nil
}

// openStore creates the data directory and opens the database in it.
func openStore(cfg config.Config) (*store.Store, error) {
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	st, err := store.New(cfg.DBPath())
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return st, nil
}

// loadSequence picks the session's poses: the sequence file if configured,
// else the catalog if it has entries, else the built-in sequence. fromFile
// reports whether the sequence file is the source.
func loadSequence(cfg config.Config, st *store.Store) (seq challenge.Sequence, fromFile bool, err error) {
	if cfg.SequencePath != "" {
		seq, err := challenge.LoadSequenceFile(cfg.SequencePath)
		if err != nil {
			return nil, false, err
		}
		return seq, true, nil
	}

	poses, err := st.Poses().List()
	if err != nil {
		return nil, false, fmt.Errorf("list catalog: %w", err)
	}
	if len(poses) > 0 {
		seq := app.SequenceFromCatalog(poses)
		if err := seq.Validate(); err != nil {
			return nil, false, fmt.Errorf("catalog: %w", err)
		}
		return seq, false, nil
	}
	return challenge.DefaultSequence(), false, nil
}

// holdSetting reads the stored hold target.
type holdSetting interface {
	GetInt(key string) (int, error)
}

// initialHold returns the configured hold target. The stored setting wins
// unless the environment sets one explicitly.
func initialHold(cfg config.Config, settings holdSetting) time.Duration {
	if os.Getenv(config.EnvHoldSeconds) != "" {
		return cfg.HoldDuration
	}
	secs, err := settings.GetInt(store.SettingHoldSeconds)
	if err != nil {
		return cfg.HoldDuration
	}
	d, err := challenge.HoldSeconds(secs)
	if err != nil {
		log.Warn("ignoring stored hold target", "seconds", secs, "err", err)
		return cfg.HoldDuration
	}
	return d
}

// reloadCatalog swaps the session sequence for the edited catalog. An empty
// or invalid catalog leaves the current sequence in place.
func reloadCatalog(ctx context.Context, st *store.Store, session *app.App) {
	poses, err := st.Poses().List()
	if err != nil {
		log.Warn("failed to read catalog", "err", err)
		return
	}
	seq := app.SequenceFromCatalog(poses)
	if err := seq.Validate(); err != nil {
		log.Warn("catalog not applied", "err", err)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, trayCommandTimeout)
	defer cancel()
	if err := session.ReplaceSequence(ctx, seq); err != nil {
		log.Warn("failed to apply catalog", "err", err)
	}
}

// newTray wires tray clicks to session commands.
func newTray(ctx context.Context, session *app.App, quit func(), url string) *tray.Tray {
	tr := tray.New()

	do := func(name string, fn func(context.Context) error) {
		go func() {
			cmdCtx, cancel := context.WithTimeout(ctx, trayCommandTimeout)
			defer cancel()
			if err := fn(cmdCtx); err != nil {
				log.Warn("tray command failed", "command", name, "err", err)
			}
		}()
	}

	tr.OnToggle(func(enabled bool) {
		do("toggle", func(ctx context.Context) error { return session.SetEnabled(ctx, enabled) })
	})
	tr.OnNext(func() { do("next", session.Next) })
	tr.OnReset(func() { do("reset", session.Reset) })
	tr.OnHold(func(seconds int) {
		do("hold", func(ctx context.Context) error {
			d, err := challenge.HoldSeconds(seconds)
			if err != nil {
				return err
			}
			return session.SetTarget(ctx, d)
		})
	})
	tr.OnOpenUI(func() {
		if err := openBrowser(url); err != nil {
			log.Warn("failed to open browser", "url", url, "err", err)
		}
	})
	tr.OnQuit(quit)
	return tr
}

// uiURL turns a listen address into a browsable URL.
func uiURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return "http://" + addr
}

func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and <dataDir>/web.
// Returns the first existing directory or empty string if none found.
func findWebDir(dataDir string) string {
	relativePaths := []string{"web", "../web", "../../web"}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}

	dataWebDir := filepath.Join(dataDir, "web")
	if info, err := os.Stat(dataWebDir); err == nil && info.IsDir() {
		return dataWebDir
	}

	return ""
}
