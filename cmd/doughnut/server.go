package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kalambet/doughnut/internal/api"
	"github.com/kalambet/doughnut/internal/config"
)

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "doughnut.pid")
}

func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func removePIDFile(path string) {
	os.Remove(path)
}

// watcher is implemented by stores that can follow changes made by other processes.
type watcher interface {
	Watch(ctx context.Context, onChange func()) error
}

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the preferences HTTP API (foreground)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runServer(cmd)
		},
	}
}

func (a *app) runServer(cmd *cobra.Command) error {
	stderr := cmd.ErrOrStderr()
	fmt.Fprintf(stderr, "doughnut version %s\n", version)

	prefs, err := a.preferences()
	if err != nil {
		return err
	}
	token, err := config.APIToken(a.keychain)
	if err != nil {
		return fmt.Errorf("initializing API token: %w", err)
	}
	a.logger.Info("API bearer token available")

	addr := fmt.Sprintf("127.0.0.1:%d", a.cfg.Server.Port)
	pidPath := pidFilePath(a.dataDir)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get("http://" + addr + "/health"); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		return fmt.Errorf("server already running on port %d", a.cfg.Server.Port)
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	srv := &http.Server{
		Handler:           api.NewHandler(api.Deps{Prefs: prefs, Token: token, Logger: a.logger}),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		printStep(stderr, "doughnut listening on %s", addr)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if w, ok := a.store.(watcher); ok {
		g.Go(func() error {
			return w.Watch(gctx, func() {
				a.logger.Info("preferences changed on disk, reloaded")
			})
		})
	}
	return g.Wait()
}

func newStopCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the running server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pidPath := pidFilePath(a.dataDir)
			pid, err := readPIDFile(pidPath)
			if err != nil {
				return fmt.Errorf("doughnut is not running (no PID file): %w", err)
			}
			process, err := os.FindProcess(pid)
			if err != nil {
				return fmt.Errorf("could not find process %d: %w", pid, err)
			}
			if err := process.Signal(syscall.SIGTERM); err != nil {
				removePIDFile(pidPath)
				return fmt.Errorf("could not stop doughnut (PID %d): %w", pid, err)
			}
			printSuccess(cmd.ErrOrStderr(), "Sent stop signal to doughnut (PID %d)", pid)
			return nil
		},
	}
}

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show server and store status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.ErrOrStderr()
			printStatus(out, "Store", "%s", a.cfg.Store.Backend)
			if a.cfg.Store.Path != "" {
				printStatus(out, "Store path", "%s", a.cfg.Store.Path)
			}

			client, err := a.newAPIClient()
			if err != nil {
				return err
			}
			if err := client.health(cmd.Context()); err != nil {
				printStatus(out, "Server", "stopped")
				return nil
			}
			printStatus(out, "Server", "running on port %d", a.cfg.Server.Port)

			var lib api.LibraryView
			if err := client.getJSON(cmd.Context(), "/library", &lib); err != nil {
				printWarning(out, "could not read library: %v", err)
				return nil
			}
			if lib.Configured {
				printStatus(out, "Library", "%s", lib.Path)
			} else {
				printStatus(out, "Library", "not configured")
			}
			return nil
		},
	}
}

func newMCPCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the preference tools over MCP (stdio transport)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			prefs, err := a.preferences()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			stdio := server.NewStdioServer(api.NewMCPServer(prefs, version))
			a.logger.Info("MCP server started (stdio transport)")
			if err := stdio.Listen(ctx, cmd.InOrStdin(), cmd.OutOrStdout()); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("MCP stdio server: %w", err)
			}
			return nil
		},
	}
}
