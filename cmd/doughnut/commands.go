package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kalambet/doughnut/internal/api"
	"github.com/kalambet/doughnut/internal/config"
	"github.com/kalambet/doughnut/internal/preference"
)

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "doughnut",
		Short:         "Inspect and manage Doughnut podcast player preferences",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/doughnut/config.toml)")
	pf.StringVar(&a.backend, "backend", "", "preference store: platform, file, sqlite or memory")
	pf.StringVar(&a.storePath, "store-path", "", "preferences file (file backend) or data directory (sqlite backend)")
	pf.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error or off")

	root.AddCommand(
		newPrefsCmd(a),
		newLibraryCmd(a),
		newConfigCmd(a),
		newServeCmd(a),
		newStopCmd(a),
		newStatusCmd(a),
		newMCPCmd(a),
		newVersionCmd(),
	)
	return root
}

// --- prefs ---

func newPrefsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prefs",
		Short: "Read and write preferences",
	}

	var asJSON bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List every preference with its value and default",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			prefs, err := a.preferences()
			if err != nil {
				return err
			}
			views := api.Views(prefs)
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(views)
			}

			tracked, hasUpdated := a.store.(updatedAter)
			headers := []string{"KEY", "VALUE", "TYPE", "DEFAULT"}
			if hasUpdated {
				headers = append(headers, "UPDATED")
			}
			rows := make([][]string, 0, len(views))
			for _, v := range views {
				value, kind := "-", "-"
				if v.Set {
					value, kind = v.Value.String(), v.Value.Kind().String()
				}
				def := "-"
				if v.Default.IsValid() {
					def = v.Default.String()
				}
				row := []string{v.Key, value, kind, def}
				if hasUpdated {
					updated := "-"
					if at, err := tracked.UpdatedAt(v.Key); err == nil {
						updated = at.Local().Format(time.DateTime)
					}
					row = append(row, updated)
				}
				rows = append(rows, row)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(headers, rows))
			return nil
		},
	}
	list.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")

	get := &cobra.Command{
		Use:   "get <key>",
		Short: "Print a preference, falling back to its default",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prefs, key, err := a.preferenceKey(args[0])
			if err != nil {
				return err
			}
			if v, ok := prefs.Object(key); ok {
				fmt.Fprintln(cmd.OutOrStdout(), v.String())
				return nil
			}
			if def, ok := prefs.Default(key); ok {
				printWarning(cmd.ErrOrStderr(), "%s is not set, showing its default", key)
				fmt.Fprintln(cmd.OutOrStdout(), def.String())
				return nil
			}
			printWarning(cmd.ErrOrStderr(), "%s is not set and has no default", key)
			return nil
		},
	}

	var typ string
	set := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Store a preference",
		Long: `Store a preference.

The value is parsed as --type, or as the type of the key's default when
--type is omitted (string for keys without a default). Types: bool, integer,
float, double, string, strings (comma separated), data (base64), url (URL or
path), dictionary and array (JSON entries).

Examples:
  doughnut prefs set reloadFrequency 15
  doughnut prefs set Volume 0.7 --type double
  doughnut prefs set libraryPath ~/Podcasts`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			prefs, key, err := a.preferenceKey(args[0])
			if err != nil {
				return err
			}
			v, err := prefs.ParseInput(key, typ, args[1])
			if err != nil {
				return err
			}
			if err := prefs.Set(key, v); err != nil {
				return err
			}
			printSuccess(cmd.ErrOrStderr(), "Set %s = %s (%s)", key, v, v.Kind())
			return nil
		},
	}
	set.Flags().StringVar(&typ, "type", "", "value type (default: the type of the key's default)")

	unset := &cobra.Command{
		Use:   "unset <key>",
		Short: "Remove a stored preference",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prefs, key, err := a.preferenceKey(args[0])
			if err != nil {
				return err
			}
			if err := prefs.Remove(key); err != nil {
				return err
			}
			printSuccess(cmd.ErrOrStderr(), "Removed %s", key)
			return nil
		},
	}

	reset := &cobra.Command{
		Use:   "reset <key>",
		Short: "Restore a preference to its default",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prefs, key, err := a.preferenceKey(args[0])
			if err != nil {
				return err
			}
			if err := prefs.Reset(key); err != nil {
				return err
			}
			if def, ok := prefs.Default(key); ok {
				printSuccess(cmd.ErrOrStderr(), "Reset %s to %s", key, def)
			} else {
				printSuccess(cmd.ErrOrStderr(), "Removed %s (no default)", key)
			}
			return nil
		},
	}

	cmd.AddCommand(list, get, set, unset, reset)
	return cmd
}

type updatedAter interface {
	UpdatedAt(key string) (time.Time, error)
}

func (a *app) preferenceKey(name string) (*preference.Preferences, preference.Key, error) {
	key, err := preference.ParseKey(name)
	if err != nil {
		return nil, preference.Key{}, err
	}
	prefs, err := a.preferences()
	if err != nil {
		return nil, preference.Key{}, err
	}
	return prefs, key, nil
}

// --- library ---

var errNoLibrary = errors.New("no library path configured; set one with `doughnut library set <dir>`")

func newLibraryCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "library",
		Short: "Resolve and manage the podcast library directory",
	}

	path := &cobra.Command{
		Use:   "path",
		Short: "Print the library directory for the current build mode",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			prefs, err := a.preferences()
			if err != nil {
				return err
			}
			dir, ok := prefs.LibraryPath()
			if !ok {
				return errNoLibrary
			}
			fmt.Fprintln(cmd.OutOrStdout(), dir)
			return nil
		},
	}

	set := &cobra.Command{
		Use:   "set <dir>",
		Short: "Store the library location",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prefs, err := a.preferences()
			if err != nil {
				return err
			}
			if err := prefs.SetLibraryPath(args[0]); err != nil {
				return err
			}
			u, _ := prefs.URL(preference.LibraryPath)
			printSuccess(cmd.ErrOrStderr(), "Library set to %s", u)
			return nil
		},
	}

	create := &cobra.Command{
		Use:   "create [dir]",
		Short: "Create the library directory (the resolved one when dir is omitted)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prefs, err := a.preferences()
			if err != nil {
				return err
			}
			var dir string
			if len(args) == 1 {
				dir = args[0]
			} else {
				var ok bool
				if dir, ok = prefs.LibraryPath(); !ok {
					return errNoLibrary
				}
			}
			prefs.CreateLibraryIfNotExists(dir)
			info, err := os.Stat(dir)
			if err != nil || !info.IsDir() {
				return fmt.Errorf("library directory %s could not be created", dir)
			}
			printSuccess(cmd.ErrOrStderr(), "Library ready at %s", dir)
			return nil
		},
	}

	cmd.AddCommand(path, set, create)
	return cmd
}

// --- config ---

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or update configuration",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			infos := config.ShowAll(a.cfg)
			rows := make([][]string, len(infos))
			for i, k := range infos {
				rows[i] = []string{k.Key, k.Value, k.EnvVar}
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"KEY", "VALUE", "ENV"}, rows))
			mode, err := a.buildMode()
			if err != nil {
				return err
			}
			printStatus(cmd.ErrOrStderr(), "Build mode", "%s", mode)
			return nil
		},
	}

	set := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Write a configuration value to the config file",
		Long:  "Write a configuration value to the config file.\n\nKeys: " + fmt.Sprint(config.ValidKeys()),
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := args[0], args[1]
			if err := config.SetKey(a.configPath, key, value); err != nil {
				return err
			}
			printSuccess(cmd.ErrOrStderr(), "Set %s = %s", key, value)
			return nil
		},
	}

	cmd.AddCommand(show, set)
	return cmd
}

// --- version ---

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		// No config needed.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "doughnut version %s (%s build)\n", version, buildMode)
		},
	}
}
