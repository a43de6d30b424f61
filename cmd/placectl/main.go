// Package main is placectl, a local command line client for the place guide.
// It reads the dataset directly and keeps bookmarks and profile settings in a
// JSON file, the way the single-user mobile app keeps them on the device.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/onnwee/golocal/internal/bookmark"
	"github.com/onnwee/golocal/internal/place"
	"github.com/onnwee/golocal/internal/prefs"
	"github.com/onnwee/golocal/internal/profile"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// localOwner is the single preference owner on this machine.
const localOwner = "local"

// options are the persistent flags shared by every subcommand.
type options struct {
	DatasetPath string
	PrefsFile   string
	YAML        bool
	Verbose     bool
}

// app lazily builds what a subcommand needs from the options.
type app struct {
	opts    options
	logger  *slog.Logger
	catalog *place.Catalog
	store   prefs.Store
}

func (a *app) Catalog() (*place.Catalog, error) {
	if a.catalog != nil {
		return a.catalog, nil
	}
	var err error
	if a.opts.DatasetPath == "" {
		a.catalog, err = place.LoadDefault(a.logger)
	} else {
		a.catalog, err = place.LoadFile(a.opts.DatasetPath, a.logger)
	}
	return a.catalog, err
}

func (a *app) Store() prefs.Store {
	if a.store == nil {
		a.store = prefs.NewFileStore(a.opts.PrefsFile, a.logger)
	}
	return a.store
}

func (a *app) Toggler() *bookmark.Toggler {
	return bookmark.NewToggler(a.Store(), a.logger, nil)
}

func (a *app) Profiles() *profile.Service {
	return profile.NewService(a.Store(), a.logger)
}

// print writes v as indented JSON, or YAML with --yaml.
func (a *app) print(w io.Writer, v any) error {
	if !a.opts.YAML {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	// Round trip through JSON so the YAML keys match the API field names.
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return err
	}
	out, err := yaml.Marshal(generic)
	if err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}

func defaultPrefsFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "golocal-prefs.json"
	}
	return filepath.Join(dir, "golocal", "prefs.json")
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "placectl",
		Short:         "Browse and bookmark places from the local guide",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelWarn
			if a.opts.Verbose {
				level = slog.LevelDebug
			}
			a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.opts.DatasetPath, "dataset", os.Getenv("DATASET_PATH"), "Path to a places JSON file (bundled dataset when empty)")
	flags.StringVar(&a.opts.PrefsFile, "prefs-file", defaultPrefsFile(), "File holding bookmarks and profile settings")
	flags.BoolVarP(&a.opts.YAML, "yaml", "y", false, "Output as YAML instead of JSON")
	flags.BoolVarP(&a.opts.Verbose, "verbose", "v", false, "Log debug output to stderr")

	root.AddCommand(
		newQueryCmd(a),
		newShowCmd(a),
		newViewportCmd(a),
		newMapLinkCmd(a),
		newBookmarkCmd(a),
		newProfileCmd(a),
		newValidateCmd(a),
	)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
