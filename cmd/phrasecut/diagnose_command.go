package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"phrasecut/config"
	"phrasecut/internal/appdirs"
	"phrasecut/internal/deps"
	"phrasecut/log"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print version information",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		Run: func(cmd *cobra.Command, args []string) {
			printVersion(cmd.OutOrStdout())
		},
	}
}

func newDiagnoseCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "diagnose",
		Short:       "Print runtime paths and dependency status",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			// A broken config still gets a report, against defaults.
			if err := ctx.ensureConfig(); err != nil {
				fmt.Fprintf(out, "config: <error: %v>\n", err)
			}
			printDiagnose(out)
		},
	}
}

func printVersion(out io.Writer) {
	fmt.Fprintf(out, "version: %s\ncommit: %s\ndate: %s\n", version, commit, date)
}

func printDiagnose(out io.Writer) {
	fmt.Fprintf(out, "runtime: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Fprintf(out, "version: %s\n", version)
	fmt.Fprintf(out, "commit: %s\n", commit)
	fmt.Fprintf(out, "date: %s\n", date)

	if wd, err := os.Getwd(); err == nil {
		fmt.Fprintf(out, "working_dir: %s\n", wd)
	} else {
		fmt.Fprintf(out, "working_dir: <error: %v>\n", err)
	}

	if exePath, err := os.Executable(); err == nil {
		fmt.Fprintf(out, "executable: %s\n", exePath)
	} else {
		fmt.Fprintf(out, "executable: <error: %v>\n", err)
	}

	if dirs, err := appdirs.Resolve(); err == nil {
		fmt.Fprintf(out, "layout.portable: %t\n", dirs.Portable)
		printPath(out, "config", dirs.ConfigFile)
		printPath(out, "index", appdirs.IndexRootFor(dirs))
		printPath(out, "clips", appdirs.ClipRootFor(dirs))
		printPath(out, "database", appdirs.DBPathFor(dirs))
	} else {
		fmt.Fprintf(out, "layout: <error: %v>\n", err)
	}
	if logDir, err := log.ResolveLogDir(); err == nil {
		printPath(out, "effective_log_dir", logDir)
	} else {
		fmt.Fprintf(out, "path.effective_log_dir: <error: %v>\n", err)
	}
	if config.Conf.App.IndexDir != "" {
		printPath(out, "configured_index_dir", config.Conf.App.IndexDir)
	}
	printPath(out, "media", config.Conf.Media.Dir)
	fmt.Fprintf(out, "queue.backend: %s\n", config.Conf.Queue.Backend)

	fmt.Fprintln(out, deps.FormatDependencyReport(deps.ResolveDependencyInventory(config.Conf.Media)))
}

func printPath(out io.Writer, name, value string) {
	absPath, err := filepath.Abs(value)
	if err != nil {
		fmt.Fprintf(out, "path.%s: %s (abs_error=%v)\n", name, value, err)
		return
	}

	if _, err = os.Stat(absPath); err == nil {
		fmt.Fprintf(out, "path.%s: %s (exists)\n", name, absPath)
		return
	}
	if os.IsNotExist(err) {
		fmt.Fprintf(out, "path.%s: %s (missing)\n", name, absPath)
		return
	}

	fmt.Fprintf(out, "path.%s: %s (error=%v)\n", name, absPath, err)
}
