/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"makinilya/internal/build"
	"makinilya/internal/config"
	"makinilya/internal/crash"
	applog "makinilya/internal/log"
	"makinilya/internal/manuscript"
	"makinilya/internal/preview"
	"makinilya/internal/project"
	"makinilya/internal/storage"
	"makinilya/internal/version"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#00AA00"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFAA00"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
)

// errUsage marks bad invocations; they exit with status 2.
var errUsage = errors.New("usage")

func usage(w io.Writer) {
	fmt.Fprintln(w, titleStyle.Render("Makinilya")+" manuscript generator")
	fmt.Fprintf(w, "Version: %s\n\n", version.String())
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  makinilya version                          Show version")
	fmt.Fprintln(w, "  makinilya new <dir>                        Create a project with an example scene")
	fmt.Fprintln(w, "  makinilya build [flags] [dir]              Resolve placeholders and write the manuscript")
	fmt.Fprintln(w, "      -o <path> -format docx|pdf -workers <n> -no-index")
	fmt.Fprintln(w, "  makinilya check [-strict] [dir]            List placeholders and unresolved identifiers")
	fmt.Fprintln(w, "  makinilya index [dir]                      Refresh the search index")
	fmt.Fprintln(w, "  makinilya search [-in p] [-limit n] <q> [dir]  Full-text search over scenes")
	fmt.Fprintln(w, "  makinilya refs <identifier> [dir]          Show where an identifier is used")
	fmt.Fprintln(w, "  makinilya history [-limit n] [dir]         List recorded builds")
	fmt.Fprintln(w, "  makinilya watch [build flags] [dir]        Rebuild when the draft or context changes")
	fmt.Fprintln(w, "  makinilya serve [-addr a] [dir]            Serve an HTML preview")
	fmt.Fprintln(w, "  makinilya config show|init                 Print or write the user configuration")
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes one command and returns the process exit status.
func run(args []string, stdout, stderr io.Writer) int {
	cfg, cfgErr := config.Load()
	applog.Init(applog.Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.Source,
		File:      cfg.Logging.File,
		Writer:    stderr,
	})
	l := applog.WithComponent("cli")
	if cfgErr != nil {
		l.Warn("config not loaded, using defaults", slog.Any("err", cfgErr))
	}
	l.Debug("start", slog.Int("args", len(args)))

	if len(args) == 0 {
		usage(stderr)
		return 2
	}
	c := &cli{cfg: cfg, out: stdout, errw: stderr}
	var err error
	switch args[0] {
	case "version", "--version", "-v":
		fmt.Fprintln(stdout, version.String())
		return 0
	case "help", "-h", "--help":
		usage(stdout)
		return 0
	case "new":
		err = c.newProject(args[1:])
	case "build":
		err = c.build(args[1:])
	case "check":
		err = c.check(args[1:])
	case "index":
		err = c.index(args[1:])
	case "search":
		err = c.search(args[1:])
	case "refs":
		err = c.refs(args[1:])
	case "history":
		err = c.history(args[1:])
	case "watch":
		err = c.watch(args[1:])
	case "serve":
		err = c.serve(args[1:])
	case "config":
		err = c.config(args[1:])
	default:
		fmt.Fprintf(stderr, "unknown command %q\n", args[0])
		usage(stderr)
		return 2
	}
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errUsage), errors.Is(err, flag.ErrHelp):
		return 2
	default:
		l.Error("command failed", slog.String("cmd", args[0]), slog.Any("err", err))
		fmt.Fprintln(stderr, "Error:", err)
		return 1
	}
}

type cli struct {
	cfg  config.AppConfig
	out  io.Writer
	errw io.Writer
}

func (c *cli) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(c.errw)
	return fs
}

// rootArg resolves the optional trailing project directory.
func (c *cli) rootArg(fs *flag.FlagSet, skip int) (string, error) {
	rest := fs.Args()[min(skip, len(fs.Args())):]
	switch len(rest) {
	case 0:
		return filepath.Abs(".")
	case 1:
		return filepath.Abs(rest[0])
	}
	fmt.Fprintf(c.errw, "%s: unexpected arguments %q\n", fs.Name(), rest[1:])
	return "", errUsage
}

// guarded runs fn with crash reporting pointed at root.
func guarded(root string, fn func() error) error {
	defer crash.Recover(root)
	return fn()
}

func (c *cli) newProject(args []string) error {
	if len(args) != 1 {
		fmt.Fprintln(c.errw, "new requires <dir>")
		return errUsage
	}
	root, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}
	return guarded(root, func() error {
		p, err := project.Init(root)
		if err != nil {
			return err
		}
		fmt.Fprintln(c.out, okStyle.Render("Created project at "+p.Root))
		fmt.Fprintf(c.out, "Draft:   %s\nContext: %s\n", p.DraftDir(), p.ContextPath())
		return nil
	})
}

type buildFlags struct {
	output  string
	format  string
	workers int
	noIndex bool
}

func (c *cli) buildFlagSet(name string) (*flag.FlagSet, *buildFlags) {
	fs := c.flags(name)
	bf := &buildFlags{}
	fs.StringVar(&bf.output, "o", "", "output path, overriding the project's")
	fs.StringVar(&bf.format, "format", c.cfg.Build.Format, "output format: docx or pdf")
	fs.IntVar(&bf.workers, "workers", c.cfg.Build.Workers, "parallel workers for top-level parts")
	fs.BoolVar(&bf.noIndex, "no-index", !c.cfg.Build.Index, "skip the search index update")
	return fs, bf
}

func (bf *buildFlags) options() (build.Options, error) {
	opts := build.Options{Output: bf.output, Workers: bf.workers, Index: !bf.noIndex}
	switch f := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(bf.format), ".")); f {
	case "":
	case string(manuscript.DOCX), string(manuscript.PDF):
		opts.Format = manuscript.Format(f)
	default:
		return opts, fmt.Errorf("%w: unknown format %q", errUsage, bf.format)
	}
	return opts, nil
}

func (c *cli) build(args []string) error {
	fs, bf := c.buildFlagSet("build")
	if err := fs.Parse(args); err != nil {
		return err
	}
	root, err := c.rootArg(fs, 0)
	if err != nil {
		return err
	}
	opts, err := bf.options()
	if err != nil {
		fmt.Fprintln(c.errw, err)
		return err
	}
	return guarded(root, func() error {
		res, err := build.Build(context.Background(), root, opts)
		if err != nil {
			return err
		}
		c.printResult(res)
		return nil
	})
}

func (c *cli) printResult(res build.Result) {
	fmt.Fprintf(c.out, "%s %s\n", okStyle.Render("Wrote"), res.Output)
	fmt.Fprintln(c.out, dimStyle.Render(fmt.Sprintf("%s words in %d scenes, %s",
		humanize.Comma(int64(res.Words)), res.Scenes, res.Duration.Round(time.Millisecond))))
}

func (c *cli) check(args []string) error {
	fs := c.flags("check")
	strict := fs.Bool("strict", false, "fail when an identifier has no value")
	workers := fs.Int("workers", c.cfg.Build.Workers, "parallel workers for top-level parts")
	if err := fs.Parse(args); err != nil {
		return err
	}
	root, err := c.rootArg(fs, 0)
	if err != nil {
		return err
	}
	return guarded(root, func() error {
		rep, err := build.Check(context.Background(), root, *workers)
		if err != nil {
			return err
		}
		fmt.Fprintln(c.out, titleStyle.Render("Placeholders"))
		for _, r := range rep.References {
			fmt.Fprintf(c.out, "  %s %s\n", r.Path, dimStyle.Render(fmt.Sprintf("(%s %d:%d)", r.Scene, r.Line, r.Column)))
		}
		if len(rep.Unresolved) > 0 {
			fmt.Fprintln(c.out, warnStyle.Render("Unresolved (rendered empty)"))
			for _, id := range rep.Unresolved {
				fmt.Fprintf(c.out, "  %s\n", id)
			}
		}
		if len(rep.Unused) > 0 {
			fmt.Fprintln(c.out, dimStyle.Render("Unused context values"))
			for _, id := range rep.Unused {
				fmt.Fprintf(c.out, "  %s\n", id)
			}
		}
		if *strict && len(rep.Unresolved) > 0 {
			return fmt.Errorf("%d unresolved identifiers", len(rep.Unresolved))
		}
		return nil
	})
}

func (c *cli) index(args []string) error {
	fs := c.flags("index")
	if err := fs.Parse(args); err != nil {
		return err
	}
	root, err := c.rootArg(fs, 0)
	if err != nil {
		return err
	}
	return guarded(root, func() error {
		n, err := build.Index(context.Background(), root)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "Indexed %d scenes\n", n)
		return nil
	})
}

func (c *cli) search(args []string) error {
	fs := c.flags("search")
	in := fs.String("in", "", "only scenes under this path prefix")
	limit := fs.Int("limit", 20, "maximum results")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(c.errw, "search requires <query>")
		return errUsage
	}
	root, err := c.rootArg(fs, 1)
	if err != nil {
		return err
	}
	return guarded(root, func() error {
		res, err := storage.Search(context.Background(), root, storage.SearchQuery{Text: fs.Arg(0), PathPrefix: *in, Limit: *limit})
		if err != nil {
			return err
		}
		if len(res) == 0 {
			fmt.Fprintln(c.out, dimStyle.Render("No matches"))
			return nil
		}
		for _, r := range res {
			fmt.Fprintf(c.out, "%s %s\n  %s\n", titleStyle.Render(r.Path), dimStyle.Render(humanize.Comma(int64(r.Words))+" words"), r.Snippet)
		}
		return nil
	})
}

func (c *cli) refs(args []string) error {
	fs := c.flags("refs")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(c.errw, "refs requires <identifier>")
		return errUsage
	}
	root, err := c.rootArg(fs, 1)
	if err != nil {
		return err
	}
	return guarded(root, func() error {
		uses, err := storage.WhereUsed(context.Background(), root, fs.Arg(0))
		if err != nil {
			return err
		}
		if len(uses) == 0 {
			fmt.Fprintln(c.out, dimStyle.Render("No uses of "+fs.Arg(0)+" (run index after editing)"))
			return nil
		}
		for _, u := range uses {
			fmt.Fprintf(c.out, "%s:%d:%d %s\n", u.Scene, u.Line, u.Column, u.Identifier)
		}
		return nil
	})
}

func (c *cli) history(args []string) error {
	fs := c.flags("history")
	limit := fs.Int("limit", 10, "maximum builds")
	if err := fs.Parse(args); err != nil {
		return err
	}
	root, err := c.rootArg(fs, 0)
	if err != nil {
		return err
	}
	return guarded(root, func() error {
		recs, err := storage.Builds(context.Background(), root, *limit)
		if err != nil {
			return err
		}
		for _, b := range recs {
			fmt.Fprintf(c.out, "%s  %-4s %s  %s\n", dimStyle.Render(humanize.Time(b.Time)), b.Format, b.Output,
				humanize.Comma(int64(b.Words))+" words")
		}
		return nil
	})
}

func (c *cli) watch(args []string) error {
	fs, bf := c.buildFlagSet("watch")
	if err := fs.Parse(args); err != nil {
		return err
	}
	root, err := c.rootArg(fs, 0)
	if err != nil {
		return err
	}
	opts, err := bf.options()
	if err != nil {
		fmt.Fprintln(c.errw, err)
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	fmt.Fprintln(c.out, dimStyle.Render("Watching "+root+" (Ctrl+C to stop)"))
	return guarded(root, func() error {
		err := build.Watch(ctx, root, build.WatchOptions{Build: opts}, func(res build.Result, err error) {
			if err != nil {
				fmt.Fprintln(c.out, warnStyle.Render("Build failed: "+err.Error()))
				return
			}
			c.printResult(res)
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
}

func (c *cli) serve(args []string) error {
	fs := c.flags("serve")
	addr := fs.String("addr", c.cfg.Preview.Addr, "listen address")
	if err := fs.Parse(args); err != nil {
		return err
	}
	root, err := c.rootArg(fs, 0)
	if err != nil {
		return err
	}
	if _, err := project.Open(root); err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	l := applog.WithComponent("preview")
	srv := &http.Server{
		Addr:              *addr,
		Handler:           preview.NewServer(root, c.cfg.Build.Workers, l),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return guarded(root, func() error {
		errc := make(chan error, 1)
		go func() { errc <- srv.ListenAndServe() }()
		fmt.Fprintf(c.out, "Preview at http://%s/\n", *addr)
		select {
		case err := <-errc:
			return err
		case <-ctx.Done():
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}

func (c *cli) config(args []string) error {
	if len(args) != 1 {
		fmt.Fprintln(c.errw, "config requires show or init")
		return errUsage
	}
	path, err := config.ConfigPath()
	if err != nil {
		return err
	}
	switch args[0] {
	case "show":
		data, err := yaml.Marshal(c.cfg)
		if err != nil {
			return err
		}
		fmt.Fprintln(c.out, dimStyle.Render("# "+path))
		_, _ = c.out.Write(data)
		for _, key := range []string{"build.workers", "build.format", "build.index", "preview.addr", "logging.level", "logging.format", "logging.source", "logging.file"} {
			if env, ok := config.EnvOverrideFor(key); ok {
				fmt.Fprintf(c.out, "%s\n", warnStyle.Render("# "+key+" overridden by "+env))
			}
		}
		return nil
	case "init":
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists", path)
		}
		if err := config.Save(config.Defaults()); err != nil {
			return err
		}
		fmt.Fprintln(c.out, okStyle.Render("Wrote "+path))
		return nil
	}
	fmt.Fprintf(c.errw, "unknown config command %q\n", args[0])
	return errUsage
}
