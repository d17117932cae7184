// Copyright 2026 © The Praxis Authors
// SPDX-License-Identifier: Apache-2.0

// Command praxis runs the autonomous agent loop against a configured target
// environment, or serves the active skill set over MCP.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"github.com/jllopis/praxis/pkg/config"
	"github.com/jllopis/praxis/pkg/embedding"
	"github.com/jllopis/praxis/pkg/errors"
	"github.com/jllopis/praxis/pkg/executor"
	praxismcp "github.com/jllopis/praxis/pkg/mcp"
	"github.com/jllopis/praxis/pkg/memory"
	"github.com/jllopis/praxis/pkg/orchestrator"
	"github.com/jllopis/praxis/pkg/perception"
	"github.com/jllopis/praxis/pkg/primitives"
	"github.com/jllopis/praxis/pkg/provider"
	"github.com/jllopis/praxis/pkg/skills"
	"github.com/jllopis/praxis/pkg/target"
	"github.com/jllopis/praxis/pkg/telemetry"
	"github.com/jllopis/praxis/pkg/vector/qdrant"
)

const version = "0.1.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	configPath := flag.String("config", "", "path to YAML config file")
	resume := flag.Bool("resume", false, "restore working memory from the last snapshot")
	flag.Parse()

	args := flag.Args()
	cmd := "run"
	if len(args) > 0 {
		cmd = args[0]
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fatal(err)
	}

	logger := telemetry.ConfigureSlog(os.Stderr, cfg.Log.Level, cfg.Log.Format)

	switch cmd {
	case "run":
		if err := runAgent(ctx, cfg, *resume); err != nil {
			logger.Error("praxis.run.failed", "error", err)
			os.Exit(1)
		}
	case "skills":
		if err := listSkills(ctx, cfg); err != nil {
			fatal(err)
		}
	case "mcp":
		if err := serveMCP(ctx, cfg); err != nil {
			fatal(err)
		}
	case "version":
		fmt.Println("praxis", version)
	default:
		fatal(fmt.Errorf("unknown command %q", cmd))
	}
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "praxis:", err)
	os.Exit(1)
}

// libraryConstructors is the static backend map: plain tags resolved to
// constructors at startup, no dynamic lookup.
var libraryConstructors = map[string]func(ctx context.Context, cfg *config.Config) (skills.Library, error){
	"sqlite": func(_ context.Context, cfg *config.Config) (skills.Library, error) {
		return skills.NewSQLiteLibrary(cfg.Library.Path)
	},
	"qdrant": func(ctx context.Context, cfg *config.Config) (skills.Library, error) {
		store, err := qdrant.New(cfg.Library.QdrantAddr)
		if err != nil {
			return nil, err
		}
		return skills.NewVectorLibrary(ctx, store, cfg.Library.Collection, 768)
	},
	"memory": func(_ context.Context, _ *config.Config) (skills.Library, error) {
		return skills.NewMemoryLibrary(), nil
	},
}

func openLibrary(ctx context.Context, cfg *config.Config) (skills.Library, error) {
	construct, ok := libraryConstructors[cfg.Library.Backend]
	if !ok {
		return nil, fmt.Errorf("unknown library backend %q", cfg.Library.Backend)
	}
	return construct(ctx, cfg)
}

// buildRegistry opens the persisted library and bootstraps the registry:
// primitives first, then the environment's SKILL.md sources, then composite
// bindings. Registration is an explicit phase; nothing self-registers.
//
// The injector must be the held-input tracker, not the raw device boundary:
// every hold dispatched by a primitive has to be visible to the sweep, or
// expiry and teardown release cannot see it.
func buildRegistry(ctx context.Context, cfg *config.Config, injector target.Injector, embedder embedding.Embedder) (*skills.Registry, skills.Library, error) {
	library, err := openLibrary(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	registry := skills.NewRegistry(embedder, skills.WithLibrary(library))

	defs := primitives.Definitions(injector)
	markBasic(defs, cfg.Skills.Basic)
	if err := registry.ScanAndMerge(ctx, defs, false); err != nil {
		library.Close()
		return nil, nil, err
	}

	if cfg.Skills.Dir != "" {
		specs, err := skills.LoadDir(cfg.Skills.Dir)
		if err != nil {
			library.Close()
			return nil, nil, err
		}
		for _, spec := range specs {
			def, err := spec.Definition(registry)
			if err != nil {
				library.Close()
				return nil, nil, err
			}
			if err := registry.RegisterFromCode(ctx, def, true); err != nil {
				library.Close()
				return nil, nil, err
			}
		}
	}

	registry.SetFilter(skills.NewFilter(skills.Mode(cfg.Skills.Mode), cfg.Skills.Allow, cfg.Skills.Deny))
	return registry, library, nil
}

// markBasic extends basic-mode eligibility to explicitly configured names.
func markBasic(defs []skills.Definition, names []string) {
	basic := make(map[string]bool, len(names))
	for _, name := range names {
		basic[name] = true
	}
	for i := range defs {
		if basic[defs[i].Name] {
			defs[i].Basic = true
		}
	}
}

func runAgent(ctx context.Context, cfg *config.Config, resume bool) error {
	shutdown, err := telemetry.InitWithConfig("praxis", version, telemetry.Config{
		Exporter:     cfg.Telemetry.Exporter,
		OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
		OTLPInsecure: cfg.Telemetry.OTLPInsecure,
	})
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		shutdown(shutdownCtx)
	}()

	// The real injection and capture boundaries are external; the journal
	// injector gives a dry run when none is attached. The tracker wraps it
	// before any skill is bound so every hold is swept.
	injector := target.NewJournal()
	tracker := executor.NewTracker(injector, cfg.Agent.HoldExpiry, nil)
	embedder := embedding.NewOllama(cfg.Embedder.BaseURL, cfg.Embedder.Model)
	registry, library, err := buildRegistry(ctx, cfg, tracker, embedder)
	if err != nil {
		return err
	}
	defer library.Close()

	exec := executor.New(registry, tracker,
		executor.WithStrict(cfg.Agent.Strict),
		executor.WithPostActionDelay(cfg.Agent.PostActionDelay))

	mem := memory.New(memory.WithHistoryWindow(cfg.Agent.HistoryWindow))
	snapshots := memory.NewFileSnapshotStore(cfg.Agent.SnapshotPath)
	if resume {
		blob, err := snapshots.Load(ctx)
		switch {
		case err == nil:
			if err := mem.Restore(blob); err != nil {
				return errors.New(errors.CodeMemoryError, "restore snapshot", err)
			}
		case err == memory.ErrNoSnapshot:
			// First run, nothing to resume.
		default:
			return err
		}
	}

	capturer := newDirCapturer(cfg.Agent.FramesDir)
	tgt := target.NewStaticTarget(cfg.Agent.Environment, cfg.Agent.RealTime)
	prov := provider.NewOllama(cfg.Provider.BaseURL, cfg.Provider.Model)

	if cfg.Agent.RecordFrames && cfg.Agent.FramesDir != "" {
		recorder := perception.NewRecorder(capturer, filepath.Join(cfg.Agent.FramesDir, "archive"), time.Second)
		if err := recorder.Start(ctx); err != nil {
			return err
		}
		defer recorder.Stop()
	}

	orch := orchestrator.New(mem, registry, embedder, prov, capturer, exec, tgt,
		orchestrator.Config{
			RetrieveK:    cfg.Agent.RetrieveK,
			FailureLimit: cfg.Agent.FailureLimit,
			MaxCycles:    cfg.Agent.MaxCycles,
			StageTimeout: cfg.Agent.StageTimeout,
			StageRetries: cfg.Agent.StageRetries,
		},
		orchestrator.WithSnapshotStore(snapshots))

	state, err := orch.Run(ctx)
	if err != nil {
		return fmt.Errorf("terminated in %s: %w", state, err)
	}
	fmt.Println("praxis finished:", state)
	return nil
}

func listSkills(ctx context.Context, cfg *config.Config) error {
	registry, library, err := buildRegistry(ctx, cfg,
		executor.NewTracker(target.NewJournal(), cfg.Agent.HoldExpiry, nil),
		embedding.NewOllama(cfg.Embedder.BaseURL, cfg.Embedder.Model))
	if err != nil {
		return err
	}
	defer library.Close()

	active := make(map[string]bool)
	for _, skill := range registry.ActiveSet() {
		active[skill.Name] = true
	}
	names := registry.Names()
	sort.Strings(names)
	for _, name := range names {
		marker := " "
		if active[name] {
			marker = "*"
		}
		skill, _ := registry.Get(name)
		fmt.Printf("%s %-24s %s\n", marker, name, skill.Description)
	}
	return nil
}

func serveMCP(ctx context.Context, cfg *config.Config) error {
	tracker := executor.NewTracker(target.NewJournal(), cfg.Agent.HoldExpiry, nil)
	registry, library, err := buildRegistry(ctx, cfg, tracker,
		embedding.NewOllama(cfg.Embedder.BaseURL, cfg.Embedder.Model))
	if err != nil {
		return err
	}
	defer library.Close()
	defer tracker.ReleaseAll(context.WithoutCancel(ctx))

	srv := praxismcp.NewServer("praxis", version, registry)
	srv.RegisterActiveSet()
	return srv.ServeStdio()
}

// dirCapturer treats the newest image in a directory as the current screen.
// It stands in for the external capture boundary when frames are produced by
// a separate process.
type dirCapturer struct {
	dir string
}

func newDirCapturer(dir string) *dirCapturer {
	return &dirCapturer{dir: dir}
}

func (c *dirCapturer) Capture(_ context.Context) (perception.Frame, error) {
	if c.dir == "" {
		return perception.Frame{}, fmt.Errorf("no frames directory configured")
	}
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return perception.Frame{}, err
	}
	var newest string
	var newestTime time.Time
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(newestTime) {
			newestTime = info.ModTime()
			newest = entry.Name()
		}
	}
	if newest == "" {
		return perception.Frame{}, fmt.Errorf("no frames in %s", c.dir)
	}
	image, err := os.ReadFile(filepath.Join(c.dir, newest))
	if err != nil {
		return perception.Frame{}, err
	}
	return perception.Frame{Image: image, Timestamp: newestTime}, nil
}
