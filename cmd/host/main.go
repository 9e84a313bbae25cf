// Command host scans for manager plugins, lists what it finds, and can drive
// a resolution through a chosen manager end to end.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/snowmerak/bridge.go/lib/batch"
	"github.com/snowmerak/bridge.go/lib/bridge"
	"github.com/snowmerak/bridge.go/lib/dispatch"
	"github.com/snowmerak/bridge.go/lib/loader"
	"github.com/snowmerak/bridge.go/lib/remote"
)

type hostConfig struct {
	Locations []string          `yaml:"locations"`
	LogLevel  string            `yaml:"log_level"`
	Manager   string            `yaml:"manager"`
	Settings  map[string]string `yaml:"settings"`
}

func loadConfig(path string) (*hostConfig, error) {
	cfg := &hostConfig{LogLevel: "info"}
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", level, err)
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}

func main() {
	var (
		configPath = flag.String("config", "", "Path to host config yaml")
		managerID  = flag.String("manager", "", "Identifier of the manager to instantiate (overrides config)")
		resolveArg = flag.String("resolve", "", "Comma-separated references to resolve")
		pageSize   = flag.Int("page-size", 16, "Page size for resolution results")
	)
	flag.Parse()

	if err := run(*configPath, *managerID, *resolveArg, *pageSize); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, managerID, resolveArg string, pageSize int) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	log, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer log.Sync()

	loader.SetLogger(log.Named("loader"))
	bridge.SetLogger(log.Named("bridge"))
	batch.SetLogger(log.Named("batch"))
	remote.SetLogger(log.Named("remote"))

	l := loader.New()
	if err := l.Scan(context.Background(), cfg.Locations); err != nil {
		return fmt.Errorf("scan: %w", err)
	}

	ids := l.Identifiers()
	fmt.Printf("Discovered %d manager(s)\n", len(ids))
	for _, id := range ids {
		fmt.Printf("  %s\n", id)
	}

	if managerID == "" {
		managerID = cfg.Manager
	}
	if managerID == "" {
		return nil
	}

	impl, err := l.Instantiate(managerID)
	if err != nil {
		return fmt.Errorf("instantiate %s: %w", managerID, err)
	}

	// Drive the instance through the full boundary machinery, exactly as a
	// native plugin would be called.
	shim := dispatch.NewShim()
	table, handle := shim.Expose(impl)
	m, err := bridge.Wrap(table, handle)
	if err != nil {
		return err
	}
	defer m.Close()

	name, err := m.DisplayName()
	if err != nil {
		return err
	}
	fmt.Printf("Using %s (%s)\n", managerID, name)

	if err := m.Initialize(cfg.Settings); err != nil {
		return fmt.Errorf("initialize: %w", err)
	}

	if resolveArg == "" {
		return nil
	}
	refs := strings.Split(resolveArg, ",")

	pager, err := m.Resolve(refs, pageSize)
	if err != nil {
		return fmt.Errorf("resolve: %w", err)
	}
	defer pager.Close()

	index := 0
	for {
		items, err := pager.Get()
		if err != nil {
			return fmt.Errorf("get page: %w", err)
		}
		for _, item := range items {
			if item.Err != nil {
				fmt.Printf("  [%d] FAILED: %v\n", index, item.Err)
			} else {
				fmt.Printf("  [%d] %s\n", index, item.Data)
			}
			index++
		}

		more, err := pager.HasNext()
		if err != nil {
			return fmt.Errorf("has next: %w", err)
		}
		if !more {
			break
		}
		if err := pager.Next(); err != nil {
			return fmt.Errorf("next page: %w", err)
		}
	}

	return nil
}
