// In-process example: registers a manager, discovers it through a scan, and
// walks a paged resolution through the full boundary machinery.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/snowmerak/bridge.go/lib/batch"
	"github.com/snowmerak/bridge.go/lib/bridge"
	"github.com/snowmerak/bridge.go/lib/dispatch"
	"github.com/snowmerak/bridge.go/lib/loader"
	"github.com/snowmerak/bridge.go/lib/manager"
)

type upperManager struct {
	prefix string
}

func (u *upperManager) Identifier() string  { return "io.example.manager.upper" }
func (u *upperManager) DisplayName() string { return "Uppercase Manager" }

func (u *upperManager) Info() map[string]string {
	return map[string]string{"vendor": "example", "version": "1.0.0"}
}

func (u *upperManager) Initialize(settings map[string]string) error {
	u.prefix = settings["prefix"]
	return nil
}

func (u *upperManager) Resolve(refs []string, pageSize int) (batch.Source, error) {
	items := make([]batch.Item, 0, len(refs))
	for _, ref := range refs {
		if ref == "" {
			items = append(items, batch.Item{Err: fmt.Errorf("empty reference")})
			continue
		}
		items = append(items, batch.Item{Data: []byte(u.prefix + strings.ToUpper(ref))})
	}
	return batch.NewSliceSource(items, pageSize), nil
}

func init() {
	loader.Register(func() loader.Factory {
		return func() (manager.Interface, error) {
			return &upperManager{}, nil
		}
	})
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	l := loader.New()
	if err := l.Scan(context.Background(), nil); err != nil {
		return err
	}
	fmt.Println("Discovered:", l.Identifiers())

	impl, err := l.Instantiate("io.example.manager.upper")
	if err != nil {
		return err
	}

	shim := dispatch.NewShim()
	table, handle := shim.Expose(impl)
	m, err := bridge.Wrap(table, handle)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Initialize(map[string]string{"prefix": "* "}); err != nil {
		return err
	}

	pager, err := m.Resolve([]string{"alpha", "", "beta", "gamma"}, 2)
	if err != nil {
		return err
	}
	defer pager.Close()

	for {
		items, err := pager.Get()
		if err != nil {
			return err
		}
		for _, item := range items {
			if item.Err != nil {
				fmt.Println("failed:", item.Err)
				continue
			}
			fmt.Println(string(item.Data))
		}

		more, err := pager.HasNext()
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
		if err := pager.Next(); err != nil {
			return err
		}
	}
}
