// Native plugin example. Build with:
//
//	go build -buildmode=plugin -o wordcount.so ./example/plugins/wordcount
//
// and point the host's scan locations at the resulting .so file.
package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/snowmerak/bridge.go/lib/batch"
	"github.com/snowmerak/bridge.go/lib/loader"
	"github.com/snowmerak/bridge.go/lib/manager"
)

type wordCountManager struct {
	delimiter string
}

func (w *wordCountManager) Identifier() string  { return "io.example.manager.wordcount" }
func (w *wordCountManager) DisplayName() string { return "Word Count Manager" }

func (w *wordCountManager) Info() map[string]string {
	return map[string]string{"vendor": "example"}
}

func (w *wordCountManager) Initialize(settings map[string]string) error {
	w.delimiter = settings["delimiter"]
	if w.delimiter == "" {
		w.delimiter = " "
	}
	return nil
}

func (w *wordCountManager) Resolve(refs []string, pageSize int) (batch.Source, error) {
	items := make([]batch.Item, 0, len(refs))
	for _, ref := range refs {
		if ref == "" {
			items = append(items, batch.Item{Err: fmt.Errorf("empty reference")})
			continue
		}
		n := len(strings.Split(ref, w.delimiter))
		items = append(items, batch.Item{Data: []byte(strconv.Itoa(n))})
	}
	return batch.NewSliceSource(items, pageSize), nil
}

// BridgePluginEntry_v1 is the symbol the host loader looks up.
func BridgePluginEntry_v1() loader.Factory {
	return func() (manager.Interface, error) {
		return &wordCountManager{}, nil
	}
}

func main() {}
