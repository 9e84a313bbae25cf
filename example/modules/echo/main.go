// Process module example. Build and spawn it from a host:
//
//	go build -o echo-module ./example/modules/echo
//
//	client, _ := remote.Spawn(ctx, "./echo-module")
//	m := client.Manager()
//
// The module serves the manager contract over stdin/stdout frames and also
// answers a custom "echo.reverse" op through a JSON handler adapter.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/snowmerak/bridge.go/lib/batch"
	"github.com/snowmerak/bridge.go/lib/remote"
)

type echoManager struct {
	settings map[string]string
}

func (e *echoManager) Identifier() string  { return "io.example.manager.echo" }
func (e *echoManager) DisplayName() string { return "Echo Manager" }

func (e *echoManager) Info() map[string]string {
	return map[string]string{"transport": "stdio"}
}

func (e *echoManager) Initialize(settings map[string]string) error {
	e.settings = settings
	return nil
}

func (e *echoManager) Resolve(refs []string, pageSize int) (batch.Source, error) {
	items := make([]batch.Item, 0, len(refs))
	for _, ref := range refs {
		items = append(items, batch.Item{Data: []byte(ref)})
	}
	return batch.NewSliceSource(items, pageSize), nil
}

type reverseRequest struct {
	Text string `json:"text"`
}

type reverseResponse struct {
	Text string `json:"text"`
}

func main() {
	module := remote.NewModule(&echoManager{})
	reverse := remote.NewJSONHandlerAdapter("echo.reverse", func(req reverseRequest) (reverseResponse, error) {
		runes := []rune(req.Text)
		for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
			runes[i], runes[j] = runes[j], runes[i]
		}
		return reverseResponse{Text: string(runes)}, nil
	})
	module.HandleFunc("echo.reverse", reverse.ToHandler())

	if err := module.ServeStdio(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
