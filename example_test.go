package flagsmith_test

import (
	"context"
	"fmt"

	"github.com/dmitrymomot/flagsmith"
	"github.com/dmitrymomot/flagsmith/pkg/logger"
)

func ExampleClient_GetFeatureFlag() {
	// The service is unreachable, so the default flags answer.
	offline := &stubSource{err: &flagsmith.GenericError{Message: "connection refused"}}

	client, err := flagsmith.New(
		flagsmith.Config{
			EnvironmentKey: "ser.example",
			DefaultFlags: []flagsmith.DefaultFlag{
				{Name: "new_checkout", Enabled: true},
			},
		},
		flagsmith.WithDataSource(offline),
		flagsmith.WithLogger(logger.Discard()),
	)
	if err != nil {
		fmt.Println(err)
		return
	}
	defer client.Close()

	ctx := context.Background()
	on, err := client.GetFeatureFlag(ctx, "new_checkout", "user-1")
	fmt.Println(on, err)

	_, err = client.GetFeatureFlag(ctx, "new_checkout", "")
	fmt.Println(flagsmith.KindOf(err))
	// Output:
	// true <nil>
	// invalid_argument
}

func ExampleParseDefaultFlags() {
	flags, err := flagsmith.ParseDefaultFlags([]byte(`
- name: new_checkout
  enabled: true
- name: banner_color
  enabled: true
  value: blue
`))
	if err != nil {
		fmt.Println(err)
		return
	}
	for _, f := range flags {
		fmt.Println(f.Name, f.Enabled, f.Value != nil)
	}
	// Output:
	// new_checkout true false
	// banner_color true true
}
