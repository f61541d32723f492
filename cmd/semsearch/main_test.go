package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func TestIndexCommandFlags(t *testing.T) {
	app := &cli.App{
		Name: "semsearch",
		Commands: []*cli.Command{
			{
				Name:   "index",
				Action: indexCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "items",
						Aliases:  []string{"i"},
						Required: true,
					},
					&cli.StringFlag{
						Name:  "embedding-host",
						Value: "http://localhost:11434/v1",
					},
					&cli.StringFlag{
						Name:     "embedding-model",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "pool-size",
						Value: 4,
					},
				},
			},
		},
	}

	t.Run("items is required", func(t *testing.T) {
		args := []string{"semsearch", "index", "--embedding-model", "test-model"}
		err := app.Run(args)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "items")
	})

	t.Run("embedding-model is required", func(t *testing.T) {
		args := []string{"semsearch", "index", "--items", "/tmp/items.json"}
		err := app.Run(args)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "embedding-model")
	})

	t.Run("embedding-host has default value", func(t *testing.T) {
		cmd := app.Commands[0]
		var hostFlag *cli.StringFlag
		for _, flag := range cmd.Flags {
			if f, ok := flag.(*cli.StringFlag); ok && f.Name == "embedding-host" {
				hostFlag = f
				break
			}
		}
		require.NotNil(t, hostFlag)
		assert.Equal(t, "http://localhost:11434/v1", hostFlag.Value)
	})

	t.Run("pool-size has default value of 4", func(t *testing.T) {
		cmd := app.Commands[0]
		var poolFlag *cli.IntFlag
		for _, flag := range cmd.Flags {
			if f, ok := flag.(*cli.IntFlag); ok && f.Name == "pool-size" {
				poolFlag = f
				break
			}
		}
		require.NotNil(t, poolFlag)
		assert.Equal(t, 4, poolFlag.Value)
	})
}

func TestSearchCommandRequiresQuery(t *testing.T) {
	app := &cli.App{
		Name: "semsearch",
		Commands: []*cli.Command{
			{
				Name:   "search",
				Action: searchCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "blob",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "embedding-model",
						Required: true,
					},
					&cli.StringFlag{Name: "meta"},
					&cli.StringFlag{Name: "db"},
					&cli.StringFlag{Name: "embedding-host"},
					&cli.Float64Flag{Name: "threshold"},
					&cli.IntFlag{Name: "limit"},
				},
			},
		},
	}

	args := []string{"semsearch", "search", "--blob", "/tmp/index.embd", "--embedding-model", "test-model"}
	err := app.Run(args)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query text is required")
}

func TestSetupLogger(t *testing.T) {
	newApp := func() *cli.App {
		return &cli.App{
			Name: "test",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "log-level",
					Value: "info",
				},
			},
			Before: setupLogger,
			Action: func(c *cli.Context) error {
				return nil
			},
		}
	}

	t.Run("valid log levels", func(t *testing.T) {
		for _, level := range []string{"debug", "info", "warn", "error"} {
			t.Run(level, func(t *testing.T) {
				err := newApp().Run([]string{"test", "--log-level", level})
				require.NoError(t, err)
			})
		}
	})

	t.Run("case insensitive log levels", func(t *testing.T) {
		for _, level := range []string{"DEBUG", "Info", "WaRn"} {
			t.Run(level, func(t *testing.T) {
				err := newApp().Run([]string{"test", "--log-level", level})
				require.NoError(t, err)
			})
		}
	})

	t.Run("invalid log level returns error", func(t *testing.T) {
		err := newApp().Run([]string{"test", "--log-level", "verbose"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid log level")
	})
}
