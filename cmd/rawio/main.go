package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/urfave/cli"
	"go.uber.org/zap"

	"github.com/airbusgeo/rawraster/cmd"
	"github.com/airbusgeo/rawraster/internal/log"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	if err := newApp(ctx).Run(os.Args); err != nil {
		log.Logger(ctx).Fatal("rawio", zap.Error(err))
	}
}

func newApp(ctx context.Context) *cli.App {
	app := cli.NewApp()
	app.Name = "rawio"
	app.Usage = "inspect, read and write raw rasters"
	app.Version = "0.1.0"
	app.Flags = append([]cli.Flag{
		cli.StringFlag{Name: "log-format", Value: "console", Usage: "console or json"},
		cli.StringFlag{Name: "log-level", Value: "info", EnvVar: "LOGLEVEL", Usage: "debug, info, warn or error"},
		cli.BoolFlag{Name: "mmap", Usage: "map the local rasters opened for reading in memory"},
	}, cmd.StorageFlags()...)
	app.Before = func(c *cli.Context) error {
		if c.GlobalString("log-format") == "json" {
			return log.Structured(c.GlobalString("log-level"))
		}
		return log.Console(c.GlobalString("log-level"))
	}
	app.Commands = []cli.Command{
		{
			Name:        "info",
			Usage:       "print the layout of a raster",
			ArgsUsage:   "<uri>",
			Description: "ex: rawio info --interleave BIP --bands 3 --width 1024 --height 768 --dtype uint16 image.raw",
			Flags:       layoutFlags(""),
			Action:      withContext(ctx, cliInfo),
		},
		{
			Name:      "read",
			Usage:     "read a window of a raster",
			ArgsUsage: "<uri>",
			Description: "ex: rawio read --width 1024 --height 768 --dtype uint16 --x 10 --y 10 --win-width 100 --win-height 100 " +
				"--out-width 10 --out-height 10 image.raw",
			Flags: append(layoutFlags(""),
				cli.IntFlag{Name: "x", Usage: "first column of the window"},
				cli.IntFlag{Name: "y", Usage: "first line of the window"},
				cli.IntFlag{Name: "win-width", Usage: "width of the window (default: up to the last column)"},
				cli.IntFlag{Name: "win-height", Usage: "height of the window (default: up to the last line)"},
				cli.IntFlag{Name: "out-width", Usage: "width of the output (default: width of the window)"},
				cli.IntFlag{Name: "out-height", Usage: "height of the output (default: height of the window)"},
				cli.IntSliceFlag{Name: "band", Usage: "band to read (1-based, repeatable, default: all)"},
				cli.StringFlag{Name: "output", Usage: "write the pixels (pixel interleaved) to this file instead of printing them"},
			),
			Action: withContext(ctx, cliRead),
		},
		{
			Name:      "stats",
			Usage:     "compute the statistics of the bands of several rasters sharing the same layout",
			ArgsUsage: "<uri>...",
			Flags: append(layoutFlags(""),
				cli.IntFlag{Name: "workers", Value: 4, Usage: "number of rasters processed in parallel"},
				cli.Float64Flag{Name: "nodata", Usage: "value ignored by the statistics"},
			),
			Action: withContext(ctx, cliStats),
		},
		{
			Name:        "convert",
			Usage:       "rewrite a raster with another interleaving, data type or byte order",
			ArgsUsage:   "<input uri> <output uri>",
			Description: "ex: rawio convert --interleave BSQ --bands 3 --width 1024 --height 768 --to-interleave BIP in.raw out.raw",
			Flags:       append(layoutFlags(""), convertFlags()...),
			Action:      withContext(ctx, cliConvert),
		},
		{
			Name:      "fill",
			Usage:     "create or overwrite a raster with a constant value",
			ArgsUsage: "<uri>",
			Flags: append(layoutFlags(""),
				cli.Float64Flag{Name: "value", Usage: "value of all the pixels"},
			),
			Action: withContext(ctx, cliFill),
		},
	}
	return app
}

func withContext(ctx context.Context, action func(context.Context, *cli.Context) error) func(*cli.Context) error {
	return func(c *cli.Context) error {
		return action(ctx, c)
	}
}
