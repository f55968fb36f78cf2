package main

import (
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/opd-ai/smokecodec/imagecodec"
	"github.com/opd-ai/smokecodec/smoke"
)

const (
	// Flags.
	flagLogLevel         = "log-level"
	flagInput            = "input"
	flagOutput           = "output"
	flagWidth            = "width"
	flagHeight           = "height"
	flagFPS              = "fps"
	flagCodec            = "codec"
	flagMinQuality       = "min-quality"
	flagMaxQuality       = "max-quality"
	flagThreshold        = "threshold"
	flagKeyframeInterval = "keyframe-interval"
	flagRefDecode        = "refdec"
	flagMaxPixels        = "max-pixels"
)

func newApp() *cli.App {
	return &cli.App{
		Name:  "smoke",
		Usage: "encode, decode and inspect smoke video streams",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagLogLevel,
				Value:   logrus.WarnLevel.String(),
				Usage:   "logging level (trace, debug, info, warn, error)",
				EnvVars: []string{"SMOKE_LOG_LEVEL"},
			},
		},
		Before: func(c *cli.Context) error {
			level, err := logrus.ParseLevel(c.String(flagLogLevel))
			if err != nil {
				return err
			}
			logrus.SetLevel(level)
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:      "encode",
				Usage:     "encode raw I420 frames into a .smk stream",
				UsageText: "smoke encode --input raw.i420 --output out.smk --width 640 --height 480",
				Flags: []cli.Flag{
					&cli.PathFlag{
						Name:     flagInput,
						Aliases:  []string{"i"},
						Usage:    "raw planar YUV 4:2:0 input",
						Required: true,
					},
					&cli.PathFlag{
						Name:     flagOutput,
						Aliases:  []string{"o"},
						Usage:    ".smk output",
						Required: true,
					},
					&cli.IntFlag{
						Name:     flagWidth,
						Usage:    "input frame width",
						Required: true,
						EnvVars:  []string{"SMOKE_WIDTH"},
					},
					&cli.IntFlag{
						Name:     flagHeight,
						Usage:    "input frame height",
						Required: true,
						EnvVars:  []string{"SMOKE_HEIGHT"},
					},
					&cli.StringFlag{
						Name:    flagFPS,
						Usage:   "frame rate as num/den",
						Value:   "30/1",
						EnvVars: []string{"SMOKE_FPS"},
					},
					codecFlag(),
					&cli.IntFlag{
						Name:    flagMinQuality,
						Usage:   "quality when nearly every block changed",
						Value:   smoke.DefaultMinQuality,
						EnvVars: []string{"SMOKE_MIN_QUALITY"},
					},
					&cli.IntFlag{
						Name:    flagMaxQuality,
						Usage:   "quality when nearly nothing changed",
						Value:   smoke.DefaultMaxQuality,
						EnvVars: []string{"SMOKE_MAX_QUALITY"},
					},
					&cli.Uint64Flag{
						Name:    flagThreshold,
						Usage:   "per-block luma SSD counted as a change",
						Value:   smoke.DefaultThreshold,
						EnvVars: []string{"SMOKE_THRESHOLD"},
					},
					&cli.IntFlag{
						Name:    flagKeyframeInterval,
						Usage:   "frames between forced keyframes (0 disables)",
						Value:   smoke.DefaultKeyframeInterval,
						EnvVars: []string{"SMOKE_KEYFRAME_INTERVAL"},
					},
					&cli.BoolFlag{
						Name:    flagRefDecode,
						Usage:   "decode own output to keep the reference in sync with decoders",
						EnvVars: []string{"SMOKE_REFDEC"},
					},
				},
				Action: EncodeAction,
			},
			{
				Name:      "decode",
				Usage:     "decode a .smk stream into raw I420 frames",
				UsageText: "smoke decode --input in.smk --output raw.i420",
				Flags: []cli.Flag{
					&cli.PathFlag{
						Name:     flagInput,
						Aliases:  []string{"i"},
						Usage:    ".smk input",
						Required: true,
					},
					&cli.PathFlag{
						Name:     flagOutput,
						Aliases:  []string{"o"},
						Usage:    "raw planar YUV 4:2:0 output",
						Required: true,
					},
					codecFlag(),
					&cli.IntFlag{
						Name:    flagMaxPixels,
						Usage:   "largest frame the decoder will allocate",
						Value:   smoke.DefaultMaxPixels,
						EnvVars: []string{"SMOKE_MAX_PIXELS"},
					},
				},
				Action: DecodeAction,
			},
			{
				Name:      "info",
				Usage:     "print the stream header and a line per frame",
				UsageText: "smoke info --input in.smk",
				Flags: []cli.Flag{
					&cli.PathFlag{
						Name:     flagInput,
						Aliases:  []string{"i"},
						Usage:    ".smk input",
						Required: true,
					},
				},
				Action: InfoAction,
			},
		},
	}
}

func codecFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    flagCodec,
		Usage:   "image codec (jpeg or zstd)",
		Value:   imagecodec.NameJPEG,
		EnvVars: []string{"SMOKE_CODEC"},
	}
}
