package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"imgalpha/internal/engine"
	"imgalpha/internal/geometry"
	"imgalpha/internal/prefs"
)

var rootCmd = &cobra.Command{
	Use:   "imgalpha",
	Short: "imgalpha - reduce images to small palettes, alpha included",
	Long:  "imgalpha quantizes images with alpha to 2..256 colour PNGs, interactively in the terminal or in batch.",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})
}

// optionFlags are the quantization flags shared by view and quantize.
type optionFlags struct {
	colors          int
	dither          string
	restrictedAlpha bool
	speed           int
}

func (f *optionFlags) register(fs *pflag.FlagSet) {
	fs.IntVarP(&f.colors, "colors", "c", engine.DefaultColors, "palette size, 2..256 (257 keeps the original)")
	fs.StringVar(&f.dither, "dither", "", "dithering: auto, on or off (default from prefs)")
	fs.BoolVar(&f.restrictedAlpha, "restricted-alpha", false, "round mostly opaque pixels to fully opaque")
	fs.IntVar(&f.speed, "speed", 0, "1 (best) to 10 (fastest) (default from prefs)")
}

// resolve merges stored preferences with the flags the user set. Flags win.
func (f *optionFlags) resolve(fs *pflag.FlagSet, p prefs.Prefs) (engine.Options, error) {
	opts := p.Apply(engine.DefaultOptions())
	opts.Colors = geometry.ClampColors(f.colors)
	opts.RestrictedAlpha = f.restrictedAlpha

	if fs.Changed("dither") {
		d, err := prefs.ParseDither(f.dither)
		if err != nil {
			return opts, err
		}
		opts.Dithered = d.Enabled()
	}
	if fs.Changed("speed") {
		if f.speed < engine.MinSpeed || f.speed > engine.MaxSpeed {
			return opts, fmt.Errorf("--speed must be between %d and %d", engine.MinSpeed, engine.MaxSpeed)
		}
		opts.Speed = f.speed
	}
	return opts.Normalize(), nil
}

// loadPrefs reads the preference file. A broken file is reported and
// ignored.
func loadPrefs() (prefs.Prefs, string) {
	path, err := prefs.DefaultPath()
	if err != nil {
		return prefs.Default(), ""
	}
	p, err := prefs.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}
	return p, path
}
