package app

import (
	"errors"
	"flag"
	"fmt"
	"strings"

	"github.com/roman-kulish/spectrum-monitor/internal/render"
)

const (
	ImagePNG  = "png"
	ImageJPEG = "jpeg"
)

type ImageFormat string

type Config struct {
	SessionFile string
	OutputFile  string
	Format      ImageFormat
	Theme       render.ColorTheme
	PlotWidth   int
	PlotHeight  int
}

var validImageFormats = map[ImageFormat]struct{}{
	ImagePNG:  {},
	ImageJPEG: {},
}

var validThemes = map[render.ColorTheme]struct{}{
	render.ClassicTheme:   {},
	render.GrayscaleTheme: {},
	render.ThermalTheme:   {},
}

func NewConfig() *Config {
	return &Config{
		Format: ImagePNG,
		Theme:  render.ClassicTheme,
	}
}

func NewConfigFromCLI() (*Config, error) {
	c := NewConfig()

	var imageFormat, theme string
	flag.StringVar(&c.SessionFile, "i", "", "Path to the recorded session file (.csv or .sqlite)")
	flag.StringVar(&c.OutputFile, "o", "", "Path to the output file")
	flag.StringVar(&imageFormat, "f", string(ImagePNG), "Output image format. [png, jpeg]")
	flag.StringVar(&theme, "theme", string(render.ClassicTheme), "Color theme. [classic, grayscale, thermal]")
	flag.IntVar(&c.PlotWidth, "w", 0, "Plot area width in pixels")
	flag.IntVar(&c.PlotHeight, "h", 0, "Plot area height in pixels")
	flag.Parse()

	imageFormat = strings.ToLower(imageFormat)
	theme = strings.ToLower(theme)

	var err error
	if c.SessionFile == "" {
		err = errors.New("session file is required")
	} else if c.OutputFile == "" {
		err = errors.New("output file is required")
	} else if _, ok := validImageFormats[ImageFormat(imageFormat)]; !ok {
		err = fmt.Errorf("invalid image format: %s", imageFormat)
	} else if _, ok := validThemes[render.ColorTheme(theme)]; !ok {
		err = fmt.Errorf("invalid color theme: %s", theme)
	}

	if err != nil {
		flag.Usage()
		return nil, err
	}

	c.Format = ImageFormat(imageFormat)
	c.Theme = render.ColorTheme(theme)
	c.OutputFile = fmt.Sprintf("%s.%s", c.OutputFile, c.Format)
	return c, nil
}
