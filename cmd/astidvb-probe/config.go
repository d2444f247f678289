package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the probe configuration
type Config struct {
	Decoder DecoderConfig `yaml:"decoder"`
	Input   InputConfig   `yaml:"input"`
	Output  OutputConfig  `yaml:"output"`
}

type DecoderConfig struct {
	AcceptBadDates bool   `yaml:"accept_bad_dates"`
	Charset        string `yaml:"charset"` // Used by texts without a character table selector
	IgnoreUpdates  bool   `yaml:"ignore_updates"`
	TimeOffset     int    `yaml:"time_offset"` // In hours
}

type InputConfig struct {
	Duration   time.Duration `yaml:"duration"` // 0 reads until the end of the input
	PacketSize int           `yaml:"packet_size"`
	Packets    bool          `yaml:"packets"` // Input is a transport stream
	Path       string        `yaml:"path"`
	Timeout    time.Duration `yaml:"timeout"`
}

type OutputConfig struct {
	Format   string `yaml:"format"`
	Language string `yaml:"language"`
}

func defaultConfig() *Config {
	return &Config{
		Input: InputConfig{
			Timeout: 10 * time.Second,
		},
		Output: OutputConfig{
			Format: "text",
		},
	}
}

// loadConfig loads the yaml file on top of the default configuration
// An empty path returns the default configuration
func loadConfig(path string) (c *Config, err error) {
	c = defaultConfig()
	if path == "" {
		return
	}

	// Read
	var b []byte
	if b, err = os.ReadFile(path); err != nil {
		err = fmt.Errorf("main: reading %s failed: %w", path, err)
		return
	}

	// Unmarshal
	if err = yaml.Unmarshal(b, c); err != nil {
		err = fmt.Errorf("main: unmarshaling %s failed: %w", path, err)
		return
	}
	return
}

// applyFlags overrides the configuration with the flags that have been set
func (c *Config) applyFlags(fs *flag.FlagSet) {
	fs.Visit(func(f *flag.Flag) {
		g, ok := f.Value.(flag.Getter)
		if !ok {
			return
		}
		switch v := g.Get(); f.Name {
		case "duration":
			c.Input.Duration = v.(time.Duration)
		case "f":
			c.Output.Format = v.(string)
		case "i":
			c.Input.Path = v.(string)
		case "l":
			c.Output.Language = v.(string)
		case "p":
			c.Input.Packets = v.(bool)
		case "timeout":
			c.Input.Timeout = v.(time.Duration)
		}
	})
}

func (c *Config) validate() error {
	if c.Input.Path == "" {
		return errors.New("main: use -i to indicate an input path")
	}
	switch c.Input.PacketSize {
	case 0, 188, 192, 204:
	default:
		return fmt.Errorf("main: invalid packet size %d (must be 0, 188, 192 or 204)", c.Input.PacketSize)
	}
	if c.Input.Duration < 0 || c.Input.Timeout < 0 {
		return errors.New("main: durations must be positive")
	}
	switch c.Output.Format {
	case "json", "text":
	default:
		return fmt.Errorf("main: invalid format %s (must be json or text)", c.Output.Format)
	}
	if c.Decoder.TimeOffset < -12 || c.Decoder.TimeOffset > 12 {
		return fmt.Errorf("main: invalid time offset %d (must be between -12 and 12)", c.Decoder.TimeOffset)
	}
	return nil
}
