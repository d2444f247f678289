package main

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	// Default
	c, err := loadConfig("")
	require.NoError(t, err)
	assert.Equal(t, defaultConfig(), c)

	// File
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(`decoder:
  charset: ISO-8859-15
  time_offset: -2
input:
  duration: 1m
  packets: true
  path: udp://239.0.0.1:1234
output:
  format: json
`), 0600))
	c, err = loadConfig(p)
	require.NoError(t, err)
	assert.Equal(t, &Config{
		Decoder: DecoderConfig{
			Charset:    "ISO-8859-15",
			TimeOffset: -2,
		},
		Input: InputConfig{
			Duration: time.Minute,
			Packets:  true,
			Path:     "udp://239.0.0.1:1234",
			Timeout:  10 * time.Second,
		},
		Output: OutputConfig{Format: "json"},
	}, c)
	assert.NoError(t, c.validate())

	// Invalid file
	require.NoError(t, os.WriteFile(p, []byte("input: ["), 0600))
	_, err = loadConfig(p)
	assert.Error(t, err)

	// Missing file
	_, err = loadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestConfigApplyFlags(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.String("f", "", "")
	fs.String("i", "", "")
	fs.String("l", "", "")
	fs.Bool("p", false, "")
	fs.Duration("timeout", 0, "")
	require.NoError(t, fs.Parse([]string{"-f", "json", "-p", "-timeout", "2s"}))

	c := defaultConfig()
	c.Input.Path = "input.ts"
	c.Output.Language = "fra"
	c.applyFlags(fs)
	assert.Equal(t, "json", c.Output.Format)
	assert.True(t, c.Input.Packets)
	assert.Equal(t, 2*time.Second, c.Input.Timeout)

	// Flags that have not been set don't override the config
	assert.Equal(t, "input.ts", c.Input.Path)
	assert.Equal(t, "fra", c.Output.Language)
}

func TestConfigValidate(t *testing.T) {
	valid := func() *Config {
		c := defaultConfig()
		c.Input.Path = "-"
		return c
	}
	assert.NoError(t, valid().validate())

	for name, fn := range map[string]func(c *Config){
		"path":        func(c *Config) { c.Input.Path = "" },
		"packet size": func(c *Config) { c.Input.PacketSize = 200 },
		"duration":    func(c *Config) { c.Input.Duration = -time.Second },
		"format":      func(c *Config) { c.Output.Format = "xml" },
		"time offset": func(c *Config) { c.Decoder.TimeOffset = 13 },
	} {
		t.Run(name, func(t *testing.T) {
			c := valid()
			fn(c)
			assert.Error(t, c.validate())
		})
	}
}
