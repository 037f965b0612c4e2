package main

import (
	"fmt"
	"io/ioutil"
	"os"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	"github.com/mit-pdos/go-ufs/ufs"
)

const (
	envVarPrefix = "UFS"
	appName      = "ufsctl"
)

// Config is read from the YAML file named by UFS_CONFIG_FILE, then
// overridden by UFS_* environment variables and finally by flags.
type Config struct {
	Image     string `envconfig:"IMAGE"      yaml:"image"`
	Debug     uint64 `envconfig:"DEBUG"      yaml:"debug"`
	Blocks    uint64 `envconfig:"BLOCKS"     yaml:"blocks"`
	Inodes    uint16 `envconfig:"INODES"     yaml:"inodes"`
	InodeSize uint16 `envconfig:"INODE_SIZE" yaml:"inodeSize"`
}

func DefaultConfig() Config {
	return Config{
		Image:     appName + ".img",
		Blocks:    8192,
		Inodes:    1024,
		InodeSize: 256,
	}
}

func LoadConfig() (*Config, error) {
	c := DefaultConfig()
	if configFile := os.Getenv(envVarPrefix + "_CONFIG_FILE"); configFile != "" {
		data, err := ioutil.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.UnmarshalStrict(data, &c); err != nil {
			return nil, fmt.Errorf("unmarshaling config file: %w", err)
		}
	}

	if err := envconfig.Process(envVarPrefix, &c); err != nil {
		return nil, fmt.Errorf("parsing environment variables: %w", err)
	}
	return &c, nil
}

func (c *Config) Validate() error {
	if c.Image == "" {
		return fmt.Errorf("missing required configuration: image / %s_IMAGE", envVarPrefix)
	}
	return nil
}

func (c *Config) Params() ufs.Params {
	return ufs.Params{
		NBlocks:   c.Blocks,
		NInodes:   c.Inodes,
		InodeSize: c.InodeSize,
	}
}
