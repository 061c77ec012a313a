package main

import (
	"os"

	"github.com/cockroachdb/errors"
	"github.com/pelletier/go-toml"
	"github.com/vkngwrapper/shmarena"
	"github.com/vkngwrapper/shmarena/memutils/sizeclass"
)

// arenaConfig is the contents of the file passed with --config. Every field is optional.
//
//	slot_capacity = 1024
//	size_classes = [32, 64, 128, 256]
//	skip_free_pattern = false
//	validate_operations = true
type arenaConfig struct {
	SlotCapacity       int   `toml:"slot_capacity"`
	SizeClasses        []int `toml:"size_classes"`
	SkipFreePattern    bool  `toml:"skip_free_pattern"`
	ValidateOperations bool  `toml:"validate_operations"`
}

func loadConfig(path string) (arenaConfig, error) {
	var config arenaConfig
	if path == "" {
		return config, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return config, errors.Wrapf(err, "failed to read config %s", path)
	}

	err = toml.Unmarshal(data, &config)
	if err != nil {
		return config, errors.Wrapf(err, "failed to parse config %s", path)
	}

	return config, nil
}

func (c arenaConfig) createOptions() (shmarena.CreateOptions, error) {
	options := shmarena.CreateOptions{
		SlotCapacity: c.SlotCapacity,
	}

	if c.SkipFreePattern {
		options.Flags |= shmarena.AllocatorCreateSkipFreePattern
	}
	if c.ValidateOperations {
		options.Flags |= shmarena.AllocatorCreateValidateOperations
	}

	if len(c.SizeClasses) > 0 {
		table, err := sizeclass.New(c.SizeClasses)
		if err != nil {
			return options, errors.Wrap(err, "invalid size_classes in config")
		}
		options.SizeClasses = table
	}

	return options, nil
}
