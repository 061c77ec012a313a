package main

import (
	"os"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/shmarena"
	"github.com/vkngwrapper/shmarena/shm"
	"golang.org/x/exp/slog"
)

func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	if quiet {
		level = slog.LevelError
	}

	return slog.New(slog.HandlerOptions{Level: level}.NewTextHandler(os.Stderr))
}

func newAllocator() (*shmarena.Allocator, error) {
	config, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}

	options, err := config.createOptions()
	if err != nil {
		return nil, err
	}

	return shmarena.New(newLogger(), options)
}

// withArena maps the arena file at path and runs fn against an allocator attached to it
func withArena(path string, fn func(allocator *shmarena.Allocator) error) (err error) {
	printVerbose("Opening arena: %s\n", path)

	region, err := shm.Open(path)
	if err != nil {
		return errors.Wrapf(err, "failed to open arena %s", path)
	}
	defer func() {
		err = errors.CombineErrors(err, region.Close())
	}()

	return runLocked(region, shmarena.BindAttach, fn)
}

// runLocked holds the region's lock while the allocator is bound and fn runs. The mapping is flushed
// to its backing file if fn succeeds.
func runLocked(region *shm.Region, mode shmarena.BindMode, fn func(allocator *shmarena.Allocator) error) (err error) {
	if err := region.Lock(); err != nil {
		return errors.Wrap(err, "failed to lock arena")
	}
	defer func() {
		err = errors.CombineErrors(err, region.Unlock())
	}()

	allocator, err := newAllocator()
	if err != nil {
		return err
	}

	if err := allocator.Bind(region.Bytes(), mode); err != nil {
		return errors.Wrapf(err, "failed to bind arena %s", region.Path())
	}

	if err := fn(allocator); err != nil {
		return err
	}

	return region.Sync()
}

func parseHandle(arg string) (shmarena.Handle, error) {
	value, err := strconv.Atoi(arg)
	if err != nil || value < 0 {
		return shmarena.NoHandle, errors.Newf("invalid handle %q: handles are non-negative offsets", arg)
	}

	return shmarena.Handle(value), nil
}

func parseSize(arg string) (int, error) {
	value, err := strconv.Atoi(arg)
	if err != nil || value < 0 {
		return 0, errors.Newf("invalid size %q: sizes are non-negative byte counts", arg)
	}

	return value, nil
}

// slotSize returns the class size backing a live handle
func slotSize(allocator *shmarena.Allocator, handle shmarena.Handle) (int, error) {
	data, err := allocator.Bytes(handle)
	if err != nil {
		return 0, err
	}

	return len(data), nil
}
