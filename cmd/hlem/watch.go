package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pippi2802/hlem-framework/pkg/config"
	"github.com/pippi2802/hlem-framework/pkg/watch"
)

func runWatch(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(inputFile); os.IsNotExist(err) {
		return fmt.Errorf("input file does not exist: %s", inputFile)
	}

	cfg := config.Global().Get()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nStopping watch...")
		cancel()
	}()

	if shutdown, err := initTelemetry(cfg); err != nil {
		return err
	} else if shutdown != nil {
		defer shutdown(context.Background())
	}

	miningCfg, err := buildMiningConfig(cmd, cfg)
	if err != nil {
		return err
	}

	w, err := watch.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	w.OnChange = func(path string) error {
		fmt.Printf("\n%s changed, re-mining...\n", path)
		// Changed logs invalidate nothing in the cache (the key covers only
		// path and parameters), so watch always re-mines.
		noCache = true
		return mineOnce(ctx, cmd, cfg, miningCfg)
	}
	w.OnError = func(path string, err error) {
		fmt.Fprintf(os.Stderr, "watch error on %q: %v\n", path, err)
	}

	if err := w.Watch(inputFile); err != nil {
		return err
	}

	fmt.Printf("Watching %s (Ctrl-C to stop)\n", inputFile)

	// Initial run before waiting for changes.
	noCache = true
	if err := mineOnce(ctx, cmd, cfg, miningCfg); err != nil {
		fmt.Fprintf(os.Stderr, "initial run failed: %v\n", err)
	}

	err = w.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
