package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"cli-cmds/internal/app"
	"cli-cmds/internal/config"
)

func main() {
	sigs := make(chan os.Signal, 2)
	signal.Notify(sigs, os.Interrupt)

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	os.Exit(app.Main(context.Background(), os.Args[1:], app.NewEnv(cfg), sigs))
}
