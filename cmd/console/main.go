package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/chzyer/readline"
	"github.com/joho/godotenv"

	"stylefuse/internal/console"
	"stylefuse/internal/i18n"
	"stylefuse/internal/infra"
	"stylefuse/internal/providers/prompt"
	"stylefuse/internal/session"
)

func main() {
	if err := mainImpl(); err != nil {
		panic(err)
	}
}

func mainImpl() error {
	_ = godotenv.Load(".env", ".env.local")

	cfg, err := infra.LoadConfig()
	if err != nil {
		return err
	}
	logger := infra.NewLoggerTo(os.Stderr, cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	generator, err := prompt.NewGeminiGenerator(ctx, prompt.GeminiOptions{
		APIKey: cfg.APIKey,
		Logger: &logger,
	})
	if err != nil {
		return err
	}

	catalog := i18n.Default()
	c := &console.Console{
		Session:        session.New(session.Options{Generator: generator, Logger: &logger}),
		Catalog:        catalog,
		Locale:         catalog.Match(cfg.DefaultLocale),
		Logger:         &logger,
		Out:            os.Stdout,
		MaxUploadBytes: cfg.MaxUploadBytes,
	}
	defer c.Session.Close()

	rl, err := readline.New("> ")
	if err != nil {
		return err
	}
	defer func() {
		_ = rl.Close()
	}()

	fmt.Println(catalog.Message(c.Locale, "phase.idle"))
	for {
		line, err := rl.Readline()
		if err != nil { // io.EOF or interrupt
			break
		}
		if !c.Execute(ctx, line) {
			break
		}
	}
	return nil
}
