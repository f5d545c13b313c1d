package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/Krimson/posture-emulator/internal/config"
	"github.com/Krimson/posture-emulator/internal/emulator"
	"github.com/Krimson/posture-emulator/internal/logger"
	"github.com/Krimson/posture-emulator/internal/senders"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	// Загрузка конфигурации
	cfg, err := config.LoadArgs(args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(os.Stderr, "Ошибка загрузки конфигурации: %v\n", err)
		return 1
	}

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "posture-emulator")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка инициализации логгера: %v\n", err)
		return 1
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := emulate(ctx, cfg, log); err != nil {
		log.Error("emulator failed", zap.Error(err))
		return 1
	}
	return 0
}

func emulate(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	opts := emulator.SessionOptions{
		DurationHours: cfg.Session.DurationHours,
		Seed:          cfg.Session.Seed,
		StepMinutes:   cfg.Session.StepMinutes,
		Start:         cfg.Session.Start,
	}

	// Окно фиксируется до сборки профиля: времена приёма пищи берутся на день начала
	start, _, err := opts.Window()
	if err != nil {
		return err
	}
	opts.Start = start

	profile, err := cfg.Patient.Profile(start)
	if err != nil {
		return err
	}
	opts.Profile = profile

	gridSender, err := senders.NewFileSender(cfg.Output.GridPath)
	if err != nil {
		return fmt.Errorf("init grid sender: %w", err)
	}
	defer gridSender.Close()

	// nil интерфейс, а не типизированный nil: иначе эмулятор попытается писать события
	var eventSender senders.EventSender
	if cfg.Output.EventsPath != "" {
		fs, err := senders.NewFileSender(cfg.Output.EventsPath)
		if err != nil {
			return fmt.Errorf("init events sender: %w", err)
		}
		defer fs.Close()
		eventSender = fs
	}

	if _, err := emulator.NewEmulator(opts, gridSender, eventSender, log).Run(ctx); err != nil {
		return err
	}

	stats := gridSender.GetStats()
	log.Info("session written",
		zap.String("path", gridSender.Path()),
		zap.String("format", string(gridSender.Format())),
		zap.Int64("rows", stats.TotalRows),
		zap.Int64("bytes", stats.TotalBytes))
	return nil
}
