package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/Krimson/posture-emulator/internal/grpcclient"
	"github.com/Krimson/posture-emulator/internal/logger"
	"github.com/Krimson/posture-emulator/internal/models"
	"github.com/Krimson/posture-emulator/internal/senders"
)

func main() {
	var (
		serverAddr = flag.String("server", "localhost:50051", "Адрес gRPC сервера")
		sessionID  = flag.String("session", "", "ID существующей сессии (иначе генерируется новая)")
		hours      = flag.Float64("horas", 0, "Длительность новой сессии в часах")
		seed       = flag.Int64("seed", 0, "Seed новой сессии")
		step       = flag.Int("passo", 0, "Шаг сетки в минутах")
		start      = flag.String("inicio", "", "Начало сессии YYYY-MM-DDTHH:MM")
		output     = flag.String("saida", "", "Файл сетки (.csv, .jsonl, .xlsx); без него точки только логируются")
		logLevel   = flag.String("log-level", "info", "Уровень логирования")
	)
	flag.Parse()

	log, err := logger.NewLogger(*logLevel, "console", "posture-client")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка инициализации логгера: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	req := grpcclient.StreamRequest{
		SessionID:     *sessionID,
		DurationHours: *hours,
		StepMinutes:   *step,
		Start:         *start,
	}
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "seed" {
			req.Seed = seed
		}
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := stream(ctx, *serverAddr, req, *output, log); err != nil {
		log.Error("stream failed", zap.Error(err))
		os.Exit(1)
	}
}

func stream(ctx context.Context, addr string, req grpcclient.StreamRequest, output string, log *zap.Logger) error {
	client, err := grpcclient.NewGRPCClient(addr)
	if err != nil {
		return err
	}
	defer client.Close()

	var grid []models.GridSample
	id, err := client.StreamGrid(ctx, req, func(s models.GridSample) error {
		log.Debug("sample", zap.String("timestamp", s.ISOTimestamp()), zap.String("postura", s.Posture.String()))
		grid = append(grid, s)
		return nil
	})
	if err != nil {
		return err
	}
	log.Info("grid received", zap.String("session_id", id), zap.Int("samples", len(grid)))

	if output == "" {
		return nil
	}
	fs, err := senders.NewFileSender(output)
	if err != nil {
		return err
	}
	defer fs.Close()
	if err := fs.SendGrid(grid); err != nil {
		return err
	}
	log.Info("grid written", zap.String("path", fs.Path()))
	return nil
}
