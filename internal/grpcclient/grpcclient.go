package grpcclient

import (
	"context"
	"errors"
	"fmt"
	"io"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/Krimson/posture-emulator/internal/models"
	"github.com/Krimson/posture-emulator/internal/server"
	"github.com/Krimson/posture-emulator/pkg/utils"
)

// ErrInvalidMessage сообщение потока без обязательных полей
var ErrInvalidMessage = errors.New("invalid stream message")

// StreamRequest параметры StreamGrid. С SessionID остальные поля игнорируются
type StreamRequest struct {
	SessionID     string
	DurationHours float64
	Seed          *int64
	StepMinutes   int
	Start         string
}

func (r StreamRequest) toStruct() (*structpb.Struct, error) {
	fields := map[string]interface{}{}
	if r.SessionID != "" {
		fields["session_id"] = r.SessionID
		return structpb.NewStruct(fields)
	}
	if r.DurationHours > 0 {
		fields["duration_hours"] = r.DurationHours
	}
	if r.Seed != nil {
		fields["seed"] = *r.Seed
	}
	if r.StepMinutes > 0 {
		fields["step_minutes"] = r.StepMinutes
	}
	if r.Start != "" {
		fields["start"] = r.Start
	}
	return structpb.NewStruct(fields)
}

type GRPCClient struct {
	client server.PostureServiceClient
	conn   *grpc.ClientConn
}

// NewGRPCClient подключается к PostureService; по умолчанию без TLS
func NewGRPCClient(target string, opts ...grpc.DialOption) (*GRPCClient, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to gRPC server: %w", err)
	}

	return &GRPCClient{
		client: server.NewPostureServiceClient(conn),
		conn:   conn,
	}, nil
}

// StreamGrid читает поток сетки и передаёт точки в handle.
// Возвращает ID сессии из потока.
func (g *GRPCClient) StreamGrid(ctx context.Context, req StreamRequest, handle func(models.GridSample) error) (string, error) {
	in, err := req.toStruct()
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	// Отмена закрывает поток, если handle вернул ошибку
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stream, err := g.client.StreamGrid(ctx, in)
	if err != nil {
		return "", fmt.Errorf("failed to create stream: %w", err)
	}

	var sessionID string
	for {
		msg, err := stream.Recv()
		if err == io.EOF {
			return sessionID, nil
		}
		if err != nil {
			return sessionID, err
		}

		fields := msg.GetFields()
		sessionID = fields["session_id"].GetStringValue()
		sample, err := parseSample(fields)
		if err != nil {
			return sessionID, err
		}
		if err := handle(sample); err != nil {
			return sessionID, err
		}
	}
}

func parseSample(fields map[string]*structpb.Value) (models.GridSample, error) {
	ts, err := utils.ParseLocal(fields["timestamp"].GetStringValue())
	if err != nil {
		return models.GridSample{}, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	posture, err := models.ParsePosture(fields["postura"].GetStringValue())
	if err != nil {
		return models.GridSample{}, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	return models.GridSample{Timestamp: ts, Posture: posture}, nil
}

func (g *GRPCClient) Close() error {
	return g.conn.Close()
}
