package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/Krimson/posture-emulator/internal/session"
)

// SessionService операции менеджера сессий, нужные gRPC серверу
type SessionService interface {
	GenerateSession(ctx context.Context, req *session.GenerateSessionRequest) (*session.SessionData, error)
	GetSessionData(ctx context.Context, sessionID string) (*session.SessionData, error)
}

// PostureServer реализует PostureServiceServer поверх session.Manager
type PostureServer struct {
	sessions SessionService
	logger   *zap.Logger
}

// NewPostureServer создает новый экземпляр PostureServer
func NewPostureServer(sessions SessionService, logger *zap.Logger) *PostureServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PostureServer{
		sessions: sessions,
		logger:   logger,
	}
}

// GenerateSession генерирует сессию; ответ {"session": {...}}
func (s *PostureServer) GenerateSession(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req session.GenerateSessionRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid request: %v", err)
	}

	data, err := s.sessions.GenerateSession(ctx, &req)
	if err != nil {
		return nil, s.toStatus(err)
	}

	out, err := toStruct(session.SessionResponse{Session: data.Session})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return out, nil
}

// StreamGrid отдаёт сетку сессии по одной точке на сообщение.
// С "session_id" берётся существующая сессия, иначе генерируется новая.
func (s *PostureServer) StreamGrid(in *structpb.Struct, stream PostureService_StreamGridServer) error {
	ctx := stream.Context()

	data, err := s.loadOrGenerate(ctx, in)
	if err != nil {
		return err
	}

	sessionID := data.Session.ID
	total := len(data.Grid)
	for i, sample := range data.Grid {
		if err := ctx.Err(); err != nil {
			return status.FromContextError(err).Err()
		}

		msg, err := structpb.NewStruct(map[string]interface{}{
			"session_id": sessionID,
			"index":      i,
			"total":      total,
			"timestamp":  sample.ISOTimestamp(),
			"postura":    string(sample.Posture),
		})
		if err != nil {
			return status.Errorf(codes.Internal, "encode sample: %v", err)
		}
		if err := stream.Send(msg); err != nil {
			return err
		}
	}

	s.logger.Debug("grid streamed", zap.String("session_id", sessionID), zap.Int("samples", total))
	return nil
}

func (s *PostureServer) loadOrGenerate(ctx context.Context, in *structpb.Struct) (*session.SessionData, error) {
	if v, ok := in.GetFields()["session_id"]; ok {
		data, err := s.sessions.GetSessionData(ctx, v.GetStringValue())
		if err != nil {
			return nil, s.toStatus(err)
		}
		return data, nil
	}

	var req session.GenerateSessionRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid request: %v", err)
	}
	data, err := s.sessions.GenerateSession(ctx, &req)
	if err != nil {
		return nil, s.toStatus(err)
	}
	return data, nil
}

func (s *PostureServer) toStatus(err error) error {
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		return status.Error(codes.NotFound, err.Error())
	case session.IsValidationError(err):
		return status.Error(codes.InvalidArgument, err.Error())
	default:
		s.logger.Error("posture service failure", zap.Error(err))
		return status.Error(codes.Internal, "internal error")
	}
}

// fromStruct раскладывает Struct в структуру через JSON
func fromStruct(in *structpb.Struct, v interface{}) error {
	if in == nil {
		return nil
	}
	data, err := protojson.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// toStruct собирает Struct из JSON представления v
func toStruct(v interface{}) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(data, out); err != nil {
		return nil, fmt.Errorf("unmarshal struct: %w", err)
	}
	return out, nil
}
