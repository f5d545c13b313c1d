package session

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/Krimson/posture-emulator/internal/senders"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// HTTPHandler обрабатывает HTTP запросы для управления сессиями (Presentation Layer)
type HTTPHandler struct {
	manager *Manager
	logger  *zap.Logger
}

// NewHTTPHandler создает новый HTTP обработчик
func NewHTTPHandler(manager *Manager, logger *zap.Logger) *HTTPHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPHandler{
		manager: manager,
		logger:  logger,
	}
}

// RegisterRoutes регистрирует маршруты в роутере
func (h *HTTPHandler) RegisterRoutes(router *mux.Router) {
	api := router.PathPrefix("/api/sessions").Subrouter()

	api.HandleFunc("", h.GenerateSession).Methods("POST")
	api.HandleFunc("", h.ListSessions).Methods("GET")
	api.HandleFunc("/{id}", h.GetSession).Methods("GET")
	api.HandleFunc("/{id}/grid", h.GetGrid).Methods("GET")
	api.HandleFunc("/{id}/events", h.GetEvents).Methods("GET")
	api.HandleFunc("/{id}/export.xlsx", h.ExportXLSX).Methods("GET")
	api.HandleFunc("/{id}/save", h.SaveSession).Methods("POST")
	api.HandleFunc("/{id}", h.DeleteSession).Methods("DELETE")
}

// GenerateSession генерирует новую сессию
// @Summary Сгенерировать сессию
// @Description Генерирует события смены позы и сетку; результат хранится в Redis до сохранения
// @Tags Sessions
// @Accept json
// @Produce json
// @Param request body GenerateSessionRequest false "Параметры генерации"
// @Success 201 {object} SessionResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/sessions [post]
func (h *HTTPHandler) GenerateSession(w http.ResponseWriter, r *http.Request) {
	var req GenerateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	data, err := h.manager.GenerateSession(r.Context(), &req)
	if err != nil {
		h.respondFailure(w, err, "Failed to generate session")
		return
	}

	respondJSON(w, http.StatusCreated, SessionResponse{Session: data.Session})
}

// ListSessions возвращает список сохранённых сессий
// @Summary Список сохранённых сессий
// @Tags Sessions
// @Produce json
// @Param limit query int false "Лимит" default(50)
// @Param offset query int false "Смещение" default(0)
// @Success 200 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/sessions [get]
func (h *HTTPHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	limit := getQueryInt(r, "limit", 50)
	offset := getQueryInt(r, "offset", 0)

	sessions, err := h.manager.ListSessions(r.Context(), limit, offset)
	if err != nil {
		h.respondFailure(w, err, "Failed to list sessions")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"sessions": sessions,
		"limit":    limit,
		"offset":   offset,
		"count":    len(sessions),
	})
}

// GetSession метаданные и статистика сессии
// @Summary Получить сессию
// @Tags Sessions
// @Produce json
// @Param id path string true "ID сессии"
// @Success 200 {object} SessionResponse
// @Failure 404 {object} map[string]interface{}
// @Router /api/sessions/{id} [get]
func (h *HTTPHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	session, err := h.manager.GetSession(r.Context(), sessionID)
	if err != nil {
		h.respondFailure(w, err, "Failed to get session")
		return
	}

	respondJSON(w, http.StatusOK, SessionResponse{Session: session})
}

// GetGrid сетка сессии
// @Summary Сетка поз
// @Tags Sessions
// @Produce json,text/csv
// @Param id path string true "ID сессии"
// @Param format query string false "json или csv" default(json)
// @Success 200 {array} models.GridSample
// @Failure 404 {object} map[string]interface{}
// @Router /api/sessions/{id}/grid [get]
func (h *HTTPHandler) GetGrid(w http.ResponseWriter, r *http.Request) {
	data, ok := h.loadData(w, r)
	if !ok {
		return
	}

	switch r.URL.Query().Get("format") {
	case "", "json":
		respondJSON(w, http.StatusOK, data.Grid)
	case "csv":
		var buf bytes.Buffer
		if err := senders.WriteGridCSV(&buf, data.Grid); err != nil {
			h.respondFailure(w, err, "Failed to encode grid")
			return
		}
		respondFile(w, "text/csv", data.Session.ID+"_grade.csv", buf.Bytes())
	default:
		respondError(w, http.StatusBadRequest, "Unsupported format")
	}
}

// GetEvents события сессии
// @Summary События смены позы
// @Tags Sessions
// @Produce json,text/csv
// @Param id path string true "ID сессии"
// @Param format query string false "json или csv" default(json)
// @Success 200 {array} senders.EventRecord
// @Failure 404 {object} map[string]interface{}
// @Router /api/sessions/{id}/events [get]
func (h *HTTPHandler) GetEvents(w http.ResponseWriter, r *http.Request) {
	data, ok := h.loadData(w, r)
	if !ok {
		return
	}

	switch r.URL.Query().Get("format") {
	case "", "json":
		respondJSON(w, http.StatusOK, senders.NewEventRecords(data.Events))
	case "csv":
		var buf bytes.Buffer
		if err := senders.WriteEventsCSV(&buf, data.Events); err != nil {
			h.respondFailure(w, err, "Failed to encode events")
			return
		}
		respondFile(w, "text/csv", data.Session.ID+"_eventos.csv", buf.Bytes())
	default:
		respondError(w, http.StatusBadRequest, "Unsupported format")
	}
}

// ExportXLSX книга Excel с листами сетки и событий
// @Summary Выгрузка в Excel
// @Tags Sessions
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param id path string true "ID сессии"
// @Success 200 {file} file
// @Failure 404 {object} map[string]interface{}
// @Router /api/sessions/{id}/export.xlsx [get]
func (h *HTTPHandler) ExportXLSX(w http.ResponseWriter, r *http.Request) {
	data, ok := h.loadData(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := senders.WriteXLSX(&buf, data.Grid, data.Events); err != nil {
		h.respondFailure(w, err, "Failed to build workbook")
		return
	}
	respondFile(w, xlsxContentType, data.Session.ID+".xlsx", buf.Bytes())
}

// SaveSession сохраняет сессию в базу данных
// @Summary Сохранить сессию в PostgreSQL
// @Tags Sessions
// @Produce json
// @Param id path string true "ID сессии"
// @Success 200 {object} SessionResponse
// @Failure 404 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/sessions/{id}/save [post]
func (h *HTTPHandler) SaveSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	session, err := h.manager.SaveSession(r.Context(), sessionID)
	if err != nil {
		h.respondFailure(w, err, "Failed to save session")
		return
	}

	respondJSON(w, http.StatusOK, SessionResponse{Session: session})
}

// DeleteSession удаляет сессию
// @Summary Удалить сессию
// @Tags Sessions
// @Produce json
// @Param id path string true "ID сессии"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/sessions/{id} [delete]
func (h *HTTPHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	if err := h.manager.DeleteSession(r.Context(), sessionID); err != nil {
		h.respondFailure(w, err, "Failed to delete session")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message":    "Session deleted successfully",
		"session_id": sessionID,
	})
}

func (h *HTTPHandler) loadData(w http.ResponseWriter, r *http.Request) (*SessionData, bool) {
	data, err := h.manager.GetSessionData(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.respondFailure(w, err, "Failed to get session data")
		return nil, false
	}
	return data, true
}

// respondFailure 400 для ошибок валидации, 404 для отсутствующей сессии, иначе 500
func (h *HTTPHandler) respondFailure(w http.ResponseWriter, err error, message string) {
	switch {
	case errors.Is(err, ErrSessionNotFound):
		respondError(w, http.StatusNotFound, "Session not found")
	case IsValidationError(err):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error(message, zap.Error(err))
		respondError(w, http.StatusInternalServerError, message)
	}
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]interface{}{
		"error":  message,
		"status": status,
	})
}

func respondFile(w http.ResponseWriter, contentType, filename string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func getQueryInt(r *http.Request, key string, defaultValue int) int {
	valueStr := r.URL.Query().Get(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
