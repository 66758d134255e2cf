package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xaenox/watt-guardian/internal/assistant"
	"github.com/xaenox/watt-guardian/internal/energy"
	"github.com/xaenox/watt-guardian/internal/models"
	"github.com/xaenox/watt-guardian/internal/simulation"
)

type addApplianceRequest struct {
	Name          string `json:"name"`
	Icon          string `json:"icon"`
	Category      string `json:"category"`
	Location      string `json:"location"`
	IsSmartDevice bool   `json:"is_smart_device"`
}

type toggleRequest struct {
	IsOn bool `json:"is_on"`
}

type budgetRequest struct {
	DailyKWh float64 `json:"daily_kwh"`
}

type rateRequest struct {
	EnergyRate float64 `json:"energy_rate"`
}

type chatRequest struct {
	ConversationID string `json:"conversation_id"`
	Message        string `json:"message"`
}

type historyResponse struct {
	ApplianceID int                  `json:"appliance_id"`
	Range       energy.ChartRange    `json:"range"`
	Entries     []models.EnergyEntry `json:"entries"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	snap := s.engine.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"simulation": snap.Status,
	})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap := s.engine.Snapshot()
	snap.Appliances = withoutHistory(snap.Appliances)
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, energy.NewReport(s.engine.Snapshot()))
}

func (s *Server) handleListAppliances(w http.ResponseWriter, r *http.Request) {
	tier := energy.PowerTier(r.URL.Query().Get("tier"))
	switch tier {
	case "":
		tier = energy.TierAll
	case energy.TierAll, energy.TierHigh, energy.TierMedium, energy.TierLow:
	default:
		writeError(w, http.StatusBadRequest, "tier must be one of all, high, medium, low")
		return
	}
	list := energy.FilterAppliances(s.engine.Snapshot().Appliances, tier, r.URL.Query().Get("filter"))
	writeJSON(w, http.StatusOK, withoutHistory(list))
}

func (s *Server) handleAddAppliance(w http.ResponseWriter, r *http.Request) {
	var req addApplianceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	icon, _ := models.ParseIcon(req.Icon)
	spec := models.DeviceSpec{
		Name:          req.Name,
		Icon:          icon,
		Category:      req.Category,
		Location:      req.Location,
		IsSmartDevice: req.IsSmartDevice,
	}.Normalize()
	if spec.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	writeJSON(w, http.StatusCreated, s.engine.AddDevice(spec))
}

func (s *Server) handleApplianceHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt(w, r, "id")
	if !ok {
		return
	}
	rng := energy.ChartRange(r.URL.Query().Get("range"))
	switch rng {
	case "":
		rng = energy.RangeDay
	case energy.RangeDay, energy.RangeWeek, energy.RangeMonth:
	default:
		writeError(w, http.StatusBadRequest, "range must be one of day, week, month")
		return
	}
	a, err := s.engine.Appliance(id)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, historyResponse{
		ApplianceID: id,
		Range:       rng,
		Entries:     energy.HistorySeries(a.History, rng, s.now()),
	})
}

func (s *Server) handleToggleAppliance(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt(w, r, "id")
	if !ok {
		return
	}
	var req toggleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if _, err := s.engine.Appliance(id); err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.engine.ToggleApplianceState(id, req.IsOn)
	a, err := s.engine.Appliance(id)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleSetBudget(w http.ResponseWriter, r *http.Request) {
	var req budgetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.engine.SetBudget(req.DailyKWh); err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.engine.Snapshot())
}

func (s *Server) handleClearBudget(w http.ResponseWriter, r *http.Request) {
	s.engine.ClearBudget()
	writeJSON(w, http.StatusOK, s.engine.Snapshot())
}

func (s *Server) handleSetRate(w http.ResponseWriter, r *http.Request) {
	var req rateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.engine.SetEnergyRate(req.EnergyRate); err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.engine.Snapshot())
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ConversationID == "" {
		req.ConversationID = uuid.NewString()
	}
	msg, err := s.chat.Send(r.Context(), req.ConversationID, req.Message)
	if errors.Is(err, assistant.ErrEmptyMessage) {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}
	if err != nil {
		s.logger.Error("Chat failed", zap.String("conversation_id", req.ConversationID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to process message")
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

func (s *Server) handleChatHistory(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("conversation")
	history, err := s.chat.History(r.Context(), id)
	if err != nil {
		s.logger.Error("Failed to load chat history", zap.String("conversation_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load history")
		return
	}
	if history == nil {
		history = []models.Message{}
	}
	writeJSON(w, http.StatusOK, history)
}

func (s *Server) handleChatReset(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("conversation")
	msg, err := s.chat.Reset(r.Context(), id)
	if err != nil {
		s.logger.Error("Failed to reset chat", zap.String("conversation_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to reset conversation")
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	tab := models.NotificationTab(r.URL.Query().Get("tab"))
	switch tab {
	case "":
		tab = models.TabAll
	case models.TabAll, models.TabUnread, models.TabAlerts:
	default:
		writeError(w, http.StatusBadRequest, "tab must be one of all, unread, alerts")
		return
	}
	order := simulation.SortOrder(r.URL.Query().Get("order"))
	switch order {
	case "":
		order = simulation.NewestFirst
	case simulation.NewestFirst, simulation.OldestFirst:
	default:
		writeError(w, http.StatusBadRequest, "order must be newest or oldest")
		return
	}
	writeJSON(w, http.StatusOK, s.engine.Notifications(tab, order))
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	if id, ok := pathInt64(w, r, "id"); ok {
		s.engine.MarkNotificationRead(id)
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleMarkUnread(w http.ResponseWriter, r *http.Request) {
	if id, ok := pathInt64(w, r, "id"); ok {
		s.engine.MarkNotificationUnread(id)
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	s.engine.MarkAllRead()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteNotification(w http.ResponseWriter, r *http.Request) {
	if id, ok := pathInt64(w, r, "id"); ok {
		s.engine.DeleteNotification(id)
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleClearNotifications(w http.ResponseWriter, r *http.Request) {
	s.engine.ClearNotifications()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, simulation.ErrNotFound):
		writeError(w, http.StatusNotFound, "appliance not found")
	case errors.Is(err, models.ErrInvalidBudget), errors.Is(err, models.ErrInvalidRate):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error("Engine error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// withoutHistory drops per-appliance history from list payloads; the
// history endpoint serves it on demand.
func withoutHistory(appliances []models.Appliance) []models.Appliance {
	for i := range appliances {
		appliances[i].History = nil
	}
	return appliances
}

func pathInt(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	v, err := strconv.Atoi(r.PathValue(name))
	if err != nil {
		writeError(w, http.StatusBadRequest, name+" must be an integer")
		return 0, false
	}
	return v, true
}

func pathInt64(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	v, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, name+" must be an integer")
		return 0, false
	}
	return v, true
}
