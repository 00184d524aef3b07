package devserver

import (
	"net/http"

	"github.com/mmeshcher/foodmarket-client/internal/model"
)

type updateDayRequest struct {
	Day       model.Weekday `json:"day"`
	IsEnabled *bool         `json:"is_enabled"`
	StartTime *string       `json:"start_time"`
	EndTime   *string       `json:"end_time"`
}

// MySchedule возвращает расписание водителя по дням недели.
func (h *Handler) MySchedule(w http.ResponseWriter, r *http.Request) {
	driverID, _ := currentUser(r)
	schedule := h.state.Schedule(driverID)

	entries := make([]model.ScheduleEntry, 0, len(model.Weekdays))
	for _, day := range model.Weekdays {
		d := schedule[day]
		entries = append(entries, model.ScheduleEntry{
			Day:       day,
			IsEnabled: d.Enabled,
			StartTime: d.StartTime,
			EndTime:   d.EndTime,
		})
	}
	writeJSON(w, http.StatusOK, entries)
}

// UpdateDay обновляет один день расписания.
func (h *Handler) UpdateDay(w http.ResponseWriter, r *http.Request) {
	driverID, _ := currentUser(r)
	var req updateDayRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !req.Day.IsValid() {
		writeError(w, http.StatusBadRequest, "invalid day")
		return
	}

	d := h.state.UpdateScheduleDay(driverID, req.Day, model.DayUpdate{
		Enabled:   req.IsEnabled,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
	})
	writeJSON(w, http.StatusOK, model.ScheduleEntry{
		Day:       req.Day,
		IsEnabled: d.Enabled,
		StartTime: d.StartTime,
		EndTime:   d.EndTime,
	})
}

// ToggleAvailability переключает доступность водителя.
func (h *Handler) ToggleAvailability(w http.ResponseWriter, r *http.Request) {
	driverID, _ := currentUser(r)
	writeJSON(w, http.StatusOK, map[string]bool{"is_available": h.state.ToggleAvailability(driverID)})
}

// Missions возвращает незавершённые заказы, назначенные водителю.
func (h *Handler) Missions(w http.ResponseWriter, r *http.Request) {
	driverID, _ := currentUser(r)
	writeJSON(w, http.StatusOK, h.state.Orders(func(o model.Order, _, _ model.ID) bool {
		return o.DriverID == driverID && !o.Status.IsTerminal()
	}))
}

// DriverDashboard возвращает статистику водителя.
func (h *Handler) DriverDashboard(w http.ResponseWriter, r *http.Request) {
	driverID, _ := currentUser(r)
	writeJSON(w, http.StatusOK, h.state.DriverStats(driverID))
}
