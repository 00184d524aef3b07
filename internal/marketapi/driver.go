package marketapi

import (
	"context"
	"net/http"

	"github.com/mmeshcher/foodmarket-client/internal/model"
)

// DriverSchedule возвращает расписание водителя по дням.
func (c *Client) DriverSchedule(ctx context.Context) ([]model.ScheduleEntry, error) {
	return getList[model.ScheduleEntry](ctx, c, "/driver/schedule/my_schedule/", nil)
}

// UpdateDriverDay обновляет расписание одного дня. fields в именах полей сервера.
func (c *Client) UpdateDriverDay(ctx context.Context, day model.Weekday, fields map[string]any) error {
	payload := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		payload[k] = v
	}
	payload["day"] = day
	return c.do(ctx, request{method: http.MethodPost, path: "/driver/schedule/update_day/", body: payload}, nil)
}

// ToggleDriverAvailability переключает доступность водителя.
func (c *Client) ToggleDriverAvailability(ctx context.Context) error {
	return c.do(ctx, request{method: http.MethodPost, path: "/driver/schedule/toggle_availability/"}, nil)
}

// DriverMissions возвращает заказы, назначенные водителю.
func (c *Client) DriverMissions(ctx context.Context) ([]model.Order, error) {
	return getList[model.Order](ctx, c, "/driver/missions/", nil)
}

// DriverDashboard возвращает показатели водителя.
func (c *Client) DriverDashboard(ctx context.Context) (model.DriverStats, error) {
	var stats model.DriverStats
	err := c.do(ctx, request{method: http.MethodGet, path: "/driver/dashboard/"}, &stats)
	return stats, err
}
