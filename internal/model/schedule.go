package model

// Weekday ключ дня недели в расписании водителя.
type Weekday string

const (
	Monday    Weekday = "monday"
	Tuesday   Weekday = "tuesday"
	Wednesday Weekday = "wednesday"
	Thursday  Weekday = "thursday"
	Friday    Weekday = "friday"
	Saturday  Weekday = "saturday"
	Sunday    Weekday = "sunday"
)

// Weekdays все дни недели по порядку.
var Weekdays = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

// IsValid сообщает, является ли ключ днём недели.
func (d Weekday) IsValid() bool {
	for _, w := range Weekdays {
		if w == d {
			return true
		}
	}
	return false
}

// DaySchedule расписание водителя на один день.
type DaySchedule struct {
	Enabled   bool   `json:"enabled"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

// DriverSchedule расписание водителя по дням недели.
type DriverSchedule map[Weekday]DaySchedule

// DefaultDaySchedule расписание дня, если сервер недоступен.
func DefaultDaySchedule() DaySchedule {
	return DaySchedule{Enabled: false, StartTime: "09:00", EndTime: "17:00"}
}

// DefaultDriverSchedule пустое расписание на всю неделю.
func DefaultDriverSchedule() DriverSchedule {
	s := make(DriverSchedule, len(Weekdays))
	for _, d := range Weekdays {
		s[d] = DefaultDaySchedule()
	}
	return s
}

// Clone возвращает копию расписания.
func (s DriverSchedule) Clone() DriverSchedule {
	if s == nil {
		return nil
	}
	dup := make(DriverSchedule, len(s))
	for k, v := range s {
		dup[k] = v
	}
	return dup
}

// DayUpdate частичное обновление дня. Nil-поля не меняются.
type DayUpdate struct {
	Enabled   *bool
	StartTime *string
	EndTime   *string
}

// Apply накладывает обновление на день.
func (u DayUpdate) Apply(d DaySchedule) DaySchedule {
	if u.Enabled != nil {
		d.Enabled = *u.Enabled
	}
	if u.StartTime != nil {
		d.StartTime = *u.StartTime
	}
	if u.EndTime != nil {
		d.EndTime = *u.EndTime
	}
	return d
}

// APIFields переводит обновление в имена полей сервера.
func (u DayUpdate) APIFields() map[string]any {
	fields := make(map[string]any, 3)
	if u.Enabled != nil {
		fields["is_enabled"] = *u.Enabled
	}
	if u.StartTime != nil {
		fields["start_time"] = *u.StartTime
	}
	if u.EndTime != nil {
		fields["end_time"] = *u.EndTime
	}
	return fields
}

// ScheduleEntry элемент расписания в формате сервера.
type ScheduleEntry struct {
	Day       Weekday `json:"day"`
	IsEnabled bool    `json:"is_enabled"`
	StartTime string  `json:"start_time"`
	EndTime   string  `json:"end_time"`
}

// ScheduleFromEntries собирает расписание из ответа сервера.
func ScheduleFromEntries(entries []ScheduleEntry) DriverSchedule {
	s := make(DriverSchedule, len(entries))
	for _, e := range entries {
		s[e.Day] = DaySchedule{Enabled: e.IsEnabled, StartTime: e.StartTime, EndTime: e.EndTime}
	}
	return s
}
