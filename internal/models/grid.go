package models

import (
	"fmt"
	"math"
	"time"
)

// SlotTemplate is one fixed cell of the weekly grid: 5 weekdays by 4 time
// windows, 20 cells system wide. Templates are immutable configuration shared
// by every class; TimeSlots reference them by ID.
type SlotTemplate struct {
	ID        string `json:"id"`
	Day       string `json:"day"`
	DayIndex  int    `json:"day_index"`
	Window    int    `json:"window"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// DurationHours returns the window length in hours rounded to 2 decimals.
func (t SlotTemplate) DurationHours() float64 {
	return DurationHours(t.StartTime, t.EndTime)
}

// Label renders the window as "08:30 - 10:00".
func (t SlotTemplate) Label() string {
	return fmt.Sprintf("%s - %s", t.StartTime, t.EndTime)
}

// Weekdays lists the five teaching days in grid order.
var Weekdays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday"}

// timeWindows are the four daily windows in grid order.
var timeWindows = [][2]string{
	{"08:30", "10:00"},
	{"10:15", "11:45"},
	{"13:00", "14:30"},
	{"14:45", "16:15"},
}

// WindowsPerDay is the number of time windows on each teaching day.
const WindowsPerDay = 4

// ClassroomPool is the fixed set of bookable rooms shared by all classes.
var ClassroomPool = []string{
	"B101", "B102", "B103", "B104",
	"B201", "B202", "B203", "B204",
	"B301", "B302", "B303", "B304",
	"Amphi A", "Amphi B", "Lab Info 1", "Lab Info 2",
}

var (
	grid        []SlotTemplate
	gridByID    map[string]SlotTemplate
	roomsInPool map[string]struct{}
)

func init() {
	grid = make([]SlotTemplate, 0, len(Weekdays)*WindowsPerDay)
	gridByID = make(map[string]SlotTemplate, len(Weekdays)*WindowsPerDay)
	for dayIdx, day := range Weekdays {
		for window, times := range timeWindows {
			tpl := SlotTemplate{
				ID:        fmt.Sprintf("%s-%d", day, window+1),
				Day:       day,
				DayIndex:  dayIdx,
				Window:    window,
				StartTime: times[0],
				EndTime:   times[1],
			}
			grid = append(grid, tpl)
			gridByID[tpl.ID] = tpl
		}
	}

	roomsInPool = make(map[string]struct{}, len(ClassroomPool))
	for _, room := range ClassroomPool {
		roomsInPool[room] = struct{}{}
	}
}

// Grid returns the 20 slot templates in day-major order (the order the
// generator visits them).
func Grid() []SlotTemplate {
	out := make([]SlotTemplate, len(grid))
	copy(out, grid)
	return out
}

// TemplateByID resolves a template from its identifier.
func TemplateByID(id string) (SlotTemplate, bool) {
	tpl, ok := gridByID[id]
	return tpl, ok
}

// KnownClassroom reports whether a room belongs to the fixed pool.
func KnownClassroom(room string) bool {
	_, ok := roomsInPool[room]
	return ok
}

// DurationHours computes end-start in hours for "15:04" clock strings,
// rounded to 2 decimals. Malformed or inverted ranges yield 0.
func DurationHours(start, end string) float64 {
	startT, err := time.Parse("15:04", start)
	if err != nil {
		return 0
	}
	endT, err := time.Parse("15:04", end)
	if err != nil {
		return 0
	}
	hours := endT.Sub(startT).Hours()
	if hours <= 0 {
		return 0
	}
	return math.Round(hours*100) / 100
}
