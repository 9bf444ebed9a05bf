package engine

import "github.com/ftahirops/xwake/model"

// Transition describes what a single Update did.
type Transition struct {
	From, To model.AlertLevel
	Blink    bool // a sub-threshold closure just ended
	Raised   bool // the Alarm state was entered on this tick
}

// AlertState implements the closure alert state machine.
//
//	Idle   -> Rising  counter > 0
//	Rising -> Idle    counter == 0, counts one blink
//	*      -> Alarm   counter >= required, counts one alert on the edge
//	Alarm  -> Idle    counter == 0, no blink
//
// The machine is never reset; a new session builds a fresh one.
type AlertState struct {
	level    model.AlertLevel
	required int // consecutive low ticks needed for Alarm
	blinks   uint64
	alerts   uint64
}

// NewAlertState creates an AlertState that alarms after consecutiveFrames
// low ticks.
func NewAlertState(consecutiveFrames int) *AlertState {
	if consecutiveFrames < 1 {
		consecutiveFrames = 1
	}
	return &AlertState{required: consecutiveFrames}
}

// Update processes the debounce counter for one tick.
func (as *AlertState) Update(counter int) Transition {
	tr := Transition{From: as.level}

	switch {
	case counter == 0:
		if as.level == model.LevelRising {
			as.blinks++
			tr.Blink = true
		}
		as.level = model.LevelIdle
	case counter >= as.required:
		if as.level != model.LevelAlarm {
			as.alerts++
			tr.Raised = true
		}
		as.level = model.LevelAlarm
	default:
		if as.level == model.LevelIdle {
			as.level = model.LevelRising
		}
	}

	tr.To = as.level
	return tr
}

// Level returns the current state.
func (as *AlertState) Level() model.AlertLevel { return as.level }

// AlarmActive reports whether the machine is in the Alarm state.
func (as *AlertState) AlarmActive() bool { return as.level == model.LevelAlarm }

// Blinks returns the number of completed sub-threshold closures.
func (as *AlertState) Blinks() uint64 { return as.blinks }

// Alerts returns the number of Alarm entries.
func (as *AlertState) Alerts() uint64 { return as.alerts }
