package desktop

import "fyne.io/fyne/v2"

// Scheduler runs fn on the UI goroutine. Work arriving from the hotkey
// listener or a finished capture is handed over with exactly one Schedule
// call.
type Scheduler interface {
	Schedule(fn func())
}

// SchedulerFunc adapts a function to the Scheduler interface.
type SchedulerFunc func(fn func())

// Schedule calls f(fn).
func (f SchedulerFunc) Schedule(fn func()) {
	f(fn)
}

// UIThread schedules onto the fyne event loop.
var UIThread Scheduler = SchedulerFunc(fyne.Do)
