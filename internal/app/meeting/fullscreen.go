package meeting

import "time"

// Fullscreen auto-hide: while in fullscreen an idle timer hides the
// control bar. Pointer activity resets it, except over the chat panel or
// within the bottom fifth of the viewport, both of which force controls
// visible and suspend the timer.

func (o *Orchestrator) ToggleFullscreen() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.fullscreen = !o.fullscreen
	if o.fullscreen {
		o.controlsShown = true
		o.timerSuspended = false
		o.armHideTimerLocked()
	} else {
		o.stopHideTimerLocked()
		o.timerSuspended = false
		o.controlsShown = true
	}
	return o.fullscreen
}

// SetViewport records the viewport size used for the bottom-zone check.
func (o *Orchestrator) SetViewport(width, height int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	_ = width
	o.viewportH = height
}

// PointerActivity handles a pointer move at the given y offset. overChat
// marks movement over the chat panel.
func (o *Orchestrator) PointerActivity(y int, overChat bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.fullscreen {
		return
	}
	o.controlsShown = true

	bottomZone := o.viewportH > 0 && y >= o.viewportH*4/5
	if overChat || bottomZone {
		o.timerSuspended = true
		o.stopHideTimerLocked()
		return
	}
	o.timerSuspended = false
	o.armHideTimerLocked()
}

func (o *Orchestrator) ControlsVisible() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.controlsShown
}

func (o *Orchestrator) armHideTimerLocked() {
	o.stopHideTimerLocked()
	o.hideTimer = time.AfterFunc(o.idleDelay, func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		if o.fullscreen && !o.timerSuspended {
			o.controlsShown = false
		}
	})
}

func (o *Orchestrator) stopHideTimerLocked() {
	if o.hideTimer != nil {
		o.hideTimer.Stop()
		o.hideTimer = nil
	}
}
