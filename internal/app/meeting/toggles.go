package meeting

// Toggle operations are independent boolean flips. ToggleMute also
// mirrors the new state into the translation transport so muted audio is
// not transmitted for translation even though capture keeps running.

func (o *Orchestrator) ToggleMute() bool {
	o.mu.Lock()
	o.muted = !o.muted
	muted := o.muted
	o.mu.Unlock()

	o.Media.ToggleMute()
	if muted {
		o.Transport.Mute()
	} else {
		o.Transport.Unmute()
	}
	return muted
}

func (o *Orchestrator) ToggleVideo() bool {
	o.mu.Lock()
	o.videoOff = !o.videoOff
	off := o.videoOff
	o.mu.Unlock()

	o.Media.ToggleVideo()
	return off
}

func (o *Orchestrator) ToggleScreenShare() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sharing = !o.sharing
	return o.sharing
}

func (o *Orchestrator) ToggleChatVisible() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.chatVisible = !o.chatVisible
	return o.chatVisible
}

func (o *Orchestrator) ToggleCaptions() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.captions = !o.captions
	return o.captions
}
