package stream

import "sync"

// recordingView captures every callback for assertions.
type recordingView struct {
	mu          sync.Mutex
	nearBottom  bool
	appended    []Entry
	autoscrolls []bool
	cleared     int
	banners     []bool
	labels      []string
}

func newRecordingView() *recordingView {
	return &recordingView{nearBottom: true}
}

func (v *recordingView) EntryAppended(e Entry, autoscroll bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.appended = append(v.appended, e)
	v.autoscrolls = append(v.autoscrolls, autoscroll)
}

func (v *recordingView) EntriesCleared() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.cleared++
}

func (v *recordingView) SetBanner(visible bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.banners = append(v.banners, visible)
}

func (v *recordingView) SetPauseControl(label string, _ bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.labels = append(v.labels, label)
}

func (v *recordingView) NearBottom() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.nearBottom
}

func (v *recordingView) setNearBottom(b bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.nearBottom = b
}

func (v *recordingView) bannerHistory() []bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]bool(nil), v.banners...)
}

func (v *recordingView) appendCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.appended)
}
