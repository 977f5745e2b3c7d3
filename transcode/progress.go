package transcode

import (
	"regexp"
	"strconv"
	"sync"
	"time"
)

// JobTracker holds the progress percentage of in-flight archival jobs,
// keyed by recording ID. Entries are ephemeral: they exist only while a
// compression runs and are removed on every exit path.
type JobTracker struct {
	mu   sync.RWMutex
	jobs map[string]int
}

// NewJobTracker creates an empty job tracker
func NewJobTracker() *JobTracker {
	return &JobTracker{jobs: make(map[string]int)}
}

// Set publishes the progress of a job. Progress never moves backwards:
// a lower value than the current one is ignored.
func (t *JobTracker) Set(recordingID string, percent int) {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if current, ok := t.jobs[recordingID]; ok && current > percent {
		return
	}
	t.jobs[recordingID] = percent
}

// Get returns the progress of a job and whether the job is in flight
func (t *JobTracker) Get(recordingID string) (int, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	percent, ok := t.jobs[recordingID]
	return percent, ok
}

// Remove deletes the job entry for a recording
func (t *JobTracker) Remove(recordingID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.jobs, recordingID)
}

// Snapshot returns a copy of all in-flight job progress values
func (t *JobTracker) Snapshot() map[string]int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	snapshot := make(map[string]int, len(t.jobs))
	for id, percent := range t.jobs {
		snapshot[id] = percent
	}
	return snapshot
}

// ffmpeg prints the input duration once near the start of its diagnostic
// output and the current position repeatedly while encoding:
//
//	Duration: 00:01:23.45, start: 0.000000, bitrate: 1052 kb/s
//	frame=  512 fps=201 q=28.0 size=1024KiB time=00:00:17.06 bitrate= 491.5kbits/s
var (
	durationPattern = regexp.MustCompile(`Duration:\s*(\d+):(\d{2}):(\d{2})\.(\d+)`)
	positionPattern = regexp.MustCompile(`time=(\d+):(\d{2}):(\d{2})\.(\d+)`)
)

// progressParser incrementally derives a 0-99 percentage from ffmpeg
// diagnostic lines. 100 is reserved for observed process completion and
// is never produced here.
type progressParser struct {
	total time.Duration
}

// feed consumes one diagnostic line and reports a progress percentage
// when the line advances it
func (p *progressParser) feed(line string) (int, bool) {
	if p.total == 0 {
		if m := durationPattern.FindStringSubmatch(line); m != nil {
			p.total = parseClock(m)
		}
	}

	m := positionPattern.FindStringSubmatch(line)
	if m == nil || p.total == 0 {
		return 0, false
	}

	position := parseClock(m)
	percent := int(float64(position)/float64(p.total)*100 + 0.5)
	if percent > 99 {
		percent = 99
	}
	if percent < 0 {
		percent = 0
	}
	return percent, true
}

// parseClock converts a matched HH:MM:SS.frac clock into a duration
func parseClock(m []string) time.Duration {
	hours, _ := strconv.Atoi(m[1])
	minutes, _ := strconv.Atoi(m[2])
	seconds, _ := strconv.Atoi(m[3])

	frac, _ := strconv.Atoi(m[4])
	scale := 1.0
	for range m[4] {
		scale *= 10
	}

	total := time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds)*time.Second
	total += time.Duration(float64(frac) / scale * float64(time.Second))
	return total
}
