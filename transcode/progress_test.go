package transcode

import (
	"testing"
	"time"
)

func TestProgressParser(t *testing.T) {
	parser := &progressParser{}

	// Position lines before the duration is known report nothing
	if _, ok := parser.feed("frame=   10 fps=0.0 q=28.0 size=0KiB time=00:00:00.40 bitrate=N/A"); ok {
		t.Error("Expected no progress before total duration is known")
	}

	if _, ok := parser.feed("  Duration: 00:01:40.00, start: 0.000000, bitrate: 1052 kb/s"); ok {
		t.Error("Duration line alone should not report progress")
	}
	if parser.total != 100*time.Second {
		t.Errorf("Expected total 100s, got %v", parser.total)
	}

	percent, ok := parser.feed("frame=  750 fps=201 q=28.0 size=512KiB time=00:00:50.00 bitrate= 491.5kbits/s")
	if !ok {
		t.Fatal("Expected progress from position line")
	}
	if percent != 50 {
		t.Errorf("Expected 50%%, got %d%%", percent)
	}

	// Position at or past the total clamps to 99, never 100
	percent, ok = parser.feed("frame= 1500 fps=201 q=28.0 size=1MiB time=00:01:40.00 bitrate= 491.5kbits/s")
	if !ok {
		t.Fatal("Expected progress from position line")
	}
	if percent != 99 {
		t.Errorf("Expected clamp at 99%%, got %d%%", percent)
	}
}

func TestParseClockFractions(t *testing.T) {
	parser := &progressParser{}
	parser.feed("  Duration: 01:02:03.50, start: 0.000000, bitrate: 900 kb/s")

	want := time.Hour + 2*time.Minute + 3*time.Second + 500*time.Millisecond
	if parser.total != want {
		t.Errorf("Expected %v, got %v", want, parser.total)
	}
}

func TestJobTrackerMonotonic(t *testing.T) {
	tracker := NewJobTracker()

	tracker.Set("rec-1", 40)
	tracker.Set("rec-1", 25) // must be ignored
	if percent, _ := tracker.Get("rec-1"); percent != 40 {
		t.Errorf("Expected progress to stay at 40, got %d", percent)
	}

	tracker.Set("rec-1", 99)
	if percent, _ := tracker.Get("rec-1"); percent != 99 {
		t.Errorf("Expected 99, got %d", percent)
	}

	tracker.Set("rec-1", 150)
	if percent, _ := tracker.Get("rec-1"); percent != 100 {
		t.Errorf("Expected clamp to 100, got %d", percent)
	}
}

func TestJobTrackerRemove(t *testing.T) {
	tracker := NewJobTracker()

	tracker.Set("rec-1", 10)
	tracker.Set("rec-2", 20)
	tracker.Remove("rec-1")

	if _, ok := tracker.Get("rec-1"); ok {
		t.Error("Expected rec-1 to be removed")
	}
	if percent, ok := tracker.Get("rec-2"); !ok || percent != 20 {
		t.Errorf("Expected rec-2 untouched at 20, got %d (%v)", percent, ok)
	}

	snapshot := tracker.Snapshot()
	if len(snapshot) != 1 || snapshot["rec-2"] != 20 {
		t.Errorf("Unexpected snapshot: %v", snapshot)
	}
}

func TestScanLinesWithCR(t *testing.T) {
	// ffmpeg terminates progress lines with \r only
	input := []byte("line one\rline two\nline three")

	var lines []string
	data := input
	for {
		advance, token, _ := scanLinesWithCR(data, true)
		if advance == 0 && token == nil {
			break
		}
		lines = append(lines, string(token))
		data = data[advance:]
		if len(data) == 0 {
			break
		}
	}

	if len(lines) != 3 || lines[0] != "line one" || lines[1] != "line two" || lines[2] != "line three" {
		t.Errorf("Unexpected lines: %v", lines)
	}
}
