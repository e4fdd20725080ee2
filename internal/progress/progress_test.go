package progress

import (
	"bytes"
	"io"
	"testing"
	"time"
)

func TestNewTracker(t *testing.T) {
	tracker := NewTracker(1000, "Testing")
	if tracker == nil {
		t.Fatal("NewTracker returned nil")
	}
}

func TestTrackerAdd(t *testing.T) {
	tracker := NewTracker(1000, "Test")

	tracker.Add(100)
	if tracker.Percentage() != 10 {
		t.Errorf("Percentage() = %v, want 10", tracker.Percentage())
	}

	tracker.Add(400)
	if tracker.Percentage() != 50 {
		t.Errorf("Percentage() = %v, want 50", tracker.Percentage())
	}

	tracker.Add(500)
	if tracker.Percentage() != 100 {
		t.Errorf("Percentage() = %v, want 100", tracker.Percentage())
	}
}

func TestTrackerSet(t *testing.T) {
	tracker := NewTracker(1000, "Test")

	tracker.Set(500)
	if tracker.Percentage() != 50 {
		t.Errorf("Percentage() = %v, want 50", tracker.Percentage())
	}

	tracker.Set(250)
	if tracker.Percentage() != 25 {
		t.Errorf("Percentage() = %v, want 25", tracker.Percentage())
	}
}

func TestTrackerPercentage(t *testing.T) {
	tests := []struct {
		name    string
		total   int64
		current int64
		wantPct float64
	}{
		{"zero total", 0, 0, 100},
		{"empty", 1000, 0, 0},
		{"quarter", 1000, 250, 25},
		{"half", 1000, 500, 50},
		{"full", 1000, 1000, 100},
		{"overflow", 1000, 1500, 150},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker := NewTracker(tt.total, "Test")
			tracker.Set(tt.current)

			got := tracker.Percentage()
			if got != tt.wantPct {
				t.Errorf("Percentage() = %v, want %v", got, tt.wantPct)
			}
		})
	}
}

func TestTrackerSpeed(t *testing.T) {
	tracker := NewTracker(10000, "Test")

	tracker.Add(1000)
	time.Sleep(100 * time.Millisecond)

	speed := tracker.Speed()
	if speed <= 0 {
		t.Error("Speed should be positive")
	}
}

func TestTrackerSpeedNoTime(t *testing.T) {
	tracker := NewTracker(1000, "Test")
	tracker.Set(500)

	speed := tracker.Speed()
	if speed < 0 {
		t.Error("Speed should not be negative")
	}
}

func TestTrackerETA(t *testing.T) {
	tracker := NewTracker(10000, "Test")

	tracker.Add(1000)
	time.Sleep(200 * time.Millisecond)

	eta := tracker.ETA()
	if eta < 0 {
		t.Error("ETA should not be negative for an incomplete read")
	}
}

func TestTrackerETAZeroSpeed(t *testing.T) {
	tracker := NewTracker(1000, "Test")

	eta := tracker.ETA()
	if eta != 0 {
		t.Errorf("ETA with zero speed = %v, want 0", eta)
	}
}

func TestTrackerFinish(t *testing.T) {
	tracker := NewTracker(1000, "Test")
	tracker.Add(1000)

	// Should not panic.
	tracker.Finish()
}

func TestReader(t *testing.T) {
	data := []byte("hello world")
	tracker := NewTracker(int64(len(data)), "Test")
	reader := NewReader(bytes.NewReader(data), tracker)

	buf := make([]byte, len(data))
	n, err := io.ReadFull(reader, buf)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if n != len(data) {
		t.Errorf("Read %d bytes, want %d", n, len(data))
	}
	if !bytes.Equal(buf, data) {
		t.Error("data mismatch")
	}
	if tracker.Percentage() != 100 {
		t.Errorf("Percentage = %v, want 100", tracker.Percentage())
	}
}

func TestReaderChunked(t *testing.T) {
	data := bytes.Repeat([]byte("a"), 1000)
	tracker := NewTracker(int64(len(data)), "Test")
	reader := NewReader(bytes.NewReader(data), tracker)

	buf := make([]byte, 100)
	total := 0
	for {
		n, err := reader.Read(buf)
		total += n
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Read failed: %v", err)
		}
	}

	if total != len(data) {
		t.Errorf("total read %d bytes, want %d", total, len(data))
	}
	if tracker.Percentage() != 100 {
		t.Errorf("Percentage = %v, want 100", tracker.Percentage())
	}
}

func TestFormatSpeed(t *testing.T) {
	tests := []struct {
		bytesPerSec float64
		expected    string
	}{
		{0, "0 B/s"},
		{1024, "1.0 KB/s"},
		{1048576, "1.0 MB/s"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			result := FormatSpeed(tt.bytesPerSec)
			if result != tt.expected {
				t.Errorf("FormatSpeed(%.0f) = %q, want %q", tt.bytesPerSec, result, tt.expected)
			}
		})
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		duration time.Duration
		expected string
	}{
		{30 * time.Second, "30s"},
		{90 * time.Second, "1m30s"},
		{3600 * time.Second, "1h0m"},
		{3660 * time.Second, "1h1m"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			result := FormatDuration(tt.duration)
			if result != tt.expected {
				t.Errorf("FormatDuration(%v) = %q, want %q", tt.duration, result, tt.expected)
			}
		})
	}
}

func TestTrackerConcurrency(t *testing.T) {
	tracker := NewTracker(100000, "Test")

	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func() {
			for j := 0; j < 1000; j++ {
				tracker.Add(10)
			}
			done <- true
		}()
	}
	for i := 0; i < 10; i++ {
		<-done
	}

	if tracker.Percentage() != 100 {
		t.Errorf("Percentage = %v, want 100", tracker.Percentage())
	}
}
