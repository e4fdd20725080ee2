// Package progress displays CLI progress bars for reading a byte
// stream of known size, such as an image attachment. The revery CLI
// does not use it; its /image command reads the file without a
// progress bar.
package progress

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
)

// Tracker tracks how many of totalBytes have been read so far.
type Tracker struct {
	bar        *progressbar.ProgressBar
	totalBytes int64
	sentBytes  int64
	startTime  time.Time
	mu         sync.Mutex
}

// NewTracker creates a progress bar for an operation over totalBytes.
func NewTracker(totalBytes int64, description string) *Tracker {
	bar := progressbar.NewOptions64(
		totalBytes,
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			fmt.Println()
		}),
	)

	return &Tracker{
		bar:        bar,
		totalBytes: totalBytes,
		startTime:  time.Now(),
	}
}

// Add advances the bar by n bytes.
func (p *Tracker) Add(n int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.sentBytes += n
	p.bar.Add64(n)
}

// Set moves the bar to an absolute byte offset.
func (p *Tracker) Set(n int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.sentBytes = n
	p.bar.Set64(n)
}

// Finish completes the progress bar.
func (p *Tracker) Finish() {
	p.bar.Finish()
}

// Speed returns the current throughput in bytes/sec.
func (p *Tracker) Speed() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	elapsed := time.Since(p.startTime).Seconds()
	if elapsed == 0 {
		return 0
	}
	return float64(p.sentBytes) / elapsed
}

// ETA estimates the time remaining at the current speed.
func (p *Tracker) ETA() time.Duration {
	speed := p.Speed()
	if speed == 0 {
		return 0
	}

	p.mu.Lock()
	remaining := p.totalBytes - p.sentBytes
	p.mu.Unlock()

	return time.Duration(float64(remaining)/speed) * time.Second
}

// Percentage returns how much of totalBytes has been read.
func (p *Tracker) Percentage() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.totalBytes == 0 {
		return 100
	}
	return float64(p.sentBytes) / float64(p.totalBytes) * 100
}

// Reader wraps an io.Reader, advancing a Tracker as bytes are read.
type Reader struct {
	reader  io.Reader
	tracker *Tracker
}

// NewReader wraps r with progress tracking against tracker.
func NewReader(r io.Reader, tracker *Tracker) *Reader {
	return &Reader{reader: r, tracker: tracker}
}

func (p *Reader) Read(buf []byte) (n int, err error) {
	n, err = p.reader.Read(buf)
	if n > 0 {
		p.tracker.Add(int64(n))
	}
	return n, err
}

// formatBytes formats bytes as a human-readable string.
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// FormatSpeed formats a throughput value as "<size>/s".
func FormatSpeed(bytesPerSec float64) string {
	return formatBytes(int64(bytesPerSec)) + "/s"
}

// FormatDuration formats a duration the way a status line wants it:
// "30s", "1m30s", "1h0m".
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
