package ui

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// SpinnerState is where a spinner is in its run.
type SpinnerState int

const (
	SpinnerPending SpinnerState = iota
	SpinnerInProgress
	SpinnerSuccess
	SpinnerFailed
)

var spinnerFrames = []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"}

const spinnerInterval = 80 * time.Millisecond

// Spinner shows a label with an animated mark while a slow step runs
// (an SSH handshake, an upload) and a final mark with the elapsed time.
//
// A static spinner prints only the final line, for output that isn't a
// terminal.
type Spinner struct {
	mu        sync.Mutex
	label     string
	state     SpinnerState
	frame     int
	startTime time.Time
	stopChan  chan struct{}
	doneChan  chan struct{}
	output    func(string)
	static    bool
	running   bool
	lastWidth int
}

// NewSpinner creates an animated spinner writing with fmt.Print.
func NewSpinner(label string) *Spinner {
	return &Spinner{
		label:  label,
		output: func(s string) { fmt.Print(s) },
	}
}

// SetOutput redirects what the spinner writes.
func (s *Spinner) SetOutput(fn func(string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.output = fn
}

// SetStatic turns the animation off.
func (s *Spinner) SetStatic(static bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.static = static
}

// Start shows the label and starts animating. A second Start is a no-op.
func (s *Spinner) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.state = SpinnerInProgress
	s.startTime = time.Now()
	s.stopChan = make(chan struct{})
	s.doneChan = make(chan struct{})
	static := s.static
	s.mu.Unlock()

	if static {
		close(s.doneChan)
		return
	}
	s.render()
	go s.animate()
}

// Stop halts the animation and leaves the state alone.
func (s *Spinner) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopChan)
	s.mu.Unlock()

	<-s.doneChan
}

// Success stops the spinner and prints the success line.
func (s *Spinner) Success() {
	s.finish(SpinnerSuccess)
}

// Fail stops the spinner and prints the failure line.
func (s *Spinner) Fail() {
	s.finish(SpinnerFailed)
}

func (s *Spinner) finish(state SpinnerState) {
	s.Stop()
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
	s.renderFinal()
}

// State returns the current state.
func (s *Spinner) State() SpinnerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Elapsed returns the time since Start, or 0 before it.
func (s *Spinner) Elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.startTime.IsZero() {
		return 0
	}
	return time.Since(s.startTime)
}

// Label returns the label.
func (s *Spinner) Label() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.label
}

// SetLabel changes the label; the next frame shows it.
func (s *Spinner) SetLabel(label string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.label = label
}

func (s *Spinner) animate() {
	ticker := time.NewTicker(spinnerInterval)
	defer ticker.Stop()
	defer close(s.doneChan)

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.mu.Lock()
			s.frame = (s.frame + 1) % len(spinnerFrames)
			s.mu.Unlock()
			s.render()
		}
	}
}

// clearLine blanks what the last frame wrote. Callers hold s.mu.
func (s *Spinner) clearLine() {
	if s.lastWidth > 0 {
		s.output("\r" + strings.Repeat(" ", s.lastWidth) + "\r")
		s.lastWidth = 0
	}
}

func (s *Spinner) render() {
	s.mu.Lock()
	defer s.mu.Unlock()

	color := GradientColors[(s.frame/2)%len(GradientColors)]
	mark := lipgloss.NewStyle().Foreground(color).Render(spinnerFrames[s.frame])
	line := fmt.Sprintf("%s %s...", mark, s.label)

	s.clearLine()
	s.output("\r" + line)
	s.lastWidth = lipgloss.Width(line)
}

func (s *Spinner) renderFinal() {
	s.mu.Lock()
	defer s.mu.Unlock()

	mark := lipgloss.NewStyle().Foreground(ColorMuted).Render(SymbolPending)
	switch s.state {
	case SpinnerSuccess:
		mark = SuccessStyle().Render(SymbolSuccess)
	case SpinnerFailed:
		mark = ErrorStyle().Render(SymbolFail)
	}

	timing := ""
	if !s.startTime.IsZero() {
		timing = " " + MutedStyle().Render(formatDuration(time.Since(s.startTime)))
	}

	s.clearLine()
	s.output(fmt.Sprintf("%s %s%s\n", mark, s.label, timing))
}

// formatDuration formats a duration for display (e.g., "0.3s", "1.2s").
func formatDuration(d time.Duration) string {
	secs := d.Seconds()
	if secs < 0.1 {
		return fmt.Sprintf("%.2fs", secs)
	}
	return fmt.Sprintf("%.1fs", secs)
}
