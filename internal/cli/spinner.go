package cli

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/matzehuels/isomill/pkg/progress"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Spinner is a single-line activity indicator that stops when its context
// is cancelled. It implements progress.Reporter by appending the current
// stage and percentage to its message.
type Spinner struct {
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	stopped chan struct{}
	once    sync.Once

	mu      sync.Mutex
	started bool
	message string
	detail  string
	width   int // widest line drawn, for clearing
}

func newSpinner(message string) *Spinner {
	return newSpinnerWithContext(context.Background(), message)
}

func newSpinnerWithContext(ctx context.Context, message string) *Spinner {
	spinnerCtx, cancel := context.WithCancel(ctx)
	return &Spinner{
		message: message,
		ctx:     spinnerCtx,
		cancel:  cancel,
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// Report implements progress.Reporter. It never blocks on drawing.
func (s *Spinner) Report(stage progress.Stage, done, total int) {
	pct := 100
	if total > 0 {
		pct = done * 100 / total
	}
	s.mu.Lock()
	s.detail = fmt.Sprintf("%s %d%%", stage, pct)
	s.mu.Unlock()
}

// line returns the text drawn next to the spinner frame.
func (s *Spinner) line() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.detail == "" {
		return s.message
	}
	return s.message + " " + s.detail
}

// Start begins the spinner animation.
func (s *Spinner) Start() {
	s.mu.Lock()
	s.started = true
	s.mu.Unlock()
	go func() {
		defer close(s.stopped)
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()

		for i := 0; ; i++ {
			select {
			case <-s.ctx.Done():
				s.clearLine()
				return
			case <-s.done:
				return
			case <-ticker.C:
				text := s.line()
				s.mu.Lock()
				if n := len(text) + 4; n > s.width {
					s.width = n
				}
				fmt.Fprintf(uiOut, "\r%s %s", styleIconSpinner.Render(spinnerFrames[i%len(spinnerFrames)]), StyleDim.Render(text))
				s.mu.Unlock()
			}
		}
	}()
}

// Stop stops the spinner and clears the line. It is safe to call more than
// once.
func (s *Spinner) Stop() {
	s.once.Do(func() {
		s.cancel()
		close(s.done)
	})
	s.mu.Lock()
	started := s.started
	s.mu.Unlock()
	if started {
		<-s.stopped
	}
	s.clearLine()
}

func (s *Spinner) clearLine() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.width == 0 {
		return
	}
	fmt.Fprintf(uiOut, "\r%s\r", strings.Repeat(" ", s.width))
}

// StopWithSuccess stops the spinner and prints a success line.
func (s *Spinner) StopWithSuccess(message string) {
	s.Stop()
	printSuccess("%s", message)
}

// StopWithError stops the spinner and prints an error line.
func (s *Spinner) StopWithError(message string) {
	s.Stop()
	printError("%s", message)
}

// Cancelled reports whether the spinner's context was cancelled.
func (s *Spinner) Cancelled() bool {
	return s.ctx.Err() != nil
}
