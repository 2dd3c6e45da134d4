package output

import (
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/tanq16/rget/internal/utils"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusActive  Status = "active"
	StatusSuccess Status = "success"
	StatusSkipped Status = "warning"
	StatusError   Status = "error"
)

// Entry is the display state of one download.
type Entry struct {
	ID          int
	Label       string
	Status      Status
	Message     string
	StreamLines []string
	Complete    bool
	Downloaded  int64
	Total       int64
	Bytes       int64         // transferred this run, set on completion
	Elapsed     time.Duration // whole job, set on completion
	StartTime   time.Time
	LastUpdated time.Time
	Error       error
}

type ErrorReport struct {
	Label string
	Error error
	Time  time.Time
}

// Manager renders live per-download status lines. When interactive is false
// nothing is redrawn and only the final summary is written.
type Manager struct {
	out         io.Writer
	interactive bool
	entries     map[int]*Entry
	mutex       sync.RWMutex
	numLines    int
	errors      []ErrorReport
	doneCh      chan struct{}
	displayTick time.Duration
	count       int
	displayWg   sync.WaitGroup
	started     bool
	startTime   time.Time
	endTime     time.Time
}

func NewManager(out io.Writer, interactive bool) *Manager {
	return &Manager{
		out:         out,
		interactive: interactive,
		entries:     make(map[int]*Entry),
		doneCh:      make(chan struct{}),
		displayTick: 300 * time.Millisecond,
	}
}

func (m *Manager) Register(label string) int {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.count++
	now := time.Now()
	m.entries[m.count] = &Entry{
		ID:          m.count,
		Label:       label,
		Status:      StatusPending,
		Total:       -1,
		StartTime:   now,
		LastUpdated: now,
	}
	return m.count
}

func (m *Manager) update(id int, fn func(e *Entry)) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if e, ok := m.entries[id]; ok {
		fn(e)
		e.LastUpdated = time.Now()
	}
}

func (m *Manager) SetLabel(id int, label string) {
	m.update(id, func(e *Entry) { e.Label = label })
}

func (m *Manager) SetMessage(id int, message string) {
	m.update(id, func(e *Entry) { e.Message = message })
}

// Start resets the clock of an entry when its download actually begins.
func (m *Manager) Start(id int) {
	m.update(id, func(e *Entry) {
		e.Status = StatusActive
		e.StartTime = time.Now()
	})
}

func (m *Manager) UpdateProgress(id int, downloaded, total int64) {
	m.update(id, func(e *Entry) {
		e.Downloaded = downloaded
		e.Total = total
		elapsed := time.Since(e.StartTime).Seconds()
		var text string
		if total > 0 {
			text = fmt.Sprintf("%s / %s", utils.FormatBytes(uint64(max(downloaded, 0))), utils.FormatBytes(uint64(total)))
			e.StreamLines = []string{fmt.Sprintf("%s%s %s %s", PrintProgressBar(downloaded, total, 30), debugStyle.Render(text), StyleSymbols["bullet"], debugStyle.Render(utils.FormatSpeed(downloaded, elapsed)))}
			return
		}
		// unknown length: no bar, just the running total
		text = utils.FormatBytes(uint64(max(downloaded, 0)))
		e.StreamLines = []string{debugStyle.Render(fmt.Sprintf("%s %s %s", text, StyleSymbols["bullet"], utils.FormatSpeed(downloaded, elapsed)))}
	})
}

// Complete marks id done with the bytes it transferred and how long the job
// took; the message gets a size and average speed suffix.
func (m *Manager) Complete(id int, message string, bytes int64, elapsed time.Duration) {
	m.finish(id, StatusSuccess, message)
	m.update(id, func(e *Entry) {
		e.Bytes = bytes
		e.Elapsed = elapsed
		e.Message = fmt.Sprintf("%s (%s in %s, %s)", e.Message, utils.FormatBytes(uint64(max(bytes, 0))), elapsed.Round(time.Millisecond), utils.FormatSpeed(bytes, elapsed.Seconds()))
	})
}

func (m *Manager) Skip(id int, message string) {
	m.finish(id, StatusSkipped, message)
}

func (m *Manager) finish(id int, status Status, message string) {
	m.update(id, func(e *Entry) {
		e.StreamLines = nil
		e.Message = message
		if message == "" {
			e.Message = fmt.Sprintf("Completed %s", e.Label)
		}
		e.Complete = true
		e.Status = status
	})
}

func (m *Manager) ReportError(id int, err error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if e, ok := m.entries[id]; ok {
		e.StreamLines = nil
		e.Complete = true
		e.Status = StatusError
		e.Error = err
		e.Message = fmt.Sprintf("Failed %s", e.Label)
		e.LastUpdated = time.Now()
		m.errors = append(m.errors, ErrorReport{Label: e.Label, Error: err, Time: e.LastUpdated})
	}
}

// Entry returns a copy of the entry state for id.
func (m *Manager) Entry(id int) (Entry, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	e, ok := m.entries[id]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

func (m *Manager) statusIndicator(status Status) string {
	switch status {
	case StatusSuccess:
		return successStyle.Render(StyleSymbols["pass"])
	case StatusError:
		return errorStyle.Render(StyleSymbols["fail"])
	case StatusSkipped:
		return warningStyle.Render(StyleSymbols["warning"])
	case StatusPending:
		return pendingStyle.Render(StyleSymbols["pending"])
	default:
		return infoStyle.Render(StyleSymbols["bullet"])
	}
}

func styleMessage(status Status, message string) string {
	switch status {
	case StatusSuccess:
		return successStyle.Render(message)
	case StatusError:
		return errorStyle.Render(message)
	case StatusSkipped:
		return warningStyle.Render(message)
	default:
		return pendingStyle.Render(message)
	}
}

func (m *Manager) sortEntries() (active, pending, completed []*Entry) {
	all := make([]*Entry, 0, len(m.entries))
	for _, e := range m.entries {
		all = append(all, e)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	for _, e := range all {
		switch {
		case e.Complete:
			completed = append(completed, e)
		case e.Status == StatusPending:
			pending = append(pending, e)
		default:
			active = append(active, e)
		}
	}
	return active, pending, completed
}

func (m *Manager) render() []string {
	active, pending, completed := m.sortEntries()
	availableLines := getTerminalHeight() - 3
	// keep room for running downloads, trim the oldest finished ones first
	needed := len(pending)
	for _, e := range active {
		needed += 1 + len(e.StreamLines)
	}
	if room := availableLines - needed; len(completed) > max(room, 0) {
		completed = completed[len(completed)-max(room, 0):]
	}

	var lines []string
	for _, e := range completed {
		elapsed := e.LastUpdated.Sub(e.StartTime).Round(time.Second)
		lines = append(lines, fmt.Sprintf("  %s %s %s", m.statusIndicator(e.Status), debugStyle.Render(elapsed.String()), styleMessage(e.Status, e.Message)))
	}
	for _, e := range active {
		elapsed := time.Since(e.StartTime).Round(time.Second)
		lines = append(lines, fmt.Sprintf("  %s %s %s", m.statusIndicator(e.Status), debugStyle.Render(elapsed.String()), styleMessage(e.Status, e.Message)))
		for _, line := range e.StreamLines {
			lines = append(lines, "      "+streamStyle.Render(line))
		}
	}
	for _, e := range pending {
		lines = append(lines, fmt.Sprintf("  %s %s", m.statusIndicator(e.Status), pendingStyle.Render("Waiting... "+e.Label)))
	}
	if len(lines) > availableLines && availableLines > 0 {
		lines = lines[:availableLines]
	}
	return lines
}

func (m *Manager) updateDisplay() {
	m.mutex.RLock()
	lines := m.render()
	m.mutex.RUnlock()

	if m.numLines > 0 {
		fmt.Fprintf(m.out, "\033[%dA\033[J", m.numLines)
	}
	for _, line := range lines {
		fmt.Fprintln(m.out, line)
	}
	m.numLines = len(lines)
}

func (m *Manager) StartDisplay() {
	m.started = true
	m.startTime = time.Now()
	if !m.interactive {
		return
	}
	m.displayWg.Add(1)
	go func() {
		defer m.displayWg.Done()
		ticker := time.NewTicker(m.displayTick)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.updateDisplay()
			case <-m.doneCh:
				m.updateDisplay()
				return
			}
		}
	}()
}

// StopDisplay draws the final state and the summary.
func (m *Manager) StopDisplay() {
	if !m.started {
		return
	}
	m.started = false
	m.endTime = time.Now()
	close(m.doneCh)
	m.displayWg.Wait()
	if !m.interactive {
		m.mutex.RLock()
		_, _, completed := m.sortEntries()
		for _, e := range completed {
			fmt.Fprintf(m.out, "  %s %s\n", m.statusIndicator(e.Status), styleMessage(e.Status, e.Message))
		}
		m.mutex.RUnlock()
	}
	m.ShowSummary()
}

func (m *Manager) displayErrors() {
	if len(m.errors) == 0 {
		return
	}
	fmt.Fprintln(m.out)
	fmt.Fprintln(m.out, "  "+errorStyle.Bold(true).Render("Errors:"))
	for i, report := range m.errors {
		fmt.Fprintf(m.out, "    %s %s %s\n",
			errorStyle.Render(fmt.Sprintf("%d.", i+1)),
			debugStyle.Render(fmt.Sprintf("[%s]", report.Time.Format("15:04:05"))),
			errorStyle.Render(report.Label))
		for _, line := range wrapText(fmt.Sprintf("Error: %v", report.Error), 6) {
			fmt.Fprintf(m.out, "      %s\n", errorStyle.Render(line))
		}
	}
}

// wallTime is the run duration between StartDisplay and StopDisplay.
func (m *Manager) wallTime() time.Duration {
	if m.startTime.IsZero() {
		return 0
	}
	if m.endTime.IsZero() {
		return time.Since(m.startTime)
	}
	return m.endTime.Sub(m.startTime)
}

func (m *Manager) ShowSummary() {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	var success, skipped, failures int
	var bytes int64
	for _, e := range m.entries {
		switch e.Status {
		case StatusSuccess:
			success++
			bytes += e.Bytes
		case StatusSkipped:
			skipped++
		case StatusError:
			failures++
		}
	}
	total := len(m.entries)
	elapsed := m.wallTime()
	fmt.Fprintln(m.out)
	fmt.Fprintln(m.out, "  "+success2Style.Render(fmt.Sprintf("Completed %d of %d (%s in %s, %s average)", success, total, utils.FormatBytes(uint64(bytes)), elapsed.Round(time.Millisecond), utils.FormatSpeed(bytes, elapsed.Seconds()))))
	if skipped > 0 {
		fmt.Fprintln(m.out, "  "+warningStyle.Render(fmt.Sprintf("Skipped %d of %d", skipped, total)))
	}
	if failures > 0 {
		fmt.Fprintln(m.out, "  "+errorStyle.Render(fmt.Sprintf("Failed %d of %d", failures, total)))
	}
	m.displayErrors()
	fmt.Fprintln(m.out)
}
