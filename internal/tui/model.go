// Package tui is the terminal control surface: the waveform timeline with
// its region selector and playhead, the transport, the form and the
// generation output panel.
package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/schollz/gowrangler"
	"github.com/schollz/gowrangler/internal/player"
	"github.com/schollz/gowrangler/internal/session"
	"github.com/schollz/gowrangler/internal/task"
	"github.com/schollz/gowrangler/internal/transport"
)

const hintBadTime = "Enter a time in seconds."

var errBadTime = errors.New("tui: not a time in seconds")

// Lines drawn around the waveform rows.
const (
	headerLines = 3
	outputLines = 6
	chromeLines = headerLines + 1 + 2 + 1 + 1 + outputLines + 1 + 1
)

// AudioOpener fetches a clip for playback.
type AudioOpener interface {
	Audio(ctx context.Context, path string) (io.ReadCloser, error)
}

// Config configures the terminal surface.
type Config struct {
	Audio          AudioOpener
	ResizeDebounce time.Duration
	Logger         *slog.Logger
}

type (
	changedMsg struct{}
	resizeMsg  struct{ seq int }
	opDoneMsg  struct {
		what string
		err  error
	}
	playerMsg struct {
		path     string
		p        *player.Player
		autoplay bool
		err      error
	}
)

type field int

const (
	editNone field = iota
	editLyrics
	editStyle
	editTags
	editDirection
	editBPM
	editUpload
	editRegionStart
	editRegionEnd
)

func (f field) String() string {
	switch f {
	case editLyrics:
		return "Lyrics (ctrl+s to save)"
	case editStyle:
		return "Style"
	case editTags:
		return "Tags (comma separated)"
	case editDirection:
		return "Rework direction"
	case editBPM:
		return "BPM (empty for auto)"
	case editUpload:
		return "Audio file path"
	case editRegionStart:
		return "Region start (seconds)"
	case editRegionEnd:
		return "Region end (seconds)"
	}
	return ""
}

// Model is the bubbletea model of the control surface.
type Model struct {
	ctx    context.Context
	sess   *session.Session
	audio  AudioOpener
	logger *slog.Logger
	notes  *notifier

	debounce  time.Duration
	width     int
	height    int
	sized     bool
	resizeSeq int

	keys    keyMap
	help    help.Model
	styles  styles
	spinner spinner.Model
	input   textinput.Model
	lyrics  textarea.Model
	editing field
	// fieldHint is the validation hint of a region bound being typed.
	fieldHint string

	registry   *transport.Registry
	transport  *transport.Controller
	player     *player.Player
	playerPath string

	dragging bool
	selected int
	status   string
}

// New returns the model for sess.
func New(ctx context.Context, sess *session.Session, cfg Config) Model {
	if cfg.ResizeDebounce <= 0 {
		cfg.ResizeDebounce = 200 * time.Millisecond
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	st := defaultStyles()
	sp := spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(st.title))

	ti := textinput.New()
	ti.Prompt = "> "
	ti.CharLimit = 512

	ta := textarea.New()
	ta.Placeholder = "[Verse]\n..."
	ta.ShowLineNumbers = false
	ta.SetHeight(outputLines - 1)

	return Model{
		ctx:      ctx,
		sess:     sess,
		audio:    cfg.Audio,
		logger:   cfg.Logger,
		notes:    newNotifier(),
		debounce: cfg.ResizeDebounce,
		keys:     defaultKeys(),
		help:     help.New(),
		styles:   st,
		spinner:  sp,
		input:    ti,
		lyrics:   ta,
		registry: transport.NewRegistry(),
	}
}

// Init starts the spinner.
func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// waveRows is how many character rows the waveform gets, always even so
// the midline falls between rows.
func (m Model) waveRows() int {
	rows := max(2, m.height-chromeLines)
	return rows - rows%2
}

// Update handles one message.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.input.Width = max(10, msg.Width-4)
		m.lyrics.SetWidth(max(10, msg.Width-2))
		m.resizeSeq++
		if !m.sized {
			m.sized = true
			m.sess.Timeline().Resize(termSurface(m.width, m.waveRows()))
			return m, nil
		}
		seq := m.resizeSeq
		return m, tea.Tick(m.debounce, func(time.Time) tea.Msg { return resizeMsg{seq: seq} })

	case resizeMsg:
		if msg.seq == m.resizeSeq {
			m.sess.Timeline().Resize(termSurface(m.width, m.waveRows()))
		}
		return m, nil

	case changedMsg:
		cmd := m.syncPlayer()
		return m, cmd

	case playerMsg:
		return m.installPlayer(msg)

	case opDoneMsg:
		if msg.err != nil && !errors.Is(msg.err, task.ErrBusy) {
			m.logger.Debug("operation failed", "op", msg.what, "error", msg.err)
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.MouseMsg:
		return m.mouse(msg), nil

	case tea.KeyMsg:
		if m.editing != editNone {
			return m.updateEditor(msg)
		}
		return m.key(msg)
	}
	return m, nil
}

func (m Model) run(what string, fn func(ctx context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return opDoneMsg{what: what, err: fn(ctx)}
	}
}

func (m Model) key(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	s := m.sess
	snap := s.Tasks().Snapshot()
	rework := s.Mode() == session.ModeRework
	m.status = ""

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.closePlayer()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Mode):
		next := session.ModeRework
		if rework {
			next = session.ModeCreate
		}
		return m, m.run("switch mode", func(ctx context.Context) error {
			if !s.SwitchMode(ctx, next) {
				return task.ErrBusy
			}
			return nil
		})

	case key.Matches(msg, m.keys.Approach):
		if s.Approach() == session.ApproachCover {
			s.SwitchApproach(session.ApproachRepaint)
		} else {
			s.SwitchApproach(session.ApproachCover)
		}

	case key.Matches(msg, m.keys.Generate):
		return m, m.run("generate", s.Generate)

	case key.Matches(msg, m.keys.Cancel):
		s.Tasks().Cancel()

	case key.Matches(msg, m.keys.Play):
		m.togglePlay()

	case key.Matches(msg, m.keys.Rewind):
		if m.transport != nil {
			m.transport.Rewind()
		}

	case key.Matches(msg, m.keys.Upload):
		return m.startEdit(editUpload, "")

	case key.Matches(msg, m.keys.Remove):
		if rework && !snap.Busy() {
			s.RemoveAudio()
		}

	case key.Matches(msg, m.keys.Lyrics):
		return m.startEdit(editLyrics, s.Form().Lyrics)

	case key.Matches(msg, m.keys.Style):
		return m.startEdit(editStyle, s.Form().CustomStyle)

	case key.Matches(msg, m.keys.Tags):
		return m.startEdit(editTags, strings.Join(s.Form().Tags, ", "))

	case key.Matches(msg, m.keys.Direction):
		return m.startEdit(editDirection, s.Form().Direction)

	case key.Matches(msg, m.keys.BPM):
		bpm := ""
		if b := s.Form().BPM; b != nil {
			bpm = strconv.Itoa(*b)
		}
		return m.startEdit(editBPM, bpm)

	case key.Matches(msg, m.keys.Instrumental):
		s.UpdateForm(func(f *session.Form) {
			if f.LyricsMode == session.LyricsVocal {
				f.LyricsMode = session.LyricsInstrumental
			} else {
				f.LyricsMode = session.LyricsVocal
			}
		})

	case key.Matches(msg, m.keys.AutoDuration):
		return m, m.run("auto duration", func(ctx context.Context) error {
			s.AutoDuration(ctx)
			return nil
		})

	case key.Matches(msg, m.keys.Longer), key.Matches(msg, m.keys.Shorter):
		step := 5.0
		if key.Matches(msg, m.keys.Shorter) {
			step = -5
		}
		s.UpdateForm(func(f *session.Form) {
			f.Shared.Duration = math.Max(10, math.Min(600, f.Shared.Duration+step))
		})

	case key.Matches(msg, m.keys.Up):
		m.selected = max(0, m.selected-1)

	case key.Matches(msg, m.keys.Down):
		m.selected = min(max(0, len(snap.Results)-1), m.selected+1)

	case key.Matches(msg, m.keys.Open):
		if r, ok := m.result(snap); ok {
			cmd := m.loadPlayer(r.AudioURL, true)
			return m, cmd
		}

	case key.Matches(msg, m.keys.SendRework):
		if r, ok := m.result(snap); ok {
			lyrics := s.Form().Lyrics
			return m, m.run("send to rework", func(ctx context.Context) error {
				return s.LoadIntoRework(ctx, r.AudioURL, session.LabelGenerated, lyrics)
			})
		}

	case key.Matches(msg, m.keys.StartEarlier):
		m.nudge(-0.5, 0)
	case key.Matches(msg, m.keys.StartLater):
		m.nudge(0.5, 0)
	case key.Matches(msg, m.keys.EndEarlier):
		m.nudge(0, -0.5)
	case key.Matches(msg, m.keys.EndLater):
		m.nudge(0, 0.5)

	case key.Matches(msg, m.keys.RegionStart), key.Matches(msg, m.keys.RegionEnd):
		tl := s.Timeline()
		if !tl.ShowRegion() || tl.Duration() <= 0 {
			return m, nil
		}
		r := tl.Selector().Region()
		if key.Matches(msg, m.keys.RegionStart) {
			return m.startEdit(editRegionStart, strconv.FormatFloat(r.Start, 'f', 1, 64))
		}
		return m.startEdit(editRegionEnd, strconv.FormatFloat(r.End, 'f', 1, 64))
	}
	return m, nil
}

func (m Model) result(snap task.Snapshot) (task.Result, bool) {
	if snap.View != task.ViewResults || m.selected >= len(snap.Results) {
		return task.Result{}, false
	}
	return snap.Results[m.selected], true
}

func (m Model) nudge(start, end float64) {
	tl := m.sess.Timeline()
	if !tl.ShowRegion() {
		return
	}
	r := tl.Selector().Region()
	tl.Selector().SetRegion(r.Start+start, r.End+end)
}

// typedRegion is the region with the bound being edited replaced by the
// typed value.
func (m Model) typedRegion() (gowrangler.Region, error) {
	r := m.sess.Timeline().Selector().Region()
	v, err := strconv.ParseFloat(strings.TrimSpace(m.input.Value()), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return r, errBadTime
	}
	if m.editing == editRegionStart {
		r.Start = v
	} else {
		r.End = v
	}
	return r, nil
}

func (m Model) regionHint() string {
	r, err := m.typedRegion()
	if err != nil {
		return hintBadTime
	}
	return session.RegionHint(r.Validate(m.sess.Timeline().Duration()))
}

func (m Model) startEdit(f field, value string) (tea.Model, tea.Cmd) {
	m.editing = f
	m.fieldHint = ""
	if f == editLyrics {
		m.lyrics.SetValue(value)
		cmd := m.lyrics.Focus()
		return m, cmd
	}
	m.input.Placeholder = f.String()
	m.input.SetValue(value)
	cmd := m.input.Focus()
	return m, cmd
}

func (m Model) updateEditor(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.editing = editNone
		m.input.Blur()
		m.lyrics.Blur()
		return m, nil

	case "ctrl+s":
		if m.editing == editLyrics {
			return m.commit()
		}

	case "enter":
		if m.editing != editLyrics {
			return m.commit()
		}
	}

	var cmd tea.Cmd
	switch m.editing {
	case editLyrics:
		m.lyrics, cmd = m.lyrics.Update(msg)
	case editRegionStart, editRegionEnd:
		m.input, cmd = m.input.Update(msg)
		m.fieldHint = m.regionHint()
	default:
		m.input, cmd = m.input.Update(msg)
	}
	return m, cmd
}

func (m Model) commit() (tea.Model, tea.Cmd) {
	f := m.editing
	if f == editRegionStart || f == editRegionEnd {
		r, err := m.typedRegion()
		if err != nil {
			m.fieldHint = hintBadTime
			return m, nil
		}
		m.sess.Timeline().Selector().SetRegion(r.Start, r.End)
		m.fieldHint = ""
	}
	m.editing = editNone
	m.input.Blur()
	m.lyrics.Blur()
	s := m.sess
	value := strings.TrimSpace(m.input.Value())

	switch f {
	case editLyrics:
		lyrics := m.lyrics.Value()
		s.UpdateForm(func(form *session.Form) { form.Lyrics = lyrics })
	case editStyle:
		s.UpdateForm(func(form *session.Form) { form.CustomStyle = value })
	case editDirection:
		s.UpdateForm(func(form *session.Form) { form.Direction = value })
	case editTags:
		var tags []string
		for _, t := range strings.Split(value, ",") {
			if t = strings.TrimSpace(t); t != "" {
				tags = append(tags, t)
			}
		}
		s.UpdateForm(func(form *session.Form) { form.Tags = tags })
	case editBPM:
		n, err := strconv.Atoi(value)
		s.UpdateForm(func(form *session.Form) {
			form.BPM = nil
			if err == nil && n > 0 {
				form.BPM = &n
			}
		})
	case editUpload:
		if value == "" {
			return m, nil
		}
		return m, m.run("upload", func(ctx context.Context) error {
			if s.Mode() != session.ModeRework && !s.SwitchMode(ctx, session.ModeRework) {
				return task.ErrBusy
			}
			return s.UploadFile(ctx, value)
		})
	}
	return m, nil
}

// mouse maps presses on the section row and waveform rows onto the region
// selector, or onto the transport when no region is shown.
func (m Model) mouse(msg tea.MouseMsg) Model {
	if msg.Action == tea.MouseActionPress && msg.Button != tea.MouseButtonLeft {
		return m
	}
	tl := m.sess.Timeline()
	sel := tl.Selector()
	frame := tl.Frame()
	if m.width <= 0 || frame.Duration <= 0 {
		return m
	}
	colW := frame.Surface.Width / float64(m.width)
	x := (float64(msg.X) + 0.5) * colW

	sectionRow := headerLines
	firstWave, lastWave := sectionRow+1, sectionRow+m.waveRows()

	switch msg.Action {
	case tea.MouseActionPress:
		switch {
		case msg.Y == sectionRow && tl.ShowRegion():
			if i := frame.StripeAt(x); i >= 0 {
				if secs := tl.Sections(); i < len(secs) {
					sel.ClickSection(secs[i], msg.Shift)
				}
			}
		case msg.Y >= firstWave && msg.Y <= lastWave:
			if tl.ShowRegion() {
				sel.PointerDown(frame.TimeAt(x), frame.TargetAt(x, colW))
				m.dragging = true
			} else if m.transport != nil {
				if err := m.transport.Scrub(x / frame.Surface.Width); err != nil {
					m.status = err.Error()
				}
				tl.Follow(m.player)
			}
		}

	case tea.MouseActionMotion:
		if m.dragging {
			sel.PointerMove(frame.TimeAt(x))
		}

	case tea.MouseActionRelease:
		if m.dragging {
			sel.PointerUp()
			m.dragging = false
		}
	}
	return m
}

func (m *Model) togglePlay() {
	if m.transport == nil {
		return
	}
	if m.transport.State().Playing {
		m.transport.Stop()
		return
	}
	if err := m.transport.Play(); err != nil {
		m.status = err.Error()
		return
	}
	m.sess.Timeline().Follow(m.player)
}

// syncPlayer loads the rework source for playback when it changes.
func (m *Model) syncPlayer() tea.Cmd {
	src := m.sess.Source()
	switch {
	case src == nil && m.playerPath != "":
		m.closePlayer()
	case src != nil && src.Path != m.playerPath:
		return m.loadPlayer(src.Path, false)
	}
	return nil
}

func (m *Model) loadPlayer(path string, autoplay bool) tea.Cmd {
	if m.audio == nil {
		return nil
	}
	m.playerPath = path
	ctx, audio := m.ctx, m.audio
	return func() tea.Msg {
		rc, err := audio.Audio(ctx, path)
		if err != nil {
			return playerMsg{path: path, err: err}
		}
		defer rc.Close()
		p, err := player.Load(rc)
		return playerMsg{path: path, p: p, autoplay: autoplay, err: err}
	}
}

func (m Model) installPlayer(msg playerMsg) (tea.Model, tea.Cmd) {
	if msg.path != m.playerPath {
		if msg.p != nil {
			msg.p.Close()
		}
		return m, nil
	}
	if msg.err != nil {
		m.logger.Warn("clip unavailable for playback", "path", msg.path, "error", msg.err)
		m.status = "Playback unavailable: " + msg.err.Error()
		return m, nil
	}

	path := m.playerPath
	m.closePlayer()
	m.playerPath = path
	m.player = msg.p
	m.transport = transport.New(msg.p, m.registry)
	notes := m.notes
	m.transport.OnEvent(func(transport.Event) { notes.poke() })
	if msg.autoplay {
		m.togglePlay()
	}
	return m, nil
}

func (m *Model) closePlayer() {
	if m.transport != nil {
		m.transport.Stop()
		m.transport.Close()
		m.transport = nil
	}
	if m.player != nil {
		m.player.Close()
		m.player = nil
	}
	m.playerPath = ""
}

// View renders the surface.
func (m Model) View() string {
	if !m.sized {
		return "Starting…\n"
	}
	s := m.sess
	st := m.styles
	snap := s.Tasks().Snapshot()
	form := s.Form()
	rework := s.Mode() == session.ModeRework

	var sb strings.Builder

	// Header: mode, approach, source.
	modes := []string{"Create", "Rework"}
	sb.WriteString(st.title.Render("ACE-Step Wrangler") + "  ")
	for i, name := range modes {
		if (i == 1) == rework {
			sb.WriteString(st.active.Render(" "+name+" ") + " ")
		} else {
			sb.WriteString(st.dim.Render(" "+name+" ") + " ")
		}
	}
	if rework {
		fmt.Fprintf(&sb, "  approach: %s", s.Approach())
		if src := s.Source(); src != nil {
			fmt.Fprintf(&sb, "  source: %s (%s)", src.Label, gowrangler.FormatClock(src.Duration))
		}
	}
	sb.WriteByte('\n')

	// Form summary.
	style := form.Style()
	if rework {
		style = form.Direction
	}
	if style == "" {
		style = st.dim.Render("(none)")
	}
	dur := fmt.Sprintf("%.0fs", s.Duration())
	if _, locked := s.DurationLocked(); locked {
		dur += " (locked to source)"
	}
	params := task.SongParams(task.Key(form.KeyRoot, form.KeyMode), form.BPM, form.TimeSignature)
	fmt.Fprintf(&sb, "Style: %s  %s  Duration: %s  Batch: %d/%d\n", style, params, dur, form.Shared.BatchSize, form.BatchLimit())

	lyricsMode := "vocal"
	if form.LyricsMode == session.LyricsInstrumental {
		lyricsMode = "instrumental"
	}
	fmt.Fprintf(&sb, "Lyrics: %d words, %s", session.LyricWords(form.Lyrics), lyricsMode)
	if w := s.LyricsWarning(); w != "" {
		sb.WriteString("  " + st.warn.Render("⚠ "+w))
	}
	sb.WriteByte('\n')

	// Timeline.
	sb.WriteString(renderTimeline(s.Timeline().Frame(), m.width, m.waveRows(), st))
	sb.WriteByte('\n')
	sb.WriteString(s.Timeline().Describe())
	sb.WriteByte('\n')

	// Transport.
	if m.transport != nil {
		ts := m.transport.State()
		icon := "▶"
		if ts.Playing {
			icon = "⏹"
		}
		barW := max(0, min(40, m.width-20))
		filled := int(ts.Progress * float64(barW))
		fmt.Fprintf(&sb, "⟪ %s  %s %s%s", icon, ts.Label, strings.Repeat("━", filled), st.dim.Render(strings.Repeat("─", barW-filled)))
	} else {
		sb.WriteString(st.dim.Render("no clip loaded"))
	}
	sb.WriteByte('\n')

	// Output panel or editor.
	sb.WriteString(m.output(snap))

	if snap.Hint != "" {
		sb.WriteString(st.hint.Render(snap.Hint))
	} else if m.status != "" {
		sb.WriteString(st.warn.Render(m.status))
	}
	sb.WriteByte('\n')
	sb.WriteString(m.help.ShortHelpView(m.keys.short(rework)))
	return sb.String()
}

func (m Model) output(snap task.Snapshot) string {
	lines := make([]string, 0, outputLines)
	st := m.styles

	switch {
	case m.editing == editLyrics:
		lines = append(lines, st.title.Render(m.editing.String()))
		lines = append(lines, strings.Split(m.lyrics.View(), "\n")...)
	case m.editing != editNone:
		lines = append(lines, st.title.Render(m.editing.String()), m.input.View())
		if m.fieldHint != "" {
			lines = append(lines, st.hint.Render(m.fieldHint))
		}
	default:
		switch snap.View {
		case task.ViewGenerating:
			lines = append(lines, fmt.Sprintf("%s Generating… %s", m.spinner.View(), task.FormatElapsed(m.sess.Tasks().Elapsed())))
			if snap.State == task.StatePolling {
				lines = append(lines, st.dim.Render("task "+snap.TaskID+"  (x to cancel)"))
			}
		case task.ViewResults:
			for i, r := range snap.Results {
				marker := "  "
				if i == m.selected {
					marker = "> "
				}
				line := fmt.Sprintf("%sResult %d of %d  %s", marker, i+1, len(snap.Results), r.AudioURL)
				lines = append(lines, line, st.dim.Render("    "+r.AudioDownload+"  "+r.MetaDownload))
			}
		case task.ViewWaveform:
			if d := m.sess.Downloads(); d != nil {
				lines = append(lines,
					fmt.Sprintf("Download audio: %s (%s)", d.Audio, d.AudioName),
					fmt.Sprintf("Download JSON:  %s (%s)", d.Meta, d.MetaName))
			}
		default:
			lines = append(lines, st.dim.Render(fmt.Sprintf("Press g to %s.", strings.ToLower(m.sess.Action()))))
		}
	}

	if len(lines) > outputLines {
		lines = lines[:outputLines]
	}
	for len(lines) < outputLines {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n") + "\n"
}
