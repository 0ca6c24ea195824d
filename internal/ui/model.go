package ui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/xpmourad/ori-AI-Background-Remover/internal/logging"
	"github.com/xpmourad/ori-AI-Background-Remover/internal/media"
	"github.com/xpmourad/ori-AI-Background-Remover/internal/prefs"
	"github.com/xpmourad/ori-AI-Background-Remover/internal/session"
)

// imageExtensions limits what the file picker offers.
var imageExtensions = []string{
	".png", ".jpg", ".jpeg", ".gif", ".webp", ".bmp",
	".tif", ".tiff", ".heic", ".heif", ".avif",
}

type focusArea int

const (
	focusPicker focusArea = iota
	focusPath
)

type noticeKind int

const (
	noticeInfo noticeKind = iota
	noticeSuccess
	noticeWarning
	noticeError
)

// Options configure the UI.
type Options struct {
	Context      context.Context
	Controller   *session.Controller
	Logger       *zap.SugaredLogger
	OutputDir    string
	OutputFormat media.Format
	ThemeName    string
	PrefsPath    string
	StartDir     string
}

// Model is the root Bubble Tea model.
type Model struct {
	ctx       context.Context
	ctrl      *session.Controller
	logger    *zap.SugaredLogger
	outputDir string
	format    media.Format
	prefsPath string
	prefs     prefs.Prefs

	theme   Theme
	keys    keyMap
	help    help.Model
	picker  filepicker.Model
	path    textinput.Model
	spinner spinner.Model
	focus   focusArea

	width  int
	height int

	snap          session.Snapshot
	preview       string
	sourcePreview string
	notice        string
	noticeKind    noticeKind
	savedPath     string
}

// New creates the model. A nil Controller gets a private one with no remover.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	logger := logging.OrNop(opts.Logger)

	ctrl := opts.Controller
	if ctrl == nil {
		ctrl = session.New(session.Options{Logger: logger})
	}

	format := opts.OutputFormat
	if format == "" {
		format = media.FormatPNG
	}

	outputDir := opts.OutputDir
	if strings.TrimSpace(outputDir) == "" {
		outputDir = "."
	}

	themeName := opts.ThemeName
	if themeName == "" {
		themeName = "Dracula"
	}
	theme := GetTheme(themeName)

	startDir := opts.StartDir
	if strings.TrimSpace(startDir) == "" {
		if wd, err := os.Getwd(); err == nil {
			startDir = wd
		} else {
			startDir = "."
		}
	}

	picker := filepicker.New()
	picker.AllowedTypes = imageExtensions
	picker.CurrentDirectory = startDir

	path := textinput.New()
	path.Prompt = "path › "
	path.Placeholder = "/path/to/photo.png"
	path.CharLimit = 4096

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))

	m := Model{
		ctx:       ctx,
		ctrl:      ctrl,
		logger:    logger,
		outputDir: outputDir,
		format:    format,
		prefsPath: opts.PrefsPath,
		prefs:     prefs.Prefs{Theme: theme.Name},
		theme:     theme,
		keys:      defaultKeyMap(),
		help:      help.New(),
		picker:    picker,
		path:      path,
		spinner:   sp,
		focus:     focusPicker,
	}
	m.applyTheme()
	m.refresh()
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return m.picker.Init()
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.path.Width = max(10, msg.Width-16)
		m.updatePreview()
		var cmd tea.Cmd
		m.picker, cmd = m.picker.Update(msg)
		return m, cmd

	case outcomeMsg:
		if !m.ctrl.Resolve(session.Outcome(msg)) {
			return m, nil
		}
		m.refresh()
		return m, nil

	case savedMsg:
		if msg.err != nil {
			m.logger.Errorw("save failed", "error", msg.err)
			m.setNotice(noticeError, "Save failed: "+msg.err.Error())
			return m, nil
		}
		m.logger.Infow("result saved", "path", msg.path)
		m.savedPath = msg.path
		m.setNotice(noticeSuccess, "Saved to "+msg.path)
		return m, nil

	case spinner.TickMsg:
		if m.snap.State != session.StateLoading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	// Directory listings and cursor blinks.
	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.picker, cmd = m.picker.Update(msg)
	cmds = append(cmds, cmd)
	m.path, cmd = m.path.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}

	if m.snap.State == session.StateInitial {
		if msg.Paste {
			return m.submitPath(string(msg.Runes))
		}
		if m.focus == focusPath {
			return m.handlePathKey(msg)
		}
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil

	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.prefs.Theme = m.theme.Name
		m.applyTheme()
		m.updatePreview()
		m.savePrefs()
		return m, nil

	case key.Matches(msg, m.keys.Focus):
		m.focus = focusPath
		m.syncKeys()
		cmd := m.path.Focus()
		return m, cmd

	case key.Matches(msg, m.keys.Save):
		return m, saveCmd(m.outputDir, m.snap.Source.Name, m.snap.Processed, m.format)

	case key.Matches(msg, m.keys.Reset):
		m.reset()
		return m, nil
	}

	if m.snap.State != session.StateInitial {
		return m, nil
	}

	var cmd tea.Cmd
	m.picker, cmd = m.picker.Update(msg)
	if ok, path := m.picker.DidSelectFile(msg); ok {
		next, submit := m.submitPath(path)
		return next, tea.Batch(cmd, submit)
	}
	if ok, path := m.picker.DidSelectDisabledFile(msg); ok {
		m.setNotice(noticeWarning, fmt.Sprintf("%s is not an image", filepath.Base(path)))
	}
	return m, cmd
}

func (m Model) handlePathKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Submit):
		if strings.TrimSpace(m.path.Value()) == "" {
			return m, nil
		}
		return m.submitPath(m.path.Value())

	case key.Matches(msg, m.keys.Blur):
		m.path.Reset()
		m.path.Blur()
		m.focus = focusPicker
		m.syncKeys()
		return m, nil

	case key.Matches(msg, m.keys.Focus):
		m.path.Blur()
		m.focus = focusPicker
		m.syncKeys()
		return m, nil
	}

	var cmd tea.Cmd
	m.path, cmd = m.path.Update(msg)
	return m, cmd
}

// submitPath loads the file at raw and hands it to the controller.
func (m Model) submitPath(raw string) (tea.Model, tea.Cmd) {
	path := normalizeDroppedPath(raw)
	if path == "" {
		return m, nil
	}

	file, err := media.Open(path)
	if err != nil {
		m.setNotice(noticeError, err.Error())
		return m, nil
	}

	job, err := m.ctrl.Submit(m.ctx, file)
	if err != nil {
		if errors.Is(err, session.ErrBusy) {
			m.setNotice(noticeWarning, "Still working on the previous image")
		} else {
			m.setNotice(noticeError, err.Error())
		}
		return m, nil
	}

	m.rememberDir(filepath.Dir(path))
	m.path.Reset()
	m.path.Blur()
	m.focus = focusPicker
	m.savedPath = ""
	m.clearNotice()
	m.refresh()
	return m, tea.Batch(m.spinner.Tick, runJob(job))
}

func (m *Model) reset() {
	m.ctrl.Reset()
	m.savedPath = ""
	m.clearNotice()
	m.refresh()
}

// refresh re-reads the session and everything derived from it.
func (m *Model) refresh() {
	m.snap = m.ctrl.Snapshot()
	m.syncKeys()
	m.updatePreview()
}

func (m *Model) syncKeys() {
	st := m.snap.State
	m.keys.Submit.SetEnabled(st == session.StateInitial && m.focus == focusPath)
	m.keys.Blur.SetEnabled(st == session.StateInitial && m.focus == focusPath)
	m.keys.Focus.SetEnabled(st == session.StateInitial)
	m.keys.Save.SetEnabled(st == session.StateResult)
	m.keys.Reset.SetEnabled(st != session.StateInitial)
	if st == session.StateLoading {
		m.keys.Reset.SetHelp("r", "cancel")
	} else {
		m.keys.Reset.SetHelp("r", "start over")
	}
}

// updatePreview renders the source while loading, and the source beside the
// processed image once a result is in.
func (m *Model) updatePreview() {
	m.preview, m.sourcePreview = "", ""
	st := m.snap.State
	if st != session.StateLoading && st != session.StateResult {
		return
	}
	cols, rows := previewSize(m.width, m.height)
	if st == session.StateResult {
		cols = sideBySide(cols)
	}

	if entry, ok := m.ctrl.Preview(); ok {
		out, err := renderBytes(entry.Data, cols, rows, m.theme)
		if err != nil {
			m.logger.Debugw("source preview render failed", "file", entry.Name, "error", err)
		} else {
			m.sourcePreview = out
		}
	}

	if st != session.StateResult {
		return
	}
	out, err := renderEncoded(m.snap.Processed, cols, rows, m.theme)
	if err != nil {
		m.logger.Warnw("preview render failed", "error", err)
		return
	}
	m.preview = out
}

// sideBySide splits cols between two bordered panels and the gap between them.
func sideBySide(cols int) int {
	return max((cols-6)/2, 8)
}

func previewSize(width, height int) (int, int) {
	cols, rows := 48, 16
	if width > 0 {
		cols = min(max(width-6, 8), 96)
	}
	if height > 0 {
		rows = min(max(height-14, 4), 40)
	}
	return cols, rows
}

func (m *Model) applyTheme() {
	m.spinner.Style = m.theme.Styles().AccentText
}

func (m *Model) rememberDir(dir string) {
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	if dir == m.prefs.LastDir {
		return
	}
	m.prefs.LastDir = dir
	m.savePrefs()
}

func (m *Model) savePrefs() {
	if m.prefsPath == "" {
		return
	}
	if err := prefs.Save(m.prefsPath, m.prefs); err != nil {
		m.logger.Warnw("prefs not saved", "path", m.prefsPath, "error", err)
	}
}

func (m *Model) setNotice(kind noticeKind, text string) {
	m.noticeKind = kind
	m.notice = text
}

func (m *Model) clearNotice() {
	m.noticeKind = noticeInfo
	m.notice = ""
}

// Messages

type outcomeMsg session.Outcome

type savedMsg struct {
	path string
	err  error
}

// Commands

func runJob(job session.Job) tea.Cmd {
	return func() tea.Msg {
		return outcomeMsg(job.Run())
	}
}

func saveCmd(dir, sourceName string, enc media.Encoded, format media.Format) tea.Cmd {
	return func() tea.Msg {
		path, err := media.Save(dir, sourceName, enc, format)
		return savedMsg{path: path, err: err}
	}
}

// Run starts the Bubble Tea program and blocks until the user quits or ctx
// is cancelled.
func Run(opts Options) error {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
		opts.Context = ctx
	}
	p := tea.NewProgram(New(opts), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
