// Package tui is the terminal front end: it maps keypresses to session
// commands and multiplexes playback polling, Auto-DJ work and slow command
// completions through the bubbletea event loop.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"radiofree/internal/core"
	"radiofree/internal/i18n"
	"radiofree/internal/lyrics"
)

// App is the bubbletea model. All session mutation happens inside Update,
// which bubbletea runs on a single goroutine; tea.Cmd closures only carry
// out network work and report back as messages.
type App struct {
	session  *core.Session
	playback core.PlaybackClient
	lyricist *lyrics.Client
	loc      *i18n.Localizer
	logger   *zap.Logger
	tick     time.Duration

	width   int
	height  int
	status  string
	isError bool
	busy    bool

	themeMode  bool
	themeInput string

	panelTitle string
	panelBody  string

	doc      *lyrics.Lyrics
	docTrack string

	quitting bool
	farewell string
}

type Options struct {
	Session  *core.Session
	Playback core.PlaybackClient
	Lyrics   *lyrics.Client
	Locale   string
	TickMs   int
}

func NewApp(opts Options, logger *zap.Logger) *App {
	tick := time.Duration(opts.TickMs) * time.Millisecond
	if tick <= 0 {
		tick = 500 * time.Millisecond
	}
	return &App{
		session:  opts.Session,
		playback: opts.Playback,
		lyricist: opts.Lyrics,
		loc:      i18n.NewLocalizer(opts.Locale),
		logger:   logger,
		tick:     tick,
	}
}

// Messages.

type tickMsg time.Time

type playbackMsg struct {
	state *core.PlaybackState
	err   error
}

type autoFetchMsg struct {
	res core.FetchResult
}

type commandMsg struct {
	out core.CommandOutcome
}

type mysteryMsg struct {
	res core.MysteryResult
}

type mysteryPlayMsg struct {
	err error
}

type suggestionsMsg struct {
	res core.SuggestionsResult
}

type panelMsg struct {
	title string
	body  string
	err   error
}

type lyricsMsg struct {
	trackID string
	doc     *lyrics.Lyrics
}

func (a *App) Init() tea.Cmd {
	return tea.Batch(a.pollCmd(), a.tickCmd())
}

func (a *App) tickCmd() tea.Cmd {
	return tea.Tick(a.tick, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (a *App) pollCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), a.tick*4)
		defer cancel()
		state, err := a.playback.State(ctx)
		return playbackMsg{state: state, err: err}
	}
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)

	case tickMsg:
		return a, tea.Batch(a.pollCmd(), a.tickCmd())

	case playbackMsg:
		return a.handlePlayback(msg)

	case autoFetchMsg:
		if status := a.session.CompleteAutoFetch(context.Background(), msg.res); status != "" {
			a.setStatus(status, false)
		}
		return a, nil

	case commandMsg:
		status, err := a.session.ApplyCommand(msg.out)
		if err != nil {
			a.logger.Warn("Command failed",
				zap.String("command", msg.out.Cmd.String()), zap.Error(err))
			a.setStatus(err.Error(), true)
			return a, nil
		}
		if status != "" {
			a.setStatus(status, false)
		}
		// Follow up with a poll so the UI reflects the change promptly.
		return a, a.pollCmd()

	case suggestionsMsg:
		a.busy = false
		a.setStatus(a.session.ApplySuggestions(context.Background(), msg.res), false)
		return a, nil

	case mysteryMsg:
		if status := a.session.ApplyMystery(context.Background(), msg.res); status != "" {
			a.setStatus(status, false)
		}
		return a, nil

	case mysteryPlayMsg:
		if msg.err != nil {
			a.setStatus(msg.err.Error(), true)
			return a, nil
		}
		return a, a.pollCmd()

	case panelMsg:
		a.busy = false
		if msg.err != nil {
			a.setStatus(msg.err.Error(), true)
			return a, nil
		}
		a.panelTitle = msg.title
		a.panelBody = msg.body
		return a, nil

	case lyricsMsg:
		// Ignore results for a track we already moved past.
		if msg.trackID == a.docTrack {
			a.doc = msg.doc
		}
		return a, nil
	}

	return a, nil
}

func (a *App) handlePlayback(msg playbackMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		a.logger.Debug("Playback poll failed", zap.Error(msg.err))
		return a, nil
	}

	intro := a.session.ApplyPlayback(msg.state)
	if intro != "" {
		a.setStatus(intro, false)
	}

	var cmds []tea.Cmd

	if current := a.session.Current(); current != nil && a.lyricist != nil && current.ID != a.docTrack {
		// Mark before dispatch so subsequent ticks do not refetch.
		a.docTrack = current.ID
		a.doc = nil
		cmds = append(cmds, a.fetchLyricsCmd(*current))
	}

	if job := a.session.MaybeAutoFetch(); job != nil {
		current := a.session.Current()
		cmds = append(cmds, func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
			defer cancel()
			return autoFetchMsg{res: a.session.RunAutoFetch(ctx, job, current)}
		})
	}

	if track := a.session.BeginMysteryRound(); track != nil {
		cmds = append(cmds, func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
			defer cancel()
			return mysteryMsg{res: a.session.FetchMystery(ctx, track)}
		})
	}

	return a, tea.Batch(cmds...)
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if a.themeMode {
		return a.handleThemeInput(msg)
	}

	if a.panelBody != "" {
		// Any key dismisses the panel.
		a.panelTitle = ""
		a.panelBody = ""
		return a, nil
	}

	// An open mystery round captures the number keys.
	if a.session.AwaitingMysteryChoice() {
		switch msg.String() {
		case "1", "2", "3", "4", "5":
			return a.mysteryChoose(int(msg.String()[0] - '0'))
		}
	}

	switch msg.String() {
	case "q", "ctrl+c":
		a.farewell = a.session.Shutdown()
		a.quitting = true
		return a, tea.Quit

	case "a":
		a.setStatus(a.session.ToggleAutoDJ(), false)
		return a, nil
	case "m":
		a.setStatus(a.session.ToggleMystery(), false)
		return a, nil
	case " ":
		return a.fastCommand(core.CmdPlayPause)
	case "n":
		return a.fastCommand(core.CmdNextTrack)
	case "p":
		return a.fastCommand(core.CmdPreviousTrack)
	case "+", "=":
		return a.fastCommand(core.CmdVolumeUp)
	case "-":
		return a.fastCommand(core.CmdVolumeDown)
	case "s":
		return a.fastCommand(core.CmdSaveTrack)
	case "d":
		return a.fastCommand(core.CmdDislikeTrack)

	case "1":
		return a.suggestCommand(core.CmdSuggestOne, 1, "")
	case "2":
		return a.suggestCommand(core.CmdSuggestTen, a.session.BatchSize(), "")
	case "3":
		a.themeMode = true
		a.themeInput = ""
		return a, nil

	case "i":
		return a.panelCommand(core.CmdSongInsight)
	case "e":
		return a.panelCommand(core.CmdExplainLyrics)
	}

	// Unrecognized keys are ignored.
	return a, nil
}

func (a *App) handleThemeInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEscape:
		a.themeMode = false
		return a, nil
	case tea.KeyEnter:
		theme := strings.TrimSpace(a.themeInput)
		a.themeMode = false
		if theme == "" {
			return a, nil
		}
		return a.suggestCommand(core.CmdThemePlaylist, a.session.BatchSize(), theme)
	case tea.KeyBackspace:
		if len(a.themeInput) > 0 {
			runes := []rune(a.themeInput)
			a.themeInput = string(runes[:len(runes)-1])
		}
		return a, nil
	case tea.KeySpace:
		a.themeInput += " "
		return a, nil
	case tea.KeyRunes:
		a.themeInput += string(msg.Runes)
		return a, nil
	}
	return a, nil
}

// fastCommand dispatches a playback command. The network call runs in the
// returned tea.Cmd so a slow player never blocks Update; the outcome comes
// back as a commandMsg and is applied on the loop.
func (a *App) fastCommand(cmd core.Command) (tea.Model, tea.Cmd) {
	if (cmd == core.CmdSaveTrack || cmd == core.CmdDislikeTrack) && !a.session.HasLibrary() {
		a.setStatus(a.loc.T("cmd.no_library"), false)
		return a, nil
	}

	a.session.NoteCommand(cmd)
	current := a.session.Current()
	playing := a.session.Playing()

	return a, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return commandMsg{out: a.session.RunCommand(ctx, cmd, current, playing)}
	}
}

// mysteryChoose locks in a mystery selection and starts it off the loop.
func (a *App) mysteryChoose(n int) (tea.Model, tea.Cmd) {
	choice, status := a.session.ChooseMystery(n)
	a.setStatus(status, false)
	if choice == nil {
		return a, nil
	}

	track := *choice.Track
	return a, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return mysteryPlayMsg{err: a.playback.PlayTrack(ctx, track)}
	}
}

func (a *App) suggestCommand(cmd core.Command, count int, theme string) (tea.Model, tea.Cmd) {
	if a.busy {
		return a, nil
	}
	a.busy = true
	a.session.NoteCommand(cmd)
	a.setStatus(a.loc.T("autodj.fetching"), false)

	current := a.session.Current()
	return a, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
		defer cancel()
		return suggestionsMsg{res: a.session.FetchSuggestions(ctx, current, count, theme)}
	}
}

func (a *App) panelCommand(cmd core.Command) (tea.Model, tea.Cmd) {
	current := a.session.Current()
	if current == nil {
		a.setStatus(a.loc.T("cmd.nothing"), false)
		return a, nil
	}
	if a.busy {
		return a, nil
	}
	a.busy = true
	a.session.NoteCommand(cmd)

	track := *current
	title := a.loc.T("cmd.insight_title")
	if cmd == core.CmdExplainLyrics {
		title = a.loc.T("cmd.lyrics_title")
	}

	return a, func() tea.Msg {
		var body string
		var err error
		if cmd == core.CmdSongInsight {
			body, err = a.session.Insight(context.Background(), track)
		} else {
			body, err = a.session.LyricBreakdown(context.Background(), track)
		}
		return panelMsg{title: title, body: body, err: err}
	}
}

func (a *App) setStatus(text string, isError bool) {
	a.status = text
	a.isError = isError
}

func (a *App) View() string {
	if a.quitting {
		return a.farewell + "\n"
	}

	var b strings.Builder

	// Header.
	state := a.session.AutoDJ().State()
	stateLabel := stateOffStyle.Render(a.loc.T("autodj.disabled"))
	switch state {
	case core.StateIdle:
		stateLabel = stateOnStyle.Render(a.loc.T("autodj.enabled"))
	case core.StateFetching:
		stateLabel = stateOnStyle.Render(a.loc.T("autodj.fetching"))
	case core.StateCooldown:
		remaining := a.session.AutoDJ().CooldownRemaining().Round(time.Second)
		stateLabel = statusStyle.Render(a.loc.T("autodj.cooldown", remaining))
	}
	b.WriteString(titleStyle.Render("RadioFree") + "  " + stateLabel + "\n\n")

	// Now playing.
	if current := a.session.Current(); current != nil {
		marker := "▶"
		if !a.session.Playing() {
			marker = "⏸"
		}
		b.WriteString(fmt.Sprintf("%s %s\n", marker, trackStyle.Render(current.Label())))
		b.WriteString(dimStyle.Render(a.progressLine(current)) + "\n")

		if line := a.currentLyricLine(); line != "" {
			b.WriteString(lyricStyle.Render(line) + "\n")
		}
	} else {
		b.WriteString(dimStyle.Render(a.loc.T("cmd.nothing")) + "\n")
	}
	b.WriteString("\n")

	// Up next.
	if pending := a.session.Pending(); len(pending) > 0 {
		b.WriteString(dimStyle.Render("Up next:") + "\n")
		for i, track := range pending {
			b.WriteString(fmt.Sprintf("  %d. %s\n", i+1, track.Label()))
		}
		b.WriteString("\n")
	}

	// Mystery round. The secret pick is never marked.
	if choices := a.session.MysteryChoices(); len(choices) > 0 {
		b.WriteString(titleStyle.Render(a.loc.T("mystery.title")) + "\n")
		for i, option := range choices {
			suffix := ""
			if option.Track == nil {
				suffix = " (unavailable)"
			}
			b.WriteString(fmt.Sprintf("  %d. %s%s\n", i+1, option.Label(), suffix))
		}
		b.WriteString(dimStyle.Render(a.loc.T("mystery.hint")) + "\n\n")
	}

	// Theme input.
	if a.themeMode {
		b.WriteString(statusStyle.Render(a.loc.T("cmd.theme_prompt")+a.themeInput+"█") + "\n")
	}

	// Status line.
	if a.status != "" {
		style := statusStyle
		if a.isError {
			style = errorStyle
		}
		b.WriteString(style.Render(a.status) + "\n")
	}

	// Panel.
	if a.panelBody != "" {
		content := titleStyle.Render(a.panelTitle) + "\n\n" + wrap(a.panelBody, a.panelWidth())
		b.WriteString(panelStyle.Render(content) + "\n")
	}

	// Command log and help.
	if log := a.session.CommandLog(); len(log) > 0 {
		b.WriteString(dimStyle.Render("recent: "+strings.Join(log, " · ")) + "\n")
	}
	b.WriteString(helpStyle.Render(
		"a auto-dj · m mystery · space play/pause · n/p skip · +/- volume · 1/2/3 queue · i insight · e lyrics · s save · d dislike · q quit"))

	return b.String()
}

func (a *App) progressLine(current *core.Track) string {
	progress := a.session.Progress()
	if current.Duration <= 0 {
		return formatDuration(progress)
	}
	const width = 24
	filled := int(float64(width) * float64(progress) / float64(current.Duration))
	if filled > width {
		filled = width
	}
	bar := strings.Repeat("━", filled) + strings.Repeat("─", width-filled)
	return fmt.Sprintf("%s %s/%s  vol %d%%",
		bar, formatDuration(progress), formatDuration(current.Duration), a.session.Volume())
}

func (a *App) currentLyricLine() string {
	current := a.session.Current()
	if a.doc == nil || current == nil || a.docTrack != current.ID {
		return ""
	}
	idx := a.doc.CurrentLine(a.session.Progress())
	if idx < 0 || idx >= len(a.doc.Synced) {
		return ""
	}
	return a.doc.Synced[idx].Text
}

func (a *App) fetchLyricsCmd(track core.Track) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		doc, err := a.lyricist.Fetch(ctx, track)
		if err != nil {
			// Missing lyrics leave the panel empty, nothing to report.
			return lyricsMsg{trackID: track.ID, doc: nil}
		}
		return lyricsMsg{trackID: track.ID, doc: doc}
	}
}

func (a *App) panelWidth() int {
	if a.width > 20 {
		return a.width - 6
	}
	return 74
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	m := int(d.Minutes())
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%d:%02d", m, s)
}

// wrap does greedy word wrapping for panel text.
func wrap(text string, width int) string {
	if width <= 0 {
		return text
	}
	var out []string
	for _, paragraph := range strings.Split(text, "\n") {
		words := strings.Fields(paragraph)
		if len(words) == 0 {
			out = append(out, "")
			continue
		}
		line := words[0]
		for _, word := range words[1:] {
			if len(line)+1+len(word) > width {
				out = append(out, line)
				line = word
				continue
			}
			line += " " + word
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}
