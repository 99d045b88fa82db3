package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lumenwallet/lumen/internal/config"
	"github.com/lumenwallet/lumen/internal/service"
	"github.com/lumenwallet/lumen/internal/walletkit"
)

// App ties together views.
type App struct {
	ctx     context.Context
	cfg     config.Config
	session *walletkit.Session
	deps    Deps
	log     *zap.SugaredLogger

	state   appState
	address string
	status  string

	// dashboard
	snapshot   *service.Snapshot
	fetchToken string // in-flight refresh; stale results are dropped
	fetchErr   string // shown alongside the previous snapshot
	loading    bool

	// send form
	focus     sendField
	recipient string
	amount    string
	memo      string
	sending   bool

	// history
	history      []service.TxRecord
	historyToken string

	// settings
	editingURL  bool
	inputBuffer string

	events      <-chan walletkit.Event
	cancelWatch func()
	dateFormat  string
}

// Deps are the injected services; the app owns no network clients itself.
type Deps struct {
	Dashboard *service.DashboardService
	Payments  *service.PaymentService
	History   *service.HistoryService
}

type appState string

const (
	viewConnect   appState = "connect"
	viewDashboard appState = "dashboard"
	viewSend      appState = "send"
	viewHistory   appState = "history"
	viewSettings  appState = "settings"
)

type sendField int

const (
	fieldRecipient sendField = iota
	fieldAmount
	fieldMemo
)

const (
	memoInputCap = 28
	historyLimit = 10
)

func New(ctx context.Context, cfg config.Config, session *walletkit.Session, deps Deps, log *zap.SugaredLogger) *App {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	events, cancel := session.Watch()
	return &App{
		ctx:         ctx,
		cfg:         cfg,
		session:     session,
		deps:        deps,
		log:         log,
		state:       viewConnect,
		events:      events,
		cancelWatch: cancel,
		dateFormat:  cfg.UI.DateFormat,
	}
}

func (a *App) Init() tea.Cmd {
	return tea.Batch(a.bootstrapCmd(), a.waitForEvent())
}

// commands

func (a *App) bootstrapCmd() tea.Cmd {
	return func() tea.Msg {
		if err := a.session.Bootstrap(a.ctx); err != nil {
			return statusMsg("wallet check failed: " + err.Error())
		}
		return addressEventMsg(walletkit.Event{Address: a.session.Address()})
	}
}

// waitForEvent blocks on the session's event stream and re-arms itself after
// every delivery; the channel closing ends the subscription.
func (a *App) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-a.events
		if !ok {
			return nil
		}
		return addressEventMsg(ev)
	}
}

func (a *App) connectCmd() tea.Cmd {
	return func() tea.Msg {
		addr, err := a.session.Connect(a.ctx)
		return connectResultMsg{addr: addr, err: err}
	}
}

func (a *App) disconnectCmd() tea.Cmd {
	return func() tea.Msg {
		a.session.Disconnect(a.ctx)
		return statusMsg("disconnected")
	}
}

// refreshDashboardCmd snapshots the current address. The token makes the
// fetch droppable: an address change or newer refresh invalidates it.
func (a *App) refreshDashboardCmd() tea.Cmd {
	token := uuid.NewString()
	a.fetchToken = token
	a.loading = true
	addr := a.address
	return func() tea.Msg {
		snap, err := a.deps.Dashboard.Snapshot(a.ctx, addr)
		if err != nil {
			return snapshotErrMsg{token: token, err: err}
		}
		return snapshotMsg{token: token, snap: snap}
	}
}

func (a *App) refreshHistoryCmd() tea.Cmd {
	token := uuid.NewString()
	a.historyToken = token
	addr := a.address
	return func() tea.Msg {
		recs, err := a.deps.History.Recent(a.ctx, addr, historyLimit)
		if err != nil {
			return historyErrMsg{token: token, err: err}
		}
		return historyMsg{token: token, recs: recs}
	}
}

func (a *App) submitCmd() tea.Cmd {
	a.sending = true
	req := service.Request{Recipient: a.recipient, Amount: a.amount, Memo: a.memo}
	sender := a.address
	return func() tea.Msg {
		rcpt, err := a.deps.Payments.Send(a.ctx, sender, req)
		return submitResultMsg{receipt: rcpt, err: err}
	}
}

func (a *App) saveSettingsCmd() tea.Cmd {
	cfg := a.cfg
	return func() tea.Msg {
		if err := config.Save(cfg); err != nil {
			return statusMsg("save failed: " + err.Error())
		}
		return statusMsg("settings saved (restart to apply)")
	}
}

// update

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch m := msg.(type) {
	case tea.KeyMsg:
		return a.handleKey(m)

	case addressEventMsg:
		cmds := []tea.Cmd{a.waitForEvent()}
		if ev := walletkit.Event(m); ev.Address != a.address {
			a.address = ev.Address
			a.snapshot = nil
			a.history = nil
			a.fetchErr = ""
			// invalidate any in-flight fetches for the previous address
			a.fetchToken = ""
			a.historyToken = ""
			if a.address == "" {
				a.state = viewConnect
			} else {
				a.state = viewDashboard
				cmds = append(cmds, a.refreshDashboardCmd())
			}
		}
		return a, tea.Batch(cmds...)

	case connectResultMsg:
		if m.err != nil {
			a.status = "connection failed: " + m.err.Error()
			return a, nil
		}
		a.status = "connected as " + shorten(m.addr, 8)
		// the address switch itself arrives via the event stream
		return a, nil

	case snapshotMsg:
		if m.token != a.fetchToken {
			return a, nil // stale fetch, a newer state owns the view
		}
		snap := m.snap
		a.snapshot = &snap
		a.fetchErr = ""
		a.loading = false
		return a, nil

	case snapshotErrMsg:
		if m.token != a.fetchToken {
			return a, nil
		}
		// keep the previous snapshot on screen; the banner sits alongside
		a.fetchErr = m.err.Error()
		a.loading = false
		a.log.Warnw("dashboard refresh failed", "err", m.err)
		return a, nil

	case historyMsg:
		if m.token != a.historyToken {
			return a, nil
		}
		a.history = m.recs
		return a, nil

	case historyErrMsg:
		if m.token != a.historyToken {
			return a, nil
		}
		a.status = "history: " + m.err.Error()
		return a, nil

	case submitResultMsg:
		a.sending = false
		if m.err != nil {
			// inputs stay intact for correction
			a.status = "payment failed: " + m.err.Error()
			a.log.Warnw("payment failed", "err", m.err)
			return a, nil
		}
		a.recipient, a.amount, a.memo = "", "", ""
		a.focus = fieldRecipient
		a.status = "payment submitted, hash " + shorten(m.receipt.Hash, 8)
		a.state = viewDashboard
		return a, a.refreshDashboardCmd()

	case statusMsg:
		a.status = string(m)
		return a, nil
	}
	return a, nil
}

func (a *App) handleKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.String() == "ctrl+c" {
		a.cancelWatch()
		return a, tea.Quit
	}
	switch a.state {
	case viewSend:
		return a.handleSendKey(m)
	case viewSettings:
		return a.handleSettingsKey(m)
	case viewHistory:
		return a.handleHistoryKey(m)
	case viewDashboard:
		return a.handleDashboardKey(m)
	default:
		return a.handleConnectKey(m)
	}
}

func (a *App) handleConnectKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.String() {
	case "q":
		a.cancelWatch()
		return a, tea.Quit
	case "c", "enter":
		a.status = "requesting wallet authorization..."
		return a, a.connectCmd()
	case "o":
		a.state = viewSettings
		a.status = ""
	}
	return a, nil
}

func (a *App) handleDashboardKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.String() {
	case "q":
		a.cancelWatch()
		return a, tea.Quit
	case "r":
		a.status = ""
		return a, a.refreshDashboardCmd()
	case "s":
		a.state = viewSend
		a.status = ""
	case "h":
		a.state = viewHistory
		a.status = ""
		return a, a.refreshHistoryCmd()
	case "o":
		a.state = viewSettings
		a.status = ""
	case "x":
		return a, a.disconnectCmd()
	}
	return a, nil
}

func (a *App) handleHistoryKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.String() {
	case "q":
		a.cancelWatch()
		return a, tea.Quit
	case "d", "esc":
		a.state = viewDashboard
	case "r":
		return a, a.refreshHistoryCmd()
	}
	return a, nil
}

func (a *App) handleSendKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	if a.sending {
		return a, nil
	}
	switch m.Type {
	case tea.KeyEsc:
		a.state = viewDashboard
		a.status = ""
		return a, nil
	case tea.KeyTab, tea.KeyDown:
		a.focus = (a.focus + 1) % 3
		return a, nil
	case tea.KeyShiftTab, tea.KeyUp:
		a.focus = (a.focus + 2) % 3
		return a, nil
	case tea.KeyEnter:
		a.status = "sending..."
		return a, a.submitCmd()
	case tea.KeyBackspace, tea.KeyCtrlH, tea.KeyDelete:
		field := a.focusedField()
		if len(*field) > 0 {
			*field = (*field)[:len(*field)-1]
		}
		return a, nil
	case tea.KeySpace:
		a.appendToFocused(" ")
		return a, nil
	case tea.KeyRunes:
		a.appendToFocused(string(m.Runes))
		return a, nil
	}
	return a, nil
}

func (a *App) handleSettingsKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	if a.editingURL {
		switch m.Type {
		case tea.KeyEsc:
			a.editingURL = false
			a.inputBuffer = ""
		case tea.KeyEnter:
			a.cfg.Network.HorizonURL = strings.TrimSpace(a.inputBuffer)
			a.editingURL = false
			a.inputBuffer = ""
			a.status = "endpoint updated (w to save)"
		case tea.KeyBackspace, tea.KeyCtrlH, tea.KeyDelete:
			if len(a.inputBuffer) > 0 {
				a.inputBuffer = a.inputBuffer[:len(a.inputBuffer)-1]
			}
		case tea.KeyRunes:
			a.inputBuffer += string(m.Runes)
		}
		return a, nil
	}
	switch m.String() {
	case "q":
		a.cancelWatch()
		return a, tea.Quit
	case "d", "esc":
		if a.address != "" {
			a.state = viewDashboard
		} else {
			a.state = viewConnect
		}
		a.status = ""
	case "n":
		if a.cfg.Network.Name == config.NetworkTestnet {
			a.cfg.Network.Name = config.NetworkPublic
		} else {
			a.cfg.Network.Name = config.NetworkTestnet
		}
		a.status = "network changed (w to save, restart to apply)"
	case "e":
		a.editingURL = true
		a.inputBuffer = a.cfg.Network.HorizonURL
	case "w":
		return a, a.saveSettingsCmd()
	}
	return a, nil
}

func (a *App) focusedField() *string {
	switch a.focus {
	case fieldAmount:
		return &a.amount
	case fieldMemo:
		return &a.memo
	default:
		return &a.recipient
	}
}

func (a *App) appendToFocused(s string) {
	field := a.focusedField()
	next := *field + s
	if a.focus == fieldMemo && len(next) > memoInputCap {
		return
	}
	*field = next
}

// messages

type addressEventMsg walletkit.Event

type connectResultMsg struct {
	addr string
	err  error
}

type snapshotMsg struct {
	token string
	snap  service.Snapshot
}

type snapshotErrMsg struct {
	token string
	err   error
}

type historyMsg struct {
	token string
	recs  []service.TxRecord
}

type historyErrMsg struct {
	token string
	err   error
}

type submitResultMsg struct {
	receipt service.Receipt
	err     error
}

type statusMsg string

// styles

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Underline(true)
	sentStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	receivedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	faintStyle    = lipgloss.NewStyle().Faint(true)
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
)

// view

func (a *App) View() string {
	var body string
	switch a.state {
	case viewDashboard:
		body = a.renderDashboard()
	case viewSend:
		body = a.renderSend()
	case viewHistory:
		body = a.renderHistory()
	case viewSettings:
		body = a.renderSettings()
	default:
		body = a.renderConnect()
	}
	if a.status != "" {
		body += "\n" + a.status
	}
	return body
}

func (a *App) renderConnect() string {
	title := titleStyle.Render("Lumen Wallet")
	body := fmt.Sprintf("Network: %s\nNo wallet connected.\n[c] Connect wallet  [o] Settings  [q] Quit", a.cfg.Network.Name)
	return fmt.Sprintf("%s\n%s", title, body)
}

func (a *App) renderDashboard() string {
	title := titleStyle.Render("Wallet Dashboard")
	out := title + "\n"
	if a.fetchErr != "" {
		out += errorStyle.Render("Error: "+a.fetchErr) + "\n"
	}
	if a.loading && a.snapshot == nil {
		out += "Loading account data...\n"
	}
	if snap := a.snapshot; snap != nil {
		if snap.Balance != nil {
			out += fmt.Sprintf("Balance: %s %s\n", snap.Balance.Display, snap.Balance.Asset)
		}
		out += faintStyle.Render("Account: "+shorten(a.address, 8)) + "\n"
		out += "\nRecent Payments\n"
		if len(snap.Payments) == 0 {
			out += "No payments yet\n"
		}
		for _, p := range snap.Payments {
			var line string
			if p.Direction == service.DirectionSent {
				line = sentStyle.Render(fmt.Sprintf("Sent     -%s XLM", p.AmountDisplay))
				line += fmt.Sprintf("  to %s", shorten(p.Counterparty, 6))
			} else {
				line = receivedStyle.Render(fmt.Sprintf("Received +%s XLM", p.AmountDisplay))
				line += fmt.Sprintf("  from %s", shorten(p.Counterparty, 6))
			}
			line += "  " + faintStyle.Render(p.Time.Format(a.dateFormat))
			if p.Memo != "" {
				line += "\n  " + faintStyle.Render("Memo: "+p.Memo)
			}
			out += line + "\n"
		}
	}
	out += "\n[r] Refresh  [s] Send  [h] History  [o] Settings  [x] Disconnect  [q] Quit"
	return out
}

func (a *App) renderSend() string {
	title := titleStyle.Render("Send Payment")
	fields := []struct {
		label string
		value string
		field sendField
	}{
		{"Recipient", a.recipient, fieldRecipient},
		{"Amount (XLM)", a.amount, fieldAmount},
		{fmt.Sprintf("Memo (%d/%d)", len(a.memo), memoInputCap), a.memo, fieldMemo},
	}
	out := title + "\n"
	for _, f := range fields {
		marker := " "
		if f.field == a.focus {
			marker = "▶"
		}
		out += fmt.Sprintf("%s %-14s %s\n", marker, f.label+":", f.value)
	}
	if a.sending {
		out += "Sending...\n"
	}
	out += "[tab] Next field  [enter] Send  [esc] Back"
	return out
}

func (a *App) renderHistory() string {
	title := titleStyle.Render("Recent Transactions")
	out := title + "\n"
	if len(a.history) == 0 {
		out += "No transactions yet\n"
	}
	for _, tx := range a.history {
		status := "ok"
		if !tx.Successful {
			status = "failed"
		}
		line := fmt.Sprintf("%s  %s  %s", shorten(tx.Hash, 8), tx.Time.Format(a.dateFormat), status)
		if tx.Memo != "" {
			line += "  " + faintStyle.Render(tx.Memo)
		}
		out += line + "\n"
	}
	out += "[r] Refresh  [d] Dashboard  [q] Quit"
	return out
}

func (a *App) renderSettings() string {
	title := titleStyle.Render("Settings")
	out := title + "\n"
	out += fmt.Sprintf("Network:  %s\n", a.cfg.Network.Name)
	out += fmt.Sprintf("Horizon:  %s\n", a.cfg.Network.ResolvedHorizonURL())
	out += fmt.Sprintf("Wallet:   %s\n", a.cfg.Wallet.Kit)
	if a.editingURL {
		out += fmt.Sprintf("\nHorizon URL: %s\n[enter] Apply  [esc] Cancel", a.inputBuffer)
		return out
	}
	out += "\n[n] Toggle network  [e] Edit Horizon URL  [w] Save  [d] Back  [q] Quit"
	return out
}

// shorten renders an identifier as head…tail, enough to recognize, short
// enough for a row.
func shorten(s string, n int) string {
	if len(s) <= 2*n+1 {
		return s
	}
	return s[:n] + "…" + s[len(s)-n:]
}
