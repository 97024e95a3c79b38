package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/Mohsinsiddi/w3dash/internal/errs"
	"github.com/Mohsinsiddi/w3dash/internal/forms"
	"github.com/Mohsinsiddi/w3dash/internal/readcache"
	"github.com/Mohsinsiddi/w3dash/internal/session"
	"github.com/Mohsinsiddi/w3dash/internal/txflow"
)

// DashboardDeps wires the dashboard to the session, the read cache and the
// transaction flow.
type DashboardDeps struct {
	Session   *session.Store
	Picker    *session.Picker
	Cache     *readcache.Cache
	Flow      *txflow.Flow
	Approvals *Approvals // nil when requests are auto-approved
	Variant   forms.Variant
	Network   string
	Decimals  int
	Symbol    string
	Refresh   time.Duration // 0 disables periodic refresh
	Log       *zap.Logger
}

type itemKind int

const (
	itemConnect itemKind = iota
	itemCheck
	itemPanel
)

type dashItem struct {
	kind  itemKind
	panel forms.Panel
}

func (i dashItem) key() string {
	switch i.kind {
	case itemConnect:
		return "connect"
	case itemCheck:
		return "check"
	}
	return i.panel.Kind.String()
}

type (
	changedMsg   struct{}
	sessionMsg   session.Session
	connectedMsg struct{ err error }
	submittedMsg struct {
		kind txflow.Kind
		err  error
	}
	approvalMsg    approvalReq
	refreshTickMsg time.Time
)

// DashboardModel is the Bubble Tea model of the interactive dashboard: a
// connect button, live contract reads and one panel per operation.
type DashboardModel struct {
	d      DashboardDeps
	ctx    context.Context
	events chan tea.Msg
	unsubs []func()
	closed chan struct{}
	once   sync.Once

	sess    session.Session
	cursor  int
	editing bool
	field   int
	inputs  map[string][]string
	notice  map[string]string

	connectOpen   bool
	connectItems  []PickerItem
	connectCursor int
	connecting    bool
	connectErr    string

	checkAddr *common.Address
	approval  *approvalReq
	quitting  bool
}

// NewDashboard creates the model and subscribes it to its sources. Call
// Close when the program exits.
func NewDashboard(ctx context.Context, d DashboardDeps) *DashboardModel {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Decimals <= 0 {
		d.Decimals = forms.DefaultDecimals
	}
	m := &DashboardModel{
		d:      d,
		ctx:    ctx,
		events: make(chan tea.Msg, 64),
		closed: make(chan struct{}),
		sess:   d.Session.Current(),
		inputs: make(map[string][]string),
		notice: make(map[string]string),
	}
	m.unsubs = append(m.unsubs,
		d.Session.Subscribe(func(s session.Session) { m.push(sessionMsg(s)) }),
		d.Cache.Subscribe(func(readcache.ReadField) { m.push(changedMsg{}) }),
		d.Flow.Subscribe(func(txflow.PendingOperation) { m.push(changedMsg{}) }),
	)
	return m
}

// push never blocks; views read current state, so a dropped change
// notification only delays a redraw. Session changes are retried until the
// dashboard closes.
func (m *DashboardModel) push(msg tea.Msg) {
	select {
	case <-m.closed:
		return
	case m.events <- msg:
		return
	default:
	}
	if _, ok := msg.(sessionMsg); !ok {
		return
	}
	go func() {
		select {
		case m.events <- msg:
		case <-m.closed:
		case <-m.ctx.Done():
		}
	}()
}

// Close drops the subscriptions and releases pending event sends.
func (m *DashboardModel) Close() {
	m.once.Do(func() {
		for _, u := range m.unsubs {
			u()
		}
		m.unsubs = nil
		close(m.closed)
	})
}

// Run starts the Bubble Tea program and blocks until the user quits.
func (m *DashboardModel) Run() error {
	defer m.Close()
	_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(m.ctx)).Run()
	if errors.Is(err, tea.ErrProgramKilled) && m.ctx.Err() != nil {
		return nil
	}
	return err
}

func (m *DashboardModel) Init() tea.Cmd {
	cmds := []tea.Cmd{m.waitEvent(), m.refreshCmd(m.allRefs())}
	if m.d.Approvals != nil {
		cmds = append(cmds, m.waitApproval())
	}
	if m.d.Refresh > 0 {
		cmds = append(cmds, refreshTick(m.d.Refresh))
	}
	return tea.Batch(cmds...)
}

func (m *DashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case changedMsg:
		return m, m.waitEvent()

	case sessionMsg:
		prev := m.sess
		m.sess = session.Session(msg)
		m.clampCursor()
		cmds := []tea.Cmd{m.waitEvent()}
		if m.sess.Connected && (!prev.Connected || *prev.Address != *m.sess.Address) {
			cmds = append(cmds, m.refreshCmd(m.userRefs()))
		}
		return m, tea.Batch(cmds...)

	case connectedMsg:
		m.connecting = false
		if msg.err != nil {
			m.connectErr = msg.err.Error()
			return m, nil
		}
		m.connectErr = ""
		m.connectOpen = false
		return m, nil

	case submittedMsg:
		key := msg.kind.String()
		var ve *errs.ValidationError
		switch {
		case msg.err == nil:
			delete(m.notice, key)
		case errors.Is(msg.err, txflow.ErrOperationPending), errors.As(msg.err, &ve):
			m.notice[key] = msg.err.Error()
		default:
			// Failures after dispatch are on the operation itself.
			delete(m.notice, key)
		}
		return m, nil

	case approvalMsg:
		req := approvalReq(msg)
		m.approval = &req
		return m, nil

	case refreshTickMsg:
		return m, tea.Batch(m.refreshCmd(m.allRefs()), refreshTick(m.d.Refresh))
	}
	return m, nil
}

func (m *DashboardModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		m.quitting = true
		m.rejectApproval()
		return m, tea.Quit
	}
	switch {
	case m.approval != nil:
		return m.approvalKey(msg)
	case m.connectOpen:
		return m.connectKey(msg)
	case m.editing:
		return m.editKey(msg)
	}

	items := m.items()
	switch msg.String() {
	case "q":
		m.quitting = true
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(items)-1 {
			m.cursor++
		}
	case "r":
		return m, m.refreshCmd(m.allRefs())
	case "enter", " ":
		return m.activate(items[m.cursor])
	}
	return m, nil
}

func (m *DashboardModel) activate(it dashItem) (tea.Model, tea.Cmd) {
	switch it.kind {
	case itemConnect:
		if m.sess.Connected {
			m.d.Picker.Disconnect()
			return m, nil
		}
		m.connectItems = ConnectorItems(m.d.Picker.ListConnectors())
		m.connectCursor = 0
		m.connectErr = ""
		m.connectOpen = true
	case itemCheck:
		m.editing, m.field = true, 0
	case itemPanel:
		if len(it.panel.Fields) == 0 {
			return m, m.submit(it.panel)
		}
		m.editing, m.field = true, 0
	}
	return m, nil
}

func (m *DashboardModel) connectKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "q":
		m.connectOpen = false
	case "up", "k":
		if m.connectCursor > 0 {
			m.connectCursor--
		}
	case "down", "j":
		if m.connectCursor < len(m.connectItems)-1 {
			m.connectCursor++
		}
	case "enter", " ":
		if m.connecting || len(m.connectItems) == 0 {
			return m, nil
		}
		item := m.connectItems[m.connectCursor]
		if item.Disabled {
			m.connectErr = item.Label + " is not available: " + item.SubLabel
			return m, nil
		}
		m.connecting = true
		m.connectErr = ""
		pk, ctx := m.d.Picker, m.ctx
		return m, func() tea.Msg {
			_, err := pk.SelectConnector(ctx, item.Value)
			return connectedMsg{err: err}
		}
	}
	return m, nil
}

func (m *DashboardModel) editKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	it := m.items()[m.cursor]
	fields := m.fieldsOf(it)
	vals := m.values(it)

	switch msg.Type {
	case tea.KeyEsc:
		m.editing = false
	case tea.KeyTab, tea.KeyDown:
		if m.field < len(fields)-1 {
			m.field++
		}
	case tea.KeyShiftTab, tea.KeyUp:
		if m.field > 0 {
			m.field--
		}
	case tea.KeyBackspace:
		if r := []rune(vals[m.field]); len(r) > 0 {
			vals[m.field] = string(r[:len(r)-1])
		}
	case tea.KeyEnter:
		if m.field < len(fields)-1 {
			m.field++
			return m, nil
		}
		m.editing = false
		if it.kind == itemCheck {
			return m, m.check(vals[0])
		}
		return m, m.submit(it.panel)
	case tea.KeyRunes, tea.KeySpace:
		vals[m.field] += string(msg.Runes)
	}
	return m, nil
}

func (m *DashboardModel) approvalKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y", "enter":
		m.approval.reply <- true
	case "n", "N", "esc", "q":
		m.approval.reply <- false
	default:
		return m, nil
	}
	m.approval = nil
	return m, m.waitApproval()
}

func (m *DashboardModel) rejectApproval() {
	if m.approval != nil {
		m.approval.reply <- false
		m.approval = nil
	}
}

func (m *DashboardModel) submit(p forms.Panel) tea.Cmd {
	params := txflow.Params{}
	for i, f := range p.Fields {
		params[f.Name] = strings.TrimSpace(m.values(dashItem{kind: itemPanel, panel: p})[i])
	}
	flow, ctx, kind := m.d.Flow, m.ctx, p.Kind
	m.notice[kind.String()] = ""
	return func() tea.Msg {
		_, err := flow.Submit(ctx, kind, params)
		return submittedMsg{kind: kind, err: err}
	}
}

func (m *DashboardModel) check(input string) tea.Cmd {
	addr, err := forms.ParseAddress(forms.CheckBalance.Name, input)
	if err != nil {
		m.notice["check"] = err.Error()
		m.checkAddr = nil
		return nil
	}
	delete(m.notice, "check")
	m.checkAddr = &addr
	return m.refreshCmd([]readcache.Ref{readcache.R(readcache.BalanceOf, addr)})
}

func (m *DashboardModel) items() []dashItem {
	items := []dashItem{{kind: itemConnect}}
	if m.d.Variant.CheckBalance {
		items = append(items, dashItem{kind: itemCheck})
	}
	isOwner := m.sess.Connected && m.sess.Address != nil && m.d.Variant.IsOwner(*m.sess.Address)
	for _, p := range m.d.Variant.Panels(isOwner) {
		if (p.Kind == txflow.Claim || p.Kind == txflow.Fund) && !m.d.Cache.HasFaucet() {
			continue
		}
		items = append(items, dashItem{kind: itemPanel, panel: p})
	}
	return items
}

func (m *DashboardModel) clampCursor() {
	if n := len(m.items()); m.cursor >= n {
		m.cursor = n - 1
	}
}

func (m *DashboardModel) fieldsOf(it dashItem) []forms.FieldDef {
	if it.kind == itemCheck {
		return []forms.FieldDef{forms.CheckBalance}
	}
	return it.panel.Fields
}

func (m *DashboardModel) values(it dashItem) []string {
	key := it.key()
	vals, ok := m.inputs[key]
	if !ok || len(vals) != len(m.fieldsOf(it)) {
		vals = make([]string, len(m.fieldsOf(it)))
		m.inputs[key] = vals
	}
	return vals
}

func (m *DashboardModel) allRefs() []readcache.Ref {
	var refs []readcache.Ref
	for _, f := range readcache.TokenFields {
		refs = append(refs, readcache.R(f))
	}
	if m.d.Cache.HasFaucet() {
		for _, f := range readcache.FaucetFields {
			refs = append(refs, readcache.R(f))
		}
	}
	refs = append(refs, m.userRefs()...)
	if m.checkAddr != nil {
		refs = append(refs, readcache.R(readcache.BalanceOf, *m.checkAddr))
	}
	return refs
}

func (m *DashboardModel) userRefs() []readcache.Ref {
	if !m.sess.Connected || m.sess.Address == nil {
		return nil
	}
	self := *m.sess.Address
	refs := []readcache.Ref{readcache.R(readcache.BalanceOf, self)}
	if m.d.Cache.HasFaucet() {
		refs = append(refs, readcache.R(readcache.CanClaim, self), readcache.R(readcache.LastClaimTime, self))
	}
	return refs
}

func (m *DashboardModel) refreshCmd(refs []readcache.Ref) tea.Cmd {
	if len(refs) == 0 {
		return nil
	}
	cache, ctx, log := m.d.Cache, m.ctx, m.d.Log
	return func() tea.Msg {
		if err := cache.RefreshMany(ctx, refs); err != nil {
			log.Debug("dashboard refresh", zap.Error(err))
		}
		return changedMsg{}
	}
}

func (m *DashboardModel) waitEvent() tea.Cmd {
	ch := m.events
	return func() tea.Msg { return <-ch }
}

func (m *DashboardModel) waitApproval() tea.Cmd {
	if m.d.Approvals == nil {
		return nil
	}
	ch := m.d.Approvals.reqs
	return func() tea.Msg { return approvalMsg(<-ch) }
}

func refreshTick(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg { return refreshTickMsg(t) })
}

// --- view ---

func (m *DashboardModel) View() string {
	if m.quitting {
		return ""
	}
	var sb strings.Builder
	title := fmt.Sprintf("⚡ w3dash · %s", m.d.Variant.Name)
	if m.d.Network != "" {
		title += " · " + m.d.Network
	}
	sb.WriteString(StyleTitle.Render(title) + "\n")

	switch {
	case m.approval != nil:
		sb.WriteString(TxPreview(m.approval.req) + "\n")
		sb.WriteString(StyleWarning.Render("Sign and broadcast this transaction?") + "  " + Meta("[ y ] sign   [ n ] reject") + "\n")
		return sb.String()
	case m.connectOpen:
		sb.WriteString(m.connectView())
		return sb.String()
	}

	sb.WriteString(m.readsView() + "\n")
	for i, it := range m.items() {
		sb.WriteString(m.itemView(it, i == m.cursor) + "\n")
	}

	help := "[ ↑↓ ] move   [ Enter ] open   [ r ] refresh   [ q ] quit"
	if m.editing {
		help = "[ Tab ] next field   [ Enter ] submit   [ Esc ] back"
	}
	sb.WriteString(StyleMeta.Render(help) + "\n")
	return sb.String()
}

func (m *DashboardModel) connectView() string {
	var sb strings.Builder
	sb.WriteString(StyleHeader.Render("Connect Wallet") + "\n\n")
	sb.WriteString(renderItems(m.connectItems, m.connectCursor))
	if m.connecting {
		sb.WriteString("\n" + StyleWarning.Render("Connecting...") + "\n")
	}
	if m.connectErr != "" {
		sb.WriteString("\n" + Err(m.connectErr) + "\n")
	}
	sb.WriteString("\n" + StyleMeta.Render("[ Enter ] connect   [ Esc ] back") + "\n")
	return sb.String()
}

func (m *DashboardModel) fieldView(f readcache.Field, args ...common.Address) string {
	rf, _ := m.d.Cache.Read(f, args...)
	return FieldText(rf, m.d.Decimals, m.symbol())
}

func (m *DashboardModel) symbol() string {
	if m.d.Symbol != "" {
		return m.d.Symbol
	}
	if rf, _ := m.d.Cache.Read(readcache.Symbol); rf.Fetched() {
		if s, ok := rf.Value.(string); ok {
			return s
		}
	}
	return ""
}

func (m *DashboardModel) readsView() string {
	pairs := [][2]string{
		{"Name", m.fieldView(readcache.Name)},
		{"Symbol", m.fieldView(readcache.Symbol)},
		{"Total Supply", m.fieldView(readcache.TotalSupply)},
		{"Owner", m.fieldView(readcache.Owner)},
	}
	if m.sess.Connected && m.sess.Address != nil {
		pairs = append(pairs, [2]string{"Your Balance", m.fieldView(readcache.BalanceOf, *m.sess.Address)})
	}
	if m.d.Cache.HasFaucet() {
		pairs = append(pairs,
			[2]string{"Faucet Balance", m.fieldView(readcache.FaucetBalance)},
			[2]string{"Claim Amount", m.fieldView(readcache.ClaimAmount)},
			[2]string{"Cooldown", m.fieldView(readcache.Cooldown)},
		)
		if m.sess.Connected && m.sess.Address != nil {
			pairs = append(pairs,
				[2]string{"Can Claim", m.fieldView(readcache.CanClaim, *m.sess.Address)},
				[2]string{"Last Claim", m.fieldView(readcache.LastClaimTime, *m.sess.Address)},
			)
		}
	}
	return KeyValueBlock("Token", pairs)
}

func (m *DashboardModel) itemView(it dashItem, focused bool) string {
	var sb strings.Builder
	cursor := "  "
	if focused {
		cursor = "▸ "
	}

	switch it.kind {
	case itemConnect:
		if m.sess.Connected && m.sess.Address != nil {
			line := Addr(TruncateAddr(m.sess.Address.Hex())) + " " + Meta("via "+m.sess.Connector)
			if m.sess.ChainID != nil {
				line += Meta(fmt.Sprintf(" · chain %d", *m.sess.ChainID))
			}
			if m.d.Variant.IsOwner(*m.sess.Address) {
				line += " " + OwnerBadge()
			}
			sb.WriteString(cursor + line + "  " + button("Disconnect", focused) + "\n")
		} else {
			sb.WriteString(cursor + button("Connect Wallet", focused) + "\n")
		}
		return sb.String()

	case itemCheck:
		sb.WriteString(cursor + StyleHeader.Render("Check Balance") + "\n")
		sb.WriteString(m.inputsView(it, focused))
		if m.checkAddr != nil {
			sb.WriteString("    " + Meta(TruncateAddr(m.checkAddr.Hex())+": ") + m.fieldView(readcache.BalanceOf, *m.checkAddr) + "\n")
		}
		if n := m.notice["check"]; n != "" {
			sb.WriteString("    " + Err(n) + "\n")
		}
		sb.WriteString("    " + button("Check Balance", focused && !m.editing) + "\n")
		return sb.String()
	}

	p := it.panel
	op := m.d.Flow.Status(p.Kind)
	sb.WriteString(cursor + StyleHeader.Render(p.Title) + "\n")
	sb.WriteString(m.inputsView(it, focused))
	sb.WriteString("    " + button(forms.ButtonLabel(p, op.Status), focused && !m.editing))
	if op.Hash != "" {
		sb.WriteString("  " + Meta("tx "+forms.ShortHash(op.Hash)))
	}
	sb.WriteString("\n")
	if line := forms.StatusLine(op); line != "" {
		sb.WriteString("    " + StatusStyle(op.Status).Render(line) + "\n")
	}
	if n := m.notice[p.Kind.String()]; n != "" {
		sb.WriteString("    " + Err(n) + "\n")
	}
	return sb.String()
}

func (m *DashboardModel) inputsView(it dashItem, focused bool) string {
	var sb strings.Builder
	vals := m.values(it)
	for i, f := range m.fieldsOf(it) {
		v := vals[i]
		shown := StyleValue.Render(v)
		if v == "" {
			shown = StyleDim.Render(f.Placeholder)
		}
		if focused && m.editing && i == m.field {
			shown = StyleAddress.Render(v) + "█"
		}
		sb.WriteString("    " + padR(StyleMeta.Render(f.Label+":"), 12) + " " + shown + "\n")
	}
	return sb.String()
}

func button(label string, focused bool) string {
	if focused {
		return StyleSelected.Render("[ " + label + " ]")
	}
	return StyleChain.Render("[ " + label + " ]")
}
