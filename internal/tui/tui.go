package tui

import (
	"context"
	"fmt"
	"strings"

	goerrors "github.com/go-errors/errors"
	"github.com/jesseduffield/gocui"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/Joseda-hg/lazyboard/internal/apperr"
	"github.com/Joseda-hg/lazyboard/internal/model"
	"github.com/Joseda-hg/lazyboard/internal/notify"
	"github.com/Joseda-hg/lazyboard/internal/task"
)

const (
	viewHeader  = "header"
	viewFooter  = "footer"
	viewDetail  = "detail"
	viewHistory = "history"
	viewForm    = "form"
	viewHelp    = "help"

	columnViewPrefix = "column:"
)

// Options configures Run. Redis enables live refresh from other processes.
type Options struct {
	Agent   string
	Redis   *redis.Client
	Channel string
	Log     *logrus.Entry
}

type UI struct {
	ctx    context.Context
	engine *task.Engine
	gui    *gocui.Gui
	agent  string
	log    *logrus.Entry

	columns      []model.Column
	tasks        map[string][]model.Task
	history      []model.HistoryEntry
	selectedCol  int
	selectedRow  map[string]int
	showArchived bool

	form       *formState
	formEditor *formEditor
	helpActive bool
	status     string
}

type formState struct {
	mode   formMode
	task   *model.Task
	column string
	fields []formField
	index  int
	force  bool
}

type formEditor struct {
	ui *UI
}

func newUI(ctx context.Context, engine *task.Engine, opts Options) *UI {
	log := opts.Log
	if log == nil {
		log = logrus.WithField("component", "tui")
	}
	agent := opts.Agent
	if agent == "" {
		agent = engine.DefaultAgent()
	}
	ui := &UI{
		ctx:         task.ContextWithActor(ctx, agent),
		engine:      engine,
		agent:       agent,
		log:         log,
		tasks:       map[string][]model.Task{},
		selectedRow: map[string]int{},
	}
	ui.formEditor = &formEditor{ui: ui}
	return ui
}

// Run shows the board until the user quits or ctx ends.
func Run(ctx context.Context, engine *task.Engine, opts Options) error {
	gui, err := gocui.NewGui(gocui.NewGuiOpts{OutputMode: gocui.OutputNormal})
	if err != nil {
		return err
	}
	defer gui.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ui := newUI(ctx, engine, opts)
	ui.gui = gui
	gui.Mouse = true

	gui.SetManagerFunc(ui.layout)
	if err := ui.bindKeys(gui); err != nil {
		return err
	}
	if err := ui.loadTasks(); err != nil {
		return err
	}

	if opts.Redis != nil {
		sub, err := notify.Subscribe(ctx, opts.Redis, opts.Channel, ui.log)
		if err != nil {
			ui.log.WithError(err).Warn("live refresh disabled")
			ui.status = "live refresh unavailable"
		} else {
			defer sub.Close()
			go sub.Run(ctx, ui.onEvent)
		}
	}

	if err := gui.MainLoop(); err != nil && !goerrors.Is(err, gocui.ErrQuit) {
		return err
	}
	return nil
}

// onEvent reloads the board when another process changes it.
func (u *UI) onEvent(ev notify.Event) {
	u.log.WithFields(logrus.Fields{"type": ev.Type, "task_id": ev.TaskID}).Debug("board changed")
	u.gui.Update(func(*gocui.Gui) error {
		if u.form != nil {
			return nil
		}
		return u.loadTasks()
	})
}

func (u *UI) bindKeys(gui *gocui.Gui) error {
	global := []struct {
		key     any
		handler func(*gocui.Gui, *gocui.View) error
	}{
		{gocui.KeyCtrlC, u.forceQuit},
		{'q', u.quit},
		{'r', u.reload},
		{'?', u.toggleHelp},
		{'h', u.prevColumn},
		{gocui.KeyArrowLeft, u.prevColumn},
		{'l', u.nextColumn},
		{gocui.KeyArrowRight, u.nextColumn},
		{'j', u.moveDown},
		{gocui.KeyArrowDown, u.moveDown},
		{'k', u.moveUp},
		{gocui.KeyArrowUp, u.moveUp},
		{'a', u.addTask},
		{'e', u.editTask},
		{'m', u.moveNext},
		{'n', u.moveNext},
		{'p', u.movePrev},
		{'M', u.forceMoveNext},
		{'x', u.markDone},
		{'b', u.toggleBlocked},
		{'A', u.archiveTask},
		{'v', u.toggleArchived},
		{'R', u.restoreTask},
		{'d', u.deleteTask},
	}
	for _, kb := range global {
		if err := gui.SetKeybinding("", kb.key, gocui.ModNone, kb.handler); err != nil {
			return err
		}
	}

	if err := gui.SetKeybinding(viewForm, gocui.KeyEnter, gocui.ModNone, u.submitForm); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewForm, gocui.KeyCtrlJ, gocui.ModNone, u.submitForm); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewForm, gocui.KeyTab, gocui.ModNone, u.nextFormField); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewForm, gocui.KeyBacktab, gocui.ModNone, u.prevFormField); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewForm, gocui.KeyArrowDown, gocui.ModNone, u.nextFormField); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewForm, gocui.KeyArrowUp, gocui.ModNone, u.prevFormField); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewForm, gocui.KeyEsc, gocui.ModNone, u.cancelForm); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewHelp, gocui.KeyEsc, gocui.ModNone, u.closeHelp); err != nil {
		return err
	}
	return nil
}

func columnView(id string) string {
	return columnViewPrefix + id
}

func (u *UI) layout(gui *gocui.Gui) error {
	maxX, maxY := gui.Size()
	if maxX <= 0 || maxY <= 0 {
		return nil
	}

	headerView, err := gui.SetView(viewHeader, 0, 0, maxX-1, 0, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	headerView.Frame = false
	headerView.FgColor = gocui.ColorDefault
	u.renderHeader(headerView)

	footerY1 := max(maxY-2, 1)
	footerY0 := max(footerY1-2, 1)
	footerView, err := gui.SetView(viewFooter, 0, footerY0, maxX-1, footerY1, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	footerView.Frame = false
	footerView.Wrap = true
	footerView.FgColor = gocui.ColorDefault | gocui.AttrDim
	u.renderFooter(footerView)

	bodyTop := 1
	bodyBottom := footerY0 - 1
	if bodyBottom <= bodyTop || len(u.columns) == 0 {
		return nil
	}

	l := computeLayout(maxX, bodyBottom-bodyTop+1, len(u.columns))
	boardBottom := bodyTop + l.boardHeight - 1
	for i, col := range u.columns {
		x0 := i * l.columnWidth
		x1 := x0 + l.columnWidth - 1
		if i == len(u.columns)-1 {
			x1 = maxX - 1
		}
		view, err := gui.SetView(columnView(col.ID), x0, bodyTop, x1, boardBottom, 0)
		if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
			return err
		}
		focused := i == u.selectedCol
		tasks := u.tasks[col.ID]
		view.Title = columnTitle(i, col, len(tasks))
		applyViewStyle(view, focused)
		if atLimit(col, len(tasks)) {
			view.TitleColor = gocui.ColorYellow
		}
		u.renderColumn(view, col, focused)
	}

	detailY0 := boardBottom + 1
	mid := maxX / 2
	detailView, err := gui.SetView(viewDetail, 0, detailY0, mid-1, bodyBottom, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		detailView.Title = "Task"
		detailView.Wrap = true
	}
	u.renderDetail(detailView)

	historyView, err := gui.SetView(viewHistory, mid, detailY0, maxX-1, bodyBottom, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		historyView.Title = "History"
	}
	u.renderHistory(historyView)

	_, _ = gui.SetViewOnTop(viewHeader)
	_, _ = gui.SetViewOnTop(viewFooter)

	if u.helpActive {
		if err := u.showHelp(gui); err != nil {
			return err
		}
	} else {
		_ = gui.DeleteView(viewHelp)
	}

	if u.form != nil {
		if err := u.showForm(gui); err != nil {
			return err
		}
	} else {
		_ = gui.DeleteView(viewForm)
	}

	if !u.inputActive() {
		if col := u.currentColumn(); col != nil {
			_, _ = gui.SetCurrentView(columnView(col.ID))
		}
	}
	gui.Cursor = u.form != nil
	return nil
}

type boardLayout struct {
	columnWidth int
	boardHeight int
}

func computeLayout(width, height, columns int) boardLayout {
	columns = max(columns, 1)
	columnWidth := max(width/columns, 12)

	boardHeight := int(float64(height) * 0.6)
	if boardHeight < 5 {
		boardHeight = min(5, height)
	}
	if height-boardHeight < 4 && height >= 9 {
		boardHeight = height - 4
	}
	return boardLayout{columnWidth: columnWidth, boardHeight: boardHeight}
}

// loadTasks refreshes columns and tasks, keeping selections in range.
func (u *UI) loadTasks() error {
	columns, err := u.engine.Directory().GetColumns(u.ctx)
	if err != nil {
		return err
	}
	archived := u.showArchived
	tasks, err := u.engine.ListTasks(u.ctx, model.TaskFilter{Archived: &archived})
	if err != nil {
		return err
	}

	u.columns = columns
	u.tasks = groupByColumn(columns, tasks)
	if u.selectedCol >= len(u.columns) {
		u.selectedCol = max(len(u.columns)-1, 0)
	}
	for id, rows := range u.tasks {
		if u.selectedRow[id] >= len(rows) {
			u.selectedRow[id] = max(len(rows)-1, 0)
		}
	}
	return u.loadHistory()
}

func (u *UI) loadHistory() error {
	selected := u.selectedTask()
	if selected == nil {
		u.history = nil
		return nil
	}
	history, err := u.engine.History(u.ctx, selected.ID)
	if err != nil {
		return err
	}
	u.history = history
	return nil
}

func (u *UI) currentColumn() *model.Column {
	if u.selectedCol >= 0 && u.selectedCol < len(u.columns) {
		return &u.columns[u.selectedCol]
	}
	return nil
}

func (u *UI) selectedTask() *model.Task {
	col := u.currentColumn()
	if col == nil {
		return nil
	}
	rows := u.tasks[col.ID]
	index := u.selectedRow[col.ID]
	if index >= 0 && index < len(rows) {
		return &rows[index]
	}
	return nil
}

func (u *UI) renderHeader(view *gocui.View) {
	view.Clear()
	mode := "active"
	if u.showArchived {
		mode = "archived"
	}
	fmt.Fprintf(view, "lazyboard | agent: %s | showing: %s", u.agent, mode)
}

func (u *UI) renderFooter(view *gocui.View) {
	view.Clear()
	view.SetOrigin(0, 0)
	fmt.Fprintln(view, "h/l column | j/k select | a add | e edit | m/n next | p prev | M force next | x done | b block")
	fmt.Fprintln(view, "A archive | v archived view | R restore | d delete | r reload | ? help | q quit")
	if u.status != "" {
		fmt.Fprint(view, u.status)
	}
}

func (u *UI) renderColumn(view *gocui.View, col model.Column, focused bool) {
	view.Clear()
	rows := u.tasks[col.ID]
	selected := u.selectedRow[col.ID]
	for i, t := range rows {
		prefix := " "
		if i == selected && focused {
			prefix = ">"
		}
		fmt.Fprintf(view, "%s [%s] %s\n", prefix, shortID(t.ID), formatTaskSummary(t))
	}
	if focused && len(rows) > 0 {
		view.SetCursor(0, min(selected, len(rows)-1))
	}
}

func (u *UI) renderDetail(view *gocui.View) {
	view.Clear()
	selected := u.selectedTask()
	if selected == nil {
		fmt.Fprint(view, "No task selected")
		return
	}
	name := selected.ColumnID
	if col := u.currentColumn(); col != nil {
		name = col.Name
	}
	fmt.Fprint(view, strings.Join(detailLines(*selected, name), "\n"))
}

func (u *UI) renderHistory(view *gocui.View) {
	view.Clear()
	for _, entry := range u.history {
		fmt.Fprintf(view, "%s | %s | %s | %s\n", formatTime(&entry.CreatedAt), entry.Actor, entry.EventType, entry.Details)
	}
}

func (u *UI) nextColumn(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	if u.selectedCol < len(u.columns)-1 {
		u.selectedCol++
		return u.loadHistory()
	}
	return nil
}

func (u *UI) prevColumn(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	if u.selectedCol > 0 {
		u.selectedCol--
		return u.loadHistory()
	}
	return nil
}

func (u *UI) moveDown(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	col := u.currentColumn()
	if col == nil {
		return nil
	}
	if u.selectedRow[col.ID] < len(u.tasks[col.ID])-1 {
		u.selectedRow[col.ID]++
		return u.loadHistory()
	}
	return nil
}

func (u *UI) moveUp(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	col := u.currentColumn()
	if col == nil {
		return nil
	}
	if u.selectedRow[col.ID] > 0 {
		u.selectedRow[col.ID]--
		return u.loadHistory()
	}
	return nil
}

func (u *UI) reload(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	u.status = ""
	return u.loadTasks()
}

// report turns a business error into a status line. Other errors end the loop.
func (u *UI) report(err error) error {
	if err == nil {
		u.status = ""
		return u.loadTasks()
	}
	if apperr.KindOf(err) == apperr.KindInternal {
		u.log.WithError(err).Error("board operation failed")
	}
	u.status = apperr.Message(err)
	return nil
}

func (u *UI) moveNext(_ *gocui.Gui, _ *gocui.View) error {
	return u.moveSelected(1, false)
}

func (u *UI) forceMoveNext(_ *gocui.Gui, _ *gocui.View) error {
	return u.moveSelected(1, true)
}

func (u *UI) movePrev(_ *gocui.Gui, _ *gocui.View) error {
	return u.moveSelected(-1, false)
}

// moveSelected moves the selected task step columns along and follows it.
func (u *UI) moveSelected(step int, force bool) error {
	if u.inputActive() || u.showArchived {
		return nil
	}
	selected := u.selectedTask()
	if selected == nil {
		return nil
	}
	target := u.selectedCol + step
	if target < 0 || target >= len(u.columns) {
		u.status = "No column in that direction"
		return nil
	}
	moved, err := u.engine.MoveTask(u.ctx, selected.ID, u.columns[target].ID, model.MoveOptions{Force: force, Actor: u.agent})
	if err != nil {
		return u.report(err)
	}
	u.selectedCol = target
	if err := u.report(nil); err != nil {
		return err
	}
	u.selectTask(moved.ID)
	return u.loadHistory()
}

func (u *UI) selectTask(id string) {
	col := u.currentColumn()
	if col == nil {
		return
	}
	for i, t := range u.tasks[col.ID] {
		if t.ID == id {
			u.selectedRow[col.ID] = i
			return
		}
	}
}

func (u *UI) markDone(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() || u.showArchived {
		return nil
	}
	selected := u.selectedTask()
	if selected == nil {
		return nil
	}
	terminal, err := u.engine.Directory().GetTerminalColumn(u.ctx)
	if err != nil {
		return err
	}
	if terminal == nil {
		u.status = "No terminal column configured"
		return nil
	}
	_, err = u.engine.MoveTask(u.ctx, selected.ID, terminal.ID, model.MoveOptions{Actor: u.agent})
	return u.report(err)
}

func (u *UI) toggleBlocked(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() || u.showArchived {
		return nil
	}
	selected := u.selectedTask()
	if selected == nil {
		return nil
	}
	if selected.Blocked() {
		version := selected.Version
		_, err := u.engine.SetBlocked(u.ctx, selected.ID, nil, &version)
		return u.report(err)
	}
	current := *selected
	u.form = &formState{mode: formBlock, task: &current, fields: buildBlockFormFields(current)}
	return nil
}

func (u *UI) archiveTask(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() || u.showArchived {
		return nil
	}
	selected := u.selectedTask()
	if selected == nil {
		return nil
	}
	_, err := u.engine.ArchiveTasks(u.ctx, model.ArchiveCriteria{TaskIDs: []string{selected.ID}})
	return u.report(err)
}

func (u *UI) toggleArchived(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	u.showArchived = !u.showArchived
	u.status = ""
	return u.loadTasks()
}

func (u *UI) restoreTask(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() || !u.showArchived {
		return nil
	}
	selected := u.selectedTask()
	if selected == nil {
		return nil
	}
	_, err := u.engine.RestoreTask(u.ctx, selected.ID, "")
	return u.report(err)
}

func (u *UI) deleteTask(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	selected := u.selectedTask()
	if selected == nil {
		return nil
	}
	return u.report(u.engine.DeleteTask(u.ctx, selected.ID))
}

func (u *UI) addTask(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() || u.showArchived {
		return nil
	}
	col := u.currentColumn()
	if col == nil {
		return nil
	}
	u.form = &formState{mode: formAdd, column: col.ID, fields: buildTaskFormFields(nil)}
	return nil
}

func (u *UI) editTask(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	selected := u.selectedTask()
	if selected == nil {
		return nil
	}
	current := *selected
	u.form = &formState{mode: formEdit, task: &current, fields: buildTaskFormFields(&current)}
	return nil
}

func (u *UI) showForm(gui *gocui.Gui) error {
	if u.form == nil {
		return nil
	}

	maxX, maxY := gui.Size()
	width := max(60, maxX/2)
	height := len(u.form.fields) + 2
	x0 := (maxX - width) / 2
	y0 := (maxY - height) / 2

	view, err := gui.SetView(viewForm, x0, y0, x0+width, y0+height, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		view.Wrap = true
	}
	switch u.form.mode {
	case formEdit:
		view.Title = "Edit Task"
	case formBlock:
		view.Title = "Block Task"
	default:
		view.Title = "New Task"
	}
	view.Editable = true
	view.KeybindOnEdit = true
	view.Editor = u.formEditor
	u.renderForm(view)
	_, _ = gui.SetCurrentView(viewForm)
	return nil
}

// submitForm saves the form. Edits carry the version the form was opened
// with, so a concurrent change is reported instead of overwritten.
func (u *UI) submitForm(gui *gocui.Gui, _ *gocui.View) error {
	if u.form == nil {
		return nil
	}

	var err error
	switch u.form.mode {
	case formAdd:
		in := addInputFromForm(u.form.fields, u.form.column, u.agent)
		var result model.CheckedAddResult
		result, err = u.engine.AddTaskChecked(u.ctx, in, model.CheckedAddOptions{Force: u.form.force})
		if err == nil && result.Rejected {
			u.form.force = true
			u.status = result.RejectionReason + ". Press enter again to create anyway"
			return nil
		}
	case formEdit:
		patch := patchFromForm(*u.form.task, u.form.fields)
		if !patch.Empty() {
			version := u.form.task.Version
			_, err = u.engine.UpdateTask(u.ctx, u.form.task.ID, patch, &version)
		}
	case formBlock:
		reason := strings.TrimSpace(u.form.fields[0].Value)
		if reason == "" {
			u.status = "Blocked reason cannot be empty"
			return nil
		}
		version := u.form.task.Version
		_, err = u.engine.SetBlocked(u.ctx, u.form.task.ID, &reason, &version)
	}
	if err != nil {
		return u.report(err)
	}

	u.closeForm(gui)
	return u.report(nil)
}

func (u *UI) cancelForm(gui *gocui.Gui, _ *gocui.View) error {
	u.closeForm(gui)
	u.status = ""
	return nil
}

func (u *UI) closeForm(gui *gocui.Gui) {
	u.form = nil
	if gui == nil {
		return
	}
	_ = gui.DeleteView(viewForm)
	if col := u.currentColumn(); col != nil {
		_, _ = gui.SetCurrentView(columnView(col.ID))
	}
}

func (u *UI) nextFormField(_ *gocui.Gui, view *gocui.View) error {
	if u.form == nil {
		return nil
	}
	if u.form.index < len(u.form.fields)-1 {
		u.form.index++
	}
	u.renderForm(view)
	return nil
}

func (u *UI) prevFormField(_ *gocui.Gui, view *gocui.View) error {
	if u.form == nil {
		return nil
	}
	if u.form.index > 0 {
		u.form.index--
	}
	u.renderForm(view)
	return nil
}

func (u *UI) renderForm(view *gocui.View) {
	if u.form == nil || view == nil {
		return
	}
	view.Clear()
	for index, field := range u.form.fields {
		prefix := "  "
		if index == u.form.index {
			prefix = "> "
		}
		fmt.Fprintf(view, "%s%s: %s\n", prefix, field.Label, field.Value)
	}
	label := u.form.fields[u.form.index].Label + ": "
	cursorX := len([]rune(label)) + len([]rune(u.form.fields[u.form.index].Value)) + 2
	view.SetCursor(cursorX, u.form.index)
}

func (e *formEditor) Edit(view *gocui.View, key gocui.Key, ch rune, mod gocui.Modifier) bool {
	ui := e.ui
	if ui == nil || ui.form == nil || view == nil {
		return false
	}
	field := &ui.form.fields[ui.form.index]

	switch key {
	case gocui.KeyBackspace, gocui.KeyBackspace2:
		runes := []rune(field.Value)
		if len(runes) > 0 {
			field.Value = string(runes[:len(runes)-1])
		}
	case gocui.KeySpace:
		field.Value += " "
	case gocui.KeyCtrlU:
		field.Value = ""
	}

	if ch != 0 && ch != '\n' && ch != '\r' && mod == 0 {
		field.Value += string(ch)
	}
	if ui.form.mode == formAdd && ui.form.index == fieldTitle {
		ui.form.force = false
	}

	ui.renderForm(view)
	return true
}

func (u *UI) toggleHelp(_ *gocui.Gui, _ *gocui.View) error {
	if u.form != nil {
		return nil
	}
	u.helpActive = !u.helpActive
	return nil
}

func (u *UI) closeHelp(gui *gocui.Gui, _ *gocui.View) error {
	u.helpActive = false
	if gui != nil {
		_ = gui.DeleteView(viewHelp)
	}
	return nil
}

func (u *UI) showHelp(gui *gocui.Gui) error {
	maxX, maxY := gui.Size()
	width := max(60, maxX/2)
	height := 20
	x0 := (maxX - width) / 2
	y0 := (maxY - height) / 2

	view, err := gui.SetView(viewHelp, x0, y0, x0+width, y0+height, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		view.Title = "Help"
		view.Wrap = true
	}
	view.Clear()
	fmt.Fprint(view, helpText())
	_, _ = gui.SetCurrentView(viewHelp)
	return nil
}

func (u *UI) inputActive() bool {
	return u.form != nil || u.helpActive
}

func (u *UI) quit(gui *gocui.Gui, v *gocui.View) error {
	if u.helpActive {
		return u.closeHelp(gui, v)
	}
	if u.form != nil {
		return nil
	}
	return gocui.ErrQuit
}

func (u *UI) forceQuit(_ *gocui.Gui, _ *gocui.View) error {
	return gocui.ErrQuit
}

func helpText() string {
	return strings.Join([]string{
		"Navigation:",
		"  h/l or left/right  change column",
		"  j/k or up/down     select task",
		"",
		"Tasks:",
		"  a add | e edit | d delete",
		"  m/n move to next column | p move to previous column",
		"  M force move past the WIP limit",
		"  x move to the terminal column",
		"  b block (asks for a reason) or unblock",
		"",
		"Archive:",
		"  A archive task | v toggle archived view | R restore (archived view)",
		"",
		"Form:",
		"  tab/arrows change field | enter save | esc cancel | ctrl+u clear field",
		"",
		"Other:",
		"  r reload | ? help | esc/q close help | q quit",
	}, "\n")
}

func applyViewStyle(view *gocui.View, focused bool) {
	view.Frame = true
	view.Highlight = focused
	view.SelBgColor = gocui.ColorBlue
	view.SelFgColor = gocui.ColorBlack
	view.TitleColor = gocui.ColorDefault
	if focused {
		view.FrameColor = gocui.ColorCyan
		view.TitleColor = gocui.ColorCyan
	} else {
		view.FrameColor = gocui.ColorDefault
	}
}
