// Package bot turns chat interactions into digest replies and pending
// action transitions. Handler is independent of the chat transport; the
// Discord adapter lives in discord.go.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/harrisonrobin/agenda/pkg/actions"
	"github.com/harrisonrobin/agenda/pkg/apperr"
	"github.com/harrisonrobin/agenda/pkg/digest"
	"github.com/harrisonrobin/agenda/pkg/logging"
	"github.com/harrisonrobin/agenda/pkg/model"
	"github.com/harrisonrobin/agenda/pkg/pending"
	"github.com/harrisonrobin/agenda/pkg/util"
)

const (
	eveningReplyLimit = 1900
	maxSelectOptions  = 25
	targetDateInput   = "target_date"

	msgGenericFailure = "Action failed. Check logs and try again."
	msgNoTasks        = "No actionable evening tasks found."
	msgSweep          = "Sweep confirmed. No task changes were made."
	msgEveningFooter  = "Choose an action below to update your tasks safely."
)

// Custom id prefixes carried by buttons, selects and modals.
const (
	prefixEvening    = "evening"
	prefixTaskSelect = "taskselect"
	prefixDeferDays  = "deferdays"
	prefixModal      = "reschedulemodal"
	prefixConfirm    = "confirm"
	prefixCancel     = "cancel"
	sweep            = "sweep"
)

// InteractionType is the kind of user event.
type InteractionType int

const (
	CommandInteraction InteractionType = iota
	ButtonInteraction
	SelectInteraction
	ModalInteraction
)

// Interaction is a transport-neutral user event.
type Interaction struct {
	Type     InteractionType
	UserID   string
	Command  string
	CustomID string
	Values   []string
	Fields   map[string]string
}

// ButtonStyle hints at the visual weight of a button.
type ButtonStyle int

const (
	SecondaryButton ButtonStyle = iota
	PrimaryButton
	SuccessButton
	DangerButton
)

type Button struct {
	CustomID string
	Label    string
	Style    ButtonStyle
}

type Option struct {
	Label       string
	Value       string
	Description string
}

type Select struct {
	CustomID    string
	Placeholder string
	Options     []Option
}

// Modal asks for a single short text input.
type Modal struct {
	CustomID    string
	Title       string
	InputID     string
	Label       string
	Placeholder string
}

// Reply is what the transport renders back. Update edits the message the
// interaction came from instead of sending a new one. A non-nil Modal
// replaces everything else.
type Reply struct {
	Content   string
	Ephemeral bool
	Update    bool
	Buttons   []Button
	Select    *Select
	Modal     *Modal
}

// DigestComputer produces the evening digest on demand.
type DigestComputer interface {
	Compute(ctx context.Context, mode model.Mode) (*digest.Digest, error)
}

// Handler routes interactions.
type Handler struct {
	digests        DigestComputer
	machine        *actions.Machine
	render         digest.RenderOptions
	maxActionTasks int
	log            *slog.Logger
}

// NewHandler wires a handler. maxActionTasks below one is treated as one.
func NewHandler(digests DigestComputer, machine *actions.Machine, render digest.RenderOptions, maxActionTasks int, log *slog.Logger) *Handler {
	return &Handler{
		digests:        digests,
		machine:        machine,
		render:         render,
		maxActionTasks: max(1, maxActionTasks),
		log:            logging.OrDiscard(log),
	}
}

// Handle prunes expired proposals, then dispatches in. It always returns a
// reply; failures become a user-facing message.
func (h *Handler) Handle(ctx context.Context, in Interaction) Reply {
	if err := h.machine.Prune(ctx); err != nil {
		return h.failure(in, err)
	}

	var (
		reply Reply
		err   error
	)
	switch in.Type {
	case CommandInteraction:
		reply, err = h.command(ctx, in.Command)
	case ButtonInteraction:
		reply, err = h.button(ctx, in)
	case SelectInteraction:
		reply, err = h.selection(ctx, in)
	case ModalInteraction:
		reply, err = h.modal(ctx, in)
	default:
		err = apperr.New(apperr.Validation, "Unsupported interaction.")
	}
	if err != nil {
		return h.failure(in, err)
	}
	return reply
}

func (h *Handler) failure(in Interaction, err error) Reply {
	switch apperr.KindOf(err) {
	case apperr.Validation, apperr.NotFound, apperr.Authorization:
		h.log.Info("interaction rejected", "custom_id", in.CustomID, "command", in.Command, "user_id", in.UserID, "error", err)
		return Reply{Content: apperr.Message(err, msgGenericFailure), Ephemeral: true}
	default:
		h.log.Error("interaction failed", "custom_id", in.CustomID, "command", in.Command, "user_id", in.UserID, "error", err)
		return Reply{Content: msgGenericFailure, Ephemeral: true}
	}
}

func (h *Handler) command(ctx context.Context, name string) (Reply, error) {
	switch name {
	case "evening":
		d, err := h.digests.Compute(ctx, model.EVENING)
		if err != nil {
			return Reply{}, err
		}
		text := digest.Text(d, h.render) + "\n\n" + msgEveningFooter
		return Reply{Content: util.Truncate(text, eveningReplyLimit), Buttons: eveningButtons()}, nil
	case string(pending.Reschedule), string(pending.Defer), string(pending.Done):
		return h.taskSelect(ctx, pending.Kind(name))
	default:
		return Reply{}, apperr.New(apperr.Validation, "Unknown command: %s", name)
	}
}

func (h *Handler) button(ctx context.Context, in Interaction) (Reply, error) {
	prefix, arg, _ := strings.Cut(in.CustomID, ":")
	switch prefix {
	case prefixEvening:
		if arg == sweep {
			return Reply{Content: msgSweep, Ephemeral: true}, nil
		}
		kind := pending.Kind(arg)
		if kind != pending.Reschedule && kind != pending.Defer && kind != pending.Done {
			break
		}
		return h.taskSelect(ctx, kind)
	case prefixConfirm:
		out, err := h.machine.Confirm(ctx, arg, in.UserID)
		if err != nil {
			return Reply{}, err
		}
		content := out.Summary
		if out.DryRun {
			content += " (DRY_RUN)"
		}
		return Reply{Content: content, Ephemeral: true}, nil
	case prefixCancel:
		out, err := h.machine.Cancel(ctx, arg, in.UserID)
		if err != nil {
			return Reply{}, err
		}
		return Reply{Content: out.Summary, Ephemeral: true}, nil
	}
	return Reply{}, apperr.New(apperr.Validation, "Unsupported button.")
}

func (h *Handler) selection(ctx context.Context, in Interaction) (Reply, error) {
	if len(in.Values) == 0 {
		return Reply{}, apperr.New(apperr.Validation, "Select a task first.")
	}
	value := in.Values[0]
	prefix, arg, _ := strings.Cut(in.CustomID, ":")

	switch prefix {
	case prefixTaskSelect:
		switch pending.Kind(arg) {
		case pending.Defer:
			return Reply{Content: "Pick how many days to defer.", Update: true, Select: deferDaysSelect(value)}, nil
		case pending.Reschedule:
			return Reply{Modal: rescheduleModal(value)}, nil
		case pending.Done:
			a, err := h.machine.Propose(ctx, pending.Done, value, in.UserID, pending.Details{})
			if err != nil {
				return Reply{}, err
			}
			return Reply{Content: "Confirm marking this task done?", Update: true, Buttons: confirmButtons(a.ID)}, nil
		}
	case prefixDeferDays:
		days, err := strconv.Atoi(value)
		if err != nil {
			return Reply{}, apperr.New(apperr.Validation, "Invalid defer days. Pick a positive number of days.")
		}
		a, err := h.machine.Propose(ctx, pending.Defer, arg, in.UserID, pending.Details{Days: days})
		if err != nil {
			return Reply{}, err
		}
		return Reply{Content: fmt.Sprintf("Confirm deferring by +%d day(s)?", days), Update: true, Buttons: confirmButtons(a.ID)}, nil
	}
	return Reply{}, apperr.New(apperr.Validation, "Unsupported selection.")
}

func (h *Handler) modal(ctx context.Context, in Interaction) (Reply, error) {
	prefix, taskID, _ := strings.Cut(in.CustomID, ":")
	if prefix != prefixModal {
		return Reply{}, apperr.New(apperr.Validation, "Unsupported form.")
	}
	target := strings.TrimSpace(in.Fields[targetDateInput])
	a, err := h.machine.Propose(ctx, pending.Reschedule, taskID, in.UserID, pending.Details{TargetDate: target})
	if err != nil {
		return Reply{}, err
	}
	return Reply{
		Content:   fmt.Sprintf("Confirm rescheduling to %s?", target),
		Ephemeral: true,
		Buttons:   confirmButtons(a.ID),
	}, nil
}

func (h *Handler) taskSelect(ctx context.Context, kind pending.Kind) (Reply, error) {
	d, err := h.digests.Compute(ctx, model.EVENING)
	if err != nil {
		return Reply{}, err
	}
	tasks := d.Ranked
	if len(tasks) > h.maxActionTasks {
		tasks = tasks[:h.maxActionTasks]
	}
	if len(tasks) == 0 {
		return Reply{Content: msgNoTasks, Ephemeral: true}, nil
	}
	return Reply{
		Content:   fmt.Sprintf("Select a task to %s.", kind),
		Ephemeral: true,
		Select:    taskOptions(kind, tasks),
	}, nil
}

func taskOptions(kind pending.Kind, tasks []model.ScoredTask) *Select {
	if len(tasks) > maxSelectOptions {
		tasks = tasks[:maxSelectOptions]
	}
	s := &Select{CustomID: prefixTaskSelect + ":" + string(kind), Placeholder: "Choose task"}
	for _, t := range tasks {
		label := util.Truncate(t.Title, 90)
		if label == "" {
			label = "Untitled"
		}
		due := t.Due
		if due == "" {
			due = "no due date"
		}
		s.Options = append(s.Options, Option{
			Label:       label,
			Value:       t.ID,
			Description: fmt.Sprintf("%s | %s", util.Truncate(t.Project, 30), due),
		})
	}
	return s
}

func deferDaysSelect(taskID string) *Select {
	s := &Select{CustomID: prefixDeferDays + ":" + taskID, Placeholder: "Select defer days"}
	for _, days := range actions.DeferDayChoices {
		label := fmt.Sprintf("+%d days", days)
		if days == 1 {
			label = "+1 day"
		}
		s.Options = append(s.Options, Option{Label: label, Value: strconv.Itoa(days)})
	}
	return s
}

func rescheduleModal(taskID string) *Modal {
	return &Modal{
		CustomID:    prefixModal + ":" + taskID,
		Title:       "Reschedule Task",
		InputID:     targetDateInput,
		Label:       "New due date (YYYY-MM-DD)",
		Placeholder: "2026-02-27",
	}
}

func eveningButtons() []Button {
	return []Button{
		{CustomID: prefixEvening + ":" + sweep, Label: "Sweep", Style: SecondaryButton},
		{CustomID: prefixEvening + ":" + string(pending.Reschedule), Label: "Reschedule", Style: PrimaryButton},
		{CustomID: prefixEvening + ":" + string(pending.Defer), Label: "Defer", Style: SecondaryButton},
		{CustomID: prefixEvening + ":" + string(pending.Done), Label: "Mark Done", Style: SuccessButton},
	}
}

func confirmButtons(id string) []Button {
	return []Button{
		{CustomID: prefixConfirm + ":" + id, Label: "Confirm", Style: DangerButton},
		{CustomID: prefixCancel + ":" + id, Label: "Cancel", Style: SecondaryButton},
	}
}
