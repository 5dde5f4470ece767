package handler

import (
	"errors"
	"fmt"
	"strings"

	"queuebot/internal/api"
	"queuebot/internal/live"
	"queuebot/internal/model"
	"queuebot/internal/queue"
)

var statusIcons = map[model.QueueStatus]string{
	model.StatusPending:    "🕓",
	model.StatusProcessing: "⚙️",
	model.StatusCompleted:  "✅",
	model.StatusFailed:     "❌",
	model.StatusCancelled:  "🚫",
}

// Badge renders the status badge of a record.
func Badge(s model.QueueStatus) string {
	icon, ok := statusIcons[s]
	if !ok {
		icon = "❔"
	}
	return fmt.Sprintf("%s %s", icon, s.Label())
}

// FormatRow renders one queue record as a single line.
func FormatRow(r model.TransactionQueue) string {
	user := r.UserUsername
	if user == "" {
		user = fmt.Sprintf("user %d", r.UserID)
	}

	line := fmt.Sprintf("#%d %s [%s] %s · %s", r.ID, r.Type.Label(), Badge(r.Status), model.FormatAmount(r.Amount), user)
	if r.BonusAmount != "" && model.FormatAmount(r.BonusAmount) != "0.00" {
		line += fmt.Sprintf(" (+%s bonus)", model.FormatAmount(r.BonusAmount))
	}
	if r.Game != "" {
		line += " · " + r.Game
		if r.GameUsername != "" {
			line += "/" + r.GameUsername
		}
	}
	return line
}

// RenderList renders a queue page: header, error banner, rows and footer.
func RenderList(v queue.View, status live.Status) string {
	var b strings.Builder

	fmt.Fprintf(&b, "📋 Transaction queue · %s\n", v.Filter.Label())
	if !v.Query.IsZero() {
		b.WriteString("🔎 " + describeQuery(v.Query) + "\n")
	}
	if v.Err != "" {
		fmt.Fprintf(&b, "⚠️ %s\n", v.Err)
	}
	b.WriteString("━━━━━━━━━━━━━━━\n")

	if len(v.Results) == 0 {
		b.WriteString("No queue records\n")
	}
	for _, r := range v.Results {
		b.WriteString(FormatRow(r))
		b.WriteString("\n")
	}

	b.WriteString("━━━━━━━━━━━━━━━\n")
	p := v.Pagination
	total := p.TotalPages
	if total < 1 {
		total = 1
	}
	fmt.Fprintf(&b, "Page %d/%d · %d records · %s", p.Page, total, p.Count, liveLabel(status))
	return b.String()
}

func describeQuery(q queue.Query) string {
	var parts []string
	if q.Search != "" {
		parts = append(parts, fmt.Sprintf("%q", q.Search))
	}
	if q.Status != "" {
		parts = append(parts, "status "+q.Status.Label())
	}
	if q.DateFrom != "" || q.DateTo != "" {
		parts = append(parts, fmt.Sprintf("%s..%s", q.DateFrom, q.DateTo))
	}
	return strings.Join(parts, " · ")
}

func liveLabel(s live.Status) string {
	switch s {
	case live.StatusConnected:
		return "🟢 live"
	case live.StatusConnecting:
		return "🟡 connecting"
	case live.StatusError:
		return "🔴 live error"
	}
	return "⚪️ offline"
}

// RenderConfirm renders the confirmation prompt for a retry or cancel.
func RenderConfirm(kind model.ActionKind, r *model.TransactionQueue, id int64) string {
	if r == nil {
		return fmt.Sprintf("❓ %s queue #%d?", actionVerb(kind), id)
	}
	return fmt.Sprintf("❓ %s queue #%d?\n\n%s", actionVerb(kind), id, FormatRow(*r))
}

// RenderActionResult renders a successful action.
func RenderActionResult(kind model.ActionKind, r *model.TransactionQueue) string {
	return fmt.Sprintf("✅ %s sent for #%d\nNow: %s", actionVerb(kind), r.ID, Badge(r.Status))
}

// RenderCompleteUsage explains what /complete needs for a record.
func RenderCompleteUsage(r model.TransactionQueue) string {
	fields := queue.RequiredFields(r.Type)
	if len(fields) == 0 {
		return fmt.Sprintf("✅ To complete #%d send:\n/complete %d", r.ID, r.ID)
	}

	var args []string
	for _, f := range fields {
		args = append(args, fmt.Sprintf("%s=<%s>", f, f))
	}
	return fmt.Sprintf("✅ To complete #%d (%s) send:\n/complete %d %s", r.ID, r.Type.Label(), r.ID, strings.Join(args, " "))
}

// RenderActionError turns an action failure into an inline reply.
func RenderActionError(err error) string {
	var missing *queue.MissingFieldsError
	var apiErr *api.APIError

	switch {
	case errors.As(err, &missing):
		names := make([]string, len(missing.Fields))
		for i, f := range missing.Fields {
			names[i] = string(f)
		}
		return fmt.Sprintf("❌ %s requires: %s", missing.Type.Label(), strings.Join(names, ", "))
	case errors.Is(err, queue.ErrConfirmationRequired):
		return "❓ Please confirm this action first"
	case errors.Is(err, queue.ErrQueueNotVisible):
		return "❌ That record is not on the current page, /refresh and try again"
	case errors.Is(err, queue.ErrActionInFlight):
		return "⏳ An action for this record is already in progress"
	case errors.Is(err, queue.ErrInvalidAction):
		return "❌ Unknown action"
	case errors.As(err, &apiErr):
		return fmt.Sprintf("❌ Action failed: %s", apiErr.Message)
	}
	return "❌ Action failed, please try again"
}

func actionVerb(kind model.ActionKind) string {
	switch kind {
	case model.ActionRetry:
		return "Retry"
	case model.ActionCancel:
		return "Cancel"
	case model.ActionComplete:
		return "Complete"
	}
	return string(kind)
}
