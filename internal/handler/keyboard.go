package handler

import (
	"fmt"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v3"

	"queuebot/internal/model"
	"queuebot/internal/queue"
)

const (
	// CallbackPrefix is the prefix for all queue console callback data
	CallbackPrefix = "q_"
)

// Callback actions.
const (
	cbPage    = "page"
	cbFilter  = "filter"
	cbAct     = "act"
	cbConfirm = "confirm"
	cbAbort   = "abort"
	cbRefresh = "refresh"
)

// EncodeCallback encodes an action and parameter into callback data.
func EncodeCallback(action string, param string) string {
	if param != "" {
		return fmt.Sprintf("%s%s_%s", CallbackPrefix, action, param)
	}
	return fmt.Sprintf("%s%s", CallbackPrefix, action)
}

// DecodeCallback decodes callback data into action and parameter.
func DecodeCallback(data string) (action string, param string) {
	if !strings.HasPrefix(data, CallbackPrefix) {
		return "", ""
	}

	content := strings.TrimPrefix(data, CallbackPrefix)
	parts := strings.SplitN(content, "_", 2)
	action = parts[0]
	if len(parts) > 1 {
		param = parts[1]
	}
	return action, param
}

// encodeRowAction packs an action kind and queue id as "<kind>_<id>".
func encodeRowAction(kind model.ActionKind, id int64) string {
	return fmt.Sprintf("%s_%d", kind, id)
}

// decodeRowAction unpacks a parameter built by encodeRowAction.
func decodeRowAction(param string) (model.ActionKind, int64, bool) {
	kind, idStr, ok := strings.Cut(param, "_")
	if !ok {
		return "", 0, false
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		return "", 0, false
	}
	k := model.ActionKind(kind)
	if !k.Valid() {
		return "", 0, false
	}
	return k, id, true
}

// BuildListKeyboard builds the inline keyboard under a rendered queue page.
// Layout:
//   - one row per record: [🔁 #id] [✖️ #id] [✅ #id], or [⏳ #id] while an action is in flight
//   - pagination: [◀️ Prev] [p/N] [Next ▶️], arrows only when the backend links exist
//   - filters, with the active one marked
//   - [🔄 Refresh]
func BuildListKeyboard(v queue.View, inFlight func(id int64) bool) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	var rows [][]tele.InlineButton

	for _, r := range v.Results {
		label := fmt.Sprintf("#%d", r.ID)
		if inFlight != nil && inFlight(r.ID) {
			rows = append(rows, []tele.InlineButton{
				{Text: "⏳ " + label, Data: EncodeCallback(cbRefresh, "")},
			})
			continue
		}
		rows = append(rows, []tele.InlineButton{
			{Text: "🔁 " + label, Data: EncodeCallback(cbAct, encodeRowAction(model.ActionRetry, r.ID))},
			{Text: "✖️ " + label, Data: EncodeCallback(cbAct, encodeRowAction(model.ActionCancel, r.ID))},
			{Text: "✅ " + label, Data: EncodeCallback(cbAct, encodeRowAction(model.ActionComplete, r.ID))},
		})
	}

	if nav := paginationRow(v.Pagination); len(nav) > 0 {
		rows = append(rows, nav)
	}

	var filters []tele.InlineButton
	for _, k := range model.FilterKinds() {
		text := k.Label()
		if k == v.Filter {
			text = "• " + text
		}
		filters = append(filters, tele.InlineButton{Text: text, Data: EncodeCallback(cbFilter, string(k))})
	}
	rows = append(rows, filters[:2], filters[2:])

	rows = append(rows, []tele.InlineButton{
		{Text: "🔄 Refresh", Data: EncodeCallback(cbRefresh, "")},
	})

	markup.InlineKeyboard = rows
	return markup
}

func paginationRow(p model.Pagination) []tele.InlineButton {
	var row []tele.InlineButton
	if p.HasPrevious {
		row = append(row, tele.InlineButton{Text: "◀️ Prev", Data: EncodeCallback(cbPage, strconv.Itoa(p.Page-1))})
	}
	if p.TotalPages > 1 {
		row = append(row, tele.InlineButton{Text: fmt.Sprintf("%d/%d", p.Page, p.TotalPages), Data: EncodeCallback(cbRefresh, "")})
	}
	if p.HasNext {
		row = append(row, tele.InlineButton{Text: "Next ▶️", Data: EncodeCallback(cbPage, strconv.Itoa(p.Page+1))})
	}
	return row
}

// BuildConfirmKeyboard builds the yes/no prompt for a retry or cancel.
func BuildConfirmKeyboard(kind model.ActionKind, id int64) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	markup.InlineKeyboard = [][]tele.InlineButton{
		{
			{Text: "✅ Yes", Data: EncodeCallback(cbConfirm, encodeRowAction(kind, id))},
			{Text: "❌ No", Data: EncodeCallback(cbAbort, strconv.FormatInt(id, 10))},
		},
	}
	return markup
}
