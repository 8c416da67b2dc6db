package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"signature-card-studio/internal/card"
	"signature-card-studio/internal/studio"
)

const callbackPrefix = "cs"

const (
	menuMain   = "main"
	menuLayout = "layout"
	menuText   = "text"
)

// callback is decoded inline button data: cs:<owner>:<action>[:<arg>].
type callback struct {
	Owner  int64
	Action string
	Arg    string
}

func cb(ownerID int64, action string, args ...string) string {
	parts := append([]string{callbackPrefix, strconv.FormatInt(ownerID, 10), action}, args...)
	return strings.Join(parts, ":")
}

func parseCallback(data string) (callback, bool) {
	parts := strings.SplitN(strings.TrimSpace(data), ":", 4)
	if len(parts) < 3 || parts[0] != callbackPrefix {
		return callback{}, false
	}
	owner, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return callback{}, false
	}
	c := callback{Owner: owner, Action: parts[2]}
	if len(parts) == 4 {
		c.Arg = parts[3]
	}
	return c, true
}

func (h *Handler) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) error {
	if q == nil || q.Message == nil || q.From == nil {
		return nil
	}
	c, ok := parseCallback(q.Data)
	if !ok {
		return nil
	}
	if c.Owner != q.From.ID {
		_ = h.tg.AnswerCallback(q.ID, "다른 사용자의 메뉴입니다.", true)
		return nil
	}

	chatID := q.Message.Chat.ID
	msgID := q.Message.MessageID
	sess := h.session(chatID, c.Owner)

	menu := menuMain
	var edit studio.Edit
	switch c.Action {
	case "menu":
		menu = c.Arg
	case "layout":
		edit.LayoutFrame = ptr(c.Arg)
		menu = menuLayout
	case "text":
		edit.TextFrame = ptr(c.Arg)
		menu = menuText
	case "align":
		edit.Align = ptr(c.Arg)
	case "bold":
		edit.Bold = ptr(!sess.Snapshot().Appearance.Bold)
	case "ratio":
		edit.Ratio = ptr(c.Arg)
	case "pick":
		n, err := strconv.Atoi(c.Arg)
		if err != nil {
			return nil
		}
		_ = h.tg.AnswerCallback(q.ID, "카드 문구를 생성합니다…", false)
		return h.pickQuote(ctx, chatID, c.Owner, sess, n)
	case "preview":
		_ = h.tg.AnswerCallback(q.ID, "", false)
		return h.sendPreview(ctx, chatID, sess)
	case "image":
		_ = h.tg.AnswerCallback(q.ID, "배경을 생성합니다…", false)
		return h.generateImage(ctx, chatID, sess, false)
	case "video":
		_ = h.tg.AnswerCallback(q.ID, "영상을 요청합니다…", false)
		return h.startVideo(ctx, chatID, sess)
	case "export":
		_ = h.tg.AnswerCallback(q.ID, "", false)
		return h.exportCard(ctx, chatID, sess)
	default:
		_ = h.tg.AnswerCallback(q.ID, "", false)
		return nil
	}

	if err := sess.Apply(edit); err != nil {
		_ = h.tg.AnswerCallback(q.ID, studio.Alert(studio.ActionVisual, err), true)
		return nil
	}
	_ = h.tg.AnswerCallback(q.ID, "", false)

	snap := sess.Snapshot()
	return h.tg.EditTextWithKeyboard(chatID, msgID, styleSummary(snap), styleKeyboard(c.Owner, snap, menu))
}

func (h *Handler) showStyleMenu(chatID, userID int64, sess *studio.Session, menu string) error {
	snap := sess.Snapshot()
	_, err := h.tg.SendTextWithKeyboard(chatID, styleSummary(snap), styleKeyboard(userID, snap, menu))
	return err
}

func styleKeyboard(ownerID int64, snap studio.Snapshot, menu string) tgbotapi.InlineKeyboardMarkup {
	switch menu {
	case menuLayout:
		return frameKeyboard(ownerID, "layout", layoutChoices(), string(snap.Visual.LayoutFrame))
	case menuText:
		return frameKeyboard(ownerID, "text", textChoices(), string(snap.Visual.TextFrame))
	}

	var alignRow []tgbotapi.InlineKeyboardButton
	for _, a := range []card.Alignment{card.AlignLeft, card.AlignCenter, card.AlignRight} {
		alignRow = append(alignRow, tgbotapi.NewInlineKeyboardButtonData(
			mark(snap.Appearance.Align == a, alignLabels[a]), cb(ownerID, "align", string(a))))
	}

	var ratioRow []tgbotapi.InlineKeyboardButton
	for _, r := range []card.AspectRatio{card.RatioSquare, card.RatioLandscape, card.RatioPortrait} {
		ratioRow = append(ratioRow, tgbotapi.NewInlineKeyboardButtonData(
			mark(snap.Ratio == r, string(r)), cb(ownerID, "ratio", string(r))))
	}

	return tgbotapi.NewInlineKeyboardMarkup(
		alignRow,
		ratioRow,
		[]tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData(mark(snap.Appearance.Bold, "굵게"), cb(ownerID, "bold")),
			tgbotapi.NewInlineKeyboardButtonData("카드 프레임", cb(ownerID, "menu", menuLayout)),
			tgbotapi.NewInlineKeyboardButtonData("문구 프레임", cb(ownerID, "menu", menuText)),
		},
		[]tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData("🖼 이미지", cb(ownerID, "image")),
			tgbotapi.NewInlineKeyboardButtonData("🎬 영상", cb(ownerID, "video")),
		},
		[]tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData("👀 미리보기", cb(ownerID, "preview")),
			tgbotapi.NewInlineKeyboardButtonData("💾 저장", cb(ownerID, "export")),
		},
	)
}

type choice struct {
	value string
	label string
}

func layoutChoices() []choice {
	var out []choice
	for _, f := range card.AllLayoutFrames() {
		out = append(out, choice{value: string(f), label: f.Label()})
	}
	return out
}

func textChoices() []choice {
	var out []choice
	for _, f := range card.AllTextFrames() {
		out = append(out, choice{value: string(f), label: f.Label()})
	}
	return out
}

// frameKeyboard lists choices two per row, followed by a back button.
func frameKeyboard(ownerID int64, action string, choices []choice, current string) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for _, c := range choices {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(mark(c.value == current, c.label), cb(ownerID, action, c.value)))
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	rows = append(rows, []tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardButtonData("⬅️ 뒤로", cb(ownerID, "menu", menuMain)),
	})
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func quotesKeyboard(ownerID int64, n int) tgbotapi.InlineKeyboardMarkup {
	var row []tgbotapi.InlineKeyboardButton
	for i := 0; i < n; i++ {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("%d", i+1), cb(ownerID, "pick", strconv.Itoa(i))))
	}
	return tgbotapi.NewInlineKeyboardMarkup(row)
}

var alignLabels = map[card.Alignment]string{
	card.AlignLeft:   "왼쪽",
	card.AlignCenter: "가운데",
	card.AlignRight:  "오른쪽",
}

func mark(selected bool, label string) string {
	if selected {
		return "✅ " + label
	}
	return label
}
