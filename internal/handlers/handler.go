package handlers

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	_ "golang.org/x/image/webp"

	"signature-card-studio/internal/export"
	"signature-card-studio/internal/gemini"
	"signature-card-studio/internal/mediagroup"
	"signature-card-studio/internal/prompt"
	"signature-card-studio/internal/studio"
	"signature-card-studio/internal/telegram"
)

// previewScale renders chat previews at the 600px reference width.
const previewScale = 1

// Messenger is the part of the Telegram client the handler talks to.
type Messenger interface {
	SendTyping(chatID int64)
	SendText(chatID int64, text string) error
	SendPhotoBytes(chatID int64, name string, data []byte, caption string) error
	SendDocument(chatID int64, name string, data []byte, caption string) error
	SendTextWithKeyboard(chatID int64, text string, kb tgbotapi.InlineKeyboardMarkup) (int, error)
	EditTextWithKeyboard(chatID int64, messageID int, text string, kb tgbotapi.InlineKeyboardMarkup) error
	AnswerCallback(callbackID, text string, alert bool) error
	DownloadFile(ctx context.Context, fileID string) ([]byte, string, error)
}

type Options struct {
	Telegram Messenger
	Studio   *studio.Service
	Exporter *export.Exporter
	Logger   *slog.Logger

	// VideoWait bounds how long the bot waits to report a finished video.
	VideoWait time.Duration
}

type Handler struct {
	tg         Messenger
	studio     *studio.Service
	exporter   *export.Exporter
	logger     *slog.Logger
	videoWait  time.Duration
	aggregator *mediagroup.Aggregator
}

func New(opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	wait := opts.VideoWait
	if wait <= 0 {
		wait = studio.DefaultVideoTimeout
	}

	return &Handler{
		tg:        opts.Telegram,
		studio:    opts.Studio,
		exporter:  opts.Exporter,
		logger:    logger,
		videoWait: wait,
	}
}

func (h *Handler) SetMediaGroupAggregator(ag *mediagroup.Aggregator) {
	h.aggregator = ag
}

func sessionKey(chatID, userID int64) string {
	return fmt.Sprintf("tg:%d:%d", chatID, userID)
}

func (h *Handler) session(chatID, userID int64) *studio.Session {
	return h.studio.SessionFor(sessionKey(chatID, userID))
}

func (h *Handler) HandleUpdate(ctx context.Context, update telegram.Update) error {
	if update.CallbackQuery != nil {
		return h.handleCallback(ctx, update.CallbackQuery)
	}
	if update.Message == nil || update.Message.From == nil {
		return nil
	}

	msg := update.Message
	chatID := msg.Chat.ID
	userID := msg.From.ID

	if msg.IsCommand() {
		return h.handleCommand(ctx, chatID, userID, msg.Command(), strings.TrimSpace(msg.CommandArguments()))
	}

	if len(msg.Photo) > 0 {
		return h.handlePhoto(ctx, chatID, userID, msg)
	}

	if msg.Text != "" {
		return h.handleText(chatID, userID, msg.Text)
	}

	return nil
}

// HandleAlbum uses the first photo of an album as the reference image.
func (h *Handler) HandleAlbum(ctx context.Context, album mediagroup.Album) {
	photo, ok := album.Reference()
	if !ok {
		return
	}
	if err := h.setReference(ctx, album.ChatID, album.UserID, photo, album.Caption); err != nil {
		h.logger.Error("album processing failed", "chat", album.ChatID, "err", err)
	}
}

func (h *Handler) handleCommand(ctx context.Context, chatID, userID int64, command, args string) error {
	sess := h.session(chatID, userID)

	switch command {
	case "start", "help":
		return h.tg.SendText(chatID, helpText)
	case "reset":
		sess.Reset()
		return h.tg.SendText(chatID, "✅ 새 카드를 시작합니다.")
	case "card":
		form := prompt.ParseArgs(args, sess.Snapshot().Form)
		if err := sess.Apply(studio.Edit{Form: &form}); err != nil {
			return h.alert(chatID, studio.ActionContent, err)
		}
		return h.generateContent(ctx, chatID, userID, sess)
	case "quotes":
		form := sess.Snapshot().Form
		form.Mode = prompt.ModeQuote
		form = prompt.ParseArgs(args, form)
		if err := sess.Apply(studio.Edit{Form: &form}); err != nil {
			return h.alert(chatID, studio.ActionQuotes, err)
		}
		return h.fetchQuotes(ctx, chatID, userID, sess)
	case "pick":
		n, err := strconv.Atoi(args)
		if err != nil {
			return h.tg.SendText(chatID, "번호를 입력해주세요. 예: /pick 2")
		}
		return h.pickQuote(ctx, chatID, userID, sess, n-1)
	case "image":
		refine := args != ""
		if refine {
			sess.SetRefinement(args)
		}
		return h.generateImage(ctx, chatID, sess, refine)
	case "video":
		return h.startVideo(ctx, chatID, sess)
	case "style":
		if args == "" {
			return h.showStyleMenu(chatID, userID, sess, menuMain)
		}
		edit, err := ParseStyleArgs(args)
		if err == nil {
			err = sess.Apply(edit)
		}
		if err != nil {
			return h.tg.SendText(chatID, "❌ "+studio.Alert(studio.ActionVisual, err))
		}
		return h.sendPreview(ctx, chatID, sess)
	case "preview":
		return h.sendPreview(ctx, chatID, sess)
	case "export":
		return h.exportCard(ctx, chatID, sess)
	case "share":
		return h.shareCard(ctx, chatID, sess)
	default:
		return h.tg.SendText(chatID, "❌ 알 수 없는 명령입니다. /help 를 확인해주세요.")
	}
}

// handleText replaces the card message with whatever the user typed.
func (h *Handler) handleText(chatID, userID int64, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	sess := h.session(chatID, userID)
	if err := sess.Apply(studio.Edit{Message: &text}); err != nil {
		return h.alert(chatID, studio.ActionContent, err)
	}
	return h.tg.SendText(chatID, "✏️ 카드 문구를 수정했습니다. /preview 로 확인하세요.")
}

func (h *Handler) handlePhoto(ctx context.Context, chatID, userID int64, msg *tgbotapi.Message) error {
	largest := msg.Photo[len(msg.Photo)-1]
	photo := mediagroup.Photo{FileID: largest.FileID, Width: largest.Width, Height: largest.Height}

	if msg.MediaGroupID != "" && h.aggregator != nil {
		h.aggregator.Add(mediagroup.Item{
			ChatID:       chatID,
			UserID:       userID,
			MediaGroupID: msg.MediaGroupID,
			Caption:      msg.Caption,
			Photo:        photo,
		})
		return nil
	}

	return h.setReference(ctx, chatID, userID, photo, msg.Caption)
}

// setReference downloads photo, stores it as the reference image and applies
// the caption as form arguments.
func (h *Handler) setReference(ctx context.Context, chatID, userID int64, photo mediagroup.Photo, caption string) error {
	h.tg.SendTyping(chatID)

	data, mimeType, err := h.tg.DownloadFile(ctx, photo.FileID)
	if err != nil {
		h.logger.Error("photo download failed", "err", err)
		return h.tg.SendText(chatID, "❌ 사진을 불러오지 못했습니다.")
	}

	width, height := photo.Width, photo.Height
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		width, height = cfg.Width, cfg.Height
	}

	sess := h.session(chatID, userID)
	ratio := sess.SetReference(gemini.ImageInput{
		DataBase64: base64.StdEncoding.EncodeToString(data),
		MimeType:   mimeType,
	}, width, height)

	if caption = strings.TrimSpace(caption); caption != "" {
		form := prompt.ParseArgs(caption, sess.Snapshot().Form)
		if err := sess.Apply(studio.Edit{Form: &form}); err != nil {
			return h.alert(chatID, studio.ActionVisual, err)
		}
	}

	return h.tg.SendText(chatID, fmt.Sprintf("📷 레퍼런스 이미지를 저장했습니다. 카드 비율: %s\n/image 또는 /video 로 배경을 생성하세요.", ratio))
}

func (h *Handler) generateContent(ctx context.Context, chatID, userID int64, sess *studio.Session) error {
	h.tg.SendTyping(chatID)

	content, err := h.studio.GenerateContent(ctx, sess)
	if err != nil {
		return h.alert(chatID, studio.ActionContent, err)
	}

	var b strings.Builder
	b.WriteString("✅ 카드 문구\n\n")
	b.WriteString(content.MainMessage)
	if alt := strings.TrimSpace(content.AlternativeMessage); alt != "" {
		b.WriteString("\n\n대안 문구:\n" + alt)
	}
	if theme := strings.TrimSpace(content.BgTheme); theme != "" {
		b.WriteString("\n\n배경 테마: " + theme)
	}
	if err := h.tg.SendText(chatID, b.String()); err != nil {
		return err
	}
	return h.showStyleMenu(chatID, userID, sess, menuMain)
}

func (h *Handler) fetchQuotes(ctx context.Context, chatID, userID int64, sess *studio.Session) error {
	h.tg.SendTyping(chatID)

	quotes, err := h.studio.FetchQuotes(ctx, sess, "")
	if err != nil {
		return h.alert(chatID, studio.ActionQuotes, err)
	}

	var b strings.Builder
	b.WriteString("📜 명언을 선택해주세요\n")
	for i, q := range quotes {
		b.WriteString(fmt.Sprintf("\n%d. %s", i+1, q.Format()))
	}
	_, err = h.tg.SendTextWithKeyboard(chatID, b.String(), quotesKeyboard(userID, len(quotes)))
	return err
}

func (h *Handler) pickQuote(ctx context.Context, chatID, userID int64, sess *studio.Session, index int) error {
	q, err := h.studio.SelectQuote(sess, index)
	if err != nil {
		return h.alert(chatID, studio.ActionQuotes, err)
	}
	if err := h.tg.SendText(chatID, "✅ 선택: "+q.Format()); err != nil {
		return err
	}
	return h.generateContent(ctx, chatID, userID, sess)
}

func (h *Handler) generateImage(ctx context.Context, chatID int64, sess *studio.Session, refine bool) error {
	h.tg.SendTyping(chatID)
	_ = h.tg.SendText(chatID, "🎨 "+prompt.ProgressMessage(false, sess.Snapshot().HasReference))

	if _, err := h.studio.GenerateImage(ctx, sess, refine); err != nil {
		return h.alert(chatID, studio.ActionVisual, err)
	}
	return h.sendPreview(ctx, chatID, sess)
}

// startVideo submits the job and reports the result from a goroutine, since
// rendering outlives the update's request timeout.
func (h *Handler) startVideo(ctx context.Context, chatID int64, sess *studio.Session) error {
	job, err := h.studio.StartVideo(ctx, sess)
	if err != nil {
		return h.alert(chatID, studio.ActionVisual, err)
	}
	_ = h.tg.SendText(chatID, "🎬 "+prompt.ProgressMessage(true, sess.Snapshot().HasReference))

	waitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), h.videoWait)
	go func() {
		defer cancel()
		if _, err := h.studio.WaitVideo(waitCtx, sess, job.ID); err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				h.logger.Warn("video wait expired", "session", sess.ID, "job", job.ID)
				return
			}
			_ = h.alert(chatID, studio.ActionVisual, err)
			return
		}
		if err := h.sendPreview(waitCtx, chatID, sess); err != nil {
			h.logger.Error("video preview failed", "session", sess.ID, "err", err)
		}
	}()
	return nil
}

func (h *Handler) sendPreview(ctx context.Context, chatID int64, sess *studio.Session) error {
	art, err := h.exporter.Download(ctx, sess.Composition(), previewScale)
	if err != nil {
		return h.alert(chatID, studio.ActionExport, err)
	}

	snap := sess.Snapshot()
	caption := styleSummary(snap)
	if uri, ok := snap.Visual.Background.Video(); ok {
		caption = "🎬 " + export.ShareableLink(uri) + "\n\n" + caption
	}
	return h.tg.SendPhotoBytes(chatID, art.Name, art.PNG, caption)
}

func (h *Handler) exportCard(ctx context.Context, chatID int64, sess *studio.Session) error {
	h.tg.SendTyping(chatID)
	art, err := h.exporter.Download(ctx, sess.Composition(), export.DownloadScale)
	if err != nil {
		return h.alert(chatID, studio.ActionExport, err)
	}
	return h.tg.SendDocument(chatID, art.Name, art.PNG, export.ShareTitle)
}

func (h *Handler) shareCard(ctx context.Context, chatID int64, sess *studio.Session) error {
	if _, err := h.exporter.Share(ctx, sess.Composition()); err != nil {
		return h.alert(chatID, studio.ActionShare, err)
	}
	return h.tg.SendText(chatID, "✅ 카드를 공유했습니다.")
}

// alert reports err to the chat. Context errors are returned instead so the
// update loop can log them.
func (h *Handler) alert(chatID int64, action studio.Action, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	h.logger.Warn("card action failed", "action", action, "chat", chatID, "err", err)
	return h.tg.SendText(chatID, "❌ "+studio.Alert(action, err))
}

const helpText = "✨ 시그니처 카드 스튜디오\n\n" +
	"/card [상황] [대상] [스타일] sender=이름 추가요청 - 인사말 카드 생성\n" +
	"/quotes [주제] - 명언 5개 추출\n" +
	"/pick <번호> - 명언 선택 후 카드 생성\n" +
	"/image [수정 요청] - 배경 이미지 생성\n" +
	"/video - 배경 영상 생성\n" +
	"/style [font= align= color= size= layout= frame= ratio= ...] - 스타일 변경\n" +
	"/preview - 미리보기\n" +
	"/export - 고해상도 PNG 저장\n" +
	"/share - 카드 공유\n" +
	"/reset - 처음부터 다시\n\n" +
	"사진을 보내면 레퍼런스 이미지로 사용합니다. 일반 메시지는 카드 문구를 바꿉니다."
