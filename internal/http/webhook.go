package http

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"kakeibo/internal/core"
	"kakeibo/internal/log"
)

// manualEntry matches chat texts of the form "memo amount" with an optional
// 円 suffix, full-width digits allowed, e.g. "ランチ 1,200円".
var manualEntry = regexp.MustCompile(`^(.+?)[\s　]+([0-9０-９,，]+)円?$`)

const usageGuide = "家計簿の使い方:\n" +
	"「メモ 金額」の形式で送ると支出を記録します。\n" +
	"例: ランチ 1200\n" +
	"例: 靴下 1,500円"

const maxWebhookBody = 1 << 20

type webhookPayload struct {
	Events []struct {
		Type       string `json:"type"`
		ReplyToken string `json:"replyToken"`
		Source     struct {
			UserID string `json:"userId"`
		} `json:"source"`
		Message struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"message"`
	} `json:"events"`
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable body")
		return
	}
	if !validSignature(s.channelSecret, body, r.Header.Get("X-Line-Signature")) {
		s.logger.Warn("webhook signature mismatch")
		writeError(w, http.StatusUnauthorized, "invalid signature")
		return
	}

	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	for _, ev := range payload.Events {
		if ev.Type != "message" || ev.Message.Type != "text" {
			continue
		}
		s.captureUserID(r, ev.Source.UserID)
		s.handleChatText(r, ev.ReplyToken, ev.Message.Text)
	}
	w.WriteHeader(http.StatusOK)
}

// validSignature checks the LINE webhook signature: base64 of the
// HMAC-SHA256 of the raw body under the channel secret.
func validSignature(secret string, body []byte, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// captureUserID remembers the first user that talks to the bot as the push
// recipient for alerts and reports.
func (s *Server) captureUserID(r *http.Request, userID string) {
	if userID == "" {
		return
	}
	set, err := s.settings.Settings(r.Context())
	if err != nil {
		s.logger.Warn("failed to read settings for user capture",
			log.FieldError, err.Error())
		return
	}
	if set.LineUserID != "" {
		return
	}
	set.LineUserID = userID
	if err := s.settings.SaveSettings(r.Context(), set); err != nil {
		s.logger.Warn("failed to save LINE user id", log.FieldError, err.Error())
		return
	}
	s.logger.Info("LINE user registered")
}

func (s *Server) handleChatText(r *http.Request, replyToken, text string) {
	text = strings.TrimSpace(text)
	m := manualEntry.FindStringSubmatch(core.NormalizeDigits(text))
	if m == nil {
		s.reply(r, replyToken, usageGuide)
		return
	}

	memo := strings.TrimSpace(m[1])
	amount, err := core.ParseYen(m[2])
	if err != nil || amount <= 0 {
		s.reply(r, replyToken, usageGuide)
		return
	}

	entry := core.LedgerEntry{
		At:       time.Now(),
		Amount:   core.Money{Yen: amount},
		Category: core.DefaultClassifier().Classify(memo),
		Memo:     memo,
		Flow:     core.FlowExpense,
		Method:   core.MethodManual,
	}
	position, err := s.store.Append(r.Context(), entry)
	if err != nil {
		s.logger.Error("manual entry append failed", log.FieldError, err.Error())
		s.reply(r, replyToken, "記録に失敗しました。もう一度お試しください。")
		return
	}
	if s.publisher != nil {
		if perr := s.publisher.PublishEntrySync(r.Context(), position); perr != nil {
			s.logger.Warn("entry sync publish failed",
				log.FieldPosition, position, log.FieldError, perr.Error())
		}
	}

	s.logger.Info("manual entry recorded",
		log.FieldMemo, memo,
		log.FieldAmountYen, amount,
		log.FieldCategory, entry.Category)
	s.reply(r, replyToken, fmt.Sprintf("%s %s円を記録しました（分類: %s）",
		memo, groupDigits(amount), entry.Category))
}

func (s *Server) reply(r *http.Request, replyToken, text string) {
	if s.replier == nil || replyToken == "" {
		return
	}
	if err := s.replier.Reply(r.Context(), replyToken, text); err != nil {
		s.logger.Warn("webhook reply failed", log.FieldError, err.Error())
	}
}

func groupDigits(yen int64) string {
	str := strconv.FormatInt(yen, 10)
	if len(str) <= 3 {
		return str
	}
	var out []byte
	for i, c := range []byte(str) {
		if i > 0 && (len(str)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, c)
	}
	return string(out)
}
