package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/RedzAdmin/Dark-Panel/config"
	"github.com/RedzAdmin/Dark-Panel/internal/db"
	"github.com/RedzAdmin/Dark-Panel/internal/logger"
)

// Sender is the slice of the Telegram API the flows need. Satisfied by
// *tgbotapi.BotAPI, faked in tests.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Store is the record access the flows need, satisfied by *db.Store.
type Store interface {
	EnsureUser(telegramID int64, username string) (*db.User, error)
	IsAdmin(telegramID int64) bool
	GetUserServers(telegramID int64) ([]db.Server, error)
	GetServer(id string) (*db.Server, error)
	CreateServer(server *db.Server) error
	RenewServer(id string, expires time.Time) error
	CreatePayment(telegramID int64, method, amount, txID string) (*db.Payment, error)
	AllUserIDs() ([]int64, error)
}

// Provisioner creates accounts on the remote panel.
type Provisioner interface {
	CreateAccount(ctx context.Context, username, email, password, plan string) error
}

const provisionTimeout = 45 * time.Second

// handleBuyPlan starts the purchase flow for a plan button press.
func (h *Handler) handleBuyPlan(query *tgbotapi.CallbackQuery, plan string) {
	userID := query.From.ID
	chatID := query.Message.Chat.ID
	if !h.plans.Has(plan) {
		h.answerCallback(query.ID, "Unknown plan")
		return
	}

	state := &ConversationState{Action: ActionBuy, Plan: plan}
	if plan == config.FreePlan {
		problem := GenerateMathProblem()
		state.Math = &problem
		h.states.Set(userID, state)
		h.reply(chatID, formatMessage("FREE SERVER",
			"Complete the math task to continue.\nSolve: "+problem.Question+"\nSend the answer as a number."))
	} else {
		h.states.Set(userID, state)
		details := h.plans.Plans[plan]
		h.reply(chatID, formatMessage(strings.ToUpper(plan)+" SERVER", fmt.Sprintf(
			"Price: %s\nRAM: %dMB\nDisk: %dMB\nCPU: %d%%\n\nSend account details as:\nusername|email|password",
			details.Price, details.RAM, details.Disk, details.CPU)))
	}
	h.answerCallback(query.ID, "")
}

// handleRenew starts the renewal flow. The button payload carries the
// server id, so a changed server list between listing and pressing
// cannot redirect the renewal.
func (h *Handler) handleRenew(query *tgbotapi.CallbackQuery, serverID string) {
	userID := query.From.ID
	chatID := query.Message.Chat.ID

	server, err := h.store.GetServer(serverID)
	if err != nil {
		h.answerCallback(query.ID, "Server not found")
		return
	}
	if server.UserID != userID {
		h.answerCallback(query.ID, "That is not your server")
		return
	}

	if server.Plan == config.FreePlan {
		problem := GenerateMathProblem()
		h.states.Set(userID, &ConversationState{
			Action:   ActionRenew,
			Plan:     server.Plan,
			ServerID: server.ID,
			Math:     &problem,
		})
		h.reply(chatID, formatMessage("RENEW FREE SERVER",
			"Complete the math task to renew.\nSolve: "+problem.Question+"\nSend the answer as a number."))
	} else {
		details := h.plans.Plans[server.Plan]
		h.reply(chatID, formatMessage("RENEW PAID SERVER", fmt.Sprintf(
			"Plan: %s\nPrice: %s\n\nPay via one of the payment methods, then send:\n/confirm <transaction_id>",
			strings.ToUpper(server.Plan), details.Price)))
	}
	h.answerCallback(query.ID, "")
}

// handleText routes free text through the conversation state machine.
// Users without a live state are ignored entirely.
func (h *Handler) handleText(msg *tgbotapi.Message) {
	userID := msg.From.ID
	text := strings.TrimSpace(msg.Text)
	state := h.states.Get(userID)
	if state == nil {
		return
	}

	if state.Action == ActionBroadcast {
		h.runBroadcast(msg.Chat.ID, userID, text)
		return
	}

	// Math answer. Non-numeric text while a challenge is pending falls
	// through to the credential branch, which rejects on field count.
	if state.Math != nil && !state.MathDone {
		if answer, err := strconv.Atoi(text); err == nil {
			h.handleMathAnswer(msg.Chat.ID, userID, state, answer)
			return
		}
	}

	if state.Action == ActionBuy && (state.Plan != config.FreePlan || state.MathDone) {
		h.handleCredentials(msg.Chat.ID, userID, state, text)
	}
}

func (h *Handler) handleMathAnswer(chatID, userID int64, state *ConversationState, answer int) {
	if !state.Math.Check(answer) {
		// No retry limit, state stays put.
		h.reply(chatID, formatMessage("WRONG ANSWER", "Try again."))
		return
	}

	switch state.Action {
	case ActionBuy:
		state.MathDone = true
		h.reply(chatID, formatMessage("TASK COMPLETED",
			"Math correct! Now send:\nemail|password\nExample: user@email.com|mypassword123"))
	case ActionRenew:
		expires := time.Now().Add(h.plans.Duration(state.Plan))
		if err := h.store.RenewServer(state.ServerID, expires); err != nil {
			logger.Error("renew_failed", zap.Int64("user_id", userID), zap.String("server_id", state.ServerID), zap.Error(err))
			h.reply(chatID, formatMessage("RENEW FAILED", "Server no longer exists. Contact "+config.AppCfg.Owner))
		} else {
			h.reply(chatID, formatMessage("SERVER RENEWED",
				"Free server renewed for 24 hours.\nExpires: "+expires.Format("2006-01-02 15:04")))
		}
		h.states.Clear(userID)
	}
}

// handleCredentials parses "email|password" (free, username is
// synthesised) or "username|email|password" (paid) and provisions the
// account. State is always cleared after a provisioning attempt,
// success or failure; a failed purchase restarts from the plan menu.
func (h *Handler) handleCredentials(chatID, userID int64, state *ConversationState, text string) {
	parts := strings.Split(text, "|")
	var username, email, password string
	if state.Plan == config.FreePlan {
		if len(parts) < 2 {
			h.reply(chatID, "Format: email|password")
			return
		}
		email = strings.TrimSpace(parts[0])
		password = strings.TrimSpace(parts[1])
		username = fmt.Sprintf("user%d", userID)
	} else {
		if len(parts) < 3 {
			h.reply(chatID, "Format: username|email|password")
			return
		}
		username = strings.TrimSpace(parts[0])
		email = strings.TrimSpace(parts[1])
		password = strings.TrimSpace(parts[2])
	}

	ctx, cancel := context.WithTimeout(context.Background(), provisionTimeout)
	defer cancel()
	err := h.panel.CreateAccount(ctx, username, email, password, state.Plan)
	h.states.Clear(userID)
	if err != nil {
		logger.Error("provisioning_failed", zap.Int64("user_id", userID), zap.String("plan", state.Plan), zap.Error(err))
		h.reply(chatID, formatMessage("CREATION FAILED",
			"Error: "+err.Error()+"\nContact "+config.AppCfg.Owner))
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		// The account already exists on the panel; record it without a
		// fingerprint rather than failing the purchase.
		logger.Error("password_hash_failed", zap.Int64("user_id", userID), zap.Error(err))
		hash = nil
	}
	expires := time.Now().Add(h.plans.Duration(state.Plan))
	server := &db.Server{
		UserID:       userID,
		Plan:         state.Plan,
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		ExpiresAt:    expires,
		Active:       true,
	}
	if err := h.store.CreateServer(server); err != nil {
		logger.Error("server_record_create_failed", zap.Int64("user_id", userID), zap.Error(err))
		h.reply(chatID, formatMessage("ERROR", "Account created but could not be recorded. Contact "+config.AppCfg.Owner))
		return
	}

	details := h.plans.Plans[state.Plan]
	h.reply(chatID, formatMessage("ACCOUNT CREATED", fmt.Sprintf(
		"Plan: %s\nPanel: %s\nUsername: %s\nEmail: %s\nRAM: %dMB\nDisk: %dMB\nExpires: %s\n\nKeep your credentials safe.",
		strings.ToUpper(state.Plan), config.AppCfg.PanelURL, username, email,
		details.RAM, details.Disk, expires.Format("2006-01-02 15:04"))))
}

// handleConfirm records a paid-renewal transaction id for admin
// review. Method and amount stay placeholders until the admin
// reconciles them against the actual payment.
func (h *Handler) handleConfirm(msg *tgbotapi.Message) {
	args := strings.Fields(msg.Text)
	if len(args) < 2 {
		h.reply(msg.Chat.ID, formatMessage("ERROR", "Usage: /confirm <transaction_id>"))
		return
	}
	txID := args[1]
	payment, err := h.store.CreatePayment(msg.From.ID, "Unknown", "Unknown", txID)
	if err != nil {
		logger.Error("payment_create_failed", zap.Int64("user_id", msg.From.ID), zap.Error(err))
		h.reply(msg.Chat.ID, formatMessage("ERROR", "Could not record the payment, try again later."))
		return
	}
	h.reply(msg.Chat.ID, formatMessage("PAYMENT CONFIRMATION", fmt.Sprintf(
		"Transaction ID: %s\nReference: %s\nSubmitted for verification, the admin will confirm shortly.",
		txID, payment.ID)))
}

// runBroadcast sends the armed admin broadcast to every known user.
func (h *Handler) runBroadcast(chatID, adminID int64, text string) {
	h.states.Clear(adminID)
	ids, err := h.store.AllUserIDs()
	if err != nil {
		logger.Error("broadcast_user_list_failed", zap.Error(err))
		h.reply(chatID, formatMessage("BROADCAST FAILED", "Could not load the user list."))
		return
	}
	var sent int
	for _, id := range ids {
		if _, err := h.bot.Send(tgbotapi.NewMessage(id, text)); err != nil {
			logger.Error("broadcast_send_failed", zap.Int64("user_id", id), zap.Error(err))
			continue
		}
		sent++
	}
	logger.LogAdminAction(adminID, "broadcast", fmt.Sprintf("sent=%d of %d", sent, len(ids)))
	h.reply(chatID, formatMessage("BROADCAST COMPLETE", fmt.Sprintf("Delivered to %d of %d users", sent, len(ids))))
}

// ArmBroadcast puts the admin into broadcast mode; the next text
// message goes out to all users. Called from the admin callbacks.
func (h *Handler) ArmBroadcast(adminID int64) {
	h.states.Set(adminID, &ConversationState{Action: ActionBroadcast})
}
