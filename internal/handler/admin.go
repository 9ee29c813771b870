package handler

import (
	"fmt"
	"strconv"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"focus-quest-bot/internal/service"
)

// AdminHandler handles admin commands.
type AdminHandler struct {
	manager *service.Manager
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(manager *service.Manager) *AdminHandler {
	return &AdminHandler{manager: manager}
}

// HandleAdjust handles the /adjust command.
// Format: /adjust @username <delta>, or /adjust <delta> as a reply.
func (h *AdminHandler) HandleAdjust(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	targetID, name, ok := resolveTarget(c, h.manager.Lookup)
	if !ok {
		if name != "" {
			return c.Reply("❌ Cannot find @" + name)
		}
		return c.Reply("❌ Usage: /adjust @username <amount>\nExample: /adjust @alice -5")
	}

	args := c.Args()
	if len(args) == 0 {
		return c.Reply("❌ Usage: /adjust @username <amount>")
	}
	delta, err := strconv.ParseInt(args[len(args)-1], 10, 64)
	if err != nil {
		return c.Reply("❌ Amount must be an integer")
	}

	acc, err := h.manager.Adjust(sender.ID, targetID, delta)
	if err != nil {
		log.Error().Err(err).Int64("admin_id", sender.ID).Int64("target_id", targetID).Msg("Failed to adjust balance")
		return c.Reply(errorMessage(err))
	}

	return c.Reply(fmt.Sprintf(
		"✅ Adjusted @%s by %+d FOCUS\n💎 Available: %d / Total: %d",
		name, delta, acc.AvailablePoints, acc.TotalPoints,
	))
}
