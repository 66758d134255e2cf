package bot

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/xaenox/watt-guardian/internal/energy"
	"github.com/xaenox/watt-guardian/internal/models"
)

const helpText = `Available commands:
/start - Start the assistant
/help - Show this help message
/devices - List your appliances
/usage - Today's usage report
/budget <kWh> - Set your daily energy budget
/notifications - Show unread notifications
/reset - Clear the chat history

Or just ask me something, like "How much energy am I using?"`

// escapeMarkdown escapes the characters MarkdownV2 treats as markup.
func escapeMarkdown(text string) string {
	specialChars := []string{"\\", "_", "*", "[", "]", "(", ")", "~", "`", ">", "#", "+", "-", "=", "|", "{", "}", ".", "!"}
	escaped := text
	for _, char := range specialChars {
		escaped = strings.ReplaceAll(escaped, char, "\\"+char)
	}
	return escaped
}

func formatReply(msg models.Message) string {
	var sb strings.Builder
	if msg.Kind == models.KindError {
		sb.WriteString("⚠️ ")
	}
	sb.WriteString(escapeMarkdown(msg.Text))
	if len(msg.ChartData) > 0 {
		sb.WriteString("\n")
		for _, p := range msg.ChartData {
			sb.WriteString("\n• " + escapeMarkdown(fmt.Sprintf("%s: %.2f kWh", p.Label, p.Value)))
		}
	}
	return sb.String()
}

// suggestionKeyboard offers suggestions as one-tap replies.
func suggestionKeyboard(suggestions []string) (tgbotapi.ReplyKeyboardMarkup, bool) {
	if len(suggestions) == 0 {
		return tgbotapi.ReplyKeyboardMarkup{}, false
	}
	rows := make([][]tgbotapi.KeyboardButton, 0, len(suggestions))
	for _, s := range suggestions {
		rows = append(rows, tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(s)))
	}
	return tgbotapi.NewOneTimeReplyKeyboard(rows...), true
}

func formatDevices(appliances []models.Appliance) string {
	if len(appliances) == 0 {
		return escapeMarkdown("You don't have any appliances yet.")
	}
	var sb strings.Builder
	sb.WriteString("*Your appliances:*\n")
	for _, a := range appliances {
		state := "off"
		if a.IsOn {
			state = fmt.Sprintf("on, %.2f kW", a.CurrentPowerKW)
		}
		line := fmt.Sprintf("%s (%s): %s", a.Name, a.Location, state)
		sb.WriteString("\n• " + escapeMarkdown(line))
	}
	return sb.String()
}

func formatReport(r energy.Report) string {
	var sb strings.Builder
	sb.WriteString("*Today's usage*\n\n")
	sb.WriteString(escapeMarkdown(fmt.Sprintf("Total: %.2f kWh (%.2f)", r.TotalUsageKWh, r.TotalCost)) + "\n")
	sb.WriteString(escapeMarkdown(fmt.Sprintf("Drawing now: %.2f kW", r.CurrentPowerKW)) + "\n")
	sb.WriteString(escapeMarkdown(fmt.Sprintf("Carbon: %.2f kg CO2", r.CarbonKg)) + "\n")
	if r.BudgetKWh != nil && r.BudgetUsedPercent != nil {
		sb.WriteString(escapeMarkdown(fmt.Sprintf("Budget: %.0f%% of %.1f kWh", *r.BudgetUsedPercent, *r.BudgetKWh)) + "\n")
	} else {
		sb.WriteString(escapeMarkdown("Budget: not set, use /budget <kWh>") + "\n")
	}
	if len(r.ByCategory) > 0 {
		sb.WriteString("\n*By category:*")
		for _, p := range r.ByCategory {
			sb.WriteString("\n• " + escapeMarkdown(fmt.Sprintf("%s: %.2f kWh", p.Label, p.Value)))
		}
	}
	return sb.String()
}

func formatNotifications(list []models.Notification, limit int) string {
	if len(list) == 0 {
		return escapeMarkdown("You're all caught up. No unread notifications.")
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("*Unread notifications \\(%d\\):*\n", len(list)))
	for i, n := range list {
		if i == limit {
			sb.WriteString("\n" + escapeMarkdown(fmt.Sprintf("...and %d more", len(list)-limit)))
			break
		}
		sb.WriteString(fmt.Sprintf("\n*%s*\n%s\n", escapeMarkdown(n.Title), escapeMarkdown(n.Message)))
	}
	return sb.String()
}
