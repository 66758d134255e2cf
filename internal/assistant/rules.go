package assistant

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/xaenox/watt-guardian/internal/energy"
	"github.com/xaenox/watt-guardian/internal/models"
	"github.com/xaenox/watt-guardian/internal/random"
)

type rule struct {
	intent Intent
	match  func(t *turn) bool
	reply  func(t *turn) models.Reply
}

var (
	greetingRe    = regexp.MustCompile(`(?i)^(hi|hello|hey|greetings)\b`)
	usageRe       = regexp.MustCompile(`(?i)(energy|power|electricity) (usage|consumption|used)`)
	visualRe      = regexp.MustCompile(`(?i)(chart|graph|visual|show me)`)
	budgetRe      = regexp.MustCompile(`(?i)(budget|limit|cap)`)
	highestRe     = regexp.MustCompile(`(?i)(highest|most|top) (energy|power|electricity)`)
	compareRe     = regexp.MustCompile(`(?i)(compare|comparison|versus|vs)`)
	weatherRe     = regexp.MustCompile(`(?i)(weather|temperature|forecast)`)
	weatherTopic  = regexp.MustCompile(`(?i)(energy|power|electricity|consumption|usage)`)
	scheduleRe    = regexp.MustCompile(`(?i)(schedule|set up|automate)`)
	helpRe        = regexp.MustCompile(`(?i)(help|assist|support|what can you do)`)
	thanksRe      = regexp.MustCompile(`(?i)(thanks|thank you|thx)`)
	jokeRe        = regexp.MustCompile(`(?i)(joke|funny|fun fact)`)
	affirmativeRe = regexp.MustCompile(`(?i)^(yes|yeah|sure|okay|ok|yep|y)[.!]*$`)

	deviceStatusRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(which|what|show|list|tell me about)?\s*(devices?|appliances?)\s*(is|are)?\s*(on|off|running|active|turned on|turned off)`),
		regexp.MustCompile(`(?i)(device|appliance)\s*(status|state)`),
		regexp.MustCompile(`(?i)list\s*(active|running)?\s*(devices?|appliances?)`),
		regexp.MustCompile(`(?i)tell me about\s*(my)?\s*(devices?|appliances?)`),
	}
	tipRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(save|reduce|lower|cut) (energy|power|electricity|bill|cost)`),
		regexp.MustCompile(`(?i)(energy|power) (saving|efficiency) (tips|advice|help)`),
	}
	turnOnRe  = regexp.MustCompile(`(?i)turn on (the |my )?(.+)`)
	turnOffRe = regexp.MustCompile(`(?i)turn off (the |my )?(.+)`)
)

const (
	noBudgetPrompt = "You haven't set a daily budget yet. Would you like to set one?"
	scheduleOffer  = "I can help you schedule your appliances for optimal energy usage. Would you like me to create an energy-efficient schedule for your home?"
	weatherText    = "Based on the weather forecast, I predict your energy usage will be higher tomorrow due to expected lower temperatures. Consider pre-heating your home in the morning to avoid peak energy rates."
	thanksText     = "You're welcome! Is there anything else I can help you with?"
	fallbackText   = "I'm not sure I understand. You can ask me about your energy usage, appliance status, energy saving tips, or controlling your devices. How can I help you today?"
	helpText       = "I can help you with various energy-related tasks. You can ask me about:\n\n" +
		"• Your energy usage and budget\n" +
		"• Status of your appliances\n" +
		"• Energy saving tips\n" +
		"• Controlling your devices\n" +
		"• Comparing energy usage over time\n" +
		"• Weather impact on energy consumption\n" +
		"• Scheduling appliances for efficiency\n\n" +
		"Try asking something like 'What's my energy usage today?' or 'Turn off the living room lights.'"
)

var tipPool = []string{
	"Adjust your thermostat by 1-2 degrees to save up to 10% on heating and cooling costs.",
	"Replace traditional light bulbs with LED bulbs to use up to 80% less energy.",
	"Unplug electronics when not in use to eliminate phantom energy usage.",
	"Use smart power strips that cut power to devices when they're not in use.",
	"Wash clothes in cold water to save up to 90% of the energy used by your washing machine.",
	"Clean or replace HVAC filters every 1-3 months to improve efficiency.",
	"Use ceiling fans to circulate air and reduce the need for air conditioning.",
	"Seal air leaks around windows and doors to prevent energy waste.",
	"Set your refrigerator temperature between 35-38°F (1.7-3.3°C) for optimal efficiency.",
	"Use natural light during the day instead of artificial lighting.",
	"Run dishwashers and washing machines only when full to maximize efficiency.",
	"Install a programmable thermostat to automatically adjust temperatures when you're away or sleeping.",
}

var jokes = []string{
	"Why don't scientists trust atoms? Because they make up everything, including your electricity bill!",
	"I was going to tell a joke about electricity, but I was afraid you wouldn't be amped up about it.",
	"What did the light bulb say to its sweetheart? I watt you!",
	"Why did the lights go out? Because they liked each other!",
	"How many software developers does it take to change a light bulb? None, that's a hardware problem!",
}

// newRules returns the decision table in priority order. Categories
// overlap, so the order is part of the behaviour.
func (r *Responder) newRules() []rule {
	return []rule{
		{IntentGreeting, matches(greetingRe), static(welcomeText, models.KindText)},
		{IntentUsage, matches(usageRe), replyUsage},
		{IntentBudget, matches(budgetRe), replyBudget},
		{IntentDeviceStatus, matchesAny(deviceStatusRes...), replyDeviceStatus},
		{IntentHighestConsumer, matches(highestRe), replyHighestConsumer},
		{IntentTips, matchesAny(tipRes...), r.replyTips},
		{IntentApplianceStatus, matchesApplianceMention, replyApplianceStatus},
		{IntentToggle, func(t *turn) bool { return t.command != nil }, replyToggle},
		{IntentComparison, matchesComparison, r.replyComparison},
		{IntentWeather, func(t *turn) bool { return weatherRe.MatchString(t.input) && weatherTopic.MatchString(t.input) }, static(weatherText, models.KindText)},
		{IntentScheduleOffer, matches(scheduleRe), static(scheduleOffer, models.KindText)},
		{IntentHelp, matches(helpRe), static(helpText, models.KindText)},
		{IntentThanks, matches(thanksRe), static(thanksText, models.KindText)},
		{IntentJoke, matches(jokeRe), r.replyJoke},
		{IntentSchedule, matchesScheduleConfirmation, replySchedule},
		{IntentFallback, func(*turn) bool { return true }, r.replyFallback},
	}
}

func matches(re *regexp.Regexp) func(t *turn) bool {
	return func(t *turn) bool { return re.MatchString(t.input) }
}

func matchesAny(res ...*regexp.Regexp) func(t *turn) bool {
	return func(t *turn) bool {
		for _, re := range res {
			if re.MatchString(t.input) {
				return true
			}
		}
		return false
	}
}

func static(text string, kind models.ReplyKind) func(*turn) models.Reply {
	return func(*turn) models.Reply {
		return models.Reply{Text: text, Kind: kind}
	}
}

func usageSummary(snap models.Snapshot) string {
	text := fmt.Sprintf("Your total energy usage today is %.2f kWh. ", snap.TotalUsage)
	if snap.Budget == nil {
		return text + noBudgetPrompt
	}
	budget := *snap.Budget
	return text + fmt.Sprintf("That's %.1f%% of your daily budget of %.2f kWh.", snap.TotalUsage/budget*100, budget)
}

func replyUsage(t *turn) models.Reply {
	text := usageSummary(t.snap)
	if !visualRe.MatchString(t.input) {
		return models.Reply{Text: text, Kind: models.KindText}
	}
	return models.Reply{
		Text:      text + "\n\nHere's a breakdown of your energy usage by category:",
		Kind:      models.KindChart,
		ChartData: energy.CategoryUsage(t.snap.Appliances),
	}
}

func replyBudget(t *turn) models.Reply {
	if t.snap.Budget == nil {
		return models.Reply{
			Text: "You haven't set a daily energy budget yet. Would you like me to help you set one?",
			Kind: models.KindText,
		}
	}
	budget := *t.snap.Budget
	return models.Reply{
		Text: fmt.Sprintf("Your current daily energy budget is set to %.2f kWh. You've used %.1f%% of it today.",
			budget, t.snap.TotalUsage/budget*100),
		Kind: models.KindText,
	}
}

func replyDeviceStatus(t *turn) models.Reply {
	var on, off []string
	for _, a := range t.snap.Appliances {
		if a.IsOn {
			on = append(on, a.Name)
		} else {
			off = append(off, a.Name)
		}
	}
	if len(on) == 0 {
		return models.Reply{Text: "All your appliances are currently turned off.", Kind: models.KindText}
	}
	text := fmt.Sprintf("Currently, you have %d appliances turned on: %s.", len(on), strings.Join(on, ", "))
	if len(off) > 0 {
		text += fmt.Sprintf(" The following appliances are turned off: %s.", strings.Join(off, ", "))
	}
	return models.Reply{Text: text, Kind: models.KindText}
}

func replyHighestConsumer(t *turn) models.Reply {
	if len(t.snap.Appliances) == 0 {
		return models.Reply{Text: "You don't have any appliances on your dashboard yet.", Kind: models.KindText}
	}
	highest := t.snap.Appliances[0]
	for _, a := range t.snap.Appliances[1:] {
		if a.CurrentPowerKW > highest.CurrentPowerKW {
			highest = a
		}
	}
	state := "It's currently turned off."
	if highest.IsOn {
		state = "It's currently turned on."
	}
	return models.Reply{
		Text: fmt.Sprintf("Your %s is currently using the most energy at %.2f kW. %s", highest.Name, highest.CurrentPowerKW, state),
		Kind: models.KindText,
	}
}

// pickTips draws two or three distinct tips without replacement.
func (r *Responder) pickTips() []string {
	pool := append([]string(nil), tipPool...)
	n := 2 + random.Intn(r.rnd, 2)
	picked := make([]string, 0, n)
	for i := 0; i < n; i++ {
		idx := random.Intn(r.rnd, len(pool))
		picked = append(picked, pool[idx])
		pool = append(pool[:idx], pool[idx+1:]...)
	}
	return picked
}

func (r *Responder) replyTips(*turn) models.Reply {
	tips := r.pickTips()
	lines := make([]string, len(tips))
	for i, tip := range tips {
		lines[i] = fmt.Sprintf("%d. %s", i+1, tip)
	}
	return models.Reply{
		Text: "Here are some energy saving tips for you:\n\n" + strings.Join(lines, "\n\n"),
		Kind: models.KindSuccess,
	}
}

func mentionedAppliance(t *turn) (models.Appliance, bool) {
	for _, a := range t.snap.Appliances {
		name := strings.ToLower(strings.TrimSpace(a.Name))
		if name != "" && strings.Contains(t.lower, name) {
			return a, true
		}
	}
	return models.Appliance{}, false
}

// A turn-on/off command goes to the toggle rule even when it names a device.
func matchesApplianceMention(t *turn) bool {
	if t.command != nil {
		return false
	}
	_, ok := mentionedAppliance(t)
	return ok
}

func replyApplianceStatus(t *turn) models.Reply {
	a, _ := mentionedAppliance(t)
	state := "off"
	if a.IsOn {
		state = "on"
	}
	text := fmt.Sprintf("Your %s is currently %s and consuming %.2f kW of power.", a.Name, state, a.CurrentPowerKW)
	if a.DailyUsage != 0 {
		text += fmt.Sprintf(" Today it has used approximately %.2f kWh of energy.", a.DailyUsage)
	}
	return models.Reply{Text: text, Kind: models.KindText}
}

type toggleCommand struct {
	on     bool
	device string
}

// parseToggleCommand extracts "turn on|off [the|my] <device>". The device
// phrase is lower-cased with trailing punctuation removed.
func parseToggleCommand(input string) *toggleCommand {
	cmd := &toggleCommand{on: true}
	m := turnOnRe.FindStringSubmatch(input)
	if m == nil {
		cmd.on = false
		m = turnOffRe.FindStringSubmatch(input)
	}
	if m == nil {
		return nil
	}
	cmd.device = strings.ToLower(strings.TrimSpace(strings.TrimRight(m[2], " .!?,;:")))
	return cmd
}

// resolveDevice matches when either name contains the other.
func resolveDevice(appliances []models.Appliance, phrase string) (models.Appliance, bool) {
	if phrase == "" {
		return models.Appliance{}, false
	}
	for _, a := range appliances {
		name := strings.ToLower(a.Name)
		if name == "" {
			continue
		}
		if strings.Contains(name, phrase) || strings.Contains(phrase, name) {
			return a, true
		}
	}
	return models.Appliance{}, false
}

func replyToggle(t *turn) models.Reply {
	a, ok := resolveDevice(t.snap.Appliances, t.command.device)
	if !ok {
		return models.Reply{
			Text: fmt.Sprintf("I couldn't find a device called \"%s\" in your home. Can you try again with a different name?", t.command.device),
			Kind: models.KindError,
		}
	}
	if t.toggle == nil {
		return models.Reply{Text: "Device control isn't available right now.", Kind: models.KindError}
	}
	t.toggle.ToggleApplianceState(a.ID, t.command.on)
	word := "off"
	if t.command.on {
		word = "on"
	}
	return models.Reply{Text: fmt.Sprintf("I've turned %s your %s.", word, a.Name), Kind: models.KindSuccess}
}

func matchesComparison(t *turn) bool {
	if !compareRe.MatchString(t.input) {
		return false
	}
	return strings.Contains(t.lower, "today") || strings.Contains(t.lower, "yesterday") || strings.Contains(t.lower, "week")
}

// replyComparison compares today with a synthesised yesterday at 80-120%
// of today's usage.
func (r *Responder) replyComparison(t *turn) models.Reply {
	today := t.snap.TotalUsage
	yesterday := today * random.Between(r.rnd, 0.8, 1.2)

	var change string
	switch {
	case yesterday == 0:
		change = "No energy use has been recorded on either day yet."
	case today >= yesterday:
		change = fmt.Sprintf("That's a %.1f%% increase compared to yesterday.", (today-yesterday)/yesterday*100)
	default:
		change = fmt.Sprintf("That's a %.1f%% decrease compared to yesterday.", math.Abs(today-yesterday)/yesterday*100)
	}
	return models.Reply{
		Text: fmt.Sprintf("Today you've used %.2f kWh of energy, while yesterday you used %.2f kWh. %s", today, yesterday, change),
		Kind: models.KindChart,
		ChartData: []models.ChartPoint{
			{Label: "Today", Value: today},
			{Label: "Yesterday", Value: yesterday},
		},
	}
}

func (r *Responder) replyJoke(*turn) models.Reply {
	return models.Reply{Text: jokes[random.Intn(r.rnd, len(jokes))], Kind: models.KindText}
}

func matchesScheduleConfirmation(t *turn) bool {
	return t.state == models.DialogueAwaitingScheduleConfirmation && affirmativeRe.MatchString(t.input)
}

func replySchedule(t *turn) models.Reply {
	return models.Reply{
		Text: "Based on your current appliance usage, here's an energy-efficient schedule I recommend:\n\n" + BuildSchedule(t.snap.Appliances),
		Kind: models.KindSuccess,
	}
}

func (r *Responder) replyFallback(t *turn) models.Reply {
	if r.fallback == nil {
		return models.Reply{Text: fallbackText, Kind: models.KindText}
	}
	answer, err := r.fallback.Answer(t.ctx, t.input, t.snap)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			r.logger.Warn("Fallback answer unavailable", zap.Error(err))
		}
		return models.Reply{Text: fallbackText, Kind: models.KindText}
	}
	return models.Reply{Text: answer, Kind: models.KindText}
}
