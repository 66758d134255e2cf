package classifier

import (
	"strings"
)

// Topic is the coarse subject of a chat message, used to pick follow-up
// suggestions. It is independent of the responder's intent match and may
// disagree with it.
type Topic string

const (
	TopicUsage   Topic = "usage"
	TopicSavings Topic = "savings"
	TopicDevices Topic = "devices"
	TopicGeneral Topic = "general"
)

type Classifier interface {
	Classify(content string) Topic
}

type topicKeywords struct {
	topic    Topic
	keywords []string
}

// checked in order; the first topic with a matching keyword wins
var topics = []topicKeywords{
	{TopicUsage, []string{"energy", "power", "usage"}},
	{TopicSavings, []string{"tip", "save", "reduce"}},
	{TopicDevices, []string{"device", "appliance"}},
}

var suggestions = map[Topic][]string{
	TopicUsage: {
		"Show me energy usage by device",
		"How can I reduce my energy usage?",
		"What's my energy forecast for tomorrow?",
	},
	TopicSavings: {
		"More energy saving tips",
		"How much can I save?",
		"Schedule energy optimization",
	},
	TopicDevices: {
		"Which device uses most energy?",
		"Turn off all devices",
		"Schedule device usage",
	},
	TopicGeneral: {
		"Show my energy summary",
		"Compare today vs. yesterday",
		"Energy saving recommendations",
	},
}

// Starter suggestions shown with the welcome message.
var starters = []string{
	"What's my energy usage?",
	"Energy saving tips",
	"Which devices are on?",
}

type KeywordClassifier struct{}

func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{}
}

// Classify matches plain substrings of the lower-cased content, so
// "tips" and "saved" count as well.
func (c *KeywordClassifier) Classify(content string) Topic {
	content = strings.ToLower(content)
	for _, t := range topics {
		for _, keyword := range t.keywords {
			if strings.Contains(content, keyword) {
				return t.topic
			}
		}
	}
	return TopicGeneral
}

// Suggestions returns a fresh copy of the follow-ups for topic.
func Suggestions(topic Topic) []string {
	list, ok := suggestions[topic]
	if !ok {
		list = suggestions[TopicGeneral]
	}
	return append([]string(nil), list...)
}

func StarterSuggestions() []string {
	return append([]string(nil), starters...)
}
