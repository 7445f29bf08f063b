package render

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func init() {
	lang := language.AmericanEnglish

	message.SetString(lang, "reply.fallback.body", "Sorry, I didn't understand that. Send \"help\" to see what I can do.")
	message.SetString(lang, "reply.expired.body", "That conversation timed out, so I've closed it. Send \"help\" to start again.")
	message.SetString(lang, "reply.userinfo.prompt", "Hi! I don't think we've met. What should I call you?")
	message.SetString(lang, "reply.userinfo.again", "I didn't catch a name there. What should I call you?")
	message.SetString(lang, "reply.userinfo.welcome", "Nice to meet you, %s! Send \"help\" to see what I can do.")
	message.SetString(lang, "reply.greet.hello", "Hello, %s! How can I help you today?")
	message.SetString(lang, "reply.help.body", "Here's what I can do:\n- say hi and I'll greet you back\n- \"survey\" starts a short feedback survey\n- \"help\" shows this message")
	message.SetString(lang, "reply.survey.rating", "Quick survey, question 1 of 2: how would you rate me from 1 to 5?")
	message.SetString(lang, "reply.survey.rating_again", "I need a number from 1 to 5. How would you rate me?")
	message.SetString(lang, "reply.survey.comment", "Question 2 of 2: anything you'd like to tell me?")
	message.SetString(lang, "reply.survey.thanks", "Thanks! I recorded your rating of %s.")
}
