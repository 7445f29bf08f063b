package render

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func init() {
	lang := language.BrazilianPortuguese

	message.SetString(lang, "reply.fallback.body", "Desculpe, não entendi. Envie \"help\" para ver o que eu sei fazer.")
	message.SetString(lang, "reply.expired.body", "Aquela conversa expirou, então eu a encerrei. Envie \"help\" para recomeçar.")
	message.SetString(lang, "reply.userinfo.prompt", "Oi! Acho que ainda não nos conhecemos. Como devo te chamar?")
	message.SetString(lang, "reply.userinfo.again", "Não consegui entender o nome. Como devo te chamar?")
	message.SetString(lang, "reply.userinfo.welcome", "Prazer em te conhecer, %s! Envie \"help\" para ver o que eu sei fazer.")
	message.SetString(lang, "reply.greet.hello", "Olá, %s! Como posso ajudar hoje?")
	message.SetString(lang, "reply.help.body", "Aqui está o que eu sei fazer:\n- diga oi e eu respondo\n- \"survey\" inicia uma pesquisa rápida\n- \"help\" mostra esta mensagem")
	message.SetString(lang, "reply.survey.rating", "Pesquisa rápida, pergunta 1 de 2: que nota você me dá, de 1 a 5?")
	message.SetString(lang, "reply.survey.rating_again", "Preciso de um número de 1 a 5. Que nota você me dá?")
	message.SetString(lang, "reply.survey.comment", "Pergunta 2 de 2: algo mais que você queira me dizer?")
	message.SetString(lang, "reply.survey.thanks", "Obrigado! Registrei sua nota %s.")
}
