package i18n

var ptBRMessages = map[Code]string{
	CodeUnauthenticated:      "Você precisa entrar para jogar",
	CodeSessionIDEmpty:       "O código do jogo é obrigatório",
	CodeSessionNotFound:      "O jogo {{.SessionID}} não existe",
	CodeSessionNotJoinable:   "Não é possível entrar no jogo {{.SessionID}} porque ele está {{.Status}}",
	CodeSessionNotStartable:  "Não é possível iniciar o jogo {{.SessionID}} porque ele está {{.Status}}",
	CodeSessionNotStarted:    "O jogo {{.SessionID}} está {{.Status}}",
	CodePlayerNotInSession:   "Você não é jogador do jogo {{.SessionID}}",
	CodeRoundNotFound:        "A rodada {{.Round}} não existe",
	CodeRoundClosed:          "A rodada {{.Round}} não aceita mais respostas",
	CodeRoundAlreadyScored:   "A rodada {{.Round}} já foi pontuada",
	CodeScoreNegative:        "Pontuações não podem ser negativas",
	CodeRoundWordsExhausted:  "O jogo {{.SessionID}} ficou sem palavras",
	CodeWordPoolTooSmall:     "O banco tem {{.PoolSize}} palavras, são necessárias {{.Count}}",
	CodeInternal:             "Algo deu errado, tente novamente",
	CodeSessionCodeExhausted: "Não foi possível gerar um código de jogo, tente novamente",
}
