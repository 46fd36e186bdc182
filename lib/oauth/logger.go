package oauth

import "github.com/cloudnative-co/slack-bolt-add-azure/lib/logger"

func orDefault(l *logger.Logger) *logger.Logger {
	if l != nil {
		return l
	}
	return logger.New("", logger.WithLocal(true), logger.WithPrefix("oauth: "))
}
