package bot

import (
	"github.com/studgram/studgram-bot/internal/engine"

	tele "gopkg.in/telebot.v4"
)

// InlineMarkup converts engine button rows into a Telebot inline keyboard.
// Payloads are carried verbatim in callback data. Returns nil for an empty
// keyboard so messages without buttons carry no markup at all.
func InlineMarkup(rows [][]engine.Button) *tele.ReplyMarkup {
	if len(rows) == 0 {
		return nil
	}
	keyboard := make([][]tele.InlineButton, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		line := make([]tele.InlineButton, 0, len(row))
		for _, b := range row {
			line = append(line, tele.InlineButton{
				Text: b.Text,
				Data: b.Payload,
			})
		}
		keyboard = append(keyboard, line)
	}
	if len(keyboard) == 0 {
		return nil
	}
	return &tele.ReplyMarkup{InlineKeyboard: keyboard}
}
