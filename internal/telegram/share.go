package telegram

import "context"

// Sharer posts exported cards to a fixed chat.
type Sharer struct {
	client *Client
	chatID int64
}

func NewSharer(client *Client, chatID int64) *Sharer {
	return &Sharer{client: client, chatID: chatID}
}

func (s *Sharer) ShareImage(ctx context.Context, name string, png []byte, caption string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.client.SendDocument(s.chatID, name, png, caption)
}
