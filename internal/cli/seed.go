package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/PabloGalante/chatflow/internal/domain"
)

// Fixtures is the YAML layout accepted by `chatflow seed` and --seed.
//
//	users:
//	  - id: u1
//	    displayName: Ana
//	chats:
//	  - id: c1
//	    collection: groups
//	    members: [u1, u2]
//	    messages:
//	      - id: m1
//	        sender: u1
//	        text: standup moved to 10
//	        at: 2026-03-02T09:00:00Z
type Fixtures struct {
	Users []domain.UserProfile `yaml:"users"`
	Chats []chatFixture        `yaml:"chats"`
}

type chatFixture struct {
	ID         string           `yaml:"id"`
	Collection string           `yaml:"collection"`
	Members    []string         `yaml:"members"`
	Messages   []messageFixture `yaml:"messages"`
}

type messageFixture struct {
	ID       string    `yaml:"id"`
	Sender   string    `yaml:"sender"`
	Text     string    `yaml:"text"`
	ImageURL string    `yaml:"imageUrl"`
	At       time.Time `yaml:"at"`
}

func loadFixtures(path string) (*Fixtures, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading fixtures %s: %w", path, err)
	}
	var f Fixtures
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing fixtures %s: %w", path, err)
	}
	return &f, nil
}

// apply writes the fixtures. Collections default to chats and messages
// without a time are spaced one minute apart ending now.
func (f *Fixtures) apply(ctx context.Context, w domain.ChatWriter, now time.Time) (messages int, err error) {
	for i := range f.Users {
		if f.Users[i].ID == "" {
			return messages, fmt.Errorf("users[%d]: id is required", i)
		}
		if err := w.SaveUserProfile(ctx, &f.Users[i]); err != nil {
			return messages, err
		}
	}

	for i, c := range f.Chats {
		if c.ID == "" {
			return messages, fmt.Errorf("chats[%d]: id is required", i)
		}
		collection := domain.CollectionType(c.Collection)
		if collection == "" {
			collection = domain.CollectionChats
		}
		if !collection.Valid() {
			return messages, fmt.Errorf("chats[%d]: unknown collection %q", i, c.Collection)
		}

		chat := &domain.Chat{ID: domain.ChatID(c.ID), Collection: collection}
		for _, m := range c.Members {
			chat.MemberIDs = append(chat.MemberIDs, domain.UserID(m))
		}
		if err := w.SaveChat(ctx, chat); err != nil {
			return messages, err
		}

		for j, m := range c.Messages {
			msg := &domain.Message{
				ID:         domain.MessageID(m.ID),
				ChatID:     chat.ID,
				Collection: collection,
				SenderID:   domain.UserID(m.Sender),
				Text:       m.Text,
				ImageURL:   m.ImageURL,
				CreatedAt:  m.At.UTC(),
			}
			if msg.ID == "" {
				msg.ID = domain.MessageID(fmt.Sprintf("%s-m%d", c.ID, j+1))
			}
			if m.At.IsZero() {
				msg.CreatedAt = now.Add(-time.Duration(len(c.Messages)-j) * time.Minute).UTC()
			}
			if err := w.SaveMessage(ctx, msg); err != nil {
				return messages, err
			}
			messages++
		}
	}
	return messages, nil
}

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed <fixtures.yaml>",
		Short: "Load users, chats and messages into the configured storage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := loadFixtures(args[0])
			if err != nil {
				return err
			}

			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := f.apply(cmd.Context(), a.store, time.Now())
			if err != nil {
				return fmt.Errorf("seeding: %w", err)
			}

			log.Info().
				Int("users", len(f.Users)).
				Int("chats", len(f.Chats)).
				Int("messages", n).
				Msg("fixtures loaded")
			return nil
		},
	}
}
