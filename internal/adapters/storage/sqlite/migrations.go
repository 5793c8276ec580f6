package sqlite

type migration struct {
	Version int
	Name    string
	SQL     string
}

// migrations is the ordered list of all schema migrations.
var migrations = []migration{
	{
		Version: 1,
		Name:    "create users, chats and messages",
		SQL: `
			CREATE TABLE users (
				id            TEXT PRIMARY KEY,
				display_name  TEXT NOT NULL DEFAULT '',
				email         TEXT NOT NULL DEFAULT ''
			);

			CREATE TABLE chats (
				collection  TEXT NOT NULL,
				id          TEXT NOT NULL,
				members     TEXT NOT NULL DEFAULT '[]',
				PRIMARY KEY (collection, id)
			);

			CREATE TABLE messages (
				collection  TEXT NOT NULL,
				chat_id     TEXT NOT NULL,
				id          TEXT NOT NULL,
				sender_id   TEXT NOT NULL,
				text        TEXT NOT NULL DEFAULT '',
				image_url   TEXT NOT NULL DEFAULT '',
				status      TEXT NOT NULL DEFAULT '',
				created_at  INTEGER NOT NULL,
				PRIMARY KEY (collection, chat_id, id)
			);

			CREATE INDEX idx_messages_chat_time ON messages (collection, chat_id, created_at);
		`,
	},
	{
		Version: 2,
		Name:    "create projection log",
		SQL: `
			CREATE TABLE projection_log (
				seq          INTEGER PRIMARY KEY AUTOINCREMENT,
				collection   TEXT NOT NULL,
				doc_id       TEXT NOT NULL,
				payload      TEXT NOT NULL,
				appended_at  INTEGER NOT NULL
			);

			CREATE INDEX idx_projection_doc ON projection_log (collection, doc_id, seq);
		`,
	},
}
