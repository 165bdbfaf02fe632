package db

import (
	"database/sql"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

type DB struct {
	db *sql.DB
}

func Setup(dbPath string) (*DB, error) {
	// https://github.com/mattn/go-sqlite3#connection-string
	opts := []string{
		"_foreign_keys=1",
		"_journal_mode=WAL",
		"_synchronous=NORMAL",
		"_auto_vacuum=incremental",
	}

	db, err := sql.Open("sqlite3", dbPath+"?"+strings.Join(opts, "&"))
	if err != nil {
		return nil, err
	}

	// Blocking storage calls are funneled through this bounded pool;
	// conversion and dispatch logic above it stays lock-free.
	db.SetMaxOpenConns(8)

	_, err = db.Exec(`
		create table if not exists users (
			id integer primary key autoincrement,
			name text not null,
			actor_id text not null unique,
			bio text,
			public_key text,
			private_key text,
			local integer not null default 1,
			deleted integer not null default 0,
			published datetime not null default current_timestamp,
			updated datetime
		);

		create table if not exists communities (
			id integer primary key autoincrement,
			name text not null,
			title text not null,
			description text,
			creator_id integer not null references users(id),
			actor_id text not null unique,
			public_key text,
			private_key text,
			local integer not null default 1,
			deleted integer not null default 0,
			removed integer not null default 0,
			nsfw integer not null default 0,
			published datetime not null default current_timestamp,
			updated datetime
		);

		create table if not exists community_followers (
			id integer primary key autoincrement,
			community_id integer not null references communities(id),
			user_id integer not null references users(id),
			pending integer not null default 0,
			published datetime not null default current_timestamp,
			unique(community_id, user_id)
		);

		create table if not exists posts (
			id integer primary key autoincrement,
			name text not null,
			url text,
			body text,
			creator_id integer not null references users(id),
			community_id integer not null references communities(id),
			ap_id text not null unique,
			local integer not null default 1,
			deleted integer not null default 0,
			removed integer not null default 0,
			locked integer not null default 0,
			nsfw integer not null default 0,
			published datetime not null default current_timestamp,
			updated datetime
		);

		create table if not exists comments (
			id integer primary key autoincrement,
			creator_id integer not null references users(id),
			post_id integer not null references posts(id),
			parent_id integer references comments(id),
			content text not null,
			ap_id text not null unique,
			local integer not null default 1,
			deleted integer not null default 0,
			removed integer not null default 0,
			published datetime not null default current_timestamp,
			updated datetime
		);

		create table if not exists private_messages (
			id integer primary key autoincrement,
			creator_id integer not null references users(id),
			recipient_id integer not null references users(id),
			content text not null,
			ap_id text not null unique,
			local integer not null default 1,
			deleted integer not null default 0,
			read integer not null default 0,
			published datetime not null default current_timestamp,
			updated datetime
		);

		create table if not exists activities (
			id integer primary key autoincrement,
			user_id integer not null,
			data text not null, -- json
			local integer not null default 1,
			published datetime not null default current_timestamp
		);
	`)
	if err != nil {
		return nil, err
	}

	return &DB{db: db}, nil
}

func (d *DB) Close() error {
	return d.db.Close()
}
