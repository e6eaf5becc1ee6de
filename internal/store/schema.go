package store

// Schema applied on open. Post identity is {platform}_{platform_post_id};
// upserts merge into the existing row and never touch first_seen_at.
const schema = `
CREATE TABLE IF NOT EXISTS accounts (
    id               TEXT PRIMARY KEY,
    platform         TEXT NOT NULL,
    handle           TEXT NOT NULL,
    display_name     TEXT NOT NULL DEFAULT '',
    platform_user_id TEXT NOT NULL DEFAULT '',
    credentials      TEXT NOT NULL DEFAULT '{}',
    sync_cursor      TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS posts (
    id               TEXT PRIMARY KEY,
    platform         TEXT NOT NULL,
    platform_post_id TEXT NOT NULL,
    text             TEXT NOT NULL,
    created_at       TEXT NOT NULL,
    media_type       TEXT NOT NULL,
    has_url          INTEGER NOT NULL,
    impressions      INTEGER,
    likes            INTEGER NOT NULL,
    replies          INTEGER NOT NULL,
    reposts          INTEGER NOT NULL,
    quotes           INTEGER,
    clicks           INTEGER,
    permalink        TEXT NOT NULL DEFAULT '',
    score            REAL NOT NULL,
    raw              BLOB,
    first_seen_at    TEXT NOT NULL,
    updated_at       TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_posts_platform_created ON posts(platform, created_at DESC);
`
