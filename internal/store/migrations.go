package store

const schema = `
CREATE TABLE IF NOT EXISTS schools (
    id   TEXT PRIMARY KEY,
    name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS users (
    id        TEXT PRIMARY KEY,
    name      TEXT NOT NULL DEFAULT '',
    email     TEXT NOT NULL UNIQUE,
    school_id TEXT NOT NULL DEFAULT '' REFERENCES schools(id)
);

CREATE TABLE IF NOT EXISTS content (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    content_type TEXT NOT NULL,
    content_id   TEXT NOT NULL,
    parent_id    TEXT NOT NULL DEFAULT '',
    author_id    TEXT NOT NULL DEFAULT '',
    body         TEXT NOT NULL,
    created_at   DATETIME NOT NULL,
    collected_at DATETIME NOT NULL,
    UNIQUE(content_type, content_id)
);

CREATE INDEX IF NOT EXISTS idx_content_author ON content(author_id);
CREATE INDEX IF NOT EXISTS idx_content_parent ON content(parent_id);

CREATE TABLE IF NOT EXISTS incidents (
    id             INTEGER PRIMARY KEY AUTOINCREMENT,
    incident_id    TEXT NOT NULL UNIQUE,
    content_id     TEXT NOT NULL,
    content_type   TEXT NOT NULL,
    author_id      TEXT NOT NULL,
    severity_level TEXT NOT NULL,
    status         TEXT NOT NULL,
    timestamp      DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_incidents_author ON incidents(author_id);
CREATE INDEX IF NOT EXISTS idx_incidents_status ON incidents(status);
CREATE INDEX IF NOT EXISTS idx_incidents_timestamp ON incidents(timestamp);

CREATE TABLE IF NOT EXISTS alerts (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    alert_id     TEXT NOT NULL UNIQUE,
    incident_id  TEXT NOT NULL REFERENCES incidents(incident_id),
    admin_id     TEXT NOT NULL DEFAULT '',
    alert_status TEXT NOT NULL,
    created_at   DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_alerts_incident ON alerts(incident_id);
`
