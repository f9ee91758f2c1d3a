package sqlite

const schemaVersion = 1

const schemaSQL = `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS pages (
	id TEXT PRIMARY KEY,
	url TEXT UNIQUE NOT NULL,
	doc TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS pages_by_author ON pages(json_extract(doc, '$.author'));
`
