// Package migration holds the SQLite schema for the mood database.
package migration

// Create contains the full schema. Every statement is idempotent so it can
// be re-run against an existing database.
const Create = `
CREATE TABLE IF NOT EXISTS User (
  name TEXT PRIMARY KEY,
  last_sync DATETIME
);

CREATE TABLE IF NOT EXISTS Track (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL DEFAULT '',
  artist TEXT NOT NULL DEFAULT '',
  duration_ms INTEGER,
  valence REAL,
  energy REAL,
  tempo REAL,
  loudness REAL,
  mode INTEGER,
  has_audio INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS Listen (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  user TEXT NOT NULL,
  track TEXT NOT NULL,
  played_at INTEGER NOT NULL,
  ms_played INTEGER NOT NULL DEFAULT 0,
  weight REAL NOT NULL DEFAULT 1,
  FOREIGN KEY (user) REFERENCES User(name),
  FOREIGN KEY (track) REFERENCES Track(id),
  UNIQUE (user, track, played_at)
);

CREATE TABLE IF NOT EXISTS Lyric (
  track TEXT PRIMARY KEY,
  source TEXT NOT NULL DEFAULT '',
  language TEXT NOT NULL DEFAULT '',
  text TEXT NOT NULL DEFAULT '',
  instrumental INTEGER NOT NULL DEFAULT 0,
  fetched_at DATETIME,
  FOREIGN KEY (track) REFERENCES Track(id)
);

CREATE TABLE IF NOT EXISTS TrackScore (
  track TEXT NOT NULL,
  user TEXT NOT NULL,
  version TEXT NOT NULL,
  polarity REAL,
  unscored INTEGER NOT NULL DEFAULT 0,
  emotions TEXT NOT NULL DEFAULT '{}',
  valence REAL NOT NULL DEFAULT 0,
  arousal REAL NOT NULL DEFAULT 0,
  agreement REAL NOT NULL DEFAULT 0,
  created_at DATETIME NOT NULL,
  PRIMARY KEY (track, user, version)
);

CREATE TABLE IF NOT EXISTS DailyMood (
  user TEXT NOT NULL,
  day TEXT NOT NULL,
  mood_index REAL NOT NULL,
  index_stddev REAL NOT NULL DEFAULT 0,
  dominant TEXT NOT NULL DEFAULT '',
  track_count INTEGER NOT NULL DEFAULT 0,
  drivers TEXT NOT NULL DEFAULT '[]',
  listening_minutes REAL NOT NULL DEFAULT 0,
  energy_avg REAL,
  valence_avg REAL,
  version TEXT NOT NULL DEFAULT '',
  PRIMARY KEY (user, day)
);

CREATE TABLE IF NOT EXISTS Forecast (
  user TEXT NOT NULL,
  issue_day TEXT NOT NULL,
  point REAL NOT NULL,
  low REAL NOT NULL,
  high REAL NOT NULL,
  anomaly INTEGER NOT NULL DEFAULT 0,
  magnitude REAL NOT NULL DEFAULT 0,
  baseline_days INTEGER NOT NULL DEFAULT 0,
  model TEXT NOT NULL DEFAULT '',
  version TEXT NOT NULL DEFAULT '',
  created_at DATETIME NOT NULL,
  PRIMARY KEY (user, issue_day)
);

CREATE TABLE IF NOT EXISTS MoodCheckin (
  user TEXT NOT NULL,
  day TEXT NOT NULL,
  mood INTEGER NOT NULL,
  note TEXT NOT NULL DEFAULT '',
  created_at DATETIME NOT NULL,
  PRIMARY KEY (user, day)
);

CREATE INDEX IF NOT EXISTS idx_listen_user_played ON Listen(user, played_at);
CREATE INDEX IF NOT EXISTS idx_trackscore_user ON TrackScore(user, version);
`
