package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/moodsync/mood-tools/internal/aggregate"
	"github.com/moodsync/mood-tools/internal/ensemble"
	"github.com/moodsync/mood-tools/internal/estimator"
	"github.com/moodsync/mood-tools/internal/forecast"
)

// ListenImport is one provider-supplied listen event with its track
// metadata, ready for insertion.
type ListenImport struct {
	TrackID    string
	Name       string
	Artist     string
	PlayedAt   time.Time
	MsPlayed   int
	Weight     float64
	DurationMs int
	Audio      *estimator.AudioFeatures
}

// CreateUser ensures a user exists in the database.
func (s *Store) CreateUser(user string) error {
	row := s.db.QueryRow("SELECT name FROM User WHERE name = ?", user)
	var name string
	err := row.Scan(&name)
	if err == sql.ErrNoRows {
		_, err := s.db.Exec("INSERT INTO User (name) VALUES (?)", user)
		if err != nil {
			return fmt.Errorf("inserting user %q: %w", user, err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("checking user %q: %w", user, err)
	}
	return nil
}

func (s *Store) SetLastSync(user string, t time.Time) error {
	_, err := s.db.Exec("UPDATE User SET last_sync = ? WHERE name = ?", t, user)
	if err != nil {
		return fmt.Errorf("updating last_sync for %q: %w", user, err)
	}
	return nil
}

// AddListens inserts a batch of listen events transactionally. Track rows
// are upserted; a listen already present (same user, track, played_at) is
// skipped, so re-syncing overlapping pages is idempotent.
func (s *Store) AddListens(user string, listens []ListenImport) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, l := range listens {
		if err := upsertTrack(tx, l); err != nil {
			return err
		}
		_, err := tx.Exec(`
			INSERT OR IGNORE INTO Listen (user, track, played_at, ms_played, weight)
			VALUES (?, ?, ?, ?, ?)`,
			user, l.TrackID, l.PlayedAt.Unix(), l.MsPlayed, l.Weight)
		if err != nil {
			return fmt.Errorf("inserting listen for track %q: %w", l.TrackID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func upsertTrack(tx *sql.Tx, l ListenImport) error {
	if l.Audio != nil {
		_, err := tx.Exec(`
			INSERT INTO Track (id, name, artist, duration_ms, valence, energy, tempo, loudness, mode, has_audio)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 1)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name,
				artist = excluded.artist,
				duration_ms = excluded.duration_ms,
				valence = excluded.valence,
				energy = excluded.energy,
				tempo = excluded.tempo,
				loudness = excluded.loudness,
				mode = excluded.mode,
				has_audio = 1`,
			l.TrackID, l.Name, l.Artist, l.DurationMs,
			l.Audio.Valence, l.Audio.Energy, l.Audio.Tempo, l.Audio.Loudness, l.Audio.Mode)
		if err != nil {
			return fmt.Errorf("upserting track %q: %w", l.TrackID, err)
		}
		return nil
	}

	_, err := tx.Exec(`
		INSERT INTO Track (id, name, artist, duration_ms)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			artist = excluded.artist,
			duration_ms = excluded.duration_ms`,
		l.TrackID, l.Name, l.Artist, l.DurationMs)
	if err != nil {
		return fmt.Errorf("upserting track %q: %w", l.TrackID, err)
	}
	return nil
}

// SaveLyrics caches fetched lyrics for a track.
func (s *Store) SaveLyrics(trackID, source, language, text string, instrumental bool) error {
	_, err := s.db.Exec(`
		INSERT INTO Lyric (track, source, language, text, instrumental, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(track) DO UPDATE SET
			source = excluded.source,
			language = excluded.language,
			text = excluded.text,
			instrumental = excluded.instrumental,
			fetched_at = excluded.fetched_at`,
		trackID, source, language, text, instrumental, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("saving lyrics for track %q: %w", trackID, err)
	}
	return nil
}

// PutTrackScore writes a track score, overwriting any existing record for
// the same (track, user, version) while preserving its created_at. With the
// same version the write is idempotent; a new version produces a new row,
// never an in-place update of the old one.
func (s *Store) PutTrackScore(score ensemble.TrackScore) error {
	emotions, err := json.Marshal(score.Emotions)
	if err != nil {
		return fmt.Errorf("encoding emotions: %w", err)
	}

	var polarity sql.NullFloat64
	if score.Polarity != nil {
		polarity = sql.NullFloat64{Float64: *score.Polarity, Valid: true}
	}

	_, err = s.db.Exec(`
		INSERT INTO TrackScore (track, user, version, polarity, unscored, emotions, valence, arousal, agreement, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(track, user, version) DO UPDATE SET
			polarity = excluded.polarity,
			unscored = excluded.unscored,
			emotions = excluded.emotions,
			valence = excluded.valence,
			arousal = excluded.arousal,
			agreement = excluded.agreement`,
		score.TrackID, score.UserID, score.Version,
		polarity, score.Unscored, string(emotions),
		score.Valence, score.Arousal, score.Agreement, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("writing score for track %q: %w", score.TrackID, err)
	}
	return nil
}

// PutDailyMood replaces the full (user, day) record. Daily moods are always
// recomputed whole from source scores, never patched.
func (s *Store) PutDailyMood(m aggregate.DailyMood) error {
	drivers, err := json.Marshal(m.Drivers)
	if err != nil {
		return fmt.Errorf("encoding drivers: %w", err)
	}

	var energy, valence sql.NullFloat64
	if m.EnergyAvg != nil {
		energy = sql.NullFloat64{Float64: *m.EnergyAvg, Valid: true}
	}
	if m.ValenceAvg != nil {
		valence = sql.NullFloat64{Float64: *m.ValenceAvg, Valid: true}
	}

	_, err = s.db.Exec(`
		INSERT OR REPLACE INTO DailyMood
			(user, day, mood_index, index_stddev, dominant, track_count, drivers, listening_minutes, energy_avg, valence_avg, version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.UserID, DayKey(m.Day), m.Index, m.IndexStdDev, string(m.Dominant),
		m.TrackCount, string(drivers), m.ListeningMinutes, energy, valence, m.Version)
	if err != nil {
		return fmt.Errorf("writing daily mood for %q %s: %w", m.UserID, DayKey(m.Day), err)
	}
	return nil
}

// DeleteDailyMood removes the record for a day that no longer has any
// scored listens. Absence is the documented "no data" signal.
func (s *Store) DeleteDailyMood(user string, day time.Time) error {
	_, err := s.db.Exec("DELETE FROM DailyMood WHERE user = ? AND day = ?", user, DayKey(day))
	if err != nil {
		return fmt.Errorf("deleting daily mood for %q %s: %w", user, DayKey(day), err)
	}
	return nil
}

// PutForecast stores a forecast issue, overwriting an earlier issue for the
// same day.
func (s *Store) PutForecast(r forecast.Result) error {
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO Forecast
			(user, issue_day, point, low, high, anomaly, magnitude, baseline_days, model, version, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.UserID, DayKey(r.IssueDay), r.Point, r.Low, r.High,
		r.Anomaly, r.AnomalyMagnitude, r.BaselineDays, r.ModelName, r.Version, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("writing forecast for %q %s: %w", r.UserID, DayKey(r.IssueDay), err)
	}
	return nil
}

// AddCheckin records a self-reported mood (1-5) for validation against the
// computed index.
func (s *Store) AddCheckin(user string, day time.Time, mood int, note string) error {
	if mood < 1 || mood > 5 {
		return fmt.Errorf("mood %d outside 1-5", mood)
	}
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO MoodCheckin (user, day, mood, note, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		user, DayKey(day), mood, note, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("writing checkin for %q %s: %w", user, DayKey(day), err)
	}
	return nil
}

// PurgeUser removes every record belonging to a user. This is the only path
// that returns a user's forecasting state to cold.
func (s *Store) PurgeUser(user string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, q := range []string{
		"DELETE FROM Listen WHERE user = ?",
		"DELETE FROM TrackScore WHERE user = ?",
		"DELETE FROM DailyMood WHERE user = ?",
		"DELETE FROM Forecast WHERE user = ?",
		"DELETE FROM MoodCheckin WHERE user = ?",
		"DELETE FROM User WHERE name = ?",
	} {
		if _, err := tx.Exec(q, user); err != nil {
			return fmt.Errorf("purging user %q: %w", user, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}
