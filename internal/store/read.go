package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/moodsync/mood-tools/internal/aggregate"
	"github.com/moodsync/mood-tools/internal/ensemble"
	"github.com/moodsync/mood-tools/internal/estimator"
)

func (s *Store) GetLastSync(user string) (time.Time, error) {
	row := s.db.QueryRow("SELECT last_sync FROM User WHERE name = ?", user)
	var t sql.NullTime
	err := row.Scan(&t)
	if err == sql.ErrNoRows {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("getting last sync: %w", err)
	}
	return t.Time, nil
}

// TrackInput assembles the estimator input for one track: lyric text if
// cached, plus audio features if the provider supplied them.
func (s *Store) TrackInput(trackID string) (estimator.Input, error) {
	in := estimator.Input{TrackID: trackID}

	row := s.db.QueryRow(
		"SELECT valence, energy, tempo, loudness, mode, has_audio FROM Track WHERE id = ?", trackID)
	var valence, energy, tempo, loudness sql.NullFloat64
	var mode sql.NullInt64
	var hasAudio bool
	err := row.Scan(&valence, &energy, &tempo, &loudness, &mode, &hasAudio)
	if err == sql.ErrNoRows {
		return in, fmt.Errorf("unknown track %q", trackID)
	}
	if err != nil {
		return in, fmt.Errorf("reading track %q: %w", trackID, err)
	}
	if hasAudio {
		in.Audio = &estimator.AudioFeatures{
			Valence:  valence.Float64,
			Energy:   energy.Float64,
			Tempo:    tempo.Float64,
			Loudness: loudness.Float64,
			Mode:     int(mode.Int64),
		}
	}

	row = s.db.QueryRow("SELECT text, language, instrumental FROM Lyric WHERE track = ?", trackID)
	var text, language string
	var instrumental bool
	err = row.Scan(&text, &language, &instrumental)
	if err == sql.ErrNoRows {
		return in, nil
	}
	if err != nil {
		return in, fmt.Errorf("reading lyrics for %q: %w", trackID, err)
	}
	in.Language = language
	in.Instrumental = instrumental
	if !instrumental {
		in.LyricText = text
	}
	return in, nil
}

// UnscoredTracks lists the user's listened tracks that have no score for
// the given ensemble version yet.
func (s *Store) UnscoredTracks(user, version string) ([]string, error) {
	rows, err := s.db.Query(`
		SELECT DISTINCT l.track
		FROM Listen l
		LEFT JOIN TrackScore ts ON ts.track = l.track AND ts.user = l.user AND ts.version = ?
		WHERE l.user = ? AND ts.track IS NULL
		ORDER BY l.track`,
		version, user)
	if err != nil {
		return nil, fmt.Errorf("querying unscored tracks: %w", err)
	}
	defer rows.Close()

	var tracks []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		tracks = append(tracks, t)
	}
	return tracks, rows.Err()
}

// GetTrackScore reads one score; ok is false when no record exists.
func (s *Store) GetTrackScore(trackID, user, version string) (ensemble.TrackScore, bool, error) {
	row := s.db.QueryRow(`
		SELECT polarity, unscored, emotions, valence, arousal, agreement, created_at
		FROM TrackScore WHERE track = ? AND user = ? AND version = ?`,
		trackID, user, version)

	score := ensemble.TrackScore{TrackID: trackID, UserID: user, Version: version}
	var polarity sql.NullFloat64
	var emotions string
	err := row.Scan(&polarity, &score.Unscored, &emotions,
		&score.Valence, &score.Arousal, &score.Agreement, &score.CreatedAt)
	if err == sql.ErrNoRows {
		return ensemble.TrackScore{}, false, nil
	}
	if err != nil {
		return ensemble.TrackScore{}, false, fmt.Errorf("reading score for %q: %w", trackID, err)
	}

	if polarity.Valid {
		p := polarity.Float64
		score.Polarity = &p
	}
	if err := json.Unmarshal([]byte(emotions), &score.Emotions); err != nil {
		return ensemble.TrackScore{}, false, fmt.Errorf("decoding emotions for %q: %w", trackID, err)
	}
	return score, true, nil
}

// DayEntries returns one aggregation entry per listen on the given day, for
// every listen whose track has a score under the given version. The whole
// day is read in a single query, so an aggregation or forecast snapshot
// never observes a half-written record.
func (s *Store) DayEntries(user string, day time.Time, version string) ([]aggregate.Entry, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 1)

	rows, err := s.db.Query(`
		SELECT l.track, l.ms_played, l.weight,
		       ts.polarity, ts.unscored, ts.emotions, ts.valence, ts.arousal, ts.agreement,
		       t.valence, t.energy, t.tempo, t.loudness, t.mode, t.has_audio
		FROM Listen l
		JOIN TrackScore ts ON ts.track = l.track AND ts.user = l.user AND ts.version = ?
		JOIN Track t ON t.id = l.track
		WHERE l.user = ? AND l.played_at >= ? AND l.played_at < ?
		ORDER BY l.played_at`,
		version, user, start.Unix(), end.Unix())
	if err != nil {
		return nil, fmt.Errorf("querying day entries: %w", err)
	}
	defer rows.Close()

	var entries []aggregate.Entry
	for rows.Next() {
		var e aggregate.Entry
		var msPlayed int
		var polarity sql.NullFloat64
		var emotions string
		var tv, te, tt, tl sql.NullFloat64
		var mode sql.NullInt64
		var hasAudio bool

		e.Score.UserID = user
		e.Score.Version = version
		err := rows.Scan(&e.Score.TrackID, &msPlayed, &e.Weight,
			&polarity, &e.Score.Unscored, &emotions,
			&e.Score.Valence, &e.Score.Arousal, &e.Score.Agreement,
			&tv, &te, &tt, &tl, &mode, &hasAudio)
		if err != nil {
			return nil, err
		}

		if polarity.Valid {
			p := polarity.Float64
			e.Score.Polarity = &p
		}
		if err := json.Unmarshal([]byte(emotions), &e.Score.Emotions); err != nil {
			return nil, fmt.Errorf("decoding emotions for %q: %w", e.Score.TrackID, err)
		}
		e.Minutes = float64(msPlayed) / 60000
		if hasAudio {
			e.Audio = &estimator.AudioFeatures{
				Valence:  tv.Float64,
				Energy:   te.Float64,
				Tempo:    tt.Float64,
				Loudness: tl.Float64,
				Mode:     int(mode.Int64),
			}
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ListenDays lists the distinct days (UTC) on which the user listened,
// ascending.
func (s *Store) ListenDays(user string) ([]time.Time, error) {
	rows, err := s.db.Query(`
		SELECT DISTINCT date(played_at, 'unixepoch') FROM Listen
		WHERE user = ? ORDER BY 1`, user)
	if err != nil {
		return nil, fmt.Errorf("querying listen days: %w", err)
	}
	defer rows.Close()

	var days []time.Time
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		day, err := ParseDay(key)
		if err != nil {
			return nil, err
		}
		days = append(days, day)
	}
	return days, rows.Err()
}

// MoodHistory reads the user's daily moods in ascending day order. A single
// query yields the consistent snapshot the forecaster requires.
func (s *Store) MoodHistory(user string, limit int) ([]aggregate.DailyMood, error) {
	query := `
		SELECT user, day, mood_index, index_stddev, dominant, track_count, drivers,
		       listening_minutes, energy_avg, valence_avg, version
		FROM DailyMood WHERE user = ? ORDER BY day`
	args := []interface{}{user}
	if limit > 0 {
		// Take the trailing records but keep ascending order.
		query = `
			SELECT * FROM (
				SELECT user, day, mood_index, index_stddev, dominant, track_count, drivers,
				       listening_minutes, energy_avg, valence_avg, version
				FROM DailyMood WHERE user = ? ORDER BY day DESC LIMIT ?
			) ORDER BY day`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying mood history: %w", err)
	}
	defer rows.Close()

	return scanDailyMoods(rows)
}

// DailyMoodsInRange reads daily moods for [start, end), ascending.
func (s *Store) DailyMoodsInRange(user string, start, end time.Time) ([]aggregate.DailyMood, error) {
	rows, err := s.db.Query(`
		SELECT user, day, mood_index, index_stddev, dominant, track_count, drivers,
		       listening_minutes, energy_avg, valence_avg, version
		FROM DailyMood WHERE user = ? AND day >= ? AND day < ? ORDER BY day`,
		user, DayKey(start), DayKey(end))
	if err != nil {
		return nil, fmt.Errorf("querying daily moods: %w", err)
	}
	defer rows.Close()

	return scanDailyMoods(rows)
}

func scanDailyMoods(rows *sql.Rows) ([]aggregate.DailyMood, error) {
	var moods []aggregate.DailyMood
	for rows.Next() {
		var m aggregate.DailyMood
		var dayKey, dominant, drivers string
		var energy, valence sql.NullFloat64
		err := rows.Scan(&m.UserID, &dayKey, &m.Index, &m.IndexStdDev, &dominant,
			&m.TrackCount, &drivers, &m.ListeningMinutes, &energy, &valence, &m.Version)
		if err != nil {
			return nil, err
		}

		m.Day, err = ParseDay(dayKey)
		if err != nil {
			return nil, err
		}
		m.Dominant = estimator.Category(dominant)
		if err := json.Unmarshal([]byte(drivers), &m.Drivers); err != nil {
			return nil, fmt.Errorf("decoding drivers for %s: %w", dayKey, err)
		}
		if energy.Valid {
			m.EnergyAvg = &energy.Float64
		}
		if valence.Valid {
			m.ValenceAvg = &valence.Float64
		}
		moods = append(moods, m)
	}
	return moods, rows.Err()
}

// GetCheckin reads a self-reported mood; ok is false when none was recorded.
func (s *Store) GetCheckin(user string, day time.Time) (int, string, bool, error) {
	row := s.db.QueryRow(
		"SELECT mood, note FROM MoodCheckin WHERE user = ? AND day = ?", user, DayKey(day))
	var mood int
	var note string
	err := row.Scan(&mood, &note)
	if err == sql.ErrNoRows {
		return 0, "", false, nil
	}
	if err != nil {
		return 0, "", false, fmt.Errorf("reading checkin: %w", err)
	}
	return mood, note, true, nil
}
