package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/moodsync/mood-tools/internal/aggregate"
	"github.com/moodsync/mood-tools/internal/ensemble"
	"github.com/moodsync/mood-tools/internal/estimator"
)

func createTestDb(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "mood.db")

	store, err := New(dbPath)
	if err != nil {
		t.Fatalf("New(%s) error: %v", dbPath, err)
	}
	t.Cleanup(func() { store.Close() })

	return store
}

func testListen(trackID string, playedAt time.Time) ListenImport {
	return ListenImport{
		TrackID:    trackID,
		Name:       "Song " + trackID,
		Artist:     "Test Artist",
		PlayedAt:   playedAt,
		MsPlayed:   200000,
		Weight:     1,
		DurationMs: 200000,
		Audio:      &estimator.AudioFeatures{Valence: 0.7, Energy: 0.6, Tempo: 120, Loudness: -7, Mode: 1},
	}
}

func ptr(v float64) *float64 { return &v }

func TestCreateUser(t *testing.T) {
	s := createTestDb(t)

	user := "testuser"
	if err := s.CreateUser(user); err != nil {
		t.Fatalf("CreateUser(%q) error: %v", user, err)
	}

	// Idempotency
	if err := s.CreateUser(user); err != nil {
		t.Fatalf("CreateUser(%q) error: %v", user, err)
	}
}

func TestLastSync(t *testing.T) {
	s := createTestDb(t)
	if err := s.CreateUser("u1"); err != nil {
		t.Fatalf("CreateUser error: %v", err)
	}

	got, err := s.GetLastSync("u1")
	if err != nil {
		t.Fatalf("GetLastSync error: %v", err)
	}
	if !got.IsZero() {
		t.Errorf("Last sync before any sync = %v, want zero", got)
	}

	want := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	if err := s.SetLastSync("u1", want); err != nil {
		t.Fatalf("SetLastSync error: %v", err)
	}
	got, err = s.GetLastSync("u1")
	if err != nil {
		t.Fatalf("GetLastSync error: %v", err)
	}
	if !got.Equal(want) {
		t.Errorf("Last sync = %v, want %v", got, want)
	}
}

func TestAddListens_resyncIsIdempotent(t *testing.T) {
	s := createTestDb(t)
	if err := s.CreateUser("u1"); err != nil {
		t.Fatalf("CreateUser error: %v", err)
	}

	playedAt := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	listens := []ListenImport{testListen("t1", playedAt), testListen("t2", playedAt.Add(time.Hour))}
	if err := s.AddListens("u1", listens); err != nil {
		t.Fatalf("AddListens error: %v", err)
	}
	// Overlapping pages on re-sync must not duplicate listens.
	if err := s.AddListens("u1", listens); err != nil {
		t.Fatalf("AddListens error: %v", err)
	}

	entries := 0
	days, err := s.ListenDays("u1")
	if err != nil {
		t.Fatalf("ListenDays error: %v", err)
	}
	for range days {
		entries++
	}
	if entries != 1 {
		t.Errorf("Got %d listen days, want 1", entries)
	}

	tracks, err := s.UnscoredTracks("u1", "ens-v1")
	if err != nil {
		t.Fatalf("UnscoredTracks error: %v", err)
	}
	if len(tracks) != 2 {
		t.Errorf("Got %d unscored tracks, want 2: %v", len(tracks), tracks)
	}
}

func TestTrackInput(t *testing.T) {
	s := createTestDb(t)
	if err := s.CreateUser("u1"); err != nil {
		t.Fatalf("CreateUser error: %v", err)
	}
	playedAt := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	if err := s.AddListens("u1", []ListenImport{testListen("t1", playedAt)}); err != nil {
		t.Fatalf("AddListens error: %v", err)
	}
	if err := s.SaveLyrics("t1", "test", "en", "some words", false); err != nil {
		t.Fatalf("SaveLyrics error: %v", err)
	}

	in, err := s.TrackInput("t1")
	if err != nil {
		t.Fatalf("TrackInput error: %v", err)
	}
	if in.Audio == nil || in.Audio.Valence != 0.7 {
		t.Errorf("Audio = %+v, want valence 0.7", in.Audio)
	}
	if in.LyricText != "some words" || in.Language != "en" {
		t.Errorf("Lyrics = %q/%q, want 'some words'/en", in.LyricText, in.Language)
	}
}

func TestTrackInput_instrumental(t *testing.T) {
	s := createTestDb(t)
	if err := s.CreateUser("u1"); err != nil {
		t.Fatalf("CreateUser error: %v", err)
	}
	playedAt := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	if err := s.AddListens("u1", []ListenImport{testListen("t1", playedAt)}); err != nil {
		t.Fatalf("AddListens error: %v", err)
	}
	if err := s.SaveLyrics("t1", "test", "", "[instrumental]", true); err != nil {
		t.Fatalf("SaveLyrics error: %v", err)
	}

	in, err := s.TrackInput("t1")
	if err != nil {
		t.Fatalf("TrackInput error: %v", err)
	}
	if !in.Instrumental {
		t.Error("Expected instrumental flag")
	}
	if in.LyricText != "" {
		t.Errorf("LyricText = %q, want empty for an instrumental track", in.LyricText)
	}
}

func TestPutTrackScore_idempotentPerVersion(t *testing.T) {
	s := createTestDb(t)
	if err := s.CreateUser("u1"); err != nil {
		t.Fatalf("CreateUser error: %v", err)
	}
	playedAt := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	if err := s.AddListens("u1", []ListenImport{testListen("t1", playedAt)}); err != nil {
		t.Fatalf("AddListens error: %v", err)
	}

	score := ensemble.TrackScore{
		TrackID:   "t1",
		UserID:    "u1",
		Version:   "ens-v1",
		Polarity:  ptr(0.4),
		Emotions:  map[estimator.Category]float64{estimator.Joy: 0.6},
		Valence:   0.4,
		Arousal:   0.2,
		Agreement: 0.9,
	}
	if err := s.PutTrackScore(score); err != nil {
		t.Fatalf("PutTrackScore error: %v", err)
	}
	first, ok, err := s.GetTrackScore("t1", "u1", "ens-v1")
	if err != nil || !ok {
		t.Fatalf("GetTrackScore: ok=%v err=%v", ok, err)
	}

	time.Sleep(10 * time.Millisecond)
	if err := s.PutTrackScore(score); err != nil {
		t.Fatalf("PutTrackScore error: %v", err)
	}
	second, ok, err := s.GetTrackScore("t1", "u1", "ens-v1")
	if err != nil || !ok {
		t.Fatalf("GetTrackScore: ok=%v err=%v", ok, err)
	}

	if *first.Polarity != *second.Polarity || first.Agreement != second.Agreement ||
		first.Emotions[estimator.Joy] != second.Emotions[estimator.Joy] {
		t.Errorf("Rewrite changed the record: %+v vs %+v", first, second)
	}
	if !first.CreatedAt.Equal(second.CreatedAt) {
		t.Errorf("Rewrite changed created_at: %v vs %v", first.CreatedAt, second.CreatedAt)
	}

	// A new ensemble version gets its own record; the old one survives.
	score.Version = "ens-v2"
	score.Polarity = ptr(-0.1)
	if err := s.PutTrackScore(score); err != nil {
		t.Fatalf("PutTrackScore error: %v", err)
	}
	old, ok, err := s.GetTrackScore("t1", "u1", "ens-v1")
	if err != nil || !ok {
		t.Fatalf("GetTrackScore: ok=%v err=%v", ok, err)
	}
	if *old.Polarity != 0.4 {
		t.Errorf("Old version polarity = %v, want 0.4 untouched", *old.Polarity)
	}
}

func TestPutTrackScore_unscored(t *testing.T) {
	s := createTestDb(t)
	if err := s.CreateUser("u1"); err != nil {
		t.Fatalf("CreateUser error: %v", err)
	}
	playedAt := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	if err := s.AddListens("u1", []ListenImport{testListen("t1", playedAt)}); err != nil {
		t.Fatalf("AddListens error: %v", err)
	}

	err := s.PutTrackScore(ensemble.TrackScore{
		TrackID: "t1", UserID: "u1", Version: "ens-v1", Unscored: true,
	})
	if err != nil {
		t.Fatalf("PutTrackScore error: %v", err)
	}

	got, ok, err := s.GetTrackScore("t1", "u1", "ens-v1")
	if err != nil || !ok {
		t.Fatalf("GetTrackScore: ok=%v err=%v", ok, err)
	}
	if !got.Unscored {
		t.Error("Expected Unscored")
	}
	if got.Polarity != nil {
		t.Errorf("Polarity = %v, want nil", *got.Polarity)
	}
}

func TestDayEntries(t *testing.T) {
	s := createTestDb(t)
	if err := s.CreateUser("u1"); err != nil {
		t.Fatalf("CreateUser error: %v", err)
	}
	day := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	listens := []ListenImport{
		testListen("t1", day.Add(9*time.Hour)),
		testListen("t2", day.Add(22*time.Hour)),
		testListen("t3", day.AddDate(0, 0, 1)), // next day
	}
	if err := s.AddListens("u1", listens); err != nil {
		t.Fatalf("AddListens error: %v", err)
	}
	for _, id := range []string{"t1", "t2", "t3"} {
		err := s.PutTrackScore(ensemble.TrackScore{
			TrackID: id, UserID: "u1", Version: "ens-v1", Polarity: ptr(0.5),
		})
		if err != nil {
			t.Fatalf("PutTrackScore error: %v", err)
		}
	}

	entries, err := s.DayEntries("u1", day, "ens-v1")
	if err != nil {
		t.Fatalf("DayEntries error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Got %d entries, want 2 (the next-day listen excluded)", len(entries))
	}
	e := entries[0]
	if e.Score.Polarity == nil || *e.Score.Polarity != 0.5 {
		t.Errorf("Entry polarity = %v, want 0.5", e.Score.Polarity)
	}
	if e.Minutes != 200000.0/60000 {
		t.Errorf("Minutes = %v, want %v", e.Minutes, 200000.0/60000)
	}
	if e.Audio == nil || e.Audio.Energy != 0.6 {
		t.Errorf("Audio = %+v, want energy 0.6", e.Audio)
	}
}

func TestDailyMood_replaceAndRange(t *testing.T) {
	s := createTestDb(t)
	if err := s.CreateUser("u1"); err != nil {
		t.Fatalf("CreateUser error: %v", err)
	}

	day := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	mood := aggregate.DailyMood{
		UserID:     "u1",
		Day:        day,
		Index:      0.4,
		Dominant:   estimator.Joy,
		TrackCount: 3,
		Drivers:    []aggregate.Driver{{TrackID: "t1", Polarity: 0.9, Deviation: 0.5}},
		Version:    "ens-v1",
	}
	if err := s.PutDailyMood(mood); err != nil {
		t.Fatalf("PutDailyMood error: %v", err)
	}

	// Recomputation replaces the whole record.
	mood.Index = -0.2
	mood.TrackCount = 5
	mood.Drivers = nil
	if err := s.PutDailyMood(mood); err != nil {
		t.Fatalf("PutDailyMood error: %v", err)
	}

	moods, err := s.DailyMoodsInRange("u1", day, day.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("DailyMoodsInRange error: %v", err)
	}
	if len(moods) != 1 {
		t.Fatalf("Got %d records, want 1", len(moods))
	}
	if moods[0].Index != -0.2 || moods[0].TrackCount != 5 {
		t.Errorf("Got %+v, want the replaced record", moods[0])
	}
	if len(moods[0].Drivers) != 0 {
		t.Errorf("Drivers = %v, want the old drivers gone", moods[0].Drivers)
	}

	if err := s.DeleteDailyMood("u1", day); err != nil {
		t.Fatalf("DeleteDailyMood error: %v", err)
	}
	moods, err = s.DailyMoodsInRange("u1", day, day.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("DailyMoodsInRange error: %v", err)
	}
	if len(moods) != 0 {
		t.Errorf("Got %d records after delete, want 0", len(moods))
	}
}

func TestMoodHistory_trailingLimitAscending(t *testing.T) {
	s := createTestDb(t)
	if err := s.CreateUser("u1"); err != nil {
		t.Fatalf("CreateUser error: %v", err)
	}

	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		err := s.PutDailyMood(aggregate.DailyMood{
			UserID: "u1", Day: start.AddDate(0, 0, i), Index: float64(i) / 10, Version: "ens-v1",
		})
		if err != nil {
			t.Fatalf("PutDailyMood error: %v", err)
		}
	}

	moods, err := s.MoodHistory("u1", 3)
	if err != nil {
		t.Fatalf("MoodHistory error: %v", err)
	}
	if len(moods) != 3 {
		t.Fatalf("Got %d records, want the trailing 3", len(moods))
	}
	if !moods[0].Day.Equal(start.AddDate(0, 0, 2)) {
		t.Errorf("First day = %v, want %v", moods[0].Day, start.AddDate(0, 0, 2))
	}
	if !moods[0].Day.Before(moods[2].Day) {
		t.Error("History must be ascending")
	}
}

func TestCheckin(t *testing.T) {
	s := createTestDb(t)
	if err := s.CreateUser("u1"); err != nil {
		t.Fatalf("CreateUser error: %v", err)
	}
	day := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	if err := s.AddCheckin("u1", day, 6, ""); err == nil {
		t.Error("Expected error for mood outside 1-5")
	}

	if err := s.AddCheckin("u1", day, 4, "good run"); err != nil {
		t.Fatalf("AddCheckin error: %v", err)
	}
	mood, note, ok, err := s.GetCheckin("u1", day)
	if err != nil {
		t.Fatalf("GetCheckin error: %v", err)
	}
	if !ok || mood != 4 || note != "good run" {
		t.Errorf("GetCheckin = %d/%q/%v, want 4/'good run'/true", mood, note, ok)
	}

	if _, _, ok, err := s.GetCheckin("u1", day.AddDate(0, 0, 1)); err != nil {
		t.Fatalf("GetCheckin error: %v", err)
	} else if ok {
		t.Error("Expected no check-in for the next day")
	}
}

func TestPurgeUser(t *testing.T) {
	s := createTestDb(t)
	if err := s.CreateUser("u1"); err != nil {
		t.Fatalf("CreateUser error: %v", err)
	}
	day := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	if err := s.AddListens("u1", []ListenImport{testListen("t1", day.Add(time.Hour))}); err != nil {
		t.Fatalf("AddListens error: %v", err)
	}
	err := s.PutTrackScore(ensemble.TrackScore{
		TrackID: "t1", UserID: "u1", Version: "ens-v1", Polarity: ptr(0.5),
	})
	if err != nil {
		t.Fatalf("PutTrackScore error: %v", err)
	}
	if err := s.PutDailyMood(aggregate.DailyMood{UserID: "u1", Day: day, Index: 0.5, Version: "ens-v1"}); err != nil {
		t.Fatalf("PutDailyMood error: %v", err)
	}
	if err := s.AddCheckin("u1", day, 3, ""); err != nil {
		t.Fatalf("AddCheckin error: %v", err)
	}

	if err := s.PurgeUser("u1"); err != nil {
		t.Fatalf("PurgeUser error: %v", err)
	}

	if moods, err := s.MoodHistory("u1", 0); err != nil {
		t.Fatalf("MoodHistory error: %v", err)
	} else if len(moods) != 0 {
		t.Errorf("Got %d mood records after purge, want 0", len(moods))
	}
	if days, err := s.ListenDays("u1"); err != nil {
		t.Fatalf("ListenDays error: %v", err)
	} else if len(days) != 0 {
		t.Errorf("Got %d listen days after purge, want 0", len(days))
	}
	if _, _, ok, err := s.GetCheckin("u1", day); err != nil {
		t.Fatalf("GetCheckin error: %v", err)
	} else if ok {
		t.Error("Check-in survived the purge")
	}
	if _, ok, err := s.GetTrackScore("t1", "u1", "ens-v1"); err != nil {
		t.Fatalf("GetTrackScore error: %v", err)
	} else if ok {
		t.Error("Track score survived the purge")
	}
}

func TestDayKeyRoundTrip(t *testing.T) {
	in := time.Date(2024, 5, 1, 23, 45, 0, 0, time.UTC)
	key := DayKey(in)
	if key != "2024-05-01" {
		t.Errorf("DayKey = %q, want 2024-05-01", key)
	}
	out, err := ParseDay(key)
	if err != nil {
		t.Fatalf("ParseDay error: %v", err)
	}
	if !out.Equal(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("ParseDay = %v, want midnight UTC", out)
	}
}
