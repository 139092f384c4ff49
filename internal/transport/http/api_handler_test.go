package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"factzap-service/internal/app"
	"factzap-service/internal/domain"
	"factzap-service/internal/infra/memory"
)

type stubFactProvider struct{}

func (stubFactProvider) Fact(_ context.Context) (string, error) {
	return "Honey never spoils.", nil
}

type stubCategoryStats struct{}

func (stubCategoryStats) CategoryCounts(_ context.Context) (map[string]domain.CategoryCount, error) {
	return map[string]domain.CategoryCount{"9": {Total: 300, Pending: 12}}, nil
}

func newAPITestServer(t *testing.T) (*httptest.Server, *memory.ProfileStore) {
	t.Helper()
	questions := sampleQuestions()
	profiles := memory.NewProfileStore()
	achievements := app.NewAchievementEvaluator(profiles, nil)
	quiz := app.NewQuizService(
		memory.NewSessionStore(),
		memory.NewStaticQuestionProvider(questions),
		fixedDaily{question: questions[0]},
		profiles,
		achievements,
	)
	resets := app.NewResetService(profiles)
	leaderboards := app.NewLeaderboardService(profiles, resets)
	facts := app.NewFactService(stubFactProvider{}, profiles)
	handler := NewAPIHandler(quiz, leaderboards, achievements, facts, stubCategoryStats{})

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, profiles
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	return resp
}

func TestRegisterAndProfileEndpoints(t *testing.T) {
	server, _ := newAPITestServer(t)

	resp := postJSON(t, server.URL+"/register", `{"userId":"u1","name":"Alice"}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("register status %d", resp.StatusCode)
	}
	var profile domain.UserProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		t.Fatalf("decode profile: %v", err)
	}
	if profile.ID != "u1" || profile.Avatar != "default" {
		t.Fatalf("unexpected profile: %+v", profile)
	}

	resp2, err := http.Get(server.URL + "/profile?userId=u1")
	if err != nil {
		t.Fatalf("get profile: %v", err)
	}
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusOK {
		t.Fatalf("profile status %d", resp2.StatusCode)
	}

	resp3, err := http.Get(server.URL + "/profile?userId=ghost")
	if err != nil {
		t.Fatalf("get profile: %v", err)
	}
	defer resp3.Body.Close()
	if resp3.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown user, got %d", resp3.StatusCode)
	}
}

func TestLeaderboardAndRankEndpoints(t *testing.T) {
	server, profiles := newAPITestServer(t)
	ctx := context.Background()
	for _, p := range []domain.UserProfile{
		{ID: "u1", Name: "Alice", AllTimeScore: 30},
		{ID: "u2", Name: "Bob", AllTimeScore: 50},
	} {
		if err := profiles.Register(ctx, p); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	resp, err := http.Get(server.URL + "/leaderboard")
	if err != nil {
		t.Fatalf("get leaderboard: %v", err)
	}
	defer resp.Body.Close()
	var board domain.Leaderboard
	if err := json.NewDecoder(resp.Body).Decode(&board); err != nil {
		t.Fatalf("decode leaderboard: %v", err)
	}
	if len(board.Entries) != 2 || board.Entries[0].UserID != "u2" {
		t.Fatalf("unexpected board: %+v", board)
	}

	resp2, err := http.Get(server.URL + "/rank?userId=u2")
	if err != nil {
		t.Fatalf("get rank: %v", err)
	}
	defer resp2.Body.Close()
	var rank rankResponse
	if err := json.NewDecoder(resp2.Body).Decode(&rank); err != nil {
		t.Fatalf("decode rank: %v", err)
	}
	if rank.Rank != 1 {
		t.Fatalf("expected rank 1, got %+v", rank)
	}

	// A top-3 rank unlocks Leaderboard Elite as a side effect.
	profile, _ := profiles.Get(ctx, "u2")
	if !hasAchievement(profile.Achievements, app.AchievementTopThree) {
		t.Fatalf("expected top-three unlock, got %+v", profile.Achievements)
	}

	// The unlock fires from whichever board the user is viewing, not just
	// the all-time one.
	weekly := 99
	if err := profiles.MergeUpdate(ctx, "u1", domain.ProfileUpdate{WeeklyScore: &weekly}); err != nil {
		t.Fatalf("seed weekly score: %v", err)
	}
	respW, err := http.Get(server.URL + "/rank?userId=u1&type=weeklyScore")
	if err != nil {
		t.Fatalf("get weekly rank: %v", err)
	}
	defer respW.Body.Close()
	var weeklyRank rankResponse
	if err := json.NewDecoder(respW.Body).Decode(&weeklyRank); err != nil {
		t.Fatalf("decode weekly rank: %v", err)
	}
	if weeklyRank.Rank != 1 || weeklyRank.Field != domain.WeeklyScore {
		t.Fatalf("unexpected weekly rank: %+v", weeklyRank)
	}
	weeklyLeader, _ := profiles.Get(ctx, "u1")
	if !hasAchievement(weeklyLeader.Achievements, app.AchievementTopThree) {
		t.Fatalf("weekly board rank did not unlock top three: %+v", weeklyLeader.Achievements)
	}

	resp3, err := http.Get(server.URL + "/rank?userId=ghost")
	if err != nil {
		t.Fatalf("get rank: %v", err)
	}
	defer resp3.Body.Close()
	if resp3.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown user, got %d", resp3.StatusCode)
	}

	resp4, err := http.Get(server.URL + "/leaderboard?type=yearlyScore")
	if err != nil {
		t.Fatalf("get leaderboard: %v", err)
	}
	defer resp4.Body.Close()
	if resp4.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown field, got %d", resp4.StatusCode)
	}
}

func TestSettingsEndpoint(t *testing.T) {
	server, profiles := newAPITestServer(t)
	ctx := context.Background()

	resp := postJSON(t, server.URL+"/register", `{"userId":"u1","name":"Alice"}`)
	resp.Body.Close()

	resp2 := postJSON(t, server.URL+"/profile/settings",
		`{"userId":"u1","avatar":"owl","preferences":{"difficulty":"hard","questionCount":15,"notificationHour":9}}`)
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusOK {
		t.Fatalf("settings status %d", resp2.StatusCode)
	}
	var profile domain.UserProfile
	if err := json.NewDecoder(resp2.Body).Decode(&profile); err != nil {
		t.Fatalf("decode profile: %v", err)
	}
	if profile.Avatar != "owl" || profile.Preferences.Difficulty != "hard" || profile.Preferences.QuestionCount != 15 {
		t.Fatalf("settings not applied: %+v", profile)
	}
	if profile.Name != "Alice" {
		t.Fatalf("omitted name must survive the merge: %+v", profile)
	}

	stored, _ := profiles.Get(ctx, "u1")
	if stored.Preferences.NotificationHour != 9 {
		t.Fatalf("settings not persisted: %+v", stored)
	}

	resp3 := postJSON(t, server.URL+"/profile/settings", `{"userId":"ghost","avatar":"owl"}`)
	defer resp3.Body.Close()
	if resp3.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown user, got %d", resp3.StatusCode)
	}

	resp4 := postJSON(t, server.URL+"/profile/settings", `{"userId":"u1","name":""}`)
	defer resp4.Body.Close()
	if resp4.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty name, got %d", resp4.StatusCode)
	}
}

func TestFactEndpoints(t *testing.T) {
	server, profiles := newAPITestServer(t)
	ctx := context.Background()
	if err := profiles.Register(ctx, domain.UserProfile{ID: "u1", Name: "Alice"}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	resp, err := http.Get(server.URL + "/fact?userId=u1")
	if err != nil {
		t.Fatalf("get fact: %v", err)
	}
	defer resp.Body.Close()
	var fact domain.SavedFact
	if err := json.NewDecoder(resp.Body).Decode(&fact); err != nil {
		t.Fatalf("decode fact: %v", err)
	}
	if fact.Number != 1 || fact.Text != "Honey never spoils." {
		t.Fatalf("unexpected fact: %+v", fact)
	}

	resp2 := postJSON(t, server.URL+"/facts/save", `{"userId":"u1","factNumber":1,"factText":"Honey never spoils."}`)
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusNoContent {
		t.Fatalf("save fact status %d", resp2.StatusCode)
	}

	profile, _ := profiles.Get(ctx, "u1")
	if len(profile.SavedFacts) != 1 || profile.FactCounter != 1 {
		t.Fatalf("fact state not persisted: %+v", profile)
	}
}

func TestCategoryStatsEndpoint(t *testing.T) {
	server, _ := newAPITestServer(t)

	resp, err := http.Get(server.URL + "/categories/stats")
	if err != nil {
		t.Fatalf("get stats: %v", err)
	}
	defer resp.Body.Close()
	var counts map[string]domain.CategoryCount
	if err := json.NewDecoder(resp.Body).Decode(&counts); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if counts["9"].Total != 300 {
		t.Fatalf("unexpected stats: %+v", counts)
	}
}

func hasAchievement(list []domain.Achievement, id string) bool {
	for _, a := range list {
		if a.ID == id && a.Unlocked {
			return true
		}
	}
	return false
}
