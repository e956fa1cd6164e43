package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gitlab.com/wheresmygrants/grantvotes/internal/models"
	"gitlab.com/wheresmygrants/grantvotes/internal/render"
	"gitlab.com/wheresmygrants/grantvotes/web"
)

// fakeLedger is an in-memory stand-in for the postgres-backed ledger.
type fakeLedger struct {
	votes []models.Vote
}

func (l *fakeLedger) find(grantID, researcherID string) int {
	for i, v := range l.votes {
		if v.GrantID == grantID && v.ResearcherID == researcherID {
			return i
		}
	}
	return -1
}

func (l *fakeLedger) Upsert(ctx context.Context, grantID, researcherID string, action models.VoteAction) error {
	if !action.Valid() {
		return models.ErrInvalidAction
	}
	if i := l.find(grantID, researcherID); i >= 0 {
		l.votes[i].Action = action
		l.votes[i].Timestamp = time.Now().UTC()
		return nil
	}
	l.votes = append(l.votes, models.Vote{
		GrantID:      grantID,
		ResearcherID: researcherID,
		Action:       action,
		Timestamp:    time.Now().UTC(),
	})
	return nil
}

func (l *fakeLedger) Delete(ctx context.Context, grantID, researcherID string) error {
	i := l.find(grantID, researcherID)
	if i < 0 {
		return models.ErrVoteNotFound
	}
	l.votes = append(l.votes[:i], l.votes[i+1:]...)
	return nil
}

func (l *fakeLedger) Get(ctx context.Context, grantID, researcherID string) (*models.Vote, error) {
	if i := l.find(grantID, researcherID); i >= 0 {
		v := l.votes[i]
		return &v, nil
	}
	return nil, nil
}

func (l *fakeLedger) Scan(ctx context.Context, filter models.VoteFilter, fn func(models.Vote) error) error {
	for _, v := range l.votes {
		if filter.GrantID != "" && v.GrantID != filter.GrantID {
			continue
		}
		if filter.ResearcherID != "" && v.ResearcherID != filter.ResearcherID {
			continue
		}
		if err := fn(v); err != nil {
			return err
		}
	}
	return nil
}

func (l *fakeLedger) ListByResearcher(ctx context.Context, researcherID string) ([]models.Vote, error) {
	votes := []models.Vote{}
	l.Scan(ctx, models.VoteFilter{ResearcherID: researcherID}, func(v models.Vote) error {
		votes = append(votes, v)
		return nil
	})
	return votes, nil
}

func (l *fakeLedger) CountsByGrant(ctx context.Context, grantID string) (models.GrantCounts, error) {
	counts := models.GrantCounts{GrantID: grantID}
	for _, v := range l.votes {
		if v.GrantID != grantID {
			continue
		}
		if v.Action == models.ActionLike {
			counts.Likes++
		} else {
			counts.Dislikes++
		}
	}
	return counts, nil
}

func (l *fakeLedger) TopGrants(ctx context.Context, limit int) ([]models.GrantCounts, error) {
	if limit < 1 {
		return nil, models.ErrInvalidLimit
	}
	byGrant := map[string]*models.GrantCounts{}
	order := []string{}
	for _, v := range l.votes {
		c, ok := byGrant[v.GrantID]
		if !ok {
			c = &models.GrantCounts{GrantID: v.GrantID}
			byGrant[v.GrantID] = c
			order = append(order, v.GrantID)
		}
		if v.Action == models.ActionLike {
			c.Likes++
		} else {
			c.Dislikes++
		}
	}
	grants := []models.GrantCounts{}
	for _, id := range order {
		grants = append(grants, *byGrant[id])
	}
	sort.SliceStable(grants, func(i, j int) bool {
		if grants[i].Likes != grants[j].Likes {
			return grants[i].Likes > grants[j].Likes
		}
		return grants[i].GrantID < grants[j].GrantID
	})
	if len(grants) > limit {
		grants = grants[:limit]
	}
	return grants, nil
}

func (l *fakeLedger) ResearcherSummary(ctx context.Context, researcherID string) (models.ResearcherSummary, error) {
	summary := models.ResearcherSummary{RecentVotes: []models.Vote{}}
	for _, v := range l.votes {
		if v.ResearcherID != researcherID {
			continue
		}
		if v.Action == models.ActionLike {
			summary.Likes++
		} else {
			summary.Dislikes++
		}
		summary.RecentVotes = append(summary.RecentVotes, v)
	}
	summary.TotalVotes = summary.Likes + summary.Dislikes
	sort.SliceStable(summary.RecentVotes, func(i, j int) bool {
		return summary.RecentVotes[i].Timestamp.After(summary.RecentVotes[j].Timestamp)
	})
	if len(summary.RecentVotes) > 10 {
		summary.RecentVotes = summary.RecentVotes[:10]
	}
	return summary, nil
}

func (l *fakeLedger) Trend(ctx context.Context, grantID string) ([]models.TrendPoint, error) {
	byDay := map[string]int{}
	for _, v := range l.votes {
		if v.GrantID == grantID {
			byDay[v.Timestamp.UTC().Format("2006-01-02")]++
		}
	}
	days := []string{}
	for day := range byDay {
		days = append(days, day)
	}
	sort.Strings(days)
	trend := []models.TrendPoint{}
	for _, day := range days {
		trend = append(trend, models.TrendPoint{Day: day, Count: byDay[day]})
	}
	return trend, nil
}

func (l *fakeLedger) Health(ctx context.Context) (models.HealthSnapshot, error) {
	snapshot := models.HealthSnapshot{}
	grants := map[string]bool{}
	researchers := map[string]bool{}
	for _, v := range l.votes {
		snapshot.TotalVotes++
		grants[v.GrantID] = true
		researchers[v.ResearcherID] = true
		if snapshot.LastVoteTimestamp == nil || v.Timestamp.After(*snapshot.LastVoteTimestamp) {
			ts := v.Timestamp
			snapshot.LastVoteTimestamp = &ts
		}
	}
	snapshot.UniqueGrants = len(grants)
	snapshot.UniqueResearchers = len(researchers)
	top, _ := l.TopGrants(ctx, 1)
	if len(top) > 0 {
		snapshot.TopGrant = &top[0].GrantID
	}
	return snapshot, nil
}

type subKey struct{ name, email string }

type fakeSubscriptions struct {
	subs map[subKey]models.Subscription
}

func newFakeSubscriptions() *fakeSubscriptions {
	return &fakeSubscriptions{subs: map[subKey]models.Subscription{}}
}
func (s *fakeSubscriptions) Create(ctx context.Context, name, email string) (bool, error) {
	key := subKey{name, email}
	if _, ok := s.subs[key]; ok {
		return false, nil
	}
	s.subs[key] = models.Subscription{ResearcherName: name, Email: email, CreatedAt: time.Now()}
	return true, nil
}
func (s *fakeSubscriptions) Exists(ctx context.Context, name, email string) (bool, error) {
	_, ok := s.subs[subKey{name, email}]
	return ok, nil
}
func (s *fakeSubscriptions) Delete(ctx context.Context, name, email string) (bool, error) {
	key := subKey{name, email}
	if _, ok := s.subs[key]; !ok {
		return false, nil
	}
	delete(s.subs, key)
	return true, nil
}
func (s *fakeSubscriptions) Count(ctx context.Context) (int, error) { return len(s.subs), nil }
func (s *fakeSubscriptions) Recent(ctx context.Context, limit int) ([]models.Subscription, error) {
	out := []models.Subscription{}
	for _, sub := range s.subs {
		if len(out) == limit {
			break
		}
		out = append(out, sub)
	}
	return out, nil
}

type fakeRequests struct {
	reqs []models.ResearcherRequest
}

func (s *fakeRequests) Create(ctx context.Context, req *models.ResearcherRequest) (bool, error) {
	for _, existing := range s.reqs {
		if existing.OpenalexID == req.OpenalexID {
			return false, nil
		}
	}
	req.ID = len(s.reqs) + 1
	req.CreatedAt = time.Now()
	s.reqs = append(s.reqs, *req)
	return true, nil
}
func (s *fakeRequests) List(ctx context.Context) ([]models.ResearcherRequest, error) {
	return append([]models.ResearcherRequest{}, s.reqs...), nil
}
func (s *fakeRequests) Delete(ctx context.Context, openalexID string) error {
	for i, existing := range s.reqs {
		if existing.OpenalexID == openalexID {
			s.reqs = append(s.reqs[:i], s.reqs[i+1:]...)
			return nil
		}
	}
	return models.ErrRequestNotFound
}
func (s *fakeRequests) Count(ctx context.Context) (int, error) { return len(s.reqs), nil }
func (s *fakeRequests) Recent(ctx context.Context, limit int) ([]models.ResearcherRequest, error) {
	if len(s.reqs) > limit {
		return s.reqs[:limit], nil
	}
	return s.reqs, nil
}

type fakeNotifier struct {
	subjects []string
}

func (n *fakeNotifier) Send(subject, body string) {
	n.subjects = append(n.subjects, subject)
}

type testEnv struct {
	router   chi.Router
	ledger   *fakeLedger
	notifier *fakeNotifier
}

func newTestEnv() *testEnv {
	tmpls := render.GetTemplates()
	tmpls.SetFS(web.FS)
	ledger := &fakeLedger{}
	notifier := &fakeNotifier{}
	routes := &Routes{
		envConfig: &models.EnvConfig{
			AllowedOrigins: []string{"http://localhost:3000"},
			VotesPerMinute: 1000,
		},
		votes:         ledger,
		subscriptions: newFakeSubscriptions(),
		requests:      &fakeRequests{},
		notifService:  notifier,
		tmpls:         &tmpls,
		logger:        zerolog.Nop(),
	}
	return &testEnv{router: routes.buildRouter(), ledger: ledger, notifier: notifier}
}

func (env *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decoding %q: %v", w.Body.String(), err)
	}
}

func TestPostVoteAndGet(t *testing.T) {
	require := require.New(t)
	env := newTestEnv()

	w := env.do(t, "POST", "/vote", `{"grant_id":"g1","researcher_id":"O'Brien","action":"like"}`)
	require.Equal(http.StatusOK, w.Code)
	var status statusBody
	decodeBody(t, w, &status)
	require.Equal("success", status.Status)

	w = env.do(t, "GET", "/vote/g1/O'Brien", "")
	require.Equal(http.StatusOK, w.Code)
	var vote struct {
		GrantID      string  `json:"grant_id"`
		ResearcherID string  `json:"researcher_id"`
		Action       *string `json:"action"`
	}
	decodeBody(t, w, &vote)
	require.Equal("g1", vote.GrantID)
	require.NotNil(vote.Action)
	require.Equal("like", *vote.Action)
}

func TestPostVoteUpdatesInPlace(t *testing.T) {
	require := require.New(t)
	env := newTestEnv()

	env.do(t, "POST", "/vote", `{"grant_id":"g1","researcher_id":"r1","action":"like"}`)
	env.do(t, "POST", "/vote", `{"grant_id":"g1","researcher_id":"r1","action":"dislike"}`)

	require.Len(env.ledger.votes, 1)
	require.Equal(models.ActionDislike, env.ledger.votes[0].Action)

	w := env.do(t, "GET", "/votes/g1", "")
	var counts models.GrantCounts
	decodeBody(t, w, &counts)
	require.Equal(0, counts.Likes)
	require.Equal(1, counts.Dislikes)
}

func TestPostVoteInvalidAction(t *testing.T) {
	env := newTestEnv()
	w := env.do(t, "POST", "/vote", `{"grant_id":"g1","researcher_id":"r1","action":"meh"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPostVoteInvalidIdentifier(t *testing.T) {
	env := newTestEnv()
	w := env.do(t, "POST", "/vote", `{"grant_id":"grant!","researcher_id":"r1","action":"like"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, "POST", "/vote", `{"grant_id":"g1","researcher_id":"bad@name","action":"like"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteVote(t *testing.T) {
	require := require.New(t)
	env := newTestEnv()

	w := env.do(t, "DELETE", "/vote/g1/r1", "")
	require.Equal(http.StatusNotFound, w.Code)

	env.do(t, "POST", "/vote", `{"grant_id":"g1","researcher_id":"r1","action":"like"}`)
	w = env.do(t, "DELETE", "/vote/g1/r1", "")
	require.Equal(http.StatusOK, w.Code)

	w = env.do(t, "GET", "/vote/g1/r1", "")
	var vote struct {
		Action *string `json:"action"`
	}
	decodeBody(t, w, &vote)
	require.Nil(vote.Action)

	w = env.do(t, "DELETE", "/vote/g1/r1", "")
	require.Equal(http.StatusNotFound, w.Code)
}

func TestTopGrants(t *testing.T) {
	require := require.New(t)
	env := newTestEnv()

	likes := map[string]int{"A": 5, "B": 3, "C": 8}
	for grant, n := range likes {
		for i := 0; i < n; i++ {
			env.ledger.Upsert(context.Background(), grant, "r"+grant+string(rune('0'+i)), models.ActionLike)
		}
	}

	w := env.do(t, "GET", "/votes/top?limit=2", "")
	require.Equal(http.StatusOK, w.Code)
	var grants []models.GrantCounts
	decodeBody(t, w, &grants)
	require.Len(grants, 2)
	require.Equal("C", grants[0].GrantID)
	require.Equal("A", grants[1].GrantID)

	w = env.do(t, "GET", "/votes/top?limit=0", "")
	require.Equal(http.StatusBadRequest, w.Code)
	w = env.do(t, "GET", "/votes/top?limit=nope", "")
	require.Equal(http.StatusBadRequest, w.Code)
}

func TestRatio(t *testing.T) {
	require := require.New(t)
	env := newTestEnv()

	for i, action := range []models.VoteAction{models.ActionLike, models.ActionLike, models.ActionLike, models.ActionDislike} {
		env.ledger.Upsert(context.Background(), "g1", "r"+string(rune('0'+i)), action)
	}

	w := env.do(t, "GET", "/votes/ratio/g1", "")
	require.Equal(http.StatusOK, w.Code)
	var ratio models.GrantRatio
	decodeBody(t, w, &ratio)
	require.Equal(3, ratio.Likes)
	require.Equal(1, ratio.Dislikes)
	require.InDelta(75.0, ratio.LikePercentage, 1e-9)
	require.InDelta(25.0, ratio.DislikePercentage, 1e-9)
}

func TestRatioEmptyGrant(t *testing.T) {
	require := require.New(t)
	env := newTestEnv()

	w := env.do(t, "GET", "/votes/ratio/unvoted", "")
	require.Equal(http.StatusOK, w.Code)
	var ratio models.GrantRatio
	decodeBody(t, w, &ratio)
	require.Equal(0, ratio.Likes)
	require.Equal(0.0, ratio.LikePercentage)
	require.Equal(0.0, ratio.DislikePercentage)
}

func TestTrendGroupsByDay(t *testing.T) {
	require := require.New(t)
	env := newTestEnv()

	day := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	env.ledger.votes = []models.Vote{
		{GrantID: "g1", ResearcherID: "r1", Action: models.ActionLike, Timestamp: day},
		{GrantID: "g1", ResearcherID: "r2", Action: models.ActionDislike, Timestamp: day.Add(12 * time.Hour)},
	}

	w := env.do(t, "GET", "/votes/trend/g1", "")
	require.Equal(http.StatusOK, w.Code)
	var trend []models.TrendPoint
	decodeBody(t, w, &trend)
	require.Len(trend, 1)
	require.Equal("2024-01-01", trend[0].Day)
	require.Equal(2, trend[0].Count)
}

func TestHealth(t *testing.T) {
	require := require.New(t)
	env := newTestEnv()

	w := env.do(t, "GET", "/health", "")
	require.Equal(http.StatusOK, w.Code)
	var snapshot models.HealthSnapshot
	decodeBody(t, w, &snapshot)
	require.Equal(0, snapshot.TotalVotes)
	require.Nil(snapshot.TopGrant)
	require.Nil(snapshot.LastVoteTimestamp)

	env.do(t, "POST", "/vote", `{"grant_id":"g1","researcher_id":"r1","action":"like"}`)
	w = env.do(t, "GET", "/health", "")
	decodeBody(t, w, &snapshot)
	require.Equal(1, snapshot.TotalVotes)
	require.NotNil(snapshot.TopGrant)
	require.Equal("g1", *snapshot.TopGrant)
	require.NotNil(snapshot.LastVoteTimestamp)
}

func TestRateLimit(t *testing.T) {
	require := require.New(t)
	env := newTestEnv()
	// Rebuild with a tight limit.
	tmpls := render.GetTemplates()
	tmpls.SetFS(web.FS)
	routes := &Routes{
		envConfig:     &models.EnvConfig{VotesPerMinute: 5},
		votes:         env.ledger,
		subscriptions: newFakeSubscriptions(),
		requests:      &fakeRequests{},
		notifService:  env.notifier,
		tmpls:         &tmpls,
		logger:        zerolog.Nop(),
	}
	router := routes.buildRouter()

	body := `{"grant_id":"g1","researcher_id":"r1","action":"like"}`
	for i := 0; i < 5; i++ {
		req := httptest.NewRequest("POST", "/vote", strings.NewReader(body))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		require.Equal(http.StatusOK, w.Code, "request %d", i)
	}
	req := httptest.NewRequest("POST", "/vote", strings.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(http.StatusTooManyRequests, w.Code)

	// Reads are not limited.
	getReq := httptest.NewRequest("GET", "/votes/g1", nil)
	getW := httptest.NewRecorder()
	router.ServeHTTP(getW, getReq)
	require.Equal(http.StatusOK, getW.Code)
}

func TestExportJSONEndpoint(t *testing.T) {
	require := require.New(t)
	env := newTestEnv()

	w := env.do(t, "GET", "/votes/export/json", "")
	require.Equal(http.StatusOK, w.Code)
	require.Equal("application/json", w.Header().Get("Content-Type"))
	require.Equal("[]", w.Body.String())

	env.do(t, "POST", "/vote", `{"grant_id":"g1","researcher_id":"r1","action":"like"}`)
	w = env.do(t, "GET", "/votes/export/json", "")
	var votes []models.Vote
	decodeBody(t, w, &votes)
	require.Len(votes, 1)
	require.Equal("g1", votes[0].GrantID)
}

func TestExportCSVEndpoint(t *testing.T) {
	require := require.New(t)
	env := newTestEnv()
	env.do(t, "POST", "/vote", `{"grant_id":"g1","researcher_id":"r1","action":"like"}`)

	w := env.do(t, "GET", "/votes/export/csv", "")
	require.Equal(http.StatusOK, w.Code)
	require.Equal("text/csv", w.Header().Get("Content-Type"))
	require.Contains(w.Header().Get("Content-Disposition"), "attachment")
	lines := strings.Split(strings.TrimRight(w.Body.String(), "\n"), "\n")
	require.Equal("grant_id,researcher_id,action,timestamp", lines[0])
	require.Len(lines, 2)
}

func TestSubscribeFlow(t *testing.T) {
	require := require.New(t)
	env := newTestEnv()

	body := `{"researcher_name":"O'Brien","email":"fan@example.com"}`
	w := env.do(t, "POST", "/subscribe", body)
	require.Equal(http.StatusOK, w.Code)
	var status statusBody
	decodeBody(t, w, &status)
	require.Equal("subscribed", status.Status)
	require.Len(env.notifier.subjects, 1)
	require.Equal("[WMG] New Subscription: O'Brien", env.notifier.subjects[0])

	w = env.do(t, "POST", "/subscribe", body)
	decodeBody(t, w, &status)
	require.Equal("already_subscribed", status.Status)
	require.Len(env.notifier.subjects, 1)

	w = env.do(t, "GET", "/subscribe/status/O'Brien?email=fan@example.com", "")
	require.Equal(http.StatusOK, w.Code)
	var check struct {
		Email      string `json:"email"`
		Subscribed bool   `json:"subscribed"`
	}
	decodeBody(t, w, &check)
	require.True(check.Subscribed)
	require.Equal("f*n@example.com", check.Email)

	w = env.do(t, "POST", "/unsubscribe", body)
	decodeBody(t, w, &status)
	require.Equal("unsubscribed", status.Status)

	w = env.do(t, "POST", "/unsubscribe", body)
	decodeBody(t, w, &status)
	require.Equal("not_subscribed", status.Status)
}

func TestSubscribeInvalidEmail(t *testing.T) {
	env := newTestEnv()
	w := env.do(t, "POST", "/subscribe", `{"researcher_name":"O'Brien","email":"nope"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUnsubscribePage(t *testing.T) {
	require := require.New(t)
	env := newTestEnv()

	env.do(t, "POST", "/subscribe", `{"researcher_name":"O'Brien","email":"fan@example.com"}`)

	w := env.do(t, "GET", "/unsubscribe/O'Brien?email=fan@example.com", "")
	require.Equal(http.StatusOK, w.Code)
	require.Contains(w.Header().Get("Content-Type"), "text/html")
	require.Contains(w.Body.String(), "Unsubscribed")

	w = env.do(t, "GET", "/unsubscribe/O'Brien?email=fan@example.com", "")
	require.Contains(w.Body.String(), "Nothing to do")

	w = env.do(t, "GET", "/unsubscribe/bad!name?email=fan@example.com", "")
	require.Equal(http.StatusBadRequest, w.Code)
}

func TestResearcherRequestFlow(t *testing.T) {
	require := require.New(t)
	env := newTestEnv()

	body := `{"openalex_id":"A5012345678","display_name":"Jane Smith","institution":"MIT","works_count":42,"requester_email":"fan@example.com"}`
	w := env.do(t, "POST", "/researcher-request", body)
	require.Equal(http.StatusOK, w.Code)
	var status statusBody
	decodeBody(t, w, &status)
	require.Equal("requested", status.Status)
	require.Len(env.notifier.subjects, 1)
	require.Equal("[WMG] New Researcher Request: Jane Smith", env.notifier.subjects[0])

	w = env.do(t, "POST", "/researcher-request", body)
	decodeBody(t, w, &status)
	require.Equal("already_requested", status.Status)
	require.Len(env.notifier.subjects, 1)

	w = env.do(t, "GET", "/researcher-requests", "")
	var reqs []models.ResearcherRequest
	decodeBody(t, w, &reqs)
	require.Len(reqs, 1)
	require.Equal("Jane Smith", reqs[0].DisplayName)

	w = env.do(t, "DELETE", "/researcher-request/A5012345678", "")
	require.Equal(http.StatusOK, w.Code)
	w = env.do(t, "DELETE", "/researcher-request/A5012345678", "")
	require.Equal(http.StatusNotFound, w.Code)
}

func TestResearcherRequestMissingName(t *testing.T) {
	env := newTestEnv()
	w := env.do(t, "POST", "/researcher-request", `{"openalex_id":"A5012345678"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
}
