package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"cryptid-vote-backend/models"
)

// CodeUniqueViolation is the error code the REST backend sends with 409
const CodeUniqueViolation = "unique_violation"

// APIError is a non-2xx reply from the REST backend
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// Unwrap lets errors.Is see the gateway sentinels
func (e *APIError) Unwrap() error {
	switch {
	case e.Status == http.StatusConflict && e.Code == CodeUniqueViolation:
		return ErrUniqueViolation
	case e.Status == http.StatusNotFound:
		return ErrNotFound
	default:
		return nil
	}
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// HTTPGateway talks to the REST table API served by cmd/server
type HTTPGateway struct {
	baseURL string
	client  *http.Client
}

func NewHTTPGateway(baseURL string, client *http.Client) *HTTPGateway {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &HTTPGateway{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

func (g *HTTPGateway) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := g.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var eb errorBody
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if err := json.Unmarshal(raw, &eb); err != nil || eb.Error == "" {
			eb.Error = strings.TrimSpace(string(raw))
		}
		return &APIError{Status: resp.StatusCode, Code: eb.Code, Message: eb.Error}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func (g *HTTPGateway) ListCryptids(ctx context.Context) ([]models.Cryptid, error) {
	var out []models.Cryptid
	err := g.do(ctx, http.MethodGet, "/api/cryptids", nil, nil, &out)
	return out, err
}

func (g *HTTPGateway) ListActiveVotingEvents(ctx context.Context, now time.Time) ([]models.VotingEvent, error) {
	q := url.Values{"at": {now.UTC().Format(time.RFC3339Nano)}}
	var out []models.VotingEvent
	err := g.do(ctx, http.MethodGet, "/api/voting-events/active", q, nil, &out)
	return out, err
}

func (g *HTTPGateway) ListUserVotesForEvent(ctx context.Context, wallet, eventID string) ([]models.Vote, error) {
	q := url.Values{"wallet": {wallet}}
	var out []models.Vote
	err := g.do(ctx, http.MethodGet, "/api/voting-events/"+url.PathEscape(eventID)+"/votes", q, nil, &out)
	return out, err
}

func (g *HTTPGateway) ListVotesForEvent(ctx context.Context, eventID string) ([]models.Vote, error) {
	var out []models.Vote
	err := g.do(ctx, http.MethodGet, "/api/voting-events/"+url.PathEscape(eventID)+"/votes", nil, nil, &out)
	return out, err
}

func (g *HTTPGateway) InsertVote(ctx context.Context, wallet, cardID, eventID string) (*models.Vote, error) {
	in := models.VoteInput{Wallet: wallet, CardID: cardID, VotingEventID: eventID}
	var out models.Vote
	if err := g.do(ctx, http.MethodPost, "/api/votes", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (g *HTTPGateway) CountVotesForEvent(ctx context.Context, eventID string) (models.Tally, error) {
	out := make(models.Tally)
	err := g.do(ctx, http.MethodGet, "/api/voting-events/"+url.PathEscape(eventID)+"/tally", nil, nil, &out)
	return out, err
}

func (g *HTTPGateway) InsertSubmission(ctx context.Context, in models.SubmissionInput) (*models.CryptidSubmission, error) {
	var out models.CryptidSubmission
	if err := g.do(ctx, http.MethodPost, "/api/submissions", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
