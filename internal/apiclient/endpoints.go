// Copyright (c) 2026 Buttdialer. All rights reserved.
// Author: Buttdialer contributors

package apiclient

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/FarisAlahmad714/Buttdialer/internal/auth"
	"github.com/FarisAlahmad714/Buttdialer/pkg/pagination"
)

// Client implements the credential exchange used by the session store.
var _ auth.Exchanger = (*Client)(nil)

// # Auth

// Login calls POST /auth/login.
func (client *Client) Login(ctx context.Context, input auth.LoginInput) (*auth.Grant, error) {
	var grant auth.Grant
	if err := client.Do(ctx, http.MethodPost, "/auth/login", nil, input, &grant); err != nil {
		return nil, err
	}
	return &grant, nil
}

// Register calls POST /auth/register.
func (client *Client) Register(ctx context.Context, input auth.RegisterInput) (*auth.Grant, error) {
	var grant auth.Grant
	if err := client.Do(ctx, http.MethodPost, "/auth/register", nil, input, &grant); err != nil {
		return nil, err
	}
	return &grant, nil
}

// # Calls

// VoiceToken is a short-lived credential for the voice transport.
type VoiceToken struct {
	Token    string `json:"token"`
	Identity string `json:"identity"`
}

// VoiceToken calls GET /calls/token.
func (client *Client) VoiceToken(ctx context.Context) (*VoiceToken, error) {
	var token VoiceToken
	if err := client.Do(ctx, http.MethodGet, "/calls/token", nil, nil, &token); err != nil {
		return nil, err
	}
	return &token, nil
}

// CallRecord is one call as kept by the backend.
type CallRecord struct {
	ID          int64      `json:"id"`
	CallSID     *string    `json:"twilio_call_sid"`
	AgentID     int64      `json:"agent_id"`
	ContactID   *int64     `json:"contact_id"`
	CampaignID  *int64     `json:"campaign_id"`
	Direction   string     `json:"direction"`
	FromNumber  string     `json:"from_number"`
	ToNumber    string     `json:"to_number"`
	Status      string     `json:"status"`
	Duration    int        `json:"duration"`
	StartedAt   time.Time  `json:"started_at"`
	AnsweredAt  *time.Time `json:"answered_at"`
	EndedAt     *time.Time `json:"ended_at"`
	Disposition *string    `json:"disposition"`
	Notes       *string    `json:"notes"`
}

// HistoryFilter narrows GET /calls/. Zero fields are not sent.
type HistoryFilter struct {
	Skip     int
	Limit    int
	Status   string
	DateFrom time.Time
	DateTo   time.Time
}

// values encodes the filter as query parameters.
func (filter HistoryFilter) values() url.Values {
	query := url.Values{}
	pagination.Window{Skip: filter.Skip, Limit: filter.Limit}.Values(query)
	if filter.Status != "" {
		query.Set("status", filter.Status)
	}
	setDate(query, "date_from", filter.DateFrom)
	setDate(query, "date_to", filter.DateTo)
	return query
}

func setDate(query url.Values, key string, value time.Time) {
	if !value.IsZero() {
		query.Set(key, value.Format(time.DateOnly))
	}
}

// CallHistory calls GET /calls/. Admins see every agent's calls.
func (client *Client) CallHistory(ctx context.Context, filter HistoryFilter) ([]CallRecord, error) {
	var records []CallRecord
	if err := client.Do(ctx, http.MethodGet, "/calls/", filter.values(), nil, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// CallStats summarises the calls visible to the current user.
type CallStats struct {
	TotalCalls      int     `json:"total_calls"`
	AnsweredCalls   int     `json:"answered_calls"`
	ConnectRate     float64 `json:"connect_rate"`
	TotalDuration   int     `json:"total_duration"`
	AverageDuration float64 `json:"average_duration"`
}

// CallStats calls GET /calls/stats.
func (client *Client) CallStats(ctx context.Context, from, to time.Time) (*CallStats, error) {
	query := url.Values{}
	setDate(query, "date_from", from)
	setDate(query, "date_to", to)

	var stats CallStats
	if err := client.Do(ctx, http.MethodGet, "/calls/stats", query, nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}
