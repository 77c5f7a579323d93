package syncer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"momentum/pkg/auth"
	"momentum/pkg/errs"
	"momentum/pkg/persistence"
	"momentum/pkg/playbook"
)

const remoteRequestTimeout = 30 * time.Second

// remoteRequest is the persistence function wire envelope. Action selects
// the operation; the remaining fields are operation-specific.
type remoteRequest struct {
	Action       string              `json:"action"`
	Playbook     *playbook.Playbook  `json:"playbook,omitempty"`
	PlaybookID   string              `json:"playbookId,omitempty"`
	ActionID     string              `json:"actionId,omitempty"`
	Position     *int                `json:"position,omitempty"`
	ActionRow    *playbook.Action    `json:"actionRow,omitempty"`
	SubActionRow *playbook.SubAction `json:"subActionRow,omitempty"`
	// No omitempty: an empty replacement list must reach the wire so the
	// server can distinguish "clear" from "absent".
	SubActions   []playbook.SubAction     `json:"subActions"`
	JournalEntry *string                  `json:"journalEntry,omitempty"`
	Profile      *persistence.UserProfile `json:"profile,omitempty"`
}

type remoteResponse struct {
	Success bool            `json:"success"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// RemoteClient talks to the persistence function. Every call carries the
// current identity's bearer token; calling without an identity is a local
// programming error the coordinator prevents by gating on identity first.
type RemoteClient struct {
	url      string
	client   *http.Client
	identity auth.Provider
}

func NewRemoteClient(url string, identity auth.Provider) *RemoteClient {
	return &RemoteClient{
		url:      url,
		client:   &http.Client{Timeout: remoteRequestTimeout},
		identity: identity,
	}
}

// SavePlaybook upserts the full active playbook, rows and all.
func (c *RemoteClient) SavePlaybook(ctx context.Context, p *playbook.Playbook) error {
	_, err := c.invoke(ctx, remoteRequest{Action: "savePlaybook", Playbook: p})
	return err
}

// SaveHistory writes an archived playbook into the history records.
func (c *RemoteClient) SaveHistory(ctx context.Context, p *playbook.Playbook) error {
	_, err := c.invoke(ctx, remoteRequest{Action: "saveHistory", Playbook: p})
	return err
}

// SaveAction upserts one action row at its ordinal position.
func (c *RemoteClient) SaveAction(ctx context.Context, playbookID string, position int, a *playbook.Action) error {
	_, err := c.invoke(ctx, remoteRequest{
		Action:     "saveAction",
		PlaybookID: playbookID,
		Position:   &position,
		ActionRow:  a,
	})
	return err
}

// SaveSubAction upserts one sub-action row at its ordinal position.
func (c *RemoteClient) SaveSubAction(ctx context.Context, playbookID, actionID string, position int, sub *playbook.SubAction) error {
	_, err := c.invoke(ctx, remoteRequest{
		Action:       "saveSubAction",
		PlaybookID:   playbookID,
		ActionID:     actionID,
		Position:     &position,
		SubActionRow: sub,
	})
	return err
}

// SaveSubActions replaces an action's sub-action rows wholesale.
func (c *RemoteClient) SaveSubActions(ctx context.Context, playbookID, actionID string, subs []playbook.SubAction) error {
	if subs == nil {
		subs = []playbook.SubAction{}
	}
	_, err := c.invoke(ctx, remoteRequest{
		Action:     "saveSubActions",
		PlaybookID: playbookID,
		ActionID:   actionID,
		SubActions: subs,
	})
	return err
}

// SaveJournal writes the journal entry for a playbook.
func (c *RemoteClient) SaveJournal(ctx context.Context, playbookID, entry string) error {
	_, err := c.invoke(ctx, remoteRequest{
		Action:       "saveJournal",
		PlaybookID:   playbookID,
		JournalEntry: &entry,
	})
	return err
}

// SaveProfile upserts the identity's onboarding profile.
func (c *RemoteClient) SaveProfile(ctx context.Context, profile *persistence.UserProfile) error {
	_, err := c.invoke(ctx, remoteRequest{Action: "saveProfile", Profile: profile})
	return err
}

// GetProfile fetches the identity's onboarding profile.
func (c *RemoteClient) GetProfile(ctx context.Context) (*persistence.UserProfile, error) {
	result, err := c.invoke(ctx, remoteRequest{Action: "getProfile"})
	if err != nil {
		return nil, err
	}
	if len(result) == 0 {
		return nil, errs.New(errs.KindUpstream, "empty getProfile result")
	}
	var profile persistence.UserProfile
	if err := json.Unmarshal(result, &profile); err != nil {
		return nil, errs.NewWithCause(errs.KindUpstream, err, "decode getProfile result")
	}
	return &profile, nil
}

// GetPlaybooks fetches the identity's active playbooks.
func (c *RemoteClient) GetPlaybooks(ctx context.Context) ([]*playbook.Playbook, error) {
	return c.fetch(ctx, "getPlaybooks")
}

// GetHistory fetches the identity's archived playbooks, newest first.
func (c *RemoteClient) GetHistory(ctx context.Context) ([]*playbook.Playbook, error) {
	return c.fetch(ctx, "getHistory")
}

func (c *RemoteClient) fetch(ctx context.Context, action string) ([]*playbook.Playbook, error) {
	result, err := c.invoke(ctx, remoteRequest{Action: action})
	if err != nil {
		return nil, err
	}
	if len(result) == 0 {
		return nil, nil
	}
	var playbooks []*playbook.Playbook
	if err := json.Unmarshal(result, &playbooks); err != nil {
		return nil, errs.NewWithCause(errs.KindUpstream, err, fmt.Sprintf("decode %s result", action))
	}
	return playbooks, nil
}

func (c *RemoteClient) invoke(ctx context.Context, req remoteRequest) (json.RawMessage, error) {
	if c.url == "" {
		return nil, errs.New(errs.KindConfig, "no persistence function URL configured")
	}
	id, ok := c.identity.Current()
	if !ok {
		return nil, errs.New(errs.KindAuth, "no identity for persistence call")
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, errs.NewWithCause(errs.KindUnknown, err, "marshal persistence request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, errs.NewWithCause(errs.KindUnknown, err, "build persistence request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+id.AccessToken)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, errs.NewWithCause(errs.KindUpstream, err, "persistence function unreachable")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, errs.NewWithCause(errs.KindUpstream, err, "read persistence response")
	}

	var envelope remoteResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, errs.NewWithStatus(errs.KindUpstream, resp.StatusCode,
			fmt.Sprintf("malformed persistence response (HTTP %d)", resp.StatusCode))
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return nil, errs.NewWithStatus(errs.KindAuth, resp.StatusCode, envelope.Error)
	}
	if !envelope.Success {
		msg := envelope.Error
		if msg == "" {
			msg = fmt.Sprintf("persistence function returned HTTP %d", resp.StatusCode)
		}
		return nil, errs.NewWithStatus(errs.KindUpstream, resp.StatusCode, msg)
	}
	return envelope.Result, nil
}
