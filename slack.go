package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ChannelBridge is the boundary to the external chat platform. The core
// only ever asks it to turn confirmed identities into a destination URL;
// protocol details stay on this side of the interface.
type ChannelBridge interface {
	// LookupUserByEmail resolves a workspace member id from an email.
	// Returns ErrNotFound when the email is not in the workspace.
	LookupUserByEmail(ctx context.Context, email string) (string, error)
	// OpenConversation opens (or reuses) a direct conversation between
	// two member identities and returns its destination URL.
	OpenConversation(ctx context.Context, idA, idB string) (string, error)
	// OpenSharedChannel opens (or reuses) the group channel for a
	// cluster key and returns its destination URL.
	OpenSharedChannel(ctx context.Context, clusterKey string) (string, error)
}

// SlackBridge talks to the Slack Web API. The base URL is injectable so
// tests can point it at a local server.
type SlackBridge struct {
	token   string
	baseURL string
	client  *http.Client
}

func NewSlackBridge(token string) *SlackBridge {
	return &SlackBridge{
		token:   token,
		baseURL: "https://slack.com/api",
		// External calls get a bounded timeout; failures surface to the
		// caller without retry.
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// call posts a form-encoded Web API method and decodes the envelope.
func (b *SlackBridge) call(ctx context.Context, method string, params url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		b.baseURL+"/"+method, strings.NewReader(params.Encode()))
	if err != nil {
		return adapterErr("slack."+method, err)
	}
	req.Header.Set("Authorization", "Bearer "+b.token)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := b.client.Do(req)
	if err != nil {
		return adapterErr("slack."+method, fmt.Errorf("%w: %v", ErrChannelUnavailable, err))
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return adapterErr("slack."+method, fmt.Errorf("%w: bad response: %v", ErrChannelUnavailable, err))
	}
	return nil
}

func (b *SlackBridge) LookupUserByEmail(ctx context.Context, email string) (string, error) {
	var out struct {
		OK      bool   `json:"ok"`
		Error   string `json:"error"`
		Members []struct {
			ID      string `json:"id"`
			Profile struct {
				Email string `json:"email"`
			} `json:"profile"`
		} `json:"members"`
	}
	if err := b.call(ctx, "users.list", url.Values{}, &out); err != nil {
		return "", err
	}
	if !out.OK {
		return "", adapterErr("slack.users.list", fmt.Errorf("%w: %s", ErrChannelUnavailable, out.Error))
	}
	for _, m := range out.Members {
		if m.Profile.Email != "" && m.Profile.Email == email {
			return m.ID, nil
		}
	}
	return "", ErrNotFound
}

func (b *SlackBridge) OpenConversation(ctx context.Context, idA, idB string) (string, error) {
	var out struct {
		OK      bool   `json:"ok"`
		Error   string `json:"error"`
		Channel struct {
			ID string `json:"id"`
		} `json:"channel"`
	}
	params := url.Values{"users": {idA + "," + idB}}
	if err := b.call(ctx, "conversations.open", params, &out); err != nil {
		return "", err
	}
	if !out.OK || out.Channel.ID == "" {
		return "", adapterErr("slack.conversations.open", fmt.Errorf("%w: %s", ErrChannelUnavailable, out.Error))
	}
	return b.redirectURL(out.Channel.ID), nil
}

func (b *SlackBridge) OpenSharedChannel(ctx context.Context, clusterKey string) (string, error) {
	name := "newhire-group-" + clusterKey

	var out struct {
		OK      bool   `json:"ok"`
		Error   string `json:"error"`
		Channel struct {
			ID string `json:"id"`
		} `json:"channel"`
	}
	params := url.Values{"name": {name}}
	if err := b.call(ctx, "conversations.create", params, &out); err != nil {
		return "", err
	}
	if out.OK && out.Channel.ID != "" {
		return b.redirectURL(out.Channel.ID), nil
	}
	if out.Error != "name_taken" {
		return "", adapterErr("slack.conversations.create", fmt.Errorf("%w: %s", ErrChannelUnavailable, out.Error))
	}

	// Channel already exists from an earlier call: find it by name.
	var list struct {
		OK       bool   `json:"ok"`
		Error    string `json:"error"`
		Channels []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"channels"`
	}
	if err := b.call(ctx, "conversations.list", url.Values{"limit": {"1000"}}, &list); err != nil {
		return "", err
	}
	if !list.OK {
		return "", adapterErr("slack.conversations.list", fmt.Errorf("%w: %s", ErrChannelUnavailable, list.Error))
	}
	for _, c := range list.Channels {
		if c.Name == name {
			return b.redirectURL(c.ID), nil
		}
	}
	return "", adapterErr("slack.conversations.list", fmt.Errorf("%w: channel %s missing after name_taken", ErrChannelUnavailable, name))
}

// redirectURL builds the client-side deep link for a channel id.
func (b *SlackBridge) redirectURL(channelID string) string {
	return "https://slack.com/app_redirect?channel=" + channelID
}
