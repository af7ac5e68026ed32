// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package llmtest provides a scripted llm.Client for tests.
package llmtest

import (
	"context"
	"strings"
	"sync"

	"github.com/jeranaias/loz/internal/llm"
)

// Reply is one scripted provider response.
type Reply struct {
	// Fragments are delivered in order by StreamComplete. Complete returns
	// their concatenation.
	Fragments []string

	// Err is returned after all fragments were delivered.
	Err error

	// Model defaults to the request's model.
	Model string
}

// Text returns a single-fragment reply.
func Text(s string) Reply {
	return Reply{Fragments: []string{s}}
}

// Failure returns a reply that fails without producing text.
func Failure(err error) Reply {
	return Reply{Err: err}
}

// Client replays scripted replies and records every request.
// Once the script is exhausted it keeps returning the last reply.
type Client struct {
	Caps llm.Capability

	// OnCall, when set, runs at the start of every call.
	OnCall func(ctx context.Context, params llm.Params)

	mu      sync.Mutex
	replies []Reply
	calls   []llm.Params
	streams int
}

var _ llm.Client = (*Client)(nil)

// New creates a client serving both call styles.
func New(replies ...Reply) *Client {
	return &Client{Caps: llm.CanComplete | llm.CanStream, replies: replies}
}

// Name returns "fake".
func (c *Client) Name() string { return "fake" }

// Capabilities returns c.Caps.
func (c *Client) Capabilities() llm.Capability { return c.Caps }

// Complete returns the next reply concatenated.
func (c *Client) Complete(ctx context.Context, params llm.Params) (llm.Completion, error) {
	r := c.next(ctx, params, false)
	text := strings.Join(r.Fragments, "")
	if r.Err != nil {
		return llm.Completion{}, r.Err
	}
	return llm.Completion{Text: text, Model: c.model(r, params)}, nil
}

// StreamComplete delivers the next reply fragment by fragment.
func (c *Client) StreamComplete(ctx context.Context, params llm.Params, onFragment llm.FragmentFunc) (llm.Completion, error) {
	r := c.next(ctx, params, true)
	var acc strings.Builder
	for _, f := range r.Fragments {
		if err := ctx.Err(); err != nil {
			return llm.Completion{}, &llm.StreamError{Partial: acc.String(), Err: err}
		}
		acc.WriteString(f)
		if onFragment != nil {
			onFragment(f)
		}
	}
	if r.Err != nil {
		if acc.Len() > 0 {
			return llm.Completion{}, &llm.StreamError{Partial: acc.String(), Err: r.Err}
		}
		return llm.Completion{}, r.Err
	}
	return llm.Completion{Text: acc.String(), Model: c.model(r, params)}, nil
}

// Calls returns every request received so far.
func (c *Client) Calls() []llm.Params {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]llm.Params, len(c.calls))
	copy(out, c.calls)
	return out
}

// Prompts returns the prompt of every request received so far.
func (c *Client) Prompts() []string {
	calls := c.Calls()
	out := make([]string, len(calls))
	for i, p := range calls {
		out[i] = p.Prompt
	}
	return out
}

// StreamCalls returns how many calls used StreamComplete.
func (c *Client) StreamCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.streams
}

func (c *Client) next(ctx context.Context, params llm.Params, stream bool) Reply {
	if c.OnCall != nil {
		c.OnCall(ctx, params)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, params.Clone())
	if stream {
		c.streams++
	}
	if len(c.replies) == 0 {
		return Reply{}
	}
	r := c.replies[0]
	if len(c.replies) > 1 {
		c.replies = c.replies[1:]
	}
	return r
}

func (c *Client) model(r Reply, params llm.Params) string {
	if r.Model != "" {
		return r.Model
	}
	if params.Model != "" {
		return params.Model
	}
	return "fake-model"
}
