// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package openai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/jeranaias/loz/internal/llm"
)

// MaxChunkSize is the maximum size of a single SSE line.
const MaxChunkSize = 64 * 1024

// doneSentinel terminates an SSE completion stream.
var doneSentinel = []byte("[DONE]")

// =============================================================================
// SSE READER
// =============================================================================

// SSEReader parses Server-Sent Events from a stream.
type SSEReader struct {
	reader *bufio.Reader
}

// NewSSEReader creates a new SSE reader from an io.Reader.
func NewSSEReader(r io.Reader) *SSEReader {
	return &SSEReader{reader: bufio.NewReaderSize(r, MaxChunkSize)}
}

// ReadEvent returns the data payload of the next event.
// Multiple data lines within one event are joined with a newline.
// Returns io.EOF when the stream ends.
func (s *SSEReader) ReadEvent() ([]byte, error) {
	var dataLines [][]byte

	for {
		line, err := s.reader.ReadBytes('\n')
		if err != nil {
			if err == io.EOF {
				if trimmed := bytes.TrimRight(line, "\r\n"); bytes.HasPrefix(trimmed, []byte("data:")) {
					dataLines = append(dataLines, bytes.TrimSpace(trimmed[5:]))
				}
				if len(dataLines) > 0 {
					return bytes.Join(dataLines, []byte("\n")), nil
				}
				return nil, io.EOF
			}
			return nil, err
		}

		line = bytes.TrimRight(line, "\r\n")

		// Empty line ends the event.
		if len(line) == 0 {
			if len(dataLines) > 0 {
				return bytes.Join(dataLines, []byte("\n")), nil
			}
			continue
		}

		if bytes.HasPrefix(line, []byte("data:")) {
			dataLines = append(dataLines, bytes.TrimSpace(line[5:]))
		}
		// event:, id:, retry: and comments are ignored.
	}
}

// =============================================================================
// STREAMING COMPLETION
// =============================================================================

// StreamComplete performs a streaming completion, invoking onFragment for
// every non-empty delta in arrival order. The returned text is the exact
// concatenation of the delivered fragments.
//
// A failure after at least one fragment was delivered is returned as
// *llm.StreamError carrying the partial text.
func (c *Client) StreamComplete(ctx context.Context, params llm.Params, onFragment llm.FragmentFunc) (llm.Completion, error) {
	reqBody := newRequest(params, true)

	if err := c.limiter.Wait(ctx); err != nil {
		return llm.Completion{}, err
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return llm.Completion{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return llm.Completion{}, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.stream.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return llm.Completion{}, ctx.Err()
		}
		return llm.Completion{}, &llm.TransportError{Provider: providerName, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := readResponse(resp)
		return llm.Completion{}, handleErrorResponse(resp.StatusCode, body)
	}

	model := reqBody.Model
	text, streamModel, err := processStream(ctx, resp.Body, onFragment)
	if streamModel != "" {
		model = streamModel
	}
	if err != nil {
		if text != "" {
			return llm.Completion{Text: text, Model: model}, &llm.StreamError{Partial: text, Err: err}
		}
		if ctx.Err() != nil {
			return llm.Completion{}, ctx.Err()
		}
		return llm.Completion{}, &llm.TransportError{Provider: providerName, Status: resp.StatusCode, Message: "stream failed", Err: err}
	}

	log.Debug().Str("model", model).Int("chars", len(text)).Msg("openai stream finished")
	return llm.Completion{Text: text, Model: model}, nil
}

// processStream reads SSE events until [DONE] or a finish reason.
// It returns the accumulated text and the model reported by the server.
// A body that ends before either terminator yields io.ErrUnexpectedEOF.
func processStream(ctx context.Context, body io.Reader, onFragment llm.FragmentFunc) (string, string, error) {
	reader := NewSSEReader(body)
	var acc strings.Builder
	var model string

	for {
		select {
		case <-ctx.Done():
			return acc.String(), model, ctx.Err()
		default:
		}

		data, err := reader.ReadEvent()
		if err != nil {
			if err == io.EOF {
				return acc.String(), model, io.ErrUnexpectedEOF
			}
			if ctx.Err() != nil {
				return acc.String(), model, ctx.Err()
			}
			return acc.String(), model, err
		}

		if bytes.Equal(data, doneSentinel) {
			return acc.String(), model, nil
		}

		var chunk StreamChunk
		if err := json.Unmarshal(data, &chunk); err != nil {
			// Skip malformed chunks.
			log.Debug().Err(err).Msg("skipping malformed stream chunk")
			continue
		}
		if chunk.Model != "" {
			model = chunk.Model
		}

		if content := chunk.GetContent(); content != "" {
			acc.WriteString(content)
			if onFragment != nil {
				onFragment(content)
			}
		}

		if chunk.IsDone() {
			return acc.String(), model, nil
		}
	}
}
